package main

import "dabhounds/cmd"

func main() {
	cmd.Execute()
}
