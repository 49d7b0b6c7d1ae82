package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"dabhounds/internal/auth"
)

func init() {
	cmdRoot.AddCommand(cmdLogin, cmdLogout, cmdCredits)
}

var cmdLogin = &cobra.Command{
	Use:          "login",
	Short:        "Log in to your DAB account",
	SilenceUsage: true,
	Args:         cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := auth.LoadConfig()
		if err != nil {
			return err
		}

		reader := bufio.NewReader(os.Stdin)
		fmt.Print("Email: ")
		email, _ := reader.ReadString('\n')
		fmt.Print("Password: ")
		password, _ := reader.ReadString('\n')

		if _, err := auth.Login(cfg, strings.TrimSpace(email), strings.TrimSpace(password)); err != nil {
			return err
		}
		infof("Login successful. Token saved.")
		return nil
	},
}

var cmdLogout = &cobra.Command{
	Use:          "logout",
	Short:        "Log out of DAB and clear stored credentials",
	SilenceUsage: true,
	Args:         cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := auth.LoadConfig()
		if err != nil {
			return err
		}
		if err := auth.Logout(cfg); err != nil {
			return err
		}
		infof("Logged out and cleared credentials.")
		return nil
	},
}

var cmdCredits = &cobra.Command{
	Use:    "credits",
	Short:  "Show credits",
	Hidden: true,
	Args:   cobra.NoArgs,
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Print(banner + "\n")
		fmt.Println(`DABHounds — "The hound is on the scent."

Visit: https://dabmusic.xyz

Developed by: sherlockholmesat221b
Special Thanks To: superadmin0, uimaxbai, joehacks, Squid.WTF`)
	},
}
