package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const Version = "1.0.0"

const banner = `
  _____          ____  _    _                       _
 |  __ \   /\   |  _ \| |  | |                     | |
 | |  | | /  \  | |_) | |__| | ___  _   _ _ __   __| |___
 | |  | |/ /\ \ |  _ <|  __  |/ _ \| | | | '_ \ / _` + "`" + ` / __|
 | |__| / ____ \| |_) | |  | | (_) | |_| | | | | (_| \__ \
 |_____/_/    \_\____/|_|  |_|\___/ \__,_|_| |_|\__,_|___/
`

var (
	flagMode      string
	flagThreshold int
	flagMissesCSV string

	cmdRoot = &cobra.Command{
		Use:          "dabhounds <link>",
		Short:        "Convert a Spotify or YouTube link into a DAB library",
		Version:      Version,
		SilenceUsage: true,
		Args:         cobra.MaximumNArgs(1),
	}
)

func Execute() {
	// .env overrides are optional; a missing file is fine.
	_ = godotenv.Load()

	if err := cmdRoot.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cmdRoot.RunE = func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			fmt.Print(banner + "\n")
			return cmd.Help()
		}
		return runConvert(args[0])
	}
	cmdRoot.Flags().StringVar(&flagMode, "mode", "", "Matching mode: strict, lenient or manual (default from config)")
	cmdRoot.Flags().IntVar(&flagThreshold, "threshold", 0, "Override fuzzy match threshold 0-100")
	cmdRoot.Flags().StringVar(&flagMissesCSV, "export-misses", "", "Write unmatched tracks to a CSV at the given path")
}

var (
	tag  = color.New(color.FgCyan).Sprint("[DABHound]")
	warn = color.New(color.FgYellow).Sprint("[DABHound]")
)

func infof(format string, args ...interface{}) {
	fmt.Printf(tag+" "+format+"\n", args...)
}

func warnf(format string, args ...interface{}) {
	fmt.Printf(warn+" "+format+"\n", args...)
}
