package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// envFile is loaded before the configuration is read. A missing file is not an error.
var envFile = ".env"

var rootCmd = &cobra.Command{
	Use:           "todo",
	Short:         "Personal task tracker",
	Long:          "Task tracker with filtering, recurring tasks and reminders, served over HTTP, MCP and the console",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", envFile, "Path of the dotenv file to load")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
