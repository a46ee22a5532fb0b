package cmd

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"todo-service.com/todo-service/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the task tools over MCP on stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, _ := cmd.Flags().GetString("user")
		if owner == "" {
			return errors.New("--user is required")
		}

		ctx := context.Background()
		a, err := newApp(ctx, appOptions{logOutput: os.Stderr})
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		return mcp.Serve(mcp.NewServer(a.tasks, owner))
	},
}

func init() {
	mcpCmd.Flags().String("user", "", "Owner whose tasks the tools operate on")
	rootCmd.AddCommand(mcpCmd)
}
