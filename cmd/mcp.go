package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	mcpserver "github.com/ziadkadry99/helpdesk/internal/mcp"
	"github.com/ziadkadry99/helpdesk/internal/progress"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server on stdio",
	Long:  `Exposes the helpdesk chat, incident lookup and KB search as MCP tools for AI agents. Stdout carries the protocol, so all logs go to stderr.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := context.Background()
		a, err := openApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.kb.LoadFile(ctx, progress.Nop{}); err != nil {
			return fmt.Errorf("loading KB file: %w", err)
		}
		return mcpserver.NewServer(a.orch, a.incidents, a.kb.Index()).Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
