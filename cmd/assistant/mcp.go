package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/textrelay/wa-assistant/internal/mcp"
	"github.com/textrelay/wa-assistant/internal/observability"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve knowledge, whitelist and message tools over MCP stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		return mcp.NewServer(observability.Version, a.Knowledge, a.repos.Whitelist, a.repos.Message).Run(ctx)
	},
}
