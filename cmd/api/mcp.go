package main

import (
	"github.com/spf13/cobra"

	"github.com/markdave123-py/salesbrain/internal/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the product search tools over MCP (stdio)",
	Long: `Start a Model Context Protocol server on stdin/stdout. Every product is
exposed as a search_<product> tool; the list follows the catalog.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		a, err := bootstrap(ctx, true)
		if err != nil {
			return err
		}
		defer a.Close()

		interval, _ := cmd.Flags().GetDuration("refresh")
		s, err := mcpserver.NewServer(ctx, a.DB, a.Searcher)
		if err != nil {
			return err
		}
		return s.Run(ctx, interval)
	},
}

func init() {
	mcpCmd.Flags().Duration("refresh", mcpserver.DefaultRefreshInterval, "how often to re-read the product catalog")
	rootCmd.AddCommand(mcpCmd)
}
