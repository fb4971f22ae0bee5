package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mcoot/teamprogress/internal/services/gamegraph"
)

func newGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Game data commands",
	}

	cmd.AddCommand(newGraphShowCmd())
	cmd.AddCommand(newGraphImportCmd())

	return cmd
}

func newGraphShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the loaded game data",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result gamegraph.Summary
			if err := client.Get(cmd.Context(), "/api/v1/graph", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.Print(result)
			return nil
		},
	}
}

func newGraphImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Upload a YAML or JSON game data file (requires --admin-token)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			bundle, err := gamegraph.ParseBundle(data)
			if err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}
			tasksDoc, hideoutDoc, err := bundle.Documents()
			if err != nil {
				return err
			}

			req := map[string]json.RawMessage{"tasks": tasksDoc, "hideout": hideoutDoc}
			var result gamegraph.Summary
			if err := client.Put(cmd.Context(), "/api/v1/admin/graph", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.Print(result)
			return nil
		},
	}
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the server is up and whether game data is loaded",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result HealthResult
			if err := client.Get(cmd.Context(), "/api/v1/health", &result); err != nil {
				return err
			}
			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}
}
