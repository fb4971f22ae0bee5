package cli

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mcoot/teamprogress/internal/model"
)

func newProgressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Your own progress",
	}

	cmd.AddCommand(newProgressShowCmd())
	cmd.AddCommand(newProgressTaskCmd())
	cmd.AddCommand(newProgressObjectiveCmd())
	cmd.AddCommand(newProgressHideoutCmd())
	cmd.AddCommand(newProgressProfileCmd())

	return cmd
}

func printProgress(cmd *cobra.Command, p *model.ProgressRecord) {
	out := NewOutput(cfg.Output, cmd.OutOrStdout())
	out.Print(p)
}

func newProgressShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show your progress record",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result model.ProgressRecord
			if err := client.Get(cmd.Context(), "/api/v1/progress", &result); err != nil {
				return err
			}
			printProgress(cmd, &result)
			return nil
		},
	}
}

func newProgressTaskCmd() *cobra.Command {
	var state string

	cmd := &cobra.Command{
		Use:   "task <task-id>",
		Short: "Set a task to complete, failed or uncompleted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result model.ProgressRecord
			req := map[string]string{"state": state}
			if err := client.Post(cmd.Context(), "/api/v1/progress/tasks/"+url.PathEscape(args[0]), req, &result); err != nil {
				return err
			}
			printProgress(cmd, &result)
			return nil
		},
	}

	cmd.Flags().StringVar(&state, "state", "complete", "complete, failed or uncompleted")

	return cmd
}

func newProgressObjectiveCmd() *cobra.Command {
	var incomplete bool

	cmd := &cobra.Command{
		Use:   "objective <objective-id>",
		Short: "Mark an objective complete",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result model.ProgressRecord
			req := map[string]bool{"complete": !incomplete}
			if err := client.Post(cmd.Context(), "/api/v1/progress/objectives/"+url.PathEscape(args[0]), req, &result); err != nil {
				return err
			}
			printProgress(cmd, &result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&incomplete, "incomplete", false, "Clear the objective instead")

	return cmd
}

func newProgressHideoutCmd() *cobra.Command {
	var incomplete bool

	cmd := &cobra.Command{
		Use:   "hideout <level-id>",
		Short: "Mark a hideout station level built",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result model.ProgressRecord
			req := map[string]bool{"complete": !incomplete}
			if err := client.Post(cmd.Context(), "/api/v1/progress/hideout/"+url.PathEscape(args[0]), req, &result); err != nil {
				return err
			}
			printProgress(cmd, &result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&incomplete, "incomplete", false, "Clear the level instead")

	return cmd
}

func newProgressProfileCmd() *cobra.Command {
	var (
		level   int
		edition int
		faction string
		name    string
	)

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Update level, edition, faction or display name",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]any{}
			if cmd.Flags().Changed("level") {
				req["playerLevel"] = level
			}
			if cmd.Flags().Changed("edition") {
				req["gameEdition"] = edition
			}
			if cmd.Flags().Changed("faction") {
				req["pmcFaction"] = strings.ToUpper(faction)
			}
			if cmd.Flags().Changed("name") {
				req["displayName"] = name
			}
			if len(req) == 0 {
				return fmt.Errorf("nothing to update: set --level, --edition, --faction or --name")
			}

			var result model.ProgressRecord
			if err := client.Patch(cmd.Context(), "/api/v1/progress/profile", req, &result); err != nil {
				return err
			}
			printProgress(cmd, &result)
			return nil
		},
	}

	cmd.Flags().IntVar(&level, "level", 0, "Player level")
	cmd.Flags().IntVar(&edition, "edition", 0, "Game edition (1 Standard .. 5 Unheard)")
	cmd.Flags().StringVar(&faction, "faction", "", "USEC or BEAR")
	cmd.Flags().StringVar(&name, "name", "", "Display name")

	return cmd
}
