package cli

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mcoot/teamprogress/internal/services/aggregate"
)

func newTeamCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "team",
		Short: "Team membership commands",
	}

	cmd.AddCommand(newTeamCreateCmd())
	cmd.AddCommand(newTeamJoinCmd())
	cmd.AddCommand(newTeamLeaveCmd())
	cmd.AddCommand(newTeamKickCmd())
	cmd.AddCommand(newTeamShowCmd())
	cmd.AddCommand(newTeamProgressCmd())

	return cmd
}

func newTeamCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Create a team owned by you",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result struct {
				Team string `json:"team"`
			}
			if err := client.Post(cmd.Context(), "/api/v1/team/create", nil, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.PrintMessage("Created team " + result.Team)
			return nil
		},
	}
}

func newTeamJoinCmd() *cobra.Command {
	var link string

	cmd := &cobra.Command{
		Use:   "join [<team-id> <password>]",
		Short: "Join a team by id and password, or with an invite link",
		Args:  cobra.RangeArgs(0, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, password, err := joinTarget(args, link)
			if err != nil {
				return err
			}

			req := map[string]string{"id": id, "password": password}
			if err := client.Post(cmd.Context(), "/api/v1/team/join", req, nil); err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.PrintMessage("Joined team " + id)
			return nil
		},
	}

	cmd.Flags().StringVar(&link, "link", "", "Invite link containing team and code")

	return cmd
}

// joinTarget takes the team id and password from args or an invite link
func joinTarget(args []string, link string) (string, string, error) {
	if link != "" {
		u, err := url.Parse(link)
		if err != nil {
			return "", "", fmt.Errorf("invalid invite link: %w", err)
		}
		q := u.Query()
		if q.Get("team") == "" || q.Get("code") == "" {
			return "", "", errors.New("invite link must contain team and code")
		}
		return q.Get("team"), q.Get("code"), nil
	}
	if len(args) != 2 {
		return "", "", errors.New("team id and password are required (or use --link)")
	}
	return args[0], args[1], nil
}

func newTeamLeaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "leave",
		Short: "Leave your team; owners disband it",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result struct {
				Disbanded bool `json:"disbanded"`
			}
			if err := client.Post(cmd.Context(), "/api/v1/team/leave", nil, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			if result.Disbanded {
				out.PrintMessage("Team disbanded")
			} else {
				out.PrintMessage("Left team")
			}
			return nil
		},
	}
}

func newTeamKickCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kick <user-id>",
		Short: "Remove a member from your team",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{"kicked": args[0]}
			if err := client.Post(cmd.Context(), "/api/v1/team/kick", req, nil); err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.PrintMessage("Kicked " + args[0])
			return nil
		},
	}
}

func newTeamShowCmd() *cobra.Command {
	var streamer bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show your team",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/team"
			if streamer {
				path += "?streamer=true"
			}

			var result Team
			if err := client.Get(cmd.Context(), path, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&streamer, "streamer", false, "Hide the team password and invite link")

	return cmd
}

func newTeamProgressCmd() *cobra.Command {
	var hide []string

	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Show progress for you and your teammates",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/team/progress"
			if len(hide) > 0 {
				path += "?hide=" + url.QueryEscape(strings.Join(hide, ","))
			}

			var result aggregate.TeamProgress
			if err := client.Get(cmd.Context(), path, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.Print(&result)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&hide, "hide", nil, "Teammate ids to leave out")

	return cmd
}
