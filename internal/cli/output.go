package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/mcoot/teamprogress/internal/model"
	"github.com/mcoot/teamprogress/internal/services/aggregate"
	"github.com/mcoot/teamprogress/internal/services/gamegraph"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		o.printJSON(map[string]string{"message": msg})
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case User:
		o.printUser(v)
	case AuthResult:
		o.printAuthResult(v)
	case Team:
		o.printTeam(v)
	case *model.ProgressRecord:
		o.printProgress(v)
	case *aggregate.TeamProgress:
		o.printTeamProgress(v)
	case gamegraph.Summary:
		o.printGraphSummary(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// User response type (matches API)
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	IsGuest     bool   `json:"is_guest"`
}

// AuthResult combines user and token
type AuthResult struct {
	User         User      `json:"user"`
	SessionToken string    `json:"session_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Team response type
type Team struct {
	ID             string   `json:"id"`
	Owner          string   `json:"owner"`
	IsOwner        bool     `json:"is_owner"`
	Members        []string `json:"members"`
	MaximumMembers int      `json:"maximum_members"`
	Password       string   `json:"password,omitempty"`
	InviteLink     string   `json:"invite_link,omitempty"`
}

// HealthResult response type
type HealthResult struct {
	Status      string `json:"status"`
	GraphLoaded bool   `json:"graph_loaded"`
}

func (o *Output) printUser(u User) {
	guestStr := "no"
	if u.IsGuest {
		guestStr = "yes"
	}
	fmt.Fprintf(o.w, "User: %s (%s)\n", u.DisplayName, u.ID)
	fmt.Fprintf(o.w, "Guest: %s\n", guestStr)
}

func (o *Output) printAuthResult(a AuthResult) {
	o.printUser(a.User)
	fmt.Fprintf(o.w, "Session expires: %s\n", a.ExpiresAt.Format(time.RFC3339))
}

func (o *Output) printTeam(t Team) {
	fmt.Fprintf(o.w, "Team: %s\n", t.ID)
	fmt.Fprintf(o.w, "Members (%d/%d):\n", len(t.Members), t.MaximumMembers)
	for _, m := range t.Members {
		ownerStr := ""
		if m == t.Owner {
			ownerStr = " [owner]"
		}
		fmt.Fprintf(o.w, "  - %s%s\n", m, ownerStr)
	}
	if t.Password != "" {
		fmt.Fprintf(o.w, "Password: %s\n", t.Password)
	}
	if t.InviteLink != "" {
		fmt.Fprintf(o.w, "Invite: %s\n", t.InviteLink)
	}
}

func (o *Output) printProgress(p *model.ProgressRecord) {
	fmt.Fprintf(o.w, "Player: %s\n", p.Name())
	fmt.Fprintf(o.w, "Level: %d  Faction: %s  Edition: %s\n", p.PlayerLevel, p.Faction, p.GameEdition.Info().Title)

	var done, failed int
	for id := range p.Tasks {
		switch {
		case p.IsTaskFailed(id):
			failed++
		case p.IsTaskComplete(id):
			done++
		}
	}
	fmt.Fprintf(o.w, "Tasks: %d complete, %d failed\n", done, failed)

	modules := 0
	for id := range p.HideoutModules {
		if p.IsModuleComplete(id) {
			modules++
		}
	}
	fmt.Fprintf(o.w, "Hideout modules built: %d\n", modules)
}

func (o *Output) printTeamProgress(tp *aggregate.TeamProgress) {
	if tp.TeamID == "" {
		fmt.Fprintln(o.w, "Not in a team")
	} else {
		fmt.Fprintf(o.w, "Team: %s\n", tp.TeamID)
	}

	keys := make([]model.UserID, 0, len(tp.Members))
	for k := range tp.Members {
		keys = append(keys, k)
	}
	// self first, then by id
	slices.SortFunc(keys, func(a, b model.UserID) int {
		switch {
		case a == aggregate.SelfKey:
			return -1
		case b == aggregate.SelfKey:
			return 1
		}
		return strings.Compare(string(a), string(b))
	})

	for _, k := range keys {
		m := tp.Members[k]
		line := fmt.Sprintf("  %s (%s) level %d", m.DisplayName, m.UserID, m.Progress.PlayerLevel)
		if m.IsOwner {
			line += " [owner]"
		}
		if m.Derived != nil {
			available := 0
			for _, ok := range m.Derived.Tasks {
				if ok {
					available++
				}
			}
			line += fmt.Sprintf(", %d tasks available", available)
		}
		fmt.Fprintln(o.w, line)
	}

	if len(tp.Hidden) > 0 {
		hidden := make([]string, len(tp.Hidden))
		for i, id := range tp.Hidden {
			hidden[i] = string(id)
		}
		fmt.Fprintf(o.w, "Hidden: %s\n", strings.Join(hidden, ", "))
	}
	if tp.GraphVersion == "" {
		fmt.Fprintln(o.w, "Game data not loaded")
	}
}

func (o *Output) printGraphSummary(s gamegraph.Summary) {
	fmt.Fprintf(o.w, "Graph version: %s\n", s.Version)
	fmt.Fprintf(o.w, "Tasks: %d  Traders: %d  Hideout stations: %d\n", s.Tasks, s.Traders, s.Stations)
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Fprintf(o.w, "Status: %s\n", h.Status)
	fmt.Fprintf(o.w, "Game data loaded: %t\n", h.GraphLoaded)
}
