package aggregate

import (
	"slices"
	"strings"

	"github.com/mcoot/teamprogress/internal/model"
)

// Visibility is one viewer's set of suppressed teammates. It is a viewer
// preference and is never stored with the team.
type Visibility struct {
	Viewer model.UserID
	hidden map[model.UserID]struct{}
}

// NewVisibility builds the filter for a viewer. The viewer cannot hide
// themselves; such entries are dropped.
func NewVisibility(viewer model.UserID, hidden ...model.UserID) Visibility {
	v := Visibility{Viewer: viewer, hidden: make(map[model.UserID]struct{}, len(hidden))}
	for _, id := range hidden {
		if id != "" && id != viewer {
			v.hidden[id] = struct{}{}
		}
	}
	return v
}

// ParseHidden splits a comma separated list of user ids
func ParseHidden(raw string) []model.UserID {
	var ids []model.UserID
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			ids = append(ids, model.UserID(part))
		}
	}
	return ids
}

// Visible reports whether the viewer sees the user's data
func (v Visibility) Visible(id model.UserID) bool {
	if id == v.Viewer {
		return true
	}
	_, hidden := v.hidden[id]
	return !hidden
}

// Filter keeps the visible ids, preserving order
func (v Visibility) Filter(ids []model.UserID) []model.UserID {
	out := make([]model.UserID, 0, len(ids))
	for _, id := range ids {
		if v.Visible(id) {
			out = append(out, id)
		}
	}
	return out
}

// Hidden returns the suppressed ids in sorted order
func (v Visibility) Hidden() []model.UserID {
	ids := make([]model.UserID, 0, len(v.hidden))
	for id := range v.hidden {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
