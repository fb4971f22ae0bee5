package gamegraph

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/mcoot/teamprogress/internal/model"
)

// Bundle is a single-file form of both graph documents, used for imports.
// It may be written as YAML or JSON.
type Bundle struct {
	Tasks           []model.Task           `json:"tasks" yaml:"tasks"`
	Traders         []model.Trader         `json:"traders" yaml:"traders"`
	HideoutStations []model.HideoutStation `json:"hideoutStations" yaml:"hideoutStations"`
}

// ParseBundle reads a YAML or JSON bundle
func ParseBundle(data []byte) (*Bundle, error) {
	var b Bundle
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidGraph, err)
	}
	return &b, nil
}

// Documents renders the bundle as the stored tasks and hideout documents
func (b *Bundle) Documents() (tasksDoc, hideoutDoc []byte, err error) {
	tasks := model.TasksDocument{Tasks: b.Tasks, Traders: b.Traders}
	if tasks.Tasks == nil {
		tasks.Tasks = []model.Task{}
	}
	if tasks.Traders == nil {
		tasks.Traders = []model.Trader{}
	}
	hideout := model.HideoutDocument{HideoutStations: b.HideoutStations}
	if hideout.HideoutStations == nil {
		hideout.HideoutStations = []model.HideoutStation{}
	}

	if tasksDoc, err = json.Marshal(tasks); err != nil {
		return nil, nil, err
	}
	if hideoutDoc, err = json.Marshal(hideout); err != nil {
		return nil, nil, err
	}
	return tasksDoc, hideoutDoc, nil
}
