package gamegraph

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/mcoot/teamprogress/internal/model"
)

// Graph is an immutable, indexed view of the tasks and hideout documents.
// It is shared between goroutines and must not be modified after Decode.
type Graph struct {
	version string

	tasks    []model.Task
	traders  []model.Trader
	stations []model.HideoutStation

	taskIndex    map[model.TaskID]int
	traderIndex  map[model.TraderID]int
	stationIndex map[model.StationID]int
	levelIndex   map[model.HideoutLevelID]levelRef
}

type levelRef struct {
	station int
	level   int
}

// Summary describes a loaded graph
type Summary struct {
	Version  string `json:"version"`
	Tasks    int    `json:"tasks"`
	Traders  int    `json:"traders"`
	Stations int    `json:"hideoutStations"`
}

// Decode validates and indexes stored documents. Malformed data is
// reported as model.ErrCorruptDocument.
func Decode(tasksDoc, hideoutDoc []byte) (*Graph, error) {
	return decode(tasksDoc, hideoutDoc, model.ErrCorruptDocument)
}

// Validate checks documents offered for publishing. Bad data is reported
// as model.ErrInvalidGraph.
func Validate(tasksDoc, hideoutDoc []byte) (*Graph, error) {
	return decode(tasksDoc, hideoutDoc, model.ErrInvalidGraph)
}

func decode(tasksDoc, hideoutDoc []byte, fault *model.Error) (*Graph, error) {
	if err := validateDocument(model.TasksDocumentName, tasksSchema, tasksDoc, fault); err != nil {
		return nil, err
	}
	if err := validateDocument(model.HideoutDocumentName, hideoutSchema, hideoutDoc, fault); err != nil {
		return nil, err
	}

	var tasks model.TasksDocument
	if err := json.Unmarshal(tasksDoc, &tasks); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", fault, model.TasksDocumentName, err)
	}
	var hideout model.HideoutDocument
	if err := json.Unmarshal(hideoutDoc, &hideout); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", fault, model.HideoutDocumentName, err)
	}

	g, err := build(tasks, hideout)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", fault, err)
	}
	g.version = versionOf(tasksDoc, hideoutDoc)
	return g, nil
}

// FromDocuments indexes documents that are already decoded
func FromDocuments(tasks model.TasksDocument, hideout model.HideoutDocument) (*Graph, error) {
	g, err := build(tasks, hideout)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidGraph, err)
	}
	tasksDoc, err := json.Marshal(tasks)
	if err != nil {
		return nil, err
	}
	hideoutDoc, err := json.Marshal(hideout)
	if err != nil {
		return nil, err
	}
	g.version = versionOf(tasksDoc, hideoutDoc)
	return g, nil
}

func build(tasks model.TasksDocument, hideout model.HideoutDocument) (*Graph, error) {
	g := &Graph{
		tasks:        slices.Clone(tasks.Tasks),
		traders:      slices.Clone(tasks.Traders),
		stations:     slices.Clone(hideout.HideoutStations),
		taskIndex:    make(map[model.TaskID]int, len(tasks.Tasks)),
		traderIndex:  make(map[model.TraderID]int, len(tasks.Traders)),
		stationIndex: make(map[model.StationID]int, len(hideout.HideoutStations)),
		levelIndex:   make(map[model.HideoutLevelID]levelRef),
	}

	for i := range g.tasks {
		t := &g.tasks[i]
		if _, dup := g.taskIndex[t.ID]; dup {
			return nil, fmt.Errorf("duplicate task %s", t.ID)
		}
		g.taskIndex[t.ID] = i
		t.TaskRequirements = slices.Clone(t.TaskRequirements)
		t.Objectives = slices.Clone(t.Objectives)
		for j := range t.TaskRequirements {
			if t.TaskRequirements[j].Status == "" {
				t.TaskRequirements[j].Status = model.RequireCompleted
			}
		}
		if t.Faction == "" {
			t.Faction = model.FactionAny
		}
		for j := range t.Objectives {
			if t.Objectives[j].TaskID == "" {
				t.Objectives[j].TaskID = t.ID
			}
		}
	}
	for i, tr := range g.traders {
		if _, dup := g.traderIndex[tr.ID]; dup {
			return nil, fmt.Errorf("duplicate trader %s", tr.ID)
		}
		g.traderIndex[tr.ID] = i
	}
	for i, st := range g.stations {
		if _, dup := g.stationIndex[st.ID]; dup {
			return nil, fmt.Errorf("duplicate hideout station %s", st.ID)
		}
		g.stationIndex[st.ID] = i
		for j, lvl := range st.Levels {
			if _, dup := g.levelIndex[lvl.ID]; dup {
				return nil, fmt.Errorf("duplicate hideout level %s", lvl.ID)
			}
			g.levelIndex[lvl.ID] = levelRef{station: i, level: j}
		}
	}
	return g, nil
}

// versionOf derives a stable version from document contents, so the same
// data yields the same version in every process
func versionOf(docs ...[]byte) string {
	h := sha256.New()
	for _, d := range docs {
		h.Write(d)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Version identifies the document contents the graph was built from
func (g *Graph) Version() string { return g.version }

// Tasks returns every task in document order
func (g *Graph) Tasks() []model.Task { return g.tasks }

// Traders returns every trader in document order
func (g *Graph) Traders() []model.Trader { return g.traders }

// Stations returns every hideout station in document order
func (g *Graph) Stations() []model.HideoutStation { return g.stations }

// Task looks up a task by id
func (g *Graph) Task(id model.TaskID) (*model.Task, bool) {
	i, ok := g.taskIndex[id]
	if !ok {
		return nil, false
	}
	return &g.tasks[i], true
}

// Trader looks up a trader by id
func (g *Graph) Trader(id model.TraderID) (*model.Trader, bool) {
	i, ok := g.traderIndex[id]
	if !ok {
		return nil, false
	}
	return &g.traders[i], true
}

// Station looks up a hideout station by id
func (g *Graph) Station(id model.StationID) (*model.HideoutStation, bool) {
	i, ok := g.stationIndex[id]
	if !ok {
		return nil, false
	}
	return &g.stations[i], true
}

// Level looks up a hideout level and its station by level id
func (g *Graph) Level(id model.HideoutLevelID) (*model.HideoutStation, *model.HideoutLevel, bool) {
	ref, ok := g.levelIndex[id]
	if !ok {
		return nil, nil, false
	}
	st := &g.stations[ref.station]
	return st, &st.Levels[ref.level], true
}

// Summary returns counts for display
func (g *Graph) Summary() Summary {
	return Summary{
		Version:  g.version,
		Tasks:    len(g.tasks),
		Traders:  len(g.traders),
		Stations: len(g.stations),
	}
}
