package progression

import (
	lru "github.com/hashicorp/golang-lru"

	"github.com/mcoot/teamprogress/internal/model"
	"github.com/mcoot/teamprogress/internal/services/gamegraph"
)

// View is everything derived for one member from one graph version
type View struct {
	TraderReputation map[model.TraderID]float64 `json:"traderReputation"`
	TraderLevels     map[model.TraderID]int     `json:"traderLevels"`
	HideoutLevels    map[model.StationID]int    `json:"hideoutLevels"`
	Tasks            map[model.TaskID]bool      `json:"tasks"`
}

// Derive computes a member's view from scratch
func Derive(g *gamegraph.Graph, p *model.ProgressRecord) *View {
	levels := TraderLevels(g, p)
	return &View{
		TraderReputation: TraderReputations(g, p),
		TraderLevels:     levels,
		HideoutLevels:    HideoutLevels(g, p),
		Tasks:            availabilityWith(g, p, levels),
	}
}

type memoKey struct {
	graph    string
	user     model.UserID
	progress int64
}

// Memo caches derived views. An entry is keyed by graph version, member
// and progress version, so any change to either input misses the cache
// and old entries age out of the LRU.
type Memo struct {
	cache *lru.Cache
}

// DefaultMemoSize is the number of member views kept
const DefaultMemoSize = 4096

// NewMemo creates a memo holding up to size views
func NewMemo(size int) (*Memo, error) {
	if size <= 0 {
		size = DefaultMemoSize
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &Memo{cache: cache}, nil
}

// View returns the member's derived view, computing it on a miss.
// The returned view is shared and must not be modified.
func (m *Memo) View(g *gamegraph.Graph, p *model.ProgressRecord) *View {
	key := memoKey{graph: g.Version(), user: p.UserID, progress: p.Version}
	if v, ok := m.cache.Get(key); ok {
		return v.(*View)
	}
	view := Derive(g, p)
	m.cache.Add(key, view)
	return view
}

// Len returns the number of cached views
func (m *Memo) Len() int {
	return m.cache.Len()
}
