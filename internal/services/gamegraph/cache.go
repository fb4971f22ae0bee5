package gamegraph

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/mcoot/teamprogress/internal/model"
	"github.com/mcoot/teamprogress/internal/storage"
)

const loadKey = "graph"

// Cache is the process-wide game graph. It loads lazily on first use,
// shares one fetch between concurrent callers, and only forgets the graph
// when Invalidate is called. An absent document is never cached.
type Cache struct {
	storage storage.Storage
	logger  *slog.Logger

	group singleflight.Group

	mu         sync.RWMutex
	graph      *Graph
	generation uint64
}

// NewCache creates an empty cache over the document store
func NewCache(storage storage.Storage, logger *slog.Logger) *Cache {
	return &Cache{
		storage: storage,
		logger:  logger,
	}
}

// Get returns the loaded graph, fetching it if needed.
// Returns model.ErrGraphNotLoaded while either document is missing.
func (c *Cache) Get(ctx context.Context) (*Graph, error) {
	c.mu.RLock()
	g := c.graph
	c.mu.RUnlock()
	if g != nil {
		return g, nil
	}

	// Detach so one caller giving up does not fail everyone sharing the load
	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(loadKey, func() (any, error) {
		return c.load(loadCtx)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Graph), nil
	}
}

// Loaded reports whether a graph is cached, without fetching
func (c *Cache) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.graph != nil
}

// Invalidate drops the cached graph. A load already in flight finishes for
// its waiters but does not repopulate the cache.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.graph = nil
	c.generation++
	c.mu.Unlock()
	c.group.Forget(loadKey)
}

// Publish validates and stores new documents, then invalidates the cache
func (c *Cache) Publish(ctx context.Context, tasksDoc, hideoutDoc []byte) (*Graph, error) {
	g, err := Validate(tasksDoc, hideoutDoc)
	if err != nil {
		return nil, err
	}

	err = c.storage.SaveDocuments(ctx, map[string][]byte{
		model.TasksDocumentName:   tasksDoc,
		model.HideoutDocumentName: hideoutDoc,
	})
	if err != nil {
		c.logger.Error("failed to store game graph", "error", err)
		return nil, model.Public(err)
	}

	c.Invalidate()
	c.logger.Info("game graph published", "version", g.Version(), "tasks", len(g.Tasks()), "stations", len(g.Stations()))
	return g, nil
}

func (c *Cache) load(ctx context.Context) (*Graph, error) {
	c.mu.RLock()
	gen, cached := c.generation, c.graph
	c.mu.RUnlock()
	// a caller that missed the cache just before the previous load
	// finished lands here after it
	if cached != nil {
		return cached, nil
	}

	tasksDoc, err := c.storage.GetDocument(ctx, model.TasksDocumentName)
	if err != nil {
		return nil, c.missing(model.TasksDocumentName, err)
	}
	hideoutDoc, err := c.storage.GetDocument(ctx, model.HideoutDocumentName)
	if err != nil {
		return nil, c.missing(model.HideoutDocumentName, err)
	}

	g, err := Decode(tasksDoc, hideoutDoc)
	if err != nil {
		c.logger.Error("stored game graph is malformed", "error", err)
		return nil, err
	}

	c.mu.Lock()
	if c.generation == gen {
		c.graph = g
	}
	c.mu.Unlock()

	c.logger.Info("game graph loaded", "version", g.Version())
	return g, nil
}

func (c *Cache) missing(name string, err error) error {
	if errors.Is(err, model.ErrDocumentNotFound) {
		c.logger.Debug("game graph document absent", "document", name)
		return model.ErrGraphNotLoaded
	}
	c.logger.Error("failed to read game graph document", "document", name, "error", err)
	return model.Public(err)
}
