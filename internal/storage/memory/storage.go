package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/mcoot/teamprogress/internal/model"
	"github.com/mcoot/teamprogress/internal/storage"
)

// Storage is an in-memory implementation of the storage interface.
// Team and system records carry a version stamp so transactions can
// commit optimistically, the same way the Redis backend uses WATCH.
type Storage struct {
	mu sync.RWMutex

	users           map[model.UserID]*model.User
	registeredUsers map[model.UserID]*model.RegisteredUser
	usernameIndex   map[string]model.UserID
	progress        map[model.UserID]*model.ProgressRecord
	teams           map[model.TeamID]*model.Team
	systems         map[model.UserID]*model.SystemPointer
	documents       map[string][]byte

	// version stamps survive deletion so a delete is seen as a change
	teamVersions   map[model.TeamID]uint64
	systemVersions map[model.UserID]uint64
	seq            uint64
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		users:           make(map[model.UserID]*model.User),
		registeredUsers: make(map[model.UserID]*model.RegisteredUser),
		usernameIndex:   make(map[string]model.UserID),
		progress:        make(map[model.UserID]*model.ProgressRecord),
		teams:           make(map[model.TeamID]*model.Team),
		systems:         make(map[model.UserID]*model.SystemPointer),
		documents:       make(map[string][]byte),
		teamVersions:    make(map[model.TeamID]uint64),
		systemVersions:  make(map[model.UserID]uint64),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// User operations

func (s *Storage) SaveUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := *user
	s.users[user.ID] = &u
	return nil
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	u := *user
	return &u, nil
}

// Registered user operations

func (s *Storage) SaveRegisteredUser(ctx context.Context, ru *model.RegisteredUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if owner, ok := s.usernameIndex[ru.Username]; ok && owner != ru.UserID {
		return model.ErrUsernameTaken
	}
	r := *ru
	s.registeredUsers[ru.UserID] = &r
	s.usernameIndex[ru.Username] = ru.UserID
	return nil
}

func (s *Storage) GetRegisteredUser(ctx context.Context, id model.UserID) (*model.RegisteredUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ru, ok := s.registeredUsers[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	r := *ru
	return &r, nil
}

func (s *Storage) GetRegisteredUserByUsername(ctx context.Context, username string) (*model.RegisteredUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.usernameIndex[username]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	ru, ok := s.registeredUsers[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	r := *ru
	return &r, nil
}

// Progress operations

func (s *Storage) GetProgress(ctx context.Context, id model.UserID) (*model.ProgressRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.progress[id]
	if !ok {
		return nil, model.ErrProgressNotFound
	}
	return p.Clone(), nil
}

func (s *Storage) CreateProgress(ctx context.Context, p *model.ProgressRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.progress[p.UserID]; exists {
		return false, nil
	}
	s.progress[p.UserID] = p.Clone()
	return true, nil
}

func (s *Storage) UpdateProgress(ctx context.Context, id model.UserID, fn func(p *model.ProgressRecord) error) (*model.ProgressRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.progress[id]
	if !ok {
		return nil, model.ErrProgressNotFound
	}
	updated := current.Clone()
	if err := fn(updated); err != nil {
		return nil, err
	}
	s.progress[id] = updated.Clone()
	return updated, nil
}

// Team and system pointer snapshot reads

func (s *Storage) GetTeam(ctx context.Context, id model.TeamID) (*model.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	team, ok := s.teams[id]
	if !ok {
		return nil, model.ErrTeamNotFound
	}
	return team.Clone(), nil
}

func (s *Storage) GetSystem(ctx context.Context, id model.UserID) (*model.SystemPointer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sys, ok := s.systems[id]
	if !ok {
		return nil, model.ErrSystemNotFound
	}
	return sys.Clone(), nil
}

// Transactions

func (s *Storage) RunTx(ctx context.Context, fn storage.TxFunc) error {
	tx := &memTx{
		s:           s,
		teamReads:   make(map[model.TeamID]uint64),
		systemReads: make(map[model.UserID]uint64),
		teamWrites:  make(map[model.TeamID]*model.Team),
		sysWrites:   make(map[model.UserID]*model.SystemPointer),
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.commit(tx)
}

func (s *Storage) commit(tx *memTx) error {
	for _, team := range tx.teamWrites {
		if team == nil {
			continue
		}
		if err := team.Validate(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, seen := range tx.teamReads {
		if s.teamVersions[id] != seen {
			return storage.ErrTxConflict
		}
	}
	for id, seen := range tx.systemReads {
		if s.systemVersions[id] != seen {
			return storage.ErrTxConflict
		}
	}

	for id, team := range tx.teamWrites {
		s.seq++
		s.teamVersions[id] = s.seq
		if team == nil {
			delete(s.teams, id)
			continue
		}
		s.teams[id] = team.Clone()
	}
	for id, sys := range tx.sysWrites {
		s.seq++
		s.systemVersions[id] = s.seq
		s.systems[id] = sys.Clone()
	}
	return nil
}

// memTx buffers writes and remembers the version of every record read
type memTx struct {
	s *Storage

	teamReads   map[model.TeamID]uint64
	systemReads map[model.UserID]uint64

	// a nil team marks a delete
	teamWrites map[model.TeamID]*model.Team
	sysWrites  map[model.UserID]*model.SystemPointer
}

func (tx *memTx) GetTeam(ctx context.Context, id model.TeamID) (*model.Team, error) {
	if team, written := tx.teamWrites[id]; written {
		if team == nil {
			return nil, model.ErrTeamNotFound
		}
		return team.Clone(), nil
	}

	tx.s.mu.RLock()
	defer tx.s.mu.RUnlock()
	if _, seen := tx.teamReads[id]; !seen {
		tx.teamReads[id] = tx.s.teamVersions[id]
	}
	team, ok := tx.s.teams[id]
	if !ok {
		return nil, model.ErrTeamNotFound
	}
	return team.Clone(), nil
}

func (tx *memTx) GetSystem(ctx context.Context, id model.UserID) (*model.SystemPointer, error) {
	if sys, written := tx.sysWrites[id]; written {
		return sys.Clone(), nil
	}

	tx.s.mu.RLock()
	defer tx.s.mu.RUnlock()
	if _, seen := tx.systemReads[id]; !seen {
		tx.systemReads[id] = tx.s.systemVersions[id]
	}
	sys, ok := tx.s.systems[id]
	if !ok {
		return nil, model.ErrSystemNotFound
	}
	return sys.Clone(), nil
}

func (tx *memTx) PutTeam(team *model.Team) {
	tx.teamWrites[team.ID] = team.Clone()
}

func (tx *memTx) DeleteTeam(id model.TeamID) {
	tx.teamWrites[id] = nil
}

func (tx *memTx) PutSystem(sys *model.SystemPointer) {
	tx.sysWrites[sys.UserID] = sys.Clone()
}

// Document operations

func (s *Storage) GetDocument(ctx context.Context, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.documents[name]
	if !ok {
		return nil, model.ErrDocumentNotFound
	}
	return slices.Clone(data), nil
}

func (s *Storage) SaveDocuments(ctx context.Context, docs map[string][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, data := range docs {
		s.documents[name] = slices.Clone(data)
	}
	return nil
}
