package storage

import (
	"context"
	"errors"

	"github.com/mcoot/teamprogress/internal/model"
)

// ErrTxConflict is returned when a transaction or optimistic update lost
// a race with a concurrent write. The whole unit may be retried.
var ErrTxConflict = errors.New("transaction conflict")

// Tx is a read-then-write unit over team and system pointer records.
// Reads observe the transaction's own buffered writes. Writes are only
// applied if every record read is unchanged at commit time.
type Tx interface {
	GetTeam(ctx context.Context, id model.TeamID) (*model.Team, error)
	GetSystem(ctx context.Context, id model.UserID) (*model.SystemPointer, error)

	PutTeam(team *model.Team)
	DeleteTeam(id model.TeamID)
	PutSystem(sys *model.SystemPointer)
}

// TxFunc is the body of a transaction. Returning an error aborts it
// without applying any buffered write.
type TxFunc func(ctx context.Context, tx Tx) error

// Storage defines the interface for data persistence
type Storage interface {
	// User operations
	SaveUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, id model.UserID) (*model.User, error)

	// Registered user operations
	// SaveRegisteredUser claims ru.Username atomically. Returns
	// model.ErrUsernameTaken if another user already holds it.
	SaveRegisteredUser(ctx context.Context, ru *model.RegisteredUser) error
	GetRegisteredUser(ctx context.Context, id model.UserID) (*model.RegisteredUser, error)
	GetRegisteredUserByUsername(ctx context.Context, username string) (*model.RegisteredUser, error)

	// Progress operations
	GetProgress(ctx context.Context, id model.UserID) (*model.ProgressRecord, error)
	// CreateProgress stores the record only if none exists yet
	CreateProgress(ctx context.Context, p *model.ProgressRecord) (bool, error)
	// UpdateProgress applies fn to the stored record atomically.
	// Returns ErrTxConflict if the record changed concurrently.
	UpdateProgress(ctx context.Context, id model.UserID, fn func(p *model.ProgressRecord) error) (*model.ProgressRecord, error)

	// Team and system pointer snapshot reads
	GetTeam(ctx context.Context, id model.TeamID) (*model.Team, error)
	GetSystem(ctx context.Context, id model.UserID) (*model.SystemPointer, error)

	// RunTx executes fn as one all-or-nothing transaction.
	// Returns ErrTxConflict if a record read by fn changed before commit.
	RunTx(ctx context.Context, fn TxFunc) error

	// Document operations for the game graph
	GetDocument(ctx context.Context, name string) ([]byte, error)
	// SaveDocuments overwrites all given documents in one write
	SaveDocuments(ctx context.Context, docs map[string][]byte) error
}
