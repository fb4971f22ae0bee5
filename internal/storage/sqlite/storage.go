package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mcoot/teamprogress/internal/model"
	"github.com/mcoot/teamprogress/internal/storage"
)

//go:embed schema.sql
var schema string

// Record kinds, matching the logical layout progress/{id}, team/{id}, system/{id}
const (
	kindUser       = "user"
	kindRegistered = "registered_user"
	kindUsername   = "username"
	kindProgress   = "progress"
	kindTeam       = "team"
	kindSystem     = "system"
	kindDocument   = "doc"
)

// Storage is a single-file SQLite implementation of the storage interface.
// Transactions read outside any SQL transaction, remembering the revision
// of every record they read, and commit inside one that first checks
// those revisions are unchanged.
type Storage struct {
	db  *sql.DB
	cfg Config
	now func() time.Time
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Open opens (creating if needed) the database at cfg.Path and applies the schema
func Open(cfg Config) (*Storage, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = DefaultConfig().BusyTimeout
	}

	path := filepath.Clean(cfg.Path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// one writer at a time; SQLite serialises them anyway
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", cfg.BusyTimeout.Milliseconds()),
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Storage{db: db, cfg: cfg, now: time.Now}, nil
}

// Close releases the database handle
func (s *Storage) Close() error {
	return s.db.Close()
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// read returns the body and revision of a live record. A missing or
// expired record reports rev 0 and notFound.
func (s *Storage) read(ctx context.Context, q queryer, kind, id string, notFound error) ([]byte, int64, error) {
	var (
		body      []byte
		rev       int64
		expiresAt sql.NullInt64
	)
	err := q.QueryRowContext(ctx,
		`SELECT body, rev, expires_at FROM records WHERE kind = ? AND id = ?`, kind, id,
	).Scan(&body, &rev, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, notFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("read %s/%s: %w", kind, id, err)
	}
	if expiresAt.Valid && s.now().UnixMilli() >= expiresAt.Int64 {
		return nil, 0, notFound
	}
	return body, rev, nil
}

func decode(kind, id string, body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %s/%s: %v", model.ErrCorruptDocument, kind, id, err)
	}
	return nil
}

func nextRev(ctx context.Context, q queryer) (int64, error) {
	var rev int64
	err := q.QueryRowContext(ctx, `UPDATE revisions SET seq = seq + 1 WHERE singleton = 1 RETURNING seq`).Scan(&rev)
	if err != nil {
		return 0, fmt.Errorf("next revision: %w", err)
	}
	return rev, nil
}

// upsert writes body under a fresh revision. A zero ttl never expires.
func (s *Storage) upsert(ctx context.Context, q queryer, kind, id string, body []byte, ttl time.Duration) error {
	rev, err := nextRev(ctx, q)
	if err != nil {
		return err
	}
	var expiresAt sql.NullInt64
	if ttl > 0 {
		expiresAt = sql.NullInt64{Int64: s.now().Add(ttl).UnixMilli(), Valid: true}
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO records (kind, id, body, rev, expires_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (kind, id) DO UPDATE SET body = excluded.body, rev = excluded.rev, expires_at = excluded.expires_at`,
		kind, id, body, rev, expiresAt)
	if err != nil {
		return fmt.Errorf("write %s/%s: %w", kind, id, err)
	}
	return nil
}

// inTx runs fn inside a SQL transaction, committing only if fn succeeds
func (s *Storage) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// User operations

func (s *Storage) SaveUser(ctx context.Context, user *model.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	var ttl time.Duration
	if user.IsGuest {
		ttl = s.cfg.GuestUserTTL
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return s.upsert(ctx, tx, kindUser, string(user.ID), data, ttl)
	})
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	body, _, err := s.read(ctx, s.db, kindUser, string(id), model.ErrUserNotFound)
	if err != nil {
		return nil, err
	}
	var user model.User
	if err := decode(kindUser, string(id), body, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Registered user operations

func (s *Storage) SaveRegisteredUser(ctx context.Context, ru *model.RegisteredUser) error {
	data, err := json.Marshal(ru)
	if err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		owner, _, err := s.read(ctx, tx, kindUsername, ru.Username, model.ErrUserNotFound)
		switch {
		case err == nil && string(owner) != string(ru.UserID):
			return model.ErrUsernameTaken
		case err != nil && !errors.Is(err, model.ErrUserNotFound):
			return err
		}
		if err := s.upsert(ctx, tx, kindRegistered, string(ru.UserID), data, 0); err != nil {
			return err
		}
		return s.upsert(ctx, tx, kindUsername, ru.Username, []byte(ru.UserID), 0)
	})
}

func (s *Storage) GetRegisteredUser(ctx context.Context, id model.UserID) (*model.RegisteredUser, error) {
	body, _, err := s.read(ctx, s.db, kindRegistered, string(id), model.ErrUserNotFound)
	if err != nil {
		return nil, err
	}
	var ru model.RegisteredUser
	if err := decode(kindRegistered, string(id), body, &ru); err != nil {
		return nil, err
	}
	return &ru, nil
}

func (s *Storage) GetRegisteredUserByUsername(ctx context.Context, username string) (*model.RegisteredUser, error) {
	body, _, err := s.read(ctx, s.db, kindUsername, username, model.ErrUserNotFound)
	if err != nil {
		return nil, err
	}
	return s.GetRegisteredUser(ctx, model.UserID(body))
}

// Progress operations

func decodeProgress(id model.UserID, body []byte) (*model.ProgressRecord, error) {
	var p model.ProgressRecord
	if err := decode(kindProgress, string(id), body, &p); err != nil {
		return nil, err
	}
	p.Normalize()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Storage) GetProgress(ctx context.Context, id model.UserID) (*model.ProgressRecord, error) {
	body, _, err := s.read(ctx, s.db, kindProgress, string(id), model.ErrProgressNotFound)
	if err != nil {
		return nil, err
	}
	return decodeProgress(id, body)
}

func (s *Storage) CreateProgress(ctx context.Context, p *model.ProgressRecord) (bool, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return false, err
	}
	created := false
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		_, _, err := s.read(ctx, tx, kindProgress, string(p.UserID), model.ErrProgressNotFound)
		if err == nil {
			return nil
		}
		if !errors.Is(err, model.ErrProgressNotFound) {
			return err
		}
		created = true
		return s.upsert(ctx, tx, kindProgress, string(p.UserID), data, 0)
	})
	return created, err
}

func (s *Storage) UpdateProgress(ctx context.Context, id model.UserID, fn func(p *model.ProgressRecord) error) (*model.ProgressRecord, error) {
	body, rev, err := s.read(ctx, s.db, kindProgress, string(id), model.ErrProgressNotFound)
	if err != nil {
		return nil, err
	}
	p, err := decodeProgress(id, body)
	if err != nil {
		return nil, err
	}
	if err := fn(p); err != nil {
		return nil, err
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}

	err = s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.checkRev(ctx, tx, kindProgress, string(id), rev); err != nil {
			return err
		}
		return s.upsert(ctx, tx, kindProgress, string(id), data, 0)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// checkRev fails with ErrTxConflict unless the record is still at want.
// want 0 means the record must still be absent or expired, as read sees it.
func (s *Storage) checkRev(ctx context.Context, q queryer, kind, id string, want int64) error {
	var (
		got       int64
		expiresAt sql.NullInt64
	)
	err := q.QueryRowContext(ctx,
		`SELECT rev, expires_at FROM records WHERE kind = ? AND id = ?`, kind, id,
	).Scan(&got, &expiresAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		got = 0
	case err != nil:
		return fmt.Errorf("check %s/%s: %w", kind, id, err)
	case expiresAt.Valid && s.now().UnixMilli() >= expiresAt.Int64:
		got = 0
	}
	if got != want {
		return storage.ErrTxConflict
	}
	return nil
}

// Team and system pointer snapshot reads

func decodeTeam(id model.TeamID, body []byte) (*model.Team, error) {
	var team model.Team
	if err := decode(kindTeam, string(id), body, &team); err != nil {
		return nil, err
	}
	if err := team.Validate(); err != nil {
		return nil, err
	}
	return &team, nil
}

func decodeSystem(id model.UserID, body []byte) (*model.SystemPointer, error) {
	var sys model.SystemPointer
	if err := decode(kindSystem, string(id), body, &sys); err != nil {
		return nil, err
	}
	if sys.UserID == "" {
		sys.UserID = id
	}
	return &sys, nil
}

func (s *Storage) GetTeam(ctx context.Context, id model.TeamID) (*model.Team, error) {
	body, _, err := s.read(ctx, s.db, kindTeam, string(id), model.ErrTeamNotFound)
	if err != nil {
		return nil, err
	}
	return decodeTeam(id, body)
}

func (s *Storage) GetSystem(ctx context.Context, id model.UserID) (*model.SystemPointer, error) {
	body, _, err := s.read(ctx, s.db, kindSystem, string(id), model.ErrSystemNotFound)
	if err != nil {
		return nil, err
	}
	return decodeSystem(id, body)
}

// Document operations

func (s *Storage) GetDocument(ctx context.Context, name string) ([]byte, error) {
	body, _, err := s.read(ctx, s.db, kindDocument, name, model.ErrDocumentNotFound)
	return body, err
}

func (s *Storage) SaveDocuments(ctx context.Context, docs map[string][]byte) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for name, data := range docs {
			if err := s.upsert(ctx, tx, kindDocument, name, data, 0); err != nil {
				return err
			}
		}
		return nil
	})
}
