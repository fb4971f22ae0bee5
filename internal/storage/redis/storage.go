package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/teamprogress/internal/model"
	"github.com/mcoot/teamprogress/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface.
// Multi-key transactions use WATCH/MULTI/EXEC: every key read inside a
// transaction is watched first, and EXEC aborts if any of them changed.
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	timeout := cfg.PingTimeout
	if timeout <= 0 {
		timeout = DefaultConfig().PingTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// getJSON reads and decodes a key, mapping a missing key to notFound
func getJSON(ctx context.Context, c redis.Cmdable, key string, notFound error, v any) error {
	data, err := c.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return notFound
		}
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", model.ErrCorruptDocument, key, err)
	}
	return nil
}

// User operations

func (s *Storage) SaveUser(ctx context.Context, user *model.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}

	// Apply TTL only for guest users
	var ttl time.Duration
	if user.IsGuest {
		ttl = s.cfg.GuestUserTTL
	}
	return s.client.Set(ctx, userKey(user.ID), data, ttl).Err()
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	var user model.User
	if err := getJSON(ctx, s.client, userKey(id), model.ErrUserNotFound, &user); err != nil {
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

	claimed, err := s.client.SetNX(ctx, usernameIndexKey(ru.Username), string(ru.UserID), 0).Result()
	if err != nil {
		return err
	}
	if !claimed {
		owner, err := s.client.Get(ctx, usernameIndexKey(ru.Username)).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if owner != string(ru.UserID) {
			return model.ErrUsernameTaken
		}
	}
	return s.client.Set(ctx, registeredUserKey(ru.UserID), data, 0).Err()
}

func (s *Storage) GetRegisteredUser(ctx context.Context, id model.UserID) (*model.RegisteredUser, error) {
	var ru model.RegisteredUser
	if err := getJSON(ctx, s.client, registeredUserKey(id), model.ErrUserNotFound, &ru); err != nil {
		return nil, err
	}
	return &ru, nil
}

func (s *Storage) GetRegisteredUserByUsername(ctx context.Context, username string) (*model.RegisteredUser, error) {
	id, err := s.client.Get(ctx, usernameIndexKey(username)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}
	return s.GetRegisteredUser(ctx, model.UserID(id))
}

// Progress operations

func decodeProgress(ctx context.Context, c redis.Cmdable, id model.UserID) (*model.ProgressRecord, error) {
	var p model.ProgressRecord
	if err := getJSON(ctx, c, progressKey(id), model.ErrProgressNotFound, &p); err != nil {
		return nil, err
	}
	p.Normalize()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Storage) GetProgress(ctx context.Context, id model.UserID) (*model.ProgressRecord, error) {
	return decodeProgress(ctx, s.client, id)
}

func (s *Storage) CreateProgress(ctx context.Context, p *model.ProgressRecord) (bool, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return false, err
	}
	return s.client.SetNX(ctx, progressKey(p.UserID), data, 0).Result()
}

func (s *Storage) UpdateProgress(ctx context.Context, id model.UserID, fn func(p *model.ProgressRecord) error) (*model.ProgressRecord, error) {
	key := progressKey(id)
	var updated *model.ProgressRecord

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		p, err := decodeProgress(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := fn(p); err != nil {
			return err
		}
		data, err := json.Marshal(p)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		if err != nil {
			return err
		}
		updated = p
		return nil
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return nil, storage.ErrTxConflict
	}
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Team and system pointer snapshot reads

func decodeTeam(ctx context.Context, c redis.Cmdable, id model.TeamID) (*model.Team, error) {
	var team model.Team
	if err := getJSON(ctx, c, teamKey(id), model.ErrTeamNotFound, &team); err != nil {
		return nil, err
	}
	if err := team.Validate(); err != nil {
		return nil, err
	}
	return &team, nil
}

func decodeSystem(ctx context.Context, c redis.Cmdable, id model.UserID) (*model.SystemPointer, error) {
	var sys model.SystemPointer
	if err := getJSON(ctx, c, systemKey(id), model.ErrSystemNotFound, &sys); err != nil {
		return nil, err
	}
	if sys.UserID == "" {
		sys.UserID = id
	}
	return &sys, nil
}

func (s *Storage) GetTeam(ctx context.Context, id model.TeamID) (*model.Team, error) {
	return decodeTeam(ctx, s.client, id)
}

func (s *Storage) GetSystem(ctx context.Context, id model.UserID) (*model.SystemPointer, error) {
	return decodeSystem(ctx, s.client, id)
}

// Transactions

func (s *Storage) RunTx(ctx context.Context, fn storage.TxFunc) error {
	err := s.client.Watch(ctx, func(rtx *redis.Tx) error {
		tx := &redisTx{
			rtx:        rtx,
			teamWrites: make(map[model.TeamID]*model.Team),
			sysWrites:  make(map[model.UserID]*model.SystemPointer),
		}
		if err := fn(ctx, tx); err != nil {
			return err
		}
		if tx.err != nil {
			return tx.err
		}
		return tx.commit(ctx)
	})

	if errors.Is(err, redis.TxFailedErr) {
		return storage.ErrTxConflict
	}
	return err
}

// redisTx watches keys as they are read and buffers writes for EXEC
type redisTx struct {
	rtx *redis.Tx
	err error

	// a nil team marks a delete
	teamWrites map[model.TeamID]*model.Team
	sysWrites  map[model.UserID]*model.SystemPointer
}

func (tx *redisTx) GetTeam(ctx context.Context, id model.TeamID) (*model.Team, error) {
	if team, written := tx.teamWrites[id]; written {
		if team == nil {
			return nil, model.ErrTeamNotFound
		}
		return team.Clone(), nil
	}
	if err := tx.rtx.Watch(ctx, teamKey(id)).Err(); err != nil {
		return nil, err
	}
	return decodeTeam(ctx, tx.rtx, id)
}

func (tx *redisTx) GetSystem(ctx context.Context, id model.UserID) (*model.SystemPointer, error) {
	if sys, written := tx.sysWrites[id]; written {
		return sys.Clone(), nil
	}
	if err := tx.rtx.Watch(ctx, systemKey(id)).Err(); err != nil {
		return nil, err
	}
	return decodeSystem(ctx, tx.rtx, id)
}

func (tx *redisTx) PutTeam(team *model.Team) {
	tx.teamWrites[team.ID] = team.Clone()
}

func (tx *redisTx) DeleteTeam(id model.TeamID) {
	tx.teamWrites[id] = nil
}

func (tx *redisTx) PutSystem(sys *model.SystemPointer) {
	tx.sysWrites[sys.UserID] = sys.Clone()
}

func (tx *redisTx) commit(ctx context.Context) error {
	if len(tx.teamWrites) == 0 && len(tx.sysWrites) == 0 {
		return nil
	}

	// Marshal everything before MULTI so an encode failure writes nothing
	teamData := make(map[model.TeamID][]byte, len(tx.teamWrites))
	for id, team := range tx.teamWrites {
		if team == nil {
			continue
		}
		if err := team.Validate(); err != nil {
			return err
		}
		data, err := json.Marshal(team)
		if err != nil {
			return err
		}
		teamData[id] = data
	}
	sysData := make(map[model.UserID][]byte, len(tx.sysWrites))
	for id, sys := range tx.sysWrites {
		data, err := json.Marshal(sys)
		if err != nil {
			return err
		}
		sysData[id] = data
	}

	_, err := tx.rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for id, team := range tx.teamWrites {
			if team == nil {
				pipe.Del(ctx, teamKey(id))
				continue
			}
			pipe.Set(ctx, teamKey(id), teamData[id], 0)
		}
		for id := range tx.sysWrites {
			pipe.Set(ctx, systemKey(id), sysData[id], 0)
		}
		return nil
	})
	return err
}

// Document operations

func (s *Storage) GetDocument(ctx context.Context, name string) ([]byte, error) {
	data, err := s.client.Get(ctx, documentKey(name)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrDocumentNotFound
		}
		return nil, err
	}
	return data, nil
}

func (s *Storage) SaveDocuments(ctx context.Context, docs map[string][]byte) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for name, data := range docs {
			pipe.Set(ctx, documentKey(name), data, 0)
		}
		return nil
	})
	return err
}
