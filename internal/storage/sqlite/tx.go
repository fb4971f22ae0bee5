package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/mcoot/teamprogress/internal/model"
	"github.com/mcoot/teamprogress/internal/storage"
)

type recordKey struct {
	kind string
	id   string
}

// sqliteTx records the revision of every record it reads and buffers
// writes until commit
type sqliteTx struct {
	s     *Storage
	reads map[recordKey]int64

	// a nil team marks a delete
	teamWrites map[model.TeamID]*model.Team
	sysWrites  map[model.UserID]*model.SystemPointer
}

func (s *Storage) RunTx(ctx context.Context, fn storage.TxFunc) error {
	tx := &sqliteTx{
		s:          s,
		reads:      make(map[recordKey]int64),
		teamWrites: make(map[model.TeamID]*model.Team),
		sysWrites:  make(map[model.UserID]*model.SystemPointer),
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	return tx.commit(ctx)
}

// observe reads a record, remembering the first revision seen for it
func (tx *sqliteTx) observe(ctx context.Context, kind, id string, notFound error) ([]byte, error) {
	body, rev, err := tx.s.read(ctx, tx.s.db, kind, id, notFound)
	if err != nil && !errors.Is(err, notFound) {
		return nil, err
	}
	key := recordKey{kind, id}
	if _, seen := tx.reads[key]; !seen {
		tx.reads[key] = rev
	}
	return body, err
}

func (tx *sqliteTx) GetTeam(ctx context.Context, id model.TeamID) (*model.Team, error) {
	if team, written := tx.teamWrites[id]; written {
		if team == nil {
			return nil, model.ErrTeamNotFound
		}
		return team.Clone(), nil
	}
	body, err := tx.observe(ctx, kindTeam, string(id), model.ErrTeamNotFound)
	if err != nil {
		return nil, err
	}
	return decodeTeam(id, body)
}

func (tx *sqliteTx) GetSystem(ctx context.Context, id model.UserID) (*model.SystemPointer, error) {
	if sys, written := tx.sysWrites[id]; written {
		return sys.Clone(), nil
	}
	body, err := tx.observe(ctx, kindSystem, string(id), model.ErrSystemNotFound)
	if err != nil {
		return nil, err
	}
	return decodeSystem(id, body)
}

func (tx *sqliteTx) PutTeam(team *model.Team) {
	tx.teamWrites[team.ID] = team.Clone()
}

func (tx *sqliteTx) DeleteTeam(id model.TeamID) {
	tx.teamWrites[id] = nil
}

func (tx *sqliteTx) PutSystem(sys *model.SystemPointer) {
	tx.sysWrites[sys.UserID] = sys.Clone()
}

func (tx *sqliteTx) commit(ctx context.Context) error {
	if len(tx.teamWrites) == 0 && len(tx.sysWrites) == 0 {
		return nil
	}

	// encode before touching the database so a failure writes nothing
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

	return tx.s.inTx(ctx, func(stx *sql.Tx) error {
		for key, rev := range tx.reads {
			if err := tx.s.checkRev(ctx, stx, key.kind, key.id, rev); err != nil {
				return err
			}
		}
		for id, team := range tx.teamWrites {
			if team == nil {
				if _, err := stx.ExecContext(ctx, `DELETE FROM records WHERE kind = ? AND id = ?`, kindTeam, string(id)); err != nil {
					return err
				}
				continue
			}
			if err := tx.s.upsert(ctx, stx, kindTeam, string(id), teamData[id], 0); err != nil {
				return err
			}
		}
		for id := range tx.sysWrites {
			if err := tx.s.upsert(ctx, stx, kindSystem, string(id), sysData[id], 0); err != nil {
				return err
			}
		}
		return nil
	})
}
