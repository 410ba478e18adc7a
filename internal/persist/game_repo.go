package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/deepfall/server/internal/game"
	"github.com/jackc/pgx/v5"
	"github.com/sethvargo/go-retry"
)

// GameRepo persists GameState checkpoints as one JSONB document per game.
type GameRepo struct {
	db *DB
}

func NewGameRepo(db *DB) *GameRepo {
	return &GameRepo{db: db}
}

// SaveGame upserts the checkpoint document. Writes are retried with a short
// backoff; a checkpoint that still fails is the caller's problem to log —
// the session stays cached either way.
func (r *GameRepo) SaveGame(ctx context.Context, gs *game.GameState) error {
	doc, err := json.Marshal(gs)
	if err != nil {
		return fmt.Errorf("marshal game %s: %w", gs.ID, err)
	}

	backoff := retry.WithMaxRetries(3, retry.NewExponential(100*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		qctx, cancel := context.WithTimeout(ctx, queryTimeout)
		defer cancel()
		_, err := r.db.Pool.Exec(qctx,
			`INSERT INTO games (id, player_name, state, updated_at)
			 VALUES ($1, $2, $3, now())
			 ON CONFLICT (id) DO UPDATE
			 SET player_name = EXCLUDED.player_name,
			     state       = EXCLUDED.state,
			     updated_at  = now()`,
			gs.ID, gs.PlayerName, doc,
		)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("save game %s: %w", gs.ID, err))
		}
		return nil
	})
}

// LoadGame restores a checkpointed game. Returns (nil, nil) when no
// checkpoint exists for the id.
func (r *GameRepo) LoadGame(ctx context.Context, id string) (*game.GameState, error) {
	qctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var doc []byte
	err := r.db.Pool.QueryRow(qctx,
		`SELECT state FROM games WHERE id = $1`, id,
	).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load game %s: %w", id, err)
	}

	var gs game.GameState
	if err := json.Unmarshal(doc, &gs); err != nil {
		return nil, fmt.Errorf("unmarshal game %s: %w", id, err)
	}
	return &gs, nil
}

// DeleteGame drops the checkpoint for a finished game.
func (r *GameRepo) DeleteGame(ctx context.Context, id string) error {
	qctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	_, err := r.db.Pool.Exec(qctx, `DELETE FROM games WHERE id = $1`, id)
	return err
}

// DeleteStale removes checkpoints untouched for longer than maxAge.
// Postgres stand-in for a document-store TTL index.
func (r *GameRepo) DeleteStale(ctx context.Context, maxAge time.Duration) (int64, error) {
	qctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	tag, err := r.db.Pool.Exec(qctx,
		`DELETE FROM games WHERE updated_at < now() - $1::interval`,
		fmt.Sprintf("%d seconds", int(maxAge.Seconds())),
	)
	if err != nil {
		return 0, fmt.Errorf("delete stale games: %w", err)
	}
	return tag.RowsAffected(), nil
}
