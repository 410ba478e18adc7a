package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
)

// LeaderboardRow is one terminal game record, sortable by score.
type LeaderboardRow struct {
	ID              int64
	PlayerName      string
	Score           int
	Floor           int
	KilledBy        *string
	KilledByType    *string
	KilledByVariant *string
	CreatedAt       time.Time
}

type LeaderboardRepo struct {
	db *DB
}

func NewLeaderboardRepo(db *DB) *LeaderboardRepo {
	return &LeaderboardRepo{db: db}
}

// Insert records a finished game. Inserts are independent across sessions
// and may race freely.
func (r *LeaderboardRepo) Insert(ctx context.Context, row LeaderboardRow) error {
	backoff := retry.WithMaxRetries(3, retry.NewExponential(100*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		qctx, cancel := context.WithTimeout(ctx, queryTimeout)
		defer cancel()
		_, err := r.db.Pool.Exec(qctx,
			`INSERT INTO leaderboard
			     (player_name, score, floor, killed_by, killed_by_type, killed_by_variant)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			row.PlayerName, row.Score, row.Floor,
			row.KilledBy, row.KilledByType, row.KilledByVariant,
		)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("insert leaderboard row: %w", err))
		}
		return nil
	})
}

// Top returns the best n rows by score descending.
func (r *LeaderboardRepo) Top(ctx context.Context, n int) ([]LeaderboardRow, error) {
	qctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := r.db.Pool.Query(qctx,
		`SELECT id, player_name, score, floor,
		        killed_by, killed_by_type, killed_by_variant, created_at
		 FROM leaderboard
		 ORDER BY score DESC, created_at ASC
		 LIMIT $1`, n,
	)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	var result []LeaderboardRow
	for rows.Next() {
		var lr LeaderboardRow
		if err := rows.Scan(
			&lr.ID, &lr.PlayerName, &lr.Score, &lr.Floor,
			&lr.KilledBy, &lr.KilledByType, &lr.KilledByVariant, &lr.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, lr)
	}
	return result, rows.Err()
}
