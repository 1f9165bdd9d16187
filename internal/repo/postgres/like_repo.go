package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type LikeRepo struct {
	pool *pgxpool.Pool
}

func NewLikeRepo(pool *pgxpool.Pool) *LikeRepo {
	return &LikeRepo{pool: pool}
}

// Create stores the liker -> likee edge. It reports false when the edge
// already existed and ErrUserNotFound when the likee is unknown.
func (r *LikeRepo) Create(ctx context.Context, likerID, likeeID int64) (bool, error) {
	if likerID <= 0 || likeeID <= 0 {
		return false, fmt.Errorf("invalid like payload")
	}

	created := false
	err := WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		var one int
		if err := tx.QueryRow(ctx, `
SELECT 1
FROM users
WHERE id = $1
FOR SHARE
`, likeeID).Scan(&one); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrUserNotFound
			}
			return fmt.Errorf("lock likee: %w", err)
		}

		result, err := tx.Exec(ctx, `
INSERT INTO likes (liker_id, likee_id, created_at)
VALUES ($1, $2, NOW())
ON CONFLICT (liker_id, likee_id) DO NOTHING
`, likerID, likeeID)
		if err != nil {
			return fmt.Errorf("insert like: %w", err)
		}
		created = result.RowsAffected() > 0
		return nil
	})
	if err != nil {
		return false, err
	}

	return created, nil
}
