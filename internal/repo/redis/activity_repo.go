package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const activityPrefix = "activity:last_seen:"

// ActivityRepo throttles last-active writes: one claim per user per window.
type ActivityRepo struct {
	client *goredis.Client
}

func NewActivityRepo(client *goredis.Client) *ActivityRepo {
	return &ActivityRepo{client: client}
}

// ClaimTouch reports true for the first call per user inside window.
func (r *ActivityRepo) ClaimTouch(ctx context.Context, userID int64, window time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	if userID <= 0 || window <= 0 {
		return false, fmt.Errorf("invalid activity claim payload")
	}

	ok, err := r.client.SetNX(ctx, activityKey(userID), time.Now().UTC().Unix(), window).Result()
	if err != nil {
		return false, fmt.Errorf("claim activity touch: %w", err)
	}

	return ok, nil
}

func activityKey(userID int64) string {
	return activityPrefix + strconv.FormatInt(userID, 10)
}
