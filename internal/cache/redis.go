package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is the deployment Store, holding availability views as JSON under
// availability:<eventID>.
type Redis struct {
	rdb *redis.Client
}

func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb}
}

func availabilityKey(eventID string) string {
	return fmt.Sprintf("availability:%s", eventID)
}

func (r *Redis) Get(ctx context.Context, eventID string) (Availability, error) {
	raw, err := r.rdb.Get(ctx, availabilityKey(eventID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Availability{}, ErrMiss
		}
		return Availability{}, fmt.Errorf("cache get %s: %w", eventID, err)
	}

	var view Availability
	if err := json.Unmarshal(raw, &view); err != nil {
		// A corrupt entry behaves like a miss; the next Set overwrites it.
		return Availability{}, ErrMiss
	}
	return view, nil
}

func (r *Redis) Set(ctx context.Context, view Availability, ttl time.Duration) error {
	raw, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("cache marshal %s: %w", view.EventID, err)
	}
	if err := r.rdb.Set(ctx, availabilityKey(view.EventID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", view.EventID, err)
	}
	return nil
}

func (r *Redis) Invalidate(ctx context.Context, eventID string) error {
	if err := r.rdb.Del(ctx, availabilityKey(eventID)).Err(); err != nil {
		return fmt.Errorf("cache invalidate %s: %w", eventID, err)
	}
	return nil
}
