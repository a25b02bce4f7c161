package redisstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Webhook deliveries can be repeated by the provider; processed event ids are
// remembered long enough to drop duplicates.
const eventTTL = 24 * time.Hour

type Store struct {
	rdb *redis.Client
}

func New(addr, password string, db int) *Store {
	return &Store{
		rdb: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

// MarkEventProcessed records the event id and reports whether this delivery
// is the first one seen.
func (s *Store) MarkEventProcessed(ctx context.Context, eventID string) (bool, error) {
	return s.rdb.SetNX(ctx, "webhook:event:"+eventID, 1, eventTTL).Result()
}

func (s *Store) Close() error {
	return s.rdb.Close()
}
