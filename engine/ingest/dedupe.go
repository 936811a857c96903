package ingest

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Marker remembers which URLs were fully ingested.
type Marker interface {
	Seen(ctx context.Context, url string) (bool, error)
	Mark(ctx context.Context, url string) error
}

// RedisMarker keeps ingested URLs as expiring redis keys.
type RedisMarker struct {
	Client redis.Cmdable
	TTL    time.Duration // zero keeps keys forever
}

func (m RedisMarker) key(url string) string { return "rizz:ingested:" + url }

func (m RedisMarker) Seen(ctx context.Context, url string) (bool, error) {
	n, err := m.Client.Exists(ctx, m.key(url)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (m RedisMarker) Mark(ctx context.Context, url string) error {
	return m.Client.Set(ctx, m.key(url), time.Now().UTC().Format(time.RFC3339), m.TTL).Err()
}
