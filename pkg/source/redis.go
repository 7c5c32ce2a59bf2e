package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-redis/redis/v8"

	"github.com/newtron-network/addrbatch/pkg/util"
)

// Redis reads an address feed kept as a Redis list, head first.
type Redis struct {
	client *redis.Client
	key    string
}

// NewRedis connects lazily to addr and reads list key from database db.
func NewRedis(addr string, db int, key string) *Redis {
	return &Redis{
		client: redis.NewClient(&redis.Options{Addr: addr, DB: db}),
		key:    key,
	}
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(client *redis.Client, key string) *Redis {
	return &Redis{client: client, key: key}
}

func (r *Redis) Name() string {
	return fmt.Sprintf("redis://%s/%d/%s", r.client.Options().Addr, r.client.Options().DB, r.key)
}

// Load returns the list elements in order, trimmed, skipping blanks. A
// missing key is an empty list.
func (r *Redis) Load(ctx context.Context) ([]string, error) {
	if strings.TrimSpace(r.key) == "" {
		return nil, fmt.Errorf("%w: redis list key is required", util.ErrInvalidArgument)
	}
	vals, err := r.client.LRange(ctx, r.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("reading redis list %s: %w", r.key, err)
	}
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	util.WithField("source", r.Name()).Debugf("loaded %d address%s", len(out), esPlural(len(out)))
	return out, nil
}

// Close releases the client.
func (r *Redis) Close() error {
	return r.client.Close()
}

func esPlural(n int) string {
	if n == 1 {
		return ""
	}
	return "es"
}
