package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrTokenNotFound = errors.New("one-time token not found")

// OneTimeTokens stores short-lived single-use tokens (email
// verification, password reset) in redis. Taking a token consumes it.
type OneTimeTokens struct {
	client *redis.Client
}

func NewOneTimeTokens(client *redis.Client) *OneTimeTokens {
	return &OneTimeTokens{client: client}
}

func (t *OneTimeTokens) Put(ctx context.Context, kind string, token string, accountID string, ttl time.Duration) error {
	key := fmt.Sprintf("%s:%s", kind, token)
	return t.client.Set(ctx, key, accountID, ttl).Err()
}

// Take returns the account id bound to the token and deletes it, so a
// token can never be replayed.
func (t *OneTimeTokens) Take(ctx context.Context, kind string, token string) (string, error) {
	key := fmt.Sprintf("%s:%s", kind, token)
	accountID, err := t.client.GetDel(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrTokenNotFound
		}
		return "", err
	}
	return accountID, nil
}
