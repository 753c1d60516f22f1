package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrStateNotFound = errors.New("oauth state not found")

// StateStore keeps single-use OAuth state values alongside the callback URL
// the browser should land on afterwards.
type StateStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStateStore(client *redis.Client, ttl time.Duration) *StateStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &StateStore{client: client, ttl: ttl}
}

func (s *StateStore) Save(ctx context.Context, state, callbackURL string) error {
	ok, err := s.client.SetNX(ctx, stateKey(state), callbackURL, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("save oauth state: %w", err)
	}
	if !ok {
		return fmt.Errorf("save oauth state: duplicate state")
	}
	return nil
}

// Consume returns the callback URL stored for state and removes it, so a
// state value can be redeemed once.
func (s *StateStore) Consume(ctx context.Context, state string) (string, error) {
	callbackURL, err := s.client.GetDel(ctx, stateKey(state)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrStateNotFound
	}
	if err != nil {
		return "", fmt.Errorf("consume oauth state: %w", err)
	}
	return callbackURL, nil
}

func stateKey(state string) string {
	return "oauth:state:" + state
}
