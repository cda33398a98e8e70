package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"storefront/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrCartConflict = errors.New("cart was modified concurrently")

// CartStore keeps one redis hash per cart: field = line id, value = JSON line.
type CartStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCartStore(rc *RedisClient, ttl time.Duration) *CartStore {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &CartStore{rdb: rc.Raw(), ttl: ttl}
}

func cartKey(cartID string) string {
	return fmt.Sprintf("cart:%s:lines", cartID)
}

func (s *CartStore) Get(ctx context.Context, cartID string) (*models.Cart, error) {
	raw, err := s.rdb.HGetAll(ctx, cartKey(cartID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get cart lines: %w", err)
	}
	return decodeCart(cartID, raw)
}

// Update reads the cart, lets fn mutate it and writes the result back under WATCH,
// retrying a few times when another writer touched the same cart.
func (s *CartStore) Update(ctx context.Context, cartID string, fn func(c *models.Cart) error) (*models.Cart, error) {
	key := cartKey(cartID)
	var out *models.Cart

	txf := func(tx *redis.Tx) error {
		raw, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		cart, err := decodeCart(cartID, raw)
		if err != nil {
			return err
		}
		before := make(map[uuid.UUID]struct{}, len(cart.Lines))
		for _, l := range cart.Lines {
			before[l.ID] = struct{}{}
		}

		if err := fn(cart); err != nil {
			return err
		}

		fields := make([]any, 0, len(cart.Lines)*2)
		for _, l := range cart.Lines {
			b, err := json.Marshal(l)
			if err != nil {
				return err
			}
			fields = append(fields, l.ID.String(), b)
			delete(before, l.ID)
		}

		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			for id := range before {
				p.HDel(ctx, key, id.String())
			}
			if len(fields) > 0 {
				p.HSet(ctx, key, fields...)
				p.Expire(ctx, key, s.ttl)
			}
			return nil
		})
		out = cart
		return err
	}

	for i := 0; i < 5; i++ {
		err := s.rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	return nil, ErrCartConflict
}

func (s *CartStore) Clear(ctx context.Context, cartID string) error {
	return s.rdb.Del(ctx, cartKey(cartID)).Err()
}

func decodeCart(cartID string, raw map[string]string) (*models.Cart, error) {
	cart := &models.Cart{ID: cartID, Lines: make([]models.CartLine, 0, len(raw))}
	for field, v := range raw {
		var l models.CartLine
		if err := json.Unmarshal([]byte(v), &l); err != nil {
			return nil, fmt.Errorf("invalid cart line %s: %w", field, err)
		}
		cart.Lines = append(cart.Lines, l)
	}
	// порядок добавления
	sort.SliceStable(cart.Lines, func(i, j int) bool {
		return cart.Lines[i].AddedAt.Before(cart.Lines[j].AddedAt)
	})
	return cart, nil
}
