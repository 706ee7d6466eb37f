// Package redis keeps shopping carts in Redis with versioned compare-and-swap writes.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	domain "github.com/storefront/api/internal/domain"
	"github.com/storefront/api/internal/repositories"
)

const (
	defaultKeyPrefix = "cart:"
	casApplied       = 1
)

// casScript replaces the cart only when the stored version equals ARGV[1]; a missing key counts
// as version 0. ARGV[3] is the TTL in milliseconds, 0 keeps the key forever.
var casScript = goredis.NewScript(`
local current = redis.call('GET', KEYS[1])
local version = 0
if current then
	version = tonumber(cjson.decode(current).version)
end
if version ~= tonumber(ARGV[1]) then
	return 0
end
local ttl = tonumber(ARGV[3])
if ttl > 0 then
	redis.call('SET', KEYS[1], ARGV[2], 'PX', ttl)
else
	redis.call('SET', KEYS[1], ARGV[2])
end
return 1
`)

type cartRecord struct {
	Lines     []cartLineRecord `json:"lines"`
	Version   int64            `json:"version"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

type cartLineRecord struct {
	ProductID string    `json:"productId"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"addedAt"`
}

// CartStore implements repositories.CartRepository on a Redis client.
type CartStore struct {
	client goredis.Cmdable
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

var _ repositories.CartRepository = (*CartStore)(nil)

// Option customises the cart store.
type Option func(*CartStore)

// WithTTL expires idle carts after ttl. Each write refreshes the expiry.
func WithTTL(ttl time.Duration) Option {
	return func(s *CartStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock injects the clock used for updatedAt stamps.
func WithClock(clock func() time.Time) Option {
	return func(s *CartStore) {
		if clock != nil {
			s.now = clock
		}
	}
}

func NewCartStore(client goredis.Cmdable, opts ...Option) (*CartStore, error) {
	if client == nil {
		return nil, errors.New("cart store requires redis client")
	}
	store := &CartStore{client: client, prefix: defaultKeyPrefix, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store, nil
}

func (s *CartStore) key(userID string) string { return s.prefix + userID }

func (s *CartStore) Get(ctx context.Context, userID string) (domain.Cart, error) {
	raw, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return domain.Cart{UserID: userID, Lines: []domain.CartLine{}}, nil
	}
	if err != nil {
		return domain.Cart{}, repositories.NewUnavailableError("cart.get", err)
	}
	var record cartRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return domain.Cart{}, fmt.Errorf("cart %s: decode: %w", userID, err)
	}
	cart := domain.Cart{UserID: userID, Lines: make([]domain.CartLine, 0, len(record.Lines)), Version: record.Version, UpdatedAt: record.UpdatedAt}
	for _, line := range record.Lines {
		cart.Lines = append(cart.Lines, domain.CartLine{ProductID: line.ProductID, Quantity: line.Quantity, AddedAt: line.AddedAt})
	}
	return cart, nil
}

func (s *CartStore) Save(ctx context.Context, cart domain.Cart, expectedVersion int64) (domain.Cart, error) {
	cart.Version = expectedVersion + 1
	cart.UpdatedAt = s.now().UTC()
	if err := s.swap(ctx, "cart.save", cart, expectedVersion); err != nil {
		return domain.Cart{}, err
	}
	return cart, nil
}

func (s *CartStore) Clear(ctx context.Context, userID string, expectedVersion int64) error {
	empty := domain.Cart{UserID: userID, Version: expectedVersion + 1, UpdatedAt: s.now().UTC()}
	return s.swap(ctx, "cart.clear", empty, expectedVersion)
}

func (s *CartStore) swap(ctx context.Context, op string, cart domain.Cart, expectedVersion int64) error {
	payload, err := encodeCart(cart)
	if err != nil {
		return err
	}
	applied, err := casScript.Run(ctx, s.client, []string{s.key(cart.UserID)}, expectedVersion, payload, s.ttl.Milliseconds()).Int64()
	if err != nil {
		return repositories.NewUnavailableError(op, err)
	}
	if applied != casApplied {
		return repositories.NewConflictError(op, fmt.Errorf("cart %s changed since version %d", cart.UserID, expectedVersion))
	}
	return nil
}

func encodeCart(cart domain.Cart) (string, error) {
	record := cartRecord{Lines: make([]cartLineRecord, 0, len(cart.Lines)), Version: cart.Version, UpdatedAt: cart.UpdatedAt}
	for _, line := range cart.Lines {
		record.Lines = append(record.Lines, cartLineRecord{ProductID: line.ProductID, Quantity: line.Quantity, AddedAt: line.AddedAt.UTC()})
	}
	data, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("cart %s: encode: %w", cart.UserID, err)
	}
	return string(data), nil
}
