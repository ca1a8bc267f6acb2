package redisrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"csc-ledger/internal/models"
)

const (
	expiration = 5 * time.Minute
)

// setIfNewer stores the snapshot unless the cached one has the same or a
// higher version. KEYS[1] is the balance hash; ARGV is version, payload, ttl ms.
var setIfNewer = redis.NewScript(`
local current = tonumber(redis.call('HGET', KEYS[1], 'version'))
if current and current >= tonumber(ARGV[1]) then
	return 0
end
redis.call('HSET', KEYS[1], 'version', ARGV[1], 'payload', ARGV[2])
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return 1
`)

// BalanceRepository caches balance snapshots as versioned JSON with a short TTL.
type BalanceRepository struct {
	client *redis.Client
	prefix string
}

func NewBalanceRepository(client *redis.Client) *BalanceRepository {
	return &BalanceRepository{
		client: client,
		prefix: "wallet:",
	}
}

// SetBalance keeps the newest snapshot per center. An older version is
// dropped silently.
func (r *BalanceRepository) SetBalance(ctx context.Context, balance models.WalletBalanceResponse) error {
	payload, err := json.Marshal(balance)
	if err != nil {
		return fmt.Errorf("failed to encode balance: %w", err)
	}

	keys := []string{r.getBalanceKey(balance.CenterID)}
	if err := setIfNewer.Run(ctx, r.client, keys, balance.Version, payload, expiration.Milliseconds()).Err(); err != nil {
		return fmt.Errorf("failed to set balance in redis: %w", err)
	}
	return nil
}

func (r *BalanceRepository) GetBalance(ctx context.Context, centerID string) (*models.WalletBalanceResponse, error) {
	raw, err := r.client.HGet(ctx, r.getBalanceKey(centerID), "payload").Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, models.ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get balance from redis: %w", err)
	}

	var balance models.WalletBalanceResponse
	if err := json.Unmarshal(raw, &balance); err != nil {
		return nil, fmt.Errorf("failed to parse balance from redis: %w", err)
	}
	return &balance, nil
}

func (r *BalanceRepository) DeleteBalance(ctx context.Context, centerID string) error {
	if err := r.client.Del(ctx, r.getBalanceKey(centerID)).Err(); err != nil {
		return fmt.Errorf("failed to delete balance from redis: %w", err)
	}
	return nil
}

func (r *BalanceRepository) getBalanceKey(centerID string) string {
	return r.prefix + centerID + ":balance"
}
