package services

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/deltabank/backend/internal/metrics"
)

const (
	pendingTransfersKey       = "pending_transfers"
	pendingTransferAmountsKey = "pending_transfer_amounts"
)

// PendingTransferTracker observes split transfers. TransferFrom records the
// correlation id here, TransferTo clears it, and Sweep reports debit legs
// that have waited too long for their credit leg. The ledger itself does not
// enforce the pairing, so a crash between the two calls leaves a dangling
// debit; the tracker makes that visible instead of silently permanent. It
// only observes, it never reverses.
type PendingTransferTracker struct {
	redis  *redis.Client
	maxAge time.Duration
}

func NewPendingTransferTracker(redisClient *redis.Client) *PendingTransferTracker {
	viper.SetDefault("reconcile.max_age", time.Hour)
	return &PendingTransferTracker{
		redis:  redisClient,
		maxAge: viper.GetDuration("reconcile.max_age"),
	}
}

// Record registers a debit leg awaiting its credit leg.
func (t *PendingTransferTracker) Record(ctx context.Context, correlationID uuid.UUID, amount decimal.Decimal) error {
	if t == nil || t.redis == nil {
		return nil
	}
	if err := t.redis.ZAdd(ctx, pendingTransfersKey, &redis.Z{
		Score:  float64(time.Now().Unix()),
		Member: correlationID.String(),
	}).Err(); err != nil {
		return err
	}
	return t.redis.HSet(ctx, pendingTransferAmountsKey, correlationID.String(), amount.String()).Err()
}

// Clear removes a pending entry once the credit leg has been written.
func (t *PendingTransferTracker) Clear(ctx context.Context, correlationID uuid.UUID) error {
	if t == nil || t.redis == nil {
		return nil
	}
	if err := t.redis.ZRem(ctx, pendingTransfersKey, correlationID.String()).Err(); err != nil {
		return err
	}
	return t.redis.HDel(ctx, pendingTransferAmountsKey, correlationID.String()).Err()
}

// Sweep logs every pending transfer older than the configured age and
// updates the dangling-debit gauge. Returns the dangling correlation ids.
func (t *PendingTransferTracker) Sweep(ctx context.Context) ([]string, error) {
	if t == nil || t.redis == nil {
		return nil, nil
	}

	cutoff := time.Now().Add(-t.maxAge).Unix()
	ids, err := t.redis.ZRangeByScore(ctx, pendingTransfersKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(cutoff, 10),
	}).Result()
	if err != nil {
		return nil, err
	}

	for _, id := range ids {
		amount, err := t.redis.HGet(ctx, pendingTransferAmountsKey, id).Result()
		if err != nil {
			amount = "?"
		}
		log.Printf("[RECONCILE] Dangling debit leg: %s, amount: %s, no credit leg after %s", id, amount, t.maxAge)
	}

	metrics.DanglingDebits.Set(float64(len(ids)))
	return ids, nil
}

// Run sweeps on an interval until the context is cancelled.
func (t *PendingTransferTracker) Run(ctx context.Context, interval time.Duration) {
	if t == nil || t.redis == nil {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := t.Sweep(ctx); err != nil {
				log.Printf("[RECONCILE] Sweep failed: %v", err)
			}
		}
	}
}
