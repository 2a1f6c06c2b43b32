// Package ratelimit guards the model-invoking endpoints with a per-user
// sliding-window counter kept in Redis.
package ratelimit

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/lingwo/essayd/internal/domain"
	"github.com/lingwo/essayd/internal/kvstore"
)

// Window is the trailing interval over which requests are counted.
const Window = 60 * time.Second

// Limiter counts model requests per user over a sliding 60-second window.
type Limiter struct {
	rdb     *redis.Client
	ceiling int
}

// New creates a limiter with the given per-minute ceiling.
func New(rdb *redis.Client, ceiling int) *Limiter {
	return &Limiter{rdb: rdb, ceiling: ceiling}
}

// Allow records one request for userID and reports whether it is inside the
// quota. The add/trim/count/expire sequence runs as a single transactional
// pipeline so two concurrent calls for the same user cannot under-count each
// other. On rejection the just-added member is retracted so a refused
// request does not consume quota.
func (l *Limiter) Allow(ctx context.Context, userID string) error {
	key := kvstore.RateLimitKey(userID)
	now := time.Now()
	windowStart := now.Add(-Window)
	member := strconv.FormatInt(now.UnixNano(), 10) + ":" + uuid.New().String()[:8]

	pipe := l.rdb.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixMilli()), Member: member})
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart.UnixMilli(), 10))
	card := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, Window+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: rate limit pipeline: %v", domain.ErrUpstream, err)
	}

	if card.Val() > int64(l.ceiling) {
		if err := l.rdb.ZRem(ctx, key, member).Err(); err != nil {
			return fmt.Errorf("%w: rate limit zrem: %v", domain.ErrUpstream, err)
		}
		log.Printf("rate_limit: model quota exceeded for user_id=%s (count=%d)", userID, card.Val())
		return fmt.Errorf("%w: no more than %d model requests per minute", domain.ErrRateLimited, l.ceiling)
	}
	return nil
}
