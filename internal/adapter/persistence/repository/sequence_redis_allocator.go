package repository

import (
	"context"
	"errors"
	"fmt"

	"quotes_service/internal/domain/entities"
	"quotes_service/internal/usecase/interfaces"

	"github.com/redis/go-redis/v9"
)

// seedScript raises the counter to ARGV[1] without ever lowering it.
var seedScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
local floor = tonumber(ARGV[1])
if current < floor then
	redis.call('SET', KEYS[1], floor)
	return floor
end
return current
`)

// SequenceRedisAllocator uses INCR on a single key. Redis executes commands one at a
// time, so every caller gets a distinct value.
type SequenceRedisAllocator struct {
	client redis.Cmdable
	key    string
}

var _ interfaces.ISequenceAllocator = (*SequenceRedisAllocator)(nil)

func NewSequenceRedisAllocator(client redis.Cmdable, key string) *SequenceRedisAllocator {
	if key == "" {
		key = "quotes:sequence"
	}
	return &SequenceRedisAllocator{client: client, key: key}
}

func (a *SequenceRedisAllocator) Next(ctx context.Context) (int64, error) {
	v, err := a.client.Incr(ctx, a.key).Result()
	if err != nil {
		return 0, classifyRedisAllocationError(err)
	}
	if v > entities.MaxQuoteSequence {
		return 0, fmt.Errorf("%w: counter %s at %d", entities.ErrSequenceExhausted, a.key, v)
	}
	return v, nil
}

func (a *SequenceRedisAllocator) Seed(ctx context.Context, floor int64) error {
	if err := seedScript.Run(ctx, a.client, []string{a.key}, floor).Err(); err != nil {
		return classifyRedisAllocationError(err)
	}
	return nil
}

func classifyRedisAllocationError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", entities.ErrRetryableAllocation, err)
}
