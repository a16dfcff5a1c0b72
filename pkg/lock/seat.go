package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	seatKeyPrefix       = "seatlock:"
	DefaultPollInterval = 25 * time.Millisecond
)

// ErrLockBusy is returned when the wait budget runs out while another holder owns the seat.
var ErrLockBusy = errors.New("seat lock held by another request")

// releaseScript deletes the key only while it still carries our token, so an
// expired lock that was re-acquired by someone else is left alone.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

// SeatLock is an advisory per-seat lock in Redis. It narrows contention on the
// storage transaction; it never decides whether a booking is admitted.
type SeatLock struct {
	redis    *redis.Client
	ttl      time.Duration
	wait     time.Duration
	poll     time.Duration
	newToken func() string
}

func NewSeatLock(rdb *redis.Client, ttl, wait time.Duration) *SeatLock {
	return &SeatLock{
		redis:    rdb,
		ttl:      ttl,
		wait:     wait,
		poll:     DefaultPollInterval,
		newToken: uuid.NewString,
	}
}

func SeatKey(seatID string) string {
	return seatKeyPrefix + seatID
}

// Acquire polls SET NX until the lock is taken or the wait budget is spent.
// The returned func releases the lock; it is safe to call after expiry.
func (l *SeatLock) Acquire(ctx context.Context, seatID string) (func(context.Context) error, error) {
	key := SeatKey(seatID)
	token := l.newToken()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.redis.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire seat lock %s: %w", key, err)
		}
		if ok {
			return func(ctx context.Context) error {
				return l.release(ctx, key, token)
			}, nil
		}
		if !time.Now().Before(deadline) {
			return nil, ErrLockBusy
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.poll):
		}
	}
}

func (l *SeatLock) release(ctx context.Context, key, token string) error {
	if err := l.redis.Eval(ctx, releaseScript, []string{key}, token).Err(); err != nil {
		return fmt.Errorf("release seat lock %s: %w", key, err)
	}
	return nil
}
