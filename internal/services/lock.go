package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	pairLockPrefix = "friendlock:"
	pairLockTTL    = 10 * time.Second
)

// ErrLockHeld is returned when another caller holds the lock for a pair.
var ErrLockHeld = errors.New("pair lock held")

// PairLocker serialises workflow calls on the same unordered pair of users.
type PairLocker interface {
	Acquire(ctx context.Context, a, b uuid.UUID) (release func(), err error)
}

// pairKey orders the two ids so (a, b) and (b, a) share a key.
func pairKey(a, b uuid.UUID) string {
	as, bs := a.String(), b.String()
	if bs < as {
		as, bs = bs, as
	}
	return as + ":" + bs
}

// RedisPairLocker implements PairLocker with SET NX and a token checked on
// release, so an expired lock re-acquired by someone else is left alone.
type RedisPairLocker struct {
	redis RedisClient
	ttl   time.Duration
}

func NewRedisPairLocker(redis RedisClient) *RedisPairLocker {
	return &RedisPairLocker{redis: redis, ttl: pairLockTTL}
}

func (l *RedisPairLocker) Acquire(ctx context.Context, a, b uuid.UUID) (func(), error) {
	key := pairLockPrefix + pairKey(a, b)
	token := uuid.NewString()

	ok, err := l.redis.SetNX(ctx, key, token, l.ttl)
	if err != nil {
		return nil, fmt.Errorf("acquiring pair lock: %w", err)
	}
	if !ok {
		return nil, ErrLockHeld
	}

	return func() {
		// The request context may already be cancelled when release runs.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		_, _ = l.redis.DelIfValue(releaseCtx, key, token)
	}, nil
}

// noopLocker is used when no Redis is configured.
type noopLocker struct{}

func (noopLocker) Acquire(context.Context, uuid.UUID, uuid.UUID) (func(), error) {
	return func() {}, nil
}
