package middleware

import (
	"context"
	"time"

	"github.com/go-redis/redis_rate/v10"
)

type fakeBlocklist struct {
	revoked map[string]bool
	err     error
}

func (f *fakeBlocklist) IsRevoked(_ context.Context, jti string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.revoked[jti], nil
}

func (f *fakeBlocklist) Revoke(_ context.Context, jti string, _ time.Duration) error {
	if f.revoked == nil {
		f.revoked = map[string]bool{}
	}
	f.revoked[jti] = true
	return nil
}

type fakeAllower struct {
	remaining int
	err       error
	keys      []string
}

func (f *fakeAllower) Allow(_ context.Context, key string, limit redis_rate.Limit) (*redis_rate.Result, error) {
	f.keys = append(f.keys, key)
	if f.err != nil {
		return nil, f.err
	}
	if f.remaining <= 0 {
		return &redis_rate.Result{Limit: limit, Allowed: 0, RetryAfter: 2 * time.Second}, nil
	}
	f.remaining--
	return &redis_rate.Result{Limit: limit, Allowed: 1, Remaining: f.remaining}, nil
}
