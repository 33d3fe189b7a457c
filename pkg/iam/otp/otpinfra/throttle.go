package otpinfra

import (
	"context"
	"time"

	"github.com/Abraxas-365/authbuilder/pkg/errx"
	"github.com/Abraxas-365/authbuilder/pkg/iam/otp"
	"github.com/redis/go-redis/v9"
)

const throttleKeyPrefix = "otp:issue:"

// RedisIssueThrottle allows one request per (subject, purpose) per cooldown
// window.
type RedisIssueThrottle struct {
	rdb      *redis.Client
	cooldown time.Duration
}

func NewRedisIssueThrottle(rdb *redis.Client, cooldown time.Duration) *RedisIssueThrottle {
	if cooldown <= 0 {
		cooldown = time.Minute
	}
	return &RedisIssueThrottle{rdb: rdb, cooldown: cooldown}
}

func (t *RedisIssueThrottle) Allow(ctx context.Context, subject string, purpose otp.Purpose) (bool, error) {
	key := throttleKeyPrefix + string(purpose) + ":" + subject
	ok, err := t.rdb.SetNX(ctx, key, 1, t.cooldown).Result()
	if err != nil {
		return false, errx.Wrap(err, "failed to check OTP throttle", errx.TypeInternal)
	}
	return ok, nil
}
