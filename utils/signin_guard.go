package utils

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cppla/mindease/config"
)

const signinPrefix = "signin:"

type failWindow struct {
	count   int
	expires time.Time
}

var (
	signinFails   = map[string]failWindow{}
	signinFailsMu sync.Mutex
)

func signinKey(parts ...string) string {
	return signinPrefix + strings.Join(parts, ":")
}

func signinWindow() time.Duration {
	return time.Duration(config.Get().SigninLockoutMinutes) * time.Minute
}

// SigninLocked reports whether ip has used up its failed sign-in allowance
// for the current lockout window.
func SigninLocked(ctx context.Context, ip string) bool {
	limit := config.Get().SigninMaxFailures
	if limit <= 0 {
		return false
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()
		n, err := rc.Get(ctx, signinKey("fail", ip)).Int()
		if err == nil {
			return n >= limit
		}
		// redis.Nil or an outage; the memory counter still applies
	}

	signinFailsMu.Lock()
	defer signinFailsMu.Unlock()
	w, ok := signinFails[ip]
	if !ok {
		return false
	}
	if time.Now().After(w.expires) {
		delete(signinFails, ip)
		return false
	}
	return w.count >= limit
}

// SigninFailRecord counts a failed sign-in for ip and returns the running total.
// The window starts at the first failure.
func SigninFailRecord(ctx context.Context, ip string) int {
	window := signinWindow()
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()
		key := signinKey("fail", ip)
		n, err := rc.Incr(ctx, key).Result()
		if err == nil {
			if n == 1 {
				_ = rc.Expire(ctx, key, window).Err()
			}
			return int(n)
		}
		Sugar.Warnf("signin fail counter redis incr failed, using memory: %v", err)
	}

	now := time.Now()
	signinFailsMu.Lock()
	defer signinFailsMu.Unlock()
	for k, w := range signinFails {
		if now.After(w.expires) {
			delete(signinFails, k)
		}
	}
	w, ok := signinFails[ip]
	if !ok {
		w = failWindow{expires: now.Add(window)}
	}
	w.count++
	signinFails[ip] = w
	return w.count
}

// SigninReset clears the failure counter after a successful sign-in.
func SigninReset(ctx context.Context, ip string) {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()
		_ = rc.Del(ctx, signinKey("fail", ip)).Err()
	}
	signinFailsMu.Lock()
	delete(signinFails, ip)
	signinFailsMu.Unlock()
}
