package providers

import (
	"context"
	"errors"
	"sync"
	"time"
)

// RateLimiter implements a token bucket over requests per minute combined
// with a daily request quota that resets at UTC midnight.
type RateLimiter struct {
	mu sync.Mutex

	// Configuration
	requestsPerMinute int
	windowSeconds     float64
	dailyLimit        int // 0 = unlimited

	// Token bucket state
	tokens     float64
	lastUpdate time.Time

	// Daily quota state
	day       time.Time
	usedToday int

	// Statistics
	totalConsumed int64
	totalWaited   time.Duration
	last429Time   time.Time

	now func() time.Time
}

// LimiterStatus reports current limiter state.
type LimiterStatus struct {
	TokensAvailable int           `json:"tokens_available" yaml:"tokens_available"`
	TokensLimit     int           `json:"tokens_limit" yaml:"tokens_limit"`
	Utilization     float64       `json:"utilization" yaml:"utilization"`
	TimeUntilToken  time.Duration `json:"time_until_token" yaml:"time_until_token"`
	DailyLimit      int           `json:"daily_limit" yaml:"daily_limit"`
	DailyUsed       int           `json:"daily_used" yaml:"daily_used"`
	TotalConsumed   int64         `json:"total_consumed" yaml:"total_consumed"`
	TotalWaited     time.Duration `json:"total_waited" yaml:"total_waited"`
	Last429Time     time.Time     `json:"last_429_time,omitempty" yaml:"last_429_time,omitempty"`
}

// ErrDailyQuotaExhausted is returned by Wait when today's quota is used up.
var ErrDailyQuotaExhausted = errors.New("daily request quota exhausted")

// NewRateLimiter creates a new rate limiter. A dailyLimit of 0 disables the quota.
func NewRateLimiter(requestsPerMinute, dailyLimit int) *RateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	if dailyLimit < 0 {
		dailyLimit = 0
	}
	now := time.Now()
	return &RateLimiter{
		requestsPerMinute: requestsPerMinute,
		windowSeconds:     60.0,
		dailyLimit:        dailyLimit,
		tokens:            float64(requestsPerMinute),
		lastUpdate:        now,
		day:               utcDay(now),
		now:               time.Now,
	}
}

// Wait blocks until a token is available or ctx is done. It fails
// immediately with ErrDailyQuotaExhausted once the daily quota is used.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		r.mu.Lock()
		r.rollDay()
		if r.dailyLimit > 0 && r.usedToday >= r.dailyLimit {
			r.mu.Unlock()
			return ErrDailyQuotaExhausted
		}
		r.refill()

		if r.tokens >= 1.0 {
			r.tokens--
			r.usedToday++
			r.totalConsumed++
			r.mu.Unlock()
			return nil
		}

		waitTime := r.timeUntilToken()
		r.mu.Unlock()

		// Wait outside lock
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(waitTime):
			r.mu.Lock()
			r.totalWaited += waitTime
			r.mu.Unlock()
		}
	}
}

// Record429 should be called when a 429 error is received.
// Drains tokens if retryAfter is specified.
func (r *RateLimiter) Record429(retryAfter time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.last429Time = r.now()
	if retryAfter > 0 {
		r.tokens = 0
	}
}

// Status returns current limiter status.
func (r *RateLimiter) Status() LimiterStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rollDay()
	r.refill()

	utilization := 1.0 - (r.tokens / float64(r.requestsPerMinute))
	if utilization < 0 {
		utilization = 0
	}

	return LimiterStatus{
		TokensAvailable: int(r.tokens),
		TokensLimit:     r.requestsPerMinute,
		Utilization:     utilization,
		TimeUntilToken:  r.timeUntilToken(),
		DailyLimit:      r.dailyLimit,
		DailyUsed:       r.usedToday,
		TotalConsumed:   r.totalConsumed,
		TotalWaited:     r.totalWaited,
		Last429Time:     r.last429Time,
	}
}

// timeUntilToken must be called with lock held.
func (r *RateLimiter) timeUntilToken() time.Duration {
	if r.tokens >= 1.0 {
		return 0
	}
	tokensNeeded := 1.0 - r.tokens
	refillRate := float64(r.requestsPerMinute) / r.windowSeconds
	return time.Duration(tokensNeeded/refillRate*1000) * time.Millisecond
}

// refill adds tokens based on elapsed time. Must be called with lock held.
func (r *RateLimiter) refill() {
	now := r.now()
	elapsed := now.Sub(r.lastUpdate).Seconds()
	r.lastUpdate = now

	refillRate := float64(r.requestsPerMinute) / r.windowSeconds
	r.tokens += elapsed * refillRate
	if r.tokens > float64(r.requestsPerMinute) {
		r.tokens = float64(r.requestsPerMinute)
	}
}

// rollDay resets the daily counter after UTC midnight. Must be called with lock held.
func (r *RateLimiter) rollDay() {
	today := utcDay(r.now())
	if today.After(r.day) {
		r.day = today
		r.usedToday = 0
	}
}

func utcDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
