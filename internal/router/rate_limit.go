package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/tabiguide-next/internal/config"
	"github.com/tabiguide-next/internal/http/response"
	"github.com/tabiguide-next/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// writeLimit fixed window applied to one ledger write route
type writeLimit struct {
	route  string
	window time.Duration
	max    int64
	key    func(*gin.Context) string
}

// ledgerWriteLimits the create limit is keyed per guide, the update limit per referral
func ledgerWriteLimits(cfg config.RateLimitConfig) (create, update writeLimit) {
	window := time.Duration(cfg.WindowSeconds) * time.Second
	limitMax := int64(cfg.MaxRequests)
	create = writeLimit{route: "referral_create", window: window, max: limitMax, key: guideKey}
	update = writeLimit{route: "referral_update", window: window, max: limitMax, key: referralKey}
	return create, update
}

// WriteLimiter redis fixed-window limiter for ledger writes. A nil client disables it.
type WriteLimiter struct {
	client *redis.Client
	prefix string
}

// NewWriteLimiter creates the limiter; keys live under <redisPrefix>:rate
func NewWriteLimiter(client *redis.Client, redisPrefix string) *WriteLimiter {
	return &WriteLimiter{client: client, prefix: redisPrefix + ":rate"}
}

// Limit returns the middleware enforcing limit
func (l *WriteLimiter) Limit(limit writeLimit) gin.HandlerFunc {
	if l == nil || l.client == nil || limit.window <= 0 || limit.max <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		key := fmt.Sprintf("%s:%s:%s", l.prefix, limit.route, limit.key(c))
		count, ttl, err := l.hit(c.Request.Context(), key, limit.window)
		if err != nil {
			logger.Warnw("rate_limit_redis_failed", "key", key, "error", err)
			response.Error(c, response.CodeInternal, response.TagInternal, "Rate limiter unavailable")
			c.Abort()
			return
		}
		if count > limit.max {
			wait := retryAfterSeconds(ttl, limit.window)
			logger.Debugw("rate_limit_rejected", "route", limit.route, "key", key, "count", count)
			c.Header("Retry-After", strconv.Itoa(wait))
			response.Error(c, response.CodeTooManyRequests, response.TagRateLimited,
				fmt.Sprintf("Too many referral writes, retry in %d seconds", wait))
			c.Abort()
			return
		}
		c.Next()
	}
}

// hit counts one request in the current window. SET NX starts the window with its TTL and
// INCR keeps that TTL, so the window is fixed from the first request.
func (l *WriteLimiter) hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, key, 0, window)
		incr = pipe.Incr(ctx, key)
		ttl = pipe.TTL(ctx, key)
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return incr.Val(), ttl.Val(), nil
}

func retryAfterSeconds(ttl, window time.Duration) int {
	wait := int(math.Ceil(ttl.Seconds()))
	if wait < 1 {
		wait = int(window.Seconds())
	}
	if wait < 1 {
		wait = 1
	}
	return wait
}

// guideKey the guide named in a create body plus the client IP; the body is restored
func guideKey(c *gin.Context) string {
	guide := strings.ToLower(readJSONField(c, "guideId"))
	if guide == "" {
		return c.ClientIP()
	}
	return guide + "|" + c.ClientIP()
}

// referralKey the referral being updated plus the client IP
func referralKey(c *gin.Context) string {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return c.ClientIP()
	}
	return id + "|" + c.ClientIP()
}

func readJSONField(c *gin.Context, field string) string {
	if c == nil || c.Request == nil || c.Request.Body == nil {
		return ""
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return ""
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	var value string
	if err := json.Unmarshal(payload[field], &value); err != nil {
		return ""
	}
	return strings.TrimSpace(value)
}
