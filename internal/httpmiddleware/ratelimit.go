package httpmiddleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// idleAfter is how long an untouched client bucket is kept.
const idleAfter = 10 * time.Minute

// TokenBucket is an in-memory per-client rate limiter refilled continuously
// at perMinute tokens per minute.
type TokenBucket struct {
	capacity float64
	perSec   float64
	mu       sync.Mutex
	clients  map[string]*bucket
	swept    time.Time
	now      func() time.Time
}

type bucket struct {
	tokens float64
	seen   time.Time
}

// NewTokenBucket creates limiter with capacity tokens and rate per minute.
func NewTokenBucket(capacity, perMinute int) *TokenBucket {
	if capacity <= 0 {
		capacity = perMinute
	}
	return &TokenBucket{
		capacity: float64(capacity),
		perSec:   float64(perMinute) / 60,
		clients:  make(map[string]*bucket),
		now:      time.Now,
	}
}

// KeyFunc picks the client a request is charged to.
type KeyFunc func(c *gin.Context) string

// ClientIP charges requests to the remote address.
func ClientIP(c *gin.Context) string {
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return "unknown"
}

// GinMiddleware rejects clients over their budget with 429 and Retry-After.
// A non-positive rate disables limiting.
func (l *TokenBucket) GinMiddleware(key KeyFunc) gin.HandlerFunc {
	if key == nil {
		key = ClientIP
	}
	return func(c *gin.Context) {
		if l.perSec <= 0 {
			c.Next()
			return
		}
		ok, wait := l.take(key(c))
		if !ok {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit"})
			return
		}
		c.Next()
	}
}

// take spends one token of key, or reports how long until one is available.
func (l *TokenBucket) take(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	b, ok := l.clients[key]
	if !ok {
		b = &bucket{tokens: l.capacity, seen: now}
		l.clients[key] = b
	}
	b.tokens = math.Min(l.capacity, b.tokens+now.Sub(b.seen).Seconds()*l.perSec)
	b.seen = now

	if b.tokens < 1 {
		return false, time.Duration((1 - b.tokens) / l.perSec * float64(time.Second))
	}
	b.tokens--
	return true, 0
}

func (l *TokenBucket) sweep(now time.Time) {
	if now.Sub(l.swept) < idleAfter {
		return
	}
	for k, b := range l.clients {
		if now.Sub(b.seen) > idleAfter {
			delete(l.clients, k)
		}
	}
	l.swept = now
}
