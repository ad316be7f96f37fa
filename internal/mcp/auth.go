package mcp

import (
	"crypto/subtle"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultMaxBodyBytes int64 = 1 << 20
	defaultCallsPerMin        = 60
	idleCallerTTL             = 10 * time.Minute
)

type HTTPHandlerConfig struct {
	AuthToken       string
	RateLimitPerMin int
	MaxBodyBytes    int64
}

// guard fronts the streamable HTTP transport. A request must carry the
// configured bearer token, stay within its caller's budget and keep its body
// under the size cap before it reaches the MCP server.
type guard struct {
	next    http.Handler
	token   []byte
	maxBody int64
	callers *callerLimiter
	now     func() time.Time
}

func newGuard(next http.Handler, cfg HTTPHandlerConfig) *guard {
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	return &guard{
		next:    next,
		token:   []byte(cfg.AuthToken),
		maxBody: maxBody,
		callers: newCallerLimiter(cfg.RateLimitPerMin),
		now:     time.Now,
	}
}

func (g *guard) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	provided, ok := bearerToken(r)
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}
	if len(g.token) == 0 || subtle.ConstantTimeCompare([]byte(provided), g.token) != 1 {
		writeJSONError(w, http.StatusForbidden, "invalid bearer token")
		return
	}
	if !g.callers.allow(callerKey(provided, r.RemoteAddr), g.now()) {
		w.Header().Set("Retry-After", strconv.Itoa(g.callers.retryAfterSecs()))
		writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}
	if r.Body != nil {
		r.Body = http.MaxBytesReader(w, r.Body, g.maxBody)
	}
	g.next.ServeHTTP(w, r)
}

func bearerToken(r *http.Request) (string, bool) {
	authz := strings.TrimSpace(r.Header.Get("Authorization"))
	token, found := strings.CutPrefix(authz, "Bearer ")
	if !found {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func callerKey(token, remoteAddr string) string {
	host, _, err := net.SplitHostPort(strings.TrimSpace(remoteAddr))
	if err != nil {
		host = strings.TrimSpace(remoteAddr)
	}
	if host == "" {
		host = "unknown"
	}
	if token == "" {
		return host
	}
	return token + "|" + host
}

// callerLimiter holds one token bucket per caller and forgets callers that
// have been quiet for idleCallerTTL.
type callerLimiter struct {
	mu        sync.Mutex
	interval  time.Duration
	burst     int
	buckets   map[string]*callerBucket
	lastSweep time.Time
}

type callerBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newCallerLimiter(perMin int) *callerLimiter {
	if perMin <= 0 {
		perMin = defaultCallsPerMin
	}
	return &callerLimiter{
		interval: time.Minute / time.Duration(perMin),
		burst:    perMin,
		buckets:  make(map[string]*callerBucket),
	}
}

func (l *callerLimiter) allow(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= idleCallerTTL {
		for k, b := range l.buckets {
			if now.Sub(b.lastSeen) >= idleCallerTTL {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &callerBucket{limiter: rate.NewLimiter(rate.Every(l.interval), l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

func (l *callerLimiter) retryAfterSecs() int {
	secs := int((l.interval + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
