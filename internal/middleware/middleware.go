package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"runtime/debug"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// Throttle limits requests per client IP with a token bucket each. Idle
// buckets expire so the map does not grow with every visitor.
//
// The client is the socket peer. Forwarding headers are read only when the
// peer is one of the trusted proxies.
type Throttle struct {
	limit   rate.Limit
	burst   int
	buckets *gocache.Cache
	trusted []netip.Prefix
	log     *slog.Logger
}

func NewThrottle(perSecond float64, burst int, idle time.Duration, log *slog.Logger) *Throttle {
	if burst < 1 {
		burst = 1
	}
	return &Throttle{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		buckets: gocache.New(idle, idle),
		log:     log,
	}
}

// TrustProxies sets the reverse proxies whose X-Forwarded-For and
// X-Real-IP headers name the client.
func (t *Throttle) TrustProxies(prefixes ...netip.Prefix) *Throttle {
	t.trusted = append([]netip.Prefix(nil), prefixes...)
	return t
}

func (t *Throttle) limiter(key string) *rate.Limiter {
	if v, ok := t.buckets.Get(key); ok {
		t.buckets.SetDefault(key, v)
		return v.(*rate.Limiter)
	}
	l := rate.NewLimiter(t.limit, t.burst)
	// Add fails if another request created the bucket first; use theirs.
	if err := t.buckets.Add(key, l, gocache.DefaultExpiration); err != nil {
		if v, ok := t.buckets.Get(key); ok {
			return v.(*rate.Limiter)
		}
	}
	return l
}

// Middleware answers throttled requests with a plain-text 429.
func (t *Throttle) Middleware(next http.Handler) http.Handler {
	return t.Limit(nil)(next)
}

// Limit is Middleware with a custom response for throttled requests.
// Retry-After is already set when onLimit runs.
func (t *Throttle) Limit(onLimit http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := t.ClientIP(r)
			if !t.limiter(key).Allow() {
				t.log.Warn("submission throttled", "ip", key)
				w.Header().Set("Retry-After", "60")
				if onLimit != nil {
					onLimit(w, r)
					return
				}
				http.Error(w, "Слишком много попыток. Попробуйте позже.", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the address the throttle keys on. Behind a trusted
// proxy it is the rightmost X-Forwarded-For entry outside the trusted
// ranges, then X-Real-IP, then the peer itself.
func (t *Throttle) ClientIP(r *http.Request) string {
	peer := remoteHost(r.RemoteAddr)
	if !t.isTrusted(peer) {
		return peer
	}
	if xff := r.Header.Values("X-Forwarded-For"); len(xff) > 0 {
		hops := strings.Split(strings.Join(xff, ","), ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if _, err := netip.ParseAddr(hop); err != nil {
				break
			}
			if !t.isTrusted(hop) {
				return hop
			}
		}
	}
	if xr := strings.TrimSpace(r.Header.Get("X-Real-IP")); xr != "" {
		if _, err := netip.ParseAddr(xr); err == nil {
			return xr
		}
	}
	return peer
}

func (t *Throttle) isTrusted(ip string) bool {
	if len(t.trusted) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range t.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func remoteHost(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

// Recover turns a panic into a logged 500 so one bad request cannot take
// the server down.
func Recover(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					log.Error("panic recovered",
						"panic", rec,
						"method", r.Method,
						"path", r.URL.Path,
						"stack", string(debug.Stack()),
					)
					http.Error(w, "Ошибка сервера. Попробуйте позже.", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
