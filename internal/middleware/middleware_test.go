package middleware_test

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/raffleapp/registration/internal/middleware"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

// post sends one request from remoteAddr through h and returns the status.
func post(t *testing.T, h http.Handler, remoteAddr string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

// TestThrottle_BurstThenLimited verifies that a client gets its burst and is
// then rejected with 429.
func TestThrottle_BurstThenLimited(t *testing.T) {
	th := middleware.NewThrottle(0.001, 2, time.Minute, quietLogger())
	h := th.Middleware(okHandler)

	for i := 0; i < 2; i++ {
		if code := post(t, h, "10.0.0.1:5000"); code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, code)
		}
	}
	if code := post(t, h, "10.0.0.1:5001"); code != http.StatusTooManyRequests {
		t.Errorf("expected 429 after burst, got %d", code)
	}
}

// TestThrottle_PerClient verifies that one client's bucket does not affect
// another's.
func TestThrottle_PerClient(t *testing.T) {
	th := middleware.NewThrottle(0.001, 1, time.Minute, quietLogger())
	h := th.Middleware(okHandler)

	if code := post(t, h, "10.0.0.1:5000"); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if code := post(t, h, "10.0.0.1:5000"); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", code)
	}
	if code := post(t, h, "10.0.0.2:5000"); code != http.StatusOK {
		t.Errorf("second client: expected 200, got %d", code)
	}
}

// postFrom sends one request from remoteAddr carrying the given
// X-Forwarded-For value.
func postFrom(h http.Handler, remoteAddr, xff string) int {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = remoteAddr
	if xff != "" {
		req.Header.Set("X-Forwarded-For", xff)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

// TestThrottle_IgnoresForwardedHeadersFromUntrustedPeer verifies that a
// client cannot get a fresh bucket by rotating X-Forwarded-For or
// X-Real-IP.
func TestThrottle_IgnoresForwardedHeadersFromUntrustedPeer(t *testing.T) {
	th := middleware.NewThrottle(0.001, 5, time.Minute, quietLogger())
	h := th.Middleware(okHandler)

	accepted := 0
	for i := 0; i < 50; i++ {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = "198.51.100.7:4000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
		req.Header.Set("X-Real-IP", fmt.Sprintf("192.0.2.%d", i))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code == http.StatusOK {
			accepted++
		}
	}
	if accepted != 5 {
		t.Errorf("expected exactly the burst of 5 accepted, got %d", accepted)
	}
}

// TestThrottle_TrustedProxy verifies that behind a trusted proxy each
// forwarded client gets its own bucket and spoofed leftmost hops are
// ignored.
func TestThrottle_TrustedProxy(t *testing.T) {
	th := middleware.NewThrottle(0.001, 1, time.Minute, quietLogger()).
		TrustProxies(netip.MustParsePrefix("10.0.0.0/8"))
	h := th.Middleware(okHandler)
	const proxy = "10.1.2.3:443"

	if code := postFrom(h, proxy, "203.0.113.5"); code != http.StatusOK {
		t.Fatalf("first client: expected 200, got %d", code)
	}
	if code := postFrom(h, proxy, "1.1.1.1, 203.0.113.5"); code != http.StatusTooManyRequests {
		t.Errorf("spoofed hop: expected 429, got %d", code)
	}
	if code := postFrom(h, proxy, "203.0.113.6, 10.9.9.9"); code != http.StatusOK {
		t.Errorf("second client: expected 200, got %d", code)
	}
}

func TestThrottle_ClientIP(t *testing.T) {
	th := middleware.NewThrottle(1, 1, time.Minute, quietLogger()).
		TrustProxies(netip.MustParsePrefix("10.0.0.0/8"))

	tests := []struct {
		name, remote, xff, realIP, want string
	}{
		{"untrusted peer", "198.51.100.7:4000", "203.0.113.5", "192.0.2.1", "198.51.100.7"},
		{"trusted forwarded", "10.0.0.1:443", "203.0.113.5", "", "203.0.113.5"},
		{"trusted real ip", "10.0.0.1:443", "", "192.0.2.1", "192.0.2.1"},
		{"trusted garbage header", "10.0.0.1:443", "not-an-ip", "", "10.0.0.1"},
		{"all hops trusted", "10.0.0.1:443", "10.0.0.9", "", "10.0.0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			if got := th.ClientIP(req); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestThrottle_LimitCustomResponse verifies that onLimit replaces the
// default body and Retry-After is set.
func TestThrottle_LimitCustomResponse(t *testing.T) {
	th := middleware.NewThrottle(0.001, 1, time.Minute, quietLogger())
	h := th.Limit(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("custom"))
	})(okHandler)

	post(t, h, "10.0.0.1:5000")
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "10.0.0.1:5000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests || rec.Body.String() != "custom" {
		t.Errorf("expected custom 429, got %d %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}

// TestRecover_Panic verifies that a panicking handler yields a 500 instead of
// crashing.
func TestRecover_Panic(t *testing.T) {
	h := middleware.Recover(quietLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Ошибка сервера") {
		t.Errorf("expected generic error body, got %q", rec.Body.String())
	}
}

// TestRecover_PassThrough verifies that normal responses are untouched.
func TestRecover_PassThrough(t *testing.T) {
	h := middleware.Recover(quietLogger())(okHandler)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}
