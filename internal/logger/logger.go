// Package logger owns the process-wide slog logger. Level and format come
// from LOG_LEVEL and LOG_FORMAT.
package logger

import (
	"encoding/hex"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"golang.org/x/crypto/blake2b"
)

var (
	mu             sync.RWMutex
	defaultLogger  *slog.Logger
	fingerprintKey []byte
)

// Setup builds the default logger writing to stderr.
func Setup(level, format string) *slog.Logger {
	return SetupWriter(os.Stderr, level, format)
}

func SetupWriter(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	var h slog.Handler
	if strings.EqualFold(format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	l := slog.New(h)

	mu.Lock()
	defaultLogger = l
	mu.Unlock()
	return l
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// L returns the default logger, initialising it from the environment on
// first use.
func L() *slog.Logger {
	mu.RLock()
	l := defaultLogger
	mu.RUnlock()
	if l == nil {
		return Setup(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
	}
	return l
}

// SetFingerprintKey sets the key used by Fingerprint. Keys longer than 64
// bytes are hashed down first.
func SetFingerprintKey(key string) {
	k := []byte(key)
	if len(k) > blake2b.Size {
		sum := blake2b.Sum512(k)
		k = sum[:]
	}
	mu.Lock()
	fingerprintKey = k
	mu.Unlock()
}

// Fingerprint returns a short keyed hash of a personal value (a phone
// number) so log lines can be correlated without storing the value itself.
func Fingerprint(v string) string {
	mu.RLock()
	key := fingerprintKey
	mu.RUnlock()

	h, err := blake2b.New256(key)
	if err != nil {
		return "invalid-key"
	}
	h.Write([]byte(v))
	return hex.EncodeToString(h.Sum(nil)[:8])
}
