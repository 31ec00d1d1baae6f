package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestSetupWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := SetupWriter(&buf, "warn", "json")
	l.Info("dropped")
	l.Warn("kept", "k", "v")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "kept", line["msg"])
	assert.Equal(t, "v", line["k"])
	assert.Same(t, l, L())
}

func TestFingerprint(t *testing.T) {
	SetFingerprintKey("first-key-0123456789")
	a := Fingerprint("+79280000001")
	assert.Len(t, a, 16)
	assert.Equal(t, a, Fingerprint("+79280000001"))
	assert.NotEqual(t, a, Fingerprint("+79280000002"))
	assert.NotContains(t, a, "9280000001")

	SetFingerprintKey("second-key-0123456789")
	assert.NotEqual(t, a, Fingerprint("+79280000001"))
}

func TestFingerprint_LongKey(t *testing.T) {
	long := bytes.Repeat([]byte("k"), 200)
	SetFingerprintKey(string(long))
	assert.NotEqual(t, "invalid-key", Fingerprint("x"))
}

func TestAccessMiddleware(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&buf, nil))
	h := chimw.RequestID(AccessMiddleware(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	})))

	req := httptest.NewRequest(http.MethodPost, "/?phone=secret", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "http_access", line["msg"])
	assert.Equal(t, "POST", line["method"])
	assert.Equal(t, "/", line["path"])
	assert.EqualValues(t, http.StatusTeapot, line["status"])
	assert.EqualValues(t, len("short and stout"), line["bytes"])
	assert.NotEmpty(t, line["request_id"])
	assert.NotContains(t, buf.String(), "secret")
}
