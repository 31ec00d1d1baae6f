package web

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"golang.org/x/crypto/blake2b"
)

const (
	csrfCookie = "csrf_token"
	csrfField  = "csrf_token"
	nonceBytes = 32
)

// CSRF implements the double-submit pattern: the cookie holds a random
// nonce, the form carries a keyed MAC of it.
type CSRF struct {
	key    []byte
	secure bool
}

func NewCSRF(secret string, secureCookie bool) *CSRF {
	key := blake2b.Sum256([]byte("csrf\x00" + secret))
	return &CSRF{key: key[:], secure: secureCookie}
}

// Sign returns the form token for a cookie nonce.
func (c *CSRF) Sign(nonce string) string {
	h, _ := blake2b.New256(c.key)
	h.Write([]byte(nonce))
	return hex.EncodeToString(h.Sum(nil))
}

// Token returns the form token for this browser, issuing a cookie first when
// the request has none.
func (c *CSRF) Token(w http.ResponseWriter, r *http.Request) string {
	if ck, err := r.Cookie(csrfCookie); err == nil && validNonce(ck.Value) {
		return c.Sign(ck.Value)
	}
	buf := make([]byte, nonceBytes)
	_, _ = rand.Read(buf)
	nonce := hex.EncodeToString(buf)
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookie,
		Value:    nonce,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return c.Sign(nonce)
}

// Verify checks the posted token against the cookie. The form must already
// be parsed.
func (c *CSRF) Verify(r *http.Request) bool {
	ck, err := r.Cookie(csrfCookie)
	if err != nil || !validNonce(ck.Value) {
		return false
	}
	want := c.Sign(ck.Value)
	got := r.PostFormValue(csrfField)
	return subtle.ConstantTimeCompare([]byte(want), []byte(got)) == 1
}

func validNonce(s string) bool {
	if len(s) != nonceBytes*2 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
