package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// identity issues and verifies the annotator id cookie. The cookie value is
// "<uuid>.<base64url hmac-sha256(uuid)>".
type identity struct {
	secret []byte
	name   string
	maxAge time.Duration
}

func newIdentity(secret, name string, maxAge time.Duration) *identity {
	return &identity{secret: []byte(secret), name: name, maxAge: maxAge}
}

func (i *identity) sign(id string) string {
	mac := hmac.New(sha256.New, i.secret)
	mac.Write([]byte(id))
	return id + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func (i *identity) verify(value string) (string, bool) {
	id, sig, ok := strings.Cut(value, ".")
	if !ok || id == "" || sig == "" {
		return "", false
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	if !hmac.Equal([]byte(i.sign(id)), []byte(value)) {
		return "", false
	}
	return id, true
}

// resolve returns the caller's annotator id, issuing a new one in a cookie
// when the request has none or its signature does not verify.
func (i *identity) resolve(w http.ResponseWriter, r *http.Request) (string, bool) {
	if cookie, err := r.Cookie(i.name); err == nil {
		if id, ok := i.verify(cookie.Value); ok {
			return id, false
		}
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     i.name,
		Value:    i.sign(id),
		Path:     "/",
		MaxAge:   int(i.maxAge / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id, true
}
