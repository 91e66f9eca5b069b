package sandbox

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"Storefront/pkg/kit"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// Credentials is the single merchant account the sandbox accepts. Only a
// bcrypt hash of the password is kept.
type Credentials struct {
	username string
	hash     []byte
}

func NewCredentials(username, password string, cost int) (*Credentials, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return nil, err
	}
	return &Credentials{username: username, hash: hash}, nil
}

func (c *Credentials) Verify(username, password string) error {
	if subtle.ConstantTimeCompare([]byte(username), []byte(c.username)) != 1 {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(c.hash, []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// RequireBasicAuth rejects merchant API calls without valid credentials.
func (c *Credentials) RequireBasicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || c.Verify(user, pass) != nil {
			w.Header().Set("WWW-Authenticate", `Basic realm="sandbox"`)
			kit.WriteError(w, r, http.StatusUnauthorized, "unauthorized", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
