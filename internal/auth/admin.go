// Package auth provides the admin identity check for the management surface.
// One Authenticator implementation exists per mechanism; configuration picks
// which one guards the admin routes.
package auth

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
)

// Authenticator validates the admin credential carried by a request.
type Authenticator interface {
	// Authenticate reports whether the request carries a valid admin credential.
	Authenticate(r *http.Request) bool
}

// Supported mechanism names for New.
const (
	ModeBearer = "bearer"
	ModeBasic  = "basic"
)

// New selects an Authenticator by mechanism name.
func New(mode, token, username, password string) (Authenticator, error) {
	switch mode {
	case ModeBearer, "":
		if token == "" {
			return nil, fmt.Errorf("bearer admin auth requires a token")
		}
		return &BearerToken{Token: token}, nil
	case ModeBasic:
		if username == "" || password == "" {
			return nil, fmt.Errorf("basic admin auth requires username and password")
		}
		return &Basic{Username: username, Password: password}, nil
	default:
		return nil, fmt.Errorf("unknown admin auth mode %q (want %q or %q)", mode, ModeBearer, ModeBasic)
	}
}

// BearerToken matches "Authorization: Bearer <token>" against a shared secret.
type BearerToken struct {
	Token string
}

func (b *BearerToken) Authenticate(r *http.Request) bool {
	header := r.Header.Get("Authorization")
	presented, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return false
	}
	return equal(presented, b.Token)
}

// Basic matches HTTP basic credentials.
type Basic struct {
	Username string
	Password string
}

func (b *Basic) Authenticate(r *http.Request) bool {
	user, pass, ok := r.BasicAuth()
	if !ok {
		return false
	}
	// Evaluate both comparisons so timing does not reveal which field failed.
	userOK := equal(user, b.Username)
	passOK := equal(pass, b.Password)
	return userOK && passOK
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
