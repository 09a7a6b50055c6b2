// Package adminauth implements the control-plane bearer token check,
// adapted from the teacher's oracle-runner authentication middleware onto
// a single static admin token comparison.
package adminauth

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/R3E-Network/envsensor-gateway/internal/config"
)

// Validation outcomes named by spec §4.1/§6.
var (
	ErrMissingToken    = errors.New("adminauth: missing token")
	ErrInvalidToken    = errors.New("adminauth: invalid token")
	ErrMalformedHeader = errors.New("adminauth: malformed authorization header")
)

// Checker validates the control-plane bearer token.
type Checker struct {
	tokenHash  [32]byte
	configured bool
}

// New builds a Checker bound to a single admin token. An empty
// adminToken leaves the Checker unconfigured: every Check call then
// fails with config.ErrConfigMissing instead of comparing against an
// empty token.
func New(adminToken string) *Checker {
	if adminToken == "" {
		return &Checker{}
	}
	return &Checker{tokenHash: sha256.Sum256([]byte(adminToken)), configured: true}
}

// Check validates the Authorization header of r against the configured
// admin token. The comparison always hashes and compares in constant
// time. A header missing entirely is MissingToken; a header with the
// wrong scheme (not "Bearer ...") is MalformedHeader; a Bearer header
// with an empty or wrong value is InvalidToken.
func (c *Checker) Check(r *http.Request) error {
	if !c.configured {
		return config.ErrConfigMissing
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return ErrMissingToken
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ErrMalformedHeader
	}
	candidate := strings.TrimPrefix(header, prefix)
	if candidate == "" {
		return ErrInvalidToken
	}
	candidateHash := sha256.Sum256([]byte(candidate))
	if subtle.ConstantTimeCompare(candidateHash[:], c.tokenHash[:]) != 1 {
		return ErrInvalidToken
	}
	return nil
}
