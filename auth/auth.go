// Package auth turns a handshake token into a user identity.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("authentication error: no token provided")
	ErrInvalidToken = errors.New("authentication error: invalid token")
)

// Verifier maps a token to the identity it was issued for.
type Verifier interface {
	Verify(token string) (userID string, err error)
}

// JWTVerifier accepts HMAC-signed JWTs and reads the identity from a
// configurable claim, falling back to "sub". An exp claim is enforced when
// present; tokens without one never expire.
type JWTVerifier struct {
	secret []byte
	claim  string
	parser *jwt.Parser
}

func NewJWTVerifier(secret, identityClaim string) *JWTVerifier {
	if identityClaim == "" {
		identityClaim = "id"
	}
	return &JWTVerifier{
		secret: []byte(secret),
		claim:  identityClaim,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg(), jwt.SigningMethodHS384.Alg(), jwt.SigningMethodHS512.Alg()}),
		),
	}
}

func (v *JWTVerifier) Verify(token string) (string, error) {
	if token == "" {
		return "", ErrMissingToken
	}

	claims := jwt.MapClaims{}
	if _, err := v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	for _, name := range []string{v.claim, "sub"} {
		if id, ok := identity(claims[name]); ok {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: no %q claim", ErrInvalidToken, v.claim)
}

func identity(value any) (string, bool) {
	switch id := value.(type) {
	case string:
		id = strings.TrimSpace(id)
		return id, id != ""
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64), true
	default:
		return "", false
	}
}

// TokenFromRequest reads a bearer token from the Authorization header, or
// the "accessToken" or "token" query parameter for browser clients that
// cannot set headers on a websocket handshake.
func TokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	query := r.URL.Query()
	if token := query.Get("accessToken"); token != "" {
		return token
	}
	return query.Get("token")
}
