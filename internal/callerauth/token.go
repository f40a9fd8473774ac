// Package callerauth populates the caller identity that the router and
// agent handlers rely on. DID cryptography and signature verification are
// out of scope for this runtime (§1): the real deployment sits behind a
// WBA-aware auth gateway that has already verified the caller's DID
// signature and hands this service a short-lived bearer token asserting
// the result. This package only verifies that token and extracts the
// claims — it never performs DID signature verification itself.
package callerauth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CallerClaims are the JWT claims the upstream auth gateway is expected to
// issue for a verified caller.
type CallerClaims struct {
	jwt.RegisteredClaims
	CallerDID string   `json:"caller_did"`
	Scopes    []string `json:"scopes"`
}

// Verifier verifies bearer tokens asserting a caller's DID. It is
// HMAC-based (shared secret with the upstream gateway) rather than the
// teacher's RSA/CA-issued tokens, because this runtime has no certificate
// authority of its own — DID key material belongs to the external auth
// layer (§1 out-of-scope).
type Verifier struct {
	secret []byte
	issuer string
}

// NewVerifier creates a Verifier. issuer must match the "iss" claim set by
// the upstream gateway.
func NewVerifier(secret []byte, issuer string) *Verifier {
	return &Verifier{secret: secret, issuer: issuer}
}

// Sign issues a token for tests and local development. Production
// deployments never call this — tokens are minted by the external gateway.
func (v *Verifier) Sign(callerDID string, scopes []string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := CallerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    v.issuer,
			Subject:   callerDID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		CallerDID: callerDID,
		Scopes:    scopes,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

// Verify parses and validates a bearer token, returning the caller claims.
func (v *Verifier) Verify(tokenStr string) (*CallerClaims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&CallerClaims{},
		func(tok *jwt.Token) (any, error) {
			if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
			}
			return v.secret, nil
		},
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("verify caller token: %w", err)
	}
	claims, ok := token.Claims.(*CallerClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// HasScope reports whether claims grants scope. A nil claims never has any scope.
func HasScope(claims *CallerClaims, scope string) bool {
	if claims == nil {
		return false
	}
	for _, s := range claims.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}
