package callerauth_test

import (
	"strings"
	"testing"
	"time"

	"github.com/anp-net/anpd/internal/callerauth"
)

func newTestVerifier() *callerauth.Verifier {
	return callerauth.NewVerifier([]byte("test-secret"), "https://gateway.example.anp")
}

func TestSignAndVerify(t *testing.T) {
	v := newTestVerifier()
	did := "did:wba:localhost%3A9527:wba:user:AAAA"

	token, err := v.Sign(did, []string{"message:send"}, time.Hour)
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}
	if len(strings.Split(token, ".")) != 3 {
		t.Fatalf("expected 3-part JWT")
	}

	claims, err := v.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	if claims.CallerDID != did {
		t.Errorf("CallerDID: got %q, want %q", claims.CallerDID, did)
	}
	if !callerauth.HasScope(claims, "message:send") {
		t.Error("expected message:send scope")
	}
	if callerauth.HasScope(claims, "admin") {
		t.Error("did not expect admin scope")
	}
}

func TestVerify_expired(t *testing.T) {
	v := newTestVerifier()
	token, _ := v.Sign("did:wba:x", nil, time.Nanosecond)
	time.Sleep(2 * time.Millisecond)

	if _, err := v.Verify(token); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestVerify_wrongIssuer(t *testing.T) {
	v1 := callerauth.NewVerifier([]byte("s"), "https://gateway-a.example")
	v2 := callerauth.NewVerifier([]byte("s"), "https://gateway-b.example")

	token, _ := v1.Sign("did:wba:x", nil, time.Hour)
	if _, err := v2.Verify(token); err == nil {
		t.Error("expected error for mismatched issuer")
	}
}

func TestHasScope_nilClaims(t *testing.T) {
	if callerauth.HasScope(nil, "anything") {
		t.Error("HasScope(nil, ...) should be false")
	}
}
