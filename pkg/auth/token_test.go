package auth

import (
	"testing"
	"time"

	"github.com/angelmondragon/rentalkit-backend/pkg/config"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "rentalkit", ExpirationMinutes: 30}
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := testJWTConfig()
	now := time.Now().UTC()

	token, err := MintAccessToken(cfg, now, AccessTokenPayload{UserID: "usr_42", SessionID: "sess-1"})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.UserID != "usr_42" || claims.Subject != "usr_42" {
		t.Fatalf("unexpected user claims %+v", claims)
	}
	if claims.SessionID != "sess-1" {
		t.Fatalf("session id not preserved")
	}
	if claims.Issuer != cfg.Issuer {
		t.Fatalf("issuer mismatch: %s", claims.Issuer)
	}
	if claims.ID == "" {
		t.Fatalf("expected generated jti")
	}
}

func TestParseAccessTokenRejectsExpiredAndForeign(t *testing.T) {
	cfg := testJWTConfig()
	expired, err := MintAccessToken(cfg, time.Now().Add(-2*time.Hour), AccessTokenPayload{UserID: "usr_1"})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := ParseAccessToken(cfg, expired); err == nil {
		t.Fatal("expected expired token to be rejected")
	}

	other := cfg
	other.Secret = "another-secret"
	foreign, err := MintAccessToken(other, time.Now(), AccessTokenPayload{UserID: "usr_1"})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := ParseAccessToken(cfg, foreign); err == nil {
		t.Fatal("expected signature mismatch")
	}
}

func TestMintAccessTokenValidatesInput(t *testing.T) {
	cfg := testJWTConfig()
	if _, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{}); err == nil {
		t.Fatal("expected error for missing user id")
	}
	cfg.ExpirationMinutes = 0
	if _, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: "u"}); err == nil {
		t.Fatal("expected error for non-positive expiration")
	}
}

func TestBearerToken(t *testing.T) {
	if token, ok := BearerToken("Bearer abc.def"); !ok || token != "abc.def" {
		t.Fatalf("unexpected parse %q %v", token, ok)
	}
	if _, ok := BearerToken("Basic abc"); ok {
		t.Fatal("basic auth must not parse as bearer")
	}
	if _, ok := BearerToken("Bearer   "); ok {
		t.Fatal("empty bearer must not parse")
	}
}
