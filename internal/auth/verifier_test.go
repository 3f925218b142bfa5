package auth

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
)

const testIssuer = "https://cognito-idp.sa-east-1.amazonaws.com/sa-east-1_Test"

func newStaticVerifier(t *testing.T, key *rsa.PrivateKey) *OIDCVerifier {
	t.Helper()
	keySet := &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&key.PublicKey}}
	return &OIDCVerifier{verifier: oidc.NewVerifier(testIssuer, keySet, &oidc.Config{ClientID: "client123"})}
}

func signIDToken(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return raw
}

func TestOIDCVerifier_Verify(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	v := newStaticVerifier(t, key)
	exp := time.Now().Add(time.Hour).Truncate(time.Second)

	raw := signIDToken(t, key, jwt.MapClaims{
		"iss":              testIssuer,
		"aud":              "client123",
		"sub":              "8c1f-sub",
		"exp":              exp.Unix(),
		"iat":              time.Now().Unix(),
		"email":            "alice@example.com",
		"cognito:username": "alice",
	})

	id, err := v.Verify(context.Background(), raw)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if id.Subject != "8c1f-sub" || id.Username != "alice" || id.Email != "alice@example.com" {
		t.Fatalf("unexpected identity: %+v", id)
	}
	if !id.Expiry.Equal(exp) {
		t.Fatalf("expiry: want %v, got %v", exp, id.Expiry)
	}
}

func TestOIDCVerifier_RejectsWrongAudience(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	v := newStaticVerifier(t, key)

	raw := signIDToken(t, key, jwt.MapClaims{
		"iss": testIssuer,
		"aud": "someone-else",
		"sub": "x",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	if _, err := v.Verify(context.Background(), raw); err == nil {
		t.Fatal("want error for foreign audience")
	}
}
