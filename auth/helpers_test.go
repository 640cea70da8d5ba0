package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testSigningKey = []byte("test-hmac-signing-key")

func signToken(t testing.TB, claims jwt.MapClaims) string {
	t.Helper()
	return signTokenWith(t, jwt.SigningMethodHS256, testSigningKey, claims)
}

func signTokenWith(t testing.TB, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func validClaims() jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"sub":   "indexer",
		"iss":   "abicache",
		"aud":   "abi-api",
		"roles": []any{"reader", "writer"},
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}
}

func headers(kv ...string) map[string][]string {
	h := make(map[string][]string)
	for i := 0; i+1 < len(kv); i += 2 {
		h[kv[i]] = append(h[kv[i]], kv[i+1])
	}
	return h
}
