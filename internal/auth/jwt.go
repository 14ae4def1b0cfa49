package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JoinClaims is what the client proves when asking to create or join a room:
// it knows the shared application secret and the name it wants to play under.
type JoinClaims struct {
	DisplayName string `json:"name"`
	jwt.RegisteredClaims
}

// SignJoin produces the short-lived HS256 token attached to create/join
// requests. The server holds the same shared secret.
func SignJoin(secret []byte, displayName string, ttl time.Duration) (string, error) {
	claims := JoinClaims{
		DisplayName: displayName,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(secret)
}
