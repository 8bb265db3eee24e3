package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Claims is the JWT payload issued by the identity service. AgentID is
// present when the user is linked to an agent record.
type Claims struct {
	UserID  string `json:"user_id"`
	AgentID string `json:"agent_id,omitempty"`
	jwt.RegisteredClaims
}

// GenerateToken signs a bearer token for the given identity. Used by
// tests and local tooling; production tokens come from the identity
// service upstream.
func GenerateToken(secret []byte, userID, agentID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:  userID,
		AgentID: agentID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "janusprop",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates a bearer token and returns the caller it encodes.
func ParseToken(secret []byte, tokenStr string) (*Caller, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return &Caller{UserID: claims.UserID, AgentID: claims.AgentID}, nil
}
