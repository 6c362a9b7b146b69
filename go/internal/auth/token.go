// Package auth verifies the bearer tokens issued by the external identity
// service. The gateway only needs the player identity out of the token; all
// issuing and refresh logic lives with that service.
package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any token that fails verification
var ErrInvalidToken = errors.New("invalid token")

// Claims are the identity claims the duel server consumes
type Claims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// Identity is the verified player identity extracted from a token
type Identity struct {
	PlayerID string
	Name     string
}

// Verifier validates HS256 tokens against the shared signing secret
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		parser: jwt.NewParser(jwt.WithValidMethods([]string{"HS256"})),
	}
}

// Verify parses and validates a token and returns the player identity
func (v *Verifier) Verify(token string) (Identity, error) {
	claims := &Claims{}
	parsed, err := v.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return Identity{}, ErrInvalidToken
	}
	return Identity{PlayerID: claims.Subject, Name: claims.Name}, nil
}
