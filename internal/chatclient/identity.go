package chatclient

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// TokenIdentity reads the subject and name the relay will use for a bearer token.
// The signature is not checked here; the server verifies it on connect.
func TokenIdentity(token string) (userID, name string, err error) {
	claims := struct {
		Name string `json:"name"`
		jwt.RegisteredClaims
	}{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return "", "", fmt.Errorf("unreadable token: %w", err)
	}
	if claims.Subject == "" {
		return "", "", errors.New("token has no subject")
	}
	return claims.Subject, claims.Name, nil
}
