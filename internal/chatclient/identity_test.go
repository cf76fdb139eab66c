package chatclient_test

import (
	"testing"
	"time"

	"hackmate/backend/internal/api/middleware"
	"hackmate/backend/internal/chatclient"
	"hackmate/backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIdentity(t *testing.T) {
	tokens := middleware.NewTokenIssuer(config.AuthConfig{JWTSecret: "s", TokenTTL: time.Hour, Issuer: "hackmate"})
	token, err := tokens.Issue("user-7", "Ana")
	require.NoError(t, err)

	id, name, err := chatclient.TokenIdentity(token)
	require.NoError(t, err)
	assert.Equal(t, "user-7", id)
	assert.Equal(t, "Ana", name)

	_, _, err = chatclient.TokenIdentity("not-a-token")
	assert.Error(t, err)

	noSubject, err := tokens.Issue("", "Ana")
	require.NoError(t, err)
	_, _, err = chatclient.TokenIdentity(noSubject)
	assert.Error(t, err)
}
