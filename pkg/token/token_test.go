package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateAndParseJWT(t *testing.T) {
	signed, err := GenerateJWT("alice", "sync_client")
	assert.NoError(t, err)

	claims, err := ParseJWT(signed)
	assert.NoError(t, err)
	assert.Equal(t, "alice", claims.ActorID)
	assert.Equal(t, "sync_client", claims.Issuer)
}

func TestParseJWTRejectsEmptyActor(t *testing.T) {
	signed, err := GenerateJWT("", "sync_client")
	assert.NoError(t, err)

	_, err = ParseJWT(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseJWTRejectsGarbage(t *testing.T) {
	_, err := ParseJWT("not-a-token")
	assert.Error(t, err)
}
