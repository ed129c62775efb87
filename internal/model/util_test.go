package model

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewNonce(t *testing.T) {
	assert := assert.New(t)

	hex32 := regexp.MustCompile(`^[0-9a-f]{32}$`)
	first := NewNonce()
	second := NewNonce()
	assert.Regexp(hex32, first)
	assert.Regexp(hex32, second)
	assert.NotEqual(first, second)
}

func TestHashToken(t *testing.T) {
	assert := assert.New(t)

	token := NewRefreshToken()
	assert.NotEmpty(token)
	assert.Len(HashToken(token), 64)
	assert.Equal(HashToken(token), HashToken(token))
	assert.NotEqual(HashToken(token), HashToken(token+"x"))
}
