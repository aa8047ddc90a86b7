package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/lyzr/imagehost/common/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentIdentity(t *testing.T) {
	d := ContentIdentity{}

	// sha256("abc")
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", d.Derive([]byte("abc")))
	assert.Equal(t, d.Derive([]byte("same")), d.Derive([]byte("same")))
	assert.NotEqual(t, d.Derive([]byte("a")), d.Derive([]byte("b")))
	assert.True(t, d.Deduplicates())
}

func TestRandomIdentity(t *testing.T) {
	d := RandomIdentity{}

	a, b := d.Derive([]byte("same")), d.Derive([]byte("same"))
	assert.NotEqual(t, a, b)
	_, err := uuid.Parse(a)
	assert.NoError(t, err)
	assert.False(t, d.Deduplicates())
}

func TestNewIdentityDeriver(t *testing.T) {
	d, err := NewIdentityDeriver(config.PolicyContent)
	require.NoError(t, err)
	assert.IsType(t, ContentIdentity{}, d)

	d, err = NewIdentityDeriver(config.PolicyRandom)
	require.NoError(t, err)
	assert.IsType(t, RandomIdentity{}, d)

	_, err = NewIdentityDeriver("md5")
	assert.Error(t, err)
}
