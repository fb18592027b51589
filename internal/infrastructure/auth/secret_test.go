package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecretGuard_Verify(t *testing.T) {
	hash, err := HashSecret("wipe-it")
	require.NoError(t, err)
	sg := NewSecretGuard(hash)
	assert.True(t, sg.Enabled())

	ok, err := sg.Verify("wipe-it")
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = sg.Verify("nope")
	assert.NoError(t, err)
	assert.False(t, ok)

	ok, err = sg.Verify("")
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestSecretGuard_Disabled(t *testing.T) {
	sg := NewSecretGuard("")
	assert.False(t, sg.Enabled())
	ok, err := sg.Verify("anything")
	assert.NoError(t, err)
	assert.False(t, ok)
}
