package hash

import (
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
)

func TestBcryptRoundTrip(t *testing.T) {
	h, err := NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)

	hashed, err := h.Hash("s3cret-pass")
	require.NoError(t, err)

	assert.NoError(t, h.Compare(hashed, "s3cret-pass"))
	assert.ErrorIs(t, h.Compare(hashed, "wrong"), ErrPasswordMismatch)
	assert.False(t, h.NeedsRehash(hashed))
}

func TestLegacyPBKDF2(t *testing.T) {
	h, err := NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)

	sum := pbkdf2.Key([]byte("old-password"), []byte("saltsalt"), 1000, 32, sha256.New)
	encoded := "pbkdf2_sha256$1000$saltsalt$" + base64.StdEncoding.EncodeToString(sum)

	assert.NoError(t, h.Compare(encoded, "old-password"))
	assert.ErrorIs(t, h.Compare(encoded, "nope"), ErrPasswordMismatch)
	assert.True(t, h.NeedsRehash(encoded))
	assert.ErrorIs(t, h.Compare("pbkdf2_sha256$x$salt$abc", "old-password"), ErrUnknownHash)
}

func TestNewBcryptHasherRejectsCost(t *testing.T) {
	_, err := NewBcryptHasher(99)
	assert.Error(t, err)
}
