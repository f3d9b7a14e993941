package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashVerifyPassword(t *testing.T) {
	t.Parallel()

	// passwords with '$' and spaces must survive the encoded-form parse
	passwords := []string{
		"correct horse battery staple",
		"Sup3r$ecret!",
		"$tarts$and$ends$",
	}

	for _, password := range passwords {
		hash, err := HashPassword(password)
		require.NoError(t, err)

		ok, err := VerifyPassword(password, hash)
		require.NoError(t, err, "password %q", password)
		assert.True(t, ok, "password %q", password)

		ok, err = VerifyPassword("wrong password", hash)
		require.NoError(t, err)
		assert.False(t, ok)
	}
}

func TestHashPassword_EncodedForm(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("anything")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(hash), "$argon2id$v=19$t=3,m=65536,p=2$"))

	// params in the encoded form drive verification, not the defaults
	custom, err := HashPasswordWithParams("anything", Argon2Params{
		Time: 1, Memory: 16 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16,
	})
	require.NoError(t, err)
	ok, err := VerifyPassword("anything", custom)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHashPassword_SaltedPerCall(t *testing.T) {
	t.Parallel()

	first, err := HashPassword("same password")
	require.NoError(t, err)
	second, err := HashPassword("same password")
	require.NoError(t, err)

	assert.NotEqual(t, string(first), string(second))
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	t.Parallel()

	malformed := [][]byte{
		[]byte("not-an-argon2-hash"),
		[]byte("$argon2i$v=19$t=3,m=65536,p=2$c2FsdA==$aGFzaA=="), // wrong variant
		[]byte("$argon2id$v=19$t=3,m=65536,p=2$c2FsdA=="),         // missing hash segment
		[]byte(""),
	}
	for _, hash := range malformed {
		_, err := VerifyPassword("anything", hash)
		assert.ErrorIs(t, err, ErrMalformedHash, "hash %q", hash)
	}
}
