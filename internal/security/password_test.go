package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var fastParams = Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

func TestHashAndVerify(t *testing.T) {
	passwords := []string{"abc123", "correct horse battery staple", "pässwörd", " "}

	for _, pw := range passwords {
		digest, err := HashPasswordWithParams(pw, fastParams)
		require.NoError(t, err)
		assert.NotContains(t, string(digest), pw)

		ok, err := VerifyPassword(pw, digest)
		require.NoError(t, err)
		assert.True(t, ok, "password %q should verify", pw)

		ok, err = VerifyPassword(pw+"x", digest)
		require.NoError(t, err)
		assert.False(t, ok, "altered password %q should not verify", pw)
	}
}

func TestHashIsSaltedPerCall(t *testing.T) {
	a, err := HashPasswordWithParams("abc123", fastParams)
	require.NoError(t, err)
	b, err := HashPasswordWithParams("abc123", fastParams)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(string(a), "$argon2id$v=19$m=8192,t=1,p=1$"))
}

func TestDefaultHashRoundTrip(t *testing.T) {
	digest, err := HashPassword("abc123")
	require.NoError(t, err)

	ok, err := VerifyPassword("abc123", digest)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, NeedsRehash(digest))
}

func TestVerifyLegacyBcrypt(t *testing.T) {
	legacy, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)

	ok, err := VerifyPassword("password123", legacy)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("password124", legacy)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.True(t, NeedsRehash(legacy))
}

func TestVerifyMalformed(t *testing.T) {
	cases := map[string]string{
		"empty":          "",
		"unknown scheme": "$pbkdf2$abc",
		"missing parts":  "$argon2id$v=19$m=8192,t=1,p=1$c2FsdA",
		"bad version":    "$argon2id$v=16$m=8192,t=1,p=1$c2FsdA$aGFzaA",
		"bad params":     "$argon2id$v=19$memory$c2FsdA$aGFzaA",
		"bad salt":       "$argon2id$v=19$m=8192,t=1,p=1$!!!$aGFzaA",
	}

	for name, digest := range cases {
		t.Run(name, func(t *testing.T) {
			ok, err := VerifyPassword("abc123", []byte(digest))
			assert.False(t, ok)
			assert.Error(t, err)
		})
	}
}

func TestNeedsRehashWeakParams(t *testing.T) {
	digest, err := HashPasswordWithParams("abc123", fastParams)
	require.NoError(t, err)
	assert.True(t, NeedsRehash(digest))
}
