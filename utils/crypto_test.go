package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() []byte {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

func TestPhoneCipherRoundTrip(t *testing.T) {
	c, err := NewPhoneCipher(testKey())
	require.NoError(t, err)

	enc, err := c.Encrypt("79161234567")
	require.NoError(t, err)

	plain, err := c.Decrypt(enc)
	require.NoError(t, err)
	assert.Equal(t, "79161234567", plain)

	// random nonce means two ciphertexts of the same phone differ
	enc2, err := c.Encrypt("79161234567")
	require.NoError(t, err)
	assert.NotEqual(t, enc, enc2)
}

func TestPhoneCipherRejectsBadKeyLength(t *testing.T) {
	_, err := NewPhoneCipher([]byte("short"))
	assert.Error(t, err)

	_, err = NewPhoneCipher(make([]byte, 64))
	assert.Error(t, err)
}

func TestPhoneCipherHashIsDeterministicAndKeyed(t *testing.T) {
	c, err := NewPhoneCipher(testKey())
	require.NoError(t, err)

	h1 := c.Hash("79161234567")
	h2 := c.Hash("79161234567")
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64) // hex sha256
	assert.NotEqual(t, h1, c.Hash("79161234568"))

	other := testKey()
	other[0] ^= 0xff
	c2, err := NewPhoneCipher(other)
	require.NoError(t, err)
	assert.NotEqual(t, h1, c2.Hash("79161234567"))
}

func TestDecryptRejectsTamperedCiphertext(t *testing.T) {
	c, err := NewPhoneCipher(testKey())
	require.NoError(t, err)

	enc, err := c.Encrypt("79161234567")
	require.NoError(t, err)
	enc[len(enc)-1] ^= 0x01

	_, err = c.Decrypt(enc)
	assert.Error(t, err)

	_, err = c.Decrypt([]byte{0x01, 0x02})
	assert.Error(t, err)
}
