package crypto

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateKey(t *testing.T) {
	t.Run("generates valid key", func(t *testing.T) {
		key, err := GenerateKey()
		require.NoError(t, err)
		require.NotNil(t, key)

		assert.NotNil(t, key.D)
		assert.NotNil(t, key.X)
		assert.NotNil(t, key.Y)
	})

	t.Run("generates unique keys", func(t *testing.T) {
		key1, err := GenerateKey()
		require.NoError(t, err)

		key2, err := GenerateKey()
		require.NoError(t, err)

		assert.NotEqual(t, key1.D.Bytes(), key2.D.Bytes())
	})
}

func TestAddress(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	addr := Address(key)
	assert.Len(t, addr.Bytes(), 20)
	assert.NotEqual(t, common.Address{}, addr)
	assert.Equal(t, addr, Address(key))

	s := AddressString(key)
	assert.True(t, strings.HasPrefix(s, "0x"))
	assert.Len(t, s, 42)
	assert.Equal(t, strings.ToLower(s), s)
}

func TestNormalizeAddress(t *testing.T) {
	assert.Equal(t,
		"0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed",
		NormalizeAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"),
	)
}

func TestPrivateKeyHexRoundTrip(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	plaintext := PrivateKeyToHex(key)
	assert.True(t, strings.HasPrefix(string(plaintext), "0x"))
	assert.Len(t, plaintext, 66)
	assert.Equal(t, strings.ToLower(string(plaintext)), string(plaintext))

	restored, err := HexToPrivateKey(plaintext)
	require.NoError(t, err)
	assert.Equal(t, key.D.Bytes(), restored.D.Bytes())
	assert.Equal(t, Address(key), Address(restored))
}

func TestHexToPrivateKey(t *testing.T) {
	t.Run("accepts unprefixed hex", func(t *testing.T) {
		key, err := HexToPrivateKey([]byte("4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"))
		require.NoError(t, err)
		assert.Equal(t, "0x2c7536e3605d9c16a7a3d7b1898e529396a65c23", AddressString(key))
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := HexToPrivateKey([]byte("0xnothex"))
		assert.Error(t, err)
	})

	t.Run("rejects short key", func(t *testing.T) {
		_, err := HexToPrivateKey([]byte("0x1234"))
		assert.Error(t, err)
	})
}

func TestZero(t *testing.T) {
	b := []byte{1, 2, 3, 4}
	Zero(b)
	assert.Equal(t, []byte{0, 0, 0, 0}, b)

	key, err := GenerateKey()
	require.NoError(t, err)
	ZeroKey(key)
	assert.Equal(t, int64(0), key.D.Int64())

	assert.NotPanics(t, func() { ZeroKey(nil) })
}
