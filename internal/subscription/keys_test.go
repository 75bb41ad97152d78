package subscription

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeServerKey_UncompressedPointLength(t *testing.T) {
	raw, err := DecodeServerKey(testServerKey)
	require.NoError(t, err)

	// An uncompressed P-256 point is 65 bytes and starts with 0x04.
	assert.Len(t, raw, 65)
	assert.Equal(t, byte(0x04), raw[0])
}

func TestDecodeServerKey_RoundTrip(t *testing.T) {
	raw, err := DecodeServerKey(testServerKey)
	require.NoError(t, err)

	// Encoding back with the URL-safe alphabet, unpadded, must reproduce
	// the original key string.
	assert.Equal(t, testServerKey, base64.RawURLEncoding.EncodeToString(raw))
}

func TestDecodeServerKey_HandlesURLSafeAlphabet(t *testing.T) {
	// 0xfb 0xef 0xbe encodes to "----" in the URL-safe alphabet and "++++"
	// in the standard one, so this exercises the alphabet translation.
	raw := []byte{0xfb, 0xef, 0xbe}
	urlSafe := base64.RawURLEncoding.EncodeToString(raw)

	decoded, err := DecodeServerKey(urlSafe)
	require.NoError(t, err)
	assert.Equal(t, raw, decoded)
}

func TestDecodeServerKey_Invalid(t *testing.T) {
	_, err := DecodeServerKey("not*base64*at*all")
	assert.Error(t, err)
}

func TestEncodeKeyMaterial_RoundTrip(t *testing.T) {
	raw := []byte{0x04, 0xde, 0xad, 0xbe, 0xef, 0x00, 0x7f}
	encoded := EncodeKeyMaterial(raw)

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	assert.Equal(t, raw, decoded)
}
