package subscription

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// DecodeServerKey converts the VAPID public key, supplied as URL-safe base64
// without padding, into the raw bytes the platform subscribe call requires:
// pad to a multiple of 4, translate the URL-safe alphabet back to standard,
// then decode.
func DecodeServerKey(key string) ([]byte, error) {
	padded := key
	if rem := len(padded) % 4; rem != 0 {
		padded += strings.Repeat("=", 4-rem)
	}
	padded = strings.ReplaceAll(padded, "-", "+")
	padded = strings.ReplaceAll(padded, "_", "/")

	raw, err := base64.StdEncoding.DecodeString(padded)
	if err != nil {
		return nil, fmt.Errorf("decoding application server key: %w", err)
	}
	return raw, nil
}

// EncodeKeyMaterial converts raw subscriber key bytes into the standard
// (non-URL-safe) base64 form the registry's wire format expects.
func EncodeKeyMaterial(raw []byte) string {
	return base64.StdEncoding.EncodeToString(raw)
}
