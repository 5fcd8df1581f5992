package defines

import (
	"encoding/base64"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ConvBase64ToUTF8 decodes a base64 payload into a UTF-8 string.
//
// Both padded and unpadded standard encodings are accepted since producers
// in the cluster are not consistent about padding.
func ConvBase64ToUTF8(encoded string) (string, error) {
	encoded = strings.TrimSpace(encoded)

	enc := base64.StdEncoding
	if len(encoded)%4 != 0 {
		enc = base64.RawStdEncoding
	}

	b, err := enc.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode base64: %w", err)
	}
	if !utf8.Valid(b) {
		return "", fmt.Errorf("decoded payload is not valid UTF-8")
	}
	return string(b), nil
}
