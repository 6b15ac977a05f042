package wamp

import "encoding/base64"

// Blob is a binary payload carried inside WAMP args/kwargs. Text-only wire
// codecs (JSON) cannot represent raw bytes, so it is tunneled as a string
// with a reserved NUL prefix followed by base64 (spec.md §4.1).
type Blob []byte

// EncodeBlobString renders b as the reserved NUL+base64 string marker.
func EncodeBlobString(b Blob) string {
	return blobPrefix + base64.StdEncoding.EncodeToString(b)
}

// DecodeBlobString recognizes and decodes the reserved marker produced by
// EncodeBlobString. ok is false if s does not carry the marker.
func DecodeBlobString(s string) (b Blob, ok bool) {
	if len(s) == 0 || s[0] != blobPrefix[0] {
		return nil, false
	}
	decoded, err := base64.StdEncoding.DecodeString(s[1:])
	if err != nil {
		return nil, false
	}
	return Blob(decoded), true
}
