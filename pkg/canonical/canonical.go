// Package canonical provides deterministic JSON serialization and
// content-addressed digests for scenario records. Two records with the same
// keys and values produce byte-identical serializations, and therefore the
// same digest, regardless of key insertion order.
package canonical

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// DigestKey is the reserved record key holding the computed digest. It is
// always excluded from digest computation to avoid self-reference.
const DigestKey = "_digest"

// Marshal serializes v as canonical JSON: map keys sorted, no extraneous
// whitespace, no HTML escaping. Returns a serialization error if v is not
// JSON-compatible.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("canonical marshal: %w", err)
	}
	// Encoder appends a trailing newline; strip it.
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// SHA256Hex returns the hex-encoded SHA-256 of b.
func SHA256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Digest computes the content digest of a record: the SHA-256 of its
// canonical JSON with the DigestKey entry excluded.
func Digest(record map[string]any) (string, error) {
	stripped := record
	if _, ok := record[DigestKey]; ok {
		stripped = make(map[string]any, len(record))
		for k, v := range record {
			if k == DigestKey {
				continue
			}
			stripped[k] = v
		}
	}
	b, err := Marshal(stripped)
	if err != nil {
		return "", err
	}
	return SHA256Hex(b), nil
}
