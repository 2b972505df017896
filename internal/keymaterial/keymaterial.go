// Package keymaterial generates the shared key file MongoDB nodes use to
// authenticate each other within a replica set or sharded cluster.
package keymaterial

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
)

// keyLength is the number of random bytes generated before base64 encoding.
// 24 raw bytes encode to 32 base64 characters, comfortably within
// MongoDB's [6, 1024] character constraint on keyFile contents.
const keyLength = 24

// Create writes a random base64-encoded key to path with permissions
// restricted to the owner, and returns the key. Every node in the
// deployment is later started with --keyFile pointing at the same path.
func Create(path string) (string, error) {
	raw := make([]byte, keyLength)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate key material: %w", err)
	}
	key := base64.StdEncoding.EncodeToString(raw)

	if err := os.WriteFile(path, []byte(key), 0600); err != nil {
		return "", fmt.Errorf("write key file %s: %w", path, err)
	}
	return key, nil
}
