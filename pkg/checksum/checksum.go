// Package checksum computes SHA-256 digests for archived registration objects.
// Storage backends record the digest alongside each object and the archive
// sink verifies it after upload.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

// Sum returns the lowercase hex SHA-256 of data
func Sum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Stream hashes everything read from r and returns the digest together with
// the number of bytes consumed.
func Stream(r io.Reader) (string, int64, error) {
	h := sha256.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return "", n, fmt.Errorf("failed to calculate checksum: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// Matches reports whether data hashes to expected. Backends that echo the
// digest through object metadata may change its case.
func Matches(data []byte, expected string) bool {
	return expected != "" && strings.EqualFold(Sum(data), expected)
}
