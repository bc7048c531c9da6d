// Package checksum computes and compares SHA256 digests of cached scripts.
package checksum

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"strings"
)

// Prefix is the algorithm tag carried by manifest checksum strings.
const Prefix = "sha256:"

// HashBytes computes the SHA256 hash of a byte slice.
func HashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("sha256:%x", h)
}

// HashFile computes the SHA256 hash of a file in one streaming pass.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return fmt.Sprintf("sha256:%x", h.Sum(nil)), nil
}

// Normalize strips an optional algorithm prefix and lowercases the hex digest
// so digests from different producers compare equal.
func Normalize(digest string) string {
	d := strings.TrimSpace(digest)
	d = strings.TrimPrefix(d, Prefix)
	return strings.ToLower(d)
}

// Verify recomputes the file's digest and compares it against the expected
// digest string. A mismatch is a soft signal: the caller decides whether to
// retry, discard, or surface an error.
func Verify(path, expected string) (bool, error) {
	actual, err := HashFile(path)
	if err != nil {
		return false, err
	}
	return Normalize(actual) == Normalize(expected), nil
}
