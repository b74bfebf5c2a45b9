package bundle

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// chunkSize bounds memory use while hashing arbitrarily large spec files.
const chunkSize = 64 * 1024

// HashFile computes the SHA-256 content hash of the file at path, streamed
// in fixed-size chunks, and returns it as 64 lowercase hex characters (spec
// C6). It is the canonical identity of a spec: two files producing the same
// hash are treated as equivalent inputs to the analyzer and bundle service.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("bundle: spec file not found: %s", path)
		}
		return "", fmt.Errorf("bundle: open spec file: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", fmt.Errorf("bundle: read spec file: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
