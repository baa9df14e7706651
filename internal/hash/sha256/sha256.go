// Package sha256 adapts crypto/sha256 to the catalog.Hasher contract.
// Digests name attachment blobs and detect content changes across
// crawls.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hasher produces hex-encoded SHA-256 digests.
type Hasher struct{}

// New returns a Hasher.
func New() *Hasher { return &Hasher{} }

// Hash returns the hex digest of data.
func (*Hasher) Hash(data []byte) (string, error) {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
