package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/cespare/xxhash/v2"
)

// Digester is a fresh fingerprint accumulator handed out by
// BuildContext.NewDigester. It hashes arbitrary byte streams with a
// non-cryptographic, high-throughput algorithm: the engine only needs a
// change detector, not a security boundary, for per-file content digests.
//
// From spec.md §2: "Digester + path utilities | 7% | content fingerprint,
// path normalization".
type Digester struct {
	h *xxhash.Digest
}

// NewDigester returns a ready-to-use Digester.
func NewDigester() *Digester {
	return &Digester{h: xxhash.New()}
}

// Write feeds bytes into the digest. It never returns an error.
func (d *Digester) Write(p []byte) (int, error) {
	return d.h.Write(p)
}

// WriteString feeds a string into the digest without an intermediate copy.
func (d *Digester) WriteString(s string) (int, error) {
	return d.h.WriteString(s)
}

// Sum returns the accumulated digest as a lowercase hex string.
func (d *Digester) Sum() string {
	return hex.EncodeToString(d.h.Sum(nil))
}

// Reset clears the accumulator so the Digester can be reused.
func (d *Digester) Reset() {
	d.h.Reset()
}

// PathDigest computes the sha256 hex digest of s. It is used to name the
// state file from an output directory and builder id (spec.md §4.1, §6),
// where a wider, more collision-resistant identifier is preferred over the
// Digester's fast content hash because it names a shared on-disk artifact.
func PathDigest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// BytesDigest is PathDigest for raw bytes: the sha256 hex digest of b.
func BytesDigest(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
