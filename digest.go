package incrementum

import "incrementum/internal/fingerprint"

// Digester is a fresh fingerprint accumulator returned by
// BuildContext.NewDigester (spec.md §4.3).
type Digester = fingerprint.Digester

// NewDigester returns a ready-to-use Digester, independent of any
// BuildContext — useful for a driver computing a configuration digest
// before a context even exists.
func NewDigester() *Digester {
	return fingerprint.NewDigester()
}
