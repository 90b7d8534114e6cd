// Package codec provides the round-tripping byte-string codec spec.md §1
// requires for BuildState persistence without prescribing its shape. This
// implementation uses jsoniter as a faster, reflection-light drop-in for
// encoding/json, since a single commit may serialize thousands of input
// records.
package codec

import jsoniter "github.com/json-iterator/go"

var api = jsoniter.ConfigCompatibleWithStandardLibrary

// Marshal encodes v to its byte-string representation.
func Marshal(v any) ([]byte, error) {
	return api.Marshal(v)
}

// Unmarshal decodes data into v. A malformed or truncated payload is
// reported as-is; callers translate this into the engine's Decode error
// kind and treat the state as absent (spec.md §7).
func Unmarshal(data []byte, v any) error {
	return api.Unmarshal(data, v)
}
