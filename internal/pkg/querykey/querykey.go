// Package querykey derives the per-location alias used to correlate batched
// query results back to their source locations. The same mapping is applied
// when building the batched request and when reading back named results, so
// no reverse decoding is ever needed.
package querykey

import "strings"

// Prefix guarantees the alias never starts with a digit, which would make
// it invalid as a query alias token.
const Prefix = "Q"

// Encode turns a location guid into a batch-safe alias: hyphens are
// stripped (they are separator characters in the alias grammar) and the
// fixed prefix is prepended. Deterministic and injective for identifiers
// that differ in more than hyphen placement, which holds for UUIDs and
// other fixed-layout guids.
func Encode(guid string) string {
	return Prefix + strings.ReplaceAll(guid, "-", "")
}
