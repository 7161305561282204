// Package value models the data a pocketdb store can hold: a closed variant
// over null, booleans, numbers, strings, arrays and string-keyed objects.
// Restricting values to this shape is what makes every stored value
// serializable into the snapshot format by construction; the only escape
// hatch the type system cannot close is non-finite numbers, which Validate
// rejects.
//
// The package focuses on:
//   - A compact Value type whose zero value is null
//   - Lossless JSON (un)marshalling for the snapshot codec
//   - Literal parsing for the interactive shell (JSON first, bare string
//     as fallback)
package value
