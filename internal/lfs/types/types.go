// Package types holds the small value types shared by every layer of the decoder.
package types

import "fmt"

// Block is the index of a block on the device
type Block uint32

// NoBlock is the erased-flash sentinel used for absent pointers
const NoBlock Block = 0xFFFFFFFF

// NoID marks tags that do not belong to an entry
const NoID uint16 = 0x3FF

// Pair is the two redundant blocks of a metadata pair
type Pair [2]Block

// RootPair is the default location of the root metadata pair
var RootPair = Pair{0, 1}

// IsNull reports whether either half of the pair is the unset sentinel
func (p Pair) IsNull() bool {
	return p[0] == NoBlock || p[1] == NoBlock
}

// Key returns the pair in canonical order so {a,b} and {b,a} compare equal
func (p Pair) Key() Pair {
	if p[1] < p[0] {
		return Pair{p[1], p[0]}
	}
	return p
}

// Equal compares two pairs as unordered sets
func (p Pair) Equal(o Pair) bool {
	return p.Key() == o.Key()
}

// Swap returns the pair with its halves exchanged
func (p Pair) Swap() Pair {
	return Pair{p[1], p[0]}
}

func (p Pair) String() string {
	return fmt.Sprintf("{0x%x, 0x%x}", uint32(p[0]), uint32(p[1]))
}

// MarshalText renders the pair the way String does, so structured reports stay readable
func (p Pair) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// SeqMoreRecent reports whether revision a is newer than b. The comparison is on the
// signed distance so it survives counter wraparound; at the antipodal point
// (a-b == 0x80000000) the answer is arbitrary.
func SeqMoreRecent(a, b uint32) bool {
	return int32(a-b) > 0
}
