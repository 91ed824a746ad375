// Package tally holds the counting computation the engine evaluates over
// the secret votes of a round, and the encoding of its output.
package tally

import (
	"encoding/binary"
	"fmt"
)

// CountSize is the byte size of the tally output.
const CountSize = 4

// CountVotes returns how many inputs hold a set vote bit. Each input is the
// engine representation of a 1-bit secret: the lowest bit of its first
// byte. Order does not matter and empty inputs count as against.
func CountVotes(inputs [][]byte) uint32 {
	count := uint32(0)
	for _, in := range inputs {
		if len(in) > 0 && in[0]&1 == 1 {
			count++
		}
	}
	return count
}

// EncodeCount returns the little-endian representation the engine uses for
// the tally result variable.
func EncodeCount(count uint32) []byte {
	out := make([]byte, CountSize)
	binary.LittleEndian.PutUint32(out, count)
	return out
}

// DecodeCount reads a little-endian tally result.
func DecodeCount(data []byte) (uint32, error) {
	if len(data) != CountSize {
		return 0, fmt.Errorf("invalid tally length %d, expected %d", len(data), CountSize)
	}
	return binary.LittleEndian.Uint32(data), nil
}

// VoteBit encodes a boolean vote as the engine input value.
func VoteBit(vote bool) []byte {
	if vote {
		return []byte{1}
	}
	return []byte{0}
}
