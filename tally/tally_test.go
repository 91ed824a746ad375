package tally

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestCountVotes(t *testing.T) {
	c := qt.New(t)

	// 0,0,1,1,0,0 => 2
	inputs := [][]byte{{0}, {0}, {1}, {1}, {0}, {0}}
	c.Assert(CountVotes(inputs), qt.Equals, uint32(2))

	// order independent
	reversed := [][]byte{{0}, {0}, {1}, {1}, {0}, {0}}
	for i, j := 0, len(reversed)-1; i < j; i, j = i+1, j-1 {
		reversed[i], reversed[j] = reversed[j], reversed[i]
	}
	c.Assert(CountVotes(reversed), qt.Equals, uint32(2))

	c.Assert(CountVotes(nil), qt.Equals, uint32(0))
	c.Assert(CountVotes([][]byte{{1}, {1}, {1}}), qt.Equals, uint32(3))
	c.Assert(CountVotes([][]byte{{}, {1}}), qt.Equals, uint32(1))
}

func TestCountEncoding(t *testing.T) {
	c := qt.New(t)

	c.Assert(EncodeCount(2), qt.DeepEquals, []byte{2, 0, 0, 0})
	c.Assert(EncodeCount(0x01020304), qt.DeepEquals, []byte{4, 3, 2, 1})

	n, err := DecodeCount([]byte{4, 3, 2, 1})
	c.Assert(err, qt.IsNil)
	c.Assert(n, qt.Equals, uint32(0x01020304))

	_, err = DecodeCount([]byte{1, 0})
	c.Assert(err, qt.ErrorMatches, "invalid tally length 2, expected 4")

	c.Assert(VoteBit(true), qt.DeepEquals, []byte{1})
	c.Assert(VoteBit(false), qt.DeepEquals, []byte{0})
}
