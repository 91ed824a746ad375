package types

import (
	"encoding/binary"
	"fmt"
)

// SerializedResultSize is the size of the attested payload: round id,
// votes for and votes against as big-endian uint32.
const SerializedResultSize = 12

// VoteResult is the open result of a finished round.
type VoteResult struct {
	RoundID      uint32  `json:"roundId"          cbor:"0,keyasint,omitempty"`
	VotesFor     uint32  `json:"votesFor"         cbor:"1,keyasint,omitempty"`
	VotesAgainst uint32  `json:"votesAgainst"     cbor:"2,keyasint,omitempty"`
	Proof        *string `json:"proof,omitempty"  cbor:"3,keyasint,omitempty"`
}

// Finalized reports whether the attestation proof has been stored.
func (r *VoteResult) Finalized() bool {
	return r.Proof != nil
}

// TotalVotes returns the number of votes counted in the round.
func (r *VoteResult) TotalVotes() uint64 {
	return uint64(r.VotesFor) + uint64(r.VotesAgainst)
}

// Serialize encodes the result in the layout produced by Solidity's
// abi.encodePacked(uint32, uint32, uint32). The proof is not included.
func (r *VoteResult) Serialize() []byte {
	out := make([]byte, SerializedResultSize)
	binary.BigEndian.PutUint32(out[0:4], r.RoundID)
	binary.BigEndian.PutUint32(out[4:8], r.VotesFor)
	binary.BigEndian.PutUint32(out[8:12], r.VotesAgainst)
	return out
}

// DeserializeVoteResult decodes the output of Serialize.
func DeserializeVoteResult(data []byte) (*VoteResult, error) {
	if len(data) != SerializedResultSize {
		return nil, fmt.Errorf("invalid serialized result length: %d", len(data))
	}
	return &VoteResult{
		RoundID:      binary.BigEndian.Uint32(data[0:4]),
		VotesFor:     binary.BigEndian.Uint32(data[4:8]),
		VotesAgainst: binary.BigEndian.Uint32(data[8:12]),
	}, nil
}

// Clone returns a deep copy of the result.
func (r *VoteResult) Clone() *VoteResult {
	c := *r
	if r.Proof != nil {
		p := *r.Proof
		c.Proof = &p
	}
	return &c
}

// Equal reports whether both results hold the same counts and proof.
func (r *VoteResult) Equal(o *VoteResult) bool {
	if r == nil || o == nil {
		return r == o
	}
	if r.RoundID != o.RoundID || r.VotesFor != o.VotesFor || r.VotesAgainst != o.VotesAgainst {
		return false
	}
	if r.Proof == nil || o.Proof == nil {
		return r.Proof == o.Proof
	}
	return *r.Proof == *o.Proof
}
