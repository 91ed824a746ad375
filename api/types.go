package api

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/secret-ballot/storage"
	"github.com/vocdoni/secret-ballot/types"
)

// Vote is the request to cast a secret vote in the current round. The voter
// is identified by the address recovered from Signature, an Ethereum signed
// message over VoteSignatureMessage(RoundID, Vote).
type Vote struct {
	RoundID   uint32         `json:"roundId"`
	Vote      bool           `json:"vote"`
	Signature types.HexBytes `json:"signature"`
}

// VoteResponse is returned once a vote is admitted.
type VoteResponse struct {
	RoundID uint32         `json:"roundId"`
	Voter   common.Address `json:"voter"`
}

// Rounds is the response to the rounds request.
type Rounds struct {
	CurrentRoundID uint32              `json:"currentRoundId"`
	Phase          string              `json:"phase"`
	ResultsRoot    types.HexBytes      `json:"resultsRoot"`
	Results        []*types.VoteResult `json:"results"`
}

// Round is the response to a round request. Proof is the inclusion proof of
// the result in the results tree, present once the result is finalized.
type Round struct {
	Result *types.VoteResult    `json:"result"`
	Proof  *storage.ResultProof `json:"proof,omitempty"`
}

// Nodes lists the attestation node addresses.
type Nodes struct {
	Nodes []common.Address `json:"nodes"`
}

// VoteSignatureMessage returns the message a voter signs to cast a vote:
// the round id as 4 big-endian bytes followed by the vote as one byte.
func VoteSignatureMessage(roundID uint32, vote bool) []byte {
	msg := make([]byte, 5)
	binary.BigEndian.PutUint32(msg, roundID)
	if vote {
		msg[4] = 1
	}
	return msg
}
