package types

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// VarID is the opaque handle the engine assigns to every secret variable.
type VarID uint32

// VarKind tags a secret variable with its role in the ballot.
type VarKind uint8

const (
	// VarKindVote marks a variable submitted by a voter.
	VarKindVote VarKind = 1
	// VarKindTallyResult marks the output of the counting computation.
	VarKindTallyResult VarKind = 2
)

// String implements fmt.Stringer.
func (k VarKind) String() string {
	switch k {
	case VarKindVote:
		return "vote"
	case VarKindTallyResult:
		return "tallyResult"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// VarMetadata is the open metadata attached to a secret variable.
type VarMetadata struct {
	Kind VarKind `json:"kind" cbor:"0,keyasint,omitempty"`
}

// SecretVariable is the metadata view of a value held by the engine. Owner
// is the zero address for computed variables. Data is nil until the
// variable has been opened.
type SecretVariable struct {
	ID       VarID          `json:"id"             cbor:"0,keyasint,omitempty"`
	Owner    common.Address `json:"owner"          cbor:"1,keyasint,omitempty"`
	Metadata VarMetadata    `json:"metadata"       cbor:"2,keyasint,omitempty"`
	Data     HexBytes       `json:"data,omitempty" cbor:"3,keyasint,omitempty"`
}

// Opened reports whether the plaintext of the variable is readable.
func (v *SecretVariable) Opened() bool {
	return v.Data != nil
}

// VoteBitLength is the bit size of a secret vote: 0 is against, 1 is for.
const VoteBitLength = 1

// InputDef tells the engine how to accept a secret input.
type InputDef struct {
	Seal       bool        `json:"seal"`
	Metadata   VarMetadata `json:"metadata"`
	BitLengths []uint32    `json:"bitLengths"`
}

// TotalBits returns the sum of the expected bit lengths.
func (d *InputDef) TotalBits() uint32 {
	total := uint32(0)
	for _, l := range d.BitLengths {
		total += l
	}
	return total
}

// VoteInputDef returns the definition used for every secret vote.
func VoteInputDef() InputDef {
	return InputDef{
		Seal:       false,
		Metadata:   VarMetadata{Kind: VarKindVote},
		BitLengths: []uint32{VoteBitLength},
	}
}
