package round

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/secret-ballot/types"
)

// Message is a trigger re-entering the state machine: a user action or an
// engine callback.
type Message interface {
	isMessage()
	// Name is used for logging.
	Name() string
}

// CastVote is sent when a voter submits a secret vote. The secret bit never
// reaches the state machine, only the identity of the caller and the round
// the vote was issued for.
type CastVote struct {
	Caller  common.Address
	RoundID uint32
}

// StartCounting asks the engine to run the counting computation. Anyone can
// send it.
type StartCounting struct{}

// ComputeComplete is delivered by the engine when the computation ends.
type ComputeComplete struct {
	Outputs []types.VarID
}

// VariablesOpened is delivered by the engine once requested variables are
// declassified.
type VariablesOpened struct {
	Opened []types.VarID
}

// AttestationComplete is delivered by the engine once every node signed
// the requested payload.
type AttestationComplete struct {
	ID types.AttestationID
}

func (CastVote) isMessage()            {}
func (StartCounting) isMessage()       {}
func (ComputeComplete) isMessage()     {}
func (VariablesOpened) isMessage()     {}
func (AttestationComplete) isMessage() {}

func (CastVote) Name() string            { return "castVote" }
func (StartCounting) Name() string       { return "startCounting" }
func (ComputeComplete) Name() string     { return "computeComplete" }
func (VariablesOpened) Name() string     { return "variablesOpened" }
func (AttestationComplete) Name() string { return "attestationComplete" }

// Change is a request issued to the engine as the outcome of a transition.
type Change interface {
	isChange()
}

// AcceptInput tells the engine to accept the pending secret input of Owner
// using Def.
type AcceptInput struct {
	Owner common.Address
	Def   types.InputDef
}

// StartComputation starts the counting computation. Outputs declares the
// metadata of the variables it will produce.
type StartComputation struct {
	Outputs []types.VarMetadata
}

// OpenVariables requests the declassification of the given variables.
type OpenVariables struct {
	IDs []types.VarID
}

// Attest requests a signature of every attestation node over Data.
type Attest struct {
	Data []byte
}

// OutputComplete deletes the given variables and moves the engine back to
// the idle phase.
type OutputComplete struct {
	Delete []types.VarID
}

func (AcceptInput) isChange()      {}
func (StartComputation) isChange() {}
func (OpenVariables) isChange()    {}
func (Attest) isChange()           {}
func (OutputComplete) isChange()   {}
