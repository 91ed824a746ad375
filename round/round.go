// Package round implements the state machine of the secret ballot. Every
// trigger is handled by a pure transition over an explicitly passed State
// and a fresh view of the engine registry, returning the next state and the
// requests for the engine:
//
//	(state, view, message) -> (state, requests)
//
// The lifecycle of a round is: votes are cast while the engine is idle,
// anyone starts the counting, the engine reports the computation complete,
// the tally is opened, the result is built and sent for attestation, and
// once attested the proof is stored, the round id advances and every secret
// variable of the finished round is deleted.
package round

import (
	"fmt"

	"github.com/vocdoni/secret-ballot/attestation"
	"github.com/vocdoni/secret-ballot/registry"
	"github.com/vocdoni/secret-ballot/tally"
	"github.com/vocdoni/secret-ballot/types"
)

// State is the open state of the ballot.
type State struct {
	// CurrentRoundID starts at 1 and grows by one every finalized round.
	CurrentRoundID uint32 `json:"currentRoundId" cbor:"0,keyasint,omitempty"`
	// Results is ordered by round id. Only the entry of the current round
	// may lack a proof.
	Results []*types.VoteResult `json:"results" cbor:"1,keyasint,omitempty"`
}

// Initialize returns the state of a fresh ballot: round 1 and no results.
func Initialize() *State {
	return &State{
		CurrentRoundID: types.FirstRoundID,
		Results:        []*types.VoteResult{},
	}
}

// Clone returns a deep copy of the state.
func (s *State) Clone() *State {
	c := &State{
		CurrentRoundID: s.CurrentRoundID,
		Results:        make([]*types.VoteResult, 0, len(s.Results)),
	}
	for _, r := range s.Results {
		c.Results = append(c.Results, r.Clone())
	}
	return c
}

// Equal reports whether both states hold the same round and results.
func (s *State) Equal(o *State) bool {
	if s.CurrentRoundID != o.CurrentRoundID || len(s.Results) != len(o.Results) {
		return false
	}
	for i := range s.Results {
		if !s.Results[i].Equal(o.Results[i]) {
			return false
		}
	}
	return true
}

// Result returns the result of the given round, if any.
func (s *State) Result(roundID uint32) (*types.VoteResult, bool) {
	for _, r := range s.Results {
		if r.RoundID == roundID {
			return r, true
		}
	}
	return nil, false
}

// Transition applies msg to st. On success it returns the new state and the
// requests to issue to the engine; st is never modified. On error the
// returned state is nil and nothing must be issued.
func Transition(st *State, view *registry.View, msg Message) (*State, []Change, error) {
	if st == nil || view == nil {
		return nil, nil, fmt.Errorf("nil state or view")
	}
	switch m := msg.(type) {
	case CastVote:
		return castVote(st, view, m)
	case StartCounting:
		return startCounting(st, view)
	case ComputeComplete:
		return computeComplete(st, m)
	case VariablesOpened:
		return variablesOpened(st, view, m)
	case AttestationComplete:
		return attestationComplete(st, view, m)
	default:
		return nil, nil, fmt.Errorf("%w: %T", ErrUnknownMessage, msg)
	}
}

// castVote admits the secret vote of the caller for the current round. The
// duplicate check runs against the pending and confirmed inputs of the live
// view, so two submissions of the same identity cannot both be admitted.
func castVote(st *State, view *registry.View, m CastVote) (*State, []Change, error) {
	if m.RoundID != st.CurrentRoundID {
		return nil, nil, fmt.Errorf("%w: vote issued for round %d, current round is %d",
			ErrRoundMismatch, m.RoundID, st.CurrentRoundID)
	}
	if view.Phase != types.PhaseIdle {
		return nil, nil, fmt.Errorf("%w: vote casting requires phase %s, but was %s",
			ErrPhase, types.PhaseIdle, view.Phase)
	}
	if view.HasOwner(m.Caller) {
		return nil, nil, fmt.Errorf("%w: %s already voted in round %d",
			ErrDuplicateVoter, m.Caller.Hex(), st.CurrentRoundID)
	}
	return st.Clone(), []Change{AcceptInput{
		Owner: m.Caller,
		Def:   types.VoteInputDef(),
	}}, nil
}

func startCounting(st *State, view *registry.View) (*State, []Change, error) {
	if view.Phase != types.PhaseIdle {
		return nil, nil, fmt.Errorf("%w: counting must start from phase %s, but was %s",
			ErrPhase, types.PhaseIdle, view.Phase)
	}
	return st.Clone(), []Change{StartComputation{
		Outputs: []types.VarMetadata{{Kind: types.VarKindTallyResult}},
	}}, nil
}

func computeComplete(st *State, m ComputeComplete) (*State, []Change, error) {
	if len(m.Outputs) != 1 {
		return nil, nil, fmt.Errorf("%w: expected 1 output variable, got %d",
			ErrEngineContract, len(m.Outputs))
	}
	return st.Clone(), []Change{OpenVariables{
		IDs: []types.VarID{m.Outputs[0]},
	}}, nil
}

func variablesOpened(st *State, view *registry.View, m VariablesOpened) (*State, []Change, error) {
	if len(m.Opened) != 1 {
		return nil, nil, fmt.Errorf("%w: expected 1 opened variable, got %d",
			ErrEngineContract, len(m.Opened))
	}
	if _, exists := st.Result(st.CurrentRoundID); exists {
		return nil, nil, fmt.Errorf("%w: result of round %d already built",
			ErrEngineContract, st.CurrentRoundID)
	}
	result, err := buildResult(st.CurrentRoundID, view, m.Opened[0])
	if err != nil {
		return nil, nil, err
	}
	next := st.Clone()
	next.Results = append(next.Results, result)
	return next, []Change{Attest{Data: result.Serialize()}}, nil
}

// buildResult reads the opened tally and derives the votes against from the
// number of confirmed vote variables.
func buildResult(roundID uint32, view *registry.View, id types.VarID) (*types.VoteResult, error) {
	sv, ok := view.Variable(id)
	if !ok {
		return nil, fmt.Errorf("%w: opened variable %d not found", ErrEngineContract, id)
	}
	if sv.Metadata.Kind != types.VarKindTallyResult {
		return nil, fmt.Errorf("%w: opened variable %d is a %s", ErrEngineContract, id, sv.Metadata.Kind)
	}
	if !sv.Opened() {
		return nil, fmt.Errorf("%w: variable %d is not opened", ErrEngineContract, id)
	}
	votesFor, err := tally.DecodeCount(sv.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEngineContract, err)
	}
	total := view.Count(types.VarKindVote)
	if votesFor > total {
		return nil, fmt.Errorf("%w: %d votes for but only %d votes cast",
			ErrEngineContract, votesFor, total)
	}
	return &types.VoteResult{
		RoundID:      roundID,
		VotesFor:     votesFor,
		VotesAgainst: total - votesFor,
	}, nil
}

// attestationComplete stores the proof on the current result, advances the
// round and releases every secret variable of the finished round.
func attestationComplete(st *State, view *registry.View, m AttestationComplete) (*State, []Change, error) {
	att, ok := view.Attestation(m.ID)
	if !ok {
		return nil, nil, fmt.Errorf("%w: attestation %d not found", ErrEngineContract, m.ID)
	}
	next := st.Clone()
	result, ok := next.Result(next.CurrentRoundID)
	if !ok {
		return nil, nil, fmt.Errorf("%w: no result for round %d", ErrEngineContract, next.CurrentRoundID)
	}
	if result.Finalized() {
		return nil, nil, fmt.Errorf("%w: result of round %d already has a proof",
			ErrEngineContract, next.CurrentRoundID)
	}
	proof := attestation.FormatProof(att.Signatures)
	result.Proof = &proof
	next.CurrentRoundID++
	return next, []Change{OutputComplete{Delete: view.IDs()}}, nil
}
