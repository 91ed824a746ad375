package round

import "errors"

var (
	// ErrPhase is returned when an action is invoked outside its required
	// phase. Nothing changes and the caller may retry later.
	ErrPhase = errors.New("phase error")
	// ErrRoundMismatch is returned when a vote was issued for a round other
	// than the current one.
	ErrRoundMismatch = errors.New("round mismatch")
	// ErrDuplicateVoter is returned when an identity tries to vote twice in
	// the same round.
	ErrDuplicateVoter = errors.New("duplicate voter")
	// ErrEngineContract signals that the engine delivered data breaking its
	// contract. The triggering transition is aborted and the round cannot
	// progress.
	ErrEngineContract = errors.New("engine contract violation")
	// ErrUnknownMessage is returned for messages the state machine does not
	// handle.
	ErrUnknownMessage = errors.New("unknown message")
)
