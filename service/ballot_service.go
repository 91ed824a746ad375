package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/secret-ballot/engine"
	"github.com/vocdoni/secret-ballot/log"
	"github.com/vocdoni/secret-ballot/round"
	"github.com/vocdoni/secret-ballot/storage"
	"github.com/vocdoni/secret-ballot/tally"
	"github.com/vocdoni/secret-ballot/types"
)

// userRequest is a user action waiting to be handled by the loop.
type userRequest struct {
	msg    round.Message
	secret []byte
	done   chan error
}

// BallotService owns the ballot state. A single goroutine handles user
// actions and engine callbacks one at a time, so transitions never run
// concurrently and each one sees the effects of the previous.
type BallotService struct {
	stg    *storage.Storage
	engine *engine.Engine

	stateLock sync.RWMutex
	state     *round.State

	requests chan *userRequest

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewBallot creates the ballot service, restoring the state found in the
// storage or starting a fresh ballot.
func NewBallot(stg *storage.Storage, eng *engine.Engine) (*BallotService, error) {
	if stg == nil || eng == nil {
		return nil, fmt.Errorf("storage and engine are required")
	}
	st, err := stg.State()
	switch {
	case errors.Is(err, storage.ErrNotFound):
		st = round.Initialize()
		log.Infow("starting new ballot", "round", st.CurrentRoundID)
	case err != nil:
		return nil, fmt.Errorf("could not load ballot state: %w", err)
	default:
		if st, err = restore(stg, st); err != nil {
			return nil, err
		}
		log.Infow("ballot state restored", "round", st.CurrentRoundID, "results", len(st.Results))
	}
	return &BallotService{
		stg:      stg,
		engine:   eng,
		state:    st,
		requests: make(chan *userRequest),
	}, nil
}

// restore brings a stored state back to a round the engine can start:
// the unproven result of the current round is removed from the state and
// the storage.
func restore(stg *storage.Storage, st *round.State) (*round.State, error) {
	next := discardUnfinished(st)
	if next == st {
		return st, nil
	}
	if err := stg.DiscardResult(st.CurrentRoundID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("could not discard unfinished result: %w", err)
	}
	return next, nil
}

// discardUnfinished drops the unproven result of the current round. The
// engine does not survive a restart, so the attestation it was waiting for
// will never arrive and the round is counted again. A finalized result of
// the current round means the round advance was lost, the round moves on.
func discardUnfinished(st *round.State) *round.State {
	r, ok := st.Result(st.CurrentRoundID)
	if !ok {
		return st
	}
	next := st.Clone()
	if r.Finalized() {
		log.Warnw("advancing finalized round", "round", st.CurrentRoundID)
		next.CurrentRoundID++
		return next
	}
	log.Warnw("discarding unfinished result", "round", st.CurrentRoundID)
	next.Results = next.Results[:len(next.Results)-1]
	return next
}

// Start launches the loop. It returns an error if the service is already
// running.
func (bs *BallotService) Start(ctx context.Context) error {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	if bs.cancel != nil {
		return fmt.Errorf("ballot service already running")
	}
	ctx, bs.cancel = context.WithCancel(ctx)
	bs.wg.Add(1)
	go bs.loop(ctx)
	return nil
}

// Stop halts the loop and waits for it to exit.
func (bs *BallotService) Stop() {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	if bs.cancel == nil {
		return
	}
	bs.cancel()
	bs.wg.Wait()
	bs.cancel = nil
}

// CastVote submits the secret vote of voter issued for roundID. It blocks
// until the vote is admitted or rejected; a roundID other than the current
// round fails with round.ErrRoundMismatch.
func (bs *BallotService) CastVote(ctx context.Context, voter common.Address, roundID uint32, vote bool) error {
	return bs.submit(ctx, &userRequest{
		msg:    round.CastVote{Caller: voter, RoundID: roundID},
		secret: tally.VoteBit(vote),
	})
}

// StartCounting triggers the counting of the current round.
func (bs *BallotService) StartCounting(ctx context.Context) error {
	return bs.submit(ctx, &userRequest{msg: round.StartCounting{}})
}

func (bs *BallotService) submit(ctx context.Context, req *userRequest) error {
	req.done = make(chan error, 1)
	select {
	case bs.requests <- req:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns a copy of the current ballot state.
func (bs *BallotService) State() *round.State {
	bs.stateLock.RLock()
	defer bs.stateLock.RUnlock()
	return bs.state.Clone()
}

// Phase returns the current engine phase.
func (bs *BallotService) Phase() types.Phase {
	return bs.engine.Phase()
}

// Nodes returns the addresses of the attestation nodes.
func (bs *BallotService) Nodes() []common.Address {
	return bs.engine.Nodes()
}

func (bs *BallotService) loop(ctx context.Context) {
	defer bs.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-bs.requests:
			req.done <- bs.handle(req.msg, req.secret)
		case msg := <-bs.engine.Events():
			if err := bs.handle(msg, nil); err != nil {
				log.Errorw(err, fmt.Sprintf("engine callback %s aborted", msg.Name()))
			}
		}
	}
}

// handle runs one transition and commits it: the new state is persisted
// before the engine receives any request, and transitions leaving the state
// untouched are not persisted at all. On error nothing is committed.
func (bs *BallotService) handle(msg round.Message, secret []byte) error {
	bs.stateLock.RLock()
	current := bs.state
	bs.stateLock.RUnlock()

	next, changes, err := round.Transition(current, bs.engine.View(), msg)
	if err != nil {
		return err
	}

	if !next.Equal(current) {
		if err := bs.stg.SetState(current, next); err != nil {
			return fmt.Errorf("could not persist state: %w", err)
		}
		bs.stateLock.Lock()
		bs.state = next
		bs.stateLock.Unlock()
	}

	// inputs carry the secret and go straight to the engine
	var requests []round.Change
	for _, ch := range changes {
		in, ok := ch.(round.AcceptInput)
		if !ok {
			requests = append(requests, ch)
			continue
		}
		if _, err := bs.engine.Input(in.Owner, in.Def, secret); err != nil {
			return fmt.Errorf("engine rejected input: %w", err)
		}
	}
	if err := bs.engine.Apply(requests); err != nil {
		return fmt.Errorf("engine rejected requests: %w", err)
	}
	log.Debugw("transition committed", "message", msg.Name(), "round", next.CurrentRoundID, "requests", len(requests))
	return nil
}
