package service

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/secret-ballot/attestation"
	"github.com/vocdoni/secret-ballot/engine"
	"github.com/vocdoni/secret-ballot/round"
	"github.com/vocdoni/secret-ballot/storage"
	"github.com/vocdoni/secret-ballot/types"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"
)

func newTestBallot(c *qt.C, nodes int) (*BallotService, *storage.Storage) {
	return newTestBallotWithDB(c, metadb.NewTest(c.TB), nodes)
}

func newTestBallotWithDB(c *qt.C, database db.Database, nodes int) (*BallotService, *storage.Storage) {
	keys, err := engine.NewNodes(nodes)
	c.Assert(err, qt.IsNil)
	eng, err := engine.New(engine.Config{Nodes: keys})
	c.Assert(err, qt.IsNil)
	store, err := storage.New(database)
	c.Assert(err, qt.IsNil)
	bs, err := NewBallot(store, eng)
	c.Assert(err, qt.IsNil)

	ctx, cancel := context.WithCancel(context.Background())
	c.Assert(eng.Start(ctx), qt.IsNil)
	c.Assert(bs.Start(ctx), qt.IsNil)
	c.Cleanup(func() {
		bs.Stop()
		eng.Stop()
		cancel()
	})
	return bs, store
}

func voter(i int) common.Address {
	return common.BytesToAddress([]byte{0xcc, byte(i >> 8), byte(i)})
}

// waitRound blocks until the ballot reaches the given round.
func waitRound(c *qt.C, bs *BallotService, roundID uint32) *round.State {
	deadline := time.Now().Add(20 * time.Second)
	for time.Now().Before(deadline) {
		st := bs.State()
		if st.CurrentRoundID >= roundID && bs.Phase() == types.PhaseIdle {
			return st
		}
		time.Sleep(20 * time.Millisecond)
	}
	c.Fatalf("round %d not reached", roundID)
	return nil
}

func TestBallotRound(t *testing.T) {
	c := qt.New(t)
	bs, store := newTestBallot(c, 3)
	ctx := context.Background()

	for i, v := range []bool{false, false, true, true, false, false} {
		c.Assert(bs.CastVote(ctx, voter(i), 1, v), qt.IsNil)
	}
	err := bs.CastVote(ctx, voter(2), 1, false)
	c.Assert(err, qt.ErrorIs, round.ErrDuplicateVoter)

	c.Assert(bs.StartCounting(ctx), qt.IsNil)
	st := waitRound(c, bs, 2)
	c.Assert(st.Results, qt.HasLen, 1)
	result := st.Results[0]
	c.Assert(result.VotesFor, qt.Equals, uint32(2))
	c.Assert(result.VotesAgainst, qt.Equals, uint32(4))
	c.Assert(result.Finalized(), qt.IsTrue)
	c.Assert(attestation.Verify(result, bs.Nodes(), 3), qt.IsNil)

	// persisted and provable
	stored, err := store.Result(1)
	c.Assert(err, qt.IsNil)
	c.Assert(stored, qt.DeepEquals, result)
	proof, err := store.ResultProof(1)
	c.Assert(err, qt.IsNil)
	ok, err := storage.VerifyResultProof(result, proof)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsTrue)

	// the voter may vote again in the new round
	c.Assert(bs.CastVote(ctx, voter(2), 2, true), qt.IsNil)
}

func TestBallotPhaseErrors(t *testing.T) {
	c := qt.New(t)
	keys, err := engine.NewNodes(1)
	c.Assert(err, qt.IsNil)
	eng, err := engine.New(engine.Config{Nodes: keys})
	c.Assert(err, qt.IsNil)
	store, err := storage.New(metadb.NewTest(t))
	c.Assert(err, qt.IsNil)
	bs, err := NewBallot(store, eng)
	c.Assert(err, qt.IsNil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Assert(bs.Start(ctx), qt.IsNil)
	defer bs.Stop()

	// the engine worker is not running yet, so the computation stays
	// reserved and the engine holds the running phase
	c.Assert(bs.CastVote(ctx, voter(1), 1, true), qt.IsNil)
	c.Assert(bs.StartCounting(ctx), qt.IsNil)
	c.Assert(bs.Phase(), qt.Equals, types.PhaseRunning)

	c.Assert(bs.StartCounting(ctx), qt.ErrorIs, round.ErrPhase)
	c.Assert(bs.CastVote(ctx, voter(2), 1, false), qt.ErrorIs, round.ErrPhase)

	c.Assert(eng.Start(ctx), qt.IsNil)
	defer eng.Stop()
	st := waitRound(c, bs, 2)
	c.Assert(st.Results, qt.HasLen, 1)
	c.Assert(st.Results[0].VotesFor, qt.Equals, uint32(1))
	c.Assert(st.Results[0].TotalVotes(), qt.Equals, uint64(1))
}

func TestBallotRoundMismatch(t *testing.T) {
	c := qt.New(t)
	bs, _ := newTestBallot(c, 1)
	ctx := context.Background()

	c.Assert(bs.CastVote(ctx, voter(1), 1, true), qt.IsNil)
	c.Assert(bs.StartCounting(ctx), qt.IsNil)
	waitRound(c, bs, 2)

	// a vote issued for round 1 is not admitted in round 2
	c.Assert(bs.CastVote(ctx, voter(2), 1, true), qt.ErrorIs, round.ErrRoundMismatch)
	c.Assert(bs.CastVote(ctx, voter(2), 2, true), qt.IsNil)
}

func TestBallotConsecutiveRounds(t *testing.T) {
	c := qt.New(t)
	bs, store := newTestBallot(c, 2)
	ctx := context.Background()

	for r := uint32(1); r <= 3; r++ {
		for i := 0; i < int(r); i++ {
			c.Assert(bs.CastVote(ctx, voter(i), r, i == 0), qt.IsNil)
		}
		c.Assert(bs.StartCounting(ctx), qt.IsNil)
		waitRound(c, bs, r+1)
	}
	results, err := store.Results()
	c.Assert(err, qt.IsNil)
	c.Assert(results, qt.HasLen, 3)
	for i, r := range results {
		c.Assert(r.RoundID, qt.Equals, uint32(i+1))
		c.Assert(r.VotesFor, qt.Equals, uint32(1))
		c.Assert(r.TotalVotes(), qt.Equals, uint64(i+1))
	}
}

func TestBallotRestore(t *testing.T) {
	c := qt.New(t)
	database := metadb.NewTest(t)
	bs, _ := newTestBallotWithDB(c, database, 1)
	ctx := context.Background()

	c.Assert(bs.CastVote(ctx, voter(1), 1, true), qt.IsNil)
	c.Assert(bs.StartCounting(ctx), qt.IsNil)
	waitRound(c, bs, 2)
	bs.Stop()

	store, err := storage.New(database)
	c.Assert(err, qt.IsNil)
	keys, err := engine.NewNodes(1)
	c.Assert(err, qt.IsNil)
	eng, err := engine.New(engine.Config{Nodes: keys})
	c.Assert(err, qt.IsNil)
	restored, err := NewBallot(store, eng)
	c.Assert(err, qt.IsNil)
	st := restored.State()
	c.Assert(st.CurrentRoundID, qt.Equals, uint32(2))
	c.Assert(st.Results, qt.HasLen, 1)
}

func TestBallotRestoreFinalizedRound(t *testing.T) {
	c := qt.New(t)
	database := metadb.NewTest(t)

	// the result of round 1 is finalized but the round never advanced
	seed, err := storage.New(database)
	c.Assert(err, qt.IsNil)
	p := "[]"
	c.Assert(seed.SetState(nil, &round.State{
		CurrentRoundID: 1,
		Results:        []*types.VoteResult{{RoundID: 1, Proof: &p}},
	}), qt.IsNil)

	bs, store := newTestBallotWithDB(c, database, 1)
	c.Assert(bs.State().CurrentRoundID, qt.Equals, uint32(2))

	ctx := context.Background()
	c.Assert(bs.CastVote(ctx, voter(1), 2, true), qt.IsNil)
	c.Assert(bs.StartCounting(ctx), qt.IsNil)
	st := waitRound(c, bs, 3)
	c.Assert(st.Results, qt.HasLen, 2)
	c.Assert(st.Results[1].VotesFor, qt.Equals, uint32(1))
	stored, err := store.State()
	c.Assert(err, qt.IsNil)
	c.Assert(stored.Equal(st), qt.IsTrue)
}

func TestBallotRestoreUnfinishedRound(t *testing.T) {
	c := qt.New(t)
	database := metadb.NewTest(t)

	seed, err := storage.New(database)
	c.Assert(err, qt.IsNil)
	c.Assert(seed.SetState(nil, &round.State{
		CurrentRoundID: 1,
		Results:        []*types.VoteResult{{RoundID: 1, VotesFor: 3}},
	}), qt.IsNil)

	bs, store := newTestBallotWithDB(c, database, 1)
	c.Assert(bs.State().Results, qt.HasLen, 0)
	_, err = store.Result(1)
	c.Assert(err, qt.ErrorIs, storage.ErrNotFound)

	ctx := context.Background()
	c.Assert(bs.CastVote(ctx, voter(1), 1, false), qt.IsNil)
	c.Assert(bs.StartCounting(ctx), qt.IsNil)
	st := waitRound(c, bs, 2)
	c.Assert(st.Results[0].VotesFor, qt.Equals, uint32(0))
	c.Assert(st.Results[0].VotesAgainst, qt.Equals, uint32(1))
}

func TestDiscardUnfinished(t *testing.T) {
	c := qt.New(t)

	p := "[]"
	st := &round.State{
		CurrentRoundID: 2,
		Results: []*types.VoteResult{
			{RoundID: 1, Proof: &p},
			{RoundID: 2, VotesFor: 1},
		},
	}
	got := discardUnfinished(st)
	c.Assert(got.Results, qt.HasLen, 1)
	c.Assert(got.CurrentRoundID, qt.Equals, uint32(2))
	c.Assert(st.Results, qt.HasLen, 2)

	st.Results = st.Results[:1]
	c.Assert(discardUnfinished(st), qt.Equals, st)

	st.CurrentRoundID = 1
	got = discardUnfinished(st)
	c.Assert(got.CurrentRoundID, qt.Equals, uint32(2))
	c.Assert(got.Results, qt.HasLen, 1)
	c.Assert(st.CurrentRoundID, qt.Equals, uint32(1))
}
