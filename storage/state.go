package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	"github.com/vocdoni/secret-ballot/log"
	"github.com/vocdoni/secret-ballot/round"
	"github.com/vocdoni/secret-ballot/types"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

// stateHeader is the part of round.State not stored as results.
type stateHeader struct {
	CurrentRoundID uint32 `cbor:"0,keyasint,omitempty"`
}

func resultKey(roundID uint32) []byte {
	k := make([]byte, 4)
	binary.BigEndian.PutUint32(k, roundID)
	return k
}

// SetState stores next as the ballot state. Only the results that differ
// from prev are written, a nil prev writes every result. The state header,
// the results and the results tree leaves of newly finalized results are
// committed in a single write transaction, so a failure leaves the stored
// state as it was.
func (s *Storage) SetState(prev, next *round.State) error {
	if next == nil {
		return fmt.Errorf("nil state")
	}
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	wTx := s.db.WriteTx()
	defer wTx.Discard()
	resultsTx := prefixeddb.NewPrefixedWriteTx(wTx, resultPrefix)
	treeTx := prefixeddb.NewPrefixedWriteTx(wTx, resultsTreePrefix)

	written := 0
	for _, r := range next.Results {
		if prev != nil {
			if old, ok := prev.Result(r.RoundID); ok && old.Equal(r) {
				continue
			}
		}
		data, err := encodeArtifact(r)
		if err != nil {
			return err
		}
		if err := resultsTx.Set(resultKey(r.RoundID), data); err != nil {
			return fmt.Errorf("store result of round %d: %w", r.RoundID, err)
		}
		if r.Finalized() {
			if err := s.addFinalized(treeTx, r); err != nil {
				return err
			}
		}
		written++
	}
	header, err := encodeArtifact(&stateHeader{CurrentRoundID: next.CurrentRoundID})
	if err != nil {
		return err
	}
	if err := prefixeddb.NewPrefixedWriteTx(wTx, statePrefix).Set(stateKey, header); err != nil {
		return fmt.Errorf("store state header: %w", err)
	}
	if err := wTx.Commit(); err != nil {
		return fmt.Errorf("commit state: %w", err)
	}
	log.Debugw("state stored", "round", next.CurrentRoundID, "results", written)
	return nil
}

// DiscardResult deletes the stored result of the given round. Finalized
// results cannot be discarded.
func (s *Storage) DiscardResult(roundID uint32) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	r := &types.VoteResult{}
	if err := s.getArtifact(resultPrefix, resultKey(roundID), r); err != nil {
		return err
	}
	if r.Finalized() {
		return fmt.Errorf("finalized result of round %d cannot be discarded", roundID)
	}
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), resultPrefix)
	defer wTx.Discard()
	if err := wTx.Delete(resultKey(roundID)); err != nil {
		return err
	}
	return wTx.Commit()
}

// State loads the ballot state. Returns ErrNotFound if no state was ever
// stored.
func (s *Storage) State() (*round.State, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	h := &stateHeader{}
	if err := s.getArtifact(statePrefix, stateKey, h); err != nil {
		return nil, err
	}
	results, err := s.results()
	if err != nil {
		return nil, err
	}
	return &round.State{CurrentRoundID: h.CurrentRoundID, Results: results}, nil
}

// Result returns the result of the given round. Returns ErrNotFound if the
// round has no result yet.
func (s *Storage) Result(roundID uint32) (*types.VoteResult, error) {
	r := &types.VoteResult{}
	if err := s.getArtifact(resultPrefix, resultKey(roundID), r); err != nil {
		return nil, err
	}
	return r, nil
}

// Results returns every stored result ordered by round id.
func (s *Storage) Results() ([]*types.VoteResult, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	return s.results()
}

func (s *Storage) results() ([]*types.VoteResult, error) {
	results := []*types.VoteResult{}
	var decodeErr error
	if err := s.iterateArtifacts(resultPrefix, func(k, v []byte) bool {
		r := &types.VoteResult{}
		if err := decodeArtifact(v, r); err != nil {
			decodeErr = fmt.Errorf("decode result %x: %w", k, err)
			return false
		}
		results = append(results, r)
		return true
	}); err != nil {
		return nil, err
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	sort.Slice(results, func(i, j int) bool { return results[i].RoundID < results[j].RoundID })
	return results, nil
}

// IsNotFound reports whether err is, or wraps, ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
