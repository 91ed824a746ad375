package storage

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/vocdoni/arbo"
	"github.com/vocdoni/secret-ballot/crypto/ethereum"
	"github.com/vocdoni/secret-ballot/types"
	"go.vocdoni.io/dvote/db"
)

// ResultProof is a Merkle inclusion proof of a finalized result in the
// results tree.
type ResultProof struct {
	RoundID  uint32         `json:"roundId"`
	Key      types.HexBytes `json:"key"`
	Value    types.HexBytes `json:"value"`
	Siblings types.HexBytes `json:"siblings"`
	Root     types.HexBytes `json:"root"`
}

// resultLeafKey is the round id as little-endian bytes, so consecutive
// rounds spread over the tree.
func resultLeafKey(roundID uint32) []byte {
	k := make([]byte, 4)
	binary.LittleEndian.PutUint32(k, roundID)
	return k
}

// ResultLeafValue returns the leaf value committed for a finalized result:
// keccak256 of the serialized result followed by the proof string.
func ResultLeafValue(r *types.VoteResult) ([]byte, error) {
	if !r.Finalized() {
		return nil, fmt.Errorf("result of round %d is not finalized", r.RoundID)
	}
	data := append(r.Serialize(), []byte(*r.Proof)...)
	return ethereum.HashRaw(data), nil
}

// addFinalized adds the result to the tree within wTx if not already there.
// A round already in the tree with a different value is an error, finalized
// results are immutable.
func (s *Storage) addFinalized(wTx db.WriteTx, r *types.VoteResult) error {
	value, err := ResultLeafValue(r)
	if err != nil {
		return err
	}
	key := resultLeafKey(r.RoundID)
	_, stored, err := s.tree.GetWithTx(wTx, key)
	switch {
	case err == nil:
		if !bytes.Equal(stored, value) {
			return fmt.Errorf("finalized result of round %d cannot change", r.RoundID)
		}
		return nil
	case errors.Is(err, arbo.ErrKeyNotFound):
		if err := s.tree.AddWithTx(wTx, key, value); err != nil {
			return fmt.Errorf("add result of round %d to tree: %w", r.RoundID, err)
		}
		return nil
	default:
		return err
	}
}

// ResultsRoot returns the root of the finalized results tree.
func (s *Storage) ResultsRoot() (types.HexBytes, error) {
	return s.tree.Root()
}

// ResultProof generates the inclusion proof of the finalized result of the
// given round. Returns ErrNotFound if the round is not in the tree.
func (s *Storage) ResultProof(roundID uint32) (*ResultProof, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	key := resultLeafKey(roundID)
	k, v, siblings, exists, err := s.tree.GenProof(key)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}
	root, err := s.tree.Root()
	if err != nil {
		return nil, err
	}
	return &ResultProof{
		RoundID:  roundID,
		Key:      k,
		Value:    v,
		Siblings: siblings,
		Root:     root,
	}, nil
}

// VerifyResultProof checks the proof against its root and the given result.
func VerifyResultProof(r *types.VoteResult, p *ResultProof) (bool, error) {
	value, err := ResultLeafValue(r)
	if err != nil {
		return false, err
	}
	if r.RoundID != p.RoundID || !bytes.Equal(p.Key, resultLeafKey(r.RoundID)) {
		return false, nil
	}
	if !bytes.Equal(p.Value, value) {
		return false, nil
	}
	return arbo.CheckProof(resultsTreeHashFunction, p.Key, p.Value, p.Root, p.Siblings)
}
