package service

import (
	"errors"
	"fmt"

	"github.com/vocdoni/secret-ballot/crypto/ethereum"
	"github.com/vocdoni/secret-ballot/engine"
	"github.com/vocdoni/secret-ballot/log"
	"github.com/vocdoni/secret-ballot/storage"
)

// LoadNodes returns the attestation nodes kept in the storage. The first
// time, n nodes with random keys are generated and stored, so the proofs
// attested before a restart remain verifiable against the same signers.
func LoadNodes(stg *storage.Storage, n int) ([]*ethereum.SignKeys, error) {
	keys, err := stg.NodeKeys()
	switch {
	case err == nil:
		if len(keys) != n {
			log.Warnw("using stored attestation nodes", "stored", len(keys), "requested", n)
		}
		return engine.NodesFromHex(keys)
	case !errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("could not load node keys: %w", err)
	}

	nodes, err := engine.NewNodes(n)
	if err != nil {
		return nil, err
	}
	keys = make([]string, 0, len(nodes))
	for _, node := range nodes {
		_, priv := node.HexString()
		keys = append(keys, priv)
	}
	if err := stg.SetNodeKeys(keys); err != nil {
		return nil, fmt.Errorf("could not store node keys: %w", err)
	}
	log.Infow("attestation nodes generated", "nodes", n)
	return nodes, nil
}
