package engine

import (
	"context"
	"fmt"

	"github.com/vocdoni/secret-ballot/attestation"
	"github.com/vocdoni/secret-ballot/crypto/ethereum"
	"github.com/vocdoni/secret-ballot/types"
	"golang.org/x/sync/errgroup"
)

// NewNodes generates n attestation nodes with random keys.
func NewNodes(n int) ([]*ethereum.SignKeys, error) {
	nodes := make([]*ethereum.SignKeys, 0, n)
	for i := 0; i < n; i++ {
		k := ethereum.NewSignKeys()
		if err := k.Generate(); err != nil {
			return nil, fmt.Errorf("generate node %d key: %w", i, err)
		}
		nodes = append(nodes, k)
	}
	return nodes, nil
}

// NodesFromHex loads attestation nodes from hex encoded private keys.
func NodesFromHex(keys []string) ([]*ethereum.SignKeys, error) {
	nodes := make([]*ethereum.SignKeys, 0, len(keys))
	for i, hexKey := range keys {
		k := ethereum.NewSignKeys()
		if err := k.AddHexKey(hexKey); err != nil {
			return nil, fmt.Errorf("node key %d: %w", i, err)
		}
		nodes = append(nodes, k)
	}
	return nodes, nil
}

// signAll makes every node sign keccak256(data) concurrently. Signatures
// are returned in node order.
func signAll(ctx context.Context, nodes []*ethereum.SignKeys, data []byte) ([]types.Signature, error) {
	sigs := make([]types.Signature, len(nodes))
	g, ctx := errgroup.WithContext(ctx)
	for i, node := range nodes {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			raw, err := node.SignRaw(data)
			if err != nil {
				return fmt.Errorf("node %s: %w", node.AddressString(), err)
			}
			sig, err := attestation.SignatureFromBytes(raw)
			if err != nil {
				return fmt.Errorf("node %s: %w", node.AddressString(), err)
			}
			sigs[i] = sig
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sigs, nil
}
