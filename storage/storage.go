// Package storage persists the open state of the ballot in a prefixed
// key-value store. The following prefixes are used:
//   - 's/' for the round state header
//   - 'r/' for the round results, keyed by big-endian round id
//   - 't/' for the Merkle tree of finalized results
//   - 'k/' for the keys of the attestation nodes
//
// Ballot secrets never reach this package: the engine owns them.
package storage

import (
	"fmt"
	"sync"

	"github.com/vocdoni/arbo"
	"github.com/vocdoni/secret-ballot/log"
	"github.com/vocdoni/secret-ballot/types"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

var (
	// Prefixes for the keys in the database.
	statePrefix       = []byte("s/")
	resultPrefix      = []byte("r/")
	resultsTreePrefix = []byte("t/")
	nodesPrefix       = []byte("k/")

	stateKey = []byte("current")
	nodesKey = []byte("nodes")

	resultsTreeHashFunction = arbo.HashFunctionSha256
)

// Storage wraps the database holding the ballot artifacts and the results
// tree.
type Storage struct {
	db         db.Database
	tree       *arbo.Tree
	globalLock sync.Mutex
}

// New creates a new Storage instance over the given database, loading the
// results tree stored in it.
func New(database db.Database) (*Storage, error) {
	tree, err := arbo.NewTree(arbo.Config{
		Database:     prefixeddb.NewPrefixedDatabase(database, resultsTreePrefix),
		MaxLevels:    types.ResultsTreeMaxLevels,
		HashFunction: resultsTreeHashFunction,
	})
	if err != nil {
		return nil, fmt.Errorf("could not open results tree: %w", err)
	}
	return &Storage{db: database, tree: tree}, nil
}

// Close closes the storage.
func (s *Storage) Close() {
	if err := s.db.Close(); err != nil {
		log.Warnw("could not close storage", "error", err.Error())
	}
}
