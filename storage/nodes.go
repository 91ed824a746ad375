package storage

// nodeKeys holds the hex private keys of the attestation nodes.
type nodeKeys struct {
	Keys []string `cbor:"0,keyasint,omitempty"`
}

// SetNodeKeys stores the hex private keys of the attestation nodes,
// replacing any previous set.
func (s *Storage) SetNodeKeys(keys []string) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	return s.setArtifact(nodesPrefix, nodesKey, &nodeKeys{Keys: keys})
}

// NodeKeys returns the stored hex private keys of the attestation nodes.
// Returns ErrNotFound if none were stored.
func (s *Storage) NodeKeys() ([]string, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	nk := &nodeKeys{}
	if err := s.getArtifact(nodesPrefix, nodesKey, nk); err != nil {
		return nil, err
	}
	return nk.Keys, nil
}
