// Package registry exposes the read-only view of the secret variables held
// by the computation engine, interpreted through the variable kind tag.
package registry

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/secret-ballot/types"
)

// View is a snapshot of the engine state handed to the round state machine
// on every trigger. It is rebuilt by the engine each time, so it always
// reflects the live pending and confirmed inputs.
type View struct {
	Phase        types.Phase
	Variables    []types.SecretVariable
	Pending      []types.SecretVariable
	Attestations []types.DataAttestation
}

// ByKind returns the confirmed variables tagged with kind.
func (v *View) ByKind(kind types.VarKind) []types.SecretVariable {
	var out []types.SecretVariable
	for _, sv := range v.Variables {
		if sv.Metadata.Kind == kind {
			out = append(out, sv)
		}
	}
	return out
}

// Count returns the number of confirmed variables tagged with kind.
func (v *View) Count(kind types.VarKind) uint32 {
	return uint32(len(v.ByKind(kind)))
}

// IDs returns the ids of every confirmed variable.
func (v *View) IDs() []types.VarID {
	ids := make([]types.VarID, 0, len(v.Variables))
	for _, sv := range v.Variables {
		ids = append(ids, sv.ID)
	}
	return ids
}

// Variable returns the confirmed variable with the given id.
func (v *View) Variable(id types.VarID) (*types.SecretVariable, bool) {
	for i := range v.Variables {
		if v.Variables[i].ID == id {
			return &v.Variables[i], true
		}
	}
	return nil, false
}

// HasOwner reports whether owner holds a confirmed or a pending variable.
// Computed variables have no owner and never match.
func (v *View) HasOwner(owner common.Address) bool {
	if owner == (common.Address{}) {
		return false
	}
	for _, sv := range v.Variables {
		if sv.Owner == owner {
			return true
		}
	}
	for _, sv := range v.Pending {
		if sv.Owner == owner {
			return true
		}
	}
	return false
}

// Attestation returns the completed attestation with the given id.
func (v *View) Attestation(id types.AttestationID) (*types.DataAttestation, bool) {
	for i := range v.Attestations {
		if v.Attestations[i].ID == id {
			return &v.Attestations[i], true
		}
	}
	return nil, false
}
