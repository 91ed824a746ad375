package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/vocdoni/secret-ballot/storage"
)

// rounds returns the current round and the results of every round
// GET /rounds
func (a *API) rounds(w http.ResponseWriter, r *http.Request) {
	st := a.ballot.State()
	root, err := a.storage.ResultsRoot()
	if err != nil {
		ErrGenericInternalServerError.Withf("could not get results root: %v", err).Write(w)
		return
	}
	httpWriteJSON(w, &Rounds{
		CurrentRoundID: st.CurrentRoundID,
		Phase:          a.ballot.Phase().String(),
		ResultsRoot:    root,
		Results:        st.Results,
	})
}

// round returns the result of a round with its inclusion proof
// GET /rounds/{roundId}
func (a *API) round(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, RoundURLParam), 10, 32)
	if err != nil {
		ErrMalformedRoundID.WithErr(err).Write(w)
		return
	}
	result, ok := a.ballot.State().Result(uint32(id))
	if !ok {
		ErrRoundNotFound.Withf("round %d", id).Write(w)
		return
	}
	resp := &Round{Result: result}
	if result.Finalized() {
		proof, err := a.storage.ResultProof(uint32(id))
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			ErrGenericInternalServerError.Withf("could not get result proof: %v", err).Write(w)
			return
		}
		resp.Proof = proof
	}
	httpWriteJSON(w, resp)
}

// nodes lists the attestation nodes
// GET /nodes
func (a *API) nodes(w http.ResponseWriter, r *http.Request) {
	httpWriteJSON(w, &Nodes{Nodes: a.ballot.Nodes()})
}
