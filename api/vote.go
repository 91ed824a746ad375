package api

import (
	"encoding/json"
	"net/http"

	"github.com/vocdoni/secret-ballot/crypto/ethereum"
	"github.com/vocdoni/secret-ballot/log"
)

// newVote casts a secret vote in the current round
// POST /votes
func (a *API) newVote(w http.ResponseWriter, r *http.Request) {
	vote := &Vote{}
	if err := json.NewDecoder(r.Body).Decode(vote); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}

	// Extract the voter address from the signature
	voter, err := ethereum.AddrFromSignature(VoteSignatureMessage(vote.RoundID, vote.Vote), vote.Signature)
	if err != nil {
		ErrInvalidSignature.Withf("could not extract address from signature: %v", err).Write(w)
		return
	}

	// The signature binds the vote to a round, the ballot rejects any other
	if err := a.ballot.CastVote(r.Context(), voter, vote.RoundID, vote.Vote); err != nil {
		ballotError(err).Write(w)
		return
	}
	log.Infow("vote admitted", "round", vote.RoundID, "voter", voter.Hex())
	httpWriteJSON(w, &VoteResponse{RoundID: vote.RoundID, Voter: voter})
}

// startCounting triggers the counting of the current round
// POST /counting
func (a *API) startCounting(w http.ResponseWriter, r *http.Request) {
	if err := a.ballot.StartCounting(r.Context()); err != nil {
		ballotError(err).Write(w)
		return
	}
	log.Infow("counting started", "round", a.ballot.State().CurrentRoundID)
	httpWriteOK(w)
}
