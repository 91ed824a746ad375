package client

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/vocdoni/secret-ballot/api"
	"github.com/vocdoni/secret-ballot/crypto/ethereum"
)

// apiError is the error body returned by the API.
type apiError struct {
	Err  string `json:"error"`
	Code int    `json:"code"`
}

// Error is returned by the typed helpers when the API answers with an error.
type Error struct {
	Status  int
	Code    int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %d (code %d: %s)", errCodeNot200, e.Status, e.Code, e.Message)
}

func responseError(status int, data []byte) error {
	e := &Error{Status: status}
	var body apiError
	if err := json.Unmarshal(data, &body); err == nil {
		e.Code = body.Code
		e.Message = body.Err
	} else {
		e.Message = string(data)
	}
	return e
}

// Rounds returns the current round and the results history.
func (c *HTTPclient) Rounds() (*api.Rounds, error) {
	rounds := &api.Rounds{}
	if err := c.call(HTTPGET, nil, rounds, api.RoundsEndpoint); err != nil {
		return nil, err
	}
	return rounds, nil
}

// Round returns the result of a round and its inclusion proof.
func (c *HTTPclient) Round(roundID uint32) (*api.Round, error) {
	r := &api.Round{}
	if err := c.call(HTTPGET, nil, r, api.RoundsEndpoint, strconv.FormatUint(uint64(roundID), 10)); err != nil {
		return nil, err
	}
	return r, nil
}

// CastVote signs and submits a vote for the given round.
func (c *HTTPclient) CastVote(voter *ethereum.SignKeys, roundID uint32, vote bool) (*api.VoteResponse, error) {
	sig, err := voter.SignEthereum(api.VoteSignatureMessage(roundID, vote))
	if err != nil {
		return nil, fmt.Errorf("could not sign vote: %w", err)
	}
	resp := &api.VoteResponse{}
	if err := c.call(HTTPPOST, &api.Vote{
		RoundID:   roundID,
		Vote:      vote,
		Signature: sig,
	}, resp, api.VotesEndpoint); err != nil {
		return nil, err
	}
	return resp, nil
}

// StartCounting triggers the counting of the current round.
func (c *HTTPclient) StartCounting() error {
	return c.call(HTTPPOST, nil, nil, api.CountingEndpoint)
}

// Nodes returns the attestation node addresses.
func (c *HTTPclient) Nodes() (*api.Nodes, error) {
	nodes := &api.Nodes{}
	if err := c.call(HTTPGET, nil, nodes, api.NodesEndpoint); err != nil {
		return nil, err
	}
	return nodes, nil
}
