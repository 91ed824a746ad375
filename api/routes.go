package api

const (
	// PingEndpoint is the endpoint for checking the API status
	PingEndpoint = "/ping"
	// RoundsEndpoint is the endpoint to get the current round and the
	// results history
	RoundsEndpoint = "/rounds"
	// RoundEndpoint is the endpoint to get the result of a round
	RoundURLParam = "roundId"
	RoundEndpoint = "/rounds/{" + RoundURLParam + "}"
	// VotesEndpoint is the endpoint for submitting a vote
	VotesEndpoint = "/votes"
	// CountingEndpoint is the endpoint to start counting the current round
	CountingEndpoint = "/counting"
	// NodesEndpoint lists the attestation nodes signing the results
	NodesEndpoint = "/nodes"
)
