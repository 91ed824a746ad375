package types

const (
	// FirstRoundID is the identifier of the first round. It matches the
	// first attestation id handed out by the engine.
	FirstRoundID = 1
	// ResultsTreeMaxLevels is the maximum number of levels of the
	// finalized results tree. Keys are 4-byte round ids.
	ResultsTreeMaxLevels = 32
)
