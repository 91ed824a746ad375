package config

import "time"

const (
	// DefaultAPIHost is the address the API listens on.
	DefaultAPIHost = "0.0.0.0"
	// DefaultAPIPort is the port the API listens on.
	DefaultAPIPort = 9090
	// DefaultDataDirName is the directory, under the user home, holding the
	// ballot database.
	DefaultDataDirName = ".ballotd"
	// DefaultLogLevel is the log level of the daemon.
	DefaultLogLevel = "info"
	// DefaultAttestationNodes is the number of attestation nodes created
	// when no node keys are provided.
	DefaultAttestationNodes = 3
	// ShutdownTimeout bounds the time given to the API to drain requests.
	ShutdownTimeout = 5 * time.Second
)
