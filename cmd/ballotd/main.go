package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/vocdoni/secret-ballot/config"
	"github.com/vocdoni/secret-ballot/crypto/ethereum"
	"github.com/vocdoni/secret-ballot/engine"
	"github.com/vocdoni/secret-ballot/log"
	"github.com/vocdoni/secret-ballot/service"
	"github.com/vocdoni/secret-ballot/storage"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"
)

func main() {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	datadir := flag.String("datadir", filepath.Join(home, config.DefaultDataDirName), "directory where the ballot state is stored")
	host := flag.String("host", config.DefaultAPIHost, "API listen host")
	port := flag.Int("port", config.DefaultAPIPort, "API listen port")
	logLevel := flag.String("logLevel", config.DefaultLogLevel, "log level (debug, info, warn, error)")
	logOutput := flag.String("logOutput", "stdout", "log output (stdout, stderr or a file path)")
	nodes := flag.Int("nodes", config.DefaultAttestationNodes, "number of attestation nodes generated on first start")
	nodeKeys := flag.StringSlice("nodeKeys", nil, "hex private keys of the attestation nodes, overrides --nodes")
	flag.Parse()
	log.Init(*logLevel, *logOutput, nil)

	// storage
	database, err := metadb.New(db.TypePebble, filepath.Join(*datadir, "db"))
	if err != nil {
		log.Fatal(err)
	}
	stg, err := storage.New(database)
	if err != nil {
		log.Fatal(err)
	}

	// attestation nodes, generated once and kept in the storage unless
	// given explicitly
	var keys []*ethereum.SignKeys
	if len(*nodeKeys) > 0 {
		keys, err = engine.NodesFromHex(*nodeKeys)
	} else {
		keys, err = service.LoadNodes(stg, *nodes)
	}
	if err != nil {
		log.Fatal(err)
	}
	for _, k := range keys {
		log.Infow("attestation node", "address", k.AddressString())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng, err := engine.New(engine.Config{Nodes: keys})
	if err != nil {
		log.Fatal(err)
	}
	if err := eng.Start(ctx); err != nil {
		log.Fatal(err)
	}

	ballot, err := service.NewBallot(stg, eng)
	if err != nil {
		log.Fatal(err)
	}
	if err := ballot.Start(ctx); err != nil {
		log.Fatal(err)
	}

	api := service.NewAPI(stg, ballot, *host, *port)
	if err := api.Start(ctx); err != nil {
		log.Fatal(err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Infow("shutting down")

	api.Stop()
	ballot.Stop()
	eng.Stop()
	stg.Close()
}
