package main

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	flag "github.com/spf13/pflag"

	"github.com/vocdoni/secret-ballot/api/client"
	"github.com/vocdoni/secret-ballot/attestation"
	"github.com/vocdoni/secret-ballot/crypto/ethereum"
	"github.com/vocdoni/secret-ballot/log"
	"github.com/vocdoni/secret-ballot/storage"
	"github.com/vocdoni/secret-ballot/util"
)

func main() {
	host := flag.String("host", "http://localhost:9090", "ballot API endpoint")
	voters := flag.Int("voters", 10, "number of random voters")
	rounds := flag.Int("rounds", 1, "number of rounds to run")
	timeout := flag.Duration("timeout", time.Minute, "maximum time to wait for a round to be finalized")
	flag.Parse()
	log.Init("debug", "stdout", nil)

	cli, err := client.New(*host)
	if err != nil {
		log.Fatal(err)
	}
	nodes, err := cli.Nodes()
	if err != nil {
		log.Fatal(err)
	}
	log.Infow("connected", "host", *host, "nodes", len(nodes.Nodes))

	for i := 0; i < *rounds; i++ {
		if err := runRound(cli, *voters, *timeout, nodes.Nodes); err != nil {
			log.Fatal(err)
		}
	}
}

func runRound(cli *client.HTTPclient, voters int, timeout time.Duration, nodes []common.Address) error {
	rounds, err := cli.Rounds()
	if err != nil {
		return err
	}
	roundID := rounds.CurrentRoundID

	expected := uint32(0)
	for i := 0; i < voters; i++ {
		voter := ethereum.NewSignKeys()
		if err := voter.Generate(); err != nil {
			return err
		}
		vote := util.RandomInt(0, 2) == 1
		if vote {
			expected++
		}
		if _, err := cli.CastVote(voter, roundID, vote); err != nil {
			return fmt.Errorf("vote %d: %w", i, err)
		}
	}
	log.Infow("votes cast", "round", roundID, "voters", voters, "for", expected)

	start := time.Now()
	if err := cli.StartCounting(); err != nil {
		return err
	}
	for {
		rounds, err = cli.Rounds()
		if err != nil {
			return err
		}
		if rounds.CurrentRoundID > roundID {
			break
		}
		if time.Since(start) > timeout {
			return fmt.Errorf("round %d not finalized after %s", roundID, timeout)
		}
		time.Sleep(500 * time.Millisecond)
	}

	r, err := cli.Round(roundID)
	if err != nil {
		return err
	}
	if r.Result.VotesFor != expected || r.Result.TotalVotes() != uint64(voters) {
		return fmt.Errorf("unexpected result %d/%d, expected %d/%d",
			r.Result.VotesFor, r.Result.VotesAgainst, expected, uint32(voters)-expected)
	}
	if err := attestation.Verify(r.Result, nodes, len(nodes)); err != nil {
		return fmt.Errorf("invalid attestation: %w", err)
	}
	if r.Proof == nil {
		return fmt.Errorf("round %d has no inclusion proof", roundID)
	}
	if ok, err := storage.VerifyResultProof(r.Result, r.Proof); err != nil || !ok {
		return fmt.Errorf("invalid inclusion proof: %v", err)
	}
	log.Infow("round finalized",
		"round", roundID,
		"for", r.Result.VotesFor,
		"against", r.Result.VotesAgainst,
		"took", time.Since(start).String(),
		"proof", *r.Result.Proof)
	return nil
}
