package attestation

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/secret-ballot/crypto/ethereum"
	"github.com/vocdoni/secret-ballot/types"
)

func fixedSignature(fill byte, recovery uint8) types.Signature {
	var sig types.Signature
	for i := range sig.R {
		sig.R[i] = fill
		sig.S[i] = fill + 1
	}
	sig.R[0] = 0x00 // leading zero must be kept
	sig.RecoveryID = recovery
	return sig
}

func TestEVMString(t *testing.T) {
	c := qt.New(t)

	s0 := EVMString(fixedSignature(0x0a, 0))
	c.Assert(s0, qt.HasLen, EVMSignatureLength)
	c.Assert(len(s0), qt.Equals, 132)
	c.Assert(strings.HasPrefix(s0, "0x00"+strings.Repeat("0a", 31)), qt.IsTrue)
	c.Assert(s0[66:130], qt.Equals, strings.Repeat("0b", 32))
	c.Assert(strings.HasSuffix(s0, "1b"), qt.IsTrue)
	c.Assert(s0, qt.Equals, strings.ToLower(s0))

	s1 := EVMString(fixedSignature(0xfe, 1))
	c.Assert(strings.HasSuffix(s1, "1c"), qt.IsTrue)
	c.Assert(s1[66:130], qt.Equals, strings.Repeat("ff", 32))
}

func TestFormatProof(t *testing.T) {
	c := qt.New(t)

	sigs := []types.Signature{fixedSignature(0x01, 0), fixedSignature(0x02, 1)}
	proof := FormatProof(sigs)
	c.Assert(proof, qt.Equals, "["+EVMString(sigs[0])+", "+EVMString(sigs[1])+"]")
	c.Assert(proof, qt.HasLen, 2+2*EVMSignatureLength+2)

	parsed, err := ParseProof(proof)
	c.Assert(err, qt.IsNil)
	c.Assert(parsed, qt.DeepEquals, sigs)

	c.Assert(FormatProof(nil), qt.Equals, "[]")
	parsed, err = ParseProof("[]")
	c.Assert(err, qt.IsNil)
	c.Assert(parsed, qt.HasLen, 0)
}

func TestParseProofErrors(t *testing.T) {
	c := qt.New(t)

	_, err := ParseProof("0x00")
	c.Assert(err, qt.ErrorMatches, "proof must be enclosed in brackets")
	_, err = ParseProof("[0x1234]")
	c.Assert(err, qt.ErrorMatches, "signature 0: invalid signature format.*")

	bad := EVMString(fixedSignature(0x01, 0))
	bad = bad[:130] + "05"
	_, err = ParseProof("[" + bad + "]")
	c.Assert(err, qt.ErrorMatches, "signature 0: invalid recovery id 5")
}

func TestVerifyProof(t *testing.T) {
	c := qt.New(t)

	result := &types.VoteResult{RoundID: 1, VotesFor: 2, VotesAgainst: 4}
	var nodes []common.Address
	var sigs []types.Signature
	for i := 0; i < 3; i++ {
		k := ethereum.NewSignKeys()
		c.Assert(k.Generate(), qt.IsNil)
		raw, err := k.SignRaw(result.Serialize())
		c.Assert(err, qt.IsNil)
		sig, err := SignatureFromBytes(raw)
		c.Assert(err, qt.IsNil)
		c.Assert(Bytes(sig), qt.DeepEquals, raw)
		sigs = append(sigs, sig)
		nodes = append(nodes, k.Address())
	}

	c.Assert(Verify(result, nodes, 3), qt.ErrorMatches, "result of round 1 has no proof")

	proof := FormatProof(sigs)
	result.Proof = &proof
	signers, err := RecoverSigners(result.Serialize(), proof)
	c.Assert(err, qt.IsNil)
	c.Assert(signers, qt.DeepEquals, nodes)
	c.Assert(Verify(result, nodes, 3), qt.IsNil)

	// a tampered result no longer matches the node set
	tampered := result.Clone()
	tampered.VotesFor = 3
	c.Assert(Verify(tampered, nodes, 1), qt.ErrorMatches, "only 0 of 1 required node signatures")

	// duplicated signatures do not count twice
	dup := FormatProof([]types.Signature{sigs[0], sigs[0]})
	result.Proof = &dup
	c.Assert(Verify(result, nodes, 2), qt.ErrorMatches, "only 1 of 2 required node signatures")
}

func TestSignatureFromBytesErrors(t *testing.T) {
	c := qt.New(t)

	_, err := SignatureFromBytes(make([]byte, 64))
	c.Assert(err, qt.ErrorMatches, "invalid signature length 64")
	raw := make([]byte, 65)
	raw[64] = 27
	_, err = SignatureFromBytes(raw)
	c.Assert(err, qt.ErrorMatches, "invalid recovery id 27")
}
