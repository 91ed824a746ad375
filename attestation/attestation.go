// Package attestation turns the node signatures reported by the attestation
// engine into a portable proof string that an EVM contract can verify, and
// verifies such proofs off-chain.
package attestation

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/secret-ballot/crypto/ethereum"
	"github.com/vocdoni/secret-ballot/types"
)

const (
	// evmRecoveryOffset is added to the recovery id, the EVM expects 27 or 28.
	evmRecoveryOffset = 27
	// EVMSignatureLength is the length of a formatted signature, 0x included.
	EVMSignatureLength = 2 + 2*(32+32+1)

	proofSeparator = ", "
)

// EVMString formats a signature as 0x, 64 hex chars of r, 64 hex chars of s
// and 2 hex chars of recovery id + 27. All lowercase.
func EVMString(sig types.Signature) string {
	var b strings.Builder
	b.Grow(EVMSignatureLength)
	b.WriteString("0x")
	b.WriteString(hex.EncodeToString(sig.R[:]))
	b.WriteString(hex.EncodeToString(sig.S[:]))
	b.WriteString(hex.EncodeToString([]byte{sig.RecoveryID + evmRecoveryOffset}))
	return b.String()
}

// FormatProof joins the formatted signatures as "[sig0, sig1, ...]",
// keeping the order reported by the engine.
func FormatProof(sigs []types.Signature) string {
	formatted := make([]string, 0, len(sigs))
	for _, sig := range sigs {
		formatted = append(formatted, EVMString(sig))
	}
	return "[" + strings.Join(formatted, proofSeparator) + "]"
}

// ParseProof decodes a proof string built by FormatProof.
func ParseProof(proof string) ([]types.Signature, error) {
	if !strings.HasPrefix(proof, "[") || !strings.HasSuffix(proof, "]") {
		return nil, fmt.Errorf("proof must be enclosed in brackets")
	}
	body := proof[1 : len(proof)-1]
	if body == "" {
		return []types.Signature{}, nil
	}
	parts := strings.Split(body, proofSeparator)
	sigs := make([]types.Signature, 0, len(parts))
	for i, part := range parts {
		sig, err := parseEVMString(part)
		if err != nil {
			return nil, fmt.Errorf("signature %d: %w", i, err)
		}
		sigs = append(sigs, sig)
	}
	return sigs, nil
}

func parseEVMString(s string) (types.Signature, error) {
	if len(s) != EVMSignatureLength || !strings.HasPrefix(s, "0x") {
		return types.Signature{}, fmt.Errorf("invalid signature format %q", s)
	}
	raw, err := hex.DecodeString(s[2:])
	if err != nil {
		return types.Signature{}, fmt.Errorf("invalid signature hex: %w", err)
	}
	if raw[64] < evmRecoveryOffset || raw[64] > evmRecoveryOffset+1 {
		return types.Signature{}, fmt.Errorf("invalid recovery id %d", raw[64])
	}
	var sig types.Signature
	copy(sig.R[:], raw[0:32])
	copy(sig.S[:], raw[32:64])
	sig.RecoveryID = raw[64] - evmRecoveryOffset
	return sig, nil
}

// SignatureFromBytes converts a 65-byte [R || S || V] secp256k1 signature,
// V in {0,1}, into its engine representation.
func SignatureFromBytes(b []byte) (types.Signature, error) {
	if len(b) != ethereum.SignatureLength {
		return types.Signature{}, fmt.Errorf("invalid signature length %d", len(b))
	}
	if b[64] > 1 {
		return types.Signature{}, fmt.Errorf("invalid recovery id %d", b[64])
	}
	var sig types.Signature
	copy(sig.R[:], b[0:32])
	copy(sig.S[:], b[32:64])
	sig.RecoveryID = b[64]
	return sig, nil
}

// Bytes returns the 65-byte [R || S || V] form of a signature, V in {0,1}.
func Bytes(sig types.Signature) []byte {
	out := make([]byte, 0, ethereum.SignatureLength)
	out = append(out, sig.R[:]...)
	out = append(out, sig.S[:]...)
	return append(out, sig.RecoveryID)
}

// RecoverSigners returns the address of every signer of data found in the
// proof, in proof order. Nodes sign keccak256(data) with no prefix, which
// is what an EVM verifier checks with ecrecover.
func RecoverSigners(data []byte, proof string) ([]common.Address, error) {
	sigs, err := ParseProof(proof)
	if err != nil {
		return nil, err
	}
	addrs := make([]common.Address, 0, len(sigs))
	for i, sig := range sigs {
		addr, err := ethereum.AddrFromRawSignature(data, Bytes(sig))
		if err != nil {
			return nil, fmt.Errorf("recover signature %d: %w", i, err)
		}
		addrs = append(addrs, addr)
	}
	return addrs, nil
}

// Verify checks that at least threshold distinct members of nodes signed
// the serialized result in the proof.
func Verify(result *types.VoteResult, nodes []common.Address, threshold int) error {
	if result.Proof == nil {
		return fmt.Errorf("result of round %d has no proof", result.RoundID)
	}
	signers, err := RecoverSigners(result.Serialize(), *result.Proof)
	if err != nil {
		return err
	}
	known := make(map[common.Address]bool, len(nodes))
	for _, n := range nodes {
		known[n] = true
	}
	valid := make(map[common.Address]bool)
	for _, s := range signers {
		if known[s] {
			valid[s] = true
		}
	}
	if len(valid) < threshold {
		return fmt.Errorf("only %d of %d required node signatures", len(valid), threshold)
	}
	return nil
}
