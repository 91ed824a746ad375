// Package ethereum wraps the go-ethereum secp256k1 primitives used to
// identify voters and to produce and verify node attestations.
package ethereum

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/vocdoni/secret-ballot/util"
)

const (
	// SignatureLength is the size of an ECDSA signature in hexString format
	SignatureLength = crypto.SignatureLength
	// PubKeyLengthBytes is the size of a Public Key
	PubKeyLengthBytes = 33
	// PubKeyLengthBytesUncompressed is the size of a uncompressed Public Key
	PubKeyLengthBytesUncompressed = 65
	// SigningPrefix is the prefix added when hashing
	SigningPrefix = "\u0019Ethereum Signed Message:\n"
)

// SignKeys represents an ECDSA pair of keys for signing.
type SignKeys struct {
	Public  ecdsa.PublicKey
	Private ecdsa.PrivateKey
}

// NewSignKeys creates an ECDSA pair of keys for signing
func NewSignKeys() *SignKeys {
	return &SignKeys{}
}

// Generate generates new keys
func (k *SignKeys) Generate() error {
	key, err := crypto.GenerateKey()
	if err != nil {
		return err
	}
	k.Private = *key
	k.Public = key.PublicKey
	return nil
}

// AddHexKey imports a private hex key
func (k *SignKeys) AddHexKey(privHex string) error {
	key, err := crypto.HexToECDSA(util.TrimHex(privHex))
	if err != nil {
		return err
	}
	k.Private = *key
	k.Public = key.PublicKey
	return nil
}

// HexString returns the public compressed and private keys as hex strings
func (k *SignKeys) HexString() (string, string) {
	pubHexComp := fmt.Sprintf("%x", crypto.CompressPubkey(&k.Public))
	privHex := fmt.Sprintf("%x", crypto.FromECDSA(&k.Private))
	return pubHexComp, privHex
}

// PublicKey returns the compressed public key
func (k *SignKeys) PublicKey() []byte {
	return crypto.CompressPubkey(&k.Public)
}

// Address returns the SignKeys ethereum address
func (k *SignKeys) Address() common.Address {
	return crypto.PubkeyToAddress(k.Public)
}

// AddressString returns the ethereum Address as string
func (k *SignKeys) AddressString() string {
	return k.Address().String()
}

// SignEthereum signs a message. Message is a normal string (no HexString nor
// a Hash). The signing prefix is added before hashing.
func (k *SignKeys) SignEthereum(message []byte) ([]byte, error) {
	if k.Private.D == nil {
		return nil, errors.New("no private key available")
	}
	signature, err := crypto.Sign(Hash(message), &k.Private)
	if err != nil {
		return nil, err
	}
	return signature, nil
}

// SignRaw signs the keccak256 hash of data without any prefix, as expected
// by the EVM ecrecover precompile. The last byte of the signature is the
// recovery id (0 or 1).
func (k *SignKeys) SignRaw(data []byte) ([]byte, error) {
	if k.Private.D == nil {
		return nil, errors.New("no private key available")
	}
	return crypto.Sign(HashRaw(data), &k.Private)
}

// AddrFromPublicKey standaolone function to obtain the Ethereum address from
// a ECDSA public key.
func AddrFromPublicKey(pub []byte) (common.Address, error) {
	var pubHexDesc []byte
	var err error
	if len(pub) <= PubKeyLengthBytes {
		pubHexDesc, err = decompressPubKey(pub)
		if err != nil {
			return common.Address{}, err
		}
	} else {
		pubHexDesc = pub
	}
	pubk, err := crypto.UnmarshalPubkey(pubHexDesc)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*pubk), nil
}

// AddrFromSignature recovers the Ethereum address that created the
// signature of a message signed with SignEthereum.
func AddrFromSignature(message, signature []byte) (common.Address, error) {
	return addrFromHashSignature(Hash(message), signature)
}

// AddrFromRawSignature recovers the Ethereum address that created the
// signature of data signed with SignRaw.
func AddrFromRawSignature(data, signature []byte) (common.Address, error) {
	return addrFromHashSignature(HashRaw(data), signature)
}

func addrFromHashSignature(hash, signature []byte) (common.Address, error) {
	if len(signature) != SignatureLength {
		return common.Address{}, fmt.Errorf("signature length not correct (%d)", len(signature))
	}
	sig := make([]byte, SignatureLength)
	copy(sig, signature)
	// accept EVM style recovery ids
	if sig[SignatureLength-1] >= 27 {
		sig[SignatureLength-1] -= 27
	}
	if sig[SignatureLength-1] > 1 {
		return common.Address{}, fmt.Errorf("invalid recovery id %d", sig[SignatureLength-1])
	}
	pubKey, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*pubKey), nil
}

// Hash string data adding Ethereum prefix
func Hash(data []byte) []byte {
	payloadToSign := fmt.Sprintf("%s%d%s", SigningPrefix, len(data), data)
	return HashRaw([]byte(payloadToSign))
}

// HashRaw hashes data with no prefix
func HashRaw(data []byte) []byte {
	return crypto.Keccak256(data)
}

func decompressPubKey(pubComp []byte) ([]byte, error) {
	pub, err := crypto.DecompressPubkey(pubComp)
	if err != nil {
		return nil, err
	}
	return crypto.FromECDSAPub(pub), nil
}
