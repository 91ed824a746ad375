package types

// AttestationID identifies a data attestation requested from the engine.
type AttestationID uint32

// Signature is one node signature as reported by the attestation engine.
// RecoveryID is 0 or 1.
type Signature struct {
	R          [32]byte `json:"r"          cbor:"0,keyasint"`
	S          [32]byte `json:"s"          cbor:"1,keyasint"`
	RecoveryID uint8    `json:"recoveryId" cbor:"2,keyasint"`
}

// DataAttestation is a completed attestation: the signed payload and the
// node signatures in engine order.
type DataAttestation struct {
	ID         AttestationID `json:"id"`
	Data       HexBytes      `json:"data"`
	Signatures []Signature   `json:"signatures"`
}
