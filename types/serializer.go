package types

// Serializer is implemented by values with a fixed binary layout, the one
// signed by the attestation nodes.
type Serializer[T any] interface {
	Serialize() []T
}

var _ Serializer[byte] = (*VoteResult)(nil)
