// Package group provides a prime-order elliptic-curve group abstraction
// used for all cryptogram arithmetic. The only production backend is P-256
// via cloudflare/circl, but code elsewhere depends on the interfaces alone.
package group

import (
	"io"
	"math/big"
)

// Element represents an element of a prime-order group. Operations set the
// receiver to the result and return it, so calls can be chained.
type Element interface {
	// Add sets the receiver to X + Y, and returns it.
	Add(X, Y Element) Element
	// Subtract sets the receiver to X - Y, and returns it.
	Subtract(X, Y Element) Element
	// Negate sets the receiver to -X, and returns it.
	Negate(X Element) Element
	// Scale performs the group operation s times with X,
	// sets the receiver to the result, and returns it.
	Scale(X Element, s *big.Int) Element
	// BaseScale performs the group operation s times with the
	// group's generator, sets the receiver to the result, and returns it.
	BaseScale(s *big.Int) Element
	// Set sets the receiver to X, and returns it.
	Set(X Element) Element
	// IsEqual returns true if the receiver is equal to X.
	IsEqual(X Element) bool
	// IsIdentity returns true if the receiver is the group's
	// identity element.
	IsIdentity() bool
	// MarshalCompressed returns the compressed point encoding of the
	// receiver. The identity encodes as a single zero byte.
	MarshalCompressed() ([]byte, error)
	// UnmarshalCompressed recovers an element from an encoding produced
	// by MarshalCompressed. It fails on bytes that do not decode to a
	// point of the group.
	UnmarshalCompressed(b []byte) error
	// String returns the compressed hex encoding of the element.
	String() string
}

// Group represents a prime-order group over a prime-order field.
type Group interface {
	// Name returns the name of the group.
	Name() string

	// Element creates a new group element.
	Element() Element
	// Generator creates a group element set to the group's generator.
	Generator() Element
	// Identity creates a group element set to the group's identity element.
	Identity() Element

	// Random returns a uniformly sampled element by sampling a scalar r
	// from rand and returning rG.
	Random(rand io.Reader) (Element, error)

	// N returns the prime order of the group.
	N() *big.Int
}
