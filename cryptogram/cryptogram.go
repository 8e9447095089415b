// Package cryptogram implements the two-point ElGamal cryptogram algebra:
// wire serialization, homomorphic addition and encryption of the group
// identity used to seed voter- and server-side shares.
package cryptogram

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/jkorjus/ballotclient/group"
)

// WireDelimiter separates the two compressed point encodings on the wire.
const WireDelimiter = ","

// Cryptogram is an ElGamal ciphertext (g^r, m + r*pk) over an elliptic-curve
// group. A cryptogram is immutable once produced; cryptograms combine only
// through Add.
type Cryptogram struct {
	R group.Element // g^r
	C group.Element // m + r*pk
}

// FromWire parses a cryptogram from its wire form: two hex-encoded
// compressed points joined by WireDelimiter.
func FromWire(g group.Group, s string) (Cryptogram, error) {
	left, right, found := strings.Cut(s, WireDelimiter)
	if !found {
		return Cryptogram{}, fmt.Errorf("cryptogram wire form: missing %q delimiter", WireDelimiter)
	}

	R, err := PointFromHex(g, left)
	if err != nil {
		return Cryptogram{}, fmt.Errorf("cryptogram wire form: first point: %w", err)
	}
	C, err := PointFromHex(g, right)
	if err != nil {
		return Cryptogram{}, fmt.Errorf("cryptogram wire form: second point: %w", err)
	}
	return Cryptogram{R: R, C: C}, nil
}

// ToWire serializes the cryptogram. FromWire(ToWire(x)) round-trips
// byte-for-byte.
func (cg Cryptogram) ToWire() (string, error) {
	r, err := PointToHex(cg.R)
	if err != nil {
		return "", err
	}
	c, err := PointToHex(cg.C)
	if err != nil {
		return "", err
	}
	return r + WireDelimiter + c, nil
}

// Add returns the homomorphic sum of two cryptograms: pointwise addition of
// the matching components. The operation is commutative and associative, and
// adding an empty cryptogram leaves the encrypted content unchanged.
func (cg Cryptogram) Add(g group.Group, other Cryptogram) Cryptogram {
	return Cryptogram{
		R: g.Element().Add(cg.R, other.R),
		C: g.Element().Add(cg.C, other.C),
	}
}

// PointToHex encodes a group element as compressed hex.
func PointToHex(e group.Element) (string, error) {
	b, err := e.MarshalCompressed()
	if err != nil {
		return "", fmt.Errorf("encoding point: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// PointFromHex decodes a compressed hex point encoding. Odd-length strings
// and characters outside [0-9A-Fa-f] are rejected before any curve work.
func PointFromHex(g group.Group, s string) (group.Element, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decoding point hex: %w", err)
	}
	e := g.Element()
	if err := e.UnmarshalCompressed(b); err != nil {
		return nil, err
	}
	return e, nil
}
