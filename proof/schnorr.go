package proof

import (
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/jkorjus/ballotclient/group"
)

// Signature is a Schnorr signature over the session group. The voter signs
// ballot content hashes with it, and the bulletin board signs receipts.
type Signature struct {
	E *big.Int // challenge
	S *big.Int // response
}

// Sign produces a Schnorr signature over digest with the private scalar.
func Sign(g group.Group, digest []byte, secret *big.Int, rand io.Reader) (Signature, error) {
	k, err := group.RandomScalar(rand, g)
	if err != nil {
		return Signature{}, err
	}
	K := g.Element().BaseScale(k)

	e, err := challengeScalar(g, digest, K)
	if err != nil {
		return Signature{}, err
	}

	// s = k - e*x mod N
	s := new(big.Int).Mul(e, secret)
	s.Sub(k, s)
	s.Mod(s, g.N())

	return Signature{E: e, S: s}, nil
}

// Verify checks the signature over digest against the signer's public point.
func (sig Signature) Verify(g group.Group, digest []byte, pub group.Element) bool {
	if sig.E == nil || sig.S == nil {
		return false
	}

	// K' = g^s + e*Y; the signature is valid iff H(K' || digest) == e.
	K := g.Element().Add(g.Element().BaseScale(sig.S), g.Element().Scale(pub, sig.E))
	e, err := challengeScalar(g, digest, K)
	if err != nil {
		return false
	}
	return e.Cmp(sig.E) == 0
}

// ToWire serializes the signature as two comma-separated hex scalars.
func (sig Signature) ToWire() string {
	return scalarToHex(sig.E) + "," + scalarToHex(sig.S)
}

// SignatureFromWire parses a signature serialized by ToWire.
func SignatureFromWire(s string) (Signature, error) {
	left, right, found := strings.Cut(s, ",")
	if !found {
		return Signature{}, fmt.Errorf("signature wire form: missing delimiter")
	}
	e, err := scalarFromHex(left)
	if err != nil {
		return Signature{}, fmt.Errorf("signature challenge: %w", err)
	}
	v, err := scalarFromHex(right)
	if err != nil {
		return Signature{}, fmt.Errorf("signature response: %w", err)
	}
	return Signature{E: e, S: v}, nil
}
