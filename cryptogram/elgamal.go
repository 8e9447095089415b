package cryptogram

import (
	"io"
	"math/big"

	"github.com/jkorjus/ballotclient/group"
)

// Encrypt encrypts a message point under pk with a fresh randomizer sampled
// from rand. The randomizer is returned so the caller can later open the
// commitment on the audit path.
func Encrypt(g group.Group, m, pk group.Element, rand io.Reader) (Cryptogram, *big.Int, error) {
	r, err := group.RandomScalar(rand, g)
	if err != nil {
		return Cryptogram{}, nil, err
	}

	mask := g.Element().Scale(pk, r)
	cg := Cryptogram{
		R: g.Element().BaseScale(r),
		C: g.Element().Add(m, mask),
	}
	return cg, r, nil
}

// Empty encrypts the group identity under pk. Empty cryptograms seed both
// the voter-side and server-side shares before any real content is combined
// in.
func Empty(g group.Group, pk group.Element, rand io.Reader) (Cryptogram, *big.Int, error) {
	return Encrypt(g, g.Identity(), pk, rand)
}

// DecryptWithRandomizer recovers the message point of a cryptogram whose
// total randomizer r is known: m = C - r*pk. No private key is involved,
// which is what makes the spoil path possible without the election secret.
func DecryptWithRandomizer(g group.Group, cg Cryptogram, pk group.Element, r *big.Int) group.Element {
	mask := g.Element().Scale(pk, r)
	return g.Element().Subtract(cg.C, mask)
}

// KeyPair holds a private scalar and its public point. The secret is held in
// memory for one session and never persisted.
type KeyPair struct {
	Secret *big.Int
	Public group.Element
}

// GenerateKeyPair samples a fresh key pair from rand.
func GenerateKeyPair(g group.Group, rand io.Reader) (*KeyPair, error) {
	s, err := group.RandomScalar(rand, g)
	if err != nil {
		return nil, err
	}
	return &KeyPair{
		Secret: s,
		Public: g.Element().BaseScale(s),
	}, nil
}
