package group

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
)

// RandomScalar samples a scalar uniformly from [1, N-1] using the given
// randomness source. Zero is excluded so that sampled randomizers and keys
// never degenerate to the identity.
func RandomScalar(r io.Reader, g Group) (*big.Int, error) {
	var one big.Int
	one.SetInt64(1)

	max := new(big.Int).Sub(g.N(), &one)
	s, err := rand.Int(r, max)
	if err != nil {
		return nil, fmt.Errorf("sampling scalar: %w", err)
	}
	return s.Add(s, &one), nil
}
