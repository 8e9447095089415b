// Package proof implements the non-interactive Schnorr machinery of the
// voting protocol: proofs of correct ElGamal encryption and the signature
// scheme used for ballot content and bulletin-board receipts. All proofs are
// made non-interactive with the Fiat-Shamir transform over SHA-256.
package proof

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/jkorjus/ballotclient/cryptogram"
	"github.com/jkorjus/ballotclient/group"
)

// EncryptionProof proves knowledge of the randomizer binding an ElGamal
// cryptogram, without revealing the plaintext. A verifier checks that
// g^Response == K + Challenge*R.
type EncryptionProof struct {
	K         group.Element // commitment g^k
	Challenge *big.Int
	Response  *big.Int
}

func challengeScalar(g group.Group, digest []byte, parts ...group.Element) (*big.Int, error) {
	h := sha256.New()
	for _, p := range parts {
		b, err := p.MarshalCompressed()
		if err != nil {
			return nil, err
		}
		h.Write(b)
	}
	h.Write(digest)

	c := new(big.Int).SetBytes(h.Sum(nil))
	return c.Mod(c, g.N()), nil
}

// ProveEncryption produces a proof that cg encrypts some point under pk with
// the randomizer r known to the prover.
func ProveEncryption(g group.Group, cg cryptogram.Cryptogram, pk group.Element,
	r *big.Int, rand io.Reader) (EncryptionProof, error) {

	k, err := group.RandomScalar(rand, g)
	if err != nil {
		return EncryptionProof{}, err
	}
	K := g.Element().BaseScale(k)

	c, err := challengeScalar(g, nil, K, cg.R, cg.C, pk)
	if err != nil {
		return EncryptionProof{}, err
	}

	s := new(big.Int).Mul(c, r)
	s.Add(s, k)
	s.Mod(s, g.N())

	return EncryptionProof{K: K, Challenge: c, Response: s}, nil
}

// Verify checks the proof against the cryptogram it claims to describe.
func (p EncryptionProof) Verify(g group.Group, cg cryptogram.Cryptogram, pk group.Element) bool {
	if p.K == nil || p.Challenge == nil || p.Response == nil {
		return false
	}
	c, err := challengeScalar(g, nil, p.K, cg.R, cg.C, pk)
	if err != nil || c.Cmp(p.Challenge) != 0 {
		return false
	}

	left := g.Element().BaseScale(p.Response)
	right := g.Element().Add(p.K, g.Element().Scale(cg.R, p.Challenge))
	return left.IsEqual(right)
}

// ToWire serializes the proof as three comma-separated hex fields.
func (p EncryptionProof) ToWire() (string, error) {
	k, err := cryptogram.PointToHex(p.K)
	if err != nil {
		return "", err
	}
	return k + "," + scalarToHex(p.Challenge) + "," + scalarToHex(p.Response), nil
}

// EncryptionProofFromWire parses a proof serialized by ToWire.
func EncryptionProofFromWire(g group.Group, s string) (EncryptionProof, error) {
	fields := strings.Split(s, ",")
	if len(fields) != 3 {
		return EncryptionProof{}, fmt.Errorf("encryption proof wire form: want 3 fields, got %d", len(fields))
	}
	K, err := cryptogram.PointFromHex(g, fields[0])
	if err != nil {
		return EncryptionProof{}, fmt.Errorf("encryption proof commitment: %w", err)
	}
	c, err := scalarFromHex(fields[1])
	if err != nil {
		return EncryptionProof{}, fmt.Errorf("encryption proof challenge: %w", err)
	}
	r, err := scalarFromHex(fields[2])
	if err != nil {
		return EncryptionProof{}, fmt.Errorf("encryption proof response: %w", err)
	}
	return EncryptionProof{K: K, Challenge: c, Response: r}, nil
}

func scalarToHex(s *big.Int) string {
	return fmt.Sprintf("%064x", s)
}

func scalarFromHex(s string) (*big.Int, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("malformed hex scalar: %w", err)
	}
	return new(big.Int).SetBytes(b), nil
}
