package ballot

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"math/big"

	"golang.org/x/crypto/sha3"

	"github.com/jkorjus/ballotclient/cryptogram"
	"github.com/jkorjus/ballotclient/group"
)

// testCodeBytes is the entropy of a test code; its hex form is twice as
// long.
const testCodeBytes = 16

// GenerateTestCode samples the random value the spoil path derives its
// disposable audit key from. It has no cryptographic relation to the
// tracking code.
func GenerateTestCode(rand io.Reader) (string, error) {
	b := make([]byte, testCodeBytes)
	if _, err := io.ReadFull(rand, b); err != nil {
		return "", fmt.Errorf("sampling test code: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// AuditScalar derives the audit randomizer for one cryptogram slot from the
// test code. The input encoding is fixed as
//
//	SHAKE256(testCode || 0x00 || voterID || 0x00 || contestRef || 0x00 || uint32be(slot))
//
// read to 48 bytes and reduced modulo the group order.
func AuditScalar(g group.Group, testCode, voterID, contestRef string, slot int) *big.Int {
	h := sha3.NewShake256()
	h.Write([]byte(testCode))
	h.Write([]byte{0})
	h.Write([]byte(voterID))
	h.Write([]byte{0})
	h.Write([]byte(contestRef))
	h.Write([]byte{0})

	var idx [4]byte
	binary.BigEndian.PutUint32(idx[:], uint32(slot))
	h.Write(idx[:])

	out := make([]byte, 48)
	h.Read(out)

	s := new(big.Int).SetBytes(out)
	s.Mod(s, g.N())
	if s.Sign() == 0 {
		s.SetInt64(1)
	}
	return s
}

// SpoilEnvelopes re-encrypts constructed envelopes under the audit key: each
// slot gains one more empty-cryptogram layer whose randomizer is derived
// from the test code, so an auditor holding the test code can reproduce the
// extra layer. The returned openings carry the voter randomizers with the
// audit scalars already folded in.
func SpoilEnvelopes(g group.Group, envelopes map[string]Envelope, pk group.Element,
	testCode, voterID string, rand io.Reader) (map[string][]cryptogram.Cryptogram, Opening, error) {

	randomness, err := group.RandomScalar(rand, g)
	if err != nil {
		return nil, Opening{}, err
	}

	spoiled := make(map[string][]cryptogram.Cryptogram, len(envelopes))
	opening := Opening{
		Randomizers: make(map[string][]*big.Int, len(envelopes)),
		Randomness:  randomness,
	}

	for ref, env := range envelopes {
		cgs := make([]cryptogram.Cryptogram, len(env.Cryptograms))
		rs := make([]*big.Int, len(env.Cryptograms))
		for i, cg := range env.Cryptograms {
			a := AuditScalar(g, testCode, voterID, ref, i)
			layer := cryptogram.Cryptogram{
				R: g.Element().BaseScale(a),
				C: g.Element().Scale(pk, a),
			}
			cgs[i] = cg.Add(g, layer)
			total := new(big.Int).Add(env.Randomizers[i], a)
			rs[i] = total.Mod(total, g.N())
		}
		spoiled[ref] = cgs
		opening.Randomizers[ref] = rs
	}
	return spoiled, opening, nil
}
