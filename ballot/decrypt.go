package ballot

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math/big"
	"sort"

	"github.com/jkorjus/ballotclient/cryptogram"
	"github.com/jkorjus/ballotclient/group"
)

// Opening is one party's commitment opening: the randomizers it used for
// its cryptogram share, per contest, plus the commitment-randomness value
// of the hash commitment published before the exchange.
type Opening struct {
	Randomizers map[string][]*big.Int
	Randomness  *big.Int
}

// CommitOpening computes the hash commitment for an opening: SHA-256 over
// the commitment randomness followed by the sorted, length-prefixed
// randomizer lists.
func CommitOpening(o Opening) string {
	refs := make([]string, 0, len(o.Randomizers))
	for ref := range o.Randomizers {
		refs = append(refs, ref)
	}
	sort.Strings(refs)

	h := sha256.New()
	h.Write(scalarBytes(o.Randomness))
	for _, ref := range refs {
		h.Write([]byte(ref))
		h.Write([]byte{0})
		var count [4]byte
		binary.BigEndian.PutUint32(count[:], uint32(len(o.Randomizers[ref])))
		h.Write(count[:])
		for _, r := range o.Randomizers[ref] {
			h.Write(scalarBytes(r))
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// VerifyOpeningCommitment checks an opening against the commitment its
// party published earlier.
func VerifyOpeningCommitment(o Opening, commitment string) error {
	if CommitOpening(o) != commitment {
		return &CommitmentError{Detail: "opening does not match its commitment"}
	}
	return nil
}

// VerifyEmptyShareOpening checks that a claimed opening regenerates an
// identity-encrypting share exactly: slot i must equal (g^r_i, r_i*pk).
func VerifyEmptyShareOpening(g group.Group, shares map[string][]cryptogram.Cryptogram,
	o Opening, pk group.Element) error {

	for ref, cgs := range shares {
		rs, ok := o.Randomizers[ref]
		if !ok || len(rs) != len(cgs) {
			return &CommitmentError{Contest: ref, Detail: "opening does not cover the share"}
		}
		for i, cg := range cgs {
			R := g.Element().BaseScale(rs[i])
			C := g.Element().Scale(pk, rs[i])
			if !R.IsEqual(cg.R) || !C.IsEqual(cg.C) {
				return &CommitmentError{Contest: ref, Detail: "opening does not regenerate the share"}
			}
		}
	}
	return nil
}

// DecryptContests recovers the plaintext selections from cryptograms that
// are the homomorphic sum of the parties' shares, given every party's
// opening. Commitment failures (an opening that does not cover a contest)
// and integrity failures (plaintext that decodes to nothing configured) are
// reported with distinct error types.
func DecryptContests(g group.Group, contests map[string]ContestConfig,
	combined map[string][]cryptogram.Cryptogram, openings []Opening,
	pk group.Element) ([]ContestResult, error) {

	refs := make([]string, 0, len(combined))
	for ref := range combined {
		refs = append(refs, ref)
	}
	sort.Strings(refs)

	results := make([]ContestResult, 0, len(refs))
	for _, ref := range refs {
		cfg, ok := contests[ref]
		if !ok {
			return nil, &IntegrityError{Contest: ref, Detail: "contest not configured"}
		}
		cgs := combined[ref]
		if len(cgs) != cfg.Encoding.CryptogramCount {
			return nil, &IntegrityError{Contest: ref,
				Detail: "cryptogram count does not match contest encoding"}
		}

		blocks := make([]*big.Int, len(cgs))
		for i, cg := range cgs {
			total := new(big.Int)
			for _, o := range openings {
				rs, ok := o.Randomizers[ref]
				if !ok || len(rs) != len(cgs) {
					return nil, &CommitmentError{Contest: ref, Detail: "opening does not cover the contest"}
				}
				total.Add(total, rs[i])
			}
			total.Mod(total, g.N())

			m := cryptogram.DecryptWithRandomizer(g, cg, pk, total)
			b, err := dlog(g, m, blockDomain(cfg.Encoding.CodeSize))
			if err != nil {
				return nil, &IntegrityError{Contest: ref, Detail: err.Error()}
			}
			blocks[i] = big.NewInt(b)
		}

		sels, err := decodeBlocks(cfg, blocks)
		if err != nil {
			return nil, err
		}
		results = append(results, ContestResult{ContestReference: ref, Selections: sels})
	}
	return results, nil
}

func scalarBytes(s *big.Int) []byte {
	out := make([]byte, 32)
	if s != nil {
		s.FillBytes(out)
	}
	return out
}
