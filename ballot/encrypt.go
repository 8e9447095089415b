package ballot

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"math/big"
	"sort"

	"github.com/jkorjus/ballotclient/cryptogram"
	"github.com/jkorjus/ballotclient/group"
	"github.com/jkorjus/ballotclient/proof"
)

// Envelope is the per-contest encryption result. Cryptograms are the
// homomorphic sum of the server-issued empty share and the voter's content
// share; Randomizers are the voter's own share of the openings. Proofs bind
// the voter's content share, which a verifier recovers by subtracting the
// empty share it issued.
type Envelope struct {
	ContestReference string
	Cryptograms      []cryptogram.Cryptogram
	Randomizers      []*big.Int
	Proofs           []proof.EncryptionProof
}

// EncryptRecord encrypts a cast-vote-record into one envelope per contest.
// The whole record is validated before any cryptographic work: an unknown
// contest or an illegal option fails with a CorruptRecordError and no
// envelope is produced.
func EncryptRecord(g group.Group, cvr CastVoteRecord, contests map[string]ContestConfig,
	empty map[string][]cryptogram.Cryptogram, pk group.Element,
	rand io.Reader) (map[string]Envelope, error) {

	blocksByContest := make(map[string][]*big.Int, len(cvr))
	for ref, ch := range cvr {
		cfg, ok := contests[ref]
		if !ok {
			return nil, &CorruptRecordError{Contest: ref, Reason: "invalid contest"}
		}
		blocks, err := encodeChoice(cfg, ch)
		if err != nil {
			return nil, err
		}
		shares, ok := empty[ref]
		if !ok || len(shares) != cfg.Encoding.CryptogramCount {
			return nil, &IntegrityError{Contest: ref, Detail: "empty cryptogram share does not match contest encoding"}
		}
		blocksByContest[ref] = blocks
	}

	envelopes := make(map[string]Envelope, len(cvr))
	for ref, blocks := range blocksByContest {
		env := Envelope{
			ContestReference: ref,
			Cryptograms:      make([]cryptogram.Cryptogram, len(blocks)),
			Randomizers:      make([]*big.Int, len(blocks)),
			Proofs:           make([]proof.EncryptionProof, len(blocks)),
		}
		for i, b := range blocks {
			m := g.Element().BaseScale(b)
			share, r, err := cryptogram.Encrypt(g, m, pk, rand)
			if err != nil {
				return nil, err
			}
			pf, err := proof.ProveEncryption(g, share, pk, r, rand)
			if err != nil {
				return nil, err
			}
			env.Cryptograms[i] = empty[ref][i].Add(g, share)
			env.Randomizers[i] = r
			env.Proofs[i] = pf
		}
		envelopes[ref] = env
	}
	return envelopes, nil
}

// TrackingCode computes the deterministic ballot fingerprint: SHA-256 over
// the contest references in sorted order, each followed by its cryptograms'
// wire forms. Proofs and randomizers do not enter the hash, so the code is
// recomputable from the cryptogram set alone.
func TrackingCode(envelopes map[string]Envelope) (string, error) {
	refs := make([]string, 0, len(envelopes))
	for ref := range envelopes {
		refs = append(refs, ref)
	}
	sort.Strings(refs)

	h := sha256.New()
	for _, ref := range refs {
		h.Write([]byte(ref))
		h.Write([]byte{0})
		for _, cg := range envelopes[ref].Cryptograms {
			wire, err := cg.ToWire()
			if err != nil {
				return "", err
			}
			h.Write([]byte(wire))
			h.Write([]byte{0})
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// VerifyEnvelope checks every encryption proof of an envelope against the
// voter's content shares, recovered by subtracting the issued empty share.
func VerifyEnvelope(g group.Group, env Envelope, empty []cryptogram.Cryptogram, pk group.Element) error {
	if len(env.Cryptograms) != len(empty) || len(env.Proofs) != len(env.Cryptograms) {
		return &IntegrityError{Contest: env.ContestReference, Detail: "envelope slot count mismatch"}
	}
	for i, cg := range env.Cryptograms {
		share := cryptogram.Cryptogram{
			R: g.Element().Subtract(cg.R, empty[i].R),
			C: g.Element().Subtract(cg.C, empty[i].C),
		}
		if !env.Proofs[i].Verify(g, share, pk) {
			return &ProofError{Contest: env.ContestReference, Slot: i}
		}
	}
	return nil
}
