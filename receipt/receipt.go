// Package receipt builds the signed submission content and verifies the
// ballot box receipt the server returns for it: the board hash chain link
// is recomputed locally and the server's signature is checked against the
// election signing key, so the client never has to trust the server's own
// account of what was registered.
package receipt

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/jkorjus/ballotclient/group"
	"github.com/jkorjus/ballotclient/proof"
)

// SubmissionContent is the object the voter signs when submitting a
// ballot. Votes maps contest references to cryptogram wire strings; the
// correctness proofs travel alongside the submission but are not part of
// the signed content.
type SubmissionContent struct {
	AcknowledgedAt        string            `json:"acknowledged_at"`
	AcknowledgedBoardHash string            `json:"acknowledged_board_hash"`
	ElectionID            string            `json:"election_id"`
	VoterIdentifier       string            `json:"voter_identifier"`
	Votes                 map[string]string `json:"votes"`
}

// Hash returns the hex SHA-256 of the content's canonical JSON form.
// encoding/json sorts map keys, so the digest is stable across runs.
func (c SubmissionContent) Hash() (string, error) {
	return hashJSON(c)
}

// Receipt is the server's registration record for one accepted submission.
// BoardHash extends the append-only chain: it commits to the submission's
// content hash, the previous chain head, and the registration timestamp.
type Receipt struct {
	PreviousBoardHash string `json:"previous_board_hash"`
	BoardHash         string `json:"board_hash"`
	RegisteredAt      string `json:"registered_at"`
	ServerSignature   string `json:"server_signature"`
	VoteSubmissionID  string `json:"vote_submission_id"`
}

type boardHashContent struct {
	ContentHash       string `json:"content_hash"`
	PreviousBoardHash string `json:"previous_board_hash"`
	RegisteredAt      string `json:"registered_at"`
}

type signedReceipt struct {
	BoardHash string `json:"board_hash"`
	Signature string `json:"signature"`
}

// BoardHash recomputes the chain link a correct server must have produced
// for the given content hash.
func BoardHash(contentHash, previousBoardHash, registeredAt string) (string, error) {
	return hashJSON(boardHashContent{
		ContentHash:       contentHash,
		PreviousBoardHash: previousBoardHash,
		RegisteredAt:      registeredAt,
	})
}

// SignedDigest is the digest the bulletin board signs when issuing a
// receipt: the hash over the board hash and the voter's own signature.
func SignedDigest(boardHash, voterSignature string) ([]byte, error) {
	digest, err := hashJSON(signedReceipt{BoardHash: boardHash, Signature: voterSignature})
	if err != nil {
		return nil, err
	}
	b, err := hex.DecodeString(digest)
	if err != nil {
		return nil, fmt.Errorf("decoding receipt digest: %w", err)
	}
	return b, nil
}

// Verify checks a receipt in two stages. First the reported board hash
// must equal the recomputed hash over the submission's content hash, the
// previous board hash, and the registration timestamp; a mismatch means
// the server registered something other than what the voter submitted.
// Second, the server's signature over the hash of the board hash and the
// voter's signature must verify against the election signing key. The two
// failure classes are reported with distinct error types.
func Verify(g group.Group, r Receipt, contentHash, voterSignature string,
	signingKey group.Element) error {

	expected, err := BoardHash(contentHash, r.PreviousBoardHash, r.RegisteredAt)
	if err != nil {
		return err
	}
	if expected != r.BoardHash {
		return &BoardHashError{Reported: r.BoardHash, Computed: expected}
	}

	digest, err := SignedDigest(r.BoardHash, voterSignature)
	if err != nil {
		return err
	}

	sig, err := proof.SignatureFromWire(r.ServerSignature)
	if err != nil {
		return &SignatureError{Detail: err.Error()}
	}
	if !sig.Verify(g, digest, signingKey) {
		return &SignatureError{Detail: "signature does not verify against the election signing key"}
	}
	return nil
}

func hashJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshalling for hashing: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
