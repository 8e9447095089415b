package ballot

import "fmt"

// CorruptRecordError reports a cast-vote-record referencing an unknown
// contest or an option that is not legal for its contest. It is raised by
// purely local validation, before any cryptographic or network work.
type CorruptRecordError struct {
	Contest string
	Reason  string
}

func (e *CorruptRecordError) Error() string {
	return fmt.Sprintf("corrupt cast vote record: %s (contest %q)", e.Reason, e.Contest)
}

// CommitmentError reports an opening that does not match its claimed
// commitment or does not regenerate the share it claims to open.
type CommitmentError struct {
	Contest string
	Detail  string
}

func (e *CommitmentError) Error() string {
	if e.Contest == "" {
		return "commitment mismatch: " + e.Detail
	}
	return fmt.Sprintf("commitment mismatch in contest %q: %s", e.Contest, e.Detail)
}

// IntegrityError reports decrypted content that does not decode to anything
// the contest configuration allows. It is distinct from CommitmentError: the
// openings checked out, but the recovered plaintext is not well-formed.
type IntegrityError struct {
	Contest string
	Detail  string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("ballot integrity failure in contest %q: %s", e.Contest, e.Detail)
}

// ProofError reports a failed encryption-correctness proof.
type ProofError struct {
	Contest string
	Slot    int
}

func (e *ProofError) Error() string {
	return fmt.Sprintf("encryption proof verification failed for contest %q, cryptogram %d", e.Contest, e.Slot)
}
