package receipt

import "fmt"

// BoardHashError reports a receipt whose board hash does not extend the
// chain from the submitted content. The reported and locally computed
// hashes are both carried for diagnostics.
type BoardHashError struct {
	Reported string
	Computed string
}

func (e *BoardHashError) Error() string {
	return fmt.Sprintf("board hash is corrupt: server reported %s, computed %s",
		e.Reported, e.Computed)
}

// SignatureError reports a receipt whose server signature is malformed or
// does not verify against the election signing key.
type SignatureError struct {
	Detail string
}

func (e *SignatureError) Error() string {
	return fmt.Sprintf("server signature is corrupt: %s", e.Detail)
}
