package ballotclient

import "fmt"

// InvalidStateError reports a lifecycle operation called out of order. It
// is raised before any network call is attempted and names the missing
// prerequisite.
type InvalidStateError struct {
	Op      string
	Missing string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s: %s", e.Op, e.Missing)
}

// InvalidConfigError reports a malformed or incomplete election
// configuration, detected when the client is constructed.
type InvalidConfigError struct {
	Detail string
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid election config: %s", e.Detail)
}

// BulletinBoardError reports an application-level failure from a
// collaborator. The collaborator's own description is carried so callers
// see the real cause, not a generic transport error.
type BulletinBoardError struct {
	Op          string
	Description string
}

func (e *BulletinBoardError) Error() string {
	return fmt.Sprintf("bulletin board %s: %s", e.Op, e.Description)
}
