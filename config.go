package ballotclient

import (
	"fmt"

	"github.com/jkorjus/ballotclient/ballot"
	"github.com/jkorjus/ballotclient/cryptogram"
	"github.com/jkorjus/ballotclient/group"
)

// ElectionConfig is the public election material a client session needs:
// the election's identity, its two public keys as compressed hex points,
// and the contest definitions ballots are validated against.
type ElectionConfig struct {
	ElectionID    string
	EncryptionKey string
	SigningKey    string
	Contests      map[string]ballot.ContestConfig
}

// parse validates the configuration and decodes the public keys. Every
// defect is reported as an InvalidConfigError so callers can distinguish
// configuration problems from protocol failures.
func (c ElectionConfig) parse(g group.Group) (encryption, signing group.Element, err error) {
	if c.ElectionID == "" {
		return nil, nil, &InvalidConfigError{Detail: "missing election id"}
	}
	if len(c.Contests) == 0 {
		return nil, nil, &InvalidConfigError{Detail: "no contests configured"}
	}
	for ref, contest := range c.Contests {
		if contest.Reference != ref {
			return nil, nil, &InvalidConfigError{
				Detail: fmt.Sprintf("contest %q is keyed as %q", contest.Reference, ref)}
		}
		if err := contest.Validate(); err != nil {
			return nil, nil, &InvalidConfigError{Detail: err.Error()}
		}
	}

	encryption, err = cryptogram.PointFromHex(g, c.EncryptionKey)
	if err != nil {
		return nil, nil, &InvalidConfigError{Detail: fmt.Sprintf("encryption key: %v", err)}
	}
	signing, err = cryptogram.PointFromHex(g, c.SigningKey)
	if err != nil {
		return nil, nil, &InvalidConfigError{Detail: fmt.Sprintf("signing key: %v", err)}
	}
	return encryption, signing, nil
}
