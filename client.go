// Package ballotclient implements the voter side of a verifiable e-voting
// protocol: a single-voter session that requests and validates an access
// code, registers a fresh key pair, encrypts a cast-vote-record into
// per-contest cryptograms, optionally spoils the ballot for auditing, and
// submits it with end-to-end receipt verification.
package ballotclient

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/jkorjus/ballotclient/ballot"
	"github.com/jkorjus/ballotclient/cryptogram"
	"github.com/jkorjus/ballotclient/group"
	"github.com/jkorjus/ballotclient/log"
	"github.com/jkorjus/ballotclient/proof"
	"github.com/jkorjus/ballotclient/receipt"
)

// State is the session's position in the voting lifecycle. Operations
// declare the minimum state they require and advance it on success.
type State int

const (
	Unstarted State = iota
	AccessRequested
	AccessValidated
	Registered
	BallotConstructed
	Spoiled
	Submitted
)

func (s State) String() string {
	switch s {
	case Unstarted:
		return "unstarted"
	case AccessRequested:
		return "access requested"
	case AccessValidated:
		return "access validated"
	case Registered:
		return "registered"
	case BallotConstructed:
		return "ballot constructed"
	case Spoiled:
		return "spoiled"
	case Submitted:
		return "submitted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Registration is what the bulletin board hands back when a voter
// registers: the voter's board identity, one empty cryptogram set per
// contest (wire form), and the contests the voter may vote in.
type Registration struct {
	VoterIdentifier   string
	EmptyCryptograms  map[string][]string
	ContestReferences []string
}

// BoardAcknowledgement is the board's current chain head and clock,
// fetched at the start of a submission.
type BoardAcknowledgement struct {
	BoardHash   string
	CurrentTime string
}

// SignedEnvelope is one contest's submission payload: cryptogram wire
// strings with their encryption proofs alongside.
type SignedEnvelope struct {
	Cryptograms []string
	Proofs      []string
}

// BulletinBoard is the digital ballot box collaborator.
type BulletinBoard interface {
	RegisterVoter(ctx context.Context, publicKey, registrationToken, publicKeyToken string) (Registration, error)
	GetBoardHash(ctx context.Context) (BoardAcknowledgement, error)
	GetCommitmentOpening(ctx context.Context, voterCommitment string, spoiled map[string][]string) (ballot.Opening, error)
	SubmitVotes(ctx context.Context, contentHash, signature string, votes map[string]SignedEnvelope) (receipt.Receipt, error)
}

// OTPProvider delivers and validates one-time access codes.
type OTPProvider interface {
	RequestAccessCode(ctx context.Context, email, correlationID string) error
	ValidateAccessCode(ctx context.Context, code, email string) (identityToken string, err error)
}

// VoterAuthorizer exchanges an identity confirmation token and a voter
// public key for the tokens the bulletin board requires at registration.
type VoterAuthorizer interface {
	AuthorizeRegistration(ctx context.Context, identityToken, publicKey string) (registrationToken, publicKeyToken string, err error)
}

// Client is one voter's session. It is not safe for concurrent lifecycle
// calls; a mutex serializes them. Session fields are only updated after
// the operation's network step has succeeded, so a failed call leaves the
// session exactly as it was.
type Client struct {
	mu sync.Mutex

	g          group.Group
	config     ElectionConfig
	encryption group.Element
	signing    group.Element
	rand       io.Reader

	board BulletinBoard
	otp   OTPProvider
	auth  VoterAuthorizer

	state         State
	email         string
	correlationID string
	identityToken string

	keyPair     *cryptogram.KeyPair
	voterID     string
	empty       map[string][]cryptogram.Cryptogram
	contestRefs []string

	envelopes    map[string]ballot.Envelope
	trackingCode string
}

// Option configures a Client at construction time.
type Option func(*Client)

// WithRandomness substitutes the randomness source used for key
// generation, encryption and proofs. Test instrumentation only; production
// sessions keep the default crypto/rand source.
func WithRandomness(r io.Reader) Option {
	return func(c *Client) { c.rand = r }
}

// NewClient validates the election configuration and builds an Unstarted
// session around the three collaborators.
func NewClient(config ElectionConfig, board BulletinBoard, otp OTPProvider,
	auth VoterAuthorizer, opts ...Option) (*Client, error) {

	g := group.P256()
	encryption, signing, err := config.parse(g)
	if err != nil {
		return nil, err
	}

	c := &Client{
		g:          g,
		config:     config,
		encryption: encryption,
		signing:    signing,
		rand:       rand.Reader,
		board:      board,
		otp:        otp,
		auth:       auth,
		state:      Unstarted,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// State reports the session's current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// TrackingCode returns the fingerprint of the constructed ballot, or the
// empty string before construction.
func (c *Client) TrackingCode() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.trackingCode
}

// RequestAccessCode asks the OTP provider to send an access code to the
// voter's email address and records the session correlation id.
func (c *Client) RequestAccessCode(ctx context.Context, email string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Unstarted {
		return &InvalidStateError{Op: "request access code",
			Missing: "session must be unstarted"}
	}

	correlationID := uuid.NewString()
	if err := c.otp.RequestAccessCode(ctx, email, correlationID); err != nil {
		return err
	}

	c.email = email
	c.correlationID = correlationID
	c.state = AccessRequested
	log.Infof("session %s: access code requested", c.correlationID)
	return nil
}

// ValidateAccessCode exchanges the code the voter received for an identity
// confirmation token.
func (c *Client) ValidateAccessCode(ctx context.Context, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != AccessRequested || c.email == "" {
		return &InvalidStateError{Op: "validate access code",
			Missing: "no access code has been requested"}
	}

	token, err := c.otp.ValidateAccessCode(ctx, code, c.email)
	if err != nil {
		return err
	}

	c.identityToken = token
	c.state = AccessValidated
	log.Infof("session %s: access code validated", c.correlationID)
	return nil
}

// RegisterVoter generates a fresh key pair, has the authorizer exchange it
// for registration tokens, and registers on the bulletin board. On success
// the session holds the voter identifier, the per-contest empty
// cryptograms, and the eligible contest references.
func (c *Client) RegisterVoter(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != AccessValidated {
		return &InvalidStateError{Op: "register voter",
			Missing: "identity has not been confirmed"}
	}

	keyPair, err := cryptogram.GenerateKeyPair(c.g, c.rand)
	if err != nil {
		return err
	}
	publicKey, err := cryptogram.PointToHex(keyPair.Public)
	if err != nil {
		return err
	}

	registrationToken, publicKeyToken, err := c.auth.AuthorizeRegistration(ctx, c.identityToken, publicKey)
	if err != nil {
		return err
	}
	reg, err := c.board.RegisterVoter(ctx, publicKey, registrationToken, publicKeyToken)
	if err != nil {
		return err
	}

	empty := make(map[string][]cryptogram.Cryptogram, len(reg.EmptyCryptograms))
	for ref, wires := range reg.EmptyCryptograms {
		cgs := make([]cryptogram.Cryptogram, len(wires))
		for i, wire := range wires {
			cg, err := cryptogram.FromWire(c.g, wire)
			if err != nil {
				return &BulletinBoardError{Op: "register voter",
					Description: fmt.Sprintf("empty cryptogram for contest %q: %v", ref, err)}
			}
			cgs[i] = cg
		}
		empty[ref] = cgs
	}

	c.keyPair = keyPair
	c.voterID = reg.VoterIdentifier
	c.empty = empty
	c.contestRefs = append([]string(nil), reg.ContestReferences...)
	c.state = Registered
	log.Infof("session %s: registered as %s for %d contests",
		c.correlationID, c.voterID, len(c.contestRefs))
	return nil
}

// ConstructBallotCryptograms encrypts the cast-vote-record into one
// envelope per contest and returns the ballot's tracking code. The record
// is validated entirely locally; no network access happens here.
func (c *Client) ConstructBallotCryptograms(cvr ballot.CastVoteRecord) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.voterID == "" || c.empty == nil || len(c.contestRefs) == 0 {
		return "", &InvalidStateError{Op: "construct ballot cryptograms",
			Missing: "voter is not registered"}
	}
	if c.state == Submitted {
		return "", &InvalidStateError{Op: "construct ballot cryptograms",
			Missing: "ballot has already been submitted"}
	}

	eligible := make(map[string]ballot.ContestConfig, len(c.contestRefs))
	for _, ref := range c.contestRefs {
		if cfg, ok := c.config.Contests[ref]; ok {
			eligible[ref] = cfg
		}
	}

	envelopes, err := ballot.EncryptRecord(c.g, cvr, eligible, c.empty, c.encryption, c.rand)
	if err != nil {
		return "", err
	}
	trackingCode, err := ballot.TrackingCode(envelopes)
	if err != nil {
		return "", err
	}

	c.envelopes = envelopes
	c.trackingCode = trackingCode
	c.state = BallotConstructed
	log.Infof("session %s: ballot constructed, tracking code %s", c.correlationID, trackingCode)
	return trackingCode, nil
}

// SpoilBallotCryptograms audits the constructed ballot: the envelopes are
// re-encrypted under a key derived from a fresh test code, commitment
// openings are exchanged with the server, verified, and the ballot is
// decrypted so the voter can compare it with what they intended. The test
// code is returned alongside the selections so an external auditor can
// reproduce the re-encryption. The session stays submittable; spoiling
// does not consume the ballot.
func (c *Client) SpoilBallotCryptograms(ctx context.Context) ([]ballot.ContestResult, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != BallotConstructed && c.state != Spoiled {
		return nil, "", &InvalidStateError{Op: "spoil ballot cryptograms",
			Missing: "no ballot has been constructed"}
	}

	testCode, err := ballot.GenerateTestCode(c.rand)
	if err != nil {
		return nil, "", err
	}
	spoiled, voterOpening, err := ballot.SpoilEnvelopes(c.g, c.envelopes, c.encryption,
		testCode, c.voterID, c.rand)
	if err != nil {
		return nil, "", err
	}

	wires := make(map[string][]string, len(spoiled))
	for ref, cgs := range spoiled {
		ws := make([]string, len(cgs))
		for i, cg := range cgs {
			if ws[i], err = cg.ToWire(); err != nil {
				return nil, "", err
			}
		}
		wires[ref] = ws
	}

	serverOpening, err := c.board.GetCommitmentOpening(ctx, ballot.CommitOpening(voterOpening), wires)
	if err != nil {
		return nil, "", err
	}
	if err := ballot.VerifyEmptyShareOpening(c.g, c.empty, serverOpening, c.encryption); err != nil {
		return nil, "", err
	}

	results, err := ballot.DecryptContests(c.g, c.config.Contests, spoiled,
		[]ballot.Opening{voterOpening, serverOpening}, c.encryption)
	if err != nil {
		return nil, "", err
	}

	c.state = Spoiled
	log.Infof("session %s: ballot spoiled and decrypted for audit", c.correlationID)
	return results, testCode, nil
}

// SubmitBallotCryptograms runs the submission protocol: acknowledge the
// board's current hash, sign the submission content with the voter's key,
// submit, and verify the returned receipt against the recomputed hash
// chain and the election signing key. The verified receipt is returned and
// the session becomes Submitted.
func (c *Client) SubmitBallotCryptograms(ctx context.Context) (receipt.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.voterID == "" || len(c.envelopes) == 0 {
		return receipt.Receipt{}, &InvalidStateError{Op: "submit ballot cryptograms",
			Missing: "no ballot cryptograms have been constructed"}
	}
	if c.state == Submitted {
		return receipt.Receipt{}, &InvalidStateError{Op: "submit ballot cryptograms",
			Missing: "ballot has already been submitted"}
	}

	ack, err := c.board.GetBoardHash(ctx)
	if err != nil {
		return receipt.Receipt{}, err
	}
	if ack.BoardHash == "" || ack.CurrentTime == "" {
		return receipt.Receipt{}, &BulletinBoardError{Op: "get board hash",
			Description: "board hash or current time missing from acknowledgement"}
	}

	votes := make(map[string]string, len(c.envelopes))
	signed := make(map[string]SignedEnvelope, len(c.envelopes))
	for ref, env := range c.envelopes {
		cgWires := make([]string, len(env.Cryptograms))
		for i, cg := range env.Cryptograms {
			if cgWires[i], err = cg.ToWire(); err != nil {
				return receipt.Receipt{}, err
			}
		}
		pfWires := make([]string, len(env.Proofs))
		for i, pf := range env.Proofs {
			if pfWires[i], err = pf.ToWire(); err != nil {
				return receipt.Receipt{}, err
			}
		}
		votes[ref] = strings.Join(cgWires, ";")
		signed[ref] = SignedEnvelope{Cryptograms: cgWires, Proofs: pfWires}
	}

	content := receipt.SubmissionContent{
		AcknowledgedAt:        ack.CurrentTime,
		AcknowledgedBoardHash: ack.BoardHash,
		ElectionID:            c.config.ElectionID,
		VoterIdentifier:       c.voterID,
		Votes:                 votes,
	}
	contentHash, err := content.Hash()
	if err != nil {
		return receipt.Receipt{}, err
	}
	digest, err := hex.DecodeString(contentHash)
	if err != nil {
		return receipt.Receipt{}, err
	}
	signature, err := proof.Sign(c.g, digest, c.keyPair.Secret, c.rand)
	if err != nil {
		return receipt.Receipt{}, err
	}

	r, err := c.board.SubmitVotes(ctx, contentHash, signature.ToWire(), signed)
	if err != nil {
		return receipt.Receipt{}, err
	}
	if err := receipt.Verify(c.g, r, contentHash, signature.ToWire(), c.signing); err != nil {
		return receipt.Receipt{}, err
	}

	c.state = Submitted
	log.Infof("session %s: ballot submitted, registered at %s as %s",
		c.correlationID, r.RegisteredAt, r.VoteSubmissionID)
	return r, nil
}

// EligibleContests lists the contest references the registered voter may
// vote in, sorted.
func (c *Client) EligibleContests() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	refs := append([]string(nil), c.contestRefs...)
	sort.Strings(refs)
	return refs
}
