package ballot

import (
	"fmt"
	"math"
	"math/big"
	"unicode/utf8"

	"github.com/jkorjus/ballotclient/group"
)

// Choice is one selection in a cast-vote-record: an option reference and,
// for write-in options, the free-text payload. An all-empty Choice is a
// blank vote.
type Choice struct {
	Reference string
	Text      string
}

// CastVoteRecord maps contest references to the voter's selection.
type CastVoteRecord map[string]Choice

// OptionSelection is one decrypted selection.
type OptionSelection struct {
	Reference string
	Text      string
}

// ContestResult is the decrypted outcome for one contest.
type ContestResult struct {
	ContestReference string
	Selections       []OptionSelection
}

// encodeChoice turns a selection into exactly CryptogramCount numeric
// blocks: block 0 carries the option code, the remaining blocks carry the
// write-in bytes, CodeSize bytes per block, zero padded.
func encodeChoice(c ContestConfig, ch Choice) ([]*big.Int, error) {
	blocks := make([]*big.Int, c.Encoding.CryptogramCount)
	for i := range blocks {
		blocks[i] = new(big.Int)
	}

	if ch.Reference == "" {
		if ch.Text != "" {
			return nil, &CorruptRecordError{Contest: c.Reference, Reason: "invalid option"}
		}
		if !c.Marking.BlankAllowed {
			return nil, &CorruptRecordError{Contest: c.Reference, Reason: "blank vote not allowed"}
		}
		return blocks, nil
	}

	opt, ok := c.Option(ch.Reference)
	if !ok {
		return nil, &CorruptRecordError{Contest: c.Reference, Reason: "invalid option"}
	}
	blocks[0].SetInt64(opt.Code)

	if opt.WriteIn == nil {
		if ch.Text != "" {
			return nil, &CorruptRecordError{Contest: c.Reference, Reason: "invalid option"}
		}
		return blocks, nil
	}

	text := []byte(ch.Text)
	if len(text) > opt.WriteIn.MaxSize {
		return nil, &CorruptRecordError{Contest: c.Reference, Reason: "invalid option"}
	}
	if err := checkTextEncoding(opt.WriteIn.Encoding, text); err != nil {
		return nil, &CorruptRecordError{Contest: c.Reference, Reason: "invalid option"}
	}

	size := c.Encoding.CodeSize
	for i, b := range text {
		slot := 1 + i/size
		blocks[slot].Lsh(blocks[slot], 8)
		blocks[slot].Or(blocks[slot], big.NewInt(int64(b)))
	}
	// Left-align the final partial block so trailing zero bytes pad it.
	if rem := len(text) % size; rem != 0 {
		slot := 1 + len(text)/size
		blocks[slot].Lsh(blocks[slot], uint(8*(size-rem)))
	}
	return blocks, nil
}

// decodeBlocks reassembles decrypted blocks into the selected option and,
// where the option declares a write-in, its text payload.
func decodeBlocks(c ContestConfig, blocks []*big.Int) ([]OptionSelection, error) {
	if len(blocks) != c.Encoding.CryptogramCount {
		return nil, &IntegrityError{Contest: c.Reference,
			Detail: fmt.Sprintf("got %d blocks, contest encodes %d", len(blocks), c.Encoding.CryptogramCount)}
	}

	blank := true
	for _, b := range blocks {
		if b.Sign() != 0 {
			blank = false
			break
		}
	}
	if blank {
		if !c.Marking.BlankAllowed {
			return nil, &IntegrityError{Contest: c.Reference, Detail: "blank vote not allowed"}
		}
		return nil, nil
	}

	if !blocks[0].IsInt64() {
		return nil, &IntegrityError{Contest: c.Reference, Detail: "option code block out of range"}
	}
	opt, ok := c.OptionByCode(blocks[0].Int64())
	if !ok {
		return nil, &IntegrityError{Contest: c.Reference,
			Detail: fmt.Sprintf("no option with code %d", blocks[0].Int64())}
	}

	size := c.Encoding.CodeSize
	payload := make([]byte, 0, (len(blocks)-1)*size)
	for _, b := range blocks[1:] {
		if b.BitLen() > 8*size {
			return nil, &IntegrityError{Contest: c.Reference, Detail: "write-in block out of range"}
		}
		chunk := make([]byte, size)
		b.FillBytes(chunk)
		payload = append(payload, chunk...)
	}
	for len(payload) > 0 && payload[len(payload)-1] == 0 {
		payload = payload[:len(payload)-1]
	}

	if opt.WriteIn == nil {
		if len(payload) != 0 {
			return nil, &IntegrityError{Contest: c.Reference, Detail: "unexpected write-in content"}
		}
		return []OptionSelection{{Reference: opt.Reference}}, nil
	}

	if len(payload) > opt.WriteIn.MaxSize {
		return nil, &IntegrityError{Contest: c.Reference, Detail: "write-in content too long"}
	}
	if err := checkTextEncoding(opt.WriteIn.Encoding, payload); err != nil {
		return nil, &IntegrityError{Contest: c.Reference, Detail: err.Error()}
	}
	return []OptionSelection{{Reference: opt.Reference, Text: string(payload)}}, nil
}

func checkTextEncoding(enc TextEncoding, text []byte) error {
	switch enc {
	case EncodingASCII:
		for _, b := range text {
			if b == 0 || b > 0x7f {
				return fmt.Errorf("write-in content is not ASCII")
			}
		}
	case EncodingUTF8:
		if !utf8.Valid(text) {
			return fmt.Errorf("write-in content is not valid UTF-8")
		}
		for _, b := range text {
			if b == 0 {
				return fmt.Errorf("write-in content contains NUL")
			}
		}
	default:
		return fmt.Errorf("unknown text encoding %q", enc)
	}
	return nil
}

// dlog solves m = b*G for b in [0, bound) by baby-step giant-step. The
// bound is at most 2^24 per the CodeSize limit, so the table stays small.
func dlog(g group.Group, m group.Element, bound int64) (int64, error) {
	if m.IsIdentity() {
		return 0, nil
	}

	step := int64(math.Ceil(math.Sqrt(float64(bound))))
	baby := make(map[string]int64, step)
	e := g.Identity()
	one := g.Generator()
	for j := int64(0); j < step; j++ {
		baby[e.String()] = j
		e = g.Element().Add(e, one)
	}

	stride := g.Element().Negate(g.Element().BaseScale(big.NewInt(step)))
	gamma := g.Element().Set(m)
	for i := int64(0); i*step < bound; i++ {
		if j, ok := baby[gamma.String()]; ok {
			if v := i*step + j; v < bound {
				return v, nil
			}
		}
		gamma = g.Element().Add(gamma, stride)
	}
	return 0, fmt.Errorf("no discrete log below %d", bound)
}
