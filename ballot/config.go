// Package ballot implements the vote encryption and contest decryption
// engines: contest configuration, fixed-size block encoding of selections,
// envelope construction with correctness proofs, tracking and test codes,
// and the audit-path decryption of combined cryptogram shares.
package ballot

import "fmt"

// TextEncoding names the byte encoding of write-in content.
type TextEncoding string

const (
	EncodingUTF8  TextEncoding = "utf8"
	EncodingASCII TextEncoding = "ascii"
)

// WriteInRule configures the free-text sub-rule of an option.
type WriteInRule struct {
	MaxSize  int
	Encoding TextEncoding
}

// OptionConfig is one votable option of a contest.
type OptionConfig struct {
	Reference string
	Code      int64
	Title     string
	WriteIn   *WriteInRule
}

// MarkingRule bounds how many options a voter may mark.
type MarkingRule struct {
	MinMarks     int
	MaxMarks     int
	BlankAllowed bool
}

// EncodingRule fixes the numeric block structure of a contest. CodeSize is
// the byte width of one block, MaxSize the write-in byte budget, and
// CryptogramCount the number of cryptogram slots every envelope for the
// contest must fill.
type EncodingRule struct {
	CodeSize        int
	MaxSize         int
	CryptogramCount int
}

// ContestConfig describes one contest of the election.
type ContestConfig struct {
	Reference string
	Marking   MarkingRule
	Encoding  EncodingRule
	Options   []OptionConfig
}

// blockDomain is the exclusive upper bound of a block value.
func blockDomain(codeSize int) int64 {
	return int64(1) << (8 * codeSize)
}

// requiredCryptograms returns the slot count the encoding rule implies:
// one block for the option code plus enough blocks for MaxSize write-in
// bytes.
func requiredCryptograms(r EncodingRule) int {
	return 1 + (r.MaxSize+r.CodeSize-1)/r.CodeSize
}

// Option looks up an option by reference.
func (c ContestConfig) Option(ref string) (OptionConfig, bool) {
	for _, o := range c.Options {
		if o.Reference == ref {
			return o, true
		}
	}
	return OptionConfig{}, false
}

// OptionByCode looks up an option by its numeric code.
func (c ContestConfig) OptionByCode(code int64) (OptionConfig, bool) {
	for _, o := range c.Options {
		if o.Code == code {
			return o, true
		}
	}
	return OptionConfig{}, false
}

// Validate checks the structural invariants of the contest configuration.
// The discrete-log decoder bounds CodeSize at 3 bytes.
func (c ContestConfig) Validate() error {
	if c.Reference == "" {
		return fmt.Errorf("contest without reference")
	}
	if c.Encoding.CodeSize < 1 || c.Encoding.CodeSize > 3 {
		return fmt.Errorf("contest %q: code size %d out of range [1,3]", c.Reference, c.Encoding.CodeSize)
	}
	if c.Encoding.MaxSize < 0 {
		return fmt.Errorf("contest %q: negative max size", c.Reference)
	}
	if want := requiredCryptograms(c.Encoding); c.Encoding.CryptogramCount != want {
		return fmt.Errorf("contest %q: cryptogram count %d does not cover max size %d (want %d)",
			c.Reference, c.Encoding.CryptogramCount, c.Encoding.MaxSize, want)
	}
	if c.Marking.MinMarks < 0 || c.Marking.MaxMarks < c.Marking.MinMarks || c.Marking.MaxMarks < 1 {
		return fmt.Errorf("contest %q: invalid marking rule min=%d max=%d",
			c.Reference, c.Marking.MinMarks, c.Marking.MaxMarks)
	}
	if len(c.Options) == 0 {
		return fmt.Errorf("contest %q: no options", c.Reference)
	}

	refs := make(map[string]bool, len(c.Options))
	codes := make(map[int64]bool, len(c.Options))
	for _, o := range c.Options {
		if o.Reference == "" {
			return fmt.Errorf("contest %q: option without reference", c.Reference)
		}
		if refs[o.Reference] {
			return fmt.Errorf("contest %q: duplicate option reference %q", c.Reference, o.Reference)
		}
		refs[o.Reference] = true
		if o.Code < 1 || o.Code >= blockDomain(c.Encoding.CodeSize) {
			return fmt.Errorf("contest %q: option %q code %d does not fit a %d-byte block",
				c.Reference, o.Reference, o.Code, c.Encoding.CodeSize)
		}
		if codes[o.Code] {
			return fmt.Errorf("contest %q: duplicate option code %d", c.Reference, o.Code)
		}
		codes[o.Code] = true
		if w := o.WriteIn; w != nil {
			if w.MaxSize < 1 || w.MaxSize > c.Encoding.MaxSize {
				return fmt.Errorf("contest %q: option %q write-in size %d exceeds contest budget %d",
					c.Reference, o.Reference, w.MaxSize, c.Encoding.MaxSize)
			}
			if w.Encoding != EncodingUTF8 && w.Encoding != EncodingASCII {
				return fmt.Errorf("contest %q: option %q unknown write-in encoding %q",
					c.Reference, o.Reference, w.Encoding)
			}
		}
	}
	return nil
}
