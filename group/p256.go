package group

import (
	"encoding/hex"
	"fmt"
	"io"
	"math/big"

	circl "github.com/cloudflare/circl/group"
)

type p256Group struct {
	order *big.Int
	name  string
}

type p256Point struct {
	curve *p256Group
	val   circl.Element
}

// P256 returns the NIST P-256 group backed by cloudflare/circl.
func P256() Group {
	n, _ := new(big.Int).SetString(
		"ffffffff00000000ffffffffffffffffbce6faada7179e84f3b9cac2fc632551", 16)

	G := new(p256Group)
	G.order = n
	G.name = "P-256"
	return G
}

func (g *p256Group) Name() string {
	return g.name
}

func (g *p256Group) N() *big.Int {
	return g.order
}

func (g *p256Group) Element() Element {
	return &p256Point{
		curve: g,
		val:   circl.P256.NewElement(),
	}
}

func (g *p256Group) Generator() Element {
	return &p256Point{
		curve: g,
		val:   circl.P256.Generator(),
	}
}

func (g *p256Group) Identity() Element {
	return &p256Point{
		curve: g,
		val:   circl.P256.Identity(),
	}
}

func (g *p256Group) Random(rand io.Reader) (Element, error) {
	s, err := RandomScalar(rand, g)
	if err != nil {
		return nil, err
	}
	return g.Element().BaseScale(s), nil
}

func (e *p256Point) check(a Element) *p256Point {
	ea, ok := a.(*p256Point)
	if !ok {
		panic("incompatible group element type")
	}
	return ea
}

// scalar reduces s into the scalar field. Mod always yields a non-negative
// result, so negative multipliers are handled too.
func (e *p256Point) scalar(s *big.Int) circl.Scalar {
	sc := circl.P256.NewScalar()
	sc.SetBigInt(new(big.Int).Mod(s, e.curve.order))
	return sc
}

func (e *p256Point) Add(a, b Element) Element {
	ca := e.check(a)
	cb := e.check(b)
	e.val = circl.P256.NewElement().Add(ca.val, cb.val)
	return e
}

func (e *p256Point) Subtract(a, b Element) Element {
	neg := e.curve.Element().Negate(b)
	return e.Add(a, neg)
}

func (e *p256Point) Negate(a Element) Element {
	ca := e.check(a)
	e.val = circl.P256.NewElement().Neg(ca.val)
	return e
}

func (e *p256Point) Scale(a Element, s *big.Int) Element {
	ca := e.check(a)
	e.val = circl.P256.NewElement().Mul(ca.val, e.scalar(s))
	return e
}

func (e *p256Point) BaseScale(s *big.Int) Element {
	e.val = circl.P256.NewElement().MulGen(e.scalar(s))
	return e
}

func (e *p256Point) Set(a Element) Element {
	ca := e.check(a)
	e.val = circl.P256.NewElement().Set(ca.val)
	return e
}

func (e *p256Point) IsEqual(a Element) bool {
	ca := e.check(a)
	return e.val.IsEqual(ca.val)
}

func (e *p256Point) IsIdentity() bool {
	return e.val.IsIdentity()
}

func (e *p256Point) MarshalCompressed() ([]byte, error) {
	return e.val.MarshalBinaryCompress()
}

func (e *p256Point) UnmarshalCompressed(b []byte) error {
	val := circl.P256.NewElement()
	if err := val.UnmarshalBinary(b); err != nil {
		return fmt.Errorf("p256: decoding point: %w", err)
	}
	e.val = val
	return nil
}

func (e *p256Point) String() string {
	b, err := e.val.MarshalBinaryCompress()
	if err != nil {
		return "<invalid point>"
	}
	return hex.EncodeToString(b)
}
