// Package wideint splits unsigned integers wider than 64 bits into nested hi/lo pairs
// of native integers, the representation used on the wire for every amount, address,
// timestamp and correlation id.
//
// Every width is built from the 128-bit pair except the 40-bit leaf:
//
//	H40  = {hi uint32, lo uint8}    value = hi<<8 | lo
//	H96  = {hi uint64, lo uint32}   value = hi<<32 | lo
//	H128 = {hi uint64, lo uint64}   value = hi<<64 | lo
//	H160 = {hi H128,   lo uint32}   value = hi<<32 | lo
//	H256 = {hi H128,   lo H128}     value = hi<<128 | lo
//
// H160 is split 128+32, not into two 80-bit halves, so that an account address is a
// 128-bit prefix plus a 32-bit suffix. Any other split is a bug.
package wideint

import (
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

var (
	// ErrOutOfRange is returned when a value is negative or does not fit the width.
	ErrOutOfRange = errors.New("value out of range")

	// ErrMalformedWideInt is returned when a present hi or lo field exceeds its declared width.
	ErrMalformedWideInt = errors.New("malformed wide integer")
)

// Width is the bit width of a split integer.
type Width uint

const (
	Width40  Width = 40
	Width96  Width = 96
	Width128 Width = 128
	Width160 Width = 160
	Width256 Width = 256
)

// WideInt is implemented by every split representation.
type WideInt interface {
	Width() Width
	Big() *big.Int
	Validate() error
}

// H40 is a 40-bit value: the high 32 bits in Hi and the low 8 bits in Lo.
type H40 struct {
	Hi uint32
	Lo uint32 // 8 bits
}

// H96 is a 96-bit value: the high 64 bits in Hi and the low 32 bits in Lo.
type H96 struct {
	Hi uint64
	Lo uint32
}

// H128 is a 128-bit value as two 64-bit halves. It is the building block of the
// wider types.
type H128 struct {
	Hi uint64
	Lo uint64
}

// H160 is a 160-bit value such as an account address: a 128-bit prefix in Hi
// and a 32-bit suffix in Lo.
type H160 struct {
	Hi *H128
	Lo uint32
}

// H256 is a 256-bit word as two 128-bit halves.
type H256 struct {
	Hi *H128
	Lo *H128
}

// Encode splits x into the representation for width w.
func Encode(x *big.Int, w Width) (WideInt, error) {
	switch w {
	case Width40:
		return ToH40(x)
	case Width96:
		return ToH96(x)
	case Width128:
		return ToH128(x)
	case Width160:
		return ToH160(x)
	case Width256:
		return ToH256(x)
	}
	return nil, errors.Errorf("unsupported width %d", w)
}

// Decode validates v and joins it back into a big.Int. A nil interface or a nil
// pointer decodes as zero.
func Decode(v WideInt) (*big.Int, error) {
	if v == nil {
		return new(big.Int), nil
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}
	return v.Big(), nil
}

func toWord(x *big.Int, w Width) (*uint256.Int, error) {
	if x == nil {
		return new(uint256.Int), nil
	}
	if x.Sign() < 0 || x.BitLen() > int(w) {
		return nil, errors.Wrapf(ErrOutOfRange, "%s does not fit in %d bits", x, w)
	}
	u, _ := uint256.FromBig(x)
	return u, nil
}

// ToH40 splits x, which must be non-negative and fit in 40 bits. A nil x is zero.
func ToH40(x *big.Int) (*H40, error) {
	u, err := toWord(x, Width40)
	if err != nil {
		return nil, err
	}
	return &H40{Hi: uint32(u[0] >> 8), Lo: uint32(u[0] & 0xff)}, nil
}

// ToH96 splits x, which must be non-negative and fit in 96 bits.
func ToH96(x *big.Int) (*H96, error) {
	u, err := toWord(x, Width96)
	if err != nil {
		return nil, err
	}
	hi := new(uint256.Int).Rsh(u, 32)
	return &H96{Hi: hi.Uint64(), Lo: uint32(u[0])}, nil
}

// ToH128 splits x, which must be non-negative and fit in 128 bits.
func ToH128(x *big.Int) (*H128, error) {
	u, err := toWord(x, Width128)
	if err != nil {
		return nil, err
	}
	return &H128{Hi: u[1], Lo: u[0]}, nil
}

// ToH160 splits x into a 128-bit prefix and a 32-bit suffix. It returns
// ErrOutOfRange when x is negative or wider than 160 bits.
func ToH160(x *big.Int) (*H160, error) {
	u, err := toWord(x, Width160)
	if err != nil {
		return nil, err
	}
	hi := new(uint256.Int).Rsh(u, 32)
	return &H160{Hi: &H128{Hi: hi[1], Lo: hi[0]}, Lo: uint32(u[0])}, nil
}

// ToH256 splits x, which must be non-negative and fit in 256 bits.
func ToH256(x *big.Int) (*H256, error) {
	u, err := toWord(x, Width256)
	if err != nil {
		return nil, err
	}
	return &H256{
		Hi: &H128{Hi: u[3], Lo: u[2]},
		Lo: &H128{Hi: u[1], Lo: u[0]},
	}, nil
}

// FromUint64 is ToH256 for values that always fit.
func FromUint64(v uint64) *H256 {
	return &H256{Hi: &H128{}, Lo: &H128{Lo: v}}
}

// FromAddress encodes an account address.
func FromAddress(addr common.Address) *H160 {
	h, _ := ToH160(new(big.Int).SetBytes(addr.Bytes()))
	return h
}

// FromHash encodes a 32-byte word such as a zone hash or conduit key.
func FromHash(hash common.Hash) *H256 {
	h, _ := ToH256(new(big.Int).SetBytes(hash.Bytes()))
	return h
}

func (h *H40) Width() Width  { return Width40 }
func (h *H96) Width() Width  { return Width96 }
func (h *H128) Width() Width { return Width128 }
func (h *H160) Width() Width { return Width160 }
func (h *H256) Width() Width { return Width256 }

func (h *H40) Validate() error {
	if h != nil && h.Lo > math.MaxUint8 {
		return errors.Wrapf(ErrMalformedWideInt, "H40 lo %d exceeds 8 bits", h.Lo)
	}
	return nil
}

func (h *H96) Validate() error  { return nil }
func (h *H128) Validate() error { return nil }
func (h *H160) Validate() error { return nil }
func (h *H256) Validate() error { return nil }

func (h *H40) Big() *big.Int {
	if h == nil {
		return new(big.Int)
	}
	return new(big.Int).SetUint64(uint64(h.Hi)<<8 | uint64(h.Lo))
}

func (h *H96) Big() *big.Int {
	if h == nil {
		return new(big.Int)
	}
	u := new(uint256.Int).SetUint64(h.Hi)
	u.Lsh(u, 32)
	u.Or(u, uint256.NewInt(uint64(h.Lo)))
	return u.ToBig()
}

func (h *H128) word() *uint256.Int {
	if h == nil {
		return new(uint256.Int)
	}
	return &uint256.Int{h.Lo, h.Hi, 0, 0}
}

func (h *H128) Big() *big.Int {
	return h.word().ToBig()
}

func (h *H160) Big() *big.Int {
	if h == nil {
		return new(big.Int)
	}
	u := new(uint256.Int).Lsh(h.Hi.word(), 32)
	u.Or(u, uint256.NewInt(uint64(h.Lo)))
	return u.ToBig()
}

func (h *H256) Big() *big.Int {
	if h == nil {
		return new(big.Int)
	}
	hi, lo := h.Hi.word(), h.Lo.word()
	return (&uint256.Int{lo[0], lo[1], hi[0], hi[1]}).ToBig()
}

// Address returns the account address held by h.
func (h *H160) Address() common.Address {
	return common.BigToAddress(h.Big())
}

// Hash returns h as a 32-byte big-endian word.
func (h *H256) Hash() common.Hash {
	return common.BigToHash(h.Big())
}

// IsZero reports whether h is absent or encodes zero.
func (h *H256) IsZero() bool {
	return h.Big().Sign() == 0
}
