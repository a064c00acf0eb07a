package wideint

import (
	"math/big"
	"math/rand"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

var widths = []Width{Width40, Width96, Width128, Width160, Width256}

func pow2(n Width) *big.Int {
	return new(big.Int).Lsh(big.NewInt(1), uint(n))
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(42))

	for _, w := range widths {
		limit := pow2(w)
		max := new(big.Int).Sub(limit, big.NewInt(1))

		values := []*big.Int{big.NewInt(0), big.NewInt(1), big.NewInt(0xff), big.NewInt(0x100), max}
		for i := 0; i < 200; i++ {
			values = append(values, new(big.Int).Rand(r, limit))
		}

		for _, x := range values {
			enc, err := Encode(x, w)
			require.NoError(t, err, "width %d value %s", w, x)
			assert.Equal(t, w, enc.Width())

			got, err := Decode(enc)
			require.NoError(t, err)
			assert.Equal(t, 0, x.Cmp(got), "width %d: want %s got %s", w, x, got)
		}
	}
}

func TestEncode_OutOfRange(t *testing.T) {
	for _, w := range widths {
		_, err := Encode(pow2(w), w)
		assert.True(t, errors.Is(err, ErrOutOfRange), "width %d", w)
	}

	_, err := ToH256(big.NewInt(-1))
	assert.True(t, errors.Is(err, ErrOutOfRange))
}

func TestEncode_UnsupportedWidth(t *testing.T) {
	_, err := Encode(big.NewInt(1), 64)
	assert.Error(t, err)
}

func TestH160_Split(t *testing.T) {
	addr := common.HexToAddress("0x00000000000000000000000000000000000001")
	h := FromAddress(addr)

	assert.Equal(t, uint32(1), h.Lo)
	assert.Equal(t, H128{}, *h.Hi)
	assert.Equal(t, big.NewInt(1), h.Big())
	assert.Equal(t, addr, h.Address())

	// The top 128 bits of an address land in hi, the last 4 bytes in lo.
	addr = common.HexToAddress("0x0102030405060708090a0b0c0d0e0f1011121314")
	h = FromAddress(addr)
	assert.Equal(t, uint32(0x11121314), h.Lo)
	assert.Equal(t, uint64(0x0102030405060708), h.Hi.Hi)
	assert.Equal(t, uint64(0x090a0b0c0d0e0f10), h.Hi.Lo)
	assert.Equal(t, addr, h.Address())
}

func TestH256_Five(t *testing.T) {
	h, err := ToH256(big.NewInt(5))
	require.NoError(t, err)
	assert.Equal(t, uint64(5), h.Lo.Lo)
	assert.Equal(t, H128{}, *h.Hi)

	got, err := Decode(h)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(5), got)
	assert.Equal(t, FromUint64(5).Big(), got)
}

func TestH40_Split(t *testing.T) {
	h, err := ToH40(big.NewInt(0x1234567890))
	require.NoError(t, err)
	assert.Equal(t, uint32(0x12345678), h.Hi)
	assert.Equal(t, uint32(0x90), h.Lo)
}

func TestDecode_AbsentIsZero(t *testing.T) {
	var (
		h40  *H40
		h160 *H160
		h256 *H256
	)
	for _, v := range []WideInt{h40, h160, h256, &H160{}, &H256{Lo: &H128{}}} {
		got, err := Decode(v)
		require.NoError(t, err)
		assert.Equal(t, 0, got.Sign())
	}
	assert.True(t, h256.IsZero())
	assert.Equal(t, common.Address{}, h160.Address())
}

func TestDecode_NilInterface(t *testing.T) {
	got, err := Decode(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Sign())
}

func TestDecode_Malformed(t *testing.T) {
	_, err := Decode(&H40{Hi: 1, Lo: 0x100})
	assert.True(t, errors.Is(err, ErrMalformedWideInt))
}

func TestWire_RoundTrip(t *testing.T) {
	x, _ := new(big.Int).SetString("fedcba9876543210fedcba98765432100123456789abcdef0123456789abcdef", 16)
	h, err := ToH256(x)
	require.NoError(t, err)

	var got H256
	require.NoError(t, got.UnmarshalWire(h.AppendWire(nil)))
	assert.Equal(t, 0, x.Cmp(got.Big()))

	addr := FromAddress(common.HexToAddress("0x00000000000000ADc04C56Bf30aC9d3c0aAF14dC"))
	var gotAddr H160
	require.NoError(t, gotAddr.UnmarshalWire(addr.AppendWire(nil)))
	assert.Equal(t, addr.Address(), gotAddr.Address())
}

func TestWire_ZeroIsEmpty(t *testing.T) {
	assert.Empty(t, (&H128{}).AppendWire(nil))
	assert.Empty(t, (&H40{}).AppendWire(nil))
}

func TestWire_Malformed(t *testing.T) {
	// H160.lo is a 32-bit field.
	b := protowire.AppendTag(nil, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, 1<<33)
	var h160 H160
	assert.True(t, errors.Is(h160.UnmarshalWire(b), ErrMalformedWideInt))

	// H40.lo is an 8-bit field.
	b = protowire.AppendTag(nil, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, 256)
	var h40 H40
	assert.True(t, errors.Is(h40.UnmarshalWire(b), ErrMalformedWideInt))

	// Truncated input.
	var h128 H128
	assert.True(t, errors.Is(h128.UnmarshalWire([]byte{0x08}), ErrMalformedWideInt))
}

func TestWire_SkipsUnknownFields(t *testing.T) {
	b := protowire.AppendTag(nil, 9, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte("ignored"))
	b = (&H128{Hi: 3, Lo: 4}).AppendWire(b)

	var h H128
	require.NoError(t, h.UnmarshalWire(b))
	assert.Equal(t, H128{Hi: 3, Lo: 4}, h)
}
