package wideint

import (
	"math"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// Protobuf wire form: hi is field 1, lo is field 2. Zero scalars are omitted and
// unknown fields are skipped, so the encoding matches proto3 messages of the same shape.

const (
	fieldHi protowire.Number = 1
	fieldLo protowire.Number = 2
)

func appendUint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendSub(b []byte, num protowire.Number, sub *H128) []byte {
	if sub == nil {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, sub.AppendWire(nil))
}

// walk calls fn for every field in b. fn returns the bytes it consumed, or -1 to skip.
func walk(b []byte, fn func(num protowire.Number, typ protowire.Type, b []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return errors.Wrap(ErrMalformedWideInt, protowire.ParseError(n).Error())
		}
		b = b[n:]

		used, err := fn(num, typ, b)
		if err != nil {
			return err
		}
		if used < 0 {
			used = protowire.ConsumeFieldValue(num, typ, b)
			if used < 0 {
				return errors.Wrap(ErrMalformedWideInt, protowire.ParseError(used).Error())
			}
		}
		b = b[used:]
	}
	return nil
}

// consumeVarint rejects values wider than max instead of narrowing them.
func consumeVarint(b []byte, max uint64) (uint64, int, error) {
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, 0, errors.Wrap(ErrMalformedWideInt, protowire.ParseError(n).Error())
	}
	if v > max {
		return 0, 0, errors.Wrapf(ErrMalformedWideInt, "field value %d exceeds %d", v, max)
	}
	return v, n, nil
}

func consumeSub(b []byte) (*H128, int, error) {
	raw, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, 0, errors.Wrap(ErrMalformedWideInt, protowire.ParseError(n).Error())
	}
	sub := new(H128)
	if err := sub.UnmarshalWire(raw); err != nil {
		return nil, 0, err
	}
	return sub, n, nil
}

func (h *H40) AppendWire(b []byte) []byte {
	b = appendUint(b, fieldHi, uint64(h.Hi))
	return appendUint(b, fieldLo, uint64(h.Lo))
}

func (h *H40) UnmarshalWire(b []byte) error {
	*h = H40{}
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if typ != protowire.VarintType {
			return -1, nil
		}
		switch num {
		case fieldHi:
			v, n, err := consumeVarint(b, math.MaxUint32)
			h.Hi = uint32(v)
			return n, err
		case fieldLo:
			v, n, err := consumeVarint(b, math.MaxUint8)
			h.Lo = uint32(v)
			return n, err
		}
		return -1, nil
	})
}

func (h *H96) AppendWire(b []byte) []byte {
	b = appendUint(b, fieldHi, h.Hi)
	return appendUint(b, fieldLo, uint64(h.Lo))
}

func (h *H96) UnmarshalWire(b []byte) error {
	*h = H96{}
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if typ != protowire.VarintType {
			return -1, nil
		}
		switch num {
		case fieldHi:
			v, n, err := consumeVarint(b, math.MaxUint64)
			h.Hi = v
			return n, err
		case fieldLo:
			v, n, err := consumeVarint(b, math.MaxUint32)
			h.Lo = uint32(v)
			return n, err
		}
		return -1, nil
	})
}

func (h *H128) AppendWire(b []byte) []byte {
	b = appendUint(b, fieldHi, h.Hi)
	return appendUint(b, fieldLo, h.Lo)
}

func (h *H128) UnmarshalWire(b []byte) error {
	*h = H128{}
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if typ != protowire.VarintType {
			return -1, nil
		}
		switch num {
		case fieldHi:
			v, n, err := consumeVarint(b, math.MaxUint64)
			h.Hi = v
			return n, err
		case fieldLo:
			v, n, err := consumeVarint(b, math.MaxUint64)
			h.Lo = v
			return n, err
		}
		return -1, nil
	})
}

func (h *H160) AppendWire(b []byte) []byte {
	b = appendSub(b, fieldHi, h.Hi)
	return appendUint(b, fieldLo, uint64(h.Lo))
}

func (h *H160) UnmarshalWire(b []byte) error {
	*h = H160{}
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == fieldHi && typ == protowire.BytesType:
			sub, n, err := consumeSub(b)
			h.Hi = sub
			return n, err
		case num == fieldLo && typ == protowire.VarintType:
			v, n, err := consumeVarint(b, math.MaxUint32)
			h.Lo = uint32(v)
			return n, err
		}
		return -1, nil
	})
}

func (h *H256) AppendWire(b []byte) []byte {
	b = appendSub(b, fieldHi, h.Hi)
	return appendSub(b, fieldLo, h.Lo)
}

func (h *H256) UnmarshalWire(b []byte) error {
	*h = H256{}
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if typ != protowire.BytesType {
			return -1, nil
		}
		switch num {
		case fieldHi:
			sub, n, err := consumeSub(b)
			h.Hi = sub
			return n, err
		case fieldLo:
			sub, n, err := consumeSub(b)
			h.Lo = sub
			return n, err
		}
		return -1, nil
	})
}
