package rpc

import (
	"reflect"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/kaifufi/valorem-rfq-sdk-go/wideint"
)

// ErrMalformedMessage is returned when a frame is not valid protobuf.
var ErrMalformedMessage = errors.New("malformed message")

type wireMarshaler interface {
	AppendWire(b []byte) []byte
}

type wireUnmarshaler interface {
	UnmarshalWire(b []byte) error
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

// appendMessage writes m as a length-delimited field. Nil pointers are omitted; an
// empty non-nil message is written so presence survives the round trip.
func appendMessage(b []byte, num protowire.Number, m wireMarshaler) []byte {
	if m == nil || reflect.ValueOf(m).IsNil() {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, m.AppendWire(nil))
}

// decoder walks a message. Wide integer fields that fail validation are recorded
// rather than failing the frame, so one bad value rejects one message without
// breaking the stream carrying it.
type decoder struct {
	malformed error
}

type fieldFunc func(num protowire.Number, typ protowire.Type, b []byte) (int, error)

func (d *decoder) walk(b []byte, fn fieldFunc) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return errors.Wrap(ErrMalformedMessage, protowire.ParseError(n).Error())
		}
		b = b[n:]

		used, err := fn(num, typ, b)
		if err != nil {
			return err
		}
		if used < 0 {
			used = protowire.ConsumeFieldValue(num, typ, b)
			if used < 0 {
				return errors.Wrap(ErrMalformedMessage, protowire.ParseError(used).Error())
			}
		}
		b = b[used:]
	}
	return nil
}

func (d *decoder) varint(typ protowire.Type, b []byte) (uint64, int, error) {
	if typ != protowire.VarintType {
		return 0, -1, nil
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, 0, errors.Wrap(ErrMalformedMessage, protowire.ParseError(n).Error())
	}
	return v, n, nil
}

func (d *decoder) bytes(typ protowire.Type, b []byte) ([]byte, int, error) {
	if typ != protowire.BytesType {
		return nil, -1, nil
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, 0, errors.Wrap(ErrMalformedMessage, protowire.ParseError(n).Error())
	}
	return append([]byte(nil), v...), n, nil
}

// wide decodes a wide integer field into dst, recording validation failures.
func (d *decoder) wide(typ protowire.Type, b []byte, dst wireUnmarshaler) (bool, int, error) {
	raw, n, err := d.bytes(typ, b)
	if err != nil || n < 0 {
		return false, n, err
	}
	if err := dst.UnmarshalWire(raw); err != nil {
		if d.malformed == nil {
			d.malformed = err
		}
		return false, n, nil
	}
	return true, n, nil
}

func (d *decoder) h128(typ protowire.Type, b []byte, dst **wideint.H128) (int, error) {
	v := new(wideint.H128)
	ok, n, err := d.wide(typ, b, v)
	if ok {
		*dst = v
	}
	return n, err
}

func (d *decoder) h160(typ protowire.Type, b []byte, dst **wideint.H160) (int, error) {
	v := new(wideint.H160)
	ok, n, err := d.wide(typ, b, v)
	if ok {
		*dst = v
	}
	return n, err
}

func (d *decoder) h256(typ protowire.Type, b []byte, dst **wideint.H256) (int, error) {
	v := new(wideint.H256)
	ok, n, err := d.wide(typ, b, v)
	if ok {
		*dst = v
	}
	return n, err
}
