package rpc

import (
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/kaifufi/valorem-rfq-sdk-go/wideint"
)

// Action is the side a taker asks to trade.
type Action int32

const (
	ActionBuy     Action = 0
	ActionSell    Action = 1
	ActionInvalid Action = 2
)

// Normalize maps unknown values to ActionInvalid.
func (a Action) Normalize() Action {
	if a == ActionBuy || a == ActionSell {
		return a
	}
	return ActionInvalid
}

func (a Action) String() string {
	switch a {
	case ActionBuy:
		return "BUY"
	case ActionSell:
		return "SELL"
	}
	return "INVALID"
}

// Message is implemented by every type carried by the RFQ and Auth services.
type Message interface {
	Marshal() ([]byte, error)
	Unmarshal(b []byte) error
}

type Empty struct{}

func (m *Empty) Marshal() ([]byte, error) { return nil, nil }
func (m *Empty) Unmarshal(b []byte) error {
	return new(decoder).walk(b, func(protowire.Number, protowire.Type, []byte) (int, error) { return -1, nil })
}

type NonceText struct {
	Nonce string
}

func (m *NonceText) Marshal() ([]byte, error) {
	return appendBytes(nil, 1, []byte(m.Nonce)), nil
}

func (m *NonceText) Unmarshal(b []byte) error {
	*m = NonceText{}
	d := new(decoder)
	return d.walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != 1 {
			return -1, nil
		}
		v, n, err := d.bytes(typ, b)
		m.Nonce = string(v)
		return n, err
	})
}

// VerifyText carries the signed sign-in message as JSON.
type VerifyText struct {
	Body string
}

func (m *VerifyText) Marshal() ([]byte, error) {
	return appendBytes(nil, 1, []byte(m.Body)), nil
}

func (m *VerifyText) Unmarshal(b []byte) error {
	*m = VerifyText{}
	d := new(decoder)
	return d.walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != 1 {
			return -1, nil
		}
		v, n, err := d.bytes(typ, b)
		m.Body = string(v)
		return n, err
	})
}

// EthSignature is r (32 bytes), s (32 bytes) and v (1 byte).
type EthSignature struct {
	R []byte
	S []byte
	V []byte
}

func (m *EthSignature) AppendWire(b []byte) []byte {
	b = appendBytes(b, 1, m.R)
	b = appendBytes(b, 2, m.S)
	return appendBytes(b, 3, m.V)
}

func (m *EthSignature) decode(d *decoder, b []byte) error {
	return d.walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		var (
			v   []byte
			n   int
			err error
		)
		switch num {
		case 1:
			v, n, err = d.bytes(typ, b)
			m.R = v
		case 2:
			v, n, err = d.bytes(typ, b)
			m.S = v
		case 3:
			v, n, err = d.bytes(typ, b)
			m.V = v
		default:
			return -1, nil
		}
		return n, err
	})
}

type OfferItem struct {
	ItemType             int32
	Token                *wideint.H160
	IdentifierOrCriteria *wideint.H256
	StartAmount          *wideint.H256
	EndAmount            *wideint.H256
}

func (m *OfferItem) AppendWire(b []byte) []byte {
	b = appendVarint(b, 1, uint64(m.ItemType))
	b = appendMessage(b, 2, m.Token)
	b = appendMessage(b, 3, m.IdentifierOrCriteria)
	b = appendMessage(b, 4, m.StartAmount)
	return appendMessage(b, 5, m.EndAmount)
}

func (m *OfferItem) decode(d *decoder, b []byte) error {
	return d.walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := d.varint(typ, b)
			m.ItemType = int32(v)
			return n, err
		case 2:
			return d.h160(typ, b, &m.Token)
		case 3:
			return d.h256(typ, b, &m.IdentifierOrCriteria)
		case 4:
			return d.h256(typ, b, &m.StartAmount)
		case 5:
			return d.h256(typ, b, &m.EndAmount)
		}
		return -1, nil
	})
}

type ConsiderationItem struct {
	ItemType             int32
	Token                *wideint.H160
	IdentifierOrCriteria *wideint.H256
	StartAmount          *wideint.H256
	EndAmount            *wideint.H256
	Recipient            *wideint.H160
}

func (m *ConsiderationItem) AppendWire(b []byte) []byte {
	b = appendVarint(b, 1, uint64(m.ItemType))
	b = appendMessage(b, 2, m.Token)
	b = appendMessage(b, 3, m.IdentifierOrCriteria)
	b = appendMessage(b, 4, m.StartAmount)
	b = appendMessage(b, 5, m.EndAmount)
	return appendMessage(b, 6, m.Recipient)
}

func (m *ConsiderationItem) decode(d *decoder, b []byte) error {
	return d.walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := d.varint(typ, b)
			m.ItemType = int32(v)
			return n, err
		case 2:
			return d.h160(typ, b, &m.Token)
		case 3:
			return d.h256(typ, b, &m.IdentifierOrCriteria)
		case 4:
			return d.h256(typ, b, &m.StartAmount)
		case 5:
			return d.h256(typ, b, &m.EndAmount)
		case 6:
			return d.h160(typ, b, &m.Recipient)
		}
		return -1, nil
	})
}

// Order carries Seaport order parameters. Counter is optional; when absent the
// taker reads it from chain.
type Order struct {
	Offerer       *wideint.H160
	Zone          *wideint.H160
	Offer         []*OfferItem
	Consideration []*ConsiderationItem
	OrderType     int32
	StartTime     *wideint.H256
	EndTime       *wideint.H256
	ZoneHash      *wideint.H256
	Salt          *wideint.H256
	ConduitKey    *wideint.H256
	Counter       *wideint.H256
}

func (m *Order) AppendWire(b []byte) []byte {
	b = appendMessage(b, 1, m.Offerer)
	b = appendMessage(b, 2, m.Zone)
	for _, item := range m.Offer {
		b = appendMessage(b, 3, item)
	}
	for _, item := range m.Consideration {
		b = appendMessage(b, 4, item)
	}
	b = appendVarint(b, 5, uint64(m.OrderType))
	b = appendMessage(b, 6, m.StartTime)
	b = appendMessage(b, 7, m.EndTime)
	b = appendMessage(b, 8, m.ZoneHash)
	b = appendMessage(b, 9, m.Salt)
	b = appendMessage(b, 10, m.ConduitKey)
	return appendMessage(b, 11, m.Counter)
}

func (m *Order) decode(d *decoder, b []byte) error {
	return d.walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return d.h160(typ, b, &m.Offerer)
		case 2:
			return d.h160(typ, b, &m.Zone)
		case 3:
			raw, n, err := d.bytes(typ, b)
			if err != nil || n < 0 {
				return n, err
			}
			item := new(OfferItem)
			m.Offer = append(m.Offer, item)
			return n, item.decode(d, raw)
		case 4:
			raw, n, err := d.bytes(typ, b)
			if err != nil || n < 0 {
				return n, err
			}
			item := new(ConsiderationItem)
			m.Consideration = append(m.Consideration, item)
			return n, item.decode(d, raw)
		case 5:
			v, n, err := d.varint(typ, b)
			m.OrderType = int32(v)
			return n, err
		case 6:
			return d.h256(typ, b, &m.StartTime)
		case 7:
			return d.h256(typ, b, &m.EndTime)
		case 8:
			return d.h256(typ, b, &m.ZoneHash)
		case 9:
			return d.h256(typ, b, &m.Salt)
		case 10:
			return d.h256(typ, b, &m.ConduitKey)
		case 11:
			return d.h256(typ, b, &m.Counter)
		}
		return -1, nil
	})
}

type SignedOrder struct {
	Parameters *Order
	Signature  *EthSignature
}

func (m *SignedOrder) AppendWire(b []byte) []byte {
	b = appendMessage(b, 1, m.Parameters)
	return appendMessage(b, 2, m.Signature)
}

func (m *SignedOrder) decode(d *decoder, b []byte) error {
	return d.walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		raw, n, err := d.bytes(typ, b)
		if err != nil || n < 0 {
			return n, err
		}
		switch num {
		case 1:
			m.Parameters = new(Order)
			return n, m.Parameters.decode(d, raw)
		case 2:
			m.Signature = new(EthSignature)
			return n, m.Signature.decode(d, raw)
		}
		return n, nil
	})
}

// QuoteRequest asks makers to quote an instrument.
type QuoteRequest struct {
	Ulid                 *wideint.H128
	TakerAddress         *wideint.H160
	ItemType             int32
	TokenAddress         *wideint.H160
	IdentifierOrCriteria *wideint.H256
	Amount               *wideint.H256
	Action               Action
	ChainId              *wideint.H256
	SeaportAddress       *wideint.H160

	malformed error
}

// Malformed returns the first wide integer field that failed validation while decoding.
func (m *QuoteRequest) Malformed() error {
	return m.malformed
}

func (m *QuoteRequest) Marshal() ([]byte, error) {
	var b []byte
	b = appendMessage(b, 1, m.Ulid)
	b = appendMessage(b, 2, m.TakerAddress)
	b = appendVarint(b, 3, uint64(m.ItemType))
	b = appendMessage(b, 4, m.TokenAddress)
	b = appendMessage(b, 5, m.IdentifierOrCriteria)
	b = appendMessage(b, 6, m.Amount)
	b = appendVarint(b, 7, uint64(m.Action))
	b = appendMessage(b, 8, m.ChainId)
	b = appendMessage(b, 9, m.SeaportAddress)
	return b, nil
}

func (m *QuoteRequest) Unmarshal(b []byte) error {
	*m = QuoteRequest{}
	d := new(decoder)
	err := d.walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return d.h128(typ, b, &m.Ulid)
		case 2:
			return d.h160(typ, b, &m.TakerAddress)
		case 3:
			v, n, err := d.varint(typ, b)
			m.ItemType = int32(v)
			return n, err
		case 4:
			return d.h160(typ, b, &m.TokenAddress)
		case 5:
			return d.h256(typ, b, &m.IdentifierOrCriteria)
		case 6:
			return d.h256(typ, b, &m.Amount)
		case 7:
			v, n, err := d.varint(typ, b)
			m.Action = Action(int32(v))
			return n, err
		case 8:
			return d.h256(typ, b, &m.ChainId)
		case 9:
			return d.h160(typ, b, &m.SeaportAddress)
		}
		return -1, nil
	})
	m.malformed = d.malformed
	return err
}

// QuoteResponse answers a QuoteRequest. A response with every field unset keeps
// the stream alive and carries no offer.
type QuoteResponse struct {
	Ulid           *wideint.H128
	MakerAddress   *wideint.H160
	Order          *SignedOrder
	ChainId        *wideint.H256
	SeaportAddress *wideint.H160

	malformed error
}

// Malformed returns the first wide integer field that failed validation while decoding.
func (m *QuoteResponse) Malformed() error {
	return m.malformed
}

// IsKeepAlive reports whether m is the empty keep-alive response.
func (m *QuoteResponse) IsKeepAlive() bool {
	return m.Ulid == nil && m.MakerAddress == nil && m.Order == nil &&
		m.ChainId == nil && m.SeaportAddress == nil && m.malformed == nil
}

func (m *QuoteResponse) Marshal() ([]byte, error) {
	var b []byte
	b = appendMessage(b, 1, m.Ulid)
	b = appendMessage(b, 2, m.MakerAddress)
	b = appendMessage(b, 3, m.Order)
	b = appendMessage(b, 4, m.ChainId)
	b = appendMessage(b, 5, m.SeaportAddress)
	return b, nil
}

func (m *QuoteResponse) Unmarshal(b []byte) error {
	*m = QuoteResponse{}
	d := new(decoder)
	err := d.walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return d.h128(typ, b, &m.Ulid)
		case 2:
			return d.h160(typ, b, &m.MakerAddress)
		case 3:
			raw, n, err := d.bytes(typ, b)
			if err != nil || n < 0 {
				return n, err
			}
			m.Order = new(SignedOrder)
			return n, m.Order.decode(d, raw)
		case 4:
			return d.h256(typ, b, &m.ChainId)
		case 5:
			return d.h160(typ, b, &m.SeaportAddress)
		}
		return -1, nil
	})
	m.malformed = d.malformed
	return err
}
