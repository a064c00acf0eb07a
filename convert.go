package valoremrfq

import (
	"encoding/binary"
	"math/big"

	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"

	"github.com/kaifufi/valorem-rfq-sdk-go/chain"
	"github.com/kaifufi/valorem-rfq-sdk-go/rpc"
	"github.com/kaifufi/valorem-rfq-sdk-go/wideint"
)

// Conversion between the domain types and their wire messages. Every integer
// wider than 64 bits goes through wideint.

func ulidToWire(id ulid.ULID) *wideint.H128 {
	return &wideint.H128{
		Hi: binary.BigEndian.Uint64(id[:8]),
		Lo: binary.BigEndian.Uint64(id[8:]),
	}
}

func ulidFromWire(h *wideint.H128) ulid.ULID {
	var id ulid.ULID
	if h == nil {
		return id
	}
	binary.BigEndian.PutUint64(id[:8], h.Hi)
	binary.BigEndian.PutUint64(id[8:], h.Lo)
	return id
}

func toH256(x *big.Int) (*wideint.H256, error) {
	if x == nil {
		x = new(big.Int)
	}
	return wideint.ToH256(x)
}

func requestToWire(r *QuoteRequest) (*rpc.QuoteRequest, error) {
	if r.Amount == nil || r.Amount.Sign() <= 0 {
		return nil, &InvalidParamError{Message: "amount must be positive"}
	}
	if !r.Instrument.ItemType.Valid() {
		return nil, &InvalidParamError{Message: "invalid item type " + r.Instrument.ItemType.String()}
	}
	identifier, err := toH256(r.Instrument.Identifier)
	if err != nil {
		return nil, errors.Wrap(err, "identifier")
	}
	amount, err := toH256(r.Amount)
	if err != nil {
		return nil, errors.Wrap(err, "amount")
	}
	msg := &rpc.QuoteRequest{
		Ulid:                 ulidToWire(r.CorrelationID),
		TakerAddress:         wideint.FromAddress(r.Taker),
		ItemType:             int32(r.Instrument.ItemType),
		TokenAddress:         wideint.FromAddress(r.Instrument.Token),
		IdentifierOrCriteria: identifier,
		Amount:               amount,
		Action:               r.Action.wire(),
		SeaportAddress:       wideint.FromAddress(r.Seaport),
	}
	if r.ChainID != nil {
		if msg.ChainId, err = toH256(r.ChainID); err != nil {
			return nil, errors.Wrap(err, "chain id")
		}
	}
	return msg, nil
}

func requestFromWire(m *rpc.QuoteRequest) (*QuoteRequest, error) {
	if err := m.Malformed(); err != nil {
		return nil, err
	}
	if m.Ulid == nil {
		return nil, errors.Wrap(ErrInvalidQuoteRequest, "missing ulid")
	}
	if m.Amount == nil {
		return nil, errors.Wrap(ErrInvalidQuoteRequest, "missing amount")
	}
	itemType := chain.ItemType(m.ItemType)
	if m.ItemType < 0 || !itemType.Valid() {
		return nil, errors.Wrapf(ErrInvalidQuoteRequest, "item type %d", m.ItemType)
	}
	r := &QuoteRequest{
		CorrelationID: ulidFromWire(m.Ulid),
		Taker:         m.TakerAddress.Address(),
		Instrument: chain.Instrument{
			ItemType:   itemType,
			Token:      m.TokenAddress.Address(),
			Identifier: m.IdentifierOrCriteria.Big(),
		},
		Amount:  m.Amount.Big(),
		Action:  actionFromWire(m.Action),
		Seaport: m.SeaportAddress.Address(),
	}
	if m.ChainId != nil {
		r.ChainID = m.ChainId.Big()
	}
	return r, nil
}

func quoteToWire(q *Quote) (*rpc.QuoteResponse, error) {
	order, err := signedOrderToWire(q.Order)
	if err != nil {
		return nil, err
	}
	msg := &rpc.QuoteResponse{
		Ulid:           ulidToWire(q.CorrelationID),
		MakerAddress:   wideint.FromAddress(q.Maker),
		Order:          order,
		SeaportAddress: wideint.FromAddress(q.Seaport),
	}
	if q.ChainID != nil {
		if msg.ChainId, err = toH256(q.ChainID); err != nil {
			return nil, errors.Wrap(err, "chain id")
		}
	}
	return msg, nil
}

// quoteFromWire validates the required fields of a response and decodes it. The
// returned error wraps ErrIncompleteResponse or ErrMalformedWideInt.
func quoteFromWire(m *rpc.QuoteResponse) (*Quote, error) {
	if err := m.Malformed(); err != nil {
		return nil, err
	}
	switch {
	case m.Ulid == nil:
		return nil, incomplete("ulid")
	case m.MakerAddress == nil:
		return nil, incomplete("maker_address")
	case m.Order == nil:
		return nil, incomplete("order")
	}
	order, err := signedOrderFromWire(m.Order)
	if err != nil {
		return nil, err
	}
	q := &Quote{
		CorrelationID: ulidFromWire(m.Ulid),
		Maker:         m.MakerAddress.Address(),
		Order:         order,
		Seaport:       m.SeaportAddress.Address(),
	}
	if m.ChainId != nil {
		q.ChainID = m.ChainId.Big()
	}
	return q, nil
}

func signedOrderToWire(s *chain.SignedOrder) (*rpc.SignedOrder, error) {
	if s == nil || s.Order == nil || s.Signature == nil {
		return nil, &InvalidParamError{Message: "signed order is incomplete"}
	}
	o := s.Order
	msg := &rpc.Order{
		Offerer:    wideint.FromAddress(o.Offerer),
		Zone:       wideint.FromAddress(o.Zone),
		OrderType:  int32(o.OrderType),
		ZoneHash:   wideint.FromHash(o.ZoneHash),
		ConduitKey: wideint.FromHash(o.ConduitKey),
	}
	var err error
	if msg.StartTime, err = toH256(o.StartTime); err != nil {
		return nil, errors.Wrap(err, "start time")
	}
	if msg.EndTime, err = toH256(o.EndTime); err != nil {
		return nil, errors.Wrap(err, "end time")
	}
	if msg.Salt, err = toH256(o.Salt); err != nil {
		return nil, errors.Wrap(err, "salt")
	}
	if o.Counter != nil {
		if msg.Counter, err = toH256(o.Counter); err != nil {
			return nil, errors.Wrap(err, "counter")
		}
	}
	for _, item := range o.Offer {
		w := &rpc.OfferItem{
			ItemType: int32(item.ItemType),
			Token:    wideint.FromAddress(item.Token),
		}
		if w.IdentifierOrCriteria, err = toH256(item.IdentifierOrCriteria); err != nil {
			return nil, errors.Wrap(err, "offer identifier")
		}
		if w.StartAmount, err = toH256(item.StartAmount); err != nil {
			return nil, errors.Wrap(err, "offer start amount")
		}
		if w.EndAmount, err = toH256(item.EndAmount); err != nil {
			return nil, errors.Wrap(err, "offer end amount")
		}
		msg.Offer = append(msg.Offer, w)
	}
	for _, item := range o.Consideration {
		w := &rpc.ConsiderationItem{
			ItemType:  int32(item.ItemType),
			Token:     wideint.FromAddress(item.Token),
			Recipient: wideint.FromAddress(item.Recipient),
		}
		if w.IdentifierOrCriteria, err = toH256(item.IdentifierOrCriteria); err != nil {
			return nil, errors.Wrap(err, "consideration identifier")
		}
		if w.StartAmount, err = toH256(item.StartAmount); err != nil {
			return nil, errors.Wrap(err, "consideration start amount")
		}
		if w.EndAmount, err = toH256(item.EndAmount); err != nil {
			return nil, errors.Wrap(err, "consideration end amount")
		}
		msg.Consideration = append(msg.Consideration, w)
	}
	return &rpc.SignedOrder{
		Parameters: msg,
		Signature: &rpc.EthSignature{
			R: s.Signature.R[:],
			S: s.Signature.S[:],
			V: []byte{s.Signature.V},
		},
	}, nil
}

func signedOrderFromWire(m *rpc.SignedOrder) (*chain.SignedOrder, error) {
	switch {
	case m.Signature == nil:
		return nil, incomplete("signature")
	case m.Parameters == nil:
		return nil, incomplete("parameters")
	case m.Parameters.Offerer == nil:
		return nil, incomplete("offerer")
	case m.Parameters.StartTime == nil:
		return nil, incomplete("start_time")
	case m.Parameters.EndTime == nil:
		return nil, incomplete("end_time")
	case m.Parameters.Salt == nil:
		return nil, incomplete("salt")
	}

	sig, err := signatureFromWire(m.Signature)
	if err != nil {
		return nil, err
	}

	p := m.Parameters
	orderType := chain.OrderType(p.OrderType)
	if p.OrderType < 0 || !orderType.Valid() {
		return nil, errors.Wrapf(ErrIncompleteResponse, "order type %d", p.OrderType)
	}
	o := &chain.Order{
		Offerer:    p.Offerer.Address(),
		Zone:       p.Zone.Address(),
		OrderType:  orderType,
		StartTime:  p.StartTime.Big(),
		EndTime:    p.EndTime.Big(),
		ZoneHash:   p.ZoneHash.Hash(),
		Salt:       p.Salt.Big(),
		ConduitKey: p.ConduitKey.Hash(),
	}
	if p.Counter != nil {
		o.Counter = p.Counter.Big()
	}
	for i, item := range p.Offer {
		itemType, err := itemTypeFromWire(item.ItemType)
		if err != nil {
			return nil, errors.Wrapf(err, "offer[%d]", i)
		}
		o.Offer = append(o.Offer, chain.OfferItem{
			ItemType:             itemType,
			Token:                item.Token.Address(),
			IdentifierOrCriteria: item.IdentifierOrCriteria.Big(),
			StartAmount:          item.StartAmount.Big(),
			EndAmount:            item.EndAmount.Big(),
		})
	}
	for i, item := range p.Consideration {
		itemType, err := itemTypeFromWire(item.ItemType)
		if err != nil {
			return nil, errors.Wrapf(err, "consideration[%d]", i)
		}
		o.Consideration = append(o.Consideration, chain.ConsiderationItem{
			ItemType:             itemType,
			Token:                item.Token.Address(),
			IdentifierOrCriteria: item.IdentifierOrCriteria.Big(),
			StartAmount:          item.StartAmount.Big(),
			EndAmount:            item.EndAmount.Big(),
			Recipient:            item.Recipient.Address(),
		})
	}
	return &chain.SignedOrder{Order: o, Signature: sig}, nil
}

// itemTypeFromWire checks the raw value before narrowing it to a Seaport item type.
func itemTypeFromWire(v int32) (chain.ItemType, error) {
	if v < 0 || v > int32(chain.ItemTypeERC1155WithCriteria) {
		return 0, errors.Wrapf(ErrIncompleteResponse, "item type %d", v)
	}
	return chain.ItemType(v), nil
}

func signatureFromWire(m *rpc.EthSignature) (*chain.Signature, error) {
	if len(m.R) == 0 || len(m.S) == 0 || len(m.V) == 0 {
		return nil, incomplete("signature")
	}
	if len(m.R) > 32 || len(m.S) > 32 || len(m.V) != 1 {
		return nil, errors.Wrapf(ErrIncompleteResponse, "signature component lengths r=%d s=%d v=%d", len(m.R), len(m.S), len(m.V))
	}
	raw := make([]byte, 65)
	copy(raw[32-len(m.R):32], m.R)
	copy(raw[64-len(m.S):64], m.S)
	raw[64] = m.V[0]
	sig, err := chain.SignatureFromBytes(raw)
	if err != nil {
		return nil, errors.Wrap(ErrIncompleteResponse, err.Error())
	}
	return sig, nil
}
