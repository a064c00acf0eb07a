package chain

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ItemType is the Seaport item type.
type ItemType uint8

const (
	ItemTypeNative ItemType = iota
	ItemTypeERC20
	ItemTypeERC721
	ItemTypeERC1155
	ItemTypeERC721WithCriteria
	ItemTypeERC1155WithCriteria
)

func (t ItemType) Valid() bool {
	return t <= ItemTypeERC1155WithCriteria
}

func (t ItemType) String() string {
	switch t {
	case ItemTypeNative:
		return "NATIVE"
	case ItemTypeERC20:
		return "ERC20"
	case ItemTypeERC721:
		return "ERC721"
	case ItemTypeERC1155:
		return "ERC1155"
	case ItemTypeERC721WithCriteria:
		return "ERC721_WITH_CRITERIA"
	case ItemTypeERC1155WithCriteria:
		return "ERC1155_WITH_CRITERIA"
	}
	return "UNKNOWN"
}

// OrderType is the Seaport fulfillment mode.
type OrderType uint8

const (
	OrderTypeFullOpen OrderType = iota
	OrderTypePartialOpen
	OrderTypeFullRestricted
	OrderTypePartialRestricted
)

func (t OrderType) Valid() bool {
	return t <= OrderTypePartialRestricted
}

// OfferItem is an item the offerer gives up.
type OfferItem struct {
	ItemType             ItemType
	Token                common.Address
	IdentifierOrCriteria *big.Int
	StartAmount          *big.Int
	EndAmount            *big.Int
}

// ConsiderationItem is an item the offerer receives.
type ConsiderationItem struct {
	ItemType             ItemType
	Token                common.Address
	IdentifierOrCriteria *big.Int
	StartAmount          *big.Int
	EndAmount            *big.Int
	Recipient            common.Address
}

// Order holds Seaport OrderComponents.
type Order struct {
	Offerer       common.Address
	Zone          common.Address
	Offer         []OfferItem
	Consideration []ConsiderationItem
	OrderType     OrderType
	StartTime     *big.Int
	EndTime       *big.Int
	ZoneHash      common.Hash
	Salt          *big.Int
	ConduitKey    common.Hash
	Counter       *big.Int
}

// SignedOrder represents an order with its signature
type SignedOrder struct {
	Order     *Order
	Signature *Signature
}

// Instrument identifies what a maker offers: a token plus an identifier for
// semi-fungible and non-fungible items.
type Instrument struct {
	ItemType   ItemType
	Token      common.Address
	Identifier *big.Int
}

// CurrentAmount interpolates linearly between start and end over [startTime, endTime].
// Offer amounts round down and consideration amounts round up, as Seaport does.
func CurrentAmount(start, end, startTime, endTime, now *big.Int, roundUp bool) *big.Int {
	start, end = orZero(start), orZero(end)
	if start.Cmp(end) == 0 {
		return new(big.Int).Set(start)
	}

	duration := new(big.Int).Sub(orZero(endTime), orZero(startTime))
	if duration.Sign() <= 0 {
		return new(big.Int).Set(end)
	}
	elapsed := new(big.Int).Sub(orZero(now), orZero(startTime))
	if elapsed.Sign() < 0 {
		elapsed.SetInt64(0)
	}
	if elapsed.Cmp(duration) > 0 {
		elapsed.Set(duration)
	}
	remaining := new(big.Int).Sub(duration, elapsed)

	total := new(big.Int).Mul(start, remaining)
	total.Add(total, new(big.Int).Mul(end, elapsed))
	if roundUp {
		total.Add(total, new(big.Int).Sub(duration, big.NewInt(1)))
	}
	return total.Div(total, duration)
}

// CurrentAmount of the offer item at now.
func (i OfferItem) CurrentAmount(o *Order, now *big.Int) *big.Int {
	return CurrentAmount(i.StartAmount, i.EndAmount, o.StartTime, o.EndTime, now, false)
}

// CurrentAmount of the consideration item at now.
func (i ConsiderationItem) CurrentAmount(o *Order, now *big.Int) *big.Int {
	return CurrentAmount(i.StartAmount, i.EndAmount, o.StartTime, o.EndTime, now, true)
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

const (
	// SeaportABI is the subset of Seaport 1.5 used for settlement.
	SeaportABI = `[
		{"inputs":[{"name":"offerer","type":"address"}],"name":"getCounter","outputs":[{"name":"counter","type":"uint256"}],"stateMutability":"view","type":"function"},
		{"inputs":[],"name":"information","outputs":[{"name":"version","type":"string"},{"name":"domainSeparator","type":"bytes32"},{"name":"conduitController","type":"address"}],"stateMutability":"view","type":"function"},
		{"inputs":[
			{"components":[
				{"components":[
					{"name":"offerer","type":"address"},
					{"name":"zone","type":"address"},
					{"components":[{"name":"itemType","type":"uint8"},{"name":"token","type":"address"},{"name":"identifierOrCriteria","type":"uint256"},{"name":"startAmount","type":"uint256"},{"name":"endAmount","type":"uint256"}],"name":"offer","type":"tuple[]"},
					{"components":[{"name":"itemType","type":"uint8"},{"name":"token","type":"address"},{"name":"identifierOrCriteria","type":"uint256"},{"name":"startAmount","type":"uint256"},{"name":"endAmount","type":"uint256"},{"name":"recipient","type":"address"}],"name":"consideration","type":"tuple[]"},
					{"name":"orderType","type":"uint8"},
					{"name":"startTime","type":"uint256"},
					{"name":"endTime","type":"uint256"},
					{"name":"zoneHash","type":"bytes32"},
					{"name":"salt","type":"uint256"},
					{"name":"conduitKey","type":"bytes32"},
					{"name":"totalOriginalConsiderationItems","type":"uint256"}
				],"name":"parameters","type":"tuple"},
				{"name":"signature","type":"bytes"}
			],"name":"order","type":"tuple"},
			{"name":"fulfillerConduitKey","type":"bytes32"}
		],"name":"fulfillOrder","outputs":[{"name":"fulfilled","type":"bool"}],"stateMutability":"payable","type":"function"}
	]`

	// ERC20ABI is the ERC20 token ABI subset
	ERC20ABI = `[
		{"constant":true,"inputs":[{"name":"_owner","type":"address"},{"name":"_spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"type":"function"},
		{"constant":false,"inputs":[{"name":"_spender","type":"address"},{"name":"_value","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"type":"function"},
		{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"type":"function"},
		{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"type":"function"}
	]`

	// ClearinghouseABI is the Valorem clearinghouse (ERC1155) subset used for custody.
	ClearinghouseABI = `[
		{"inputs":[{"name":"account","type":"address"},{"name":"id","type":"uint256"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
		{"inputs":[{"name":"account","type":"address"},{"name":"operator","type":"address"}],"name":"isApprovedForAll","outputs":[{"name":"","type":"bool"}],"stateMutability":"view","type":"function"},
		{"inputs":[{"name":"operator","type":"address"},{"name":"approved","type":"bool"}],"name":"setApprovalForAll","outputs":[],"stateMutability":"nonpayable","type":"function"},
		{"inputs":[{"name":"tokenId","type":"uint256"},{"name":"amount","type":"uint112"}],"name":"write","outputs":[{"name":"","type":"uint256"}],"stateMutability":"nonpayable","type":"function"}
	]`
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic("failed to parse ABI: " + err.Error())
	}
	return parsed
}

var (
	seaportABI       = mustParseABI(SeaportABI)
	erc20ABI         = mustParseABI(ERC20ABI)
	clearinghouseABI = mustParseABI(ClearinghouseABI)
)

// GetSeaportABI returns the parsed Seaport ABI
func GetSeaportABI() abi.ABI {
	return seaportABI
}

// GetERC20ABI returns the parsed ERC20 ABI
func GetERC20ABI() abi.ABI {
	return erc20ABI
}

// GetClearinghouseABI returns the parsed clearinghouse ABI
func GetClearinghouseABI() abi.ABI {
	return clearinghouseABI
}
