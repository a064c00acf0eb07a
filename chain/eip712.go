package chain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// EIP712 domain constants for Seaport 1.5
const (
	EIP712DomainName    = "Seaport"
	EIP712DomainVersion = "1.5"
)

const (
	offerItemType         = "OfferItem(uint8 itemType,address token,uint256 identifierOrCriteria,uint256 startAmount,uint256 endAmount)"
	considerationItemType = "ConsiderationItem(uint8 itemType,address token,uint256 identifierOrCriteria,uint256 startAmount,uint256 endAmount,address recipient)"
	orderComponentsType   = "OrderComponents(address offerer,address zone,OfferItem[] offer,ConsiderationItem[] consideration,uint8 orderType,uint256 startTime,uint256 endTime,bytes32 zoneHash,uint256 salt,bytes32 conduitKey,uint256 counter)"
)

// Pre-computed type hashes using keccak256. Referenced struct types are appended
// to the primary type in alphabetical order.
var (
	EIP712DomainTypeHash = crypto.Keccak256Hash([]byte(
		"EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)",
	))

	OfferItemTypeHash         = crypto.Keccak256Hash([]byte(offerItemType))
	ConsiderationItemTypeHash = crypto.Keccak256Hash([]byte(considerationItemType))
	OrderComponentsTypeHash   = crypto.Keccak256Hash([]byte(orderComponentsType + considerationItemType + offerItemType))
)

var (
	bytes32Type, _ = abi.NewType("bytes32", "", nil)
	uint256Type, _ = abi.NewType("uint256", "", nil)
	uint8Type, _   = abi.NewType("uint8", "", nil)
	addressType, _ = abi.NewType("address", "", nil)
)

// EIP712Domain represents the EIP712 domain separator data
type EIP712Domain struct {
	Name              string
	Version           string
	ChainID           *big.Int
	VerifyingContract common.Address
}

// NewEIP712Domain returns the Seaport 1.5 domain for a deployment.
func NewEIP712Domain(chainID *big.Int, seaport common.Address) *EIP712Domain {
	return &EIP712Domain{
		Name:              EIP712DomainName,
		Version:           EIP712DomainVersion,
		ChainID:           chainID,
		VerifyingContract: seaport,
	}
}

// Hash computes the EIP712 domain separator hash
func (d *EIP712Domain) Hash() common.Hash {
	arguments := abi.Arguments{
		{Type: bytes32Type}, // typeHash
		{Type: bytes32Type}, // nameHash
		{Type: bytes32Type}, // versionHash
		{Type: uint256Type}, // chainId
		{Type: addressType}, // verifyingContract
	}

	encoded, err := arguments.Pack(
		EIP712DomainTypeHash,
		crypto.Keccak256Hash([]byte(d.Name)),
		crypto.Keccak256Hash([]byte(d.Version)),
		orZero(d.ChainID),
		d.VerifyingContract,
	)
	if err != nil {
		panic("failed to encode domain separator: " + err.Error())
	}

	return crypto.Keccak256Hash(encoded)
}

// Hash computes the struct hash of an offer item.
func (i *OfferItem) Hash() common.Hash {
	arguments := abi.Arguments{
		{Type: bytes32Type},
		{Type: uint8Type},
		{Type: addressType},
		{Type: uint256Type},
		{Type: uint256Type},
		{Type: uint256Type},
	}

	encoded, err := arguments.Pack(
		OfferItemTypeHash,
		uint8(i.ItemType),
		i.Token,
		orZero(i.IdentifierOrCriteria),
		orZero(i.StartAmount),
		orZero(i.EndAmount),
	)
	if err != nil {
		panic("failed to encode offer item: " + err.Error())
	}

	return crypto.Keccak256Hash(encoded)
}

// Hash computes the struct hash of a consideration item.
func (i *ConsiderationItem) Hash() common.Hash {
	arguments := abi.Arguments{
		{Type: bytes32Type},
		{Type: uint8Type},
		{Type: addressType},
		{Type: uint256Type},
		{Type: uint256Type},
		{Type: uint256Type},
		{Type: addressType},
	}

	encoded, err := arguments.Pack(
		ConsiderationItemTypeHash,
		uint8(i.ItemType),
		i.Token,
		orZero(i.IdentifierOrCriteria),
		orZero(i.StartAmount),
		orZero(i.EndAmount),
		i.Recipient,
	)
	if err != nil {
		panic("failed to encode consideration item: " + err.Error())
	}

	return crypto.Keccak256Hash(encoded)
}

// Hash computes the OrderComponents struct hash. Arrays hash as the keccak of
// their concatenated element hashes.
func (o *Order) Hash() common.Hash {
	offerHashes := make([]byte, 0, 32*len(o.Offer))
	for i := range o.Offer {
		offerHashes = append(offerHashes, o.Offer[i].Hash().Bytes()...)
	}
	considerationHashes := make([]byte, 0, 32*len(o.Consideration))
	for i := range o.Consideration {
		considerationHashes = append(considerationHashes, o.Consideration[i].Hash().Bytes()...)
	}

	arguments := abi.Arguments{
		{Type: bytes32Type}, // typeHash
		{Type: addressType}, // offerer
		{Type: addressType}, // zone
		{Type: bytes32Type}, // offer
		{Type: bytes32Type}, // consideration
		{Type: uint8Type},   // orderType
		{Type: uint256Type}, // startTime
		{Type: uint256Type}, // endTime
		{Type: bytes32Type}, // zoneHash
		{Type: uint256Type}, // salt
		{Type: bytes32Type}, // conduitKey
		{Type: uint256Type}, // counter
	}

	encoded, err := arguments.Pack(
		OrderComponentsTypeHash,
		o.Offerer,
		o.Zone,
		crypto.Keccak256Hash(offerHashes),
		crypto.Keccak256Hash(considerationHashes),
		uint8(o.OrderType),
		orZero(o.StartTime),
		orZero(o.EndTime),
		o.ZoneHash,
		orZero(o.Salt),
		o.ConduitKey,
		orZero(o.Counter),
	)
	if err != nil {
		panic("failed to encode order components: " + err.Error())
	}

	return crypto.Keccak256Hash(encoded)
}

// CreateOrderSignHash creates the final EIP712 hash to be signed
// This follows the EIP712 specification: keccak256("\x19\x01" ++ domainSeparator ++ structHash)
func CreateOrderSignHash(domain *EIP712Domain, order *Order) common.Hash {
	data := make([]byte, 0, 2+32+32)
	data = append(data, 0x19, 0x01)
	data = append(data, domain.Hash().Bytes()...)
	data = append(data, order.Hash().Bytes()...)

	return crypto.Keccak256Hash(data)
}
