package chain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// optionIDPadding is the number of low bits of an option token id reserved for claim keys.
const optionIDPadding = 96

// OptionType describes a clearinghouse option series.
type OptionType struct {
	UnderlyingAsset   common.Address
	UnderlyingAmount  *big.Int // uint96
	ExerciseAsset     common.Address
	ExerciseAmount    *big.Int // uint96
	ExerciseTimestamp uint64   // uint40
	ExpiryTimestamp   uint64   // uint40
}

// OptionID derives the ERC1155 token id of an option series: the top 160 bits of
// keccak256(abi.encode(type)) shifted left by 96.
func OptionID(o OptionType) (*big.Int, error) {
	uint96Type, _ := abi.NewType("uint96", "", nil)
	uint40Type, _ := abi.NewType("uint40", "", nil)

	arguments := abi.Arguments{
		{Type: addressType},
		{Type: uint96Type},
		{Type: addressType},
		{Type: uint96Type},
		{Type: uint40Type},
		{Type: uint40Type},
	}

	encoded, err := arguments.Pack(
		o.UnderlyingAsset,
		orZero(o.UnderlyingAmount),
		o.ExerciseAsset,
		orZero(o.ExerciseAmount),
		new(big.Int).SetUint64(o.ExerciseTimestamp),
		new(big.Int).SetUint64(o.ExpiryTimestamp),
	)
	if err != nil {
		return nil, err
	}

	key := new(big.Int).SetBytes(crypto.Keccak256(encoded)[:20])
	return key.Lsh(key, optionIDPadding), nil
}
