package dialect

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"wallet-txcore/internal/chain"
)

const erc20ABIJSON = `[{"constant":false,"inputs":[{"name":"_to","type":"address"},{"name":"_value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"type":"function"}]`

const erc721ABIJSON = `[{"inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"tokenId","type":"uint256"}],"name":"safeTransferFrom","outputs":[],"stateMutability":"nonpayable","type":"function"}]`

var (
	erc20ABI  = mustABI(erc20ABIJSON)
	erc721ABI = mustABI(erc721ABIJSON)
)

func mustABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(err)
	}
	return parsed
}

// EVMCall is the to/value/data triple of an account-based transaction.
type EVMCall struct {
	To    common.Address
	Value *big.Int
	Data  []byte
}

// BuildEVMTransfer builds a native, ERC20 or ERC721 transfer. For ERC721
// value is the token id.
func BuildEVMTransfer(asset *chain.Asset, from, to string, value *big.Int) (*EVMCall, error) {
	if !common.IsHexAddress(to) {
		return nil, fmt.Errorf("invalid recipient %q", to)
	}
	recipient := common.HexToAddress(to)

	switch asset.Type {
	case chain.AssetNative:
		return &EVMCall{To: recipient, Value: value}, nil
	case chain.AssetERC20:
		data, err := erc20ABI.Pack("transfer", recipient, value)
		if err != nil {
			return nil, err
		}
		return &EVMCall{To: common.HexToAddress(asset.ContractAddress), Value: new(big.Int), Data: data}, nil
	case chain.AssetERC721:
		data, err := erc721ABI.Pack("safeTransferFrom", common.HexToAddress(from), recipient, value)
		if err != nil {
			return nil, err
		}
		return &EVMCall{To: common.HexToAddress(asset.ContractAddress), Value: new(big.Int), Data: data}, nil
	}
	return nil, unsupported("This feature is not yet available for %s", asset.Symbol)
}
