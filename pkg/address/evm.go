package address

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// IsEthereumAddress reports whether s is a 0x-prefixed 20 byte hex address.
func IsEthereumAddress(s string) bool {
	return strings.HasPrefix(s, "0x") && common.IsHexAddress(s)
}

// ToChecksum returns the EIP-55 form of an EVM address.
func ToChecksum(s string) string {
	return common.HexToAddress(s).Hex()
}

// Normalize gives the registry key for an address: EVM addresses lowercased,
// SS58 addresses reduced to the generic (prefix 42) encoding.
func Normalize(s string) string {
	if IsEthereumAddress(s) {
		return strings.ToLower(s)
	}
	if re, err := Reformat(s, GenericPrefix); err == nil {
		return re
	}
	return s
}

// Equal compares two addresses of either format ignoring encoding differences.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}
