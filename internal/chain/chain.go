// Package chain holds the read-only chain and asset metadata tables the
// transaction core looks things up in.
package chain

import (
	"math/big"
	"strings"
)

// LedgerModel distinguishes account/nonce chains from module/extrinsic chains.
type LedgerModel string

const (
	LedgerEVM       LedgerModel = "evm"
	LedgerSubstrate LedgerModel = "substrate"
)

// Valid reports whether m is one of the known ledger models.
func (m LedgerModel) Valid() bool {
	return m == LedgerEVM || m == LedgerSubstrate
}

// Info describes a chain.
type Info struct {
	Slug               string      `json:"slug"`
	Name               string      `json:"name"`
	Ledger             LedgerModel `json:"ledger"`
	EVMChainID         int64       `json:"evm_chain_id,omitempty"`
	NativeSymbol       string      `json:"native_symbol"`
	NativeDecimals     int32       `json:"native_decimals"`
	ExistentialDeposit *big.Int    `json:"existential_deposit"`
	BlockExplorer      string      `json:"block_explorer,omitempty"`
	RpcUrl             string      `json:"-"`
	SupportsReaping    bool        `json:"supports_reaping"`
}

// IsEVM reports whether the chain is account-based.
func (i *Info) IsEVM() bool { return i.Ledger == LedgerEVM }

// ExplorerLink joins the explorer base with the ledger-specific suffix.
// It returns "" when the chain has no explorer.
func (i *Info) ExplorerLink(hash string) string {
	if i.BlockExplorer == "" || hash == "" {
		return ""
	}
	base := strings.TrimSuffix(i.BlockExplorer, "/")
	if i.IsEVM() {
		return base + "/tx/" + hash
	}
	return base + "/extrinsic/" + hash
}

// AssetType is the on-chain representation of an asset.
type AssetType string

const (
	AssetNative AssetType = "NATIVE"
	AssetLocal  AssetType = "LOCAL"
	AssetERC20  AssetType = "ERC20"
	AssetERC721 AssetType = "ERC721"
	AssetPSP22  AssetType = "PSP22"
	AssetPSP34  AssetType = "PSP34"
)

// IsSmartContract reports whether the asset lives in a contract.
func (t AssetType) IsSmartContract() bool {
	switch t {
	case AssetERC20, AssetERC721, AssetPSP22, AssetPSP34:
		return true
	}
	return false
}

// IsNFT reports whether the asset is non-fungible.
func (t AssetType) IsNFT() bool {
	return t == AssetERC721 || t == AssetPSP34
}

// Asset describes a token.
type Asset struct {
	Slug            string    `json:"slug"`
	OriginChain     string    `json:"origin_chain"`
	Symbol          string    `json:"symbol"`
	Decimals        int32     `json:"decimals"`
	MinAmount       *big.Int  `json:"min_amount"`
	Type            AssetType `json:"type"`
	ContractAddress string    `json:"contract_address,omitempty"`
	// OnChainID is the runtime's currency/asset id, e.g. "1984" or {"Token":"KSM"} as JSON.
	OnChainID string `json:"on_chain_id,omitempty"`
}

// IsNative reports whether a is the chain's native (fee-paying) asset.
func (a *Asset) IsNative() bool { return a.Type == AssetNative }

// Min returns the asset minimum, zero when unset.
func (a *Asset) Min() *big.Int {
	if a == nil || a.MinAmount == nil {
		return new(big.Int)
	}
	return a.MinAmount
}
