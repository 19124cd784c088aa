package dialect

import (
	"encoding/json"
	"math/big"

	"wallet-txcore/internal/chain"
)

// TransferParams is a same-chain transfer on a module-based chain.
type TransferParams struct {
	Asset       *chain.Asset
	From        string
	To          string
	Value       *big.Int
	TransferAll bool
}

// TransferBuilder builds the transfer call for one transfer family.
type TransferBuilder func(p TransferParams) (*Call, error)

var builtinTransferBuilders = map[Family]TransferBuilder{
	FamilyDefault:         nativeOnly(balancesTransfer),
	FamilyRiochain:        nativeOnly(balancesTransfer),
	FamilyAvail:           nativeOnly(balancesTransfer),
	FamilyCentrifuge:      nativeOnly(balancesTransfer),
	FamilyAcala:           splitNative(balancesTransfer, currenciesTransfer),
	FamilyBitCountry:      splitNative(balancesTransfer, currenciesTransfer),
	FamilyStatemine:       splitNative(balancesTransfer, assetsTransfer),
	FamilyPendulum:        splitNative(balancesTransfer, tokensTransfer),
	FamilyKintsugi:        tokensTransfer,
	FamilySora:            assetsTransfer,
	FamilyGenshiro:        refuseTransfer,
	FamilyDisableTransfer: refuseTransfer,
}

// BuildTransfer builds a same-chain transfer for chainSlug.
func (r *Registry) BuildTransfer(chainSlug string, p TransferParams) (*Call, error) {
	if p.Asset == nil {
		return nil, unsupported("Not found token")
	}
	if !r.TransferSupported(chainSlug) {
		return nil, unsupported("Transfers are not supported on %s", chainSlug)
	}
	if p.Value == nil {
		p.Value = new(big.Int)
	}
	// PSP22 contract tokens are chain-agnostic.
	if p.Asset.Type == chain.AssetPSP22 {
		return NewCall("contracts", "psp22::transfer", p.Asset.ContractAddress, p.To, p.Value, []byte{}), nil
	}

	family := r.FamilyOf(CategoryTransfer, chainSlug)
	r.mu.RLock()
	build, ok := r.transfer[family]
	r.mu.RUnlock()
	if !ok {
		return nil, unsupported("No transfer builder for family %s", family)
	}
	return build(p)
}

func nativeOnly(native TransferBuilder) TransferBuilder {
	return splitNative(native, refuseTransfer)
}

func splitNative(native, token TransferBuilder) TransferBuilder {
	return func(p TransferParams) (*Call, error) {
		if p.Asset.IsNative() {
			return native(p)
		}
		return token(p)
	}
}

func balancesTransfer(p TransferParams) (*Call, error) {
	if p.TransferAll {
		return NewCall("balances", "transferAll", p.To, false), nil
	}
	return NewCall("balances", "transferKeepAlive", p.To, p.Value), nil
}

func currenciesTransfer(p TransferParams) (*Call, error) {
	return NewCall("currencies", "transfer", p.To, CurrencyID(p.Asset), p.Value), nil
}

func tokensTransfer(p TransferParams) (*Call, error) {
	if p.TransferAll {
		return NewCall("tokens", "transferAll", p.To, CurrencyID(p.Asset), false), nil
	}
	return NewCall("tokens", "transfer", p.To, CurrencyID(p.Asset), p.Value), nil
}

func assetsTransfer(p TransferParams) (*Call, error) {
	return NewCall("assets", "transfer", CurrencyID(p.Asset), p.To, p.Value), nil
}

func refuseTransfer(p TransferParams) (*Call, error) {
	return nil, unsupported("This feature is not yet available for %s", p.Asset.Symbol)
}

// CurrencyID is the runtime currency reference of a: the configured on-chain
// id (decoded when it is JSON) or {"Token": symbol}.
func CurrencyID(a *chain.Asset) any {
	if a.OnChainID == "" {
		return map[string]string{"Token": a.Symbol}
	}
	var v any
	if json.Unmarshal([]byte(a.OnChainID), &v) == nil {
		if _, isObj := v.(map[string]any); isObj {
			return v
		}
	}
	return a.OnChainID
}
