package dialect

import (
	"encoding/hex"
	"fmt"
	"math/big"

	"wallet-txcore/internal/chain"
	"wallet-txcore/pkg/address"
)

// DefaultXcmWeight is the destination weight limit used when none is given.
const DefaultXcmWeight uint64 = 4_000_000_000

// systemParachainMax bounds the para ids reached by teleport from the relay.
const systemParachainMax = 2000

// Junction is one interior element of a Location.
type Junction struct {
	Parachain      *uint32 `json:"Parachain,omitempty"`
	AccountID32    string  `json:"AccountId32,omitempty"`
	AccountKey20   string  `json:"AccountKey20,omitempty"`
	PalletInstance *uint8  `json:"PalletInstance,omitempty"`
	GeneralIndex   string  `json:"GeneralIndex,omitempty"`
}

// Location is a relative multi-location; an empty Interior means Here.
type Location struct {
	Parents  uint8      `json:"parents"`
	Interior []Junction `json:"interior"`
}

func parachain(id uint32) Junction { return Junction{Parachain: &id} }

// XcmParams is a cross-chain transfer request.
type XcmParams struct {
	Asset *chain.Asset
	// AssetRef is filled by BuildXcm from the origin's xcm-dispatch family.
	AssetRef    any
	DestChain   string
	DestParaID  uint32 // 0 means the relay chain
	Recipient   string
	Value       *big.Int
	WeightLimit uint64
}

// XcmBuilder builds the cross-chain call for one xcm pallet family.
type XcmBuilder func(p XcmParams) (*Call, error)

// AssetRefBuilder encodes how an origin family refers to an asset in xcm calls.
type AssetRefBuilder func(a *chain.Asset) any

var builtinXcmBuilders = map[Family]XcmBuilder{
	FamilyXTokens:     xTokensTransfer,
	FamilyPolkadotXcm: polkadotXcmTransfer,
	FamilyXcmPallet:   xcmPalletTransfer,
}

var builtinAssetRefBuilders = map[Family]AssetRefBuilder{
	FamilySubstrate: func(a *chain.Asset) any { return CurrencyID(a) },
	FamilyMoonbeam: func(a *chain.Asset) any {
		if a.IsNative() {
			return "SelfReserve"
		}
		return map[string]any{"ForeignAsset": a.OnChainID}
	},
	FamilyAstar: func(a *chain.Asset) any {
		if a.IsNative() {
			return Location{Parents: 0}
		}
		return a.OnChainID
	},
	FamilyStatemint: func(a *chain.Asset) any {
		if a.IsNative() {
			return Location{Parents: 1}
		}
		pallet := uint8(50)
		return Location{Parents: 0, Interior: []Junction{{PalletInstance: &pallet}, {GeneralIndex: a.OnChainID}}}
	},
}

// BuildXcm builds a cross-chain transfer originating on originChain.
func (r *Registry) BuildXcm(originChain string, p XcmParams) (*Call, error) {
	if p.Asset == nil {
		return nil, unsupported("Not found token")
	}
	if p.Value == nil {
		p.Value = new(big.Int)
	}
	if p.WeightLimit == 0 {
		p.WeightLimit = DefaultXcmWeight
	}

	refFamily := r.FamilyOf(CategoryXcmDispatch, originChain)
	palletFamily := r.FamilyOf(CategoryXcm, originChain)

	r.mu.RLock()
	ref, refOK := r.assetRef[refFamily]
	build, ok := r.xcm[palletFamily]
	r.mu.RUnlock()
	if !refOK || !ok {
		return nil, unsupported("Cross-chain transfer is not supported from %s", originChain)
	}
	p.AssetRef = ref(p.Asset)
	return build(p)
}

func beneficiary(recipient string) (Junction, error) {
	if address.IsEthereumAddress(recipient) {
		return Junction{AccountKey20: recipient}, nil
	}
	_, pub, err := address.DecodeSS58(recipient)
	if err != nil {
		return Junction{}, fmt.Errorf("invalid recipient %q: %w", recipient, err)
	}
	return Junction{AccountID32: "0x" + hex.EncodeToString(pub)}, nil
}

func weightLimit(w uint64) any {
	return map[string]uint64{"Limited": w}
}

func xTokensTransfer(p XcmParams) (*Call, error) {
	who, err := beneficiary(p.Recipient)
	if err != nil {
		return nil, err
	}
	dest := Location{Parents: 1, Interior: []Junction{who}}
	if p.DestParaID != 0 {
		dest.Interior = []Junction{parachain(p.DestParaID), who}
	}
	return NewCall("xTokens", "transfer", p.AssetRef, p.Value, dest, weightLimit(p.WeightLimit)), nil
}

// polkadotXcmTransfer teleports to the relay chain and reserve-transfers to siblings.
func polkadotXcmTransfer(p XcmParams) (*Call, error) {
	who, err := beneficiary(p.Recipient)
	if err != nil {
		return nil, err
	}
	dest := Location{Parents: 1}
	method := "limitedTeleportAssets"
	if p.DestParaID != 0 {
		dest.Interior = []Junction{parachain(p.DestParaID)}
		method = "limitedReserveTransferAssets"
	}
	return NewCall("polkadotXcm", method,
		dest,
		Location{Parents: 0, Interior: []Junction{who}},
		multiAssets(p.AssetRef, p.Value),
		0,
		weightLimit(p.WeightLimit),
	), nil
}

// xcmPalletTransfer is the relay chain side: teleport to system parachains,
// reserve transfer to everything else.
func xcmPalletTransfer(p XcmParams) (*Call, error) {
	if p.DestParaID == 0 {
		return nil, unsupported("Destination must be a parachain")
	}
	who, err := beneficiary(p.Recipient)
	if err != nil {
		return nil, err
	}
	method := "limitedReserveTransferAssets"
	if p.DestParaID < systemParachainMax {
		method = "limitedTeleportAssets"
	}
	return NewCall("xcmPallet", method,
		Location{Parents: 0, Interior: []Junction{parachain(p.DestParaID)}},
		Location{Parents: 0, Interior: []Junction{who}},
		multiAssets(Location{Parents: 0}, p.Value),
		0,
		weightLimit(p.WeightLimit),
	), nil
}

func multiAssets(id any, value *big.Int) []map[string]any {
	return []map[string]any{{
		"id":  id,
		"fun": map[string]*big.Int{"Fungible": value},
	}}
}
