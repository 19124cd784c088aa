package chain

import (
	"fmt"
	"math/big"
	"sort"

	"wallet-txcore/pkg/config"
)

// Registry is an immutable lookup of chains and assets.
type Registry struct {
	chains map[string]*Info
	assets map[string]*Asset
	native map[string]*Asset
}

// NewRegistry indexes the given chains and assets. Each chain gets a native
// asset entry synthesized from its descriptor unless one is listed.
func NewRegistry(chains []Info, assets []Asset) (*Registry, error) {
	r := &Registry{
		chains: make(map[string]*Info, len(chains)),
		assets: make(map[string]*Asset, len(assets)),
		native: make(map[string]*Asset, len(chains)),
	}

	for i := range chains {
		c := chains[i]
		if c.Slug == "" {
			return nil, fmt.Errorf("chain #%d has no slug", i)
		}
		if !c.Ledger.Valid() {
			return nil, fmt.Errorf("chain %s: unknown ledger model %q", c.Slug, c.Ledger)
		}
		if _, dup := r.chains[c.Slug]; dup {
			return nil, fmt.Errorf("duplicate chain %s", c.Slug)
		}
		if c.ExistentialDeposit == nil {
			c.ExistentialDeposit = new(big.Int)
		}
		r.chains[c.Slug] = &c
	}

	for i := range assets {
		a := assets[i]
		if _, ok := r.chains[a.OriginChain]; !ok {
			return nil, fmt.Errorf("asset %s: unknown chain %s", a.Slug, a.OriginChain)
		}
		if a.MinAmount == nil {
			a.MinAmount = new(big.Int)
		}
		r.assets[a.Slug] = &a
		if a.IsNative() {
			r.native[a.OriginChain] = &a
		}
	}

	for slug, c := range r.chains {
		if _, ok := r.native[slug]; ok {
			continue
		}
		a := &Asset{
			Slug:        slug + "-NATIVE-" + c.NativeSymbol,
			OriginChain: slug,
			Symbol:      c.NativeSymbol,
			Decimals:    c.NativeDecimals,
			MinAmount:   new(big.Int).Set(c.ExistentialDeposit),
			Type:        AssetNative,
		}
		r.native[slug] = a
		r.assets[a.Slug] = a
	}

	return r, nil
}

// NewRegistryFromConfig builds a Registry from the static chain and asset lists.
func NewRegistryFromConfig(cfg config.Config) (*Registry, error) {
	chains := make([]Info, 0, len(cfg.Chains))
	for _, c := range cfg.Chains {
		ed, err := parseAmount(c.ExistentialDeposit)
		if err != nil {
			return nil, fmt.Errorf("chain %s: existential_deposit: %w", c.Slug, err)
		}
		chains = append(chains, Info{
			Slug:               c.Slug,
			Name:               c.Name,
			Ledger:             LedgerModel(c.Ledger),
			EVMChainID:         c.EVMChainID,
			NativeSymbol:       c.NativeSymbol,
			NativeDecimals:     c.NativeDecimals,
			ExistentialDeposit: ed,
			BlockExplorer:      c.BlockExplorer,
			RpcUrl:             c.RpcUrl,
			SupportsReaping:    c.SupportsReaping,
		})
	}

	assets := make([]Asset, 0, len(cfg.Assets))
	for _, a := range cfg.Assets {
		min, err := parseAmount(a.MinAmount)
		if err != nil {
			return nil, fmt.Errorf("asset %s: min_amount: %w", a.Slug, err)
		}
		assets = append(assets, Asset{
			Slug:            a.Slug,
			OriginChain:     a.OriginChain,
			Symbol:          a.Symbol,
			Decimals:        a.Decimals,
			MinAmount:       min,
			Type:            AssetType(a.Type),
			ContractAddress: a.ContractAddress,
			OnChainID:       a.OnChainID,
		})
	}

	return NewRegistry(chains, assets)
}

func parseAmount(s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return v, nil
}

// Chain returns the chain descriptor for slug.
func (r *Registry) Chain(slug string) (*Info, bool) {
	c, ok := r.chains[slug]
	return c, ok
}

// Asset returns the asset descriptor for slug.
func (r *Registry) Asset(slug string) (*Asset, bool) {
	a, ok := r.assets[slug]
	return a, ok
}

// NativeAsset returns the fee-paying asset of chain.
func (r *Registry) NativeAsset(chain string) (*Asset, bool) {
	a, ok := r.native[chain]
	return a, ok
}

// Chains lists all chain slugs in order.
func (r *Registry) Chains() []string {
	out := make([]string, 0, len(r.chains))
	for slug := range r.chains {
		out = append(out, slug)
	}
	sort.Strings(out)
	return out
}
