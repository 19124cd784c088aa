package dialect

import (
	"fmt"
	"sort"
	"sync"

	"wallet-txcore/pkg/errno"
)

// Registry maps chains to families per category and holds the per-family
// builder tables. Dispatch never branches on a family; it indexes a table.
type Registry struct {
	mu       sync.RWMutex
	members  map[Category]map[string]Family
	transfer map[Family]TransferBuilder
	xcm      map[Family]XcmBuilder
	assetRef map[Family]AssetRefBuilder
	staking  map[Family]StakingBuilder
}

// NewRegistry returns an empty registry carrying only the builtin builders.
func NewRegistry() *Registry {
	r := &Registry{
		members:  make(map[Category]map[string]Family),
		transfer: make(map[Family]TransferBuilder),
		xcm:      make(map[Family]XcmBuilder),
		assetRef: make(map[Family]AssetRefBuilder),
		staking:  make(map[Family]StakingBuilder),
	}
	for f, b := range builtinTransferBuilders {
		r.transfer[f] = b
	}
	for f, b := range builtinXcmBuilders {
		r.xcm[f] = b
	}
	for f, b := range builtinAssetRefBuilders {
		r.assetRef[f] = b
	}
	for f, b := range builtinStakingBuilders {
		r.staking[f] = b
	}
	return r
}

// DefaultRegistry returns a registry loaded with the production chain list.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, m := range productionMemberships {
		if err := r.Register(m.category, m.family, m.chains...); err != nil {
			panic(err)
		}
	}
	return r
}

// Register claims chains for family within category. A chain already
// claimed by a different family in the same category is an error.
func (r *Registry) Register(category Category, family Family, chains ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.members[category]
	if !ok {
		set = make(map[string]Family)
		r.members[category] = set
	}
	for _, c := range chains {
		if prev, dup := set[c]; dup && prev != family {
			return fmt.Errorf("chain %s already in %s family %s", c, category, prev)
		}
	}
	for _, c := range chains {
		set[c] = family
	}
	return nil
}

// RegisterTransferBuilder installs the transfer builder of a new family.
func (r *Registry) RegisterTransferBuilder(f Family, b TransferBuilder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transfer[f] = b
}

// RegisterXcmBuilder installs the cross-chain builder of a new pallet family.
func (r *Registry) RegisterXcmBuilder(f Family, b XcmBuilder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.xcm[f] = b
}

// RegisterStakingBuilder installs the staking builder of a new family.
func (r *Registry) RegisterStakingBuilder(f Family, b StakingBuilder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.staking[f] = b
}

// FamilyOf resolves the family of chain in category, falling back to the
// category default.
func (r *Registry) FamilyOf(category Category, chain string) Family {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if f, ok := r.members[category][chain]; ok {
		return f
	}
	if f, ok := defaultFamilies[category]; ok {
		return f
	}
	return FamilyDefault
}

// Members lists the chains explicitly claimed by family in category.
func (r *Registry) Members(category Category, family Family) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for c, f := range r.members[category] {
		if f == family {
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out
}

// LacksTransferAll reports whether chain's runtime has no usable
// "transfer all" and must always be fee-checked.
func (r *Registry) LacksTransferAll(chain string) bool {
	f := r.FamilyOf(CategoryTransfer, chain)
	for _, nf := range noTransferAllFamilies {
		if f == nf {
			return true
		}
	}
	return false
}

// TransferSupported reports whether plain transfers can be built on chain.
func (r *Registry) TransferSupported(chain string) bool {
	return r.FamilyOf(CategoryTransferSupport, chain) != FamilyTransferNotSupported
}

// Descriptor is the resolved dialect of one chain.
type Descriptor struct {
	Chain             string              `json:"chain"`
	Families          map[Category]Family `json:"families"`
	LacksTransferAll  bool                `json:"lacks_transfer_all"`
	TransferSupported bool                `json:"transfer_supported"`
}

// Describe resolves every category for chain.
func (r *Registry) Describe(chain string) Descriptor {
	d := Descriptor{
		Chain:             chain,
		Families:          make(map[Category]Family, len(defaultFamilies)),
		LacksTransferAll:  r.LacksTransferAll(chain),
		TransferSupported: r.TransferSupported(chain),
	}
	for c := range defaultFamilies {
		d.Families[c] = r.FamilyOf(c, chain)
	}
	return d
}

func unsupported(format string, args ...any) error {
	return errno.TxErrorf(errno.KindUnsupported, format, args...)
}
