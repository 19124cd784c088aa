package validation

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wallet-txcore/internal/chain"
	"wallet-txcore/internal/dialect"
	"wallet-txcore/pkg/errno"
)

func TestCheckBalanceWithFeeBoundary(t *testing.T) {
	registry := dialect.DefaultRegistry()

	tests := []struct {
		name        string
		chain       string
		avail, amt  int64
		fee         int64
		transferAll bool
		wantErr     bool
	}{
		{"equal passes", "polkadot", 100, 90, 10, false, false},
		{"one over fails", "polkadot", 100, 91, 10, false, true},
		{"transfer all exempt", "polkadot", 100, 100, 10, true, false},
		{"transfer all on acala still checked", "acala", 100, 100, 10, true, true},
		{"transfer all on statemint still checked", "statemint", 100, 100, 10, true, true},
		{"empty balance", "polkadot", 0, 0, 0, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := CheckBalanceWithFee(FeeCheck{
				Chain:        tt.chain,
				Type:         chain.TransferBalance,
				Fee:          big.NewInt(tt.fee),
				Available:    big.NewInt(tt.avail),
				NativeAmount: big.NewInt(tt.amt),
				TransferAll:  tt.transferAll,
			}, registry)
			if tt.wantErr {
				require.Len(t, res.Errors, 1)
				assert.Equal(t, errno.KindNotEnoughBalance, res.Errors[0].Kind)
			} else {
				assert.False(t, res.HasErrors())
			}
		})
	}
}

func TestCheckBalanceWithFeeSkips(t *testing.T) {
	res := CheckBalanceWithFee(FeeCheck{Chain: "polkadot", Fee: big.NewInt(10), Available: big.NewInt(0), SkipFee: true}, nil)
	assert.False(t, res.HasErrors())

}

func TestCheckBalanceWithUnknownFee(t *testing.T) {
	// an unknown fee counts as zero, the balance guard still runs
	res := CheckBalanceWithFee(FeeCheck{Chain: "polkadot", Available: big.NewInt(0)}, nil)
	assert.Equal(t, []errno.Kind{errno.KindNotEnoughBalance}, kinds(res.Errors))

	res = CheckBalanceWithFee(FeeCheck{Chain: "polkadot", Available: big.NewInt(100), NativeAmount: big.NewInt(101)}, nil)
	assert.Equal(t, []errno.Kind{errno.KindNotEnoughBalance}, kinds(res.Errors))

	res = CheckBalanceWithFee(FeeCheck{Chain: "polkadot", Available: big.NewInt(100), NativeAmount: big.NewInt(100)}, nil)
	assert.False(t, res.HasErrors())
}

func TestCheckBalanceWithFeeExistentialDeposit(t *testing.T) {
	base := FeeCheck{
		Chain:        "polkadot",
		Type:         chain.TransferBalance,
		Fee:          big.NewInt(10),
		Available:    big.NewInt(1000),
		NativeAmount: big.NewInt(890),
		NativeMin:    big.NewInt(100),
		Account:      &AccountInfo{Providers: 1},
	}

	// remaining == min passes
	res := CheckBalanceWithFee(base, nil)
	assert.False(t, res.HasErrors())
	assert.Empty(t, res.Warnings)

	under := base
	under.NativeAmount = big.NewInt(891)
	res = CheckBalanceWithFee(under, nil)
	assert.Equal(t, []errno.Kind{errno.KindNotEnoughExistentialDeposit}, kinds(res.Errors))

	under.EDAsWarning = true
	res = CheckBalanceWithFee(under, nil)
	assert.False(t, res.HasErrors())
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, errno.KindNotEnoughExistentialDeposit, res.Warnings[0].Kind)

	// accounts held alive by a consumer are not reaped
	held := under
	held.EDAsWarning = false
	held.Account = &AccountInfo{Providers: 1, Consumers: 1}
	assert.False(t, CheckBalanceWithFee(held, nil).HasErrors())

	noMeta := under
	noMeta.EDAsWarning = false
	noMeta.Account = nil
	assert.False(t, CheckBalanceWithFee(noMeta, nil).HasErrors())

	token := under
	token.EDAsWarning = false
	token.Type = chain.TransferToken
	assert.False(t, CheckBalanceWithFee(token, nil).HasErrors())
}
