package validation

import (
	"math/big"

	"wallet-txcore/internal/chain"
	"wallet-txcore/pkg/errno"
)

// TransferAllPolicy tells which chains cannot express a zero-remainder
// transfer natively. *dialect.Registry satisfies it.
type TransferAllPolicy interface {
	LacksTransferAll(chain string) bool
}

// AccountInfo is the module-based chain's account reference counters.
type AccountInfo struct {
	Consumers   uint32 `json:"consumers"`
	Providers   uint32 `json:"providers"`
	Sufficients uint32 `json:"sufficients"`
}

// CanBeReaped reports whether the account is removed once its balance drops
// under the existential deposit.
func (a AccountInfo) CanBeReaped() bool {
	return a.Consumers == 0 && a.Sufficients == 0 && a.Providers <= 1
}

// FeeCheck is the input of CheckBalanceWithFee. Amounts are in native base units.
type FeeCheck struct {
	Chain        string
	Type         chain.ExtrinsicType
	Fee          *big.Int // nil when no estimate is available, checked as zero
	Available    *big.Int
	NativeAmount *big.Int // native amount the transaction itself moves
	NativeMin    *big.Int
	TransferAll  bool
	SkipFee      bool
	EDAsWarning  bool
	// Account is nil when the chain exposes no reap metadata.
	Account *AccountInfo
}

// CheckBalanceWithFee verifies the sender can pay amount plus fee and, for
// plain balance transfers, that the remainder keeps the account alive.
func CheckBalanceWithFee(c FeeCheck, policy TransferAllPolicy) Result {
	var res Result
	if c.SkipFee {
		return res
	}

	available := bigOrZero(c.Available)
	committed := bigOrZero(c.NativeAmount)
	fee := bigOrZero(c.Fee)

	if available.Sign() <= 0 {
		res.AddError(errno.KindNotEnoughBalance, "")
	}

	lacksTransferAll := policy != nil && policy.LacksTransferAll(c.Chain)
	total := new(big.Int).Add(committed, fee)
	if total.Cmp(available) > 0 && (!c.TransferAll || lacksTransferAll) && !res.hasError(errno.KindNotEnoughBalance) {
		res.AddError(errno.KindNotEnoughBalance, "")
	}

	if c.TransferAll || c.Type != chain.TransferBalance || c.Account == nil || !c.Account.CanBeReaped() {
		return res
	}
	remaining := new(big.Int).Sub(available, total)
	if remaining.Cmp(bigOrZero(c.NativeMin)) < 0 {
		if c.EDAsWarning {
			res.AddWarning(errno.KindNotEnoughExistentialDeposit, "")
		} else {
			res.AddError(errno.KindNotEnoughExistentialDeposit, "")
		}
	}
	return res
}
