package validation

import (
	"wallet-txcore/internal/chain"
	"wallet-txcore/pkg/errno"
)

// CheckSigningAccount requires a known, signable account.
func CheckSigningAccount(pairs PairLookup, addr string) Result {
	var res Result
	pair, ok := pairs.GetPair(addr)
	if !ok {
		res.AddError(errno.KindInternalError, "Unable to find account")
		return res
	}
	if pair.Meta().IsReadOnly {
		res.AddError(errno.KindInternalError, "This account is watch-only")
	}
	return res
}

// SupportPolicy reports chains where plain transfers cannot be built.
// *dialect.Registry satisfies it.
type SupportPolicy interface {
	TransferSupported(chain string) bool
}

// CheckSupport rejects actions the core cannot build for info's ledger.
func CheckSupport(t chain.ExtrinsicType, info *chain.Info, policy SupportPolicy) Result {
	var res Result
	switch {
	case t == chain.SendNFT && !info.IsEVM():
		res.AddError(errno.KindUnsupported, "This feature is not yet available for this NFT")
	case t.IsTransfer() && !info.IsEVM() && !policy.TransferSupported(info.Slug):
		res.AddError(errno.KindUnsupported, "")
	}
	return res
}
