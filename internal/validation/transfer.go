package validation

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"wallet-txcore/internal/chain"
	"wallet-txcore/internal/keyring"
	"wallet-txcore/pkg/address"
	"wallet-txcore/pkg/errno"
)

// XcmMinAmountRatio is the share of the destination minimum a cross-chain
// transfer must carry at least.
var XcmMinAmountRatio = decimal.New(1, -2)

// PairLookup resolves the signing pair of an address.
type PairLookup interface {
	GetPair(addr string) (keyring.Pair, bool)
}

// ValidateTransferRequest checks a same-chain transfer request and returns
// the sender's pair (when pairs knows it) and the parsed amount.
func ValidateTransferRequest(pairs PairLookup, asset *chain.Asset, from, to, amount string, transferAll bool) (Result, keyring.Pair, *big.Int) {
	var (
		res   Result
		pair  keyring.Pair
		value *big.Int
	)
	if pairs != nil {
		pair, _ = pairs.GetPair(from)
	}

	if !transferAll {
		if amount == "" {
			res.AddError(errno.KindInvalidParams, "Transfer amount is required")
		} else {
			v, ok := new(big.Int).SetString(amount, 10)
			if !ok || v.Sign() < 0 {
				res.AddError(errno.KindInvalidParams, fmt.Sprintf("Invalid transfer amount %q", amount))
			} else {
				value = v
			}
		}
	}

	if asset == nil {
		res.AddError(errno.KindInvalidParams, "Not found token from registry")
		return res, pair, value
	}

	if address.IsEthereumAddress(from) && address.IsEthereumAddress(to) &&
		asset.Type.IsSmartContract() && asset.ContractAddress == "" {
		res.AddError(errno.KindInvalidParams, "Not found ERC20 address for this token")
	}

	return res, pair, value
}

// AdditionalValidateTransfer guards existential deposits around a transfer.
// The sender check only runs for token transfers and only warns; a recipient
// that would stay under the minimum is an error. senderTransferable may be nil.
func AdditionalValidateTransfer(asset *chain.Asset, t chain.ExtrinsicType, receiverFree, amount, senderTransferable *big.Int) Result {
	var res Result
	minAmount := asset.Min()
	amount = bigOrZero(amount)

	if t == chain.TransferToken && senderTransferable != nil {
		remaining := new(big.Int).Sub(senderTransferable, amount)
		if remaining.Cmp(minAmount) < 0 {
			res.AddWarning(errno.KindNotEnoughExistentialDeposit, "")
		}
	}

	received := new(big.Int).Add(bigOrZero(receiverFree), amount)
	if received.Cmp(minAmount) < 0 {
		atLeast := new(big.Int).Sub(minAmount, bigOrZero(receiverFree))
		if asset.Decimals != 0 {
			atLeast.Add(atLeast, big.NewInt(1))
		}
		res.AddError(errno.KindReceiverNotEnoughExistentialDeposit,
			fmt.Sprintf("You must transfer at least %s %s to keep the destination account alive",
				FormatAmount(atLeast, asset.Decimals), asset.Symbol))
	}
	return res
}

// XcmCheck is the input of AdditionalValidateXcmTransfer.
type XcmCheck struct {
	Origin             *chain.Asset
	Dest               *chain.Asset
	DestChain          *chain.Info
	Amount             *big.Int
	SenderTransferable *big.Int
	ReceiverNative     *big.Int // receiver's native balance on the destination
	Snowbridge         bool
}

// AdditionalValidateXcmTransfer guards existential deposits of a cross-chain
// transfer on both sides.
func AdditionalValidateXcmTransfer(c XcmCheck) Result {
	var res Result
	amount := bigOrZero(c.Amount)
	sending := decimal.NewFromBigInt(amount, 0)

	minSending := decimal.NewFromBigInt(c.Dest.Min(), 0).Mul(XcmMinAmountRatio)
	if sending.LessThan(minSending) {
		res.AddError(errno.KindReceiverNotEnoughExistentialDeposit,
			fmt.Sprintf("You must transfer at least %s %s to keep the destination account alive",
				formatDecimal(minSending, c.Dest.Decimals, displayDigits(c.Dest.Decimals)), c.Origin.Symbol))
	}

	if c.Snowbridge && c.DestChain != nil {
		keepAlive := new(big.Int).Set(bigOrZero(c.ReceiverNative))
		if c.Dest.IsNative() {
			keepAlive.Add(keepAlive, amount)
		}
		ed := bigOrZero(c.DestChain.ExistentialDeposit)
		if keepAlive.Cmp(ed) < 0 {
			res.AddError(errno.KindReceiverNotEnoughExistentialDeposit,
				fmt.Sprintf("Insufficient %s on %s to cover min balance (%s %s)",
					c.DestChain.NativeSymbol, c.DestChain.Name,
					formatDecimal(decimal.NewFromBigInt(ed, 0), c.DestChain.NativeDecimals, defaultDisplayDigits),
					c.DestChain.NativeSymbol))
		}
	}

	if !c.Origin.IsNative() && c.SenderTransferable != nil {
		remaining := new(big.Int).Sub(c.SenderTransferable, amount)
		if remaining.Cmp(c.Origin.Min()) < 0 {
			res.AddWarning(errno.KindNotEnoughExistentialDeposit, "")
		}
	}
	return res
}
