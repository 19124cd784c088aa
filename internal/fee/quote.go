package fee

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"
	"go.uber.org/zap"
)

// PriorityQuote is the fee market snapshot of an account-based chain.
// On EIP-1559 chains BaseFee is set and GasPrice is nil; legacy chains only
// carry GasPrice.
type PriorityQuote struct {
	BaseFee              *big.Int `json:"base_fee,omitempty"`
	MaxFeePerGas         *big.Int `json:"max_fee_per_gas,omitempty"`
	MaxPriorityFeePerGas *big.Int `json:"max_priority_fee_per_gas,omitempty"`
	GasPrice             *big.Int `json:"gas_price,omitempty"`
	BusyNetwork          bool     `json:"busy_network"`
}

// IsDynamic reports whether the quote is EIP-1559.
func (q *PriorityQuote) IsDynamic() bool { return q.BaseFee != nil }

// PerGas is the price used to bound the fee: maxFeePerGas or gasPrice.
func (q *PriorityQuote) PerGas() *big.Int {
	if q.IsDynamic() {
		return q.MaxFeePerGas
	}
	return q.GasPrice
}

func quoteKey(chain string) string { return "fee:quote:" + chain }

// Quote returns the cached priority quote of chain, fetching it on a miss.
// Concurrent misses for one chain share a single fetch. The shared fetch runs
// on its own deadline so one caller giving up does not fail the others.
func (e *Estimator) Quote(ctx context.Context, chain string, api EVMAPI) (*PriorityQuote, error) {
	var q PriorityQuote
	if e.cache != nil {
		if err := e.cache.Get(ctx, quoteKey(chain), &q); err == nil {
			return &q, nil
		}
	}

	ch := e.group.DoChan(chain, func() (interface{}, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.FetchTimeout)
		defer cancel()

		fetched, err := e.fetchQuote(fctx, api)
		if err != nil {
			return nil, err
		}
		if e.cache != nil {
			if err := e.cache.Set(fctx, quoteKey(chain), fetched, e.cfg.QuoteTTL); err != nil {
				e.log.Warn("cache fee quote failed", zap.String("chain", chain), zap.Error(err))
			}
		}
		return fetched, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*PriorityQuote), nil
	}
}

func (e *Estimator) fetchQuote(ctx context.Context, api EVMAPI) (*PriorityQuote, error) {
	head, err := api.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("latest header: %w", err)
	}

	q := &PriorityQuote{}
	if head.BaseFee != nil {
		tip, err := api.SuggestGasTipCap(ctx)
		if err != nil {
			return nil, fmt.Errorf("suggest tip cap: %w", err)
		}
		q.BaseFee = new(big.Int).Set(head.BaseFee)
		q.MaxPriorityFeePerGas = tip
		q.MaxFeePerGas = new(big.Int).Add(new(big.Int).Mul(head.BaseFee, big.NewInt(2)), tip)
		q.BusyNetwork = e.busy(head, head.BaseFee)
		return q, nil
	}

	price, err := api.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("suggest gas price: %w", err)
	}
	q.GasPrice = price
	q.BusyNetwork = e.busy(head, price)
	return q, nil
}

// busy: price above the configured threshold or the last block nearly full.
func (e *Estimator) busy(head *types.Header, price *big.Int) bool {
	if e.cfg.BusyBaseFeeGwei > 0 {
		threshold := new(big.Int).Mul(big.NewInt(e.cfg.BusyBaseFeeGwei), big.NewInt(params.GWei))
		if price.Cmp(threshold) > 0 {
			return true
		}
	}
	if e.cfg.BusyUtilization > 0 && head.GasLimit > 0 {
		if float64(head.GasUsed)/float64(head.GasLimit) > e.cfg.BusyUtilization {
			return true
		}
	}
	return false
}

// Invalidate drops the cached quote of chain.
func (e *Estimator) Invalidate(ctx context.Context, chain string) error {
	if e.cache == nil {
		return nil
	}
	return e.cache.Delete(ctx, quoteKey(chain))
}

