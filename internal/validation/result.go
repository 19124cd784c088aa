// Package validation holds the economic rules a transaction must pass before
// it is registered: amount/token checks, existential deposit guards, the fee
// affordability guard and the staking preconditions. Everything here is pure
// and synchronous; balances and fees are gathered by the caller.
package validation

import "wallet-txcore/pkg/errno"

// Result collects blocking errors and non-blocking warnings.
type Result struct {
	Errors   []*errno.TxError   `json:"errors"`
	Warnings []*errno.TxWarning `json:"warnings"`
}

func (r Result) HasErrors() bool { return len(r.Errors) > 0 }

func (r *Result) AddError(kind errno.Kind, msg string) {
	r.Errors = append(r.Errors, errno.NewTxError(kind, msg))
}

func (r *Result) AddWarning(kind errno.Kind, msg string) {
	r.Warnings = append(r.Warnings, errno.NewTxWarning(kind, msg))
}

// Merge appends other's errors and warnings, keeping order.
func (r *Result) Merge(other Result) {
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
}

// Err returns the first error, or nil.
func (r *Result) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return r.Errors[0]
}

func (r *Result) hasError(kind errno.Kind) bool {
	for _, e := range r.Errors {
		if e.Kind == kind {
			return true
		}
	}
	return false
}
