package transaction

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"

	"wallet-txcore/internal/chain"
	"wallet-txcore/internal/dialect"
	"wallet-txcore/internal/eventparse"
	"wallet-txcore/internal/fee"
	"wallet-txcore/internal/validation"
	"wallet-txcore/pkg/errno"
)

// Status is the lifecycle state of a Record.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusSuccess    Status = "SUCCESS"
	StatusFail       Status = "FAIL"
)

func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusProcessing:
		return 1
	case StatusSuccess, StatusFail:
		return 2
	}
	return -1
}

// IsTerminal reports whether s is SUCCESS or FAIL.
func (s Status) IsTerminal() bool { return s == StatusSuccess || s == StatusFail }

// InFlight reports whether s blocks another transaction of the same account.
func (s Status) InFlight() bool { return s == StatusPending || s == StatusProcessing }

// CanTransition reports whether a record may move from one status to another.
// Statuses only move forward and terminal statuses never change.
func CanTransition(from, to Status) bool {
	if from == to {
		return from.rank() >= 0
	}
	if from.IsTerminal() || to.rank() < 0 {
		return false
	}
	return to.rank() > from.rank()
}

// Payload is the ledger-native body of a transaction. Call is set for
// module-based chains, EVM for account-based ones.
type Payload struct {
	Call *dialect.Call    `json:"call,omitempty"`
	EVM  *dialect.EVMCall `json:"evm,omitempty"`
	// EVMTx is EVM with nonce, gas and fee fields filled, set at submission.
	EVMTx *types.Transaction `json:"-"`
}

// Balance feeds the fee affordability guard. Amounts are native base units.
type Balance struct {
	Available    *big.Int                `json:"available"`
	NativeAmount *big.Int                `json:"native_amount"`
	Account      *validation.AccountInfo `json:"account,omitempty"`
}

// ExtraValidator is a caller-supplied check run after the built-in ones.
type ExtraValidator func(ctx context.Context, rec *Record) validation.Result

// Intent is what a caller asks the manager to do. It is not modified after
// it is accepted.
type Intent struct {
	Address           string              `json:"address" validate:"required,chain_address"`
	Chain             string              `json:"chain" validate:"required"`
	Ledger            chain.LedgerModel   `json:"ledger" validate:"required,oneof=evm substrate"`
	Type              chain.ExtrinsicType `json:"type" validate:"required"`
	Data              any                 `json:"data,omitempty" validate:"-"`
	Payload           Payload             `json:"payload" validate:"-"`
	TransferAll       bool                `json:"transfer_all"`
	SkipFeeValidation bool                `json:"skip_fee_validation"`
	URL               string              `json:"url,omitempty"`
	External          bool                `json:"external"`
	// Asset is the transferred token slug, used to parse the settled amount.
	Asset      string           `json:"asset,omitempty"`
	Balance    *Balance         `json:"balance,omitempty" validate:"-"`
	Validators []ExtraValidator `json:"-" validate:"-"`
	// Password unlocks a local account for this attempt only.
	Password string `json:"-" validate:"-"`
}

// Record is the manager's view of one transaction.
type Record struct {
	Intent
	ID            string             `json:"id"`
	Status        Status             `json:"status"`
	ExtrinsicHash string             `json:"extrinsic_hash"`
	Fee           fee.Estimate       `json:"fee"`
	Errors        []*errno.TxError   `json:"errors"`
	Warnings      []*errno.TxWarning `json:"warnings"`
	Result        *eventparse.Result `json:"result,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// NewRecordID builds an id from the ledger, chain, origin and a random suffix.
func NewRecordID(in Intent) string {
	origin := "internal"
	if in.External {
		origin = "external"
	}
	return string(in.Ledger) + "." + in.Chain + "." + origin + "." + uuid.NewString()
}

// clone copies r so that slice edits on the copy do not leak. Pointer fields
// are treated as immutable.
func (r *Record) clone() Record {
	c := *r
	c.Errors = append([]*errno.TxError(nil), r.Errors...)
	c.Warnings = append([]*errno.TxWarning(nil), r.Warnings...)
	c.Validators = append([]ExtraValidator(nil), r.Validators...)
	return c
}

// Message is the first error message, if any.
func (r *Record) Message() string {
	if len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[0].Message
}
