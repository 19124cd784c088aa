package errno

import (
	"errors"
	"fmt"
)

// Category groups transaction error kinds by where they are resolved.
type Category int

const (
	// CategoryValidation blocks registration; no record is created.
	CategoryValidation Category = iota
	// CategoryBalance is an economic rule violation found before submission.
	CategoryBalance
	// CategorySigning ends the attempt before broadcast; the record is discarded.
	CategorySigning
	// CategorySubmission happens after broadcast started; the record is marked FAIL.
	CategorySubmission
	// CategoryEstimation is recovered locally by the fee estimator.
	CategoryEstimation
)

func (c Category) String() string {
	switch c {
	case CategoryValidation:
		return "validation"
	case CategoryBalance:
		return "balance"
	case CategorySigning:
		return "signing"
	case CategorySubmission:
		return "submission"
	case CategoryEstimation:
		return "estimation"
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// Kind is the closed set of transaction error and warning kinds.
type Kind int

const (
	KindInternalError Kind = iota
	KindInvalidParams
	KindDuplicateTransaction
	KindUnsupported
	KindExceedMaxNominations
	KindExistUnstakingRequest
	KindInactiveNominationPool
	KindInvalidActiveStake
	KindExceedMaxUnstaking

	KindNotEnoughBalance
	KindNotEnoughExistentialDeposit
	KindReceiverNotEnoughExistentialDeposit
	KindNotEnoughMinStake

	KindUserRejectRequest
	KindUnableToSign
	KindDeviceNotConnected

	KindUnableToSend
	KindSendTransactionFailed

	KindFeeEstimationFailed

	kindCount
)

type kindInfo struct {
	name     string
	code     int
	category Category
	message  string
}

var kinds = [kindCount]kindInfo{
	KindInternalError:        {"INTERNAL_ERROR", 30101, CategoryValidation, "Something went wrong"},
	KindInvalidParams:        {"INVALID_PARAMS", 30102, CategoryValidation, "Invalid params"},
	KindDuplicateTransaction: {"DUPLICATE_TRANSACTION", 30103, CategoryValidation, "Another transaction is in queue. Please try again later"},
	KindUnsupported:          {"UNSUPPORTED", 30104, CategoryValidation, "This feature is not yet available for this token"},
	KindExceedMaxNominations: {"EXCEED_MAX_NOMINATIONS", 30105, CategoryValidation, "You cannot select more validators"},
	KindExistUnstakingRequest: {"EXIST_UNSTAKING_REQUEST", 30106, CategoryValidation,
		"You have a pending unstaking request. Withdraw it before staking again"},
	KindInactiveNominationPool: {"INACTIVE_NOMINATION_POOL", 30107, CategoryValidation, "This pool is not open for new members"},
	KindInvalidActiveStake: {"INVALID_ACTIVE_STAKE", 30108, CategoryValidation,
		"Remaining stake must be zero or above the minimum active stake"},
	KindExceedMaxUnstaking: {"EXCEED_MAX_UNSTAKING", 30109, CategoryValidation, "You have reached the maximum number of unstake requests"},

	KindNotEnoughBalance: {"NOT_ENOUGH_BALANCE", 30201, CategoryBalance, "Insufficient balance"},
	KindNotEnoughExistentialDeposit: {"NOT_ENOUGH_EXISTENTIAL_DEPOSIT", 30202, CategoryBalance,
		"Insufficient balance to cover existential deposit. Please decrease the transaction amount or increase your current balance"},
	KindReceiverNotEnoughExistentialDeposit: {"RECEIVER_NOT_ENOUGH_EXISTENTIAL_DEPOSIT", 30203, CategoryBalance,
		"The recipient account has insufficient balance to receive this transfer"},
	KindNotEnoughMinStake: {"NOT_ENOUGH_MIN_STAKE", 30204, CategoryBalance, "Insufficient stake amount"},

	KindUserRejectRequest:  {"USER_REJECT_REQUEST", 30301, CategorySigning, "Rejected by user"},
	KindUnableToSign:       {"UNABLE_TO_SIGN", 30302, CategorySigning, "Unable to sign"},
	KindDeviceNotConnected: {"DEVICE_NOT_CONNECTED", 30303, CategorySigning, "Hardware device is not connected"},

	KindUnableToSend:          {"UNABLE_TO_SEND", 30401, CategorySubmission, "Unable to send"},
	KindSendTransactionFailed: {"SEND_TRANSACTION_FAILED", 30402, CategorySubmission, "Send transaction failed"},

	KindFeeEstimationFailed: {"FEE_ESTIMATION_FAILED", 30501, CategoryEstimation, "Unable to estimate fee"},
}

func (k Kind) valid() bool { return k >= 0 && k < kindCount }

func (k Kind) String() string {
	if !k.valid() {
		return fmt.Sprintf("KIND(%d)", int(k))
	}
	return kinds[k].name
}

// Category reports the taxonomy bucket of k. Unknown kinds are validation errors.
func (k Kind) Category() Category {
	if !k.valid() {
		return CategoryValidation
	}
	return kinds[k].category
}

// Code is the API error code of k.
func (k Kind) Code() int {
	if !k.valid() {
		return kinds[KindInternalError].code
	}
	return kinds[k].code
}

// DefaultMessage is the human message used when none is supplied.
func (k Kind) DefaultMessage() string {
	if !k.valid() {
		return kinds[KindInternalError].message
	}
	return kinds[k].message
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, ok := ParseKind(string(text))
	if !ok {
		return fmt.Errorf("unknown error kind %q", text)
	}
	*k = parsed
	return nil
}

// ParseKind resolves a kind name produced by String.
func ParseKind(name string) (Kind, bool) {
	for i := Kind(0); i < kindCount; i++ {
		if kinds[i].name == name {
			return i, true
		}
	}
	return KindInternalError, false
}

// TxError is a blocking transaction error.
type TxError struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// NewTxError builds a TxError; an empty msg takes the kind's default message.
func NewTxError(kind Kind, msg string) *TxError {
	if msg == "" {
		msg = kind.DefaultMessage()
	}
	return &TxError{Kind: kind, Message: msg}
}

// TxErrorf is NewTxError with formatting.
func TxErrorf(kind Kind, format string, args ...any) *TxError {
	return NewTxError(kind, fmt.Sprintf(format, args...))
}

func (e *TxError) Error() string {
	return e.Kind.String() + ": " + e.Message
}

// Code is the API error code.
func (e *TxError) Code() int { return e.Kind.Code() }

// Is matches another *TxError of the same kind, so errors.Is works against sentinels.
func (e *TxError) Is(target error) bool {
	t, ok := target.(*TxError)
	return ok && t.Kind == e.Kind
}

// TxWarning is a non-blocking notice; it never prevents submission.
type TxWarning struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// NewTxWarning builds a TxWarning; an empty msg takes the kind's default message.
func NewTxWarning(kind Kind, msg string) *TxWarning {
	if msg == "" {
		msg = kind.DefaultMessage()
	}
	return &TxWarning{Kind: kind, Message: msg}
}

func (w *TxWarning) String() string {
	return w.Kind.String() + ": " + w.Message
}

// Normalize turns any error into a *TxError. Errors that are not TxErrors
// become fallback errors carrying the original text; a nil error or an empty
// message becomes an internal error.
func Normalize(err error, fallback Kind) *TxError {
	if err == nil {
		return NewTxError(KindInternalError, "")
	}
	var txErr *TxError
	if errors.As(err, &txErr) {
		if txErr.Message == "" {
			return NewTxError(txErr.Kind, "")
		}
		return txErr
	}
	msg := err.Error()
	if msg == "" {
		return NewTxError(KindInternalError, "")
	}
	return NewTxError(fallback, msg)
}
