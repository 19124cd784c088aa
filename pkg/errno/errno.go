package errno

import "errors"

// Errno defines the error code logic
type Errno struct {
	Code    int
	Message string
}

func (e Errno) Error() string {
	return e.Message
}

// WithMessage returns a copy of e carrying msg.
func (e Errno) WithMessage(msg string) Errno {
	e.Message = msg
	return e
}

// Decode tries to convert an error to Errno
func Decode(err error) (int, string) {
	if err == nil {
		return OK.Code, OK.Message
	}

	var txErr *TxError
	if errors.As(err, &txErr) {
		return txErr.Code(), txErr.Message
	}

	switch typed := err.(type) {
	case *Errno:
		return typed.Code, typed.Message
	case Errno:
		return typed.Code, typed.Message
	default:
		return InternalServerError.Code, err.Error()
	}
}

// Common Errors
var (
	OK                  = Errno{Code: 0, Message: "Success"}
	InternalServerError = Errno{Code: 10001, Message: "Internal server error"}
	ErrBind             = Errno{Code: 10002, Message: "Error occurred while binding the request body to the struct"}
	ErrInvalidParams    = Errno{Code: 10003, Message: "Invalid parameters"}
	ErrDatabase         = Errno{Code: 10004, Message: "Database error"}
)

// Business Errors (20000+)
var (
	ErrTransactionNotFound = Errno{Code: 20101, Message: "Transaction not found"}
	ErrSessionNotFound     = Errno{Code: 20201, Message: "Signing session not found"}
	ErrChainNotFound       = Errno{Code: 20301, Message: "Chain not found"}
	ErrAssetNotFound       = Errno{Code: 20302, Message: "Asset not found"}
	ErrHistoryDisabled     = Errno{Code: 20401, Message: "Transaction history is not enabled"}
)
