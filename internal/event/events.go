package event

import "time"

// Bus topics published by the transaction manager.
const (
	TopicTransactionSubmitted = "transaction:submitted"
	TopicTransactionCompleted = "transaction:completed"
	TopicTransactionFailed    = "transaction:failed"
	TopicTransactionRemoved   = "transaction:removed"
)

// TransactionEvent 交易状态变化事件
// MQ Topic: wallet_events_transaction (transaction.notify_topic)
type TransactionEvent struct {
	ID            string    `json:"id"`
	Chain         string    `json:"chain"`
	Address       string    `json:"address"`
	Type          string    `json:"type"`
	Status        string    `json:"status"`
	ExtrinsicHash string    `json:"extrinsic_hash,omitempty"`
	Link          string    `json:"link,omitempty"`
	Amount        string    `json:"amount,omitempty"` // decimal string
	AmountSymbol  string    `json:"amount_symbol,omitempty"`
	Fee           string    `json:"fee,omitempty"` // decimal string
	FeeSymbol     string    `json:"fee_symbol,omitempty"`
	Error         string    `json:"error,omitempty"`
	External      bool      `json:"external"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Terminal reports whether the event closes the transaction.
func (e TransactionEvent) Terminal() bool {
	return e.Status == "SUCCESS" || e.Status == "FAIL"
}
