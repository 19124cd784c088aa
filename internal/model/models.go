package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionHistory 交易历史表, 终态交易落库
type TransactionHistory struct {
	ID            string          `gorm:"type:varchar(128);primaryKey" json:"id"`
	Chain         string          `gorm:"type:varchar(64);not null;index:idx_history_account" json:"chain"`
	Address       string          `gorm:"type:varchar(128);not null;index:idx_history_account" json:"address"`
	Type          string          `gorm:"type:varchar(32);not null" json:"type"`
	Status        string          `gorm:"type:varchar(16);not null;index" json:"status"` // SUCCESS, FAIL
	ExtrinsicHash string          `gorm:"type:varchar(128)" json:"extrinsic_hash"`
	Link          string          `gorm:"type:varchar(255)" json:"link"`
	Amount        decimal.Decimal `gorm:"type:decimal(40,18);not null;default:0" json:"amount"`
	AmountSymbol  string          `gorm:"type:varchar(32)" json:"amount_symbol"`
	Fee           decimal.Decimal `gorm:"type:decimal(40,18);not null;default:0" json:"fee"`
	FeeSymbol     string          `gorm:"type:varchar(32)" json:"fee_symbol"`
	Error         string          `gorm:"type:text" json:"error,omitempty"`
	External      bool            `gorm:"not null;default:false" json:"external"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (TransactionHistory) TableName() string {
	return "transaction_histories"
}
