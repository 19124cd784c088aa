package model

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// Outbox 状态
const (
	OutboxPending = "PENDING"
	OutboxSent    = "SENT"
)

// OutboxMessage 本地消息表 (Transactional Outbox).
// Key is the partition key; messages of one account keep their order.
type OutboxMessage struct {
	ID        uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	Topic     string         `gorm:"type:varchar(255);not null" json:"topic"`
	Key       string         `gorm:"type:varchar(255);not null;default:''" json:"key"`
	Payload   []byte         `gorm:"type:text;not null" json:"payload"`
	Status    string         `gorm:"type:varchar(50);not null;default:'PENDING';index" json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (OutboxMessage) TableName() string {
	return "outbox_messages"
}

// CreateOutboxMessage queues payload inside tx, so it commits or rolls back
// together with the history row written by the same transaction.
func CreateOutboxMessage(tx *gorm.DB, topic, key string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return tx.Create(&OutboxMessage{
		Topic:   topic,
		Key:     key,
		Payload: body,
		Status:  OutboxPending,
	}).Error
}

// PendingOutbox returns up to limit unsent messages in insertion order.
func PendingOutbox(ctx context.Context, db *gorm.DB, limit int) ([]OutboxMessage, error) {
	var out []OutboxMessage
	err := db.WithContext(ctx).
		Where("status = ?", OutboxPending).
		Order("id").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func MarkOutboxSent(ctx context.Context, db *gorm.DB, id uint64) error {
	return db.WithContext(ctx).Model(&OutboxMessage{}).
		Where("id = ?", id).
		Update("status", OutboxSent).Error
}

// PurgeSentOutbox hard-deletes delivered messages created before cutoff.
func PurgeSentOutbox(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	res := db.WithContext(ctx).Unscoped().
		Where("status = ? AND created_at < ?", OutboxSent, cutoff).
		Delete(&OutboxMessage{})
	return res.RowsAffected, res.Error
}
