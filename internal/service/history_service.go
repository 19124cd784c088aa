package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"wallet-txcore/internal/event"
	"wallet-txcore/internal/model"
	"wallet-txcore/pkg/logger"
)

// HistoryService 持久化终态交易, 并在同一个 DB 事务中写入 Outbox 消息
type HistoryService struct {
	db    *gorm.DB
	bus   *event.Bus
	topic string
	log   *zap.Logger
}

func NewHistoryService(db *gorm.DB, bus *event.Bus, topic string) *HistoryService {
	return &HistoryService{
		db:    db,
		bus:   bus,
		topic: topic,
		log:   logger.Named("history"),
	}
}

// Start 订阅终态事件. 事件按顺序串行处理.
func (s *HistoryService) Start() error {
	for _, topic := range []string{event.TopicTransactionCompleted, event.TopicTransactionFailed} {
		if err := s.bus.SubscribeAsync(topic, s.onEvent, true); err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
	}
	return nil
}

// Stop 取消订阅并等待处理中的事件
func (s *HistoryService) Stop() {
	_ = s.bus.Unsubscribe(event.TopicTransactionCompleted, s.onEvent)
	_ = s.bus.Unsubscribe(event.TopicTransactionFailed, s.onEvent)
	s.bus.WaitAsync()
}

func (s *HistoryService) onEvent(ev event.TransactionEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Save(ctx, ev); err != nil {
		s.log.Error("save transaction history", zap.String("tx_id", ev.ID), zap.Error(err))
	}
}

// Save upserts the history row and queues the event for the relay.
func (s *HistoryService) Save(ctx context.Context, ev event.TransactionEvent) error {
	h := ToHistory(ev)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).Create(&h).Error; err != nil {
			return err
		}
		return model.CreateOutboxMessage(tx, s.topic, PartitionKey(ev), ev)
	})
}

// List returns the newest history rows of an account, at most limit.
func (s *HistoryService) List(ctx context.Context, chain, address string, limit int) ([]model.TransactionHistory, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit)
	if chain != "" {
		q = q.Where("chain = ?", chain)
	}
	if address != "" {
		q = q.Where("address = ?", address)
	}
	var rows []model.TransactionHistory
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// PartitionKey keeps events of one account on one partition.
func PartitionKey(ev event.TransactionEvent) string {
	return ev.Chain + ":" + ev.Address
}

// ToHistory converts a terminal event into its history row. Unparsable
// amounts are stored as zero.
func ToHistory(ev event.TransactionEvent) model.TransactionHistory {
	return model.TransactionHistory{
		ID:            ev.ID,
		Chain:         ev.Chain,
		Address:       ev.Address,
		Type:          ev.Type,
		Status:        ev.Status,
		ExtrinsicHash: ev.ExtrinsicHash,
		Link:          ev.Link,
		Amount:        parseDecimal(ev.Amount),
		AmountSymbol:  ev.AmountSymbol,
		Fee:           parseDecimal(ev.Fee),
		FeeSymbol:     ev.FeeSymbol,
		Error:         ev.Error,
		External:      ev.External,
		CreatedAt:     ev.OccurredAt,
		UpdatedAt:     ev.OccurredAt,
	}
}

func parseDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
