package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"wallet-txcore/internal/model"
	"wallet-txcore/internal/service/mq"
	"wallet-txcore/pkg/logger"
)

// RelayService 负责将本地消息表的消息搬运到 MQ
type RelayService struct {
	db       *gorm.DB
	producer mq.Producer
	interval time.Duration
	batch    int
	log      *zap.Logger
}

func NewRelayService(db *gorm.DB, producer mq.Producer) *RelayService {
	return &RelayService{
		db:       db,
		producer: producer,
		interval: 500 * time.Millisecond,
		batch:    50,
		log:      logger.Named("relay"),
	}
}

// Start 轮询 Outbox 直到 ctx 结束 (阻塞)
func (s *RelayService) Start(ctx context.Context) {
	s.log.Info("relay started", zap.Duration("interval", s.interval))
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("relay stopped")
			return
		case <-ticker.C:
			if _, err := s.RelayOnce(ctx); err != nil {
				s.log.Warn("relay outbox", zap.Error(err))
			}
		}
	}
}

// RelayOnce 发送一批 PENDING 消息, 返回成功投递的条数.
// 发送成功后才标记 SENT => At-least-once, 消费端需幂等.
func (s *RelayService) RelayOnce(ctx context.Context) (int, error) {
	messages, err := model.PendingOutbox(ctx, s.db, s.batch)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, msg := range messages {
		if err := s.producer.Publish(ctx, msg.Topic, msg.Key, msg.Payload); err != nil {
			// 保持顺序: 同一批后续消息下次再发
			s.log.Warn("publish outbox message", zap.Uint64("id", msg.ID), zap.Error(err))
			return sent, nil
		}
		if err := model.MarkOutboxSent(ctx, s.db, msg.ID); err != nil {
			s.log.Warn("mark outbox message sent", zap.Uint64("id", msg.ID), zap.Error(err))
			continue
		}
		sent++
	}
	if sent > 0 {
		s.log.Debug("outbox relayed", zap.Int("count", sent))
	}
	return sent, nil
}
