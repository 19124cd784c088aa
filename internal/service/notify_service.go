package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"wallet-txcore/internal/event"
	"wallet-txcore/internal/service/mq"
	"wallet-txcore/internal/worker/tasks"
	"wallet-txcore/pkg/logger"
)

// Enqueuer schedules asynq tasks. *worker.Client satisfies it.
type Enqueuer interface {
	Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// NotifyService 消费 MQ 中的交易事件, 为每个终态交易投递一个通知任务
type NotifyService struct {
	consumer mq.Consumer
	enqueuer Enqueuer
	topic    string
	log      *zap.Logger
}

func NewNotifyService(consumer mq.Consumer, enqueuer Enqueuer, topic string) *NotifyService {
	return &NotifyService{
		consumer: consumer,
		enqueuer: enqueuer,
		topic:    topic,
		log:      logger.Named("notify"),
	}
}

// Start 阻塞消费直到 ctx 结束
func (s *NotifyService) Start(ctx context.Context) error {
	return s.consumer.Subscribe(ctx, s.topic, s.Handle)
}

// Handle turns one relayed event into a notification task. Malformed
// payloads are dropped so they are not redelivered forever.
func (s *NotifyService) Handle(ctx context.Context, msg *mq.Message) error {
	var ev event.TransactionEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		s.log.Warn("drop malformed event", zap.String("msg_id", msg.ID), zap.Error(err))
		return nil
	}
	if !ev.Terminal() {
		return nil
	}
	task, err := tasks.NewNotificationTask(tasks.NewPayload(ev))
	if err != nil {
		return err
	}
	if _, err := s.enqueuer.Enqueue(ctx, task); err != nil {
		return fmt.Errorf("enqueue notification %s: %w", ev.ID, err)
	}
	s.log.Debug("notification queued", zap.String("tx_id", ev.ID), zap.String("status", ev.Status))
	return nil
}
