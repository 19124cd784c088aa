// Package tasks defines the asynq tasks of the notification worker.
package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"wallet-txcore/internal/event"
	"wallet-txcore/pkg/logger"
	"wallet-txcore/pkg/monitor"
)

// 任务类型常量
const (
	TypeTransactionNotification = "notification:transaction"
)

// NotificationPayload 交易通知任务参数
type NotificationPayload struct {
	ID      string `json:"id"`
	Chain   string `json:"chain"`
	Address string `json:"address"`
	Status  string `json:"status"`
	Link    string `json:"link,omitempty"`
	Message string `json:"message"`
}

// NewPayload builds the user-facing notice of a settled transaction.
func NewPayload(ev event.TransactionEvent) NotificationPayload {
	p := NotificationPayload{
		ID:      ev.ID,
		Chain:   ev.Chain,
		Address: ev.Address,
		Status:  ev.Status,
		Link:    ev.Link,
	}
	switch {
	case ev.Status == "SUCCESS" && ev.Amount != "":
		p.Message = fmt.Sprintf("Transaction %s on %s succeeded: %s %s sent, fee %s %s",
			ev.Type, ev.Chain, ev.Amount, ev.AmountSymbol, ev.Fee, ev.FeeSymbol)
	case ev.Status == "SUCCESS":
		p.Message = fmt.Sprintf("Transaction %s on %s succeeded", ev.Type, ev.Chain)
	case ev.Error != "":
		p.Message = fmt.Sprintf("Transaction %s on %s failed: %s", ev.Type, ev.Chain, ev.Error)
	default:
		p.Message = fmt.Sprintf("Transaction %s on %s failed", ev.Type, ev.Chain)
	}
	return p
}

// NewNotificationTask 创建交易通知任务. TaskID 取交易 ID, 重复投递会被 asynq 去重.
func NewNotificationTask(p NotificationPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeTransactionNotification, payload,
		asynq.TaskID("notify:"+p.ID),
		asynq.MaxRetry(5),
		asynq.Timeout(time.Minute),
	), nil
}

// Notifier delivers a notice to the account owner.
type Notifier interface {
	Notify(ctx context.Context, p NotificationPayload) error
}

// LogNotifier writes the notice to the log.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, p NotificationPayload) error {
	logger.Info("transaction notice",
		zap.String("tx_id", p.ID),
		zap.String("address", p.Address),
		zap.String("status", p.Status),
		zap.String("link", p.Link),
		zap.String("message", p.Message),
	)
	return nil
}

// NotificationHandler 处理交易通知任务. 通知失败不会影响交易状态.
type NotificationHandler struct {
	notifier Notifier
	metrics  *monitor.TxMetrics
}

func NewNotificationHandler(n Notifier, m *monitor.TxMetrics) *NotificationHandler {
	if n == nil {
		n = LogNotifier{}
	}
	if m == nil {
		m = monitor.Tx
	}
	return &NotificationHandler{notifier: n, metrics: m}
}

// ProcessTask implements asynq.Handler.
func (h *NotificationHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p NotificationPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		// JSON 解析失败，重试也没用，直接跳过 (SkipRetry)
		h.metrics.NotificationsTotal.WithLabelValues("invalid").Inc()
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}
	if err := h.notifier.Notify(ctx, p); err != nil {
		h.metrics.NotificationsTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("notify %s: %w", p.ID, err)
	}
	h.metrics.NotificationsTotal.WithLabelValues("sent").Inc()
	return nil
}
