package worker

import (
	"context"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"wallet-txcore/internal/worker/tasks"
	"wallet-txcore/pkg/logger"
)

type Server struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	log    *zap.Logger
}

// NewServer 初始化 Worker Server, notifications 处理交易通知任务
func NewServer(opt Options, concurrency int, notifications asynq.Handler) *Server {
	log := logger.Named("worker")
	srv := asynq.NewServer(opt.redis(), asynq.Config{
		Concurrency: concurrency,
		// 通知优先, 其余任务走 default
		Queues: map[string]int{
			QueueNotifications: 6,
			QueueDefault:       3,
		},
		Logger: logger.NewAsynqLogger(),
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, t *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			if retried < maxRetry {
				return
			}
			// 重试耗尽, 通知丢弃; 交易状态不受影响
			log.Error("task given up",
				zap.String("type", t.Type()),
				zap.Int("retried", retried),
				zap.Error(err))
		}),
	})

	mux := asynq.NewServeMux()
	mux.Handle(tasks.TypeTransactionNotification, notifications)

	return &Server{server: srv, mux: mux, log: log}
}

// Start runs the server in the background.
func (s *Server) Start() {
	go func() {
		s.log.Info("worker starting")
		if err := s.server.Run(s.mux); err != nil {
			s.log.Error("worker stopped", zap.Error(err))
		}
	}()
}

// Stop 停止拉取新任务并等待进行中的任务完成
func (s *Server) Stop() {
	s.server.Stop()
	s.server.Shutdown()
}
