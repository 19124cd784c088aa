package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"wallet-txcore/internal/service"
	"wallet-txcore/internal/service/mq"
	"wallet-txcore/internal/worker"
	"wallet-txcore/internal/worker/tasks"
	"wallet-txcore/pkg/config"
	"wallet-txcore/pkg/database"
	"wallet-txcore/pkg/logger"
	"wallet-txcore/pkg/monitor"
)

// 通知服务: 消费 MQ 中的交易终态事件, 转为 asynq 任务并执行.
// 不持有任何私钥, 可独立扩容.
func main() {
	// 1. 初始化配置与日志
	config.Init()
	cfg := config.Global
	logger.Init(cfg.App.Env)
	defer logger.Sync()

	logger.Info("启动通知服务 (Notification Worker)...", zap.String("env", cfg.App.Env), zap.String("mq", cfg.Redis.MQType))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Redis 是 asynq 的存储, 必须可用
	rdb, err := database.ConnectRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal("Redis 连接失败", zap.Error(err))
	}
	defer rdb.Close()

	// 3. 任务投递端与执行端
	opts := worker.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}
	client := worker.NewClient(opts)
	defer client.Close()

	monitor.Init()
	srv := worker.NewServer(opts, cfg.Worker.Concurrency,
		tasks.NewNotificationHandler(tasks.LogNotifier{}, monitor.Tx))
	srv.Start()

	// 4. MQ 消费者
	consumer := mq.NewConsumer(cfg, rdb, "txcore_notify", hostname())
	notify := service.NewNotifyService(consumer, client, cfg.Transaction.NotifyTopic)
	go func() {
		logger.Info("开始监听交易事件", zap.String("topic", cfg.Transaction.NotifyTopic))
		if err := notify.Start(ctx); err != nil {
			logger.Fatal("订阅失败", zap.Error(err))
		}
	}()

	// 5. 优雅退出
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("正在停止通知服务...")
	cancel()
	_ = consumer.Close()
	srv.Stop()
	logger.Info("通知服务已停止")
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil || name == "" {
		return "notify-0"
	}
	return name
}
