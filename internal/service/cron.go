package service

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"wallet-txcore/internal/model"
	"wallet-txcore/internal/transaction"
	"wallet-txcore/pkg/logger"
	"wallet-txcore/pkg/monitor"
	"wallet-txcore/pkg/utils/lock"
)

// StatusCounter reports registry sizes. *transaction.Store satisfies it.
type StatusCounter interface {
	Counts() map[transaction.Status]int
}

type CronService struct {
	cron      *cron.Cron
	locker    lock.DistributedLock
	counter   StatusCounter
	db        *gorm.DB
	metrics   *monitor.TxMetrics
	retention time.Duration
}

// NewCronService wires the periodic jobs. db may be nil when persistence is
// disabled; the outbox cleanup is then skipped.
func NewCronService(locker lock.DistributedLock, counter StatusCounter, db *gorm.DB) *CronService {
	return &CronService{
		cron:      cron.New(),
		locker:    locker,
		counter:   counter,
		db:        db,
		metrics:   monitor.Tx,
		retention: 7 * 24 * time.Hour,
	}
}

func (s *CronService) Start() {
	_, _ = s.cron.AddFunc("@every 30s", s.RefreshRegistryGauge)
	if s.db != nil {
		_, _ = s.cron.AddFunc("@daily", s.CleanupOutbox)
	}

	s.cron.Start()
	logger.Info("Cron Service started")
}

func (s *CronService) Stop() {
	<-s.cron.Stop().Done()
	logger.Info("Cron Service stopped")
}

// RefreshRegistryGauge 刷新内存注册表各状态的记录数
func (s *CronService) RefreshRegistryGauge() {
	for status, n := range s.counter.Counts() {
		s.metrics.RegistryRecords.WithLabelValues(string(status)).Set(float64(n))
	}
}

// CleanupOutbox 删除过期的已投递消息
func (s *CronService) CleanupOutbox() {
	ctx := context.Background()
	lockKey := "cron:lock:outbox_cleanup"

	// 防止多实例同时执行
	token, locked, err := s.locker.Acquire(ctx, lockKey, 10*time.Minute)
	if err != nil || !locked {
		logger.Debug("CleanupOutbox: 获取锁失败或已有实例在运行", zap.Error(err))
		return
	}
	defer func() { _ = s.locker.Release(ctx, lockKey, token) }()

	cutoff := time.Now().Add(-s.retention)
	deleted, err := model.PurgeSentOutbox(ctx, s.db, cutoff)
	if err != nil {
		logger.Error("outbox cleanup failed", zap.Error(err))
		return
	}
	logger.Info("outbox cleanup done", zap.Int64("deleted", deleted))
}
