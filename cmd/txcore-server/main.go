package main

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"wallet-txcore/internal/chain"
	"wallet-txcore/internal/chainapi"
	"wallet-txcore/internal/dialect"
	"wallet-txcore/internal/event"
	"wallet-txcore/internal/eventparse"
	"wallet-txcore/internal/fee"
	"wallet-txcore/internal/handler"
	"wallet-txcore/internal/keyring"
	"wallet-txcore/internal/model"
	"wallet-txcore/internal/server"
	"wallet-txcore/internal/service"
	"wallet-txcore/internal/service/mq"
	"wallet-txcore/internal/signer"
	"wallet-txcore/internal/transaction"
	"wallet-txcore/pkg/cache"
	"wallet-txcore/pkg/config"
	"wallet-txcore/pkg/database"
	"wallet-txcore/pkg/keystore"
	"wallet-txcore/pkg/logger"
	"wallet-txcore/pkg/utils/lock"
)

// @title Wallet Transaction Core API
// @version 1.0
// @description Multi-chain transaction orchestration: validation, fee estimation, signing and settlement.

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /api/v1
func main() {
	// 0. 初始化 Config
	config.Init()
	cfg := config.Global

	// 1. 初始化 Logger
	logger.Init(cfg.App.Env)
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. 可选的数据库与 Redis
	var db *gorm.DB
	if cfg.DB.Enabled {
		var err error
		db, err = database.ConnectPostgres(cfg.DB.DSN(), cfg.App.Env == "development")
		if err != nil {
			logger.Fatal("数据库连接失败", zap.Error(err))
		}
		if cfg.App.Env == "development" {
			logger.Info("开发环境: 尝试自动迁移 Schema (GORM AutoMigrate)...")
			if err := db.AutoMigrate(model.AllModels()...); err != nil {
				logger.Fatal("数据库自动迁移失败", zap.Error(err))
			}
		} else {
			logger.Info("生产环境: 跳过 AutoMigrate，请使用 migrate 工具管理 Schema")
		}
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		var err error
		rdb, err = database.ConnectRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Fatal("Redis 连接失败", zap.Error(err))
		}
	}

	// 3. 链与资产注册表
	chains, err := chain.NewRegistryFromConfig(cfg)
	if err != nil {
		logger.Fatal("加载链配置失败", zap.Error(err))
	}
	dialects := dialect.DefaultRegistry()
	pool := chainapi.NewPool(chains)

	// 4. 账户
	kr := keyring.New(cfg.Keyring.KeystoreDir, keystore.StandardScryptN)
	if err := kr.Load(); err != nil {
		logger.Fatal("加载 keystore 失败", zap.Error(err))
	}
	logger.Info("keyring loaded", zap.Int("accounts", len(kr.Addresses())))

	// 5. 手续费估算, 有 Redis 时使用二级缓存
	var quotes cache.Cache = cache.NewMemoryCache(cfg.Fee.QuoteTTL, time.Minute)
	if rdb != nil {
		quotes = cache.NewMultiLevelCache(quotes, cache.NewRedisCache(rdb, "txcore"))
	}
	estimator := fee.NewEstimator(chains, quotes, fee.Config{
		QuoteTTL:        cfg.Fee.QuoteTTL,
		FetchTimeout:    cfg.Fee.FetchTimeout,
		BusyBaseFeeGwei: cfg.Fee.BusyBaseFeeGwei,
		BusyUtilization: cfg.Fee.BusyUtilization,
	})

	// 6. 签名后端. 硬件钱包与浏览器插件由宿主进程注册
	dispatcher := signer.NewDispatcher()
	dispatcher.Register(signer.ModePassword, signer.NewPasswordBackend(kr))
	dispatcher.Register(signer.ModeQR, signer.NewQRBackend(cfg.Signer.QRTimeout))

	// 7. 交易管理器
	var locker lock.DistributedLock = lock.NewMemoryLock()
	if rdb != nil && cfg.Transaction.DistributedGuard {
		locker = lock.NewRedisLock(rdb)
	}
	bus := event.NewBus()
	store := transaction.NewStore()
	manager := transaction.NewManager(transaction.Deps{
		Chains:   chains,
		Dialects: dialects,
		Pairs:    kr,
		Fees:     estimator,
		APIs:     pool,
		Signer:   dispatcher,
		Parser:   eventparse.NewParser(dialects),
		Store:    store,
		Guard:    transaction.NewGuard(locker, cfg.Transaction.LockTTL),
		Bus:      bus,
	}, transaction.Config{
		EDAsWarning:      cfg.Transaction.EDAsWarning,
		ReceiptPollEvery: cfg.Fee.ReceiptPollEvery,
	})

	// 8. 持久化链路: bus -> history(outbox) -> relay -> MQ. 消费端见 txcore-worker
	var (
		history  *service.HistoryService
		producer mq.Producer
	)
	if db != nil {
		history = service.NewHistoryService(db, bus, cfg.Transaction.NotifyTopic)
		if err := history.Start(); err != nil {
			logger.Fatal("订阅交易事件失败", zap.Error(err))
		}
		if rdb != nil || cfg.Redis.MQType == mq.TypeKafka {
			producer = mq.NewProducer(cfg, rdb)
			relay := service.NewRelayService(db, producer)
			go relay.Start(ctx)
		}
	}

	cronService := service.NewCronService(locker, store, db)
	cronService.Start()

	// 9. HTTP / gRPC
	probes := map[string]handler.Probe{}
	if db != nil {
		probes["database"] = func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
	}
	if rdb != nil {
		probes["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	r := server.NewHTTPRouter(server.Handlers{
		Health:       handler.NewHealthHandler(pool, probes),
		Transactions: handler.NewTransactionHandler(manager, historyLister(history)),
		Signing:      handler.NewSigningHandler(dispatcher),
	})
	grpcServer, healthServer := server.NewGRPCServer()

	app, err := server.New(server.Config{
		HttpPort: cfg.App.HttpPort,
		GrpcPort: cfg.App.GrpcPort,
	}, r, grpcServer, healthServer)
	if err != nil {
		logger.Fatal("应用启动失败", zap.Error(err))
	}

	// 退出顺序与注册顺序相反
	app.OnShutdown(func() {
		logger.Info("正在关闭数据库连接...")
		if db != nil {
			if sqlDB, err := db.DB(); err == nil {
				sqlDB.Close()
			}
		}
		if rdb != nil {
			rdb.Close()
		}
	})
	app.OnShutdown(func() {
		cancel()
		cronService.Stop()
		manager.Close()
		if history != nil {
			history.Stop()
		}
		if producer != nil {
			producer.Close()
		}
		pool.Close()
	})

	// 运行 (阻塞)
	app.Run()
	logger.Info("系统已退出")
}

// historyLister keeps a nil *HistoryService from becoming a non-nil interface.
func historyLister(h *service.HistoryService) handler.HistoryLister {
	if h == nil {
		return nil
	}
	return h
}
