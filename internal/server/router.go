package server

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"wallet-txcore/internal/handler"
	"wallet-txcore/internal/handler/response"
	"wallet-txcore/internal/server/routes"
	"wallet-txcore/pkg/monitor"
)

// Handlers groups the HTTP handlers mounted under /api/v1.
type Handlers struct {
	Health       *handler.HealthHandler
	Transactions *handler.TransactionHandler
	Signing      *handler.SigningHandler
}

// NewHTTPRouter 初始化并返回一个 Gin Engine
func NewHTTPRouter(h Handlers) *gin.Engine {
	// 0. 初始化监控指标
	monitor.Init()

	// 1. 创建 Engine (使用默认中间件: Logger, Recovery)
	r := gin.Default()

	// 2. 注册通用中间件
	r.Use(monitor.PrometheusMiddleware())

	// 3. 注册基础路由
	r.GET("/health", h.Health.Check)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 4. 注册 API 路由组
	api := r.Group("/api/v1")
	{
		api.GET("/ping", func(c *gin.Context) {
			response.Success(c, gin.H{"pong": true})
		})
		routes.RegisterTransactionRoutes(api, h.Transactions)
		routes.RegisterSigningRoutes(api, h.Signing)
	}

	return r
}
