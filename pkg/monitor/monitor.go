package monitor

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// HTTPRequestsTotal 记录 HTTP 请求总量
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "txcore_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration 记录 HTTP 请求耗时 (Histogram)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "txcore_http_request_duration_seconds",
			Help:    "HTTP request latency distributions.",
			Buckets: []float64{0.1, 0.3, 0.5, 1.0, 2.0, 5.0},
		},
		[]string{"method", "path"},
	)

	// HTTPBusinessErrors 记录返回非 0 业务码的请求
	HTTPBusinessErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "txcore_http_business_errors_total",
			Help: "API answers carrying a non-zero errno code.",
		},
		[]string{"path", "code"},
	)
)

// ResponseCodeKey is the gin context key under which handlers leave the
// errno code of a failed answer.
const ResponseCodeKey = "txcore.response_code"

var initOnce sync.Once

// Init 初始化并注册监控指标到默认 registry, 重复调用无副作用
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(HTTPRequestsTotal, HTTPRequestDuration, HTTPBusinessErrors)
		Tx.MustRegister(prometheus.DefaultRegisterer)
	})
}

// PrometheusMiddleware returns a gin middleware for monitoring
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath() // 使用路由模板 /api/v1/transactions/:id 而不是具体路径

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		if path != "" { // 忽略 404 等未匹配路由
			HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
			HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(duration)
			if code := c.GetInt(ResponseCodeKey); code != 0 {
				HTTPBusinessErrors.WithLabelValues(path, strconv.Itoa(code)).Inc()
			}
		}
	}
}
