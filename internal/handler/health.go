package handler

import (
	"context"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"wallet-txcore/internal/handler/response"
)

// Probe reports whether one dependency (database, redis, ...) is reachable.
type Probe func(ctx context.Context) error

// ConnectedChains lists chains with an open API handle. *chainapi.Pool
// satisfies it.
type ConnectedChains interface {
	Connected() []string
}

type HealthHandler struct {
	probes  map[string]Probe
	chains  ConnectedChains
	timeout time.Duration
}

// NewHealthHandler builds the health endpoint; chains may be nil.
func NewHealthHandler(chains ConnectedChains, probes map[string]Probe) *HealthHandler {
	return &HealthHandler{probes: probes, chains: chains, timeout: 2 * time.Second}
}

// Check godoc
// @Summary Check system health
// @Description Report the dependency status and the chains with an open handle
// @Tags system
// @Produce  json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	status := "UP"
	deps := make(gin.H, len(h.probes))
	for name, probe := range h.probes {
		if err := probe(ctx); err != nil {
			// 依赖不可用时仍可处理本地签名, 只标记降级
			status = "DEGRADED"
			deps[name] = err.Error()
			continue
		}
		deps[name] = "UP"
	}

	chains := []string{}
	if h.chains != nil {
		chains = h.chains.Connected()
		sort.Strings(chains)
	}
	response.Success(c, gin.H{
		"status":       status,
		"service":      "txcore-server",
		"dependencies": deps,
		"chains":       chains,
	})
}
