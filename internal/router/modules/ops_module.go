package modules

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-content-auth/internal/container"
	"github.com/oksasatya/go-content-auth/internal/interface/middleware"
)

// OpsModule serves liveness and Prometheus metrics on the engine root, outside /api.
type OpsModule struct {
	Engine *gin.Engine
}

func NewOpsModule(engine *gin.Engine) *OpsModule { return &OpsModule{Engine: engine} }

func (m *OpsModule) Register(*gin.RouterGroup) {
	m.Engine.GET("/healthz", m.health)
	if col := container.GetMetrics(); col != nil && container.GetConfig().MetricsEnabled {
		rl := middleware.RateLimit(middleware.NewLocalLimiter(120, time.Minute), middleware.KeyByIPAndRoute(), middleware.AllowPrivateIP())
		m.Engine.GET("/metrics", rl, gin.WrapH(col.Handler()))
	}
}

func (m *OpsModule) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{}
	status := http.StatusOK
	if pool := container.GetPGPool(); pool != nil {
		checks["postgres"] = "ok"
		if err := pool.Ping(ctx); err != nil {
			checks["postgres"] = "down"
			status = http.StatusServiceUnavailable
		}
	}
	if rdb := container.GetRedis(); rdb != nil {
		checks["redis"] = "ok"
		if err := rdb.Ping(ctx).Err(); err != nil {
			checks["redis"] = "down"
			status = http.StatusServiceUnavailable
		}
	}
	c.JSON(status, gin.H{"status": http.StatusText(status), "checks": checks})
}
