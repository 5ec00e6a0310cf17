package app

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/you/sessionkit/internal/config"
)

// Run wires the agent and serves its HTTP surface. The boot-time auth
// determination runs in the background so the server is reachable
// immediately; guarded routes answer 503 until the check settles.
func Run(cfg *config.Config) error {
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	c, err := NewContainer(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = c.Logger.Sync() }()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := c.Sessions.Init(ctx); err != nil {
			c.Logger.Warn("boot auth check ended anonymous", zap.Error(err))
		}
	}()

	r := c.Router()
	c.Logger.Info("session agent listening", zap.String("port", cfg.Port))
	return r.Run(":" + cfg.Port)
}
