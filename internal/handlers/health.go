package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type healthResponse struct {
	Status      string `json:"status"`
	Database    string `json:"database"`
	Cache       string `json:"cache"`
	Environment string `json:"environment"`
}

func (h HandlerSet) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	hs := h.engine.Health(ctx)

	dbStatus := "ok"
	if !hs.StoreAvailable {
		dbStatus = "error"
		h.log.Error().Msg("store ping failed")
	}

	cacheStatus := "disabled"
	if hs.RedisConfigured {
		cacheStatus = "ok"
		if !hs.RedisAvailable {
			cacheStatus = "error"
			h.log.Error().Msg("redis ping failed")
		}
	}

	status, code := "ok", http.StatusOK
	if !hs.Healthy() {
		status, code = "degraded", http.StatusServiceUnavailable
	}

	c.JSON(code, healthResponse{
		Status:      status,
		Database:    dbStatus,
		Cache:       cacheStatus,
		Environment: h.opts.Environment,
	})
}
