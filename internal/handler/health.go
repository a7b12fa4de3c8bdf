package handler

import (
	"net/http"
	"time"

	"rocket-backend/internal/config"
	"rocket-backend/internal/generator"
	"rocket-backend/internal/model"
	"rocket-backend/internal/service"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	providers []config.ProviderConfig
	cache     *generator.PhraseCache
	service   *service.DashboardService
}

func NewHealthHandler(providers []config.ProviderConfig, cache *generator.PhraseCache, svc *service.DashboardService) *HealthHandler {
	return &HealthHandler{
		providers: providers,
		cache:     cache,
		service:   svc,
	}
}

// Check 没有任何已配置密钥的服务商时返回 503
func (h *HealthHandler) Check(c *gin.Context) {
	resp := model.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().Unix(),
		Providers: make([]model.ProviderHealth, 0, len(h.providers)),
		Errors:    []string{},
	}

	configured := 0
	for _, p := range h.providers {
		ok := p.APIKey != ""
		if ok {
			configured++
		} else {
			resp.Errors = append(resp.Errors, p.Name+" api key is not configured")
		}
		resp.Providers = append(resp.Providers, model.ProviderHealth{
			Name:       p.Name,
			Configured: ok,
			KeyPrefix:  model.MaskKey(p.APIKey),
		})
	}
	if h.cache != nil {
		resp.CachedPhrases = h.cache.Stats().Entries
	}
	if h.service != nil {
		resp.ActiveSessions = h.service.ActiveSessions()
	}

	if configured == 0 {
		resp.Status = "error"
		resp.Errors = append(resp.Errors, "no AI provider configured")
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}
