// Package api exposes the engine's query surface over HTTP.
package api

import (
	"time"

	"GoldPulse/internal/domain/models"
	drepo "GoldPulse/internal/domain/repository"
	"GoldPulse/internal/engine"
	"GoldPulse/pkg/cache"
	xhttp "GoldPulse/pkg/http"
	"GoldPulse/pkg/logger"
	"GoldPulse/pkg/util"

	"github.com/labstack/echo/v4"
)

const statsCacheTTL = 15 * time.Second

// EngineHandler serves prediction, stats, status, and tick history queries.
// Status queries always return a well-formed object, even when subsystems
// are degraded.
type EngineHandler struct {
	log    *logger.Logger
	engine *engine.Engine
	ticks  drepo.TickStore
	cache  cache.Service
}

func NewEngineHandler(log *logger.Logger, eng *engine.Engine, ticks drepo.TickStore, c cache.Service) *EngineHandler {
	return &EngineHandler{log: log, engine: eng, ticks: ticks, cache: c}
}

func (h *EngineHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/prediction/latest", h.LatestPrediction)
	g.GET("/stats", h.Stats)
	g.GET("/status", h.Status)
	g.GET("/history", h.History)
}

func (h *EngineHandler) LatestPrediction(c echo.Context) error {
	f := h.engine.LatestPrediction()
	if f == nil {
		// No round has completed yet; an empty object, not an error.
		return xhttp.SuccessResponse(c, struct{}{})
	}
	return xhttp.SuccessResponse(c, f)
}

func (h *EngineHandler) Stats(c echo.Context) error {
	ctx := c.Request().Context()

	if h.cache != nil {
		var cached models.Stats
		if err := h.cache.Get(ctx, "stats:24h", &cached); err == nil {
			return xhttp.SuccessResponse(c, &cached)
		}
	}

	st := h.engine.Stats(ctx)
	if h.cache != nil {
		if err := h.cache.Set(ctx, "stats:24h", st, statsCacheTTL); err != nil {
			h.log.Warn("stats cache set failed", logger.Error(err))
		}
	}
	return xhttp.SuccessResponse(c, st)
}

func (h *EngineHandler) Status(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.engine.ConnectionStatus())
}

func (h *EngineHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	from, ok := util.ParseTime(req.From)
	if !ok {
		return xhttp.BadRequestResponse(c, "invalid from time")
	}
	to := util.ParseTimeDefault(req.To, time.Now())

	symbol := h.engine.ConnectionStatus().Symbol
	if symbol == "" {
		return xhttp.SuccessResponse(c, []*models.PriceSample{})
	}

	samples, err := h.ticks.Query(c.Request().Context(), symbol, from, to, req.Limit)
	if err != nil {
		h.log.Error("history query failed", logger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	if samples == nil {
		samples = []*models.PriceSample{}
	}
	return xhttp.SuccessResponse(c, samples)
}
