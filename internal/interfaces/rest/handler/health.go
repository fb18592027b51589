package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pot-code/lessonrelay/internal/infrastructure/logging"
	"go.uber.org/zap"
)

// Pinger a dependency that can report its liveness
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	deps map[string]Pinger
}

// NewHealthHandler deps are keyed by the name used in logs
func NewHealthHandler(deps map[string]Pinger) *HealthHandler {
	return &HealthHandler{deps}
}

// HandleLiveness 200 when every dependency answers, 503 otherwise
func (hh *HealthHandler) HandleLiveness(c echo.Context) error {
	ctx := c.Request().Context()
	for name, dep := range hh.deps {
		if err := dep.Ping(ctx); err != nil {
			logging.ExtractLoggerFromContext(ctx).Warn("liveness check failed", zap.String("dependency", name), zap.Error(err))
			return c.NoContent(http.StatusServiceUnavailable)
		}
	}
	return c.NoContent(http.StatusOK)
}
