package api

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/david/grantdesk/internal/ingest"
)

// cronMiddleware admits only "Bearer <secret>" as an exact match. With no
// secret configured nothing is admitted.
func (s *Server) cronMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if s.cronSecret == "" {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		}
		want := "Bearer " + s.cronSecret
		got := c.Request().Header.Get(echo.HeaderAuthorization)
		if subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		}
		return next(c)
	}
}

func (s *Server) handleCronSync(c echo.Context) error {
	result, err := s.Sync.RunSync(c.Request().Context())
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ingest.ErrSyncInProgress) {
			status = http.StatusConflict
		} else {
			zap.L().Error("scheduled sync failed", zap.Error(err))
		}
		return c.JSON(status, map[string]any{"success": false, "error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"added":   result.Added,
		"updated": result.Updated,
		"total":   result.Total,
	})
}

func (s *Server) handleInteractiveSync(c echo.Context) error {
	result, err := s.Sync.RunSync(c.Request().Context())
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ingest.ErrSyncInProgress) {
			status = http.StatusConflict
		} else {
			zap.L().Error("interactive sync failed", zap.Error(err))
		}
		return c.JSON(status, map[string]any{"added": 0, "updated": 0, "total": 0, "error": err.Error()})
	}
	return c.JSON(http.StatusOK, result)
}
