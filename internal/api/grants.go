package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/david/grantdesk/internal/ai"
	"github.com/david/grantdesk/internal/auth"
	"github.com/david/grantdesk/internal/db"
	"github.com/david/grantdesk/internal/models"
)

var errNoAI = errors.New("analysis is not configured")

func (s *Server) handleListGrants(c echo.Context) error {
	f := models.GrantFilter{
		Query:    c.QueryParam("q"),
		Status:   c.QueryParam("status"),
		Category: c.QueryParam("category"),
	}
	if f.Status != "" && f.Status != "all" && !models.GrantStatus(f.Status).Valid() {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid status"})
	}
	if l, err := strconv.Atoi(c.QueryParam("limit")); err == nil && l > 0 {
		f.Limit = l
	}
	if o, err := strconv.Atoi(c.QueryParam("offset")); err == nil && o >= 0 {
		f.Offset = o
	}

	result, err := s.Store.ListGrants(c.Request().Context(), f)
	if err != nil {
		zap.L().Error("list grants", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleGetGrant(c echo.Context) error {
	g, status, msg := s.loadGrant(c)
	if g == nil {
		return c.JSON(status, map[string]string{"error": msg})
	}
	return c.JSON(http.StatusOK, g)
}

func (s *Server) handleAnalyzeGrant(c echo.Context) error {
	if s.AI == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": errNoAI.Error()})
	}
	g, status, msg := s.loadGrant(c)
	if g == nil {
		return c.JSON(status, map[string]string{"error": msg})
	}

	ctx := c.Request().Context()
	summary, err := ai.SummarizeGrant(ctx, s.AI, *g)
	if err != nil {
		zap.L().Error("analyze grant", zap.String("grant_id", g.ID.String()), zap.Error(err))
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "Analysis failed"})
	}
	if err := storeEnrichment(ctx, g.ID, summary, s.Store.SetAISummary); err != nil {
		zap.L().Error("store summary", zap.String("grant_id", g.ID.String()), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}
	return c.JSON(http.StatusOK, summary)
}

func (s *Server) handleParseEligibility(c echo.Context) error {
	if s.AI == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": errNoAI.Error()})
	}
	g, status, msg := s.loadGrant(c)
	if g == nil {
		return c.JSON(status, map[string]string{"error": msg})
	}

	ctx := c.Request().Context()
	elig, err := ai.ExtractEligibility(ctx, s.AI, *g)
	if err != nil {
		zap.L().Error("parse eligibility", zap.String("grant_id", g.ID.String()), zap.Error(err))
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "Eligibility parsing failed"})
	}
	if err := storeEnrichment(ctx, g.ID, elig, s.Store.SetEligibilityParsed); err != nil {
		zap.L().Error("store eligibility", zap.String("grant_id", g.ID.String()), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}
	return c.JSON(http.StatusOK, elig)
}

func (s *Server) handleScoreFit(c echo.Context) error {
	if s.AI == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": errNoAI.Error()})
	}
	org, status, msg := s.loadOrg(c)
	if org == nil {
		return c.JSON(status, map[string]string{"error": msg})
	}
	g, status, msg := s.loadGrant(c)
	if g == nil {
		return c.JSON(status, map[string]string{"error": msg})
	}

	ctx := c.Request().Context()
	fit, err := ai.ScoreFit(ctx, s.AI, *org, *g)
	if err != nil {
		zap.L().Error("score fit", zap.String("grant_id", g.ID.String()), zap.Error(err))
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "Fit scoring failed"})
	}

	match, err := s.Store.UpsertMatch(ctx, models.GrantMatch{
		OrgID:          org.ID,
		GrantID:        g.ID,
		FitScore:       fit.FitScore,
		Strengths:      fit.Strengths,
		Gaps:           fit.Gaps,
		Recommendation: fit.Recommendation,
	})
	if err != nil {
		zap.L().Error("save match", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}
	return c.JSON(http.StatusOK, match)
}

// loadGrant resolves :id. A nil grant comes with the status and message to answer with.
func (s *Server) loadGrant(c echo.Context) (*models.Grant, int, string) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, http.StatusBadRequest, "Invalid grant id"
	}
	g, err := s.Store.GetGrant(c.Request().Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, http.StatusNotFound, "Not found"
	}
	if err != nil {
		zap.L().Error("get grant", zap.String("grant_id", id.String()), zap.Error(err))
		return nil, http.StatusInternalServerError, "Internal Server Error"
	}
	return g, http.StatusOK, ""
}

// loadOrg returns the caller's organization profile.
func (s *Server) loadOrg(c echo.Context) (*models.Organization, int, string) {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return nil, http.StatusUnauthorized, "Unauthorized"
	}
	org, err := s.Store.GetOrganizationByUser(c.Request().Context(), userID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, http.StatusNotFound, "Organization profile required"
	}
	if err != nil {
		zap.L().Error("get organization", zap.Error(err))
		return nil, http.StatusInternalServerError, "Internal Server Error"
	}
	return org, http.StatusOK, ""
}

func storeEnrichment(ctx context.Context, id uuid.UUID, v any, set func(context.Context, uuid.UUID, []byte) error) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return set(ctx, id, data)
}
