package api

import (
	"errors"
	"html"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/david/grantdesk/internal/ai"
	"github.com/david/grantdesk/internal/db"
	"github.com/david/grantdesk/internal/models"
)

func (s *Server) handleListProposals(c echo.Context) error {
	org, status, msg := s.loadOrg(c)
	if org == nil {
		return c.JSON(status, map[string]string{"error": msg})
	}
	items, err := s.Store.ListProposals(c.Request().Context(), org.ID)
	if err != nil {
		zap.L().Error("list proposals", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}
	return c.JSON(http.StatusOK, items)
}

func (s *Server) handleCreateProposal(c echo.Context) error {
	org, status, msg := s.loadOrg(c)
	if org == nil {
		return c.JSON(status, map[string]string{"error": msg})
	}

	var req struct {
		GrantID string `json:"grant_id"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	grantID, err := uuid.Parse(req.GrantID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid grant id"})
	}

	ctx := c.Request().Context()
	if _, err := s.Store.GetGrant(ctx, grantID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Grant not found"})
		}
		zap.L().Error("get grant", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}

	id, created, err := s.Store.CreateProposal(ctx, org.ID, grantID)
	if err != nil {
		zap.L().Error("create proposal", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}
	code := http.StatusOK
	if created {
		code = http.StatusCreated
	}
	return c.JSON(code, map[string]any{"id": id, "created": created})
}

func (s *Server) handleGetProposal(c echo.Context) error {
	org, status, msg := s.loadOrg(c)
	if org == nil {
		return c.JSON(status, map[string]string{"error": msg})
	}
	p, status, msg := s.loadProposal(c, org.ID)
	if p == nil {
		return c.JSON(status, map[string]string{"error": msg})
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Server) handleUpdateSection(c echo.Context) error {
	section, ok := models.LookupSection(c.Param("key"))
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Unknown section"})
	}
	org, status, msg := s.loadOrg(c)
	if org == nil {
		return c.JSON(status, map[string]string{"error": msg})
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid proposal id"})
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	content := s.sanitizeText(req.Content)
	err = s.Store.UpdateProposalSection(c.Request().Context(), org.ID, id, section.Key, content)
	if errors.Is(err, db.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}
	if err != nil {
		zap.L().Error("update section", zap.String("section", section.Key), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}
	return c.JSON(http.StatusOK, map[string]string{"key": section.Key, "content": content})
}

// handleGenerateSection drafts a section with the model and saves it.
func (s *Server) handleGenerateSection(c echo.Context) error {
	if s.AI == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": errNoAI.Error()})
	}
	section, ok := models.LookupSection(c.Param("key"))
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Unknown section"})
	}
	org, status, msg := s.loadOrg(c)
	if org == nil {
		return c.JSON(status, map[string]string{"error": msg})
	}
	p, status, msg := s.loadProposal(c, org.ID)
	if p == nil {
		return c.JSON(status, map[string]string{"error": msg})
	}

	ctx := c.Request().Context()
	g, err := s.Store.GetGrant(ctx, p.GrantID)
	if err != nil {
		zap.L().Error("get proposal grant", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}

	draft, err := ai.DraftSection(ctx, s.AI, *org, *g, section, p.Sections[section.Key])
	if err != nil {
		zap.L().Error("draft section", zap.String("section", section.Key), zap.Error(err))
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "Generation failed"})
	}
	content := s.sanitizeText(draft)
	if err := s.Store.UpdateProposalSection(ctx, org.ID, p.ID, section.Key, content); err != nil {
		zap.L().Error("save generated section", zap.String("section", section.Key), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}
	return c.JSON(http.StatusOK, map[string]string{"key": section.Key, "content": content})
}

func (s *Server) handleUpdateProposalStatus(c echo.Context) error {
	org, status, msg := s.loadOrg(c)
	if org == nil {
		return c.JSON(status, map[string]string{"error": msg})
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid proposal id"})
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	next := models.ProposalStatus(strings.TrimSpace(req.Status))
	if !next.Valid() {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid status"})
	}

	err = s.Store.UpdateProposalStatus(c.Request().Context(), org.ID, id, next)
	if errors.Is(err, db.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}
	if err != nil {
		zap.L().Error("update proposal status", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": string(next)})
}

// loadProposal resolves :id within orgID.
func (s *Server) loadProposal(c echo.Context, orgID uuid.UUID) (*models.Proposal, int, string) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, http.StatusBadRequest, "Invalid proposal id"
	}
	p, err := s.Store.GetProposal(c.Request().Context(), orgID, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, http.StatusNotFound, "Not found"
	}
	if err != nil {
		zap.L().Error("get proposal", zap.Error(err))
		return nil, http.StatusInternalServerError, "Internal Server Error"
	}
	return p, http.StatusOK, ""
}

// sanitizeText strips all markup. Sections are plain text, so the entity
// escaping bluemonday applies is undone.
func (s *Server) sanitizeText(in string) string {
	return strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(in)))
}
