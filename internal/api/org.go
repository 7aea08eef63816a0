package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/david/grantdesk/internal/auth"
	"github.com/david/grantdesk/internal/db"
	"github.com/david/grantdesk/internal/models"
)

type orgRequest struct {
	Name         string   `json:"name"`
	Type         string   `json:"type"`
	Mission      string   `json:"mission"`
	Location     string   `json:"location"`
	AnnualBudget any      `json:"annual_budget"`
	FocusAreas   []string `json:"focus_areas"`
}

func (s *Server) handleGetOrg(c echo.Context) error {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	org, err := s.Store.GetOrganizationByUser(c.Request().Context(), userID)
	if errors.Is(err, db.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}
	if err != nil {
		zap.L().Error("get organization", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}
	return c.JSON(http.StatusOK, org)
}

func (s *Server) handleSaveOrg(c echo.Context) error {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	var req orgRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	org, err := req.toOrganization()
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	org.UserID = userID

	saved, err := s.Store.SaveOrganization(c.Request().Context(), org)
	if err != nil {
		zap.L().Error("save organization", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}
	return c.JSON(http.StatusOK, saved)
}

func (r orgRequest) toOrganization() (models.Organization, error) {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return models.Organization{}, errors.New("name is required")
	}
	orgType := models.OrgType(r.Type)
	if !orgType.Valid() {
		return models.Organization{}, fmt.Errorf("invalid organization type %q", r.Type)
	}

	focus := make([]string, 0, len(r.FocusAreas))
	seen := make(map[string]bool, len(r.FocusAreas))
	for _, f := range r.FocusAreas {
		if !models.IsFocusArea(f) {
			return models.Organization{}, fmt.Errorf("invalid focus area %q", f)
		}
		if !seen[f] {
			seen[f] = true
			focus = append(focus, f)
		}
	}

	budget, err := parseBudget(r.AnnualBudget)
	if err != nil {
		return models.Organization{}, err
	}

	return models.Organization{
		Name:       name,
		Type:       orgType,
		Mission:    blankToNil(r.Mission),
		Location:   blankToNil(r.Location),
		Budget:     budget,
		FocusAreas: focus,
	}, nil
}

// parseBudget accepts a JSON number or a string such as "$1,250,000".
func parseBudget(v any) (*float64, error) {
	switch b := v.(type) {
	case nil:
		return nil, nil
	case float64:
		if b < 0 {
			return nil, errors.New("annual_budget must not be negative")
		}
		return &b, nil
	case string:
		cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(b)
		if cleaned == "" {
			return nil, nil
		}
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil || f < 0 {
			return nil, fmt.Errorf("invalid annual_budget %q", b)
		}
		return &f, nil
	}
	return nil, errors.New("annual_budget must be a number")
}

func blankToNil(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
