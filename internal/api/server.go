package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/david/grantdesk/internal/ai"
	"github.com/david/grantdesk/internal/auth"
	"github.com/david/grantdesk/internal/db"
	"github.com/david/grantdesk/internal/models"
)

// SyncRunner performs one full refresh of the grant catalogue.
type SyncRunner interface {
	RunSync(ctx context.Context) (models.SyncResult, error)
}

// Store is the persistence the handlers need. *db.Store implements it.
type Store interface {
	ListGrants(ctx context.Context, f models.GrantFilter) (*db.GrantList, error)
	GetGrant(ctx context.Context, id uuid.UUID) (*models.Grant, error)
	SetAISummary(ctx context.Context, id uuid.UUID, summary []byte) error
	SetEligibilityParsed(ctx context.Context, id uuid.UUID, parsed []byte) error

	GetOrganizationByUser(ctx context.Context, userID uuid.UUID) (*models.Organization, error)
	SaveOrganization(ctx context.Context, o models.Organization) (*models.Organization, error)
	UpsertMatch(ctx context.Context, m models.GrantMatch) (*models.GrantMatch, error)

	CreateProposal(ctx context.Context, orgID, grantID uuid.UUID) (uuid.UUID, bool, error)
	GetProposal(ctx context.Context, orgID, id uuid.UUID) (*models.Proposal, error)
	ListProposals(ctx context.Context, orgID uuid.UUID) ([]models.ProposalListItem, error)
	UpdateProposalSection(ctx context.Context, orgID, id uuid.UUID, key, content string) error
	UpdateProposalStatus(ctx context.Context, orgID, id uuid.UUID, status models.ProposalStatus) error
}

var _ Store = (*db.Store)(nil)

// Options carries the settings NewServer does not derive from its dependencies.
type Options struct {
	CronSecret  string
	CORSOrigins []string
}

type Server struct {
	Store       Store
	AuthService *auth.Service
	Sync        SyncRunner
	// AI is nil when no API key is configured; analysis routes answer 503.
	AI   ai.Completer
	Echo *echo.Echo

	cronSecret string
	sanitizer  *bluemonday.Policy
}

func NewServer(store Store, authService *auth.Service, syncRunner SyncRunner, completer ai.Completer, opts Options) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	allowedOrigins := opts.CORSOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000"}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: allowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	if opts.CronSecret == "" {
		zap.L().Warn("CRON_SECRET is not set; scheduled sync endpoint will reject every request")
	}

	s := &Server{
		Store:       store,
		AuthService: authService,
		Sync:        syncRunner,
		AI:          completer,
		Echo:        e,
		cronSecret:  opts.CronSecret,
		sanitizer:   bluemonday.StrictPolicy(),
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.Echo.GET("/health", s.handleHealth)

	// Scheduler entry point, authenticated by the shared cron secret.
	s.Echo.GET("/api/sync-grants", s.handleCronSync, s.cronMiddleware)
	s.Echo.POST("/api/sync-grants", s.handleCronSync, s.cronMiddleware)

	api := s.Echo.Group("/api/v1")

	// Auth Routes
	api.POST("/auth/signup", s.handleSignup)
	api.POST("/auth/login", s.handleLogin)

	// Everything below needs a session.
	protected := api.Group("")
	protected.Use(s.AuthService.Middleware)

	protected.GET("/grants", s.handleListGrants)
	protected.POST("/grants/sync", s.handleInteractiveSync)
	protected.GET("/grants/:id", s.handleGetGrant)
	protected.POST("/grants/:id/analyze", s.handleAnalyzeGrant)
	protected.POST("/grants/:id/eligibility", s.handleParseEligibility)
	protected.POST("/grants/:id/fit", s.handleScoreFit)

	protected.GET("/org", s.handleGetOrg)
	protected.PUT("/org", s.handleSaveOrg)

	protected.GET("/proposals", s.handleListProposals)
	protected.POST("/proposals", s.handleCreateProposal)
	protected.GET("/proposals/:id", s.handleGetProposal)
	protected.PUT("/proposals/:id/status", s.handleUpdateProposalStatus)
	protected.PUT("/proposals/:id/sections/:key", s.handleUpdateSection)
	protected.POST("/proposals/:id/sections/:key/generate", s.handleGenerateSection)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

func (s *Server) handleSignup(c echo.Context) error {
	var req auth.SignupRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	resp, err := s.AuthService.Signup(c.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUserExists):
			return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
		case errors.Is(err, auth.ErrInvalidEmail), errors.Is(err, auth.ErrPasswordTooWeak):
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		zap.L().Error("signup failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}

	return c.JSON(http.StatusCreated, resp)
}

func (s *Server) handleLogin(c echo.Context) error {
	var req auth.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	resp, err := s.AuthService.Login(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCreds) {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
		}
		zap.L().Error("login failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}

	return c.JSON(http.StatusOK, resp)
}

func (s *Server) Start(addr string) error {
	return s.Echo.Start(addr)
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.Echo.Shutdown(ctx)
}
