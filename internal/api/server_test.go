package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/david/grantdesk/internal/ai"
	"github.com/david/grantdesk/internal/auth"
	"github.com/david/grantdesk/internal/db"
	"github.com/david/grantdesk/internal/ingest"
	"github.com/david/grantdesk/internal/models"
)

const testCronSecret = "cron-test-secret"

// fakeStore keeps everything in maps keyed the way the tables are.
type fakeStore struct {
	mu        sync.Mutex
	grants    map[uuid.UUID]*models.Grant
	orgs      map[uuid.UUID]*models.Organization
	proposals map[uuid.UUID]*models.Proposal
	summaries map[uuid.UUID][]byte
	elig      map[uuid.UUID][]byte
	matches   []models.GrantMatch
	lastList  models.GrantFilter
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		grants:    map[uuid.UUID]*models.Grant{},
		orgs:      map[uuid.UUID]*models.Organization{},
		proposals: map[uuid.UUID]*models.Proposal{},
		summaries: map[uuid.UUID][]byte{},
		elig:      map[uuid.UUID][]byte{},
	}
}

func (f *fakeStore) ListGrants(_ context.Context, filter models.GrantFilter) (*db.GrantList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastList = filter
	out := &db.GrantList{Grants: []models.Grant{}, Limit: filter.Limit, Offset: filter.Offset}
	for _, g := range f.grants {
		out.Grants = append(out.Grants, *g)
	}
	out.Total = len(out.Grants)
	return out, nil
}

func (f *fakeStore) GetGrant(_ context.Context, id uuid.UUID) (*models.Grant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.grants[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (f *fakeStore) SetAISummary(_ context.Context, id uuid.UUID, summary []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summaries[id] = summary
	return nil
}

func (f *fakeStore) SetEligibilityParsed(_ context.Context, id uuid.UUID, parsed []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.elig[id] = parsed
	return nil
}

func (f *fakeStore) GetOrganizationByUser(_ context.Context, userID uuid.UUID) (*models.Organization, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orgs[userID]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeStore) SaveOrganization(_ context.Context, o models.Organization) (*models.Organization, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.orgs[o.UserID]; ok {
		o.ID = existing.ID
	} else {
		o.ID = uuid.New()
	}
	f.orgs[o.UserID] = &o
	cp := o
	return &cp, nil
}

func (f *fakeStore) UpsertMatch(_ context.Context, m models.GrantMatch) (*models.GrantMatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m.ID = uuid.New()
	f.matches = append(f.matches, m)
	return &m, nil
}

func (f *fakeStore) CreateProposal(_ context.Context, orgID, grantID uuid.UUID) (uuid.UUID, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.proposals {
		if p.OrgID == orgID && p.GrantID == grantID {
			return p.ID, false, nil
		}
	}
	p := &models.Proposal{ID: uuid.New(), OrgID: orgID, GrantID: grantID, Status: models.ProposalStatusDraft, Sections: models.EmptySections()}
	f.proposals[p.ID] = p
	return p.ID, true, nil
}

func (f *fakeStore) GetProposal(_ context.Context, orgID, id uuid.UUID) (*models.Proposal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.proposals[id]
	if !ok || p.OrgID != orgID {
		return nil, db.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) ListProposals(_ context.Context, orgID uuid.UUID) ([]models.ProposalListItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := []models.ProposalListItem{}
	for _, p := range f.proposals {
		if p.OrgID == orgID {
			items = append(items, models.ProposalListItem{ID: p.ID, GrantID: p.GrantID, Status: p.Status})
		}
	}
	return items, nil
}

func (f *fakeStore) UpdateProposalSection(_ context.Context, orgID, id uuid.UUID, key, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.proposals[id]
	if !ok || p.OrgID != orgID {
		return db.ErrNotFound
	}
	p.Sections[key] = content
	return nil
}

func (f *fakeStore) UpdateProposalStatus(_ context.Context, orgID, id uuid.UUID, status models.ProposalStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.proposals[id]
	if !ok || p.OrgID != orgID {
		return db.ErrNotFound
	}
	p.Status = status
	return nil
}

type fakeRunner struct {
	result models.SyncResult
	err    error
	calls  int
}

func (r *fakeRunner) RunSync(context.Context) (models.SyncResult, error) {
	r.calls++
	return r.result, r.err
}

type stubCompleter struct {
	reply string
	err   error
}

func (s *stubCompleter) Complete(_ context.Context, req ai.Request) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return req.Prefill + s.reply, nil
}

type harness struct {
	srv    *Server
	store  *fakeStore
	runner *fakeRunner
	userID uuid.UUID
	token  string
}

func newHarness(t *testing.T, completer ai.Completer) *harness {
	t.Helper()
	authSvc, err := auth.NewService(nil, "api-test-secret")
	require.NoError(t, err)

	h := &harness{store: newFakeStore(), runner: &fakeRunner{}, userID: uuid.New()}
	h.token, err = authSvc.GenerateToken(h.userID)
	require.NoError(t, err)

	h.srv = NewServer(h.store, authSvc, h.runner, completer, Options{CronSecret: testCronSecret})
	return h
}

func (h *harness) do(t *testing.T, method, path, body string, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if authed {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}
	rec := httptest.NewRecorder()
	h.srv.Echo.ServeHTTP(rec, req)
	return rec
}

func (h *harness) addGrant() *models.Grant {
	agency := "Department of Education"
	deadline := time.Date(2025, 9, 30, 0, 0, 0, 0, time.UTC)
	g := &models.Grant{
		ID:        uuid.New(),
		Source:    "grants_gov",
		SourceID:  "350123",
		Title:     "Community Learning Centers",
		Agency:    &agency,
		Deadline:  &deadline,
		Category:  []string{"education"},
		Status:    models.GrantStatusOpen,
		SourceURL: "https://grants.gov/search-results-detail/350123",
	}
	h.store.grants[g.ID] = g
	return g
}

func (h *harness) addOrg() *models.Organization {
	o := &models.Organization{ID: uuid.New(), UserID: h.userID, Name: "Read Ahead", Type: models.OrgTypeNonprofit, FocusAreas: []string{"education"}}
	h.store.orgs[h.userID] = o
	return o
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(t, http.MethodGet, "/health", "", false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestCronSync_Auth(t *testing.T) {
	h := newHarness(t, nil)

	cases := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"wrong secret", "Bearer nope"},
		{"no scheme", testCronSecret},
		{"lowercase scheme", "bearer " + testCronSecret},
		{"trailing space", "Bearer " + testCronSecret + " "},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/sync-grants", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.srv.Echo.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "Unauthorized", decode(t, rec)["error"])
		})
	}
	assert.Zero(t, h.runner.calls)
}

func TestCronSync_UnsetSecretRejectsEverything(t *testing.T) {
	authSvc, err := auth.NewService(nil, "x")
	require.NoError(t, err)
	runner := &fakeRunner{}
	srv := NewServer(newFakeStore(), authSvc, runner, nil, Options{})

	req := httptest.NewRequest(http.MethodGet, "/api/sync-grants", nil)
	req.Header.Set("Authorization", "Bearer ")
	rec := httptest.NewRecorder()
	srv.Echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, runner.calls)
}

func TestCronSync_Outcomes(t *testing.T) {
	for _, method := range []string{http.MethodGet, http.MethodPost} {
		t.Run(method+" success", func(t *testing.T) {
			h := newHarness(t, nil)
			h.runner.result = models.SyncResult{Added: 3, Updated: 247, Total: 250}

			req := httptest.NewRequest(method, "/api/sync-grants", nil)
			req.Header.Set("Authorization", "Bearer "+testCronSecret)
			rec := httptest.NewRecorder()
			h.srv.Echo.ServeHTTP(rec, req)

			require.Equal(t, http.StatusOK, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, true, body["success"])
			assert.EqualValues(t, 3, body["added"])
			assert.EqualValues(t, 247, body["updated"])
			assert.EqualValues(t, 250, body["total"])
		})
	}

	t.Run("failure", func(t *testing.T) {
		h := newHarness(t, nil)
		h.runner.err = &ingest.TransportError{StatusCode: 503, Status: "503 Service Unavailable"}

		req := httptest.NewRequest(http.MethodPost, "/api/sync-grants", nil)
		req.Header.Set("Authorization", "Bearer "+testCronSecret)
		rec := httptest.NewRecorder()
		h.srv.Echo.ServeHTTP(rec, req)

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, false, body["success"])
		assert.Contains(t, body["error"], "503")
	})

	t.Run("in progress", func(t *testing.T) {
		h := newHarness(t, nil)
		h.runner.err = ingest.ErrSyncInProgress

		req := httptest.NewRequest(http.MethodPost, "/api/sync-grants", nil)
		req.Header.Set("Authorization", "Bearer "+testCronSecret)
		rec := httptest.NewRecorder()
		h.srv.Echo.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestInteractiveSync(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(t, http.MethodPost, "/api/v1/grants/sync", "", false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, h.runner.calls)

	h.runner.result = models.SyncResult{Added: 1, Updated: 2, Total: 3}
	rec = h.do(t, http.MethodPost, "/api/v1/grants/sync", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"added":1,"updated":2,"total":3}`, rec.Body.String())

	h.runner.err = &ingest.SourceAPIError{Code: 7, Message: "bad statuses"}
	rec = h.do(t, http.MethodPost, "/api/v1/grants/sync", "", true)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.EqualValues(t, 0, body["added"])
	assert.EqualValues(t, 0, body["updated"])
	assert.EqualValues(t, 0, body["total"])
	assert.Contains(t, body["error"], "bad statuses")
}

func TestListGrants(t *testing.T) {
	h := newHarness(t, nil)
	h.addGrant()

	rec := h.do(t, http.MethodGet, "/api/v1/grants?q=learning&status=open&category=education&limit=5&offset=10", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.GrantFilter{Query: "learning", Status: "open", Category: "education", Limit: 5, Offset: 10}, h.store.lastList)
	assert.EqualValues(t, 1, decode(t, rec)["total"])

	rec = h.do(t, http.MethodGet, "/api/v1/grants?status=all&limit=-3", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "all", h.store.lastList.Status)
	assert.Zero(t, h.store.lastList.Limit)

	rec = h.do(t, http.MethodGet, "/api/v1/grants?status=archived", "", true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetGrant(t *testing.T) {
	h := newHarness(t, nil)
	g := h.addGrant()

	rec := h.do(t, http.MethodGet, "/api/v1/grants/"+g.ID.String(), "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, g.Title, decode(t, rec)["title"])

	rec = h.do(t, http.MethodGet, "/api/v1/grants/"+uuid.NewString(), "", true)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/v1/grants/not-a-uuid", "", true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalysisRoutes_NoCompleter(t *testing.T) {
	h := newHarness(t, nil)
	g := h.addGrant()

	for _, path := range []string{"/analyze", "/eligibility", "/fit"} {
		rec := h.do(t, http.MethodPost, "/api/v1/grants/"+g.ID.String()+path, "", true)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
	}
}

func TestAnalyzeGrant_StoresSummaryOnly(t *testing.T) {
	h := newHarness(t, &stubCompleter{reply: `"summary":"Funds centers.","key_requirements":[],"ideal_applicant":"A district","tips":[]}`})
	g := h.addGrant()

	rec := h.do(t, http.MethodPost, "/api/v1/grants/"+g.ID.String()+"/analyze", "", true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Funds centers.", decode(t, rec)["summary"])

	require.Contains(t, h.store.summaries, g.ID)
	assert.Contains(t, string(h.store.summaries[g.ID]), "Funds centers.")
	assert.Empty(t, h.store.elig)
}

func TestAnalyzeGrant_ModelFailure(t *testing.T) {
	h := newHarness(t, &stubCompleter{err: errors.New("overloaded")})
	g := h.addGrant()

	rec := h.do(t, http.MethodPost, "/api/v1/grants/"+g.ID.String()+"/analyze", "", true)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Empty(t, h.store.summaries)
}

func TestParseEligibility(t *testing.T) {
	h := newHarness(t, &stubCompleter{reply: `"org_types":["nonprofit"],"requirements":[],"disqualifiers":[],"preferred":[],"min_budget":null,"geographic":"US"}`})
	g := h.addGrant()

	rec := h.do(t, http.MethodPost, "/api/v1/grants/"+g.ID.String()+"/eligibility", "", true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, string(h.store.elig[g.ID]), `"geographic":"US"`)
	assert.Empty(t, h.store.summaries)
}

func TestScoreFit(t *testing.T) {
	h := newHarness(t, &stubCompleter{reply: `"fit_score":82,"strengths":["mission"],"gaps":["size"],"recommendation":"Apply."}`})
	g := h.addGrant()

	rec := h.do(t, http.MethodPost, "/api/v1/grants/"+g.ID.String()+"/fit", "", true)
	assert.Equal(t, http.StatusNotFound, rec.Code, "org profile required")

	org := h.addOrg()
	rec = h.do(t, http.MethodPost, "/api/v1/grants/"+g.ID.String()+"/fit", "", true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 82, decode(t, rec)["fit_score"])
	require.Len(t, h.store.matches, 1)
	assert.Equal(t, org.ID, h.store.matches[0].OrgID)
	assert.Equal(t, g.ID, h.store.matches[0].GrantID)
}
