package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGrantsGovClient(baseURL string) *GrantsGovClient {
	src := SourceConfig{BaseURL: baseURL, OppStatuses: "posted", Fetch: FetchConfig{TimeoutSeconds: 5}}
	return NewGrantsGovClient(src, nil)
}

func TestGrantsGovClient_FetchPage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "no-cache", r.Header.Get("Cache-Control"))

		var body GrantsGovSearchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "posted", body.OppStatuses)
		assert.Equal(t, 200, body.StartRecordNum)
		assert.Equal(t, 100, body.Rows)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"errorcode": 0,
			"msg":       "Webservice Succeeds",
			"data": map[string]any{
				"hitCount":    1742,
				"startRecord": 200,
				"oppHits": []map[string]any{
					{
						"id":                "355001",
						"number":            "HHS-2025-ACF-001",
						"title":             "Community Health Workers",
						"agencyName":        "Administration for Children and Families",
						"agencyCode":        "HHS-ACF",
						"openDate":          "01/15/2025",
						"closeDate":         "03/31/2025",
						"oppStatus":         "posted",
						"docType":           "synopsis",
						"alnList":           []string{"93.600"},
						"fundingCategories": "HL|ED",
					},
				},
			},
		})
	}))
	defer ts.Close()

	page, err := newTestGrantsGovClient(ts.URL).FetchPage(context.Background(), 200, 100)
	require.NoError(t, err)
	assert.Equal(t, 1742, page.TotalAvailable)
	require.Len(t, page.Hits, 1)

	hit := page.Hits[0]
	assert.Equal(t, "355001", hit.ID)
	assert.Equal(t, "Administration for Children and Families", hit.AgencyName)
	assert.Equal(t, "03/31/2025", hit.CloseDate)
	assert.Equal(t, []string{"93.600"}, hit.ALNList)
	assert.Equal(t, "HL|ED", hit.FundingCategories)
}

func TestGrantsGovClient_TransportError(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "upstream unavailable", http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	_, err := newTestGrantsGovClient(ts.URL).FetchPage(context.Background(), 0, 100)
	require.Error(t, err)

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusServiceUnavailable, te.StatusCode)
	assert.Contains(t, te.Body, "upstream unavailable")
	assert.Equal(t, 1, calls, "client must not retry")
}

func TestGrantsGovClient_NetworkFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := ts.URL
	ts.Close()

	_, err := newTestGrantsGovClient(url).FetchPage(context.Background(), 0, 100)
	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Zero(t, te.StatusCode)
}

func TestGrantsGovClient_SourceAPIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"errorcode": 7, "msg": "Invalid rows parameter", "data": {}}`)) //nolint:errcheck
	}))
	defer ts.Close()

	_, err := newTestGrantsGovClient(ts.URL).FetchPage(context.Background(), 0, 100)
	var se *SourceAPIError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 7, se.Code)
	assert.Equal(t, "Invalid rows parameter", se.Message)
}

func TestGrantsGovClient_RejectsBadArguments(t *testing.T) {
	c := newTestGrantsGovClient("http://127.0.0.1:1")

	_, err := c.FetchPage(context.Background(), -1, 100)
	assert.Error(t, err)

	_, err = c.FetchPage(context.Background(), 0, 0)
	assert.Error(t, err)
}
