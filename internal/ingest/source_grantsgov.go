package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// maxErrorBody caps how much of a failed response body is kept on a TransportError.
const maxErrorBody = 2048

// GrantsGovClient fetches pages of listings from the Grants.gov search2 API.
// It performs exactly one request per call and never retries.
type GrantsGovClient struct {
	HTTP        *http.Client
	BaseURL     string
	OppStatuses string
	Limiter     *rate.Limiter
}

// NewGrantsGovClient builds a client from a registry entry. A nil hc gets a
// client with the source's configured timeout.
func NewGrantsGovClient(src SourceConfig, hc *http.Client) *GrantsGovClient {
	if hc == nil {
		hc = &http.Client{Timeout: time.Duration(src.Fetch.TimeoutSeconds) * time.Second}
	}
	var limiter *rate.Limiter
	if src.Fetch.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(src.Fetch.RateLimitRPS), 1)
	}
	return &GrantsGovClient{
		HTTP:        hc,
		BaseURL:     src.BaseURL,
		OppStatuses: src.OppStatuses,
		Limiter:     limiter,
	}
}

// GrantsGovSearchRequest matches the Grants.gov search2 API schema.
type GrantsGovSearchRequest struct {
	OppStatuses    string `json:"oppStatuses"`
	StartRecordNum int    `json:"startRecordNum"`
	Rows           int    `json:"rows"`
}

// GrantsGovResponse represents the search2 API response (wrapped in "data").
type GrantsGovResponse struct {
	ErrorCode int    `json:"errorcode"`
	Msg       string `json:"msg"`
	Data      struct {
		HitCount    int   `json:"hitCount"`
		StartRecord int   `json:"startRecord"`
		OppHits     []Hit `json:"oppHits"`
	} `json:"data"`
}

// Hit is a single listing as returned by the search API.
type Hit struct {
	ID                string   `json:"id"`
	Number            string   `json:"number"`
	Title             string   `json:"title"`
	AgencyName        string   `json:"agencyName"`
	Agency            string   `json:"agency"`
	AgencyCode        string   `json:"agencyCode"`
	OpenDate          string   `json:"openDate"`
	CloseDate         string   `json:"closeDate"`
	OppStatus         string   `json:"oppStatus"`
	DocType           string   `json:"docType"`
	ALNList           []string `json:"alnList"`
	FundingCategories string   `json:"fundingCategories"`
}

// Page is one page of hits plus the source's reported total.
type Page struct {
	Hits           []Hit
	TotalAvailable int
}

// FetchPage requests up to pageSize listings starting at offset.
func (c *GrantsGovClient) FetchPage(ctx context.Context, offset, pageSize int) (*Page, error) {
	if offset < 0 {
		return nil, eris.Errorf("grantsgov: negative offset %d", offset)
	}
	if pageSize <= 0 {
		return nil, eris.Errorf("grantsgov: page size must be positive, got %d", pageSize)
	}

	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "grantsgov: rate limit wait")
		}
	}

	body, err := json.Marshal(GrantsGovSearchRequest{
		OppStatuses:    c.OppStatuses,
		StartRecordNum: offset,
		Rows:           pageSize,
	})
	if err != nil {
		return nil, eris.Wrap(err, "grantsgov: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "grantsgov: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")

	zap.L().Debug("grantsgov: fetching page", zap.Int("offset", offset), zap.Int("rows", pageSize))

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &TransportError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(raw)),
		}
	}

	var apiResp GrantsGovResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, eris.Wrap(err, "grantsgov: decode response")
	}
	if apiResp.ErrorCode != 0 {
		return nil, &SourceAPIError{Code: apiResp.ErrorCode, Message: apiResp.Msg}
	}

	zap.L().Debug("grantsgov: page received",
		zap.Int("offset", offset),
		zap.Int("hits", len(apiResp.Data.OppHits)),
		zap.Int("hit_count", apiResp.Data.HitCount),
	)

	return &Page{Hits: apiResp.Data.OppHits, TotalAvailable: apiResp.Data.HitCount}, nil
}
