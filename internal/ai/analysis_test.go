package ai

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/david/grantdesk/internal/models"
)

// stubCompleter returns a canned reply and records the last request.
type stubCompleter struct {
	reply string
	err   error
	last  Request
}

func (s *stubCompleter) Complete(_ context.Context, req Request) (string, error) {
	s.last = req
	if s.err != nil {
		return "", s.err
	}
	return req.Prefill + s.reply, nil
}

func sampleGrant() models.Grant {
	agency := "Department of Education"
	desc := "<p>Supports <b>after-school</b> programs.</p>"
	elig := "Public school districts and nonprofits."
	lo, hi := 50000.0, 1250000.0
	deadline := time.Date(2025, 9, 30, 0, 0, 0, 0, time.UTC)
	return models.Grant{
		Title:          "21st Century Community Learning Centers",
		Agency:         &agency,
		Description:    &desc,
		EligibilityRaw: &elig,
		AmountMin:      &lo,
		AmountMax:      &hi,
		Deadline:       &deadline,
		Category:       []string{"education"},
	}
}

func sampleOrg() models.Organization {
	mission := "Literacy for every child"
	return models.Organization{Name: "Read Ahead", Type: models.OrgTypeNonprofit, Mission: &mission, FocusAreas: []string{"education"}}
}

func TestSummarizeGrant(t *testing.T) {
	stub := &stubCompleter{reply: `"summary":"Funds after-school programs.","key_requirements":["LEA partner"],"ideal_applicant":"A district","tips":["Start early"]}`}

	got, err := SummarizeGrant(context.Background(), stub, sampleGrant())
	require.NoError(t, err)
	assert.Equal(t, "Funds after-school programs.", got.Summary)
	assert.Equal(t, []string{"LEA partner"}, got.KeyRequirements)
	assert.Equal(t, "{", stub.last.Prefill)
	assert.Contains(t, stub.last.Prompt, "Supports after-school programs.")
	assert.Contains(t, stub.last.Prompt, "$50,000 - $1,250,000")
	assert.Contains(t, stub.last.Prompt, "September 30, 2025")
}

func TestSummarizeGrant_TrailingTextIgnored(t *testing.T) {
	stub := &stubCompleter{reply: `"summary":"ok","key_requirements":[],"ideal_applicant":"","tips":[]}` + "\nHope this helps."}

	got, err := SummarizeGrant(context.Background(), stub, sampleGrant())
	require.NoError(t, err)
	assert.Equal(t, "ok", got.Summary)
}

func TestSummarizeGrant_BadJSON(t *testing.T) {
	stub := &stubCompleter{reply: `not json`}
	_, err := SummarizeGrant(context.Background(), stub, sampleGrant())
	assert.Error(t, err)
}

func TestExtractEligibility(t *testing.T) {
	stub := &stubCompleter{reply: `"org_types":["nonprofit"],"requirements":["501(c)(3)"],"disqualifiers":[],"preferred":[],"min_budget":100000,"geographic":null}`}

	got, err := ExtractEligibility(context.Background(), stub, sampleGrant())
	require.NoError(t, err)
	assert.Equal(t, []string{"nonprofit"}, got.OrgTypes)
	require.NotNil(t, got.MinBudget)
	assert.Equal(t, 100000.0, *got.MinBudget)
	assert.Nil(t, got.Geographic)
}

func TestScoreFit_Clamps(t *testing.T) {
	stub := &stubCompleter{reply: `"fit_score":140,"strengths":["mission"],"gaps":[],"recommendation":"Apply."}`}

	got, err := ScoreFit(context.Background(), stub, sampleOrg(), sampleGrant())
	require.NoError(t, err)
	assert.Equal(t, 100, got.FitScore)
	assert.Contains(t, stub.last.Prompt, "Read Ahead")
	assert.Contains(t, stub.last.Prompt, "Annual Budget: unspecified")
}

func TestDraftSection(t *testing.T) {
	stub := &stubCompleter{reply: "  Our community faces...\n"}
	section, ok := models.LookupSection("need")
	require.True(t, ok)

	got, err := DraftSection(context.Background(), stub, sampleOrg(), sampleGrant(), section, "old draft")
	require.NoError(t, err)
	assert.Equal(t, "Our community faces...", got)
	assert.Empty(t, stub.last.Prefill)
	assert.Contains(t, stub.last.Prompt, "Statement of Need")
	assert.Contains(t, stub.last.Prompt, "EXISTING DRAFT (improve this):\nold draft")
}

func TestDraftSection_Error(t *testing.T) {
	stub := &stubCompleter{err: errors.New("overloaded")}
	section, _ := models.LookupSection("narrative")

	_, err := DraftSection(context.Background(), stub, sampleOrg(), sampleGrant(), section, "")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "overloaded"))
}

func TestHTMLToText(t *testing.T) {
	assert.Equal(t, "Line one Line two item", HTMLToText("<p>Line one</p><p>Line two</p><ul><li>item</li></ul><script>x()</script>"))
	assert.Equal(t, "plain text here", HTMLToText("  plain   text\nhere "))
}

func TestMoney(t *testing.T) {
	v := 1234567.0
	assert.Equal(t, "$1,234,567", money(&v))
	small := 999.0
	assert.Equal(t, "$999", money(&small))
	assert.Equal(t, "unspecified", money(nil))
}
