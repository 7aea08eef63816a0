package ai

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/david/grantdesk/internal/models"
)

type GrantSummary struct {
	Summary         string   `json:"summary"`
	KeyRequirements []string `json:"key_requirements"`
	IdealApplicant  string   `json:"ideal_applicant"`
	Tips            []string `json:"tips"`
}

type Eligibility struct {
	OrgTypes      []string `json:"org_types"`
	Requirements  []string `json:"requirements"`
	Disqualifiers []string `json:"disqualifiers"`
	Preferred     []string `json:"preferred"`
	MinBudget     *float64 `json:"min_budget"`
	Geographic    *string  `json:"geographic"`
}

type FitScore struct {
	FitScore       int      `json:"fit_score"`
	Strengths      []string `json:"strengths"`
	Gaps           []string `json:"gaps"`
	Recommendation string   `json:"recommendation"`
}

func SummarizeGrant(ctx context.Context, c Completer, g models.Grant) (*GrantSummary, error) {
	p := GrantSummaryPrompt(g)
	var out GrantSummary
	if err := CompleteJSON(ctx, c, p.System, p.User, &out); err != nil {
		return nil, eris.Wrap(err, "ai: summarize grant")
	}
	if strings.TrimSpace(out.Summary) == "" {
		return nil, eris.New("ai: summary missing from reply")
	}
	return &out, nil
}

func ExtractEligibility(ctx context.Context, c Completer, g models.Grant) (*Eligibility, error) {
	p := EligibilityPrompt(g)
	var out Eligibility
	if err := CompleteJSON(ctx, c, p.System, p.User, &out); err != nil {
		return nil, eris.Wrap(err, "ai: extract eligibility")
	}
	return &out, nil
}

// ScoreFit rates org against g. Scores outside 0..100 are clamped.
func ScoreFit(ctx context.Context, c Completer, org models.Organization, g models.Grant) (*FitScore, error) {
	p := FitScorePrompt(org, g)
	var out FitScore
	if err := CompleteJSON(ctx, c, p.System, p.User, &out); err != nil {
		return nil, eris.Wrap(err, "ai: score fit")
	}
	if out.FitScore < 0 {
		out.FitScore = 0
	}
	if out.FitScore > 100 {
		out.FitScore = 100
	}
	return &out, nil
}

// DraftSection writes plain-text content for one proposal section.
func DraftSection(ctx context.Context, c Completer, org models.Organization, g models.Grant, section models.ProposalSection, existing string) (string, error) {
	p := SectionPrompt(org, g, section, existing)
	text, err := c.Complete(ctx, Request{System: p.System, Prompt: p.User})
	if err != nil {
		return "", eris.Wrapf(err, "ai: draft section %s", section.Key)
	}
	return strings.TrimSpace(text), nil
}
