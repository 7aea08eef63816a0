package ai

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/david/grantdesk/internal/models"
)

// Prompt is a system and user message pair.
type Prompt struct {
	System string
	User   string
}

func money(v *float64) string {
	if v == nil {
		return "unspecified"
	}
	whole := strconv.FormatFloat(*v, 'f', 0, 64)
	// thousands separators
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 && whole[i-1] != '-' {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return "$" + b.String()
}

func fundingRange(g models.Grant) string {
	return money(g.AmountMin) + " - " + money(g.AmountMax)
}

func orNA(s *string) string {
	if s == nil || *s == "" {
		return "Not provided"
	}
	return *s
}

func dateOrNA(t *time.Time) string {
	if t == nil {
		return "Not provided"
	}
	return t.Format("January 2, 2006")
}

func joinOrNA(list []string) string {
	if len(list) == 0 {
		return "None listed"
	}
	return strings.Join(list, ", ")
}

func orgBlock(o models.Organization) string {
	return fmt.Sprintf(`- Name: %s
- Type: %s
- Mission: %s
- Location: %s
- Annual Budget: %s
- Focus Areas: %s`, o.Name, o.Type, orNA(o.Mission), orNA(o.Location), money(o.Budget), joinOrNA(o.FocusAreas))
}

func GrantSummaryPrompt(g models.Grant) Prompt {
	return Prompt{
		System: "You are a grant analyst helping nonprofits and public agencies understand funding opportunities. Summarize grants in clear, plain English. Be concise and actionable.",
		User: fmt.Sprintf(`Summarize this grant opportunity in plain English. Focus on what the grant funds, who it is for, and what makes a strong applicant.

GRANT TITLE: %s
AGENCY: %s
FUNDING: %s
DEADLINE: %s

DESCRIPTION:
%s

ELIGIBILITY:
%s

Respond with a single JSON object in this exact format:
{
  "summary": "2-3 sentence plain English summary",
  "key_requirements": ["requirement 1", "requirement 2"],
  "ideal_applicant": "1 sentence describing the ideal applicant",
  "tips": ["tip 1", "tip 2"]
}`, g.Title, orNA(g.Agency), fundingRange(g), dateOrNA(g.Deadline), promptText(g.Description), promptText(g.EligibilityRaw)),
	}
}

func EligibilityPrompt(g models.Grant) Prompt {
	return Prompt{
		System: "You are a grant eligibility specialist. Extract and structure eligibility criteria from grant descriptions. Be precise and thorough.",
		User: fmt.Sprintf(`Extract the structured eligibility criteria from this grant.

GRANT: %s
AGENCY: %s

ELIGIBILITY TEXT:
%s

Respond with a single JSON object in this exact format:
{
  "org_types": ["eligible organization types"],
  "requirements": ["specific requirement"],
  "disqualifiers": ["what would disqualify an applicant"],
  "preferred": ["preferred but not required qualifications"],
  "min_budget": null,
  "geographic": null
}
Use a number for min_budget and a string for geographic when the text states them.`, g.Title, orNA(g.Agency), promptText(g.EligibilityRaw)),
	}
}

func FitScorePrompt(o models.Organization, g models.Grant) Prompt {
	return Prompt{
		System: "You are a grant matching specialist. Score how well an organization fits a grant opportunity. Be honest and specific about both strengths and gaps.",
		User: fmt.Sprintf(`Score how well this organization matches this grant opportunity.

ORGANIZATION:
%s

GRANT:
- Title: %s
- Agency: %s
- Funding: %s
- Categories: %s

ELIGIBILITY:
%s

Respond with a single JSON object in this exact format:
{
  "fit_score": 0,
  "strengths": ["why this org is a good fit"],
  "gaps": ["potential concerns or missing qualifications"],
  "recommendation": "1-2 sentence recommendation on whether to apply"
}
fit_score is an integer from 0 to 100.`, orgBlock(o), g.Title, orNA(g.Agency), fundingRange(g), joinOrNA(g.Category), promptText(g.EligibilityRaw)),
	}
}

func SectionPrompt(o models.Organization, g models.Grant, section models.ProposalSection, existing string) Prompt {
	var draft string
	if strings.TrimSpace(existing) != "" {
		draft = "\nEXISTING DRAFT (improve this):\n" + TruncateText(existing, maxPromptField) + "\n"
	}
	return Prompt{
		System: "You are an expert grant writer who helps nonprofits and public agencies write winning proposals. Write in a professional but accessible style. Be specific, use data when available, and align the proposal with the grant's priorities.",
		User: fmt.Sprintf(`Write the "%s" section of a grant proposal.

ORGANIZATION:
%s

GRANT:
- Title: %s
- Agency: %s
- Funding: %s
- Description: %s
- Eligibility: %s

SECTION TO WRITE: %s
SECTION DESCRIPTION: %s
%s
Write 2-4 paragraphs for this section. Be specific to both the organization and the grant requirements. Return plain text only.`,
			section.Title, orgBlock(o), g.Title, orNA(g.Agency), fundingRange(g),
			promptText(g.Description), promptText(g.EligibilityRaw), section.Title, section.Hint, draft),
	}
}
