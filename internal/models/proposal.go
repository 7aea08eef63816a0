package models

import (
	"time"

	"github.com/google/uuid"
)

type ProposalStatus string

const (
	ProposalStatusDraft     ProposalStatus = "draft"
	ProposalStatusReview    ProposalStatus = "review"
	ProposalStatusSubmitted ProposalStatus = "submitted"
)

func (s ProposalStatus) Valid() bool {
	switch s {
	case ProposalStatusDraft, ProposalStatusReview, ProposalStatusSubmitted:
		return true
	}
	return false
}

// ProposalSection describes one standard section of a grant narrative.
type ProposalSection struct {
	Key   string `json:"key"`
	Title string `json:"title"`
	Hint  string `json:"hint"`
}

// ProposalSections are created empty on every new proposal, in this order.
var ProposalSections = []ProposalSection{
	{Key: "narrative", Title: "Project Narrative", Hint: "Describe the project, its goals, and how it addresses the grant's priorities. Include the problem statement, proposed approach, and expected outcomes."},
	{Key: "need", Title: "Statement of Need", Hint: "Describe the community need or problem the project addresses. Use data and evidence to support the urgency."},
	{Key: "approach", Title: "Approach & Methods", Hint: "Detail the specific activities, timeline, and methods used to achieve project goals."},
	{Key: "capacity", Title: "Organizational Capacity", Hint: "Demonstrate the organization's ability to execute this project, including relevant experience, staff qualifications, and partnerships."},
	{Key: "budget_justification", Title: "Budget Justification", Hint: "Explain how the requested funds will be used and why each budget item is necessary for project success."},
	{Key: "evaluation", Title: "Evaluation Plan", Hint: "Describe how project success will be measured, including metrics, data collection methods, and reporting."},
}

func LookupSection(key string) (ProposalSection, bool) {
	for _, s := range ProposalSections {
		if s.Key == key {
			return s, true
		}
	}
	return ProposalSection{}, false
}

// EmptySections returns the section map for a new draft.
func EmptySections() map[string]string {
	out := make(map[string]string, len(ProposalSections))
	for _, s := range ProposalSections {
		out[s.Key] = ""
	}
	return out
}

type Proposal struct {
	ID        uuid.UUID         `json:"id"`
	OrgID     uuid.UUID         `json:"org_id"`
	GrantID   uuid.UUID         `json:"grant_id"`
	Status    ProposalStatus    `json:"status"`
	Sections  map[string]string `json:"sections"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// ProposalListItem is a proposal joined with its grant title for listings.
type ProposalListItem struct {
	ID         uuid.UUID      `json:"id"`
	GrantID    uuid.UUID      `json:"grant_id"`
	GrantTitle string         `json:"grant_title"`
	Status     ProposalStatus `json:"status"`
	UpdatedAt  time.Time      `json:"updated_at"`
}
