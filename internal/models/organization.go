package models

import (
	"time"

	"github.com/google/uuid"
)

type OrgType string

const (
	OrgTypeNonprofit      OrgType = "nonprofit"
	OrgTypeSchoolDistrict OrgType = "school_district"
	OrgTypeMunicipality   OrgType = "municipality"
	OrgTypePublicHealth   OrgType = "public_health"
	OrgTypeOther          OrgType = "other"
)

func (t OrgType) Valid() bool {
	switch t {
	case OrgTypeNonprofit, OrgTypeSchoolDistrict, OrgTypeMunicipality, OrgTypePublicHealth, OrgTypeOther:
		return true
	}
	return false
}

// FocusAreas is the closed set of category tags shared by grants and
// organization profiles.
var FocusAreas = []string{
	"education",
	"health",
	"environment",
	"housing",
	"workforce",
	"infrastructure",
	"arts_culture",
	"public_safety",
	"food_agriculture",
	"technology",
}

func IsFocusArea(s string) bool {
	for _, f := range FocusAreas {
		if f == s {
			return true
		}
	}
	return false
}

type Organization struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	Name       string    `json:"name"`
	Type       OrgType   `json:"type"`
	Mission    *string   `json:"mission"`
	Location   *string   `json:"location"`
	Budget     *float64  `json:"annual_budget"`
	FocusAreas []string  `json:"focus_areas"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type GrantMatch struct {
	ID             uuid.UUID `json:"id"`
	OrgID          uuid.UUID `json:"org_id"`
	GrantID        uuid.UUID `json:"grant_id"`
	FitScore       int       `json:"fit_score"`
	Strengths      []string  `json:"strengths"`
	Gaps           []string  `json:"gaps"`
	Recommendation string    `json:"recommendation"`
	CreatedAt      time.Time `json:"created_at"`
}
