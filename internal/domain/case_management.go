package domain

import (
	"strings"
	"time"
)

// Housing statuses (case_management.housing_status). Anything else coerces to
// HousingStatusUnknown.
const (
	HousingStatusHoused       = "housed"
	HousingStatusUnhoused     = "unhoused"
	HousingStatusAtRisk       = "at_risk"
	HousingStatusTransitional = "transitional"
	HousingStatusUnknown      = "unknown"
)

func NormalizeHousingStatus(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case HousingStatusHoused:
		return HousingStatusHoused
	case HousingStatusUnhoused:
		return HousingStatusUnhoused
	case HousingStatusAtRisk:
		return HousingStatusAtRisk
	case HousingStatusTransitional:
		return HousingStatusTransitional
	default:
		return HousingStatusUnknown
	}
}

// CaseManagement one-to-one satellite of Client (case_management table).
// Created lazily on first intake save, updated in place thereafter.
type CaseManagement struct {
	CaseID   string `db:"case_id"`   // UUID, PRIMARY KEY
	ClientID string `db:"client_id"` // UUID, NOT NULL, UNIQUE

	HousingStatus     string `db:"housing_status"`     // VARCHAR(20), NOT NULL, DEFAULT 'unknown'
	PreferredLanguage string `db:"preferred_language"` // VARCHAR(50)
	InterpreterNeeded bool   `db:"interpreter_needed"`
	HasInsurance      bool   `db:"has_insurance"`
	ReceivesBenefits  bool   `db:"receives_benefits"`
	AssessmentScore   *int   `db:"assessment_score"` // INT, nullable

	UpdatedAt time.Time `db:"updated_at"`
}

func (c *CaseManagement) Fields() map[string]any {
	m := map[string]any{
		"housing_status":     c.HousingStatus,
		"preferred_language": c.PreferredLanguage,
		"interpreter_needed": c.InterpreterNeeded,
		"has_insurance":      c.HasInsurance,
		"receives_benefits":  c.ReceivesBenefits,
	}
	if c.AssessmentScore != nil {
		m["assessment_score"] = *c.AssessmentScore
	} else {
		m["assessment_score"] = nil
	}
	return m
}
