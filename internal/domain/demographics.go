package domain

import "time"

// Demographics one-to-one satellite of Client (demographics table).
// Same lazy-create-then-update lifecycle as CaseManagement.
type Demographics struct {
	DemographicsID string `db:"demographics_id"` // UUID, PRIMARY KEY
	ClientID       string `db:"client_id"`       // UUID, NOT NULL, UNIQUE

	Race             []string `db:"race"` // TEXT[], multi-value
	Gender           string   `db:"gender"`
	Ethnicity        string   `db:"ethnicity"`
	MaritalStatus    string   `db:"marital_status"`
	EmploymentStatus string   `db:"employment_status"`
	MonthlyIncome    *float64 `db:"monthly_income"` // NUMERIC, nullable

	UpdatedAt time.Time `db:"updated_at"`
}

func (d *Demographics) Fields() map[string]any {
	m := map[string]any{
		"race":              append([]string(nil), d.Race...),
		"gender":            d.Gender,
		"ethnicity":         d.Ethnicity,
		"marital_status":    d.MaritalStatus,
		"employment_status": d.EmploymentStatus,
	}
	if d.MonthlyIncome != nil {
		m["monthly_income"] = *d.MonthlyIncome
	} else {
		m["monthly_income"] = nil
	}
	return m
}
