package service

import (
	"fmt"
	"strings"
	"time"

	"caseflow-data/internal/domain"
)

// ============================================
// Intake payload DTOs
// ============================================

// IntakePayload nested intake form submission.
type IntakePayload struct {
	Participant       ParticipantInput        `json:"participant"`
	CaseManagement    CaseManagementInput     `json:"case_management"`
	Demographics      DemographicsInput       `json:"demographics"`
	EmergencyContacts []EmergencyContactInput `json:"emergency_contacts"`
	HouseholdMembers  []HouseholdMemberInput  `json:"household_members"`
}

type ParticipantInput struct {
	FirstName         string `json:"first_name"`
	LastName          string `json:"last_name"`
	DateOfBirth       string `json:"date_of_birth"` // "2006-01-02", optional
	Email             string `json:"email"`
	Phone             string `json:"phone"`
	AddressStreet     string `json:"address_street"`
	AddressCity       string `json:"address_city"`
	AddressState      string `json:"address_state"`
	AddressPostalCode string `json:"address_postal_code"`
	Status            string `json:"status"`          // coerced, never rejected
	CaseManagerID     string `json:"case_manager_id"` // staff-only; dropped on the self-service path
}

type CaseManagementInput struct {
	HousingStatus     string `json:"housing_status"` // coerced, never rejected
	PreferredLanguage string `json:"preferred_language"`
	InterpreterNeeded bool   `json:"interpreter_needed"`
	HasInsurance      bool   `json:"has_insurance"`
	ReceivesBenefits  bool   `json:"receives_benefits"`
	AssessmentScore   *int   `json:"assessment_score"`
}

type DemographicsInput struct {
	Race             []string `json:"race"`
	Gender           string   `json:"gender"`
	Ethnicity        string   `json:"ethnicity"`
	MaritalStatus    string   `json:"marital_status"`
	EmploymentStatus string   `json:"employment_status"`
	MonthlyIncome    *float64 `json:"monthly_income"`
}

type EmergencyContactInput struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
}

type HouseholdMemberInput struct {
	FullName     string `json:"full_name"` // split into first/last at validation
	Relationship string `json:"relationship"`
	DateOfBirth  string `json:"date_of_birth"` // "2006-01-02", optional
}

// ValidatedIntake normalized, typed payload produced by ValidateIntake.
// Client/CaseManagement/Demographics carry no row ids yet.
type ValidatedIntake struct {
	Client            domain.Client
	CaseManagement    domain.CaseManagement
	Demographics      domain.Demographics
	EmergencyContacts []*domain.EmergencyContact
	HouseholdMembers  []*domain.HouseholdMember
}

// ============================================
// Validation
// ============================================

const dateLayout = "2006-01-02"

// ValidateIntake checks the payload against the intake schema and returns a
// normalized typed form. Pure: no repository access, no side effects. Any
// problem aborts the save before a single row is touched.
//
// Rules: first/last name required; at least one of email/phone required;
// dates must be YYYY-MM-DD; emergency contacts need name+phone; household
// members need a full name. Enum fields coerce to their defaults instead of
// failing.
func ValidateIntake(p IntakePayload) (*ValidatedIntake, error) {
	var problems []string

	firstName := strings.TrimSpace(p.Participant.FirstName)
	lastName := strings.TrimSpace(p.Participant.LastName)
	email := strings.ToLower(strings.TrimSpace(p.Participant.Email))
	phone := strings.TrimSpace(p.Participant.Phone)

	if firstName == "" {
		problems = append(problems, "participant.first_name is required")
	}
	if lastName == "" {
		problems = append(problems, "participant.last_name is required")
	}
	if email == "" && phone == "" {
		problems = append(problems, "participant needs at least one of email or phone")
	}
	if email != "" && !strings.Contains(email, "@") {
		problems = append(problems, "participant.email is not a valid address")
	}

	var dob *time.Time
	if s := strings.TrimSpace(p.Participant.DateOfBirth); s != "" {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			problems = append(problems, "participant.date_of_birth must be YYYY-MM-DD")
		} else {
			dob = &t
		}
	}

	contacts := make([]*domain.EmergencyContact, 0, len(p.EmergencyContacts))
	for i, in := range p.EmergencyContacts {
		name := strings.TrimSpace(in.Name)
		contactPhone := strings.TrimSpace(in.Phone)
		if name == "" {
			problems = append(problems, fmt.Sprintf("emergency_contacts[%d].name is required", i))
		}
		if contactPhone == "" {
			problems = append(problems, fmt.Sprintf("emergency_contacts[%d].phone is required", i))
		}
		contacts = append(contacts, &domain.EmergencyContact{
			Name:         name,
			Relationship: strings.TrimSpace(in.Relationship),
			Phone:        contactPhone,
			Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		})
	}

	members := make([]*domain.HouseholdMember, 0, len(p.HouseholdMembers))
	for i, in := range p.HouseholdMembers {
		full := strings.TrimSpace(in.FullName)
		if full == "" {
			problems = append(problems, fmt.Sprintf("household_members[%d].full_name is required", i))
			continue
		}
		memberFirst, memberLast := splitFullName(full)

		var memberDOB *time.Time
		if s := strings.TrimSpace(in.DateOfBirth); s != "" {
			t, err := time.Parse(dateLayout, s)
			if err != nil {
				problems = append(problems, fmt.Sprintf("household_members[%d].date_of_birth must be YYYY-MM-DD", i))
			} else {
				memberDOB = &t
			}
		}
		members = append(members, &domain.HouseholdMember{
			FirstName:    memberFirst,
			LastName:     memberLast,
			Relationship: strings.TrimSpace(in.Relationship),
			DateOfBirth:  memberDOB,
		})
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrValidation, strings.Join(problems, "; "))
	}

	out := &ValidatedIntake{
		Client: domain.Client{
			FirstName:         firstName,
			LastName:          lastName,
			DateOfBirth:       dob,
			Email:             email,
			Phone:             phone,
			AddressStreet:     strings.TrimSpace(p.Participant.AddressStreet),
			AddressCity:       strings.TrimSpace(p.Participant.AddressCity),
			AddressState:      strings.TrimSpace(p.Participant.AddressState),
			AddressPostalCode: strings.TrimSpace(p.Participant.AddressPostalCode),
			Status:            domain.NormalizeClientStatus(p.Participant.Status),
		},
		CaseManagement: domain.CaseManagement{
			HousingStatus:     domain.NormalizeHousingStatus(p.CaseManagement.HousingStatus),
			PreferredLanguage: strings.TrimSpace(p.CaseManagement.PreferredLanguage),
			InterpreterNeeded: p.CaseManagement.InterpreterNeeded,
			HasInsurance:      p.CaseManagement.HasInsurance,
			ReceivesBenefits:  p.CaseManagement.ReceivesBenefits,
			AssessmentScore:   p.CaseManagement.AssessmentScore,
		},
		Demographics: domain.Demographics{
			Race:             normalizeList(p.Demographics.Race),
			Gender:           strings.TrimSpace(p.Demographics.Gender),
			Ethnicity:        strings.TrimSpace(p.Demographics.Ethnicity),
			MaritalStatus:    strings.TrimSpace(p.Demographics.MaritalStatus),
			EmploymentStatus: strings.TrimSpace(p.Demographics.EmploymentStatus),
			MonthlyIncome:    p.Demographics.MonthlyIncome,
		},
		EmergencyContacts: contacts,
		HouseholdMembers:  members,
	}
	if cm := strings.TrimSpace(p.Participant.CaseManagerID); cm != "" {
		out.Client.CaseManagerID = &cm
	}
	return out, nil
}

// splitFullName first word becomes the first name, the rest the last name.
func splitFullName(full string) (string, string) {
	parts := strings.Fields(full)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
