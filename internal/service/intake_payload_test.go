package service

import (
	"testing"

	"caseflow-data/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPayload() IntakePayload {
	return IntakePayload{
		Participant: ParticipantInput{
			FirstName: "Maria",
			LastName:  "Lopez",
			Email:     "Maria.Lopez@Example.COM",
			Phone:     "555-0101",
		},
	}
}

func TestValidateIntake_RequiresNames(t *testing.T) {
	p := validPayload()
	p.Participant.FirstName = "  "
	p.Participant.LastName = ""

	_, err := ValidateIntake(p)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "first_name")
	assert.Contains(t, err.Error(), "last_name")
}

func TestValidateIntake_RequiresEmailOrPhone(t *testing.T) {
	p := validPayload()
	p.Participant.Email = ""
	p.Participant.Phone = ""

	_, err := ValidateIntake(p)

	assert.ErrorIs(t, err, ErrValidation)
}

func TestValidateIntake_RejectsBadDate(t *testing.T) {
	p := validPayload()
	p.Participant.DateOfBirth = "04/12/1990"

	_, err := ValidateIntake(p)

	assert.ErrorIs(t, err, ErrValidation)
}

func TestValidateIntake_NormalizesEmail(t *testing.T) {
	v, err := ValidateIntake(validPayload())

	require.NoError(t, err)
	assert.Equal(t, "maria.lopez@example.com", v.Client.Email)
}

func TestValidateIntake_CoercesUnknownEnums(t *testing.T) {
	p := validPayload()
	p.Participant.Status = "definitely-not-a-status"
	p.CaseManagement.HousingStatus = "under a bridge"

	v, err := ValidateIntake(p)

	require.NoError(t, err)
	assert.Equal(t, domain.ClientStatusPending, v.Client.Status)
	assert.Equal(t, domain.HousingStatusUnknown, v.CaseManagement.HousingStatus)
}

func TestValidateIntake_KeepsValidEnums(t *testing.T) {
	p := validPayload()
	p.Participant.Status = "Active"
	p.CaseManagement.HousingStatus = "at_risk"

	v, err := ValidateIntake(p)

	require.NoError(t, err)
	assert.Equal(t, domain.ClientStatusActive, v.Client.Status)
	assert.Equal(t, domain.HousingStatusAtRisk, v.CaseManagement.HousingStatus)
}

func TestValidateIntake_SplitsHouseholdMemberName(t *testing.T) {
	p := validPayload()
	p.HouseholdMembers = []HouseholdMemberInput{
		{FullName: "Juan Carlos Lopez", Relationship: "son"},
		{FullName: "Ana", Relationship: "daughter"},
	}

	v, err := ValidateIntake(p)

	require.NoError(t, err)
	require.Len(t, v.HouseholdMembers, 2)
	assert.Equal(t, "Juan", v.HouseholdMembers[0].FirstName)
	assert.Equal(t, "Carlos Lopez", v.HouseholdMembers[0].LastName)
	assert.Equal(t, "Ana", v.HouseholdMembers[1].FirstName)
	assert.Equal(t, "", v.HouseholdMembers[1].LastName)
}

func TestValidateIntake_EmergencyContactNeedsNameAndPhone(t *testing.T) {
	p := validPayload()
	p.EmergencyContacts = []EmergencyContactInput{
		{Name: "Rosa Lopez", Phone: ""},
	}

	_, err := ValidateIntake(p)

	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "emergency_contacts[0].phone")
}
