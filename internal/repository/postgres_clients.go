package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"caseflow-data/internal/domain"

	"github.com/lib/pq"
)

// PostgresClientsRepository ClientsRepository backed by PostgreSQL.
type PostgresClientsRepository struct {
	db *sql.DB
}

// NewPostgresClientsRepository creates the clients repository.
func NewPostgresClientsRepository(db *sql.DB) *PostgresClientsRepository {
	return &PostgresClientsRepository{db: db}
}

var _ ClientsRepository = (*PostgresClientsRepository)(nil)

// ============================================
// clients
// ============================================

const clientColumns = `
	client_id::text,
	first_name,
	last_name,
	date_of_birth,
	COALESCE(email, '') AS email,
	COALESCE(phone, '') AS phone,
	COALESCE(address_street, '') AS address_street,
	COALESCE(address_city, '') AS address_city,
	COALESCE(address_state, '') AS address_state,
	COALESCE(address_postal_code, '') AS address_postal_code,
	status,
	portal_profile_id::text,
	case_manager_id::text,
	intake_completed_at,
	created_by::text,
	created_at,
	updated_at`

func scanClient(row interface{ Scan(...any) error }) (*domain.Client, error) {
	var c domain.Client
	var dob, completedAt sql.NullTime
	var portalProfileID, caseManagerID sql.NullString

	err := row.Scan(
		&c.ClientID,
		&c.FirstName,
		&c.LastName,
		&dob,
		&c.Email,
		&c.Phone,
		&c.AddressStreet,
		&c.AddressCity,
		&c.AddressState,
		&c.AddressPostalCode,
		&c.Status,
		&portalProfileID,
		&caseManagerID,
		&completedAt,
		&c.CreatedBy,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if dob.Valid {
		c.DateOfBirth = &dob.Time
	}
	if completedAt.Valid {
		c.IntakeCompletedAt = &completedAt.Time
	}
	if portalProfileID.Valid {
		c.PortalProfileID = &portalProfileID.String
	}
	if caseManagerID.Valid {
		c.CaseManagerID = &caseManagerID.String
	}
	return &c, nil
}

func (r *PostgresClientsRepository) GetClient(ctx context.Context, clientID string) (*domain.Client, error) {
	if clientID == "" {
		return nil, fmt.Errorf("client_id is required")
	}

	query := `SELECT ` + clientColumns + ` FROM clients WHERE client_id = $1`
	c, err := scanClient(r.db.QueryRowContext(ctx, query, clientID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("client %s: %w", clientID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return c, nil
}

func (r *PostgresClientsRepository) ListClients(ctx context.Context, filters ClientFilters, limit int) ([]*domain.Client, error) {
	if limit <= 0 {
		limit = 20
	}

	where := []string{"TRUE"}
	args := []any{}
	argIdx := 1

	if filters.Status != "" {
		where = append(where, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, filters.Status)
		argIdx++
	}
	if filters.Cursor != nil {
		where = append(where, fmt.Sprintf("created_at < $%d", argIdx))
		args = append(args, *filters.Cursor)
		argIdx++
	}
	if filters.Search != "" {
		where = append(where, fmt.Sprintf("(first_name ILIKE $%d OR last_name ILIKE $%d OR email ILIKE $%d)", argIdx, argIdx, argIdx))
		args = append(args, "%"+filters.Search+"%")
		argIdx++
	}

	query := `SELECT ` + clientColumns + `
		FROM clients
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_at DESC, client_id DESC
		LIMIT $` + fmt.Sprintf("%d", argIdx)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	out := []*domain.Client{}
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresClientsRepository) CreateClient(ctx context.Context, client *domain.Client) (string, error) {
	if client == nil {
		return "", fmt.Errorf("client is required")
	}

	var clientID string
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO clients (
			first_name, last_name, date_of_birth, email, phone,
			address_street, address_city, address_state, address_postal_code,
			status, portal_profile_id, case_manager_id, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING client_id::text`,
		client.FirstName,
		client.LastName,
		nullTime(client.DateOfBirth),
		nullEmpty(client.Email),
		nullEmpty(client.Phone),
		nullEmpty(client.AddressStreet),
		nullEmpty(client.AddressCity),
		nullEmpty(client.AddressState),
		nullEmpty(client.AddressPostalCode),
		client.Status,
		nullStringPtr(client.PortalProfileID),
		nullStringPtr(client.CaseManagerID),
		client.CreatedBy,
	).Scan(&clientID)
	if err != nil {
		return "", fmt.Errorf("failed to create client: %w", err)
	}
	return clientID, nil
}

// clientUpdatableColumns columns UpdateClient will accept. The service layer
// narrows this further on the self-service path.
var clientUpdatableColumns = map[string]bool{
	"first_name":          true,
	"last_name":           true,
	"date_of_birth":       true,
	"email":               true,
	"phone":               true,
	"address_street":      true,
	"address_city":        true,
	"address_state":       true,
	"address_postal_code": true,
	"status":              true,
	"case_manager_id":     true,
	"portal_profile_id":   true,
}

func (r *PostgresClientsRepository) UpdateClient(ctx context.Context, clientID string, fields map[string]any) error {
	if clientID == "" {
		return fmt.Errorf("client_id is required")
	}
	if len(fields) == 0 {
		return nil
	}

	set := []string{"updated_at = CURRENT_TIMESTAMP"}
	args := []any{clientID}
	argIdx := 2
	for col, val := range fields {
		if !clientUpdatableColumns[col] {
			continue
		}
		if s, ok := val.(string); ok && s == "" && (col == "date_of_birth" || col == "case_manager_id" || col == "portal_profile_id") {
			set = append(set, col+" = NULL")
			continue
		}
		set = append(set, fmt.Sprintf("%s = $%d", col, argIdx))
		args = append(args, val)
		argIdx++
	}

	q := "UPDATE clients SET " + strings.Join(set, ", ") + " WHERE client_id = $1"
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("failed to update client: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("client %s: %w", clientID, ErrNotFound)
	}
	return nil
}

func (r *PostgresClientsRepository) SetIntakeCompleted(ctx context.Context, clientID string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE clients
		 SET intake_completed_at = $2, updated_at = CURRENT_TIMESTAMP
		 WHERE client_id = $1 AND intake_completed_at IS NULL`,
		clientID, at,
	)
	if err != nil {
		return false, fmt.Errorf("failed to stamp intake completion: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *PostgresClientsRepository) DeleteClient(ctx context.Context, clientID string) error {
	if clientID == "" {
		return fmt.Errorf("client_id is required")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete: %w", err)
	}
	defer tx.Rollback()

	// Satellites first, client last. Audit rows are intentionally retained.
	for _, q := range []string{
		`DELETE FROM emergency_contacts WHERE client_id = $1`,
		`DELETE FROM household_members WHERE client_id = $1`,
		`DELETE FROM demographics WHERE client_id = $1`,
		`DELETE FROM case_management WHERE client_id = $1`,
	} {
		if _, err := tx.ExecContext(ctx, q, clientID); err != nil {
			return fmt.Errorf("failed to delete satellite rows: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM clients WHERE client_id = $1`, clientID)
	if err != nil {
		return fmt.Errorf("failed to delete client: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("client %s: %w", clientID, ErrNotFound)
	}

	return tx.Commit()
}

// ============================================
// case_management
// ============================================

func (r *PostgresClientsRepository) GetCaseManagement(ctx context.Context, clientID string) (*domain.CaseManagement, error) {
	if clientID == "" {
		return nil, fmt.Errorf("client_id is required")
	}

	var cm domain.CaseManagement
	var score sql.NullInt64
	err := r.db.QueryRowContext(ctx, `
		SELECT
			case_id::text,
			client_id::text,
			housing_status,
			COALESCE(preferred_language, '') AS preferred_language,
			interpreter_needed,
			has_insurance,
			receives_benefits,
			assessment_score,
			updated_at
		FROM case_management
		WHERE client_id = $1`,
		clientID,
	).Scan(
		&cm.CaseID,
		&cm.ClientID,
		&cm.HousingStatus,
		&cm.PreferredLanguage,
		&cm.InterpreterNeeded,
		&cm.HasInsurance,
		&cm.ReceivesBenefits,
		&score,
		&cm.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // lazy-created; absence is not an error
		}
		return nil, fmt.Errorf("failed to get case management: %w", err)
	}
	if score.Valid {
		v := int(score.Int64)
		cm.AssessmentScore = &v
	}
	return &cm, nil
}

func (r *PostgresClientsRepository) CreateCaseManagement(ctx context.Context, cm *domain.CaseManagement) (string, error) {
	if cm == nil || cm.ClientID == "" {
		return "", fmt.Errorf("client_id is required")
	}

	var caseID string
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO case_management (
			client_id, housing_status, preferred_language,
			interpreter_needed, has_insurance, receives_benefits, assessment_score
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING case_id::text`,
		cm.ClientID,
		cm.HousingStatus,
		nullEmpty(cm.PreferredLanguage),
		cm.InterpreterNeeded,
		cm.HasInsurance,
		cm.ReceivesBenefits,
		nullIntPtr(cm.AssessmentScore),
	).Scan(&caseID)
	if err != nil {
		return "", fmt.Errorf("failed to create case management: %w", err)
	}
	return caseID, nil
}

func (r *PostgresClientsRepository) UpdateCaseManagement(ctx context.Context, clientID string, cm *domain.CaseManagement) error {
	if clientID == "" || cm == nil {
		return fmt.Errorf("client_id and case management are required")
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE case_management
		SET housing_status = $2,
		    preferred_language = $3,
		    interpreter_needed = $4,
		    has_insurance = $5,
		    receives_benefits = $6,
		    assessment_score = $7,
		    updated_at = CURRENT_TIMESTAMP
		WHERE client_id = $1`,
		clientID,
		cm.HousingStatus,
		nullEmpty(cm.PreferredLanguage),
		cm.InterpreterNeeded,
		cm.HasInsurance,
		cm.ReceivesBenefits,
		nullIntPtr(cm.AssessmentScore),
	)
	if err != nil {
		return fmt.Errorf("failed to update case management: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("case management for client %s: %w", clientID, ErrNotFound)
	}
	return nil
}

// ============================================
// demographics
// ============================================

func (r *PostgresClientsRepository) GetDemographics(ctx context.Context, clientID string) (*domain.Demographics, error) {
	if clientID == "" {
		return nil, fmt.Errorf("client_id is required")
	}

	var d domain.Demographics
	var race pq.StringArray
	var income sql.NullFloat64
	err := r.db.QueryRowContext(ctx, `
		SELECT
			demographics_id::text,
			client_id::text,
			COALESCE(race, '{}'::text[]),
			COALESCE(gender, '') AS gender,
			COALESCE(ethnicity, '') AS ethnicity,
			COALESCE(marital_status, '') AS marital_status,
			COALESCE(employment_status, '') AS employment_status,
			monthly_income,
			updated_at
		FROM demographics
		WHERE client_id = $1`,
		clientID,
	).Scan(
		&d.DemographicsID,
		&d.ClientID,
		&race,
		&d.Gender,
		&d.Ethnicity,
		&d.MaritalStatus,
		&d.EmploymentStatus,
		&income,
		&d.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get demographics: %w", err)
	}
	d.Race = []string(race)
	if income.Valid {
		d.MonthlyIncome = &income.Float64
	}
	return &d, nil
}

func (r *PostgresClientsRepository) CreateDemographics(ctx context.Context, d *domain.Demographics) (string, error) {
	if d == nil || d.ClientID == "" {
		return "", fmt.Errorf("client_id is required")
	}

	var demographicsID string
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO demographics (
			client_id, race, gender, ethnicity,
			marital_status, employment_status, monthly_income
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING demographics_id::text`,
		d.ClientID,
		pq.Array(d.Race),
		nullEmpty(d.Gender),
		nullEmpty(d.Ethnicity),
		nullEmpty(d.MaritalStatus),
		nullEmpty(d.EmploymentStatus),
		nullFloatPtr(d.MonthlyIncome),
	).Scan(&demographicsID)
	if err != nil {
		return "", fmt.Errorf("failed to create demographics: %w", err)
	}
	return demographicsID, nil
}

func (r *PostgresClientsRepository) UpdateDemographics(ctx context.Context, clientID string, d *domain.Demographics) error {
	if clientID == "" || d == nil {
		return fmt.Errorf("client_id and demographics are required")
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE demographics
		SET race = $2,
		    gender = $3,
		    ethnicity = $4,
		    marital_status = $5,
		    employment_status = $6,
		    monthly_income = $7,
		    updated_at = CURRENT_TIMESTAMP
		WHERE client_id = $1`,
		clientID,
		pq.Array(d.Race),
		nullEmpty(d.Gender),
		nullEmpty(d.Ethnicity),
		nullEmpty(d.MaritalStatus),
		nullEmpty(d.EmploymentStatus),
		nullFloatPtr(d.MonthlyIncome),
	)
	if err != nil {
		return fmt.Errorf("failed to update demographics: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("demographics for client %s: %w", clientID, ErrNotFound)
	}
	return nil
}

// ============================================
// emergency_contacts
// ============================================

func (r *PostgresClientsRepository) GetEmergencyContacts(ctx context.Context, clientID string) ([]*domain.EmergencyContact, error) {
	if clientID == "" {
		return nil, fmt.Errorf("client_id is required")
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT
			contact_id::text,
			client_id::text,
			name,
			COALESCE(relationship, '') AS relationship,
			phone,
			COALESCE(email, '') AS email
		FROM emergency_contacts
		WHERE client_id = $1
		ORDER BY name, contact_id`,
		clientID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list emergency contacts: %w", err)
	}
	defer rows.Close()

	out := []*domain.EmergencyContact{}
	for rows.Next() {
		var c domain.EmergencyContact
		if err := rows.Scan(&c.ContactID, &c.ClientID, &c.Name, &c.Relationship, &c.Phone, &c.Email); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// ReplaceEmergencyContacts delete-all-then-reinsert in one transaction.
// Contact ids change on every save even when the content is identical.
func (r *PostgresClientsRepository) ReplaceEmergencyContacts(ctx context.Context, clientID string, contacts []*domain.EmergencyContact) error {
	if clientID == "" {
		return fmt.Errorf("client_id is required")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM emergency_contacts WHERE client_id = $1`, clientID); err != nil {
		return fmt.Errorf("failed to clear emergency contacts: %w", err)
	}
	for _, c := range contacts {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO emergency_contacts (client_id, name, relationship, phone, email)
			VALUES ($1, $2, $3, $4, $5)`,
			clientID, c.Name, nullEmpty(c.Relationship), c.Phone, nullEmpty(c.Email),
		); err != nil {
			return fmt.Errorf("failed to insert emergency contact: %w", err)
		}
	}

	return tx.Commit()
}

// ============================================
// household_members
// ============================================

func (r *PostgresClientsRepository) GetHouseholdMembers(ctx context.Context, clientID string) ([]*domain.HouseholdMember, error) {
	if clientID == "" {
		return nil, fmt.Errorf("client_id is required")
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT
			member_id::text,
			client_id::text,
			first_name,
			COALESCE(last_name, '') AS last_name,
			COALESCE(relationship, '') AS relationship,
			date_of_birth
		FROM household_members
		WHERE client_id = $1
		ORDER BY first_name, last_name, member_id`,
		clientID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list household members: %w", err)
	}
	defer rows.Close()

	out := []*domain.HouseholdMember{}
	for rows.Next() {
		var m domain.HouseholdMember
		var dob sql.NullTime
		if err := rows.Scan(&m.MemberID, &m.ClientID, &m.FirstName, &m.LastName, &m.Relationship, &dob); err != nil {
			return nil, err
		}
		if dob.Valid {
			m.DateOfBirth = &dob.Time
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

func (r *PostgresClientsRepository) ReplaceHouseholdMembers(ctx context.Context, clientID string, members []*domain.HouseholdMember) error {
	if clientID == "" {
		return fmt.Errorf("client_id is required")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM household_members WHERE client_id = $1`, clientID); err != nil {
		return fmt.Errorf("failed to clear household members: %w", err)
	}
	for _, m := range members {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO household_members (client_id, first_name, last_name, relationship, date_of_birth)
			VALUES ($1, $2, $3, $4, $5)`,
			clientID, m.FirstName, nullEmpty(m.LastName), nullEmpty(m.Relationship), nullTime(m.DateOfBirth),
		); err != nil {
			return fmt.Errorf("failed to insert household member: %w", err)
		}
	}

	return tx.Commit()
}

// ============================================
// null helpers
// ============================================

func nullEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullStringPtr(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullIntPtr(i *int) any {
	if i == nil {
		return nil
	}
	return *i
}

func nullFloatPtr(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
