package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/medira/clinic-server/pkg/domain"
)

// PatientsRepository handles patient record persistence.
type PatientsRepository struct {
	db *sql.DB
}

// NewPatientsRepository creates a new patients repository.
func NewPatientsRepository(db *sql.DB) *PatientsRepository {
	return &PatientsRepository{db: db}
}

const patientColumns = `
	id, user_id, name, phone, email, date_of_birth, address, notes, created_at, updated_at
`

func scanPatient(row interface{ Scan(...any) error }) (*domain.Patient, error) {
	p := &domain.Patient{}
	err := row.Scan(
		&p.ID, &p.UserID, &p.Name, &p.Phone, &p.Email,
		&p.DateOfBirth, &p.Address, &p.Notes, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrPatientNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Create creates a new patient record.
func (r *PatientsRepository) Create(ctx context.Context, p *domain.Patient) error {
	query := `
		INSERT INTO patients (id, user_id, name, phone, email, date_of_birth, address, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.UserID, p.Name, p.Phone, p.Email,
		p.DateOfBirth, p.Address, p.Notes, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

// GetByID retrieves a patient by ID.
func (r *PatientsRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE id = $1`
	return scanPatient(r.db.QueryRowContext(ctx, query, id))
}

// GetByUserID retrieves the patient record linked to a portal account.
func (r *PatientsRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE user_id = $1`
	return scanPatient(r.db.QueryRowContext(ctx, query, userID))
}

// GetByPhone retrieves a patient by phone number.
func (r *PatientsRepository) GetByPhone(ctx context.Context, phone string) (*domain.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE phone = $1`
	return scanPatient(r.db.QueryRowContext(ctx, query, phone))
}

// Update updates the mutable fields of a patient record.
func (r *PatientsRepository) Update(ctx context.Context, p *domain.Patient) error {
	query := `
		UPDATE patients
		SET name = $2, phone = $3, email = $4, date_of_birth = $5,
		    address = $6, notes = $7, updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query,
		p.ID, p.Name, p.Phone, p.Email, p.DateOfBirth, p.Address, p.Notes,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrPatientNotFound
	}
	return nil
}

// LinkUser attaches a portal account to a patient record.
func (r *PatientsRepository) LinkUser(ctx context.Context, patientID, userID uuid.UUID) error {
	query := `UPDATE patients SET user_id = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, patientID, userID)
	return err
}

// Search finds patients by name prefix or exact phone match.
func (r *PatientsRepository) Search(ctx context.Context, term string, limit int) ([]*domain.Patient, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	query := `
		SELECT ` + patientColumns + `
		FROM patients
		WHERE phone = $1 OR name ILIKE $2
		ORDER BY name
		LIMIT $3
	`
	rows, err := r.db.QueryContext(ctx, query, term, term+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var patients []*domain.Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		patients = append(patients, p)
	}
	return patients, rows.Err()
}
