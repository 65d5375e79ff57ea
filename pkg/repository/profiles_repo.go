package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/medira/clinic-server/pkg/domain"
)

// ProfilesRepository handles role-specific profile rows attached to
// doctor and pharmacist users.
type ProfilesRepository struct {
	db *sql.DB
}

// NewProfilesRepository creates a new profiles repository.
func NewProfilesRepository(db *sql.DB) *ProfilesRepository {
	return &ProfilesRepository{db: db}
}

// DoctorByUserID retrieves a doctor profile by user ID.
func (r *ProfilesRepository) DoctorByUserID(ctx context.Context, userID uuid.UUID) (*domain.DoctorProfile, error) {
	query := `
		SELECT user_id, specialization, consultation_fee, room_number
		FROM doctor_profiles
		WHERE user_id = $1
	`
	profile := &domain.DoctorProfile{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&profile.UserID, &profile.Specialization,
		&profile.ConsultationFee, &profile.RoomNumber,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrDoctorNotFound
	}
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// PharmacistByUserID retrieves a pharmacist profile by user ID.
func (r *ProfilesRepository) PharmacistByUserID(ctx context.Context, userID uuid.UUID) (*domain.PharmacistProfile, error) {
	query := `
		SELECT user_id, license_no
		FROM pharmacist_profiles
		WHERE user_id = $1
	`
	profile := &domain.PharmacistProfile{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&profile.UserID, &profile.LicenseNo)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// CreateDoctorTx stores a doctor profile within a transaction.
func (r *ProfilesRepository) CreateDoctorTx(ctx context.Context, q Querier, profile *domain.DoctorProfile) error {
	query := `
		INSERT INTO doctor_profiles (user_id, specialization, consultation_fee, room_number)
		VALUES ($1, $2, $3, $4)
	`
	_, err := q.ExecContext(ctx, query,
		profile.UserID, profile.Specialization,
		profile.ConsultationFee, profile.RoomNumber,
	)
	return err
}

// CreatePharmacistTx stores a pharmacist profile within a transaction.
func (r *ProfilesRepository) CreatePharmacistTx(ctx context.Context, q Querier, profile *domain.PharmacistProfile) error {
	query := `
		INSERT INTO pharmacist_profiles (user_id, license_no)
		VALUES ($1, $2)
	`
	_, err := q.ExecContext(ctx, query, profile.UserID, profile.LicenseNo)
	return err
}

// ListDoctors returns every active doctor with their profile, for
// patients choosing whom to book.
func (r *ProfilesRepository) ListDoctors(ctx context.Context) ([]*domain.Doctor, error) {
	query := `
		SELECT d.user_id, u.name, d.specialization, d.consultation_fee, d.room_number
		FROM doctor_profiles d
		JOIN users u ON u.id = d.user_id
		WHERE u.active = TRUE
		ORDER BY d.specialization, u.name
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var doctors []*domain.Doctor
	for rows.Next() {
		doctor := &domain.Doctor{}
		if err := rows.Scan(
			&doctor.UserID, &doctor.Name, &doctor.Specialization,
			&doctor.ConsultationFee, &doctor.RoomNumber,
		); err != nil {
			return nil, err
		}
		doctors = append(doctors, doctor)
	}
	return doctors, rows.Err()
}
