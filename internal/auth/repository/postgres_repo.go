package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/GoSim-25-26J-441/lms-access-backend/internal/auth/domain"
)

//go:embed schema.sql
var schemaSQL string

const uniqueViolation = "23505"

type PostgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

// EnsureSchema creates the users table if it does not exist.
func (r *PostgresUserRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure users schema: %w", err)
	}
	return nil
}

func (r *PostgresUserRepository) IsEmpty(ctx context.Context) (bool, error) {
	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users)`).Scan(&exists); err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	return !exists, nil
}

// Get retrieves a profile by principal ID
func (r *PostgresUserRepository) Get(ctx context.Context, id string) (*domain.UserProfile, error) {
	query := `
		SELECT id, email, role, display_name, created_at, has_paid, access_granted,
		       access_level, verification_status, plan_id
		FROM users
		WHERE id = $1
	`

	row := r.db.QueryRowContext(ctx, query, id)
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return p, nil
}

// Create inserts a new profile. The row's created_at is filled in by the database
// when the profile carries a zero time.
func (r *PostgresUserRepository) Create(ctx context.Context, p *domain.UserProfile) error {
	query := `
		INSERT INTO users (id, email, role, display_name, created_at, has_paid, access_granted,
		                   access_level, verification_status, plan_id)
		VALUES ($1, $2, $3, $4, COALESCE($5, NOW()), $6, $7, $8, $9, $10)
		RETURNING created_at
	`

	var createdAt sql.NullTime
	if !p.CreatedAt.IsZero() {
		createdAt = sql.NullTime{Time: p.CreatedAt, Valid: true}
	}

	err := r.db.QueryRowContext(ctx, query,
		p.ID,
		p.Email,
		string(p.Role),
		nullString(p.DisplayName),
		createdAt,
		p.HasPaid,
		p.AccessGranted,
		nullString(p.AccessLevel),
		nullString(p.VerificationStatus),
		nullString(p.PlanID),
	).Scan(&p.CreatedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return domain.ErrUserExists
	}
	if err != nil {
		return fmt.Errorf("create user %s: %w", p.ID, err)
	}

	return nil
}

// Update overwrites every mutable column.
func (r *PostgresUserRepository) Update(ctx context.Context, p *domain.UserProfile) error {
	query := `
		UPDATE users
		SET email = $2, role = $3, display_name = $4, has_paid = $5, access_granted = $6,
		    access_level = $7, verification_status = $8, plan_id = $9
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		p.ID,
		p.Email,
		string(p.Role),
		nullString(p.DisplayName),
		p.HasPaid,
		p.AccessGranted,
		nullString(p.AccessLevel),
		nullString(p.VerificationStatus),
		nullString(p.PlanID),
	)
	if err != nil {
		return fmt.Errorf("update user %s: %w", p.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return domain.ErrUserNotFound
	}

	return nil
}

func (r *PostgresUserRepository) List(ctx context.Context, limit int) ([]domain.UserProfile, error) {
	query := `
		SELECT id, email, role, display_name, created_at, has_paid, access_granted,
		       access_level, verification_status, plan_id
		FROM users
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, listLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []domain.UserProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*domain.UserProfile, error) {
	var p domain.UserProfile
	var role string
	var displayName, accessLevel, verification, planID sql.NullString

	err := row.Scan(
		&p.ID,
		&p.Email,
		&role,
		&displayName,
		&p.CreatedAt,
		&p.HasPaid,
		&p.AccessGranted,
		&accessLevel,
		&verification,
		&planID,
	)
	if err != nil {
		return nil, err
	}

	// Stored roles are kept verbatim: an out-of-enum value must still fail
	// allow-list checks, so it is not folded into RoleUnknown.
	p.Role = domain.Role(role)
	p.DisplayName = displayName.String
	p.AccessLevel = accessLevel.String
	p.VerificationStatus = verification.String
	p.PlanID = planID.String

	return &p, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
