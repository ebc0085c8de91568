// registration_repository.go implements RegistrationRepository, the append-only
// store behind the postgres registration sink and the export command.
package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/annotation-study/registration/internal/db/models"
)

// RegistrationRepository handles registration database operations
type RegistrationRepository struct {
	db *sqlx.DB
}

// NewRegistrationRepository creates a new RegistrationRepository
func NewRegistrationRepository(db *sqlx.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

const registrationColumns = `id, languages, age, nationality, native_language, education, email,
	registered_at, generated_username, api_reachable, account_created,
	projects_assigned, project_assignments, password_sealed, created_at`

// Create inserts a registration. Rows are never updated.
func (r *RegistrationRepository) Create(ctx context.Context, reg *models.Registration) error {
	if reg.CreatedAt.IsZero() {
		reg.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO registrations (` + registrationColumns + `)
		VALUES (:id, :languages, :age, :nationality, :native_language, :education, :email,
			:registered_at, :generated_username, :api_reachable, :account_created,
			:projects_assigned, :project_assignments, :password_sealed, :created_at)`

	_, err := r.db.NamedExecContext(ctx, query, reg)
	return err
}

// GetByID returns nil, nil when no registration has the id
func (r *RegistrationRepository) GetByID(ctx context.Context, id string) (*models.Registration, error) {
	var reg models.Registration
	err := r.db.GetContext(ctx, &reg, `SELECT `+registrationColumns+` FROM registrations WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// List returns registrations ordered by registration time, oldest first.
// since filters on registered_at when non-zero.
func (r *RegistrationRepository) List(ctx context.Context, since time.Time, limit, offset int) ([]*models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations`
	args := []interface{}{}
	if !since.IsZero() {
		query += ` WHERE registered_at >= $1`
		args = append(args, since)
	}
	query += ` ORDER BY registered_at ASC, id ASC`
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if offset > 0 {
		args = append(args, offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	regs := []*models.Registration{}
	if err := r.db.SelectContext(ctx, &regs, query, args...); err != nil {
		return nil, err
	}
	return regs, nil
}

// PendingCount counts registrations that still need manual account or
// membership setup
func (r *RegistrationRepository) PendingCount(ctx context.Context) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM pending_accounts`)
	return n, err
}

// ListPending returns the registrations counted by PendingCount, oldest first
func (r *RegistrationRepository) ListPending(ctx context.Context) ([]*models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations
		WHERE id IN (SELECT id FROM pending_accounts)
		ORDER BY registered_at ASC, id ASC`

	regs := []*models.Registration{}
	if err := r.db.SelectContext(ctx, &regs, query); err != nil {
		return nil, err
	}
	return regs, nil
}
