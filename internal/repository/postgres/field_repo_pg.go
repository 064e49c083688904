package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/contacthub/contacthub-api/internal/domain"
	"github.com/contacthub/contacthub-api/internal/repository/ports"
)

type FieldRepository struct {
	db *sqlx.DB
}

func NewFieldRepo(db *sqlx.DB) *FieldRepository {
	return &FieldRepository{db: db}
}

func (r *FieldRepository) List(ctx context.Context) ([]domain.FieldDefinition, error) {
	const query = `
        SELECT id, label, field_name, field_type, core, required, created_at
        FROM field_definition
        ORDER BY core DESC, created_at
    `
	var defs []domain.FieldDefinition
	if err := r.db.SelectContext(ctx, &defs, query); err != nil {
		return nil, err
	}
	return defs, nil
}

func (r *FieldRepository) FindByFieldName(ctx context.Context, fieldName string) (*domain.FieldDefinition, error) {
	const query = `
        SELECT id, label, field_name, field_type, core, required, created_at
        FROM field_definition
        WHERE field_name = $1
    `
	var def domain.FieldDefinition
	if err := r.db.GetContext(ctx, &def, query, fieldName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &def, nil
}

func (r *FieldRepository) Create(ctx context.Context, def *domain.FieldDefinition) (uuid.UUID, error) {
	const query = `
        INSERT INTO field_definition (id, label, field_name, field_type, core, required, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id
    `
	var id uuid.UUID
	err := r.db.QueryRowxContext(ctx, query,
		def.ID, def.Label, def.FieldName, def.Type, def.Core, def.Required, def.CreatedAt,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// Update edits label, type, and required flag. Core definitions are immutable.
func (r *FieldRepository) Update(ctx context.Context, id uuid.UUID, label string, fieldType domain.FieldType, required bool) error {
	if core, err := r.isCore(ctx, id); err != nil {
		return err
	} else if core {
		return ports.ErrCoreFieldProtected
	}
	const query = `
        UPDATE field_definition
        SET label = $2, field_type = $3, required = $4
        WHERE id = $1 AND core = FALSE
    `
	result, err := r.db.ExecContext(ctx, query, id, label, fieldType, required)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func (r *FieldRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if core, err := r.isCore(ctx, id); err != nil {
		return err
	} else if core {
		return ports.ErrCoreFieldProtected
	}
	const query = `DELETE FROM field_definition WHERE id = $1 AND core = FALSE`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func (r *FieldRepository) isCore(ctx context.Context, id uuid.UUID) (bool, error) {
	const query = `SELECT core FROM field_definition WHERE id = $1`
	var core bool
	if err := r.db.GetContext(ctx, &core, query, id); err != nil {
		return false, err
	}
	return core, nil
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
