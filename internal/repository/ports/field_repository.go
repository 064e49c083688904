package ports

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/contacthub/contacthub-api/internal/domain"
)

// ErrCoreFieldProtected is returned when an update or delete targets one of
// the system-seeded field definitions.
var ErrCoreFieldProtected = errors.New("core fields protected")

type FieldRepository interface {
	List(ctx context.Context) ([]domain.FieldDefinition, error)
	FindByFieldName(ctx context.Context, fieldName string) (*domain.FieldDefinition, error)
	Create(ctx context.Context, def *domain.FieldDefinition) (uuid.UUID, error)
	Update(ctx context.Context, id uuid.UUID, label string, fieldType domain.FieldType, required bool) error
	Delete(ctx context.Context, id uuid.UUID) error
}
