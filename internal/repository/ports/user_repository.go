package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/contacthub/contacthub-api/internal/domain"
)

type UserRepository interface {
	List(ctx context.Context) ([]domain.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
}
