package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/contacthub/contacthub-api/internal/domain"
)

type ContactRepository interface {
	// Search matches term as a substring against name, email, and phone.
	Search(ctx context.Context, term string) ([]domain.Contact, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Contact, error)
	Create(ctx context.Context, contact *domain.Contact) (uuid.UUID, error)
	CreateBatch(ctx context.Context, contacts []domain.Contact) ([]uuid.UUID, error)
	Update(ctx context.Context, id uuid.UUID, contact *domain.Contact) error
}
