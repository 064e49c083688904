package firestore

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/contacthub/contacthub-api/internal/domain"
)

type UserRepository struct {
	client *firestore.Client
}

func NewUserRepo(client *firestore.Client) *UserRepository {
	return &UserRepository{client: client}
}

func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	iter := r.client.Collection(usersCollection).
		Where("active", "==", true).
		Documents(ctx)
	defer iter.Stop()

	var users []domain.User
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterate users: %w", err)
		}
		var user domain.User
		if err := doc.DataTo(&user); err != nil {
			return nil, fmt.Errorf("decode user %s: %w", doc.Ref.ID, err)
		}
		users = append(users, user)
	}
	return users, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	doc, err := r.client.Collection(usersCollection).Doc(id.String()).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var user domain.User
	if err := doc.DataTo(&user); err != nil {
		return nil, fmt.Errorf("decode user %s: %w", doc.Ref.ID, err)
	}
	return &user, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	iter := r.client.Collection(usersCollection).
		Where("email", "==", strings.ToLower(strings.TrimSpace(email))).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	var user domain.User
	if err := doc.DataTo(&user); err != nil {
		return nil, fmt.Errorf("decode user %s: %w", doc.Ref.ID, err)
	}
	return &user, nil
}
