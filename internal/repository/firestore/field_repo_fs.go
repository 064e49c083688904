package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/contacthub/contacthub-api/internal/domain"
	"github.com/contacthub/contacthub-api/internal/repository/ports"
)

type FieldRepository struct {
	client *firestore.Client
}

func NewFieldRepo(client *firestore.Client) *FieldRepository {
	return &FieldRepository{client: client}
}

func (r *FieldRepository) List(ctx context.Context) ([]domain.FieldDefinition, error) {
	iter := r.client.Collection(fieldsCollection).
		OrderBy("core", firestore.Desc).
		OrderBy("createdOn", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var defs []domain.FieldDefinition
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterate field definitions: %w", err)
		}
		var def domain.FieldDefinition
		if err := doc.DataTo(&def); err != nil {
			return nil, fmt.Errorf("decode field definition %s: %w", doc.Ref.ID, err)
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func (r *FieldRepository) FindByFieldName(ctx context.Context, fieldName string) (*domain.FieldDefinition, error) {
	iter := r.client.Collection(fieldsCollection).
		Where("fieldName", "==", fieldName).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find field %q: %w", fieldName, err)
	}
	var def domain.FieldDefinition
	if err := doc.DataTo(&def); err != nil {
		return nil, fmt.Errorf("decode field definition %s: %w", doc.Ref.ID, err)
	}
	return &def, nil
}

func (r *FieldRepository) Create(ctx context.Context, def *domain.FieldDefinition) (uuid.UUID, error) {
	if def.ID == uuid.Nil {
		def.ID = uuid.New()
	}
	_, err := r.client.Collection(fieldsCollection).Doc(def.ID.String()).Set(ctx, def)
	if err != nil {
		return uuid.Nil, fmt.Errorf("create field definition: %w", err)
	}
	return def.ID, nil
}

// Update edits label, type, and required flag. Core definitions are immutable.
func (r *FieldRepository) Update(ctx context.Context, id uuid.UUID, label string, fieldType domain.FieldType, required bool) error {
	def, err := r.get(ctx, id)
	if err != nil {
		return err
	}
	if def.Core {
		return ports.ErrCoreFieldProtected
	}
	_, err = r.client.Collection(fieldsCollection).Doc(id.String()).Update(ctx, []firestore.Update{
		{Path: "label", Value: label},
		{Path: "type", Value: string(fieldType)},
		{Path: "required", Value: required},
	})
	if err != nil {
		return fmt.Errorf("update field definition %s: %w", id, err)
	}
	return nil
}

func (r *FieldRepository) Delete(ctx context.Context, id uuid.UUID) error {
	def, err := r.get(ctx, id)
	if err != nil {
		return err
	}
	if def.Core {
		return ports.ErrCoreFieldProtected
	}
	if _, err := r.client.Collection(fieldsCollection).Doc(id.String()).Delete(ctx); err != nil {
		return fmt.Errorf("delete field definition %s: %w", id, err)
	}
	return nil
}

func (r *FieldRepository) get(ctx context.Context, id uuid.UUID) (*domain.FieldDefinition, error) {
	doc, err := r.client.Collection(fieldsCollection).Doc(id.String()).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, fmt.Errorf("field definition %s: %w", id, err)
	}
	if err != nil {
		return nil, err
	}
	var def domain.FieldDefinition
	if err := doc.DataTo(&def); err != nil {
		return nil, fmt.Errorf("decode field definition %s: %w", doc.Ref.ID, err)
	}
	return &def, nil
}
