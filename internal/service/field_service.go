package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/contacthub/contacthub-api/internal/domain"
	"github.com/contacthub/contacthub-api/internal/repository/ports"
)

var (
	ErrFieldNameTaken   = errors.New("field name already in use")
	ErrInvalidFieldName = errors.New("field name must be non-empty lowercase alphanumeric")
	ErrInvalidFieldType = errors.New("unknown field type")
	ErrFieldNotFound    = errors.New("field definition not found")
)

var validFieldTypes = map[domain.FieldType]bool{
	domain.FieldTypeText:     true,
	domain.FieldTypeNumber:   true,
	domain.FieldTypePhone:    true,
	domain.FieldTypeEmail:    true,
	domain.FieldTypeDatetime: true,
	domain.FieldTypeCheckbox: true,
}

// FieldService manages FieldDefinitions. The five core definitions are
// seeded once and protected from edits and deletes.
type FieldService struct {
	repo ports.FieldRepository
	now  func() time.Time
}

func NewFieldService(repo ports.FieldRepository) *FieldService {
	return &FieldService{repo: repo, now: time.Now}
}

// EnsureCoreFields seeds any canonical definition not yet present. Safe to
// call on every startup.
func (s *FieldService) EnsureCoreFields(ctx context.Context) error {
	existing, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("list fields: %w", err)
	}
	present := make(map[string]bool, len(existing))
	for _, def := range existing {
		present[def.FieldName] = true
	}
	for _, core := range domain.CoreFieldDefinitions() {
		if present[core.FieldName] {
			continue
		}
		core.ID = uuid.New()
		core.CreatedAt = s.now()
		if _, err := s.repo.Create(ctx, &core); err != nil {
			return fmt.Errorf("seed core field %s: %w", core.FieldName, err)
		}
	}
	return nil
}

func (s *FieldService) List(ctx context.Context) ([]domain.FieldDefinition, error) {
	return s.repo.List(ctx)
}

// CreateCustom persists a user-defined field. Core can never be set by
// callers; the flag is forced off.
func (s *FieldService) CreateCustom(ctx context.Context, draft domain.FieldDefinition) (*domain.FieldDefinition, error) {
	draft.FieldName = strings.TrimSpace(draft.FieldName)
	if draft.FieldName == "" || !isCollapsedName(draft.FieldName) {
		return nil, ErrInvalidFieldName
	}
	if !validFieldTypes[draft.Type] {
		draft.Type = domain.FieldTypeText
	}
	if strings.TrimSpace(draft.Label) == "" {
		draft.Label = titleCaseWords(draft.FieldName)
	}

	if existing, err := s.repo.FindByFieldName(ctx, draft.FieldName); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, fmt.Errorf("%w: %s", ErrFieldNameTaken, draft.FieldName)
	}

	draft.ID = uuid.New()
	draft.Core = false
	draft.CreatedAt = s.now()
	if _, err := s.repo.Create(ctx, &draft); err != nil {
		return nil, err
	}
	return &draft, nil
}

// Update edits a non-core definition. Unlike CreateCustom, which defaults a
// missing type on a fresh draft, an update names an explicit type and an
// unknown one is rejected. Repositories return ports.ErrCoreFieldProtected
// when the target is core.
func (s *FieldService) Update(ctx context.Context, id uuid.UUID, label string, fieldType domain.FieldType, required bool) error {
	if !validFieldTypes[fieldType] {
		return fmt.Errorf("%w: %s", ErrInvalidFieldType, fieldType)
	}
	return s.repo.Update(ctx, id, strings.TrimSpace(label), fieldType, required)
}

func (s *FieldService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func isCollapsedName(name string) bool {
	if len(name) > 20 {
		return false
	}
	for _, r := range name {
		lower := r >= 'a' && r <= 'z'
		upper := r >= 'A' && r <= 'Z'
		digit := r >= '0' && r <= '9'
		if !lower && !upper && !digit {
			return false
		}
	}
	return true
}
