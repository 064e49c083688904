package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/contacthub/contacthub-api/internal/domain"
)

var (
	ErrUnknownColumn     = errors.New("no mapping for column")
	ErrNoResolvedMapping = errors.New("at least one column must map to a concrete field")
)

// MappingSet holds the current, possibly user-overridden column mappings for
// one import session, together with the originally inferred suggestions so
// a mapping can be reset. Edits may happen any number of times before the
// user advances; the last value wins.
type MappingSet struct {
	current  []domain.ColumnMapping
	original []domain.ColumnMapping
}

func NewMappingSet(inferred []domain.ColumnMapping) *MappingSet {
	original := make([]domain.ColumnMapping, len(inferred))
	copy(original, inferred)
	current := make([]domain.ColumnMapping, len(inferred))
	copy(current, inferred)
	return &MappingSet{current: current, original: original}
}

// Mappings returns a copy of the current state.
func (s *MappingSet) Mappings() []domain.ColumnMapping {
	out := make([]domain.ColumnMapping, len(s.current))
	copy(out, s.current)
	return out
}

// Clone returns an independent copy of the set.
func (s *MappingSet) Clone() *MappingSet {
	current := make([]domain.ColumnMapping, len(s.current))
	copy(current, s.current)
	original := make([]domain.ColumnMapping, len(s.original))
	copy(original, s.original)
	return &MappingSet{current: current, original: original}
}

// SetField replaces one mapping's suggested field.
func (s *MappingSet) SetField(columnName, fieldName string) error {
	idx := s.indexOf(columnName)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownColumn, columnName)
	}
	s.current[idx].SuggestedField = fieldName
	s.current[idx].IsCustomField = fieldName == domain.SuggestedNewCustomField
	if fieldName != domain.SuggestedNewCustomField {
		s.current[idx].CustomField = nil
	}
	return nil
}

// Reset restores a mapping to its originally inferred suggestion.
func (s *MappingSet) Reset(columnName string) error {
	idx := s.indexOf(columnName)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownColumn, columnName)
	}
	s.current[idx] = s.original[idx]
	return nil
}

// CanAdvance gates the review step: at least one mapping must resolve to a
// concrete field before the import may proceed.
func (s *MappingSet) CanAdvance() bool {
	for i := range s.current {
		if s.current[i].Resolved() {
			return true
		}
	}
	return false
}

func (s *MappingSet) indexOf(columnName string) int {
	for i := range s.current {
		if strings.EqualFold(s.current[i].ColumnName, columnName) {
			return i
		}
	}
	return -1
}

// CreateCustomField persists a draft definition through the field service,
// then immediately binds the triggering mapping to the new field.
func (s *MappingSet) CreateCustomField(ctx context.Context, fields *FieldService, columnName string, draft domain.FieldDefinition) (*domain.FieldDefinition, error) {
	idx := s.indexOf(columnName)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, columnName)
	}
	created, err := fields.CreateCustom(ctx, draft)
	if err != nil {
		return nil, err
	}
	s.current[idx].SuggestedField = created.FieldName
	s.current[idx].IsCustomField = true
	s.current[idx].CustomField = nil
	s.current[idx].DataType = created.Type
	return created, nil
}
