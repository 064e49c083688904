package service

import (
	"context"
	"errors"
	"testing"

	"github.com/contacthub/contacthub-api/internal/domain"
	"github.com/contacthub/contacthub-api/internal/repository/ports"
)

func TestEnsureCoreFieldsSeedsOnce(t *testing.T) {
	repo := newMemoryFieldRepo()
	svc := NewFieldService(repo)
	ctx := context.Background()

	if err := svc.EnsureCoreFields(ctx); err != nil {
		t.Fatalf("EnsureCoreFields returned error: %v", err)
	}
	defs, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(defs) != 5 {
		t.Fatalf("expected 5 core definitions, got %d", len(defs))
	}
	for _, def := range defs {
		if !def.Core {
			t.Fatalf("expected %s to be core", def.FieldName)
		}
	}

	// Second call must not duplicate.
	if err := svc.EnsureCoreFields(ctx); err != nil {
		t.Fatalf("second EnsureCoreFields returned error: %v", err)
	}
	defs, _ = svc.List(ctx)
	if len(defs) != 5 {
		t.Fatalf("expected idempotent seeding, got %d definitions", len(defs))
	}
}

func TestCreateCustomValidatesFieldName(t *testing.T) {
	svc := NewFieldService(newMemoryFieldRepo())
	ctx := context.Background()

	cases := []string{"", "has space", "has-dash", "waytoolongfieldnameover20chars"}
	for _, name := range cases {
		_, err := svc.CreateCustom(ctx, domain.FieldDefinition{FieldName: name})
		if !errors.Is(err, ErrInvalidFieldName) {
			t.Fatalf("field name %q: expected ErrInvalidFieldName, got %v", name, err)
		}
	}
}

func TestCreateCustomDefaultsAndUniqueness(t *testing.T) {
	svc := NewFieldService(newMemoryFieldRepo())
	ctx := context.Background()

	created, err := svc.CreateCustom(ctx, domain.FieldDefinition{
		FieldName: "leadscore",
		Type:      domain.FieldType("bogus"),
		Core:      true,
	})
	if err != nil {
		t.Fatalf("CreateCustom returned error: %v", err)
	}
	if created.Type != domain.FieldTypeText {
		t.Fatalf("expected invalid type to default to text, got %s", created.Type)
	}
	if created.Label != "Leadscore" {
		t.Fatalf("expected label derived from field name, got %q", created.Label)
	}
	if created.Core {
		t.Fatalf("core flag must be forced off for custom fields")
	}

	if _, err := svc.CreateCustom(ctx, domain.FieldDefinition{FieldName: "leadscore"}); !errors.Is(err, ErrFieldNameTaken) {
		t.Fatalf("expected ErrFieldNameTaken, got %v", err)
	}
}

func TestCoreFieldProtection(t *testing.T) {
	repo := newMemoryFieldRepo()
	svc := NewFieldService(repo)
	ctx := context.Background()

	if err := svc.EnsureCoreFields(ctx); err != nil {
		t.Fatalf("EnsureCoreFields returned error: %v", err)
	}
	defs, _ := svc.List(ctx)

	if err := svc.Update(ctx, defs[0].ID, "Renamed", domain.FieldTypeText, false); !errors.Is(err, ports.ErrCoreFieldProtected) {
		t.Fatalf("expected core update rejected, got %v", err)
	}
	if err := svc.Delete(ctx, defs[0].ID); !errors.Is(err, ports.ErrCoreFieldProtected) {
		t.Fatalf("expected core delete rejected, got %v", err)
	}

	custom, err := svc.CreateCustom(ctx, domain.FieldDefinition{FieldName: "leadscore", Type: domain.FieldTypeNumber})
	if err != nil {
		t.Fatalf("CreateCustom returned error: %v", err)
	}
	if err := svc.Update(ctx, custom.ID, "Lead Score", domain.FieldTypeNumber, true); err != nil {
		t.Fatalf("expected custom update allowed, got %v", err)
	}
	if err := svc.Delete(ctx, custom.ID); err != nil {
		t.Fatalf("expected custom delete allowed, got %v", err)
	}
}

func TestUpdateRejectsUnknownType(t *testing.T) {
	repo := newMemoryFieldRepo()
	svc := NewFieldService(repo)
	ctx := context.Background()

	custom, err := svc.CreateCustom(ctx, domain.FieldDefinition{FieldName: "leadscore", Type: domain.FieldTypeNumber})
	if err != nil {
		t.Fatalf("CreateCustom returned error: %v", err)
	}
	if err := svc.Update(ctx, custom.ID, "Lead Score", domain.FieldType("bogus"), false); !errors.Is(err, ErrInvalidFieldType) {
		t.Fatalf("expected ErrInvalidFieldType, got %v", err)
	}

	got, err := repo.FindByFieldName(ctx, "leadscore")
	if err != nil || got == nil {
		t.Fatalf("FindByFieldName returned %v %v", got, err)
	}
	if got.Type != domain.FieldTypeNumber {
		t.Fatalf("expected stored type untouched, got %s", got.Type)
	}
}
