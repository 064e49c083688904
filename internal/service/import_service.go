package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/contacthub/contacthub-api/internal/domain"
	"github.com/contacthub/contacthub-api/internal/repository/ports"
)

// ContactImportService runs the reconciliation pipeline: row by row in input
// order, validate, dedup-check, then create or merge. Row-level failures are
// accumulated; a storage failure mid-loop stops the run and surfaces as the
// returned error while the counts gathered so far are preserved.
type ContactImportService struct {
	contacts ports.ContactRepository
	resolver *DuplicateResolver
	now      func() time.Time
}

func NewContactImportService(contacts ports.ContactRepository, resolver *DuplicateResolver) *ContactImportService {
	return &ContactImportService{
		contacts: contacts,
		resolver: resolver,
		now:      time.Now,
	}
}

// Run processes every row of the table under the finalized mappings. The
// users snapshot resolves assigned-agent emails to user IDs. onProgress,
// when non-nil, receives processed/total counts after every row
// (observability only).
func (s *ContactImportService) Run(ctx context.Context, table domain.RawTable, mappings []domain.ColumnMapping, users []domain.User, onProgress func(processed, total int)) (*domain.ImportOutcome, error) {
	outcome := &domain.ImportOutcome{}
	agentByEmail := make(map[string]uuid.UUID, len(users))
	for _, u := range users {
		agentByEmail[domain.NormalizeEmail(u.Email)] = u.ID
	}

	total := len(table.Rows)
	for idx, row := range table.Rows {
		rowNumber := idx + 2 // header occupies sheet row 1

		candidate := buildCandidate(row, mappings)
		if violations := validateCandidate(candidate); len(violations) > 0 {
			outcome.Errors++
			outcome.ErrorDetails = append(outcome.ErrorDetails,
				fmt.Sprintf("Row %d: %s", rowNumber, strings.Join(violations, "; ")))
			reportProgress(onProgress, idx+1, total)
			continue
		}

		match, err := s.resolver.Resolve(ctx, candidate)
		if err != nil {
			return outcome, fmt.Errorf("row %d: duplicate lookup: %w", rowNumber, err)
		}

		if match.IsDuplicate {
			if err := s.merge(ctx, match.Matched, candidate, agentByEmail); err != nil {
				return outcome, fmt.Errorf("row %d: merge: %w", rowNumber, err)
			}
			outcome.Merged++
		} else {
			if err := s.create(ctx, candidate, agentByEmail); err != nil {
				return outcome, fmt.Errorf("row %d: create: %w", rowNumber, err)
			}
			outcome.Imported++
		}
		reportProgress(onProgress, idx+1, total)
	}

	return outcome, nil
}

// buildCandidate copies, for every resolved mapping, the row's value at the
// column's position under the target field name, trimmed. Columns without a
// resolved field are dropped.
func buildCandidate(row []string, mappings []domain.ColumnMapping) map[string]string {
	candidate := make(map[string]string)
	for _, m := range mappings {
		if !m.Resolved() {
			continue
		}
		if m.ColumnIndex < 0 || m.ColumnIndex >= len(row) {
			continue
		}
		value := strings.TrimSpace(row[m.ColumnIndex])
		if value == "" {
			continue
		}
		candidate[m.SuggestedField] = value
	}
	return candidate
}

// validateCandidate returns every violated rule for the row; the caller
// concatenates them into a single error entry.
func validateCandidate(candidate map[string]string) []string {
	var violations []string
	required := []struct {
		field string
		label string
	}{
		{domain.FieldNameFirstName, "first name is required"},
		{domain.FieldNameLastName, "last name is required"},
		{domain.FieldNameEmail, "email is required"},
		{domain.FieldNamePhone, "phone is required"},
	}
	for _, req := range required {
		if strings.TrimSpace(candidate[req.field]) == "" {
			violations = append(violations, req.label)
		}
	}
	if email := candidate[domain.FieldNameEmail]; email != "" && !looksLikeEmail(email) {
		violations = append(violations, "invalid email format")
	}
	if phone := candidate[domain.FieldNamePhone]; phone != "" && len(domain.NormalizePhone(phone)) < 10 {
		violations = append(violations, "invalid phone format")
	}
	return violations
}

func (s *ContactImportService) create(ctx context.Context, candidate map[string]string, agents map[string]uuid.UUID) error {
	now := s.now()
	contact := &domain.Contact{
		ID:        uuid.New(),
		Source:    domain.ContactSourceImport,
		CreatedAt: now,
		UpdatedAt: &now,
	}
	applyCandidate(contact, candidate, agents)
	_, err := s.contacts.Create(ctx, contact)
	return err
}

// merge overwrites only the fields the candidate supplies; everything else
// on the stored record is left untouched.
func (s *ContactImportService) merge(ctx context.Context, existing *domain.Contact, candidate map[string]string, agents map[string]uuid.UUID) error {
	merged := *existing
	if merged.Custom != nil {
		copied := make(map[string]string, len(merged.Custom))
		for k, v := range merged.Custom {
			copied[k] = v
		}
		merged.Custom = copied
	}
	applyCandidate(&merged, candidate, agents)
	now := s.now()
	merged.UpdatedAt = &now
	return s.contacts.Update(ctx, merged.ID, &merged)
}

// applyCandidate writes candidate values onto the contact. Core fields go to
// their struct slots; anything else lands in the custom bag. Agent emails
// resolve to user IDs; an unknown agent email is dropped rather than failing
// the row.
func applyCandidate(contact *domain.Contact, candidate map[string]string, agents map[string]uuid.UUID) {
	for field, value := range candidate {
		if value == "" {
			continue
		}
		switch field {
		case domain.FieldNameFirstName:
			contact.FirstName = value
		case domain.FieldNameLastName:
			contact.LastName = value
		case domain.FieldNamePhone:
			contact.Phone = value
		case domain.FieldNameEmail:
			contact.Email = value
		case domain.FieldNameAgent:
			if id, ok := agents[domain.NormalizeEmail(value)]; ok {
				agentID := id
				contact.AgentID = &agentID
			}
		default:
			if contact.Custom == nil {
				contact.Custom = make(map[string]string)
			}
			contact.Custom[field] = value
		}
	}
}

func reportProgress(fn func(processed, total int), processed, total int) {
	if fn != nil {
		fn(processed, total)
	}
}
