package service

import (
	"context"
	"strings"

	"github.com/contacthub/contacthub-api/internal/domain"
	"github.com/contacthub/contacthub-api/internal/repository/ports"
)

const (
	matchEmailConfidence = 100
	matchPhoneConfidence = 95
	matchNameConfidence  = 70
)

// MatchResult is the outcome of a duplicate lookup for one candidate.
type MatchResult struct {
	IsDuplicate bool            `json:"is_duplicate"`
	Matched     *domain.Contact `json:"matched,omitempty"`
	Confidence  int             `json:"confidence"`
}

// DuplicateResolver decides whether a candidate record matches a stored
// contact. Rules run in strict order, first hit wins: email is the strongest
// identifier, phone nearly as strong, full name a weak last resort. Read-only
// against the store.
type DuplicateResolver struct {
	contacts ports.ContactRepository
}

func NewDuplicateResolver(contacts ports.ContactRepository) *DuplicateResolver {
	return &DuplicateResolver{contacts: contacts}
}

func (r *DuplicateResolver) Resolve(ctx context.Context, candidate map[string]string) (*MatchResult, error) {
	email := domain.NormalizeEmail(candidate[domain.FieldNameEmail])
	if email != "" {
		match, err := r.findBy(ctx, email, func(c *domain.Contact) bool {
			return domain.NormalizeEmail(c.Email) == email
		})
		if err != nil {
			return nil, err
		}
		if match != nil {
			return &MatchResult{IsDuplicate: true, Matched: match, Confidence: matchEmailConfidence}, nil
		}
	}

	phone := domain.NormalizePhone(candidate[domain.FieldNamePhone])
	if phone != "" {
		match, err := r.findBy(ctx, phone, func(c *domain.Contact) bool {
			return domain.NormalizePhone(c.Phone) == phone
		})
		if err != nil {
			return nil, err
		}
		if match != nil {
			return &MatchResult{IsDuplicate: true, Matched: match, Confidence: matchPhoneConfidence}, nil
		}
	}

	first := strings.TrimSpace(candidate[domain.FieldNameFirstName])
	last := strings.TrimSpace(candidate[domain.FieldNameLastName])
	if first != "" && last != "" {
		match, err := r.findBy(ctx, first+" "+last, func(c *domain.Contact) bool {
			return strings.EqualFold(strings.TrimSpace(c.FirstName), first) &&
				strings.EqualFold(strings.TrimSpace(c.LastName), last)
		})
		if err != nil {
			return nil, err
		}
		if match != nil {
			return &MatchResult{IsDuplicate: true, Matched: match, Confidence: matchNameConfidence}, nil
		}
	}

	return &MatchResult{Confidence: 0}, nil
}

// findBy narrows with a substring search, then applies the exact predicate.
func (r *DuplicateResolver) findBy(ctx context.Context, term string, exact func(*domain.Contact) bool) (*domain.Contact, error) {
	candidates, err := r.contacts.Search(ctx, term)
	if err != nil {
		return nil, err
	}
	for i := range candidates {
		if exact(&candidates[i]) {
			return &candidates[i], nil
		}
	}
	return nil, nil
}
