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

type ContactRepository struct {
	client *firestore.Client
}

func NewContactRepo(client *firestore.Client) *ContactRepository {
	return &ContactRepository{client: client}
}

// Search scans the collection and filters in memory. Firestore has no
// substring operator; the collection is bounded by the tool's import volumes
// so a scan is acceptable here.
func (r *ContactRepository) Search(ctx context.Context, term string) ([]domain.Contact, error) {
	iter := r.client.Collection(contactsCollection).Documents(ctx)
	defer iter.Stop()

	lower := strings.ToLower(strings.TrimSpace(term))
	digits := domain.NormalizePhone(term)

	var matches []domain.Contact
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterate contacts: %w", err)
		}
		var contact domain.Contact
		if err := doc.DataTo(&contact); err != nil {
			return nil, fmt.Errorf("decode contact %s: %w", doc.Ref.ID, err)
		}
		if contactMatches(&contact, lower, digits) {
			matches = append(matches, contact)
		}
	}
	return matches, nil
}

func contactMatches(c *domain.Contact, lowerTerm, digits string) bool {
	if lowerTerm == "" {
		return false
	}
	if strings.Contains(strings.ToLower(c.FirstName), lowerTerm) ||
		strings.Contains(strings.ToLower(c.LastName), lowerTerm) ||
		strings.Contains(strings.ToLower(c.FullName()), lowerTerm) ||
		strings.Contains(strings.ToLower(c.Email), lowerTerm) ||
		strings.Contains(strings.ToLower(c.Phone), lowerTerm) {
		return true
	}
	return digits != "" && strings.Contains(domain.NormalizePhone(c.Phone), digits)
}

func (r *ContactRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Contact, error) {
	doc, err := r.client.Collection(contactsCollection).Doc(id.String()).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var contact domain.Contact
	if err := doc.DataTo(&contact); err != nil {
		return nil, fmt.Errorf("decode contact %s: %w", doc.Ref.ID, err)
	}
	return &contact, nil
}

func (r *ContactRepository) Create(ctx context.Context, contact *domain.Contact) (uuid.UUID, error) {
	if contact.ID == uuid.Nil {
		contact.ID = uuid.New()
	}
	_, err := r.client.Collection(contactsCollection).Doc(contact.ID.String()).Set(ctx, contact)
	if err != nil {
		return uuid.Nil, fmt.Errorf("create contact: %w", err)
	}
	return contact.ID, nil
}

// CreateBatch writes contacts in batches to reduce round trips.
func (r *ContactRepository) CreateBatch(ctx context.Context, contacts []domain.Contact) ([]uuid.UUID, error) {
	if len(contacts) == 0 {
		return nil, nil
	}
	const batchSize = 400

	ids := make([]uuid.UUID, 0, len(contacts))
	for start := 0; start < len(contacts); start += batchSize {
		end := start + batchSize
		if end > len(contacts) {
			end = len(contacts)
		}
		batch := r.client.Batch()
		for i := range contacts[start:end] {
			c := &contacts[start+i]
			if c.ID == uuid.Nil {
				c.ID = uuid.New()
			}
			batch.Set(r.client.Collection(contactsCollection).Doc(c.ID.String()), c)
			ids = append(ids, c.ID)
		}
		if _, err := batch.Commit(ctx); err != nil {
			return nil, fmt.Errorf("commit batch [%d:%d]: %w", start, end, err)
		}
	}
	return ids, nil
}

func (r *ContactRepository) Update(ctx context.Context, id uuid.UUID, contact *domain.Contact) error {
	contact.ID = id
	_, err := r.client.Collection(contactsCollection).Doc(id.String()).Set(ctx, contact)
	if err != nil {
		return fmt.Errorf("update contact %s: %w", id, err)
	}
	return nil
}
