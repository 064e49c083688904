package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/contacthub/contacthub-api/internal/domain"
	"github.com/contacthub/contacthub-api/internal/repository/ports"
)

// memoryContactRepo mirrors the storage-layer search contract: substring
// match on names, email, and phone, with the phone comparison also run on
// the digits-only form.
type memoryContactRepo struct {
	mu       sync.Mutex
	items    map[uuid.UUID]*domain.Contact
	order    []uuid.UUID
	failNext error
}

func newMemoryContactRepo() *memoryContactRepo {
	return &memoryContactRepo{items: make(map[uuid.UUID]*domain.Contact)}
}

func (r *memoryContactRepo) takeFailure() error {
	err := r.failNext
	r.failNext = nil
	return err
}

func (r *memoryContactRepo) Search(_ context.Context, term string) ([]domain.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lower := strings.ToLower(strings.TrimSpace(term))
	digits := domain.NormalizePhone(term)

	var matches []domain.Contact
	for _, id := range r.order {
		c := r.items[id]
		if strings.Contains(strings.ToLower(c.FirstName), lower) ||
			strings.Contains(strings.ToLower(c.LastName), lower) ||
			strings.Contains(strings.ToLower(c.FullName()), lower) ||
			strings.Contains(strings.ToLower(c.Email), lower) ||
			strings.Contains(strings.ToLower(c.Phone), lower) ||
			(digits != "" && strings.Contains(domain.NormalizePhone(c.Phone), digits)) {
			matches = append(matches, *c)
		}
	}
	return matches, nil
}

func (r *memoryContactRepo) FindByID(_ context.Context, id uuid.UUID) (*domain.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	copied := *c
	return &copied, nil
}

func (r *memoryContactRepo) Create(_ context.Context, contact *domain.Contact) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.takeFailure(); err != nil {
		return uuid.Nil, err
	}
	if contact.ID == uuid.Nil {
		contact.ID = uuid.New()
	}
	copied := *contact
	r.items[contact.ID] = &copied
	r.order = append(r.order, contact.ID)
	return contact.ID, nil
}

func (r *memoryContactRepo) CreateBatch(ctx context.Context, contacts []domain.Contact) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(contacts))
	for i := range contacts {
		id, err := r.Create(ctx, &contacts[i])
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *memoryContactRepo) Update(_ context.Context, id uuid.UUID, contact *domain.Contact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.takeFailure(); err != nil {
		return err
	}
	if _, ok := r.items[id]; !ok {
		return errors.New("contact not found")
	}
	copied := *contact
	copied.ID = id
	r.items[id] = &copied
	return nil
}

func (r *memoryContactRepo) all() []domain.Contact {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Contact, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.items[id])
	}
	return out
}

type memoryFieldRepo struct {
	mu      sync.Mutex
	items   map[uuid.UUID]*domain.FieldDefinition
	order   []uuid.UUID
	listErr error
}

func newMemoryFieldRepo() *memoryFieldRepo {
	return &memoryFieldRepo{items: make(map[uuid.UUID]*domain.FieldDefinition)}
}

func (r *memoryFieldRepo) List(context.Context) ([]domain.FieldDefinition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]domain.FieldDefinition, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.items[id])
	}
	return out, nil
}

func (r *memoryFieldRepo) FindByFieldName(_ context.Context, fieldName string) (*domain.FieldDefinition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.order {
		if r.items[id].FieldName == fieldName {
			copied := *r.items[id]
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memoryFieldRepo) Create(_ context.Context, def *domain.FieldDefinition) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if def.ID == uuid.Nil {
		def.ID = uuid.New()
	}
	copied := *def
	r.items[def.ID] = &copied
	r.order = append(r.order, def.ID)
	return def.ID, nil
}

func (r *memoryFieldRepo) Update(_ context.Context, id uuid.UUID, label string, fieldType domain.FieldType, required bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	def, ok := r.items[id]
	if !ok {
		return errors.New("field not found")
	}
	if def.Core {
		return ports.ErrCoreFieldProtected
	}
	def.Label = label
	def.Type = fieldType
	def.Required = required
	return nil
}

func (r *memoryFieldRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	def, ok := r.items[id]
	if !ok {
		return errors.New("field not found")
	}
	if def.Core {
		return ports.ErrCoreFieldProtected
	}
	delete(r.items, id)
	for i, ordered := range r.order {
		if ordered == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

type memoryUserRepo struct {
	users   []domain.User
	listErr error
}

func (r *memoryUserRepo) List(context.Context) ([]domain.User, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.users, nil
}

func (r *memoryUserRepo) FindByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	for i := range r.users {
		if r.users[i].ID == id {
			return &r.users[i], nil
		}
	}
	return nil, nil
}

func (r *memoryUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	for i := range r.users {
		if strings.EqualFold(r.users[i].Email, email) {
			return &r.users[i], nil
		}
	}
	return nil, nil
}

type memoryStorage struct {
	uploads map[string][]byte
	err     error
}

func (s *memoryStorage) Upload(_ context.Context, bucket, objectName, _ string, reader io.Reader, _ int64) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	if s.uploads == nil {
		s.uploads = make(map[string][]byte)
	}
	s.uploads[bucket+"/"+objectName] = data
	return objectName, nil
}
