package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/contacthub/contacthub-api/internal/domain"
)

type ContactRepository struct {
	db *sqlx.DB
}

func NewContactRepo(db *sqlx.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

type contactRow struct {
	ID         uuid.UUID  `db:"id"`
	FirstName  string     `db:"first_name"`
	LastName   string     `db:"last_name"`
	Phone      string     `db:"phone"`
	Email      string     `db:"email"`
	AgentID    *uuid.UUID `db:"agent_id"`
	Source     string     `db:"source"`
	CustomJSON []byte     `db:"custom"`
	CreatedAt  time.Time  `db:"created_at"`
	UpdatedAt  *time.Time `db:"updated_at"`
}

func (r contactRow) toDomain() (domain.Contact, error) {
	contact := domain.Contact{
		ID:        r.ID,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Phone:     r.Phone,
		Email:     r.Email,
		AgentID:   r.AgentID,
		Source:    domain.ContactSource(r.Source),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if len(r.CustomJSON) > 0 {
		if err := json.Unmarshal(r.CustomJSON, &contact.Custom); err != nil {
			return contact, err
		}
	}
	return contact, nil
}

func customJSON(contact *domain.Contact) ([]byte, error) {
	if len(contact.Custom) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(contact.Custom)
}

// Search matches term as a substring against names, email, and phone. The
// phone comparison also runs against the digits-only form so normalized
// lookups hit records stored with separators.
func (r *ContactRepository) Search(ctx context.Context, term string) ([]domain.Contact, error) {
	const query = `
        SELECT id, first_name, last_name, phone, email, agent_id, source, custom, created_at, updated_at
        FROM contact
        WHERE first_name ILIKE '%' || $1 || '%'
           OR last_name ILIKE '%' || $1 || '%'
           OR (first_name || ' ' || last_name) ILIKE '%' || $1 || '%'
           OR email ILIKE '%' || $1 || '%'
           OR phone ILIKE '%' || $1 || '%'
           OR regexp_replace(phone, '\D', '', 'g') LIKE '%' || $2 || '%'
        ORDER BY created_at
        LIMIT 100
    `
	var rows []contactRow
	if err := r.db.SelectContext(ctx, &rows, query, term, domain.NormalizePhone(term)); err != nil {
		return nil, err
	}
	contacts := make([]domain.Contact, 0, len(rows))
	for _, row := range rows {
		contact, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, contact)
	}
	return contacts, nil
}

func (r *ContactRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Contact, error) {
	const query = `
        SELECT id, first_name, last_name, phone, email, agent_id, source, custom, created_at, updated_at
        FROM contact
        WHERE id = $1
    `
	var row contactRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	contact, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

func (r *ContactRepository) Create(ctx context.Context, contact *domain.Contact) (uuid.UUID, error) {
	custom, err := customJSON(contact)
	if err != nil {
		return uuid.Nil, err
	}
	const query = `
        INSERT INTO contact (id, first_name, last_name, phone, email, agent_id, source, custom, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING id
    `
	var id uuid.UUID
	err = r.db.QueryRowxContext(ctx, query,
		contact.ID, contact.FirstName, contact.LastName, contact.Phone, contact.Email,
		contact.AgentID, contact.Source, custom, contact.CreatedAt, contact.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// CreateBatch inserts many contacts in one round trip via UNNEST.
func (r *ContactRepository) CreateBatch(ctx context.Context, contacts []domain.Contact) ([]uuid.UUID, error) {
	if len(contacts) == 0 {
		return nil, nil
	}
	ids := make([]string, len(contacts))
	firsts := make([]string, len(contacts))
	lasts := make([]string, len(contacts))
	phones := make([]string, len(contacts))
	emails := make([]string, len(contacts))
	agents := make([]string, len(contacts))
	sources := make([]string, len(contacts))
	customs := make([]string, len(contacts))
	created := make([]time.Time, len(contacts))

	for i := range contacts {
		c := &contacts[i]
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		custom, err := customJSON(c)
		if err != nil {
			return nil, err
		}
		ids[i] = c.ID.String()
		firsts[i] = c.FirstName
		lasts[i] = c.LastName
		phones[i] = c.Phone
		emails[i] = c.Email
		if c.AgentID != nil {
			agents[i] = c.AgentID.String()
		}
		sources[i] = string(c.Source)
		customs[i] = string(custom)
		created[i] = c.CreatedAt
	}

	const query = `
        INSERT INTO contact (id, first_name, last_name, phone, email, agent_id, source, custom, created_at, updated_at)
        SELECT t.id::uuid, t.first_name, t.last_name, t.phone, t.email,
               NULLIF(t.agent_id, '')::uuid, t.source, t.custom::jsonb, t.created_at, t.created_at
        FROM UNNEST($1::text[], $2::text[], $3::text[], $4::text[], $5::text[], $6::text[], $7::text[], $8::text[], $9::timestamptz[])
             AS t(id, first_name, last_name, phone, email, agent_id, source, custom, created_at)
        RETURNING id
    `
	rows, err := r.db.QueryxContext(ctx, query,
		pq.Array(ids), pq.Array(firsts), pq.Array(lasts), pq.Array(phones), pq.Array(emails),
		pq.Array(agents), pq.Array(sources), pq.Array(customs), pq.Array(created),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	inserted := make([]uuid.UUID, 0, len(contacts))
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		inserted = append(inserted, id)
	}
	return inserted, rows.Err()
}

func (r *ContactRepository) Update(ctx context.Context, id uuid.UUID, contact *domain.Contact) error {
	custom, err := customJSON(contact)
	if err != nil {
		return err
	}
	const query = `
        UPDATE contact
        SET first_name = $2,
            last_name = $3,
            phone = $4,
            email = $5,
            agent_id = $6,
            custom = $7,
            updated_at = $8
        WHERE id = $1
    `
	result, err := r.db.ExecContext(ctx, query,
		id, contact.FirstName, contact.LastName, contact.Phone, contact.Email,
		contact.AgentID, custom, contact.UpdatedAt,
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
