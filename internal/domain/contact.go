package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type ContactSource string

const (
	ContactSourceImport ContactSource = "import"
	ContactSourceManual ContactSource = "manual"
)

type Contact struct {
	ID        uuid.UUID         `db:"id" json:"id" firestore:"id"`
	FirstName string            `db:"first_name" json:"first_name" firestore:"firstName"`
	LastName  string            `db:"last_name" json:"last_name" firestore:"lastName"`
	Phone     string            `db:"phone" json:"phone" firestore:"phone"`
	Email     string            `db:"email" json:"email" firestore:"email"`
	AgentID   *uuid.UUID        `db:"agent_id" json:"agent_id,omitempty" firestore:"agentUid,omitempty"`
	Source    ContactSource     `db:"source" json:"source" firestore:"source"`
	Custom    map[string]string `db:"-" json:"custom,omitempty" firestore:"custom,omitempty"`
	CreatedAt time.Time         `db:"created_at" json:"created_at" firestore:"createdOn"`
	UpdatedAt *time.Time        `db:"updated_at" json:"updated_at,omitempty" firestore:"updatedOn,omitempty"`
}

func (c *Contact) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// NormalizeEmail lowercases and trims an email for identity comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhone strips every non-digit character.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
