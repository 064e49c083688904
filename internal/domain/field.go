package domain

import (
	"time"

	"github.com/google/uuid"
)

type FieldType string

const (
	FieldTypeText     FieldType = "text"
	FieldTypeNumber   FieldType = "number"
	FieldTypePhone    FieldType = "phone"
	FieldTypeEmail    FieldType = "email"
	FieldTypeDatetime FieldType = "datetime"
	FieldTypeCheckbox FieldType = "checkbox"
)

// Canonical fieldName values for the five system-protected definitions.
const (
	FieldNameFirstName = "firstName"
	FieldNameLastName  = "lastName"
	FieldNamePhone     = "phone"
	FieldNameEmail     = "email"
	FieldNameAgent     = "agentUid"
)

// SuggestedNewCustomField is the sentinel a ColumnMapping carries when the
// inference engine proposes creating a field rather than reusing one.
const SuggestedNewCustomField = "new_custom_field"

type FieldDefinition struct {
	ID        uuid.UUID `db:"id" json:"id" firestore:"id"`
	Label     string    `db:"label" json:"label" firestore:"label"`
	FieldName string    `db:"field_name" json:"field_name" firestore:"fieldName"`
	Type      FieldType `db:"field_type" json:"type" firestore:"type"`
	Core      bool      `db:"core" json:"core" firestore:"core"`
	Required  bool      `db:"required" json:"required" firestore:"required"`
	CreatedAt time.Time `db:"created_at" json:"created_at" firestore:"createdOn"`
}

// CoreFieldDefinitions returns the fixed set seeded at initialization.
// These cannot be edited or deleted.
func CoreFieldDefinitions() []FieldDefinition {
	return []FieldDefinition{
		{Label: "First Name", FieldName: FieldNameFirstName, Type: FieldTypeText, Core: true, Required: true},
		{Label: "Last Name", FieldName: FieldNameLastName, Type: FieldTypeText, Core: true, Required: true},
		{Label: "Phone", FieldName: FieldNamePhone, Type: FieldTypePhone, Core: true, Required: true},
		{Label: "Email", FieldName: FieldNameEmail, Type: FieldTypeEmail, Core: true, Required: true},
		{Label: "Assigned Agent", FieldName: FieldNameAgent, Type: FieldTypeText, Core: true, Required: false},
	}
}
