package domain

// RawTable is the normalized header+row grid produced by the tabular
// parser. Rows always have exactly len(Headers) cells; short rows are
// padded with empty strings at parse time. Immutable once produced.
type RawTable struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

func (t *RawTable) IsEmpty() bool {
	return len(t.Headers) == 0 || len(t.Rows) == 0
}

type FileType string

const (
	FileTypeCSV  FileType = "csv"
	FileTypeXLSX FileType = "xlsx"
	FileTypeXLS  FileType = "xls"
)

// ParsedFile is a RawTable plus upload metadata.
type ParsedFile struct {
	Table    RawTable `json:"table"`
	FileName string   `json:"file_name"`
	FileSize int64    `json:"file_size"`
	FileType FileType `json:"file_type"`
}

// ColumnMapping associates one source column with a target contact field.
// SuggestedField is a FieldDefinition fieldName, SuggestedNewCustomField,
// or empty when the column is left unmapped. Mutable during review,
// read-only input to reconciliation afterwards.
type ColumnMapping struct {
	ColumnIndex    int              `json:"column_index"`
	ColumnName     string           `json:"column_name"`
	SuggestedField string           `json:"suggested_field"`
	Confidence     int              `json:"confidence"`
	DataType       FieldType        `json:"data_type"`
	SampleData     []string         `json:"sample_data"`
	IsCustomField  bool             `json:"is_custom_field"`
	CustomField    *FieldDefinition `json:"custom_field,omitempty"`
}

// Resolved reports whether the mapping points at a concrete stored field.
func (m *ColumnMapping) Resolved() bool {
	return m.SuggestedField != "" && m.SuggestedField != SuggestedNewCustomField
}

// ConfidenceBand buckets a 0-100 score for display.
func ConfidenceBand(confidence int) string {
	switch {
	case confidence >= 90:
		return "high"
	case confidence >= 70:
		return "good"
	case confidence >= 50:
		return "medium"
	default:
		return "low"
	}
}

// ImportOutcome is the per-run summary of a reconciliation pass.
type ImportOutcome struct {
	Imported     int      `json:"imported"`
	Merged       int      `json:"merged"`
	Errors       int      `json:"errors"`
	ErrorDetails []string `json:"error_details,omitempty"`
}
