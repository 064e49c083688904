package service

import (
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/contacthub/contacthub-api/internal/domain"
)

func TestParseTableCSV(t *testing.T) {
	csvData := strings.Join([]string{
		"First Name, Last Name ,Email",
		"Jane,Doe,jane@example.com",
		"Bob",
		"Ann,Lee,ann@example.com,extra-cell",
		",,",
		"",
	}, "\n")

	parsed, err := ParseTable("contacts.csv", []byte(csvData), DefaultParseOptions())
	if err != nil {
		t.Fatalf("ParseTable returned error: %v", err)
	}
	if parsed.FileType != domain.FileTypeCSV {
		t.Fatalf("expected csv file type, got %s", parsed.FileType)
	}

	wantHeaders := []string{"First Name", "Last Name", "Email"}
	if len(parsed.Table.Headers) != len(wantHeaders) {
		t.Fatalf("expected %d headers, got %v", len(wantHeaders), parsed.Table.Headers)
	}
	for i, h := range wantHeaders {
		if parsed.Table.Headers[i] != h {
			t.Fatalf("header %d: expected %q, got %q", i, h, parsed.Table.Headers[i])
		}
	}

	// Empty rows are skipped; short rows padded; long rows truncated.
	if len(parsed.Table.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(parsed.Table.Rows))
	}
	for i, row := range parsed.Table.Rows {
		if len(row) != 3 {
			t.Fatalf("row %d: expected width 3, got %d", i, len(row))
		}
	}
	if parsed.Table.Rows[1][1] != "" || parsed.Table.Rows[1][2] != "" {
		t.Fatalf("expected short row to be padded, got %v", parsed.Table.Rows[1])
	}
	if parsed.Table.Rows[2][0] != "Ann" || parsed.Table.Rows[2][2] != "ann@example.com" {
		t.Fatalf("expected long row truncated to header width, got %v", parsed.Table.Rows[2])
	}
}

func TestParseTableInteriorBlankHeader(t *testing.T) {
	csvData := strings.Join([]string{
		"First Name,,Email",
		"Jane,ignored,jane@example.com",
		"Bob,,bob@example.com",
	}, "\n")

	parsed, err := ParseTable("contacts.csv", []byte(csvData), DefaultParseOptions())
	if err != nil {
		t.Fatalf("ParseTable returned error: %v", err)
	}
	if len(parsed.Table.Headers) != 2 || parsed.Table.Headers[1] != "Email" {
		t.Fatalf("expected blank header dropped, got %v", parsed.Table.Headers)
	}
	// Cells under the blank header are dropped too, so the remaining columns
	// keep their alignment.
	if parsed.Table.Rows[0][0] != "Jane" || parsed.Table.Rows[0][1] != "jane@example.com" {
		t.Fatalf("expected cells to stay under their headers, got %v", parsed.Table.Rows[0])
	}
	if parsed.Table.Rows[1][1] != "bob@example.com" {
		t.Fatalf("expected cells to stay under their headers, got %v", parsed.Table.Rows[1])
	}
}

func TestParseTableRowCap(t *testing.T) {
	var b strings.Builder
	b.WriteString("Name,Email\n")
	for i := 0; i < 10; i++ {
		b.WriteString("Jane,jane@example.com\n")
	}

	opts := DefaultParseOptions()
	opts.MaxRows = 4
	parsed, err := ParseTable("contacts.csv", []byte(b.String()), opts)
	if err != nil {
		t.Fatalf("ParseTable returned error: %v", err)
	}
	if len(parsed.Table.Rows) != 4 {
		t.Fatalf("expected row cap of 4, got %d", len(parsed.Table.Rows))
	}
}

func TestParseTableUnsupportedExtension(t *testing.T) {
	_, err := ParseTable("contacts.pdf", []byte("irrelevant"), DefaultParseOptions())
	if !errors.Is(err, ErrUnsupportedFileType) {
		t.Fatalf("expected ErrUnsupportedFileType, got %v", err)
	}
}

func TestParseTableHeaderOnly(t *testing.T) {
	_, err := ParseTable("contacts.csv", []byte("Name,Email\n"), DefaultParseOptions())
	if !errors.Is(err, ErrEmptyFile) {
		t.Fatalf("expected ErrEmptyFile for header-only file, got %v", err)
	}
}

func TestParseTableXLSX(t *testing.T) {
	book := excelize.NewFile()
	sheet := book.GetSheetName(0)
	cells := [][]string{
		{"First Name", "Email"},
		{"Jane", "jane@example.com"},
		{"", ""},
		{"Bob", "bob@example.com"},
	}
	for r, row := range cells {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			if err := book.SetCellValue(sheet, cell, value); err != nil {
				t.Fatalf("set cell: %v", err)
			}
		}
	}
	buf, err := book.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	parsed, err := ParseTable("contacts.xlsx", buf.Bytes(), DefaultParseOptions())
	if err != nil {
		t.Fatalf("ParseTable returned error: %v", err)
	}
	if parsed.FileType != domain.FileTypeXLSX {
		t.Fatalf("expected xlsx file type, got %s", parsed.FileType)
	}
	if len(parsed.Table.Headers) != 2 {
		t.Fatalf("expected 2 headers, got %v", parsed.Table.Headers)
	}
	if len(parsed.Table.Rows) != 2 {
		t.Fatalf("expected blank workbook row skipped, got %d rows", len(parsed.Table.Rows))
	}
	if parsed.Table.Rows[1][0] != "Bob" {
		t.Fatalf("expected Bob in second row, got %v", parsed.Table.Rows[1])
	}
}

func TestValidateUpload(t *testing.T) {
	if v := ValidateUpload("", 100); v.Valid {
		t.Fatalf("expected rejection for missing file name")
	}
	if v := ValidateUpload("contacts.csv", MaxUploadBytes+1); v.Valid {
		t.Fatalf("expected rejection for oversized file")
	}
	if v := ValidateUpload("contacts.txt", 100); v.Valid {
		t.Fatalf("expected rejection for unsupported extension")
	}
	if v := ValidateUpload("Contacts.XLSX", 100); !v.Valid {
		t.Fatalf("expected mixed-case extension to be accepted, got %q", v.Error)
	}
}
