package service

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/contacthub/contacthub-api/internal/domain"
)

var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrEmptyFile           = errors.New("file contains no headers or rows")
)

const MaxUploadBytes = 10 * 1024 * 1024

// acceptedExtensions maps lowercased upload extensions to the file type the
// parser will treat them as. Legacy .xls workbooks are routed through the
// same reader; ones it cannot decode surface as a parse error.
var acceptedExtensions = map[string]domain.FileType{
	".csv":  domain.FileTypeCSV,
	".xlsx": domain.FileTypeXLSX,
	".xls":  domain.FileTypeXLS,
}

type ParseOptions struct {
	MaxRows        int
	SkipEmptyRows  bool
	TrimWhitespace bool
}

func DefaultParseOptions() ParseOptions {
	return ParseOptions{
		MaxRows:        1000,
		SkipEmptyRows:  true,
		TrimWhitespace: true,
	}
}

// UploadValidation is the structured result of pre-parse validation. It is
// always populated, never an error value.
type UploadValidation struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// ValidateUpload rejects a file before any parse work is committed to:
// missing name, oversized payload, or an extension outside the accepted set.
func ValidateUpload(fileName string, fileSize int64) UploadValidation {
	if strings.TrimSpace(fileName) == "" {
		return UploadValidation{Error: "file has no name"}
	}
	if fileSize > MaxUploadBytes {
		return UploadValidation{Error: fmt.Sprintf("file exceeds maximum size of %d bytes", MaxUploadBytes)}
	}
	ext := strings.ToLower(filepath.Ext(fileName))
	if _, ok := acceptedExtensions[ext]; !ok {
		return UploadValidation{Error: "file type must be csv, xlsx, or xls"}
	}
	return UploadValidation{Valid: true}
}

// ParseTable converts uploaded bytes into a normalized header+row grid.
// Pure transform: no storage involved.
func ParseTable(fileName string, contents []byte, opts ParseOptions) (*domain.ParsedFile, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	fileType, ok := acceptedExtensions[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFileType, ext)
	}

	var (
		headers []string
		rows    [][]string
		err     error
	)
	if fileType == domain.FileTypeCSV {
		headers, rows, err = parseCSV(contents, opts)
	} else {
		headers, rows, err = parseWorkbook(contents, opts)
	}
	if err != nil {
		return nil, err
	}

	headers, keep := cleanHeaders(headers, opts.TrimWhitespace)
	if len(headers) == 0 || len(rows) == 0 {
		return nil, ErrEmptyFile
	}
	if opts.MaxRows > 0 && len(rows) > opts.MaxRows {
		rows = rows[:opts.MaxRows]
	}
	for i, row := range rows {
		rows[i] = fitRow(row, keep, opts.TrimWhitespace)
	}

	return &domain.ParsedFile{
		Table:    domain.RawTable{Headers: headers, Rows: rows},
		FileName: fileName,
		FileSize: int64(len(contents)),
		FileType: fileType,
	}, nil
}

func parseCSV(contents []byte, opts ParseOptions) ([]string, [][]string, error) {
	reader := csv.NewReader(bytes.NewReader(contents))
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, ErrEmptyFile
		}
		return nil, nil, err
	}

	rows := make([][]string, 0)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		if opts.SkipEmptyRows && isRecordEmpty(record) {
			continue
		}
		rows = append(rows, record)
	}
	return header, rows, nil
}

// parseWorkbook reads the first worksheet only; other sheets are ignored and
// every cell is coerced to text.
func parseWorkbook(contents []byte, opts ParseOptions) ([]string, [][]string, error) {
	book, err := excelize.OpenReader(bytes.NewReader(contents))
	if err != nil {
		return nil, nil, err
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, ErrEmptyFile
	}
	cells, err := book.GetRows(sheets[0])
	if err != nil {
		return nil, nil, err
	}
	if len(cells) == 0 {
		return nil, nil, ErrEmptyFile
	}

	header := cells[0]
	rows := make([][]string, 0, len(cells)-1)
	for _, record := range cells[1:] {
		if opts.SkipEmptyRows && isRecordEmpty(record) {
			continue
		}
		rows = append(rows, record)
	}
	return header, rows, nil
}

// cleanHeaders drops blank headers and returns the surviving names together
// with their source column indexes, so row cells stay aligned with the
// headers they sat under even when an interior header is blank.
func cleanHeaders(headers []string, trim bool) ([]string, []int) {
	out := make([]string, 0, len(headers))
	keep := make([]int, 0, len(headers))
	for i, h := range headers {
		if trim {
			h = strings.TrimSpace(h)
		}
		if h == "" {
			continue
		}
		out = append(out, h)
		keep = append(keep, i)
	}
	return out, keep
}

// fitRow projects a record onto the kept header columns, padding missing
// cells with empty strings and dropping cells under blank or excess headers.
func fitRow(record []string, keep []int, trim bool) []string {
	out := make([]string, len(keep))
	for j, i := range keep {
		if i < len(record) {
			if trim {
				out[j] = strings.TrimSpace(record[i])
			} else {
				out[j] = record[i]
			}
		}
	}
	return out
}

func isRecordEmpty(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
