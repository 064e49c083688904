package service

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/contacthub/contacthub-api/internal/domain"
)

const (
	maxSampleValues   = 5
	maxTypeSamples    = 10
	customLabelMatch  = 75
	agentEmailMatch   = 85
	newFieldFallback  = 30
	fallbackKeyword   = 60
	corePatternCutoff = 50
)

var (
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern    = regexp.MustCompile(`^[\d\s\-\+\(\)\.]{7,}$`)
	numberPattern   = regexp.MustCompile(`^-?\d+(\.\d+)?$`)
	datePattern     = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}/\d{4}|\d{1,2}-\d{1,2}-\d{4})([T ].*)?$`)
	headerAtPattern = regexp.MustCompile(`@`)
	phoneHdrPattern = regexp.MustCompile(`\d{3}[\s\-\.]?\d{3,4}`)
)

var checkboxValues = map[string]bool{
	"true": true, "false": true, "yes": true, "no": true,
	"y": true, "n": true, "1": true, "0": true,
}

// corePattern is one row of the fixed matching table: header keywords,
// header regexes, and the shape sample values are expected to have.
type corePattern struct {
	fieldName string
	dataType  domain.FieldType
	keywords  []string
	patterns  []*regexp.Regexp
	shape     func(string) bool
}

var corePatterns = []corePattern{
	{
		fieldName: domain.FieldNameFirstName,
		dataType:  domain.FieldTypeText,
		keywords:  []string{"first name", "firstname", "first", "fname", "given"},
		shape:     looksLikeName,
	},
	{
		fieldName: domain.FieldNameLastName,
		dataType:  domain.FieldTypeText,
		keywords:  []string{"last name", "lastname", "last", "lname", "surname", "family"},
		shape:     looksLikeName,
	},
	{
		fieldName: domain.FieldNameEmail,
		dataType:  domain.FieldTypeEmail,
		keywords:  []string{"email", "e-mail", "mail", "address"},
		patterns:  []*regexp.Regexp{headerAtPattern},
		shape:     looksLikeEmail,
	},
	{
		fieldName: domain.FieldNamePhone,
		dataType:  domain.FieldTypePhone,
		keywords:  []string{"phone", "mobile", "cell", "telephone", "tel", "number"},
		patterns:  []*regexp.Regexp{phoneHdrPattern},
		shape:     looksLikePhone,
	},
	{
		fieldName: domain.FieldNameAgent,
		dataType:  domain.FieldTypeText,
		keywords:  []string{"agent", "assigned", "owner", "rep"},
		shape:     looksLikeEmail,
	},
}

// InferenceSnapshot is the read-only data the engine depends on, loaded once
// per import session and passed in explicitly.
type InferenceSnapshot struct {
	Fields []domain.FieldDefinition
	Users  []domain.User
}

// AnalyzeColumns proposes a target field for every column, sorted by
// confidence descending. Pure function of its inputs.
func AnalyzeColumns(headers []string, rows [][]string, snapshot InferenceSnapshot) []domain.ColumnMapping {
	mappings := make([]domain.ColumnMapping, 0, len(headers))
	for idx, header := range headers {
		samples := columnSamples(rows, idx, maxSampleValues)
		mapping := inferColumn(header, samples, snapshot)
		mapping.ColumnIndex = idx
		mappings = append(mappings, mapping)
	}
	sort.SliceStable(mappings, func(i, j int) bool {
		return mappings[i].Confidence > mappings[j].Confidence
	})
	return mappings
}

// inferColumn walks the rule chain in precedence order and takes the first
// rule that produces a usable suggestion.
func inferColumn(header string, samples []string, snapshot InferenceSnapshot) domain.ColumnMapping {
	if m, ok := matchCorePattern(header, samples); ok {
		return m
	}
	if m, ok := matchAgentEmail(header, samples, snapshot.Users); ok {
		return m
	}
	if m, ok := matchCustomField(header, samples, snapshot.Fields); ok {
		return m
	}
	return proposeCustomField(header, samples)
}

// matchCorePattern scores the header against every row of the core table and
// keeps the best-scoring field, provided its confidence clears the cutoff.
func matchCorePattern(header string, samples []string) (domain.ColumnMapping, bool) {
	best := domain.ColumnMapping{}
	bestScore := 0
	for _, pat := range corePatterns {
		score := scoreCorePattern(header, samples, pat)
		if score > bestScore {
			bestScore = score
			best = domain.ColumnMapping{
				ColumnName:     header,
				SuggestedField: pat.fieldName,
				Confidence:     score,
				DataType:       pat.dataType,
				SampleData:     samples,
			}
		}
	}
	if bestScore <= corePatternCutoff {
		return domain.ColumnMapping{}, false
	}
	return best, true
}

// scoreCorePattern computes 0.4*header-similarity + 0.6*data-shape plus a
// 20 point bonus for an exact field-name header, capped at 100.
func scoreCorePattern(header string, samples []string, pat corePattern) int {
	lower := strings.ToLower(strings.TrimSpace(header))

	headerScore := 0.0
	for _, kw := range pat.keywords {
		if strings.Contains(lower, kw) {
			ratio := float64(len(kw)) / float64(len(lower)) * 100
			if ratio > 100 {
				ratio = 100
			}
			if ratio > headerScore {
				headerScore = ratio
			}
		}
	}
	for _, re := range pat.patterns {
		if re.MatchString(lower) && headerScore < 80 {
			headerScore = 80
		}
	}
	if headerScore == 0 {
		return 0
	}

	dataScore := shapePercentage(samples, pat.shape)

	score := 0.4*headerScore + 0.6*dataScore
	if strings.EqualFold(strings.TrimSpace(header), pat.fieldName) {
		score += 20
	}
	if score > 100 {
		score = 100
	}
	return int(math.Round(score))
}

// matchAgentEmail maps a column of email addresses to the assigned-agent
// field when at least one value belongs to a known user.
func matchAgentEmail(header string, samples []string, users []domain.User) (domain.ColumnMapping, bool) {
	if len(users) == 0 {
		return domain.ColumnMapping{}, false
	}
	known := make(map[string]bool, len(users))
	for _, u := range users {
		known[domain.NormalizeEmail(u.Email)] = true
	}
	for _, v := range samples {
		if !looksLikeEmail(v) {
			continue
		}
		if known[domain.NormalizeEmail(v)] {
			return domain.ColumnMapping{
				ColumnName:     header,
				SuggestedField: domain.FieldNameAgent,
				Confidence:     agentEmailMatch,
				DataType:       domain.FieldTypeEmail,
				SampleData:     samples,
			}, true
		}
	}
	return domain.ColumnMapping{}, false
}

// matchCustomField reuses an existing non-core definition when the header
// text is a substring of its label or contains it.
func matchCustomField(header string, samples []string, fields []domain.FieldDefinition) (domain.ColumnMapping, bool) {
	lower := strings.ToLower(strings.TrimSpace(header))
	if lower == "" {
		return domain.ColumnMapping{}, false
	}
	for _, def := range fields {
		if def.Core {
			continue
		}
		label := strings.ToLower(strings.TrimSpace(def.Label))
		if label == "" {
			continue
		}
		if strings.Contains(label, lower) || strings.Contains(lower, label) {
			return domain.ColumnMapping{
				ColumnName:     header,
				SuggestedField: def.FieldName,
				Confidence:     customLabelMatch,
				DataType:       def.Type,
				SampleData:     samples,
				IsCustomField:  true,
			}, true
		}
	}
	return domain.ColumnMapping{}, false
}

// proposeCustomField is the fallback: suggest creating a new field from the
// header at fixed low confidence.
func proposeCustomField(header string, samples []string) domain.ColumnMapping {
	draft := &domain.FieldDefinition{
		Label:     titleCaseWords(header),
		FieldName: collapseFieldName(header),
		Type:      DetectDataType(samples),
	}
	return domain.ColumnMapping{
		ColumnName:     header,
		SuggestedField: domain.SuggestedNewCustomField,
		Confidence:     newFieldFallback,
		DataType:       draft.Type,
		SampleData:     samples,
		IsCustomField:  true,
		CustomField:    draft,
	}
}

// DetectDataType classifies up to ten sample values. Every value must match
// a shape for the column to take that type; anything mixed is text.
func DetectDataType(samples []string) domain.FieldType {
	values := nonEmpty(samples, maxTypeSamples)
	if len(values) == 0 {
		return domain.FieldTypeText
	}
	if all(values, looksLikeEmail) {
		return domain.FieldTypeEmail
	}
	if all(values, looksLikePhone) {
		return domain.FieldTypePhone
	}
	if all(values, looksLikeDate) {
		return domain.FieldTypeDatetime
	}
	if all(values, looksLikeNumber) {
		return domain.FieldTypeNumber
	}
	if all(values, looksLikeCheckbox) {
		return domain.FieldTypeCheckbox
	}
	return domain.FieldTypeText
}

// FallbackAnalyze is the degraded matcher used when the field/user snapshot
// cannot be loaded: header keywords only, fixed confidence, so the import
// flow is never blocked on inference dependencies.
func FallbackAnalyze(headers []string, rows [][]string) []domain.ColumnMapping {
	fallbacks := []struct {
		keyword   string
		fieldName string
		dataType  domain.FieldType
	}{
		{"first", domain.FieldNameFirstName, domain.FieldTypeText},
		{"last", domain.FieldNameLastName, domain.FieldTypeText},
		{"email", domain.FieldNameEmail, domain.FieldTypeEmail},
		{"phone", domain.FieldNamePhone, domain.FieldTypePhone},
	}

	mappings := make([]domain.ColumnMapping, 0, len(headers))
	for idx, header := range headers {
		samples := columnSamples(rows, idx, maxSampleValues)
		lower := strings.ToLower(header)

		mapping := domain.ColumnMapping{
			ColumnIndex: idx,
			ColumnName:  header,
			DataType:    DetectDataType(samples),
			SampleData:  samples,
		}
		for _, fb := range fallbacks {
			if strings.Contains(lower, fb.keyword) {
				mapping.SuggestedField = fb.fieldName
				mapping.Confidence = fallbackKeyword
				mapping.DataType = fb.dataType
				break
			}
		}
		if mapping.SuggestedField == "" && strings.Contains(lower, "company") {
			mapping.SuggestedField = domain.SuggestedNewCustomField
			mapping.Confidence = fallbackKeyword
			mapping.IsCustomField = true
			mapping.CustomField = &domain.FieldDefinition{
				Label:     titleCaseWords(header),
				FieldName: collapseFieldName(header),
				Type:      domain.FieldTypeText,
			}
		}
		mappings = append(mappings, mapping)
	}
	sort.SliceStable(mappings, func(i, j int) bool {
		return mappings[i].Confidence > mappings[j].Confidence
	})
	return mappings
}

func columnSamples(rows [][]string, col, max int) []string {
	samples := make([]string, 0, max)
	for _, row := range rows {
		if col >= len(row) {
			continue
		}
		v := strings.TrimSpace(row[col])
		if v == "" {
			continue
		}
		samples = append(samples, v)
		if len(samples) == max {
			break
		}
	}
	return samples
}

func shapePercentage(samples []string, shape func(string) bool) float64 {
	values := nonEmpty(samples, maxTypeSamples)
	if len(values) == 0 || shape == nil {
		return 0
	}
	matched := 0
	for _, v := range values {
		if shape(v) {
			matched++
		}
	}
	return float64(matched) / float64(len(values)) * 100
}

func nonEmpty(samples []string, max int) []string {
	out := make([]string, 0, len(samples))
	for _, s := range samples {
		v := strings.TrimSpace(s)
		if v == "" {
			continue
		}
		out = append(out, v)
		if len(out) == max {
			break
		}
	}
	return out
}

func all(values []string, pred func(string) bool) bool {
	for _, v := range values {
		if !pred(v) {
			return false
		}
	}
	return true
}

func looksLikeEmail(v string) bool {
	return emailPattern.MatchString(strings.TrimSpace(v))
}

func looksLikePhone(v string) bool {
	v = strings.TrimSpace(v)
	if !phonePattern.MatchString(v) {
		return false
	}
	return len(domain.NormalizePhone(v)) >= 10
}

func looksLikeDate(v string) bool {
	return datePattern.MatchString(strings.TrimSpace(v))
}

func looksLikeNumber(v string) bool {
	return numberPattern.MatchString(strings.TrimSpace(v))
}

func looksLikeCheckbox(v string) bool {
	return checkboxValues[strings.ToLower(strings.TrimSpace(v))]
}

func looksLikeName(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" || len(v) > 64 || strings.ContainsRune(v, '@') {
		return false
	}
	for _, r := range v {
		if unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// titleCaseWords turns a raw header into a display label: words split on
// whitespace, underscores, and dashes, each capitalized.
func titleCaseWords(header string) string {
	words := strings.FieldsFunc(header, func(r rune) bool {
		return r == ' ' || r == '_' || r == '-' || r == '\t'
	})
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		if len(runes) > 0 {
			runes[0] = unicode.ToUpper(runes[0])
		}
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

// collapseFieldName derives an internal identifier from a header: lowercase
// alphanumerics only, capped at 20 characters.
func collapseFieldName(header string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(header) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			if b.Len() == 20 {
				break
			}
		}
	}
	if b.Len() == 0 {
		return "field"
	}
	return b.String()
}
