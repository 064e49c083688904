package http

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/contacthub/contacthub-api/internal/domain"
	"github.com/contacthub/contacthub-api/internal/service"
	"github.com/contacthub/contacthub-api/internal/util"
)

type ImportHandler struct {
	sessions      *service.ImportSessionService
	maxUploadSize int64
}

func RegisterImports(e *echo.Echo, auth *service.AuthService, sessions *service.ImportSessionService, maxUpload int64) {
	handler := &ImportHandler{
		sessions:      sessions,
		maxUploadSize: maxUpload,
	}

	group := e.Group("/api/v1/imports", RequireAuth(auth))
	group.GET("/template", handler.template)
	group.POST("", handler.upload)
	group.GET("/:id", handler.get)
	group.POST("/:id/analyze", handler.analyze)
	group.PUT("/:id/mappings", handler.setMapping)
	group.DELETE("/:id/mappings/:column", handler.resetMapping)
	group.POST("/:id/custom-fields", handler.createCustomField)
	group.POST("/:id/advance", handler.advance)
	group.POST("/:id/back", handler.back)
	group.POST("/:id/run", handler.run)
	group.GET("/:id/errors", handler.downloadErrors)
}

func (h *ImportHandler) template(c echo.Context) error {
	headers := []string{"First Name", "Last Name", "Email", "Phone", "Company", "Lead Score", "Assigned Agent"}
	sampleRow := []string{"Jane", "Doe", "jane.doe@example.com", "555-0100", "Acme Corp", "85", "agent@example.com"}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	_ = writer.Write(headers)
	_ = writer.Write(sampleRow)
	writer.Flush()

	if err := writer.Error(); err != nil {
		return c.JSON(http.StatusInternalServerError, util.Error("could not generate template"))
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="contact-import-template.csv"`)
	return c.Blob(http.StatusOK, "text/csv", buf.Bytes())
}

func (h *ImportHandler) upload(c echo.Context) error {
	user, ok := CurrentUser(c)
	if !ok || user == nil {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}

	file, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("file is required"))
	}
	src, err := file.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("unable to read upload"))
	}
	defer src.Close()

	limit := h.maxUploadSize
	if limit <= 0 {
		limit = service.MaxUploadBytes
	}
	data, err := io.ReadAll(io.LimitReader(src, limit+1))
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("failed reading upload"))
	}
	if int64(len(data)) > limit {
		return c.JSON(http.StatusRequestEntityTooLarge, util.Errorf("upload exceeds the %d byte limit", limit))
	}

	session, err := h.sessions.Upload(c.Request().Context(), user.ID, file.Filename, data)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusCreated, util.Data("session", buildSession(session)))
}

func (h *ImportHandler) get(c echo.Context) error {
	session, err := h.session(c)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, util.Data("session", buildSession(session)))
}

func (h *ImportHandler) analyze(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid session id"))
	}
	session, err := h.sessions.Analyze(c.Request().Context(), id)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, util.Data("session", buildSession(session)))
}

func (h *ImportHandler) setMapping(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid session id"))
	}
	var req struct {
		ColumnName string `json:"column_name"`
		FieldName  string `json:"field_name"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}
	if err := h.sessions.SetMapping(id, req.ColumnName, req.FieldName); err != nil {
		return h.writeError(c, err)
	}
	session, err := h.sessions.Get(id)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, util.Data("session", buildSession(session)))
}

func (h *ImportHandler) resetMapping(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid session id"))
	}
	column := c.Param("column")
	if err := h.sessions.ResetMapping(id, column); err != nil {
		return h.writeError(c, err)
	}
	session, err := h.sessions.Get(id)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, util.Data("session", buildSession(session)))
}

func (h *ImportHandler) createCustomField(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid session id"))
	}
	var req struct {
		ColumnName string `json:"column_name"`
		Label      string `json:"label"`
		FieldName  string `json:"field_name"`
		Type       string `json:"type"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}
	draft := domain.FieldDefinition{
		Label:     strings.TrimSpace(req.Label),
		FieldName: strings.TrimSpace(req.FieldName),
		Type:      domain.FieldType(req.Type),
	}
	created, err := h.sessions.CreateCustomField(c.Request().Context(), id, req.ColumnName, draft)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusCreated, util.Data("field", created))
}

func (h *ImportHandler) advance(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid session id"))
	}
	session, err := h.sessions.Advance(id)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, util.Data("session", buildSession(session)))
}

func (h *ImportHandler) back(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid session id"))
	}
	var req struct {
		Step string `json:"step"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}
	session, err := h.sessions.Back(id, domain.ImportStep(req.Step))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, util.Data("session", buildSession(session)))
}

func (h *ImportHandler) run(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid session id"))
	}
	session, err := h.sessions.Run(c.Request().Context(), id)
	if err != nil {
		if session != nil && session.Outcome != nil {
			// Partial counts survive a mid-run storage failure.
			return c.JSON(http.StatusInternalServerError, util.Envelope{
				"error":   err.Error(),
				"session": buildSession(session),
			})
		}
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, util.Data("session", buildSession(session)))
}

func (h *ImportHandler) downloadErrors(c echo.Context) error {
	session, err := h.session(c)
	if err != nil {
		return h.writeError(c, err)
	}
	if session.Outcome == nil {
		return c.JSON(http.StatusNotFound, util.Error("no import run recorded"))
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	_ = writer.Write([]string{"row", "error"})
	for _, detail := range session.Outcome.ErrorDetails {
		row, message := splitRowDetail(detail)
		_ = writer.Write([]string{row, message})
	}
	writer.Flush()

	if err := writer.Error(); err != nil {
		return c.JSON(http.StatusInternalServerError, util.Error("could not generate csv"))
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="import-errors.csv"`)
	return c.Blob(http.StatusOK, "text/csv", buf.Bytes())
}

var errInvalidSessionID = errors.New("invalid session id")

func (h *ImportHandler) session(c echo.Context) (*service.ImportSession, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, errInvalidSessionID
	}
	return h.sessions.Get(id)
}

// splitRowDetail breaks a "Row N: message" detail into its columns. Details
// without the prefix land wholly in the error column.
func splitRowDetail(detail string) (string, string) {
	if !strings.HasPrefix(detail, "Row ") {
		return "", detail
	}
	rest := strings.TrimPrefix(detail, "Row ")
	num, message, found := strings.Cut(rest, ": ")
	if !found {
		return "", detail
	}
	return num, message
}

func (h *ImportHandler) writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return c.JSON(http.StatusNotFound, util.Error(err.Error()))
	case errors.Is(err, service.ErrInvalidUpload),
		errors.Is(err, service.ErrUnsupportedFileType),
		errors.Is(err, service.ErrEmptyFile),
		errors.Is(err, service.ErrUnknownColumn):
		return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
	case errors.Is(err, service.ErrIllegalTransition):
		return c.JSON(http.StatusConflict, util.Error(err.Error()))
	case errors.Is(err, service.ErrNotAnalyzed),
		errors.Is(err, service.ErrNoResolvedMapping),
		errors.Is(err, service.ErrInvalidFieldName):
		return c.JSON(http.StatusUnprocessableEntity, util.Error(err.Error()))
	case errors.Is(err, service.ErrFieldNameTaken):
		return c.JSON(http.StatusConflict, util.Error(err.Error()))
	case errors.Is(err, errInvalidSessionID):
		return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
	default:
		return c.JSON(http.StatusInternalServerError, util.Error("internal error"))
	}
}

func buildSession(session *service.ImportSession) util.Envelope {
	resp := util.Envelope{
		"id":         session.ID,
		"step":       session.Step,
		"processed":  session.Processed,
		"total":      session.Total,
		"created_at": session.CreatedAt,
	}
	if session.File != nil {
		resp["file"] = util.Envelope{
			"file_name": session.File.FileName,
			"file_size": session.File.FileSize,
			"file_type": session.File.FileType,
			"headers":   session.File.Table.Headers,
			"row_count": len(session.File.Table.Rows),
		}
	}
	if session.FileKey != "" {
		resp["file_key"] = session.FileKey
	}
	if session.Mappings != nil {
		resp["mappings"] = buildMappings(session.Mappings.Mappings())
	}
	if session.Outcome != nil {
		resp["outcome"] = session.Outcome
	}
	if session.LastError != "" {
		resp["last_error"] = session.LastError
	}
	return resp
}

func buildMappings(mappings []domain.ColumnMapping) []util.Envelope {
	resp := make([]util.Envelope, 0, len(mappings))
	for i := range mappings {
		m := &mappings[i]
		item := util.Envelope{
			"column_index":    m.ColumnIndex,
			"column_name":     m.ColumnName,
			"suggested_field": m.SuggestedField,
			"confidence":      m.Confidence,
			"confidence_band": domain.ConfidenceBand(m.Confidence),
			"data_type":       m.DataType,
			"sample_data":     m.SampleData,
			"is_custom_field": m.IsCustomField,
		}
		if m.CustomField != nil {
			item["custom_field"] = m.CustomField
		}
		resp = append(resp, item)
	}
	return resp
}
