package http

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/contacthub/contacthub-api/internal/domain"
	"github.com/contacthub/contacthub-api/internal/repository/ports"
	"github.com/contacthub/contacthub-api/internal/service"
	"github.com/contacthub/contacthub-api/internal/util"
)

type FieldHandler struct {
	fields *service.FieldService
}

func RegisterFields(e *echo.Echo, auth *service.AuthService, fields *service.FieldService) {
	handler := &FieldHandler{fields: fields}

	group := e.Group("/api/v1/fields", RequireAuth(auth))
	group.GET("", handler.list)

	admin := e.Group("/api/v1/fields", RequireAuth(auth), RequireAdmin(auth))
	admin.POST("", handler.create)
	admin.PUT("/:id", handler.update)
	admin.DELETE("/:id", handler.remove)
}

func (h *FieldHandler) list(c echo.Context) error {
	defs, err := h.fields.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, util.Error("unable to list fields"))
	}
	return c.JSON(http.StatusOK, util.Data("fields", defs))
}

func (h *FieldHandler) create(c echo.Context) error {
	var req struct {
		Label     string `json:"label"`
		FieldName string `json:"field_name"`
		Type      string `json:"type"`
		Required  bool   `json:"required"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}
	created, err := h.fields.CreateCustom(c.Request().Context(), domain.FieldDefinition{
		Label:     strings.TrimSpace(req.Label),
		FieldName: strings.TrimSpace(req.FieldName),
		Type:      domain.FieldType(req.Type),
		Required:  req.Required,
	})
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusCreated, util.Data("field", created))
}

func (h *FieldHandler) update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid field id"))
	}
	var req struct {
		Label    string `json:"label"`
		Type     string `json:"type"`
		Required bool   `json:"required"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}
	if err := h.fields.Update(c.Request().Context(), id, strings.TrimSpace(req.Label), domain.FieldType(req.Type), req.Required); err != nil {
		return h.writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *FieldHandler) remove(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid field id"))
	}
	if err := h.fields.Delete(c.Request().Context(), id); err != nil {
		return h.writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *FieldHandler) writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, ports.ErrCoreFieldProtected):
		return c.JSON(http.StatusForbidden, util.Error(err.Error()))
	case errors.Is(err, service.ErrFieldNameTaken):
		return c.JSON(http.StatusConflict, util.Error(err.Error()))
	case errors.Is(err, service.ErrInvalidFieldName), errors.Is(err, service.ErrInvalidFieldType):
		return c.JSON(http.StatusUnprocessableEntity, util.Error(err.Error()))
	case errors.Is(err, service.ErrFieldNotFound), errors.Is(err, sql.ErrNoRows):
		return c.JSON(http.StatusNotFound, util.Error("field definition not found"))
	default:
		return c.JSON(http.StatusInternalServerError, util.Error("internal error"))
	}
}
