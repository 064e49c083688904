package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/contacthub/contacthub-api/internal/domain"
	"github.com/contacthub/contacthub-api/internal/repository/ports"
	"github.com/contacthub/contacthub-api/internal/service"
	"github.com/contacthub/contacthub-api/internal/util"
)

type ContactHandler struct {
	contacts ports.ContactRepository
	now      func() time.Time
}

func RegisterContacts(e *echo.Echo, auth *service.AuthService, contacts ports.ContactRepository) {
	handler := &ContactHandler{contacts: contacts, now: time.Now}

	group := e.Group("/api/v1/contacts", RequireAuth(auth))
	group.GET("", handler.search)
	group.GET("/:id", handler.get)
	group.POST("/batch", handler.createBatch)
}

func (h *ContactHandler) search(c echo.Context) error {
	term := strings.TrimSpace(c.QueryParam("q"))
	if term == "" {
		return c.JSON(http.StatusBadRequest, util.Error("query parameter q is required"))
	}
	matches, err := h.contacts.Search(c.Request().Context(), term)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, util.Error("search failed"))
	}
	return c.JSON(http.StatusOK, util.Data("contacts", matches))
}

func (h *ContactHandler) get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid contact id"))
	}
	contact, err := h.contacts.FindByID(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, util.Error("lookup failed"))
	}
	if contact == nil {
		return c.JSON(http.StatusNotFound, util.Error("contact not found"))
	}
	return c.JSON(http.StatusOK, util.Data("contact", contact))
}

type contactCreateRequest struct {
	FirstName string            `json:"first_name"`
	LastName  string            `json:"last_name"`
	Email     string            `json:"email"`
	Phone     string            `json:"phone"`
	AgentID   *uuid.UUID        `json:"agent_id,omitempty"`
	Custom    map[string]string `json:"custom,omitempty"`
}

func (h *ContactHandler) createBatch(c echo.Context) error {
	var req struct {
		Contacts []contactCreateRequest `json:"contacts"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}
	if len(req.Contacts) == 0 {
		return c.JSON(http.StatusBadRequest, util.Error("contacts list is empty"))
	}

	now := h.now()
	batch := make([]domain.Contact, 0, len(req.Contacts))
	for _, item := range req.Contacts {
		first := strings.TrimSpace(item.FirstName)
		last := strings.TrimSpace(item.LastName)
		if first == "" || last == "" {
			return c.JSON(http.StatusUnprocessableEntity, util.Error("first_name and last_name are required"))
		}
		contact := domain.Contact{
			ID:        uuid.New(),
			FirstName: first,
			LastName:  last,
			Email:     domain.NormalizeEmail(item.Email),
			Phone:     strings.TrimSpace(item.Phone),
			AgentID:   item.AgentID,
			Source:    domain.ContactSourceManual,
			Custom:    item.Custom,
			CreatedAt: now,
		}
		batch = append(batch, contact)
	}

	ids, err := h.contacts.CreateBatch(c.Request().Context(), batch)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, util.Error("batch create failed"))
	}
	return c.JSON(http.StatusCreated, util.Data("ids", ids))
}
