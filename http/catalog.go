package http

import (
	"errors"
	"eventhub/entity"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type createEventRequest struct {
	Title string    `json:"title"`
	Date  time.Time `json:"date"`
	Venue string    `json:"venue"`
}

type createTicketTypeRequest struct {
	EventID    string          `json:"event"`
	Name       string          `json:"name"`
	Type       string          `json:"type"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity"`
	ValidFrom  *time.Time      `json:"validFrom"`
	ValidUntil *time.Time      `json:"validUntil"`
}

func (h handler) CreateEvent(c echo.Context) error {
	var request createEventRequest
	if err := c.Bind(&request); err != nil {
		return bindError(err)
	}

	request.Title = strings.TrimSpace(request.Title)
	request.Venue = strings.TrimSpace(request.Venue)
	if request.Title == "" || request.Venue == "" || request.Date.IsZero() {
		return echo.NewHTTPError(http.StatusBadRequest, "Title, date and venue are required.")
	}

	event := entity.Event{
		ID:          uuid.NewString(),
		OrganizerID: identity(c).UserID,
		Title:       request.Title,
		Date:        request.Date.UTC(),
		Venue:       request.Venue,
		CreatedAt:   h.clock.Now(),
	}

	if err := h.events.Add(c.Request().Context(), event); err != nil {
		return &echo.HTTPError{
			Code:     http.StatusInternalServerError,
			Message:  http.StatusText(http.StatusInternalServerError),
			Internal: fmt.Errorf("adding event: %w", err),
		}
	}

	log.FromContext(c.Request().Context()).WithField("event_id", event.ID).Info("Event created")

	return c.JSON(http.StatusCreated, event)
}

func (h handler) GetEvent(c echo.Context) error {
	eventID, err := parseEventID(c.Param("eventId"))
	if err != nil {
		return err
	}

	event, err := h.events.Get(c.Request().Context(), eventID)
	if err != nil {
		return catalogError(err)
	}

	return c.JSON(http.StatusOK, event)
}

func (h handler) CreateTicketType(c echo.Context) error {
	var request createTicketTypeRequest
	if err := c.Bind(&request); err != nil {
		return bindError(err)
	}

	switch {
	case strings.TrimSpace(request.Name) == "":
		return echo.NewHTTPError(http.StatusBadRequest, "Ticket name is required.")
	case !entity.ValidTicketKind(request.Type):
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid ticket type.")
	case request.Price.IsNegative():
		return echo.NewHTTPError(http.StatusBadRequest, "Price cannot be negative.")
	case request.Quantity <= 0:
		return echo.NewHTTPError(http.StatusBadRequest, "Quantity must be greater than zero.")
	case request.ValidFrom != nil && request.ValidUntil != nil && request.ValidUntil.Before(*request.ValidFrom):
		return echo.NewHTTPError(http.StatusBadRequest, "Sale window ends before it starts.")
	}

	eventID, err := parseEventID(request.EventID)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	caller := identity(c)

	event, err := h.events.Get(ctx, eventID)
	if err != nil {
		return catalogError(err)
	}
	if event.OrganizerID != caller.UserID && !caller.IsAdmin() {
		return echo.NewHTTPError(http.StatusForbidden, "Not authorized")
	}

	ticketType := entity.TicketType{
		ID:         uuid.NewString(),
		EventID:    event.ID,
		Name:       strings.TrimSpace(request.Name),
		Type:       request.Type,
		Price:      request.Price,
		Quantity:   request.Quantity,
		ValidFrom:  request.ValidFrom,
		ValidUntil: request.ValidUntil,
		CreatedAt:  h.clock.Now(),
	}

	if err := h.ticketTypes.Add(ctx, ticketType); err != nil {
		return &echo.HTTPError{
			Code:     http.StatusInternalServerError,
			Message:  http.StatusText(http.StatusInternalServerError),
			Internal: fmt.Errorf("adding ticket type: %w", err),
		}
	}

	return c.JSON(http.StatusCreated, ticketType)
}

func (h handler) ListTicketTypes(c echo.Context) error {
	eventID, err := parseEventID(c.Param("eventId"))
	if err != nil {
		return err
	}

	ticketTypes, err := h.ticketTypes.FindByEvent(c.Request().Context(), eventID)
	if err != nil {
		return catalogError(err)
	}
	if ticketTypes == nil {
		ticketTypes = []entity.TicketType{}
	}

	return c.JSON(http.StatusOK, ticketTypes)
}

// parseEventID rejects ids that are not UUIDs before they reach the uuid
// columns in Postgres.
func parseEventID(raw string) (string, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", &echo.HTTPError{
			Code:     http.StatusBadRequest,
			Message:  "Invalid Event ID format.",
			Internal: err,
		}
	}
	return id.String(), nil
}

func catalogError(err error) error {
	if errors.Is(err, entity.ErrEventNotFound) {
		return &echo.HTTPError{
			Code:     http.StatusNotFound,
			Message:  "Event not found.",
			Internal: err,
		}
	}
	return &echo.HTTPError{
		Code:     http.StatusInternalServerError,
		Message:  http.StatusText(http.StatusInternalServerError),
		Internal: err,
	}
}
