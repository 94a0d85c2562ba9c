package http

import (
	"encoding/json"
	"eventhub/entity"
	"net/http"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateEvent(t *testing.T) {
	body := `{"title":"Spring Gala","date":"2026-04-14T19:00:00Z","venue":"Town Hall"}`

	t.Run("attendee is forbidden", func(t *testing.T) {
		s := newTestServer(t, nil)
		token := signToken(t, jwt.SigningMethodHS256, "user-1", entity.RoleAttendee)

		rec := s.do(t, http.MethodPost, "/api/events", token, body)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.JSONEq(t, `{"msg":"Not authorized"}`, rec.Body.String())
	})

	t.Run("organizer creates event", func(t *testing.T) {
		s := newTestServer(t, nil)
		token := signToken(t, jwt.SigningMethodHS256, "organizer-1", entity.RoleOrganizer)

		rec := s.do(t, http.MethodPost, "/api/events", token, body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var created entity.Event
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
		assert.Equal(t, "organizer-1", created.OrganizerID)
		assert.Equal(t, "Spring Gala", created.Title)

		rec = s.do(t, http.MethodGet, "/api/events/"+created.ID, "", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"venue":"Town Hall"`)
	})

	t.Run("missing fields", func(t *testing.T) {
		s := newTestServer(t, nil)
		token := signToken(t, jwt.SigningMethodHS256, "organizer-1", entity.RoleOrganizer)

		rec := s.do(t, http.MethodPost, "/api/events", token, `{"title":"Spring Gala"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

const (
	eventOne   = "6f1c2a7e-3d4b-4c8e-9a1f-2b3c4d5e6f70"
	eventTwo   = "7a2d3b8f-4e5c-4d9f-8b2a-3c4d5e6f7081"
	eventThree = "8b3e4c9a-5f6d-4eaf-9c3b-4d5e6f708192"
)

func TestGetEventNotFound(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodGet, "/api/events/"+eventThree, "", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"msg":"Event not found."}`, rec.Body.String())
}

func TestGetEventMalformedID(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodGet, "/api/events/missing", "", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"msg":"Invalid Event ID format."}`, rec.Body.String())
}

func TestCreateTicketType(t *testing.T) {
	newServerWithEvent := func(t *testing.T) *testServer {
		s := newTestServer(t, nil)
		s.catalog.events[eventOne] = entity.Event{ID: eventOne, OrganizerID: "organizer-1"}
		return s
	}

	testCases := []struct {
		name       string
		userID     string
		role       string
		body       string
		wantStatus int
	}{
		{
			name:       "owner",
			userID:     "organizer-1",
			role:       entity.RoleOrganizer,
			body:       `{"event":"` + eventOne + `","name":"VIP","type":"vip","price":"120.00","quantity":50}`,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "admin",
			userID:     "admin-1",
			role:       entity.RoleAdmin,
			body:       `{"event":"` + eventOne + `","name":"General","type":"general","price":0,"quantity":500}`,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "organizer of another event",
			userID:     "organizer-2",
			role:       entity.RoleOrganizer,
			body:       `{"event":"` + eventOne + `","name":"VIP","type":"vip","price":"120.00","quantity":50}`,
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "unknown event",
			userID:     "organizer-1",
			role:       entity.RoleOrganizer,
			body:       `{"event":"` + eventTwo + `","name":"VIP","type":"vip","price":"120.00","quantity":50}`,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "malformed event id",
			userID:     "organizer-1",
			role:       entity.RoleOrganizer,
			body:       `{"event":"event-1","name":"VIP","type":"vip","price":"120.00","quantity":50}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid type",
			userID:     "organizer-1",
			role:       entity.RoleOrganizer,
			body:       `{"event":"` + eventOne + `","name":"VIP","type":"platinum","price":"120.00","quantity":50}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "negative price",
			userID:     "organizer-1",
			role:       entity.RoleOrganizer,
			body:       `{"event":"` + eventOne + `","name":"VIP","type":"vip","price":"-1","quantity":50}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "zero quantity",
			userID:     "organizer-1",
			role:       entity.RoleOrganizer,
			body:       `{"event":"` + eventOne + `","name":"VIP","type":"vip","price":"120.00","quantity":0}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "inverted sale window",
			userID:     "organizer-1",
			role:       entity.RoleOrganizer,
			body:       `{"event":"` + eventOne + `","name":"VIP","type":"vip","price":"1","quantity":5,"validFrom":"2026-05-01T00:00:00Z","validUntil":"2026-04-01T00:00:00Z"}`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := newServerWithEvent(t)
			token := signToken(t, jwt.SigningMethodHS256, tc.userID, tc.role)

			rec := s.do(t, http.MethodPost, "/api/tickets", token, tc.body)

			assert.Equal(t, tc.wantStatus, rec.Code, rec.Body.String())
		})
	}
}

func TestListTicketTypes(t *testing.T) {
	s := newTestServer(t, nil)
	s.catalog.ticketTypes = []entity.TicketType{
		{ID: "tt-1", EventID: eventOne, Name: "VIP"},
		{ID: "tt-2", EventID: eventTwo, Name: "General"},
	}

	rec := s.do(t, http.MethodGet, "/api/tickets/event/"+eventOne, "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var ticketTypes []entity.TicketType
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ticketTypes))
	require.Len(t, ticketTypes, 1)
	assert.Equal(t, "tt-1", ticketTypes[0].ID)

	rec = s.do(t, http.MethodGet, "/api/tickets/event/"+eventThree, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/tickets/event/not-a-uuid", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"msg":"Invalid Event ID format."}`, rec.Body.String())
}
