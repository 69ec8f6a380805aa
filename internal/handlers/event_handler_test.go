package handlers_test

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agbonon/togotickets/internal/models"
)

func eventFormFields() map[string]string {
	return map[string]string{
		"title":         "Festival des Arts",
		"description":   "Trois jours de spectacles.",
		"date":          time.Now().Add(45 * 24 * time.Hour).Format(time.RFC3339),
		"location":      "Plage de Lomé",
		"category":      "Festival",
		"tmoney_number": "+22890101010",
		"ticket_types":  `[{"name":"Standard","price":2000,"quantity":5},{"name":"VIP","price":10000,"quantity":2}]`,
	}
}

func TestCreateEvent(t *testing.T) {
	db, router := setupTest(t)
	organizer := createUser(t, db, models.RoleOrganizer, "orga@example.tg", "", "Afi Promotions")

	t.Run("forced to pending with derived price", func(t *testing.T) {
		w := doMultipart(t, router, http.MethodPost, "/v1/events", eventFormFields(), tokenFor(t, organizer))
		require.Equal(t, http.StatusCreated, w.Code)

		var event models.Event
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &event))
		assert.Equal(t, models.EventPending, event.Status)
		assert.Equal(t, 2000, event.Price)
		assert.Equal(t, 7, event.TotalTickets)
		assert.Equal(t, organizer.ID, event.OrganizerID)
		assert.Len(t, event.TicketTypes, 2)
	})

	t.Run("requires ticket types", func(t *testing.T) {
		fields := eventFormFields()
		fields["ticket_types"] = ""
		w := doMultipart(t, router, http.MethodPost, "/v1/events", fields, tokenFor(t, organizer))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("buyers cannot create events", func(t *testing.T) {
		buyer := createUser(t, db, models.RoleUser, "", "+22890000011", "Kossi")
		w := doMultipart(t, router, http.MethodPost, "/v1/events", eventFormFields(), tokenFor(t, buyer))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestUpdateEvent(t *testing.T) {
	db, router := setupTest(t)
	organizer := createUser(t, db, models.RoleOrganizer, "orga@example.tg", "", "Afi Promotions")
	other := createUser(t, db, models.RoleOrganizer, "rival@example.tg", "", "Rival Events")

	t.Run("any edit resets approval", func(t *testing.T) {
		event := createEvent(t, db, organizer, models.EventApproved, 2000, 5)

		w := doMultipart(t, router, http.MethodPut, "/v1/events/"+event.ID.String(),
			map[string]string{"title": "Concert reporté"}, tokenFor(t, organizer))
		require.Equal(t, http.StatusOK, w.Code)

		var updated models.Event
		require.NoError(t, db.First(&updated, "id = ?", event.ID).Error)
		assert.Equal(t, models.EventPending, updated.Status)
		assert.Equal(t, "Concert reporté", updated.Title)
	})

	t.Run("ticket types replaced atomically", func(t *testing.T) {
		event := createEvent(t, db, organizer, models.EventApproved, 2000, 5)

		w := doMultipart(t, router, http.MethodPut, "/v1/events/"+event.ID.String(),
			map[string]string{"ticket_types": `[{"name":"Early Bird","price":1500,"quantity":10}]`},
			tokenFor(t, organizer))
		require.Equal(t, http.StatusOK, w.Code)

		var types []models.TicketType
		require.NoError(t, db.Where("event_id = ?", event.ID).Find(&types).Error)
		require.Len(t, types, 1)
		assert.Equal(t, "Early Bird", types[0].Name)

		var updated models.Event
		require.NoError(t, db.First(&updated, "id = ?", event.ID).Error)
		assert.Equal(t, 1500, updated.Price)
		assert.Equal(t, 10, updated.TotalTickets)
	})

	t.Run("non-owner organizer forbidden", func(t *testing.T) {
		event := createEvent(t, db, organizer, models.EventApproved, 2000, 5)

		w := doMultipart(t, router, http.MethodPut, "/v1/events/"+event.ID.String(),
			map[string]string{"title": "Hijacked"}, tokenFor(t, other))
		assert.Equal(t, http.StatusForbidden, w.Code)

		var unchanged models.Event
		require.NoError(t, db.First(&unchanged, "id = ?", event.ID).Error)
		assert.Equal(t, models.EventApproved, unchanged.Status)
	})
}

func TestListPublicEvents(t *testing.T) {
	db, router := setupTest(t)
	organizer := createUser(t, db, models.RoleOrganizer, "orga@example.tg", "", "Afi Promotions")

	createEvent(t, db, organizer, models.EventApproved, 2000, 5)
	createEvent(t, db, organizer, models.EventPending, 3000, 5)
	createEvent(t, db, organizer, models.EventCancelled, 4000, 5)

	w := doJSON(t, router, http.MethodGet, "/v1/events/public", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var events []models.Event
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &events))
	require.Len(t, events, 1)
	assert.Equal(t, models.EventApproved, events[0].Status)
}

func TestGetEvent(t *testing.T) {
	db, router := setupTest(t)
	organizer := createUser(t, db, models.RoleOrganizer, "orga@example.tg", "", "Afi Promotions")
	event := createEvent(t, db, organizer, models.EventPending, 2000, 5)

	t.Run("found with ticket types", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/v1/events/"+event.ID.String(), nil, "")
		require.Equal(t, http.StatusOK, w.Code)

		var got models.Event
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Len(t, got.TicketTypes, 1)
	})

	t.Run("unknown id", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/v1/events/00000000-0000-0000-0000-000000000000", nil, "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestListMyEvents(t *testing.T) {
	db, router := setupTest(t)
	organizer := createUser(t, db, models.RoleOrganizer, "orga@example.tg", "", "Afi Promotions")
	other := createUser(t, db, models.RoleOrganizer, "rival@example.tg", "", "Rival Events")

	createEvent(t, db, organizer, models.EventApproved, 2000, 5)
	createEvent(t, db, other, models.EventApproved, 3000, 5)

	w := doJSON(t, router, http.MethodGet, "/v1/events/my", nil, tokenFor(t, organizer))
	require.Equal(t, http.StatusOK, w.Code)

	var events []models.Event
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &events))
	require.Len(t, events, 1)
	assert.Equal(t, organizer.ID, events[0].OrganizerID)
}
