package handlers_test

import (
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agbonon/togotickets/internal/models"
)

func TestBuyTickets(t *testing.T) {
	db, router := setupTest(t)
	organizer := createUser(t, db, models.RoleOrganizer, "orga@example.tg", "", "Afi Promotions")

	t.Run("happy path issues tickets and payments", func(t *testing.T) {
		event := createEvent(t, db, organizer, models.EventApproved, 2000, 5)

		w := buyTickets(t, router, event, event.TicketTypes[0].ID, 3, "")
		require.Equal(t, http.StatusOK, w.Code)

		var tickets []models.Ticket
		require.NoError(t, db.Where("event_id = ?", event.ID).Find(&tickets).Error)
		require.Len(t, tickets, 3)
		for _, ticket := range tickets {
			assert.Equal(t, models.TicketValid, ticket.Status)
			assert.Regexp(t, `^TKT-`, ticket.QRCode)
		}

		var payments int64
		db.Model(&models.Payment{}).Where("status = ?", models.PaymentCompleted).Count(&payments)
		assert.EqualValues(t, 3, payments)

		var ticketType models.TicketType
		require.NoError(t, db.First(&ticketType, "id = ?", event.TicketTypes[0].ID).Error)
		assert.Equal(t, 2, ticketType.Quantity)

		// A guest account was created from the contact details.
		var guest models.User
		require.NoError(t, db.Where("phone_number = ?", "+22890112233").First(&guest).Error)
		assert.Equal(t, models.RoleUser, guest.Role)

		// Confirmation queued in the same transaction.
		var queued int64
		db.Model(&models.Notification{}).Where("recipient = ?", "+22890112233").Count(&queued)
		assert.EqualValues(t, 1, queued)
	})

	t.Run("insufficient stock creates nothing", func(t *testing.T) {
		event := createEvent(t, db, organizer, models.EventApproved, 2000, 2)

		w := buyTickets(t, router, event, event.TicketTypes[0].ID, 3, "")
		assert.Equal(t, http.StatusConflict, w.Code)

		var tickets, payments int64
		db.Model(&models.Ticket{}).Where("event_id = ?", event.ID).Count(&tickets)
		db.Model(&models.Payment{}).
			Joins("JOIN tickets ON tickets.id = payments.ticket_id").
			Where("tickets.event_id = ?", event.ID).Count(&payments)
		assert.Zero(t, tickets)
		assert.Zero(t, payments)

		var ticketType models.TicketType
		require.NoError(t, db.First(&ticketType, "id = ?", event.TicketTypes[0].ID).Error)
		assert.Equal(t, 2, ticketType.Quantity)
	})

	t.Run("ticket type must belong to event", func(t *testing.T) {
		eventA := createEvent(t, db, organizer, models.EventApproved, 2000, 5)
		eventB := createEvent(t, db, organizer, models.EventApproved, 3000, 5)

		w := buyTickets(t, router, eventA, eventB.TicketTypes[0].ID, 1, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("logged-in buyer keeps their account", func(t *testing.T) {
		event := createEvent(t, db, organizer, models.EventApproved, 2000, 5)
		buyer := createUser(t, db, models.RoleUser, "", "+22895550001", "Essi")

		w := buyTickets(t, router, event, event.TicketTypes[0].ID, 1, tokenFor(t, buyer))
		require.Equal(t, http.StatusOK, w.Code)

		var ticket models.Ticket
		require.NoError(t, db.Where("event_id = ?", event.ID).First(&ticket).Error)
		assert.Equal(t, buyer.ID, ticket.UserID)
	})

	t.Run("unknown payment method rejected", func(t *testing.T) {
		event := createEvent(t, db, organizer, models.EventApproved, 2000, 5)
		w := doJSON(t, router, http.MethodPost, "/v1/tickets/buy", map[string]any{
			"event_id":       event.ID,
			"ticket_type_id": event.TicketTypes[0].ID,
			"quantity":       1,
			"payment_method": "CASH",
			"user_details":   map[string]string{"phone": "+22890112233"},
		}, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

// Concurrent purchases against the same tier must never jointly oversell:
// the conditional decrement admits exactly as many tickets as were in stock.
func TestConcurrentBuyNoOversell(t *testing.T) {
	db, router := setupTest(t)
	organizer := createUser(t, db, models.RoleOrganizer, "orga@example.tg", "", "Afi Promotions")
	event := createEvent(t, db, organizer, models.EventApproved, 2000, 5)
	ticketTypeID := event.TicketTypes[0].ID

	const buyers = 10
	var wg sync.WaitGroup
	codes := make(chan int, buyers)

	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := buyTickets(t, router, event, ticketTypeID, 1, "")
			codes <- w.Code
		}()
	}
	wg.Wait()
	close(codes)

	succeeded := 0
	for code := range codes {
		if code == http.StatusOK {
			succeeded++
		} else {
			assert.Equal(t, http.StatusConflict, code)
		}
	}
	assert.Equal(t, 5, succeeded)

	var issued int64
	db.Model(&models.Ticket{}).Where("event_id = ?", event.ID).Count(&issued)
	assert.EqualValues(t, 5, issued)

	var ticketType models.TicketType
	require.NoError(t, db.First(&ticketType, "id = ?", ticketTypeID).Error)
	assert.Equal(t, 0, ticketType.Quantity)
}

func TestListMyTickets(t *testing.T) {
	db, router := setupTest(t)
	organizer := createUser(t, db, models.RoleOrganizer, "orga@example.tg", "", "Afi Promotions")
	event := createEvent(t, db, organizer, models.EventApproved, 2000, 5)
	buyer := createUser(t, db, models.RoleUser, "", "+22895550002", "Kodjo")

	w := buyTickets(t, router, event, event.TicketTypes[0].ID, 2, tokenFor(t, buyer))
	require.Equal(t, http.StatusOK, w.Code)

	t.Run("returns own tickets with associations", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/v1/tickets/my", nil, tokenFor(t, buyer))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Concert Live Lomé")
		assert.Contains(t, w.Body.String(), "COMPLETED")
	})

	t.Run("requires token", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/v1/tickets/my", nil, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestTicketQR(t *testing.T) {
	db, router := setupTest(t)
	organizer := createUser(t, db, models.RoleOrganizer, "orga@example.tg", "", "Afi Promotions")
	event := createEvent(t, db, organizer, models.EventApproved, 2000, 5)
	buyer := createUser(t, db, models.RoleUser, "", "+22895550003", "Ama")
	stranger := createUser(t, db, models.RoleUser, "", "+22895550004", "Yawo")

	w := buyTickets(t, router, event, event.TicketTypes[0].ID, 1, tokenFor(t, buyer))
	require.Equal(t, http.StatusOK, w.Code)

	var ticket models.Ticket
	require.NoError(t, db.Where("event_id = ?", event.ID).First(&ticket).Error)

	t.Run("owner gets a PNG", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/v1/tickets/"+ticket.ID.String()+"/qr", nil, tokenFor(t, buyer))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
		assert.NotEmpty(t, w.Body.Bytes())
	})

	t.Run("stranger forbidden", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/v1/tickets/"+ticket.ID.String()+"/qr", nil, tokenFor(t, stranger))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("cancelled ticket refused", func(t *testing.T) {
		require.NoError(t, db.Model(&models.Ticket{}).
			Where("id = ?", ticket.ID).
			Update("status", models.TicketCancelled).Error)
		w := doJSON(t, router, http.MethodGet, "/v1/tickets/"+ticket.ID.String()+"/qr", nil, tokenFor(t, buyer))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}
