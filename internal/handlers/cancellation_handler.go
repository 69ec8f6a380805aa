package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/agbonon/togotickets/internal/helpers"
	"github.com/agbonon/togotickets/internal/middleware"
	"github.com/agbonon/togotickets/internal/models"
	"github.com/agbonon/togotickets/internal/notify"
)

type CancellationHandler struct {
	db     *gorm.DB
	logger zerolog.Logger
}

func NewCancellationHandler(db *gorm.DB, logger zerolog.Logger) *CancellationHandler {
	return &CancellationHandler{db: db, logger: logger}
}

type CancelRequestBody struct {
	Reason string `json:"reason" binding:"required"`
}

// Request lets the owning organizer ask for cancellation. The event stays
// live until an admin approves; refunds happen only then.
func (h *CancellationHandler) Request(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		helpers.RespondWithError(c, http.StatusUnauthorized, "Authentication required.")
		return
	}

	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid event ID.")
		return
	}

	var body CancelRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "A cancellation reason is required.")
		return
	}

	var event models.Event
	if err := h.db.First(&event, "id = ?", eventID).Error; err != nil {
		helpers.RespondWithError(c, http.StatusNotFound, "Event not found.")
		return
	}

	if event.OrganizerID != userID {
		helpers.RespondWithError(c, http.StatusForbidden, "You are not authorized to cancel this event.")
		return
	}

	if !event.CancellationAllowed() {
		helpers.RespondWithError(c, http.StatusConflict, "Event is already cancelled or has a pending cancellation request.")
		return
	}

	event.Status = models.EventCancellationRequested
	event.CancellationReason = &body.Reason
	if err := h.db.Save(&event).Error; err != nil {
		h.logger.Error().Err(err).Str("event_id", event.ID.String()).Msg("cancellation request failed")
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to request cancellation.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cancellation requested. An administrator will review it.",
		"event":   event,
	})
}

// Approve executes the cancellation: within one transaction every completed
// payment is refunded, every ticket cancelled, the event closed, and the
// holder notifications enqueued. Either all of it lands or none of it does;
// actual delivery is the outbox worker's problem after commit.
func (h *CancellationHandler) Approve(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid event ID.")
		return
	}

	var event models.Event
	if err := h.db.First(&event, "id = ?", eventID).Error; err != nil {
		helpers.RespondWithError(c, http.StatusNotFound, "Event not found.")
		return
	}

	if event.Status == models.EventCancelled {
		helpers.RespondWithError(c, http.StatusConflict, "Event is already cancelled.")
		return
	}

	var refunded int64
	err = h.db.Transaction(func(tx *gorm.DB) error {
		var holders []models.User
		err := tx.Model(&models.User{}).
			Distinct("users.*").
			Joins("JOIN tickets ON tickets.user_id = users.id").
			Where("tickets.event_id = ? AND tickets.status = ?", event.ID, models.TicketValid).
			Find(&holders).Error
		if err != nil {
			return err
		}

		ticketIDs := tx.Model(&models.Ticket{}).Select("id").Where("event_id = ?", event.ID)
		res := tx.Model(&models.Payment{}).
			Where("status = ? AND ticket_id IN (?)", models.PaymentCompleted, ticketIDs).
			Update("status", models.PaymentRefunded)
		if res.Error != nil {
			return res.Error
		}
		refunded = res.RowsAffected

		err = tx.Model(&models.Ticket{}).
			Where("event_id = ?", event.ID).
			Update("status", models.TicketCancelled).Error
		if err != nil {
			return err
		}

		event.Status = models.EventCancelled
		if err := tx.Save(&event).Error; err != nil {
			return err
		}

		return h.enqueueCancellationNotices(tx, &event, holders)
	})
	if err != nil {
		h.logger.Error().Err(err).Str("event_id", event.ID.String()).Msg("cancellation approval failed")
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error cancelling event.")
		return
	}

	h.logger.Info().
		Str("event_id", event.ID.String()).
		Int64("refunded_payments", refunded).
		Msg("event cancelled")

	c.JSON(http.StatusOK, gin.H{
		"message":          "Event cancelled successfully.",
		"refunded_tickets": refunded,
		"event":            event,
	})
}

func (h *CancellationHandler) enqueueCancellationNotices(tx *gorm.DB, event *models.Event, holders []models.User) error {
	subject := fmt.Sprintf("Annulation Événement: %s", event.Title)
	body := fmt.Sprintf(
		"Bonjour,\n\nL'événement \"%s\" a été annulé par l'organisateur. "+
			"Votre billet a été annulé et une procédure de remboursement a été initiée.\n\n"+
			"Cordialement,\nL'équipe TogoTickets",
		event.Title)

	for i := range holders {
		holder := &holders[i]
		switch {
		case holder.Email != nil:
			if err := notify.EnqueueEmail(tx, *holder.Email, subject, body); err != nil {
				return err
			}
		case holder.PhoneNumber != nil:
			if err := notify.EnqueueSMS(tx, *holder.PhoneNumber,
				fmt.Sprintf("L'événement \"%s\" a été annulé. Remboursement en cours.", event.Title)); err != nil {
				return err
			}
		}
	}

	var organizer models.User
	if err := tx.First(&organizer, "id = ?", event.OrganizerID).Error; err == nil && organizer.Email != nil {
		return notify.EnqueueEmail(tx, *organizer.Email, subject,
			fmt.Sprintf("Votre événement \"%s\" est maintenant annulé. Les détenteurs de billets ont été notifiés.", event.Title))
	}
	return nil
}
