package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/agbonon/togotickets/internal/helpers"
	"github.com/agbonon/togotickets/internal/models"
	"github.com/agbonon/togotickets/internal/monitoring"
)

type AdminHandler struct {
	db     *gorm.DB
	logger zerolog.Logger
}

func NewAdminHandler(db *gorm.DB, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{db: db, logger: logger}
}

func (h *AdminHandler) Stats(c *gin.Context) {
	var totalUsers, totalPromoters, totalEvents, pendingEvents int64
	h.db.Model(&models.User{}).Where("role = ?", models.RoleUser).Count(&totalUsers)
	h.db.Model(&models.User{}).Where("role = ?", models.RoleOrganizer).Count(&totalPromoters)
	h.db.Model(&models.Event{}).Count(&totalEvents)
	h.db.Model(&models.Event{}).Where("status = ?", models.EventPending).Count(&pendingEvents)

	var revenue int64
	h.db.Model(&models.Payment{}).
		Where("status = ?", models.PaymentCompleted).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&revenue)

	c.JSON(http.StatusOK, gin.H{
		"users":          totalUsers,
		"promoters":      totalPromoters,
		"events":         totalEvents,
		"pending_events": pendingEvents,
		"revenue":        revenue,
	})
}

func (h *AdminHandler) ListPromoters(c *gin.Context) {
	var promoters []models.User
	err := h.db.
		Where("role = ?", models.RoleOrganizer).
		Order("created_at desc").
		Find(&promoters).Error
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error fetching promoters.")
		return
	}
	c.JSON(http.StatusOK, promoters)
}

func (h *AdminHandler) ListAllEvents(c *gin.Context) {
	var events []models.Event
	if err := h.db.Order("created_at desc").Find(&events).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error fetching events.")
		return
	}
	c.JSON(http.StatusOK, events)
}

func (h *AdminHandler) ListPendingEvents(c *gin.Context) {
	var events []models.Event
	err := h.db.
		Preload("TicketTypes").
		Where("status = ?", models.EventPending).
		Order("created_at desc").
		Find(&events).Error
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error fetching pending events.")
		return
	}
	c.JSON(http.StatusOK, events)
}

type ModerationRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateEventStatus approves or rejects a pending event. Only PENDING events
// can be moderated and only into APPROVED or REJECTED; anything else leaves
// the row untouched.
func (h *AdminHandler) UpdateEventStatus(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid event ID.")
		return
	}

	var req ModerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "A status is required.")
		return
	}

	status := models.EventStatus(req.Status)
	if status != models.EventApproved && status != models.EventRejected {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid status. Use APPROVED or REJECTED.")
		return
	}

	var event models.Event
	if err := h.db.First(&event, "id = ?", eventID).Error; err != nil {
		helpers.RespondWithError(c, http.StatusNotFound, "Event not found.")
		return
	}

	if event.Status != models.EventPending {
		helpers.RespondWithError(c, http.StatusConflict, "Only pending events can be moderated.")
		return
	}

	event.Status = status
	if err := h.db.Save(&event).Error; err != nil {
		h.logger.Error().Err(err).Str("event_id", event.ID.String()).Msg("moderation update failed")
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error updating event status.")
		return
	}

	monitoring.RecordModeration(string(status))

	c.JSON(http.StatusOK, gin.H{
		"message": "Event " + strings.ToLower(req.Status) + ".",
		"event":   event,
	})
}
