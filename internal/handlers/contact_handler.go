package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/agbonon/togotickets/internal/helpers"
	"github.com/agbonon/togotickets/internal/models"
	"github.com/agbonon/togotickets/internal/notify"
)

type ContactHandler struct {
	db     *gorm.DB
	inbox  string
	logger zerolog.Logger
}

// NewContactHandler wires the contact form. inbox is the address the site
// operators read; when empty, no forwarding email is enqueued and messages
// are only stored.
func NewContactHandler(db *gorm.DB, inbox string, logger zerolog.Logger) *ContactHandler {
	return &ContactHandler{db: db, inbox: inbox, logger: logger}
}

type ContactRequest struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
	Subject string `json:"subject" binding:"required"`
	Message string `json:"message" binding:"required"`
}

func (h *ContactHandler) Submit(c *gin.Context) {
	var req ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	message := models.ContactMessage{
		Name:    req.Name,
		Email:   req.Email,
		Subject: req.Subject,
		Message: req.Message,
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&message).Error; err != nil {
			return err
		}
		if h.inbox == "" {
			return nil
		}
		body := fmt.Sprintf("Nouveau message de contact :\n\nNom : %s\nEmail : %s\nSujet : %s\n\nMessage :\n%s",
			req.Name, req.Email, req.Subject, req.Message)
		return notify.EnqueueEmail(tx, h.inbox, "[TogoTickets Contact] "+req.Subject, body)
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("contact submission failed")
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error submitting message.")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Message sent successfully.",
		"data":    message,
	})
}

func (h *ContactHandler) List(c *gin.Context) {
	var messages []models.ContactMessage
	if err := h.db.Order("created_at desc").Find(&messages).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error fetching messages.")
		return
	}
	c.JSON(http.StatusOK, messages)
}
