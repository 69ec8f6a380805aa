package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/agbonon/togotickets/internal/helpers"
	"github.com/agbonon/togotickets/internal/middleware"
	"github.com/agbonon/togotickets/internal/models"
)

type EventHandler struct {
	db     *gorm.DB
	logger zerolog.Logger
}

func NewEventHandler(db *gorm.DB, logger zerolog.Logger) *EventHandler {
	return &EventHandler{db: db, logger: logger}
}

type TicketTypeInput struct {
	Name     string `json:"name"`
	Price    int    `json:"price"`
	Quantity int    `json:"quantity"`
}

// parseTicketTypes decodes the ticket_types form field, a JSON array sent
// alongside the multipart fields.
func parseTicketTypes(raw string) ([]TicketTypeInput, error) {
	if raw == "" {
		return nil, nil
	}
	var inputs []TicketTypeInput
	if err := json.Unmarshal([]byte(raw), &inputs); err != nil {
		return nil, err
	}
	for _, in := range inputs {
		if in.Name == "" || in.Price < 0 || in.Quantity <= 0 {
			return nil, errors.New("each ticket type needs a name, a non-negative price and a positive quantity")
		}
	}
	return inputs, nil
}

func summarizeTicketTypes(inputs []TicketTypeInput) (minPrice, total int) {
	minPrice = inputs[0].Price
	for _, in := range inputs {
		if in.Price < minPrice {
			minPrice = in.Price
		}
		total += in.Quantity
	}
	return minPrice, total
}

func (h *EventHandler) Create(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		helpers.RespondWithError(c, http.StatusUnauthorized, "Authentication required.")
		return
	}

	title := c.PostForm("title")
	description := c.PostForm("description")
	location := c.PostForm("location")
	category := c.PostForm("category")

	date, err := time.Parse(time.RFC3339, c.PostForm("date"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid date format. Use RFC3339.")
		return
	}

	ticketTypes, err := parseTicketTypes(c.PostForm("ticket_types"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid ticket types.")
		return
	}

	if title == "" || description == "" || location == "" || len(ticketTypes) == 0 {
		helpers.RespondWithError(c, http.StatusBadRequest, "Missing required fields or ticket types.")
		return
	}

	var organizer models.User
	if err := h.db.First(&organizer, "id = ?", userID).Error; err != nil {
		helpers.RespondWithError(c, http.StatusNotFound, "User not found.")
		return
	}

	minPrice, totalTickets := summarizeTicketTypes(ticketTypes)

	event := models.Event{
		Title:         title,
		Description:   description,
		Date:          date,
		Location:      location,
		Category:      category,
		Price:         minPrice,
		TMoneyNumber:  c.PostForm("tmoney_number"),
		FloozNumber:   c.PostForm("flooz_number"),
		TotalTickets:  totalTickets,
		Status:        models.EventPending,
		OrganizerID:   organizer.ID,
		OrganizerName: organizer.DisplayName(),
	}

	if imageFile, err := c.FormFile("image"); err == nil {
		imagePath, err := helpers.UploadFile(c, imageFile, "events")
		if err != nil {
			helpers.RespondWithError(c, http.StatusBadRequest, err.Error())
			return
		}
		event.ImageURL = imagePath
	}

	for _, in := range ticketTypes {
		event.TicketTypes = append(event.TicketTypes, models.TicketType{
			Name:     in.Name,
			Price:    in.Price,
			Quantity: in.Quantity,
		})
	}

	if err := h.db.Create(&event).Error; err != nil {
		h.logger.Error().Err(err).Msg("event creation failed")
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to create event.")
		return
	}

	c.JSON(http.StatusCreated, event)
}

func (h *EventHandler) Update(c *gin.Context) {
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

	var event models.Event
	if err := h.db.First(&event, "id = ?", eventID).Error; err != nil {
		helpers.RespondWithError(c, http.StatusNotFound, "Event not found.")
		return
	}

	if event.OrganizerID != userID {
		helpers.RespondWithError(c, http.StatusForbidden, "You are not authorized to edit this event.")
		return
	}

	ticketTypes, err := parseTicketTypes(c.PostForm("ticket_types"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid ticket types.")
		return
	}

	if title := c.PostForm("title"); title != "" {
		event.Title = title
	}
	if description := c.PostForm("description"); description != "" {
		event.Description = description
	}
	if dateStr := c.PostForm("date"); dateStr != "" {
		date, err := time.Parse(time.RFC3339, dateStr)
		if err != nil {
			helpers.RespondWithError(c, http.StatusBadRequest, "Invalid date format. Use RFC3339.")
			return
		}
		event.Date = date
	}
	if location := c.PostForm("location"); location != "" {
		event.Location = location
	}
	if category := c.PostForm("category"); category != "" {
		event.Category = category
	}
	if tmoney := c.PostForm("tmoney_number"); tmoney != "" {
		event.TMoneyNumber = tmoney
	}
	if flooz := c.PostForm("flooz_number"); flooz != "" {
		event.FloozNumber = flooz
	}

	if imageFile, err := c.FormFile("image"); err == nil {
		imagePath, err := helpers.UploadFile(c, imageFile, "events")
		if err != nil {
			helpers.RespondWithError(c, http.StatusBadRequest, err.Error())
			return
		}
		event.ImageURL = imagePath
	}

	// Any edit re-enters moderation, even on an already approved event.
	event.Status = models.EventPending
	event.TicketTypes = nil

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if len(ticketTypes) > 0 {
			if err := tx.Where("event_id = ?", event.ID).Delete(&models.TicketType{}).Error; err != nil {
				return err
			}
			minPrice, totalTickets := summarizeTicketTypes(ticketTypes)
			event.Price = minPrice
			event.TotalTickets = totalTickets
			for _, in := range ticketTypes {
				event.TicketTypes = append(event.TicketTypes, models.TicketType{
					Name:     in.Name,
					Price:    in.Price,
					Quantity: in.Quantity,
				})
			}
		}
		return tx.Save(&event).Error
	})
	if err != nil {
		h.logger.Error().Err(err).Str("event_id", event.ID.String()).Msg("event update failed")
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to update event.")
		return
	}

	var updated models.Event
	if err := h.db.Preload("TicketTypes").First(&updated, "id = ?", event.ID).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to load updated event.")
		return
	}

	c.JSON(http.StatusOK, updated)
}

// ListPublic returns approved events for the storefront, soonest first.
func (h *EventHandler) ListPublic(c *gin.Context) {
	var events []models.Event
	err := h.db.
		Where("status = ?", models.EventApproved).
		Order("date asc").
		Find(&events).Error
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to fetch events.")
		return
	}
	c.JSON(http.StatusOK, events)
}

func (h *EventHandler) Get(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid event ID.")
		return
	}

	var event models.Event
	if err := h.db.Preload("TicketTypes").First(&event, "id = ?", eventID).Error; err != nil {
		helpers.RespondWithError(c, http.StatusNotFound, "Event not found.")
		return
	}

	c.JSON(http.StatusOK, event)
}

func (h *EventHandler) ListMine(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		helpers.RespondWithError(c, http.StatusUnauthorized, "Authentication required.")
		return
	}

	var events []models.Event
	err := h.db.
		Preload("TicketTypes").
		Where("organizer_id = ?", userID).
		Order("created_at desc").
		Find(&events).Error
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to fetch your events.")
		return
	}

	c.JSON(http.StatusOK, events)
}
