package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/agbonon/togotickets/internal/helpers"
	"github.com/agbonon/togotickets/internal/middleware"
	"github.com/agbonon/togotickets/internal/models"
	"github.com/agbonon/togotickets/internal/monitoring"
	"github.com/agbonon/togotickets/internal/notify"
)

var errInsufficientStock = errors.New("insufficient ticket stock")

type TicketHandler struct {
	db        *gorm.DB
	jwtSecret string
	logger    zerolog.Logger
}

func NewTicketHandler(db *gorm.DB, jwtSecret string, logger zerolog.Logger) *TicketHandler {
	return &TicketHandler{db: db, jwtSecret: jwtSecret, logger: logger}
}

type BuyerDetails struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email" binding:"omitempty,email"`
	Phone     string `json:"phone" binding:"omitempty,tg_phone"`
}

type BuyTicketRequest struct {
	EventID       uuid.UUID    `json:"event_id" binding:"required"`
	TicketTypeID  uuid.UUID    `json:"ticket_type_id" binding:"required"`
	Quantity      int          `json:"quantity" binding:"required,min=1"`
	PaymentMethod string       `json:"payment_method"`
	UserDetails   BuyerDetails `json:"user_details"`
}

// Buy performs checkout. Works for logged-in buyers and guests; a guest gets
// an account created from the contact details on the fly. Issuance happens in
// one transaction around a conditional stock decrement, so two buyers racing
// for the last seats can never jointly oversell.
func (h *TicketHandler) Buy(c *gin.Context) {
	var req BuyTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	method := req.PaymentMethod
	if method == "" {
		method = models.MethodTMoney
	}
	if !models.ValidPaymentMethod(method) {
		helpers.RespondWithError(c, http.StatusBadRequest, "Unknown payment method.")
		return
	}

	buyer, err := h.resolveBuyer(c, &req.UserDetails)
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	var ticketType models.TicketType
	if err := h.db.First(&ticketType, "id = ?", req.TicketTypeID).Error; err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid ticket type for this event.")
		return
	}
	if ticketType.EventID != req.EventID {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid ticket type for this event.")
		return
	}

	var event models.Event
	if err := h.db.First(&event, "id = ?", req.EventID).Error; err != nil {
		helpers.RespondWithError(c, http.StatusNotFound, "Event not found.")
		return
	}

	var tickets []models.Ticket
	err = h.db.Transaction(func(tx *gorm.DB) error {
		// Decrement-if-available. Zero rows affected means another
		// purchase got there first or stock was short all along.
		res := tx.Model(&models.TicketType{}).
			Where("id = ? AND quantity >= ?", ticketType.ID, req.Quantity).
			Update("quantity", gorm.Expr("quantity - ?", req.Quantity))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errInsufficientStock
		}

		for i := 0; i < req.Quantity; i++ {
			ticket := models.Ticket{
				Status:       models.TicketValid,
				QRCode:       helpers.NewQRToken(event.ID, ticketType.ID),
				UserID:       buyer.ID,
				EventID:      event.ID,
				TicketTypeID: ticketType.ID,
			}
			if err := tx.Create(&ticket).Error; err != nil {
				return err
			}

			payment := models.Payment{
				Amount:        ticketType.Price,
				Method:        method,
				Status:        models.PaymentCompleted, // simulated instant success
				TransactionID: helpers.NewTransactionRef(),
				TicketID:      ticket.ID,
			}
			if err := tx.Create(&payment).Error; err != nil {
				return err
			}

			ticket.Payment = &payment
			tickets = append(tickets, ticket)
		}

		return h.enqueueConfirmation(tx, buyer, &event, tickets)
	})
	if err != nil {
		if errors.Is(err, errInsufficientStock) {
			helpers.RespondWithError(c, http.StatusConflict, "Not enough tickets available.")
			return
		}
		h.logger.Error().Err(err).Str("event_id", event.ID.String()).Msg("ticket purchase failed")
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error processing purchase.")
		return
	}

	monitoring.RecordTicketsSold(len(tickets))

	c.JSON(http.StatusOK, gin.H{
		"message": "Ticket purchased successfully.",
		"tickets": tickets,
	})
}

// resolveBuyer finds the account to attach tickets to: the token's user if
// present, else a match on the supplied contact details, else a fresh guest
// account with a random password.
func (h *TicketHandler) resolveBuyer(c *gin.Context, details *BuyerDetails) (*models.User, error) {
	if userID, ok := middleware.CurrentUserID(c); ok {
		var user models.User
		if err := h.db.First(&user, "id = ?", userID).Error; err == nil {
			return &user, nil
		}
	}

	email := details.Email
	phone := helpers.NormalizePhone(details.Phone)
	if email == "" && phone == "" {
		return nil, errors.New("an email or phone number is required to buy tickets")
	}

	findExisting := func() (*models.User, error) {
		var user models.User
		query := h.db
		switch {
		case email != "" && phone != "":
			query = query.Where("email = ? OR phone_number = ?", email, phone)
		case email != "":
			query = query.Where("email = ?", email)
		default:
			query = query.Where("phone_number = ?", phone)
		}
		if err := query.First(&user).Error; err != nil {
			return nil, err
		}
		return &user, nil
	}

	if user, err := findExisting(); err == nil {
		return user, nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(helpers.RandomCode(8)), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.New("failed to create guest account")
	}

	guest := models.User{
		Password: string(hashed),
		Name:     strings.TrimSpace(details.FirstName + " " + details.LastName),
		Role:     models.RoleUser,
	}
	if email != "" {
		guest.Email = &email
	}
	if phone != "" {
		guest.PhoneNumber = &phone
	}

	if err := h.db.Create(&guest).Error; err != nil {
		// Two guest checkouts with the same contact can race to create
		// the account; the loser picks up the winner's row.
		if user, lookupErr := findExisting(); lookupErr == nil {
			return user, nil
		}
		return nil, errors.New("failed to create guest account")
	}
	h.logger.Info().Str("user_id", guest.ID.String()).Msg("created guest account during checkout")
	return &guest, nil
}

func (h *TicketHandler) enqueueConfirmation(tx *gorm.DB, buyer *models.User, event *models.Event, tickets []models.Ticket) error {
	refs := make([]string, len(tickets))
	for i, t := range tickets {
		refs[i] = t.QRCode
	}
	body := fmt.Sprintf(
		"Votre achat pour \"%s\" est confirmé. Billets: %s",
		event.Title, strings.Join(refs, ", "))

	if buyer.Email != nil {
		return notify.EnqueueEmail(tx, *buyer.Email, fmt.Sprintf("Confirmation d'achat: %s", event.Title), body)
	}
	if buyer.PhoneNumber != nil {
		return notify.EnqueueSMS(tx, *buyer.PhoneNumber, body)
	}
	return nil
}

func (h *TicketHandler) ListMine(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		helpers.RespondWithError(c, http.StatusUnauthorized, "Authentication required.")
		return
	}

	var tickets []models.Ticket
	err := h.db.
		Preload("Event").
		Preload("TicketType").
		Preload("Payment").
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&tickets).Error
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error fetching tickets.")
		return
	}

	c.JSON(http.StatusOK, tickets)
}

// QR renders the ticket's signed payload as a PNG for gate scanning.
func (h *TicketHandler) QR(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		helpers.RespondWithError(c, http.StatusUnauthorized, "Authentication required.")
		return
	}

	ticketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid ticket ID.")
		return
	}

	var ticket models.Ticket
	if err := h.db.First(&ticket, "id = ?", ticketID).Error; err != nil {
		helpers.RespondWithError(c, http.StatusNotFound, "Ticket not found.")
		return
	}

	if ticket.UserID != userID {
		helpers.RespondWithError(c, http.StatusForbidden, "You don't have permission to view this ticket.")
		return
	}
	if ticket.Status != models.TicketValid {
		helpers.RespondWithError(c, http.StatusForbidden, "Ticket is cancelled.")
		return
	}

	payload := helpers.SignQRPayload(ticket.ID, ticket.QRCode, h.jwtSecret)
	qrImage, err := qrcode.Encode(payload, qrcode.Medium, 256)
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to generate QR code.")
		return
	}

	c.Data(http.StatusOK, "image/png", qrImage)
}
