package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/agbonon/togotickets/internal/helpers"
	"github.com/agbonon/togotickets/internal/middleware"
	"github.com/agbonon/togotickets/internal/models"
)

type AuthHandler struct {
	db        *gorm.DB
	jwtSecret string
	logger    zerolog.Logger
}

func NewAuthHandler(db *gorm.DB, jwtSecret string, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{db: db, jwtSecret: jwtSecret, logger: logger}
}

type RegisterRequest struct {
	Email       string `json:"email" binding:"omitempty,email"`
	PhoneNumber string `json:"phone_number" binding:"omitempty,tg_phone"`
	Password    string `json:"password" binding:"required,min=6"`
	Name        string `json:"name"`
	Role        string `json:"role" binding:"omitempty,oneof=USER ORGANIZER"`
}

type LoginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	role := models.UserRole(req.Role)
	if role == "" {
		role = models.RoleUser
	}

	// Organizers are reached by email, buyers by SMS. Each role must
	// register the contact channel we notify it on.
	if role == models.RoleOrganizer && req.Email == "" {
		helpers.RespondWithError(c, http.StatusBadRequest, "Email is required for organizers.")
		return
	}
	if role == models.RoleUser && req.PhoneNumber == "" {
		helpers.RespondWithError(c, http.StatusBadRequest, "Phone number is required for users.")
		return
	}

	phone := helpers.NormalizePhone(req.PhoneNumber)

	query := h.db
	switch {
	case req.Email != "" && phone != "":
		query = query.Where("email = ? OR phone_number = ?", req.Email, phone)
	case req.Email != "":
		query = query.Where("email = ?", req.Email)
	default:
		query = query.Where("phone_number = ?", phone)
	}

	var existing models.User
	if err := query.First(&existing).Error; err == nil {
		helpers.RespondWithError(c, http.StatusConflict, "User already exists with this email or phone number.")
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to hash the password.")
		return
	}

	user := models.User{
		Password: string(hashedPassword),
		Name:     req.Name,
		Role:     role,
	}
	if req.Email != "" {
		user.Email = &req.Email
	}
	if phone != "" {
		user.PhoneNumber = &phone
	}

	if err := h.db.Create(&user).Error; err != nil {
		h.logger.Error().Err(err).Msg("user creation failed")
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to create user.")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully.",
		"user_id": user.ID,
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	// The identifier can be an email or a phone number.
	identifier := req.Identifier
	if phone := helpers.NormalizePhone(identifier); helpers.IsTogolesePhone(phone) {
		identifier = phone
	}

	var user models.User
	err := h.db.Where("email = ? OR phone_number = ?", identifier, identifier).First(&user).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			h.logger.Error().Err(err).Msg("login lookup failed")
		}
		helpers.RespondWithError(c, http.StatusUnauthorized, "Invalid credentials.")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		helpers.RespondWithError(c, http.StatusUnauthorized, "Invalid credentials.")
		return
	}

	tokenString, err := middleware.IssueToken(&user, h.jwtSecret, 24)
	if err != nil {
		h.logger.Error().Err(err).Msg("token signing failed")
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to generate token.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": tokenString,
		"user":  userSummary(&user),
	})
}

func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		helpers.RespondWithError(c, http.StatusUnauthorized, "Authentication required.")
		return
	}

	var user models.User
	if err := h.db.First(&user, "id = ?", userID).Error; err != nil {
		helpers.RespondWithError(c, http.StatusNotFound, "User not found.")
		return
	}

	c.JSON(http.StatusOK, userSummary(&user))
}

func userSummary(user *models.User) gin.H {
	return gin.H{
		"id":           user.ID,
		"email":        user.Email,
		"phone_number": user.PhoneNumber,
		"name":         user.Name,
		"role":         user.Role,
	}
}
