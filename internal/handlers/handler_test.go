package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/agbonon/togotickets/config"
	"github.com/agbonon/togotickets/internal/middleware"
	"github.com/agbonon/togotickets/internal/models"
	"github.com/agbonon/togotickets/internal/server"
)

const testSecret = "test-secret"

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:    testSecret,
		ContactInbox: "ops@togotickets.tg",
		Port:         "0",
	}
}

// setupTest returns a fresh in-memory database and a router wired against it.
func setupTest(t *testing.T) (*gorm.DB, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// A single connection keeps concurrent transactions serialized instead
	// of tripping SQLite busy errors.
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, config.Migrate(db))

	router := server.NewRouter(db, testConfig(), zerolog.Nop())
	return db, router
}

func strPtr(s string) *string { return &s }

func createUser(t *testing.T, db *gorm.DB, role models.UserRole, email, phone, name string) *models.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)

	user := models.User{
		Password: string(hashed),
		Name:     name,
		Role:     role,
	}
	if email != "" {
		user.Email = strPtr(email)
	}
	if phone != "" {
		user.PhoneNumber = strPtr(phone)
	}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func tokenFor(t *testing.T, user *models.User) string {
	t.Helper()
	token, err := middleware.IssueToken(user, testSecret, 24)
	require.NoError(t, err)
	return token
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// doMultipart posts form fields the way the event endpoints expect them.
func doMultipart(t *testing.T, router *gin.Engine, method, path string, fields map[string]string, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

// createEvent seeds an event with one ticket type directly in the database.
func createEvent(t *testing.T, db *gorm.DB, organizer *models.User, status models.EventStatus, price, quantity int) *models.Event {
	t.Helper()
	event := models.Event{
		Title:         "Concert Live Lomé",
		Description:   "Grand concert au bord de la plage.",
		Date:          time.Now().Add(30 * 24 * time.Hour),
		Location:      "Palais des Congrès",
		Category:      "Musique",
		Price:         price,
		TotalTickets:  quantity,
		Status:        status,
		OrganizerID:   organizer.ID,
		OrganizerName: organizer.DisplayName(),
		TicketTypes: []models.TicketType{
			{Name: "Standard", Price: price, Quantity: quantity},
		},
	}
	require.NoError(t, db.Create(&event).Error)
	return &event
}

func buyTickets(t *testing.T, router *gin.Engine, event *models.Event, ticketTypeID uuid.UUID, quantity int, token string) *httptest.ResponseRecorder {
	t.Helper()
	return doJSON(t, router, http.MethodPost, "/v1/tickets/buy", map[string]any{
		"event_id":       event.ID,
		"ticket_type_id": ticketTypeID,
		"quantity":       quantity,
		"payment_method": models.MethodTMoney,
		"user_details": map[string]string{
			"first_name": "Kossi",
			"last_name":  "Mensah",
			"phone":      "+22890112233",
		},
	}, token)
}
