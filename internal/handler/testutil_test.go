package handler

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"membership-service/internal/model"
	"membership-service/pkg/database"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// setupTestDB creates an in-memory SQLite database, migrates the
// membership models and installs it as the handler package's store
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite test database: %v", err)
	}

	if err := db.AutoMigrate(
		&model.Branch{},
		&model.Member{},
		&model.StaffNotification{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	database.SetDB(db)
	return db
}

// seedBranch creates a branch with a bcrypt-hashed staff credential
func seedBranch(t *testing.T, db *gorm.DB, name, slug, password string) model.Branch {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash branch password: %v", err)
	}

	branch := model.Branch{Name: name, Slug: slug, PasswordHash: string(hash)}
	if err := db.Create(&branch).Error; err != nil {
		t.Fatalf("failed to seed branch: %v", err)
	}
	return branch
}

// seedMember creates a member row directly, bypassing the registration
// endpoint
func seedMember(t *testing.T, db *gorm.DB, m model.Member) model.Member {
	t.Helper()

	if err := db.Create(&m).Error; err != nil {
		t.Fatalf("failed to seed member: %v", err)
	}
	return m
}

// bcryptHash hashes a password at the cheapest cost for test seeding
func bcryptHash(t *testing.T, password string) string {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	return string(hash)
}

// doJSON runs a handler against a JSON request body and returns the
// recorder
func doJSON(t *testing.T, h echo.HandlerFunc, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = strings.NewReader(string(payload))
	} else {
		reader = strings.NewReader("")
	}

	e := echo.New()
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return rec
}

// decodeBody unmarshals a recorder's JSON body into a generic map
func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response body %q: %v", rec.Body.String(), err)
	}
	return body
}

func futureDate() time.Time {
	return time.Now().Add(30 * 24 * time.Hour)
}

func pastDate() time.Time {
	return time.Now().Add(-30 * 24 * time.Hour)
}
