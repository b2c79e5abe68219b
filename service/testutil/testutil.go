// Package testutil provides shared fixtures for the service handler tests.
package testutil

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nartuliga/nartuliga-server/cmd/models"
	"github.com/nartuliga/nartuliga-server/cmd/utils"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const Secret = "test-secret"

// NewTestDB opens a private in-memory database with the full schema applied.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Single connection keeps the shared-cache database alive for the test.
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Post{},
		&models.Comment{},
		&models.Like{},
	))

	return db
}

func CreateUser(t *testing.T, db *gorm.DB, accountName, email, role string) models.User {
	t.Helper()

	passwordHash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)

	user := models.User{
		AccountName:  accountName,
		Email:        email,
		PasswordHash: string(passwordHash),
		Role:         role,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func CreateCategory(t *testing.T, db *gorm.DB, name string) models.Category {
	t.Helper()

	category := models.Category{Name: name}
	require.NoError(t, db.Create(&category).Error)
	return category
}

func CreatePost(t *testing.T, db *gorm.DB, userID uint, caption string, categoryID *uint) models.Post {
	t.Helper()

	post := models.Post{UserID: userID, Caption: caption, CategoryID: categoryID}
	require.NoError(t, db.Create(&post).Error)
	return post
}

func CreateComment(t *testing.T, db *gorm.DB, userID, postID uint, text string) models.Comment {
	t.Helper()

	comment := models.Comment{UserID: userID, PostID: postID, Text: text}
	require.NoError(t, db.Create(&comment).Error)
	return comment
}

func Token(t *testing.T, userID uint) string {
	t.Helper()

	token, err := utils.GenerateToken(userID, Secret, time.Hour)
	require.NoError(t, err)
	return token
}

// Authorize attaches a bearer token for the given user to the request.
func Authorize(t *testing.T, r *http.Request, userID uint) {
	t.Helper()
	r.Header.Set("Authorization", "Bearer "+Token(t, userID))
}
