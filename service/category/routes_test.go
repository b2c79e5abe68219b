package category

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/nartuliga/nartuliga-server/cmd/models"
	"github.com/nartuliga/nartuliga-server/service/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setup(t *testing.T) (*gorm.DB, *mux.Router) {
	db := testutil.NewTestDB(t)
	router := mux.NewRouter()
	NewHandler(db, testutil.Secret).RegisterRoutes(router)
	return db, router
}

func TestGetCategoriesIsPublic(t *testing.T) {
	db, router := setup(t)
	testutil.CreateCategory(t, db, "Träd")
	testutil.CreateCategory(t, db, "Blommor")

	req := httptest.NewRequest(http.MethodGet, "/category", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Träd")
	assert.Contains(t, rec.Body.String(), "Blommor")
}

func TestCreateCategoryRequiresAdmin(t *testing.T) {
	db, router := setup(t)
	user := testutil.CreateUser(t, db, "vanlig", "user@example.com", models.RoleUser)

	req := httptest.NewRequest(http.MethodPost, "/category", bytes.NewBufferString(`{"name":"Svampar"}`))
	testutil.Authorize(t, req, user.ID)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)

	var count int64
	db.Model(&models.Category{}).Count(&count)
	assert.Zero(t, count)
}

func TestCreateCategoryUnauthenticated(t *testing.T) {
	_, router := setup(t)

	req := httptest.NewRequest(http.MethodPost, "/category", bytes.NewBufferString(`{"name":"Svampar"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateCategoryCaseInsensitiveConflict(t *testing.T) {
	db, router := setup(t)
	admin := testutil.CreateUser(t, db, "admin", "admin@example.com", models.RoleAdmin)
	testutil.CreateCategory(t, db, "trees")

	req := httptest.NewRequest(http.MethodPost, "/category", bytes.NewBufferString(`{"name":"Trees"}`))
	testutil.Authorize(t, req, admin.ID)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "duplicate_category_name")

	var count int64
	db.Model(&models.Category{}).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestCreateCategoryNameTooLong(t *testing.T) {
	db, router := setup(t)
	admin := testutil.CreateUser(t, db, "admin", "admin@example.com", models.RoleAdmin)

	req := httptest.NewRequest(http.MethodPost, "/category", bytes.NewBufferString(`{"name":"abcdefghijklmnopqrstuvwxyz"}`))
	testutil.Authorize(t, req, admin.ID)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateCategoryKeepsOwnName(t *testing.T) {
	db, router := setup(t)
	admin := testutil.CreateUser(t, db, "admin", "admin@example.com", models.RoleAdmin)
	category := testutil.CreateCategory(t, db, "Träd")

	// Renaming a category to its own name must not trip the uniqueness check.
	req := httptest.NewRequest(http.MethodPut, "/category/1", bytes.NewBufferString(`{"name":"Träd"}`))
	testutil.Authorize(t, req, admin.ID)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var reloaded models.Category
	require.NoError(t, db.First(&reloaded, category.ID).Error)
	assert.Equal(t, "Träd", reloaded.Name)
}

func TestDeleteCategoryReassignsPosts(t *testing.T) {
	db, router := setup(t)
	admin := testutil.CreateUser(t, db, "admin", "admin@example.com", models.RoleAdmin)
	author := testutil.CreateUser(t, db, "author", "author@example.com", models.RoleUser)
	category := testutil.CreateCategory(t, db, "Träd")
	post := testutil.CreatePost(t, db, author.ID, "Hello", &category.ID)

	req := httptest.NewRequest(http.MethodDelete, "/category/1", nil)
	testutil.Authorize(t, req, admin.ID)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var categoryCount int64
	db.Model(&models.Category{}).Count(&categoryCount)
	assert.Zero(t, categoryCount)

	// The post survives, uncategorized.
	var reloaded models.Post
	require.NoError(t, db.First(&reloaded, post.ID).Error)
	assert.Nil(t, reloaded.CategoryID)
	assert.Equal(t, "Hello", reloaded.Caption)
}

func TestDeleteCategoryWithoutPosts(t *testing.T) {
	db, router := setup(t)
	admin := testutil.CreateUser(t, db, "admin", "admin@example.com", models.RoleAdmin)
	testutil.CreateCategory(t, db, "Gräs")

	req := httptest.NewRequest(http.MethodDelete, "/category/1", nil)
	testutil.Authorize(t, req, admin.ID)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var count int64
	db.Model(&models.Category{}).Count(&count)
	assert.Zero(t, count)
}

func TestDeleteCategoryNotFound(t *testing.T) {
	db, router := setup(t)
	admin := testutil.CreateUser(t, db, "admin", "admin@example.com", models.RoleAdmin)

	req := httptest.NewRequest(http.MethodDelete, "/category/99", nil)
	testutil.Authorize(t, req, admin.ID)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
