package account

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
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

func registerBody(t *testing.T, email, password, accountName string) *bytes.Buffer {
	t.Helper()
	payload, err := json.Marshal(map[string]string{
		"email":        email,
		"password":     password,
		"account_name": accountName,
	})
	require.NoError(t, err)
	return bytes.NewBuffer(payload)
}

func TestRegister(t *testing.T) {
	db, router := setup(t)

	req := httptest.NewRequest(http.MethodPost, "/account/register",
		registerBody(t, "alice@example.com", "hunter22", "alice"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var user models.User
	require.NoError(t, db.Where("email = ?", "alice@example.com").First(&user).Error)
	assert.Equal(t, "alice", user.AccountName)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.NotEqual(t, "hunter22", user.PasswordHash)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	db, router := setup(t)
	testutil.CreateUser(t, db, "alice", "alice@example.com", models.RoleUser)

	req := httptest.NewRequest(http.MethodPost, "/account/register",
		registerBody(t, "alice@example.com", "hunter22", "alice2"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegisterValidation(t *testing.T) {
	_, router := setup(t)

	cases := []struct {
		name        string
		email       string
		password    string
		accountName string
	}{
		{"missing email", "", "hunter22", "alice"},
		{"missing password", "alice@example.com", "", "alice"},
		{"missing account name", "alice@example.com", "hunter22", ""},
		{"malformed email", "not-an-email", "hunter22", "alice"},
		{"account name too long", "alice@example.com", "hunter22", strings.Repeat("a", 26)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/account/register",
				registerBody(t, tc.email, tc.password, tc.accountName))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestRegisterAcceptsFullLengthAccountName(t *testing.T) {
	_, router := setup(t)

	// 25 runes, multibyte included.
	name := "ÅsaKringla" + strings.Repeat("x", 15)
	req := httptest.NewRequest(http.MethodPost, "/account/register",
		registerBody(t, "asa@example.com", "hunter22", name))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestLoginAndWhoAmI(t *testing.T) {
	_, router := setup(t)

	req := httptest.NewRequest(http.MethodPost, "/account/register",
		registerBody(t, "alice@example.com", "hunter22", "alice"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	payload, err := json.Marshal(map[string]string{
		"email":    "alice@example.com",
		"password": "hunter22",
	})
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodPost, "/account/login", bytes.NewBuffer(payload))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var loginResp struct {
		AccessToken string `json:"access_token"`
		UserID      uint   `json:"user_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &loginResp))
	require.NotEmpty(t, loginResp.AccessToken)

	req = httptest.NewRequest(http.MethodGet, "/account/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+loginResp.AccessToken)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var whoResp struct {
		ID          uint   `json:"id"`
		AccountName string `json:"account_name"`
		IsAdmin     bool   `json:"is_admin"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &whoResp))
	assert.Equal(t, loginResp.UserID, whoResp.ID)
	assert.Equal(t, "alice", whoResp.AccountName)
	assert.False(t, whoResp.IsAdmin)
}

func TestLoginWrongPassword(t *testing.T) {
	_, router := setup(t)

	req := httptest.NewRequest(http.MethodPost, "/account/register",
		registerBody(t, "alice@example.com", "hunter22", "alice"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	payload, err := json.Marshal(map[string]string{
		"email":    "alice@example.com",
		"password": "wrong",
	})
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodPost, "/account/login", bytes.NewBuffer(payload))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetUsersAdminOnly(t *testing.T) {
	db, router := setup(t)
	testutil.CreateUser(t, db, "alice", "alice@example.com", models.RoleUser)
	member := testutil.CreateUser(t, db, "bob", "bob@example.com", models.RoleUser)
	admin := testutil.CreateUser(t, db, "admin", "admin@example.com", models.RoleAdmin)

	req := httptest.NewRequest(http.MethodGet, "/account", nil)
	testutil.Authorize(t, req, member.ID)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/account", nil)
	testutil.Authorize(t, req, admin.ID)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var users []struct {
		AccountName string `json:"account_name"`
		IsAdmin     bool   `json:"is_admin"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	require.Len(t, users, 3)
	assert.Equal(t, "alice", users[0].AccountName)
	assert.False(t, users[0].IsAdmin)
	assert.True(t, users[2].IsAdmin)
}

func TestGrantAdmin(t *testing.T) {
	db, router := setup(t)
	member := testutil.CreateUser(t, db, "bob", "bob@example.com", models.RoleUser)
	admin := testutil.CreateUser(t, db, "admin", "admin@example.com", models.RoleAdmin)

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/account/admin/%d", member.ID), nil)
	testutil.Authorize(t, req, admin.ID)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, member.ID).Error)
	assert.True(t, reloaded.IsAdmin())
}

func TestGrantAdminAlreadyAssigned(t *testing.T) {
	db, router := setup(t)
	admin := testutil.CreateUser(t, db, "admin", "admin@example.com", models.RoleAdmin)
	other := testutil.CreateUser(t, db, "other", "other@example.com", models.RoleAdmin)

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/account/admin/%d", other.ID), nil)
	testutil.Authorize(t, req, admin.ID)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGrantAdminRequiresAdmin(t *testing.T) {
	db, router := setup(t)
	member := testutil.CreateUser(t, db, "bob", "bob@example.com", models.RoleUser)
	other := testutil.CreateUser(t, db, "carol", "carol@example.com", models.RoleUser)

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/account/admin/%d", other.ID), nil)
	testutil.Authorize(t, req, member.ID)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, other.ID).Error)
	assert.False(t, reloaded.IsAdmin())
}

func TestRevokeAdmin(t *testing.T) {
	db, router := setup(t)
	admin := testutil.CreateUser(t, db, "admin", "admin@example.com", models.RoleAdmin)
	other := testutil.CreateUser(t, db, "other", "other@example.com", models.RoleAdmin)

	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/account/admin/%d", other.ID), nil)
	testutil.Authorize(t, req, admin.ID)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, other.ID).Error)
	assert.False(t, reloaded.IsAdmin())
}

func TestRevokeAdminSelfBlocked(t *testing.T) {
	db, router := setup(t)
	admin := testutil.CreateUser(t, db, "admin", "admin@example.com", models.RoleAdmin)

	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/account/admin/%d", admin.ID), nil)
	testutil.Authorize(t, req, admin.ID)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, admin.ID).Error)
	assert.True(t, reloaded.IsAdmin())
}

func TestRevokeAdminFromNonAdmin(t *testing.T) {
	db, router := setup(t)
	admin := testutil.CreateUser(t, db, "admin", "admin@example.com", models.RoleAdmin)
	member := testutil.CreateUser(t, db, "bob", "bob@example.com", models.RoleUser)

	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/account/admin/%d", member.ID), nil)
	testutil.Authorize(t, req, admin.ID)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteUser(t *testing.T) {
	db, router := setup(t)
	admin := testutil.CreateUser(t, db, "admin", "admin@example.com", models.RoleAdmin)
	member := testutil.CreateUser(t, db, "bob", "bob@example.com", models.RoleUser)

	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/account/%d", member.ID), nil)
	testutil.Authorize(t, req, admin.ID)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)

	var count int64
	db.Model(&models.User{}).Where("id = ?", member.ID).Count(&count)
	assert.Zero(t, count)
}

func TestDeleteUserWithContentBlocked(t *testing.T) {
	db, router := setup(t)
	admin := testutil.CreateUser(t, db, "admin", "admin@example.com", models.RoleAdmin)
	member := testutil.CreateUser(t, db, "bob", "bob@example.com", models.RoleUser)
	testutil.CreatePost(t, db, member.ID, "still here", nil)

	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/account/%d", member.ID), nil)
	testutil.Authorize(t, req, admin.ID)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)

	var count int64
	db.Model(&models.User{}).Where("id = ?", member.ID).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestDeleteUserWithOnlyLikesBlocked(t *testing.T) {
	db, router := setup(t)
	admin := testutil.CreateUser(t, db, "admin", "admin@example.com", models.RoleAdmin)
	author := testutil.CreateUser(t, db, "alice", "alice@example.com", models.RoleUser)
	member := testutil.CreateUser(t, db, "bob", "bob@example.com", models.RoleUser)
	post := testutil.CreatePost(t, db, author.ID, "popular", nil)
	require.NoError(t, db.Create(&models.Like{UserID: member.ID, PostID: &post.ID}).Error)

	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/account/%d", member.ID), nil)
	testutil.Authorize(t, req, admin.ID)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDeleteAdminForbidden(t *testing.T) {
	db, router := setup(t)
	admin := testutil.CreateUser(t, db, "admin", "admin@example.com", models.RoleAdmin)
	other := testutil.CreateUser(t, db, "other", "other@example.com", models.RoleAdmin)

	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/account/%d", other.ID), nil)
	testutil.Authorize(t, req, admin.ID)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDeleteUserMissing(t *testing.T) {
	db, router := setup(t)
	admin := testutil.CreateUser(t, db, "admin", "admin@example.com", models.RoleAdmin)

	req := httptest.NewRequest(http.MethodDelete, "/account/42", nil)
	testutil.Authorize(t, req, admin.ID)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
