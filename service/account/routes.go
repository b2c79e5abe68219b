package account

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/mail"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/nartuliga/nartuliga-server/cmd/models"
	"github.com/nartuliga/nartuliga-server/cmd/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const tokenTTL = 24 * time.Hour

type Handler struct {
	db     *gorm.DB
	secret string
}

func NewHandler(db *gorm.DB, secret string) *Handler {
	return &Handler{db: db, secret: secret}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/account/register", h.HandleRegister).Methods("POST")
	router.HandleFunc("/account/login", h.HandleLogin).Methods("POST")
	router.HandleFunc("/account/whoami", utils.RequireAuth(h.secret, h.WhoAmI)).Methods("GET")
	router.HandleFunc("/account", utils.RequireAuth(h.secret, h.GetUsers)).Methods("GET")
	router.HandleFunc("/account/admin/{id}", utils.RequireAuth(h.secret, h.GrantAdmin)).Methods("POST")
	router.HandleFunc("/account/admin/{id}", utils.RequireAuth(h.secret, h.RevokeAdmin)).Methods("DELETE")
	router.HandleFunc("/account/{id}", utils.RequireAuth(h.secret, h.DeleteUser)).Methods("DELETE")
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var registerRequest struct {
		Email       string `json:"email"`
		Password    string `json:"password"`
		AccountName string `json:"account_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&registerRequest); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid JSON input", "bad_body")
		return
	}

	if registerRequest.Email == "" || registerRequest.Password == "" || registerRequest.AccountName == "" {
		utils.WriteError(w, http.StatusBadRequest, "Missing required fields", "missing_fields")
		return
	}
	if _, err := mail.ParseAddress(registerRequest.Email); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid email address", "bad_email")
		return
	}
	if len([]rune(registerRequest.AccountName)) > 25 {
		utils.WriteError(w, http.StatusBadRequest, "Account name can't exceed 25 characters", "account_name_too_long")
		return
	}

	var existingUser models.User
	if result := h.db.Where("email = ?", registerRequest.Email).First(&existingUser); !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		if result.Error != nil {
			utils.WriteError(w, http.StatusInternalServerError, "An unexpected error occurred", "")
			return
		}
		log.Printf("Registration attempt with duplicate email")
		utils.WriteError(w, http.StatusConflict, "Email already in use", "duplicate_email")
		return
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(registerRequest.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error registering user", "")
		return
	}

	user := models.User{
		Email:        registerRequest.Email,
		PasswordHash: string(passwordHash),
		AccountName:  registerRequest.AccountName,
		Role:         models.RoleUser,
	}

	if err := h.db.Create(&user).Error; err != nil {
		if utils.IsDuplicateKeyError(err) {
			utils.WriteError(w, http.StatusConflict, "Email already in use", "duplicate_email")
			return
		}
		utils.WriteError(w, http.StatusInternalServerError, "Error registering user", "")
		return
	}

	utils.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Registration successful",
		"user_id": user.ID,
	})
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var loginRequest struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&loginRequest); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body", "bad_body")
		return
	}

	var user models.User
	if err := h.db.Where("email = ?", loginRequest.Email).First(&user).Error; err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Invalid credentials", "bad_credentials")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(loginRequest.Password)); err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Invalid credentials", "bad_credentials")
		return
	}

	accessToken, err := utils.GenerateToken(user.ID, h.secret, tokenTTL)
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error generating access token", "")
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message":      "Login successful",
		"access_token": accessToken,
		"user_id":      user.ID,
	})
}

func (h *Handler) WhoAmI(w http.ResponseWriter, r *http.Request) {
	user, err := utils.CurrentUser(h.db, r)
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "authentication required", "")
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"id":           user.ID,
		"account_name": user.AccountName,
		"is_admin":     user.IsAdmin(),
	})
}

// GetUsers lists all accounts with their admin flag. Admin only.
func (h *Handler) GetUsers(w http.ResponseWriter, r *http.Request) {
	actor, err := utils.CurrentUser(h.db, r)
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "authentication required", "")
		return
	}
	if err := utils.RequireAdmin(actor); err != nil {
		utils.WriteError(w, http.StatusForbidden, "You are not authorized to perform this action", "admin_required")
		return
	}

	var users []models.User
	if err := h.db.Order("id").Find(&users).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error retrieving users", "")
		return
	}

	userList := make([]map[string]interface{}, 0, len(users))
	for _, user := range users {
		userList = append(userList, map[string]interface{}{
			"id":           user.ID,
			"account_name": user.AccountName,
			"email":        user.Email,
			"is_admin":     user.IsAdmin(),
		})
	}

	utils.WriteJSON(w, http.StatusOK, userList)
}

func (h *Handler) GrantAdmin(w http.ResponseWriter, r *http.Request) {
	actor, err := utils.CurrentUser(h.db, r)
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "authentication required", "")
		return
	}
	if err := utils.RequireAdmin(actor); err != nil {
		utils.WriteError(w, http.StatusForbidden, "You are not authorized to perform this action", "admin_required")
		return
	}

	userID, err := parseUserID(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid user ID", "bad_id")
		return
	}

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "User not found", "user_not_found")
		return
	}

	if user.IsAdmin() {
		utils.WriteError(w, http.StatusConflict, "User already has Admin role", "role_already_assigned")
		return
	}

	if err := h.db.Model(&user).Update("role", models.RoleAdmin).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Failed to add Admin role", "")
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Admin role added successfully",
	})
}

func (h *Handler) RevokeAdmin(w http.ResponseWriter, r *http.Request) {
	actor, err := utils.CurrentUser(h.db, r)
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "authentication required", "")
		return
	}
	if err := utils.RequireAdmin(actor); err != nil {
		utils.WriteError(w, http.StatusForbidden, "You are not authorized to perform this action", "admin_required")
		return
	}

	userID, err := parseUserID(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid user ID", "bad_id")
		return
	}

	// Self-demotion through this endpoint is blocked.
	if uint(userID) == actor.ID {
		utils.WriteError(w, http.StatusForbidden, "You cannot perform this action on your own account", "self_action_blocked")
		return
	}

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "User not found", "user_not_found")
		return
	}

	if !user.IsAdmin() {
		utils.WriteError(w, http.StatusBadRequest, "User does not have Admin role", "role_not_assigned")
		return
	}

	if err := h.db.Model(&user).Update("role", models.RoleUser).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Failed to remove Admin role", "")
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Admin role removed successfully",
	})
}

// DeleteUser hard-deletes a non-admin account. Accounts that still own posts,
// comments or likes cannot be removed; content is never cascade-deleted with
// its author.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	actor, err := utils.CurrentUser(h.db, r)
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "authentication required", "")
		return
	}
	if err := utils.RequireAdmin(actor); err != nil {
		utils.WriteError(w, http.StatusForbidden, "You are not authorized to perform this action", "admin_required")
		return
	}

	userID, err := parseUserID(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid user ID", "bad_id")
		return
	}

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "User not found", "user_not_found")
		return
	}

	if user.IsAdmin() {
		utils.WriteError(w, http.StatusForbidden, "Admin accounts cannot be deleted", "admin_not_deletable")
		return
	}

	var contentCount int64
	if err := countAuthoredContent(h.db, user.ID, &contentCount); err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "An unexpected error occurred", "")
		return
	}
	if contentCount > 0 {
		utils.WriteError(w, http.StatusConflict, "User still owns posts, comments or likes", "user_has_content")
		return
	}

	if err := h.db.Delete(&user).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error deleting user", "")
		return
	}

	utils.WriteJSON(w, http.StatusNoContent, nil)
}

func countAuthoredContent(db *gorm.DB, userID uint, total *int64) error {
	var count int64
	*total = 0
	for _, model := range []interface{}{&models.Post{}, &models.Comment{}, &models.Like{}} {
		if err := db.Model(model).Where("user_id = ?", userID).Count(&count).Error; err != nil {
			return err
		}
		*total += count
	}
	return nil
}

func parseUserID(r *http.Request) (uint64, error) {
	vars := mux.Vars(r)
	return strconv.ParseUint(vars["id"], 10, 64)
}
