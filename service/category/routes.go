package category

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/nartuliga/nartuliga-server/cmd/models"
	"github.com/nartuliga/nartuliga-server/cmd/utils"
	"gorm.io/gorm"
)

type Handler struct {
	db     *gorm.DB
	secret string
}

func NewHandler(db *gorm.DB, secret string) *Handler {
	return &Handler{db: db, secret: secret}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/category", h.GetCategories).Methods("GET")
	router.HandleFunc("/category/{id}", h.GetCategory).Methods("GET")
	router.HandleFunc("/category", utils.RequireAuth(h.secret, h.CreateCategory)).Methods("POST")
	router.HandleFunc("/category/{id}", utils.RequireAuth(h.secret, h.UpdateCategory)).Methods("PUT")
	router.HandleFunc("/category/{id}", utils.RequireAuth(h.secret, h.DeleteCategory)).Methods("DELETE")
}

func (h *Handler) GetCategories(w http.ResponseWriter, r *http.Request) {
	var categories []models.Category
	if err := h.db.Order("id").Find(&categories).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error retrieving categories", "")
		return
	}

	utils.WriteJSON(w, http.StatusOK, categories)
}

func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, err := parseCategoryID(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid category ID", "bad_id")
		return
	}

	var category models.Category
	if err := h.db.First(&category, categoryID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Category not found", "category_not_found")
		return
	}

	utils.WriteJSON(w, http.StatusOK, category)
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	actor, err := utils.CurrentUser(h.db, r)
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "authentication required", "")
		return
	}
	if err := utils.RequireAdmin(actor); err != nil {
		utils.WriteError(w, http.StatusForbidden, "You are not authorized to perform this action", "admin_required")
		return
	}

	var categoryRequest struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&categoryRequest); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body", "bad_body")
		return
	}
	if err := validateCategoryName(categoryRequest.Name); err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error(), "bad_name")
		return
	}

	if taken, err := h.nameTaken(categoryRequest.Name, 0); err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "An unexpected error occurred", "")
		return
	} else if taken {
		utils.WriteError(w, http.StatusConflict, "Category name already exists", "duplicate_category_name")
		return
	}

	category := models.Category{Name: categoryRequest.Name}
	if err := h.db.Create(&category).Error; err != nil {
		if utils.IsDuplicateKeyError(err) {
			utils.WriteError(w, http.StatusConflict, "Category name already exists", "duplicate_category_name")
			return
		}
		utils.WriteError(w, http.StatusInternalServerError, "Error creating category", "")
		return
	}

	utils.WriteJSON(w, http.StatusCreated, category)
}

func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	actor, err := utils.CurrentUser(h.db, r)
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "authentication required", "")
		return
	}
	if err := utils.RequireAdmin(actor); err != nil {
		utils.WriteError(w, http.StatusForbidden, "You are not authorized to perform this action", "admin_required")
		return
	}

	categoryID, err := parseCategoryID(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid category ID", "bad_id")
		return
	}

	var categoryRequest struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&categoryRequest); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body", "bad_body")
		return
	}
	if err := validateCategoryName(categoryRequest.Name); err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error(), "bad_name")
		return
	}

	var category models.Category
	if err := h.db.First(&category, categoryID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Category not found", "category_not_found")
		return
	}

	if taken, err := h.nameTaken(categoryRequest.Name, category.ID); err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "An unexpected error occurred", "")
		return
	} else if taken {
		utils.WriteError(w, http.StatusConflict, "Category name already exists", "duplicate_category_name")
		return
	}

	category.Name = categoryRequest.Name
	if err := h.db.Save(&category).Error; err != nil {
		if utils.IsDuplicateKeyError(err) {
			utils.WriteError(w, http.StatusConflict, "Category name already exists", "duplicate_category_name")
			return
		}
		utils.WriteError(w, http.StatusInternalServerError, "Error updating category", "")
		return
	}

	utils.WriteJSON(w, http.StatusOK, category)
}

// DeleteCategory removes the category and reassigns its posts to
// uncategorized in a single transaction. Posts survive their category.
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	actor, err := utils.CurrentUser(h.db, r)
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "authentication required", "")
		return
	}
	if err := utils.RequireAdmin(actor); err != nil {
		utils.WriteError(w, http.StatusForbidden, "You are not authorized to perform this action", "admin_required")
		return
	}

	categoryID, err := parseCategoryID(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid category ID", "bad_id")
		return
	}

	var category models.Category
	if err := h.db.First(&category, categoryID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Category not found", "category_not_found")
		return
	}

	tx := h.db.Begin()

	if err := tx.Model(&models.Post{}).Where("category_id = ?", category.ID).
		Update("category_id", nil).Error; err != nil {
		tx.Rollback()
		utils.WriteError(w, http.StatusInternalServerError, "Error reassigning posts", "")
		return
	}

	if err := tx.Delete(&category).Error; err != nil {
		tx.Rollback()
		utils.WriteError(w, http.StatusInternalServerError, "Error deleting category", "")
		return
	}

	if err := tx.Commit().Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error deleting category", "")
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Category deleted successfully",
	})
}

func (h *Handler) nameTaken(name string, excludeID uint) (bool, error) {
	var existing models.Category
	query := h.db.Where("LOWER(name) = LOWER(?)", name)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	err := query.First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func validateCategoryName(name string) error {
	if name == "" {
		return errors.New("Category name is required")
	}
	if len([]rune(name)) > 25 {
		return errors.New("Category name can't exceed 25 characters")
	}
	return nil
}

func parseCategoryID(r *http.Request) (uint64, error) {
	vars := mux.Vars(r)
	return strconv.ParseUint(vars["id"], 10, 64)
}
