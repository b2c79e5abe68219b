package comment

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
	router.HandleFunc("/comment", utils.RequireAuth(h.secret, h.CreateComment)).Methods("POST")
	router.HandleFunc("/comment/{id}", utils.OptionalAuth(h.secret, h.GetComment)).Methods("GET")
	router.HandleFunc("/comment/{id}", utils.RequireAuth(h.secret, h.UpdateComment)).Methods("PUT")
	router.HandleFunc("/comment/{id}", utils.RequireAuth(h.secret, h.DeleteComment)).Methods("DELETE")
}

// CreateComment adds a comment to the post given by the postId query
// parameter.
func (h *Handler) CreateComment(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r)
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "authentication required", "")
		return
	}

	postID, err := strconv.ParseUint(r.URL.Query().Get("postId"), 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid post ID", "bad_id")
		return
	}

	var commentRequest struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&commentRequest); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body", "bad_body")
		return
	}
	if err := validateText(commentRequest.Text); err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error(), "bad_text")
		return
	}

	var post models.Post
	if err := h.db.First(&post, postID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "The specified post does not exist", "post_not_found")
		return
	}

	comment := models.Comment{
		UserID: userID,
		PostID: post.ID,
		Text:   commentRequest.Text,
	}

	if err := h.db.Create(&comment).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error creating comment", "")
		return
	}

	h.db.Preload("User").First(&comment, comment.ID)

	utils.SetMetadataHeader(w, r, nil)
	utils.WriteJSON(w, http.StatusCreated, models.NewCommentResponse(comment))
}

func (h *Handler) GetComment(w http.ResponseWriter, r *http.Request) {
	commentID, err := parseCommentID(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid comment ID", "bad_id")
		return
	}

	var comment models.Comment
	if err := h.db.Preload("User").Preload("Likes.User").First(&comment, commentID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "The specified comment does not exist", "comment_not_found")
		return
	}

	utils.SetMetadataHeader(w, r, nil)
	utils.WriteJSON(w, http.StatusOK, models.NewCommentResponse(comment))
}

// UpdateComment is owner-only. Admins may delete any comment but never edit
// someone else's.
func (h *Handler) UpdateComment(w http.ResponseWriter, r *http.Request) {
	actor, err := utils.CurrentUser(h.db, r)
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "authentication required", "")
		return
	}

	commentID, err := parseCommentID(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid comment ID", "bad_id")
		return
	}

	var commentRequest struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&commentRequest); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body", "bad_body")
		return
	}
	if err := validateText(commentRequest.Text); err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error(), "bad_text")
		return
	}

	var comment models.Comment
	if err := h.db.First(&comment, commentID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "The specified comment does not exist", "comment_not_found")
		return
	}

	if err := utils.CanModify(actor, comment.UserID, false); err != nil {
		utils.WriteError(w, http.StatusForbidden, "You do not have permission to update this comment", "not_owner")
		return
	}

	comment.Text = commentRequest.Text
	if err := h.db.Save(&comment).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error updating comment", "")
		return
	}

	h.db.Preload("User").Preload("Likes.User").First(&comment, comment.ID)

	utils.SetMetadataHeader(w, r, nil)
	utils.WriteJSON(w, http.StatusOK, models.NewCommentResponse(comment))
}

// DeleteComment removes the comment and every like targeting it in one
// transaction. Owner or admin.
func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	actor, err := utils.CurrentUser(h.db, r)
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "authentication required", "")
		return
	}

	commentID, err := parseCommentID(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid comment ID", "bad_id")
		return
	}

	var comment models.Comment
	if err := h.db.First(&comment, commentID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "The specified comment does not exist", "comment_not_found")
		return
	}

	if err := utils.CanModify(actor, comment.UserID, true); err != nil {
		utils.WriteError(w, http.StatusForbidden, "You do not have permission to delete this comment", "not_owner")
		return
	}

	tx := h.db.Begin()

	if err := tx.Where("comment_id = ?", comment.ID).Delete(&models.Like{}).Error; err != nil {
		tx.Rollback()
		utils.WriteError(w, http.StatusInternalServerError, "Error deleting likes", "")
		return
	}

	if err := tx.Delete(&comment).Error; err != nil {
		tx.Rollback()
		utils.WriteError(w, http.StatusInternalServerError, "Error deleting comment", "")
		return
	}

	if err := tx.Commit().Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error deleting comment", "")
		return
	}

	utils.WriteJSON(w, http.StatusNoContent, nil)
}

func validateText(text string) error {
	if text == "" {
		return errors.New("Comment text is required")
	}
	if len([]rune(text)) > 200 {
		return errors.New("Comment text can't exceed 200 characters")
	}
	return nil
}

func parseCommentID(r *http.Request) (uint64, error) {
	vars := mux.Vars(r)
	return strconv.ParseUint(vars["id"], 10, 64)
}
