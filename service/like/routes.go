package like

import (
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
	router.HandleFunc("/like/post/{id}", utils.RequireAuth(h.secret, h.LikePost)).Methods("POST")
	router.HandleFunc("/like/post/{id}", utils.RequireAuth(h.secret, h.UnlikePost)).Methods("DELETE")
	router.HandleFunc("/like/comment/{id}", utils.RequireAuth(h.secret, h.LikeComment)).Methods("POST")
	router.HandleFunc("/like/comment/{id}", utils.RequireAuth(h.secret, h.UnlikeComment)).Methods("DELETE")
}

func (h *Handler) LikePost(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r)
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "authentication required", "")
		return
	}

	postID, err := parseTargetID(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid post ID", "bad_id")
		return
	}

	var post models.Post
	if err := h.db.First(&post, postID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Post not found", "post_not_found")
		return
	}

	like := models.Like{UserID: userID, PostID: &post.ID}
	h.createLike(w, like, "You have already liked this post", "Post liked successfully")
}

func (h *Handler) LikeComment(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r)
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "authentication required", "")
		return
	}

	commentID, err := parseTargetID(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid comment ID", "bad_id")
		return
	}

	var comment models.Comment
	if err := h.db.First(&comment, commentID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Comment not found", "comment_not_found")
		return
	}

	like := models.Like{UserID: userID, CommentID: &comment.ID}
	h.createLike(w, like, "You have already liked this comment", "Comment liked successfully")
}

// createLike inserts a like after an existence check. Two identical requests
// can pass the check concurrently; the unique index decides the race and the
// loser is reported as a conflict, same as the fast path.
func (h *Handler) createLike(w http.ResponseWriter, like models.Like, conflictMsg, okMsg string) {
	if !like.HasSingleTarget() {
		utils.WriteError(w, http.StatusBadRequest, "A like must target exactly one post or comment", "bad_target")
		return
	}

	query := h.db.Where("user_id = ?", like.UserID)
	if like.PostID != nil {
		query = query.Where("post_id = ?", *like.PostID)
	} else {
		query = query.Where("comment_id = ?", *like.CommentID)
	}

	var existing models.Like
	if err := query.First(&existing).Error; err == nil {
		utils.WriteError(w, http.StatusConflict, conflictMsg, "duplicate_like")
		return
	}

	if err := h.db.Create(&like).Error; err != nil {
		if utils.IsDuplicateKeyError(err) {
			utils.WriteError(w, http.StatusConflict, conflictMsg, "duplicate_like")
			return
		}
		utils.WriteError(w, http.StatusInternalServerError, "Error saving the like", "")
		return
	}

	utils.WriteJSON(w, http.StatusCreated, map[string]string{"message": okMsg})
}

func (h *Handler) UnlikePost(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r)
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "authentication required", "")
		return
	}

	postID, err := parseTargetID(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid post ID", "bad_id")
		return
	}

	var post models.Post
	if err := h.db.First(&post, postID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Post not found", "post_not_found")
		return
	}

	result := h.db.Where("user_id = ? AND post_id = ?", userID, post.ID).Delete(&models.Like{})
	if result.Error != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error removing the like", "")
		return
	}
	if result.RowsAffected == 0 {
		utils.WriteError(w, http.StatusConflict, "You have not liked this post", "not_liked")
		return
	}

	utils.WriteJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) UnlikeComment(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r)
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "authentication required", "")
		return
	}

	commentID, err := parseTargetID(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid comment ID", "bad_id")
		return
	}

	var comment models.Comment
	if err := h.db.First(&comment, commentID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Comment not found", "comment_not_found")
		return
	}

	result := h.db.Where("user_id = ? AND comment_id = ?", userID, comment.ID).Delete(&models.Like{})
	if result.Error != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error removing the like", "")
		return
	}
	if result.RowsAffected == 0 {
		utils.WriteError(w, http.StatusConflict, "You have not liked this comment", "not_liked")
		return
	}

	utils.WriteJSON(w, http.StatusNoContent, nil)
}

func parseTargetID(r *http.Request) (uint64, error) {
	vars := mux.Vars(r)
	return strconv.ParseUint(vars["id"], 10, 64)
}
