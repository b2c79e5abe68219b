package post

import (
	"context"
	"errors"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/nartuliga/nartuliga-server/cmd/models"
	"github.com/nartuliga/nartuliga-server/cmd/utils"
	"github.com/nartuliga/nartuliga-server/service/blob"
	"gorm.io/gorm"
)

const maxFormSize = 50 << 20

type Handler struct {
	db     *gorm.DB
	blobs  blob.Store
	secret string
}

func NewHandler(db *gorm.DB, blobs blob.Store, secret string) *Handler {
	return &Handler{db: db, blobs: blobs, secret: secret}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/post", utils.OptionalAuth(h.secret, h.GetPosts)).Methods("GET")
	router.HandleFunc("/post/category/{id}", utils.OptionalAuth(h.secret, h.GetPostsByCategory)).Methods("GET")
	router.HandleFunc("/post/{id}", utils.OptionalAuth(h.secret, h.GetPost)).Methods("GET")
	router.HandleFunc("/post", utils.RequireAuth(h.secret, h.CreatePost)).Methods("POST")
	router.HandleFunc("/post/{id}", utils.RequireAuth(h.secret, h.UpdatePost)).Methods("PUT")
	router.HandleFunc("/post/{id}", utils.RequireAuth(h.secret, h.PatchPost)).Methods("PATCH")
	router.HandleFunc("/post/{id}", utils.RequireAuth(h.secret, h.DeletePost)).Methods("DELETE")
}

func (h *Handler) preloaded() *gorm.DB {
	return h.db.
		Preload("User").
		Preload("Category").
		Preload("Likes.User").
		Preload("Comments.User").
		Preload("Comments.Likes.User")
}

// GetPosts retrieves all posts, newest first, with pagination reported in the
// Metadata response header.
func (h *Handler) GetPosts(w http.ResponseWriter, r *http.Request) {
	page, pageSize := utils.ParsePagination(r)

	var total int64
	if err := h.db.Model(&models.Post{}).Count(&total).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error retrieving posts", "")
		return
	}

	var posts []models.Post
	if err := h.preloaded().
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&posts).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error retrieving posts", "")
		return
	}

	responses := make([]models.PostResponse, 0, len(posts))
	for _, p := range posts {
		responses = append(responses, models.NewPostResponse(p))
	}

	pagination := utils.NewPagination(total, page, pageSize)
	utils.SetMetadataHeader(w, r, &pagination)
	utils.WriteJSON(w, http.StatusOK, responses)
}

func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	postID, err := parsePostID(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid post ID", "bad_id")
		return
	}

	var post models.Post
	if err := h.preloaded().First(&post, postID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Post not found", "post_not_found")
		return
	}

	utils.SetMetadataHeader(w, r, nil)
	utils.WriteJSON(w, http.StatusOK, models.NewPostResponse(post))
}

func (h *Handler) GetPostsByCategory(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	categoryID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid category ID", "bad_id")
		return
	}

	var category models.Category
	if err := h.db.First(&category, categoryID).Error; err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid category", "category_not_found")
		return
	}

	page, pageSize := utils.ParsePagination(r)

	var total int64
	if err := h.db.Model(&models.Post{}).Where("category_id = ?", categoryID).Count(&total).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error retrieving posts", "")
		return
	}

	var posts []models.Post
	if err := h.preloaded().
		Where("category_id = ?", categoryID).
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&posts).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error retrieving posts", "")
		return
	}

	responses := make([]models.PostResponse, 0, len(posts))
	for _, p := range posts {
		responses = append(responses, models.NewPostResponse(p))
	}

	pagination := utils.NewPagination(total, page, pageSize)
	utils.SetMetadataHeader(w, r, &pagination)
	utils.WriteJSON(w, http.StatusOK, responses)
}

// CreatePost creates a post from a multipart form: caption, optional
// categoryId, optional image. Validation runs before the blob upload so a
// rejected request never leaves an orphaned object behind.
func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r)
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "authentication required", "")
		return
	}

	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Error parsing form", "bad_form")
		return
	}

	caption := r.FormValue("caption")
	if err := validateCaption(caption); err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error(), "bad_caption")
		return
	}

	categoryID, err := h.resolveCategory(r.FormValue("categoryId"))
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid category", "category_not_found")
		return
	}

	file, header, err := r.FormFile("image")
	var imageURL *string
	if err == nil {
		defer file.Close()
		url, uploadErr := h.uploadImage(r.Context(), file, header)
		if uploadErr != nil {
			writeUploadError(w, uploadErr)
			return
		}
		imageURL = &url
	} else if !errors.Is(err, http.ErrMissingFile) {
		utils.WriteError(w, http.StatusBadRequest, "Error processing image", "bad_image")
		return
	}

	post := models.Post{
		UserID:     userID,
		Caption:    caption,
		ImageURL:   imageURL,
		CategoryID: categoryID,
	}

	if err := h.db.Create(&post).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error creating post", "")
		return
	}

	h.preloaded().First(&post, post.ID)

	utils.SetMetadataHeader(w, r, nil)
	utils.WriteJSON(w, http.StatusCreated, models.NewPostResponse(post))
}

// UpdatePost fully replaces caption, category and image. Only the owner may
// replace a post; admins delete, they do not edit.
func (h *Handler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	actor, err := utils.CurrentUser(h.db, r)
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "authentication required", "")
		return
	}

	postID, err := parsePostID(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid post ID", "bad_id")
		return
	}

	var post models.Post
	if err := h.db.First(&post, postID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Post not found", "post_not_found")
		return
	}

	if err := utils.CanModify(actor, post.UserID, false); err != nil {
		utils.WriteError(w, http.StatusForbidden, "You do not have permission to update this post", "not_owner")
		return
	}

	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Error parsing form", "bad_form")
		return
	}

	caption := r.FormValue("caption")
	if err := validateCaption(caption); err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error(), "bad_caption")
		return
	}

	categoryID, err := h.resolveCategory(r.FormValue("categoryId"))
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid category", "category_not_found")
		return
	}

	oldImageURL := post.ImageURL

	file, header, err := r.FormFile("image")
	var imageURL *string
	if err == nil {
		defer file.Close()
		url, uploadErr := h.uploadImage(r.Context(), file, header)
		if uploadErr != nil {
			writeUploadError(w, uploadErr)
			return
		}
		imageURL = &url
	} else if !errors.Is(err, http.ErrMissingFile) {
		utils.WriteError(w, http.StatusBadRequest, "Error processing image", "bad_image")
		return
	}

	post.Caption = caption
	post.CategoryID = categoryID
	post.ImageURL = imageURL

	if err := h.db.Save(&post).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error updating post", "")
		return
	}

	// The record is durable; removing the replaced blob is best effort.
	h.cleanupBlob(r.Context(), oldImageURL, post.ImageURL)

	h.preloaded().First(&post, post.ID)

	utils.SetMetadataHeader(w, r, nil)
	utils.WriteJSON(w, http.StatusOK, models.NewPostResponse(post))
}

// PatchPost overwrites only the fields present in the form. An empty caption
// means "no change", so a caption can never be cleared through this endpoint.
func (h *Handler) PatchPost(w http.ResponseWriter, r *http.Request) {
	actor, err := utils.CurrentUser(h.db, r)
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "authentication required", "")
		return
	}

	postID, err := parsePostID(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid post ID", "bad_id")
		return
	}

	var post models.Post
	if err := h.db.First(&post, postID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Post not found", "post_not_found")
		return
	}

	if err := utils.CanModify(actor, post.UserID, false); err != nil {
		utils.WriteError(w, http.StatusForbidden, "You do not have permission to update this post", "not_owner")
		return
	}

	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Error parsing form", "bad_form")
		return
	}

	if caption := r.FormValue("caption"); caption != "" {
		if err := validateCaption(caption); err != nil {
			utils.WriteError(w, http.StatusBadRequest, err.Error(), "bad_caption")
			return
		}
		post.Caption = caption
	}

	if rawCategory := r.FormValue("categoryId"); rawCategory != "" {
		categoryID, err := h.resolveCategory(rawCategory)
		if err != nil {
			utils.WriteError(w, http.StatusBadRequest, "Invalid category", "category_not_found")
			return
		}
		post.CategoryID = categoryID
	}

	oldImageURL := post.ImageURL

	file, header, err := r.FormFile("image")
	if err == nil {
		defer file.Close()
		url, uploadErr := h.uploadImage(r.Context(), file, header)
		if uploadErr != nil {
			writeUploadError(w, uploadErr)
			return
		}
		post.ImageURL = &url
	} else if !errors.Is(err, http.ErrMissingFile) {
		utils.WriteError(w, http.StatusBadRequest, "Error processing image", "bad_image")
		return
	}

	if err := h.db.Save(&post).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error updating post", "")
		return
	}

	h.cleanupBlob(r.Context(), oldImageURL, post.ImageURL)

	h.preloaded().First(&post, post.ID)

	utils.SetMetadataHeader(w, r, nil)
	utils.WriteJSON(w, http.StatusOK, models.NewPostResponse(post))
}

// DeletePost removes a post with its comments, likes and comment-likes in one
// transaction, then removes the stored image. Owner or admin only.
func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	actor, err := utils.CurrentUser(h.db, r)
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "authentication required", "")
		return
	}

	postID, err := parsePostID(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid post ID", "bad_id")
		return
	}

	var post models.Post
	if err := h.db.First(&post, postID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Post not found", "post_not_found")
		return
	}

	if err := utils.CanModify(actor, post.UserID, true); err != nil {
		utils.WriteError(w, http.StatusForbidden, "You do not have permission to delete this post", "not_owner")
		return
	}

	tx := h.db.Begin()

	// Likes on the post's comments go first, then the comments, then direct
	// likes, then the post itself.
	commentIDs := tx.Model(&models.Comment{}).Select("id").Where("post_id = ?", post.ID)
	if err := tx.Where("comment_id IN (?)", commentIDs).Delete(&models.Like{}).Error; err != nil {
		tx.Rollback()
		utils.WriteError(w, http.StatusInternalServerError, "Error deleting likes", "")
		return
	}

	if err := tx.Where("post_id = ?", post.ID).Delete(&models.Comment{}).Error; err != nil {
		tx.Rollback()
		utils.WriteError(w, http.StatusInternalServerError, "Error deleting comments", "")
		return
	}

	if err := tx.Where("post_id = ?", post.ID).Delete(&models.Like{}).Error; err != nil {
		tx.Rollback()
		utils.WriteError(w, http.StatusInternalServerError, "Error deleting likes", "")
		return
	}

	if err := tx.Delete(&post).Error; err != nil {
		tx.Rollback()
		utils.WriteError(w, http.StatusInternalServerError, "Error deleting post", "")
		return
	}

	if err := tx.Commit().Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error deleting post", "")
		return
	}

	h.cleanupBlob(r.Context(), post.ImageURL, nil)

	utils.WriteJSON(w, http.StatusNoContent, nil)
}

type uploadError struct {
	status  int
	message string
	reason  string
}

func (e *uploadError) Error() string { return e.message }

func writeUploadError(w http.ResponseWriter, err error) {
	var ue *uploadError
	if errors.As(err, &ue) {
		utils.WriteError(w, ue.status, ue.message, ue.reason)
		return
	}
	utils.WriteError(w, http.StatusInternalServerError, "Error saving image", "")
}

func (h *Handler) uploadImage(ctx context.Context, file multipart.File, header *multipart.FileHeader) (string, error) {
	if header.Size > utils.MaxImageSize {
		return "", &uploadError{http.StatusBadRequest, "Image exceeds the maximum size", "image_too_large"}
	}
	if !utils.ValidImageExtension(header.Filename) {
		return "", &uploadError{
			http.StatusBadRequest,
			"Invalid file type. Only JPG, JPEG, PNG, WEBP and GIF files are allowed",
			"bad_image_type",
		}
	}

	url, err := h.blobs.Upload(ctx, header.Filename, utils.ImageContentType(header.Filename), file, header.Size)
	if err != nil {
		return "", err
	}
	return url, nil
}

// cleanupBlob removes a replaced image. Failures are logged, never surfaced:
// the record mutation has already committed.
func (h *Handler) cleanupBlob(ctx context.Context, oldURL, newURL *string) {
	if oldURL == nil {
		return
	}
	if newURL != nil && *newURL == *oldURL {
		return
	}
	if err := h.blobs.Delete(ctx, *oldURL); err != nil {
		log.Printf("Error deleting blob %s: %v", *oldURL, err)
	}
}

// resolveCategory turns a form value into a category reference. Empty means
// uncategorized; a value that matches no category is an error, distinct from
// the no-category case.
func (h *Handler) resolveCategory(raw string) (*uint, error) {
	if raw == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, err
	}
	var category models.Category
	if err := h.db.First(&category, parsed).Error; err != nil {
		return nil, err
	}
	id := uint(parsed)
	return &id, nil
}

func validateCaption(caption string) error {
	if caption == "" {
		return errors.New("Caption is required")
	}
	if len([]rune(caption)) > 280 {
		return errors.New("Caption can't exceed 280 characters")
	}
	return nil
}

func parsePostID(r *http.Request) (uint64, error) {
	vars := mux.Vars(r)
	return strconv.ParseUint(vars["id"], 10, 64)
}
