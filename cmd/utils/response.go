package utils

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
)

type APIError struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
	Status int    `json:"status"`
}

func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

func WriteError(w http.ResponseWriter, status int, message, reason string) {
	WriteJSON(w, status, APIError{Error: message, Reason: reason, Status: status})
}

// IsDuplicateKeyError matches the unique-violation messages of the supported
// drivers.
func IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint")
}

type Pagination struct {
	TotalCount  int64 `json:"totalCount"`
	PageSize    int   `json:"pageSize"`
	CurrentPage int   `json:"currentPage"`
	TotalPages  int64 `json:"totalPages"`
}

func NewPagination(total int64, page, pageSize int) Pagination {
	return Pagination{
		TotalCount:  total,
		PageSize:    pageSize,
		CurrentPage: page,
		TotalPages:  (total + int64(pageSize) - 1) / int64(pageSize),
	}
}

// ParsePagination reads page/pageSize query parameters with sane bounds.
func ParsePagination(r *http.Request) (page, pageSize int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ = strconv.Atoi(r.URL.Query().Get("pageSize"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}
	return page, pageSize
}

type metadata struct {
	CurrentUserID uint        `json:"currentUserId,omitempty"`
	Pagination    *Pagination `json:"pagination,omitempty"`
}

// SetMetadataHeader reports the requesting principal and pagination through
// the Metadata response header rather than the body.
func SetMetadataHeader(w http.ResponseWriter, r *http.Request, pagination *Pagination) {
	meta := metadata{Pagination: pagination}
	if userID, err := GetUserIDFromContext(r); err == nil {
		meta.CurrentUserID = userID
	}
	encoded, err := json.Marshal(meta)
	if err != nil {
		return
	}
	w.Header().Set("Metadata", string(encoded))
}
