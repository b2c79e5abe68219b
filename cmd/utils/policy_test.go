package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nartuliga/nartuliga-server/cmd/models"
	"github.com/stretchr/testify/assert"
)

func TestCanModify(t *testing.T) {
	owner := &models.User{ID: 1, Role: models.RoleUser}
	stranger := &models.User{ID: 2, Role: models.RoleUser}
	admin := &models.User{ID: 3, Role: models.RoleAdmin}

	// Owners always may, with or without the override.
	assert.NoError(t, CanModify(owner, 1, false))
	assert.NoError(t, CanModify(owner, 1, true))

	// Strangers never may.
	assert.ErrorIs(t, CanModify(stranger, 1, false), ErrForbidden)
	assert.ErrorIs(t, CanModify(stranger, 1, true), ErrForbidden)

	// Admins get the override only when the operation grants it.
	assert.ErrorIs(t, CanModify(admin, 1, false), ErrForbidden)
	assert.NoError(t, CanModify(admin, 1, true))
}

func TestRequireAdmin(t *testing.T) {
	assert.ErrorIs(t, RequireAdmin(&models.User{ID: 1, Role: models.RoleUser}), ErrForbidden)
	assert.NoError(t, RequireAdmin(&models.User{ID: 2, Role: models.RoleAdmin}))
}

func TestValidImageExtension(t *testing.T) {
	valid := []string{"photo.jpg", "photo.JPEG", "a.png", "b.webp", "c.GIF"}
	for _, name := range valid {
		assert.True(t, ValidImageExtension(name), name)
	}

	invalid := []string{"doc.pdf", "archive.zip", "noext", "script.png.exe", "image.svg"}
	for _, name := range invalid {
		assert.False(t, ValidImageExtension(name), name)
	}
}

func TestParsePagination(t *testing.T) {
	cases := []struct {
		query        string
		wantPage     int
		wantPageSize int
	}{
		{"", 1, 10},
		{"page=3&pageSize=20", 3, 20},
		{"page=0&pageSize=0", 1, 10},
		{"page=-1&pageSize=500", 1, 10},
		{"page=abc&pageSize=xyz", 1, 10},
	}

	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodGet, "/post?"+tc.query, nil)
		page, pageSize := ParsePagination(r)
		assert.Equal(t, tc.wantPage, page, tc.query)
		assert.Equal(t, tc.wantPageSize, pageSize, tc.query)
	}
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(25, 2, 10)
	assert.EqualValues(t, 25, p.TotalCount)
	assert.Equal(t, 10, p.PageSize)
	assert.Equal(t, 2, p.CurrentPage)
	assert.EqualValues(t, 3, p.TotalPages)

	assert.EqualValues(t, 1, NewPagination(1, 1, 10).TotalPages)
	assert.EqualValues(t, 0, NewPagination(0, 1, 10).TotalPages)
}
