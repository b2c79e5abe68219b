package utils

import (
	"errors"

	"github.com/nartuliga/nartuliga-server/cmd/models"
)

var (
	ErrForbidden = errors.New("operation not permitted")
)

// CanModify decides whether actor may mutate a resource owned by ownerID.
// adminOverride covers deletes, where an admin can act on anyone's resource;
// edits never get the override.
func CanModify(actor *models.User, ownerID uint, adminOverride bool) error {
	if actor.ID == ownerID {
		return nil
	}
	if adminOverride && actor.IsAdmin() {
		return nil
	}
	return ErrForbidden
}

// RequireAdmin gates admin-only operations.
func RequireAdmin(actor *models.User) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	return nil
}
