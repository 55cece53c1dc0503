package registration

import (
	"errors"
	"fmt"

	"college-erp/internal/account"
)

var (
	ErrMissingField   = errors.New("all required fields are mandatory")
	ErrDuplicateEmail = errors.New("email is already registered")
	ErrMissingRoleID  = errors.New("role identifier required")
	ErrInvalidRole    = errors.New("invalid role")
	ErrInvalidField   = errors.New("invalid field")
	ErrPersistence    = errors.New("failed to persist registration")
)

// MissingRoleIDError names the role whose identifier was not supplied.
// It matches ErrMissingRoleID with errors.Is.
type MissingRoleIDError struct {
	Role account.Role
}

func (e *MissingRoleIDError) Error() string {
	return fmt.Sprintf("%s ID required", e.Role.Label())
}

func (e *MissingRoleIDError) Is(target error) bool {
	return target == ErrMissingRoleID
}

// IsValidation reports whether err was raised before any write and is safe to show the client.
func IsValidation(err error) bool {
	return errors.Is(err, ErrMissingField) ||
		errors.Is(err, ErrDuplicateEmail) ||
		errors.Is(err, ErrMissingRoleID) ||
		errors.Is(err, ErrInvalidRole) ||
		errors.Is(err, ErrInvalidField)
}
