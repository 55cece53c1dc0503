package account

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Role selects which profile table an account is linked to.
type Role string

const (
	RoleStudent Role = "student"
	RoleFaculty Role = "faculty"
	RoleAdmin   Role = "admin"
)

// Roles lists every recognized role in display order.
var Roles = []Role{RoleStudent, RoleFaculty, RoleAdmin}

var ErrUnknownRole = errors.New("invalid role")

// ParseRole maps the wire value to a Role. Matching is exact.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleStudent, RoleFaculty, RoleAdmin:
		return r, nil
	}
	return "", ErrUnknownRole
}

func (r Role) String() string { return string(r) }

// Account is the authentication identity. Exactly one of StudentID, FacultyID
// and AdminID is set and it matches Role.
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:a"`

	ID           uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	Username     string    `bun:"username,notnull" json:"username"`
	Email        string    `bun:"email,unique,notnull" json:"email"`
	PasswordHash string    `bun:"password_hash,notnull" json:"-"`
	Role         Role      `bun:"role,notnull" json:"role"`
	Avatar       *string   `bun:"avatar" json:"avatar"`
	Status       bool      `bun:"status,notnull" json:"status"`
	StudentID    *string   `bun:"student_id" json:"studentId,omitempty"`
	FacultyID    *string   `bun:"faculty_id" json:"facultyId,omitempty"`
	AdminID      *string   `bun:"admin_id" json:"adminId,omitempty"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt    time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updatedAt"`
}

// LinkProfile points the account at profileID in the table selected by role
// and clears the other two references.
func (a *Account) LinkProfile(role Role, profileID string) {
	a.Role = role
	a.StudentID, a.FacultyID, a.AdminID = nil, nil, nil

	id := profileID
	switch role {
	case RoleStudent:
		a.StudentID = &id
	case RoleFaculty:
		a.FacultyID = &id
	case RoleAdmin:
		a.AdminID = &id
	}
}

// ProfileID returns the reference matching the account role.
func (a *Account) ProfileID() string {
	var ref *string
	switch a.Role {
	case RoleStudent:
		ref = a.StudentID
	case RoleFaculty:
		ref = a.FacultyID
	case RoleAdmin:
		ref = a.AdminID
	}
	if ref == nil {
		return ""
	}
	return *ref
}

// Summary is the public view of an account. It never carries credentials.
type Summary struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Role     Role      `json:"role"`
	Avatar   *string   `json:"avatar"`
}

func (a *Account) Summary() Summary {
	return Summary{
		ID:       a.ID,
		Username: a.Username,
		Email:    a.Email,
		Role:     a.Role,
		Avatar:   a.Avatar,
	}
}

// RoleInfo describes a role for the signup role picker.
type RoleInfo struct {
	Value       Role   `json:"value"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

var catalogue = map[Role]RoleInfo{
	RoleStudent: {Value: RoleStudent, Label: "Student", Description: "Register as a student to access student resources"},
	RoleFaculty: {Value: RoleFaculty, Label: "Faculty", Description: "Register as faculty to access faculty resources"},
	RoleAdmin:   {Value: RoleAdmin, Label: "Admin", Description: "Register as admin to access administrative tools"},
}

// Catalogue returns the role descriptions in display order.
func Catalogue() []RoleInfo {
	out := make([]RoleInfo, 0, len(Roles))
	for _, r := range Roles {
		out = append(out, catalogue[r])
	}
	return out
}

func (r Role) Label() string {
	if info, ok := catalogue[r]; ok {
		return info.Label
	}
	return string(r)
}
