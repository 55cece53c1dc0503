package registration

import (
	"fmt"
	"strings"
	"time"

	"college-erp/internal/account"
	"college-erp/internal/profile"
)

const dateLayout = "2006-01-02"

// Request is the signup payload.
type Request struct {
	Username string `json:"username" validate:"notblank,max=255"`
	Email    string `json:"email" validate:"notblank,max=255"`
	Password string `json:"password" validate:"notblank,max=72"`
	Role     string `json:"role" validate:"notblank"`

	StudentID string `json:"studentId" validate:"max=64"`
	FacultyID string `json:"facultyId" validate:"max=64"`
	AdminID   string `json:"adminId" validate:"max=64"`
	Avatar    string `json:"avatar" validate:"omitempty,max=2048"`

	Name          string `json:"name" validate:"omitempty,max=255"`
	DateOfBirth   string `json:"dateOfBirth" validate:"omitempty,datetime=2006-01-02"`
	AdmissionDate string `json:"admissionDate" validate:"omitempty,datetime=2006-01-02"`
	CourseID      string `json:"courseId" validate:"omitempty,max=64"`
	Department    string `json:"department" validate:"omitempty,max=255"`
	DateOfJoining string `json:"dateOfJoining" validate:"omitempty,datetime=2006-01-02"`
}

// normalize trims surrounding whitespace from every field except the password.
func (r *Request) normalize() {
	for _, f := range []*string{
		&r.Username, &r.Email, &r.Role,
		&r.StudentID, &r.FacultyID, &r.AdminID, &r.Avatar,
		&r.Name, &r.DateOfBirth, &r.AdmissionDate, &r.CourseID, &r.Department, &r.DateOfJoining,
	} {
		*f = strings.TrimSpace(*f)
	}
}

// roleID returns the identifier field selected by role.
func (r *Request) roleID(role account.Role) string {
	switch role {
	case account.RoleStudent:
		return r.StudentID
	case account.RoleFaculty:
		return r.FacultyID
	case account.RoleAdmin:
		return r.AdminID
	}
	return ""
}

func (r *Request) details() (profile.Details, error) {
	d := profile.Details{
		Name:       r.Name,
		CourseID:   r.CourseID,
		Department: r.Department,
	}

	dates := []struct {
		field string
		value string
		dst   **time.Time
	}{
		{"dateOfBirth", r.DateOfBirth, &d.DateOfBirth},
		{"admissionDate", r.AdmissionDate, &d.AdmissionDate},
		{"dateOfJoining", r.DateOfJoining, &d.DateOfJoining},
	}
	for _, dt := range dates {
		if dt.value == "" {
			continue
		}
		t, err := time.Parse(dateLayout, dt.value)
		if err != nil {
			return profile.Details{}, fmt.Errorf("%w: %s", ErrInvalidField, dt.field)
		}
		*dt.dst = &t
	}
	return d, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
