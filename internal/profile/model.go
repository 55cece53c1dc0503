package profile

import (
	"time"

	"college-erp/internal/account"

	"github.com/uptrace/bun"
)

// Profile is one of StudentProfile, FacultyProfile or AdminProfile.
type Profile interface {
	Role() account.Role
	// Key is the externally supplied identifier, the table primary key.
	Key() string
	keyColumn() string
}

type StudentProfile struct {
	bun.BaseModel `bun:"table:students,alias:s"`

	StudentID     string     `bun:"student_id,pk" json:"studentId"`
	Name          string     `bun:"name,notnull" json:"name"`
	Email         string     `bun:"email,notnull" json:"email"`
	DateOfBirth   *time.Time `bun:"date_of_birth,type:date" json:"dateOfBirth"`
	AdmissionDate time.Time  `bun:"admission_date,type:date,notnull" json:"admissionDate"`
	CourseID      *string    `bun:"course_id" json:"courseId"`
}

func (*StudentProfile) Role() account.Role { return account.RoleStudent }
func (p *StudentProfile) Key() string { return p.StudentID }
func (*StudentProfile) keyColumn() string { return "student_id" }

type FacultyProfile struct {
	bun.BaseModel `bun:"table:faculty,alias:f"`

	FacultyID     string    `bun:"faculty_id,pk" json:"facultyId"`
	Name          string    `bun:"name,notnull" json:"name"`
	Email         string    `bun:"email,notnull" json:"email"`
	Department    *string   `bun:"department" json:"department"`
	DateOfJoining time.Time `bun:"date_of_joining,type:date,notnull" json:"dateOfJoining"`
}

func (*FacultyProfile) Role() account.Role { return account.RoleFaculty }
func (p *FacultyProfile) Key() string { return p.FacultyID }
func (*FacultyProfile) keyColumn() string { return "faculty_id" }

type AdminProfile struct {
	bun.BaseModel `bun:"table:admins,alias:ad"`

	AdminID       string    `bun:"admin_id,pk" json:"adminId"`
	Name          string    `bun:"name,notnull" json:"name"`
	Email         string    `bun:"email,notnull" json:"email"`
	DateOfJoining time.Time `bun:"date_of_joining,type:date,notnull" json:"dateOfJoining"`
}

func (*AdminProfile) Role() account.Role { return account.RoleAdmin }
func (p *AdminProfile) Key() string { return p.AdminID }
func (*AdminProfile) keyColumn() string { return "admin_id" }

// Details carries the optional signup fields used when a new profile row is created.
type Details struct {
	Name          string
	DateOfBirth   *time.Time
	AdmissionDate *time.Time
	CourseID      string
	Department    string
	DateOfJoining *time.Time
}

// New builds the profile variant for role. Name falls back to username,
// admission and joining dates fall back to now. Unset optional columns stay NULL.
func New(role account.Role, key, username, email string, d Details, now time.Time) (Profile, error) {
	name := d.Name
	if name == "" {
		name = username
	}
	today := truncateDay(now)

	switch role {
	case account.RoleStudent:
		return &StudentProfile{
			StudentID:     key,
			Name:          name,
			Email:         email,
			DateOfBirth:   d.DateOfBirth,
			AdmissionDate: orDefault(d.AdmissionDate, today),
			CourseID:      optional(d.CourseID),
		}, nil
	case account.RoleFaculty:
		return &FacultyProfile{
			FacultyID:     key,
			Name:          name,
			Email:         email,
			Department:    optional(d.Department),
			DateOfJoining: orDefault(d.DateOfJoining, today),
		}, nil
	case account.RoleAdmin:
		return &AdminProfile{
			AdminID:       key,
			Name:          name,
			Email:         email,
			DateOfJoining: orDefault(d.DateOfJoining, today),
		}, nil
	}
	return nil, account.ErrUnknownRole
}

// Empty returns a zero value of the variant for role, ready to be scanned into.
func Empty(role account.Role) (Profile, error) {
	switch role {
	case account.RoleStudent:
		return new(StudentProfile), nil
	case account.RoleFaculty:
		return new(FacultyProfile), nil
	case account.RoleAdmin:
		return new(AdminProfile), nil
	}
	return nil, account.ErrUnknownRole
}

func orDefault(t *time.Time, def time.Time) time.Time {
	if t == nil {
		return def
	}
	return *t
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
