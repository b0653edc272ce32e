package models

import "time"

// RegistrationStatus represents the lifecycle of a registration.
type RegistrationStatus string

// Possible registration statuses. ACTIVE is the initial state; no
// transition graph is enforced between the values.
const (
	RegistrationStatusActive    RegistrationStatus = "ACTIVE"
	RegistrationStatusDropped   RegistrationStatus = "DROPPED"
	RegistrationStatusCompleted RegistrationStatus = "COMPLETED"
)

// Valid reports whether s is one of the known status values.
func (s RegistrationStatus) Valid() bool {
	switch s {
	case RegistrationStatusActive, RegistrationStatusDropped, RegistrationStatusCompleted:
		return true
	}
	return false
}

// Registration captures the relationship between one student and one
// course. At most one row exists per (student_id, course_id) pair.
type Registration struct {
	ID               int64              `db:"registration_id" json:"id"`
	StudentID        int64              `db:"student_id" json:"student_id"`
	CourseID         int64              `db:"course_id" json:"course_id"`
	RegistrationDate time.Time          `db:"registration_date" json:"registration_date"`
	Grade            *string            `db:"grade" json:"grade,omitempty"`
	Status           RegistrationStatus `db:"status" json:"status"`
}

// RegistrationDetail enriches Registration with display fields from both
// catalogs. The snapshot fields are read-only projections and are never
// written back.
type RegistrationDetail struct {
	Registration
	StudentFirstName string  `db:"first_name" json:"student_first_name"`
	StudentLastName  string  `db:"last_name" json:"student_last_name"`
	StudentEmail     string  `db:"email" json:"student_email"`
	CourseCode       string  `db:"course_code" json:"course_code"`
	CourseName       string  `db:"course_name" json:"course_name"`
	CourseInstructor *string `db:"instructor" json:"instructor,omitempty"`
}

// StudentCourse is a registration row joined with the full course
// snapshot, as returned when listing a student's courses.
type StudentCourse struct {
	Registration
	CourseCode        string     `db:"course_code" json:"course_code"`
	CourseName        string     `db:"course_name" json:"course_name"`
	CourseDescription *string    `db:"description" json:"course_description,omitempty"`
	Credits           int        `db:"credits" json:"credits"`
	Instructor        *string    `db:"instructor" json:"instructor,omitempty"`
	CourseCreatedDate *time.Time `db:"created_date" json:"course_created_date,omitempty"`
}

// CourseStudent is a registration row joined with the full student
// snapshot, as returned when listing a course's enrollees.
type CourseStudent struct {
	Registration
	FirstName      string     `db:"first_name" json:"first_name"`
	LastName       string     `db:"last_name" json:"last_name"`
	Email          string     `db:"email" json:"email"`
	Phone          *string    `db:"phone" json:"phone,omitempty"`
	DateOfBirth    *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	EnrollmentDate *time.Time `db:"enrollment_date" json:"student_enrollment_date,omitempty"`
}
