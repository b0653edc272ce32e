package models

import "time"

// DefaultInstructor is the display value used when a course has no
// instructor assigned.
const DefaultInstructor = "TBA"

// Course represents an entry in the course catalog.
// CreatedDate is assigned by the database at insert and never updated.
type Course struct {
	ID          int64     `db:"course_id" json:"id"`
	Code        string    `db:"course_code" json:"code"`
	Name        string    `db:"course_name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	Credits     int       `db:"credits" json:"credits"`
	Instructor  *string   `db:"instructor" json:"instructor,omitempty"`
	CreatedDate time.Time `db:"created_date" json:"created_date"`
}

// DisplayInstructor returns the instructor name or the TBA placeholder.
func (c Course) DisplayInstructor() string {
	if c.Instructor == nil || *c.Instructor == "" {
		return DefaultInstructor
	}
	return *c.Instructor
}

// CourseFilter encapsulates allowed search parameters for listing courses.
type CourseFilter struct {
	Search     string
	Instructor string
}
