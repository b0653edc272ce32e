package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/unidesk/registrar-api/internal/models"
)

// RegistrationRepository handles persistence of the registration ledger:
// the many-to-many relationship between students and courses.
type RegistrationRepository struct {
	db *sqlx.DB
}

// NewRegistrationRepository constructs the repository.
func NewRegistrationRepository(db *sqlx.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// Create persists a new registration row and fills the storage-assigned
// id and registration date. Status defaults to ACTIVE when unset.
func (r *RegistrationRepository) Create(ctx context.Context, registration *models.Registration) error {
	if registration.Status == "" {
		registration.Status = models.RegistrationStatusActive
	}
	const query = `INSERT INTO registrations (student_id, course_id, status)
        VALUES ($1, $2, $3)
        RETURNING registration_id, registration_date`
	row := r.db.QueryRowxContext(ctx, query, registration.StudentID, registration.CourseID, registration.Status)
	if err := row.Scan(&registration.ID, &registration.RegistrationDate); err != nil {
		return fmt.Errorf("create registration: %w", err)
	}
	return nil
}

// FindByID returns a registration by its id.
func (r *RegistrationRepository) FindByID(ctx context.Context, id int64) (*models.Registration, error) {
	const query = `SELECT registration_id, student_id, course_id, registration_date, grade, status
        FROM registrations WHERE registration_id = $1`
	var registration models.Registration
	if err := r.db.GetContext(ctx, &registration, query, id); err != nil {
		return nil, err
	}
	return &registration, nil
}

// FindByPair returns the registration row for a (student, course) pair.
func (r *RegistrationRepository) FindByPair(ctx context.Context, studentID, courseID int64) (*models.Registration, error) {
	const query = `SELECT registration_id, student_id, course_id, registration_date, grade, status
        FROM registrations WHERE student_id = $1 AND course_id = $2`
	var registration models.Registration
	if err := r.db.GetContext(ctx, &registration, query, studentID, courseID); err != nil {
		return nil, err
	}
	return &registration, nil
}

// Exists checks whether any registration row exists for the pair,
// regardless of status. A DROPPED or COMPLETED row still counts.
func (r *RegistrationRepository) Exists(ctx context.Context, studentID, courseID int64) (bool, error) {
	const query = `SELECT 1 FROM registrations WHERE student_id = $1 AND course_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, courseID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check registration: %w", err)
	}
	return true, nil
}

// DeletePair removes the registration row for the pair outright.
// Returns sql.ErrNoRows when no row exists.
func (r *RegistrationRepository) DeletePair(ctx context.Context, studentID, courseID int64) error {
	const query = `DELETE FROM registrations WHERE student_id = $1 AND course_id = $2`
	res, err := r.db.ExecContext(ctx, query, studentID, courseID)
	if err != nil {
		return fmt.Errorf("delete registration: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete registration: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateGrade sets the grade for the pair row without touching status.
// Returns sql.ErrNoRows when no row exists.
func (r *RegistrationRepository) UpdateGrade(ctx context.Context, studentID, courseID int64, grade string) error {
	const query = `UPDATE registrations SET grade = $3 WHERE student_id = $1 AND course_id = $2`
	res, err := r.db.ExecContext(ctx, query, studentID, courseID, grade)
	if err != nil {
		return fmt.Errorf("update grade: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update grade: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateStatus overwrites the status for the pair row. Any status may
// follow any other; no transition graph is enforced here.
// Returns sql.ErrNoRows when no row exists.
func (r *RegistrationRepository) UpdateStatus(ctx context.Context, studentID, courseID int64, status models.RegistrationStatus) error {
	const query = `UPDATE registrations SET status = $3 WHERE student_id = $1 AND course_id = $2`
	res, err := r.db.ExecContext(ctx, query, studentID, courseID, status)
	if err != nil {
		return fmt.Errorf("update registration status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update registration status: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CoursesForStudent returns every registration row for the student (any
// status), each joined with the course snapshot, newest first.
func (r *RegistrationRepository) CoursesForStudent(ctx context.Context, studentID int64) ([]models.StudentCourse, error) {
	const query = `SELECT r.registration_id, r.student_id, r.course_id, r.registration_date, r.grade, r.status,
        c.course_code, c.course_name, c.description, c.credits, c.instructor, c.created_date
        FROM registrations r
        JOIN courses c ON c.course_id = r.course_id
        WHERE r.student_id = $1
        ORDER BY r.registration_date DESC`
	rows := []models.StudentCourse{}
	if err := r.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, fmt.Errorf("list courses for student: %w", err)
	}
	return rows, nil
}

// StudentsForCourse returns every registration row for the course (any
// status), each joined with the student snapshot, ordered by enrollee name.
func (r *RegistrationRepository) StudentsForCourse(ctx context.Context, courseID int64) ([]models.CourseStudent, error) {
	const query = `SELECT r.registration_id, r.student_id, r.course_id, r.registration_date, r.grade, r.status,
        s.first_name, s.last_name, s.email, s.phone, s.date_of_birth, s.enrollment_date
        FROM registrations r
        JOIN students s ON s.student_id = r.student_id
        WHERE r.course_id = $1
        ORDER BY s.last_name, s.first_name`
	rows := []models.CourseStudent{}
	if err := r.db.SelectContext(ctx, &rows, query, courseID); err != nil {
		return nil, fmt.Errorf("list students for course: %w", err)
	}
	return rows, nil
}

// CountActiveByCourse counts ACTIVE registrations for the course.
func (r *RegistrationRepository) CountActiveByCourse(ctx context.Context, courseID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM registrations WHERE course_id = $1 AND status = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, courseID, models.RegistrationStatusActive); err != nil {
		return 0, fmt.Errorf("count enrollments: %w", err)
	}
	return count, nil
}

// CountActiveByStudent counts ACTIVE registrations for the student.
func (r *RegistrationRepository) CountActiveByStudent(ctx context.Context, studentID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM registrations WHERE student_id = $1 AND status = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, studentID, models.RegistrationStatusActive); err != nil {
		return 0, fmt.Errorf("count registrations: %w", err)
	}
	return count, nil
}

// ListAll returns every registration joined with minimal display fields
// from both catalogs, newest first.
func (r *RegistrationRepository) ListAll(ctx context.Context) ([]models.RegistrationDetail, error) {
	const query = `SELECT r.registration_id, r.student_id, r.course_id, r.registration_date, r.grade, r.status,
        s.first_name, s.last_name, s.email, c.course_code, c.course_name, c.instructor
        FROM registrations r
        JOIN students s ON s.student_id = r.student_id
        JOIN courses c ON c.course_id = r.course_id
        ORDER BY r.registration_date DESC`
	rows := []models.RegistrationDetail{}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return rows, nil
}
