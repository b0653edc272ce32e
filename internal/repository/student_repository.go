package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/unidesk/registrar-api/internal/models"
)

// StudentRepository manages persistence for the student catalog.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// Create inserts a new student and fills the storage-assigned id and
// enrollment date on the passed record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	const query = `INSERT INTO students (first_name, last_name, email, phone, date_of_birth)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING student_id, enrollment_date`
	row := r.db.QueryRowxContext(ctx, query, student.FirstName, student.LastName, student.Email, student.Phone, student.DateOfBirth)
	if err := row.Scan(&student.ID, &student.EnrollmentDate); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// FindByID fetches a student by id.
func (r *StudentRepository) FindByID(ctx context.Context, id int64) (*models.Student, error) {
	const query = `SELECT student_id, first_name, last_name, email, phone, date_of_birth, enrollment_date
        FROM students WHERE student_id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByEmail fetches a student by email address.
func (r *StudentRepository) FindByEmail(ctx context.Context, email string) (*models.Student, error) {
	const query = `SELECT student_id, first_name, last_name, email, phone, date_of_birth, enrollment_date
        FROM students WHERE email = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, email); err != nil {
		return nil, err
	}
	return &student, nil
}

// List returns all students ordered by last then first name. A search
// term narrows the result to case-insensitive substring matches against
// either name.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	query := `SELECT student_id, first_name, last_name, email, phone, date_of_birth, enrollment_date FROM students`
	var args []interface{}
	if filter.Search != "" {
		query += ` WHERE LOWER(first_name) LIKE $1 OR LOWER(last_name) LIKE $1`
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	query += ` ORDER BY last_name, first_name`

	students := []models.Student{}
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// Update replaces every mutable field of the student row. Returns
// sql.ErrNoRows when the id does not exist.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	const query = `UPDATE students SET first_name = $2, last_name = $3, email = $4, phone = $5, date_of_birth = $6
        WHERE student_id = $1`
	res, err := r.db.ExecContext(ctx, query, student.ID, student.FirstName, student.LastName, student.Email, student.Phone, student.DateOfBirth)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a student row. Returns sql.ErrNoRows when absent.
func (r *StudentRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM students WHERE student_id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ExistsByEmail checks whether a student with the given email exists.
func (r *StudentRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	const query = `SELECT 1 FROM students WHERE email = $1 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, email); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check student email: %w", err)
	}
	return true, nil
}
