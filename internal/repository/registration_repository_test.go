package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unidesk/registrar-api/internal/models"
)

func newRegistrationMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestRegistrationRepositoryCreateDefaultsActive(t *testing.T) {
	db, mock, cleanup := newRegistrationMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	mock.ExpectQuery("INSERT INTO registrations").
		WithArgs(int64(1), int64(1), models.RegistrationStatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"registration_id", "registration_date"}).AddRow(int64(10), time.Now()))

	registration := &models.Registration{StudentID: 1, CourseID: 1}
	err := repo.Create(context.Background(), registration)
	require.NoError(t, err)
	assert.Equal(t, int64(10), registration.ID)
	assert.Equal(t, models.RegistrationStatusActive, registration.Status)
	assert.Nil(t, registration.Grade)
	assert.False(t, registration.RegistrationDate.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryExistsIgnoresStatus(t *testing.T) {
	db, mock, cleanup := newRegistrationMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM registrations WHERE student_id = $1 AND course_id = $2 LIMIT 1")).
		WithArgs(int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.Exists(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.True(t, exists)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM registrations WHERE student_id = $1 AND course_id = $2 LIMIT 1")).
		WithArgs(int64(1), int64(3)).
		WillReturnError(sql.ErrNoRows)

	exists, err = repo.Exists(context.Background(), 1, 3)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryDeletePairMissing(t *testing.T) {
	db, mock, cleanup := newRegistrationMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	mock.ExpectExec("DELETE FROM registrations").
		WithArgs(int64(1), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.DeletePair(context.Background(), 1, 2)
	require.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryUpdateGradeLeavesStatus(t *testing.T) {
	db, mock, cleanup := newRegistrationMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE registrations SET grade = $3 WHERE student_id = $1 AND course_id = $2")).
		WithArgs(int64(1), int64(1), "A").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateGrade(context.Background(), 1, 1, "A")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryUpdateStatusMissing(t *testing.T) {
	db, mock, cleanup := newRegistrationMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE registrations SET status = $3 WHERE student_id = $1 AND course_id = $2")).
		WithArgs(int64(9), int64(9), models.RegistrationStatusCompleted).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), 9, 9, models.RegistrationStatusCompleted)
	require.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryCoursesForStudent(t *testing.T) {
	db, mock, cleanup := newRegistrationMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	rows := sqlmock.NewRows([]string{"registration_id", "student_id", "course_id", "registration_date", "grade", "status",
		"course_code", "course_name", "description", "credits", "instructor", "created_date"}).
		AddRow(int64(10), int64(1), int64(1), time.Now(), "A", models.RegistrationStatusActive, "CS101", "Intro", nil, 3, nil, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("WHERE r.student_id = $1")).
		WithArgs(int64(1)).
		WillReturnRows(rows)

	courses, err := repo.CoursesForStudent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, "CS101", courses[0].CourseCode)
	require.NotNil(t, courses[0].Grade)
	assert.Equal(t, "A", *courses[0].Grade)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryStudentsForCourse(t *testing.T) {
	db, mock, cleanup := newRegistrationMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	rows := sqlmock.NewRows([]string{"registration_id", "student_id", "course_id", "registration_date", "grade", "status",
		"first_name", "last_name", "email", "phone", "date_of_birth", "enrollment_date"}).
		AddRow(int64(10), int64(1), int64(1), time.Now(), nil, models.RegistrationStatusDropped, "Ada", "Lovelace", "ada@x.edu", nil, nil, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("WHERE r.course_id = $1")).
		WithArgs(int64(1)).
		WillReturnRows(rows)

	students, err := repo.StudentsForCourse(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "Lovelace", students[0].LastName)
	assert.Equal(t, models.RegistrationStatusDropped, students[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryCountsOnlyActive(t *testing.T) {
	db, mock, cleanup := newRegistrationMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM registrations WHERE course_id = $1 AND status = $2")).
		WithArgs(int64(1), models.RegistrationStatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	count, err := repo.CountActiveByCourse(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM registrations WHERE student_id = $1 AND status = $2")).
		WithArgs(int64(2), models.RegistrationStatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err = repo.CountActiveByStudent(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryListAllJoinsBothSides(t *testing.T) {
	db, mock, cleanup := newRegistrationMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	rows := sqlmock.NewRows([]string{"registration_id", "student_id", "course_id", "registration_date", "grade", "status",
		"first_name", "last_name", "email", "course_code", "course_name", "instructor"}).
		AddRow(int64(10), int64(1), int64(1), time.Now(), nil, models.RegistrationStatusActive, "Ada", "Lovelace", "ada@x.edu", "CS101", "Intro", nil)
	mock.ExpectQuery("ORDER BY r.registration_date DESC").
		WillReturnRows(rows)

	details, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.Equal(t, "Ada", details[0].StudentFirstName)
	assert.Equal(t, "CS101", details[0].CourseCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}
