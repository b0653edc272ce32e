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

func newStudentMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestStudentRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	enrolled := time.Now()
	mock.ExpectQuery("INSERT INTO students").
		WithArgs("Ada", "Lovelace", "ada@x.edu", nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"student_id", "enrollment_date"}).AddRow(int64(1), enrolled))

	student := &models.Student{FirstName: "Ada", LastName: "Lovelace", Email: "ada@x.edu"}
	err := repo.Create(context.Background(), student)
	require.NoError(t, err)
	assert.Equal(t, int64(1), student.ID)
	assert.False(t, student.EnrollmentDate.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryFindByIDMissing(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery("SELECT student_id, first_name, last_name").
		WithArgs(int64(99)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), 99)
	require.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryListOrdersByName(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	rows := sqlmock.NewRows([]string{"student_id", "first_name", "last_name", "email", "phone", "date_of_birth", "enrollment_date"}).
		AddRow(int64(2), "Grace", "Hopper", "grace@x.edu", nil, nil, time.Now()).
		AddRow(int64(1), "Ada", "Lovelace", "ada@x.edu", nil, nil, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT student_id, first_name, last_name, email, phone, date_of_birth, enrollment_date FROM students ORDER BY last_name, first_name")).
		WillReturnRows(rows)

	students, err := repo.List(context.Background(), models.StudentFilter{})
	require.NoError(t, err)
	assert.Len(t, students, 2)
	assert.Equal(t, "Hopper", students[0].LastName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositorySearchMatchesEitherName(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE LOWER(first_name) LIKE $1 OR LOWER(last_name) LIKE $1 ORDER BY last_name, first_name")).
		WithArgs("%love%").
		WillReturnRows(sqlmock.NewRows([]string{"student_id", "first_name", "last_name", "email", "phone", "date_of_birth", "enrollment_date"}).
			AddRow(int64(1), "Ada", "Lovelace", "ada@x.edu", nil, nil, time.Now()))

	students, err := repo.List(context.Background(), models.StudentFilter{Search: "Love"})
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "Lovelace", students[0].LastName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryUpdateMissingRow(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("UPDATE students SET").
		WithArgs(int64(7), "Ada", "Lovelace", "ada@x.edu", nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.Student{ID: 7, FirstName: "Ada", LastName: "Lovelace", Email: "ada@x.edu"})
	require.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryExistsByEmail(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM students WHERE email = $1 LIMIT 1")).
		WithArgs("ada@x.edu").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.ExistsByEmail(context.Background(), "ada@x.edu")
	require.NoError(t, err)
	assert.True(t, exists)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM students WHERE email = $1 LIMIT 1")).
		WithArgs("nobody@x.edu").
		WillReturnError(sql.ErrNoRows)

	exists, err = repo.ExistsByEmail(context.Background(), "nobody@x.edu")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}
