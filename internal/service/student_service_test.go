package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unidesk/registrar-api/internal/models"
	appErrors "github.com/unidesk/registrar-api/pkg/errors"
)

type mockStudentRepo struct {
	students  map[int64]models.Student
	nextID    int64
	deleteErr error
}

func (m *mockStudentRepo) Create(ctx context.Context, student *models.Student) error {
	if m.students == nil {
		m.students = make(map[int64]models.Student)
	}
	m.nextID++
	student.ID = m.nextID
	student.EnrollmentDate = time.Now()
	m.students[student.ID] = *student
	return nil
}

func (m *mockStudentRepo) FindByID(ctx context.Context, id int64) (*models.Student, error) {
	if s, ok := m.students[id]; ok {
		found := s
		return &found, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) FindByEmail(ctx context.Context, email string) (*models.Student, error) {
	for _, s := range m.students {
		if s.Email == email {
			found := s
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	var out []models.Student
	for _, s := range m.students {
		out = append(out, s)
	}
	return out, nil
}

func (m *mockStudentRepo) Update(ctx context.Context, student *models.Student) error {
	current, ok := m.students[student.ID]
	if !ok {
		return sql.ErrNoRows
	}
	student.EnrollmentDate = current.EnrollmentDate
	m.students[student.ID] = *student
	return nil
}

func (m *mockStudentRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := m.students[id]; !ok {
		return sql.ErrNoRows
	}
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.students, id)
	return nil
}

func (m *mockStudentRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	for _, s := range m.students {
		if s.Email == email {
			return true, nil
		}
	}
	return false, nil
}

type mockStudentLedger struct {
	active map[int64]int
}

func (m *mockStudentLedger) CountActiveByStudent(ctx context.Context, studentID int64) (int, error) {
	return m.active[studentID], nil
}

func newTestStudentService(repo *mockStudentRepo, ledger *mockStudentLedger) *StudentService {
	if ledger == nil {
		return NewStudentService(repo, nil, nil, nil)
	}
	return NewStudentService(repo, ledger, nil, nil)
}

func TestStudentCreateAssignsIDAndEnrollmentDate(t *testing.T) {
	repo := &mockStudentRepo{}
	svc := newTestStudentService(repo, nil)

	student, err := svc.Create(context.Background(), CreateStudentRequest{
		FirstName: "Ada", LastName: "Lovelace", Email: "ada@x.edu",
	})
	require.NoError(t, err)
	assert.NotZero(t, student.ID)
	assert.False(t, student.EnrollmentDate.IsZero())
}

func TestStudentCreateDuplicateEmailConflicts(t *testing.T) {
	repo := &mockStudentRepo{}
	svc := newTestStudentService(repo, nil)

	_, err := svc.Create(context.Background(), CreateStudentRequest{FirstName: "Ada", LastName: "Lovelace", Email: "ada@x.edu"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateStudentRequest{FirstName: "Ada", LastName: "Byron", Email: "ada@x.edu"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Len(t, repo.students, 1)
}

func TestStudentCreateRejectsBadEmail(t *testing.T) {
	svc := newTestStudentService(&mockStudentRepo{}, nil)

	_, err := svc.Create(context.Background(), CreateStudentRequest{FirstName: "Ada", LastName: "Lovelace", Email: "not-an-email"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestStudentCreateRejectsBadDateOfBirth(t *testing.T) {
	svc := newTestStudentService(&mockStudentRepo{}, nil)

	dob := "12/10/1815"
	_, err := svc.Create(context.Background(), CreateStudentRequest{
		FirstName: "Ada", LastName: "Lovelace", Email: "ada@x.edu", DateOfBirth: &dob,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestStudentGetMissing(t *testing.T) {
	svc := newTestStudentService(&mockStudentRepo{}, nil)

	_, err := svc.Get(context.Background(), 99)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestStudentUpdateKeepsEnrollmentDate(t *testing.T) {
	repo := &mockStudentRepo{}
	svc := newTestStudentService(repo, nil)

	created, err := svc.Create(context.Background(), CreateStudentRequest{FirstName: "Ada", LastName: "Lovelace", Email: "ada@x.edu"})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), created.ID, UpdateStudentRequest{
		FirstName: "Ada", LastName: "King", Email: "ada@x.edu",
	})
	require.NoError(t, err)
	assert.Equal(t, "King", updated.LastName)
	assert.Equal(t, created.EnrollmentDate.Unix(), updated.EnrollmentDate.Unix())
}

func TestStudentUpdateEmailTakenConflicts(t *testing.T) {
	repo := &mockStudentRepo{}
	svc := newTestStudentService(repo, nil)

	_, err := svc.Create(context.Background(), CreateStudentRequest{FirstName: "Ada", LastName: "Lovelace", Email: "ada@x.edu"})
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), CreateStudentRequest{FirstName: "Alan", LastName: "Turing", Email: "alan@x.edu"})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), second.ID, UpdateStudentRequest{
		FirstName: "Alan", LastName: "Turing", Email: "ada@x.edu",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestStudentDeleteBlockedByActiveRegistrations(t *testing.T) {
	repo := &mockStudentRepo{}
	ledger := &mockStudentLedger{active: map[int64]int{1: 2}}
	svc := newTestStudentService(repo, ledger)

	_, err := svc.Create(context.Background(), CreateStudentRequest{FirstName: "Ada", LastName: "Lovelace", Email: "ada@x.edu"})
	require.NoError(t, err)

	err = svc.Delete(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Len(t, repo.students, 1)
}

func TestStudentDeleteWithNonActiveRegistrationsConflicts(t *testing.T) {
	repo := &mockStudentRepo{deleteErr: &pq.Error{Code: "23503"}}
	svc := newTestStudentService(repo, &mockStudentLedger{})

	_, err := svc.Create(context.Background(), CreateStudentRequest{FirstName: "Ada", LastName: "Lovelace", Email: "ada@x.edu"})
	require.NoError(t, err)

	err = svc.Delete(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Len(t, repo.students, 1)
}

func TestStudentDeleteMissing(t *testing.T) {
	svc := newTestStudentService(&mockStudentRepo{}, &mockStudentLedger{})

	err := svc.Delete(context.Background(), 42)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
