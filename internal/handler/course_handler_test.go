package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unidesk/registrar-api/internal/models"
	"github.com/unidesk/registrar-api/internal/service"
	"github.com/unidesk/registrar-api/pkg/response"
)

type courseRepoMock struct {
	courses map[int64]models.Course
	nextID  int64
}

func (m *courseRepoMock) Create(ctx context.Context, course *models.Course) error {
	if m.courses == nil {
		m.courses = make(map[int64]models.Course)
	}
	m.nextID++
	course.ID = m.nextID
	course.CreatedDate = time.Now()
	m.courses[course.ID] = *course
	return nil
}

func (m *courseRepoMock) FindByID(ctx context.Context, id int64) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		found := c
		return &found, nil
	}
	return nil, sql.ErrNoRows
}

func (m *courseRepoMock) FindByCode(ctx context.Context, code string) (*models.Course, error) {
	for _, c := range m.courses {
		if c.Code == code {
			found := c
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *courseRepoMock) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, error) {
	var out []models.Course
	for _, c := range m.courses {
		out = append(out, c)
	}
	return out, nil
}

func (m *courseRepoMock) Update(ctx context.Context, course *models.Course) error {
	if _, ok := m.courses[course.ID]; !ok {
		return sql.ErrNoRows
	}
	m.courses[course.ID] = *course
	return nil
}

func (m *courseRepoMock) Delete(ctx context.Context, id int64) error {
	if _, ok := m.courses[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.courses, id)
	return nil
}

func (m *courseRepoMock) ExistsByCode(ctx context.Context, code string) (bool, error) {
	for _, c := range m.courses {
		if c.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func newCourseTestHandler(repo *courseRepoMock, ledger *ledgerRepoMock) *CourseHandler {
	if ledger == nil {
		ledger = &ledgerRepoMock{}
	}
	registrations := service.NewRegistrationService(ledger, nil, nil, nil, nil, time.Minute)
	courses := service.NewCourseService(repo, ledger, nil, nil)
	return NewCourseHandler(courses, registrations)
}

func TestCourseHandlerCreateNormalizesCode(t *testing.T) {
	handler := newCourseTestHandler(&courseRepoMock{}, nil)

	w, c := performJSON(t, http.MethodPost, "/courses", service.CreateCourseRequest{Code: "cs101", Name: "Intro", Credits: 3})
	handler.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	data := envelope.Data.(map[string]interface{})
	assert.Equal(t, "CS101", data["code"])
}

func TestCourseHandlerLookupByCode(t *testing.T) {
	repo := &courseRepoMock{}
	handler := newCourseTestHandler(repo, nil)

	w, c := performJSON(t, http.MethodPost, "/courses", service.CreateCourseRequest{Code: "CS101", Name: "Intro", Credits: 3})
	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)

	w, c = performJSON(t, http.MethodGet, "/courses?code=cs101", nil)
	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	data := envelope.Data.(map[string]interface{})
	assert.Equal(t, "CS101", data["code"])
}

func TestCourseHandlerEnrollmentCount(t *testing.T) {
	repo := &courseRepoMock{}
	ledger := &ledgerRepoMock{}
	handler := newCourseTestHandler(repo, ledger)

	require.NoError(t, ledger.Create(context.Background(), &models.Registration{
		StudentID: 1, CourseID: 1, Status: models.RegistrationStatusActive,
	}))
	require.NoError(t, ledger.Create(context.Background(), &models.Registration{
		StudentID: 2, CourseID: 1, Status: models.RegistrationStatusDropped,
	}))

	w, c := performJSON(t, http.MethodGet, "/courses/1/registrations/count", nil)
	c.Params = gin.Params{{Key: "id", Value: "1"}}
	handler.EnrollmentCount(c)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	data := envelope.Data.(map[string]interface{})
	assert.Equal(t, float64(1), data["count"])
}

func TestCourseHandlerDeleteBlockedByLedger(t *testing.T) {
	repo := &courseRepoMock{}
	ledger := &ledgerRepoMock{}
	handler := newCourseTestHandler(repo, ledger)

	w, c := performJSON(t, http.MethodPost, "/courses", service.CreateCourseRequest{Code: "CS101", Name: "Intro", Credits: 3})
	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)

	require.NoError(t, ledger.Create(context.Background(), &models.Registration{
		StudentID: 1, CourseID: 1, Status: models.RegistrationStatusActive,
	}))

	w, c = performJSON(t, http.MethodDelete, "/courses/1", nil)
	c.Params = gin.Params{{Key: "id", Value: "1"}}
	handler.Delete(c)
	assert.Equal(t, http.StatusConflict, w.Code)
}
