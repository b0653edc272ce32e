package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/unidesk/registrar-api/internal/models"
	appErrors "github.com/unidesk/registrar-api/pkg/errors"
)

type courseRepository interface {
	Create(ctx context.Context, course *models.Course) error
	FindByID(ctx context.Context, id int64) (*models.Course, error)
	FindByCode(ctx context.Context, code string) (*models.Course, error)
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, error)
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id int64) error
	ExistsByCode(ctx context.Context, code string) (bool, error)
}

type courseLedgerReader interface {
	CountActiveByCourse(ctx context.Context, courseID int64) (int, error)
}

// CreateCourseRequest describes course creation payload.
type CreateCourseRequest struct {
	Code        string  `json:"code" validate:"required"`
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description,omitempty"`
	Credits     int     `json:"credits" validate:"gte=0"`
	Instructor  *string `json:"instructor,omitempty"`
}

// UpdateCourseRequest describes a full replace of the mutable fields.
type UpdateCourseRequest struct {
	Code        string  `json:"code" validate:"required"`
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description,omitempty"`
	Credits     int     `json:"credits" validate:"gte=0"`
	Instructor  *string `json:"instructor,omitempty"`
}

// CourseService owns the course catalog rules. Codes are upper-cased
// here before storage and lookup; the repository compares verbatim.
type CourseService struct {
	repo      courseRepository
	ledger    courseLedgerReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs CourseService. ledger may be nil, which
// skips the active-enrollment guard on delete.
func NewCourseService(repo courseRepository, ledger courseLedgerReader, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, ledger: ledger, validator: validate, logger: logger}
}

// Create adds a course after checking the code uniqueness rule.
func (s *CourseService) Create(ctx context.Context, req CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	code := normalizeCode(req.Code)
	exists, err := s.repo.ExistsByCode(ctx, code)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a course with this code already exists")
	}

	course := &models.Course{
		Code:        code,
		Name:        req.Name,
		Description: req.Description,
		Credits:     req.Credits,
		Instructor:  req.Instructor,
	}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	s.logger.Info("course created", zap.Int64("course_id", course.ID), zap.String("code", course.Code))
	return course, nil
}

// Get returns a course by id.
func (s *CourseService) Get(ctx context.Context, id int64) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// GetByCode returns a course by code, normalized to upper case first.
func (s *CourseService) GetByCode(ctx context.Context, code string) (*models.Course, error) {
	course, err := s.repo.FindByCode(ctx, normalizeCode(code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// List returns courses ordered by code, optionally narrowed by name or
// instructor substring. An empty result is not an error.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, error) {
	courses, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	return courses, nil
}

// Update replaces the mutable fields of a course. The created date and
// id are never touched.
func (s *CourseService) Update(ctx context.Context, id int64, req UpdateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	code := normalizeCode(req.Code)
	if code != current.Code {
		exists, err := s.repo.ExistsByCode(ctx, code)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course code")
		}
		if exists {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a course with this code already exists")
		}
	}

	course := &models.Course{
		ID:          id,
		Code:        code,
		Name:        req.Name,
		Description: req.Description,
		Credits:     req.Credits,
		Instructor:  req.Instructor,
	}
	if err := s.repo.Update(ctx, course); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	return s.Get(ctx, id)
}

// Delete removes a course. A course with ACTIVE enrollments is rejected.
func (s *CourseService) Delete(ctx context.Context, id int64) error {
	if s.ledger != nil {
		count, err := s.ledger.CountActiveByCourse(ctx, id)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollments")
		}
		if count > 0 {
			return appErrors.Clone(appErrors.ErrConflict, "course has active enrollments")
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		// DROPPED or COMPLETED rows pass the active-count guard but
		// still reference the course; the FK rejection is a conflict,
		// not a storage fault.
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqForeignKeyViolation {
			return appErrors.Clone(appErrors.ErrConflict, "course has registrations")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course")
	}
	s.logger.Info("course deleted", zap.Int64("course_id", id))
	return nil
}

// ExistsByCode reports whether a course with the code exists.
func (s *CourseService) ExistsByCode(ctx context.Context, code string) (bool, error) {
	exists, err := s.repo.ExistsByCode(ctx, normalizeCode(code))
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course code")
	}
	return exists, nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
