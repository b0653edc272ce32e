package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/unidesk/registrar-api/internal/models"
	appErrors "github.com/unidesk/registrar-api/pkg/errors"
	"github.com/unidesk/registrar-api/pkg/export"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

type registrationRepository interface {
	Create(ctx context.Context, registration *models.Registration) error
	FindByID(ctx context.Context, id int64) (*models.Registration, error)
	FindByPair(ctx context.Context, studentID, courseID int64) (*models.Registration, error)
	Exists(ctx context.Context, studentID, courseID int64) (bool, error)
	DeletePair(ctx context.Context, studentID, courseID int64) error
	UpdateGrade(ctx context.Context, studentID, courseID int64, grade string) error
	UpdateStatus(ctx context.Context, studentID, courseID int64, status models.RegistrationStatus) error
	CoursesForStudent(ctx context.Context, studentID int64) ([]models.StudentCourse, error)
	StudentsForCourse(ctx context.Context, courseID int64) ([]models.CourseStudent, error)
	CountActiveByCourse(ctx context.Context, courseID int64) (int, error)
	CountActiveByStudent(ctx context.Context, studentID int64) (int, error)
	ListAll(ctx context.Context) ([]models.RegistrationDetail, error)
}

type countCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string)
}

type cacheMetricsRecorder interface {
	RecordCacheOperation(hit bool, duration time.Duration)
	IncLedgerOp(op string)
}

// RegisterRequest describes a registration creation payload.
type RegisterRequest struct {
	StudentID int64 `json:"student_id" validate:"required,gt=0"`
	CourseID  int64 `json:"course_id" validate:"required,gt=0"`
}

// UpdateGradeRequest describes a grade assignment payload. Any grade
// string is accepted verbatim.
type UpdateGradeRequest struct {
	StudentID int64  `json:"student_id" validate:"required,gt=0"`
	CourseID  int64  `json:"course_id" validate:"required,gt=0"`
	Grade     string `json:"grade" validate:"required"`
}

// UpdateStatusRequest describes a status overwrite payload.
type UpdateStatusRequest struct {
	StudentID int64                     `json:"student_id" validate:"required,gt=0"`
	CourseID  int64                     `json:"course_id" validate:"required,gt=0"`
	Status    models.RegistrationStatus `json:"status" validate:"required"`
}

// RegistrationService mediates every state change to a (student, course)
// relationship and enforces the one-row-per-pair invariant.
type RegistrationService struct {
	repo      registrationRepository
	cache     countCache
	metrics   cacheMetricsRecorder
	validator *validator.Validate
	logger    *zap.Logger
	cacheTTL  time.Duration
}

// NewRegistrationService constructs RegistrationService. cache and
// metrics may be nil, disabling count caching and instrumentation.
func NewRegistrationService(repo registrationRepository, cache countCache, metrics cacheMetricsRecorder, validate *validator.Validate, logger *zap.Logger, cacheTTL time.Duration) *RegistrationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistrationService{repo: repo, cache: cache, metrics: metrics, validator: validate, logger: logger, cacheTTL: cacheTTL}
}

// Register creates a new ACTIVE registration for the pair. Any existing
// row blocks the attempt regardless of its status: a DROPPED or
// COMPLETED row must be removed with Drop before re-registering.
func (s *RegistrationService) Register(ctx context.Context, req RegisterRequest) (*models.Registration, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}
	exists, err := s.repo.Exists(ctx, req.StudentID, req.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check registration")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student is already registered for this course")
	}
	registration := &models.Registration{StudentID: req.StudentID, CourseID: req.CourseID, Status: models.RegistrationStatusActive}
	if err := s.repo.Create(ctx, registration); err != nil {
		// The unique constraint backs the existence check under
		// concurrent callers; a loser of that race gets the same
		// conflict the check would have produced.
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch pqErr.Code {
			case pqUniqueViolation:
				return nil, appErrors.Clone(appErrors.ErrConflict, "student is already registered for this course")
			case pqForeignKeyViolation:
				return nil, appErrors.Clone(appErrors.ErrNotFound, "student or course not found")
			}
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create registration")
	}
	s.invalidateCounts(ctx, req.StudentID, req.CourseID)
	if s.metrics != nil {
		s.metrics.IncLedgerOp("register")
	}
	s.logger.Info("student registered",
		zap.Int64("student_id", req.StudentID),
		zap.Int64("course_id", req.CourseID),
		zap.Int64("registration_id", registration.ID))
	return registration, nil
}

// Drop removes the registration row for the pair outright. This is a
// hard delete, distinct from setting status to DROPPED, which keeps the
// row and continues to block re-registration.
func (s *RegistrationService) Drop(ctx context.Context, studentID, courseID int64) error {
	if err := s.repo.DeletePair(ctx, studentID, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "registration not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to drop registration")
	}
	s.invalidateCounts(ctx, studentID, courseID)
	if s.metrics != nil {
		s.metrics.IncLedgerOp("drop")
	}
	s.logger.Info("student dropped", zap.Int64("student_id", studentID), zap.Int64("course_id", courseID))
	return nil
}

// UpdateGrade sets the grade for the pair unconditionally. The status is
// untouched and the grade value is not validated against any scale.
func (s *RegistrationService) UpdateGrade(ctx context.Context, req UpdateGradeRequest) (*models.Registration, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}
	if err := s.repo.UpdateGrade(ctx, req.StudentID, req.CourseID, req.Grade); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "registration not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update grade")
	}
	return s.reload(ctx, req.StudentID, req.CourseID)
}

// UpdateStatus overwrites the status for the pair. Only the value set is
// checked; any status may follow any other, COMPLETED back to ACTIVE
// included.
func (s *RegistrationService) UpdateStatus(ctx context.Context, req UpdateStatusRequest) (*models.Registration, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	if !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", req.Status))
	}
	if err := s.repo.UpdateStatus(ctx, req.StudentID, req.CourseID, req.Status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "registration not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update status")
	}
	s.invalidateCounts(ctx, req.StudentID, req.CourseID)
	return s.reload(ctx, req.StudentID, req.CourseID)
}

// IsRegistered reports whether any row exists for the pair. A row with
// status DROPPED still counts as registered; only Drop clears it.
func (s *RegistrationService) IsRegistered(ctx context.Context, studentID, courseID int64) (bool, error) {
	registered, err := s.repo.Exists(ctx, studentID, courseID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check registration")
	}
	return registered, nil
}

// Get returns a registration by id.
func (s *RegistrationService) Get(ctx context.Context, id int64) (*models.Registration, error) {
	registration, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "registration not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration")
	}
	return registration, nil
}

// CoursesForStudent lists a student's registrations with course snapshots.
func (s *RegistrationService) CoursesForStudent(ctx context.Context, studentID int64) ([]models.StudentCourse, error) {
	courses, err := s.repo.CoursesForStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses for student")
	}
	return courses, nil
}

// StudentsForCourse lists a course's registrations with student snapshots.
func (s *RegistrationService) StudentsForCourse(ctx context.Context, courseID int64) ([]models.CourseStudent, error) {
	students, err := s.repo.StudentsForCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students for course")
	}
	return students, nil
}

// EnrollmentCount counts ACTIVE registrations for a course, served from
// cache when warm.
func (s *RegistrationService) EnrollmentCount(ctx context.Context, courseID int64) (int, error) {
	return s.cachedCount(ctx, courseCountKey(courseID), func() (int, error) {
		return s.repo.CountActiveByCourse(ctx, courseID)
	})
}

// RegistrationCount counts ACTIVE registrations for a student, served
// from cache when warm.
func (s *RegistrationService) RegistrationCount(ctx context.Context, studentID int64) (int, error) {
	return s.cachedCount(ctx, studentCountKey(studentID), func() (int, error) {
		return s.repo.CountActiveByStudent(ctx, studentID)
	})
}

// List returns every registration with minimal display fields.
func (s *RegistrationService) List(ctx context.Context) ([]models.RegistrationDetail, error) {
	details, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list registrations")
	}
	return details, nil
}

// ExportRoster renders the full registration roster as CSV or PDF.
func (s *RegistrationService) ExportRoster(ctx context.Context, format string) ([]byte, string, error) {
	details, err := s.List(ctx)
	if err != nil {
		return nil, "", err
	}

	table := export.Table{
		Headers: []string{"Registration ID", "Student", "Email", "Course Code", "Course", "Instructor", "Status", "Grade", "Registered At"},
	}
	for _, d := range details {
		grade := ""
		if d.Grade != nil {
			grade = *d.Grade
		}
		instructor := models.Course{Instructor: d.CourseInstructor}.DisplayInstructor()
		table.Rows = append(table.Rows, []string{
			strconv.FormatInt(d.ID, 10),
			d.StudentFirstName + " " + d.StudentLastName,
			d.StudentEmail,
			d.CourseCode,
			d.CourseName,
			instructor,
			string(d.Status),
			grade,
			d.RegistrationDate.Format(time.RFC3339),
		})
	}

	switch strings.ToLower(format) {
	case "", "csv":
		payload, err := export.NewCSVExporter().Render(table)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv roster")
		}
		return payload, "text/csv", nil
	case "pdf":
		payload, err := export.NewPDFExporter().Render(table, "Registration Roster")
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf roster")
		}
		return payload, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}

func (s *RegistrationService) reload(ctx context.Context, studentID, courseID int64) (*models.Registration, error) {
	registration, err := s.repo.FindByPair(ctx, studentID, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload registration")
	}
	return registration, nil
}

func (s *RegistrationService) cachedCount(ctx context.Context, key string, load func() (int, error)) (int, error) {
	if s.cache != nil {
		start := time.Now()
		var cached int
		err := s.cache.Get(ctx, key, &cached)
		if s.metrics != nil {
			s.metrics.RecordCacheOperation(err == nil, time.Since(start))
		}
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("count cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	count, err := load()
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count registrations")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, count, s.cacheTTL); err != nil {
			s.logger.Warn("count cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return count, nil
}

func (s *RegistrationService) invalidateCounts(ctx context.Context, studentID, courseID int64) {
	if s.cache == nil {
		return
	}
	s.cache.Delete(ctx, studentCountKey(studentID), courseCountKey(courseID))
}

func studentCountKey(studentID int64) string {
	return fmt.Sprintf("counts:student:%d", studentID)
}

func courseCountKey(courseID int64) string {
	return fmt.Sprintf("counts:course:%d", courseID)
}
