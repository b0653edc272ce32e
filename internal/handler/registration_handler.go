package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/unidesk/registrar-api/internal/service"
	appErrors "github.com/unidesk/registrar-api/pkg/errors"
	"github.com/unidesk/registrar-api/pkg/response"
)

// RegistrationHandler exposes registration ledger endpoints.
type RegistrationHandler struct {
	registrations *service.RegistrationService
}

// NewRegistrationHandler constructs RegistrationHandler.
func NewRegistrationHandler(registrations *service.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{registrations: registrations}
}

// List godoc
// @Summary List all registrations with student and course details
// @Tags Registrations
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /registrations [get]
func (h *RegistrationHandler) List(c *gin.Context) {
	details, err := h.registrations.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, details, nil)
}

// Register godoc
// @Summary Register a student for a course
// @Tags Registrations
// @Accept json
// @Produce json
// @Param payload body service.RegisterRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Router /registrations [post]
func (h *RegistrationHandler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	registration, err := h.registrations.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, registration)
}

// Drop godoc
// @Summary Drop a registration, removing the row for the pair
// @Tags Registrations
// @Produce json
// @Param studentId query int true "Student ID"
// @Param courseId query int true "Course ID"
// @Success 204
// @Router /registrations [delete]
func (h *RegistrationHandler) Drop(c *gin.Context) {
	studentID, courseID, err := pairFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.registrations.Drop(c.Request.Context(), studentID, courseID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Get godoc
// @Summary Get a registration by id
// @Tags Registrations
// @Produce json
// @Param id path int true "Registration ID"
// @Success 200 {object} response.Envelope
// @Router /registrations/{id} [get]
func (h *RegistrationHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	registration, err := h.registrations.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, registration, nil)
}

// Check godoc
// @Summary Check whether a pair is registered, any status counts
// @Tags Registrations
// @Produce json
// @Param studentId query int true "Student ID"
// @Param courseId query int true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /registrations/check [get]
func (h *RegistrationHandler) Check(c *gin.Context) {
	studentID, courseID, err := pairFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	registered, err := h.registrations.IsRegistered(c.Request.Context(), studentID, courseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"student_id": studentID,
		"course_id":  courseID,
		"registered": registered,
	}, nil)
}

// UpdateGrade godoc
// @Summary Assign a grade to a registration
// @Tags Registrations
// @Accept json
// @Produce json
// @Param payload body service.UpdateGradeRequest true "Grade payload"
// @Success 200 {object} response.Envelope
// @Router /registrations/grade [put]
func (h *RegistrationHandler) UpdateGrade(c *gin.Context) {
	var req service.UpdateGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	registration, err := h.registrations.UpdateGrade(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, registration, nil)
}

// UpdateStatus godoc
// @Summary Overwrite the status of a registration
// @Tags Registrations
// @Accept json
// @Produce json
// @Param payload body service.UpdateStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Router /registrations/status [put]
func (h *RegistrationHandler) UpdateStatus(c *gin.Context) {
	var req service.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	registration, err := h.registrations.UpdateStatus(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, registration, nil)
}

// Export godoc
// @Summary Export the registration roster as CSV or PDF
// @Tags Registrations
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Router /registrations/export [get]
func (h *RegistrationHandler) Export(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")
	payload, contentType, err := h.registrations.ExportRoster(c.Request.Context(), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("roster.%s", format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, payload)
}

func pairFromQuery(c *gin.Context) (int64, int64, error) {
	studentID, err := queryID(c, "studentId")
	if err != nil {
		return 0, 0, err
	}
	courseID, err := queryID(c, "courseId")
	if err != nil {
		return 0, 0, err
	}
	return studentID, courseID, nil
}
