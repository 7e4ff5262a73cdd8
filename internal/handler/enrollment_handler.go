package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/student-portal-api/internal/models"
	"github.com/noah-isme/student-portal-api/internal/service"
	"github.com/noah-isme/student-portal-api/pkg/response"
)

type enrollmentService interface {
	State(ctx context.Context, studentID string) (*models.EnrollmentState, error)
	Available(ctx context.Context, studentID string) ([]models.Course, bool, error)
	Toggle(ctx context.Context, studentID, courseID string) (*models.EnrollmentState, error)
	Commit(ctx context.Context, studentID string) (*service.CommitResult, error)
	Withdraw(ctx context.Context, studentID, courseID string) (*service.WithdrawResult, error)
	Reload(ctx context.Context, studentID string) (*models.EnrollmentState, error)
}

type historyLister interface {
	List(ctx context.Context, studentID string) ([]models.EnrollmentHistory, error)
}

// EnrollmentHandler exposes the enrollment ledger of the current student.
type EnrollmentHandler struct {
	enrollment enrollmentService
	history    historyLister
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollment enrollmentService, history historyLister) *EnrollmentHandler {
	return &EnrollmentHandler{enrollment: enrollment, history: history}
}

// State godoc
// @Summary Current enrollment
// @Description Enrolled courses, pending selection and credit totals
// @Tags Enrollment
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /enrollment [get]
func (h *EnrollmentHandler) State(c *gin.Context) {
	state, err := h.enrollment.State(c.Request.Context(), studentID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state)
}

// Available godoc
// @Summary Courses open for selection
// @Tags Enrollment
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /enrollment/available [get]
func (h *EnrollmentHandler) Available(c *gin.Context) {
	courses, fallback, err := h.enrollment.Available(c.Request.Context(), studentID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, map[string]interface{}{"catalog_fallback": fallback})
}

// Toggle godoc
// @Summary Select or unselect a course
// @Description Adds the course to the pending selection, or removes it when already selected
// @Tags Enrollment
// @Security BearerAuth
// @Produce json
// @Param courseId path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /enrollment/selection/{courseId} [post]
func (h *EnrollmentHandler) Toggle(c *gin.Context) {
	state, err := h.enrollment.Toggle(c.Request.Context(), studentID(c), c.Param("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state)
}

// Commit godoc
// @Summary Enroll in the selected courses
// @Tags Enrollment
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /enrollment/commit [post]
func (h *EnrollmentHandler) Commit(c *gin.Context) {
	res, err := h.enrollment.Commit(c.Request.Context(), studentID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res)
}

// Withdraw godoc
// @Summary Withdraw from a course
// @Tags Enrollment
// @Security BearerAuth
// @Produce json
// @Param courseId path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /enrollment/courses/{courseId} [delete]
func (h *EnrollmentHandler) Withdraw(c *gin.Context) {
	res, err := h.enrollment.Withdraw(c.Request.Context(), studentID(c), c.Param("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res)
}

// Reload godoc
// @Summary Re-read enrollment from the store
// @Tags Enrollment
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /enrollment/reload [post]
func (h *EnrollmentHandler) Reload(c *gin.Context) {
	state, err := h.enrollment.Reload(c.Request.Context(), studentID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state)
}

// History godoc
// @Summary Enrollment history
// @Tags Enrollment
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /enrollment/history [get]
func (h *EnrollmentHandler) History(c *gin.Context) {
	records, err := h.history.List(c.Request.Context(), studentID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, map[string]interface{}{"count": len(records)})
}
