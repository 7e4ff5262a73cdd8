package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/student-portal-api/internal/models"
	"github.com/noah-isme/student-portal-api/internal/service"
	"github.com/noah-isme/student-portal-api/pkg/response"
)

type catalogService interface {
	Browse(ctx context.Context) ([]models.Course, bool)
	GetCourse(ctx context.Context, id string) (*models.Course, error)
	Roster(ctx context.Context, courseID string) ([]models.RosterEntry, error)
}

type rosterExporter interface {
	ExportCSV(ctx context.Context, courseID string) (*service.RosterFile, error)
}

// CourseHandler serves the course catalog.
type CourseHandler struct {
	catalog catalogService
	exports rosterExporter
}

// NewCourseHandler constructs CourseHandler.
func NewCourseHandler(catalog catalogService, exports rosterExporter) *CourseHandler {
	return &CourseHandler{catalog: catalog, exports: exports}
}

// List godoc
// @Summary List courses
// @Description Full catalog; meta.catalog_fallback is true while the built-in list is served
// @Tags Courses
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	courses, fallback := h.catalog.Browse(c.Request.Context())
	response.JSON(c, http.StatusOK, courses, map[string]interface{}{
		"catalog_fallback": fallback,
		"count":            len(courses),
	})
}

// Get godoc
// @Summary Course detail
// @Tags Courses
// @Security BearerAuth
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	course, err := h.catalog.GetCourse(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course)
}

// Students godoc
// @Summary Students enrolled in a course
// @Tags Courses
// @Security BearerAuth
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id}/students [get]
func (h *CourseHandler) Students(c *gin.Context) {
	roster, err := h.catalog.Roster(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roster, map[string]interface{}{"count": len(roster)})
}

// StudentsCSV godoc
// @Summary Download the students of a course as CSV
// @Tags Courses
// @Security BearerAuth
// @Produce text/csv
// @Param id path string true "Course ID"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /courses/{id}/students/csv [get]
func (h *CourseHandler) StudentsCSV(c *gin.Context) {
	file, err := h.exports.ExportCSV(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, "text/csv; charset=utf-8", file.Filename, file.Body)
}
