package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/student-portal-api/internal/service"
	"github.com/noah-isme/student-portal-api/pkg/response"
)

type timetableService interface {
	Schedule(ctx context.Context, studentID, day string) (*service.Timetable, error)
	PDF(ctx context.Context, studentID string) ([]byte, error)
}

// TimetableHandler serves the generated weekly schedule.
type TimetableHandler struct {
	timetable timetableService
}

// NewTimetableHandler constructs TimetableHandler.
func NewTimetableHandler(timetable timetableService) *TimetableHandler {
	return &TimetableHandler{timetable: timetable}
}

// Get godoc
// @Summary Weekly timetable
// @Tags Timetable
// @Security BearerAuth
// @Produce json
// @Param day query string false "Monday to Friday"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /timetable [get]
func (h *TimetableHandler) Get(c *gin.Context) {
	schedule, err := h.timetable.Schedule(c.Request.Context(), studentID(c), c.Query("day"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule)
}

// PDF godoc
// @Summary Weekly timetable as PDF
// @Tags Timetable
// @Security BearerAuth
// @Produce application/pdf
// @Success 200 {file} binary
// @Router /timetable/pdf [get]
func (h *TimetableHandler) PDF(c *gin.Context) {
	body, err := h.timetable.PDF(c.Request.Context(), studentID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, "application/pdf", "timetable.pdf", body)
}
