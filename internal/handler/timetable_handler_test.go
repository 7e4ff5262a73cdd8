package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/student-portal-api/internal/models"
	"github.com/noah-isme/student-portal-api/internal/service"
	appErrors "github.com/noah-isme/student-portal-api/pkg/errors"
)

type timetableServiceMock struct {
	day string
}

func (m *timetableServiceMock) Schedule(ctx context.Context, studentID, day string) (*service.Timetable, error) {
	m.day = day
	if day == "Sunday" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown day")
	}
	return &service.Timetable{StudentID: studentID, Day: day, Slots: []models.TimetableSlot{{ID: "0-1", Day: "Monday"}}}, nil
}

func (m *timetableServiceMock) PDF(ctx context.Context, studentID string) ([]byte, error) {
	return []byte("%PDF-1.3"), nil
}

func TestTimetableHandlerGet(t *testing.T) {
	svc := &timetableServiceMock{}
	h := NewTimetableHandler(svc)
	c, w := newGinContext(http.MethodGet, "/timetable?day=Monday", nil)
	asStudent(c, "stu-1")

	h.Get(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Monday", svc.day)
	assert.Contains(t, w.Body.String(), `"id":"0-1"`)
}

func TestTimetableHandlerBadDay(t *testing.T) {
	h := NewTimetableHandler(&timetableServiceMock{})
	c, w := newGinContext(http.MethodGet, "/timetable?day=Sunday", nil)
	asStudent(c, "stu-1")

	h.Get(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTimetableHandlerPDF(t *testing.T) {
	h := NewTimetableHandler(&timetableServiceMock{})
	c, w := newGinContext(http.MethodGet, "/timetable/pdf", nil)
	asStudent(c, "stu-1")

	h.PDF(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "timetable.pdf")
}
