package service

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/student-portal-api/internal/models"
	appErrors "github.com/noah-isme/student-portal-api/pkg/errors"
	"github.com/noah-isme/student-portal-api/pkg/export"
)

type ledgerRunner interface {
	With(ctx context.Context, studentID string, fn func(*Ledger) error) error
}

type pdfRenderer interface {
	Render(title, subtitle string, sections []export.Section) ([]byte, error)
}

// lockedRooms makes a math/rand source safe for concurrent requests.
type lockedRooms struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func (r *lockedRooms) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Intn(n)
}

// Timetable is a generated weekly schedule.
type Timetable struct {
	StudentID string                 `json:"student_id"`
	Day       string                 `json:"day,omitempty"`
	Days      []string               `json:"days"`
	Slots     []models.TimetableSlot `json:"slots"`
}

// TimetableService derives schedules from the enrolled courses of a session.
type TimetableService struct {
	sessions ledgerRunner
	pdf      pdfRenderer
	rooms    RoomPicker
	logger   *zap.Logger
}

// NewTimetableService constructs TimetableService. rooms may be nil to use a
// time-seeded source.
func NewTimetableService(sessions ledgerRunner, pdf pdfRenderer, rooms RoomPicker, logger *zap.Logger) *TimetableService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rooms == nil {
		rooms = &lockedRooms{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
	}
	return &TimetableService{sessions: sessions, pdf: pdf, rooms: rooms, logger: logger}
}

// Schedule returns the weekly schedule, or one day of it when day is set.
func (s *TimetableService) Schedule(ctx context.Context, studentID, day string) (*Timetable, error) {
	normalizedDay := ""
	if day != "" {
		d, ok := NormalizeDay(day)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown day %q", day))
		}
		normalizedDay = d
	}

	enrolled, err := s.enrolled(ctx, studentID)
	if err != nil {
		return nil, err
	}
	slots := GenerateTimetable(enrolled, s.rooms)
	if normalizedDay != "" {
		slots = SlotsForDay(slots, normalizedDay)
	}
	return &Timetable{StudentID: studentID, Day: normalizedDay, Days: Days, Slots: slots}, nil
}

// PDF renders the weekly schedule, one table per day.
func (s *TimetableService) PDF(ctx context.Context, studentID string) ([]byte, error) {
	if s.pdf == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "pdf renderer not configured")
	}
	enrolled, err := s.enrolled(ctx, studentID)
	if err != nil {
		return nil, err
	}
	schedule := GenerateTimetable(enrolled, s.rooms)

	headers := []string{"Time", "Code", "Course", "Room", "Instructor"}
	sections := make([]export.Section, 0, len(Days))
	for _, day := range Days {
		daySlots := SlotsForDay(schedule, day)
		rows := make([]map[string]string, 0, len(daySlots))
		for _, slot := range daySlots {
			rows = append(rows, map[string]string{
				"Time":       slot.TimeSlot,
				"Code":       slot.CourseCode,
				"Course":     slot.Course,
				"Room":       slot.Room,
				"Instructor": slot.Instructor,
			})
		}
		sections = append(sections, export.Section{
			Title: day,
			Data:  export.Dataset{Headers: headers, Rows: rows},
			Empty: "No classes scheduled",
		})
	}

	out, err := s.pdf.Render("Weekly Timetable", fmt.Sprintf("%d courses, %d credit hours", len(enrolled), models.SumCredits(enrolled)), sections)
	if err != nil {
		s.logger.Error("failed to render timetable pdf", zap.String("student_id", studentID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render timetable")
	}
	return out, nil
}

func (s *TimetableService) enrolled(ctx context.Context, studentID string) ([]models.Course, error) {
	var enrolled []models.Course
	err := s.sessions.With(ctx, studentID, func(l *Ledger) error {
		enrolled = l.Enrolled()
		return nil
	})
	return enrolled, err
}
