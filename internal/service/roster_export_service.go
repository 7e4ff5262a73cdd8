package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/student-portal-api/internal/models"
	appErrors "github.com/noah-isme/student-portal-api/pkg/errors"
	"github.com/noah-isme/student-portal-api/pkg/export"
)

var rosterHeaders = []string{"Name", "Email", "SAP ID"}

type rosterSource interface {
	GetCourse(ctx context.Context, id string) (*models.Course, error)
	Roster(ctx context.Context, courseID string) ([]models.RosterEntry, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// RosterFile is a rendered roster download.
type RosterFile struct {
	Filename string
	Body     []byte
}

// RosterExportService renders the students of a course as a spreadsheet.
type RosterExportService struct {
	catalog rosterSource
	csv     csvRenderer
	logger  *zap.Logger
}

// NewRosterExportService constructs RosterExportService.
func NewRosterExportService(catalog rosterSource, csv csvRenderer, logger *zap.Logger) *RosterExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterExportService{catalog: catalog, csv: csv, logger: logger}
}

// ExportCSV renders the roster of courseID as "<code>_Students.csv".
func (s *RosterExportService) ExportCSV(ctx context.Context, courseID string) (*RosterFile, error) {
	course, err := s.catalog.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	roster, err := s.catalog.Roster(ctx, courseID)
	if err != nil {
		return nil, err
	}

	rows := make([]map[string]string, 0, len(roster))
	for _, entry := range roster {
		rows = append(rows, map[string]string{
			"Name":   entry.Name,
			"Email":  entry.Email,
			"SAP ID": entry.SapID,
		})
	}
	body, err := s.csv.Render(export.Dataset{Headers: rosterHeaders, Rows: rows})
	if err != nil {
		s.logger.Error("render roster csv", zap.String("course_id", courseID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render student list")
	}
	return &RosterFile{Filename: rosterFilename(course), Body: body}, nil
}

// rosterFilename keeps the header value free of quotes and path separators.
func rosterFilename(course *models.Course) string {
	code := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '_'
		default:
			return -1
		}
	}, course.Code)
	if code == "" {
		code = course.ID
	}
	return fmt.Sprintf("%s_Students.csv", code)
}
