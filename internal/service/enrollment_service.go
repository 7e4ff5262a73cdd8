package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/student-portal-api/internal/models"
	appErrors "github.com/noah-isme/student-portal-api/pkg/errors"
)

type ledgerSessions interface {
	With(ctx context.Context, studentID string, fn func(*Ledger) error) error
}

type historyRecorder interface {
	Record(studentID string, result *CommitResult) error
}

type enrollmentMetrics interface {
	RecordEnrollmentOperation(operation, result string)
	ObserveCommittedCredits(credits int)
}

// EnrollmentService exposes ledger operations to the transport layer.
type EnrollmentService struct {
	sessions ledgerSessions
	history  historyRecorder
	metrics  enrollmentMetrics
	logger   *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService. history and metrics may
// be nil.
func NewEnrollmentService(sessions ledgerSessions, history historyRecorder, metrics enrollmentMetrics, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{sessions: sessions, history: history, metrics: metrics, logger: logger}
}

// State returns the current ledger view.
func (s *EnrollmentService) State(ctx context.Context, studentID string) (*models.EnrollmentState, error) {
	var state models.EnrollmentState
	err := s.sessions.With(ctx, studentID, func(l *Ledger) error {
		state = l.Snapshot()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// Available lists catalog courses the student can still pick.
func (s *EnrollmentService) Available(ctx context.Context, studentID string) ([]models.Course, bool, error) {
	var (
		courses  []models.Course
		fallback bool
	)
	err := s.sessions.With(ctx, studentID, func(l *Ledger) error {
		courses = l.Available()
		fallback = l.CatalogFallback()
		return nil
	})
	return courses, fallback, err
}

// Toggle adds courseID to the pending selection or removes it.
func (s *EnrollmentService) Toggle(ctx context.Context, studentID, courseID string) (*models.EnrollmentState, error) {
	var state models.EnrollmentState
	err := s.sessions.With(ctx, studentID, func(l *Ledger) error {
		course, ok := l.CourseByID(courseID)
		if !ok {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		if l.IsEnrolled(courseID) {
			return appErrors.Clone(appErrors.ErrConflict, "you are already enrolled in this course")
		}
		if err := l.ToggleSelect(course); err != nil {
			return err
		}
		state = l.Snapshot()
		return nil
	})
	s.record("toggle", err)
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// Commit persists the pending selection and schedules a history record.
func (s *EnrollmentService) Commit(ctx context.Context, studentID string) (*CommitResult, error) {
	var result *CommitResult
	err := s.sessions.With(ctx, studentID, func(l *Ledger) error {
		res, err := l.Commit(ctx, studentID)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	s.record("commit", err)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.ObserveCommittedCredits(result.TotalCredits)
	}
	if s.history != nil {
		if err := s.history.Record(studentID, result); err != nil {
			s.logger.Warn("failed to schedule enrollment history", zap.String("student_id", studentID), zap.Error(err))
		}
	}
	s.logger.Info("enrollment committed",
		zap.String("student_id", studentID),
		zap.Int("added", len(result.Added)),
		zap.Int("total_credits", result.TotalCredits))
	return result, nil
}

// Withdraw drops courseID from the enrolled set.
func (s *EnrollmentService) Withdraw(ctx context.Context, studentID, courseID string) (*WithdrawResult, error) {
	var result *WithdrawResult
	err := s.sessions.With(ctx, studentID, func(l *Ledger) error {
		res, err := l.Withdraw(ctx, studentID, courseID)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	s.record("withdraw", err)
	if err != nil {
		return nil, err
	}
	s.logger.Info("course withdrawn",
		zap.String("student_id", studentID),
		zap.String("course_id", courseID),
		zap.Int("total_credits", result.TotalCredits))
	return result, nil
}

// Reload re-reads the catalog and profile from the stores.
func (s *EnrollmentService) Reload(ctx context.Context, studentID string) (*models.EnrollmentState, error) {
	var state models.EnrollmentState
	err := s.sessions.With(ctx, studentID, func(l *Ledger) error {
		if err := l.Load(ctx); err != nil {
			return err
		}
		state = l.Snapshot()
		return nil
	})
	s.record("reload", err)
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *EnrollmentService) record(operation string, err error) {
	if s.metrics == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = appErrors.FromError(err).Code
	}
	s.metrics.RecordEnrollmentOperation(operation, result)
}
