package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/student-portal-api/internal/models"
	appErrors "github.com/noah-isme/student-portal-api/pkg/errors"
	"github.com/noah-isme/student-portal-api/pkg/jobs"
)

const historyJobType = "enrollment.history"

type historyRepository interface {
	Create(ctx context.Context, record *models.EnrollmentHistory) error
	ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentHistory, error)
}

type historyQueue interface {
	Start(ctx context.Context)
	Stop()
	Enqueue(job jobs.Job) error
}

// HistoryConfig configures the history writer.
type HistoryConfig struct {
	Semester   string
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

// HistoryService appends enrollment history records in the background so a
// slow history table never delays a commit.
type HistoryService struct {
	repo     historyRepository
	queue    historyQueue
	semester string
	logger   *zap.Logger
	now      func() time.Time
}

// NewHistoryService constructs HistoryService with its own worker queue.
func NewHistoryService(repo historyRepository, cfg HistoryConfig, logger *zap.Logger) *HistoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &HistoryService{
		repo:     repo,
		semester: cfg.Semester,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
	svc.queue = jobs.NewQueue("enrollment-history", svc.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return svc
}

// Start launches the history workers.
func (s *HistoryService) Start(ctx context.Context) { s.queue.Start(ctx) }

// Stop waits for the workers to exit.
func (s *HistoryService) Stop() { s.queue.Stop() }

// Record schedules a history entry for a successful commit.
func (s *HistoryService) Record(studentID string, result *CommitResult) error {
	if result == nil || len(result.Added) == 0 {
		return nil
	}
	record := &models.EnrollmentHistory{
		ID:           uuid.NewString(),
		StudentID:    studentID,
		Courses:      toRefs(result.Added),
		TotalCredits: result.TotalCredits,
		Semester:     s.semester,
		EnrolledAt:   s.now(),
	}
	if err := s.queue.Enqueue(jobs.Job{Type: historyJobType, Payload: record}); err != nil {
		return fmt.Errorf("enqueue enrollment history: %w", err)
	}
	return nil
}

// List returns the history of studentID, newest first.
func (s *HistoryService) List(ctx context.Context, studentID string) ([]models.EnrollmentHistory, error) {
	if studentID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	records, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment history")
	}
	return records, nil
}

func (s *HistoryService) handle(ctx context.Context, job jobs.Job) error {
	record, ok := job.Payload.(*models.EnrollmentHistory)
	if !ok {
		s.logger.Error("unexpected history payload", zap.String("job_id", job.ID))
		return nil
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return err
	}
	s.logger.Debug("enrollment history recorded", zap.String("student_id", record.StudentID), zap.String("history_id", record.ID))
	return nil
}
