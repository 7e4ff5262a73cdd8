package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/student-portal-api/internal/models"
	appErrors "github.com/noah-isme/student-portal-api/pkg/errors"
)

const catalogCacheKey = "catalog:courses:v1"

type courseRepository interface {
	List(ctx context.Context) ([]models.Course, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	ListRoster(ctx context.Context, courseID string) ([]models.RosterEntry, error)
}

type catalogCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// CatalogService is the course catalog store: a read-through cache in front
// of the courses table that normalises entries at the boundary.
type CatalogService struct {
	repo   courseRepository
	cache  catalogCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCatalogService constructs CatalogService. cache may be nil.
func NewCatalogService(repo courseRepository, cache catalogCache, ttl time.Duration, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{repo: repo, cache: cache, ttl: ttl, logger: logger}
}

// FetchAllCourses returns the normalised catalog.
func (s *CatalogService) FetchAllCourses(ctx context.Context) ([]models.Course, error) {
	if s.cache != nil {
		var cached []models.Course
		if hit, err := s.cache.Get(ctx, catalogCacheKey, &cached); err == nil && hit {
			return cached, nil
		}
	}

	raw, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCatalogUnavailable.Code, appErrors.ErrCatalogUnavailable.Status, "failed to fetch courses")
	}
	courses := s.normalize(raw)

	if s.cache != nil {
		if err := s.cache.Set(ctx, catalogCacheKey, courses, s.ttl); err != nil {
			s.logger.Debug("catalog cache write failed", zap.Error(err))
		}
	}
	return courses, nil
}

// Browse returns the catalog for display. When the store is unreachable it
// serves the built-in course list and reports fallback=true.
func (s *CatalogService) Browse(ctx context.Context) (courses []models.Course, fallback bool) {
	courses, err := s.FetchAllCourses(ctx)
	if err != nil {
		s.logger.Warn("course catalog unavailable, serving built-in courses", zap.Error(err))
		return FallbackCourses(), true
	}
	return courses, false
}

// GetCourse returns a single normalised course.
func (s *CatalogService) GetCourse(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	normalized := normalizeCourse(*course)
	return &normalized, nil
}

// Roster lists the students currently enrolled in courseID.
func (s *CatalogService) Roster(ctx context.Context, courseID string) ([]models.RosterEntry, error) {
	if _, err := s.GetCourse(ctx, courseID); err != nil {
		return nil, err
	}
	roster, err := s.repo.ListRoster(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrolled students")
	}
	for i := range roster {
		if roster[i].Name == "" {
			roster[i].Name = "Unknown"
		}
		if roster[i].SapID == "" {
			roster[i].SapID = "N/A"
		}
	}
	return roster, nil
}

func (s *CatalogService) normalize(raw []models.Course) []models.Course {
	courses := make([]models.Course, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, c := range raw {
		c.ID = strings.TrimSpace(c.ID)
		if c.ID == "" || c.Credits <= 0 {
			s.logger.Warn("rejecting malformed catalog entry", zap.String("course_id", c.ID), zap.String("code", c.Code), zap.Int("credits", c.Credits))
			continue
		}
		if _, dup := seen[c.ID]; dup {
			s.logger.Warn("rejecting duplicate catalog entry", zap.String("course_id", c.ID))
			continue
		}
		seen[c.ID] = struct{}{}
		courses = append(courses, normalizeCourse(c))
	}
	return courses
}

func normalizeCourse(c models.Course) models.Course {
	c.Code = strings.TrimSpace(c.Code)
	c.Name = strings.TrimSpace(c.Name)
	if strings.TrimSpace(c.Instructor) == "" {
		c.Instructor = models.UnspecifiedInstructor
	}
	if strings.TrimSpace(c.Description) == "" {
		c.Description = models.UnspecifiedDescription
	}
	if strings.TrimSpace(c.Detail) == "" {
		c.Detail = models.UnspecifiedDetail
	}
	return c
}
