package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/student-portal-api/internal/models"
	appErrors "github.com/noah-isme/student-portal-api/pkg/errors"
)

// MaxCreditHours is the credit cap a student may hold at once.
const MaxCreditHours = 20

type courseCatalog interface {
	FetchAllCourses(ctx context.Context) ([]models.Course, error)
}

type profileStore interface {
	Fetch(ctx context.Context, studentID string) (*models.StudentProfile, error)
	Write(ctx context.Context, profile models.StudentProfile) error
}

// CommitResult describes the outcome of a successful commit.
type CommitResult struct {
	Added        []models.Course `json:"added"`
	Enrolled     []models.Course `json:"enrolled_courses"`
	TotalCredits int             `json:"total_credits"`
}

// WithdrawResult describes the outcome of a successful withdrawal.
type WithdrawResult struct {
	Withdrawn    models.Course   `json:"withdrawn"`
	Enrolled     []models.Course `json:"enrolled_courses"`
	TotalCredits int             `json:"total_credits"`
}

// Ledger owns one student's enrolled set, pending selection and credit total
// for the lifetime of a session. It does no locking of its own: callers must
// not issue overlapping operations on the same ledger.
type Ledger struct {
	studentID string
	catalog   courseCatalog
	profiles  profileStore
	logger    *zap.Logger
	now       func() time.Time

	courses         []models.Course
	enrolled        []models.Course
	selected        []models.Course
	totalCredits    int
	catalogFallback bool
	loaded          bool
}

// NewLedger constructs an unloaded ledger for studentID.
func NewLedger(studentID string, catalog courseCatalog, profiles profileStore, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		studentID: studentID,
		catalog:   catalog,
		profiles:  profiles,
		logger:    logger.With(zap.String("student_id", studentID)),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// StudentID returns the owner of the ledger.
func (l *Ledger) StudentID() string { return l.studentID }

// Loaded reports whether Load has completed successfully.
func (l *Ledger) Loaded() bool { return l.loaded }

// Load fetches the catalog and the persisted profile. A failing catalog falls
// back to the built-in course list; a missing profile is a new account.
func (l *Ledger) Load(ctx context.Context) error {
	courses, err := l.catalog.FetchAllCourses(ctx)
	fallback := false
	if err != nil {
		l.logger.Warn("course catalog unavailable, using built-in courses",
			zap.String("code", appErrors.ErrCatalogUnavailable.Code), zap.Error(err))
		courses = FallbackCourses()
		fallback = true
	}

	profile, err := l.profiles.Fetch(ctx, l.studentID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load student profile")
		}
		profile = &models.StudentProfile{StudentID: l.studentID}
	}

	enrolled := l.reconcileEnrolled(profile.EnrolledCourses, courses)
	total := models.SumCredits(enrolled)
	if total != profile.TotalCredits {
		l.logger.Warn("persisted credit total out of balance, using recomputed total",
			zap.Int("persisted", profile.TotalCredits), zap.Int("recomputed", total))
	}

	l.courses = courses
	l.enrolled = enrolled
	l.totalCredits = total
	l.catalogFallback = fallback
	l.loaded = true
	l.reconcileSelection()
	return nil
}

// reconcileEnrolled drops malformed and duplicate entries and fills in the
// descriptive fields from the catalog.
func (l *Ledger) reconcileEnrolled(refs []models.CourseRef, catalog []models.Course) []models.Course {
	byID := make(map[string]models.Course, len(catalog))
	for _, c := range catalog {
		byID[c.ID] = c
	}
	seen := make(map[string]struct{}, len(refs))
	enrolled := make([]models.Course, 0, len(refs))
	for _, ref := range refs {
		if ref.ID == "" || ref.Credits <= 0 {
			l.logger.Warn("dropping malformed enrolled course", zap.String("course_id", ref.ID), zap.Int("credits", ref.Credits))
			continue
		}
		if _, dup := seen[ref.ID]; dup {
			l.logger.Warn("dropping duplicate enrolled course", zap.String("course_id", ref.ID))
			continue
		}
		seen[ref.ID] = struct{}{}

		course := ref.Course()
		if full, ok := byID[ref.ID]; ok {
			course.Instructor = full.Instructor
			course.Description = full.Description
			course.Detail = full.Detail
			if course.Code == "" {
				course.Code = full.Code
			}
			if course.Name == "" {
				course.Name = full.Name
			}
		}
		enrolled = append(enrolled, normalizeCourse(course))
	}
	return enrolled
}

// reconcileSelection keeps pending picks consistent with a freshly loaded
// enrolled set.
func (l *Ledger) reconcileSelection() {
	if len(l.selected) == 0 {
		return
	}
	kept := l.selected[:0:0]
	for _, c := range l.selected {
		if indexOf(l.enrolled, c.ID) >= 0 {
			continue
		}
		if _, ok := l.CourseByID(c.ID); !ok {
			continue
		}
		kept = append(kept, c)
	}
	if l.totalCredits+models.SumCredits(kept) > MaxCreditHours {
		l.logger.Warn("pending selection exceeds credit cap after reload, clearing it", zap.Int("selected", len(kept)))
		kept = nil
	}
	l.selected = kept
}

// ToggleSelect adds course to the pending selection, or removes it when it is
// already selected. Adding fails with CREDIT_LIMIT_EXCEEDED when the enrolled
// total plus the selection would pass MaxCreditHours.
func (l *Ledger) ToggleSelect(course models.Course) error {
	if !l.loaded {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "enrollment state not loaded")
	}
	if idx := indexOf(l.selected, course.ID); idx >= 0 {
		l.selected = removeAt(l.selected, idx)
		return nil
	}
	prospective := l.totalCredits + models.SumCredits(l.selected) + course.Credits
	if prospective > MaxCreditHours {
		return appErrors.Clone(appErrors.ErrCreditLimitExceeded, fmt.Sprintf("you cannot exceed %d credit hours", MaxCreditHours))
	}
	l.selected = append(l.selected, course)
	return nil
}

// Commit folds the pending selection into the enrolled set and persists the
// whole profile. On a failed write nothing changes, so the caller may retry.
func (l *Ledger) Commit(ctx context.Context, studentID string) (*CommitResult, error) {
	if len(l.selected) == 0 {
		return nil, appErrors.ErrEmptySelection
	}
	if studentID == "" || studentID != l.studentID {
		return nil, appErrors.ErrUnauthorized
	}
	if !l.loaded {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "enrollment state not loaded")
	}

	finalCourses := unionByID(l.enrolled, l.selected)
	finalCredits := l.totalCredits + models.SumCredits(l.selected)
	if sum := models.SumCredits(finalCourses); sum != finalCredits {
		l.logger.Error("credit ledger out of balance", zap.Int("expected", finalCredits), zap.Int("actual", sum))
		return nil, appErrors.Clone(appErrors.ErrInternal, "credit ledger out of balance")
	}
	if finalCredits > MaxCreditHours {
		return nil, appErrors.Clone(appErrors.ErrCreditLimitExceeded, fmt.Sprintf("you cannot exceed %d credit hours", MaxCreditHours))
	}

	now := l.now()
	profile := models.StudentProfile{
		StudentID:       l.studentID,
		EnrolledCourses: toRefs(finalCourses),
		TotalCredits:    finalCredits,
		LastEnrollment:  &now,
		UpdatedAt:       now,
	}
	if err := l.profiles.Write(ctx, profile); err != nil {
		l.logger.Warn("enrollment commit not persisted", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, appErrors.ErrPersistence.Message)
	}

	added := l.selected
	l.enrolled = finalCourses
	l.totalCredits = finalCredits
	l.selected = nil

	return &CommitResult{
		Added:        cloneCourses(added),
		Enrolled:     cloneCourses(finalCourses),
		TotalCredits: finalCredits,
	}, nil
}

// Withdraw removes courseID from the enrolled set and persists the profile.
// Local state only changes after the write succeeds.
func (l *Ledger) Withdraw(ctx context.Context, studentID, courseID string) (*WithdrawResult, error) {
	if studentID == "" || studentID != l.studentID {
		return nil, appErrors.ErrUnauthorized
	}
	idx := indexOf(l.enrolled, courseID)
	if idx < 0 {
		return nil, appErrors.ErrNotEnrolled
	}

	withdrawn := l.enrolled[idx]
	newCourses := removeAt(cloneCourses(l.enrolled), idx)
	newCredits := l.totalCredits - withdrawn.Credits

	now := l.now()
	profile := models.StudentProfile{
		StudentID:       l.studentID,
		EnrolledCourses: toRefs(newCourses),
		TotalCredits:    newCredits,
		UpdatedAt:       now,
	}
	if err := l.profiles.Write(ctx, profile); err != nil {
		l.logger.Warn("withdrawal not persisted", zap.String("course_id", courseID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, appErrors.ErrPersistence.Message)
	}

	l.enrolled = newCourses
	l.totalCredits = newCredits

	return &WithdrawResult{
		Withdrawn:    withdrawn,
		Enrolled:     cloneCourses(newCourses),
		TotalCredits: newCredits,
	}, nil
}

// Catalog returns every course offered in this session.
func (l *Ledger) Catalog() []models.Course { return cloneCourses(l.courses) }

// Enrolled returns the committed courses in display order.
func (l *Ledger) Enrolled() []models.Course { return cloneCourses(l.enrolled) }

// Selected returns the pending selection in pick order.
func (l *Ledger) Selected() []models.Course { return cloneCourses(l.selected) }

// TotalCredits returns the committed credit total.
func (l *Ledger) TotalCredits() int { return l.totalCredits }

// WorkingCredits returns the committed total plus the pending selection.
func (l *Ledger) WorkingCredits() int { return l.totalCredits + models.SumCredits(l.selected) }

// CatalogFallback reports whether the built-in course list is in use.
func (l *Ledger) CatalogFallback() bool { return l.catalogFallback }

// Available returns catalog courses the student is not enrolled in.
func (l *Ledger) Available() []models.Course {
	available := make([]models.Course, 0, len(l.courses))
	for _, c := range l.courses {
		if indexOf(l.enrolled, c.ID) < 0 {
			available = append(available, c)
		}
	}
	return available
}

// CourseByID looks a course up in the session catalog.
func (l *Ledger) CourseByID(id string) (models.Course, bool) {
	if idx := indexOf(l.courses, id); idx >= 0 {
		return l.courses[idx], true
	}
	return models.Course{}, false
}

// IsEnrolled reports whether courseID is committed.
func (l *Ledger) IsEnrolled(courseID string) bool { return indexOf(l.enrolled, courseID) >= 0 }

// IsSelected reports whether courseID is pending.
func (l *Ledger) IsSelected(courseID string) bool { return indexOf(l.selected, courseID) >= 0 }

// Snapshot returns the client-facing view of the ledger.
func (l *Ledger) Snapshot() models.EnrollmentState {
	return models.EnrollmentState{
		StudentID:       l.studentID,
		EnrolledCourses: l.Enrolled(),
		SelectedCourses: l.Selected(),
		TotalCredits:    l.totalCredits,
		WorkingCredits:  l.WorkingCredits(),
		MaxCredits:      MaxCreditHours,
		CatalogFallback: l.catalogFallback,
	}
}

func indexOf(courses []models.Course, id string) int {
	for i, c := range courses {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func removeAt(courses []models.Course, idx int) []models.Course {
	out := make([]models.Course, 0, len(courses)-1)
	out = append(out, courses[:idx]...)
	return append(out, courses[idx+1:]...)
}

func unionByID(a, b []models.Course) []models.Course {
	out := make([]models.Course, 0, len(a)+len(b))
	seen := make(map[string]struct{}, len(a)+len(b))
	for _, list := range [][]models.Course{a, b} {
		for _, c := range list {
			if _, ok := seen[c.ID]; ok {
				continue
			}
			seen[c.ID] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}

func cloneCourses(courses []models.Course) []models.Course {
	out := make([]models.Course, len(courses))
	copy(out, courses)
	return out
}

func toRefs(courses []models.Course) []models.CourseRef {
	refs := make([]models.CourseRef, len(courses))
	for i, c := range courses {
		refs[i] = c.Ref()
	}
	return refs
}
