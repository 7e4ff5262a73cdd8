package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/student-portal-api/pkg/errors"
)

type ledgerSession struct {
	mu       sync.Mutex
	ledger   *Ledger
	openedAt time.Time
	lastUsed time.Time
}

// LedgerSessions owns one Ledger per logged-in student. Sessions are created
// on login only and destroyed on logout or after idleTimeout without use;
// operations on a session are serialised.
type LedgerSessions struct {
	catalog     courseCatalog
	profiles    profileStore
	idleTimeout time.Duration
	logger      *zap.Logger
	now         func() time.Time

	mu       sync.Mutex
	sessions map[string]*ledgerSession
}

// NewLedgerSessions constructs the session registry. A zero idleTimeout
// keeps sessions until logout.
func NewLedgerSessions(catalog courseCatalog, profiles profileStore, idleTimeout time.Duration, logger *zap.Logger) *LedgerSessions {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerSessions{
		catalog:     catalog,
		profiles:    profiles,
		idleTimeout: idleTimeout,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
		sessions:    make(map[string]*ledgerSession),
	}
}

// Open starts a fresh session for studentID, replacing any previous one, and
// loads its state. A session whose load fails stays registered and retries
// the load on its next use.
func (s *LedgerSessions) Open(ctx context.Context, studentID string) error {
	if studentID == "" {
		return appErrors.ErrUnauthorized
	}
	now := s.now()
	sess := &ledgerSession{
		ledger:   NewLedger(studentID, s.catalog, s.profiles, s.logger),
		openedAt: now,
		lastUsed: now,
	}

	s.mu.Lock()
	s.sessions[studentID] = sess
	s.mu.Unlock()

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := sess.ledger.Load(ctx); err != nil {
		return err
	}
	s.logger.Info("enrollment session opened", zap.String("student_id", studentID))
	return nil
}

// Close destroys the session of studentID. It reports whether one existed.
func (s *LedgerSessions) Close(studentID string) bool {
	s.mu.Lock()
	_, ok := s.sessions[studentID]
	delete(s.sessions, studentID)
	s.mu.Unlock()
	if ok {
		s.logger.Info("enrollment session closed", zap.String("student_id", studentID))
	}
	return ok
}

// With runs fn against the ledger of studentID while holding the session
// lock. It fails with UNAUTHORIZED when no live session exists.
func (s *LedgerSessions) With(ctx context.Context, studentID string, fn func(*Ledger) error) error {
	if studentID == "" {
		return appErrors.ErrUnauthorized
	}
	sess, err := s.lookup(studentID)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if !sess.ledger.Loaded() {
		if err := sess.ledger.Load(ctx); err != nil {
			return err
		}
	}
	return fn(sess.ledger)
}

// Active returns the number of open sessions.
func (s *LedgerSessions) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep drops sessions idle for longer than the idle timeout and returns how
// many were removed.
func (s *LedgerSessions) Sweep() int {
	if s.idleTimeout <= 0 {
		return 0
	}
	now := s.now()
	s.mu.Lock()
	removed := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.lastUsed) > s.idleTimeout {
			delete(s.sessions, id)
			removed++
		}
	}
	s.mu.Unlock()
	if removed > 0 {
		s.logger.Info("expired idle enrollment sessions", zap.Int("count", removed))
	}
	return removed
}

// Run sweeps idle sessions every interval until ctx is done.
func (s *LedgerSessions) Run(ctx context.Context, interval time.Duration) {
	if s.idleTimeout <= 0 {
		return
	}
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

func (s *LedgerSessions) lookup(studentID string) (*ledgerSession, error) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[studentID]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "no active enrollment session, please log in again")
	}
	if s.idleTimeout > 0 && now.Sub(sess.lastUsed) > s.idleTimeout {
		delete(s.sessions, studentID)
		s.logger.Info("enrollment session expired", zap.String("student_id", studentID))
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "enrollment session expired, please log in again")
	}
	sess.lastUsed = now
	return sess, nil
}
