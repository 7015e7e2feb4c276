package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/cartsaver/internal/metrics"
	"github.com/mmynk/cartsaver/internal/models"
	"github.com/mmynk/cartsaver/internal/optimizer"
	"github.com/mmynk/cartsaver/internal/storage"
)

// Engine runs one optimization.
type Engine interface {
	Optimize(ctx context.Context, req optimizer.Request) (*optimizer.Result, error)
}

// Applier writes an accepted plan back to the item store.
type Applier interface {
	Apply(ctx context.Context, plan *models.OptimizationPlan) (*optimizer.ApplyResult, error)
}

// View is a point-in-time copy of a session, safe to hand to callers.
type View struct {
	ID          string
	UserID      string
	ListID      string
	State       State
	Location    *models.Location
	ItemCount   int
	Result      *optimizer.Result
	ApplyResult *optimizer.ApplyResult
	Error       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type session struct {
	mu sync.Mutex

	id          string
	userID      string
	listID      string
	state       State
	items       []models.ShoppingItem
	location    *models.Location
	constraints map[string]models.ItemConstraint
	result      *optimizer.Result
	applied     *optimizer.ApplyResult
	err         string
	cancel      context.CancelFunc
	createdAt   time.Time
	updatedAt   time.Time
}

func (s *session) view() *View {
	v := &View{
		ID:          s.id,
		UserID:      s.userID,
		ListID:      s.listID,
		State:       s.state,
		ItemCount:   len(s.items),
		Result:      s.result,
		ApplyResult: s.applied,
		Error:       s.err,
		CreatedAt:   s.createdAt,
		UpdatedAt:   s.updatedAt,
	}
	if s.location != nil {
		loc := *s.location
		v.Location = &loc
	}
	return v
}

func (s *session) run() *models.OptimizationRun {
	run := &models.OptimizationRun{
		ID:        s.id,
		UserID:    s.userID,
		ListID:    s.listID,
		State:     string(s.state),
		CreatedAt: s.createdAt.Unix(),
		UpdatedAt: s.updatedAt.Unix(),
	}
	if s.result != nil {
		run.Outcome = string(s.result.Outcome)
		run.CandidateStores = len(s.result.CandidateStores)
		run.FailedStores = s.result.FailedStores
		run.TotalPotentialSavings = s.result.TotalPotentialSavings
	}
	if s.applied != nil {
		run.AppliedItems = len(s.applied.Applied)
		run.FailedItems = len(s.applied.Failed)
	}
	return run
}

// Manager owns every live session.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*session

	engine  Engine
	applier Applier
	items   storage.ItemStore
	runs    storage.RunStore
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewManager creates a Manager. runs may be nil, in which case runs are not recorded.
func NewManager(engine Engine, applier Applier, items storage.ItemStore, runs storage.RunStore, m *metrics.Metrics) *Manager {
	return &Manager{
		sessions: make(map[string]*session),
		engine:   engine,
		applier:  applier,
		items:    items,
		runs:     runs,
		metrics:  m,
		now:      time.Now,
	}
}

// Create opens a session in AwaitingLocation. When items is empty and listID
// is set, the list's items are loaded from the item store.
func (m *Manager) Create(ctx context.Context, userID, listID string, items []models.ShoppingItem) (*View, error) {
	if len(items) == 0 && listID != "" {
		loaded, err := m.items.ListItems(ctx, listID)
		if err != nil {
			return nil, fmt.Errorf("failed to load list items: %w", err)
		}
		for _, item := range loaded {
			items = append(items, *item)
		}
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: session needs at least one item", optimizer.ErrInvalidInput)
	}

	now := m.now()
	s := &session{
		id:        uuid.New().String(),
		userID:    userID,
		listID:    listID,
		state:     StateAwaitingLocation,
		items:     append([]models.ShoppingItem(nil), items...),
		createdAt: now,
		updatedAt: now,
	}

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()
	m.metrics.SessionMoved("", string(s.state))

	slog.Info("Session created", "session_id", s.id, "user_id", userID, "items_count", len(items))
	return s.view(), nil
}

// SetLocation records the shopper's location and moves the session to
// CollectingConstraints. Calling it again before optimizing replaces the location.
func (m *Manager) SetLocation(ctx context.Context, id string, loc models.Location) (*View, error) {
	s, err := m.get(id)
	if err != nil {
		return nil, err
	}
	if !loc.Valid() {
		return nil, fmt.Errorf("%w: location out of range", optimizer.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateCollectingConstraints {
		if err := m.transition(s, StateCollectingConstraints); err != nil {
			return nil, err
		}
	}
	s.location = &loc
	s.updatedAt = m.now()
	return s.view(), nil
}

// Optimize runs the engine with the given constraints. A Failed session is
// restarted. The call blocks until the run settles; closing the session
// meanwhile cancels the run and Optimize returns ErrAbandoned.
func (m *Manager) Optimize(ctx context.Context, id string, constraints map[string]models.ItemConstraint) (*View, error) {
	s, err := m.get(id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.state == StateFailed {
		if err := m.transition(s, StateCollectingConstraints); err != nil {
			s.mu.Unlock()
			return nil, err
		}
	}
	if err := m.transition(s, StateProcessing); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.constraints = constraints
	s.result = nil
	s.err = ""
	req := optimizer.Request{
		Items:       s.items,
		Location:    s.location,
		Constraints: constraints,
	}
	s.mu.Unlock()

	result, runErr := m.engine.Optimize(runCtx, req)
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel = nil

	if s.state != StateProcessing {
		slog.Info("Discarding results of abandoned run", "session_id", id)
		return nil, ErrAbandoned
	}

	if runErr != nil {
		s.err = runErr.Error()
		if terr := m.transition(s, StateFailed); terr != nil {
			return nil, terr
		}
		m.saveRun(ctx, s)
		slog.Error("Optimization run failed", "session_id", id, "error", runErr)
		return s.view(), runErr
	}

	s.result = result
	if err := m.transition(s, StateResultsReady); err != nil {
		return nil, err
	}
	m.saveRun(ctx, s)
	return s.view(), nil
}

// Start is Create, SetLocation and Optimize in one call.
func (m *Manager) Start(ctx context.Context, userID, listID string, items []models.ShoppingItem, loc *models.Location, constraints map[string]models.ItemConstraint) (*View, error) {
	if loc == nil {
		return nil, fmt.Errorf("%w: location is required", optimizer.ErrInvalidInput)
	}
	v, err := m.Create(ctx, userID, listID, items)
	if err != nil {
		return nil, err
	}
	if _, err := m.SetLocation(ctx, v.ID, *loc); err != nil {
		m.discard(v.ID)
		return nil, err
	}
	return m.Optimize(ctx, v.ID, constraints)
}

// Accept applies the session's plan. Only ResultsReady sessions holding a
// viable plan can be accepted. When every write fails the session stays in
// ResultsReady so the caller may retry.
func (m *Manager) Accept(ctx context.Context, id string) (*View, error) {
	s, err := m.get(id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkTransition(s.state, StateApplied); err != nil {
		return nil, err
	}
	if s.result == nil || s.result.Plan == nil {
		return nil, ErrNoPlan
	}

	applied, err := m.applier.Apply(ctx, s.result.Plan)
	if err != nil {
		if errors.Is(err, optimizer.ErrApplyFailed) {
			s.applied = applied
			s.updatedAt = m.now()
		}
		return nil, fmt.Errorf("failed to apply plan: %w", err)
	}

	s.applied = applied
	if err := m.transition(s, StateApplied); err != nil {
		return nil, err
	}
	m.saveRun(ctx, s)
	return s.view(), nil
}

// Reject closes the session. From Processing it cancels the in-flight run.
func (m *Manager) Reject(ctx context.Context, id string) (*View, error) {
	s, err := m.get(id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := m.close(s); err != nil {
		return nil, err
	}
	m.saveRun(ctx, s)
	return s.view(), nil
}

// Get returns a snapshot of the session.
func (m *Manager) Get(id string) (*View, error) {
	s, err := m.get(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view(), nil
}

// Cleanup drops sessions idle for longer than maxAge, closing live ones
// first. It returns the number of sessions removed.
func (m *Manager) Cleanup(ctx context.Context, maxAge time.Duration) int {
	cutoff := m.now().Add(-maxAge)

	m.mu.RLock()
	snapshot := make(map[string]*session, len(m.sessions))
	for id, s := range m.sessions {
		snapshot[id] = s
	}
	m.mu.RUnlock()

	removed := 0
	for id, s := range snapshot {
		s.mu.Lock()
		if s.updatedAt.Before(cutoff) && m.remove(id, s) {
			if !s.state.Terminal() {
				if err := m.close(s); err == nil {
					m.saveRun(ctx, s)
				}
			}
			m.metrics.SessionMoved(string(s.state), "")
			removed++
		}
		s.mu.Unlock()
	}

	if removed > 0 {
		slog.Info("Expired idle sessions", "count", removed, "max_age", maxAge)
	}
	return removed
}

// remove deletes id from the registry if it still maps to s.
func (m *Manager) remove(id string, s *session) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessions[id] != s {
		return false
	}
	delete(m.sessions, id)
	return true
}

// Len returns the number of tracked sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) get(id string) (*session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s, nil
}

func (m *Manager) discard(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		s.mu.Lock()
		m.metrics.SessionMoved(string(s.state), "")
		s.mu.Unlock()
	}
}

// close must be called with s.mu held.
func (m *Manager) close(s *session) error {
	if err := m.transition(s, StateClosed); err != nil {
		return err
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	return nil
}

// transition must be called with s.mu held.
func (m *Manager) transition(s *session, to State) error {
	if err := checkTransition(s.state, to); err != nil {
		return err
	}
	from := s.state
	s.state = to
	s.updatedAt = m.now()
	m.metrics.SessionMoved(string(from), string(to))
	slog.Debug("Session state changed", "session_id", s.id, "from", from, "to", to)
	return nil
}

// saveRun records the session as an optimization run. Failures are logged
// only. Must be called with s.mu held.
func (m *Manager) saveRun(ctx context.Context, s *session) {
	if m.runs == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := m.runs.SaveRun(ctx, s.run()); err != nil {
		slog.Warn("Failed to record optimization run", "session_id", s.id, "error", err)
	}
}
