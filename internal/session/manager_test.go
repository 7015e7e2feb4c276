package session

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/mmynk/cartsaver/internal/models"
	"github.com/mmynk/cartsaver/internal/optimizer"
	"github.com/mmynk/cartsaver/internal/storage/sqlite"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func ptr(v float64) *float64 { return &v }

var loc = models.Location{Latitude: 37.77, Longitude: -122.42}

// stubEngine returns a canned result. When block is set, Optimize waits
// for the context to end and returns its error.
type stubEngine struct {
	mu      sync.Mutex
	result  *optimizer.Result
	err     error
	block   bool
	started chan struct{}
	reqs    []optimizer.Request
}

func (e *stubEngine) Optimize(ctx context.Context, req optimizer.Request) (*optimizer.Result, error) {
	e.mu.Lock()
	e.reqs = append(e.reqs, req)
	block, result, err := e.block, e.result, e.err
	e.mu.Unlock()

	if block {
		close(e.started)
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return result, err
}

func planResult() *optimizer.Result {
	plan := &models.OptimizationPlan{
		Groups: []models.StoreGroup{{
			StoreName:    "Aldi",
			Items:        []models.PlanItem{{ItemID: "milk", OptimizedPrice: 2.49, Savings: 6.00, Confidence: 8}},
			TotalSavings: 6.00,
		}},
		TotalPotentialSavings: 6.00,
	}
	return &optimizer.Result{
		Outcome:               optimizer.OutcomePlan,
		Plan:                  plan,
		TotalPotentialSavings: 6.00,
		CandidateStores:       []models.StoreCandidate{{Name: "Aldi"}, {Name: "Safeway"}},
		FailedStores:          1,
	}
}

type fixture struct {
	store   *sqlite.SQLiteStore
	engine  *stubEngine
	manager *Manager
	items   []models.ShoppingItem
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	items := []models.ShoppingItem{
		{ID: "milk", ListID: "list-1", Name: "Milk", Quantity: 1, Price: ptr(8.49), Store: "Safeway"},
		{ID: "eggs", ListID: "list-1", Name: "Eggs", Quantity: 12, QuantityUnit: "each"},
	}
	for i := range items {
		require.NoError(t, store.CreateItem(context.Background(), &items[i]))
	}

	engine := &stubEngine{result: planResult()}
	manager := NewManager(engine, optimizer.NewApplier(store, nil), store, store, nil)
	return &fixture{store: store, engine: engine, manager: manager, items: items}
}

func TestManager_HappyPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	v, err := f.manager.Create(ctx, "alice", "", f.items)
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingLocation, v.State)
	assert.Equal(t, 2, v.ItemCount)

	v, err = f.manager.SetLocation(ctx, v.ID, loc)
	require.NoError(t, err)
	assert.Equal(t, StateCollectingConstraints, v.State)

	constraints := map[string]models.ItemConstraint{"eggs": {BrandLocked: true, LockedBrand: "Vital Farms"}}
	v, err = f.manager.Optimize(ctx, v.ID, constraints)
	require.NoError(t, err)
	assert.Equal(t, StateResultsReady, v.State)
	require.NotNil(t, v.Result)
	assert.Equal(t, optimizer.OutcomePlan, v.Result.Outcome)

	require.Len(t, f.engine.reqs, 1)
	assert.Equal(t, loc, *f.engine.reqs[0].Location)
	assert.Equal(t, constraints, f.engine.reqs[0].Constraints)

	v, err = f.manager.Accept(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, StateApplied, v.State)
	require.NotNil(t, v.ApplyResult)
	assert.Equal(t, []string{"milk"}, v.ApplyResult.Applied)

	milk, err := f.store.GetItem(ctx, "milk")
	require.NoError(t, err)
	assert.Equal(t, "Aldi", milk.Store)
	assert.InDelta(t, 2.49, *milk.Price, 0.001)

	run, err := f.store.GetRun(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, string(StateApplied), run.State)
	assert.Equal(t, "plan", run.Outcome)
	assert.Equal(t, 2, run.CandidateStores)
	assert.Equal(t, 1, run.FailedStores)
	assert.Equal(t, 1, run.AppliedItems)
	assert.Equal(t, "alice", run.UserID)
}

func TestManager_CreateFromList(t *testing.T) {
	f := newFixture(t)

	v, err := f.manager.Create(context.Background(), "", "list-1", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, v.ItemCount)
	assert.Equal(t, "list-1", v.ListID)

	_, err = f.manager.Create(context.Background(), "", "empty-list", nil)
	assert.ErrorIs(t, err, optimizer.ErrInvalidInput)
}

func TestManager_InvalidTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	v, err := f.manager.Create(ctx, "", "", f.items)
	require.NoError(t, err)

	_, err = f.manager.Optimize(ctx, v.ID, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition, "optimize before location")

	_, err = f.manager.Accept(ctx, v.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition, "accept before results")

	_, err = f.manager.SetLocation(ctx, v.ID, models.Location{Latitude: 91})
	assert.ErrorIs(t, err, optimizer.ErrInvalidInput)

	_, err = f.manager.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestManager_AcceptNoViablePlan(t *testing.T) {
	f := newFixture(t)
	f.engine.result = &optimizer.Result{Outcome: optimizer.OutcomeNoViablePlan, TotalPotentialSavings: 0.50}
	ctx := context.Background()

	v, err := f.manager.Start(ctx, "", "", f.items, &loc, nil)
	require.NoError(t, err)
	assert.Equal(t, StateResultsReady, v.State)
	assert.Nil(t, v.Result.Plan)

	_, err = f.manager.Accept(ctx, v.ID)
	assert.ErrorIs(t, err, ErrNoPlan)

	v, err = f.manager.Reject(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, StateClosed, v.State)

	run, err := f.store.GetRun(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, "no_viable_plan", run.Outcome)
	assert.Equal(t, string(StateClosed), run.State)
}

func TestManager_FailedRestart(t *testing.T) {
	f := newFixture(t)
	f.engine.err = errors.New("boom")
	ctx := context.Background()

	v, err := f.manager.Start(ctx, "", "", f.items, &loc, nil)
	require.Error(t, err)
	require.NotNil(t, v)
	assert.Equal(t, StateFailed, v.State)
	assert.Equal(t, "boom", v.Error)

	f.engine.mu.Lock()
	f.engine.err = nil
	f.engine.mu.Unlock()

	v, err = f.manager.Optimize(ctx, v.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, StateResultsReady, v.State)
	assert.Empty(t, v.Error)
}

func TestManager_AbandonWhileProcessing(t *testing.T) {
	f := newFixture(t)
	f.engine.block = true
	f.engine.started = make(chan struct{})
	ctx := context.Background()

	v, err := f.manager.Create(ctx, "", "", f.items)
	require.NoError(t, err)
	_, err = f.manager.SetLocation(ctx, v.ID, loc)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := f.manager.Optimize(ctx, v.ID, nil)
		done <- err
	}()

	<-f.engine.started
	got, err := f.manager.Get(v.ID)
	require.NoError(t, err)
	assert.Equal(t, StateProcessing, got.State)

	closed, err := f.manager.Reject(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, StateClosed, closed.State)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrAbandoned)
	case <-time.After(2 * time.Second):
		t.Fatal("optimize did not return after the session was closed")
	}

	got, err = f.manager.Get(v.ID)
	require.NoError(t, err)
	assert.Equal(t, StateClosed, got.State)
	assert.Nil(t, got.Result)

	_, err = f.manager.Accept(ctx, v.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestManager_Cleanup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.manager.now = func() time.Time { return now }

	old, err := f.manager.Create(ctx, "", "", f.items)
	require.NoError(t, err)

	now = now.Add(20 * time.Minute)
	fresh, err := f.manager.Create(ctx, "", "", f.items)
	require.NoError(t, err)

	now = now.Add(15 * time.Minute)
	removed := f.manager.Cleanup(ctx, 30*time.Minute)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, f.manager.Len())

	_, err = f.manager.Get(old.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.manager.Get(fresh.ID)
	assert.NoError(t, err)

	run, err := f.store.GetRun(ctx, old.ID)
	require.NoError(t, err)
	assert.Equal(t, string(StateClosed), run.State)
}

// gatedApplier blocks inside Apply until release is closed.
type gatedApplier struct {
	entered chan struct{}
	release chan struct{}
}

func (a *gatedApplier) Apply(ctx context.Context, plan *models.OptimizationPlan) (*optimizer.ApplyResult, error) {
	close(a.entered)
	<-a.release
	return &optimizer.ApplyResult{Applied: []string{"milk"}}, nil
}

func TestManager_CleanupDuringApply(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	applier := &gatedApplier{entered: make(chan struct{}), release: make(chan struct{})}
	f.manager.applier = applier

	v, err := f.manager.Start(ctx, "", "", f.items, &loc, nil)
	require.NoError(t, err)
	require.Equal(t, StateResultsReady, v.State)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := f.manager.Accept(ctx, v.ID)
		assert.NoError(t, err)
	}()
	<-applier.entered

	go func() {
		defer wg.Done()
		f.manager.Cleanup(ctx, -time.Hour)
	}()
	time.Sleep(50 * time.Millisecond)

	created := make(chan error, 1)
	go func() {
		_, err := f.manager.Create(ctx, "", "", f.items)
		created <- err
	}()
	blocked := false
	select {
	case err := <-created:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		blocked = true
		t.Error("Create blocked while a plan was being applied")
	}

	close(applier.release)
	wg.Wait()
	if blocked {
		<-created
	}

	_, err = f.manager.Get(v.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
