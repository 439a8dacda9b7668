package checklist

import (
	"context"
	"errors"
	"maps"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTimer struct {
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
	clock   *fakeClock
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// fakeClock runs timer callbacks synchronously from Advance.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Stopper {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{at: c.now + d, f: f, clock: c}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now + d
	for {
		var next *fakeTimer
		for _, t := range c.timers {
			if t.stopped || t.fired || t.at > target {
				continue
			}
			if next == nil || t.at < next.at {
				next = t
			}
		}
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		c.now = next.at
		next.fired = true
		c.mu.Unlock()
		next.f()
		c.mu.Lock()
	}
}

type saveRecord struct {
	at    time.Duration
	items map[string]bool
}

type persisterFunc func(ctx context.Context, jobID string, items map[string]bool) (map[string]bool, error)

func (f persisterFunc) SaveChecklist(ctx context.Context, jobID string, items map[string]bool) (map[string]bool, error) {
	return f(ctx, jobID, items)
}

// recorder echoes the saved map back, like the API does.
type recorder struct {
	mu    sync.Mutex
	clock *fakeClock
	calls []saveRecord
	err   error
}

func (r *recorder) SaveChecklist(_ context.Context, _ string, items map[string]bool) (map[string]bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, saveRecord{at: r.clock.Now(), items: maps.Clone(items)})
	if r.err != nil {
		return nil, r.err
	}
	return maps.Clone(items), nil
}

func (r *recorder) Calls() []saveRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]saveRecord(nil), r.calls...)
}

func (r *recorder) SetErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

type trackerHarness struct {
	clock   *fakeClock
	rec     *recorder
	tracker *Tracker
	saved   []map[string]bool
	errs    []error
	mu      sync.Mutex
}

func newHarness(t *testing.T, initial map[string]bool, readOnly bool) *trackerHarness {
	t.Helper()
	h := &trackerHarness{clock: &fakeClock{}}
	h.rec = &recorder{clock: h.clock}
	tr, err := NewTracker(TrackerOptions{
		JobID:     "job-1",
		Persister: h.rec,
		Initial:   initial,
		ReadOnly:  readOnly,
		Clock:     h.clock,
		OnSaved: func(items map[string]bool) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.saved = append(h.saved, items)
		},
		OnError: func(err error) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.errs = append(h.errs, err)
		},
	})
	require.NoError(t, err)
	h.tracker = tr
	t.Cleanup(tr.Close)
	return h
}

func (h *trackerHarness) savedCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.saved)
}

func (h *trackerHarness) errCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.errs)
}

func threeItems() map[string]bool {
	return map[string]bool{"Mop floors": false, "Empty bins": false, "Wipe counters": false}
}

func TestNewTracker_RequiresDependencies(t *testing.T) {
	t.Parallel()

	_, err := NewTracker(TrackerOptions{Persister: &recorder{}})
	require.Error(t, err)
	_, err = NewTracker(TrackerOptions{JobID: "j"})
	require.Error(t, err)
}

func TestTracker_CoalescesTogglesIntoOneSave(t *testing.T) {
	t.Parallel()
	h := newHarness(t, threeItems(), false)

	require.NoError(t, h.tracker.Toggle("Mop floors"))
	h.clock.Advance(500 * time.Millisecond)
	require.NoError(t, h.tracker.Toggle("Empty bins"))
	h.clock.Advance(500 * time.Millisecond)
	require.NoError(t, h.tracker.Toggle("Wipe counters"))
	assert.Equal(t, StateDirty, h.tracker.State())

	h.clock.Advance(999 * time.Millisecond)
	assert.Empty(t, h.rec.Calls(), "no save before the quiet period after the last toggle")

	h.clock.Advance(time.Millisecond)
	calls := h.rec.Calls()
	require.Len(t, calls, 1)
	assert.GreaterOrEqual(t, calls[0].at, 2*time.Second)
	assert.Equal(t, map[string]bool{"Mop floors": true, "Empty bins": true, "Wipe counters": true}, calls[0].items)

	assert.Equal(t, StateClean, h.tracker.State())
	assert.Equal(t, 1, h.savedCount())
	assert.Equal(t, calls[0].items, h.tracker.Baseline())

	h.clock.Advance(10 * time.Second)
	assert.Len(t, h.rec.Calls(), 1)
}

func TestTracker_SaveNowBypassesQuietPeriod(t *testing.T) {
	t.Parallel()
	h := newHarness(t, threeItems(), false)

	require.NoError(t, h.tracker.Toggle("Mop floors"))
	assert.True(t, h.tracker.CanSave())
	require.NoError(t, h.tracker.SaveNow(context.Background()))

	calls := h.rec.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, time.Duration(0), calls[0].at)
	assert.Equal(t, StateClean, h.tracker.State())

	h.clock.Advance(5 * time.Second)
	assert.Len(t, h.rec.Calls(), 1, "the armed timer must be cancelled by a manual save")
}

func TestTracker_SaveNowWhenCleanIsNoop(t *testing.T) {
	t.Parallel()
	h := newHarness(t, threeItems(), false)

	assert.False(t, h.tracker.CanSave())
	require.NoError(t, h.tracker.SaveNow(context.Background()))
	assert.Empty(t, h.rec.Calls())
}

func TestTracker_SetToCurrentValueIsNoop(t *testing.T) {
	t.Parallel()
	h := newHarness(t, threeItems(), false)

	require.NoError(t, h.tracker.Set("Mop floors", false))
	assert.Equal(t, StateClean, h.tracker.State())
	h.clock.Advance(2 * time.Second)
	assert.Empty(t, h.rec.Calls())
}

func TestTracker_CloseBeforeTimerIssuesNoSave(t *testing.T) {
	t.Parallel()
	h := newHarness(t, threeItems(), false)

	require.NoError(t, h.tracker.Toggle("Mop floors"))
	h.tracker.Close()
	h.clock.Advance(5 * time.Second)

	assert.Empty(t, h.rec.Calls())
	require.ErrorIs(t, h.tracker.Toggle("Empty bins"), ErrClosed)
	h.tracker.Close()
}

func TestTracker_ReadOnlyRejectsToggles(t *testing.T) {
	t.Parallel()
	h := newHarness(t, threeItems(), true)

	require.ErrorIs(t, h.tracker.Toggle("Mop floors"), ErrReadOnly)
	assert.Equal(t, threeItems(), h.tracker.Items())
	assert.False(t, h.tracker.CanSave())
	assert.True(t, h.tracker.ReadOnly())

	require.NoError(t, h.tracker.SaveNow(context.Background()))
	h.clock.Advance(5 * time.Second)
	assert.Empty(t, h.rec.Calls())
}

func TestTracker_UnknownItem(t *testing.T) {
	t.Parallel()
	h := newHarness(t, threeItems(), false)

	require.ErrorIs(t, h.tracker.Toggle("Polish silver"), ErrUnknownItem)
	assert.Equal(t, StateClean, h.tracker.State())
}

func TestTracker_FailureKeepsLocalStateWithoutRetry(t *testing.T) {
	t.Parallel()
	h := newHarness(t, threeItems(), false)
	saveErr := errors.New("connection reset")
	h.rec.SetErr(saveErr)

	require.NoError(t, h.tracker.Toggle("Mop floors"))
	h.clock.Advance(time.Second)

	require.Len(t, h.rec.Calls(), 1)
	assert.Equal(t, StateDirty, h.tracker.State())
	assert.True(t, h.tracker.Items()["Mop floors"], "local edits are not rolled back")
	assert.False(t, h.tracker.Baseline()["Mop floors"])
	require.ErrorIs(t, h.tracker.LastError(), saveErr)
	assert.Equal(t, 1, h.errCount())
	assert.Equal(t, 0, h.savedCount())

	h.clock.Advance(time.Minute)
	assert.Len(t, h.rec.Calls(), 1, "failures are never retried automatically")

	h.rec.SetErr(nil)
	require.NoError(t, h.tracker.SaveNow(context.Background()))
	assert.Len(t, h.rec.Calls(), 2)
	assert.Equal(t, StateClean, h.tracker.State())
	require.NoError(t, h.tracker.LastError())
}

func TestTracker_SaveNowReturnsError(t *testing.T) {
	t.Parallel()
	h := newHarness(t, threeItems(), false)
	h.rec.SetErr(errors.New("unavailable"))

	require.NoError(t, h.tracker.Toggle("Empty bins"))
	require.Error(t, h.tracker.SaveNow(context.Background()))
	assert.Equal(t, StateDirty, h.tracker.State())
}

// blockingSave blocks the first save until released and echoes every map back.
type blockingSave struct {
	clock   *fakeClock
	started chan map[string]bool
	release chan error

	mu    sync.Mutex
	calls []saveRecord
}

func newBlockingSave(clock *fakeClock) *blockingSave {
	return &blockingSave{clock: clock, started: make(chan map[string]bool, 1), release: make(chan error)}
}

func (b *blockingSave) SaveChecklist(ctx context.Context, _ string, items map[string]bool) (map[string]bool, error) {
	b.mu.Lock()
	b.calls = append(b.calls, saveRecord{at: b.clock.Now(), items: maps.Clone(items)})
	first := len(b.calls) == 1
	b.mu.Unlock()

	if first {
		b.started <- maps.Clone(items)
		select {
		case err := <-b.release:
			if err != nil {
				return nil, err
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return maps.Clone(items), nil
}

func (b *blockingSave) Calls() []saveRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]saveRecord(nil), b.calls...)
}

func TestTracker_ToggleDuringSaveSupersedesInFlightCall(t *testing.T) {
	t.Parallel()
	clock := &fakeClock{}
	store := newBlockingSave(clock)
	var mu sync.Mutex
	var saved []map[string]bool

	tr, err := NewTracker(TrackerOptions{
		JobID:     "job-1",
		Persister: store,
		Initial:   threeItems(),
		Clock:     clock,
		OnSaved: func(items map[string]bool) {
			mu.Lock()
			defer mu.Unlock()
			saved = append(saved, items)
		},
	})
	require.NoError(t, err)
	defer tr.Close()

	require.NoError(t, tr.Toggle("Mop floors"))

	fired := make(chan struct{})
	go func() {
		defer close(fired)
		clock.Advance(time.Second)
	}()
	first := <-store.started
	assert.Equal(t, StateSaving, tr.State())

	require.NoError(t, tr.Toggle("Empty bins"))
	assert.Equal(t, StateDirtyWhileSaving, tr.State())

	store.release <- nil
	<-fired

	assert.Equal(t, StateDirty, tr.State(), "a superseded success must not clear newer edits")
	assert.True(t, tr.Items()["Empty bins"])
	assert.Equal(t, first, tr.Baseline())
	mu.Lock()
	assert.Empty(t, saved, "superseded saves do not fire the completion callback")
	mu.Unlock()

	clock.Advance(time.Second)

	calls := store.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, map[string]bool{"Mop floors": true, "Empty bins": true, "Wipe counters": false}, calls[1].items)
	assert.Equal(t, StateClean, tr.State())
	mu.Lock()
	assert.Len(t, saved, 1)
	mu.Unlock()
}

func TestTracker_CloseSilencesInFlightCall(t *testing.T) {
	t.Parallel()
	clock := &fakeClock{}
	store := newBlockingSave(clock)
	var errCalls, savedCalls int
	var mu sync.Mutex

	tr, err := NewTracker(TrackerOptions{
		JobID:     "job-1",
		Persister: store,
		Initial:   threeItems(),
		Clock:     clock,
		OnSaved: func(map[string]bool) {
			mu.Lock()
			savedCalls++
			mu.Unlock()
		},
		OnError: func(error) {
			mu.Lock()
			errCalls++
			mu.Unlock()
		},
	})
	require.NoError(t, err)

	require.NoError(t, tr.Toggle("Mop floors"))
	done := make(chan struct{})
	go func() {
		defer close(done)
		clock.Advance(time.Second)
	}()
	<-store.started

	tr.Close()
	<-done

	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, errCalls, "aborted saves are silent")
	assert.Zero(t, savedCalls)
	assert.NoError(t, tr.LastError())
}

func TestTracker_Progress(t *testing.T) {
	t.Parallel()
	h := newHarness(t, map[string]bool{"a": true, "b": false}, false)

	done, total := h.tracker.Progress()
	assert.Equal(t, 1, done)
	assert.Equal(t, 2, total)
}

func TestState_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "dirty_while_saving", StateDirtyWhileSaving.String())
	assert.Equal(t, "state(9)", State(9).String())
}
