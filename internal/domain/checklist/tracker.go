// Package checklist tracks per-job checklist progress on the client side and persists it
// with debounced, cancellable saves.
package checklist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"
)

// DefaultQuietPeriod is how long the tracker waits after the last toggle before saving.
const DefaultQuietPeriod = time.Second

var (
	// ErrReadOnly is returned when toggling a tracker constructed in read-only mode.
	ErrReadOnly = errors.New("checklist is read-only")
	// ErrClosed is returned when using a tracker after Close.
	ErrClosed = errors.New("checklist tracker closed")
	// ErrUnknownItem is returned when toggling an item that is not on the checklist.
	ErrUnknownItem = errors.New("unknown checklist item")
)

// State is the tracker's persistence state.
type State int

const (
	// StateClean means local state equals the last persisted state and no timer is armed.
	StateClean State = iota
	// StateDirty means there are unsaved changes.
	StateDirty
	// StateSaving means a save is in flight and nothing changed since it was issued.
	StateSaving
	// StateDirtyWhileSaving means a save is in flight and has already been superseded.
	StateDirtyWhileSaving
)

func (s State) String() string {
	switch s {
	case StateClean:
		return "clean"
	case StateDirty:
		return "dirty"
	case StateSaving:
		return "saving"
	case StateDirtyWhileSaving:
		return "dirty_while_saving"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Persister stores the full item map for a job and returns the map the server kept.
type Persister interface {
	SaveChecklist(ctx context.Context, jobID string, items map[string]bool) (map[string]bool, error)
}

// Stopper cancels a pending timer. *time.Timer satisfies it.
type Stopper interface {
	Stop() bool
}

// Clock schedules debounce timers.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Stopper
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Stopper { return time.AfterFunc(d, f) }

// TrackerOptions groups dependencies for Tracker.
type TrackerOptions struct {
	JobID     string          // Required
	Persister Persister       // Required
	Initial   map[string]bool // Optional: persisted item status to seed from
	// Optional: defaults to DefaultQuietPeriod.
	QuietPeriod time.Duration
	ReadOnly    bool
	Clock       Clock        // Optional: defaults to wall-clock timers
	Logger      *slog.Logger // Optional
	// OnSaved fires after a save that was not superseded succeeds, with the server's map.
	OnSaved func(items map[string]bool)
	// OnError fires when a save fails. Saves aborted by Close never report.
	OnError func(err error)
}

// Tracker accumulates item toggles for one job and coalesces them into a single save after a
// quiet period. At most one save is in flight. Each issued save carries a generation; a toggle
// during a save bumps the generation so the older result cannot clear newer local edits.
type Tracker struct {
	jobID     string
	persister Persister
	quiet     time.Duration
	readOnly  bool
	clock     Clock
	logger    *slog.Logger
	onSaved   func(map[string]bool)
	onError   func(error)

	mu       sync.Mutex
	items    map[string]bool
	baseline map[string]bool
	state    State
	closed   bool
	lastErr  error

	gen      uint64 // bumped on every issued save and on every toggle during a save
	timer    Stopper
	timerSeq uint64
	// saveOnSettle is set by SaveNow while a superseded save is still in flight.
	saveOnSettle bool
	cancel       context.CancelFunc
}

// NewTracker constructs a Tracker.
func NewTracker(opts TrackerOptions) (*Tracker, error) {
	if opts.JobID == "" {
		return nil, errors.New("JobID is required")
	}
	if opts.Persister == nil {
		return nil, errors.New("Persister is required")
	}
	quiet := opts.QuietPeriod
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	clock := opts.Clock
	if clock == nil {
		clock = realClock{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	items := make(map[string]bool, len(opts.Initial))
	maps.Copy(items, opts.Initial)

	return &Tracker{
		jobID:     opts.JobID,
		persister: opts.Persister,
		quiet:     quiet,
		readOnly:  opts.ReadOnly,
		clock:     clock,
		logger:    logger.With("component", "checklist_tracker", "job_id", opts.JobID),
		onSaved:   opts.OnSaved,
		onError:   opts.OnError,
		items:     items,
		baseline:  maps.Clone(items),
		state:     StateClean,
	}, nil
}

// Toggle flips item's completion.
func (t *Tracker) Toggle(item string) error {
	return t.update(item, func(cur bool) bool { return !cur })
}

// Set marks item as done or not done. Setting an item to its current value is a no-op.
func (t *Tracker) Set(item string, done bool) error {
	return t.update(item, func(bool) bool { return done })
}

func (t *Tracker) update(item string, next func(bool) bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.readOnly {
		return ErrReadOnly
	}
	if t.closed {
		return ErrClosed
	}
	cur, ok := t.items[item]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownItem, item)
	}
	val := next(cur)
	if val == cur {
		return nil
	}
	t.items[item] = val

	switch t.state {
	case StateSaving, StateDirtyWhileSaving:
		// The in-flight result is stale now; a fresh cycle starts when it settles.
		t.gen++
		t.state = StateDirtyWhileSaving
	default:
		t.state = StateDirty
		t.armLocked()
	}
	return nil
}

// SaveNow saves pending changes immediately, bypassing the quiet period, and returns the save
// error. It is a no-op when nothing is dirty. While a superseded save is in flight the next
// save is issued as soon as that one settles and SaveNow returns nil.
func (t *Tracker) SaveNow(ctx context.Context) error {
	t.mu.Lock()
	if t.readOnly || t.closed {
		t.mu.Unlock()
		return nil
	}
	switch t.state {
	case StateClean, StateSaving:
		t.mu.Unlock()
		return nil
	case StateDirtyWhileSaving:
		t.saveOnSettle = true
		t.mu.Unlock()
		return nil
	case StateDirty:
	}
	call := t.beginSaveLocked(ctx)
	t.mu.Unlock()

	return call.run(t)
}

// Close cancels any armed timer and silences any in-flight save. It is safe to call twice.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	t.stopTimerLocked()
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.logger.Debug("checklist tracker closed", "state", t.state.String())
}

// State returns the current persistence state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Dirty reports whether there are changes not yet confirmed by the server.
func (t *Tracker) Dirty() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == StateDirty || t.state == StateDirtyWhileSaving
}

// CanSave reports whether a manual save control should be enabled.
func (t *Tracker) CanSave() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.readOnly && !t.closed && t.state == StateDirty
}

// ReadOnly reports whether the tracker rejects toggles.
func (t *Tracker) ReadOnly() bool { return t.readOnly }

// Items returns a copy of the local item map.
func (t *Tracker) Items() map[string]bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return maps.Clone(t.items)
}

// Baseline returns a copy of the last server-confirmed item map.
func (t *Tracker) Baseline() map[string]bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return maps.Clone(t.baseline)
}

// LastError returns the most recent save failure, cleared by the next successful save.
func (t *Tracker) LastError() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastErr
}

// Progress returns how many items are done out of the total.
func (t *Tracker) Progress() (done, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, v := range t.items {
		if v {
			done++
		}
	}
	return done, len(t.items)
}

func (t *Tracker) armLocked() {
	t.stopTimerLocked()
	t.timerSeq++
	seq := t.timerSeq
	t.timer = t.clock.AfterFunc(t.quiet, func() { t.fire(seq) })
}

func (t *Tracker) stopTimerLocked() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

func (t *Tracker) fire(seq uint64) {
	t.mu.Lock()
	// A timer that was re-armed or stopped may still fire; only the latest one counts.
	if t.closed || seq != t.timerSeq || t.state != StateDirty {
		t.mu.Unlock()
		return
	}
	t.timer = nil
	call := t.beginSaveLocked(context.Background())
	t.mu.Unlock()

	_ = call.run(t)
}

type saveCall struct {
	ctx   context.Context
	gen   uint64
	items map[string]bool
}

func (t *Tracker) beginSaveLocked(parent context.Context) saveCall {
	t.stopTimerLocked()
	t.gen++
	ctx, cancel := context.WithCancel(parent)
	t.cancel = cancel
	t.state = StateSaving
	t.logger.Debug("saving checklist", "generation", t.gen, "items", len(t.items))
	return saveCall{ctx: ctx, gen: t.gen, items: maps.Clone(t.items)}
}

func (c saveCall) run(t *Tracker) error {
	saved, err := t.persister.SaveChecklist(c.ctx, t.jobID, c.items)
	return t.settle(c, saved, err)
}

// settle applies a save result. Results for a closed tracker are dropped silently.
func (t *Tracker) settle(c saveCall, saved map[string]bool, err error) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	superseded := c.gen != t.gen

	if err != nil {
		t.lastErr = err
		t.state = StateDirty
		t.resumeLocked(superseded)
		onError := t.onError
		t.mu.Unlock()

		t.logger.Warn("checklist save failed", "generation", c.gen, "error", err)
		if onError != nil {
			onError(err)
		}
		return err
	}

	if saved == nil {
		saved = c.items
	}
	t.baseline = maps.Clone(saved)
	t.lastErr = nil

	if superseded {
		// Newer local edits stay; only the baseline advances.
		t.state = StateDirty
		t.resumeLocked(true)
		t.mu.Unlock()
		t.logger.Debug("superseded checklist save settled", "generation", c.gen)
		return nil
	}

	t.items = maps.Clone(saved)
	t.state = StateClean
	onSaved := t.onSaved
	t.mu.Unlock()

	if onSaved != nil {
		onSaved(maps.Clone(saved))
	}
	return nil
}

// resumeLocked restarts the cycle after a save settles with newer edits pending. A failed save
// that nothing superseded waits for the next toggle or a manual save.
func (t *Tracker) resumeLocked(superseded bool) {
	if !superseded {
		t.saveOnSettle = false
		return
	}
	if t.saveOnSettle {
		t.saveOnSettle = false
		call := t.beginSaveLocked(context.Background())
		go func() { _ = call.run(t) }()
		return
	}
	t.armLocked()
}
