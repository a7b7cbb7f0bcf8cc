// Package autosave synchronizes an edited character with its Store. Edits
// are recorded as dirty fields and coalesced behind a debounce timer; at
// most one transmission per character is in flight at any time.
package autosave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/mesh-intelligence/charsheet/pkg/types"
)

// ErrClosed is returned by Flush once the engine is closed.
var ErrClosed = errors.New("autosave engine is closed")

// Config tunes the engine. Zero fields fall back to DefaultConfig values.
type Config struct {
	Debounce       time.Duration `env:"CHARSHEET_SYNC_DEBOUNCE" mapstructure:"debounce" yaml:"debounce"`
	StatusDelay    time.Duration `env:"CHARSHEET_SYNC_STATUS_DELAY" mapstructure:"status_delay" yaml:"status_delay"`
	DeltaThreshold int           `env:"CHARSHEET_SYNC_DELTA_THRESHOLD" mapstructure:"delta_threshold" yaml:"delta_threshold"`
}

// DefaultConfig returns the stock debounce window, status delay and delta
// threshold.
func DefaultConfig() Config {
	return Config{
		Debounce:       500 * time.Millisecond,
		StatusDelay:    2 * time.Second,
		DeltaThreshold: DefaultDeltaThreshold,
	}
}

// ConfigFromEnv overlays CHARSHEET_SYNC_* environment variables on cfg.
// Unset variables keep the values already in cfg.
func ConfigFromEnv(cfg Config) (Config, error) {
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg.withDefaults(), nil
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Debounce <= 0 {
		c.Debounce = def.Debounce
	}
	if c.StatusDelay <= 0 {
		c.StatusDelay = def.StatusDelay
	}
	if c.DeltaThreshold <= 0 {
		c.DeltaThreshold = def.DeltaThreshold
	}
	return c
}

// Source is the editing session the engine reads from. Snapshot must return
// a deep copy reflecting every change already passed to RecordChange.
// Implementations must not call into the Engine while holding the lock that
// guards the record.
type Source interface {
	Snapshot() *types.Character
	SetID(id string)
}

// transmission is one create or update call and the dirty generation it
// covers.
type transmission struct {
	create  bool
	id      string
	gen     uint64
	payload types.Payload
	done    chan struct{}
}

// Engine is the per-character synchronization state machine.
type Engine struct {
	store  types.Store
	source Source
	access types.Access
	cfg    Config
	logger *slog.Logger

	mu          sync.Mutex
	changes     *ChangeTracker
	id          string
	timer       *time.Timer
	timerSeq    uint64
	inFlight    *transmission
	status      Status
	statusTimer *time.Timer
	lastErr     error
	listeners   []func(Status)
	notes       []Status
	closed      bool
}

// New returns an engine bound to one character. The character's current
// ID, if any, decides whether the first transmission is a create or an
// update. A nil logger uses slog.Default.
func New(store types.Store, source Source, access types.Access, cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		store:   store,
		source:  source,
		access:  access,
		cfg:     cfg.withDefaults(),
		changes: NewChangeTracker(),
		status:  StatusIdle,
	}
	e.id = source.Snapshot().ID
	e.logger = logger.With("component", "autosave")
	return e
}

// ID returns the store identity, or "" before the first successful create.
func (e *Engine) ID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.id
}

// Status returns the current save indicator.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// LastError returns the error of the most recent failed transmission. It is
// reset by the next success.
func (e *Engine) LastError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Dirty returns the fields awaiting a confirmed synchronization.
func (e *Engine) Dirty() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.changes.DirtyFields()
}

// OnStatus registers fn to be called on every status change. Listeners run
// outside the engine lock and may call back into the engine.
func (e *Engine) OnStatus(fn func(Status)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, fn)
}

// RecordChange marks fields dirty. It does not transmit.
func (e *Engine) RecordChange(fields ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.changes.MarkDirty(fields...)
}

// ScheduleSync (re)starts the debounce timer. A call while a timer is
// pending replaces it, so a burst of edits yields one transmission carrying
// the latest snapshot.
func (e *Engine) ScheduleSync() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.scheduleLocked()
}

// Flush cancels any pending timer and synchronizes now, waiting for an
// in-flight transmission to finish first. It returns the transmission error,
// or nil when there was nothing to send.
func (e *Engine) Flush(ctx context.Context) error {
	for {
		e.mu.Lock()
		if e.closed {
			e.mu.Unlock()
			return ErrClosed
		}
		e.cancelTimerLocked()
		if busy := e.inFlight; busy != nil {
			e.mu.Unlock()
			select {
			case <-busy.done:
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		tx := e.beginLocked()
		e.unlock()
		if tx == nil {
			return nil
		}
		return e.transmit(ctx, tx)
	}
}

// Close flushes outstanding changes and stops all timers. Changes recorded
// while the final flush is running are flushed too; Close marks the engine
// closed only once nothing is dirty or a transmission has failed. Further
// ScheduleSync calls are ignored.
func (e *Engine) Close(ctx context.Context) error {
	for {
		err := e.Flush(ctx)
		if errors.Is(err, ErrClosed) {
			return nil
		}
		e.mu.Lock()
		if err == nil && (e.inFlight != nil || e.changes.HasChanges()) {
			e.mu.Unlock()
			continue
		}
		e.closed = true
		e.cancelTimerLocked()
		if e.statusTimer != nil {
			e.statusTimer.Stop()
			e.statusTimer = nil
		}
		e.mu.Unlock()
		return err
	}
}

func (e *Engine) scheduleLocked() {
	e.cancelTimerLocked()
	seq := e.timerSeq
	e.timer = time.AfterFunc(e.cfg.Debounce, func() { e.fire(seq) })
}

// cancelTimerLocked stops the pending timer. Bumping timerSeq also
// neutralizes a callback that already fired and is waiting on the lock.
func (e *Engine) cancelTimerLocked() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.timerSeq++
}

func (e *Engine) fire(seq uint64) {
	e.mu.Lock()
	if e.closed || seq != e.timerSeq {
		e.mu.Unlock()
		return
	}
	e.timer = nil
	if e.inFlight != nil {
		// Deferred, not dropped: try again once the window passes.
		e.logger.Debug("transmission in flight, rescheduling", "id", e.id)
		e.scheduleLocked()
		e.mu.Unlock()
		return
	}
	tx := e.beginLocked()
	e.unlock()
	if tx != nil {
		_ = e.transmit(context.Background(), tx)
	}
}

// beginLocked prepares the next transmission and marks it in flight. It
// returns nil when nothing is dirty.
func (e *Engine) beginLocked() *transmission {
	if !e.changes.HasChanges() {
		return nil
	}
	snap := e.source.Snapshot()
	snap.ID = e.id
	tx := &transmission{
		create:  e.id == "",
		id:      e.id,
		gen:     e.changes.Generation(),
		payload: BuildPayload(snap, e.changes.DirtyFields(), e.cfg.DeltaThreshold),
		done:    make(chan struct{}),
	}
	e.inFlight = tx
	e.setStatusLocked(StatusSaving)
	return tx
}

func (e *Engine) transmit(ctx context.Context, tx *transmission) error {
	var (
		id  = tx.id
		err error
	)
	if tx.create {
		id, err = e.store.Create(ctx, e.access, tx.payload)
	} else {
		err = e.store.Update(ctx, e.access, tx.id, tx.payload)
	}

	e.mu.Lock()
	e.inFlight = nil
	close(tx.done)
	if err != nil {
		e.lastErr = err
		e.setStatusLocked(StatusError)
		if types.IsValidation(err) {
			e.logger.Warn("payload rejected", "id", tx.id, "kind", tx.payload.Kind, "error", err)
		} else {
			e.logger.Error("transmission failed", "id", tx.id, "kind", tx.payload.Kind, "error", err)
		}
		e.unlock()
		return err
	}
	if tx.create {
		e.id = id
		e.source.SetID(id)
	}
	e.changes.ClearThrough(tx.gen)
	e.lastErr = nil
	e.setStatusLocked(StatusSaved)
	e.logger.Debug("synchronized", "id", id, "kind", tx.payload.Kind, "fields", len(tx.payload.Fields))
	e.unlock()
	return nil
}

func (e *Engine) setStatusLocked(s Status) {
	if e.statusTimer != nil {
		e.statusTimer.Stop()
		e.statusTimer = nil
	}
	if e.status != s {
		e.status = s
		e.notes = append(e.notes, s)
	}
	if s != StatusSaved && s != StatusError {
		return
	}
	var t *time.Timer
	t = time.AfterFunc(e.cfg.StatusDelay, func() {
		e.mu.Lock()
		if e.statusTimer != t || e.status != s {
			e.mu.Unlock()
			return
		}
		e.statusTimer = nil
		e.setStatusLocked(StatusIdle)
		e.unlock()
	})
	e.statusTimer = t
}

// unlock releases e.mu and then delivers queued status notes.
func (e *Engine) unlock() {
	notes := e.notes
	e.notes = nil
	listeners := e.listeners
	e.mu.Unlock()
	for _, s := range notes {
		for _, fn := range listeners {
			fn(s)
		}
	}
}
