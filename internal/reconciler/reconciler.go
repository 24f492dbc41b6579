// Package reconciler keeps the bot's remote presence converged on the
// operator's desired status. The desired state is a continuously-enforced
// assertion, not a one-shot command: the gateway session can reset, or
// other automation can overwrite the presence out-of-band, so a fixed
// interval tick re-applies the stored value whenever it drifts.
package reconciler

import (
	"context"
	"log"
	"sync"
	"time"

	apperrors "discord-statuskeeper/internal/errors"
	"discord-statuskeeper/internal/interfaces"
	"discord-statuskeeper/internal/status"
	"discord-statuskeeper/internal/store"
)

// Config holds the dependencies for the reconciler.
type Config struct {
	Store    *store.Store
	Presence interfaces.Presence // may be attached later via SetPresence
	Interval time.Duration       // tick interval; defaults to 1 minute if zero
}

// Reconciler is the sole owner of the in-memory desired status and the
// sole writer of its on-disk copy. It starts Uninitialized: SetDesired
// calls are accepted and persisted, but remote application is deferred
// until Initialize runs after the platform client reports ready.
type Reconciler struct {
	store    *store.Store
	interval time.Duration

	mu       sync.Mutex
	presence interfaces.Presence
	desired  *status.DesiredStatus
	active   bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfg Config) *Reconciler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	return &Reconciler{
		store:    cfg.Store,
		presence: cfg.Presence,
		interval: interval,
	}
}

// SetPresence attaches the platform client. The bot and the reconciler
// reference each other, so the presence handle is wired after both are
// constructed.
func (r *Reconciler) SetPresence(p interfaces.Presence) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.presence = p
}

// Initialize loads the persisted status (seeding and persisting the
// built-in default when nothing is stored), applies it remotely, and
// makes the reconciler Active. Called once, after the platform client
// reports ready.
func (r *Reconciler) Initialize() {
	r.mu.Lock()
	seeded := false
	if r.desired == nil {
		st, ok := r.store.Load()
		if !ok {
			st = status.Default()
			seeded = true
		}
		r.desired = &st
	}
	r.active = true
	r.mu.Unlock()

	if seeded {
		if err := r.store.Save(status.Default()); err != nil {
			log.Printf("⚠️ Failed to persist seeded default status: %v", err)
		}
		log.Printf("🌱 No persisted status found, seeded default %s", status.Default())
	}

	if err := r.applyDesired(); err != nil {
		log.Printf("⚠️ Initial status apply failed, will retry on next tick: %v", err)
	}
}

// SetDesired validates, stores, persists, and applies a new desired
// status. The in-memory value is replaced as a single atomic swap so a
// concurrent tick can never observe a half-updated status. A persistence
// failure is logged and swallowed (memory stays authoritative for the
// session); a remote-apply failure is returned as a soft failure and the
// value is retained for the next tick to retry.
func (r *Reconciler) SetDesired(st status.DesiredStatus) error {
	if err := st.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	r.desired = &st
	active := r.active
	r.mu.Unlock()

	if err := r.store.Save(st); err != nil {
		log.Printf("⚠️ Failed to persist status, continuing in memory only: %v", err)
	}

	if !active {
		log.Printf("⏳ Platform client not ready yet, deferring apply of %s", st)
		return nil
	}
	return r.applyDesired()
}

// Desired returns the current in-memory desired status.
func (r *Reconciler) Desired() (status.DesiredStatus, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.desired == nil {
		return status.DesiredStatus{}, false
	}
	return *r.desired, true
}

// Clear sets the desired state to "no visible activity". Cleared is a
// value in its own right, so it persists and reconciles like any other.
func (r *Reconciler) Clear() error {
	return r.SetDesired(status.Cleared())
}

// Start begins the reconciliation loop. It runs in a background goroutine
// and respects the provided context for shutdown.
func (r *Reconciler) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	r.wg.Add(1)
	go r.loop(ctx)
	log.Printf("🔄 Status reconciler started (interval %s)", r.interval)
}

// Stop cancels the reconciliation loop and waits for it to exit.
func (r *Reconciler) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
	log.Println("🔄 Status reconciler stopped")
}

// loop ticks at the configured interval. Ticks run on this single
// goroutine, so they never overlap.
func (r *Reconciler) loop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tick()
		}
	}
}

// tick compares the observed remote presence to the desired status and
// re-applies on drift. When no observation is available the desired
// state is re-asserted anyway; apply is idempotent, so the cost is one
// redundant gateway call per interval.
func (r *Reconciler) tick() {
	r.mu.Lock()
	desired := r.desired
	active := r.active
	presence := r.presence
	r.mu.Unlock()

	if !active || desired == nil || presence == nil {
		return
	}

	observed, ok := presence.ObservedStatus()
	if ok && desired.Matches(observed) {
		return
	}
	if ok {
		log.Printf("👀 Presence drift detected: observed %s, want %s", observed, *desired)
	}

	if err := r.applyDesired(); err != nil {
		log.Printf("⚠️ Reconcile apply failed, will retry on next tick: %v", err)
	}
}

// applyDesired pushes the in-memory desired status to the remote
// presence API, plus the about-me text through its separate call when
// one is set.
func (r *Reconciler) applyDesired() error {
	r.mu.Lock()
	desired := r.desired
	presence := r.presence
	r.mu.Unlock()

	if desired == nil || presence == nil {
		return nil
	}

	if err := presence.ApplyStatus(*desired); err != nil {
		return apperrors.NewRemoteError("apply presence", err)
	}
	if desired.AboutMeText != "" {
		if err := presence.ApplyAboutMe(desired.AboutMeText); err != nil {
			return apperrors.NewRemoteError("apply about-me text", err)
		}
	}
	return nil
}
