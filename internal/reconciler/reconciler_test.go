package reconciler_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	apperrors "discord-statuskeeper/internal/errors"
	"discord-statuskeeper/internal/reconciler"
	"discord-statuskeeper/internal/status"
	"discord-statuskeeper/internal/store"
)

// fakePresence simulates the remote platform: a successful apply becomes
// the observed presence, like a gateway accepting an update.
type fakePresence struct {
	mu       sync.Mutex
	applied  []status.DesiredStatus
	aboutMe  []string
	observed *status.DesiredStatus
	applyErr error
}

func (f *fakePresence) ApplyStatus(st status.DesiredStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.applyErr != nil {
		return f.applyErr
	}
	f.applied = append(f.applied, st)
	cp := st
	f.observed = &cp
	return nil
}

func (f *fakePresence) ObservedStatus() (status.DesiredStatus, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.observed == nil {
		return status.DesiredStatus{}, false
	}
	return *f.observed, true
}

func (f *fakePresence) ApplyAboutMe(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.applyErr != nil {
		return f.applyErr
	}
	f.aboutMe = append(f.aboutMe, text)
	return nil
}

func (f *fakePresence) applyCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.applied)
}

func (f *fakePresence) lastApplied() (status.DesiredStatus, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.applied) == 0 {
		return status.DesiredStatus{}, false
	}
	return f.applied[len(f.applied)-1], true
}

func (f *fakePresence) setObserved(st status.DesiredStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := st
	f.observed = &cp
}

func (f *fakePresence) setApplyErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applyErr = err
}

// waitFor polls check at short intervals until it returns true or the
// deadline elapses. This avoids fixed time.Sleep calls that cause flaky
// tests.
func waitFor(t *testing.T, deadline time.Duration, check func() bool) {
	t.Helper()
	end := time.Now().Add(deadline)
	for time.Now().Before(end) {
		if check() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}

func newTestReconciler(t *testing.T, interval time.Duration) (*reconciler.Reconciler, *fakePresence, *store.Store) {
	t.Helper()
	st := store.New(filepath.Join(t.TempDir(), "data", "status.json"))
	presence := &fakePresence{}
	rec := reconciler.New(reconciler.Config{
		Store:    st,
		Presence: presence,
		Interval: interval,
	})
	return rec, presence, st
}

func TestInitializeSeedsDefault(t *testing.T) {
	rec, presence, st := newTestReconciler(t, time.Minute)

	rec.Initialize()

	got, ok := rec.Desired()
	if !ok || got != status.Default() {
		t.Fatalf("expected seeded default, got %+v (ok=%v)", got, ok)
	}
	if last, ok := presence.lastApplied(); !ok || last != status.Default() {
		t.Fatalf("expected default applied to remote, got %+v (ok=%v)", last, ok)
	}
	// The seed must be persisted, not just held in memory.
	if persisted, ok := store.New(st.Path()).Load(); !ok || persisted != status.Default() {
		t.Fatalf("expected seeded default persisted, got %+v (ok=%v)", persisted, ok)
	}
}

func TestInitializeUsesPersistedStatus(t *testing.T) {
	rec, presence, st := newTestReconciler(t, time.Minute)
	saved := status.DesiredStatus{ActivityType: status.ActivityListening, Text: "lofi"}
	if err := st.Save(saved); err != nil {
		t.Fatalf("save: %v", err)
	}

	rec.Initialize()

	if got, ok := rec.Desired(); !ok || got != saved {
		t.Fatalf("expected persisted status, got %+v (ok=%v)", got, ok)
	}
	if last, ok := presence.lastApplied(); !ok || last != saved {
		t.Fatalf("expected persisted status applied, got %+v (ok=%v)", last, ok)
	}
}

func TestSetDesiredRoundTrip(t *testing.T) {
	rec, presence, _ := newTestReconciler(t, time.Minute)
	rec.Initialize()

	want := status.DesiredStatus{
		ActivityType: status.ActivityStreaming,
		Text:         "Big Game",
		URL:          "https://twitch.tv/x",
	}
	if err := rec.SetDesired(want); err != nil {
		t.Fatalf("set desired: %v", err)
	}

	if got, ok := rec.Desired(); !ok || got != want {
		t.Fatalf("round trip mismatch: got %+v (ok=%v)", got, ok)
	}
	if last, ok := presence.lastApplied(); !ok || last != want {
		t.Fatalf("expected apply with exact triple, got %+v (ok=%v)", last, ok)
	}
}

func TestSetDesiredValidation(t *testing.T) {
	rec, presence, _ := newTestReconciler(t, time.Minute)
	rec.Initialize()
	before := presence.applyCount()

	err := rec.SetDesired(status.DesiredStatus{ActivityType: status.ActivityStreaming, Text: "Big Game"})
	if !apperrors.IsType(err, apperrors.ErrTypeValidation) {
		t.Fatalf("expected VALIDATION error, got %v", err)
	}
	if presence.applyCount() != before {
		t.Fatal("rejected status must not be applied")
	}
	if got, _ := rec.Desired(); got.ActivityType == status.ActivityStreaming {
		t.Fatal("rejected status must not replace the desired state")
	}

	// Same request with the url supplied is accepted.
	err = rec.SetDesired(status.DesiredStatus{ActivityType: status.ActivityStreaming, Text: "Big Game", URL: "https://twitch.tv/x"})
	if err != nil {
		t.Fatalf("expected acceptance with url, got %v", err)
	}
}

func TestSetDesiredBeforeReadyIsDeferred(t *testing.T) {
	rec, presence, st := newTestReconciler(t, time.Minute)

	want := status.DesiredStatus{ActivityType: status.ActivityWatching, Text: "the queue"}
	if err := rec.SetDesired(want); err != nil {
		t.Fatalf("set desired: %v", err)
	}

	if presence.applyCount() != 0 {
		t.Fatal("apply must be deferred until the client is ready")
	}
	// Persisted even before ready.
	if persisted, ok := store.New(st.Path()).Load(); !ok || persisted != want {
		t.Fatalf("expected deferred status persisted, got %+v (ok=%v)", persisted, ok)
	}

	rec.Initialize()
	if last, ok := presence.lastApplied(); !ok || last != want {
		t.Fatalf("expected deferred status applied on initialize, got %+v (ok=%v)", last, ok)
	}
}

func TestTickReappliesOnDriftExactlyOnce(t *testing.T) {
	rec, presence, _ := newTestReconciler(t, 20*time.Millisecond)
	rec.Initialize()

	want := status.DesiredStatus{ActivityType: status.ActivityPlaying, Text: "New"}
	if err := rec.SetDesired(want); err != nil {
		t.Fatalf("set desired: %v", err)
	}

	// Something out-of-band overwrote the presence.
	presence.setObserved(status.DesiredStatus{ActivityType: status.ActivityPlaying, Text: "Old"})
	before := presence.applyCount()

	ctx := context.Background()
	rec.Start(ctx)
	defer rec.Stop()

	waitFor(t, 3*time.Second, func() bool {
		observed, ok := presence.ObservedStatus()
		return ok && observed.Matches(want)
	})

	if last, _ := presence.lastApplied(); last != want {
		t.Fatalf("drift correction applied %+v, want %+v", last, want)
	}
	converged := presence.applyCount()
	if converged != before+1 {
		t.Fatalf("expected exactly one re-apply for the drift, got %d", converged-before)
	}

	// Once converged, further ticks must not apply again.
	time.Sleep(100 * time.Millisecond)
	if presence.applyCount() != converged {
		t.Fatalf("expected zero applies after convergence, got %d more", presence.applyCount()-converged)
	}
}

func TestRemoteFailureIsSoftAndRetriedByTick(t *testing.T) {
	rec, presence, _ := newTestReconciler(t, 20*time.Millisecond)
	rec.Initialize()

	want := status.DesiredStatus{ActivityType: status.ActivityCompeting, Text: "the finals"}
	presence.setApplyErr(errors.New("rate limited"))

	err := rec.SetDesired(want)
	if !apperrors.IsType(err, apperrors.ErrTypeRemote) {
		t.Fatalf("expected REMOTE error, got %v", err)
	}
	// The desired state survives the failed apply.
	if got, ok := rec.Desired(); !ok || got != want {
		t.Fatalf("desired state discarded after soft failure: %+v (ok=%v)", got, ok)
	}

	// Once the remote recovers, the next tick re-applies without any
	// caller involvement.
	presence.setApplyErr(nil)
	rec.Start(context.Background())
	defer rec.Stop()

	waitFor(t, 3*time.Second, func() bool {
		last, ok := presence.lastApplied()
		return ok && last == want
	})
}

func TestClear(t *testing.T) {
	rec, presence, _ := newTestReconciler(t, time.Minute)
	rec.Initialize()

	if err := rec.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if got, ok := rec.Desired(); !ok || got != status.Cleared() {
		t.Fatalf("expected cleared desired state, got %+v (ok=%v)", got, ok)
	}
	if last, ok := presence.lastApplied(); !ok || last != status.Cleared() {
		t.Fatalf("expected cleared status applied, got %+v (ok=%v)", last, ok)
	}
}

func TestAboutMeAppliedThroughSeparateCall(t *testing.T) {
	rec, presence, _ := newTestReconciler(t, time.Minute)
	rec.Initialize()

	want := status.DesiredStatus{
		ActivityType: status.ActivityPlaying,
		Text:         "Discord",
		AboutMeText:  "professional status haver",
	}
	if err := rec.SetDesired(want); err != nil {
		t.Fatalf("set desired: %v", err)
	}

	presence.mu.Lock()
	defer presence.mu.Unlock()
	if len(presence.aboutMe) == 0 || presence.aboutMe[len(presence.aboutMe)-1] != want.AboutMeText {
		t.Fatalf("expected about-me text applied, got %v", presence.aboutMe)
	}
}

func TestPersistenceFailureKeepsMemoryAuthoritative(t *testing.T) {
	// Point the store at a path whose parent is a file, so MkdirAll fails.
	dir := t.TempDir()
	blocker := filepath.Join(dir, "data")
	if err := writeFile(blocker); err != nil {
		t.Fatalf("setup: %v", err)
	}
	st := store.New(filepath.Join(blocker, "status.json"))
	presence := &fakePresence{}
	rec := reconciler.New(reconciler.Config{Store: st, Presence: presence, Interval: time.Minute})
	rec.Initialize()

	want := status.DesiredStatus{ActivityType: status.ActivityWatching, Text: "disk errors"}
	if err := rec.SetDesired(want); err != nil {
		t.Fatalf("persistence failure must be swallowed, got %v", err)
	}
	if got, ok := rec.Desired(); !ok || got != want {
		t.Fatalf("expected in-memory state to stay authoritative, got %+v (ok=%v)", got, ok)
	}
	if last, ok := presence.lastApplied(); !ok || last != want {
		t.Fatalf("expected apply despite persistence failure, got %+v (ok=%v)", last, ok)
	}
}

func writeFile(path string) error {
	return os.WriteFile(path, []byte("in the way"), 0644)
}
