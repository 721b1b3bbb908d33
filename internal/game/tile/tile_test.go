package tile

import (
	"sync"
	"testing"
	"time"

	"sudooom.memmatch/internal/task"
)

const (
	flipDuration   = 250 * time.Millisecond
	retireDuration = 150 * time.Millisecond
)

type recorder struct {
	mu      sync.Mutex
	flipped []int
	retired []int
}

func (r *recorder) TileFlipped(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flipped = append(r.flipped, h.ID())
}

func (r *recorder) TileRetired(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retired = append(r.retired, h.ID())
}

func placed(t *testing.T, clock *task.ManualScheduler, rec *recorder, symbol int) (*Tile, Handle) {
	t.Helper()

	tl := New(1)
	tl.OnAcquire()
	h := tl.Handle()
	ok := h.Assign(symbol, 0, Binding{
		Timer:          clock,
		FlipDuration:   flipDuration,
		RetireDuration: retireDuration,
		Listener:       rec,
	})
	if !ok {
		t.Fatal("Assign failed")
	}
	return tl, h
}

func faceUp(t *testing.T, clock *task.ManualScheduler, h Handle) {
	t.Helper()
	if !h.RequestFlip() {
		t.Fatal("RequestFlip rejected")
	}
	clock.Advance(flipDuration)
}

// TestRequestFlip FaceDown -> Flipping -> FaceUp with one notification
func TestRequestFlip(t *testing.T) {
	clock := task.NewManualScheduler()
	rec := &recorder{}
	tl, h := placed(t, clock, rec, 3)

	if !h.RequestFlip() {
		t.Fatal("expected flip to be accepted")
	}
	if tl.State() != Flipping {
		t.Errorf("expected Flipping, got %s", tl.State())
	}

	clock.Advance(flipDuration - time.Millisecond)
	if tl.State() != Flipping {
		t.Errorf("expected still Flipping, got %s", tl.State())
	}

	clock.Advance(time.Millisecond)
	if tl.State() != FaceUp {
		t.Errorf("expected FaceUp, got %s", tl.State())
	}
	if len(rec.flipped) != 1 {
		t.Errorf("expected 1 Flipped notification, got %d", len(rec.flipped))
	}
	if tl.HasPending() {
		t.Error("expected no pending step")
	}
}

// TestRequestFlipIgnoredOutsideFaceDown illegal flips have no effect
func TestRequestFlipIgnoredOutsideFaceDown(t *testing.T) {
	clock := task.NewManualScheduler()
	rec := &recorder{}
	tl, h := placed(t, clock, rec, 0)

	h.RequestFlip()
	if h.RequestFlip() {
		t.Error("flip accepted while Flipping")
	}
	clock.Advance(flipDuration)

	if h.RequestFlip() {
		t.Error("flip accepted while FaceUp")
	}
	h.ClaimForComparison()
	if h.RequestFlip() {
		t.Error("flip accepted while InComparison")
	}
	h.ResolveMatch()
	if h.RequestFlip() {
		t.Error("flip accepted while Matched")
	}

	clock.Advance(time.Second)
	if len(rec.flipped) != 1 {
		t.Errorf("expected exactly 1 Flipped notification, got %d", len(rec.flipped))
	}
	if tl.State() != Matched {
		t.Errorf("expected Matched, got %s", tl.State())
	}
}

// TestUnassignedTileCannotFlip
func TestUnassignedTileCannotFlip(t *testing.T) {
	tl := New(1)
	tl.OnAcquire()

	if tl.Handle().RequestFlip() {
		t.Error("unassigned tile accepted a flip")
	}
}

// TestClaimForComparison only FaceUp tiles can be claimed
func TestClaimForComparison(t *testing.T) {
	clock := task.NewManualScheduler()
	tl, h := placed(t, clock, &recorder{}, 0)

	if h.ClaimForComparison() {
		t.Error("claimed a FaceDown tile")
	}

	faceUp(t, clock, h)
	if !h.ClaimForComparison() {
		t.Fatal("expected claim to succeed")
	}
	if tl.State() != InComparison {
		t.Errorf("expected InComparison, got %s", tl.State())
	}
	if h.ClaimForComparison() {
		t.Error("double claim accepted")
	}

	if !h.Unclaim() {
		t.Fatal("expected Unclaim to succeed")
	}
	if tl.State() != FaceUp {
		t.Errorf("expected FaceUp after Unclaim, got %s", tl.State())
	}
}

// TestResolveMatch Matched then Retired after the retire window
func TestResolveMatch(t *testing.T) {
	clock := task.NewManualScheduler()
	rec := &recorder{}
	tl, h := placed(t, clock, rec, 0)

	if h.ResolveMatch() {
		t.Error("match accepted outside InComparison")
	}

	faceUp(t, clock, h)
	h.ClaimForComparison()
	if !h.ResolveMatch() {
		t.Fatal("expected match to be accepted")
	}
	if tl.State() != Matched {
		t.Errorf("expected Matched, got %s", tl.State())
	}

	clock.Advance(retireDuration - time.Millisecond)
	if len(rec.retired) != 0 {
		t.Error("retired before the retire window elapsed")
	}
	clock.Advance(time.Millisecond)
	if len(rec.retired) != 1 {
		t.Errorf("expected 1 Retired notification, got %d", len(rec.retired))
	}

	if h.ResolveMismatchAndFlipBack(0) || h.ClaimForComparison() {
		t.Error("transition accepted from Matched")
	}
}

// TestResolveMismatchAndFlipBack InComparison during the delay, then Flipping, then FaceDown
func TestResolveMismatchAndFlipBack(t *testing.T) {
	clock := task.NewManualScheduler()
	rec := &recorder{}
	tl, h := placed(t, clock, rec, 0)

	faceUp(t, clock, h)
	h.ClaimForComparison()

	delay := 50 * time.Millisecond
	if !h.ResolveMismatchAndFlipBack(delay) {
		t.Fatal("expected mismatch to be accepted")
	}
	if tl.State() != InComparison {
		t.Errorf("expected InComparison during the delay, got %s", tl.State())
	}

	clock.Advance(delay)
	if tl.State() != Flipping {
		t.Errorf("expected Flipping, got %s", tl.State())
	}

	clock.Advance(flipDuration)
	if tl.State() != FaceDown {
		t.Errorf("expected FaceDown, got %s", tl.State())
	}
	if len(rec.flipped) != 1 {
		t.Errorf("flip back must not notify, got %d Flipped", len(rec.flipped))
	}

	if !h.RequestFlip() {
		t.Error("expected the tile to be flippable again")
	}
}

// TestReleaseCancelsPendingStep a released tile never completes its old step
func TestReleaseCancelsPendingStep(t *testing.T) {
	clock := task.NewManualScheduler()
	rec := &recorder{}
	tl, h := placed(t, clock, rec, 4)

	h.RequestFlip()
	if clock.Pending() != 1 {
		t.Fatalf("expected 1 scheduled step, got %d", clock.Pending())
	}

	tl.OnRelease()
	if clock.Pending() != 0 {
		t.Errorf("expected the step to be cancelled, got %d pending", clock.Pending())
	}
	if tl.HasPending() {
		t.Error("expected no pending step after release")
	}
	if tl.SymbolID() != NoSymbol || tl.State() != FaceDown || tl.Active() {
		t.Errorf("expected reset tile, got symbol=%d state=%s active=%v", tl.SymbolID(), tl.State(), tl.Active())
	}

	clock.Advance(time.Second)
	if len(rec.flipped) != 0 {
		t.Error("released tile notified")
	}
}

// TestReleaseRunsReleaseHook the comparison hook runs once on release and is dropped on resolution
func TestReleaseRunsReleaseHook(t *testing.T) {
	clock := task.NewManualScheduler()
	tl, h := placed(t, clock, &recorder{}, 2)

	calls := 0
	if h.SetReleaseHook(func() { calls++ }) {
		t.Error("hook accepted outside InComparison")
	}

	faceUp(t, clock, h)
	h.ClaimForComparison()
	if !h.SetReleaseHook(func() { calls++ }) {
		t.Fatal("expected hook to be accepted")
	}

	tl.OnRelease()
	tl.OnRelease()
	if calls != 1 {
		t.Errorf("expected the hook to run once, got %d", calls)
	}
	if tl.HasReleaseHook() {
		t.Error("hook kept after release")
	}

	other, oh := placed(t, clock, &recorder{}, 3)
	faceUp(t, clock, oh)
	oh.ClaimForComparison()
	oh.SetReleaseHook(func() { calls++ })
	oh.ResolveMismatchAndFlipBack(0)
	if other.HasReleaseHook() {
		t.Error("hook kept after the verdict")
	}
	other.OnRelease()
	if calls != 1 {
		t.Errorf("hook ran after the verdict, got %d calls", calls)
	}
}

type switchTimer struct {
	mu    sync.Mutex
	inner task.Timer
	fail  bool
}

func (s *switchTimer) ScheduleAfter(delay time.Duration, target string, fn task.TaskFunc) (*task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return nil, task.ErrNotRunning
	}
	return s.inner.ScheduleAfter(delay, target, fn)
}

// TestResolveMatchRetiresWithoutTimer a matched tile still retires when the retire step cannot be scheduled
func TestResolveMatchRetiresWithoutTimer(t *testing.T) {
	clock := task.NewManualScheduler()
	timer := &switchTimer{inner: clock}
	rec := &recorder{}

	tl := New(1)
	tl.OnAcquire()
	h := tl.Handle()
	h.Assign(0, 0, Binding{Timer: timer, FlipDuration: flipDuration, RetireDuration: retireDuration, Listener: rec})
	faceUp(t, clock, h)
	h.ClaimForComparison()

	timer.mu.Lock()
	timer.fail = true
	timer.mu.Unlock()

	if !h.ResolveMatch() {
		t.Fatal("expected match to be accepted")
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		rec.mu.Lock()
		n := len(rec.retired)
		rec.mu.Unlock()
		if n == 1 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error("matched tile never retired")
}

// TestStaleHandle handles from before a release are inert after reacquire
func TestStaleHandle(t *testing.T) {
	clock := task.NewManualScheduler()
	tl, old := placed(t, clock, &recorder{}, 1)

	tl.OnRelease()
	tl.OnAcquire()
	fresh := tl.Handle()

	if old.Valid() {
		t.Error("old handle still valid")
	}
	if !fresh.Valid() {
		t.Error("fresh handle invalid")
	}
	if old.Assign(2, 0, Binding{Timer: clock}) {
		t.Error("stale handle assigned a symbol")
	}
	if _, ok := old.Info(); ok {
		t.Error("stale handle returned info")
	}
	if old == fresh {
		t.Error("handles of different generations compare equal")
	}
}

// TestFactoryIDs
func TestFactoryIDs(t *testing.T) {
	newTile := NewFactory()

	a, b := newTile(), newTile()
	if a.ID() == b.ID() {
		t.Errorf("expected distinct ids, got %d twice", a.ID())
	}
	if a.SymbolID() != NoSymbol || a.State() != FaceDown || a.Active() {
		t.Error("expected a fresh inactive tile")
	}
}
