package engine

import "sync/atomic"

// AppState holds the thread-visible round-subsystem flags other
// subsystems may read: whether round state has finished loading at boot,
// whether a tick is currently in flight, and the active snapshot-mode
// round (0 = off). Only the engine writes IsTicking; only the pipeline
// bootstrap writes IsLoaded; only the snapshot command writes Snapshot.
// Because writers are single-owner and the surrounding pipeline already
// serializes block processing, plain atomics are sufficient — no lock is
// needed, mirroring the teacher's preference for small sync primitives
// over heavier synchronization.
type AppState struct {
	isLoaded  atomic.Bool
	isTicking atomic.Bool
	snapshot  atomic.Uint64
}

// NewAppState returns a fresh, idle AppState.
func NewAppState() *AppState {
	return &AppState{}
}

func (s *AppState) SetLoaded(v bool)   { s.isLoaded.Store(v) }
func (s *AppState) IsLoaded() bool     { return s.isLoaded.Load() }
func (s *AppState) IsTicking() bool    { return s.isTicking.Load() }
func (s *AppState) SetSnapshot(r uint64) { s.snapshot.Store(r) }
func (s *AppState) Snapshot() uint64   { return s.snapshot.Load() }

// beginTick marks the engine as ticking. Returns false if a tick is
// already in flight — the caller must refuse to overlap two ticks on the
// same engine instance.
func (s *AppState) beginTick() bool {
	return s.isTicking.CompareAndSwap(false, true)
}

// endTick clears the ticking flag. Always safe to call, including on
// every error-unwind path.
func (s *AppState) endTick() {
	s.isTicking.Store(false)
}
