package ingest

import "sync/atomic"

// IngestLock is a non-blocking try-lock guarding path ingestion.
type IngestLock struct {
	state atomic.Int32 // 0 = unlocked, 1 = locked
}

// TryAcquire attempts to acquire the lock without blocking.
// Returns true if the lock was successfully acquired, false otherwise.
func (l *IngestLock) TryAcquire() bool {
	return l.state.CompareAndSwap(0, 1)
}

// Release releases the lock.
// Must only be called by the goroutine that successfully acquired the lock.
func (l *IngestLock) Release() {
	l.state.Store(0)
}

// Held reports whether the lock is currently taken.
func (l *IngestLock) Held() bool {
	return l.state.Load() == 1
}
