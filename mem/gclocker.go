package mem

import "sync"

// gcLocker coordinates GC sweeps against concurrent commits, grounded on
// the GCLocker pattern vendored in
// other_examples/0b8ddf7a_dolthub-dolt__vendor-github.com-ipfs-go-ipfs-blocks-blockstore-blockstore.go.go:
// writers take the read side of gcLock so many can commit concurrently,
// while a GC sweep takes the write side to get a consistent view of the
// graph. gcRequested additionally lets a pending GC ask new writers to
// pin what they create, so a sweep started just before an insert doesn't
// race it into collection.
type gcLocker struct {
	gcLock   sync.RWMutex
	reqMu    sync.Mutex
	gcReqCnt int
}

// PinLock is taken by a commit for the duration of its graph mutation.
// Returns an unlocker; the caller must call it exactly once.
func (l *gcLocker) PinLock() func() {
	l.gcLock.RLock()
	return l.gcLock.RUnlock
}

// GCLock is taken by a GC sweep for the duration of Closure/DeadPaths
// plus any physical deletion, excluding all commits for that span.
func (l *gcLocker) GCLock() func() {
	l.reqMu.Lock()
	l.gcReqCnt++
	l.reqMu.Unlock()
	l.gcLock.Lock()
	return func() {
		l.gcLock.Unlock()
		l.reqMu.Lock()
		l.gcReqCnt--
		l.reqMu.Unlock()
	}
}

// GCRequested reports whether a GC sweep is currently queued or running,
// so a committer can choose to pin newly created, otherwise-unreferenced
// blocks defensively until the sweep passes.
func (l *gcLocker) GCRequested() bool {
	l.reqMu.Lock()
	defer l.reqMu.Unlock()
	return l.gcReqCnt > 0
}
