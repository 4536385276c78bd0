package namespace

import "sync"

// lockTable hands out per-bucket RW locks and per-file mutexes. Entries are reference
// counted and removed once nobody holds or waits for them.
type lockTable struct {
	mu      sync.Mutex
	buckets map[string]*bucketLock
	files   map[string]*fileLock
}

type bucketLock struct {
	sync.RWMutex
	refs int
}

type fileLock struct {
	sync.Mutex
	refs int
}

func newLockTable() *lockTable {
	return &lockTable{
		buckets: make(map[string]*bucketLock),
		files:   make(map[string]*fileLock),
	}
}

func (t *lockTable) acquireBucket(key string) *bucketLock {
	t.mu.Lock()
	defer t.mu.Unlock()

	lock, ok := t.buckets[key]
	if !ok {
		lock = &bucketLock{}
		t.buckets[key] = lock
	}
	lock.refs++
	return lock
}

func (t *lockTable) releaseBucket(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if lock, ok := t.buckets[key]; ok {
		lock.refs--
		if lock.refs == 0 {
			delete(t.buckets, key)
		}
	}
}

// writeBucket takes the bucket's exclusive lock for structural changes.
func (t *lockTable) writeBucket(key string) func() {
	lock := t.acquireBucket(key)
	lock.Lock()
	return func() {
		lock.Unlock()
		t.releaseBucket(key)
	}
}

// readBucket takes the bucket's shared lock for file-level changes.
func (t *lockTable) readBucket(key string) func() {
	lock := t.acquireBucket(key)
	lock.RLock()
	return func() {
		lock.RUnlock()
		t.releaseBucket(key)
	}
}

// lockFile serializes changes to a single file.
func (t *lockTable) lockFile(key string) func() {
	t.mu.Lock()
	lock, ok := t.files[key]
	if !ok {
		lock = &fileLock{}
		t.files[key] = lock
	}
	lock.refs++
	t.mu.Unlock()

	lock.Lock()
	return func() {
		lock.Unlock()

		t.mu.Lock()
		defer t.mu.Unlock()
		lock.refs--
		if lock.refs == 0 {
			delete(t.files, key)
		}
	}
}

// size reports the number of live entries; used by tests.
func (t *lockTable) size() (int, int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.buckets), len(t.files)
}
