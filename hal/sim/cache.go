package sim

import "sync"

// CacheOp names a recorded cache maintenance operation.
type CacheOp int

// Cache operations.
const (
	OpCleanInvalidate CacheOp = iota
	OpInvalidate
)

// CacheCall records one maintenance request.
type CacheCall struct {
	Op  CacheOp
	Len int
}

// Cache records maintenance requests instead of performing them.
type Cache struct {
	mu    sync.Mutex
	calls []CacheCall
}

// CleanInvalidate implements [hal.Cache].
func (c *Cache) CleanInvalidate(p []byte) { c.record(OpCleanInvalidate, len(p)) }

// Invalidate implements [hal.Cache].
func (c *Cache) Invalidate(p []byte) { c.record(OpInvalidate, len(p)) }

func (c *Cache) record(op CacheOp, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, CacheCall{Op: op, Len: n})
}

// Calls returns the recorded requests.
func (c *Cache) Calls() []CacheCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]CacheCall(nil), c.calls...)
}
