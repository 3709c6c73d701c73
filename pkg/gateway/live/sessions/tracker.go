// Package sessions follows open relay connections so shutdown can notify
// clients and drain in-flight loops before the process exits.
package sessions

import (
	"context"
	"sync"
)

// Handle is what the tracker can do to one live connection. A session may
// have several connections open at once (a publisher and any number of
// viewers), so handles are tracked per connection, not per session.
type Handle struct {
	SessionID string
	Notify    func(message string) error
	Close     func()
}

type Tracker struct {
	mu    sync.Mutex
	next  uint64
	conns map[uint64]*trackedConn
	wg    sync.WaitGroup
}

type trackedConn struct {
	handle Handle
	once   sync.Once
}

func NewTracker() *Tracker {
	return &Tracker{
		conns: make(map[uint64]*trackedConn),
	}
}

// Register adds a connection and returns its unregister function, which is
// safe to call more than once.
func (t *Tracker) Register(h Handle) (unregister func()) {
	if t == nil {
		return func() {}
	}

	entry := &trackedConn{handle: h}

	t.mu.Lock()
	if t.conns == nil {
		t.conns = make(map[uint64]*trackedConn)
	}
	id := t.next
	t.next++
	t.conns[id] = entry
	t.wg.Add(1)
	t.mu.Unlock()

	return func() { t.unregister(id, entry) }
}

func (t *Tracker) unregister(id uint64, entry *trackedConn) {
	if t == nil || entry == nil {
		return
	}
	entry.once.Do(func() {
		t.mu.Lock()
		if t.conns != nil && t.conns[id] == entry {
			delete(t.conns, id)
		}
		t.mu.Unlock()
		t.wg.Done()
	})
}

func (t *Tracker) Count() int {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.conns)
}

// NotifyAll sends a shutdown notice to every connection that can receive one.
func (t *Tracker) NotifyAll(message string) (sent int) {
	if t == nil {
		return 0
	}

	var notifies []func(message string) error
	t.mu.Lock()
	for _, entry := range t.conns {
		if entry == nil || entry.handle.Notify == nil {
			continue
		}
		notifies = append(notifies, entry.handle.Notify)
	}
	t.mu.Unlock()

	for _, notify := range notifies {
		_ = notify(message)
		sent++
	}
	return sent
}

// CloseAll force-closes every tracked connection.
func (t *Tracker) CloseAll() (closed int) {
	if t == nil {
		return 0
	}

	var closes []func()
	t.mu.Lock()
	for _, entry := range t.conns {
		if entry == nil || entry.handle.Close == nil {
			continue
		}
		closes = append(closes, entry.handle.Close)
	}
	t.mu.Unlock()

	for _, c := range closes {
		c()
		closed++
	}
	return closed
}

// Wait blocks until every registered connection has unregistered, or the
// context expires. Returns true on a full drain.
func (t *Tracker) Wait(ctx context.Context) bool {
	if t == nil {
		return true
	}
	if ctx == nil {
		t.wg.Wait()
		return true
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		t.wg.Wait()
	}()

	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}
