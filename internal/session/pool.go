package session

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// Pool bounds concurrent sessions against one host, handing out idle
// sessions FIFO or LIFO per QueuePolicy. The invariant held at all times
// is |reserved|+|idle| <= max_sessions; a dial in progress counts against
// max via p.dialing so two concurrent Acquire calls can't both see a free
// slot and each dial a new session, together overshooting it.
type Pool struct {
	mu       sync.Mutex
	cfgBase  Config
	policy   QueuePolicy
	max      int
	idle     *list.List // of *Session, front = next to hand out under FIFO order
	reserved map[string]*Session
	waiters  *list.List // of chan *Session, FIFO order of blocked Acquire calls
	dialing  int        // sessions counted against max while a dial is in flight

	closed bool
}

// NewPool constructs a Pool that dials new sessions from cfgBase (each
// acquired session is a fresh connection; cfgBase.MaxSessions caps total
// outstanding sessions).
func NewPool(cfgBase Config) (*Pool, error) {
	if err := cfgBase.Validate(); err != nil {
		return nil, err
	}
	return &Pool{
		cfgBase:  cfgBase,
		policy:   cfgBase.QueuePolicy,
		max:      cfgBase.MaxSessions,
		idle:     list.New(),
		reserved: make(map[string]*Session),
		waiters:  list.New(),
	}, nil
}

// Acquire returns a connected session, waiting up to timeout for one to
// become available. Returns *PoolAcquireTimeoutError on timeout and
// *PoolClosedError once Shutdown has run.
func (p *Pool) Acquire(ctx context.Context, timeout time.Duration) (*Session, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, &PoolClosedError{}
	}

	if s := p.popIdleLocked(); s != nil {
		p.reserved[s.ID] = s
		p.mu.Unlock()
		return s, nil
	}

	if len(p.reserved)+p.dialing < p.max {
		p.dialing++
		p.mu.Unlock()

		s, err := NewSession(p.cfgBase)
		if err == nil {
			err = s.Connect(ctx)
		}

		p.mu.Lock()
		p.dialing--
		if err != nil {
			p.mu.Unlock()
			return nil, err
		}
		p.reserved[s.ID] = s
		p.mu.Unlock()
		return s, nil
	}

	wait := make(chan *Session, 1)
	elem := p.waiters.PushBack(wait)
	p.mu.Unlock()

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	select {
	case s := <-wait:
		if s == nil {
			return nil, &PoolClosedError{}
		}
		return s, nil
	case <-ctx.Done():
		p.removeWaiter(elem)
		return nil, &CancelledError{Op: "pool acquire"}
	case <-deadline.C:
		p.removeWaiter(elem)
		return nil, &PoolAcquireTimeoutError{}
	}
}

// idleEntry tracks how long a session has sat idle, for the janitor's
// staleness sweep.
type idleEntry struct {
	session *Session
	since   time.Time
}

// Release returns s to the idle pool, handing it directly to the oldest
// blocked Acquire call if one exists.
func (p *Pool) Release(s *Session) {
	p.mu.Lock()
	delete(p.reserved, s.ID)

	if p.closed {
		p.mu.Unlock()
		s.Disconnect()
		return
	}

	if front := p.waiters.Front(); front != nil {
		p.waiters.Remove(front)
		wait := front.Value.(chan *Session)
		p.reserved[s.ID] = s
		p.mu.Unlock()
		wait <- s
		return
	}

	entry := idleEntry{session: s, since: time.Now()}
	switch p.policy {
	case QueueLIFO:
		p.idle.PushFront(entry)
	default:
		p.idle.PushBack(entry)
	}
	p.mu.Unlock()
}

// popIdleLocked removes and returns the next idle session, or nil if none
// are idle. Release already applies the queue policy when pushing (LIFO
// pushes to the front, FIFO to the back), so popping the front always
// yields the correct order. Caller must hold p.mu.
func (p *Pool) popIdleLocked() *Session {
	elem := p.idle.Front()
	if elem == nil {
		return nil
	}
	p.idle.Remove(elem)
	return elem.Value.(idleEntry).session
}

// reapIdleOlderThan removes and returns every idle session that has been
// sitting in the pool for longer than staleness, freeing their pool slots.
func (p *Pool) reapIdleOlderThan(staleness time.Duration) []*Session {
	p.mu.Lock()
	defer p.mu.Unlock()

	cutoff := time.Now().Add(-staleness)
	var stale []*Session
	var next *list.Element
	for e := p.idle.Front(); e != nil; e = next {
		next = e.Next()
		entry := e.Value.(idleEntry)
		if entry.since.Before(cutoff) {
			p.idle.Remove(e)
			stale = append(stale, entry.session)
		}
	}
	return stale
}

func (p *Pool) removeWaiter(elem *list.Element) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.waiters.Remove(elem)
}

// Shutdown disconnects every idle and reserved session and fails any
// blocked Acquire calls with *PoolClosedError. Subsequent Acquire calls
// return *PoolClosedError; a later Release disconnects the session it is
// given.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true

	var toClose []*Session
	for e := p.idle.Front(); e != nil; e = e.Next() {
		toClose = append(toClose, e.Value.(idleEntry).session)
	}
	p.idle.Init()
	for _, s := range p.reserved {
		toClose = append(toClose, s)
	}
	p.reserved = make(map[string]*Session)

	for e := p.waiters.Front(); e != nil; e = e.Next() {
		wait := e.Value.(chan *Session)
		wait <- nil
	}
	p.waiters.Init()
	p.mu.Unlock()

	for _, s := range toClose {
		s.Disconnect()
	}
}

// Stats reports the pool's current idle/reserved counts, for the
// accounting invariant tests and for evidence/diagnostics.
func (p *Pool) Stats() (idle, reserved, waiting int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.idle.Len(), len(p.reserved), p.waiters.Len()
}

// collectConfigListenersLocked gathers every OnConfigChange listener
// registered on any session this pool currently knows about (idle or
// reserved), for ConfigWatcher to notify after a policy reload. Caller
// must hold p.mu.
func (p *Pool) collectConfigListenersLocked() []ConfigChangeListener {
	var out []ConfigChangeListener
	for e := p.idle.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(idleEntry).session.configChangeListeners()...)
	}
	for _, s := range p.reserved {
		out = append(out, s.configChangeListeners()...)
	}
	return out
}
