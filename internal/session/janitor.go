package session

import (
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Janitor periodically reaps idle pool sessions that have sat unused past
// a staleness threshold, freeing their slot back to max_sessions. Grounded
// on the scheduler's robfig/cron/v3 usage: a cron-scheduled sweep rather
// than a per-session timer, so one goroutine services the whole pool.
type Janitor struct {
	pool      *Pool
	staleness time.Duration
	cron      *cron.Cron

	mu      sync.Mutex
	running bool
}

// NewJanitor constructs a Janitor that, once started, sweeps pool every
// schedule tick and disconnects idle sessions older than staleness.
func NewJanitor(pool *Pool, staleness time.Duration) *Janitor {
	return &Janitor{pool: pool, staleness: staleness}
}

// Start schedules the sweep on the given cron spec (6-field, with a leading
// seconds field, per robfig/cron's WithSeconds parser, or a descriptor such
// as "@every 1m") and begins running it.
func (j *Janitor) Start(schedule string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.running {
		return nil
	}

	j.cron = cron.New(cron.WithSeconds())
	if _, err := j.cron.AddFunc(schedule, j.sweep); err != nil {
		return err
	}
	j.cron.Start()
	j.running = true
	log.Printf("INFO: session: janitor started (schedule %q, staleness %s)", schedule, j.staleness)
	return nil
}

// Stop halts the janitor, waiting for any in-flight sweep to finish.
func (j *Janitor) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.running {
		return
	}
	ctx := j.cron.Stop()
	<-ctx.Done()
	j.running = false
	log.Printf("INFO: session: janitor stopped")
}

// sweep disconnects every idle session that has outlived its staleness
// budget. It only ever touches sessions already idle in the pool, never
// one a caller currently holds reserved.
func (j *Janitor) sweep() {
	stale := j.pool.reapIdleOlderThan(j.staleness)
	for _, s := range stale {
		log.Printf("INFO: session: janitor reaping idle session %s", s.ID)
		s.Disconnect()
	}
}
