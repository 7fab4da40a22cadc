package session

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// poolPolicyFile is the on-disk shape a ConfigWatcher reloads: the subset
// of pool_config allowed to change at runtime.
type poolPolicyFile struct {
	MaxSessions int    `json:"max_sessions"`
	QueuePolicy string `json:"queue_policy"` // "fifo" or "lifo"
}

// ConfigWatcher watches one pool policy JSON file and applies hot-reloads
// to the bound Pool, notifying the pool's sessions via their
// OnConfigChange listeners: a single watcher goroutine with a debounce
// timer coalescing rapid successive writes into one reload.
type ConfigWatcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	watcherDone chan struct{}
	path        string
	pool        *Pool
}

// NewConfigWatcher starts watching path (expected to contain a
// poolPolicyFile-shaped JSON document) and applying changes to pool.
func NewConfigWatcher(path string, pool *Pool) (*ConfigWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("session: failed to create config watcher: %w", err)
	}
	if err := w.Add(path); err != nil {
		w.Close()
		return nil, fmt.Errorf("session: failed to watch %s: %w", path, err)
	}

	cw := &ConfigWatcher{
		watcher:     w,
		watcherDone: make(chan struct{}),
		path:        path,
		pool:        pool,
	}
	log.Printf("INFO: session: watching %s for pool policy changes", path)
	go cw.watchLoop()
	return cw, nil
}

// Stop halts the watcher goroutine and releases the underlying fsnotify
// watcher.
func (cw *ConfigWatcher) Stop() {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	if cw.watcher == nil {
		return
	}
	select {
	case <-cw.watcherDone:
	default:
		close(cw.watcherDone)
	}
	cw.watcher.Close()
	cw.watcher = nil
	log.Printf("INFO: session: config watcher stopped")
}

func (cw *ConfigWatcher) watchLoop() {
	const debounceDuration = 500 * time.Millisecond
	var debounceTimer *time.Timer

	for {
		select {
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(debounceDuration, cw.reload)
			}
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("ERROR: session: config watcher error: %v", err)
		case <-cw.watcherDone:
			return
		}
	}
}

func (cw *ConfigWatcher) reload() {
	data, err := os.ReadFile(cw.path)
	if err != nil {
		log.Printf("ERROR: session: failed to read %s: %v", cw.path, err)
		return
	}
	var pf poolPolicyFile
	if err := json.Unmarshal(data, &pf); err != nil {
		log.Printf("ERROR: session: failed to parse %s: %v", cw.path, err)
		return
	}

	policy := QueueFIFO
	if pf.QueuePolicy == "lifo" {
		policy = QueueLIFO
	}

	cw.pool.mu.Lock()
	if pf.MaxSessions > 0 {
		cw.pool.max = pf.MaxSessions
		cw.pool.cfgBase.MaxSessions = pf.MaxSessions
	}
	cw.pool.policy = policy
	cw.pool.cfgBase.QueuePolicy = policy
	listeners := cw.pool.collectConfigListenersLocked()
	cw.pool.mu.Unlock()

	log.Printf("INFO: session: pool policy reloaded (max_sessions=%d, queue_policy=%v)", pf.MaxSessions, policy)
	ev := SessionConfigEvent{MaxSessions: pf.MaxSessions, QueuePolicy: policy}
	for _, l := range listeners {
		l(ev)
	}
}
