package signal

import "sync"

// sessionWorkers gives every session its own FIFO queue. The read loop
// enqueues inline, so same-session messages keep arrival order while
// the loop stays free to pick up the next frame; unrelated sessions
// run in parallel on their own runners.
type sessionWorkers struct {
	mu      sync.Mutex
	stopped bool
	queues  map[string]chan func()
}

func newSessionWorkers() *sessionWorkers {
	return &sessionWorkers{queues: make(map[string]chan func())}
}

// enqueue appends fn to the session's queue, starting its runner on
// first use. Reports false once the connection is shutting down.
func (w *sessionWorkers) enqueue(key string, fn func()) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return false
	}
	q, ok := w.queues[key]
	if !ok {
		q = make(chan func(), 64)
		w.queues[key] = q
		go func() {
			for task := range q {
				task()
			}
		}()
	}
	q <- fn
	return true
}

// stop closes every queue. Runners drain what is already queued and
// exit; late enqueues are refused.
func (w *sessionWorkers) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	w.stopped = true
	for _, q := range w.queues {
		close(q)
	}
	w.queues = nil
}
