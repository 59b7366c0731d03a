package bridge

import (
	"log/slog"
	"sync"
)

// dispatcher delivers completion callbacks serially on one goroutine.
type dispatcher struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	stopped bool
	exited  chan struct{}
}

func newDispatcher() *dispatcher {
	d := &dispatcher{
		wake:   make(chan struct{}, 1),
		exited: make(chan struct{}),
	}
	go d.loop()
	return d
}

func (d *dispatcher) post(fn func()) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		// Late callbacks on a closed pool run on a fresh goroutine so the
		// caller of Then is never re-entered.
		go runCallback(fn)
		return
	}
	d.queue = append(d.queue, fn)
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *dispatcher) loop() {
	defer close(d.exited)
	for range d.wake {
		for {
			d.mu.Lock()
			if len(d.queue) == 0 {
				stopped := d.stopped
				d.mu.Unlock()
				if stopped {
					return
				}
				break
			}
			fn := d.queue[0]
			d.queue[0] = nil
			d.queue = d.queue[1:]
			d.mu.Unlock()

			runCallback(fn)
		}
	}
}

// stop drains queued callbacks and ends the loop.
func (d *dispatcher) stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
	<-d.exited
}

func runCallback(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("bridge_callback_panicked", slog.Any("panic", r))
		}
	}()
	fn()
}
