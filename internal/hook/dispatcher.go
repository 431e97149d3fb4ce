package hook

import (
	"context"
	"log"
	"sync"
)

// DefaultQueueSize bounds the number of pending events.
const DefaultQueueSize = 32

type firing struct {
	event Event
	score int
}

// Dispatcher runs hooks off the tick goroutine. Fire never blocks: when the
// queue is full the event is dropped and logged.
type Dispatcher struct {
	manager  *Manager
	executor *Executor
	queue    chan firing

	wg     sync.WaitGroup
	cancel context.CancelFunc

	// OnResult, if set, is called after each hook run.
	OnResult func(h *Hook, b Binding, resp *Response, err error)
}

// NewDispatcher creates a Dispatcher over the manager's hooks.
func NewDispatcher(manager *Manager, executor *Executor, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Dispatcher{
		manager:  manager,
		executor: executor,
		queue:    make(chan firing, queueSize),
	}
}

// Start launches the worker. It stops when ctx is cancelled or Stop is called.
func (d *Dispatcher) Start(ctx context.Context) {
	ctx, d.cancel = context.WithCancel(ctx)
	d.wg.Add(1)
	go d.run(ctx)
}

// Stop cancels running hooks and waits for the worker to exit.
func (d *Dispatcher) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
}

// Fire queues event. It reports false when the event was dropped.
func (d *Dispatcher) Fire(event Event, score int) bool {
	select {
	case d.queue <- firing{event: event, score: score}:
		return true
	default:
		log.Printf("hook queue full, dropping %s", event)
		return false
	}
}

func (d *Dispatcher) run(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-d.queue:
			d.dispatch(ctx, f)
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, f firing) {
	for _, h := range d.manager.List() {
		for _, b := range h.BindingsFor(f.event) {
			req := &Request{Event: f.event, Action: b.Action, Params: b.Params, Score: f.score}
			resp, err := d.executor.Execute(ctx, h, req)
			switch {
			case err != nil:
				log.Printf("hook %s on %s: %v", h.Manifest.Name, f.event, err)
			case !resp.Success:
				log.Printf("hook %s on %s reported: %s", h.Manifest.Name, f.event, resp.Error)
			}
			if d.OnResult != nil {
				d.OnResult(h, b, resp, err)
			}
		}
	}
}
