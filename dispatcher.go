package hsm

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// EventStatus reports the terminal outcome of an EventRequest. At most one
// of Successful or Cancelled is true (both are false for a request whose
// ApplyEvent call failed without being cancelled); Err carries the ApplyEvent error
// (if any) for both the plain-failure and cancelled-while-running cases.
type EventStatus struct {
	Successful bool
	Cancelled  bool
	Err        error
}

// EventCompletionListener is notified once, synchronously, on the
// dispatcher's worker goroutine, after every request finishes - including
// requests cancelled before they ever reached the StateMachine. Its return
// value is stored as the request's annotation.
type EventCompletionListener interface {
	OnCompletion(event Event, status EventStatus) any
}

// EventCompletionListenerFunc adapts a plain function to
// EventCompletionListener.
type EventCompletionListenerFunc func(event Event, status EventStatus) any

// OnCompletion implements EventCompletionListener.
func (f EventCompletionListenerFunc) OnCompletion(event Event, status EventStatus) any {
	return f(event, status)
}

// EventRequest is a future over an event submitted to an EventDispatcher.
// It is returned by Put/PutOutOfBand and becomes resolved exactly once,
// when the worker goroutine finishes applying (or skips) the event.
type EventRequest struct {
	event      Event
	dispatcher *EventDispatcher
	ctx        context.Context
	cancel     context.CancelFunc

	mu              sync.Mutex
	started         bool
	cancelRequested bool
	published       bool
	status          EventStatus
	annotation      any
	done            chan struct{}
}

func newEventRequest(d *EventDispatcher, event Event) *EventRequest {
	ctx, cancel := context.WithCancel(context.Background())
	return &EventRequest{
		event:      event,
		dispatcher: d,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Event returns the request's event.
func (r *EventRequest) Event() Event {
	return r.event
}

// Get blocks until the request is resolved and returns its final status.
func (r *EventRequest) Get() EventStatus {
	<-r.done
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// GetTimeout blocks until the request is resolved or d elapses, whichever
// comes first. The bool reports whether the request actually resolved; on
// timeout it is false and the returned EventStatus is the zero value.
func (r *EventRequest) GetTimeout(d time.Duration) (EventStatus, bool) {
	select {
	case <-r.done:
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.status, true
	case <-time.After(d):
		return EventStatus{}, false
	}
}

// IsDone reports, without blocking, whether the request has resolved.
func (r *EventRequest) IsDone() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// IsCancelled reports whether the resolved status is Cancelled. It blocks
// if the request has not resolved yet.
func (r *EventRequest) IsCancelled() bool {
	return r.Get().Cancelled
}

// IsCancelRequested reports, without blocking, whether Cancel was called on
// this request before it started running.
func (r *EventRequest) IsCancelRequested() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancelRequested
}

// Annotation returns the value the completion listener returned for this
// request, or nil if none is set yet (including while the request is still
// in flight).
func (r *EventRequest) Annotation() any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.annotation
}

// SetAnnotation overwrites the request's stored annotation.
func (r *EventRequest) SetAnnotation(a any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.annotation = a
}

// Cancel requests cancellation of the request and reports whether the
// request was still outstanding when the call was made. If the request has
// not started running yet, it is flagged and will be finished as cancelled,
// without ever reaching the StateMachine, when the worker dequeues it. If
// it is already running, the call is delegated to the dispatcher's
// CancelActive. If it has already finished, Cancel returns false.
func (r *EventRequest) Cancel(mayInterrupt bool) bool {
	r.mu.Lock()
	if r.published {
		r.mu.Unlock()
		return false
	}
	if !r.started {
		r.cancelRequested = true
		r.mu.Unlock()
		return true
	}
	r.mu.Unlock()
	return r.dispatcher.CancelActive(r, mayInterrupt)
}

// DispatcherOption configures an EventDispatcher at construction.
type DispatcherOption func(*EventDispatcher)

// WithDispatcherLogger overrides the dispatcher's logger. The default is
// slog.Default().
func WithDispatcherLogger(logger *slog.Logger) DispatcherOption {
	return func(d *EventDispatcher) { d.logger = logger }
}

// EventDispatcher serializes delivery of events to a single StateMachine
// from any number of concurrent producers, off the caller's goroutine.
// Exactly one worker goroutine calls StateMachine.ApplyEvent at a time, in
// FIFO order, except that an out-of-band event preempts the queue: every
// request still pending is cancelled, the request currently running has its
// context cancelled, and the out-of-band event is queued to run next.
//
// The queue is a plain slice guarded by a mutex and signaled with a
// sync.Cond, rather than a buffered channel, so that out-of-band submission
// can atomically drain and replace it under the same lock that guards
// enqueue.
type EventDispatcher struct {
	machine *StateMachine
	logger  *slog.Logger
	name    string

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []*EventRequest
	running *EventRequest
	stopped bool

	listener EventCompletionListener

	wg sync.WaitGroup
}

// NewEventDispatcher creates an EventDispatcher driving machine. Call Start
// to launch its worker goroutine.
func NewEventDispatcher(machine *StateMachine, opts ...DispatcherOption) *EventDispatcher {
	d := &EventDispatcher{
		machine: machine,
		logger:  slog.Default(),
	}
	d.cond = sync.NewCond(&d.mu)
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SetCompletionListener installs l as the dispatcher's sole completion
// listener, replacing any previous one.
func (d *EventDispatcher) SetCompletionListener(l EventCompletionListener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listener = l
}

// Start launches the dispatcher's worker goroutine. name is used only for
// log output, to distinguish dispatchers in a process running several.
func (d *EventDispatcher) Start(name string) {
	d.mu.Lock()
	d.name = name
	d.mu.Unlock()
	d.wg.Add(1)
	go d.loop()
}

// Stop marks the dispatcher stopped, cancels everything queued and
// currently running, and blocks until the worker goroutine has exited.
func (d *EventDispatcher) Stop() {
	d.mu.Lock()
	d.stopped = true
	stale := d.queue
	d.queue = nil
	running := d.running
	d.cond.Broadcast()
	d.mu.Unlock()

	for _, req := range stale {
		d.finish(req, EventStatus{Cancelled: true})
	}
	if running != nil {
		running.cancel()
	}
	d.wg.Wait()
}

// Put enqueues event for delivery to the underlying StateMachine and
// returns an EventRequest future for it. If event implements OutOfBandEvent
// and reports OutOfBand() == true, Put delegates to PutOutOfBand instead of
// appending to the tail of the queue.
func (d *EventDispatcher) Put(event Event) *EventRequest {
	if oob, ok := event.(OutOfBandEvent); ok && oob.OutOfBand() {
		return d.PutOutOfBand(event)
	}

	req := newEventRequest(d, event)
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		d.finish(req, EventStatus{Cancelled: true})
		return req
	}
	d.queue = append(d.queue, req)
	d.cond.Signal()
	d.mu.Unlock()
	return req
}

// PutOutOfBand atomically, under the queue lock, drains every request still
// pending and cancels the context of the request currently running (if
// any), then enqueues event before releasing the lock - so a normal event
// submitted concurrently can only land in the queue after this purge, never
// be caught by it. Drained requests are finished as cancelled once the lock
// is released.
func (d *EventDispatcher) PutOutOfBand(event Event) *EventRequest {
	req := newEventRequest(d, event)

	d.mu.Lock()
	stale := d.queue
	d.queue = nil
	if d.running != nil {
		d.running.cancel()
	}
	stopped := d.stopped
	if !stopped {
		d.queue = append(d.queue, req)
	}
	d.cond.Signal()
	d.mu.Unlock()

	for _, s := range stale {
		d.finish(s, EventStatus{Cancelled: true})
	}
	if stopped {
		d.finish(req, EventStatus{Cancelled: true})
	}
	return req
}

// CancelActive cancels req's context, and thereby asks its action to
// unwind, iff req is the request currently executing and mayInterrupt is
// true. It reports whether the cancellation was applied.
func (d *EventDispatcher) CancelActive(req *EventRequest, mayInterrupt bool) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running != req || !mayInterrupt {
		return false
	}
	req.cancel()
	return true
}

func (d *EventDispatcher) loop() {
	defer d.wg.Done()
	defer func() {
		if p := recover(); p != nil {
			d.logger.Error("dispatcher loop terminated by panic", "dispatcher", d.name, "panic", p)
		}
	}()
	for {
		d.mu.Lock()
		for len(d.queue) == 0 && !d.stopped {
			d.cond.Wait()
		}
		if len(d.queue) == 0 && d.stopped {
			d.mu.Unlock()
			return
		}
		req := d.queue[0]
		d.queue = d.queue[1:]
		d.running = req
		d.mu.Unlock()

		req.mu.Lock()
		skip := req.cancelRequested
		if !skip {
			req.started = true
		}
		req.mu.Unlock()

		var status EventStatus
		if skip {
			status = EventStatus{Cancelled: true}
		} else {
			err := d.machine.ApplyEvent(req.ctx, req.event)
			switch {
			case err == nil:
				status = EventStatus{Successful: true}
			case errors.Is(err, context.Canceled):
				status = EventStatus{Cancelled: true, Err: err}
			default:
				status = EventStatus{Err: err}
			}
		}
		d.finish(req, status)

		d.mu.Lock()
		d.running = nil
		d.mu.Unlock()
	}
}

// finish publishes req's terminal status: it records the status, invokes
// the completion listener (recovering and logging any panic, never
// propagating one to the worker loop), stores the listener's return value
// as the request's annotation, and only then closes req's done channel -
// so Get()/GetTimeout() callers never observe a request as done before its
// annotation has been stored.
func (d *EventDispatcher) finish(req *EventRequest, status EventStatus) {
	req.mu.Lock()
	req.status = status
	req.published = true
	req.mu.Unlock()

	func() {
		defer func() {
			if p := recover(); p != nil {
				d.logger.Error("completion listener panicked", "panic", p)
			}
		}()
		d.mu.Lock()
		l := d.listener
		d.mu.Unlock()
		if l != nil {
			req.SetAnnotation(l.OnCompletion(req.event, status))
		}
	}()

	close(req.done)
}
