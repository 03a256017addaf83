package storefx

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// Thenable is any deferred value that can report its outcome through
// callbacks. The async middleware recognizes payloads by this capability
// alone, so deferred values from other packages interoperate as long as
// they call exactly one of the callbacks, exactly once.
type Thenable interface {
	Then(onFulfilled func(any), onRejected func(error))
}

var _ Thenable = (*Promise)(nil)

// errSelfResolution rejects a promise resolved with itself.
var errSelfResolution = errors.New("promise resolved with itself")

// Promise is a value that settles once, either fulfilled with a value or
// rejected with an error. It is safe for concurrent use.
type Promise struct {
	done    chan struct{}
	claimed atomic.Bool

	mu        sync.Mutex
	settled   bool
	callbacks []func() // pending Then callbacks, started by settle
	value     any
	err       error
}

func newPromise() *Promise {
	return &Promise{done: make(chan struct{})}
}

// NewPromise runs executor synchronously with functions that settle the
// returned promise. Only the first call to resolve or reject counts. A panic
// inside executor rejects the promise with a *PanicError.
//
// Resolving with a Thenable adopts its outcome.
func NewPromise(executor func(resolve func(any), reject func(error))) *Promise {
	p := newPromise()
	func() {
		defer func() {
			if r := recover(); r != nil {
				p.reject(newPanicError(r))
			}
		}()
		executor(p.resolve, p.reject)
	}()
	return p
}

// Resolved returns a promise fulfilled with v, or following v when v is
// itself a Thenable.
func Resolved(v any) *Promise {
	p := newPromise()
	p.resolve(v)
	return p
}

// Rejected returns a promise rejected with err. A nil err becomes
// ErrUnknown.
func Rejected(err error) *Promise {
	p := newPromise()
	p.reject(err)
	return p
}

// Go runs fn on a new goroutine and returns a promise of its outcome. A
// non-nil error rejects the promise; a panic rejects it with a *PanicError.
//
//	store.Dispatch(storefx.Message{
//	    Kind:    "user/load",
//	    Payload: storefx.Go(func() (any, error) { return api.LoadUser(id) }),
//	})
func Go(fn func() (any, error)) *Promise {
	p := newPromise()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				p.reject(newPanicError(r))
			}
		}()
		v, err := fn()
		if err != nil {
			p.reject(err)
			return
		}
		p.resolve(v)
	}()
	return p
}

func (p *Promise) resolve(v any) {
	if !p.claimed.CompareAndSwap(false, true) {
		return
	}
	p.adopt(v)
}

func (p *Promise) reject(err error) {
	if !p.claimed.CompareAndSwap(false, true) {
		return
	}
	p.fail(err)
}

// adopt settles with v, or follows v when it is a Thenable.
func (p *Promise) adopt(v any) {
	t, ok := v.(Thenable)
	if !ok {
		p.settle(v, nil)
		return
	}
	if other, ok := t.(*Promise); ok && other == p {
		p.settle(nil, errSelfResolution)
		return
	}
	t.Then(p.adopt, p.fail)
}

func (p *Promise) fail(err error) {
	if err == nil {
		err = ErrUnknown
	}
	p.settle(nil, err)
}

func (p *Promise) settle(v any, err error) {
	p.mu.Lock()
	if p.settled {
		p.mu.Unlock()
		return
	}
	p.settled = true
	p.value, p.err = v, err
	callbacks := p.callbacks
	p.callbacks = nil
	close(p.done)
	p.mu.Unlock()

	for _, cb := range callbacks {
		go cb()
	}
}

// Then registers callbacks for the outcome. They run on their own goroutine
// once the promise settles, never inside the call to Then. Either callback
// may be nil. No goroutine is held while the promise is pending.
func (p *Promise) Then(onFulfilled func(any), onRejected func(error)) {
	run := func() {
		if p.err != nil {
			if onRejected != nil {
				onRejected(p.err)
			}
			return
		}
		if onFulfilled != nil {
			onFulfilled(p.value)
		}
	}

	p.mu.Lock()
	if !p.settled {
		p.callbacks = append(p.callbacks, run)
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()
	go run()
}

// Done returns a channel closed when the promise settles.
func (p *Promise) Done() <-chan struct{} {
	return p.done
}

// Await blocks until the promise settles or ctx is done. Giving up on the
// wait does not cancel the underlying computation.
func (p *Promise) Await(ctx context.Context) (any, error) {
	select {
	case <-p.done:
		return p.value, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Await resolves the value returned by a dispatch: Thenables are awaited,
// anything else is returned as is.
//
//	res, err := storefx.Await(ctx, store.Dispatch(msg))
func Await(ctx context.Context, v any) (any, error) {
	switch t := v.(type) {
	case *Promise:
		if t == nil {
			return nil, nil
		}
		return t.Await(ctx)
	case Thenable:
		return Resolved(t).Await(ctx)
	default:
		return v, nil
	}
}
