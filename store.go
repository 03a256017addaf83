package storefx

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Dispatch sends a value through a middleware chain and returns whatever
// the chain returns: usually the message itself, or a *Promise for
// messages handled by the async middleware.
type Dispatch func(v any) any

// GetState returns a snapshot of the current state.
type GetState func() any

// API is what a middleware receives from the store. Dispatch always runs
// the full chain, including the calling middleware.
type API struct {
	Dispatch Dispatch
	GetState GetState
}

// Middleware intercepts dispatches. Given the store API it returns a
// wrapper around next, the rest of the chain. A middleware forwards a
// value by calling next exactly once and returning its result, or
// substitutes its own result.
type Middleware func(api API) func(next Dispatch) Dispatch

// ApplyMiddleware composes middleware around base. The first middleware is
// the outermost, so for middlewares A, B, C the flow is A→B→C→base. Each
// middleware's API.Dispatch enters the composed chain from the top.
func ApplyMiddleware(base Dispatch, getState GetState, middleware ...Middleware) Dispatch {
	var dispatch Dispatch = func(any) any {
		panic("storefx: dispatch called while the middleware chain is being built")
	}
	api := API{
		Dispatch: func(v any) any { return dispatch(v) },
		GetState: getState,
	}

	wrappers := make([]func(Dispatch) Dispatch, len(middleware))
	for i, mw := range middleware {
		wrappers[i] = mw(api)
	}

	chain := base
	for i := len(wrappers) - 1; i >= 0; i-- {
		chain = wrappers[i](chain)
	}
	dispatch = chain
	return chain
}

// Reducer computes the next state from the current state and a message.
// Reduce must be pure.
type Reducer[S any] interface {
	InitialState() S
	Reduce(state S, msg Message) S
}

// ReducerOf adapts a plain transition function into a Reducer.
func ReducerOf[S any](initial S, fn func(state S, msg Message) S) Reducer[S] {
	return funcReducer[S]{initial: initial, fn: fn}
}

type funcReducer[S any] struct {
	initial S
	fn      func(S, Message) S
}

func (r funcReducer[S]) InitialState() S               { return r.initial }
func (r funcReducer[S]) Reduce(state S, msg Message) S { return r.fn(state, msg) }

// Store holds a single state tree that changes only by dispatching
// messages through its middleware chain into its reducer.
//
// Store is safe for concurrent use. Reducer application is serialized;
// middleware, hooks and subscribers run outside the store's lock, so they
// may dispatch again.
type Store[S any] struct {
	mu        sync.RWMutex
	state     S
	reducer   Reducer[S]
	dispatch  Dispatch
	listeners []listener
	nextID    uint64
	cfg       storeConfig
}

type listener struct {
	id uint64
	fn func()
}

// NewStore creates a Store starting from the reducer's initial state.
//
// Example:
//
//	fx := storefx.NewEffects()
//	store := storefx.NewStore(reducer, storefx.WithMiddleware(
//	    storefx.Async(),
//	    fx.Middleware(),
//	))
func NewStore[S any](r Reducer[S], opts ...StoreOption) *Store[S] {
	cfg := storeConfig{logger: zap.L()}
	for _, opt := range opts {
		opt(&cfg)
	}
	s := &Store[S]{
		state:   r.InitialState(),
		reducer: r,
		cfg:     cfg,
	}
	s.dispatch = ApplyMiddleware(s.reduce, s.GetState, cfg.middleware...)
	return s
}

// Dispatch sends v through the middleware chain. See Await for handling
// the result of async messages.
func (s *Store[S]) Dispatch(v any) any {
	return s.dispatch(v)
}

// State returns the current state.
func (s *Store[S]) State() S {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// GetState returns the current state as an untyped value, for middleware.
func (s *Store[S]) GetState() any {
	return s.State()
}

// Subscribe registers fn to run after every reducer application, in
// subscription order. The returned function removes it.
func (s *Store[S]) Subscribe(fn func()) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners = append(s.listeners, listener{id: id, fn: fn})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, l := range s.listeners {
			if l.id == id {
				s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

// reduce is the end of the chain.
func (s *Store[S]) reduce(v any) any {
	msg, ok := AsMessage(v)
	if !ok {
		s.handleMalformed(v)
		return v
	}

	listeners := s.apply(msg)

	for _, fn := range s.cfg.onReduce {
		fn(msg)
	}
	for _, fn := range listeners {
		fn()
	}
	return v
}

// apply runs the reducer under the lock and returns the listeners to
// notify.
func (s *Store[S]) apply(msg Message) []func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = s.reducer.Reduce(s.state, msg)

	listeners := make([]func(), 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l.fn)
	}
	return listeners
}

// handleMalformed reports a value that is not a message.
func (s *Store[S]) handleMalformed(v any) {
	s.cfg.logger.Debug("ignoring malformed dispatch", zap.String("type", fmt.Sprintf("%T", v)))
	for _, fn := range s.cfg.onMalformed {
		fn(v)
	}
}

// Logger returns middleware that logs the kind of every message at debug
// level and passes it on unchanged.
func Logger(l *zap.Logger) Middleware {
	l = orNop(l)
	return func(API) func(Dispatch) Dispatch {
		return func(next Dispatch) Dispatch {
			return func(v any) any {
				if msg, ok := AsMessage(v); ok {
					l.Debug("dispatch",
						zap.String("kind", msg.Kind),
						zap.Bool("error", msg.Error),
						zap.Bool("has_payload", msg.Payload != nil),
					)
				}
				return next(v)
			}
		}
	}
}
