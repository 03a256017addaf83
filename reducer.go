package storefx

import (
	"maps"
	"slices"
)

// Handler computes the next state for one kind of message.
type Handler[S any] func(state S, msg Message) S

// ReducerBuilder declares which Handler runs for which kind. Registering a
// kind twice keeps the last handler.
type ReducerBuilder[S any] struct {
	handlers map[string]Handler[S]
	matchers []matchHandler[S]
}

type matchHandler[S any] struct {
	match   Discriminator
	handler Handler[S]
}

// Handle registers h for messages of the given kind.
func (b *ReducerBuilder[S]) Handle(kind string, h Handler[S]) *ReducerBuilder[S] {
	b.handlers[kind] = h
	return b
}

// HandleAction registers h for the messages built by c.
func (b *ReducerBuilder[S]) HandleAction(c *ActionCreator, h Handler[S]) *ReducerBuilder[S] {
	return b.Handle(c.Kind(), h)
}

// HandleStart registers h for c's start phase.
func (b *ReducerBuilder[S]) HandleStart(c *ActionCreator, h Handler[S]) *ReducerBuilder[S] {
	return b.Handle(c.StartKind(), h)
}

// HandleSuccess registers h for c's success phase.
func (b *ReducerBuilder[S]) HandleSuccess(c *ActionCreator, h Handler[S]) *ReducerBuilder[S] {
	return b.Handle(c.SuccessKind(), h)
}

// HandleError registers h for c's error phase. The message payload is the
// error text.
func (b *ReducerBuilder[S]) HandleError(c *ActionCreator, h Handler[S]) *ReducerBuilder[S] {
	return b.Handle(c.ErrorKind(), h)
}

// HandleMatch registers h for messages whose wire shape matches d. Match
// handlers are consulted only when no handler is registered for the exact
// kind, in registration order; the first match wins. Messages whose
// payload cannot be encoded as JSON never match.
//
// Example:
//
//	b.HandleMatch(storefx.IsTrue(storefx.ErrorField), func(s State, m storefx.Message) State {
//	    s.Failures++
//	    return s
//	})
func (b *ReducerBuilder[S]) HandleMatch(d Discriminator, h Handler[S]) *ReducerBuilder[S] {
	b.matchers = append(b.matchers, matchHandler[S]{match: d, handler: h})
	return b
}

// TableReducer is a Reducer that looks handlers up by exact kind, then by
// Discriminator. Messages without a handler leave the state unchanged.
type TableReducer[S any] struct {
	initial  S
	handlers map[string]Handler[S]
	matchers []matchHandler[S]
}

var _ Reducer[int] = (*TableReducer[int])(nil)

// NewReducer builds a TableReducer. The handler table is fixed once build
// returns.
//
// Example:
//
//	reducer := storefx.NewReducer(State{}, func(b *storefx.ReducerBuilder[State]) {
//	    b.HandleStart(loadUser, func(s State, _ storefx.Message) State {
//	        s.Loading = true
//	        return s
//	    }).
//	        HandleSuccess(loadUser, func(s State, m storefx.Message) State {
//	            s.Loading, s.User = false, m.Payload.(User)
//	            return s
//	        })
//	})
func NewReducer[S any](initial S, build func(b *ReducerBuilder[S])) *TableReducer[S] {
	b := &ReducerBuilder[S]{handlers: make(map[string]Handler[S])}
	if build != nil {
		build(b)
	}
	return &TableReducer[S]{
		initial:  initial,
		handlers: maps.Clone(b.handlers),
		matchers: slices.Clone(b.matchers),
	}
}

// InitialState returns the state the reducer starts from.
func (r *TableReducer[S]) InitialState() S {
	return r.initial
}

// Reduce applies the handler registered for msg.Kind, or else the first
// match handler whose Discriminator matches msg.
func (r *TableReducer[S]) Reduce(state S, msg Message) S {
	if h, ok := r.handlers[msg.Kind]; ok {
		return h(state, msg)
	}
	if len(r.matchers) == 0 {
		return state
	}

	view, err := msg.View()
	if err != nil {
		return state
	}
	for _, m := range r.matchers {
		if m.match.Match(view) {
			return m.handler(state, msg)
		}
	}
	return state
}

// Handles reports whether a handler is registered for kind.
func (r *TableReducer[S]) Handles(kind string) bool {
	_, ok := r.handlers[kind]
	return ok
}
