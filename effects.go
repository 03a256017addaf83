package storefx

import (
	"reflect"
	"strconv"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Cleanup undoes a side effect. It runs before the next invocation of the
// effect that returned it, or on Effects.Close.
type Cleanup func()

// ActionEffect reacts to a dispatched message. It may return a Cleanup.
type ActionEffect func(msg Message, dispatch Dispatch, getState GetState) Cleanup

// Reaction reacts to a change of a selected value. It may return a Cleanup.
type Reaction[V any] func(value V, previous Previous[V], dispatch Dispatch, getState GetState) Cleanup

// Previous is the value a selector produced on the run before the one that
// triggered a Reaction. On the first run it is unset, which is distinct from
// every real value, zero values and nil included.
type Previous[V any] struct {
	value V
	set   bool
}

// Unset returns the Previous passed to a Reaction on its first run.
func Unset[V any]() Previous[V] {
	return Previous[V]{}
}

// PreviousOf returns a Previous holding v.
func PreviousOf[V any](v V) Previous[V] {
	return Previous[V]{value: v, set: true}
}

// Value returns the previous value and whether there was one.
func (p Previous[V]) Value() (V, bool) {
	return p.value, p.set
}

// IsUnset reports whether the selector had never run before.
func (p Previous[V]) IsUnset() bool {
	return !p.set
}

// slot holds the pending cleanup of one registration.
type slot struct {
	mu      sync.Mutex
	source  string
	cleanup Cleanup
}

func (s *slot) take() Cleanup {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.cleanup
	s.cleanup = nil
	return c
}

// put stores c and returns the cleanup it displaced, if a concurrent pass
// stored one in the meantime.
func (s *slot) put(c Cleanup) Cleanup {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.cleanup
	s.cleanup = c
	return old
}

type actionEffect struct {
	slot
	handler ActionEffect
}

// matchEffect is registered through OnMatch.
type matchEffect struct {
	actionEffect
	match Discriminator
}

// selectorEffect is registered through OnSelect or OnSelectFunc.
type selectorEffect[S, V any] struct {
	slot
	selector func(S) V
	equal    func(a, b V) bool
	reaction Reaction[V]
	prev     Previous[V] // guarded by slot.mu
}

// selectorRunner erases the type parameters of a selectorEffect.
type selectorRunner interface {
	run(state any, api API, fx *Effects)
	pending() (source string, c Cleanup)
}

// Effects holds side-effect registrations and runs them after dispatches.
// It replaces process-wide registries: create one per store and install
// its Middleware.
//
// Registrations are meant to be made during setup and are never removed.
// Call Close when the store is discarded to run outstanding cleanups.
type Effects struct {
	mu          sync.RWMutex
	actions     map[string][]*actionEffect
	actionKinds []string
	matchers    []*matchEffect
	selectors   []selectorRunner
	cfg         effectsConfig
}

// NewEffects creates an empty registry.
func NewEffects(opts ...EffectsOption) *Effects {
	cfg := effectsConfig{logger: zap.L()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Effects{
		actions: make(map[string][]*actionEffect),
		cfg:     cfg,
	}
}

// OnAction registers h to run after every dispatch of a message of the
// given kind. Effects for one kind run in registration order.
//
// Example:
//
//	fx.OnAction("session/expired", func(msg storefx.Message, dispatch storefx.Dispatch, _ storefx.GetState) storefx.Cleanup {
//	    timer := time.AfterFunc(time.Minute, func() { dispatch(storefx.Message{Kind: "session/logout"}) })
//	    return func() { timer.Stop() }
//	})
func (fx *Effects) OnAction(kind string, h ActionEffect) {
	fx.mu.Lock()
	defer fx.mu.Unlock()

	if _, ok := fx.actions[kind]; !ok {
		fx.actionKinds = append(fx.actionKinds, kind)
	}
	fx.actions[kind] = append(fx.actions[kind], &actionEffect{
		slot:    slot{source: "action:" + kind},
		handler: h,
	})
}

// OnActionCreator registers h for the messages built by c.
func (fx *Effects) OnActionCreator(c *ActionCreator, h ActionEffect) {
	fx.OnAction(c.Kind(), h)
}

// OnMatch registers h to run after every dispatch of a message whose wire
// shape matches d, after the effects registered by kind. Messages whose
// payload cannot be encoded as JSON never match.
//
// Example:
//
//	fx.OnMatch(storefx.IsTrue(storefx.ErrorField), func(msg storefx.Message, _ storefx.Dispatch, _ storefx.GetState) storefx.Cleanup {
//	    alerts.Notify(msg.Kind, msg.Payload)
//	    return nil
//	})
func (fx *Effects) OnMatch(d Discriminator, h ActionEffect) {
	fx.mu.Lock()
	defer fx.mu.Unlock()

	fx.matchers = append(fx.matchers, &matchEffect{
		actionEffect: actionEffect{
			slot:    slot{source: "match:" + strconv.Itoa(len(fx.matchers))},
			handler: h,
		},
		match: d,
	})
}

// OnSelect registers r to run whenever selector's result over the state
// changes, compared with ==. Selectors are evaluated after every dispatch;
// state that is not an S is skipped.
func OnSelect[S any, V comparable](fx *Effects, selector func(S) V, r Reaction[V]) {
	OnSelectFunc(fx, selector, r, func(a, b V) bool { return a == b })
}

// OnSelectFunc is OnSelect with a custom equality. A nil equal compares
// comparable values with ==, and maps, slices, funcs and pointers by
// identity.
func OnSelectFunc[S, V any](fx *Effects, selector func(S) V, r Reaction[V], equal func(a, b V) bool) {
	if equal == nil {
		equal = func(a, b V) bool { return identical(a, b) }
	}

	fx.mu.Lock()
	defer fx.mu.Unlock()

	fx.selectors = append(fx.selectors, &selectorEffect[S, V]{
		slot:     slot{source: "selector:" + strconv.Itoa(len(fx.selectors))},
		selector: selector,
		equal:    equal,
		reaction: r,
	})
}

// Middleware returns middleware that forwards each dispatch, then runs the
// action effects registered for its kind, then evaluates every selector.
// The selector pass runs once per dispatch, whatever was dispatched.
func (fx *Effects) Middleware() Middleware {
	return func(api API) func(Dispatch) Dispatch {
		return func(next Dispatch) Dispatch {
			return func(v any) any {
				result := next(v)
				if msg, ok := AsMessage(v); ok {
					fx.RunActionEffects(msg, api)
				}
				fx.RunSelectorEffects(api)
				return result
			}
		}
	}
}

// RunActionEffects runs the effects registered for msg.Kind, then the
// OnMatch effects whose Discriminator matches msg. Each effect's previous
// cleanup runs first; a panicking cleanup is reported and does not stop
// the pass.
func (fx *Effects) RunActionEffects(msg Message, api API) {
	fx.mu.RLock()
	list := fx.actions[msg.Kind]
	matchers := fx.matchers
	fx.mu.RUnlock()

	for _, e := range list {
		fx.runAction(e, msg, api)
	}
	if len(matchers) == 0 {
		return
	}

	view, err := msg.View()
	if err != nil {
		fx.cfg.logger.Debug("match effects skipped",
			zap.String("kind", msg.Kind),
			zap.Error(err),
		)
		return
	}
	for _, e := range matchers {
		if e.match.Match(view) {
			fx.runAction(&e.actionEffect, msg, api)
		}
	}
}

func (fx *Effects) runAction(e *actionEffect, msg Message, api API) {
	fx.runCleanup(e.source, e.take())
	c := e.handler(msg, api.Dispatch, api.GetState)
	fx.runCleanup(e.source, e.put(c))
}

// RunSelectorEffects evaluates every selector against the current state
// and runs the reactions whose value changed.
func (fx *Effects) RunSelectorEffects(api API) {
	fx.mu.RLock()
	list := fx.selectors
	fx.mu.RUnlock()

	if len(list) == 0 {
		return
	}

	state := api.GetState()
	for _, e := range list {
		e.run(state, api, fx)
	}
}

// Close runs every outstanding cleanup once, in registration order, and
// returns the panics they raised combined into one error.
func (fx *Effects) Close() error {
	fx.mu.RLock()
	var pending []*slot
	for _, kind := range fx.actionKinds {
		for _, e := range fx.actions[kind] {
			pending = append(pending, &e.slot)
		}
	}
	for _, e := range fx.matchers {
		pending = append(pending, &e.slot)
	}
	selectors := fx.selectors
	fx.mu.RUnlock()

	var err error
	for _, s := range pending {
		err = multierr.Append(err, fx.runCleanup(s.source, s.take()))
	}
	for _, e := range selectors {
		source, c := e.pending()
		err = multierr.Append(err, fx.runCleanup(source, c))
	}
	return err
}

// runCleanup runs c, isolating and reporting a panic.
func (fx *Effects) runCleanup(source string, c Cleanup) (err error) {
	if c == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			pe := newPanicError(r)
			fx.cfg.logger.Error("side effect cleanup panicked",
				zap.String("source", source),
				zap.Any("panic", r),
				zap.String("stack", pe.Stack),
			)
			for _, fn := range fx.cfg.onCleanupPanic {
				fn(source, pe)
			}
			err = pe
		}
	}()
	c()
	return nil
}

func (e *selectorEffect[S, V]) run(state any, api API, fx *Effects) {
	s, ok := state.(S)
	if !ok {
		return
	}
	value := e.selector(s)

	// The change check and the move of prev happen under one lock, so two
	// concurrent passes cannot both claim the same change. prev moves
	// before the reaction runs, so a dispatch from inside the reaction
	// sees it.
	e.mu.Lock()
	if e.prev.set && e.equal(e.prev.value, value) {
		e.mu.Unlock()
		return
	}
	previous := e.prev
	e.prev = PreviousOf(value)
	cleanup := e.cleanup
	e.cleanup = nil
	e.mu.Unlock()

	fx.runCleanup(e.source, cleanup)

	c := e.reaction(value, previous, api.Dispatch, api.GetState)
	fx.runCleanup(e.source, e.put(c))
}

func (e *selectorEffect[S, V]) pending() (string, Cleanup) {
	return e.source, e.take()
}

// identical compares like ==, except that maps, slices, funcs and pointers
// are equal only when they share the same underlying data. Values that
// cannot be compared either way are never equal.
func identical(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}
	if va.Comparable() && vb.Comparable() {
		return a == b
	}
	switch va.Kind() {
	case reflect.Map, reflect.Func, reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	default:
		return false
	}
}
