package storefx

import (
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PayloadFunc is a payload computed at dispatch time. It is called
// synchronously with the store's dispatch and state accessor. A non-nil
// error, or a panic, is a failure; the returned value may itself be a
// Thenable, which is then awaited.
//
// Plain funcs with the signature func(Dispatch, GetState) (any, error) or
// func(Dispatch, GetState) any are accepted as payloads too. Funcs of any
// other signature, such as func() (any, error), are not run: they are
// ordinary payloads and the message passes through without phase
// messages. Wrap such a func in a PayloadFunc, or in Go for work that
// should run on its own goroutine.
type PayloadFunc func(dispatch Dispatch, getState GetState) (any, error)

func asPayloadFunc(v any) (PayloadFunc, bool) {
	switch fn := v.(type) {
	case PayloadFunc:
		return fn, fn != nil
	case func(Dispatch, GetState) (any, error):
		return fn, fn != nil
	case func(Dispatch, GetState) any:
		if fn == nil {
			return nil, false
		}
		return func(d Dispatch, g GetState) (any, error) { return fn(d, g), nil }, true
	default:
		return nil, false
	}
}

// Async returns middleware that runs function and Thenable payloads and
// reports their progress as phase messages:
//
//   - kind/start before the payload is awaited (no payload),
//   - kind/success with the resulting value, or
//   - kind/error with the failure's text as payload and Error set.
//
// Such messages are not forwarded themselves; Dispatch returns a *Promise
// that settles after the success or error message has been dispatched.
// With ThrowOriginalError(true), the default, the promise rejects with the
// original error; otherwise it resolves with the dispatch result of the
// error message.
//
// Setting Meta[AsyncPayloadKey] to AsyncMeta{SkipOuter: true} suppresses
// the start and success messages, and the promise then resolves with the
// raw value. Error messages are never suppressed.
//
// Messages without a payload, or with any other kind of payload, pass
// through unchanged.
//
// Each call to Async returns middleware with its own configuration.
func Async(opts ...AsyncOption) Middleware {
	cfg := asyncConfig{
		throwOriginalError: true,
		logger:             zap.L(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(api API) func(Dispatch) Dispatch {
		return func(next Dispatch) Dispatch {
			return func(v any) any {
				msg, ok := AsMessage(v)
				if !ok || msg.Payload == nil {
					return next(v)
				}

				if d, ok := msg.Payload.(Thenable); ok {
					lc := newLifecycle(&cfg, api, msg)
					lc.start()
					return lc.attach(d)
				}

				if fn, ok := asPayloadFunc(msg.Payload); ok {
					lc := newLifecycle(&cfg, api, msg)
					lc.start()
					return lc.run(fn)
				}

				return next(v)
			}
		}
	}
}

// lifecycle tracks one async message from start to success or error.
type lifecycle struct {
	cfg *asyncConfig
	api API
	msg Message
	log *zap.Logger

	// didError suppresses success once an error has been reported.
	didError atomic.Bool
	// settled admits only the first outcome reported by a Thenable.
	settled atomic.Bool
}

func newLifecycle(cfg *asyncConfig, api API, msg Message) *lifecycle {
	return &lifecycle{
		cfg: cfg,
		api: api,
		msg: msg,
		log: cfg.logger.With(
			zap.String("kind", msg.Kind),
			zap.String("lifecycle", uuid.NewString()),
		),
	}
}

func (lc *lifecycle) start() {
	if lc.msg.SkipOuter() {
		lc.log.Debug("async start, phase skipped")
		return
	}
	lc.log.Debug("async start")
	lc.api.Dispatch(Message{
		Kind:  StartKind(lc.msg.Kind),
		Error: lc.msg.Error,
		Meta:  lc.msg.Meta,
	})
}

// run calls a function payload and attaches to its result. A synchronous
// failure is reported at once and never reaches the attach step.
func (lc *lifecycle) run(fn PayloadFunc) any {
	result, err := lc.call(fn)
	if err != nil {
		out, rerr := lc.reject(err)
		if rerr != nil {
			return Rejected(rerr)
		}
		return out
	}

	d, ok := result.(Thenable)
	if !ok {
		d = Resolved(result)
	}
	return lc.attach(d)
}

func (lc *lifecycle) call(fn PayloadFunc) (any, error) {
	return guard(func() (any, error) {
		return fn(lc.api.Dispatch, lc.api.GetState)
	})
}

// attach returns a promise that settles once d has settled and the
// matching phase message has been dispatched. A failure while dispatching
// the success message is handled like a rejection.
func (lc *lifecycle) attach(d Thenable) *Promise {
	return NewPromise(func(resolve func(any), reject func(error)) {
		finish := func(out any, err error) {
			if err != nil {
				reject(err)
				return
			}
			resolve(out)
		}

		onFulfilled := func(v any) {
			if !lc.settled.CompareAndSwap(false, true) {
				return
			}
			out, err := guard(func() (any, error) { return lc.fulfill(v), nil })
			if err != nil {
				out, err = guard(func() (any, error) { return lc.reject(err) })
			}
			finish(out, err)
		}

		onRejected := func(e error) {
			if !lc.settled.CompareAndSwap(false, true) {
				return
			}
			finish(guard(func() (any, error) { return lc.reject(e) }))
		}

		if _, err := guard(func() (any, error) {
			d.Then(onFulfilled, onRejected)
			return nil, nil
		}); err != nil {
			onRejected(err)
		}
	})
}

func (lc *lifecycle) fulfill(v any) any {
	if lc.didError.Load() {
		lc.log.Debug("async success after error, ignored")
		return nil
	}
	if lc.msg.SkipOuter() {
		lc.log.Debug("async success, phase skipped")
		return v
	}
	lc.log.Debug("async success")
	return lc.api.Dispatch(Message{
		Kind:    SuccessKind(lc.msg.Kind),
		Payload: v,
		Error:   false,
		Meta:    lc.msg.Meta,
	})
}

// reject reports err as an error phase message. It returns err itself when
// configured to throw, and the dispatch result otherwise.
func (lc *lifecycle) reject(err error) (any, error) {
	if err == nil {
		err = ErrUnknown
	}
	lc.didError.Store(true)

	text := ErrorText(err)
	lc.log.Debug("async error", zap.String("reason", text), zap.Error(err))
	out := lc.api.Dispatch(Message{
		Kind:    ErrorKind(lc.msg.Kind),
		Payload: text,
		Error:   true,
		Meta:    lc.msg.Meta,
	})

	if lc.cfg.throwOriginalError {
		return nil, err
	}
	return out, nil
}

// guard runs fn, converting a panic into a *PanicError.
func guard(fn func() (any, error)) (res any, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, newPanicError(r)
		}
	}()
	return fn()
}
