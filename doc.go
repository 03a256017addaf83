// Package storefx provides middleware, reducers and side effects for a
// single-state-tree message store.
//
// A Store holds one state value. The only way to change it is to dispatch a
// Message through the store's middleware chain into its Reducer. storefx
// adds three things on top of that loop: asynchronous payloads reported as
// phase messages, a builder for reducers keyed by message kind, and side
// effects that react to messages or to changes in derived state.
//
// # Quick Start
//
// Declare action creators and a reducer:
//
//	var users = storefx.CreateActions("users", map[string]storefx.PayloadCreator{
//	    "load": func(args ...any) any {
//	        id := args[0].(string)
//	        return storefx.Go(func() (any, error) { return api.LoadUser(id) })
//	    },
//	})
//
//	reducer := storefx.NewReducer(State{}, func(b *storefx.ReducerBuilder[State]) {
//	    b.HandleStart(users["load"], onLoadStart).
//	        HandleSuccess(users["load"], onLoadSuccess).
//	        HandleError(users["load"], onLoadError)
//	})
//
// Build the store and dispatch:
//
//	fx := storefx.NewEffects()
//	defer fx.Close()
//
//	store := storefx.NewStore[State](reducer, storefx.WithMiddleware(
//	    storefx.Async(),
//	    fx.Middleware(),
//	))
//
//	res, err := storefx.Await(ctx, store.Dispatch(users["load"].Create("u-1")))
//
// # Messages
//
// A Message has a Kind, an optional Payload, an Error flag and opaque Meta.
// Any value with a string discriminant is a message: Message, *Message,
// map[string]any with a "type" (or "kind") entry, and raw JSON bytes. Raw
// JSON is inspected with gjson through the Inspector/View abstraction and a
// Discriminator before it is decoded:
//
//	msg, err := storefx.ParseMessage([]byte(`{"type": "todos/add", "payload": "milk"}`))
//
// Values that are not messages travel through the chain untouched and are
// ignored by the reducer. They are never an error.
//
// # Async Payloads
//
// The Async middleware recognizes two payload shapes:
//
//   - PayloadFunc: func(Dispatch, GetState) (any, error), called at once
//   - Thenable: any deferred value with a Then(onFulfilled, onRejected) method
//
// For such a message of kind K it dispatches K/start, waits for the outcome,
// then dispatches K/success with the value or K/error with the error text
// and Error set. The original message is not forwarded. Dispatch returns a
// *Promise that settles after the final phase message:
//
//   - ThrowOriginalError(true), the default: the promise rejects with the
//     original error, so errors.Is and == hold
//   - ThrowOriginalError(false): the promise resolves with the dispatch
//     result of the K/error message
//
// Setting Meta[AsyncPayloadKey] to AsyncMeta{SkipOuter: true} suppresses the
// start and success messages; the promise then resolves with the raw value.
// Error messages are always dispatched.
//
// Panics inside payload functions are recovered into *PanicError and handled
// like returned errors.
//
// # Promises
//
// Promise is the package's Thenable. Go runs a function on a goroutine;
// Resolved and Rejected build settled promises; NewPromise exposes resolve
// and reject. Await waits for any dispatch result:
//
//	res, err := storefx.Await(ctx, store.Dispatch(msg))
//
// Then callbacks always run on their own goroutine after settlement. Giving
// up on Await does not cancel the computation.
//
// # Reducers
//
// NewReducer builds a TableReducer from handlers keyed by exact kind.
// HandleMatch adds fallbacks selected by a Discriminator over the message's
// wire shape. Unmatched kinds leave the state unchanged. The table is fixed once the
// build function returns. ReducerOf adapts a plain function.
//
// # Side Effects
//
// An Effects registry runs impure reactions after each dispatch:
//
//	fx.OnAction("session/expired", func(msg storefx.Message, dispatch storefx.Dispatch, getState storefx.GetState) storefx.Cleanup {
//	    timer := time.AfterFunc(time.Minute, func() { dispatch(logout.Create()) })
//	    return func() { timer.Stop() }
//	})
//
//	storefx.OnSelect(fx, func(s State) string { return s.Route }, onRouteChange)
//
// Action effects run for every message of their kind, in registration
// order. OnMatch effects run for every message a Discriminator accepts. Selector reactions run when the selected value changes; the first
// run receives an unset Previous. A returned Cleanup runs before the next
// invocation of the same registration, and Close runs the ones still
// outstanding. Cleanup panics are recovered, logged and reported to
// WithOnCleanupPanic hooks; the pass continues.
//
// # Logging
//
// Async, Effects and Store log through zap and default to zap.L(), which
// discards everything until the program installs a global logger. Pass a
// logger explicitly with WithAsyncLogger, WithEffectsLogger and
// WithStoreLogger. The Logger middleware logs every message kind at debug
// level.
//
// # Hooks
//
// Stores accept hooks in the same functional-option style:
//
//   - WithOnReduce: Called after the reducer applies a message
//   - WithOnMalformed: Called when a non-message reaches the reducer
//
// Multiple hooks of the same type are called in order.
//
// # Thread Safety
//
// Store, Effects and Promise are safe for concurrent use. Reducer
// application is serialized. Middleware, effects, hooks and subscribers run
// outside the store's lock and may dispatch again. Register effects during
// setup, before the first dispatch.
package storefx
