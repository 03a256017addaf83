package storefx

import "go.uber.org/zap"

// OnCleanupPanicFunc is called when a side-effect cleanup panics. Source
// names the registration: "action:<kind>", "match:<index>" or
// "selector:<index>".
type OnCleanupPanicFunc func(source string, err *PanicError)

// OnReduceFunc is called after the store applies its reducer to a message.
type OnReduceFunc func(msg Message)

// OnMalformedFunc is called when a value without a string discriminant
// reaches the end of the middleware chain.
type OnMalformedFunc func(v any)

// asyncConfig holds the configuration of one async middleware value.
type asyncConfig struct {
	throwOriginalError bool
	logger             *zap.Logger
}

// AsyncOption configures the async middleware.
type AsyncOption func(*asyncConfig)

// ThrowOriginalError controls how failures reach the dispatch call site.
// When true (the default) the returned promise rejects with the original
// error. When false it resolves with the result of dispatching the error
// phase message, and callers inspect its Error field.
func ThrowOriginalError(throw bool) AsyncOption {
	return func(c *asyncConfig) {
		c.throwOriginalError = throw
	}
}

// WithAsyncLogger sets the logger for phase lifecycle events. Defaults to
// zap.L().
func WithAsyncLogger(l *zap.Logger) AsyncOption {
	return func(c *asyncConfig) {
		c.logger = orNop(l)
	}
}

// effectsConfig holds the configuration and hooks of an Effects registry.
type effectsConfig struct {
	logger         *zap.Logger
	onCleanupPanic []OnCleanupPanicFunc
}

// EffectsOption configures an Effects registry.
type EffectsOption func(*effectsConfig)

// WithEffectsLogger sets the logger used to report cleanup panics.
// Defaults to zap.L().
func WithEffectsLogger(l *zap.Logger) EffectsOption {
	return func(c *effectsConfig) {
		c.logger = orNop(l)
	}
}

// WithOnCleanupPanic adds a hook called when a cleanup panics. The panic
// is still isolated: the pass continues with the next registration.
// Multiple hooks are called in order.
//
// Example:
//
//	fx := storefx.NewEffects(
//	    storefx.WithOnCleanupPanic(func(source string, err *storefx.PanicError) {
//	        metrics.Incr("effects.cleanup_panic", "source:"+source)
//	    }),
//	)
func WithOnCleanupPanic(fn OnCleanupPanicFunc) EffectsOption {
	return func(c *effectsConfig) {
		c.onCleanupPanic = append(c.onCleanupPanic, fn)
	}
}

// storeConfig holds the configuration and hooks of a Store.
type storeConfig struct {
	middleware  []Middleware
	logger      *zap.Logger
	onReduce    []OnReduceFunc
	onMalformed []OnMalformedFunc
}

// StoreOption configures a Store.
type StoreOption func(*storeConfig)

// WithMiddleware appends middleware to the store's chain. The first
// middleware given is the outermost: it sees every dispatch first.
//
// Example:
//
//	store := storefx.NewStore(reducer, storefx.WithMiddleware(
//	    storefx.Async(),
//	    fx.Middleware(),
//	    storefx.Logger(logger),
//	))
func WithMiddleware(mw ...Middleware) StoreOption {
	return func(c *storeConfig) {
		c.middleware = append(c.middleware, mw...)
	}
}

// WithStoreLogger sets the store's logger. Defaults to zap.L().
func WithStoreLogger(l *zap.Logger) StoreOption {
	return func(c *storeConfig) {
		c.logger = orNop(l)
	}
}

// WithOnReduce adds a hook called after each reducer application, before
// subscribers are notified. Multiple hooks are called in order.
func WithOnReduce(fn OnReduceFunc) StoreOption {
	return func(c *storeConfig) {
		c.onReduce = append(c.onReduce, fn)
	}
}

// WithOnMalformed adds a hook called when a malformed value reaches the
// store. The value is returned to the caller unchanged either way.
func WithOnMalformed(fn OnMalformedFunc) StoreOption {
	return func(c *storeConfig) {
		c.onMalformed = append(c.onMalformed, fn)
	}
}

func orNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
