package status

import (
	"context"

	"go.uber.org/zap"

	"github.com/3leaps/eae-utils/pkg/defines"
	"github.com/3leaps/eae-utils/pkg/errstack"
	"github.com/3leaps/eae-utils/pkg/store"
	"github.com/3leaps/eae-utils/pkg/telemetry"
)

type factoryOptions struct {
	cfg    Config
	opener store.Opener
	fatal  func(error)
}

// Option customizes NewHelper.
type Option func(*factoryOptions)

func WithComputeType(types ...string) Option {
	return func(o *factoryOptions) { o.cfg.ComputeType = types }
}

func WithVersion(version string) Option {
	return func(o *factoryOptions) { o.cfg.Version = &version }
}

// WithStatus sets the initial status label.
func WithStatus(status string) Option {
	return func(o *factoryOptions) { o.cfg.Status = status }
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *factoryOptions) { o.cfg.Logger = logger }
}

func WithTelemetry(p telemetry.Provider) Option {
	return func(o *factoryOptions) { o.cfg.Telemetry = p }
}

func WithMetrics(m *Metrics) Option {
	return func(o *factoryOptions) { o.cfg.Metrics = m }
}

// WithErrorSink routes periodic sync errors to sink.
func WithErrorSink(sink func(error)) Option {
	return func(o *factoryOptions) { o.cfg.ErrorSink = sink }
}

// WithOpener replaces store.Connect for opening the store connection.
func WithOpener(opener store.Opener) Option {
	return func(o *factoryOptions) { o.opener = opener }
}

// WithFatalHandler receives the connection error when the store cannot be
// reached. The default logs at fatal level, which exits the process.
func WithFatalHandler(fn func(error)) Option {
	return func(o *factoryOptions) { o.fatal = fn }
}

// NewHelper builds a Helper for a service of the given type and port.
//
// When url is set, the connection is opened in the background: on success
// the helper gets the connection and the opal_global_status collection of the
// default database; on failure the fatal handler receives an
// errstack.ErrConnection error. Ready is closed in both cases.
//
// The helper is usable immediately; Sync fails with errstack.ErrNoCollection
// until the collection is wired.
func NewHelper(ctx context.Context, serviceType string, port int, url string, opts ...Option) *Helper {
	o := factoryOptions{
		cfg:    Config{Type: serviceType, Port: port},
		opener: store.Connect,
	}
	for _, opt := range opts {
		opt(&o)
	}

	h := newHelper(o.cfg)
	if o.fatal == nil {
		o.fatal = func(err error) {
			h.logger.Fatal("Failed to connect to status store", zap.Error(err))
		}
	}

	if url == "" {
		h.markReady(nil)
		return h
	}
	if ctx == nil {
		ctx = context.Background()
	}

	go func() {
		err := h.connect(ctx, o.opener, url)
		h.markReady(err)
		if err != nil {
			o.fatal(err)
		}
	}()
	return h
}

func (h *Helper) connect(ctx context.Context, opener store.Opener, url string) error {
	conn, err := opener(ctx, url)
	if err != nil {
		return errstack.ConnectionFailed(err)
	}

	coll, err := conn.DefaultDatabase().Collection(defines.StatusCollectionName)
	if err != nil {
		_ = conn.Close(ctx, true)
		return errstack.ConnectionFailed(err)
	}

	h.mu.Lock()
	stopped := h.stopped
	if !stopped {
		h.conn, h.collection = conn, coll
	}
	h.mu.Unlock()

	if stopped {
		_ = conn.Close(ctx, true)
		h.logger.Debug("Status store connected after stop; closed",
			zap.String("scheme", store.Scheme(url)))
		return nil
	}

	h.logger.Info("Status store connected",
		zap.String("scheme", store.Scheme(url)),
		zap.String("collection", defines.StatusCollectionName))
	return nil
}
