// Package status keeps a node's runtime status and publishes it to the
// global status collection.
//
// A Helper owns one in-memory snapshot. Refresh repopulates it from host
// telemetry, Sync upserts it keyed by (ip, port) and adopts the document the
// store returns, and StartPeriodicUpdate runs refresh-then-sync on a ticker.
//
// StatusLock is advisory: it only makes SetStatus and SetComputeType no-ops.
// Ticks are spaced by wall clock and do not wait for the previous tick's
// sync; two in-flight upserts on the same key resolve last-write-wins at the
// store.
package status

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/3leaps/eae-utils/pkg/defines"
	"github.com/3leaps/eae-utils/pkg/errstack"
	"github.com/3leaps/eae-utils/pkg/model"
	"github.com/3leaps/eae-utils/pkg/store"
	"github.com/3leaps/eae-utils/pkg/telemetry"
)

// Config seeds the snapshot and wires collaborators. Zero values take the
// defaults noted on each field.
type Config struct {
	// Type is the service category tag. Default: "eae-service".
	Type string

	// Port is this node's service port, half of the document key. Default: 8080.
	Port int

	// ComputeType lists supported compute capabilities. Default: empty.
	ComputeType []string

	// Status is the initial status label. Default: "eae_service_idle".
	Status string

	// StatusLock starts the helper locked. Default: Unlocked.
	StatusLock model.LockState

	// Version is published as-is. Default: nil.
	Version *string

	// Logger receives helper diagnostics. Default: no-op.
	Logger *zap.Logger

	// Telemetry supplies host information for Refresh. Default: telemetry.NewHost.
	Telemetry telemetry.Provider

	// Metrics records refresh and sync activity. Default: nil (disabled).
	Metrics *Metrics

	// ErrorSink receives errors from periodic syncs.
	// Default: logged at warn level, throttled.
	ErrorSink func(error)
}

// Helper owns one node's status snapshot.
type Helper struct {
	mu         sync.Mutex
	data       model.Status
	collection store.Collection
	conn       store.Connection

	// periodic update loop; nil when stopped.
	ticker   *time.Ticker
	stopLoop chan struct{}
	loopDone chan struct{}

	logger    *zap.Logger
	telemetry telemetry.Provider
	metrics   *Metrics
	errorSink func(error)

	// stopped is set by StopPeriodicUpdate so a connection that arrives
	// afterwards is closed instead of wired.
	stopped bool

	ready     chan struct{}
	readyOnce sync.Once
	initErr   error
}

// New returns a Helper whose snapshot is the status template overridden by
// cfg. It performs no I/O; collaborators are wired with SetCollection and
// SetConnection.
func New(cfg Config) *Helper {
	h := newHelper(cfg)
	h.markReady(nil)
	return h
}

func newHelper(cfg Config) *Helper {
	data := model.DefaultStatus()
	if cfg.Type != "" {
		data.Type = cfg.Type
	}
	if cfg.Port != 0 {
		data.Port = cfg.Port
	}
	if cfg.ComputeType != nil {
		data.ComputeType = append([]string{}, cfg.ComputeType...)
	}
	if cfg.Status != "" {
		data.Status = cfg.Status
	}
	data.StatusLock = cfg.StatusLock
	if cfg.Version != nil {
		v := *cfg.Version
		data.Version = &v
	}

	h := &Helper{
		data:      data,
		logger:    cfg.Logger,
		telemetry: cfg.Telemetry,
		metrics:   cfg.Metrics,
		errorSink: cfg.ErrorSink,
		ready:     make(chan struct{}),
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	if h.telemetry == nil {
		h.telemetry = telemetry.NewHost(h.logger)
	}
	if h.errorSink == nil {
		h.errorSink = h.throttledLogSink()
	}
	return h
}

// throttledLogSink logs the first few sync failures, then at most one every
// ten minutes while the store stays unreachable.
func (h *Helper) throttledLogSink() func(error) {
	sometimes := &rate.Sometimes{First: 3, Interval: 10 * time.Minute}
	return func(err error) {
		h.logger.Debug("Status sync failed", zap.Error(err))
		sometimes.Do(func() {
			h.logger.Warn("Status sync failed", zap.Error(err))
		})
	}
}

// Snapshot returns a deep copy of the current snapshot.
func (h *Helper) Snapshot() model.Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.data.Clone()
}

// Status returns the current status label.
func (h *Helper) Status() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.data.Status
}

// SetStatus sets the status label unless the snapshot is locked and returns
// the resulting label.
func (h *Helper) SetStatus(status string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.data.StatusLock.IsLocked() {
		h.data.Status = status
	}
	return h.data.Status
}

// ComputeType returns a copy of the supported compute types.
func (h *Helper) ComputeType() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string{}, h.data.ComputeType...)
}

// SetComputeType replaces the compute types unless the snapshot is locked and
// returns the resulting list.
func (h *Helper) SetComputeType(types []string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.data.StatusLock.IsLocked() {
		h.data.ComputeType = append([]string{}, types...)
	}
	return append([]string{}, h.data.ComputeType...)
}

// StatusLock returns the advisory lock state.
func (h *Helper) StatusLock() model.LockState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.data.StatusLock
}

// SetStatusLock sets the advisory lock state.
func (h *Helper) SetStatusLock(lock model.LockState) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.data.StatusLock = lock
}

// SetCollection wires the collection Sync upserts into.
func (h *Helper) SetCollection(c store.Collection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.collection = c
}

// SetConnection hands the helper a connection to close on StopPeriodicUpdate.
func (h *Helper) SetConnection(c store.Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conn = c
}

// Connected reports whether a collection is wired.
func (h *Helper) Connected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.collection != nil
}

// Refresh repopulates the host fields of the snapshot from telemetry.
// It does no remote I/O.
func (h *Helper) Refresh() {
	snap := h.telemetry.Snapshot()
	now := time.Now().UTC()

	cores := make([]model.Core, 0, len(snap.CPUs))
	for _, c := range snap.CPUs {
		cores = append(cores, model.Core{Model: c.Model, MHz: c.MHz})
	}

	h.mu.Lock()
	h.data.LastUpdate = &now
	h.data.IP = snap.Address
	h.data.Hostname = snap.Hostname
	h.data.System = model.SystemInfo{
		Arch:     snap.Arch,
		Type:     snap.OSType,
		Platform: snap.Platform,
		Version:  snap.Release,
	}
	h.data.Memory = model.MemoryInfo{
		Total: telemetry.FormatBytes(snap.TotalMemory),
		Free:  telemetry.FormatBytes(snap.FreeMemory),
	}
	h.data.CPU = model.CPUInfo{Cores: cores, LoadAvg: snap.LoadAvg}
	h.mu.Unlock()

	h.metrics.recordRefresh()
}

// Sync upserts the snapshot keyed by (ip, port) and replaces the snapshot
// with the stored document.
//
// It fails with an errstack.ErrNoCollection error when no collection is
// wired, and with an errstack.ErrSync error when the store rejects the
// upsert. The snapshot is left unchanged on failure. Sync does not retry.
func (h *Helper) Sync(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	h.mu.Lock()
	coll := h.collection
	doc := h.data.Clone()
	h.mu.Unlock()

	if coll == nil {
		h.metrics.recordSync(resultNoCollection, 0)
		return errstack.NoCollection()
	}

	start := time.Now()
	updated, err := coll.FindOneAndUpdate(ctx, doc.Key(), doc)
	if err != nil {
		h.metrics.recordSync(resultError, time.Since(start))
		return errstack.SyncFailed(err)
	}
	h.metrics.recordSync(resultOK, time.Since(start))

	h.mu.Lock()
	h.data = updated
	h.mu.Unlock()

	h.logger.Debug("Status synced",
		zap.String("ip", updated.IP),
		zap.Int("port", updated.Port),
		zap.String("status", updated.Status))
	return nil
}

// StartPeriodicUpdate runs Refresh then Sync every delay, replacing any
// running loop. A non-positive delay uses defines.DefaultUpdateInterval.
//
// Each tick's Sync runs in its own goroutine; its error goes to the error
// sink and never stops the loop.
func (h *Helper) StartPeriodicUpdate(delay time.Duration) {
	if delay <= 0 {
		delay = defines.DefaultUpdateInterval
	}
	h.stopLoopIfRunning()

	ticker := time.NewTicker(delay)
	stop := make(chan struct{})
	done := make(chan struct{})

	h.mu.Lock()
	h.ticker, h.stopLoop, h.loopDone = ticker, stop, done
	h.stopped = false
	h.mu.Unlock()

	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				h.tick()
			}
		}
	}()

	h.logger.Debug("Periodic status update started", zap.Duration("interval", delay))
}

func (h *Helper) tick() {
	h.Refresh()
	go func() {
		if err := h.Sync(context.Background()); err != nil {
			h.errorSink(err)
		}
	}()
}

// Running reports whether the periodic update loop is active.
func (h *Helper) Running() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ticker != nil
}

// StopPeriodicUpdate stops the loop if running and force-closes the wired
// connection, if any. A connection still being opened by NewHelper is closed
// when it arrives. In-flight syncs are not aborted. Calling it again is a
// no-op.
func (h *Helper) StopPeriodicUpdate() {
	h.stopLoopIfRunning()

	h.mu.Lock()
	conn := h.conn
	h.conn = nil
	h.stopped = true
	h.mu.Unlock()

	if conn == nil {
		return
	}
	if err := conn.Close(context.Background(), true); err != nil {
		h.logger.Warn("Failed to close status store connection", zap.Error(err))
	}
}

func (h *Helper) stopLoopIfRunning() {
	h.mu.Lock()
	ticker, stop, done := h.ticker, h.stopLoop, h.loopDone
	h.ticker, h.stopLoop, h.loopDone = nil, nil, nil
	h.mu.Unlock()

	if ticker == nil {
		return
	}
	ticker.Stop()
	close(stop)
	<-done
}

// Ready is closed once connection setup started by NewHelper has finished,
// successfully or not. It is already closed for helpers built with New.
func (h *Helper) Ready() <-chan struct{} {
	return h.ready
}

// InitErr returns the connection error reported during NewHelper setup.
func (h *Helper) InitErr() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.initErr
}

func (h *Helper) markReady(err error) {
	h.readyOnce.Do(func() {
		h.mu.Lock()
		h.initErr = err
		h.mu.Unlock()
		close(h.ready)
	})
}
