package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"contas/internal/amqp"
	"contas/internal/core"
	"contas/internal/metrics"
	"contas/internal/services"
	"contas/internal/sheets"
	"contas/internal/store"
)

// ExportWorkerConfig holds configuration for the export worker
type ExportWorkerConfig struct {
	// PollInterval is how often to refresh the store and retry a failed export (default: 30s)
	PollInterval time.Duration

	// ExportTimeout bounds a single report write (default: 30s)
	ExportTimeout time.Duration

	// Month picks the reported month (default: the current month)
	Month func() core.Month
}

// DefaultExportWorkerConfig returns sensible defaults
func DefaultExportWorkerConfig() ExportWorkerConfig {
	return ExportWorkerConfig{
		PollInterval:  30 * time.Second,
		ExportTimeout: 30 * time.Second,
		Month:         core.CurrentMonth,
	}
}

type exportKey struct {
	version uint64
	month   core.Month
}

// ExportWorker keeps the monthly report in sync with the entry store. Every
// new snapshot, and every month rollover, produces one report write; a failed
// write is retried on the next poll.
type ExportWorker struct {
	reader    store.EntryReader
	views     *services.ViewService
	reports   sheets.ReportWriter
	refresher store.Refresher
	config    ExportWorkerConfig

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	// Owned by the run loop
	latest   core.Snapshot
	haveSnap bool
	exported exportKey
	done     bool
}

// NewExportWorker creates a new export worker. refresher may be nil when the
// store is not shared with other processes.
func NewExportWorker(
	reader store.EntryReader,
	views *services.ViewService,
	reports sheets.ReportWriter,
	refresher store.Refresher,
	config ExportWorkerConfig,
) *ExportWorker {
	def := DefaultExportWorkerConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = def.PollInterval
	}
	if config.ExportTimeout <= 0 {
		config.ExportTimeout = def.ExportTimeout
	}
	if config.Month == nil {
		config.Month = def.Month
	}
	return &ExportWorker{
		reader:    reader,
		views:     views,
		reports:   reports,
		refresher: refresher,
		config:    config,
	}
}

// Start subscribes to the store and begins the export loop. Returns an error
// if already running.
func (w *ExportWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("export worker is already running")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	snaps, err := w.reader.Subscribe(loopCtx, store.Filter{})
	if err != nil {
		w.mu.Unlock()
		cancel()
		return fmt.Errorf("subscribe to entry store: %w", err)
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	go w.runLoop(loopCtx, cancel, snaps)

	slog.InfoContext(ctx, "Export worker started",
		"poll_interval", w.config.PollInterval,
		"refresh", w.refresher != nil)
	return nil
}

// Stop gracefully stops the worker and waits for the loop to exit.
func (w *ExportWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	stopCh, doneCh := w.stopCh, w.doneCh
	w.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Export worker stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Export worker stop timed out")
		return ctx.Err()
	}

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
	return nil
}

// IsRunning returns whether the worker is currently running
func (w *ExportWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Done is closed when the loop exits, either by Stop or by the store ending
// the subscription.
func (w *ExportWorker) Done() <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.doneCh
}

// HandleChange reacts to an entry change announced by another process. It
// only reloads the store; the resulting snapshot reaches the run loop
// through the subscription.
func (w *ExportWorker) HandleChange(ctx context.Context, msg *amqp.EntryChangedMessage) error {
	slog.DebugContext(ctx, "Entry change received", "entry_id", msg.EntryID, "op", msg.Op)
	metrics.Notifications.WithLabelValues("in", metrics.OutcomeOK).Inc()
	if w.refresher == nil {
		return nil
	}
	if _, err := w.refresher.Refresh(ctx); err != nil {
		return fmt.Errorf("refresh after %s of %s: %w", msg.Op, msg.EntryID, err)
	}
	return nil
}

func (w *ExportWorker) runLoop(ctx context.Context, cancel context.CancelFunc, snaps <-chan core.Snapshot) {
	defer close(w.doneCh)
	defer cancel()

	pollTicker := time.NewTicker(w.config.PollInterval)
	defer pollTicker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case s, ok := <-snaps:
			if !ok {
				slog.WarnContext(ctx, "Entry subscription closed, export worker exiting")
				return
			}
			w.latest, w.haveSnap = s, true
			w.exportLatest(ctx)
		case <-pollTicker.C:
			w.poll(ctx)
		}
	}
}

// poll refreshes the store and retries the export when the last attempt
// failed or the month rolled over.
func (w *ExportWorker) poll(ctx context.Context) {
	if w.refresher != nil {
		changed, err := w.refresher.Refresh(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to refresh entry store", "error", err)
		} else if changed {
			// the new snapshot arrives through the subscription
			return
		}
	}
	w.exportLatest(ctx)
}

func (w *ExportWorker) exportLatest(ctx context.Context) {
	if !w.haveSnap {
		return
	}
	key := exportKey{version: w.latest.Version, month: w.config.Month()}
	if w.done && key == w.exported {
		return
	}

	v := w.views.Build(w.latest, key.month, "")
	wctx, cancel := context.WithTimeout(ctx, w.config.ExportTimeout)
	defer cancel()
	ref, err := w.reports.WriteMonthReport(wctx, v)
	if err != nil {
		metrics.Exports.WithLabelValues(metrics.OutcomeError).Inc()
		slog.ErrorContext(ctx, "Failed to export monthly report, will retry",
			"month", v.Month,
			"version", v.Version,
			"error", err)
		return
	}

	metrics.Exports.WithLabelValues(metrics.OutcomeOK).Inc()
	w.exported, w.done = key, true
	slog.InfoContext(ctx, "Monthly report exported",
		"month", v.Month,
		"version", v.Version,
		"entries", v.Count,
		"ref", ref)
}
