package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"contas/internal/amqp"
	"contas/internal/core"
	"contas/internal/services"
	sheetsmem "contas/internal/sheets/memory"
	"contas/internal/store/memory"
)

var jan2024 = core.Month{Year: 2024, Month: time.January}

// flakyWriter fails the first failures writes, then delegates.
type flakyWriter struct {
	*sheetsmem.Store
	mu       sync.Mutex
	failures int
}

func (f *flakyWriter) WriteMonthReport(ctx context.Context, v core.View) (string, error) {
	f.mu.Lock()
	if f.failures > 0 {
		f.failures--
		f.mu.Unlock()
		return "", errors.New("quota exceeded")
	}
	f.mu.Unlock()
	return f.Store.WriteMonthReport(ctx, v)
}

type countingRefresher struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (r *countingRefresher) Refresh(context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return false, r.err
}

func (r *countingRefresher) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func testConfig() ExportWorkerConfig {
	return ExportWorkerConfig{
		PollInterval:  20 * time.Millisecond,
		ExportTimeout: time.Second,
		Month:         func() core.Month { return jan2024 },
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func createEntry(t *testing.T, st *memory.Store) string {
	t.Helper()
	res, err := services.NewEntryService(st, nil).Create(context.Background(), core.Draft{
		Description: "Internet",
		Amount:      decimal.RequireFromString("99.90"),
		Kind:        core.Payable,
		Category:    core.Servicos,
		DueDate:     core.NewDate(2024, 1, 10),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return res.IDs[0]
}

func TestExportWorker_ExportsEachNewVersion(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	reports := sheetsmem.New()
	w := NewExportWorker(st, services.NewViewService(st, nil), reports, nil, testConfig())

	if err := w.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer w.Stop(ctx)

	waitFor(t, "initial export", func() bool { return reports.Writes() == 1 })

	createEntry(t, st)
	waitFor(t, "export of version 1", func() bool {
		v, ok := reports.LastView("2024-01", "")
		return ok && v.Version == 1 && v.Count == 1
	})

	// idle polls must not rewrite an unchanged report
	time.Sleep(80 * time.Millisecond)
	if got := reports.Writes(); got != 2 {
		t.Fatalf("expected 2 writes, got %d", got)
	}
}

func TestExportWorker_RetriesFailedExportOnPoll(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	createEntry(t, st)
	reports := &flakyWriter{Store: sheetsmem.New(), failures: 2}
	w := NewExportWorker(st, services.NewViewService(st, nil), reports, nil, testConfig())

	if err := w.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer w.Stop(ctx)

	waitFor(t, "export after retries", func() bool { return reports.Writes() == 1 })
	v, _ := reports.LastView("2024-01", "")
	if v.Count != 1 {
		t.Fatalf("unexpected exported view %+v", v)
	}
}

func TestExportWorker_PollRefreshesStore(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	ref := &countingRefresher{}
	w := NewExportWorker(st, services.NewViewService(st, nil), sheetsmem.New(), ref, testConfig())

	if err := w.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, "poll refresh", func() bool { return ref.Calls() >= 2 })
	if err := w.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if w.IsRunning() {
		t.Fatal("worker should not be running after Stop")
	}
}

func TestExportWorker_HandleChange(t *testing.T) {
	ctx := context.Background()
	msg := amqp.NewEntryChangedMessage("e-1", amqp.OpToggled)

	w := NewExportWorker(memory.New(), nil, nil, nil, ExportWorkerConfig{})
	if err := w.HandleChange(ctx, msg); err != nil {
		t.Fatalf("without refresher: %v", err)
	}

	ref := &countingRefresher{}
	w = NewExportWorker(memory.New(), nil, nil, ref, ExportWorkerConfig{})
	if err := w.HandleChange(ctx, msg); err != nil || ref.Calls() != 1 {
		t.Fatalf("expected one refresh, got calls=%d err=%v", ref.Calls(), err)
	}

	ref.err = errors.New("database is locked")
	if err := w.HandleChange(ctx, msg); err == nil {
		t.Fatal("refresh failure must be returned so the message is requeued")
	}
}

func TestExportWorker_Lifecycle(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	w := NewExportWorker(st, services.NewViewService(st, nil), sheetsmem.New(), nil, testConfig())

	if w.IsRunning() {
		t.Error("worker should not be running initially")
	}
	if err := w.Stop(ctx); err != nil {
		t.Errorf("Stop on idle worker: %v", err)
	}
	if err := w.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := w.Start(ctx); err == nil {
		t.Error("expected error when starting twice")
	}
	if err := w.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := w.Start(ctx); err != nil {
		t.Fatalf("restart: %v", err)
	}
	st.Close()
	select {
	case <-w.Done():
	case <-time.After(time.Second):
		t.Fatal("worker must exit when the subscription closes")
	}
}

func TestDefaultExportWorkerConfig(t *testing.T) {
	w := NewExportWorker(nil, nil, nil, nil, ExportWorkerConfig{})
	if w.config.PollInterval != 30*time.Second || w.config.ExportTimeout != 30*time.Second || w.config.Month == nil {
		t.Fatalf("unexpected defaults %+v", w.config)
	}
}
