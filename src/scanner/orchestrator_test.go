package scanner

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"alpha-radar/src/config"
	"alpha-radar/src/helpers"
	"alpha-radar/src/logger"
	"alpha-radar/src/metrics"
	"alpha-radar/src/models"
	"alpha-radar/src/storage"
)

// fakeAnalyzer emits one signal per symbol, panics on the listed symbols and
// optionally blocks until release is closed.
type fakeAnalyzer struct {
	panicOn map[string]bool
	entered chan struct{}
	release chan struct{}
	calls   atomic.Int64
	bars    sync.Map // symbol -> bar count
}

func (f *fakeAnalyzer) AnalyzeSymbol(symbol, name string, bars []models.MBar) []models.MSignal {
	f.calls.Add(1)
	f.bars.Store(symbol, len(bars))
	if f.entered != nil {
		select {
		case f.entered <- struct{}{}:
		default:
		}
	}
	if f.release != nil {
		<-f.release
	}
	if f.panicOn[symbol] {
		panic("corrupt series for " + symbol)
	}
	return []models.MSignal{{
		Symbol:    symbol,
		Name:      name,
		Type:      models.SignalVCP,
		Score:     75,
		Timestamp: time.Now(),
	}}
}

// -----------------------------------------------------------------------------

func symbolsN(n int) []models.MStockInfo {
	infos := make([]models.MStockInfo, n)
	for i := range infos {
		infos[i] = models.MStockInfo{Symbol: fmt.Sprintf("6000%02d", i), Name: fmt.Sprintf("Stock %d", i), Market: "SH"}
	}
	return infos
}

func seededStore(t *testing.T, n int) *storage.MemoryStore {
	t.Helper()
	store := storage.NewMemoryStore()
	ctx := context.Background()

	infos := symbolsN(n)
	if err := store.SaveUniverse(ctx, infos); err != nil {
		t.Fatalf("SaveUniverse: %v", err)
	}

	day := time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)
	var bars []models.MBar
	for _, info := range infos {
		for d := 0; d < 3; d++ {
			bars = append(bars, models.MBar{Symbol: info.Symbol, Date: day.AddDate(0, 0, d), Close: 10, Volume: 100})
		}
	}
	if err := store.SaveBarsBulk(ctx, bars); err != nil {
		t.Fatalf("SaveBarsBulk: %v", err)
	}
	return store
}

func testConfig(batch, workers int) *models.MConfig {
	cfg := config.Default("scanner-test").MConfig
	cfg.Scan.BatchSize = batch
	cfg.Scan.Workers = workers
	cfg.Scan.MaxRetries = 2
	cfg.Scan.RetryDelayMs = 0
	return cfg
}

func newTestOrchestrator(cfg *models.MConfig, store *storage.MemoryStore, a Analyzer) *ScanOrchestrator {
	return NewScanOrchestrator(cfg, store, store, a, logger.NewNop(), metrics.NewRecorder())
}

// -----------------------------------------------------------------------------

func TestRunCompletesAndPersists(t *testing.T) {
	store := seededStore(t, 25)
	o := newTestOrchestrator(testConfig(10, 4), store, &fakeAnalyzer{})

	var progress [][2]int
	var completions atomic.Int32
	var streamed atomic.Int32
	o.OnProgress = func(processed, total int) { progress = append(progress, [2]int{processed, total}) }
	o.OnSignal = func(models.MSignal) { streamed.Add(1) }
	o.OnComplete = func(*models.MScanResult) { completions.Add(1) }

	res, err := o.Run(context.Background(), "all")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.State != models.ScanCompleted || res.Processed != 25 || res.Total != 25 || len(res.Signals) != 25 {
		t.Fatalf("result = state %v processed %d/%d signals %d", res.State, res.Processed, res.Total, len(res.Signals))
	}
	if completions.Load() != 1 || streamed.Load() != 25 {
		t.Fatalf("completions = %d, streamed = %d", completions.Load(), streamed.Load())
	}
	last := progress[len(progress)-1]
	if last != [2]int{25, 25} {
		t.Fatalf("last progress = %v", last)
	}
	for _, s := range res.Signals {
		if s.ScanID != res.ScanID {
			t.Fatalf("signal %s carries scan id %q, want %q", s.Symbol, s.ScanID, res.ScanID)
		}
	}
	if o.State() != models.ScanCompleted || o.IsRunning() {
		t.Fatalf("state after run = %v running=%v", o.State(), o.IsRunning())
	}

	stored, _ := store.LatestSignals(context.Background(), 0)
	if len(stored) != 25 {
		t.Fatalf("persisted %d signals, want 25", len(stored))
	}
}

func TestWorkersGetTheirOwnSeries(t *testing.T) {
	store := seededStore(t, 5)
	a := &fakeAnalyzer{}
	o := newTestOrchestrator(testConfig(10, 2), store, a)

	if _, err := o.Run(context.Background(), ""); err != nil {
		t.Fatalf("Run: %v", err)
	}
	a.bars.Range(func(key, value any) bool {
		if value.(int) != 3 {
			t.Errorf("%v received %v bars, want 3", key, value)
		}
		return true
	})
}

// -----------------------------------------------------------------------------

func TestCancellationAfterFirstBatch(t *testing.T) {
	tests := []struct {
		name   string
		cancel func(o *ScanOrchestrator, cancelCtx context.CancelFunc)
	}{
		{"stop", func(o *ScanOrchestrator, _ context.CancelFunc) { o.Stop() }},
		{"context", func(_ *ScanOrchestrator, cancelCtx context.CancelFunc) { cancelCtx() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := seededStore(t, 30)
			o := newTestOrchestrator(testConfig(10, 4), store, &fakeAnalyzer{})
			batch := helpers.RecommendedBatchSize(10)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			var completions atomic.Int32
			o.OnProgress = func(processed, total int) {
				if processed == batch {
					tt.cancel(o, cancel)
				}
			}
			o.OnComplete = func(*models.MScanResult) { completions.Add(1) }

			res, err := o.Run(ctx, "all")
			if err != nil {
				t.Fatalf("cancelled run returned error: %v", err)
			}
			if res.State != models.ScanCancelled {
				t.Fatalf("state = %v, want cancelled", res.State)
			}
			if res.Processed < batch || res.Processed > 2*batch {
				t.Fatalf("processed = %d, want within [%d, %d]", res.Processed, batch, 2*batch)
			}
			if len(res.Signals) < batch {
				t.Fatalf("first batch signals lost: %d", len(res.Signals))
			}
			if completions.Load() != 1 {
				t.Fatalf("OnComplete fired %d times", completions.Load())
			}

			stored, _ := store.LatestSignals(context.Background(), 0)
			if len(stored) != 0 {
				t.Fatalf("cancelled run persisted %d signals", len(stored))
			}
		})
	}
}

func TestPersistPartialKeepsCancelledSignals(t *testing.T) {
	store := seededStore(t, 30)
	cfg := testConfig(10, 4)
	cfg.Scan.PersistPartial = true
	o := newTestOrchestrator(cfg, store, &fakeAnalyzer{})
	o.OnProgress = func(int, int) { o.Stop() }

	res, _ := o.Run(context.Background(), "all")
	stored, _ := store.LatestSignals(context.Background(), 0)
	if res.State != models.ScanCancelled || len(stored) != len(res.Signals) {
		t.Fatalf("state %v, stored %d, collected %d", res.State, len(stored), len(res.Signals))
	}
}

func TestStopWhenIdleIsNoop(t *testing.T) {
	o := newTestOrchestrator(testConfig(10, 1), storage.NewMemoryStore(), &fakeAnalyzer{})
	o.Stop()
	o.Stop()
	if o.State() != models.ScanIdle {
		t.Fatalf("state = %v, want idle", o.State())
	}
}

// -----------------------------------------------------------------------------

func TestWorkerPanicIsIsolated(t *testing.T) {
	store := seededStore(t, 12)
	a := &fakeAnalyzer{panicOn: map[string]bool{"600003": true}}
	o := newTestOrchestrator(testConfig(5, 3), store, a)

	res, err := o.Run(context.Background(), "all")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.State != models.ScanCompleted || res.Processed != 12 || len(res.Signals) != 11 {
		t.Fatalf("state %v processed %d signals %d", res.State, res.Processed, len(res.Signals))
	}
	for _, s := range res.Signals {
		if s.Symbol == "600003" {
			t.Fatalf("faulted symbol produced a signal")
		}
	}

	rec := httptest.NewRecorder()
	o.Metrics.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "alpharadar_worker_faults_total 1") {
		t.Fatalf("fault counter not incremented")
	}
}

func TestSecondRunIsRejected(t *testing.T) {
	store := seededStore(t, 3)
	a := &fakeAnalyzer{entered: make(chan struct{}, 1), release: make(chan struct{})}
	o := newTestOrchestrator(testConfig(10, 1), store, a)

	done := make(chan *models.MScanResult)
	go func() {
		res, _ := o.Run(context.Background(), "all")
		done <- res
	}()

	<-a.entered
	if _, err := o.Run(context.Background(), "all"); !errors.Is(err, ErrScanInProgress) {
		t.Fatalf("second Run error = %v, want ErrScanInProgress", err)
	}
	if o.State() != models.ScanRunning {
		t.Fatalf("state during run = %v", o.State())
	}

	close(a.release)
	if res := <-done; res.State != models.ScanCompleted {
		t.Fatalf("first run ended %v", res.State)
	}

	// The slot frees up once the first run is terminal
	if _, err := o.Run(context.Background(), "all"); err != nil {
		t.Fatalf("third Run: %v", err)
	}
}

// -----------------------------------------------------------------------------

func TestEmptyUniverseClearsToday(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()
	_ = store.SaveSignalsBatch(ctx, []models.MSignal{{Symbol: "600000", Timestamp: time.Now()}})

	o := newTestOrchestrator(testConfig(10, 2), store, &fakeAnalyzer{})
	var completions atomic.Int32
	o.OnComplete = func(*models.MScanResult) { completions.Add(1) }

	res, err := o.Run(ctx, "all")
	if err != nil || res.State != models.ScanCompleted || res.Total != 0 {
		t.Fatalf("empty run = %+v, %v", res, err)
	}
	if completions.Load() != 1 {
		t.Fatalf("OnComplete fired %d times", completions.Load())
	}
	if stored, _ := store.LatestSignals(ctx, 0); len(stored) != 0 {
		t.Fatalf("today's signals survived an empty run: %d", len(stored))
	}
}

func TestRerunSupersedesSameDay(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t, 8)
	o := newTestOrchestrator(testConfig(4, 2), store, &fakeAnalyzer{})
	if _, err := o.Run(ctx, "all"); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	o.Analyzer = &fakeAnalyzer{panicOn: map[string]bool{"600000": true, "600001": true}}
	second, err := o.Run(ctx, "all")
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}

	stored, _ := store.LatestSignals(ctx, 0)
	if len(stored) != 6 {
		t.Fatalf("stored %d signals, want the second run's 6", len(stored))
	}
	for _, s := range stored {
		if s.ScanID != second.ScanID {
			t.Fatalf("stale signal from scan %s", s.ScanID)
		}
	}
}

// -----------------------------------------------------------------------------

// flakyStore fails selected calls on top of a MemoryStore.
type flakyStore struct {
	*storage.MemoryStore
	failUniverse bool
	failSymbol   string
	fetches      atomic.Int32
}

func (f *flakyStore) FetchSymbolUniverse(ctx context.Context, tag string) ([]models.MStockInfo, error) {
	if f.failUniverse {
		return nil, errors.New("universe unavailable")
	}
	return f.MemoryStore.FetchSymbolUniverse(ctx, tag)
}

func (f *flakyStore) FetchHistoryBatch(ctx context.Context, symbols []string, lookbackDays int) ([]models.MBar, error) {
	f.fetches.Add(1)
	for _, s := range symbols {
		if s == f.failSymbol {
			return nil, errors.New("batch unavailable")
		}
	}
	return f.MemoryStore.FetchHistoryBatch(ctx, symbols, lookbackDays)
}

func TestUniverseFailureFailsRun(t *testing.T) {
	store := &flakyStore{MemoryStore: seededStore(t, 4), failUniverse: true}
	o := NewScanOrchestrator(testConfig(10, 1), store, store, &fakeAnalyzer{}, logger.NewNop(), nil)

	var completions atomic.Int32
	o.OnComplete = func(*models.MScanResult) { completions.Add(1) }

	res, err := o.Run(context.Background(), "all")
	if err == nil || res.State != models.ScanFailed || res.Error == "" {
		t.Fatalf("result = %+v, err = %v", res, err)
	}
	if completions.Load() != 1 {
		t.Fatalf("OnComplete fired %d times", completions.Load())
	}
}

func TestFailedBatchIsSkipped(t *testing.T) {
	base := seededStore(t, 10)
	store := &flakyStore{MemoryStore: base, failSymbol: "600002"}
	o := NewScanOrchestrator(testConfig(5, 2), store, store, &fakeAnalyzer{}, logger.NewNop(), nil)
	batch := helpers.RecommendedBatchSize(5)

	var progress [][2]int
	o.OnProgress = func(processed, total int) { progress = append(progress, [2]int{processed, total}) }

	res, err := o.Run(context.Background(), "all")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.State != models.ScanCompleted || res.Processed != 10 || len(res.Signals) != 10-batch {
		t.Fatalf("state %v processed %d signals %d", res.State, res.Processed, len(res.Signals))
	}
	batches := (10 + batch - 1) / batch
	if got := int(store.fetches.Load()); got != batches+1 {
		t.Fatalf("fetches = %d, want %d batches plus one retry", got, batches+1)
	}
	if len(progress) != batches || progress[len(progress)-1] != [2]int{10, 10} {
		t.Fatalf("progress = %v, want one report per batch ending at 10/10", progress)
	}
}

// -----------------------------------------------------------------------------

type recordingExchanger struct {
	mu     sync.Mutex
	events []models.MScanEvent
}

func (r *recordingExchanger) Broadcast(event models.MScanEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}
func (r *recordingExchanger) Start() error { return nil }
func (r *recordingExchanger) Stop() error  { return nil }

type recordingSink struct {
	published []*models.MScanResult
	err       error
}

func (s *recordingSink) Name() string { return "recording" }
func (s *recordingSink) Publish(_ context.Context, r *models.MScanResult) error {
	s.published = append(s.published, r)
	return s.err
}
func (s *recordingSink) Close() error { return nil }

func TestEventsAndSinks(t *testing.T) {
	store := seededStore(t, 4)
	o := newTestOrchestrator(testConfig(10, 2), store, &fakeAnalyzer{})
	ex := &recordingExchanger{}
	ok, broken := &recordingSink{}, &recordingSink{err: errors.New("down")}
	o.Exchanger = ex
	o.AddSink(broken)
	o.AddSink(ok)

	res, err := o.Run(context.Background(), "all")
	if err != nil || res.State != models.ScanCompleted {
		t.Fatalf("a failing sink must not fail the scan: %v %v", res.State, err)
	}
	if len(ok.published) != 1 || len(broken.published) != 1 {
		t.Fatalf("sinks called %d / %d times", len(ok.published), len(broken.published))
	}

	counts := map[string]int{}
	for _, e := range ex.events {
		counts[e.Type]++
	}
	want := map[string]int{models.EventStatus: 1, models.EventSignal: 4, models.EventProgress: 1, models.EventCompleted: 1}
	for typ, n := range want {
		if counts[typ] != n {
			t.Errorf("%s events = %d, want %d", typ, counts[typ], n)
		}
	}
	if first, last := ex.events[0].Type, ex.events[len(ex.events)-1].Type; first != models.EventStatus || last != models.EventCompleted {
		t.Fatalf("event order %s ... %s", first, last)
	}
}

func TestStartRunsInBackground(t *testing.T) {
	store := seededStore(t, 6)
	a := &fakeAnalyzer{entered: make(chan struct{}, 1), release: make(chan struct{})}
	o := newTestOrchestrator(testConfig(10, 2), store, a)

	done := make(chan *models.MScanResult, 1)
	o.OnComplete = func(r *models.MScanResult) { done <- r }

	if err := o.Start(context.Background(), "all"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	<-a.entered
	if err := o.Start(context.Background(), "all"); !errors.Is(err, ErrScanInProgress) {
		t.Fatalf("second Start error = %v", err)
	}

	close(a.release)
	select {
	case res := <-done:
		if res.State != models.ScanCompleted || len(res.Signals) != 6 {
			t.Fatalf("background run = %v with %d signals", res.State, len(res.Signals))
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("background run did not complete")
	}
}

func TestStopRightAfterStart(t *testing.T) {
	for i := 0; i < 20; i++ {
		store := seededStore(t, 30)
		a := &fakeAnalyzer{release: make(chan struct{})}
		o := newTestOrchestrator(testConfig(10, 2), store, a)

		done := make(chan *models.MScanResult, 1)
		o.OnComplete = func(r *models.MScanResult) { done <- r }

		if err := o.Start(context.Background(), "all"); err != nil {
			t.Fatalf("Start: %v", err)
		}
		if st := o.State(); st != models.ScanRunning {
			t.Fatalf("state right after Start = %v, want running", st)
		}
		o.Stop()
		close(a.release)

		select {
		case res := <-done:
			if res.State != models.ScanCancelled || res.Processed != 0 {
				t.Fatalf("run %d: state %v processed %d/%d", i, res.State, res.Processed, res.Total)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("run %d did not finish", i)
		}

		saved, err := store.LatestSignals(context.Background(), 0)
		if err != nil || len(saved) != 0 {
			t.Fatalf("run %d persisted %d signals (%v)", i, len(saved), err)
		}
	}
}
