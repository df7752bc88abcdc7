package scanner

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"alpha-radar/src/analysis"
	"alpha-radar/src/helpers"
	"alpha-radar/src/interfaces"
	"alpha-radar/src/logger"
	"alpha-radar/src/metrics"
	"alpha-radar/src/models"

	"github.com/google/uuid"
)

// ErrScanInProgress is returned by Run while another run is active.
var ErrScanInProgress = errors.New("scan already in progress")

// -----------------------------------------------------------------------------

// ScanOrchestrator runs one market scan at a time: it pulls symbol batches from the bar store,
// fans them out to a worker pool, collects signals and persists them once at the end.
type ScanOrchestrator struct {
	Config   *models.MConfig
	Bars     interfaces.IBarStore
	Signals  interfaces.ISignalStore
	Analyzer Analyzer
	Logger   *logger.Logger
	Metrics  *metrics.Recorder

	// Optional push target for progress, signal and completion events
	Exchanger interfaces.IDataExchanger

	// Callbacks run on the orchestrating goroutine
	OnProgress func(processed, total int)
	OnSignal   func(signal models.MSignal)
	OnComplete func(result *models.MScanResult)

	sinks   []interfaces.ISignalSink
	running atomic.Bool

	mu     sync.RWMutex
	status models.MScanStatus
	stop   *atomic.Bool
}

// -----------------------------------------------------------------------------

func NewScanOrchestrator(cfg *models.MConfig, bars interfaces.IBarStore, signals interfaces.ISignalStore, analyzer Analyzer, log *logger.Logger, rec *metrics.Recorder) *ScanOrchestrator {
	return &ScanOrchestrator{
		Config:   cfg,
		Bars:     bars,
		Signals:  signals,
		Analyzer: analyzer,
		Logger:   log,
		Metrics:  rec,
		status:   models.MScanStatus{State: models.ScanIdle},
	}
}

// AddSink registers a post-completion publisher.
func (o *ScanOrchestrator) AddSink(sink interfaces.ISignalSink) {
	o.sinks = append(o.sinks, sink)
}

// -----------------------------------------------------------------------------
// Snapshots
// -----------------------------------------------------------------------------

func (o *ScanOrchestrator) Status() models.MScanStatus {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.status
}

func (o *ScanOrchestrator) State() models.MScanState {
	return o.Status().State
}

func (o *ScanOrchestrator) Progress() models.MScanProgress {
	s := o.Status()
	return models.MScanProgress{ScanID: s.ScanID, Processed: s.Processed, Total: s.Total}
}

// IsRunning reports whether a run is active, including while it is cancelling.
func (o *ScanOrchestrator) IsRunning() bool {
	return o.running.Load()
}

// -----------------------------------------------------------------------------

// Stop asks the active run to cancel. It is idempotent and a no-op when idle.
func (o *ScanOrchestrator) Stop() {
	o.mu.Lock()
	stop := o.stop
	o.mu.Unlock()

	if stop != nil {
		o.cancelRun(stop)
	}
}

// cancelRun sets the run's token and moves Running to Cancelling. A token from an
// earlier run leaves the current status alone.
func (o *ScanOrchestrator) cancelRun(stop *atomic.Bool) {
	stop.Store(true)

	o.mu.Lock()
	if o.stop == stop && o.status.State == models.ScanRunning {
		o.status.State = models.ScanCancelling
		o.Logger.Info("Scan %s cancelling", o.status.ScanID)
	}
	o.mu.Unlock()
}

func (o *ScanOrchestrator) updateStatus(fn func(s *models.MScanStatus)) models.MScanStatus {
	o.mu.Lock()
	defer o.mu.Unlock()
	fn(&o.status)
	return o.status
}

// -----------------------------------------------------------------------------
// Run
// -----------------------------------------------------------------------------

// Run scans the universe behind universeTag and blocks until the run is terminal.
// A cancelled run returns its partial result and a nil error; a failed run returns
// the result together with the failure.
func (o *ScanOrchestrator) Run(ctx context.Context, universeTag string) (*models.MScanResult, error) {
	if !o.running.CompareAndSwap(false, true) {
		return nil, ErrScanInProgress
	}
	defer o.running.Store(false)

	return o.run(ctx, o.begin(universeTag))
}

// Start launches a run in the background and returns once it is claimed. The outcome is
// delivered through OnComplete and the status snapshot. Stop takes effect from the moment
// Start returns.
func (o *ScanOrchestrator) Start(ctx context.Context, universeTag string) error {
	if !o.running.CompareAndSwap(false, true) {
		return ErrScanInProgress
	}
	result := o.begin(universeTag)

	go func() {
		defer o.running.Store(false)
		if _, err := o.run(ctx, result); err != nil {
			o.Logger.Error("Background scan failed: %v", err)
		}
	}()
	return nil
}

// begin publishes a fresh identity and stop token for a claimed run.
func (o *ScanOrchestrator) begin(universeTag string) *activeRun {
	run := &activeRun{
		stop: &atomic.Bool{},
		result: &models.MScanResult{
			ScanID:      uuid.NewString(),
			UniverseTag: universeTag,
			State:       models.ScanRunning,
			StartedAt:   time.Now().UTC(),
		},
	}

	o.updateStatus(func(s *models.MScanStatus) {
		*s = models.MScanStatus{ScanID: run.result.ScanID, State: models.ScanRunning, StartedAt: run.result.StartedAt}
		o.stop = run.stop
	})
	return run
}

type activeRun struct {
	result *models.MScanResult
	stop   *atomic.Bool
}

func (o *ScanOrchestrator) run(ctx context.Context, active *activeRun) (*models.MScanResult, error) {
	result, stop := active.result, active.stop
	universeTag := result.UniverseTag

	status := o.Status()
	o.push(models.MScanEvent{Type: models.EventStatus, Status: &status})
	o.Logger.Info("Scan %s started (universe: %q)", result.ScanID, universeTag)

	// Context cancellation behaves like Stop
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-runCtx.Done()
		if ctx.Err() != nil {
			o.cancelRun(stop)
		}
	}()

	state, err := o.execute(ctx, runCtx, universeTag, result, stop)
	o.finish(result, state, err)
	if state == models.ScanFailed {
		return result, err
	}
	return result, nil
}

// execute walks the run through the universe. The pool is drained before it returns, so
// no task is still running once the terminal state is published.
func (o *ScanOrchestrator) execute(ctx, runCtx context.Context, universeTag string, result *models.MScanResult, stop *atomic.Bool) (models.MScanState, error) {
	// 1. Pool lives for the whole run
	pool := newWorkerPool(o.workerCount(), o.Analyzer, func(fault *helpers.WorkerFaultError) {
		o.Logger.Error("%v", fault)
		o.Metrics.WorkerFault()
	})
	defer pool.Close()

	// 2. Universe
	universe, err := helpers.RetryWithBackoff(runCtx, o.Logger, "fetch universe", o.Config.Scan.MaxRetries, o.retryDelay(),
		func(ctx context.Context) ([]models.MStockInfo, error) {
			return o.Bars.FetchSymbolUniverse(ctx, universeTag)
		})
	if err != nil {
		if o.stopRequested(runCtx, stop) {
			return models.ScanCancelled, nil
		}
		return models.ScanFailed, err
	}
	if o.Config.Quality.UniverseFilter {
		universe = analysis.FilterUniverse(universe)
	}

	result.Total = len(universe)
	o.updateStatus(func(s *models.MScanStatus) { s.Total = result.Total })
	o.Metrics.ScanStarted(result.Total)

	// 3. Batches
	o.scanBatches(runCtx, pool, universe, result, stop)

	if o.stopRequested(runCtx, stop) {
		if o.Config.Scan.PersistPartial {
			if err := o.persist(context.WithoutCancel(ctx), result); err != nil {
				o.Logger.Error("Failed to persist partial scan %s: %v", result.ScanID, err)
			}
		}
		return models.ScanCancelled, nil
	}

	// 4. Persist once, then fan out
	if err := o.persist(ctx, result); err != nil {
		return models.ScanFailed, err
	}
	o.publish(ctx, result)

	return models.ScanCompleted, nil
}

// -----------------------------------------------------------------------------

func (o *ScanOrchestrator) scanBatches(ctx context.Context, pool *workerPool, universe []models.MStockInfo, result *models.MScanResult, stop *atomic.Bool) {
	names := make(map[string]string, len(universe))
	for _, info := range universe {
		names[info.Symbol] = info.Name
	}

	batchSize := helpers.RecommendedBatchSize(o.Config.Scan.BatchSize)
	failures := helpers.NewErrorHandler(o.Logger)

	for start := 0; start < len(universe); start += batchSize {
		if o.stopRequested(ctx, stop) {
			return
		}

		batch := universe[start:min(start+batchSize, len(universe))]
		symbols := make([]string, len(batch))
		for i, info := range batch {
			symbols[i] = info.Symbol
		}

		// Fetch with retry; a lost batch counts as processed
		rows, err := helpers.RetryWithBackoff(ctx, o.Logger, "fetch history batch", o.Config.Scan.MaxRetries, o.retryDelay(),
			func(ctx context.Context) ([]models.MBar, error) {
				return o.Bars.FetchHistoryBatch(ctx, symbols, o.Config.Scan.LookbackDays)
			})
		if err != nil {
			if o.stopRequested(ctx, stop) {
				return
			}
			failures.Handle(failures.Categorize("fetch history batch", err), fmt.Sprintf("batch %d-%d (skipped)", start, start+len(batch)))
			if failures.TooManyErrors() {
				o.Logger.Warning("%d consecutive batches failed, check the bar store", failures.ErrorCount)
				failures.ResetErrorCount()
			}
			o.advance(result, len(batch))
			o.reportProgress(result)
			continue
		}
		failures.ResetErrorCount()

		// Submit one task per symbol; each batch has its own result channel
		grouped := models.GroupBarsBySymbol(rows)
		results := make(chan taskResult, len(symbols))
		submitted := 0
		for _, sym := range symbols {
			if stop.Load() {
				break
			}
			pool.Submit(task{symbol: sym, name: names[sym], bars: grouped[sym], result: results})
			submitted++
		}

		// Completion order; results arriving after Stop are dropped
		for i := 0; i < submitted; i++ {
			res := <-results
			if stop.Load() {
				return
			}
			o.collect(result, res)
		}

		o.reportProgress(result)
	}
}

// collect records one finished symbol.
func (o *ScanOrchestrator) collect(result *models.MScanResult, res taskResult) {
	for _, sig := range res.signals {
		sig.ScanID = result.ScanID
		result.Signals = append(result.Signals, sig)
		o.Metrics.Signal(string(sig.Type))
		if o.OnSignal != nil {
			o.OnSignal(sig)
		}
		pushed := sig
		o.push(models.MScanEvent{Type: models.EventSignal, Signal: &pushed})
	}

	o.advance(result, 1)
	o.updateStatus(func(s *models.MScanStatus) { s.SignalCount = len(result.Signals) })
}

func (o *ScanOrchestrator) advance(result *models.MScanResult, n int) {
	result.Processed += n
	o.updateStatus(func(s *models.MScanStatus) { s.Processed = result.Processed })
	o.Metrics.Progress(result.Processed)
}

func (o *ScanOrchestrator) reportProgress(result *models.MScanResult) {
	o.Logger.Info("Scan %s: %d/%d symbols, %d signals", result.ScanID, result.Processed, result.Total, len(result.Signals))
	if o.OnProgress != nil {
		o.OnProgress(result.Processed, result.Total)
	}
	o.push(models.MScanEvent{
		Type:     models.EventProgress,
		Progress: &models.MScanProgress{ScanID: result.ScanID, Processed: result.Processed, Total: result.Total},
	})
}

// -----------------------------------------------------------------------------

func (o *ScanOrchestrator) persist(ctx context.Context, result *models.MScanResult) error {
	_, err := helpers.RetryWithBackoff(ctx, o.Logger, "save signals", o.Config.Scan.MaxRetries, o.retryDelay(),
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, o.Signals.SaveSignalsBatch(ctx, result.Signals)
		})
	if err != nil {
		return err
	}
	o.Logger.Info("Scan %s persisted %d signals", result.ScanID, len(result.Signals))
	return nil
}

// publish fans the result out to the sinks. Sink failures never fail the scan.
func (o *ScanOrchestrator) publish(ctx context.Context, result *models.MScanResult) {
	for _, sink := range o.sinks {
		if err := sink.Publish(ctx, result); err != nil {
			o.Logger.Warning("Sink %s failed for scan %s: %v", sink.Name(), result.ScanID, err)
			o.Metrics.SinkError(sink.Name())
		}
	}
}

// finish moves the run to its terminal state and notifies listeners. Run calls it exactly once.
func (o *ScanOrchestrator) finish(result *models.MScanResult, state models.MScanState, err error) {
	result.State = state
	result.FinishedAt = time.Now().UTC()
	if err != nil {
		result.Err = err
		result.Error = err.Error()
	}

	status := o.updateStatus(func(s *models.MScanStatus) {
		s.State = state
		s.Processed = result.Processed
		s.Total = result.Total
		s.SignalCount = len(result.Signals)
		s.FinishedAt = result.FinishedAt
		s.LastError = result.Error
	})

	elapsed := result.FinishedAt.Sub(result.StartedAt)
	o.Metrics.ScanFinished(state.String(), elapsed.Seconds())
	o.Logger.Info("Scan %s %s in %v: %d/%d symbols, %d signals", result.ScanID, state, elapsed.Round(time.Millisecond),
		result.Processed, result.Total, len(result.Signals))

	if o.OnComplete != nil {
		o.OnComplete(result)
	}
	o.push(models.MScanEvent{Type: models.EventCompleted, Status: &status})
}

// -----------------------------------------------------------------------------

// stopRequested reads the run's token. A cancelled context sets it first, so the
// caller never races the watcher goroutine.
func (o *ScanOrchestrator) stopRequested(ctx context.Context, stop *atomic.Bool) bool {
	if ctx.Err() != nil {
		o.cancelRun(stop)
	}
	return stop.Load()
}

func (o *ScanOrchestrator) push(event models.MScanEvent) {
	if o.Exchanger == nil {
		return
	}
	event.Sent = time.Now().UTC().Unix()
	o.Exchanger.Broadcast(event)
}

func (o *ScanOrchestrator) workerCount() int {
	if o.Config.Scan.Workers > 0 {
		return o.Config.Scan.Workers
	}
	return runtime.NumCPU()
}

func (o *ScanOrchestrator) retryDelay() time.Duration {
	return time.Duration(o.Config.Scan.RetryDelayMs) * time.Millisecond
}
