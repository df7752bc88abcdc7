package scanner

import (
	"sync"

	"alpha-radar/src/helpers"
	"alpha-radar/src/models"
)

// Analyzer turns one symbol's series into zero or more signals. It must not keep state
// between calls: the pool runs it from many goroutines at once.
type Analyzer interface {
	AnalyzeSymbol(symbol, name string, bars []models.MBar) []models.MSignal
}

// task is one symbol submitted to the pool. Each task owns its bars slice.
type task struct {
	symbol string
	name   string
	bars   []models.MBar
	result chan<- taskResult
}

type taskResult struct {
	symbol  string
	signals []models.MSignal
	err     error
}

// -----------------------------------------------------------------------------

// workerPool is a fixed set of goroutines fed through one task queue. Results go back on the
// channel carried by each task, so a batch reads its own results in completion order.
type workerPool struct {
	tasks    chan task
	wg       sync.WaitGroup
	analyzer Analyzer
	onFault  func(*helpers.WorkerFaultError)
	closed   sync.Once
}

func newWorkerPool(workers int, analyzer Analyzer, onFault func(*helpers.WorkerFaultError)) *workerPool {
	if workers < 1 {
		workers = 1
	}

	p := &workerPool{
		tasks:    make(chan task, workers),
		analyzer: analyzer,
		onFault:  onFault,
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.work()
	}
	return p
}

// -----------------------------------------------------------------------------

func (p *workerPool) work() {
	defer p.wg.Done()
	for t := range p.tasks {
		t.result <- p.run(t)
	}
}

// run analyzes one symbol. A panic is confined to the symbol that raised it.
func (p *workerPool) run(t task) (res taskResult) {
	res.symbol = t.symbol

	defer func() {
		if r := recover(); r != nil {
			fault := helpers.NewWorkerFaultError(t.symbol, r)
			res.signals = nil
			res.err = fault
			if p.onFault != nil {
				p.onFault(fault)
			}
		}
	}()

	res.signals = p.analyzer.AnalyzeSymbol(t.symbol, t.name, t.bars)
	return res
}

// -----------------------------------------------------------------------------

// Submit queues a task, blocking while every worker is busy and the queue is full.
// The task's result channel must have room for its result.
func (p *workerPool) Submit(t task) {
	p.tasks <- t
}

// Close stops accepting tasks and waits for in-flight ones to finish.
func (p *workerPool) Close() {
	p.closed.Do(func() {
		close(p.tasks)
		p.wg.Wait()
	})
}
