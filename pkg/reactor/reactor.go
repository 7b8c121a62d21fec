package reactor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/uhyunpark/marketmaker/pkg/book"
	"github.com/uhyunpark/marketmaker/pkg/exchange"
	"github.com/uhyunpark/marketmaker/pkg/executor"
	"github.com/uhyunpark/marketmaker/pkg/schedule"
	"github.com/uhyunpark/marketmaker/pkg/strategy"
	"github.com/uhyunpark/marketmaker/pkg/util"
)

// ScheduleFunc diffs the live book against the desired one. Simple ignores
// the price points; Smart needs them.
type ScheduleFunc func(current, desired *book.Book, market string, points map[book.Side][]book.PricePoint) ([]schedule.Action, error)

// SimpleScheduler adapts schedule.Simple to the pipeline signature.
func SimpleScheduler(current, desired *book.Book, market string, _ map[book.Side][]book.PricePoint) ([]schedule.Action, error) {
	return schedule.Simple(current, desired, market)
}

// SmartScheduler binds a max order amount and adapts schedule.Smart.
func SmartScheduler(maxAmountPerOrder decimal.Decimal) ScheduleFunc {
	return func(current, desired *book.Book, market string, points map[book.Side][]book.PricePoint) ([]schedule.Action, error) {
		return schedule.Smart(current, desired, market, points, maxAmountPerOrder)
	}
}

// Pipeline is one independent reconciliation unit: reference market in,
// actions against the target market out.
type Pipeline struct {
	Name         string
	Source       exchange.Exchange
	Target       exchange.Exchange
	SourceMarket string
	TargetMarket string
	Strategy     *strategy.Strategy
	Schedule     ScheduleFunc
	Executor     *executor.Executor
	Interval     time.Duration
}

// TickStats summarizes the last completed tick of a pipeline.
type TickStats struct {
	Time    time.Time `json:"time"`
	Actions int       `json:"actions"`
	Failed  int       `json:"failed"`
	Err     string    `json:"err,omitempty"`
}

// Status is a pipeline's externally visible state, served by the API.
type Status struct {
	Name         string    `json:"name"`
	Source       string    `json:"source"`
	Target       string    `json:"target"`
	SourceMarket string    `json:"sourceMarket"`
	TargetMarket string    `json:"targetMarket"`
	IntervalMs   int64     `json:"intervalMs"`
	Ticks        uint64    `json:"ticks"`
	LastTick     TickStats `json:"lastTick"`
}

// Notifier observes completed ticks; the websocket hub implements it.
type Notifier interface {
	NotifyTick(Status)
}

// Reactor runs one goroutine per pipeline. Pipelines share nothing mutable:
// each tick's snapshots and actions are owned by the pipeline that built
// them. A faulted tick is logged and the pipeline simply waits for its next
// one; nothing a pipeline does can take down its peers or the process.
type Reactor struct {
	pipelines []*Pipeline
	clock     util.Clock
	log       *zap.SugaredLogger
	notifier  Notifier

	mu     sync.RWMutex
	status map[string]*Status
}

type Option func(*Reactor)

func WithNotifier(n Notifier) Option {
	return func(r *Reactor) { r.notifier = n }
}

// SetNotifier attaches a tick observer after construction. The API server
// reads status from the reactor and also observes its ticks, so one of the
// two references has to be wired late. Must be called before Run.
func (r *Reactor) SetNotifier(n Notifier) { r.notifier = n }

func New(log *zap.SugaredLogger, clock util.Clock, opts ...Option) *Reactor {
	r := &Reactor{
		clock:  clock,
		log:    log,
		status: map[string]*Status{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add registers a pipeline. Must be called before Run.
func (r *Reactor) Add(p *Pipeline) {
	r.pipelines = append(r.pipelines, p)
	r.status[p.Name] = &Status{
		Name:         p.Name,
		Source:       p.Source.Name(),
		Target:       p.Target.Name(),
		SourceMarket: p.SourceMarket,
		TargetMarket: p.TargetMarket,
		IntervalMs:   p.Interval.Milliseconds(),
	}
}

// Run ticks every pipeline on its own cadence until the context is
// cancelled, then waits for in-flight ticks to finish.
func (r *Reactor) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, p := range r.pipelines {
		wg.Add(1)
		go func(p *Pipeline) {
			defer wg.Done()
			r.runPipeline(ctx, p)
		}(p)
	}
	wg.Wait()
}

func (r *Reactor) runPipeline(ctx context.Context, p *Pipeline) {
	r.log.Infow("pipeline_started",
		"pipeline", p.Name,
		"source", p.Source.Name(),
		"target", p.Target.Name(),
		"interval_ms", p.Interval.Milliseconds(),
	)
	for {
		stats := r.tick(ctx, p)
		r.record(p.Name, stats)

		select {
		case <-ctx.Done():
			r.log.Infow("pipeline_stopped", "pipeline", p.Name)
			return
		case <-r.clock.After(p.Interval):
		}
	}
}

// tick runs one fetch-diff-execute cycle. Every fault, including a panic,
// is converted into TickStats so the pipeline keeps its schedule.
func (r *Reactor) tick(ctx context.Context, p *Pipeline) (stats TickStats) {
	stats.Time = r.clock.Now()
	defer func() {
		if rec := recover(); rec != nil {
			stats.Err = fmt.Sprintf("panic: %v", rec)
			r.log.Errorw("tick_panicked", "pipeline", p.Name, "err", rec)
		}
	}()

	ref, err := p.Source.FetchOrderBook(ctx, p.SourceMarket)
	if err != nil {
		stats.Err = err.Error()
		r.log.Warnw("tick_failed", "pipeline", p.Name, "stage", "fetch_reference", "err", err)
		return stats
	}
	current, err := p.Target.FetchOrderBook(ctx, p.TargetMarket)
	if err != nil {
		stats.Err = err.Error()
		r.log.Warnw("tick_failed", "pipeline", p.Name, "stage", "fetch_target", "err", err)
		return stats
	}

	desired, err := p.Strategy.DesiredBook(ctx, ref, p.TargetMarket)
	if err != nil {
		stats.Err = err.Error()
		r.log.Warnw("tick_failed", "pipeline", p.Name, "stage", "strategy", "err", err)
		return stats
	}

	actions, err := p.Schedule(current, desired.Book, p.TargetMarket, desired.Points)
	if err != nil {
		// Includes the crossed-book case: skip the tick, keep the pipeline.
		stats.Err = err.Error()
		r.log.Warnw("tick_failed", "pipeline", p.Name, "stage", "schedule", "err", err)
		return stats
	}

	stats.Actions = len(actions)
	stats.Failed = p.Executor.Execute(ctx, actions)
	return stats
}

func (r *Reactor) record(name string, stats TickStats) {
	r.mu.Lock()
	st := r.status[name]
	st.Ticks++
	st.LastTick = stats
	snapshot := *st
	r.mu.Unlock()

	if r.notifier != nil {
		r.notifier.NotifyTick(snapshot)
	}
}

// Pipelines returns a status snapshot of every pipeline.
func (r *Reactor) Pipelines() []Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Status, 0, len(r.status))
	for _, p := range r.pipelines {
		out = append(out, *r.status[p.Name])
	}
	return out
}

// Pipeline returns one pipeline's status by name.
func (r *Reactor) Pipeline(name string) (Status, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.status[name]
	if !ok {
		return Status{}, false
	}
	return *st, true
}
