package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/uhyunpark/marketmaker/params"
	"github.com/uhyunpark/marketmaker/pkg/api"
	"github.com/uhyunpark/marketmaker/pkg/book"
	"github.com/uhyunpark/marketmaker/pkg/exchange"
	"github.com/uhyunpark/marketmaker/pkg/executor"
	"github.com/uhyunpark/marketmaker/pkg/journal"
	"github.com/uhyunpark/marketmaker/pkg/rate"
	"github.com/uhyunpark/marketmaker/pkg/reactor"
	"github.com/uhyunpark/marketmaker/pkg/schedule"
	"github.com/uhyunpark/marketmaker/pkg/strategy"
	"github.com/uhyunpark/marketmaker/pkg/util"
)

func main() {
	// Load config from .env file and environment variables
	cfg := params.LoadFromEnv("")

	logger, err := buildLogger(cfg.Engine.LogFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("engine_starting", "pipelines", len(cfg.Pipelines), "api_addr", cfg.Engine.APIAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Action journal (optional) ----
	var jnl *journal.Journal
	if cfg.Engine.JournalPath != "" {
		jnl, err = journal.Open(cfg.Engine.JournalPath)
		if err != nil {
			sugar.Fatalw("journal_open_failed", "path", cfg.Engine.JournalPath, "err", err)
		}
		defer jnl.Close()
		sugar.Infow("journal_enabled", "path", cfg.Engine.JournalPath)
	}

	// ---- FX rate cache (optional, shared across pipelines) ----
	var rates rate.Source
	if pairs := fxPairs(cfg); len(pairs) > 0 {
		cache := rate.NewCache(staticRatesFromEnv(), pairs, cfg.Engine.FXRefresh, util.RealClock{}, sugar)
		cache.Start(ctx)
		defer cache.Stop()
		rates = cache
		sugar.Infow("fx_cache_started", "pairs", pairs)
	}

	// ---- Pipelines ----
	r := reactor.New(sugar, util.RealClock{})
	adapters := map[string]exchange.Exchange{}
	for _, pc := range cfg.Pipelines {
		p, err := buildPipeline(pc, adapters, rates, jnl, sugar)
		if err != nil {
			sugar.Fatalw("pipeline_config_invalid", "pipeline", pc.Name, "err", err)
		}
		r.Add(p)
	}

	// ---- Status API ----
	srv := api.NewServer(r, jnl)
	r.SetNotifier(srv)
	go func() {
		if err := srv.Start(cfg.Engine.APIAddr); err != nil {
			sugar.Errorw("api_server_stopped", "err", err)
		}
	}()

	r.Run(ctx)
	sugar.Info("engine_stopped")
}

func buildLogger(logFile string) (*zap.Logger, error) {
	if logFile == "" {
		return util.NewLogger()
	}
	return util.NewLoggerWithFile(logFile)
}

// buildPipeline resolves adapters, strategy, scheduler, and executor for one
// configured pipeline. Adapters are shared by name so two pipelines on the
// same exchange reuse one connection.
func buildPipeline(pc params.Pipeline, adapters map[string]exchange.Exchange, rates rate.Source, jnl *journal.Journal, sugar *zap.SugaredLogger) (*reactor.Pipeline, error) {
	source, err := adapterFor(pc.SourceExchange, adapters)
	if err != nil {
		return nil, err
	}
	target, err := adapterFor(pc.TargetExchange, adapters)
	if err != nil {
		return nil, err
	}
	seedPaper(source, pc)

	sc := pc.Strategy
	cfg := strategy.Config{
		SpreadBids:        decimal.NewFromFloat(sc.SpreadBids),
		SpreadAsks:        decimal.NewFromFloat(sc.SpreadAsks),
		LevelsCount:       sc.LevelsCount,
		LevelsPriceFunc:   sc.LevelsPriceFunc,
		LevelsSize:        decimal.NewFromFloat(sc.LevelsSize),
		MaxAmountPerOrder: decimal.NewFromFloat(sc.MaxAmountPerOrder),
		LimitBidsBase:     decimal.NewFromFloat(sc.LimitBidsBase),
		LimitAsksBase:     decimal.NewFromFloat(sc.LimitAsksBase),
		PricePrecision:    int32(sc.PricePrecision),
		AmountPrecision:   int32(sc.AmountPrecision),
		MinAmount:         decimal.NewFromFloat(sc.MinAmount),
		FXPair:            sc.FXPair,
	}

	opts := []strategy.Option{
		strategy.WithLogger(sugar),
		strategy.WithLimiter(strategy.NewBalanceLimiter(target, pc.BaseCurrency, pc.QuoteCurrency)),
	}
	if rates != nil {
		opts = append(opts, strategy.WithRates(rates))
	}
	strat, err := strategy.New(cfg, opts...)
	if err != nil {
		return nil, err
	}

	var sched reactor.ScheduleFunc
	switch pc.Scheduler {
	case "simple":
		sched = reactor.SimpleScheduler
	case "smart":
		sched = reactor.SmartScheduler(cfg.MaxAmountPerOrder)
	default:
		return nil, fmt.Errorf("unknown scheduler %q", pc.Scheduler)
	}

	var execOpts []executor.Option
	if jnl != nil {
		execOpts = append(execOpts, executor.WithResultHook(journalHook(jnl, pc.Name, sugar)))
	}

	return &reactor.Pipeline{
		Name:         pc.Name,
		Source:       source,
		Target:       target,
		SourceMarket: pc.SourceMarket,
		TargetMarket: pc.TargetMarket,
		Strategy:     strat,
		Schedule:     sched,
		Executor:     executor.New(target, sugar, execOpts...),
		Interval:     pc.TickInterval,
	}, nil
}

// journalHook records every dispatched action, success or not.
func journalHook(jnl *journal.Journal, pipeline string, sugar *zap.SugaredLogger) func(executor.Result) {
	return func(res executor.Result) {
		e := journal.Entry{
			Time:     time.Now(),
			Pipeline: pipeline,
			Type:     res.Action.Type.String(),
			Market:   res.Action.Market,
			OrderID:  res.Action.ID,
		}
		if res.Action.Type == schedule.ActionCreate {
			e.Side = res.Action.Order.Side.String()
			e.Price = res.Action.Order.Price.String()
			e.Amount = res.Action.Order.Amount.String()
		}
		if res.Err != nil {
			e.Err = res.Err.Error()
		}
		if err := jnl.Append(e); err != nil {
			sugar.Warnw("journal_append_failed", "pipeline", pipeline, "err", err)
		}
	}
}

func adapterFor(name string, adapters map[string]exchange.Exchange) (exchange.Exchange, error) {
	if ex, ok := adapters[name]; ok {
		return ex, nil
	}
	ex, err := exchange.New(name)
	if err != nil {
		return nil, err
	}
	adapters[name] = ex
	return ex, nil
}

// seedPaper gives a paper source exchange a reference book and the target
// account a balance, so dev mode has something to reconcile against.
func seedPaper(ex exchange.Exchange, pc params.Pipeline) {
	paper, ok := ex.(*exchange.Paper)
	if !ok {
		return
	}
	mid := decimal.NewFromInt(100)
	if v := os.Getenv("MM_PAPER_MID"); v != "" {
		if parsed, err := decimal.NewFromString(v); err == nil {
			mid = parsed
		}
	}
	spread := mid.Div(decimal.NewFromInt(200)) // 0.5% half-spread
	paper.SeedLevel(pc.SourceMarket, book.Buy, mid.Sub(spread), decimal.NewFromInt(10))
	paper.SeedLevel(pc.SourceMarket, book.Sell, mid.Add(spread), decimal.NewFromInt(10))
	paper.SeedBalance(pc.BaseCurrency, decimal.NewFromInt(100))
	paper.SeedBalance(pc.QuoteCurrency, mid.Mul(decimal.NewFromInt(100)))
}

// staticRatesFromEnv parses MM_FX_RATES, e.g. "usdeur=0.92,usdjpy=148.3".
func staticRatesFromEnv() rate.Source {
	table := rate.Static{}
	for _, kv := range strings.Split(os.Getenv("MM_FX_RATES"), ",") {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			continue
		}
		v, err := decimal.NewFromString(strings.TrimSpace(parts[1]))
		if err != nil {
			continue
		}
		table[strings.TrimSpace(parts[0])] = v
	}
	return table
}

func fxPairs(cfg params.Config) []string {
	seen := map[string]bool{}
	var pairs []string
	for _, p := range cfg.Pipelines {
		if p.Strategy.FXPair != "" && !seen[p.Strategy.FXPair] {
			seen[p.Strategy.FXPair] = true
			pairs = append(pairs, p.Strategy.FXPair)
		}
	}
	return pairs
}
