package params

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Strategy holds the quoting parameters of one pipeline.
type Strategy struct {
	SpreadBids        float64
	SpreadAsks        float64
	LevelsCount       int
	LevelsPriceFunc   string // constant, linear, exp
	LevelsSize        float64
	MaxAmountPerOrder float64
	LimitBidsBase     float64
	LimitAsksBase     float64
	PricePrecision    int
	AmountPrecision   int
	MinAmount         float64
	FXPair            string // optional price conversion, e.g. "usdeur"
}

// Pipeline configures one reconciliation unit.
type Pipeline struct {
	Name           string
	SourceExchange string
	TargetExchange string
	SourceMarket   string
	TargetMarket   string
	BaseCurrency   string
	QuoteCurrency  string
	Scheduler      string // simple | smart
	TickInterval   time.Duration
	Strategy       Strategy
}

// Engine holds process-wide settings.
type Engine struct {
	APIAddr     string
	LogFile     string
	JournalPath string        // empty disables the action journal
	FXRefresh   time.Duration // rate cache refresh interval
}

type Config struct {
	Engine    Engine
	Pipelines []Pipeline
}

func Default() Config {
	return Config{
		Engine: Engine{
			APIAddr:     ":8080",
			LogFile:     "data/mm.log",
			JournalPath: "",
			FXRefresh:   30 * time.Second,
		},
		Pipelines: []Pipeline{
			{
				Name:           "btcusd",
				SourceExchange: "paper",
				TargetExchange: "paper",
				SourceMarket:   "btcusd",
				TargetMarket:   "btcusd",
				BaseCurrency:   "btc",
				QuoteCurrency:  "usd",
				Scheduler:      "smart",
				TickInterval:   time.Second,
				Strategy: Strategy{
					SpreadBids:        0.005,
					SpreadAsks:        0.005,
					LevelsCount:       5,
					LevelsPriceFunc:   "constant",
					LevelsSize:        0.5,
					MaxAmountPerOrder: 1,
					LimitBidsBase:     5,
					LimitAsksBase:     5,
					PricePrecision:    2,
					AmountPrecision:   4,
					MinAmount:         0.0001,
				},
			},
		},
	}
}

// LoadFromEnv loads configuration from .env file (if exists) and environment
// variables. Priority: ENV > .env file > defaults. Overrides apply to every
// configured pipeline.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load() // loads .env from current directory
	}

	if addr := os.Getenv("MM_API_ADDR"); addr != "" {
		cfg.Engine.APIAddr = addr
	}
	if path := os.Getenv("MM_JOURNAL_PATH"); path != "" {
		cfg.Engine.JournalPath = path
	}
	if file := os.Getenv("LOG_FILE"); file != "" {
		cfg.Engine.LogFile = file
	}
	if ms, ok := envInt("MM_FX_REFRESH_MS"); ok && ms > 0 {
		cfg.Engine.FXRefresh = time.Duration(ms) * time.Millisecond
	}

	for i := range cfg.Pipelines {
		p := &cfg.Pipelines[i]
		if v := os.Getenv("MM_SOURCE_EXCHANGE"); v != "" {
			p.SourceExchange = v
		}
		if v := os.Getenv("MM_TARGET_EXCHANGE"); v != "" {
			p.TargetExchange = v
		}
		if v := os.Getenv("MM_SOURCE_MARKET"); v != "" {
			p.SourceMarket = v
			p.Name = v
		}
		if v := os.Getenv("MM_TARGET_MARKET"); v != "" {
			p.TargetMarket = v
			p.Name = v
		}
		if v := os.Getenv("MM_SCHEDULER"); v != "" {
			p.Scheduler = strings.ToLower(v)
		}
		if ms, ok := envInt("MM_TICK_MS"); ok && ms > 0 {
			p.TickInterval = time.Duration(ms) * time.Millisecond
		}
		if v := os.Getenv("MM_BASE_CURRENCY"); v != "" {
			p.BaseCurrency = v
		}
		if v := os.Getenv("MM_QUOTE_CURRENCY"); v != "" {
			p.QuoteCurrency = v
		}

		s := &p.Strategy
		if f, ok := envFloat("MM_SPREAD_BIDS"); ok {
			s.SpreadBids = f
		}
		if f, ok := envFloat("MM_SPREAD_ASKS"); ok {
			s.SpreadAsks = f
		}
		if n, ok := envInt("MM_LEVELS_COUNT"); ok && n > 0 {
			s.LevelsCount = n
		}
		if v := os.Getenv("MM_LEVELS_PRICE_FUNC"); v != "" {
			s.LevelsPriceFunc = v
		}
		if f, ok := envFloat("MM_LEVELS_SIZE"); ok {
			s.LevelsSize = f
		}
		if f, ok := envFloat("MM_MAX_AMOUNT_PER_ORDER"); ok {
			s.MaxAmountPerOrder = f
		}
		if f, ok := envFloat("MM_LIMIT_BIDS_BASE"); ok {
			s.LimitBidsBase = f
		}
		if f, ok := envFloat("MM_LIMIT_ASKS_BASE"); ok {
			s.LimitAsksBase = f
		}
		// Zero is a legal precision (whole units), so unset is detected
		// rather than inferred from the value.
		if n, ok := envInt("MM_PRICE_PRECISION"); ok && n >= 0 {
			s.PricePrecision = n
		}
		if n, ok := envInt("MM_AMOUNT_PRECISION"); ok && n >= 0 {
			s.AmountPrecision = n
		}
		if f, ok := envFloat("MM_MIN_AMOUNT"); ok {
			s.MinAmount = f
		}
		if v := os.Getenv("MM_FX_PAIR"); v != "" {
			s.FXPair = v
		}
	}

	return cfg
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envFloat(key string) (float64, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
