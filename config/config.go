package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del bot.
type Config struct {
	Bot      BotConfig      `yaml:"bot"`
	Kalshi   KalshiConfig   `yaml:"kalshi"`
	Strategy StrategyConfig `yaml:"strategy"`
	Storage  StorageConfig  `yaml:"storage"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Log      LogConfig      `yaml:"log"`
}

// BotConfig controla el ciclo de evaluación y el presupuesto de riesgo.
type BotConfig struct {
	Strategy        string   `yaml:"strategy"` // spread | edge | momentum
	Underlyings     []string `yaml:"underlyings"`
	DaysAhead       int      `yaml:"days_ahead"` // 1 = operar el evento de mañana
	IntervalSeconds int      `yaml:"interval_seconds"`
	DailyCap        float64  `yaml:"daily_cap"` // dólares por día de liquidación
	DryRun          bool     `yaml:"dry_run"`
	ReserveOnFill   bool     `yaml:"reserve_on_fill"`
	ClosePolicy     string   `yaml:"close_policy"` // cancel | expire
	WindowMinutes   float64  `yaml:"window_minutes"`
	PriceSymbol     string   `yaml:"price_symbol"` // ej. "BTCUSDT" para momentum
}

// KalshiConfig contiene credenciales y entorno del exchange.
type KalshiConfig struct {
	Env            string `yaml:"env"` // prod | demo
	KeyID          string `yaml:"key_id"`
	PrivateKeyPath string `yaml:"private_key_path"`
}

// StrategyConfig agrupa los parámetros de las tres variantes. Solo se usa la
// sección de la variante activa.
type StrategyConfig struct {
	Spread   SpreadConfig   `yaml:"spread"`
	Edge     EdgeConfig     `yaml:"edge"`
	Momentum MomentumConfig `yaml:"momentum"`
}

// SpreadConfig parametriza la variante de spread por bids.
type SpreadConfig struct {
	MinBucketPrice  int `yaml:"min_bucket_price"`
	MaxBucketPrice  int `yaml:"max_bucket_price"`
	MaxTotalCost    int `yaml:"max_total_cost"`
	ContractsPerLeg int `yaml:"contracts_per_leg"`
}

// EdgeConfig parametriza la variante de edge contra el forecast.
type EdgeConfig struct {
	MinEdge        float64 `yaml:"min_edge"`
	MinBucketPrice int     `yaml:"min_bucket_price"`
	MaxBucketPrice int     `yaml:"max_bucket_price"`
	MaxTotalCost   int     `yaml:"max_total_cost"`
	MaxBuckets     int     `yaml:"max_buckets"`
	BaseContracts  int     `yaml:"base_contracts"`
	MaxPerMarket   int     `yaml:"max_per_market"`
	HighConfidence float64 `yaml:"high_confidence"`
	FadeThreshold  float64 `yaml:"fade_threshold"`
}

// MomentumConfig parametriza la variante direccional.
type MomentumConfig struct {
	MinConfidence   float64 `yaml:"min_confidence"`
	MaxMinutesLeft  float64 `yaml:"max_minutes_left"`
	MinMinutesLeft  float64 `yaml:"min_minutes_left"`
	MinChangePct    float64 `yaml:"min_change_pct"`
	StrongMovePct   float64 `yaml:"strong_move_pct"`
	MomentumBonus   float64 `yaml:"momentum_bonus"`
	StrongMoveBonus float64 `yaml:"strong_move_bonus"`
	MaxPrice        int     `yaml:"max_price"`
	MaxContracts    int     `yaml:"max_contracts"`
	MinContracts    int     `yaml:"min_contracts"`
	FixedSize       bool    `yaml:"fixed_size"` // apostar siempre MaxContracts en vez de escalar
}

// StorageConfig controla dónde se persiste el trade log.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// MetricsConfig controla el endpoint Prometheus.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si
// existe. Los valores del .env sobreescriben los del YAML. Una configuración
// contradictoria devuelve error: mejor no arrancar que operar mal configurado.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// Interval devuelve el intervalo del ciclo como time.Duration.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Bot.IntervalSeconds) * time.Second
}

// Validate rechaza configuraciones contradictorias antes de arrancar.
func (c *Config) Validate() error {
	switch c.Bot.Strategy {
	case "spread", "edge", "momentum":
	default:
		return fmt.Errorf("unknown strategy %q", c.Bot.Strategy)
	}
	if len(c.Bot.Underlyings) == 0 {
		return fmt.Errorf("no underlyings configured")
	}
	if c.Bot.DailyCap <= 0 {
		return fmt.Errorf("daily_cap must be positive, got %.2f", c.Bot.DailyCap)
	}
	if c.Bot.ClosePolicy != "cancel" && c.Bot.ClosePolicy != "expire" {
		return fmt.Errorf("close_policy must be cancel or expire, got %q", c.Bot.ClosePolicy)
	}
	if c.Kalshi.Env != "prod" && c.Kalshi.Env != "demo" {
		return fmt.Errorf("kalshi env must be prod or demo, got %q", c.Kalshi.Env)
	}

	switch c.Bot.Strategy {
	case "spread":
		s := c.Strategy.Spread
		if s.MinBucketPrice >= s.MaxBucketPrice {
			return fmt.Errorf("spread: min_bucket_price %d >= max_bucket_price %d", s.MinBucketPrice, s.MaxBucketPrice)
		}
		if s.MaxTotalCost >= 100 {
			return fmt.Errorf("spread: max_total_cost %d must be < 100", s.MaxTotalCost)
		}
	case "edge":
		e := c.Strategy.Edge
		if e.MinEdge <= 0 {
			return fmt.Errorf("edge: min_edge must be positive, got %.3f", e.MinEdge)
		}
		if e.MinBucketPrice >= e.MaxBucketPrice {
			return fmt.Errorf("edge: min_bucket_price %d >= max_bucket_price %d", e.MinBucketPrice, e.MaxBucketPrice)
		}
		if e.MaxTotalCost >= 100 {
			return fmt.Errorf("edge: max_total_cost %d must be < 100", e.MaxTotalCost)
		}
	case "momentum":
		m := c.Strategy.Momentum
		if m.MinMinutesLeft >= m.MaxMinutesLeft {
			return fmt.Errorf("momentum: min_minutes_left %.1f >= max_minutes_left %.1f", m.MinMinutesLeft, m.MaxMinutesLeft)
		}
		if m.MinContracts > m.MaxContracts {
			return fmt.Errorf("momentum: min_contracts %d > max_contracts %d", m.MinContracts, m.MaxContracts)
		}
		if c.Bot.PriceSymbol == "" {
			return fmt.Errorf("momentum: price_symbol is required")
		}
	}
	return nil
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están
// presentes. Las credenciales nunca van en el YAML.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("KALSHI_KEY_ID"); v != "" {
		cfg.Kalshi.KeyID = v
	}
	if v := os.Getenv("KALSHI_PRIVATE_KEY_PATH"); v != "" {
		cfg.Kalshi.PrivateKeyPath = v
	}
	if v := os.Getenv("KALSHI_ENV"); v != "" {
		cfg.Kalshi.Env = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Bot.Strategy == "" {
		cfg.Bot.Strategy = "spread"
	}
	if cfg.Bot.IntervalSeconds <= 0 {
		cfg.Bot.IntervalSeconds = 60
	}
	if cfg.Bot.DaysAhead < 0 {
		cfg.Bot.DaysAhead = 1
	}
	if cfg.Bot.DailyCap <= 0 {
		cfg.Bot.DailyCap = 50
	}
	if cfg.Bot.ClosePolicy == "" {
		cfg.Bot.ClosePolicy = "cancel"
	}
	if cfg.Bot.WindowMinutes <= 0 {
		cfg.Bot.WindowMinutes = 15
	}
	if cfg.Kalshi.Env == "" {
		cfg.Kalshi.Env = "demo"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "kalshibot.db"
	}
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9090"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	applyStrategyDefaults(cfg)
}

// applyStrategyDefaults completa los parámetros de variante no especificados.
func applyStrategyDefaults(cfg *Config) {
	s := &cfg.Strategy.Spread
	if s.MinBucketPrice <= 0 {
		s.MinBucketPrice = 10
	}
	if s.MaxBucketPrice <= 0 {
		s.MaxBucketPrice = 60
	}
	if s.MaxTotalCost <= 0 {
		s.MaxTotalCost = 95
	}
	if s.ContractsPerLeg <= 0 {
		s.ContractsPerLeg = 10
	}

	e := &cfg.Strategy.Edge
	if e.MinEdge <= 0 {
		e.MinEdge = 0.05
	}
	if e.MinBucketPrice <= 0 {
		e.MinBucketPrice = 10
	}
	if e.MaxBucketPrice <= 0 {
		e.MaxBucketPrice = 50
	}
	if e.MaxTotalCost <= 0 {
		e.MaxTotalCost = 95
	}
	if e.MaxBuckets <= 0 {
		e.MaxBuckets = 3
	}
	if e.BaseContracts <= 0 {
		e.BaseContracts = 3
	}
	if e.MaxPerMarket <= 0 {
		e.MaxPerMarket = 20
	}
	if e.HighConfidence <= 0 {
		e.HighConfidence = 0.70
	}
	if e.FadeThreshold <= 0 {
		e.FadeThreshold = 0.15
	}

	m := &cfg.Strategy.Momentum
	if m.MinConfidence <= 0 {
		m.MinConfidence = 0.65
	}
	if m.MaxMinutesLeft <= 0 {
		m.MaxMinutesLeft = 10
	}
	if m.MinMinutesLeft <= 0 {
		m.MinMinutesLeft = 2
	}
	if m.MinChangePct <= 0 {
		m.MinChangePct = 0.05
	}
	if m.StrongMovePct <= 0 {
		m.StrongMovePct = 0.15
	}
	if m.MomentumBonus <= 0 {
		m.MomentumBonus = 0.15
	}
	if m.StrongMoveBonus <= 0 {
		m.StrongMoveBonus = 0.10
	}
	if m.MaxPrice <= 0 {
		m.MaxPrice = 95
	}
	if m.MaxContracts <= 0 {
		m.MaxContracts = 10
	}
	if m.MinContracts <= 0 {
		m.MinContracts = 2
	}
}
