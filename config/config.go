package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/edgebot/internal/adapters/correlation"
	"github.com/alejandrodnm/edgebot/internal/domain"
	"github.com/alejandrodnm/edgebot/internal/risk"
)

// Config es la configuración completa del bot.
type Config struct {
	Mode      string          `yaml:"mode"` // paper | live
	Markets   []MarketConfig  `yaml:"markets"`
	Feed      FeedConfig      `yaml:"feed"`
	Estimator EstimatorConfig `yaml:"estimator"`
	Risk      RiskConfig      `yaml:"risk"`
	Sizing    SizingConfig    `yaml:"sizing"`
	API       APIConfig       `yaml:"api"`
	Storage   StorageConfig   `yaml:"storage"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Log       LogConfig       `yaml:"log"`

	// Correlations es la matriz estática que alimenta el check de
	// correlación del gate.
	Correlations []correlation.Entry `yaml:"correlations"`
}

// MarketConfig vincula un mercado de predicción con su símbolo de referencia.
type MarketConfig struct {
	ID     string `yaml:"id"`
	Symbol string `yaml:"symbol"` // símbolo canónico del feed de referencia
}

// FeedConfig controla la fuente de referencia.
type FeedConfig struct {
	WSBase         string            `yaml:"ws_base"`
	Symbols        []string          `yaml:"symbols"`
	SymbolMap      map[string]string `yaml:"symbol_map"` // símbolo del venue → canónico
	MaxTickAgeSecs float64           `yaml:"max_tick_age_seconds"`
	TimeoutSecs    float64           `yaml:"timeout_seconds"`
}

// EstimatorConfig controla la política de fair value.
type EstimatorConfig struct {
	Policy        string  `yaml:"policy"`       // linear | logistic
	PolicyParam   float64 `yaml:"policy_param"` // scale (linear) o slope (logistic)
	MaxLagSecs    float64 `yaml:"max_lag_seconds"`
	FeeBpsDefault float64 `yaml:"fee_bps_default"`
}

// RiskConfig son los límites del gate. Sin defaults: todos los campos
// obligatorios tienen que venir del YAML o del entorno — un límite de
// riesgo ausente es un error fatal de arranque, no un valor implícito.
type RiskConfig struct {
	MaxPositionUSD       float64 `yaml:"max_position_usd"`
	MaxConcurrent        int     `yaml:"max_concurrent"`
	DailyLossLimitUSD    float64 `yaml:"daily_loss_limit_usd"`
	EdgeMinBps           float64 `yaml:"edge_min_bps"`
	ConfidenceMin        float64 `yaml:"confidence_min"`
	LiquidityMinUSD      float64 `yaml:"liquidity_minimum_usd"`
	CorrelationThreshold float64 `yaml:"correlation_threshold"`
	CooldownSecs         float64 `yaml:"cooldown_seconds"`
	MaxEntriesPerMarket  int     `yaml:"max_entries_per_market"`
	ResetTimezone        string  `yaml:"reset_timezone"` // IANA, default UTC
}

// SizingConfig controla el position sizing.
type SizingConfig struct {
	BankrollUSD     float64 `yaml:"bankroll_usd"`
	KellyMultiplier float64 `yaml:"kelly_multiplier"`
	MinShares       float64 `yaml:"min_shares"`
	MaxBumpUSD      float64 `yaml:"max_bump_usd"`
}

// APIConfig contiene el endpoint y credenciales del venue.
type APIConfig struct {
	Base   string `yaml:"base"`
	APIKey string `yaml:"api_key"` // normalmente via POLY_API_KEY

	PollIntervalSecs float64 `yaml:"poll_interval_seconds"`
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN         string `yaml:"dsn"`          // ruta al archivo SQLite, o ":memory:"
	JournalPath string `yaml:"journal_path"` // JSONL append-only
}

// MetricsConfig controla el endpoint de Prometheus.
type MetricsConfig struct {
	Addr string `yaml:"addr"` // vacío = deshabilitado
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si
// existe. Los valores del entorno sobreescriben los del YAML.
func Load(path string) (*Config, error) {
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
		return nil, err
	}
	return &cfg, nil
}

// Validate rechaza configuraciones incompletas. Los límites de riesgo no
// tienen default: un bot sin límites explícitos no arranca.
func (c *Config) Validate() error {
	if c.Mode != "paper" && c.Mode != "live" {
		return fmt.Errorf("config: mode must be paper or live, got %q", c.Mode)
	}
	if len(c.Markets) == 0 {
		return fmt.Errorf("config: at least one market required")
	}
	for i, m := range c.Markets {
		if m.ID == "" || m.Symbol == "" {
			return fmt.Errorf("config: markets[%d]: id and symbol required", i)
		}
	}

	r := c.Risk
	missing := []string{}
	if r.MaxPositionUSD <= 0 {
		missing = append(missing, "risk.max_position_usd")
	}
	if r.MaxConcurrent <= 0 {
		missing = append(missing, "risk.max_concurrent")
	}
	if r.DailyLossLimitUSD <= 0 {
		missing = append(missing, "risk.daily_loss_limit_usd")
	}
	if r.EdgeMinBps <= 0 {
		missing = append(missing, "risk.edge_min_bps")
	}
	if r.ConfidenceMin <= 0 {
		missing = append(missing, "risk.confidence_min")
	}
	if r.LiquidityMinUSD <= 0 {
		missing = append(missing, "risk.liquidity_minimum_usd")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: missing risk limits: %v", missing)
	}

	if _, err := time.LoadLocation(r.ResetTimezone); err != nil {
		return fmt.Errorf("config: risk.reset_timezone %q: %w", r.ResetTimezone, err)
	}
	if c.Sizing.BankrollUSD <= 0 {
		return fmt.Errorf("config: sizing.bankroll_usd required")
	}
	if _, err := domain.NewFairValuePolicy(c.Estimator.Policy, c.Estimator.PolicyParam); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Mode == "live" && c.API.APIKey == "" {
		return fmt.Errorf("config: live mode requires api.api_key (POLY_API_KEY)")
	}
	return nil
}

// PollInterval devuelve el intervalo entre ciclos.
func (c *Config) PollInterval() time.Duration {
	return secs(c.API.PollIntervalSecs)
}

// FeedTimeout devuelve el tiempo máximo de espera por un tick.
func (c *Config) FeedTimeout() time.Duration {
	return secs(c.Feed.TimeoutSecs)
}

// MaxTickAge devuelve la antigüedad máxima de un tick.
func (c *Config) MaxTickAge() time.Duration {
	return secs(c.Feed.MaxTickAgeSecs)
}

// RiskLimits convierte la config en los límites del gate.
func (c *Config) RiskLimits() risk.Limits {
	return risk.Limits{
		ConfidenceMin:        c.Risk.ConfidenceMin,
		EdgeMinBps:           c.Risk.EdgeMinBps,
		MaxConcurrent:        c.Risk.MaxConcurrent,
		DailyLossLimitUSD:    c.Risk.DailyLossLimitUSD,
		MaxPositionUSD:       c.Risk.MaxPositionUSD,
		LiquidityMinUSD:      c.Risk.LiquidityMinUSD,
		CorrelationThreshold: c.Risk.CorrelationThreshold,
		Cooldown:             secs(c.Risk.CooldownSecs),
		MaxEntriesPerMarket:  c.Risk.MaxEntriesPerMarket,
	}
}

// EstimatorParams convierte la config en los parámetros del estimador.
func (c *Config) EstimatorParams() domain.EstimatorConfig {
	return domain.EstimatorConfig{
		MaxTickAge:      c.MaxTickAge(),
		MaxLag:          secs(c.Estimator.MaxLagSecs),
		LiquidityMinUSD: c.Risk.LiquidityMinUSD,
		FeeBps:          c.Estimator.FeeBpsDefault,
	}
}

// SizingParams convierte la config en los parámetros del sizer.
func (c *Config) SizingParams() domain.SizingConfig {
	return domain.SizingConfig{
		BankrollUSD:     c.Sizing.BankrollUSD,
		KellyMultiplier: c.Sizing.KellyMultiplier,
		MaxPositionUSD:  c.Risk.MaxPositionUSD,
		MinShares:       c.Sizing.MinShares,
		MaxBumpUSD:      c.Sizing.MaxBumpUSD,
	}
}

// ResetLocation devuelve la zona horaria del corte diario de PnL.
func (c *Config) ResetLocation() *time.Location {
	loc, err := time.LoadLocation(c.Risk.ResetTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// applyEnvOverrides sobreescribe valores con variables de entorno si
// están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MODE"); v != "" {
		cfg.Mode = v
	}
	if v := os.Getenv("POLY_API_KEY"); v != "" {
		cfg.API.APIKey = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	envFloat("MAX_POSITION_USD", &cfg.Risk.MaxPositionUSD)
	envFloat("DAILY_LOSS_LIMIT_USD", &cfg.Risk.DailyLossLimitUSD)
	envFloat("EDGE_MIN_BPS", &cfg.Risk.EdgeMinBps)
	envFloat("CONFIDENCE_MIN", &cfg.Risk.ConfidenceMin)
	envFloat("LIQUIDITY_MINIMUM_USD", &cfg.Risk.LiquidityMinUSD)
	envFloat("BANKROLL_USD", &cfg.Sizing.BankrollUSD)
	if v := os.Getenv("MAX_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Risk.MaxConcurrent = n
		}
	}
}

// setDefaults asegura que los valores opcionales tengan valores sensatos.
// Los límites de riesgo NO se tocan aquí: Validate los exige explícitos.
func setDefaults(cfg *Config) {
	if cfg.Mode == "" {
		cfg.Mode = "paper"
	}
	if cfg.Feed.MaxTickAgeSecs <= 0 {
		cfg.Feed.MaxTickAgeSecs = 5
	}
	if cfg.Feed.TimeoutSecs <= 0 {
		cfg.Feed.TimeoutSecs = 3
	}
	if cfg.Estimator.Policy == "" {
		cfg.Estimator.Policy = "linear"
	}
	if cfg.Estimator.PolicyParam <= 0 {
		cfg.Estimator.PolicyParam = 0.02
	}
	if cfg.Estimator.MaxLagSecs <= 0 {
		cfg.Estimator.MaxLagSecs = 10
	}
	if cfg.Sizing.KellyMultiplier <= 0 {
		cfg.Sizing.KellyMultiplier = 0.25
	}
	if cfg.API.PollIntervalSecs <= 0 {
		cfg.API.PollIntervalSecs = 5
	}
	if cfg.Risk.ResetTimezone == "" {
		cfg.Risk.ResetTimezone = "UTC"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "edgebot.db"
	}
	if cfg.Storage.JournalPath == "" {
		cfg.Storage.JournalPath = "decisions.jsonl"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

func envFloat(key string, dst *float64) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func secs(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
