package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all configuration for the ledger service
type Config struct {
	Environment string           `mapstructure:"environment"`
	LogLevel    string           `mapstructure:"log_level"`
	Server      ServerConfig     `mapstructure:"server"`
	Database    DatabaseConfig   `mapstructure:"database"`
	Redis       RedisConfig      `mapstructure:"redis"`
	Referral    ReferralConfig   `mapstructure:"referral"`
	Investment  InvestmentConfig `mapstructure:"investment"`
	Tier        TierConfig       `mapstructure:"tier"`
	Workers     WorkersConfig    `mapstructure:"workers"`
}

// ServerConfig contains HTTP listener settings
type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

// DatabaseConfig contains Postgres connection settings
type DatabaseConfig struct {
	URL             string `mapstructure:"url"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string `mapstructure:"migrations_path"`
}

// RedisConfig contains settings for the event emitter. An empty Addr
// disables Redis and falls back to the no-op notifier.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"`
}

// ReferralConfig contains the commission schedule. Rates are decimal strings
// so monetary math never passes through binary floating point.
type ReferralConfig struct {
	MinDeposit      string   `mapstructure:"min_deposit"`
	GenerationRates []string `mapstructure:"generation_rates"`
}

// MinDepositDecimal parses the minimum qualifying deposit amount
func (c ReferralConfig) MinDepositDecimal() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(c.MinDeposit)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse referral.min_deposit %q: %w", c.MinDeposit, err)
	}
	return d, nil
}

// RateDecimals parses the per-generation commission rates
func (c ReferralConfig) RateDecimals() ([]decimal.Decimal, error) {
	rates := make([]decimal.Decimal, 0, len(c.GenerationRates))
	for i, s := range c.GenerationRates {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil, fmt.Errorf("parse referral.generation_rates[%d] %q: %w", i, s, err)
		}
		rates = append(rates, d)
	}
	return rates, nil
}

// InvestmentConfig contains accrual and lock policy
type InvestmentConfig struct {
	LockDays         int    `mapstructure:"lock_days"`
	BaseDailyRate    string `mapstructure:"base_daily_rate"`
	EncashAfterHours int    `mapstructure:"encash_after_hours"`
	DefaultCurrency  string `mapstructure:"default_currency"`
}

// BaseDailyRateDecimal parses the tier-derived base daily rate
func (c InvestmentConfig) BaseDailyRateDecimal() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(c.BaseDailyRate)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse investment.base_daily_rate %q: %w", c.BaseDailyRate, err)
	}
	return d, nil
}

// TierConfig contains tier valuation policy
type TierConfig struct {
	FirstThreshold string `mapstructure:"first_threshold"`
	UsePortfolio   bool   `mapstructure:"use_portfolio"`
}

// FirstThresholdDecimal parses the first doubling threshold
func (c TierConfig) FirstThresholdDecimal() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(c.FirstThreshold)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse tier.first_threshold %q: %w", c.FirstThreshold, err)
	}
	return d, nil
}

// WorkersConfig contains batch worker scheduling
type WorkersConfig struct {
	AccrualSchedule string `mapstructure:"accrual_schedule"`
	BatchSize       int    `mapstructure:"batch_size"`
}

// Load reads configuration from config.yaml and the environment
func Load() (*Config, error) {
	// .env is optional; real environments set variables directly
	_ = godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 15)
	viper.SetDefault("server.write_timeout", 15)

	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 300)
	viper.SetDefault("database.migrations_path", "migrations")

	viper.SetDefault("redis.addr", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.channel", "ledger.events")

	viper.SetDefault("referral.min_deposit", "1000")
	viper.SetDefault("referral.generation_rates", []string{"0.10", "0.03", "0.01"})

	viper.SetDefault("investment.lock_days", 30)
	viper.SetDefault("investment.base_daily_rate", "0.025")
	viper.SetDefault("investment.encash_after_hours", 24)
	viper.SetDefault("investment.default_currency", "USDT")

	viper.SetDefault("tier.first_threshold", "25000")
	viper.SetDefault("tier.use_portfolio", false)

	viper.SetDefault("workers.accrual_schedule", "@hourly")
	viper.SetDefault("workers.batch_size", 500)
}

func validate(cfg *Config) error {
	if cfg.Database.URL == "" {
		return fmt.Errorf("database.url is required")
	}
	if _, err := cfg.Referral.MinDepositDecimal(); err != nil {
		return err
	}
	rates, err := cfg.Referral.RateDecimals()
	if err != nil {
		return err
	}
	if len(rates) == 0 {
		return fmt.Errorf("referral.generation_rates must not be empty")
	}
	if _, err := cfg.Investment.BaseDailyRateDecimal(); err != nil {
		return err
	}
	if _, err := cfg.Tier.FirstThresholdDecimal(); err != nil {
		return err
	}
	if cfg.Investment.LockDays <= 0 {
		return fmt.Errorf("investment.lock_days must be positive")
	}
	return nil
}
