// Package config loads the gateway's environment-variable configuration,
// following the same getenv/getenvInt/getenvInt64 idiom the rest of the
// house uses for start-up configuration (extended with getenvFloat).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds process-wide configuration loaded once at start-up.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string

	HTTPAddr string

	BankAPIURL       string
	LedgerWebhookURL string

	DB       DBConfig
	Risk     RiskConfig
	Tier     TierConfig
	Util     UtilConfig
	Cooldown CooldownConfig

	RedisAddr string
}

// DBConfig configures the persistence layer.
type DBConfig struct {
	Type            string
	URL             string
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxIdleConn     int
	MaxOpenConn     int
	ConnMaxLifetime int
	ConnMaxIdleTime int
}

// RiskConfig holds the Risk Engine's weights and penalties (§4.5, §6.4).
type RiskConfig struct {
	BalanceWeight     float64
	IncomeSpendWeight float64
	NSFWeight         float64
	BalanceNegCap     float64
	NSFPenalty        float64
	PaybackPenalty    float64
	UtilPenaltyHigh   float64
	UtilPenaltyMedium float64
}

// TierConfig holds tier limits and score thresholds (§4.5).
type TierConfig struct {
	LimitA, LimitB, LimitC, LimitD int64
	MinScoreA, MinScoreB, MinScoreC float64
}

// UtilConfig holds the Gaussian composite-score parameters (§4.2, §6.4).
type UtilConfig struct {
	UtilMu, UtilSigma, UtilWeight                       float64
	BurnMu, BurnSigma, BurnWeight                       float64
	SpendMu, SpendSigma, SpendWeight                    float64
	LabelHealthy, LabelMedium, LabelHigh, LabelVeryHigh float64
}

// CooldownConfig holds the advance cooldown window.
type CooldownConfig struct {
	Hours int
}

// Load reads configuration from the environment (and an optional .env file),
// applying the defaults spelled out in spec.md §4-§6.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		AppName:     getenv("APP_NAME", "bnpl-decision-gateway"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),

		BankAPIURL:       strings.TrimSpace(getenv("BANK_API_URL", "")),
		LedgerWebhookURL: strings.TrimSpace(getenv("LEDGER_WEBHOOK_URL", "")),
		RedisAddr:        strings.TrimSpace(getenv("REDIS_ADDR", "")),

		DB: DBConfig{
			Type:            getenv("DB_TYPE", "postgres"),
			URL:             strings.TrimSpace(getenv("DATABASE_URL", "")),
			Host:            getenv("DB_HOST", "localhost"),
			Port:            getenv("DB_PORT", "5432"),
			Name:            getenv("DB_NAME", "bnpl"),
			User:            getenv("DB_USER", "postgres"),
			Password:        getenv("DB_PASSWORD", ""),
			SSLMode:         getenv("DB_SSL_MODE", "disable"),
			MaxIdleConn:     getenvInt("DB_MAX_IDLE_CONN", 5),
			MaxOpenConn:     getenvInt("DB_MAX_OPEN_CONN", 20),
			ConnMaxLifetime: getenvInt("DB_CONN_MAX_LIFETIME", 3600),
			ConnMaxIdleTime: getenvInt("DB_CONN_MAX_IDLE_TIME", 1800),
		},

		Risk: RiskConfig{
			BalanceWeight:     getenvFloat("RISK_BALANCE_WEIGHT", 0.5),
			IncomeSpendWeight: getenvFloat("RISK_INCOME_SPEND_WEIGHT", 0.3),
			NSFWeight:         getenvFloat("RISK_NSF_WEIGHT", 0.2),
			BalanceNegCap:     getenvFloat("RISK_BALANCE_NEG_CAP", 10_000),
			NSFPenalty:        getenvFloat("RISK_NSF_PENALTY", 25),
			PaybackPenalty:    getenvFloat("RISK_PAYBACK_PENALTY", 10),
			UtilPenaltyHigh:   getenvFloat("UTIL_PENALTY_HIGH_RISK", 15),
			UtilPenaltyMedium: getenvFloat("UTIL_PENALTY_MEDIUM_RISK", 7.5),
		},

		Tier: TierConfig{
			LimitA:    getenvInt64("BNPL_TIER_A_LIMIT", 20_000),
			LimitB:    getenvInt64("BNPL_TIER_B_LIMIT", 12_000),
			LimitC:    getenvInt64("BNPL_TIER_C_LIMIT", 6_000),
			LimitD:    getenvInt64("BNPL_TIER_D_LIMIT", 2_000),
			MinScoreA: getenvFloat("BNPL_TIER_A_MIN_SCORE", 75),
			MinScoreB: getenvFloat("BNPL_TIER_B_MIN_SCORE", 55),
			MinScoreC: getenvFloat("BNPL_TIER_C_MIN_SCORE", 35),
		},

		Util: UtilConfig{
			UtilMu:        getenvFloat("UTIL_MU", 0.6),
			UtilSigma:     getenvFloat("UTIL_SIGMA", 0.3),
			UtilWeight:    getenvFloat("UTIL_WEIGHT", 0.45),
			BurnMu:        getenvFloat("BURN_MU", 30),
			BurnSigma:     getenvFloat("BURN_SIGMA", 15),
			BurnWeight:    getenvFloat("BURN_WEIGHT", 0.35),
			SpendMu:       getenvFloat("SPEND_MU", 0.033),
			SpendSigma:    getenvFloat("SPEND_SIGMA", 0.02),
			SpendWeight:   getenvFloat("SPEND_WEIGHT", 0.20),
			LabelHealthy:  getenvFloat("LABEL_HEALTHY", 80),
			LabelMedium:   getenvFloat("LABEL_MEDIUM_RISK", 60),
			LabelHigh:     getenvFloat("LABEL_HIGH_RISK", 40),
			LabelVeryHigh: getenvFloat("LABEL_VERY_HIGH_RISK", 20),
		},

		Cooldown: CooldownConfig{
			Hours: getenvInt("COOLDOWN_HOURS", 72),
		},
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// validate fails fast on misconfigured weights, mirroring spec.md's
// ConfigInvalid error kind (§7): weights that don't sum to 1 (±0.01) must
// never reach the risk engine or utilization analyzer.
func validate(cfg Config) error {
	riskSum := cfg.Risk.BalanceWeight + cfg.Risk.IncomeSpendWeight + cfg.Risk.NSFWeight
	if diff := riskSum - 1.0; diff > 0.01 || diff < -0.01 {
		return fmt.Errorf("config_invalid: risk weights must sum to 1.0 (±0.01), got %v", riskSum)
	}
	utilSum := cfg.Util.UtilWeight + cfg.Util.BurnWeight + cfg.Util.SpendWeight
	if diff := utilSum - 1.0; diff > 0.01 || diff < -0.01 {
		return fmt.Errorf("config_invalid: utilization weights must sum to 1.0 (±0.01), got %v", utilSum)
	}
	return nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return parsed
}

func getenvInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	parsed, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return parsed
}
