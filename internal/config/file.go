package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors Config for the YAML file. Durations and keys are
// strings so the file stays readable; zero values leave defaults alone.
type fileConfig struct {
	ListenAddr    string `yaml:"listenAddr"`
	PoolSize      int    `yaml:"poolSize"`
	SweepInterval string `yaml:"sweepInterval"`

	Ledger struct {
		Backend     string `yaml:"backend"`
		Path        string `yaml:"path"`
		SQLitePath  string `yaml:"sqlitePath"`
		DatabaseURL string `yaml:"databaseURL"`
		RedisKey    string `yaml:"redisKey"`
	} `yaml:"ledger"`

	Pricing struct {
		PerUnit     float64 `yaml:"perUnit"`
		UnitMinutes float64 `yaml:"unitMinutes"`
		Currency    string  `yaml:"currency"`
	} `yaml:"pricing"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Notify struct {
		Queue         string `yaml:"queue"`
		Buffer        int    `yaml:"buffer"`
		RedisKey      string `yaml:"redisKey"`
		ResendAPIKey  string `yaml:"resendAPIKey"`
		ResendFrom    string `yaml:"resendFrom"`
		ResendBaseURL string `yaml:"resendBaseURL"`
		OwnerEmail    string `yaml:"ownerEmail"`
	} `yaml:"notify"`

	RateLimit struct {
		RPS        float64 `yaml:"rps"`
		Burst      int     `yaml:"burst"`
		TrustProxy bool    `yaml:"trustProxy"`
	} `yaml:"rateLimit"`

	Receipts struct {
		HashKey  string `yaml:"hashKey"`
		BlockKey string `yaml:"blockKey"`
	} `yaml:"receipts"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

func loadFile(path string, cfg *Config) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	return Decode(content, cfg)
}

// Decode applies a YAML document on top of cfg.
func Decode(content []byte, cfg *Config) error {
	var fc fileConfig
	if err := yaml.Unmarshal(content, &fc); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}

	setString(&cfg.ListenAddr, fc.ListenAddr)
	if fc.PoolSize != 0 {
		cfg.PoolSize = fc.PoolSize
	}
	if fc.SweepInterval != "" {
		d, err := time.ParseDuration(fc.SweepInterval)
		if err != nil {
			return fmt.Errorf("decode config: sweepInterval: %w", err)
		}
		cfg.SweepInterval = d
	}

	setString(&cfg.Ledger.Backend, strings.ToLower(fc.Ledger.Backend))
	setString(&cfg.Ledger.Path, fc.Ledger.Path)
	setString(&cfg.Ledger.SQLitePath, fc.Ledger.SQLitePath)
	setString(&cfg.Ledger.DatabaseURL, fc.Ledger.DatabaseURL)
	setString(&cfg.Ledger.RedisKey, fc.Ledger.RedisKey)

	if fc.Pricing.PerUnit != 0 {
		cfg.PricePerUnit = fc.Pricing.PerUnit
	}
	if fc.Pricing.UnitMinutes != 0 {
		cfg.PriceUnitMinutes = fc.Pricing.UnitMinutes
	}
	setString(&cfg.Currency, fc.Pricing.Currency)

	setString(&cfg.Redis.Addr, fc.Redis.Addr)
	setString(&cfg.Redis.Password, fc.Redis.Password)
	if fc.Redis.DB != 0 {
		cfg.Redis.DB = fc.Redis.DB
	}

	setString(&cfg.Notify.Queue, strings.ToLower(fc.Notify.Queue))
	if fc.Notify.Buffer != 0 {
		cfg.Notify.Buffer = fc.Notify.Buffer
	}
	setString(&cfg.Notify.RedisKey, fc.Notify.RedisKey)
	setString(&cfg.Notify.ResendAPIKey, fc.Notify.ResendAPIKey)
	setString(&cfg.Notify.ResendFrom, fc.Notify.ResendFrom)
	setString(&cfg.Notify.ResendBaseURL, fc.Notify.ResendBaseURL)
	setString(&cfg.Notify.OwnerEmail, fc.Notify.OwnerEmail)

	if fc.RateLimit.RPS != 0 {
		cfg.RateRPS = fc.RateLimit.RPS
	}
	if fc.RateLimit.Burst != 0 {
		cfg.RateBurst = fc.RateLimit.Burst
	}
	if fc.RateLimit.TrustProxy {
		cfg.TrustProxy = true
	}

	if fc.Receipts.HashKey != "" {
		k, err := decodeB64(fc.Receipts.HashKey)
		if err != nil {
			return fmt.Errorf("decode config: receipts.hashKey: %w", err)
		}
		cfg.ReceiptHashKey = k
	}
	if fc.Receipts.BlockKey != "" {
		k, err := decodeB64(fc.Receipts.BlockKey)
		if err != nil {
			return fmt.Errorf("decode config: receipts.blockKey: %w", err)
		}
		cfg.ReceiptBlockKey = k
	}

	setString(&cfg.LogLevel, strings.ToLower(fc.Log.Level))
	setString(&cfg.LogFormat, strings.ToLower(fc.Log.Format))
	return nil
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}
