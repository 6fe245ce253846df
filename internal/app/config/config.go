// Package config loads process configuration from the environment and the
// fee-schedule file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
	"gopkg.in/yaml.v3"
)

// Config is the process-level configuration, decoded from the environment.
type Config struct {
	HTTPAddr        string        `env:"HTTP_ADDR,default=:8080"`
	DatabaseURL     string        `env:"DATABASE_URL"`
	BlobDir         string        `env:"BLOB_DIR,default=data/proofs"`
	FeeScheduleFile string        `env:"FEE_SCHEDULE_FILE,default=config/fees.yaml"`
	AuditLogFile    string        `env:"AUDIT_LOG_FILE,default=data/audit.jsonl"`
	JWTSecret       string        `env:"JWT_SECRET,required"`
	ConfirmInterval time.Duration `env:"CONFIRM_INTERVAL,default=15s"`
	ConfirmTimeout  time.Duration `env:"CONFIRM_TIMEOUT,default=10m"`
	NAVRefreshSpec  string        `env:"NAV_REFRESH_SPEC,default=*/10 * * * *"`
	ShutdownGrace   time.Duration `env:"SHUTDOWN_GRACE,default=15s"`
	LogLevel        string        `env:"LOG_LEVEL,default=info"`
}

// Load decodes configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	return &cfg, nil
}

// ProductLimits bounds a single request amount for one product line.
type ProductLimits struct {
	MinAmount int64 `yaml:"min_amount"`
	MaxAmount int64 `yaml:"max_amount"`
}

// FeeSchedule is the operator-maintained pricing document. Amounts are whole
// NGN; the platform fee is in basis points.
type FeeSchedule struct {
	PlatformFeeBps int64         `yaml:"platform_fee_bps"`
	GasFeeAmount   int64         `yaml:"gas_fee_amount"`
	Regenerator    ProductLimits `yaml:"regenerator"`
	Primer         ProductLimits `yaml:"primer"`
	MaxProofBytes  int64         `yaml:"max_proof_bytes"`
}

// LoadFeeSchedule reads and validates the fee schedule from path.
func LoadFeeSchedule(path string) (*FeeSchedule, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fee schedule: %w", err)
	}

	var fs FeeSchedule
	if err := yaml.Unmarshal(raw, &fs); err != nil {
		return nil, fmt.Errorf("parse fee schedule: %w", err)
	}
	if err := fs.Validate(); err != nil {
		return nil, fmt.Errorf("fee schedule %s: %w", path, err)
	}
	return &fs, nil
}

// Validate rejects schedules that would produce negative or nonsensical fees.
func (fs *FeeSchedule) Validate() error {
	if fs.PlatformFeeBps < 0 || fs.PlatformFeeBps > 10000 {
		return fmt.Errorf("platform_fee_bps %d outside [0, 10000]", fs.PlatformFeeBps)
	}
	if fs.GasFeeAmount < 0 {
		return fmt.Errorf("gas_fee_amount %d is negative", fs.GasFeeAmount)
	}
	if fs.MaxProofBytes <= 0 {
		return fmt.Errorf("max_proof_bytes must be positive")
	}
	for _, p := range []struct {
		name   string
		limits ProductLimits
	}{
		{"regenerator", fs.Regenerator},
		{"primer", fs.Primer},
	} {
		if p.limits.MinAmount <= 0 {
			return fmt.Errorf("%s min_amount must be positive", p.name)
		}
		if p.limits.MaxAmount < p.limits.MinAmount {
			return fmt.Errorf("%s max_amount below min_amount", p.name)
		}
	}
	return nil
}
