// Package config loads the service's environment-derived configuration
// via BarkinBalci/envconfig, grouped the way each downstream client
// package expects its own sub-struct (mirrors the teacher's
// envConfig.SQS / envConfig.ClickHouse parameter style).
package config

import (
	"fmt"
	"time"

	"github.com/BarkinBalci/envconfig"
)

// Service holds the HTTP-surface settings.
type Service struct {
	Environment string `envconfig:"SERVICE_ENVIRONMENT" default:"development"`
	APIPort     string `envconfig:"SERVICE_API_PORT" default:"8080"`
	Host        string `envconfig:"SERVICE_HOST" default:"localhost:8080"`
}

// Valkey holds the KV store connection settings, the first real consumer
// of the fields the teacher declared but never wired.
type Valkey struct {
	Host           string        `envconfig:"VALKEY_HOST" required:"true"`
	Port           string        `envconfig:"VALKEY_PORT" required:"true"`
	Password       string        `envconfig:"VALKEY_PASSWORD" default:""`
	DB             int           `envconfig:"VALKEY_DB" default:"0"`
	CommandTimeout time.Duration `envconfig:"VALKEY_COMMAND_TIMEOUT" default:"2s"`
}

// SQS holds the deferred-dispatch queue settings.
type SQS struct {
	Endpoint string `envconfig:"SQS_ENDPOINT"`
	QueueURL string `envconfig:"SQS_QUEUE_URL" required:"true"`
	Region   string `envconfig:"SQS_REGION" required:"true"`
}

// ClickHouse holds the audit-store connection settings.
type ClickHouse struct {
	Host               string `envconfig:"CLICKHOUSE_HOST" required:"true"`
	Port               string `envconfig:"CLICKHOUSE_PORT" required:"true"`
	Database           string `envconfig:"CLICKHOUSE_DB" required:"true"`
	User               string `envconfig:"CLICKHOUSE_USER" default:""`
	Password           string `envconfig:"CLICKHOUSE_PASSWORD" default:""`
	UseTLS             bool   `envconfig:"CLICKHOUSE_USE_TLS" default:"false"`
	MaxOpenConns       int    `envconfig:"CLICKHOUSE_MAX_OPEN_CONNS" default:"5"`
	MaxIdleConns       int    `envconfig:"CLICKHOUSE_MAX_IDLE_CONNS" default:"2"`
	ConnMaxLifetime    int    `envconfig:"CLICKHOUSE_CONN_MAX_LIFETIME_SEC" default:"3600"`
	BatchMaxSize       int    `envconfig:"CLICKHOUSE_BATCH_MAX_SIZE" default:"500"`
	BatchFlushInterval int    `envconfig:"CLICKHOUSE_BATCH_FLUSH_INTERVAL_SEC" default:"5"`
}

// Rules holds the hot-reloadable rule-set backing store settings.
type Rules struct {
	FilePath     string        `envconfig:"RULES_FILE_PATH" default:"rules.yaml"`
	ReloadPeriod time.Duration `envconfig:"RULES_RELOAD_PERIOD" default:"30s"`
}

// AI holds the scoring adjustment enricher's settings.
type AI struct {
	Endpoint string        `envconfig:"AI_ENDPOINT" default:""`
	Timeout  time.Duration `envconfig:"AI_TIMEOUT" default:"200ms"`
}

// DND holds the default do-not-disturb window settings.
type DND struct {
	DefaultStartHour int    `envconfig:"DND_DEFAULT_START_HOUR" default:"23"`
	DefaultEndHour   int    `envconfig:"DND_DEFAULT_END_HOUR" default:"8"`
	DefaultTimezone  string `envconfig:"DND_DEFAULT_TIMEZONE" default:"UTC"`
}

// Fatigue holds the sliding-window cap settings. Defaults are the
// spec's total=5/hour, per-source=2/hour, promo=1/4 hours.
type Fatigue struct {
	TotalWindow     time.Duration `envconfig:"FATIGUE_TOTAL_WINDOW" default:"1h"`
	TotalCap        int64         `envconfig:"FATIGUE_TOTAL_CAP" default:"5"`
	PerSourceWindow time.Duration `envconfig:"FATIGUE_PER_SOURCE_WINDOW" default:"1h"`
	PerSourceCap    int64         `envconfig:"FATIGUE_PER_SOURCE_CAP" default:"2"`
	PromoWindow     time.Duration `envconfig:"FATIGUE_PROMO_WINDOW" default:"4h"`
	PromoCap        int64         `envconfig:"FATIGUE_PROMO_CAP" default:"1"`
	FailOpen        bool          `envconfig:"FATIGUE_FAIL_OPEN" default:"true"`
}

// Dedup holds the deduplication stage settings.
type Dedup struct {
	FingerprintTTL      time.Duration `envconfig:"DEDUP_FINGERPRINT_TTL" default:"600s"`
	PromoFingerprintTTL time.Duration `envconfig:"DEDUP_PROMO_FINGERPRINT_TTL" default:"86400s"`
	SimHashWindow       time.Duration `envconfig:"DEDUP_SIMHASH_WINDOW" default:"10m"`
	FailOpen            bool          `envconfig:"DEDUP_FAIL_OPEN" default:"true"`
}

// Config is the full process configuration, assembled from its grouped
// sub-structs.
type Config struct {
	Service    Service
	Valkey     Valkey
	SQS        SQS
	ClickHouse ClickHouse
	Rules      Rules
	AI         AI
	DND        DND
	Fatigue    Fatigue
	Dedup      Dedup
}

// Load processes the environment into a Config using the same
// envconfig.Process call the teacher uses, applied per sub-struct so
// envconfig tags resolve without a field-name prefix.
func Load() (*Config, error) {
	var cfg Config
	for _, group := range []interface{}{
		&cfg.Service, &cfg.Valkey, &cfg.SQS, &cfg.ClickHouse,
		&cfg.Rules, &cfg.AI, &cfg.DND, &cfg.Fatigue, &cfg.Dedup,
	} {
		if err := envconfig.Process("", group); err != nil {
			return nil, fmt.Errorf("failed to process config: %w", err)
		}
	}
	return &cfg, nil
}
