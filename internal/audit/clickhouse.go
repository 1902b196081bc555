// Package audit persists AuditRecord rows to ClickHouse through a
// buffered, batching Writer so WriteAudit can return as soon as a
// record is enqueued, satisfying invariant I2 without forcing a
// synchronous insert per call.
package audit

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"github.com/Abhinay1073/cyepro-notification-engine/internal/config"
	"github.com/Abhinay1073/cyepro-notification-engine/internal/domain"
)

const auditSchemaDDL = `
CREATE TABLE IF NOT EXISTS audit_records (
	audit_id String,
	event_id String,
	user_id String,
	event_type LowCardinality(String),
	decision LowCardinality(String),
	score Int32,
	reason String,
	stages Map(String, String),
	rules_matched Array(String),
	schedule_at Nullable(DateTime64(3)),
	created_at DateTime64(3) DEFAULT now64(3)
) ENGINE = MergeTree()
ORDER BY (created_at, audit_id)
PARTITION BY toYYYYMM(created_at)
SETTINGS index_granularity = 8192
`

// Client wraps the ClickHouse connection backing the audit sink. Unlike a
// plain analytics reader, this client is load-bearing for invariant I2 (no
// decision is dropped silently): it won't hand back a usable connection
// until the audit_records table it writes into actually exists. A missing
// table is created at startup, and a failure to create it surfaces there
// instead of on the first failed insert.
type Client struct {
	connection driver.Conn
	log        *zap.Logger
}

// NewClient dials ClickHouse, verifies reachability, and ensures the
// audit_records table exists before returning.
func NewClient(ctx context.Context, cfg *config.ClickHouse, log *zap.Logger) (*Client, error) {
	opts, err := dialOptions(cfg)
	if err != nil {
		return nil, err
	}

	log.Info("dialing ClickHouse audit store",
		zap.String("addr", opts.Addr[0]),
		zap.String("database", cfg.Database),
		zap.Bool("tls", cfg.UseTLS))

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("clickhouse audit store: dial %s: %w", opts.Addr[0], err)
	}

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("clickhouse audit store: ping %s: %w", opts.Addr[0], err)
	}

	if err := conn.Exec(ctx, auditSchemaDDL); err != nil {
		return nil, fmt.Errorf("clickhouse audit store: ensure audit_records schema: %w", err)
	}

	log.Info("ClickHouse audit store ready")
	return &Client{connection: conn, log: log}, nil
}

// dialOptions builds the go-clickhouse Options for cfg, splitting TLS
// construction out so it's independently testable and so NewClient's body
// reads as dial/ping/ensure-schema rather than one long options literal.
func dialOptions(cfg *config.ClickHouse) (*clickhouse.Options, error) {
	if cfg.Host == "" || cfg.Port == "" {
		return nil, fmt.Errorf("clickhouse audit store: host and port are required")
	}

	return &clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		TLS:              auditTLSConfig(cfg),
		DialTimeout:      5 * time.Second,
		MaxOpenConns:     cfg.MaxOpenConns,
		MaxIdleConns:     cfg.MaxIdleConns,
		ConnMaxLifetime:  time.Duration(cfg.ConnMaxLifetime) * time.Second,
		ConnOpenStrategy: clickhouse.ConnOpenInOrder,
		BlockBufferSize:  10,
	}, nil
}

func auditTLSConfig(cfg *config.ClickHouse) *tls.Config {
	if !cfg.UseTLS {
		return nil
	}
	return &tls.Config{InsecureSkipVerify: false}
}

// Conn returns the underlying ClickHouse connection.
func (c *Client) Conn() driver.Conn {
	return c.connection
}

// Close releases the connection.
func (c *Client) Close() error {
	return c.connection.Close()
}

// ClickHouseRepository implements Repository against a ClickHouse connection.
type ClickHouseRepository struct {
	client *Client
	log    *zap.Logger
}

// NewRepository builds a ClickHouseRepository over the given Client. The schema is
// already guaranteed to exist by this point (NewClient ensures it), so
// ClickHouseRepository has no InitSchema step of its own.
func NewRepository(client *Client, log *zap.Logger) *ClickHouseRepository {
	return &ClickHouseRepository{client: client, log: log}
}

// InsertBatch inserts a batch of audit records into ClickHouse.
func (r *ClickHouseRepository) InsertBatch(ctx context.Context, records []*domain.AuditRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	batch, err := r.client.Conn().PrepareBatch(ctx, "INSERT INTO audit_records")
	if err != nil {
		return 0, fmt.Errorf("failed to prepare batch: %w", err)
	}

	inserted := 0
	for _, rec := range records {
		rulesMatched := rec.RulesMatched
		if rulesMatched == nil {
			rulesMatched = []string{}
		}

		err := batch.Append(
			rec.AuditID,
			rec.EventID,
			rec.UserID,
			rec.EventType,
			rec.Decision,
			rec.Score,
			rec.Reason,
			rec.Stages,
			rulesMatched,
			rec.ScheduleAt,
			rec.CreatedAt,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to append audit record to batch: %w", err)
		}
		inserted++
	}

	if inserted == 0 {
		return 0, fmt.Errorf("no audit records could be appended to batch")
	}

	if err := batch.Send(); err != nil {
		return 0, fmt.Errorf("failed to send batch: %w", err)
	}

	return inserted, nil
}

// Ping checks if the ClickHouse connection is alive.
func (r *ClickHouseRepository) Ping(ctx context.Context) error {
	return r.client.Conn().Ping(ctx)
}

// Close closes the underlying ClickHouse connection.
func (r *ClickHouseRepository) Close() error {
	return r.client.Close()
}
