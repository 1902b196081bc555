package audit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Abhinay1073/cyepro-notification-engine/internal/domain"
)

// Repository persists batches of audit records. Schema creation is the
// Client's concern (see NewClient), not the Repository's: by the time a
// Repository exists, its backing table is already guaranteed to exist.
type Repository interface {
	InsertBatch(ctx context.Context, records []*domain.AuditRecord) (int, error)
	Ping(ctx context.Context) error
	Close() error
}

// WriterConfig configures the batching writer.
type WriterConfig struct {
	MaxBatchSize int
	FlushTimeout time.Duration
	BufferSize   int
}

// Writer enqueues audit records onto a buffered channel and flushes
// them to the Repository in batches, so WriteAudit can return as soon
// as a record is accepted into the buffer (I2) without blocking on the
// ClickHouse round trip.
type Writer struct {
	repo   Repository
	config WriterConfig
	log    *zap.Logger

	in chan *domain.AuditRecord
}

// NewWriter builds a Writer over the given Repository.
func NewWriter(repo Repository, config WriterConfig, log *zap.Logger) *Writer {
	return &Writer{
		repo:   repo,
		config: config,
		log:    log,
		in:     make(chan *domain.AuditRecord, config.BufferSize),
	}
}

// WriteAudit enqueues a record for batched persistence. It blocks only
// if the buffer is full; it never blocks on the ClickHouse insert
// itself.
func (w *Writer) WriteAudit(_ context.Context, record *domain.AuditRecord) {
	w.in <- record
}

// Run drains the buffer, batching by size or by FlushTimeout, until ctx
// is cancelled. On cancellation it flushes any partial batch before
// returning.
func (w *Writer) Run(ctx context.Context) {
	ticker := time.NewTicker(w.config.FlushTimeout)
	defer ticker.Stop()

	batch := make([]*domain.AuditRecord, 0, w.config.MaxBatchSize)

	for {
		select {
		case <-ctx.Done():
			w.log.Info("audit writer shutting down")
			if len(batch) > 0 {
				w.flush(context.Background(), batch)
			}
			return

		case record, ok := <-w.in:
			if !ok {
				w.log.Info("audit writer input channel closed")
				if len(batch) > 0 {
					w.flush(context.Background(), batch)
				}
				return
			}

			batch = append(batch, record)

			if len(batch) >= w.config.MaxBatchSize {
				w.flush(ctx, batch)
				batch = make([]*domain.AuditRecord, 0, w.config.MaxBatchSize)
				ticker.Reset(w.config.FlushTimeout)
			}

		case <-ticker.C:
			if len(batch) > 0 {
				w.flush(ctx, batch)
				batch = make([]*domain.AuditRecord, 0, w.config.MaxBatchSize)
			}
		}
	}
}

func (w *Writer) flush(ctx context.Context, records []*domain.AuditRecord) {
	inserted, err := w.repo.InsertBatch(ctx, records)
	if err != nil {
		w.log.Error("failed to insert audit batch", zap.Error(err), zap.Int("record_count", len(records)))
		return
	}

	if inserted != len(records) {
		w.log.Warn("partial audit batch insert", zap.Int("inserted", inserted), zap.Int("expected", len(records)))
		return
	}

	w.log.Info("flushed audit batch", zap.Int("count", inserted))
}
