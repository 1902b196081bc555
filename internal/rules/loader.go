package rules

import (
	"context"
	"os"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Abhinay1073/cyepro-notification-engine/internal/domain"
)

// ruleFile is the on-disk YAML shape: a top-level "rules" list.
type ruleFile struct {
	Rules []domain.Rule `yaml:"rules"`
}

// Loader polls a YAML backing file and keeps an atomically-swapped
// snapshot of its rules in memory. Readers always see either the
// previous or the current snapshot, never a partial one. On read or
// parse failure the last successfully loaded snapshot remains in
// effect.
type Loader struct {
	path     string
	interval time.Duration
	log      *zap.Logger

	snapshot atomic.Pointer[[]domain.Rule]

	failureCount int64
	lastFailure  atomic.Pointer[time.Time]
}

// NewLoader builds a Loader that reads from path every interval. The
// first load happens synchronously so the returned Loader is
// immediately usable.
func NewLoader(path string, interval time.Duration, log *zap.Logger) (*Loader, error) {
	l := &Loader{path: path, interval: interval, log: log}
	if err := l.reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// Snapshot returns the current rule set.
func (l *Loader) Snapshot() []domain.Rule {
	p := l.snapshot.Load()
	if p == nil {
		return nil
	}
	return *p
}

// Run polls the backing file every interval until ctx is cancelled. On
// each failed reload it logs a warning, bumps a failure counter, and
// keeps serving the last good snapshot.
func (l *Loader) Run(ctx context.Context) {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := l.reload(); err != nil {
				now := time.Now()
				atomic.AddInt64(&l.failureCount, 1)
				l.lastFailure.Store(&now)
				l.log.Warn("rules reload failed, keeping previous snapshot",
					zap.Error(err),
					zap.String("path", l.path),
					zap.Int64("consecutive_failures", atomic.LoadInt64(&l.failureCount)))
			} else {
				atomic.StoreInt64(&l.failureCount, 0)
			}
		}
	}
}

func (l *Loader) reload() error {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return err
	}

	var parsed ruleFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return err
	}

	l.snapshot.Store(&parsed.Rules)
	return nil
}

// FailureCount returns the number of consecutive reload failures since
// the last success.
func (l *Loader) FailureCount() int64 {
	return atomic.LoadInt64(&l.failureCount)
}
