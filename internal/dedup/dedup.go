// Package dedup implements the exact-key, exact-fingerprint, and
// near-duplicate (SimHash) checks gating repeated notifications, and
// the fingerprint bookkeeping performed once a decision consumes
// attention.
package dedup

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/Abhinay1073/cyepro-notification-engine/internal/clock"
	"github.com/Abhinay1073/cyepro-notification-engine/internal/config"
	"github.com/Abhinay1073/cyepro-notification-engine/internal/domain"
	"github.com/Abhinay1073/cyepro-notification-engine/internal/hash"
	"github.com/Abhinay1073/cyepro-notification-engine/internal/kv"
)

const simHashMaxDistance = 5

// promoEventTypes get the longer fingerprint TTL; every other event type
// (the spec's "transactional" category, left otherwise undefined) uses
// the shorter default.
var promoEventTypes = map[string]bool{
	"promotion":        true,
	"low_value_promo": true,
}

// Result is the outcome of CheckDuplicate.
type Result struct {
	IsDuplicate bool
	Type        domain.DuplicateKind
	Detail      string
}

// Checker implements the deduplication gate (§4.2).
type Checker struct {
	store kv.Store
	clock clock.Clock
	cfg   *config.Dedup
	log   *zap.Logger
}

// New builds a Checker against the given KV store.
func New(store kv.Store, clk clock.Clock, cfg *config.Dedup, log *zap.Logger) *Checker {
	return &Checker{store: store, clock: clk, cfg: cfg, log: log}
}

// CheckDuplicate runs the three ordered checks and reports the first hit.
// With cfg.FailOpen set, a KV fault during a check is treated as "not a
// duplicate" (fail-open on read); otherwise the fault is reported as a
// PROBE_FAILED duplicate.
func (c *Checker) CheckDuplicate(ctx context.Context, event *domain.Event) Result {
	if event.DedupeKey != "" {
		key := "dedup:key:" + event.DedupeKey
		_, found, err := c.store.Get(ctx, key)
		if err != nil {
			if probeFailed := c.onProbeError("dedup exact-key probe failed", err, key); probeFailed != nil {
				return *probeFailed
			}
		} else if found {
			return Result{IsDuplicate: true, Type: domain.DuplicateExactKey, Detail: event.DedupeKey}
		}
	}

	fp := hash.Fingerprint(event.UserID, event.EventType, event.Message, event.Source)
	fpKey := "dedup:fp:" + fp
	_, found, err := c.store.Get(ctx, fpKey)
	if err != nil {
		if probeFailed := c.onProbeError("dedup fingerprint probe failed", err, fpKey); probeFailed != nil {
			return *probeFailed
		}
	} else if found {
		return Result{IsDuplicate: true, Type: domain.DuplicateExactFingerprint, Detail: fp}
	}

	if len(event.Message) < 10 {
		return Result{}
	}

	simKey := fmt.Sprintf("sim:%s:%s", event.UserID, event.EventType)
	members, err := c.store.ZRangeAll(ctx, simKey)
	if err != nil {
		if probeFailed := c.onProbeError("dedup simhash probe failed", err, simKey); probeFailed != nil {
			return *probeFailed
		}
		return Result{}
	}

	current := hash.SimHash(event.Message)
	for _, m := range members {
		stored, perr := hash.ParseSimHashString(m.Member)
		if perr != nil {
			continue
		}
		if hash.Hamming(current, stored) < simHashMaxDistance {
			return Result{IsDuplicate: true, Type: domain.DuplicateNear, Detail: strconv.FormatUint(stored, 10)}
		}
	}

	return Result{}
}

// onProbeError logs a failed KV probe and, when the checker is configured
// to fail closed, returns the suppression Result the caller should return
// immediately. It returns nil when the caller should fail open and keep
// evaluating the remaining checks.
func (c *Checker) onProbeError(msg string, err error, key string) *Result {
	if c.cfg.FailOpen {
		c.log.Warn(msg+", failing open", zap.Error(err), zap.String("key", key))
		return nil
	}
	c.log.Warn(msg+", failing closed", zap.Error(err), zap.String("key", key))
	return &Result{IsDuplicate: true, Type: domain.DuplicateProbeFailed, Detail: key}
}

// StoreFingerprint records the event's dedup keys and SimHash so future
// calls can recognize it. Called only on non-suppressed outcomes (I3).
// Any KV fault here is logged and swallowed; the pipeline does not retry.
func (c *Checker) StoreFingerprint(ctx context.Context, event *domain.Event) {
	ttl := c.cfg.FingerprintTTL
	if promoEventTypes[event.EventType] {
		ttl = c.cfg.PromoFingerprintTTL
	}

	fp := hash.Fingerprint(event.UserID, event.EventType, event.Message, event.Source)
	if err := c.store.Set(ctx, "dedup:fp:"+fp, "1", ttl); err != nil {
		c.log.Warn("failed to store dedup fingerprint", zap.Error(err))
	}

	if event.DedupeKey != "" {
		if err := c.store.Set(ctx, "dedup:key:"+event.DedupeKey, "1", ttl); err != nil {
			c.log.Warn("failed to store dedup key", zap.Error(err))
		}
	}

	if len(event.Message) < 10 {
		return
	}

	c.storeSimHash(ctx, event)
}

// storeSimHash inserts the current message's SimHash into the per
// user/event-type ordered set and prunes entries older than the prune
// window.
//
// The window (10 minutes by default) is measured against the entry's own
// insertion timestamp, NOT a fixed calendar bucket. The cutoff is the
// window converted once to milliseconds; scaling the 600 s window by a
// further 1000 would put the cutoff about a week back and effectively
// disable pruning.
func (c *Checker) storeSimHash(ctx context.Context, event *domain.Event) {
	simKey := fmt.Sprintf("sim:%s:%s", event.UserID, event.EventType)
	nowMs := float64(c.clock.Now().UnixMilli())
	member := hash.SimHashString(hash.SimHash(event.Message))

	if err := c.store.ZAdd(ctx, simKey, kv.ZMember{Score: nowMs, Member: member}); err != nil {
		c.log.Warn("failed to store simhash", zap.Error(err))
		return
	}

	if err := c.store.Expire(ctx, simKey, c.cfg.SimHashWindow); err != nil {
		c.log.Warn("failed to set simhash set expiry", zap.Error(err))
	}

	pruneWindowMs := float64(c.cfg.SimHashWindow.Milliseconds())
	if err := c.store.ZRemByScore(ctx, simKey, 0, nowMs-pruneWindowMs); err != nil {
		c.log.Warn("failed to prune simhash set", zap.Error(err))
	}
}
