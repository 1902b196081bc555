// Package fatigue implements the sliding-window notification caps and
// the penalty/level derivation consumed by the scorer and conflict
// resolver (§4.6).
package fatigue

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Abhinay1073/cyepro-notification-engine/internal/clock"
	"github.com/Abhinay1073/cyepro-notification-engine/internal/config"
	"github.com/Abhinay1073/cyepro-notification-engine/internal/domain"
	"github.com/Abhinay1073/cyepro-notification-engine/internal/kv"
)

var promoEventTypes = map[string]bool{
	"promotion":       true,
	"low_value_promo": true,
}

// Reading is the outcome of a fatigue lookup.
type Reading struct {
	Count   int64
	Penalty int
	Level   domain.FatigueLevel
}

// Accountant tracks per-user notification frequency across the total,
// per-source, and promo-only sliding windows.
type Accountant struct {
	store kv.Store
	clock clock.Clock
	cfg   *config.Fatigue
	log   *zap.Logger
}

// New builds an Accountant against the given KV store.
func New(store kv.Store, clk clock.Clock, cfg *config.Fatigue, log *zap.Logger) *Accountant {
	return &Accountant{store: store, clock: clk, cfg: cfg, log: log}
}

// Check returns the current total-window count and the penalty/level it
// implies. A read failure fails open ({count:0, penalty:0, level:UNKNOWN})
// unless the accountant is configured to fail closed, in which case it
// reports the window as maxed out so the caller throttles rather than
// sends blind.
func (a *Accountant) Check(ctx context.Context, userID string) Reading {
	key := "freq:" + userID + ":total"
	nowMs := float64(a.clock.Now().UnixMilli())
	windowStartMs := nowMs - float64(a.cfg.TotalWindow.Milliseconds())

	count, err := a.store.ZRangeByScoreCount(ctx, key, windowStartMs, nowMs)
	if err != nil {
		if !a.cfg.FailOpen {
			a.log.Warn("fatigue count read failed, failing closed", zap.Error(err), zap.String("key", key))
			return Reading{Count: a.cfg.TotalCap, Penalty: 30, Level: domain.FatigueMaxed}
		}
		a.log.Warn("fatigue count read failed, failing open", zap.Error(err), zap.String("key", key))
		return Reading{Count: 0, Penalty: 0, Level: domain.FatigueUnknown}
	}

	penalty := penaltyFor(count, a.cfg.TotalCap)
	return Reading{Count: count, Penalty: penalty, Level: levelFor(penalty)}
}

// penaltyFor implements the ratio table (§4.6), evaluated highest-ratio
// branch first.
func penaltyFor(count, cap int64) int {
	if cap <= 0 {
		return 0
	}
	ratio := float64(count) / float64(cap)
	switch {
	case ratio >= 1.0:
		return 30
	case ratio >= 0.8:
		return 20
	case ratio >= 0.5:
		return 10
	case count >= 2:
		return 5
	default:
		return 0
	}
}

func levelFor(penalty int) domain.FatigueLevel {
	switch {
	case penalty == 0:
		return domain.FatigueLow
	case penalty <= 10:
		return domain.FatigueMedium
	case penalty <= 20:
		return domain.FatigueHigh
	default:
		return domain.FatigueMaxed
	}
}

// RecordDelivery inserts the event into the total, per-source, and
// (for promo event types) promo sliding windows. Called only on
// NOW/LATER outcomes and the CRITICAL short-circuit (I3). Write
// failures are logged and swallowed.
func (a *Accountant) RecordDelivery(ctx context.Context, event *domain.Event) {
	nowMs := a.clock.Now().UnixMilli()
	member := fmt.Sprintf("%d:%s", nowMs, event.EventType)

	a.bump(ctx, "freq:"+event.UserID+":total", member, float64(nowMs), a.cfg.TotalWindow)
	a.bump(ctx, "freq:"+event.UserID+":"+event.Source, member, float64(nowMs), a.cfg.PerSourceWindow)

	if promoEventTypes[event.EventType] {
		a.bump(ctx, "freq:"+event.UserID+":promo", member, float64(nowMs), a.cfg.PromoWindow)
	}
}

func (a *Accountant) bump(ctx context.Context, key, member string, nowMs float64, window time.Duration) {
	if err := a.store.ZAdd(ctx, key, kv.ZMember{Score: nowMs, Member: member}); err != nil {
		a.log.Warn("failed to record fatigue counter", zap.Error(err), zap.String("key", key))
		return
	}
	if err := a.store.Expire(ctx, key, 4*time.Hour); err != nil {
		a.log.Warn("failed to set fatigue counter expiry", zap.Error(err), zap.String("key", key))
	}
	if err := a.store.ZRemByScore(ctx, key, 0, nowMs-float64(window.Milliseconds())); err != nil {
		a.log.Warn("failed to prune fatigue counter", zap.Error(err), zap.String("key", key))
	}
}
