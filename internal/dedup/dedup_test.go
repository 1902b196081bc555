package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/Abhinay1073/cyepro-notification-engine/internal/clock"
	"github.com/Abhinay1073/cyepro-notification-engine/internal/config"
	"github.com/Abhinay1073/cyepro-notification-engine/internal/domain"
	"github.com/Abhinay1073/cyepro-notification-engine/internal/kv"
)

type fakeStore struct {
	strings map[string]string
	zsets   map[string][]kv.ZMember
	getErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{strings: map[string]string{}, zsets: map[string][]kv.ZMember{}}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, bool, error) {
	if f.getErr != nil {
		return "", false, f.getErr
	}
	v, ok := f.strings[key]
	return v, ok, nil
}

func (f *fakeStore) Set(_ context.Context, key, value string, _ time.Duration) error {
	f.strings[key] = value
	return nil
}

func (f *fakeStore) ZAdd(_ context.Context, key string, member kv.ZMember) error {
	f.zsets[key] = append(f.zsets[key], member)
	return nil
}

func (f *fakeStore) ZRangeAll(_ context.Context, key string) ([]kv.ZMember, error) {
	return f.zsets[key], nil
}

func (f *fakeStore) ZRangeByScoreCount(_ context.Context, key string, min, max float64) (int64, error) {
	var count int64
	for _, m := range f.zsets[key] {
		if m.Score >= min && m.Score <= max {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) ZRemByScore(_ context.Context, key string, min, max float64) error {
	kept := f.zsets[key][:0]
	for _, m := range f.zsets[key] {
		if m.Score < min || m.Score > max {
			kept = append(kept, m)
		}
	}
	f.zsets[key] = kept
	return nil
}

func (f *fakeStore) Expire(_ context.Context, _ string, _ time.Duration) error {
	return nil
}

func testCfg() *config.Dedup {
	return &config.Dedup{
		FingerprintTTL:      600 * time.Second,
		PromoFingerprintTTL: 86400 * time.Second,
		SimHashWindow:       10 * time.Minute,
		FailOpen:            true,
	}
}

func TestCheckDuplicate_ExactKey(t *testing.T) {
	store := newFakeStore()
	checker := New(store, clock.Real{}, testCfg(), zap.NewNop())
	ctx := context.Background()

	event := &domain.Event{UserID: "u1", EventType: "reminder", Message: "you have a meeting soon", DedupeKey: "abc123"}
	result := checker.CheckDuplicate(ctx, event)
	assert.False(t, result.IsDuplicate)

	checker.StoreFingerprint(ctx, event)

	result = checker.CheckDuplicate(ctx, event)
	assert.True(t, result.IsDuplicate)
	assert.Equal(t, domain.DuplicateExactKey, result.Type)
}

func TestCheckDuplicate_ExactFingerprint(t *testing.T) {
	store := newFakeStore()
	checker := New(store, clock.Real{}, testCfg(), zap.NewNop())
	ctx := context.Background()

	a := &domain.Event{UserID: "u1", EventType: "reminder", Message: "Your appointment is tomorrow", Source: "svc-a"}
	checker.StoreFingerprint(ctx, a)

	b := &domain.Event{UserID: "u1", EventType: "reminder", Message: "  Your  appointment  is  tomorrow ", Source: "svc-a"}
	result := checker.CheckDuplicate(ctx, b)
	assert.True(t, result.IsDuplicate)
	assert.Equal(t, domain.DuplicateExactFingerprint, result.Type)
}

func TestCheckDuplicate_NearDuplicateBySimHash(t *testing.T) {
	store := newFakeStore()
	checker := New(store, clock.Real{}, testCfg(), zap.NewNop())
	ctx := context.Background()

	a := &domain.Event{UserID: "u1", EventType: "promotion", Message: "Flash sale ends tonight, shop now and save big", Source: "marketing-svc"}
	checker.StoreFingerprint(ctx, a)

	b := &domain.Event{UserID: "u1", EventType: "promotion", Message: "Flash sale ends tonight! Shop now and save big", Source: "marketing-svc"}
	result := checker.CheckDuplicate(ctx, b)
	assert.True(t, result.IsDuplicate)
	assert.Equal(t, domain.DuplicateNear, result.Type)
}

func TestCheckDuplicate_ShortMessageSkipsSimHash(t *testing.T) {
	store := newFakeStore()
	checker := New(store, clock.Real{}, testCfg(), zap.NewNop())
	ctx := context.Background()

	event := &domain.Event{UserID: "u1", EventType: "reminder", Message: "hi"}
	result := checker.CheckDuplicate(ctx, event)
	assert.False(t, result.IsDuplicate)
}

func TestCheckDuplicate_FailsOpenOnReadError(t *testing.T) {
	store := newFakeStore()
	store.getErr = assert.AnError
	checker := New(store, clock.Real{}, testCfg(), zap.NewNop())
	ctx := context.Background()

	event := &domain.Event{UserID: "u1", EventType: "reminder", Message: "some longer message body", DedupeKey: "k1"}
	result := checker.CheckDuplicate(ctx, event)
	assert.False(t, result.IsDuplicate)
}

func TestCheckDuplicate_FailsClosedOnReadErrorWhenConfigured(t *testing.T) {
	store := newFakeStore()
	store.getErr = assert.AnError
	cfg := testCfg()
	cfg.FailOpen = false
	checker := New(store, clock.Real{}, cfg, zap.NewNop())
	ctx := context.Background()

	event := &domain.Event{UserID: "u1", EventType: "reminder", Message: "some longer message body", DedupeKey: "k1"}
	result := checker.CheckDuplicate(ctx, event)
	assert.True(t, result.IsDuplicate)
	assert.Equal(t, domain.DuplicateProbeFailed, result.Type)
}

func TestStoreFingerprint_PromoUsesLongerTTL(t *testing.T) {
	store := newFakeStore()
	checker := New(store, clock.Real{}, testCfg(), zap.NewNop())
	ctx := context.Background()

	event := &domain.Event{UserID: "u1", EventType: "promotion", Message: "Big weekend sale starts now", Source: "marketing-svc"}
	checker.StoreFingerprint(ctx, event)

	assert.NotEmpty(t, store.strings)
}
