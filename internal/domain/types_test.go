package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalize_FillsDeclaredDefaults(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e := &Event{UserID: "u1", EventType: "reminder"}
	e.Normalize(now)

	assert.Equal(t, "unknown", e.Source)
	assert.Equal(t, PriorityMedium, e.PriorityHint)
	assert.Equal(t, ChannelPush, e.Channel)
	assert.NotNil(t, e.Timestamp)
	assert.Equal(t, now, *e.Timestamp)
}

func TestNormalize_PreservesCallerSuppliedFields(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ts := now.Add(-time.Hour)
	e := &Event{
		UserID:       "u1",
		EventType:    "security_alert",
		Source:       "auth-svc",
		PriorityHint: PriorityCritical,
		Channel:      ChannelSMS,
		Timestamp:    &ts,
	}
	e.Normalize(now)

	assert.Equal(t, "auth-svc", e.Source)
	assert.Equal(t, PriorityCritical, e.PriorityHint)
	assert.Equal(t, ChannelSMS, e.Channel)
	assert.Equal(t, ts, *e.Timestamp)
}

func TestNormalize_DoesNotMutateCallerMap(t *testing.T) {
	now := time.Now()
	meta := map[string]interface{}{"k": "v"}
	e := &Event{UserID: "u1", EventType: "reminder", Metadata: meta}
	e.Normalize(now)

	assert.Equal(t, map[string]interface{}{"k": "v"}, e.Metadata)
	assert.Len(t, meta, 1)
}
