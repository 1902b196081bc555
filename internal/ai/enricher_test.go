package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Abhinay1073/cyepro-notification-engine/internal/domain"
)

func TestHTTPEnricher_GetAiScore_ClampsResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(scoreResponse{ScoreAdjustment: 999})
	}))
	defer server.Close()

	enricher := NewHTTPEnricher(server.URL, time.Second)
	score, err := enricher.GetAiScore(context.Background(), &domain.Event{EventType: "reminder"})
	require.NoError(t, err)
	assert.Equal(t, maxAdjustment, score)
}

func TestHTTPEnricher_GetAiScore_TimesOut(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		_ = json.NewEncoder(w).Encode(scoreResponse{ScoreAdjustment: 5})
	}))
	defer server.Close()

	enricher := NewHTTPEnricher(server.URL, 5*time.Millisecond)
	_, err := enricher.GetAiScore(context.Background(), &domain.Event{EventType: "reminder"})
	assert.Error(t, err)
}

func TestHTTPEnricher_GetAiScore_RequestMatchesDocumentedContract(t *testing.T) {
	var body map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_ = json.NewEncoder(w).Encode(scoreResponse{ScoreAdjustment: 0})
	}))
	defer server.Close()

	ts := time.Date(2026, 1, 1, 14, 0, 0, 0, time.UTC)
	enricher := NewHTTPEnricher(server.URL, time.Second)
	_, err := enricher.GetAiScore(context.Background(), &domain.Event{
		UserID:    "u1",
		EventType: "reminder",
		Channel:   domain.ChannelSMS,
		Source:    "billing-svc",
		Timestamp: &ts,
	})
	require.NoError(t, err)

	assert.Equal(t, "u1", body["user_id"])
	assert.Equal(t, "reminder", body["event_type"])
	assert.Equal(t, "sms", body["channel"])
	assert.Equal(t, "billing-svc", body["source"])
	assert.Equal(t, float64(14), body["hour_of_day"])
	assert.NotContains(t, body, "message")
	assert.NotContains(t, body, "priority_hint")
}

func TestHTTPEnricher_GetAiScore_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	enricher := NewHTTPEnricher(server.URL, time.Second)
	_, err := enricher.GetAiScore(context.Background(), &domain.Event{EventType: "reminder"})
	assert.Error(t, err)
}

func TestMock_GetAiScore_WithinBounds(t *testing.T) {
	mock := NewMock()
	for _, eventType := range []string{"security_alert", "promotion", "low_value_promo", "unknown_type"} {
		score, err := mock.GetAiScore(context.Background(), &domain.Event{EventType: eventType})
		assert.NoError(t, err)
		assert.GreaterOrEqual(t, score, minAdjustment)
		assert.LessOrEqual(t, score, maxAdjustment)
	}
}

func TestClamp(t *testing.T) {
	assert.Equal(t, minAdjustment, clamp(-999))
	assert.Equal(t, maxAdjustment, clamp(999))
	assert.Equal(t, 3, clamp(3))
}
