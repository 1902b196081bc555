// Package ai implements the scoring adjustment client: an HTTP-backed
// enricher bounded by a hard deadline, and a deterministic-ish mock
// fallback used when no endpoint is configured (§4.7).
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/Abhinay1073/cyepro-notification-engine/internal/domain"
)

const (
	minAdjustment = -10
	maxAdjustment = 15
)

// Enricher computes the AI score adjustment for an event.
type Enricher interface {
	GetAiScore(ctx context.Context, event *domain.Event) (int, error)
}

// HTTPEnricher calls a remote scoring endpoint with a hard deadline.
type HTTPEnricher struct {
	endpoint string
	timeout  time.Duration
	client   *http.Client
}

// NewHTTPEnricher builds an Enricher backed by the given endpoint.
func NewHTTPEnricher(endpoint string, timeout time.Duration) *HTTPEnricher {
	return &HTTPEnricher{
		endpoint: endpoint,
		timeout:  timeout,
		client:   &http.Client{Timeout: timeout},
	}
}

type scoreRequest struct {
	UserID    string `json:"user_id"`
	EventType string `json:"event_type"`
	Channel   string `json:"channel"`
	Source    string `json:"source"`
	HourOfDay int    `json:"hour_of_day"`
}

type scoreResponse struct {
	ScoreAdjustment int `json:"score_adjustment"`
}

// GetAiScore calls the configured endpoint and clamps its adjustment to
// [-10, 15]. The call must complete within the configured timeout;
// callers should treat a returned error as a soft fault recorded as
// stages.ai = "SKIPPED (<reason>)" with ai_adjustment = 0.
func (e *HTTPEnricher) GetAiScore(ctx context.Context, event *domain.Event) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	hourOfDay := time.Now().Hour()
	if event.Timestamp != nil {
		hourOfDay = event.Timestamp.Hour()
	}

	body, err := json.Marshal(scoreRequest{
		UserID:    event.UserID,
		EventType: event.EventType,
		Channel:   string(event.Channel),
		Source:    event.Source,
		HourOfDay: hourOfDay,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal ai request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to build ai request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("ai request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("ai request returned status %d", resp.StatusCode)
	}

	var parsed scoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("failed to decode ai response: %w", err)
	}

	return clamp(parsed.ScoreAdjustment), nil
}

// mockBases are the deterministic per event type bases the Mock
// enricher adds uniform noise to.
var mockBases = map[string]int{
	"security_alert":  12,
	"direct_message":  10,
	"payment_alert":   11,
	"reminder":        8,
	"system_update":   2,
	"promotion":       -5,
	"low_value_promo": -8,
}

// Mock is used when no AI endpoint is configured. It never fails.
type Mock struct {
	rng *rand.Rand
}

// NewMock builds a Mock enricher with its own random source.
func NewMock() *Mock {
	return &Mock{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// GetAiScore returns a per-event-type base plus uniform noise in
// [-3, 2], clamped to [-10, 15].
func (m *Mock) GetAiScore(_ context.Context, event *domain.Event) (int, error) {
	base, ok := mockBases[event.EventType]
	if !ok {
		base = 0
	}
	noise := m.rng.Intn(6) - 3 // uniform in [-3, 2]
	return clamp(base + noise), nil
}

func clamp(v int) int {
	if v < minAdjustment {
		return minAdjustment
	}
	if v > maxAdjustment {
		return maxAdjustment
	}
	return v
}
