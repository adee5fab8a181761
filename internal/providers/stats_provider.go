package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/crease-analytics/faceoff/internal/models"
)

// StatsProvider is the boundary to the external box-score source. Raw
// acquisition and caching live on the other side of this interface; the
// engines only ever see already-fetched GameRecord rows.
type StatsProvider interface {
	FetchGames(ctx context.Context, seasonID string) ([]models.GameRecord, error)
	FetchGoalieGames(ctx context.Context, seasonID string) ([]models.GoalieGameRecord, error)
}

// HTTPStatsProvider fetches completed games from an HTTP stats feed, with
// circuit breaker protection so a flapping upstream cannot stall ingestion.
type HTTPStatsProvider struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *logrus.Logger
}

// NewHTTPStatsProvider creates a provider for the given feed URL.
func NewHTTPStatsProvider(baseURL string, timeout time.Duration, threshold int, logger *logrus.Logger) *HTTPStatsProvider {
	settings := gobreaker.Settings{
		Name:        "stats-feed",
		MaxRequests: uint32(threshold),
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"component": "circuit_breaker",
				"service":   name,
				"from":      from.String(),
				"to":        to.String(),
			}).Info("Circuit breaker state changed")
		},
	}

	return &HTTPStatsProvider{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
	}
}

// FetchGames pulls one season's completed games.
func (p *HTTPStatsProvider) FetchGames(ctx context.Context, seasonID string) ([]models.GameRecord, error) {
	var games []models.GameRecord
	url := fmt.Sprintf("%s/seasons/%s/games", p.baseURL, seasonID)
	if err := p.fetchJSON(ctx, url, &games); err != nil {
		return nil, fmt.Errorf("failed to fetch games for season %s: %w", seasonID, err)
	}
	return games, nil
}

// FetchGoalieGames pulls one season's goaltender appearances.
func (p *HTTPStatsProvider) FetchGoalieGames(ctx context.Context, seasonID string) ([]models.GoalieGameRecord, error) {
	var recs []models.GoalieGameRecord
	url := fmt.Sprintf("%s/seasons/%s/goalie-games", p.baseURL, seasonID)
	if err := p.fetchJSON(ctx, url, &recs); err != nil {
		return nil, fmt.Errorf("failed to fetch goalie games for season %s: %w", seasonID, err)
	}
	return recs, nil
}

func (p *HTTPStatsProvider) fetchJSON(ctx context.Context, url string, out interface{}) error {
	_, err := p.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		resp, err := p.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("stats feed returned status %d", resp.StatusCode)
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return nil, fmt.Errorf("failed to decode stats feed response: %w", err)
		}
		return nil, nil
	})
	return err
}
