package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/crease-analytics/faceoff/internal/elo"
	"github.com/crease-analytics/faceoff/internal/models"
)

// Service stores Elo checkpoints and fixture predictions in Redis.
// Prediction keys pin the as-of date, so a cached vector can never be served
// for a different date.
type Service struct {
	client        *redis.Client
	predictionTTL time.Duration
	logger        *logrus.Logger
}

// NewService creates a cache service.
func NewService(client *redis.Client, predictionTTL time.Duration, logger *logrus.Logger) *Service {
	return &Service{
		client:        client,
		predictionTTL: predictionTTL,
		logger:        logger,
	}
}

func checkpointKey(seasonID string) string {
	return fmt.Sprintf("elo:checkpoint:%s", seasonID)
}

func predictionKey(homeTeamID, awayTeamID string, date time.Time) string {
	return fmt.Sprintf("prediction:%s:%s:%s", homeTeamID, awayTeamID, date.Format("2006-01-02"))
}

// SaveCheckpoint persists an engine snapshot for incremental resume.
// Checkpoints have no TTL; a new day's games resume from the last one rather
// than replaying the whole history.
func (s *Service) SaveCheckpoint(ctx context.Context, seasonID string, cp elo.Checkpoint) error {
	payload, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}
	if err := s.client.Set(ctx, checkpointKey(seasonID), payload, 0).Err(); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{
			"component": "cache",
			"season_id": seasonID,
			"teams":     len(cp.Ratings),
		}).Info("Saved Elo checkpoint")
	}
	return nil
}

// LoadCheckpoint fetches the latest engine snapshot for a season. The second
// return is false when no checkpoint exists.
func (s *Service) LoadCheckpoint(ctx context.Context, seasonID string) (elo.Checkpoint, bool, error) {
	payload, err := s.client.Get(ctx, checkpointKey(seasonID)).Result()
	if err == redis.Nil {
		return elo.Checkpoint{}, false, nil
	}
	if err != nil {
		return elo.Checkpoint{}, false, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	var cp elo.Checkpoint
	if err := json.Unmarshal([]byte(payload), &cp); err != nil {
		return elo.Checkpoint{}, false, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	return cp, true, nil
}

// CachePrediction stores a fixture result under its (home, away, date) key.
func (s *Service) CachePrediction(ctx context.Context, result models.MatchupResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal prediction: %w", err)
	}
	key := predictionKey(result.HomeTeamID, result.AwayTeamID, result.Date)
	if err := s.client.Set(ctx, key, payload, s.predictionTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache prediction: %w", err)
	}
	return nil
}

// GetPrediction fetches a cached fixture result. The second return is false
// on a cache miss.
func (s *Service) GetPrediction(ctx context.Context, homeTeamID, awayTeamID string, date time.Time) (models.MatchupResult, bool, error) {
	payload, err := s.client.Get(ctx, predictionKey(homeTeamID, awayTeamID, date)).Result()
	if err == redis.Nil {
		return models.MatchupResult{}, false, nil
	}
	if err != nil {
		return models.MatchupResult{}, false, fmt.Errorf("failed to get cached prediction: %w", err)
	}
	var result models.MatchupResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return models.MatchupResult{}, false, fmt.Errorf("failed to unmarshal cached prediction: %w", err)
	}
	return result, true, nil
}

// HealthCheck pings Redis.
func (s *Service) HealthCheck(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
