package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crease-analytics/faceoff/internal/elo"
	"github.com/crease-analytics/faceoff/internal/models"
)

func newTestService(t *testing.T) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewService(client, time.Hour, nil), mr
}

func processedEngine(t *testing.T) *elo.Engine {
	t.Helper()
	engine := elo.NewEngine(elo.DefaultConfig(), nil)
	games := []models.GameRecord{
		{GameID: "g1", Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), SeasonID: "2023-24",
			HomeTeamID: "BOS", AwayTeamID: "TOR", HomeWin: true,
			Home: models.TeamGameStats{GoalsFor: 4, GoalsAgainst: 1},
			Away: models.TeamGameStats{GoalsFor: 1, GoalsAgainst: 4}},
		{GameID: "g2", Date: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), SeasonID: "2023-24",
			HomeTeamID: "TOR", AwayTeamID: "MTL", HomeWin: false,
			Home: models.TeamGameStats{GoalsFor: 2, GoalsAgainst: 3},
			Away: models.TeamGameStats{GoalsFor: 3, GoalsAgainst: 2}},
	}
	for _, g := range games {
		g := g
		_, err := engine.ProcessGame(&g)
		require.NoError(t, err)
	}
	return engine
}

func TestCheckpointRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	engine := processedEngine(t)

	require.NoError(t, svc.SaveCheckpoint(ctx, "2023-24", engine.Checkpoint()))

	cp, found, err := svc.LoadCheckpoint(ctx, "2023-24")
	require.NoError(t, err)
	require.True(t, found)

	// A restored engine must be indistinguishable from the original: same
	// rating table and the same per-game replay answers.
	restored := elo.NewEngine(elo.DefaultConfig(), nil)
	restored.Restore(cp)
	assert.Equal(t, engine.Ratings(), restored.Ratings())

	want, ok := engine.ReplayRating("g1", "BOS")
	require.True(t, ok)
	got, ok := restored.ReplayRating("g1", "BOS")
	require.True(t, ok)
	assert.InDelta(t, want, got, 1e-9)

	// Continuing from the checkpoint enforces the same ordering contract.
	stale := models.GameRecord{GameID: "g0", Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		SeasonID: "2023-24", HomeTeamID: "BOS", AwayTeamID: "MTL"}
	_, err = restored.ProcessGame(&stale)
	assert.Error(t, err)
}

func TestLoadCheckpointMiss(t *testing.T) {
	svc, _ := newTestService(t)

	_, found, err := svc.LoadCheckpoint(context.Background(), "2019-20")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestPredictionRoundTripAndExpiry(t *testing.T) {
	svc, mr := newTestService(t)
	ctx := context.Background()
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	result := models.MatchupResult{
		HomeTeamID:         "BOS",
		AwayTeamID:         "MTL",
		Date:               date,
		SeasonID:           "2023-24",
		HomeWinProbability: 0.63,
		Confidence:         models.ConfidenceLikely,
	}
	require.NoError(t, svc.CachePrediction(ctx, result))

	cached, found, err := svc.GetPrediction(ctx, "BOS", "MTL", date)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, result.HomeWinProbability, cached.HomeWinProbability)
	assert.Equal(t, result.Confidence, cached.Confidence)

	// The key pins the as-of date: the same matchup a day later is a miss.
	_, found, err = svc.GetPrediction(ctx, "BOS", "MTL", date.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.False(t, found)

	// Predictions expire with their TTL; checkpoints do not.
	mr.FastForward(2 * time.Hour)
	_, found, err = svc.GetPrediction(ctx, "BOS", "MTL", date)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestHealthCheck(t *testing.T) {
	svc, mr := newTestService(t)
	require.NoError(t, svc.HealthCheck(context.Background()))

	mr.Close()
	assert.Error(t, svc.HealthCheck(context.Background()))
}
