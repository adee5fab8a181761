package rolling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crease-analytics/faceoff/internal/gamelog"
	"github.com/crease-analytics/faceoff/internal/models"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func gameWithGoals(id string, date time.Time, season, home, away string, homeGoals, awayGoals float64) models.GameRecord {
	return models.GameRecord{
		GameID:     id,
		Date:       date,
		SeasonID:   season,
		HomeTeamID: home,
		AwayTeamID: away,
		HomeWin:    homeGoals > awayGoals,
		Home:       models.TeamGameStats{GoalsFor: homeGoals, GoalsAgainst: awayGoals},
		Away:       models.TeamGameStats{GoalsFor: awayGoals, GoalsAgainst: homeGoals},
	}
}

func setupEngine(t *testing.T, games ...models.GameRecord) *Engine {
	t.Helper()
	store := gamelog.NewStore(nil)
	require.NoError(t, store.AppendAll(games))
	return NewEngine(store, nil)
}

func TestRollingMeanExcludesAsOfDate(t *testing.T) {
	engine := setupEngine(t,
		gameWithGoals("g1", day(1), "2023-24", "BOS", "TOR", 2, 1),
		gameWithGoals("g2", day(3), "2023-24", "BOS", "NYR", 4, 0),
		gameWithGoals("g3", day(5), "2023-24", "BOS", "MTL", 6, 2),
	)

	// As of day 5, only the day-1 and day-3 games count.
	mean, ok := engine.Rolling("BOS", StatGoalsFor, 10, day(5))
	require.True(t, ok)
	assert.InDelta(t, 3.0, mean, 1e-9)
}

func TestRollingPartialWindowUsesWhatExists(t *testing.T) {
	engine := setupEngine(t,
		gameWithGoals("g1", day(1), "2023-24", "BOS", "TOR", 2, 1),
		gameWithGoals("g2", day(3), "2023-24", "BOS", "NYR", 4, 0),
	)

	// 2 prior games with window=10 averages exactly those 2.
	mean, ok := engine.Rolling("BOS", StatGoalsFor, 10, day(10))
	require.True(t, ok)
	assert.InDelta(t, 3.0, mean, 1e-9)
}

func TestRollingWindowTrailingSlice(t *testing.T) {
	engine := setupEngine(t,
		gameWithGoals("g1", day(1), "2023-24", "BOS", "TOR", 10, 0),
		gameWithGoals("g2", day(2), "2023-24", "BOS", "NYR", 2, 0),
		gameWithGoals("g3", day(3), "2023-24", "BOS", "MTL", 4, 0),
	)

	// Window 2 drops the oldest game.
	mean, ok := engine.Rolling("BOS", StatGoalsFor, 2, day(10))
	require.True(t, ok)
	assert.InDelta(t, 3.0, mean, 1e-9)
}

func TestRollingZeroHistory(t *testing.T) {
	engine := setupEngine(t)
	_, ok := engine.Rolling("SEA", StatGoalsFor, 5, day(10))
	assert.False(t, ok)
}

func TestRollingNormalizesAwayGames(t *testing.T) {
	// BOS played away and scored 5; its goals_for must read 5, not the home
	// side's 2.
	engine := setupEngine(t,
		gameWithGoals("g1", day(1), "2023-24", "MTL", "BOS", 2, 5),
	)

	mean, ok := engine.Rolling("BOS", StatGoalsFor, 5, day(10))
	require.True(t, ok)
	assert.InDelta(t, 5.0, mean, 1e-9)

	against, ok := engine.Rolling("BOS", StatGoalsAgainst, 5, day(10))
	require.True(t, ok)
	assert.InDelta(t, 2.0, against, 1e-9)
}

func TestExpandingSeasonScopesToSeason(t *testing.T) {
	engine := setupEngine(t,
		gameWithGoals("g1", day(1), "2022-23", "BOS", "TOR", 8, 0),
		gameWithGoals("g2", day(10), "2023-24", "BOS", "NYR", 2, 0),
		gameWithGoals("g3", day(12), "2023-24", "BOS", "MTL", 4, 0),
	)

	mean, ok := engine.ExpandingSeason("BOS", StatGoalsFor, "2023-24", day(20))
	require.True(t, ok)
	assert.InDelta(t, 3.0, mean, 1e-9)
}

func TestExpandingSeasonNoGames(t *testing.T) {
	engine := setupEngine(t,
		gameWithGoals("g1", day(1), "2022-23", "BOS", "TOR", 8, 0),
	)
	_, ok := engine.ExpandingSeason("BOS", StatGoalsFor, "2023-24", day(20))
	assert.False(t, ok)
}

func TestMomentumIsShortMinusLong(t *testing.T) {
	engine := setupEngine(t,
		gameWithGoals("g1", day(1), "2023-24", "BOS", "TOR", 1, 0),
		gameWithGoals("g2", day(2), "2023-24", "BOS", "NYR", 1, 0),
		gameWithGoals("g3", day(3), "2023-24", "BOS", "MTL", 5, 0),
		gameWithGoals("g4", day(4), "2023-24", "BOS", "OTT", 5, 0),
	)

	short, ok := engine.Rolling("BOS", StatGoalsFor, 2, day(10))
	require.True(t, ok)
	long, ok := engine.Rolling("BOS", StatGoalsFor, 4, day(10))
	require.True(t, ok)

	momentum, ok := engine.Momentum("BOS", StatGoalsFor, 2, 4, day(10))
	require.True(t, ok)
	assert.InDelta(t, short-long, momentum, 1e-9)
	assert.InDelta(t, 2.0, momentum, 1e-9) // 5.0 recent vs 3.0 overall
}

func TestRollingWinPct(t *testing.T) {
	engine := setupEngine(t,
		gameWithGoals("g1", day(1), "2023-24", "BOS", "TOR", 2, 1),
		gameWithGoals("g2", day(2), "2023-24", "MTL", "BOS", 3, 1),
		gameWithGoals("g3", day(3), "2023-24", "BOS", "NYR", 4, 2),
		gameWithGoals("g4", day(4), "2023-24", "BOS", "OTT", 0, 1),
	)

	pct, ok := engine.RollingWinPct("BOS", 4, day(10))
	require.True(t, ok)
	assert.InDelta(t, 0.5, pct, 1e-9)
}

func TestSavePctStatGuardsZeroShots(t *testing.T) {
	g := gameWithGoals("g1", day(1), "2023-24", "BOS", "TOR", 2, 1)
	g.Home.ShotsAgainst = 0
	engine := setupEngine(t, g)

	pct, ok := engine.Rolling("BOS", StatSavePct, 5, day(10))
	require.True(t, ok)
	assert.Equal(t, 0.0, pct)
}
