package goalie

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crease-analytics/faceoff/internal/models"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func appearance(goalieID, gameID string, date time.Time, opponent string, saves, shots, goalsAgainst, xga float64) models.GoalieGameRecord {
	return models.GoalieGameRecord{
		GoalieID:             goalieID,
		GameID:               gameID,
		Date:                 date,
		TeamID:               "BOS",
		OpponentID:           opponent,
		Saves:                saves,
		ShotsAgainst:         shots,
		GoalsAgainst:         goalsAgainst,
		TimeOnIceSeconds:     3600,
		ExpectedGoalsAgainst: xga,
	}
}

func TestRecentFormAggregatesTotals(t *testing.T) {
	tracker := NewTracker(nil)
	// 3 games, 90 shots, 85 saves -> .944 save percentage.
	require.NoError(t, tracker.AddGame(appearance("g1", "gm1", day(1), "TOR", 28, 30, 2, 2.5)))
	require.NoError(t, tracker.AddGame(appearance("g1", "gm2", day(3), "NYR", 29, 30, 1, 2.0)))
	require.NoError(t, tracker.AddGame(appearance("g1", "gm3", day(5), "MTL", 28, 30, 2, 3.1)))

	form := tracker.RecentForm("g1", day(10), 10)
	assert.False(t, form.IsDefault)
	assert.Equal(t, 3, form.GamesPlayed)
	assert.InDelta(t, 85.0/90.0, form.SavePct, 1e-9)
	assert.InDelta(t, (0.5+1.0+1.1)/3, form.GSAAvg, 1e-9)
	assert.InDelta(t, 2.6, form.GSATotal, 1e-9)
}

func TestRecentFormStrictlyBeforeDate(t *testing.T) {
	tracker := NewTracker(nil)
	require.NoError(t, tracker.AddGame(appearance("g1", "gm1", day(1), "TOR", 20, 20, 0, 1.0)))
	require.NoError(t, tracker.AddGame(appearance("g1", "gm2", day(5), "NYR", 0, 10, 10, 1.0)))

	// The day-5 meltdown is on the as-of date and must not count.
	form := tracker.RecentForm("g1", day(5), 10)
	assert.Equal(t, 1, form.GamesPlayed)
	assert.InDelta(t, 1.0, form.SavePct, 1e-9)
}

func TestRecentFormLastNWindow(t *testing.T) {
	tracker := NewTracker(nil)
	require.NoError(t, tracker.AddGame(appearance("g1", "gm1", day(1), "TOR", 0, 30, 30, 1.0)))
	require.NoError(t, tracker.AddGame(appearance("g1", "gm2", day(2), "NYR", 30, 30, 0, 1.0)))
	require.NoError(t, tracker.AddGame(appearance("g1", "gm3", day(3), "MTL", 30, 30, 0, 1.0)))

	form := tracker.RecentForm("g1", day(10), 2)
	assert.Equal(t, 2, form.GamesPlayed)
	assert.InDelta(t, 1.0, form.SavePct, 1e-9)
}

func TestRecentFormUnknownGoalieReturnsDefault(t *testing.T) {
	tracker := NewTracker(nil)
	form := tracker.RecentForm("rookie", day(10), 10)
	assert.True(t, form.IsDefault)
	assert.Equal(t, 0, form.GamesPlayed)
	assert.Equal(t, LeagueAvgSavePct, form.SavePct)
	assert.Equal(t, LeagueAvgHighDangerSavePct, form.HighDangerSavePct)
}

func TestVsOpponentBelowMinGamesReturnsDefault(t *testing.T) {
	tracker := NewTracker(nil)
	// Strong recent form, but only 2 career meetings with TOR.
	require.NoError(t, tracker.AddGame(appearance("g1", "gm1", day(1), "TOR", 28, 30, 2, 2.5)))
	require.NoError(t, tracker.AddGame(appearance("g1", "gm2", day(3), "TOR", 29, 30, 1, 2.0)))
	require.NoError(t, tracker.AddGame(appearance("g1", "gm3", day(5), "MTL", 28, 30, 2, 3.1)))

	recent := tracker.RecentForm("g1", day(10), 10)
	assert.InDelta(t, 85.0/90.0, recent.SavePct, 1e-9)

	vs := tracker.VsOpponent("g1", "TOR", day(10), 3)
	assert.True(t, vs.IsDefault)
	assert.Equal(t, LeagueAvgSavePct, vs.SavePct)
}

func TestVsOpponentAtThresholdUsesSample(t *testing.T) {
	tracker := NewTracker(nil)
	require.NoError(t, tracker.AddGame(appearance("g1", "gm1", day(1), "TOR", 30, 30, 0, 1.0)))
	require.NoError(t, tracker.AddGame(appearance("g1", "gm2", day(3), "TOR", 30, 30, 0, 1.0)))
	require.NoError(t, tracker.AddGame(appearance("g1", "gm3", day(5), "TOR", 30, 30, 0, 1.0)))

	vs := tracker.VsOpponent("g1", "TOR", day(10), 3)
	assert.False(t, vs.IsDefault)
	assert.Equal(t, 3, vs.GamesPlayed)
	assert.InDelta(t, 1.0, vs.SavePct, 1e-9)
}

func TestDuplicateAppearanceRejected(t *testing.T) {
	tracker := NewTracker(nil)
	require.NoError(t, tracker.AddGame(appearance("g1", "gm1", day(1), "TOR", 28, 30, 2, 2.5)))

	err := tracker.AddGame(appearance("g1", "gm1", day(1), "TOR", 28, 30, 2, 2.5))
	assert.ErrorIs(t, err, ErrDuplicateAppearance)
}

func TestOutOfOrderAppearanceRejected(t *testing.T) {
	tracker := NewTracker(nil)
	require.NoError(t, tracker.AddGame(appearance("g1", "gm2", day(5), "TOR", 28, 30, 2, 2.5)))

	err := tracker.AddGame(appearance("g1", "gm1", day(2), "NYR", 20, 22, 2, 2.0))
	assert.ErrorIs(t, err, ErrOutOfOrder)
}

func TestZeroShotStintRates(t *testing.T) {
	tracker := NewTracker(nil)
	rec := appearance("g1", "gm1", day(1), "TOR", 0, 0, 0, 0)
	require.NoError(t, tracker.AddGame(rec))

	form := tracker.RecentForm("g1", day(10), 10)
	assert.False(t, form.IsDefault)
	assert.Equal(t, 0.0, form.SavePct)
	assert.Equal(t, 0.0, form.HighDangerSavePct)
}

func TestGSADerivation(t *testing.T) {
	rec := appearance("g1", "gm1", day(1), "TOR", 28, 30, 2, 3.4)
	assert.InDelta(t, 1.4, rec.GSA(), 1e-9)
}
