package rolling

import (
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/crease-analytics/faceoff/internal/gamelog"
	"github.com/crease-analytics/faceoff/internal/models"
)

// Stat identifies one per-game team statistic. Accessors are typed so a
// request for a nonexistent statistic cannot silently read a wrong column.
type Stat int

const (
	StatGoalsFor Stat = iota
	StatGoalsAgainst
	StatShotsFor
	StatShotsAgainst
	StatExpectedGoalsFor
	StatExpectedGoalsAgainst
	StatCorsiFor
	StatCorsiAgainst
	StatFenwickFor
	StatFenwickAgainst
	StatFaceoffWinPct
	StatSavePct
	StatHighDangerFor
	StatHighDangerAgainst
	StatPowerPlayGoals
	StatPenaltyMinutes
	StatWin
)

var statNames = map[Stat]string{
	StatGoalsFor:             "goals_for",
	StatGoalsAgainst:         "goals_against",
	StatShotsFor:             "shots_for",
	StatShotsAgainst:         "shots_against",
	StatExpectedGoalsFor:     "xg_for",
	StatExpectedGoalsAgainst: "xg_against",
	StatCorsiFor:             "corsi_for",
	StatCorsiAgainst:         "corsi_against",
	StatFenwickFor:           "fenwick_for",
	StatFenwickAgainst:       "fenwick_against",
	StatFaceoffWinPct:        "faceoff_win_pct",
	StatSavePct:              "save_pct",
	StatHighDangerFor:        "high_danger_for",
	StatHighDangerAgainst:    "high_danger_against",
	StatPowerPlayGoals:       "power_play_goals",
	StatPenaltyMinutes:       "penalty_minutes",
	StatWin:                  "win",
}

// String returns the snake_case stat name used in feature columns.
func (s Stat) String() string {
	if name, ok := statNames[s]; ok {
		return name
	}
	return "unknown"
}

// valueOf reads the statistic from a game already normalized to the team's
// own perspective.
func (s Stat) valueOf(p models.TeamPerspective) float64 {
	switch s {
	case StatGoalsFor:
		return p.Stats.GoalsFor
	case StatGoalsAgainst:
		return p.Stats.GoalsAgainst
	case StatShotsFor:
		return p.Stats.ShotsFor
	case StatShotsAgainst:
		return p.Stats.ShotsAgainst
	case StatExpectedGoalsFor:
		return p.Stats.ExpectedGoalsFor
	case StatExpectedGoalsAgainst:
		return p.Stats.ExpectedGoalsAgainst
	case StatCorsiFor:
		return p.Stats.CorsiFor
	case StatCorsiAgainst:
		return p.Stats.CorsiAgainst
	case StatFenwickFor:
		return p.Stats.FenwickFor
	case StatFenwickAgainst:
		return p.Stats.FenwickAgainst
	case StatFaceoffWinPct:
		return p.Stats.FaceoffWinPct
	case StatSavePct:
		return p.Stats.SavePct()
	case StatHighDangerFor:
		return p.Stats.HighDangerFor
	case StatHighDangerAgainst:
		return p.Stats.HighDangerAgainst
	case StatPowerPlayGoals:
		return p.Stats.PowerPlayGoals
	case StatPenaltyMinutes:
		return p.Stats.PenaltyMinutes
	case StatWin:
		if p.Won {
			return 1
		}
		return 0
	}
	return 0
}

// Engine computes trailing-window and season-to-date aggregates over the
// game log, using only games strictly before the as-of date. Every value is
// normalized to the requested team's perspective before windowing.
type Engine struct {
	store  *gamelog.Store
	logger *logrus.Logger
}

// NewEngine creates a rolling stat engine over the given game log.
func NewEngine(store *gamelog.Store, logger *logrus.Logger) *Engine {
	return &Engine{store: store, logger: logger}
}

// Rolling returns the mean of the trailing window games strictly before
// asOf. With fewer than window prior games it averages whatever exists; with
// zero prior games the second return is false and the caller substitutes its
// neutral default.
func (e *Engine) Rolling(teamID string, stat Stat, window int, asOf time.Time) (float64, bool) {
	if window <= 0 {
		return 0, false
	}
	games := e.store.TeamGamesBefore(teamID, asOf, "")
	return meanOfTail(games, stat, window)
}

// ExpandingSeason returns the season-to-date mean over all of teamID's games
// in seasonID strictly before asOf.
func (e *Engine) ExpandingSeason(teamID string, stat Stat, seasonID string, asOf time.Time) (float64, bool) {
	games := e.store.TeamGamesBefore(teamID, asOf, seasonID)
	return meanOfTail(games, stat, len(games))
}

// Momentum returns the short-window mean minus the long-window mean of the
// same statistic. Both terms come from the already-shifted rolling values,
// so the target game itself never contributes to either side.
func (e *Engine) Momentum(teamID string, stat Stat, shortWindow, longWindow int, asOf time.Time) (float64, bool) {
	games := e.store.TeamGamesBefore(teamID, asOf, "")
	short, okShort := meanOfTail(games, stat, shortWindow)
	long, okLong := meanOfTail(games, stat, longWindow)
	if !okShort || !okLong {
		return 0, false
	}
	return short - long, true
}

// RollingWinPct is shorthand for a trailing win-rate window.
func (e *Engine) RollingWinPct(teamID string, window int, asOf time.Time) (float64, bool) {
	return e.Rolling(teamID, StatWin, window, asOf)
}

func meanOfTail(games []models.TeamPerspective, s Stat, window int) (float64, bool) {
	if len(games) == 0 || window <= 0 {
		return 0, false
	}
	start := len(games) - window
	if start < 0 {
		start = 0
	}
	tail := games[start:]
	values := make([]float64, len(tail))
	for i := range tail {
		values[i] = s.valueOf(tail[i])
	}
	return stat.Mean(values, nil), true
}
