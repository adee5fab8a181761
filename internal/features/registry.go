package features

import (
	"math"
	"time"

	"github.com/crease-analytics/faceoff/internal/rolling"
)

// featureFunc computes one differential feature for a fixture from both
// sides' point-in-time contexts.
type featureFunc func(a *Assembler, home, away teamContext) float64

// registry maps stable feature names to their computations. The dataset's
// column set is exactly the requested feature list, in order.
var registry = map[string]featureFunc{
	"elo_rating_diff":       eloRatingDiff,
	"elo_expected_home_win": eloExpectedHomeWin,

	"rolling_win_pct":             rollingDiff(rolling.StatWin),
	"rolling_goals_for":           rollingDiff(rolling.StatGoalsFor),
	"rolling_goals_against":       rollingDiff(rolling.StatGoalsAgainst),
	"rolling_shots_for":           rollingDiff(rolling.StatShotsFor),
	"rolling_shots_against":       rollingDiff(rolling.StatShotsAgainst),
	"rolling_xg_for":              rollingDiff(rolling.StatExpectedGoalsFor),
	"rolling_xg_against":          rollingDiff(rolling.StatExpectedGoalsAgainst),
	"rolling_corsi_for":           rollingDiff(rolling.StatCorsiFor),
	"rolling_fenwick_for":         rollingDiff(rolling.StatFenwickFor),
	"rolling_faceoff_win_pct":     rollingDiff(rolling.StatFaceoffWinPct),
	"rolling_save_pct":            rollingDiff(rolling.StatSavePct),
	"rolling_high_danger_for":     rollingDiff(rolling.StatHighDangerFor),
	"rolling_high_danger_against": rollingDiff(rolling.StatHighDangerAgainst),
	"rolling_power_play_goals":    rollingDiff(rolling.StatPowerPlayGoals),
	"rolling_penalty_minutes":     rollingDiff(rolling.StatPenaltyMinutes),

	"momentum_win_pct":   momentumDiff(rolling.StatWin),
	"momentum_goals_for": momentumDiff(rolling.StatGoalsFor),
	"momentum_xg_for":    momentumDiff(rolling.StatExpectedGoalsFor),
	"momentum_corsi_for": momentumDiff(rolling.StatCorsiFor),

	"season_win_pct":   seasonDiff(rolling.StatWin),
	"season_goals_for": seasonDiff(rolling.StatGoalsFor),
	"season_xg_for":    seasonDiff(rolling.StatExpectedGoalsFor),
	"season_save_pct":  seasonDiff(rolling.StatSavePct),

	"rest_days":            restDaysDiff,
	"is_back_to_back":      backToBackDiff,
	"games_in_last_6_days": scheduleDensityDiff,

	"goalie_save_pct":             goalieFormDiff(func(f goalieForm) float64 { return f.SavePct }),
	"goalie_hd_save_pct":          goalieFormDiff(func(f goalieForm) float64 { return f.HighDangerSavePct }),
	"goalie_rush_save_pct":        goalieFormDiff(func(f goalieForm) float64 { return f.RushSavePct }),
	"goalie_gsa_avg":              goalieFormDiff(func(f goalieForm) float64 { return f.GSAAvg }),
	"goalie_vs_opponent_save_pct": goalieVsOpponentDiff,
}

// DefaultFeatureList is the standard training column set, in a fixed order.
func DefaultFeatureList() []string {
	return []string{
		"elo_rating_diff",
		"elo_expected_home_win",
		"rolling_win_pct",
		"rolling_goals_for",
		"rolling_goals_against",
		"rolling_shots_for",
		"rolling_shots_against",
		"rolling_xg_for",
		"rolling_xg_against",
		"rolling_corsi_for",
		"rolling_fenwick_for",
		"rolling_faceoff_win_pct",
		"rolling_save_pct",
		"rolling_high_danger_for",
		"rolling_high_danger_against",
		"momentum_win_pct",
		"momentum_goals_for",
		"momentum_xg_for",
		"season_win_pct",
		"season_goals_for",
		"season_xg_for",
		"rest_days",
		"is_back_to_back",
		"games_in_last_6_days",
		"goalie_save_pct",
		"goalie_hd_save_pct",
		"goalie_gsa_avg",
		"goalie_vs_opponent_save_pct",
	}
}

// KnownFeature reports whether the assembler can compute the named feature.
func KnownFeature(name string) bool {
	_, ok := registry[name]
	return ok
}

// eloRatingDiff differences the teams' ratings as of the fixture date. The
// Elo engine only exposes pre-game ratings per processed game, so the as-of
// rating is derived by replaying exactly one update step over each team's
// own most recent game before the as-of date. Keying the replay by that
// game's id keeps the value correct even when the engine has since moved on.
func eloRatingDiff(a *Assembler, home, away teamContext) float64 {
	return a.ratingAsOf(home) - a.ratingAsOf(away)
}

// eloExpectedHomeWin is the expectation formula evaluated on the replayed
// as-of ratings for this specific fixture, using the home-ice bonus the
// engine was applying at that point.
func eloExpectedHomeWin(a *Assembler, home, away teamContext) float64 {
	return expectedFromRatings(
		a.ratingAsOf(home),
		a.ratingAsOf(away),
		a.homeAdvantageAsOf(home, away),
	)
}

// ratingAsOf replays one update over the team's last pre-as-of game. A team
// whose last game the engine has not processed sits at the base rating.
func (a *Assembler) ratingAsOf(tc teamContext) float64 {
	if rating, ok := a.elo.ReplayRating(tc.last.GameID, tc.teamID); ok {
		return rating
	}
	return a.elo.Config().BaseRating
}

// homeAdvantageAsOf reads the home-ice bonus recorded with the later of the
// two teams' last games. With dynamic home advantage on, the expectation
// feature then agrees with the bonus the engine had calibrated as of the
// fixture date instead of the static configured value.
func (a *Assembler) homeAdvantageAsOf(home, away teamContext) float64 {
	latest := home.last
	if away.last.Date.After(latest.Date) ||
		(away.last.Date.Equal(latest.Date) && away.last.GameID > latest.GameID) {
		latest = away.last
	}
	if rec, ok := a.elo.GameRatingFor(latest.GameID); ok {
		return rec.HomeAdvantage
	}
	return a.elo.Config().HomeAdvantage
}

func rollingDiff(stat rolling.Stat) featureFunc {
	return func(a *Assembler, home, away teamContext) float64 {
		hv, hok := a.rolling.Rolling(home.teamID, stat, a.cfg.LongWindow, home.asOf)
		av, aok := a.rolling.Rolling(away.teamID, stat, a.cfg.LongWindow, away.asOf)
		return diff(hv, hok, av, aok)
	}
}

func momentumDiff(stat rolling.Stat) featureFunc {
	return func(a *Assembler, home, away teamContext) float64 {
		hv, hok := a.rolling.Momentum(home.teamID, stat, a.cfg.ShortWindow, a.cfg.LongWindow, home.asOf)
		av, aok := a.rolling.Momentum(away.teamID, stat, a.cfg.ShortWindow, a.cfg.LongWindow, away.asOf)
		return diff(hv, hok, av, aok)
	}
}

func seasonDiff(stat rolling.Stat) featureFunc {
	return func(a *Assembler, home, away teamContext) float64 {
		hv, hok := a.rolling.ExpandingSeason(home.teamID, stat, home.seasonID, home.asOf)
		av, aok := a.rolling.ExpandingSeason(away.teamID, stat, away.seasonID, away.asOf)
		return diff(hv, hok, av, aok)
	}
}

func restDaysDiff(a *Assembler, home, away teamContext) float64 {
	return restDays(home) - restDays(away)
}

func backToBackDiff(a *Assembler, home, away teamContext) float64 {
	return backToBack(home) - backToBack(away)
}

func backToBack(tc teamContext) float64 {
	if restDays(tc) <= 1 {
		return 1
	}
	return 0
}

func scheduleDensityDiff(a *Assembler, home, away teamContext) float64 {
	const densityWindow = 6 * 24 * time.Hour
	homeGames := a.store.CountTeamGamesBetween(home.teamID, home.asOf.Add(-densityWindow), home.asOf)
	awayGames := a.store.CountTeamGamesBetween(away.teamID, away.asOf.Add(-densityWindow), away.asOf)
	return float64(homeGames - awayGames)
}

type goalieForm struct {
	SavePct           float64
	HighDangerSavePct float64
	RushSavePct       float64
	GSAAvg            float64
}

func goalieFormDiff(pick func(goalieForm) float64) featureFunc {
	return func(a *Assembler, home, away teamContext) float64 {
		return pick(recentGoalieForm(a, home)) - pick(recentGoalieForm(a, away))
	}
}

// recentGoalieForm reads recent form for the goaltender each side last
// dressed. The league-average default covers teams with no recorded goalie.
func recentGoalieForm(a *Assembler, tc teamContext) goalieForm {
	form := a.goalies.RecentForm(tc.goalieID(a.store), tc.asOf, a.cfg.GoalieRecentGames)
	return goalieForm{
		SavePct:           form.SavePct,
		HighDangerSavePct: form.HighDangerSavePct,
		RushSavePct:       form.RushSavePct,
		GSAAvg:            form.GSAAvg,
	}
}

func goalieVsOpponentDiff(a *Assembler, home, away teamContext) float64 {
	homeForm := a.goalies.VsOpponent(home.goalieID(a.store), home.opponent, home.asOf, a.cfg.GoalieMinVsOpponent)
	awayForm := a.goalies.VsOpponent(away.goalieID(a.store), away.opponent, away.asOf, a.cfg.GoalieMinVsOpponent)
	return homeForm.SavePct - awayForm.SavePct
}

func expectedFromRatings(homeRating, awayRating, homeAdvantage float64) float64 {
	diff := homeRating + homeAdvantage - awayRating
	return 1 / (1 + math.Pow(10, -diff/400))
}
