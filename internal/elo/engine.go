package elo

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/crease-analytics/faceoff/internal/models"
)

// ErrOutOfOrder is returned when a game predates the engine's last processed
// game. Ratings are a strictly sequential state machine; an out-of-order
// update would corrupt every rating derived after it.
var ErrOutOfOrder = errors.New("elo: game processed out of chronological order")

// Config holds every tunable of the rating engine. The source experiments
// disagree on k-factor, home advantage, and whether home advantage should
// track the league's actual home-win rate, so none of these are hardcoded.
type Config struct {
	BaseRating           float64 `json:"base_rating"`
	KFactor              float64 `json:"k_factor"`
	HomeAdvantage        float64 `json:"home_advantage"`
	CarryoverFactor      float64 `json:"carryover_factor"`
	DynamicHomeAdvantage bool    `json:"dynamic_home_advantage"`
	HomeAdvantageWindow  int     `json:"home_advantage_window"`
}

// DefaultConfig returns the documented baseline tuning: +35 rating points of
// home ice (~55% expected at equal ratings), k=10, 70% season carryover.
func DefaultConfig() Config {
	return Config{
		BaseRating:           1500,
		KFactor:              10,
		HomeAdvantage:        35,
		CarryoverFactor:      0.7,
		DynamicHomeAdvantage: false,
		HomeAdvantageWindow:  200,
	}
}

// GameRating is the per-game output consumers read: both sides' pre-game
// ratings and the pre-game expected home-win probability. Post-game ratings
// are never exposed for the same game; a consumer needing a team's rating as
// of a later date replays one update step (see CurrentRating).
type GameRating struct {
	GameID          string    `json:"game_id"`
	Date            time.Time `json:"date"`
	SeasonID        string    `json:"season_id"`
	HomeTeamID      string    `json:"home_team_id"`
	AwayTeamID      string    `json:"away_team_id"`
	HomePreRating   float64   `json:"home_pre_rating"`
	AwayPreRating   float64   `json:"away_pre_rating"`
	ExpectedHomeWin float64   `json:"expected_home_win"`
	HomeAdvantage   float64   `json:"home_advantage"`
	GoalDiff        float64   `json:"goal_diff"`
	HomeWin         bool      `json:"home_win"`
}

// Delta recomputes the rating change applied to the home team after this
// game (the away team received the negation) from the stored pre-game state.
func (r GameRating) Delta(k float64) float64 {
	goalDiff := math.Abs(r.GoalDiff)
	if goalDiff < 1 {
		// Floor of 1 keeps OT/shootout one-goal games from zeroing out.
		goalDiff = 1
	}
	ratingDiff := math.Abs(r.HomePreRating - r.AwayPreRating)
	multiplier := math.Log(goalDiff+1) * (2.2 / (ratingDiff*0.001 + 2.2))
	actual := 0.0
	if r.HomeWin {
		actual = 1.0
	}
	return k * multiplier * (actual - r.ExpectedHomeWin)
}

// Engine is the per-team rating state machine. Instances own all of their
// mutable state; independent builds or backtest folds each get their own
// engine and never share one.
type Engine struct {
	cfg           Config
	ratings       map[string]float64
	lastGames     map[string]GameRating
	history       map[string]GameRating
	currentSeason string
	lastDate      time.Time
	lastGameID    string
	homeResults   []bool
	logger        *logrus.Logger
}

// NewEngine creates an empty rating engine.
func NewEngine(cfg Config, logger *logrus.Logger) *Engine {
	return &Engine{
		cfg:       cfg,
		ratings:   make(map[string]float64),
		lastGames: make(map[string]GameRating),
		history:   make(map[string]GameRating),
		logger:    logger,
	}
}

// Config returns the engine's tuning.
func (e *Engine) Config() Config {
	return e.cfg
}

// ProcessGame applies one completed game, in chronological order, and
// returns the pre-game rating record for feature construction. Each team's
// rating is mutated exactly once per game it plays.
func (e *Engine) ProcessGame(g *models.GameRecord) (GameRating, error) {
	if !e.lastDate.IsZero() {
		if g.Date.Before(e.lastDate) {
			return GameRating{}, fmt.Errorf("%w: game %s dated %s, engine already at %s",
				ErrOutOfOrder, g.GameID, g.Date.Format("2006-01-02"), e.lastDate.Format("2006-01-02"))
		}
		if g.Date.Equal(e.lastDate) && g.GameID < e.lastGameID {
			return GameRating{}, fmt.Errorf("%w: same-day game %s sorts before %s", ErrOutOfOrder, g.GameID, e.lastGameID)
		}
	}

	if g.SeasonID != e.currentSeason {
		e.rollSeason(g.SeasonID)
	}

	homeRating := e.ratingOrBase(g.HomeTeamID)
	awayRating := e.ratingOrBase(g.AwayTeamID)
	homeAdvantage := e.effectiveHomeAdvantage()

	expected := expectedHomeWin(homeRating, awayRating, homeAdvantage)

	rec := GameRating{
		GameID:          g.GameID,
		Date:            g.Date,
		SeasonID:        g.SeasonID,
		HomeTeamID:      g.HomeTeamID,
		AwayTeamID:      g.AwayTeamID,
		HomePreRating:   homeRating,
		AwayPreRating:   awayRating,
		ExpectedHomeWin: expected,
		HomeAdvantage:   homeAdvantage,
		GoalDiff:        g.GoalDiff(),
		HomeWin:         g.HomeWin,
	}

	delta := rec.Delta(e.cfg.KFactor)
	e.ratings[g.HomeTeamID] = homeRating + delta
	e.ratings[g.AwayTeamID] = awayRating - delta

	e.lastGames[g.HomeTeamID] = rec
	e.lastGames[g.AwayTeamID] = rec
	e.history[g.GameID] = rec
	e.lastDate = g.Date
	e.lastGameID = g.GameID

	e.homeResults = append(e.homeResults, g.HomeWin)
	if max := e.cfg.HomeAdvantageWindow; max > 0 && len(e.homeResults) > max {
		e.homeResults = e.homeResults[len(e.homeResults)-max:]
	}

	return rec, nil
}

// LastGameRating returns the pre-game record of the team's most recently
// processed game.
func (e *Engine) LastGameRating(teamID string) (GameRating, bool) {
	rec, ok := e.lastGames[teamID]
	return rec, ok
}

// CurrentRating derives a team's rating as of now by replaying exactly one
// update step over the team's last processed game. Teams the engine has
// never seen sit at the base rating.
func (e *Engine) CurrentRating(teamID string) float64 {
	rec, ok := e.lastGames[teamID]
	if !ok {
		return e.cfg.BaseRating
	}
	return e.replay(rec, teamID)
}

// GameRatingFor returns the stored pre-game record of a processed game.
func (e *Engine) GameRatingFor(gameID string) (GameRating, bool) {
	rec, ok := e.history[gameID]
	return rec, ok
}

// ReplayRating derives teamID's rating immediately after the given processed
// game by replaying that single update over the stored pre-game record.
// Keyed by game id, it stays point-in-time correct even after the engine has
// processed later games.
func (e *Engine) ReplayRating(gameID, teamID string) (float64, bool) {
	rec, ok := e.history[gameID]
	if !ok {
		return 0, false
	}
	if teamID != rec.HomeTeamID && teamID != rec.AwayTeamID {
		return 0, false
	}
	return e.replay(rec, teamID), true
}

func (e *Engine) replay(rec GameRating, teamID string) float64 {
	delta := rec.Delta(e.cfg.KFactor)
	if teamID == rec.HomeTeamID {
		return rec.HomePreRating + delta
	}
	return rec.AwayPreRating - delta
}

// Ratings returns a copy of the full current rating table.
func (e *Engine) Ratings() map[string]float64 {
	out := make(map[string]float64, len(e.ratings))
	for team, rating := range e.ratings {
		out[team] = rating
	}
	return out
}

// rollSeason regresses every rating toward the base at a season boundary.
// Ratings are never otherwise reset.
func (e *Engine) rollSeason(seasonID string) {
	if e.currentSeason != "" {
		for team, rating := range e.ratings {
			e.ratings[team] = e.cfg.BaseRating + e.cfg.CarryoverFactor*(rating-e.cfg.BaseRating)
		}
		if e.logger != nil {
			e.logger.WithFields(logrus.Fields{
				"component":   "elo",
				"from_season": e.currentSeason,
				"to_season":   seasonID,
				"teams":       len(e.ratings),
			}).Info("Season boundary: regressed ratings toward base")
		}
	}
	e.currentSeason = seasonID
}

func (e *Engine) ratingOrBase(teamID string) float64 {
	if rating, ok := e.ratings[teamID]; ok {
		return rating
	}
	return e.cfg.BaseRating
}

// effectiveHomeAdvantage returns the configured constant, or a value backed
// out of the trailing league home-win rate when the dynamic toggle is on. A
// fixed constant silently miscalibrates when real home-ice advantage drifts
// between seasons; the dynamic form tracks it.
func (e *Engine) effectiveHomeAdvantage() float64 {
	if !e.cfg.DynamicHomeAdvantage {
		return e.cfg.HomeAdvantage
	}
	// Need a meaningful sample before trusting the observed rate.
	const minSample = 50
	if len(e.homeResults) < minSample {
		return e.cfg.HomeAdvantage
	}
	wins := 0
	for _, won := range e.homeResults {
		if won {
			wins++
		}
	}
	rate := float64(wins) / float64(len(e.homeResults))
	if rate < 0.05 {
		rate = 0.05
	} else if rate > 0.95 {
		rate = 0.95
	}
	// Invert the expectation formula: the advantage that makes two equally
	// rated teams produce the observed home-win rate.
	return 400 * math.Log10(rate/(1-rate))
}

func expectedHomeWin(homeRating, awayRating, homeAdvantage float64) float64 {
	return 1 / (1 + math.Pow(10, -(homeRating+homeAdvantage-awayRating)/400))
}
