package goalie

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/crease-analytics/faceoff/internal/models"
)

var (
	// ErrDuplicateAppearance is returned when the same (goalie, game) pair
	// is appended twice.
	ErrDuplicateAppearance = errors.New("goalie: duplicate appearance for goalie/game")

	// ErrOutOfOrder is returned when an appearance predates the goalie's
	// latest recorded game.
	ErrOutOfOrder = errors.New("goalie: appearance appended out of chronological order")
)

// FormSummary is a point-in-time aggregate of a goaltender's recent work.
// IsDefault marks league-average placeholders returned when the goalie has
// no qualifying sample.
type FormSummary struct {
	GamesPlayed       int     `json:"games_played"`
	SavePct           float64 `json:"save_pct"`
	HighDangerSavePct float64 `json:"high_danger_save_pct"`
	RushSavePct       float64 `json:"rush_save_pct"`
	GSAAvg            float64 `json:"gsa_avg"`
	GSATotal          float64 `json:"gsa_total"`
	IsDefault         bool    `json:"is_default"`
}

// League-average baselines substituted for unknown or thin samples.
const (
	LeagueAvgSavePct           = 0.905
	LeagueAvgHighDangerSavePct = 0.800
	LeagueAvgRushSavePct       = 0.870
)

// LeagueAverageForm returns the documented default summary used for debut
// goaltenders and below-threshold versus-opponent samples.
func LeagueAverageForm() FormSummary {
	return FormSummary{
		SavePct:           LeagueAvgSavePct,
		HighDangerSavePct: LeagueAvgHighDangerSavePct,
		RushSavePct:       LeagueAvgRushSavePct,
		IsDefault:         true,
	}
}

// Tracker is the point-in-time store of goaltender appearances. Each
// instance owns its own history map; independent builds construct their own.
type Tracker struct {
	records map[string][]models.GoalieGameRecord
	seen    map[string]struct{}
	logger  *logrus.Logger
}

// NewTracker creates an empty goaltender tracker.
func NewTracker(logger *logrus.Logger) *Tracker {
	return &Tracker{
		records: make(map[string][]models.GoalieGameRecord),
		seen:    make(map[string]struct{}),
		logger:  logger,
	}
}

// AddGame appends one appearance. Appearances arrive in chronological order
// per goaltender and at most once per (goalie, game).
func (t *Tracker) AddGame(rec models.GoalieGameRecord) error {
	key := rec.GoalieID + "|" + rec.GameID
	if _, dup := t.seen[key]; dup {
		return fmt.Errorf("%w: %s in game %s", ErrDuplicateAppearance, rec.GoalieID, rec.GameID)
	}
	history := t.records[rec.GoalieID]
	if n := len(history); n > 0 && rec.Date.Before(history[n-1].Date) {
		return fmt.Errorf("%w: goalie %s game %s dated %s, latest is %s",
			ErrOutOfOrder, rec.GoalieID, rec.GameID,
			rec.Date.Format("2006-01-02"), history[n-1].Date.Format("2006-01-02"))
	}
	t.records[rec.GoalieID] = append(history, rec)
	t.seen[key] = struct{}{}
	return nil
}

// AddGames appends a batch, stopping at the first invalid record.
func (t *Tracker) AddGames(recs []models.GoalieGameRecord) error {
	for i := range recs {
		if err := t.AddGame(recs[i]); err != nil {
			return err
		}
	}
	return nil
}

// GamesPlayed returns how many appearances the tracker holds for a goalie.
func (t *Tracker) GamesPlayed(goalieID string) int {
	return len(t.records[goalieID])
}

// RecentForm aggregates the goaltender's most recent lastN appearances
// strictly before beforeDate. With zero qualifying games it returns the
// league-average default.
func (t *Tracker) RecentForm(goalieID string, beforeDate time.Time, lastN int) FormSummary {
	qualifying := t.filter(goalieID, beforeDate, "")
	if len(qualifying) == 0 {
		return LeagueAverageForm()
	}
	if lastN > 0 && len(qualifying) > lastN {
		qualifying = qualifying[len(qualifying)-lastN:]
	}
	return summarize(qualifying)
}

// VsOpponent aggregates appearances against one opponent strictly before
// beforeDate. Below minGames qualifying appearances it returns the general
// default rather than a statistically unstable small-sample average.
func (t *Tracker) VsOpponent(goalieID, opponentID string, beforeDate time.Time, minGames int) FormSummary {
	qualifying := t.filter(goalieID, beforeDate, opponentID)
	if len(qualifying) < minGames {
		if t.logger != nil && len(qualifying) > 0 {
			t.logger.WithFields(logrus.Fields{
				"component": "goalie",
				"goalie_id": goalieID,
				"opponent":  opponentID,
				"sample":    len(qualifying),
				"min_games": minGames,
			}).Debug("Versus-opponent sample below threshold, using league average")
		}
		return LeagueAverageForm()
	}
	return summarize(qualifying)
}

func (t *Tracker) filter(goalieID string, beforeDate time.Time, opponentID string) []models.GoalieGameRecord {
	var out []models.GoalieGameRecord
	for _, rec := range t.records[goalieID] {
		if !rec.Date.Before(beforeDate) {
			break
		}
		if opponentID != "" && rec.OpponentID != opponentID {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// summarize computes rate stats from summed totals, so a 3-save relief stint
// cannot swing the sample the way a per-game mean would.
func summarize(recs []models.GoalieGameRecord) FormSummary {
	var saves, shots, hdSaves, hdShots, rushSaves, rushShots, gsa float64
	for _, rec := range recs {
		saves += rec.Saves
		shots += rec.ShotsAgainst
		hdSaves += rec.HighDangerSaves
		hdShots += rec.HighDangerShots
		rushSaves += rec.RushSaves
		rushShots += rec.RushShots
		gsa += rec.GSA()
	}
	summary := FormSummary{
		GamesPlayed: len(recs),
		GSATotal:    gsa,
		GSAAvg:      gsa / float64(len(recs)),
	}
	if shots > 0 {
		summary.SavePct = saves / shots
	}
	if hdShots > 0 {
		summary.HighDangerSavePct = hdSaves / hdShots
	}
	if rushShots > 0 {
		summary.RushSavePct = rushSaves / rushShots
	}
	return summary
}
