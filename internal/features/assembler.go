package features

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/crease-analytics/faceoff/internal/elo"
	"github.com/crease-analytics/faceoff/internal/gamelog"
	"github.com/crease-analytics/faceoff/internal/goalie"
	"github.com/crease-analytics/faceoff/internal/models"
	"github.com/crease-analytics/faceoff/internal/rolling"
)

// Config holds the assembler's windowing and sampling settings.
type Config struct {
	ShortWindow         int
	LongWindow          int
	GoalieRecentGames   int
	GoalieMinVsOpponent int
}

// DefaultConfig mirrors the engine defaults.
func DefaultConfig() Config {
	return Config{
		ShortWindow:         5,
		LongWindow:          10,
		GoalieRecentGames:   10,
		GoalieMinVsOpponent: 3,
	}
}

// Assembler pulls both teams' point-in-time state from the rolling, Elo, and
// goaltender engines and emits one differential feature vector for an
// upcoming fixture. Vectors are recomputed on every call; their correctness
// depends entirely on the as-of date, so they are never reused across dates.
type Assembler struct {
	store   *gamelog.Store
	rolling *rolling.Engine
	elo     *elo.Engine
	goalies *goalie.Tracker
	cfg     Config
	logger  *logrus.Logger
}

// NewAssembler wires the three engines behind one feature surface.
func NewAssembler(store *gamelog.Store, rollingEngine *rolling.Engine, eloEngine *elo.Engine, goalies *goalie.Tracker, cfg Config, logger *logrus.Logger) *Assembler {
	return &Assembler{
		store:   store,
		rolling: rollingEngine,
		elo:     eloEngine,
		goalies: goalies,
		cfg:     cfg,
		logger:  logger,
	}
}

// teamContext is one side's point-in-time state: the team's own most recent
// game before the as-of date, found regardless of the side it played in it.
// Role-suffixed raw stats are then read for the role the team actually
// played in that game, not the role it plays in the upcoming fixture.
type teamContext struct {
	teamID   string
	opponent string
	asOf     time.Time
	seasonID string
	last     models.TeamPerspective
}

// goalieID returns the goaltender the team last dressed: the correctly-sided
// goalie from the team's own most recent game.
func (tc teamContext) goalieID(store *gamelog.Store) string {
	g, ok := store.Get(tc.last.GameID)
	if !ok {
		return ""
	}
	if tc.last.Role == models.RoleAway {
		return g.AwayGoalieID
	}
	return g.HomeGoalieID
}

// Build assembles the differential vector for an upcoming fixture. Every
// requested feature is recomputed fresh for each team via the engines and
// then differenced home minus away; no stored pre-differenced value from
// either team's historical rows is ever reused, because those were computed
// against different opponents. The qualifying-game lookup is scoped to the
// fixture's season when seasonID is non-empty, so the second return is false
// for a season opener or a new franchise: an expected condition, not an
// error.
func (a *Assembler) Build(homeTeamID, awayTeamID string, asOf time.Time, seasonID string, featureList []string) (models.FeatureVector, bool) {
	homeLast, homeOK := a.store.LastGameBefore(homeTeamID, asOf, seasonID)
	awayLast, awayOK := a.store.LastGameBefore(awayTeamID, asOf, seasonID)
	if !homeOK || !awayOK {
		if a.logger != nil {
			a.logger.WithFields(logrus.Fields{
				"component": "features",
				"home_team": homeTeamID,
				"away_team": awayTeamID,
				"as_of":     asOf.Format("2006-01-02"),
				"home_ok":   homeOK,
				"away_ok":   awayOK,
			}).Debug("No qualifying prior games for fixture")
		}
		return models.FeatureVector{}, false
	}

	home := teamContext{teamID: homeTeamID, opponent: awayTeamID, asOf: asOf, seasonID: seasonID, last: homeLast}
	away := teamContext{teamID: awayTeamID, opponent: homeTeamID, asOf: asOf, seasonID: seasonID, last: awayLast}

	vector := models.FeatureVector{
		Names:  append([]string(nil), featureList...),
		Values: make([]float64, len(featureList)),
	}
	for i, name := range featureList {
		fn, ok := registry[name]
		if !ok {
			// Unknown features fill with 0.0 per the output contract.
			continue
		}
		vector.Values[i] = fn(a, home, away)
	}
	return vector, true
}

// diff subtracts per-team values, substituting the neutral 0.0 default for a
// side with no computable value.
func diff(homeVal float64, homeOK bool, awayVal float64, awayOK bool) float64 {
	if !homeOK {
		homeVal = 0
	}
	if !awayOK {
		awayVal = 0
	}
	return homeVal - awayVal
}

// restDays is the number of full days between a team's most recent game and
// the as-of date, computed from the team's own schedule, never inherited
// from a stored column of a past fixture.
func restDays(tc teamContext) float64 {
	return tc.asOf.Sub(tc.last.Date).Hours() / 24
}
