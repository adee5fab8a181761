package dataset

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/crease-analytics/faceoff/internal/elo"
	"github.com/crease-analytics/faceoff/internal/features"
	"github.com/crease-analytics/faceoff/internal/gamelog"
	"github.com/crease-analytics/faceoff/internal/goalie"
	"github.com/crease-analytics/faceoff/internal/models"
	"github.com/crease-analytics/faceoff/internal/rolling"
)

// Config selects the engine tunings for one build.
type Config struct {
	Elo         elo.Config
	Features    features.Config
	FeatureList []string
}

// DefaultBuilderConfig returns the documented baseline tuning with the
// standard feature columns.
func DefaultBuilderConfig() Config {
	return Config{
		Elo:         elo.DefaultConfig(),
		Features:    features.DefaultConfig(),
		FeatureList: features.DefaultFeatureList(),
	}
}

// Builder orchestrates ingestion and the three engines to produce the full
// historical training matrix or answer a single-fixture query. Each Builder
// owns a fresh engine set; concurrent builds (backtest folds, experiments)
// construct their own and share nothing mutable.
type Builder struct {
	cfg       Config
	store     *gamelog.Store
	rolling   *rolling.Engine
	elo       *elo.Engine
	goalies   *goalie.Tracker
	assembler *features.Assembler
	logger    *logrus.Logger
}

// NewBuilder creates a builder with empty engines.
func NewBuilder(cfg Config, logger *logrus.Logger) *Builder {
	if len(cfg.FeatureList) == 0 {
		cfg.FeatureList = features.DefaultFeatureList()
	}
	store := gamelog.NewStore(logger)
	rollingEngine := rolling.NewEngine(store, logger)
	eloEngine := elo.NewEngine(cfg.Elo, logger)
	goalieTracker := goalie.NewTracker(logger)
	return &Builder{
		cfg:       cfg,
		store:     store,
		rolling:   rollingEngine,
		elo:       eloEngine,
		goalies:   goalieTracker,
		assembler: features.NewAssembler(store, rollingEngine, eloEngine, goalieTracker, cfg.Features, logger),
		logger:    logger,
	}
}

// Elo exposes the builder's rating engine for checkpointing and reporting.
func (b *Builder) Elo() *elo.Engine {
	return b.elo
}

// RestoreCheckpoint loads a saved rating snapshot into the builder's engine,
// so a rebuild advances only the games newer than the checkpoint instead of
// replaying the whole history through the rating update.
func (b *Builder) RestoreCheckpoint(cp elo.Checkpoint) {
	b.elo.Restore(cp)
	if b.logger != nil {
		b.logger.WithFields(logrus.Fields{
			"component": "dataset",
			"season":    cp.CurrentSeason,
			"last_date": cp.LastDate.Format("2006-01-02"),
			"teams":     len(cp.Ratings),
		}).Info("Restored rating checkpoint")
	}
}

// Assembler exposes the feature assembler for single-row queries.
func (b *Builder) Assembler() *features.Assembler {
	return b.assembler
}

// FeatureList returns the column set this builder assembles.
func (b *Builder) FeatureList() []string {
	return append([]string(nil), b.cfg.FeatureList...)
}

// Ingest sorts and loads history into the game log and goaltender tracker.
// The Elo engine is deliberately not advanced here: BuildTrainingSet streams
// it game by game so each row sees only strictly-prior ratings.
func (b *Builder) Ingest(games []models.GameRecord, goalieGames []models.GoalieGameRecord) error {
	sorted := append([]models.GameRecord(nil), games...)
	gamelog.SortChronological(sorted)
	if err := b.store.AppendAll(sorted); err != nil {
		return fmt.Errorf("ingest games: %w", err)
	}
	if err := b.goalies.AddGames(goalieGames); err != nil {
		return fmt.Errorf("ingest goalie games: %w", err)
	}
	if b.logger != nil {
		b.logger.WithFields(logrus.Fields{
			"component":    "dataset",
			"games":        b.store.Len(),
			"goalie_games": len(goalieGames),
		}).Info("Ingested history")
	}
	return nil
}

// BuildTrainingSet assembles one feature row per ingested game, each built
// strictly from games before that game's date, and advances the rating
// engine afterwards. Games where either side has no prior history are
// skipped, not zero-filled, so the label vector stays aligned with real
// rows.
func (b *Builder) BuildTrainingSet() (*models.Dataset, error) {
	ds := &models.Dataset{Columns: append([]string(nil), b.cfg.FeatureList...)}
	skipped := 0

	for _, game := range b.store.Games() {
		g := game
		vec, ok := b.assembler.Build(g.HomeTeamID, g.AwayTeamID, g.Date, g.SeasonID, b.cfg.FeatureList)
		if ok {
			ds.Rows = append(ds.Rows, vec.Values)
			ds.Labels = append(ds.Labels, g.HomeWin)
			ds.GameIDs = append(ds.GameIDs, g.GameID)
		} else {
			skipped++
		}
		// Games already covered by a restored checkpoint keep their recorded
		// ratings; re-running them would trip the ordering guard.
		if _, done := b.elo.GameRatingFor(g.GameID); done {
			continue
		}
		// The rating update runs after featurizing: the row must only see
		// pre-game state.
		if _, err := b.elo.ProcessGame(&g); err != nil {
			return nil, fmt.Errorf("process game %s: %w", g.GameID, err)
		}
	}

	if b.logger != nil {
		b.logger.WithFields(logrus.Fields{
			"component": "dataset",
			"rows":      ds.Len(),
			"skipped":   skipped,
		}).Info("Built training set")
	}
	return ds, nil
}

// PredictFixture answers a single upcoming-fixture query using a trained
// classifier. Zero prior history on either side yields a neutral toss-up
// result flagged insufficient, never an error.
func (b *Builder) PredictFixture(clf Classifier, homeTeamID, awayTeamID string, date time.Time, seasonID string) (models.MatchupResult, error) {
	result := models.MatchupResult{
		HomeTeamID: homeTeamID,
		AwayTeamID: awayTeamID,
		Date:       date,
		SeasonID:   seasonID,
	}

	vec, ok := b.assembler.Build(homeTeamID, awayTeamID, date, seasonID, b.cfg.FeatureList)
	if !ok {
		result.HomeWinProbability = 0.5
		result.Confidence = models.ConfidenceTossUp
		result.InsufficientHistory = true
		return result, nil
	}

	probability, err := clf.PredictProba(vec.Values)
	if err != nil {
		return models.MatchupResult{}, fmt.Errorf("predict %s vs %s: %w", homeTeamID, awayTeamID, err)
	}

	result.HomeWinProbability = probability
	result.Confidence = models.ConfidenceTier(probability)
	result.Features = &vec
	return result, nil
}
