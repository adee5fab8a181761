package gamelog

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/crease-analytics/faceoff/internal/models"
	"github.com/crease-analytics/faceoff/pkg/database"
)

// Repository persists the game and goalie logs in Postgres. Engines never
// query it directly; the dataset builder loads history once, in order, into
// the in-memory Store before any engine is constructed.
type Repository struct {
	db     *database.DB
	logger *logrus.Logger
}

// NewRepository creates a game log repository.
func NewRepository(db *database.DB, logger *logrus.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// Migrate creates or updates the backing tables.
func (r *Repository) Migrate() error {
	if err := r.db.AutoMigrate(&models.GameRecord{}, &models.GoalieGameRecord{}); err != nil {
		return fmt.Errorf("failed to migrate game log schema: %w", err)
	}
	return nil
}

// SaveGames upserts a batch of completed games.
func (r *Repository) SaveGames(games []models.GameRecord) error {
	if len(games) == 0 {
		return nil
	}
	if err := r.db.Save(&games).Error; err != nil {
		return fmt.Errorf("failed to save games: %w", err)
	}
	r.logger.WithFields(logrus.Fields{
		"component": "gamelog",
		"games":     len(games),
	}).Info("Persisted game records")
	return nil
}

// SaveGoalieGames upserts a batch of goaltender appearances.
func (r *Repository) SaveGoalieGames(recs []models.GoalieGameRecord) error {
	if len(recs) == 0 {
		return nil
	}
	if err := r.db.Save(&recs).Error; err != nil {
		return fmt.Errorf("failed to save goalie games: %w", err)
	}
	return nil
}

// LoadGames returns the full game log sorted by (date, game id), the order
// every engine requires.
func (r *Repository) LoadGames() ([]models.GameRecord, error) {
	var games []models.GameRecord
	if err := r.db.Order("date, game_id").Find(&games).Error; err != nil {
		return nil, fmt.Errorf("failed to load game log: %w", err)
	}
	return games, nil
}

// LoadGamesForSeason returns one season's games sorted by (date, game id).
func (r *Repository) LoadGamesForSeason(seasonID string) ([]models.GameRecord, error) {
	var games []models.GameRecord
	if err := r.db.Where("season_id = ?", seasonID).Order("date, game_id").Find(&games).Error; err != nil {
		return nil, fmt.Errorf("failed to load games for season %s: %w", seasonID, err)
	}
	return games, nil
}

// LoadGoalieGames returns all goaltender appearances sorted by (date, game id).
func (r *Repository) LoadGoalieGames() ([]models.GoalieGameRecord, error) {
	var recs []models.GoalieGameRecord
	if err := r.db.Order("date, game_id").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to load goalie game log: %w", err)
	}
	return recs, nil
}
