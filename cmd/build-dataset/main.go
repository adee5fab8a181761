package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/crease-analytics/faceoff/internal/dataset"
	"github.com/crease-analytics/faceoff/internal/elo"
	"github.com/crease-analytics/faceoff/internal/features"
	"github.com/crease-analytics/faceoff/internal/gamelog"
	"github.com/crease-analytics/faceoff/internal/models"
	"github.com/crease-analytics/faceoff/pkg/logger"
)

func main() {
	gamesPath := flag.String("games", "data/games.csv", "Game log CSV")
	goaliesPath := flag.String("goalies", "", "Goalie appearance CSV (optional)")
	outPath := flag.String("out", "data/training_set.csv", "Output feature matrix CSV")
	folds := flag.Int("folds", 0, "Walk-forward folds to evaluate (0 = skip evaluation)")
	kFactor := flag.Float64("k", 10, "Elo k-factor")
	homeAdvantage := flag.Float64("home-advantage", 35, "Elo home advantage in rating points")
	carryover := flag.Float64("carryover", 0.7, "Elo season carryover factor")
	dynamicHA := flag.Bool("dynamic-home-advantage", false, "Derive home advantage from trailing league home-win rate")
	flag.Parse()

	log := logger.InitLogger("", true)

	games, err := gamelog.LoadGamesCSV(*gamesPath)
	if err != nil {
		log.Fatalf("Failed to load games: %v", err)
	}

	var goalieGames []models.GoalieGameRecord
	if *goaliesPath != "" {
		goalieGames, err = gamelog.LoadGoalieGamesCSV(*goaliesPath)
		if err != nil {
			log.Fatalf("Failed to load goalie games: %v", err)
		}
	}

	cfg := dataset.Config{
		Elo: elo.Config{
			BaseRating:           1500,
			KFactor:              *kFactor,
			HomeAdvantage:        *homeAdvantage,
			CarryoverFactor:      *carryover,
			DynamicHomeAdvantage: *dynamicHA,
			HomeAdvantageWindow:  200,
		},
		Features:    features.DefaultConfig(),
		FeatureList: features.DefaultFeatureList(),
	}

	builder := dataset.NewBuilder(cfg, log)
	if err := builder.Ingest(games, goalieGames); err != nil {
		log.Fatalf("Failed to ingest history: %v", err)
	}

	ds, err := builder.BuildTrainingSet()
	if err != nil {
		log.Fatalf("Failed to build training set: %v", err)
	}

	if err := writeDatasetCSV(ds, *outPath); err != nil {
		log.Fatalf("Failed to write training set: %v", err)
	}
	log.WithFields(logrus.Fields{
		"rows":    ds.Len(),
		"columns": len(ds.Columns),
		"out":     *outPath,
	}).Info("Wrote training set")

	if *folds > 0 {
		results, err := dataset.WalkForward(cfg, games, goalieGames, *folds,
			func() dataset.Classifier { return dataset.NewLogisticClassifier() }, log)
		if err != nil {
			log.Fatalf("Walk-forward evaluation failed: %v", err)
		}
		for _, r := range results {
			fmt.Printf("fold %d: train=%d test=%d accuracy=%.4f log_loss=%.4f\n",
				r.Fold, r.TrainRows, r.TestRows, r.Accuracy, r.LogLoss)
		}
	}
}

// writeDatasetCSV exports the matrix with a dynamic column set, which gocsv
// (used for the fixed-shape logs) cannot express.
func writeDatasetCSV(ds *models.Dataset, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := append([]string{"game_id", "home_win"}, ds.Columns...)
	if err := w.Write(header); err != nil {
		return err
	}
	for i, row := range ds.Rows {
		label := "0"
		if ds.Labels[i] {
			label = "1"
		}
		fields := make([]string, 0, len(row)+2)
		fields = append(fields, ds.GameIDs[i], label)
		for _, v := range row {
			fields = append(fields, fmt.Sprintf("%.6f", v))
		}
		if err := w.Write(fields); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
