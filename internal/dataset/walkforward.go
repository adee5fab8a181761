package dataset

import (
	"fmt"
	"math"
	"sync"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/crease-analytics/faceoff/internal/gamelog"
	"github.com/crease-analytics/faceoff/internal/models"
)

// FoldResult is one walk-forward fold's held-out evaluation.
type FoldResult struct {
	Fold      int     `json:"fold"`
	TrainRows int     `json:"train_rows"`
	TestRows  int     `json:"test_rows"`
	Accuracy  float64 `json:"accuracy"`
	LogLoss   float64 `json:"log_loss"`
}

// WalkForward evaluates the feature pipeline with walk-forward validation:
// the game history is split chronologically into folds+1 blocks, and fold i
// trains on everything before block i+1 and scores block i+1. Every fold
// gets its own Builder with fresh engines, so folds run concurrently without
// sharing any mutable state.
func WalkForward(cfg Config, games []models.GameRecord, goalieGames []models.GoalieGameRecord, folds int, newClassifier func() Classifier, logger *logrus.Logger) ([]FoldResult, error) {
	if folds < 1 {
		return nil, fmt.Errorf("walkforward: need at least 1 fold, got %d", folds)
	}
	sorted := append([]models.GameRecord(nil), games...)
	gamelog.SortChronological(sorted)
	blockSize := len(sorted) / (folds + 1)
	if blockSize == 0 {
		return nil, fmt.Errorf("walkforward: %d games cannot fill %d folds", len(sorted), folds)
	}

	results := make([]FoldResult, folds)
	errs := make([]error, folds)
	var wg sync.WaitGroup

	for fold := 0; fold < folds; fold++ {
		wg.Add(1)
		go func(fold int) {
			defer wg.Done()
			trainEnd := blockSize * (fold + 1)
			testEnd := trainEnd + blockSize
			if fold == folds-1 {
				testEnd = len(sorted)
			}
			result, err := runFold(cfg, sorted, goalieGames, fold, trainEnd, testEnd, newClassifier(), logger)
			results[fold] = result
			errs[fold] = err
		}(fold)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

func runFold(cfg Config, sorted []models.GameRecord, goalieGames []models.GoalieGameRecord, fold, trainEnd, testEnd int, clf Classifier, logger *logrus.Logger) (FoldResult, error) {
	builder := NewBuilder(cfg, logger)
	if err := builder.Ingest(sorted[:testEnd], goalieGames); err != nil {
		return FoldResult{}, fmt.Errorf("fold %d: %w", fold, err)
	}

	ds, err := builder.BuildTrainingSet()
	if err != nil {
		return FoldResult{}, fmt.Errorf("fold %d: %w", fold, err)
	}

	// Rows are per-game and pre-game by construction, so the chronological
	// train/test split is just a membership check on the test block's ids.
	testIDs := make(map[string]struct{}, testEnd-trainEnd)
	for _, g := range sorted[trainEnd:testEnd] {
		testIDs[g.GameID] = struct{}{}
	}

	train := &models.Dataset{Columns: ds.Columns}
	test := &models.Dataset{Columns: ds.Columns}
	for i, gameID := range ds.GameIDs {
		target := train
		if _, isTest := testIDs[gameID]; isTest {
			target = test
		}
		target.Rows = append(target.Rows, ds.Rows[i])
		target.Labels = append(target.Labels, ds.Labels[i])
		target.GameIDs = append(target.GameIDs, gameID)
	}

	if train.Len() == 0 || test.Len() == 0 {
		return FoldResult{}, fmt.Errorf("fold %d: empty split (train=%d test=%d)", fold, train.Len(), test.Len())
	}

	if err := clf.Train(train); err != nil {
		return FoldResult{}, fmt.Errorf("fold %d: train: %w", fold, err)
	}

	result := FoldResult{Fold: fold, TrainRows: train.Len(), TestRows: test.Len()}
	hits := make([]float64, test.Len())
	losses := make([]float64, test.Len())
	for i, row := range test.Rows {
		p, err := clf.PredictProba(row)
		if err != nil {
			return FoldResult{}, fmt.Errorf("fold %d: predict: %w", fold, err)
		}
		if (p >= 0.5) == test.Labels[i] {
			hits[i] = 1
		}
		losses[i] = sampleLogLoss(p, test.Labels[i])
	}
	result.Accuracy = stat.Mean(hits, nil)
	result.LogLoss = stat.Mean(losses, nil)

	if logger != nil {
		logger.WithFields(logrus.Fields{
			"component": "walkforward",
			"fold":      fold,
			"train":     result.TrainRows,
			"test":      result.TestRows,
			"accuracy":  result.Accuracy,
			"log_loss":  result.LogLoss,
		}).Info("Fold evaluated")
	}
	return result, nil
}

func sampleLogLoss(p float64, label bool) float64 {
	const eps = 1e-12
	if p < eps {
		p = eps
	} else if p > 1-eps {
		p = 1 - eps
	}
	if label {
		return -math.Log(p)
	}
	return -math.Log(1 - p)
}
