package models

import (
	"time"
)

// FeatureVector is one assembled matchup row: differential values in the
// exact order of Names. It is recomputed on every query and never reused
// across as-of dates.
type FeatureVector struct {
	Names  []string  `json:"names"`
	Values []float64 `json:"values"`
}

// Get returns the value for a named feature, 0 when the feature is absent.
func (v FeatureVector) Get(name string) float64 {
	for i, n := range v.Names {
		if n == name {
			return v.Values[i]
		}
	}
	return 0
}

// Dataset is the classifier boundary: a named-column feature matrix with an
// aligned label vector (true = home win).
type Dataset struct {
	Columns []string    `json:"columns"`
	Rows    [][]float64 `json:"rows"`
	Labels  []bool      `json:"labels"`
	GameIDs []string    `json:"game_ids"`
}

// Len returns the number of feature rows.
func (d *Dataset) Len() int {
	return len(d.Rows)
}

// Confidence tiers derived from distance between the predicted probability
// and a coin flip.
const (
	ConfidenceTossUp = "toss_up"
	ConfidenceLean   = "lean"
	ConfidenceLikely = "likely"
	ConfidenceStrong = "strong"
)

// ConfidenceTier buckets |p - 0.5| into a reporting label.
func ConfidenceTier(probability float64) string {
	edge := probability - 0.5
	if edge < 0 {
		edge = -edge
	}
	switch {
	case edge >= 0.20:
		return ConfidenceStrong
	case edge >= 0.10:
		return ConfidenceLikely
	case edge >= 0.04:
		return ConfidenceLean
	default:
		return ConfidenceTossUp
	}
}

// MatchupResult is the outward-facing prediction for a single fixture.
type MatchupResult struct {
	HomeTeamID          string         `json:"home_team_id"`
	AwayTeamID          string         `json:"away_team_id"`
	Date                time.Time      `json:"date"`
	SeasonID            string         `json:"season_id"`
	HomeWinProbability  float64        `json:"home_win_probability"`
	Confidence          string         `json:"confidence"`
	InsufficientHistory bool           `json:"insufficient_history"`
	Features            *FeatureVector `json:"features,omitempty"`
}
