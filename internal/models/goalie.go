package models

import (
	"time"
)

// GoalieGameRecord is one goaltender appearance. ExpectedGoalsAgainst is
// supplied by the caller (apportioned from the team-level expected-goals
// model by the goalie's share of ice time), never computed here.
type GoalieGameRecord struct {
	GoalieID             string    `gorm:"primaryKey;index:idx_goalie_games" json:"goalie_id"`
	GameID               string    `gorm:"primaryKey" json:"game_id"`
	Date                 time.Time `gorm:"index;not null" json:"date"`
	TeamID               string    `json:"team_id"`
	OpponentID           string    `gorm:"index" json:"opponent_id"`
	Saves                float64   `json:"saves"`
	ShotsAgainst         float64   `json:"shots_against"`
	GoalsAgainst         float64   `json:"goals_against"`
	HighDangerShots      float64   `json:"high_danger_shots"`
	HighDangerSaves      float64   `json:"high_danger_saves"`
	RushShots            float64   `json:"rush_shots"`
	RushSaves            float64   `json:"rush_saves"`
	TimeOnIceSeconds     float64   `json:"toi_seconds"`
	ExpectedGoalsAgainst float64   `json:"expected_goals_against"`
}

// TableName specifies the table name for GORM.
func (GoalieGameRecord) TableName() string {
	return "goalie_game_log"
}

// GSA returns goals saved above expected for this appearance.
func (r GoalieGameRecord) GSA() float64 {
	return r.ExpectedGoalsAgainst - r.GoalsAgainst
}

// SavePct returns the appearance save percentage, 0 for a zero-shot stint.
func (r GoalieGameRecord) SavePct() float64 {
	if r.ShotsAgainst <= 0 {
		return 0
	}
	return r.Saves / r.ShotsAgainst
}

// HighDangerSavePct returns the high-danger save percentage, 0 when the
// goalie faced no high-danger shots.
func (r GoalieGameRecord) HighDangerSavePct() float64 {
	if r.HighDangerShots <= 0 {
		return 0
	}
	return r.HighDangerSaves / r.HighDangerShots
}

// RushSavePct returns the rush-chance save percentage, 0 when the goalie
// faced no rush shots.
func (r GoalieGameRecord) RushSavePct() float64 {
	if r.RushShots <= 0 {
		return 0
	}
	return r.RushSaves / r.RushShots
}
