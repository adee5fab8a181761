package models

import (
	"time"
)

// Role identifies which side of a game a team played. It replaces the
// "_home"/"_away" column-suffix convention used by the upstream data feeds,
// so picking the wrong side is a compile error rather than a silent lookup
// of a misspelled column.
type Role int

const (
	RoleHome Role = iota
	RoleAway
)

// String returns the lowercase role name used in logs and exports.
func (r Role) String() string {
	if r == RoleAway {
		return "away"
	}
	return "home"
}

// Opposite returns the other side of the same game.
func (r Role) Opposite() Role {
	if r == RoleHome {
		return RoleAway
	}
	return RoleHome
}

// TeamGameStats is one side's box score for a single game. All values are
// raw (per-side) numbers; differentials are always recomputed downstream,
// never stored.
type TeamGameStats struct {
	GoalsFor             float64 `json:"goals_for"`
	GoalsAgainst         float64 `json:"goals_against"`
	ShotsFor             float64 `json:"shots_for"`
	ShotsAgainst         float64 `json:"shots_against"`
	ExpectedGoalsFor     float64 `json:"xg_for"`
	ExpectedGoalsAgainst float64 `json:"xg_against"`
	CorsiFor             float64 `json:"corsi_for"`
	CorsiAgainst         float64 `json:"corsi_against"`
	FenwickFor           float64 `json:"fenwick_for"`
	FenwickAgainst       float64 `json:"fenwick_against"`
	FaceoffWinPct        float64 `json:"faceoff_win_pct"`
	HighDangerFor        float64 `json:"high_danger_for"`
	HighDangerAgainst    float64 `json:"high_danger_against"`
	PowerPlayGoals       float64 `json:"power_play_goals"`
	PenaltyMinutes       float64 `json:"penalty_minutes"`
}

// SavePct returns saves over shots faced, guarded against zero-shot games.
func (s TeamGameStats) SavePct() float64 {
	if s.ShotsAgainst <= 0 {
		return 0
	}
	return (s.ShotsAgainst - s.GoalsAgainst) / s.ShotsAgainst
}

// GameRecord is one completed game. Records are immutable once appended to
// the game log and are appended strictly in chronological order (date, then
// game id for same-day ties).
type GameRecord struct {
	GameID       string        `gorm:"primaryKey" json:"game_id"`
	Date         time.Time     `gorm:"index:idx_games_date;not null" json:"date"`
	SeasonID     string        `gorm:"index;not null" json:"season_id"`
	HomeTeamID   string        `gorm:"index;not null" json:"home_team_id"`
	AwayTeamID   string        `gorm:"index;not null" json:"away_team_id"`
	Home         TeamGameStats `gorm:"embedded;embeddedPrefix:home_" json:"home"`
	Away         TeamGameStats `gorm:"embedded;embeddedPrefix:away_" json:"away"`
	HomeGoalieID string        `json:"home_goalie_id,omitempty"`
	AwayGoalieID string        `json:"away_goalie_id,omitempty"`
	HomeWin      bool          `json:"home_win"`
}

// TableName specifies the table name for GORM.
func (GameRecord) TableName() string {
	return "game_log"
}

// StatsFor returns the box score for the given side.
func (g *GameRecord) StatsFor(role Role) TeamGameStats {
	if role == RoleAway {
		return g.Away
	}
	return g.Home
}

// SideFor reports which side teamID played in this game. The second return
// is false when the team did not play in the game at all.
func (g *GameRecord) SideFor(teamID string) (Role, bool) {
	switch teamID {
	case g.HomeTeamID:
		return RoleHome, true
	case g.AwayTeamID:
		return RoleAway, true
	}
	return RoleHome, false
}

// GoalDiff returns the home-perspective goal differential.
func (g *GameRecord) GoalDiff() float64 {
	return g.Home.GoalsFor - g.Away.GoalsFor
}

// TeamPerspective is a single historical game normalized to one team's point
// of view: Stats are that team's own raw numbers regardless of which side it
// played, and Role records the side it actually played.
type TeamPerspective struct {
	GameID     string
	Date       time.Time
	SeasonID   string
	TeamID     string
	OpponentID string
	Role       Role
	Stats      TeamGameStats
	Won        bool
}

// PerspectiveOf normalizes the game to teamID's point of view. The second
// return is false when the team did not play in the game.
func (g *GameRecord) PerspectiveOf(teamID string) (TeamPerspective, bool) {
	role, ok := g.SideFor(teamID)
	if !ok {
		return TeamPerspective{}, false
	}
	opponent := g.AwayTeamID
	won := g.HomeWin
	if role == RoleAway {
		opponent = g.HomeTeamID
		won = !g.HomeWin
	}
	return TeamPerspective{
		GameID:     g.GameID,
		Date:       g.Date,
		SeasonID:   g.SeasonID,
		TeamID:     teamID,
		OpponentID: opponent,
		Role:       role,
		Stats:      g.StatsFor(role),
		Won:        won,
	}, true
}
