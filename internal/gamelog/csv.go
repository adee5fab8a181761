package gamelog

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/crease-analytics/faceoff/internal/models"
)

const csvDateLayout = "2006-01-02"

// gameRow is the flat CSV shape of one completed game, one column per side
// per statistic.
type gameRow struct {
	GameID       string  `csv:"game_id"`
	Date         string  `csv:"date"`
	SeasonID     string  `csv:"season_id"`
	HomeTeamID   string  `csv:"home_team"`
	AwayTeamID   string  `csv:"away_team"`
	HomeGoalieID string  `csv:"home_goalie"`
	AwayGoalieID string  `csv:"away_goalie"`
	HomeWin      int     `csv:"home_win"`
	HomeGoals    float64 `csv:"home_goals"`
	AwayGoals    float64 `csv:"away_goals"`
	HomeShots    float64 `csv:"home_shots"`
	AwayShots    float64 `csv:"away_shots"`
	HomeXG       float64 `csv:"home_xg"`
	AwayXG       float64 `csv:"away_xg"`
	HomeCorsi    float64 `csv:"home_corsi"`
	AwayCorsi    float64 `csv:"away_corsi"`
	HomeFenwick  float64 `csv:"home_fenwick"`
	AwayFenwick  float64 `csv:"away_fenwick"`
	HomeFaceoff  float64 `csv:"home_faceoff_win_pct"`
	AwayFaceoff  float64 `csv:"away_faceoff_win_pct"`
	HomeHD       float64 `csv:"home_high_danger"`
	AwayHD       float64 `csv:"away_high_danger"`
	HomePPG      float64 `csv:"home_pp_goals"`
	AwayPPG      float64 `csv:"away_pp_goals"`
	HomePIM      float64 `csv:"home_pim"`
	AwayPIM      float64 `csv:"away_pim"`
}

func (r gameRow) toRecord() (models.GameRecord, error) {
	date, err := time.Parse(csvDateLayout, r.Date)
	if err != nil {
		return models.GameRecord{}, fmt.Errorf("game %s has invalid date %q: %w", r.GameID, r.Date, err)
	}
	return models.GameRecord{
		GameID:       r.GameID,
		Date:         date,
		SeasonID:     r.SeasonID,
		HomeTeamID:   r.HomeTeamID,
		AwayTeamID:   r.AwayTeamID,
		HomeGoalieID: r.HomeGoalieID,
		AwayGoalieID: r.AwayGoalieID,
		HomeWin:      r.HomeWin == 1,
		Home: models.TeamGameStats{
			GoalsFor:             r.HomeGoals,
			GoalsAgainst:         r.AwayGoals,
			ShotsFor:             r.HomeShots,
			ShotsAgainst:         r.AwayShots,
			ExpectedGoalsFor:     r.HomeXG,
			ExpectedGoalsAgainst: r.AwayXG,
			CorsiFor:             r.HomeCorsi,
			CorsiAgainst:         r.AwayCorsi,
			FenwickFor:           r.HomeFenwick,
			FenwickAgainst:       r.AwayFenwick,
			FaceoffWinPct:        r.HomeFaceoff,
			HighDangerFor:        r.HomeHD,
			HighDangerAgainst:    r.AwayHD,
			PowerPlayGoals:       r.HomePPG,
			PenaltyMinutes:       r.HomePIM,
		},
		Away: models.TeamGameStats{
			GoalsFor:             r.AwayGoals,
			GoalsAgainst:         r.HomeGoals,
			ShotsFor:             r.AwayShots,
			ShotsAgainst:         r.HomeShots,
			ExpectedGoalsFor:     r.AwayXG,
			ExpectedGoalsAgainst: r.HomeXG,
			CorsiFor:             r.AwayCorsi,
			CorsiAgainst:         r.HomeCorsi,
			FenwickFor:           r.AwayFenwick,
			FenwickAgainst:       r.HomeFenwick,
			FaceoffWinPct:        r.AwayFaceoff,
			HighDangerFor:        r.AwayHD,
			HighDangerAgainst:    r.HomeHD,
			PowerPlayGoals:       r.AwayPPG,
			PenaltyMinutes:       r.AwayPIM,
		},
	}, nil
}

// goalieRow is the flat CSV shape of one goaltender appearance.
type goalieRow struct {
	GoalieID     string  `csv:"goalie_id"`
	GameID       string  `csv:"game_id"`
	Date         string  `csv:"date"`
	TeamID       string  `csv:"team"`
	OpponentID   string  `csv:"opponent"`
	Saves        float64 `csv:"saves"`
	ShotsAgainst float64 `csv:"shots_against"`
	GoalsAgainst float64 `csv:"goals_against"`
	HDShots      float64 `csv:"high_danger_shots"`
	HDSaves      float64 `csv:"high_danger_saves"`
	RushShots    float64 `csv:"rush_shots"`
	RushSaves    float64 `csv:"rush_saves"`
	TOISeconds   float64 `csv:"toi_seconds"`
	ExpectedGA   float64 `csv:"expected_goals_against"`
}

func (r goalieRow) toRecord() (models.GoalieGameRecord, error) {
	date, err := time.Parse(csvDateLayout, r.Date)
	if err != nil {
		return models.GoalieGameRecord{}, fmt.Errorf("goalie game %s/%s has invalid date %q: %w", r.GoalieID, r.GameID, r.Date, err)
	}
	return models.GoalieGameRecord{
		GoalieID:             r.GoalieID,
		GameID:               r.GameID,
		Date:                 date,
		TeamID:               r.TeamID,
		OpponentID:           r.OpponentID,
		Saves:                r.Saves,
		ShotsAgainst:         r.ShotsAgainst,
		GoalsAgainst:         r.GoalsAgainst,
		HighDangerShots:      r.HDShots,
		HighDangerSaves:      r.HDSaves,
		RushShots:            r.RushShots,
		RushSaves:            r.RushSaves,
		TimeOnIceSeconds:     r.TOISeconds,
		ExpectedGoalsAgainst: r.ExpectedGA,
	}, nil
}

// LoadGamesCSV reads a game-log CSV and returns records sorted by
// (date, game id), ready for Store.AppendAll.
func LoadGamesCSV(path string) ([]models.GameRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open game log %s: %w", path, err)
	}
	defer f.Close()

	var rows []gameRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse game log %s: %w", path, err)
	}

	games := make([]models.GameRecord, 0, len(rows))
	for _, row := range rows {
		g, err := row.toRecord()
		if err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	SortChronological(games)
	return games, nil
}

// LoadGoalieGamesCSV reads a goaltender appearance CSV sorted by date.
func LoadGoalieGamesCSV(path string) ([]models.GoalieGameRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open goalie log %s: %w", path, err)
	}
	defer f.Close()

	var rows []goalieRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse goalie log %s: %w", path, err)
	}

	recs := make([]models.GoalieGameRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := row.toRecord()
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	sort.SliceStable(recs, func(i, j int) bool {
		if !recs[i].Date.Equal(recs[j].Date) {
			return recs[i].Date.Before(recs[j].Date)
		}
		return recs[i].GameID < recs[j].GameID
	})
	return recs, nil
}

// SortChronological sorts games by (date, game id), the only order the
// engines accept.
func SortChronological(games []models.GameRecord) {
	sort.SliceStable(games, func(i, j int) bool {
		if !games[i].Date.Equal(games[j].Date) {
			return games[i].Date.Before(games[j].Date)
		}
		return games[i].GameID < games[j].GameID
	})
}
