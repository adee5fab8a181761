package elo

import (
	"time"
)

// Checkpoint is a full snapshot of engine state, taken after the last
// successfully processed game. Restoring it and continuing must yield the
// same ratings as replaying the whole history from scratch.
type Checkpoint struct {
	Config        Config                `json:"config"`
	Ratings       map[string]float64    `json:"ratings"`
	LastGames     map[string]GameRating `json:"last_games"`
	History       map[string]GameRating `json:"history"`
	CurrentSeason string                `json:"current_season"`
	LastDate      time.Time             `json:"last_date"`
	LastGameID    string                `json:"last_game_id"`
	HomeResults   []bool                `json:"home_results"`
	CreatedAt     time.Time             `json:"created_at"`
}

// Checkpoint snapshots the engine. The snapshot shares nothing with the live
// engine, so it stays valid while processing continues.
func (e *Engine) Checkpoint() Checkpoint {
	cp := Checkpoint{
		Config:        e.cfg,
		Ratings:       make(map[string]float64, len(e.ratings)),
		LastGames:     make(map[string]GameRating, len(e.lastGames)),
		History:       make(map[string]GameRating, len(e.history)),
		CurrentSeason: e.currentSeason,
		LastDate:      e.lastDate,
		LastGameID:    e.lastGameID,
		HomeResults:   append([]bool(nil), e.homeResults...),
		CreatedAt:     time.Now().UTC(),
	}
	for team, rating := range e.ratings {
		cp.Ratings[team] = rating
	}
	for team, rec := range e.lastGames {
		cp.LastGames[team] = rec
	}
	for gameID, rec := range e.history {
		cp.History[gameID] = rec
	}
	return cp
}

// Restore replaces the engine's state with the checkpoint's. Subsequent
// games must continue from the checkpoint's last processed game.
func (e *Engine) Restore(cp Checkpoint) {
	e.cfg = cp.Config
	e.ratings = make(map[string]float64, len(cp.Ratings))
	for team, rating := range cp.Ratings {
		e.ratings[team] = rating
	}
	e.lastGames = make(map[string]GameRating, len(cp.LastGames))
	for team, rec := range cp.LastGames {
		e.lastGames[team] = rec
	}
	e.history = make(map[string]GameRating, len(cp.History))
	for gameID, rec := range cp.History {
		e.history[gameID] = rec
	}
	e.currentSeason = cp.CurrentSeason
	e.lastDate = cp.LastDate
	e.lastGameID = cp.LastGameID
	e.homeResults = append([]bool(nil), cp.HomeResults...)
}
