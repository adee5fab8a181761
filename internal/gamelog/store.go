package gamelog

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/crease-analytics/faceoff/internal/models"
)

var (
	// ErrOutOfOrder is returned when an appended game predates the newest
	// game already in the store. Accepting it silently would corrupt every
	// rating and rolling aggregate derived afterwards, so ingestion fails
	// loudly instead.
	ErrOutOfOrder = errors.New("gamelog: game appended out of chronological order")

	// ErrDuplicateGame is returned when a game id is appended twice.
	ErrDuplicateGame = errors.New("gamelog: duplicate game id")
)

// Store is the append-only, chronologically ordered log of completed games.
// It is the single source every engine reads from; during a feature-build
// pass it is treated as read-only.
type Store struct {
	games  []models.GameRecord
	byID   map[string]int
	byTeam map[string][]int
	logger *logrus.Logger
}

// NewStore creates an empty game log.
func NewStore(logger *logrus.Logger) *Store {
	return &Store{
		byID:   make(map[string]int),
		byTeam: make(map[string][]int),
		logger: logger,
	}
}

// Append adds one completed game. Games must arrive sorted by date with the
// game id as a stable tie-break within a date; anything else is rejected.
func (s *Store) Append(g models.GameRecord) error {
	if _, exists := s.byID[g.GameID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateGame, g.GameID)
	}
	if n := len(s.games); n > 0 {
		last := s.games[n-1]
		if g.Date.Before(last.Date) {
			return fmt.Errorf("%w: game %s dated %s arrived after game %s dated %s",
				ErrOutOfOrder, g.GameID, g.Date.Format("2006-01-02"), last.GameID, last.Date.Format("2006-01-02"))
		}
		if g.Date.Equal(last.Date) && g.GameID < last.GameID {
			return fmt.Errorf("%w: same-day game %s sorts before already-appended %s",
				ErrOutOfOrder, g.GameID, last.GameID)
		}
	}

	idx := len(s.games)
	s.games = append(s.games, g)
	s.byID[g.GameID] = idx
	s.byTeam[g.HomeTeamID] = append(s.byTeam[g.HomeTeamID], idx)
	s.byTeam[g.AwayTeamID] = append(s.byTeam[g.AwayTeamID], idx)
	return nil
}

// AppendAll appends a batch, stopping at the first invalid record.
func (s *Store) AppendAll(games []models.GameRecord) error {
	for i := range games {
		if err := s.Append(games[i]); err != nil {
			return fmt.Errorf("append game %d of %d: %w", i+1, len(games), err)
		}
	}
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{
			"component": "gamelog",
			"games":     len(games),
			"total":     len(s.games),
		}).Debug("Appended game batch")
	}
	return nil
}

// Len returns the number of games in the log.
func (s *Store) Len() int {
	return len(s.games)
}

// Games returns the full log in chronological order. The returned slice is
// shared; callers must not mutate it.
func (s *Store) Games() []models.GameRecord {
	return s.games
}

// Get returns a game by id.
func (s *Store) Get(gameID string) (models.GameRecord, bool) {
	idx, ok := s.byID[gameID]
	if !ok {
		return models.GameRecord{}, false
	}
	return s.games[idx], true
}

// GamesBefore returns every game dated strictly before asOf.
func (s *Store) GamesBefore(asOf time.Time) []models.GameRecord {
	// The log is sorted, so scan back from the end.
	i := len(s.games)
	for i > 0 && !s.games[i-1].Date.Before(asOf) {
		i--
	}
	return s.games[:i]
}

// TeamGamesBefore returns teamID's games strictly before asOf, oldest first,
// each normalized to the team's own perspective. An empty seasonID means all
// seasons. Normalization happens here, before any windowing downstream.
func (s *Store) TeamGamesBefore(teamID string, asOf time.Time, seasonID string) []models.TeamPerspective {
	var out []models.TeamPerspective
	for _, idx := range s.byTeam[teamID] {
		g := &s.games[idx]
		if !g.Date.Before(asOf) {
			break
		}
		if seasonID != "" && g.SeasonID != seasonID {
			continue
		}
		if p, ok := g.PerspectiveOf(teamID); ok {
			out = append(out, p)
		}
	}
	return out
}

// LastGameBefore returns teamID's single most recent game strictly before
// asOf, regardless of which side the team played in it. A non-empty seasonID
// restricts the lookup to that season, so a team whose only history belongs
// to a prior season reports no qualifying game.
func (s *Store) LastGameBefore(teamID string, asOf time.Time, seasonID string) (models.TeamPerspective, bool) {
	idxs := s.byTeam[teamID]
	for i := len(idxs) - 1; i >= 0; i-- {
		g := &s.games[idxs[i]]
		if !g.Date.Before(asOf) {
			continue
		}
		if seasonID != "" && g.SeasonID != seasonID {
			continue
		}
		p, _ := g.PerspectiveOf(teamID)
		return p, true
	}
	return models.TeamPerspective{}, false
}

// CountTeamGamesBetween counts teamID's games with from <= date < to, used
// for schedule-density features.
func (s *Store) CountTeamGamesBetween(teamID string, from, to time.Time) int {
	count := 0
	for _, idx := range s.byTeam[teamID] {
		d := s.games[idx].Date
		if d.Before(from) {
			continue
		}
		if !d.Before(to) {
			break
		}
		count++
	}
	return count
}
