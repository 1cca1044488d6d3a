package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/quizmania/stage/internal/domain"
)

// teamColors is the palette cycled through when a team is added without an
// explicit color.
var teamColors = []string{
	"#e74c3c", "#3498db", "#2ecc71", "#f39c12",
	"#9b59b6", "#1abc9c", "#e67e22", "#34495e",
}

// TeamPatch carries the fields of a team update. Nil fields are left as-is.
type TeamPatch struct {
	Name       *string
	Members    *string
	Score      *int
	Color      *string
	Eliminated *bool
}

func (s *Store) AddTeam(ctx context.Context, team domain.Team) (domain.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	team.ID = s.doc.NextTeamID()
	if strings.TrimSpace(team.Name) == "" {
		team.Name = fmt.Sprintf("Team %d", team.ID)
	}
	if team.Color == "" {
		team.Color = teamColors[(team.ID-1)%len(teamColors)]
	}
	s.doc.Teams = append(s.doc.Teams, team)

	err := s.commit(ctx, domain.SourceMutation, domain.EventTeamsUpdated{
		Action: "added",
		TeamID: team.ID,
	})
	return team, err
}

func (s *Store) UpdateTeam(ctx context.Context, id int, patch TeamPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	team := s.doc.FindTeam(id)
	if team == nil {
		return s.notFound(ctx, "update team: team %d not found", id)
	}

	if patch.Name != nil {
		team.Name = *patch.Name
	}
	if patch.Members != nil {
		team.Members = *patch.Members
	}
	if patch.Score != nil {
		team.Score = *patch.Score
	}
	if patch.Color != nil {
		team.Color = *patch.Color
	}
	if patch.Eliminated != nil {
		team.Eliminated = *patch.Eliminated
	}

	return s.commit(ctx, domain.SourceMutation, domain.EventTeamsUpdated{
		Action: "updated",
		TeamID: id,
	})
}

func (s *Store) DeleteTeam(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i := range s.doc.Teams {
		if s.doc.Teams[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return s.notFound(ctx, "delete team: team %d not found", id)
	}
	s.doc.Teams = append(s.doc.Teams[:idx], s.doc.Teams[idx+1:]...)

	if s.doc.RapidFire.SelectedTeam == id {
		s.doc.RapidFire.SelectedTeam = 0
	}

	return s.commit(ctx, domain.SourceMutation, domain.EventTeamsUpdated{
		Action: "deleted",
		TeamID: id,
	})
}

func (s *Store) SetTeamEliminated(ctx context.Context, id int, eliminated bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	team := s.doc.FindTeam(id)
	if team == nil {
		return s.notFound(ctx, "eliminate team: team %d not found", id)
	}
	team.Eliminated = eliminated

	return s.commit(ctx, domain.SourceMutation, domain.EventTeamsUpdated{
		Action: "updated",
		TeamID: id,
	})
}

// UpdateTeamScore adds delta to the team's score. Delta may be negative;
// scores may go below zero.
func (s *Store) UpdateTeamScore(ctx context.Context, id int, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	team := s.doc.FindTeam(id)
	if team == nil {
		return 0, s.notFound(ctx, "update score: team %d not found", id)
	}
	team.Score += delta

	err := s.commit(ctx, domain.SourceMutation, domain.EventTeamsUpdated{
		Action: "updated",
		TeamID: id,
	})
	return team.Score, err
}

// ResetScores zeroes every team's score and clears elimination flags.
func (s *Store) ResetScores(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.doc.Teams {
		s.doc.Teams[i].Score = 0
		s.doc.Teams[i].Eliminated = false
	}

	return s.commit(ctx, domain.SourceMutation, domain.EventTeamsUpdated{
		Action: "reset",
	})
}
