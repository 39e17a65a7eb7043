package app

import (
	"sort"

	"knowledge-race/internal/domain"
)

// DefaultAward is the score added for each correct answer.
const DefaultAward = 100

// NoTickSignals as a TickThreshold turns countdown tick events off.
const NoTickSignals = -1

// MatchOptions tunes a match. Zero values fall back to defaults.
type MatchOptions struct {
	TimeLimit     int
	TickThreshold int
	Award         int
}

func (o MatchOptions) withDefaults() MatchOptions {
	if o.TimeLimit <= 0 {
		o.TimeLimit = DefaultTimeLimit
	}
	if o.TickThreshold == 0 {
		o.TickThreshold = DefaultTickThreshold
	}
	if o.Award <= 0 {
		o.Award = DefaultAward
	}
	return o
}

// Match sequences questions and aggregates scores across rounds.
type Match struct {
	id      string
	opts    MatchOptions
	teams   []*domain.Team
	offline bool

	phase     domain.MatchPhase
	questions []domain.Question
	position  int
	round     *Round
}

// NewMatch creates a match in the setup phase with the given roster.
func NewMatch(id string, teams []domain.Team, opts MatchOptions) *Match {
	m := &Match{
		id:    id,
		opts:  opts.withDefaults(),
		phase: domain.PhaseSetup,
	}
	for _, team := range teams {
		t := team
		m.teams = append(m.teams, &t)
	}
	return m
}

// ID returns the match identifier.
func (m *Match) ID() string { return m.id }

// Phase returns the coarse match state.
func (m *Match) Phase() domain.MatchPhase { return m.phase }

// Position returns the index of the active question.
func (m *Match) Position() int { return m.position }

// Round returns the active round, or nil outside of play.
func (m *Match) Round() *Round { return m.round }

// Teams returns a copy of the roster.
func (m *Match) Teams() []domain.Team {
	out := make([]domain.Team, 0, len(m.teams))
	for _, t := range m.teams {
		out = append(out, *t)
	}
	return out
}

// AddTeam appends a team to the roster during setup.
func (m *Match) AddTeam(team domain.Team) error {
	if m.phase != domain.PhaseSetup {
		return domain.ErrMatchInProgress
	}
	if m.findTeam(team.ID) != nil {
		return domain.ErrDuplicateTeam
	}
	team.Score = 0
	m.teams = append(m.teams, &team)
	return nil
}

// RemoveTeam drops a team from the roster during setup.
func (m *Match) RemoveTeam(teamID string) error {
	if m.phase != domain.PhaseSetup {
		return domain.ErrMatchInProgress
	}
	for i, t := range m.teams {
		if t.ID == teamID {
			m.teams = append(m.teams[:i], m.teams[i+1:]...)
			return nil
		}
	}
	return domain.ErrTeamNotFound
}

// UpdateTeam renames a team or changes its members descriptor during setup.
func (m *Match) UpdateTeam(teamID, name, members string) error {
	if m.phase != domain.PhaseSetup {
		return domain.ErrMatchInProgress
	}
	t := m.findTeam(teamID)
	if t == nil {
		return domain.ErrTeamNotFound
	}
	if name != "" {
		t.Name = name
	}
	t.Members = members
	return nil
}

// Start resets scores and plays the given question set from the first question.
func (m *Match) Start(questions []domain.Question, offline bool) error {
	if m.phase != domain.PhaseSetup {
		return domain.ErrMatchInProgress
	}
	if len(questions) == 0 {
		return domain.ErrNoQuestions
	}
	for _, t := range m.teams {
		t.Score = 0
	}
	m.questions = append([]domain.Question(nil), questions...)
	m.offline = offline
	m.position = 0
	m.phase = domain.PhasePlaying
	m.round = m.newRound()
	return nil
}

func (m *Match) newRound() *Round {
	return newRoundWithThreshold(m.questions[m.position], m.Teams(), m.opts.TimeLimit, m.opts.TickThreshold)
}

// ApplyRoundResults awards points for every correct result. Unknown team ids
// are ignored and teams missing from results keep their score.
func (m *Match) ApplyRoundResults(results []domain.RoundResult) {
	for _, res := range results {
		if !res.Correct {
			continue
		}
		if t := m.findTeam(res.TeamID); t != nil {
			t.Score += m.opts.Award
		}
	}
	if m.phase == domain.PhasePlaying {
		m.phase = domain.PhaseRoundResult
	}
}

// Advance moves to the next question, or finishes the match when the final
// question has been played. It reports whether the match finished.
func (m *Match) Advance() (bool, error) {
	switch m.phase {
	case domain.PhaseFinished:
		return true, domain.ErrMatchFinished
	case domain.PhaseSetup:
		return false, domain.ErrMatchNotPlaying
	}
	if m.round != nil && m.round.Phase() != domain.RoundSubmitted {
		return false, domain.ErrRoundPending
	}
	if m.position >= len(m.questions)-1 {
		m.phase = domain.PhaseFinished
		m.round = nil
		return true, nil
	}
	m.position++
	m.phase = domain.PhasePlaying
	m.round = m.newRound()
	return false, nil
}

// Restart returns to setup keeping the roster and last scores.
func (m *Match) Restart() {
	m.phase = domain.PhaseSetup
	m.questions = nil
	m.position = 0
	m.round = nil
	m.offline = false
}

// Leaderboard ranks teams by score, keeping roster order for ties.
func (m *Match) Leaderboard() []domain.LeaderboardEntry {
	teams := m.Teams()
	sort.SliceStable(teams, func(i, j int) bool {
		return teams[i].Score > teams[j].Score
	})
	entries := make([]domain.LeaderboardEntry, 0, len(teams))
	for i, t := range teams {
		rank := i + 1
		if i > 0 && teams[i-1].Score == t.Score {
			rank = entries[i-1].Rank
		}
		entries = append(entries, domain.LeaderboardEntry{
			Rank:   rank,
			TeamID: t.ID,
			Name:   t.Name,
			Score:  t.Score,
		})
	}
	return entries
}

// Snapshot returns a read-only view of the match.
func (m *Match) Snapshot() domain.MatchSnapshot {
	snap := domain.MatchSnapshot{
		MatchID:          m.id,
		Phase:            m.phase,
		Teams:            m.Teams(),
		Leaderboard:      m.Leaderboard(),
		Position:         m.position,
		TotalQuestions:   len(m.questions),
		OfflineQuestions: m.offline,
	}
	if m.round != nil {
		rs := m.round.Snapshot()
		snap.Round = &rs
	}
	return snap
}

func (m *Match) findTeam(teamID string) *domain.Team {
	for _, t := range m.teams {
		if t.ID == teamID {
			return t
		}
	}
	return nil
}
