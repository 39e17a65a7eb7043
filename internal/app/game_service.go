package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"knowledge-race/internal/domain"
)

// SessionRepository abstracts where live match sessions are kept (in-memory, Redis-marked, etc).
type SessionRepository interface {
	Put(session *Session)
	Get(matchID string) (*Session, bool)
	Delete(matchID string)
}

// ServiceOptions configures a GameService. Zero values fall back to defaults;
// AdvanceDelay may be NoAutoAdvance.
type ServiceOptions struct {
	Match           MatchOptions
	QuestionCount   int
	AdvanceDelay    time.Duration
	ProviderTimeout time.Duration
	Clock           clockwork.Clock
	Sink            EventSink
}

// GameService contains the moderator use cases for classroom matches.
type GameService struct {
	sessions SessionRepository
	provider QuestionProvider
	opts     ServiceOptions
}

func NewGameService(store SessionRepository, provider QuestionProvider, opts ServiceOptions) *GameService {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.QuestionCount <= 0 {
		opts.QuestionCount = DefaultQuestionCount
	}
	if opts.AdvanceDelay == 0 {
		opts.AdvanceDelay = DefaultAdvanceDelay
	}
	opts.Match = opts.Match.withDefaults()
	return &GameService{sessions: store, provider: provider, opts: opts}
}

// CreateMatch opens a match in setup. An empty roster gets the default teams.
func (s *GameService) CreateMatch(_ context.Context, teams []domain.Team) (domain.MatchSnapshot, error) {
	if len(teams) == 0 {
		teams = domain.DefaultTeams()
	}
	roster := make([]domain.Team, 0, len(teams))
	seen := make(map[string]struct{}, len(teams))
	for _, t := range teams {
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		if _, dup := seen[t.ID]; dup {
			return domain.MatchSnapshot{}, domain.ErrDuplicateTeam
		}
		seen[t.ID] = struct{}{}
		t.Score = 0
		roster = append(roster, t)
	}

	match := NewMatch(uuid.NewString(), roster, s.opts.Match)
	session := newSession(match, s.opts.Clock, s.opts.Sink, s.opts.AdvanceDelay)
	s.sessions.Put(session)
	log.Info().Str("match_id", match.ID()).Int("teams", len(roster)).Msg("match created")
	return session.Snapshot(), nil
}

// Snapshot returns the current state of a match.
func (s *GameService) Snapshot(_ context.Context, matchID string) (domain.MatchSnapshot, error) {
	session, ok := s.sessions.Get(matchID)
	if !ok {
		return domain.MatchSnapshot{}, domain.ErrMatchNotFound
	}
	return session.Snapshot(), nil
}

// AddTeam puts a new team on the roster during setup.
func (s *GameService) AddTeam(_ context.Context, matchID string, team domain.Team) (domain.MatchSnapshot, error) {
	if team.ID == "" {
		team.ID = uuid.NewString()
	}
	return s.mutate(matchID, func(session *Session) error {
		if session.starting {
			return domain.ErrMatchInProgress
		}
		return session.match.AddTeam(team)
	})
}

// RemoveTeam drops a team from the roster during setup.
func (s *GameService) RemoveTeam(_ context.Context, matchID, teamID string) (domain.MatchSnapshot, error) {
	return s.mutate(matchID, func(session *Session) error {
		if session.starting {
			return domain.ErrMatchInProgress
		}
		return session.match.RemoveTeam(teamID)
	})
}

// UpdateTeam edits a team's name or members during setup.
func (s *GameService) UpdateTeam(_ context.Context, matchID, teamID, name, members string) (domain.MatchSnapshot, error) {
	return s.mutate(matchID, func(session *Session) error {
		if session.starting {
			return domain.ErrMatchInProgress
		}
		return session.match.UpdateTeam(teamID, name, members)
	})
}

// StartMatch loads the question set and starts the first round. The provider
// is called without holding the session lock; no state changes until it
// returns or falls back.
func (s *GameService) StartMatch(ctx context.Context, matchID string, count int) (domain.MatchSnapshot, error) {
	session, ok := s.sessions.Get(matchID)
	if !ok {
		return domain.MatchSnapshot{}, domain.ErrMatchNotFound
	}

	session.mu.Lock()
	if session.closed {
		session.mu.Unlock()
		return domain.MatchSnapshot{}, domain.ErrMatchNotFound
	}
	if session.match.Phase() != domain.PhaseSetup || session.starting {
		session.mu.Unlock()
		return domain.MatchSnapshot{}, domain.ErrMatchInProgress
	}
	session.starting = true
	session.mu.Unlock()

	if count <= 0 {
		count = s.opts.QuestionCount
	}
	questions, offline := LoadQuestions(ctx, s.provider, count, s.opts.ProviderTimeout)

	session.mu.Lock()
	defer session.mu.Unlock()
	session.starting = false
	if session.closed {
		return domain.MatchSnapshot{}, domain.ErrMatchNotFound
	}
	if err := session.match.Start(questions, offline); err != nil {
		return domain.MatchSnapshot{}, err
	}
	session.startCountdownLocked()
	session.publishLocked(nil)
	log.Info().
		Str("match_id", matchID).
		Int("questions", len(questions)).
		Bool("offline", offline).
		Msg("match started")
	return session.snapshotLocked(nil), nil
}

// SelectAnswer records a team's option for the active round. Invalid input
// and late calls are ignored; accepted reports whether the answer was taken.
func (s *GameService) SelectAnswer(_ context.Context, matchID, teamID string, optionIndex int) (domain.MatchSnapshot, bool, error) {
	accepted := false
	snap, err := s.mutate(matchID, func(session *Session) error {
		if round := session.match.Round(); round != nil && session.match.Phase() == domain.PhasePlaying {
			accepted = round.SelectAnswer(teamID, optionIndex)
		}
		return nil
	})
	return snap, accepted, err
}

// ForceReveal ends the countdown early.
func (s *GameService) ForceReveal(_ context.Context, matchID string) (domain.MatchSnapshot, error) {
	session, ok := s.sessions.Get(matchID)
	if !ok {
		return domain.MatchSnapshot{}, domain.ErrMatchNotFound
	}
	session.mu.Lock()
	defer session.mu.Unlock()

	round := session.match.Round()
	if round == nil || session.match.Phase() != domain.PhasePlaying {
		return domain.MatchSnapshot{}, domain.ErrMatchNotPlaying
	}
	events := round.Reveal()
	session.stopCountdownLocked()
	session.publishLocked(events)
	return session.snapshotLocked(events), nil
}

// ConfirmResults submits the revealed round, applies the score deltas and
// schedules the move to the next question.
func (s *GameService) ConfirmResults(_ context.Context, matchID string) ([]domain.RoundResult, error) {
	session, ok := s.sessions.Get(matchID)
	if !ok {
		return nil, domain.ErrMatchNotFound
	}
	session.mu.Lock()
	defer session.mu.Unlock()

	if session.match.Phase() == domain.PhaseRoundResult {
		return nil, domain.ErrRoundSubmitted
	}
	round := session.match.Round()
	if round == nil || session.match.Phase() != domain.PhasePlaying {
		return nil, domain.ErrMatchNotPlaying
	}
	results, err := round.Submit()
	if err != nil {
		return nil, err
	}
	session.match.ApplyRoundResults(results)
	session.publishLocked(nil)
	session.scheduleAdvanceLocked()
	return results, nil
}

// Advance moves on immediately instead of waiting for the deferred advance.
func (s *GameService) Advance(_ context.Context, matchID string) (domain.MatchSnapshot, error) {
	session, ok := s.sessions.Get(matchID)
	if !ok {
		return domain.MatchSnapshot{}, domain.ErrMatchNotFound
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	if err := session.advanceLocked(); err != nil {
		return domain.MatchSnapshot{}, err
	}
	return session.snapshotLocked(nil), nil
}

// Restart returns a match to setup, keeping its roster.
func (s *GameService) Restart(_ context.Context, matchID string) (domain.MatchSnapshot, error) {
	return s.mutate(matchID, func(session *Session) error {
		session.resetLocked()
		session.match.Restart()
		return nil
	})
}

// Subscribe returns a channel that receives snapshots for a match.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *GameService) Subscribe(_ context.Context, matchID string) (<-chan domain.MatchSnapshot, func(), error) {
	session, ok := s.sessions.Get(matchID)
	if !ok {
		return nil, nil, domain.ErrMatchNotFound
	}
	ch, cancel := session.subscribe()
	return ch, cancel, nil
}

// DeleteMatch stops a match's timers and forgets it.
func (s *GameService) DeleteMatch(_ context.Context, matchID string) error {
	session, ok := s.sessions.Get(matchID)
	if !ok {
		return domain.ErrMatchNotFound
	}
	session.close()
	s.sessions.Delete(matchID)
	log.Info().Str("match_id", matchID).Msg("match deleted")
	return nil
}

func (s *GameService) mutate(matchID string, fn func(*Session) error) (domain.MatchSnapshot, error) {
	session, ok := s.sessions.Get(matchID)
	if !ok {
		return domain.MatchSnapshot{}, domain.ErrMatchNotFound
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	if session.closed {
		return domain.MatchSnapshot{}, domain.ErrMatchNotFound
	}
	if err := fn(session); err != nil {
		return domain.MatchSnapshot{}, err
	}
	session.publishLocked(nil)
	return session.snapshotLocked(nil), nil
}
