package app

import (
	"knowledge-race/internal/domain"
)

const (
	// DefaultTimeLimit is the countdown length of a round in seconds.
	DefaultTimeLimit = 30
	// DefaultTickThreshold is the remaining time at or below which ticks are signalled.
	DefaultTickThreshold = 6
)

// Round owns the lifecycle of exactly one question. It is not safe for
// concurrent use; callers serialize access (see Session).
type Round struct {
	question      domain.Question
	roster        []string
	members       map[string]struct{}
	timeLimit     int
	tickThreshold int

	remaining int
	phase     domain.RoundPhase
	answers   map[string]int
	results   []domain.RoundResult
}

// NewRound starts a round in the counting phase with every answer unset.
func NewRound(question domain.Question, roster []domain.Team, timeLimit int) *Round {
	return newRoundWithThreshold(question, roster, timeLimit, DefaultTickThreshold)
}

func newRoundWithThreshold(question domain.Question, roster []domain.Team, timeLimit, threshold int) *Round {
	if timeLimit <= 0 {
		timeLimit = DefaultTimeLimit
	}
	ids := make([]string, 0, len(roster))
	members := make(map[string]struct{}, len(roster))
	for _, team := range roster {
		ids = append(ids, team.ID)
		members[team.ID] = struct{}{}
	}
	return &Round{
		question:      question,
		roster:        ids,
		members:       members,
		timeLimit:     timeLimit,
		tickThreshold: threshold,
		remaining:     timeLimit,
		phase:         domain.RoundCounting,
		answers:       make(map[string]int, len(ids)),
	}
}

// Question returns the question being played.
func (r *Round) Question() domain.Question { return r.question }

// Remaining returns the seconds left on the countdown.
func (r *Round) Remaining() int { return r.remaining }

// Phase returns the current round phase.
func (r *Round) Phase() domain.RoundPhase { return r.phase }

// Revealed reports whether answer input is frozen.
func (r *Round) Revealed() bool { return r.phase != domain.RoundCounting }

// Tick applies one elapsed second. Reaching zero reveals the round.
func (r *Round) Tick() []domain.Event {
	if r.phase != domain.RoundCounting {
		return nil
	}
	r.remaining--
	if r.remaining <= 0 {
		r.remaining = 0
		return r.reveal()
	}
	if r.remaining <= r.tickThreshold {
		return []domain.Event{{Type: domain.EventTick, RemainingSeconds: r.remaining}}
	}
	return nil
}

// SelectAnswer records a team's choice while the round is counting. Unknown
// teams, out-of-range options and late calls are ignored.
func (r *Round) SelectAnswer(teamID string, optionIndex int) bool {
	if r.phase != domain.RoundCounting {
		return false
	}
	if _, ok := r.members[teamID]; !ok {
		return false
	}
	if optionIndex < 0 || optionIndex >= len(r.question.Options) {
		return false
	}
	r.answers[teamID] = optionIndex
	return true
}

// Reveal is the moderator's early override. It is a no-op once revealed.
func (r *Round) Reveal() []domain.Event {
	if r.phase != domain.RoundCounting {
		return nil
	}
	return r.reveal()
}

func (r *Round) reveal() []domain.Event {
	r.phase = domain.RoundRevealed

	results := make([]domain.RoundResult, 0, len(r.roster))
	anyCorrect := false
	for _, teamID := range r.roster {
		answer, ok := r.answers[teamID]
		correct := ok && answer == r.question.CorrectAnswerIndex
		anyCorrect = anyCorrect || correct
		results = append(results, domain.RoundResult{TeamID: teamID, Correct: correct})
	}
	r.results = results

	signal := domain.EventIncorrect
	if anyCorrect {
		signal = domain.EventCorrect
	}
	return []domain.Event{{Type: signal, RemainingSeconds: r.remaining}}
}

// Submit hands the revealed results over. A round can be submitted once.
func (r *Round) Submit() ([]domain.RoundResult, error) {
	switch r.phase {
	case domain.RoundCounting:
		return nil, domain.ErrRoundNotRevealed
	case domain.RoundSubmitted:
		return nil, domain.ErrRoundSubmitted
	}
	r.phase = domain.RoundSubmitted
	return append([]domain.RoundResult(nil), r.results...), nil
}

// Snapshot returns a copy of the round state for rendering.
func (r *Round) Snapshot() domain.RoundSnapshot {
	answers := make(map[string]int, len(r.answers))
	for teamID, idx := range r.answers {
		answers[teamID] = idx
	}
	labels := make([]string, 0, len(r.question.Options))
	for i := range r.question.Options {
		if i < len(domain.OptionLabels) {
			labels = append(labels, domain.OptionLabels[i])
		}
	}
	snap := domain.RoundSnapshot{
		Question:         r.question,
		OptionLabels:     labels,
		Phase:            r.phase,
		TimeLimit:        r.timeLimit,
		RemainingSeconds: r.remaining,
		Revealed:         r.Revealed(),
		Answers:          answers,
	}
	if r.Revealed() {
		snap.Results = append([]domain.RoundResult(nil), r.results...)
	}
	return snap
}
