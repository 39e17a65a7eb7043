package domain

import "errors"

var (
	// ErrMatchNotFound is returned when a match has not been created.
	ErrMatchNotFound = errors.New("match not found")
	// ErrTeamNotFound is returned when a roster edit names an unknown team.
	ErrTeamNotFound = errors.New("team not found in roster")
	// ErrDuplicateTeam is returned when a team id is already on the roster.
	ErrDuplicateTeam = errors.New("team already on roster")
	// ErrMatchInProgress is returned for setup-only operations once play has begun.
	ErrMatchInProgress = errors.New("match already in progress")
	// ErrMatchNotPlaying is returned for round operations outside of play.
	ErrMatchNotPlaying = errors.New("match is not playing")
	// ErrMatchFinished is returned when advancing past the final question.
	ErrMatchFinished = errors.New("match already finished")
	// ErrRoundNotRevealed is returned when results are confirmed before reveal.
	ErrRoundNotRevealed = errors.New("round not revealed")
	// ErrRoundSubmitted is returned when a round's results are confirmed twice.
	ErrRoundSubmitted = errors.New("round already submitted")
	// ErrRoundPending is returned when advancing before the round is submitted.
	ErrRoundPending = errors.New("round results not confirmed")
	// ErrNoQuestions is returned when a match is started without questions.
	ErrNoQuestions = errors.New("no questions available")
	// ErrMalformedQuestion marks provider data that cannot be played.
	ErrMalformedQuestion = errors.New("malformed question")
	// ErrProviderUnavailable marks a question source that cannot be reached.
	ErrProviderUnavailable = errors.New("question provider unavailable")
)
