package domain

import (
	"fmt"
	"time"
)

// OptionCount is the fixed number of options every question carries.
const OptionCount = 4

// OptionLabels are the letters shown next to each option on the board.
var OptionLabels = [OptionCount]string{"A", "B", "C", "D"}

// Category groups questions by cultural topic.
type Category string

const (
	CategoryHistory    Category = "History"
	CategoryFood       Category = "Food"
	CategoryMusic      Category = "Music"
	CategoryTraditions Category = "Traditions"
	CategoryGeography  Category = "Geography"
)

// Categories lists every accepted category in display order.
var Categories = []Category{
	CategoryHistory,
	CategoryFood,
	CategoryMusic,
	CategoryTraditions,
	CategoryGeography,
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Team is a group of players answering together. Score only changes when a
// round's results are applied.
type Team struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Score   int    `json:"score"`
	Members string `json:"members"`
}

// Question models an MCQ question with exactly one correct option.
type Question struct {
	ID                 string   `json:"id"`
	Text               string   `json:"text"`
	Options            []string `json:"options"`
	CorrectAnswerIndex int      `json:"correctAnswerIndex"`
	Category           Category `json:"category"`
	Fact               string   `json:"fact"` // shown after reveal
}

// Validate rejects questions that could never be answered correctly.
func (q Question) Validate() error {
	if q.ID == "" {
		return fmt.Errorf("%w: missing id", ErrMalformedQuestion)
	}
	if q.Text == "" {
		return fmt.Errorf("%w: question %s has no text", ErrMalformedQuestion, q.ID)
	}
	if len(q.Options) != OptionCount {
		return fmt.Errorf("%w: question %s has %d options", ErrMalformedQuestion, q.ID, len(q.Options))
	}
	if q.CorrectAnswerIndex < 0 || q.CorrectAnswerIndex >= len(q.Options) {
		return fmt.Errorf("%w: question %s correct index %d out of range", ErrMalformedQuestion, q.ID, q.CorrectAnswerIndex)
	}
	if !q.Category.Valid() {
		return fmt.Errorf("%w: question %s has unknown category %q", ErrMalformedQuestion, q.ID, q.Category)
	}
	return nil
}

// ValidateQuestions checks every question in the set.
func ValidateQuestions(questions []Question) error {
	for _, q := range questions {
		if err := q.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// RoundResult is the per-team outcome of one submitted round.
type RoundResult struct {
	TeamID  string `json:"teamId"`
	Correct bool   `json:"correct"`
}

// EventType names an observational notification emitted by a transition.
type EventType string

const (
	EventTick      EventType = "tick"
	EventCorrect   EventType = "correct"
	EventIncorrect EventType = "incorrect"
	EventFanfare   EventType = "fanfare"
)

// Event is a fire-and-forget signal for the presentation layer (sound cues).
type Event struct {
	Type             EventType `json:"type"`
	MatchID          string    `json:"matchId,omitempty"`
	Position         int       `json:"position"`
	RemainingSeconds int       `json:"remainingSeconds"`
	At               time.Time `json:"at"`
}

// MatchPhase is the coarse state of a match.
type MatchPhase string

const (
	PhaseSetup       MatchPhase = "setup"
	PhasePlaying     MatchPhase = "playing"
	PhaseRoundResult MatchPhase = "round-result"
	PhaseFinished    MatchPhase = "game-over"
)

// RoundPhase is the state of a single round.
type RoundPhase string

const (
	RoundCounting  RoundPhase = "counting"
	RoundRevealed  RoundPhase = "revealed"
	RoundSubmitted RoundPhase = "submitted"
)

// RoundSnapshot is a read-only view of the active round.
type RoundSnapshot struct {
	Question         Question       `json:"question"`
	OptionLabels     []string       `json:"optionLabels"`
	Phase            RoundPhase     `json:"phase"`
	TimeLimit        int            `json:"timeLimit"`
	RemainingSeconds int            `json:"remainingSeconds"`
	Revealed         bool           `json:"revealed"`
	Answers          map[string]int `json:"answers"` // unset teams are absent
	Results          []RoundResult  `json:"results,omitempty"`
}

// LeaderboardEntry is a ranked view of a team.
type LeaderboardEntry struct {
	Rank   int    `json:"rank"`
	TeamID string `json:"teamId"`
	Name   string `json:"name"`
	Score  int    `json:"score"`
}

// MatchSnapshot captures everything the presentation layer renders.
type MatchSnapshot struct {
	MatchID          string             `json:"matchId"`
	Phase            MatchPhase         `json:"phase"`
	Teams            []Team             `json:"teams"`
	Leaderboard      []LeaderboardEntry `json:"leaderboard"`
	Position         int                `json:"position"`
	TotalQuestions   int                `json:"totalQuestions"`
	Round            *RoundSnapshot     `json:"round,omitempty"`
	OfflineQuestions bool               `json:"offlineQuestions"`
	Events           []Event            `json:"events,omitempty"`
	UpdatedAt        time.Time          `json:"updatedAt"`
}
