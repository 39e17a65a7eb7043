package app

import (
	"errors"
	"testing"

	"knowledge-race/internal/domain"
)

func TestMatchApplyRoundResultsAwardsCorrectTeamsOnly(t *testing.T) {
	match := NewMatch("m1", threeTeams(), MatchOptions{})
	if err := match.Start(questionSet(3), false); err != nil {
		t.Fatalf("start: %v", err)
	}

	match.ApplyRoundResults([]domain.RoundResult{
		{TeamID: "A", Correct: true},
		{TeamID: "B", Correct: false},
		{TeamID: "ghost", Correct: true},
	})

	scores := scoresByID(match)
	if scores["A"] != 100 || scores["B"] != 0 || scores["C"] != 0 {
		t.Fatalf("unexpected scores %+v", scores)
	}
	total := 0
	for _, s := range scores {
		total += s
	}
	if total != 100 {
		t.Fatalf("expected total increment of 100, got %d", total)
	}
}

func TestMatchStartResetsScores(t *testing.T) {
	teams := threeTeams()
	teams[0].Score = 700
	match := NewMatch("m1", teams, MatchOptions{})
	if err := match.Start(questionSet(1), false); err != nil {
		t.Fatalf("start: %v", err)
	}
	if scoresByID(match)["A"] != 0 {
		t.Fatalf("expected score reset on start")
	}
	if match.Position() != 0 || match.Phase() != domain.PhasePlaying || match.Round() == nil {
		t.Fatalf("expected first round to be playing, got phase=%s position=%d", match.Phase(), match.Position())
	}
	if err := match.Start(questionSet(1), false); !errors.Is(err, domain.ErrMatchInProgress) {
		t.Fatalf("expected second start to fail, got %v", err)
	}
}

func TestMatchAdvanceFinishesAtLastQuestion(t *testing.T) {
	match := NewMatch("m1", threeTeams(), MatchOptions{})
	if err := match.Start(questionSet(2), false); err != nil {
		t.Fatalf("start: %v", err)
	}

	playRound(t, match)
	finished, err := match.Advance()
	if err != nil || finished {
		t.Fatalf("expected advance to question 2, finished=%v err=%v", finished, err)
	}
	if match.Position() != 1 {
		t.Fatalf("expected position 1, got %d", match.Position())
	}

	playRound(t, match)
	finished, err = match.Advance()
	if err != nil || !finished {
		t.Fatalf("expected match to finish, finished=%v err=%v", finished, err)
	}
	if match.Position() != 1 || match.Phase() != domain.PhaseFinished {
		t.Fatalf("expected terminal state at position 1, got %s/%d", match.Phase(), match.Position())
	}

	if _, err := match.Advance(); !errors.Is(err, domain.ErrMatchFinished) {
		t.Fatalf("expected finished error, got %v", err)
	}
	if match.Position() != 1 {
		t.Fatalf("position moved after finish: %d", match.Position())
	}
}

func TestMatchAdvanceRequiresSubmittedRound(t *testing.T) {
	match := NewMatch("m1", threeTeams(), MatchOptions{})
	if _, err := match.Advance(); !errors.Is(err, domain.ErrMatchNotPlaying) {
		t.Fatalf("expected not playing in setup, got %v", err)
	}
	if err := match.Start(questionSet(2), false); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := match.Advance(); !errors.Is(err, domain.ErrRoundPending) {
		t.Fatalf("expected pending round error, got %v", err)
	}
}

func TestMatchNewRoundResetsState(t *testing.T) {
	match := NewMatch("m1", threeTeams(), MatchOptions{TimeLimit: 20})
	if err := match.Start(questionSet(2), false); err != nil {
		t.Fatalf("start: %v", err)
	}
	round := match.Round()
	round.SelectAnswer("A", 1)
	round.Tick()
	round.Reveal()
	results, _ := round.Submit()
	match.ApplyRoundResults(results)
	if _, err := match.Advance(); err != nil {
		t.Fatalf("advance: %v", err)
	}

	next := match.Round()
	if next == round {
		t.Fatalf("expected a fresh round instance")
	}
	if next.Remaining() != 20 || next.Revealed() {
		t.Fatalf("expected fresh countdown, got remaining=%d revealed=%v", next.Remaining(), next.Revealed())
	}
	if len(next.Snapshot().Answers) != 0 {
		t.Fatalf("expected answers cleared, got %+v", next.Snapshot().Answers)
	}
}

func TestMatchRosterEditsOnlyInSetup(t *testing.T) {
	match := NewMatch("m1", threeTeams(), MatchOptions{})

	if err := match.AddTeam(domain.Team{ID: "D", Name: "Delta", Score: 50}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if scoresByID(match)["D"] != 0 {
		t.Fatalf("expected new team to start at zero")
	}
	if err := match.AddTeam(domain.Team{ID: "D"}); !errors.Is(err, domain.ErrDuplicateTeam) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if err := match.UpdateTeam("D", "Dunes", "Students + Elders"); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := match.RemoveTeam("C"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := match.RemoveTeam("C"); !errors.Is(err, domain.ErrTeamNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if err := match.Start(questionSet(1), false); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := match.AddTeam(domain.Team{ID: "E"}); !errors.Is(err, domain.ErrMatchInProgress) {
		t.Fatalf("expected in progress on add, got %v", err)
	}
	if err := match.RemoveTeam("A"); !errors.Is(err, domain.ErrMatchInProgress) {
		t.Fatalf("expected in progress on remove, got %v", err)
	}

	teams := match.Teams()
	if len(teams) != 3 || teams[2].Name != "Dunes" || teams[2].Members != "Students + Elders" {
		t.Fatalf("unexpected roster %+v", teams)
	}
}

func TestMatchRestartKeepsRoster(t *testing.T) {
	match := NewMatch("m1", threeTeams(), MatchOptions{})
	if err := match.Start(questionSet(1), true); err != nil {
		t.Fatalf("start: %v", err)
	}
	match.Restart()
	if match.Phase() != domain.PhaseSetup || match.Round() != nil || len(match.Teams()) != 3 {
		t.Fatalf("unexpected state after restart: %+v", match.Snapshot())
	}
	if match.Snapshot().OfflineQuestions {
		t.Fatalf("expected offline flag cleared")
	}
}

func TestMatchLeaderboardRanksByScore(t *testing.T) {
	match := NewMatch("m1", threeTeams(), MatchOptions{})
	if err := match.Start(questionSet(1), false); err != nil {
		t.Fatalf("start: %v", err)
	}
	match.ApplyRoundResults([]domain.RoundResult{{TeamID: "B", Correct: true}, {TeamID: "C", Correct: true}})

	lb := match.Leaderboard()
	if lb[0].TeamID != "B" || lb[1].TeamID != "C" || lb[2].TeamID != "A" {
		t.Fatalf("unexpected order %+v", lb)
	}
	if lb[0].Rank != 1 || lb[1].Rank != 1 || lb[2].Rank != 3 {
		t.Fatalf("unexpected ranks %+v", lb)
	}
}

func playRound(t *testing.T, match *Match) {
	t.Helper()
	match.Round().Reveal()
	results, err := match.Round().Submit()
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	match.ApplyRoundResults(results)
}

func threeTeams() []domain.Team {
	return []domain.Team{
		{ID: "A", Name: "Atlas Lions"},
		{ID: "B", Name: "Sahara Stars"},
		{ID: "C", Name: "Rif Riders"},
	}
}

func questionSet(n int) []domain.Question {
	out := make([]domain.Question, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, sampleQuestion(string(rune('a'+i)), i%4))
	}
	return out
}

func scoresByID(match *Match) map[string]int {
	out := make(map[string]int)
	for _, t := range match.Teams() {
		out[t.ID] = t.Score
	}
	return out
}

func TestMatchWithoutTickSignals(t *testing.T) {
	match := NewMatch("m1", threeTeams(), MatchOptions{TimeLimit: 5, TickThreshold: NoTickSignals})
	if err := match.Start(questionSet(1), false); err != nil {
		t.Fatalf("start: %v", err)
	}
	round := match.Round()
	var last []domain.Event
	for round.Remaining() > 0 {
		last = round.Tick()
		for _, ev := range last {
			if ev.Type == domain.EventTick {
				t.Fatalf("unexpected tick at %d remaining", ev.RemainingSeconds)
			}
		}
	}
	if !round.Revealed() || len(last) != 1 {
		t.Fatalf("expected reveal with a single outcome event, got revealed=%v events=%+v", round.Revealed(), last)
	}
}
