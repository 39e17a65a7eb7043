package app

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"knowledge-race/internal/domain"
)

// DefaultAdvanceDelay is the pause between confirming results and the next question.
const DefaultAdvanceDelay = 1500 * time.Millisecond

// NoAutoAdvance as an advance delay leaves moving on to the moderator.
const NoAutoAdvance time.Duration = -1

// EventSink receives the notifications emitted by round and match
// transitions. Implementations must not block; errors are logged and dropped.
type EventSink interface {
	Publish(ctx context.Context, events []domain.Event) error
}

// Session wraps one match with the timers that drive it. All mutation goes
// through the session mutex, so there is a single mutator per match.
type Session struct {
	mu           sync.Mutex
	match        *Match
	clock        clockwork.Clock
	sink         EventSink
	advanceDelay time.Duration

	// generation scopes tickers and deferred advances to the round that
	// created them; stale callbacks compare and bail out.
	generation   uint64
	ticker       clockwork.Ticker
	tickDone     chan struct{}
	advanceTimer clockwork.Timer
	starting     bool
	closed       bool

	subscribers map[chan domain.MatchSnapshot]struct{}
}

// NewSession is exported for infrastructure layers and tests that need a
// session without a service.
func NewSession(match *Match) *Session {
	return newSession(match, clockwork.NewRealClock(), nil, DefaultAdvanceDelay)
}

func newSession(match *Match, clock clockwork.Clock, sink EventSink, advanceDelay time.Duration) *Session {
	return &Session{
		match:        match,
		clock:        clock,
		sink:         sink,
		advanceDelay: advanceDelay,
		subscribers:  make(map[chan domain.MatchSnapshot]struct{}),
	}
}

// ID returns the match identifier.
func (s *Session) ID() string {
	return s.match.ID()
}

// Snapshot returns the current match view.
func (s *Session) Snapshot() domain.MatchSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(nil)
}

func (s *Session) snapshotLocked(events []domain.Event) domain.MatchSnapshot {
	snap := s.match.Snapshot()
	snap.Events = events
	snap.UpdatedAt = s.clock.Now()
	return snap
}

func (s *Session) startCountdownLocked() {
	s.stopCountdownLocked()
	s.generation++
	gen := s.generation
	ticker := s.clock.NewTicker(time.Second)
	done := make(chan struct{})
	s.ticker = ticker
	s.tickDone = done

	go func() {
		for {
			select {
			case <-ticker.Chan():
				if !s.tick(gen) {
					return
				}
			case <-done:
				return
			}
		}
	}()
}

func (s *Session) stopCountdownLocked() {
	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	close(s.tickDone)
	s.ticker = nil
	s.tickDone = nil
}

// tick applies one second to the round of generation gen. It reports whether
// the countdown should keep running.
func (s *Session) tick(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	round := s.match.Round()
	if s.closed || gen != s.generation || round == nil || round.Revealed() {
		return false
	}
	events := round.Tick()
	running := !round.Revealed()
	if !running {
		s.stopCountdownLocked()
	}
	s.publishLocked(events)
	return running
}

func (s *Session) scheduleAdvanceLocked() {
	s.cancelAdvanceLocked()
	if s.advanceDelay < 0 {
		return
	}
	gen := s.generation
	s.advanceTimer = s.clock.AfterFunc(s.advanceDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed || gen != s.generation {
			return
		}
		s.advanceTimer = nil
		if err := s.advanceLocked(); err != nil {
			log.Debug().Err(err).Str("match_id", s.match.ID()).Msg("deferred advance skipped")
		}
	})
}

func (s *Session) cancelAdvanceLocked() {
	if s.advanceTimer != nil {
		s.advanceTimer.Stop()
		s.advanceTimer = nil
	}
}

func (s *Session) advanceLocked() error {
	s.cancelAdvanceLocked()
	finished, err := s.match.Advance()
	if err != nil {
		return err
	}
	if finished {
		s.stopCountdownLocked()
		s.generation++
		log.Info().Str("match_id", s.match.ID()).Msg("match finished")
		s.publishLocked([]domain.Event{{Type: domain.EventFanfare}})
		return nil
	}
	s.startCountdownLocked()
	s.publishLocked(nil)
	return nil
}

func (s *Session) resetLocked() {
	s.stopCountdownLocked()
	s.cancelAdvanceLocked()
	s.generation++
}

// publishLocked stamps events, hands them to the sink and broadcasts the new
// snapshot to subscribers.
func (s *Session) publishLocked(events []domain.Event) {
	if len(events) > 0 {
		now := s.clock.Now()
		remaining := 0
		if round := s.match.Round(); round != nil {
			remaining = round.Remaining()
		}
		for i := range events {
			events[i].MatchID = s.match.ID()
			events[i].Position = s.match.Position()
			if events[i].Type != domain.EventTick {
				events[i].RemainingSeconds = remaining
			}
			events[i].At = now
		}
		if s.sink != nil {
			if err := s.sink.Publish(context.Background(), events); err != nil {
				log.Warn().Err(err).Str("match_id", s.match.ID()).Msg("event sink publish failed")
			}
		}
	}
	s.broadcastLocked(s.snapshotLocked(events))
}

func (s *Session) subscribe() (<-chan domain.MatchSnapshot, func()) {
	ch := make(chan domain.MatchSnapshot, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	initial := s.snapshotLocked(nil)
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcastLocked(snap domain.MatchSnapshot) {
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// Slow consumer: drop the oldest snapshot so the latest always lands.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.resetLocked()
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}
