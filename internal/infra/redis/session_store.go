package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"knowledge-race/internal/app"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Notes:
//   - Sessions (and their timers) live in a local map; match state is never
//     written to Redis.
//   - Redis only carries a liveness marker per match so operators can see
//     which matches a node is running.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) Put(session *app.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID()] = session
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(session.ID()), "1", s.ttl).Err()
}

func (s *SessionStore) Get(matchID string) (*app.Session, bool) {
	s.mu.RLock()
	session, ok := s.sessions[matchID]
	s.mu.RUnlock()
	if ok && s.ttl > 0 {
		_ = s.client.Expire(context.Background(), s.key(matchID), s.ttl).Err()
	}
	return session, ok
}

func (s *SessionStore) Delete(matchID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[matchID]; !ok {
		return
	}
	delete(s.sessions, matchID)
	_ = s.client.Del(context.Background(), s.key(matchID)).Err()
}

func (s *SessionStore) key(matchID string) string {
	return "match:session:" + matchID
}
