// Package session_store keeps chat sessions and their transcripts in memory and reaps
// sessions that have been idle for too long.
package session_store //nolint:revive // var-naming: using underscores for domain clarity

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lewisedginton/mood_mate/internal/mood"
	"github.com/lewisedginton/mood_mate/pkg/logger"
	"github.com/lewisedginton/mood_mate/pkg/prefixed_uuid"
)

// DefaultIdleTimeout is how long a session may stay inactive before it is reaped.
const DefaultIdleTimeout = time.Hour

const idPrefix = "session"

// ErrSessionNotFound is returned for unknown or already reaped session ids.
var ErrSessionNotFound = errors.New("session not found")

// Config configures a Store.
type Config struct {
	Logger logger.Logger
	// IdleTimeout defaults to DefaultIdleTimeout
	IdleTimeout time.Duration
	// OnCreate runs after every new session is inserted
	OnCreate func(Session)
	// OnExpire receives the sessions removed by each periodic sweep
	OnExpire func([]Expired)
	// Clock defaults to time.Now
	Clock func() time.Time
}

type record struct {
	mu      sync.Mutex
	session Session
	log     []ChatLogEntry
}

func (r *record) snapshot() Session {
	s := r.session
	s.MoodHistory = append([]MoodPoint(nil), r.session.MoodHistory...)
	return s
}

// Store owns every Session and ChatLogEntry. The map is guarded by an RWMutex and each
// session by its own mutex; sweeps take the map write lock.
type Store struct {
	config   Config
	mu       sync.RWMutex
	sessions map[string]*record
	sweeping atomic.Bool
}

// New creates an empty Store.
func New(config Config) (*Store, error) {
	if config.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if config.IdleTimeout < 0 {
		return nil, fmt.Errorf("idle timeout must not be negative")
	}
	if config.IdleTimeout == 0 {
		config.IdleTimeout = DefaultIdleTimeout
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}
	config.Logger = config.Logger.WithFields(logger.StringField("component", "session_store"))

	return &Store{
		config:   config,
		sessions: make(map[string]*record),
	}, nil
}

// IdleTimeout returns the configured inactivity threshold.
func (s *Store) IdleTimeout() time.Duration {
	return s.config.IdleTimeout
}

// Create inserts a fresh session started at now.
func (s *Store) Create(now time.Time) (Session, error) {
	rec := &record{session: Session{
		ID:           prefixed_uuid.New(idPrefix).String(),
		StartTime:    now,
		LastActivity: now,
		MoodHistory:  []MoodPoint{},
		CurrentMood:  mood.Neutral,
	}}
	created := rec.snapshot()

	s.mu.Lock()
	s.sessions[created.ID] = rec
	s.mu.Unlock()

	s.config.Logger.Debug("Session created", logger.SessionIDField(created.ID))
	if s.config.OnCreate != nil {
		s.config.OnCreate(created)
	}
	return created, nil
}

func (s *Store) lookup(id string) (*record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return rec, nil
}

// Get returns a copy of the session.
func (s *Store) Get(id string) (Session, error) {
	rec, err := s.lookup(id)
	if err != nil {
		return Session{}, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.snapshot(), nil
}

// History returns copies of the session and its transcript.
func (s *Store) History(id string) (Session, []ChatLogEntry, error) {
	rec, err := s.lookup(id)
	if err != nil {
		return Session{}, nil, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.snapshot(), append([]ChatLogEntry{}, rec.log...), nil
}

// RecordMessage appends entry to the session transcript and refreshes lastActivity.
// User entries also bump messageCount, extend moodHistory and set currentMood.
// The map read lock is held throughout so a concurrent sweep cannot drop the session
// halfway through.
func (s *Store) RecordMessage(id string, entry ChatLogEntry) (Session, error) {
	if entry.Sender != SenderUser && entry.Sender != SenderBot {
		return Session{}, fmt.Errorf("unknown sender %q", entry.Sender)
	}
	entry.Mood, _ = mood.ParseCategory(string(entry.Mood))

	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.sessions[id]
	if !ok {
		return Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.log = append(rec.log, entry)
	if entry.Timestamp.After(rec.session.LastActivity) {
		rec.session.LastActivity = entry.Timestamp
	}
	if entry.Sender == SenderUser {
		rec.session.MessageCount++
		rec.session.MoodHistory = append(rec.session.MoodHistory, MoodPoint{Mood: entry.Mood, Timestamp: entry.Timestamp})
		rec.session.CurrentMood = entry.Mood
	}
	return rec.snapshot(), nil
}

// SweepExpired removes every session whose last activity is older than now-idle and
// returns them, oldest activity first.
func (s *Store) SweepExpired(now time.Time, idle time.Duration) []Expired {
	cutoff := now.Add(-idle)

	s.mu.Lock()
	var expired []Expired
	for id, rec := range s.sessions {
		rec.mu.Lock()
		if rec.session.LastActivity.Before(cutoff) {
			expired = append(expired, Expired{Session: rec.snapshot(), ChatLog: append([]ChatLogEntry{}, rec.log...)})
			delete(s.sessions, id)
		}
		rec.mu.Unlock()
	}
	remaining := len(s.sessions)
	s.mu.Unlock()

	sort.Slice(expired, func(i, j int) bool {
		return expired[i].Session.LastActivity.Before(expired[j].Session.LastActivity)
	})

	if len(expired) > 0 {
		s.config.Logger.Info("Expired idle sessions",
			logger.IntField("expired", len(expired)),
			logger.IntField("remaining", remaining),
			logger.DurationField("idle_timeout", idle))
	}
	return expired
}

// Run sweeps every interval until ctx is cancelled. A zero interval uses the idle timeout.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = s.config.IdleTimeout
	}
	s.sweeping.Store(true)
	defer s.sweeping.Store(false)

	s.config.Logger.Info("Session sweeper started",
		logger.DurationField("interval", interval),
		logger.DurationField("idle_timeout", s.config.IdleTimeout))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.config.Logger.Info("Session sweeper stopped")
			return
		case <-ticker.C:
			expired := s.SweepExpired(s.config.Clock(), s.config.IdleTimeout)
			if len(expired) > 0 && s.config.OnExpire != nil {
				s.config.OnExpire(expired)
			}
		}
	}
}

// Sweeping reports whether Run is active.
func (s *Store) Sweeping() bool {
	return s.sweeping.Load()
}

// Len returns the number of stored sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// TotalMessages sums messageCount over the stored sessions.
func (s *Store) TotalMessages() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, rec := range s.sessions {
		rec.mu.Lock()
		total += rec.session.MessageCount
		rec.mu.Unlock()
	}
	return total
}
