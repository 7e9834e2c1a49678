// Package chat runs the per-message pipeline: session lookup, mood classification,
// analytics update and reply selection.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lewisedginton/mood_mate/internal/analytics"
	"github.com/lewisedginton/mood_mate/internal/mood"
	"github.com/lewisedginton/mood_mate/internal/responder"
	"github.com/lewisedginton/mood_mate/internal/session_store"
	"github.com/lewisedginton/mood_mate/pkg/logger"
	"github.com/lewisedginton/mood_mate/pkg/metrics"
)

// Config wires a Service.
type Config struct {
	Logger      logger.Logger
	IdleTimeout time.Duration
	// Responder defaults to a randomly picking selector
	Responder *responder.Selector
	// Metrics is optional; counters are registered on it when set
	Metrics *metrics.Metrics
	// OnExpire receives sessions removed by the sweeper, e.g. for archiving
	OnExpire func([]session_store.Expired)
	Clock    func() time.Time
}

// Service owns the session store and analytics aggregator for the process.
type Service struct {
	store     *session_store.Store
	analytics *analytics.Aggregator
	responder *responder.Selector
	log       logger.Logger
	clock     func() time.Time
	onExpire  func([]session_store.Expired)

	messagesTotal   *prometheus.CounterVec
	sessionsCreated prometheus.Counter
	sessionsExpired prometheus.Counter
}

// New creates a Service with an empty store and aggregator.
func New(config Config) (*Service, error) {
	if config.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if config.Responder == nil {
		config.Responder = responder.New()
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}

	s := &Service{
		analytics: analytics.New(),
		responder: config.Responder,
		log:       config.Logger.WithFields(logger.StringField("component", "chat")),
		clock:     config.Clock,
		onExpire:  config.OnExpire,
		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metrics.Namespace(),
			Name:      "messages_total",
			Help:      "Classified user messages by detected mood",
		}, []string{"mood"}),
		sessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metrics.Namespace(),
			Name:      "sessions_created_total",
			Help:      "Chat sessions started",
		}),
		sessionsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metrics.Namespace(),
			Name:      "sessions_expired_total",
			Help:      "Chat sessions reaped after going idle",
		}),
	}

	store, err := session_store.New(session_store.Config{
		Logger:      config.Logger,
		IdleTimeout: config.IdleTimeout,
		OnCreate:    s.sessionCreated,
		OnExpire:    s.sessionsReaped,
		Clock:       config.Clock,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session store: %w", err)
	}
	s.store = store

	if config.Metrics != nil {
		config.Metrics.AddCustomMetric(s.messagesTotal)
		config.Metrics.AddCustomMetric(s.sessionsCreated)
		config.Metrics.AddCustomMetric(s.sessionsExpired)
		config.Metrics.AddCustomMetric(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: metrics.Namespace(),
			Name:      "active_sessions",
			Help:      "Sessions currently held in memory",
		}, func() float64 { return float64(store.Len()) }))
	}
	return s, nil
}

func (s *Service) sessionCreated(session_store.Session) {
	s.analytics.RecordSession()
	s.sessionsCreated.Inc()
}

func (s *Service) sessionsReaped(expired []session_store.Expired) {
	s.sessionsExpired.Add(float64(len(expired)))
	if s.onExpire != nil {
		s.onExpire(expired)
	}
}

// StartSession creates a new session.
func (s *Service) StartSession(ctx context.Context) (session_store.Session, error) {
	sess, err := s.store.Create(s.clock())
	if err != nil {
		return session_store.Session{}, fmt.Errorf("failed to create session: %w", err)
	}
	logger.FromContext(ctx, s.log).Info("Session started", logger.SessionIDField(sess.ID))
	return sess, nil
}

// SendMessage classifies the message, records it and returns Dr. Doof's reply.
// It returns a *ValidationError for empty fields and wraps
// session_store.ErrSessionNotFound for unknown sessions.
func (s *Service) SendMessage(ctx context.Context, req SendRequest) (SendResult, error) {
	sessionID := strings.TrimSpace(req.SessionID)
	text := strings.TrimSpace(req.Message)
	if sessionID == "" {
		return SendResult{}, missing("sessionId")
	}
	if text == "" {
		return SendResult{}, missing("message")
	}

	log := logger.FromContext(ctx, s.log).WithFields(logger.SessionIDField(sessionID))
	now := s.clock()
	detected := mood.Classify(text)

	sess, err := s.store.RecordMessage(sessionID, session_store.ChatLogEntry{
		Sender:    session_store.SenderUser,
		Message:   text,
		Mood:      detected,
		Timestamp: now,
	})
	if err != nil {
		return SendResult{}, fmt.Errorf("failed to record message: %w", err)
	}
	s.analytics.RecordMessage(detected, text, now)
	s.messagesTotal.WithLabelValues(string(detected)).Inc()

	reply := s.responder.Select(detected)
	if _, err := s.store.RecordMessage(sessionID, session_store.ChatLogEntry{
		Sender:    session_store.SenderBot,
		Message:   reply.Text,
		Mood:      detected,
		Timestamp: now,
	}); err != nil {
		// the session was swept between the two writes; the reply is still valid
		log.Warn("Failed to record bot reply", logger.ErrorField(err))
	}

	log.Debug("Message classified",
		logger.MoodField(string(detected)),
		logger.IntField("message_count", sess.MessageCount),
		logger.StringField("client_timestamp", string(req.Timestamp)))

	return SendResult{
		Response:     reply.Text,
		DetectedMood: detected,
		Suggestions:  reply.Suggestions,
		SessionStats: SessionStats{
			MessageCount:    sess.MessageCount,
			CurrentMood:     sess.CurrentMood,
			SessionDuration: sess.Duration(now).Milliseconds(),
		},
	}, nil
}

// History returns the session, its transcript and how often each mood was detected.
func (s *Service) History(_ context.Context, sessionID string) (HistoryResult, error) {
	sess, log, err := s.store.History(sessionID)
	if err != nil {
		return HistoryResult{}, err
	}

	summary := make(map[mood.Category]int, len(mood.Categories()))
	for _, c := range mood.Categories() {
		summary[c] = 0
	}
	for _, p := range sess.MoodHistory {
		summary[p.Mood]++
	}
	return HistoryResult{Session: sess, ChatHistory: log, MoodSummary: summary}, nil
}

// Analytics returns the process-wide analytics with the top ten keywords and the
// average message count of the sessions currently in memory.
func (s *Service) Analytics(_ context.Context) AnalyticsReport {
	return AnalyticsReport{
		Snapshot:             s.analytics.Snapshot(),
		TopKeywords:          s.analytics.TopKeywords(analytics.DefaultTopKeywords),
		AverageSessionLength: analytics.AverageMessagesPerSession(s.store.TotalMessages(), s.store.Len()),
	}
}

// Trends returns per-day stats for the last days days, oldest first.
func (s *Service) Trends(_ context.Context, days int) []analytics.TrendPoint {
	return s.analytics.Trend(days, s.clock())
}

// Health reports liveness figures for the API health endpoint.
func (s *Service) Health(_ context.Context) HealthReport {
	return HealthReport{
		Status:                "healthy",
		Timestamp:             s.clock().UTC(),
		ActiveSessions:        s.store.Len(),
		TotalAnalyzedMessages: s.analytics.TotalMessages(),
	}
}

// Snapshot returns a copy of the analytics counters.
func (s *Service) Snapshot() analytics.Snapshot {
	return s.analytics.Snapshot()
}

// RunSweeper expires idle sessions every interval until ctx is done.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) {
	s.store.Run(ctx, interval)
}

// SweeperRunning reports whether RunSweeper is active.
func (s *Service) SweeperRunning() bool {
	return s.store.Sweeping()
}
