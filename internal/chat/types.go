package chat

import (
	"encoding/json"
	"time"

	"github.com/lewisedginton/mood_mate/internal/analytics"
	"github.com/lewisedginton/mood_mate/internal/mood"
	"github.com/lewisedginton/mood_mate/internal/session_store"
)

// SendRequest is one user message. Timestamp is the client's clock in whatever JSON
// form it sent (ISO string or epoch milliseconds) and is only logged; stored
// timestamps come from the server.
type SendRequest struct {
	SessionID string          `json:"sessionId"`
	Message   string          `json:"message"`
	Timestamp json.RawMessage `json:"timestamp,omitempty"`
}

// SessionStats summarises a session after a message.
type SessionStats struct {
	MessageCount int           `json:"messageCount"`
	CurrentMood  mood.Category `json:"currentMood"`
	// SessionDuration is in milliseconds
	SessionDuration int64 `json:"sessionDuration"`
}

// SendResult is Dr. Doof's answer to one message.
type SendResult struct {
	Response     string        `json:"response"`
	DetectedMood mood.Category `json:"detectedMood"`
	Suggestions  []string      `json:"suggestions"`
	SessionStats SessionStats  `json:"sessionStats"`
}

// HistoryResult is a session with its transcript and mood tally.
type HistoryResult struct {
	Session     session_store.Session        `json:"session"`
	ChatHistory []session_store.ChatLogEntry `json:"chatHistory"`
	MoodSummary map[mood.Category]int        `json:"moodSummary"`
}

// AnalyticsReport is the analytics snapshot plus derived figures.
type AnalyticsReport struct {
	analytics.Snapshot
	TopKeywords          analytics.Keywords `json:"topKeywords"`
	AverageSessionLength float64            `json:"averageSessionLength"`
}

// HealthReport is the payload of the service health endpoint.
type HealthReport struct {
	Status                string    `json:"status"`
	Timestamp             time.Time `json:"timestamp"`
	ActiveSessions        int       `json:"activeSessions"`
	TotalAnalyzedMessages int       `json:"totalAnalyzedMessages"`
}
