package session_store //nolint:revive // var-naming: using underscores for domain clarity

import (
	"time"

	"github.com/lewisedginton/mood_mate/internal/mood"
)

// Sender tags who wrote a chat log entry.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// ChatLogEntry is one message in a session transcript. Entries are never changed
// after they are appended.
type ChatLogEntry struct {
	Sender    Sender        `json:"sender"`
	Message   string        `json:"message"`
	Mood      mood.Category `json:"mood"`
	Timestamp time.Time     `json:"timestamp"`
}

// MoodPoint records the mood detected for one user message.
type MoodPoint struct {
	Mood      mood.Category `json:"mood"`
	Timestamp time.Time     `json:"timestamp"`
}

// Session is a snapshot of a conversation's metadata. Values returned by the store
// are copies and safe to keep.
type Session struct {
	ID           string        `json:"id"`
	StartTime    time.Time     `json:"startTime"`
	LastActivity time.Time     `json:"lastActivity"`
	MessageCount int           `json:"messageCount"`
	MoodHistory  []MoodPoint   `json:"moodHistory"`
	CurrentMood  mood.Category `json:"currentMood"`
}

// Duration is the time between the session start and now.
func (s Session) Duration(now time.Time) time.Duration {
	if now.Before(s.StartTime) {
		return 0
	}
	return now.Sub(s.StartTime)
}

// Expired is a session removed by a sweep, together with its transcript.
type Expired struct {
	Session Session        `json:"session"`
	ChatLog []ChatLogEntry `json:"chatHistory"`
}
