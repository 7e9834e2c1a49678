// Package analytics aggregates process-wide mood statistics: per-mood totals, keyword
// frequency and per-day activity. Nothing is persisted; counters live as long as the
// process.
package analytics

import (
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/lewisedginton/mood_mate/internal/mood"
)

const (
	// DefaultTopKeywords is used when TopKeywords gets n <= 0.
	DefaultTopKeywords = 10
	// DefaultTrendDays is used when Trend gets days <= 0.
	DefaultTrendDays = 7
	// MaxTrendDays bounds the trend window.
	MaxTrendDays = 365

	minKeywordRunes = 4
	dayLayout       = "2006-01-02"
)

// DayKey returns the UTC calendar date of t as YYYY-MM-DD.
func DayKey(t time.Time) string {
	return t.UTC().Format(dayLayout)
}

// Aggregator accumulates analytics behind a single mutex.
type Aggregator struct {
	mu            sync.Mutex
	totalSessions int
	moods         MoodCounts
	freq          map[string]int
	firstSeen     []string
	daily         map[string]*DayStats
}

// New creates an empty Aggregator.
func New() *Aggregator {
	return &Aggregator{
		freq:  make(map[string]int),
		daily: make(map[string]*DayStats),
	}
}

// RecordSession counts one started session.
func (a *Aggregator) RecordSession() {
	a.mu.Lock()
	a.totalSessions++
	a.mu.Unlock()
}

// RecordMessage counts one classified user message: the mood total, every lower-cased
// whitespace token longer than three characters and the day bucket of at.
func (a *Aggregator) RecordMessage(m mood.Category, text string, at time.Time) {
	tokens := strings.Fields(strings.ToLower(text))
	key := DayKey(at)

	a.mu.Lock()
	defer a.mu.Unlock()

	a.moods.Inc(m)
	for _, tok := range tokens {
		if utf8.RuneCountInString(tok) < minKeywordRunes {
			continue
		}
		if _, seen := a.freq[tok]; !seen {
			a.firstSeen = append(a.firstSeen, tok)
		}
		a.freq[tok]++
	}

	day, ok := a.daily[key]
	if !ok {
		day = &DayStats{}
		a.daily[key] = day
	}
	day.Inc(m)
	day.Total++
}

// TotalSessions returns the number of sessions ever started.
func (a *Aggregator) TotalSessions() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.totalSessions
}

// TotalMessages returns the number of messages ever analyzed.
func (a *Aggregator) TotalMessages() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.moods.Total()
}

// TopKeywords returns the n most frequent tokens, highest count first. Equal counts
// keep the order in which the words were first seen.
func (a *Aggregator) TopKeywords(n int) Keywords {
	if n <= 0 {
		n = DefaultTopKeywords
	}

	a.mu.Lock()
	ranked := make(Keywords, len(a.firstSeen))
	for i, w := range a.firstSeen {
		ranked[i] = KeywordCount{Word: w, Count: a.freq[w]}
	}
	a.mu.Unlock()

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// Trend returns one entry per UTC day for the last days days ending on now's day,
// oldest first. Days without activity are zero.
func (a *Aggregator) Trend(days int, now time.Time) []TrendPoint {
	if days <= 0 {
		days = DefaultTrendDays
	}
	if days > MaxTrendDays {
		days = MaxTrendDays
	}

	today := now.UTC()
	out := make([]TrendPoint, days)

	a.mu.Lock()
	defer a.mu.Unlock()
	for i := 0; i < days; i++ {
		key := DayKey(today.AddDate(0, 0, i-days+1))
		point := TrendPoint{Date: key}
		if day, ok := a.daily[key]; ok {
			point.Stats = *day
		}
		out[i] = point
	}
	return out
}

// Snapshot returns a deep copy of every counter.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	snap := Snapshot{
		TotalSessions:    a.totalSessions,
		MoodCounts:       a.moods,
		KeywordFrequency: make(map[string]int, len(a.freq)),
		DailyStats:       make(map[string]DayStats, len(a.daily)),
	}
	for w, c := range a.freq {
		snap.KeywordFrequency[w] = c
	}
	for k, d := range a.daily {
		snap.DailyStats[k] = *d
	}
	return snap
}

// AverageMessagesPerSession divides totalMessages by sessions, 0 for no sessions.
func AverageMessagesPerSession(totalMessages, sessions int) float64 {
	if sessions <= 0 {
		return 0
	}
	return float64(totalMessages) / float64(sessions)
}
