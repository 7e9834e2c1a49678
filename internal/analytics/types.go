package analytics

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/lewisedginton/mood_mate/internal/mood"
)

// MoodCounts holds one counter per mood category.
type MoodCounts struct {
	Happy    int `json:"happy"`
	Sad      int `json:"sad"`
	Stressed int `json:"stressed"`
	Angry    int `json:"angry"`
	Neutral  int `json:"neutral"`
}

func (c *MoodCounts) field(m mood.Category) *int {
	switch m {
	case mood.Happy:
		return &c.Happy
	case mood.Sad:
		return &c.Sad
	case mood.Stressed:
		return &c.Stressed
	case mood.Angry:
		return &c.Angry
	default:
		return &c.Neutral
	}
}

// Inc adds one to m. Unknown moods count as neutral.
func (c *MoodCounts) Inc(m mood.Category) {
	*c.field(m)++
}

// Get returns the counter for m.
func (c MoodCounts) Get(m mood.Category) int {
	return *c.field(m)
}

// Total sums every counter.
func (c MoodCounts) Total() int {
	return c.Happy + c.Sad + c.Stressed + c.Angry + c.Neutral
}

// DayStats is the activity of one UTC calendar day.
type DayStats struct {
	MoodCounts
	Total int `json:"total"`
}

// TrendPoint is one day in a trend series.
type TrendPoint struct {
	Date  string   `json:"date"`
	Stats DayStats `json:"stats"`
}

// KeywordCount is a word and how often it was seen.
type KeywordCount struct {
	Word  string
	Count int
}

// Keywords is a ranked keyword list. It encodes as a JSON object whose key order
// follows the ranking.
type Keywords []KeywordCount

// MarshalJSON writes {"word":count,...} in slice order.
func (k Keywords) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, kc := range k {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(kc.Word)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(kc.Count))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Map returns the keywords as a plain map.
func (k Keywords) Map() map[string]int {
	out := make(map[string]int, len(k))
	for _, kc := range k {
		out[kc.Word] = kc.Count
	}
	return out
}

// Snapshot is a deep copy of the aggregated analytics.
type Snapshot struct {
	TotalSessions    int                 `json:"totalSessions"`
	MoodCounts       MoodCounts          `json:"moodCounts"`
	KeywordFrequency map[string]int      `json:"keywordFrequency"`
	DailyStats       map[string]DayStats `json:"dailyStats"`
}
