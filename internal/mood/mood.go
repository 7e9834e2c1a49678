// Package mood classifies free text into one of five mood categories by keyword scoring.
package mood

import "strings"

// Category is a detected mood.
type Category string

const (
	Sad      Category = "sad"
	Happy    Category = "happy"
	Stressed Category = "stressed"
	Angry    Category = "angry"
	Neutral  Category = "neutral"
)

var categories = []Category{Sad, Happy, Stressed, Angry, Neutral}

var keywords = map[Category][]string{
	Sad:      {"sad", "depressed", "down", "crying", "upset", "hurt", "disappointed", "gloomy", "miserable", "heartbroken"},
	Happy:    {"happy", "great", "awesome", "excited", "joy", "amazing", "fantastic", "wonderful", "thrilled", "elated"},
	Stressed: {"stressed", "anxious", "worried", "nervous", "overwhelmed", "panic", "tense", "pressure", "burden", "frantic"},
	Angry:    {"angry", "mad", "furious", "irritated", "annoyed", "rage", "pissed", "frustrated", "livid"},
	Neutral:  {"okay", "fine", "normal", "alright", "meh"},
}

// Categories returns every category in display order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// ParseCategory maps s to a Category. Unknown values return Neutral and false.
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := keywords[c]; ok {
		return c, true
	}
	return Neutral, false
}

// Keywords returns a copy of the keyword list for c.
func Keywords(c Category) []string {
	return append([]string(nil), keywords[c]...)
}

// Scores returns the score of every category for text. A keyword counts its length
// once when it appears anywhere in the lower-cased text, however many times it repeats.
func Scores(text string) map[Category]int {
	lower := strings.ToLower(text)
	scores := make(map[Category]int, len(categories))
	for _, c := range categories {
		score := 0
		for _, kw := range keywords[c] {
			if strings.Contains(lower, kw) {
				score += len(kw)
			}
		}
		scores[c] = score
	}
	return scores
}

// Classify returns the category with the strictly highest score.
// Ties for the top score and texts without any keyword are Neutral.
func Classify(text string) Category {
	if text == "" {
		return Neutral
	}
	scores := Scores(text)

	best, bestScore, tied := Neutral, 0, false
	for _, c := range categories {
		switch s := scores[c]; {
		case s > bestScore:
			best, bestScore, tied = c, s, false
		case s == bestScore && s > 0:
			tied = true
		}
	}
	if bestScore == 0 || tied {
		return Neutral
	}
	return best
}
