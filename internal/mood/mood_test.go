package mood

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Category
	}{
		{"empty", "", Neutral},
		{"no keywords", "what should I cook tonight", Neutral},
		{"sad", "I feel sad today", Sad},
		{"happy upper case", "I AM SO HAPPY", Happy},
		{"stressed", "exams make me anxious", Stressed},
		{"angry", "I am furious with my boss", Angry},
		{"neutral keyword", "I'm fine thanks", Neutral},
		{"longer keyword wins", "I am happy but stressed", Stressed},
		{"summed lengths", "great joy but a little tense", Happy},
		{"substring match", "she was upsetting everyone", Sad},
		{"tie resolves to neutral", "sad and mad", Neutral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.text))
		})
	}
}

func TestSingleCategoryKeywords(t *testing.T) {
	for _, c := range []Category{Sad, Happy, Stressed, Angry} {
		for _, kw := range Keywords(c) {
			assert.Equal(t, c, Classify("today I was "+kw), kw)
		}
	}
}

func TestScoresRepeatsCountOnce(t *testing.T) {
	once := Scores("sad")
	many := Scores("sad sad sad SAD")
	assert.Equal(t, 3, once[Sad])
	assert.Equal(t, once, many)
}

func TestScoresIncludesEveryCategory(t *testing.T) {
	scores := Scores("nothing here")
	assert.Len(t, scores, len(Categories()))
	for _, c := range Categories() {
		assert.Zero(t, scores[c])
	}
}

func TestParseCategory(t *testing.T) {
	c, ok := ParseCategory(" Happy ")
	assert.True(t, ok)
	assert.Equal(t, Happy, c)

	c, ok = ParseCategory("ecstatic")
	assert.False(t, ok)
	assert.Equal(t, Neutral, c)
}

func TestCategoriesIsACopy(t *testing.T) {
	cats := Categories()
	cats[0] = "broken"
	assert.Equal(t, Sad, Categories()[0])
	assert.Equal(t, []Category{Sad, Happy, Stressed, Angry, Neutral}, Categories())
}
