package responder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lewisedginton/mood_mate/internal/mood"
)

func fixed(i int) Picker {
	return func(int) int { return i }
}

func TestSelectUsesPicker(t *testing.T) {
	for _, m := range mood.Categories() {
		all := Responses(m)
		require.GreaterOrEqual(t, len(all), 3, m)
		for i, want := range all {
			got := New(WithPicker(fixed(i))).Select(m)
			assert.Equal(t, want, got.Text)
		}
	}
}

func TestSelectPassesListLength(t *testing.T) {
	var seen int
	s := New(WithPicker(func(n int) int {
		seen = n
		return n - 1
	}))

	reply := s.Select(mood.Angry)
	all := Responses(mood.Angry)
	assert.Equal(t, len(all), seen)
	assert.Equal(t, all[len(all)-1], reply.Text)
}

func TestSuggestions(t *testing.T) {
	tests := []struct {
		mood mood.Category
		want []string
	}{
		{mood.Sad, []string{"Tell me a joke", "I need motivation", "Help me feel better", "Share something positive"}},
		{mood.Happy, []string{"Tell me more good things", "Share the joy", "Keep the energy up", "Celebrate with me"}},
		{mood.Stressed, []string{"Help me relax", "Breathing exercises", "Distract me", "Calm my mind"}},
		{mood.Angry, []string{"Help me cool down", "Count to ten", "Tell me about cookies", "Channel this energy"}},
		{mood.Neutral, []string{"How are you?", "Tell me about your day", "Surprise me", "Ask me anything"}},
	}

	s := New(WithPicker(fixed(0)))
	for _, tt := range tests {
		t.Run(string(tt.mood), func(t *testing.T) {
			assert.Equal(t, tt.want, s.Select(tt.mood).Suggestions)
		})
	}
}

func TestUnknownMoodFallsBackToNeutral(t *testing.T) {
	s := New(WithPicker(fixed(1)))
	reply := s.Select("ecstatic")

	assert.Equal(t, Responses(mood.Neutral)[1], reply.Text)
	assert.Equal(t, Suggestions(mood.Neutral), reply.Suggestions)
}

func TestSuggestionsAreCopies(t *testing.T) {
	s := New()
	first := s.Select(mood.Sad)
	first.Suggestions[0] = "mutated"

	assert.Equal(t, "Tell me a joke", s.Select(mood.Sad).Suggestions[0])
}

func TestOutOfRangePickerIsClamped(t *testing.T) {
	s := New(WithPicker(fixed(99)))
	assert.Equal(t, Responses(mood.Happy)[0], s.Select(mood.Happy).Text)
}

func TestDefaultPickerStaysInRange(t *testing.T) {
	s := New()
	valid := make(map[string]bool)
	for _, r := range Responses(mood.Stressed) {
		valid[r] = true
	}
	for i := 0; i < 200; i++ {
		assert.True(t, valid[s.Select(mood.Stressed).Text])
	}
}
