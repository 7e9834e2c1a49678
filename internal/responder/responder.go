// Package responder picks Dr. Doof's canned reply and suggestion chips for a mood.
package responder

import (
	"math/rand/v2"

	"github.com/lewisedginton/mood_mate/internal/mood"
)

// Reply is one bot answer.
type Reply struct {
	Text        string
	Suggestions []string
}

type entry struct {
	responses   []string
	suggestions []string
}

var table = map[mood.Category]entry{
	mood.Sad: {
		responses: []string{
			"I sense you're feeling down. Dr. Doof is here for you! Even my -inators break sometimes, and I always rebuild them. 💙",
			"Ah, the gloom! I know it well. Back in Gimmelshtump I was sad most days, and look at me now, chatting with you! 💙",
			"Sadness is just a temporary setback, like Perry the Platypus foiling my plans. We will get through this together. 🫂",
			"It's okay to feel blue. Tell me what happened and Dr. Doof will listen, no evil scheme required. 💙",
		},
		suggestions: []string{"Tell me a joke", "I need motivation", "Help me feel better", "Share something positive"},
	},
	mood.Happy: {
		responses: []string{
			"Your happiness shines through! Dr. Doof loves your positive energy! ✨",
			"Wonderful! This is better than the time my Happy-inator actually worked! 🎉",
			"Excellent! Your joy is contagious. I may have to build a Share-the-Joy-inator! 😄",
			"Ha! That's the spirit! Keep this up and the whole Tri-State Area will be smiling. ✨",
		},
		suggestions: []string{"Tell me more good things", "Share the joy", "Keep the energy up", "Celebrate with me"},
	},
	mood.Stressed: {
		responses: []string{
			"Take a deep breath with me... in and out. You've got this! 🌬️",
			"Stress! My old nemesis. Let's slow down: breathe in for four, hold for four, out for four. 🌬️",
			"Even an evil scientist needs a break. One small step at a time, and the pile gets smaller. 🧘",
			"When my schemes overwhelm me I make a list. Shall we break your worries into tiny pieces? 📝",
		},
		suggestions: []string{"Help me relax", "Breathing exercises", "Distract me", "Calm my mind"},
	},
	mood.Angry: {
		responses: []string{
			"I understand your frustration. Let's channel that energy positively! ⚡",
			"Grr, I know that feeling! Count to ten with me before we build an Anger-Away-inator. 🔟",
			"Anger is a lot of energy. I used to spend mine on evil plans; now I bake cookies. Want the recipe? 🍪",
			"Let it out! Then we can figure out what really made you mad. Dr. Doof is not judging. ⚡",
		},
		suggestions: []string{"Help me cool down", "Count to ten", "Tell me about cookies", "Channel this energy"},
	},
	mood.Neutral: {
		responses: []string{
			"I'm here to chat with you. What's on your mind today? 🤔",
			"Hello again! Dr. Doof is ready to listen. How is your day going? 😊",
			"Curious! Tell me more, and I'll try not to build an inator about it. 🤔",
			"Ah, a calm day. Those are rare in my lab! Anything you'd like to talk about? 🧪",
		},
		suggestions: []string{"How are you?", "Tell me about your day", "Surprise me", "Ask me anything"},
	},
}

// Picker returns an index in [0, n).
type Picker func(n int) int

// Option configures a Selector.
type Option func(*Selector)

// WithPicker replaces the random index source, usually with a fixed one in tests.
func WithPicker(p Picker) Option {
	return func(s *Selector) {
		if p != nil {
			s.pick = p
		}
	}
}

// Selector maps moods to replies. It is safe for concurrent use as long as the picker is.
type Selector struct {
	pick Picker
}

// New creates a Selector using math/rand/v2 unless WithPicker is given.
func New(opts ...Option) *Selector {
	s := &Selector{pick: rand.IntN}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Select returns a uniformly chosen response for m plus a copy of its suggestion list.
// Unknown moods answer as neutral.
func (s *Selector) Select(m mood.Category) Reply {
	e, ok := table[m]
	if !ok {
		e = table[mood.Neutral]
	}

	i := s.pick(len(e.responses))
	if i < 0 || i >= len(e.responses) {
		i = 0
	}
	return Reply{
		Text:        e.responses[i],
		Suggestions: Suggestions(m),
	}
}

// Suggestions returns a copy of the suggestion chips for m.
func Suggestions(m mood.Category) []string {
	e, ok := table[m]
	if !ok {
		e = table[mood.Neutral]
	}
	return append([]string(nil), e.suggestions...)
}

// Responses returns a copy of every response configured for m.
func Responses(m mood.Category) []string {
	e, ok := table[m]
	if !ok {
		e = table[mood.Neutral]
	}
	return append([]string(nil), e.responses...)
}
