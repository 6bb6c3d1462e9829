package domain

import (
	"strings"
	"time"
)

// Gender selects the narrator voice of a segment.
type Gender int

const (
	Female Gender = iota
	Male
)

// String returns a human-readable gender.
func (g Gender) String() string {
	switch g {
	case Female:
		return "female"
	case Male:
		return "male"
	default:
		return "unknown"
	}
}

// GenderFromString parses "female" or "male".
func GenderFromString(s string) (Gender, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "female":
		return Female, true
	case "male":
		return Male, true
	}
	return Female, false
}

// Segment is one utterance of a step's narration. Segments are computed
// fresh for every play request and never persisted.
type Segment struct {
	Text     string
	Gender   Gender
	Language Language
	// Rate is a speaking-rate multiplier; 0 means the voice default.
	Rate float64
	// PostPause is waited after the segment's audio completes.
	PostPause time.Duration
	// OnStart, if set, runs once when the segment begins playing.
	OnStart func()
}

// DefaultWordPace approximates how long a narrator takes per word.
const DefaultWordPace = 380 * time.Millisecond

// Estimate approximates the spoken length of the segment at perWord per
// word, scaled by Rate. PostPause is not included.
func (s Segment) Estimate(perWord time.Duration) time.Duration {
	words := len(strings.Fields(s.Text))
	d := time.Duration(words) * perWord
	if s.Rate > 0 {
		d = time.Duration(float64(d) / s.Rate)
	}
	return d
}
