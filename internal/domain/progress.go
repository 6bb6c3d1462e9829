package domain

import "time"

// DateLayout is the calendar-day format used in progress records.
const DateLayout = "2006-01-02"

// SacredProgressKey identifies the fixed-prayer sequence in progress keys.
const SacredProgressKey = "sacred"

// Progress is the persisted position of a prayer session. It is only
// meaningful on the day it was written.
type Progress struct {
	MysteryType      string   `json:"mysteryType"`
	CurrentStepIndex int      `json:"currentStepIndex"`
	Date             string   `json:"date"`
	Language         Language `json:"language"`
}

// IsCurrent reports whether the record was written on the same calendar
// day as now (in now's location).
func (p Progress) IsCurrent(now time.Time) bool {
	return p.Date == now.Format(DateLayout)
}

// Preferences are the user flags consumed by segmentation and display.
type Preferences struct {
	FruitAnnouncement   bool `json:"fruitAnnouncement"`
	DisableHighlighting bool `json:"disableHighlighting"`
}
