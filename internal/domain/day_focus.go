package domain

import "strings"

// RestFocus is the focus label stored for rest days.
const RestFocus = "Rest"

// FocusKind distinguishes rest days from trained days.
type FocusKind int

const (
	FocusTrained FocusKind = iota
	FocusRest
)

// DayFocus is the typed form of a plan day's free-text focus.
type DayFocus struct {
	Kind  FocusKind
	Label string // Trained focus such as "Upper" or "Legs"; RestFocus for rest days
}

// RestDay returns the focus of a rest day.
func RestDay() DayFocus {
	return DayFocus{Kind: FocusRest, Label: RestFocus}
}

// TrainedDay returns the focus of a trained day.
func TrainedDay(label string) DayFocus {
	return DayFocus{Kind: FocusTrained, Label: label}
}

// ParseDayFocus classifies a stored focus string. Older rows carry labels such
// as "Active rest" or "rest day", so any label mentioning rest is a rest day.
func ParseDayFocus(s string) DayFocus {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" || strings.Contains(strings.ToLower(trimmed), "rest") {
		return RestDay()
	}
	return TrainedDay(trimmed)
}

func (f DayFocus) IsRest() bool {
	return f.Kind == FocusRest
}

func (f DayFocus) String() string {
	if f.IsRest() {
		return RestFocus
	}
	return f.Label
}
