package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDayFocus(t *testing.T) {
	for input, want := range map[string]DayFocus{
		"":              RestDay(),
		"   ":           RestDay(),
		"Rest":          RestDay(),
		"Active rest":   RestDay(),
		"REST DAY":      RestDay(),
		"Upper":         TrainedDay("Upper"),
		"  Full Body  ": TrainedDay("Full Body"),
	} {
		assert.Equal(t, want, ParseDayFocus(input), "input %q", input)
	}
}

func TestDayFocusString(t *testing.T) {
	assert.Equal(t, RestFocus, ParseDayFocus("active rest").String())
	assert.True(t, ParseDayFocus("active rest").IsRest())
	assert.Equal(t, "Legs", ParseDayFocus("Legs").String())
	assert.False(t, ParseDayFocus("Legs").IsRest())
}

func TestProgressStatusPriority(t *testing.T) {
	assert.Greater(t, ProgressCompleted.Priority(), ProgressSkipped.Priority())
	assert.Greater(t, ProgressSkipped.Priority(), ProgressPlanned.Priority())
	assert.Zero(t, ProgressStatus("unknown").Priority())
}
