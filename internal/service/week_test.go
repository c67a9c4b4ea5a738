package service

import (
	"alcyxob/health-tracker/internal/domain"
	"testing"

	"github.com/stretchr/testify/assert"
)

func progressRows(total, completed int) []domain.UserPlanDayProgress {
	rows := make([]domain.UserPlanDayProgress, total)
	for i := range rows {
		rows[i].Status = domain.ProgressPlanned
		if i < completed {
			rows[i].Status = domain.ProgressCompleted
		}
	}
	return rows
}

func TestResolveCurrentWeek(t *testing.T) {
	for caseName, tc := range map[string]struct {
		total, completed, weekCount int
		want                        int
	}{
		"no progress":              {total: 0, completed: 0, weekCount: 4, want: 1},
		"no weeks":                 {total: 6, completed: 6, weekCount: 0, want: 1},
		"nothing completed":        {total: 12, completed: 0, weekCount: 4, want: 1},
		"half of week one":         {total: 16, completed: 2, weekCount: 4, want: 1},
		"one week done":            {total: 12, completed: 3, weekCount: 4, want: 2},
		"mid second week":          {total: 12, completed: 5, weekCount: 4, want: 2},
		"everything done clamps":   {total: 12, completed: 12, weekCount: 4, want: 4},
		"uneven days per week":     {total: 10, completed: 5, weekCount: 4, want: 3},
		"fewer rows than weeks":    {total: 2, completed: 1, weekCount: 4, want: 3},
		"single week":              {total: 3, completed: 3, weekCount: 1, want: 1},
		"only week one rows exist": {total: 3, completed: 2, weekCount: 2, want: 2},
	} {
		t.Run(caseName, func(t *testing.T) {
			got := ResolveCurrentWeek(progressRows(tc.total, tc.completed), tc.weekCount)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestResolveCurrentWeek_IgnoresSkipped(t *testing.T) {
	rows := progressRows(6, 0)
	for i := range rows {
		rows[i].Status = domain.ProgressSkipped
	}
	assert.Equal(t, 1, ResolveCurrentWeek(rows, 2))
}
