package tasks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saas-dashboard/dashboard/internal/backend"
)

var today = time.Date(2024, 6, 15, 14, 0, 0, 0, time.UTC)

func TestOverdue(t *testing.T) {
	cases := []struct {
		name string
		task backend.Task
		want bool
	}{
		{"past open", backend.Task{Status: StatusPending, Deadline: "2024-06-14"}, true},
		{"past in progress timestamp", backend.Task{Status: StatusInProgress, Deadline: "2024-06-01T09:00:00Z"}, true},
		{"due today", backend.Task{Status: StatusPending, Deadline: "2024-06-15"}, false},
		{"future", backend.Task{Status: StatusPending, Deadline: "2024-07-01"}, false},
		{"past completed", backend.Task{Status: StatusCompleted, Deadline: "2024-01-01"}, false},
		{"past cancelled", backend.Task{Status: StatusCancelled, Deadline: "2024-01-01"}, false},
		{"no deadline", backend.Task{Status: StatusPending}, false},
		{"garbage deadline", backend.Task{Status: StatusPending, Deadline: "soon"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Overdue(tc.task, today))
		})
	}
}

func TestRowsCountOverdue(t *testing.T) {
	rows := Rows([]backend.Task{
		{Title: "a", Status: StatusPending, Deadline: "2024-06-01"},
		{Title: "b", Status: StatusCompleted, Deadline: "2024-06-01"},
		{Title: "c", Status: StatusInProgress, Deadline: "2024-05-01"},
	}, today)
	require.Len(t, rows, 3)
	assert.Equal(t, 2, CountOverdue(rows))
	assert.False(t, rows[1].Overdue)
}

func titles(rows []Row) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Title)
	}
	return out
}

func TestSortRows(t *testing.T) {
	base := func() []Row {
		return Rows([]backend.Task{
			{Title: "beta", Status: StatusCompleted, Priority: PriorityLow, Deadline: "2024-07-01"},
			{Title: "Alpha", Status: StatusInProgress, Priority: PriorityUrgent},
			{Title: "gamma", Status: StatusPending, Priority: PriorityHigh, Deadline: "2024-06-20"},
		}, today)
	}

	rows := base()
	SortRows(rows, "title")
	assert.Equal(t, []string{"Alpha", "beta", "gamma"}, titles(rows))

	rows = base()
	SortRows(rows, "status")
	assert.Equal(t, []string{"gamma", "Alpha", "beta"}, titles(rows))

	rows = base()
	SortRows(rows, "priority")
	assert.Equal(t, []string{"Alpha", "gamma", "beta"}, titles(rows))

	rows = base()
	SortRows(rows, "deadline")
	assert.Equal(t, []string{"gamma", "beta", "Alpha"}, titles(rows))

	rows = base()
	SortRows(rows, "bogus")
	assert.Equal(t, []string{"beta", "Alpha", "gamma"}, titles(rows))
}
