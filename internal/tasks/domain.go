package tasks

import (
	"sort"
	"strings"
	"time"

	"github.com/saas-dashboard/dashboard/internal/backend"
)

// Task statuses.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// Task priorities, lowest first.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// DeadlineLayout is the wire format of a task deadline.
const DeadlineLayout = "2006-01-02"

// Statuses lists the statuses in workflow order.
func Statuses() []string {
	return []string{StatusPending, StatusInProgress, StatusCompleted, StatusCancelled}
}

// Priorities lists the priorities from lowest to highest.
func Priorities() []string {
	return []string{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}
}

type taskForm struct {
	Title       string `validate:"required,max=200"`
	Description string `validate:"max=2000"`
	Status      string `validate:"required,oneof=pending in_progress completed cancelled"`
	Priority    string `validate:"required,oneof=low medium high urgent"`
	Deadline    string `validate:"omitempty,datetime=2006-01-02"`
	Assignee    string `validate:"max=100"`
	Submission  string
}

type statusForm struct {
	Status string `validate:"required,oneof=pending in_progress completed cancelled"`
}

// Row is a task as listed, with derived flags.
type Row struct {
	backend.Task
	Overdue bool
}

// Deadline parses the task deadline. Timestamps are truncated to their date.
func Deadline(t backend.Task) (time.Time, bool) {
	raw := strings.TrimSpace(t.Deadline)
	if len(raw) >= len(DeadlineLayout) {
		raw = raw[:len(DeadlineLayout)]
	}
	d, err := time.Parse(DeadlineLayout, raw)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// Overdue reports whether an open task's deadline lies before the day of now.
func Overdue(t backend.Task, now time.Time) bool {
	if t.Status == StatusCompleted || t.Status == StatusCancelled {
		return false
	}
	d, ok := Deadline(t)
	if !ok {
		return false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return d.Before(today)
}

// Rows derives the listing rows for tasks.
func Rows(tasks []backend.Task, now time.Time) []Row {
	rows := make([]Row, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, Row{Task: t, Overdue: Overdue(t, now)})
	}
	return rows
}

// CountOverdue counts the overdue rows.
func CountOverdue(rows []Row) int {
	n := 0
	for _, r := range rows {
		if r.Overdue {
			n++
		}
	}
	return n
}

// SortRows orders rows by field: title, status, priority (highest first) or
// deadline (earliest first, undated last). Unknown fields keep backend order.
func SortRows(rows []Row, field string) {
	var less func(a, b Row) bool
	switch field {
	case "title":
		less = func(a, b Row) bool { return strings.ToLower(a.Title) < strings.ToLower(b.Title) }
	case "status":
		less = func(a, b Row) bool { return rank(Statuses(), a.Status) < rank(Statuses(), b.Status) }
	case "priority":
		less = func(a, b Row) bool { return rank(Priorities(), a.Priority) > rank(Priorities(), b.Priority) }
	case "deadline":
		less = func(a, b Row) bool {
			da, okA := Deadline(a.Task)
			db, okB := Deadline(b.Task)
			if okA != okB {
				return okA
			}
			return da.Before(db)
		}
	default:
		return
	}
	sort.SliceStable(rows, func(i, j int) bool { return less(rows[i], rows[j]) })
}

func rank(order []string, v string) int {
	for i, o := range order {
		if o == v {
			return i
		}
	}
	return -1
}
