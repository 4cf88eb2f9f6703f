// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"tasksync/internal/cache"
	"tasksync/internal/service"
)

const (
	// ListSeparator is the separator line for board sections.
	ListSeparator = "------------"

	// NoTasks is printed when a board has nothing to show.
	NoTasks = "no tasks found"
)

// Board is the ordered content of one render.
type Board struct {
	// Tasks is the filtered view: todo tasks first, then done tasks.
	Tasks     []service.Task
	Filter    cache.Filter
	TodoCount int
	DoneCount int
}

// BoardFrom snapshots the reader's view under filter.
func BoardFrom(r cache.Reader, filter cache.Filter) Board {
	todo, done := r.Counts()
	return Board{
		Tasks:     r.View(filter),
		Filter:    filter,
		TodoCount: todo,
		DoneCount: done,
	}
}

// Empty reports whether the filtered board has no tasks.
func (b Board) Empty() bool {
	return len(b.Tasks) == 0
}

func (b Board) statuses() []service.Status {
	switch b.Filter {
	case cache.FilterTodo:
		return []service.Status{service.StatusTodo}
	case cache.FilterDone:
		return []service.Status{service.StatusDone}
	default:
		return service.Statuses
	}
}

func (b Board) tasks(st service.Status) []service.Task {
	var out []service.Task
	for _, t := range b.Tasks {
		if t.Status == st {
			out = append(out, t)
		}
	}
	return out
}

func (b Board) count(st service.Status) int {
	if st == service.StatusDone {
		return b.DoneCount
	}
	return b.TodoCount
}

// Ref returns the display reference of the task at index (0-based) of a
// partition: t1, t2... for todo and d1, d2... for done.
func Ref(status service.Status, index int) string {
	return fmt.Sprintf("%c%d", status[0], index+1)
}

// FormatBoard writes one section per partition in the filter, each with a
// count header. Nothing is written for an empty board.
func FormatBoard(w io.Writer, b Board) {
	if b.Empty() {
		return
	}
	for _, st := range b.statuses() {
		FormatSectionHeader(w, st, b.count(st))
		for i, t := range b.tasks(st) {
			FormatTask(w, Ref(st, i), t)
		}
	}
}

// FormatSectionHeader formats a partition header, e.g. "Todo (3)".
func FormatSectionHeader(w io.Writer, status service.Status, count int) {
	fmt.Fprintln(w, ListSeparator)
	fmt.Fprintf(w, "%s (%d)\n", cases.Title(language.English).String(string(status)), count)
	fmt.Fprintln(w, ListSeparator)
}

// FormatTask formats a task line.
// Format: "{REF:>5}  {TITLE}\n" (5-wide right-aligned reference, two spaces, title)
func FormatTask(w io.Writer, ref string, task service.Task) {
	fmt.Fprintf(w, "%5s  %s\n", ref, normalizeTitle(task.Title))
}

// FormatTable renders the board as a single table.
func FormatTable(w io.Writer, b Board) {
	if b.Empty() {
		return
	}
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Ref", "Status", "Title"})
	for _, st := range b.statuses() {
		for i, t := range b.tasks(st) {
			tw.AppendRow(table.Row{Ref(st, i), string(st), normalizeTitle(t.Title)})
		}
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	fmt.Fprintln(w, tw.Render())
}

// normalizeTitle normalizes a task title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	// Replace newlines with spaces
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.ReplaceAll(title, "\n", " ")

	// Trim and check for empty
	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}
