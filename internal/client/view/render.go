package view

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/KarpovAlexandrGo/task-tracker/internal/client/store"
	"github.com/KarpovAlexandrGo/task-tracker/internal/entity"
)

const (
	EmptyMessage   = "No tasks found. Try adjusting your filters or add a new task!"
	LoadingMessage = "Loading tasks..."
)

// Render выводит таблицу задач. Срок раньше now помечается OVERDUE.
func Render(w io.Writer, tasks []entity.Task, now time.Time) error {
	if _, err := fmt.Fprintf(w, "Your Tasks (%d)\n", len(tasks)); err != nil {
		return err
	}
	if len(tasks) == 0 {
		_, err := fmt.Fprintln(w, EmptyMessage)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDONE\tTITLE\tPRIORITY\tCATEGORY\tDUE\tDESCRIPTION")
	for _, t := range tasks {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			t.ID, doneMarker(t.Status), t.Title, t.Priority, t.Category, dueColumn(t.DueDate, now), t.Description)
	}
	return tw.Flush()
}

// RenderState выводит состояние store: загрузку, ошибку или видимые задачи.
func RenderState(w io.Writer, st store.State, filter Filter, key SortKey, now time.Time) error {
	switch {
	case st.Status == store.StatusLoading:
		_, err := fmt.Fprintln(w, LoadingMessage)
		return err
	case st.Error != "":
		_, err := fmt.Fprintf(w, "Error: %s\n", st.Error)
		return err
	default:
		return Render(w, Visible(st.Tasks, filter, key), now)
	}
}

func doneMarker(done bool) string {
	if done {
		return "[x]"
	}
	return "[ ]"
}

func dueColumn(due *time.Time, now time.Time) string {
	if due == nil {
		return "-"
	}
	s := due.UTC().Format(time.DateOnly)
	if due.Before(now) {
		s += " OVERDUE"
	}
	return s
}
