package view

import (
	"fmt"
	"sort"
	"strings"

	"github.com/KarpovAlexandrGo/task-tracker/internal/entity"
)

// All: значение фильтра, пропускающее любой приоритет или категорию.
const All = "All"

type SortKey string

const (
	SortByDueDate   SortKey = "dueDate"
	SortByPriority  SortKey = "priority"
	SortByCreatedAt SortKey = "createdAt"
)

type Filter struct {
	Search   string
	Priority string
	Category string
}

func DefaultFilter() Filter {
	return Filter{Priority: All, Category: All}
}

func (f Filter) matches(t entity.Task) bool {
	if q := strings.ToLower(f.Search); q != "" {
		if !strings.Contains(strings.ToLower(t.Title), q) && !strings.Contains(strings.ToLower(t.Description), q) {
			return false
		}
	}
	if f.Priority != "" && f.Priority != All && string(t.Priority) != f.Priority {
		return false
	}
	if f.Category != "" && f.Category != All && string(t.Category) != f.Category {
		return false
	}
	return true
}

// Visible возвращает отфильтрованную и отсортированную копию tasks.
// Сортировка стабильная, входной срез не меняется.
func Visible(tasks []entity.Task, filter Filter, key SortKey) []entity.Task {
	out := make([]entity.Task, 0, len(tasks))
	for _, t := range tasks {
		if filter.matches(t) {
			out = append(out, t)
		}
	}

	switch key {
	case SortByDueDate:
		sort.SliceStable(out, func(i, j int) bool {
			a, b := out[i].DueDate, out[j].DueDate
			switch {
			case a == nil:
				return false
			case b == nil:
				return true
			default:
				return a.Before(*b)
			}
		})
	case SortByPriority:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Priority.Rank() < out[j].Priority.Rank()
		})
	default:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		})
	}
	return out
}

// ParseSortKey принимает пустую строку как сортировку по дате создания.
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(strings.TrimSpace(s)); k {
	case "":
		return SortByCreatedAt, nil
	case SortByDueDate, SortByPriority, SortByCreatedAt:
		return k, nil
	default:
		return "", fmt.Errorf("unknown sort key %q: expected dueDate, priority or createdAt", s)
	}
}

// ParsePriorityFilter нечувствителен к регистру: "high" -> "High".
func ParsePriorityFilter(s string) (string, error) {
	for _, p := range entity.Priorities {
		if strings.EqualFold(s, string(p)) {
			return string(p), nil
		}
	}
	if s == "" || strings.EqualFold(s, All) {
		return All, nil
	}
	return "", fmt.Errorf("unknown priority %q", s)
}

func ParseCategoryFilter(s string) (string, error) {
	for _, c := range entity.Categories {
		if strings.EqualFold(s, string(c)) {
			return string(c), nil
		}
	}
	if s == "" || strings.EqualFold(s, All) {
		return All, nil
	}
	return "", fmt.Errorf("unknown category %q", s)
}
