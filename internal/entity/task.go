package entity

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrValidation помечает ошибки проверки входных данных задачи.
var ErrValidation = errors.New("validation failed")

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// Priorities перечисляет допустимые приоритеты в порядке убывания важности.
var Priorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Rank возвращает порядок сортировки: High < Medium < Low.
// Неизвестное значение сортируется как Low.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

type Category string

const (
	CategoryPersonal Category = "Personal"
	CategoryWork     Category = "Work"
	CategoryShopping Category = "Shopping"
	CategoryOthers   Category = "Others"
)

var Categories = []Category{CategoryPersonal, CategoryWork, CategoryShopping, CategoryOthers}

func (c Category) Valid() bool {
	switch c {
	case CategoryPersonal, CategoryWork, CategoryShopping, CategoryOthers:
		return true
	}
	return false
}

// Task: единственная сущность системы.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      bool       `json:"status"`
	Priority    Priority   `json:"priority"`
	Category    Category   `json:"category"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Normalize обрезает пробелы и проставляет значения по умолчанию.
func (t *Task) Normalize() {
	t.Title = strings.TrimSpace(t.Title)
	t.Description = strings.TrimSpace(t.Description)
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if t.Category == "" {
		t.Category = CategoryOthers
	}
}

func (t *Task) Validate() error {
	if t.Title == "" {
		return fmt.Errorf("%w: title cannot be empty", ErrValidation)
	}
	if !t.Priority.Valid() {
		return fmt.Errorf("%w: priority must be one of: Low, Medium, High", ErrValidation)
	}
	if !t.Category.Valid() {
		return fmt.Errorf("%w: category must be one of: Personal, Work, Shopping, Others", ErrValidation)
	}
	return nil
}

// TaskPatch описывает частичное обновление: nil означает "поле не менять".
type TaskPatch struct {
	Title        *string
	Description  *string
	Status       *bool
	Priority     *Priority
	Category     *Category
	DueDate      *time.Time
	ClearDueDate bool
}

func (p *TaskPatch) Normalize() {
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		p.Title = &title
	}
	if p.Description != nil {
		description := strings.TrimSpace(*p.Description)
		p.Description = &description
	}
	if p.ClearDueDate {
		p.DueDate = nil
	}
}

func (p TaskPatch) Validate() error {
	if p.Title != nil && *p.Title == "" {
		return fmt.Errorf("%w: title cannot be empty", ErrValidation)
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return fmt.Errorf("%w: priority must be one of: Low, Medium, High", ErrValidation)
	}
	if p.Category != nil && !p.Category.Valid() {
		return fmt.Errorf("%w: category must be one of: Personal, Work, Shopping, Others", ErrValidation)
	}
	return nil
}

// Apply возвращает копию задачи с наложенными изменениями.
// UpdatedAt не трогает: его выставляет хранилище.
func (p TaskPatch) Apply(t Task) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	switch {
	case p.ClearDueDate:
		t.DueDate = nil
	case p.DueDate != nil:
		due := *p.DueDate
		t.DueDate = &due
	}
	return t
}

// Timestamp приводит время к точности документного хранилища (UTC, миллисекунды).
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// NextUpdatedAt гарантирует строгий рост updatedAt даже если часы не сдвинулись.
func NextUpdatedAt(prev, now time.Time) time.Time {
	now = Timestamp(now)
	if !now.After(prev) {
		return prev.Add(time.Millisecond)
	}
	return now
}

// ParseDate принимает дату в формате YYYY-MM-DD (как отдаёт <input type="date">) или RFC 3339.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if d, err := time.Parse(time.DateOnly, s); err == nil {
		return d, nil
	}
	d, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: dueDate must be YYYY-MM-DD or RFC 3339", ErrValidation)
	}
	return d.UTC(), nil
}
