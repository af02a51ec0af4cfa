package view

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/KarpovAlexandrGo/task-tracker/internal/client/api"
	"github.com/KarpovAlexandrGo/task-tracker/internal/entity"
)

var ErrEmptyTitle = errors.New("title is required")

// Form: форма создания задачи.
type Form struct {
	Title       string
	Description string
	Priority    entity.Priority
	Category    entity.Category
	DueDate     string
}

func NewForm() Form {
	return Form{Priority: entity.PriorityMedium, Category: entity.CategoryOthers}
}

// Input проверяет форму и собирает тело запроса на создание.
func (f Form) Input() (api.CreateTaskInput, error) {
	in := api.CreateTaskInput{
		Title:       strings.TrimSpace(f.Title),
		Description: strings.TrimSpace(f.Description),
		Priority:    f.Priority,
		Category:    f.Category,
	}
	if in.Title == "" {
		return api.CreateTaskInput{}, ErrEmptyTitle
	}
	if in.Priority == "" {
		in.Priority = entity.PriorityMedium
	}
	if in.Category == "" {
		in.Category = entity.CategoryOthers
	}
	if !in.Priority.Valid() {
		return api.CreateTaskInput{}, fmt.Errorf("unknown priority %q", in.Priority)
	}
	if !in.Category.Valid() {
		return api.CreateTaskInput{}, fmt.Errorf("unknown category %q", in.Category)
	}

	if due := strings.TrimSpace(f.DueDate); due != "" {
		d, err := entity.ParseDate(due)
		if err != nil {
			return api.CreateTaskInput{}, err
		}
		in.DueDate = d.Format(time.DateOnly)
	}
	return in, nil
}

// Reset возвращает форму к значениям по умолчанию после успешной отправки.
func (f *Form) Reset() {
	*f = NewForm()
}
