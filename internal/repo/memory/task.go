package memory

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/KarpovAlexandrGo/task-tracker/internal/entity"
	"github.com/KarpovAlexandrGo/task-tracker/internal/usecase"
)

// TaskRepository хранит задачи в памяти процесса. Используется как
// резервное хранилище, если документная БД недоступна при старте.
//
// Запись сериализована мьютексом; изменения сначала собираются в копии
// среза и коммитятся только целиком.
type TaskRepository struct {
	mu     sync.RWMutex
	tasks  []entity.Task
	nextID int
}

func NewTaskRepository() *TaskRepository {
	return &TaskRepository{nextID: 1}
}

func (r *TaskRepository) List(ctx context.Context) ([]entity.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]entity.Task, len(r.tasks))
	copy(out, r.tasks)
	return out, nil
}

func (r *TaskRepository) Get(ctx context.Context, id string) (entity.Task, error) {
	if err := ctx.Err(); err != nil {
		return entity.Task{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	idx := r.indexOf(id)
	if idx == -1 {
		return entity.Task{}, usecase.ErrTaskNotFound
	}
	return r.tasks[idx], nil
}

func (r *TaskRepository) Create(ctx context.Context, task entity.Task) (entity.Task, error) {
	if err := ctx.Err(); err != nil {
		return entity.Task{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	task.ID = strconv.Itoa(r.nextID)
	r.nextID++
	r.tasks = append(r.tasks, task)
	return task, nil
}

func (r *TaskRepository) Update(ctx context.Context, id string, patch entity.TaskPatch, now time.Time) (entity.Task, error) {
	if err := ctx.Err(); err != nil {
		return entity.Task{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexOf(id)
	if idx == -1 {
		return entity.Task{}, usecase.ErrTaskNotFound
	}

	updated := patch.Apply(r.tasks[idx])
	updated.UpdatedAt = entity.NextUpdatedAt(r.tasks[idx].UpdatedAt, now)

	candidate := make([]entity.Task, len(r.tasks))
	copy(candidate, r.tasks)
	candidate[idx] = updated

	r.tasks = candidate
	return updated, nil
}

func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexOf(id)
	if idx == -1 {
		return usecase.ErrTaskNotFound
	}

	candidate := make([]entity.Task, 0, len(r.tasks)-1)
	candidate = append(candidate, r.tasks[:idx]...)
	candidate = append(candidate, r.tasks[idx+1:]...)

	r.tasks = candidate
	return nil
}

// indexOf вызывается под блокировкой.
func (r *TaskRepository) indexOf(id string) int {
	for i := range r.tasks {
		if r.tasks[i].ID == id {
			return i
		}
	}
	return -1
}
