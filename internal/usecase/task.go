package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/KarpovAlexandrGo/task-tracker/internal/entity"
	"github.com/KarpovAlexandrGo/task-tracker/pkg/logger"
	"github.com/sirupsen/logrus"
)

var (
	ErrTaskNotFound = errors.New("task not found")
	ErrValidation   = entity.ErrValidation
	ErrCacheMiss    = errors.New("cache miss")
)

type TaskUseCase interface {
	List(ctx context.Context) ([]entity.Task, error)
	Get(ctx context.Context, id string) (entity.Task, error)
	Create(ctx context.Context, task entity.Task) (entity.Task, error)
	Update(ctx context.Context, id string, patch entity.TaskPatch) (entity.Task, error)
	Delete(ctx context.Context, id string) error
}

// TaskRepository: контракт хранилища задач. Все реализации
// (документное, реляционное, в памяти) обязаны вести себя одинаково.
type TaskRepository interface {
	List(ctx context.Context) ([]entity.Task, error)
	Get(ctx context.Context, id string) (entity.Task, error)
	// Create присваивает задаче новый уникальный ID и сохраняет её.
	Create(ctx context.Context, task entity.Task) (entity.Task, error)
	// Update накладывает patch атомарно и выставляет updatedAt строго больше предыдущего.
	Update(ctx context.Context, id string, patch entity.TaskPatch, now time.Time) (entity.Task, error)
	Delete(ctx context.Context, id string) error
}

// CacheRepository хранит список задач по поколениям. Invalidate начинает
// новое поколение, поэтому список, записанный под старым, не читается.
type CacheRepository interface {
	Generation(ctx context.Context) (int64, error)
	SetTasks(ctx context.Context, gen int64, tasks []entity.Task, ttl time.Duration) error
	// GetTasks возвращает ErrCacheMiss, если для поколения gen списка нет.
	GetTasks(ctx context.Context, gen int64) ([]entity.Task, error)
	Invalidate(ctx context.Context) error
}

// NopCache используется, когда Redis не настроен или недоступен.
type NopCache struct{}

func (NopCache) Generation(context.Context) (int64, error)                           { return 0, nil }
func (NopCache) SetTasks(context.Context, int64, []entity.Task, time.Duration) error { return nil }
func (NopCache) GetTasks(context.Context, int64) ([]entity.Task, error)              { return nil, ErrCacheMiss }
func (NopCache) Invalidate(context.Context) error                                    { return nil }

type TaskUseCaseImpl struct {
	taskRepo  TaskRepository
	cacheRepo CacheRepository
	cacheTTL  time.Duration
	now       func() time.Time
}

func NewTaskUseCase(taskRepo TaskRepository, cacheRepo CacheRepository, cacheTTL time.Duration) *TaskUseCaseImpl {
	if cacheRepo == nil {
		cacheRepo = NopCache{}
	}
	return &TaskUseCaseImpl{
		taskRepo:  taskRepo,
		cacheRepo: cacheRepo,
		cacheTTL:  cacheTTL,
		now:       time.Now,
	}
}

func (uc *TaskUseCaseImpl) Create(ctx context.Context, task entity.Task) (entity.Task, error) {
	task.Normalize()
	if err := task.Validate(); err != nil {
		logger.Log.WithError(err).Warn("Task validation failed")
		return entity.Task{}, err
	}

	task.ID = ""
	task.CreatedAt = entity.Timestamp(uc.now())
	task.UpdatedAt = task.CreatedAt

	createdTask, err := uc.taskRepo.Create(ctx, task)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to create task")
		return entity.Task{}, err
	}

	uc.invalidate(ctx)

	logger.Log.WithField("task_id", createdTask.ID).Info("Task created successfully")
	return createdTask, nil
}

func (uc *TaskUseCaseImpl) Get(ctx context.Context, id string) (entity.Task, error) {
	task, err := uc.taskRepo.Get(ctx, id)
	if err != nil {
		return entity.Task{}, err
	}
	return task, nil
}

// List читает поколение кэша до обращения к хранилищу и кладёт результат
// под это поколение: запись, завершившаяся между чтением и заполнением кэша,
// уже сменила поколение.
func (uc *TaskUseCaseImpl) List(ctx context.Context) ([]entity.Task, error) {
	gen, genErr := uc.cacheRepo.Generation(ctx)
	if genErr != nil {
		logger.Log.WithError(genErr).Warn("Failed to read cache generation")
	} else {
		tasks, err := uc.cacheRepo.GetTasks(ctx, gen)
		if err == nil {
			logger.Log.Debug("Tasks retrieved from cache")
			return tasks, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			logger.Log.WithError(err).Warn("Failed to read tasks from cache")
		}
	}

	tasks, err := uc.taskRepo.List(ctx)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to list tasks from repository")
		return nil, err
	}
	if tasks == nil {
		tasks = []entity.Task{}
	}

	if genErr == nil {
		if err := uc.cacheRepo.SetTasks(ctx, gen, tasks, uc.cacheTTL); err != nil {
			logger.Log.WithError(err).Warn("Failed to set tasks in cache")
		}
	}

	logger.Log.WithField("count", len(tasks)).Debug("Tasks listed successfully")
	return tasks, nil
}

func (uc *TaskUseCaseImpl) Update(ctx context.Context, id string, patch entity.TaskPatch) (entity.Task, error) {
	patch.Normalize()
	if err := patch.Validate(); err != nil {
		logger.Log.WithError(err).Warn("Validation failed during task update")
		return entity.Task{}, err
	}

	updatedTask, err := uc.taskRepo.Update(ctx, id, patch, uc.now())
	if err != nil {
		if !errors.Is(err, ErrTaskNotFound) {
			logger.Log.WithError(err).WithField("task_id", id).Error("Failed to update task in repository")
		}
		return entity.Task{}, err
	}

	uc.invalidate(ctx)

	logger.Log.WithField("task_id", updatedTask.ID).Info("Task updated successfully")
	return updatedTask, nil
}

func (uc *TaskUseCaseImpl) Delete(ctx context.Context, id string) error {
	if err := uc.taskRepo.Delete(ctx, id); err != nil {
		if !errors.Is(err, ErrTaskNotFound) {
			logger.Log.WithError(err).WithField("task_id", id).Error("Failed to delete task from repository")
		}
		return err
	}

	uc.invalidate(ctx)

	logger.Log.WithField("task_id", id).Info("Task deleted successfully")
	return nil
}

func (uc *TaskUseCaseImpl) invalidate(ctx context.Context) {
	if err := uc.cacheRepo.Invalidate(ctx); err != nil {
		logger.Log.WithFields(logrus.Fields{"cache": "tasks"}).WithError(err).Warn("Failed to invalidate cache")
	}
}
