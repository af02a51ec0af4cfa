package store

import (
	"context"
	"sync"

	"github.com/KarpovAlexandrGo/task-tracker/internal/client/api"
	"github.com/KarpovAlexandrGo/task-tracker/internal/entity"
	"github.com/KarpovAlexandrGo/task-tracker/pkg/logger"
	"github.com/sirupsen/logrus"
)

type RequestStatus string

const (
	StatusIdle      RequestStatus = "idle"
	StatusLoading   RequestStatus = "loading"
	StatusSucceeded RequestStatus = "succeeded"
	StatusFailed    RequestStatus = "failed"
)

// State: снимок клиентского состояния. Tasks хранится в порядке ответа сервера
// с добавлениями в конец.
type State struct {
	Tasks  []entity.Task
	Status RequestStatus
	Error  string
}

// TaskAPI: транспорт, через который store обращается к серверу.
type TaskAPI interface {
	List(ctx context.Context) ([]entity.Task, error)
	Create(ctx context.Context, in api.CreateTaskInput) (entity.Task, error)
	Update(ctx context.Context, id string, in api.UpdateTaskInput) (entity.Task, error)
	Delete(ctx context.Context, id string) error
}

type Listener func(State)

// Store держит список задач и статус последнего запроса. Каждое действие
// проходит стадии pending, fulfilled и rejected; оптимистичных изменений нет.
type Store struct {
	api TaskAPI

	mu        sync.Mutex
	state     State
	listeners map[int]Listener
	nextID    int
}

func New(taskAPI TaskAPI) *Store {
	return &Store{
		api:       taskAPI,
		state:     State{Tasks: []entity.Task{}, Status: StatusIdle},
		listeners: make(map[int]Listener),
	}
}

// State возвращает копию текущего состояния.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Subscribe регистрирует слушателя; возвращаемая функция снимает подписку.
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store) FetchTasks(ctx context.Context) error {
	s.pending()
	tasks, err := s.api.List(ctx)
	if err != nil {
		return s.rejected("fetchTasks", err)
	}
	s.fulfilled(func(st *State) {
		st.Tasks = append([]entity.Task{}, tasks...)
	})
	return nil
}

func (s *Store) AddTask(ctx context.Context, in api.CreateTaskInput) (entity.Task, error) {
	s.pending()
	task, err := s.api.Create(ctx, in)
	if err != nil {
		return entity.Task{}, s.rejected("addTask", err)
	}
	s.fulfilled(func(st *State) {
		st.Tasks = append(st.Tasks, task)
	})
	return task, nil
}

// ToggleTask выставляет задаче статус выполнения status.
func (s *Store) ToggleTask(ctx context.Context, id string, status bool) (entity.Task, error) {
	return s.update(ctx, "toggleTask", id, api.UpdateTaskInput{Status: &status})
}

func (s *Store) UpdateTask(ctx context.Context, id string, in api.UpdateTaskInput) (entity.Task, error) {
	return s.update(ctx, "updateTask", id, in)
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	s.pending()
	if err := s.api.Delete(ctx, id); err != nil {
		return s.rejected("deleteTask", err)
	}
	s.fulfilled(func(st *State) {
		kept := st.Tasks[:0:0]
		for _, t := range st.Tasks {
			if t.ID != id {
				kept = append(kept, t)
			}
		}
		st.Tasks = kept
	})
	return nil
}

func (s *Store) update(ctx context.Context, action, id string, in api.UpdateTaskInput) (entity.Task, error) {
	s.pending()
	task, err := s.api.Update(ctx, id, in)
	if err != nil {
		return entity.Task{}, s.rejected(action, err)
	}
	s.fulfilled(func(st *State) {
		for i := range st.Tasks {
			if st.Tasks[i].ID == task.ID {
				st.Tasks[i] = task
				return
			}
		}
	})
	return task, nil
}

func (s *Store) pending() {
	s.transition(func(st *State) {
		st.Status = StatusLoading
		st.Error = ""
	})
}

func (s *Store) fulfilled(merge func(*State)) {
	s.transition(func(st *State) {
		merge(st)
		st.Status = StatusSucceeded
	})
}

func (s *Store) rejected(action string, err error) error {
	logger.Log.WithFields(logrus.Fields{"action": action}).WithError(err).Warn("Request failed")
	s.transition(func(st *State) {
		st.Status = StatusFailed
		st.Error = err.Error()
	})
	return err
}

// transition меняет состояние под мьютексом и уведомляет слушателей уже без него.
func (s *Store) transition(fn func(*State)) {
	s.mu.Lock()
	fn(&s.state)
	snap := s.snapshot()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(snap)
	}
}

func (s *Store) snapshot() State {
	st := s.state
	st.Tasks = append([]entity.Task{}, s.state.Tasks...)
	return st
}
