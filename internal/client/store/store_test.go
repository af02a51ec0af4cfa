package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/KarpovAlexandrGo/task-tracker/internal/client/api"
	"github.com/KarpovAlexandrGo/task-tracker/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	mu     sync.Mutex
	tasks  []entity.Task
	nextID int
	err    error
}

func (f *fakeAPI) List(context.Context) ([]entity.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]entity.Task{}, f.tasks...), nil
}

func (f *fakeAPI) Create(_ context.Context, in api.CreateTaskInput) (entity.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return entity.Task{}, f.err
	}
	f.nextID++
	task := entity.Task{ID: string(rune('0' + f.nextID)), Title: in.Title, Priority: in.Priority, Category: in.Category}
	f.tasks = append(f.tasks, task)
	return task, nil
}

func (f *fakeAPI) Update(_ context.Context, id string, in api.UpdateTaskInput) (entity.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return entity.Task{}, f.err
	}
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			if in.Status != nil {
				f.tasks[i].Status = *in.Status
			}
			if in.Title != nil {
				f.tasks[i].Title = *in.Title
			}
			return f.tasks[i], nil
		}
	}
	return entity.Task{}, &api.Error{StatusCode: 404, Message: "Task not found"}
}

func (f *fakeAPI) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			return nil
		}
	}
	return &api.Error{StatusCode: 404, Message: "Task not found"}
}

func TestInitialState(t *testing.T) {
	s := New(&fakeAPI{})
	st := s.State()

	assert.Equal(t, StatusIdle, st.Status)
	assert.Empty(t, st.Tasks)
	assert.Empty(t, st.Error)
}

func TestFetchReplacesTasks(t *testing.T) {
	fake := &fakeAPI{tasks: []entity.Task{{ID: "1", Title: "a"}, {ID: "2", Title: "b"}}}
	s := New(fake)

	var statuses []RequestStatus
	s.Subscribe(func(st State) { statuses = append(statuses, st.Status) })

	require.NoError(t, s.FetchTasks(context.Background()))

	st := s.State()
	assert.Equal(t, StatusSucceeded, st.Status)
	assert.Len(t, st.Tasks, 2)
	assert.Equal(t, []RequestStatus{StatusLoading, StatusSucceeded}, statuses)
}

func TestActionsMergeResults(t *testing.T) {
	fake := &fakeAPI{}
	s := New(fake)
	ctx := context.Background()

	first, err := s.AddTask(ctx, api.CreateTaskInput{Title: "Buy milk"})
	require.NoError(t, err)
	second, err := s.AddTask(ctx, api.CreateTaskInput{Title: "Call mom"})
	require.NoError(t, err)

	tasks := s.State().Tasks
	require.Len(t, tasks, 2)
	assert.Equal(t, first.ID, tasks[0].ID)
	assert.Equal(t, second.ID, tasks[1].ID)

	_, err = s.ToggleTask(ctx, first.ID, true)
	require.NoError(t, err)
	assert.True(t, s.State().Tasks[0].Status)

	title := "Call dad"
	_, err = s.UpdateTask(ctx, second.ID, api.UpdateTaskInput{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Call dad", s.State().Tasks[1].Title)

	require.NoError(t, s.DeleteTask(ctx, first.ID))
	tasks = s.State().Tasks
	require.Len(t, tasks, 1)
	assert.Equal(t, second.ID, tasks[0].ID)
	assert.Equal(t, StatusSucceeded, s.State().Status)
}

func TestRejectedKeepsTasksAndRecordsError(t *testing.T) {
	fake := &fakeAPI{tasks: []entity.Task{{ID: "1", Title: "a"}}}
	s := New(fake)
	ctx := context.Background()
	require.NoError(t, s.FetchTasks(ctx))

	fake.err = errors.New("connection refused")
	err := s.FetchTasks(ctx)
	require.Error(t, err)

	st := s.State()
	assert.Equal(t, StatusFailed, st.Status)
	assert.Equal(t, "connection refused", st.Error)
	assert.Len(t, st.Tasks, 1)

	// следующий запрос сбрасывает ошибку
	fake.err = nil
	require.NoError(t, s.FetchTasks(ctx))
	assert.Empty(t, s.State().Error)
}

func TestDeleteUnknownIDIsRejected(t *testing.T) {
	s := New(&fakeAPI{})
	err := s.DeleteTask(context.Background(), "9")

	var apiErr *api.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, StatusFailed, s.State().Status)
	assert.Contains(t, s.State().Error, "Task not found")
}

func TestUnsubscribe(t *testing.T) {
	s := New(&fakeAPI{})
	calls := 0
	unsubscribe := s.Subscribe(func(State) { calls++ })

	require.NoError(t, s.FetchTasks(context.Background()))
	unsubscribe()
	require.NoError(t, s.FetchTasks(context.Background()))

	assert.Equal(t, 2, calls)
}

func TestStateIsACopy(t *testing.T) {
	s := New(&fakeAPI{tasks: []entity.Task{{ID: "1", Title: "a"}}})
	require.NoError(t, s.FetchTasks(context.Background()))

	st := s.State()
	st.Tasks[0].Title = "changed"
	assert.Equal(t, "a", s.State().Tasks[0].Title)
}

func TestConcurrentActions(t *testing.T) {
	s := New(&fakeAPI{})
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.AddTask(context.Background(), api.CreateTaskInput{Title: "t"})
		}()
	}
	wg.Wait()

	assert.Len(t, s.State().Tasks, 5)
}
