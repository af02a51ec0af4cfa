package memory

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/KarpovAlexandrGo/task-tracker/internal/entity"
	"github.com/KarpovAlexandrGo/task-tracker/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTask(title string) entity.Task {
	now := entity.Timestamp(time.Now())
	return entity.Task{
		Title:     title,
		Priority:  entity.PriorityMedium,
		Category:  entity.CategoryOthers,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestCreateAssignsSequentialIDs(t *testing.T) {
	repo := NewTaskRepository()
	ctx := context.Background()

	first, err := repo.Create(ctx, newTask("first"))
	require.NoError(t, err)
	second, err := repo.Create(ctx, newTask("second"))
	require.NoError(t, err)

	assert.Equal(t, "1", first.ID)
	assert.Equal(t, "2", second.ID)

	tasks, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, tasks, 2)
}

func TestIDsAreNotReusedAfterDelete(t *testing.T) {
	repo := NewTaskRepository()
	ctx := context.Background()

	first, err := repo.Create(ctx, newTask("first"))
	require.NoError(t, err)
	require.NoError(t, repo.Delete(ctx, first.ID))

	second, err := repo.Create(ctx, newTask("second"))
	require.NoError(t, err)
	assert.Equal(t, "2", second.ID)
}

func TestUpdateMergesAndRefreshesUpdatedAt(t *testing.T) {
	repo := NewTaskRepository()
	ctx := context.Background()

	created, err := repo.Create(ctx, newTask("task"))
	require.NoError(t, err)

	done := true
	updated, err := repo.Update(ctx, created.ID, entity.TaskPatch{Status: &done}, created.UpdatedAt)
	require.NoError(t, err)

	assert.True(t, updated.Status)
	assert.Equal(t, "task", updated.Title)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))

	stored, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, stored)
}

func TestUnknownIDLeavesStorageUnchanged(t *testing.T) {
	repo := NewTaskRepository()
	ctx := context.Background()

	_, err := repo.Create(ctx, newTask("keep me"))
	require.NoError(t, err)
	before, err := repo.List(ctx)
	require.NoError(t, err)

	done := true
	_, err = repo.Update(ctx, "42", entity.TaskPatch{Status: &done}, time.Now())
	assert.ErrorIs(t, err, usecase.ErrTaskNotFound)

	err = repo.Delete(ctx, "42")
	assert.ErrorIs(t, err, usecase.ErrTaskNotFound)

	_, err = repo.Get(ctx, "42")
	assert.ErrorIs(t, err, usecase.ErrTaskNotFound)

	after, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestListReturnsCopy(t *testing.T) {
	repo := NewTaskRepository()
	ctx := context.Background()

	_, err := repo.Create(ctx, newTask("original"))
	require.NoError(t, err)

	tasks, err := repo.List(ctx)
	require.NoError(t, err)
	tasks[0].Title = "mutated"

	stored, err := repo.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "original", stored.Title)
}

func TestConcurrentCreatesGetUniqueIDs(t *testing.T) {
	repo := NewTaskRepository()
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			_, err := repo.Create(ctx, newTask("task "+strconv.Itoa(i)))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	tasks, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, n)

	seen := make(map[string]bool, n)
	for _, task := range tasks {
		assert.False(t, seen[task.ID], "duplicate id %s", task.ID)
		seen[task.ID] = true
	}
}

func TestCanceledContext(t *testing.T) {
	repo := NewTaskRepository()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.Create(ctx, newTask("never"))
	assert.ErrorIs(t, err, context.Canceled)
}
