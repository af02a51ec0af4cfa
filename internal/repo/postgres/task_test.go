package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/KarpovAlexandrGo/task-tracker/internal/entity"
	"github.com/KarpovAlexandrGo/task-tracker/internal/usecase"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRepository требует PostgreSQL по адресу POSTGRES_TEST_DSN.
func setupTestRepository(t *testing.T) *TaskRepository {
	t.Helper()

	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := Connect(ctx, dsn)
	if err != nil {
		t.Skipf("PostgreSQL not available: %v", err)
	}
	t.Cleanup(pool.Close)

	require.NoError(t, Migrate(ctx, pool))
	_, err = pool.Exec(ctx, `TRUNCATE tasks`)
	require.NoError(t, err)

	return NewTaskRepository(pool)
}

func TestMalformedIDIsNotFound(t *testing.T) {
	log, hook := test.NewNullLogger()
	repo := &TaskRepository{logger: log}
	ctx := context.Background()

	_, err := repo.Get(ctx, "1")
	assert.ErrorIs(t, err, usecase.ErrTaskNotFound)

	_, err = repo.Update(ctx, "1", entity.TaskPatch{}, time.Now())
	assert.ErrorIs(t, err, usecase.ErrTaskNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, "1"), usecase.ErrTaskNotFound)

	entries := hook.AllEntries()
	require.Len(t, entries, 3)
	for i, method := range []string{"Get", "Update", "Delete"} {
		assert.Equal(t, logrus.WarnLevel, entries[i].Level)
		assert.Equal(t, method, entries[i].Data["method"])
		assert.NotEmpty(t, entries[i].Data["task_id"])
	}
}

func TestTaskRepositoryCRUD(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()

	now := entity.Timestamp(time.Now())
	due := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	created, err := repo.Create(ctx, entity.Task{
		Title:     "Write report",
		Priority:  entity.PriorityHigh,
		Category:  entity.CategoryWork,
		DueDate:   &due,
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, now, created.CreatedAt)
	require.NotNil(t, created.DueDate)
	assert.True(t, due.Equal(*created.DueDate))

	done := true
	updated, err := repo.Update(ctx, created.ID, entity.TaskPatch{Status: &done, ClearDueDate: true}, now)
	require.NoError(t, err)
	assert.True(t, updated.Status)
	assert.Nil(t, updated.DueDate)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))

	tasks, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	require.NoError(t, repo.Delete(ctx, created.ID))
	_, err = repo.Get(ctx, created.ID)
	assert.ErrorIs(t, err, usecase.ErrTaskNotFound)
}
