package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"notesapp/internal/types"
)

func TestTaskRepository_ListDuePending(t *testing.T) {
	db := new(mockDBTX)
	repo := NewTaskRepository(db)
	ctx := context.Background()

	due := repoNow.Add(-2 * time.Hour)
	remID := "rem_9"

	rows := newMockRows(
		func(dest ...any) error {
			*dest[0].(*string) = "task_1"
			*dest[1].(*string) = "usr_1"
			*dest[2].(*string) = "File taxes"
			*dest[3].(*string) = "pending"
			*dest[4].(**time.Time) = &due
			*dest[5].(**string) = nil
			return nil
		},
		func(dest ...any) error {
			*dest[0].(*string) = "task_2"
			*dest[1].(*string) = "usr_1"
			*dest[2].(*string) = "Renew passport"
			*dest[3].(*string) = "pending"
			*dest[4].(**time.Time) = &due
			*dest[5].(**string) = &remID
			return nil
		},
	)
	db.On("Query", ctx, mock.AnythingOfType("string"), []any{"pending", repoNow}).Return(rows, nil)

	tasks, err := repo.ListDuePending(ctx, repoNow)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "File taxes", tasks[0].Title)
	assert.Equal(t, types.TaskPending, tasks[0].Status)
	assert.False(t, tasks[0].HasReminder())
	assert.True(t, tasks[1].HasReminder())
	db.AssertExpectations(t)
}

func TestTaskRepository_ListDue_QueryError(t *testing.T) {
	db := new(mockDBTX)
	repo := NewTaskRepository(db)

	db.On("Query", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(nil, errors.New("relation \"todo_items\" does not exist"))

	_, err := repo.ListDue(context.Background(), types.TaskInProgress, repoNow)
	assert.True(t, types.IsErrorCode(err, types.ErrCodeInternalDB))
}
