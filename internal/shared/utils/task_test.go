package utils

import (
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	At time.Time `json:"at"`
}

func TestTaskRoundTrip(t *testing.T) {
	at := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

	task, err := NewTask("test:task", payload{At: at})
	require.NoError(t, err)
	assert.Equal(t, "test:task", task.Type())

	var got payload
	require.NoError(t, UnmarshalTask(task, &got))
	assert.True(t, at.Equal(got.At))
}

func TestUnmarshalTask_EmptyPayload(t *testing.T) {
	var got payload
	require.NoError(t, UnmarshalTask(asynq.NewTask("test:task", nil), &got))
	assert.True(t, got.At.IsZero())

	assert.Error(t, UnmarshalTask(asynq.NewTask("test:task", []byte("{")), &got))
}
