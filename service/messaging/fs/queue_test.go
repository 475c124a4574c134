package fs

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
)

type testDecision struct {
	ApprovalID string `json:"approvalId"`
	Approved   bool   `json:"approved"`
	Reason     string `json:"reason,omitempty"`
}

func newTestQueue(t *testing.T) *Queue[testDecision] {
	t.Helper()
	tempDir, err := os.MkdirTemp("", "opsgate-queue-test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(tempDir) })

	queue, err := NewQueue[testDecision](afs.New(), Config{
		BasePath:   tempDir,
		MaxRetries: 1,
		RetryDelay: 10 * time.Millisecond,
	})
	require.NoError(t, err)
	return queue
}

func TestQueue_PublishConsumeAck(t *testing.T) {
	ctx := context.Background()
	queue := newTestQueue(t)

	payload := testDecision{ApprovalID: "a1", Approved: true}
	require.NoError(t, queue.Publish(ctx, &payload))

	message, err := queue.Consume(ctx)
	require.NoError(t, err)
	require.NotNil(t, message)
	assert.Equal(t, payload, *message.T())

	require.NoError(t, message.Ack())
	assert.Error(t, message.Ack())

	// Queue drained.
	next, err := queue.Consume(ctx)
	require.NoError(t, err)
	assert.Nil(t, next)
}

func TestQueue_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	tempDir, err := os.MkdirTemp("", "opsgate-queue-test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(tempDir) })

	config := Config{BasePath: tempDir, MaxRetries: 1, RetryDelay: 10 * time.Millisecond}
	fileSystem := afs.New()

	queue, err := NewQueue[testDecision](fileSystem, config)
	require.NoError(t, err)
	require.NoError(t, queue.Publish(ctx, &testDecision{ApprovalID: "a2", Reason: "late decision"}))

	// A decision published before a restart is still there for the next
	// process.
	reopened, err := NewQueue[testDecision](fileSystem, config)
	require.NoError(t, err)
	message, err := reopened.Consume(ctx)
	require.NoError(t, err)
	require.NotNil(t, message)
	assert.Equal(t, "a2", message.T().ApprovalID)
	require.NoError(t, message.Ack())
}

func TestQueue_NackRetriesThenDeadLetters(t *testing.T) {
	ctx := context.Background()
	queue := newTestQueue(t)

	require.NoError(t, queue.Publish(ctx, &testDecision{ApprovalID: "a3"}))

	// First delivery fails.
	message, err := queue.Consume(ctx)
	require.NoError(t, err)
	require.NotNil(t, message)
	require.NoError(t, message.Nack(errors.New("handler failed")))

	// The retry is redelivered from the failed directory.
	message, err = queue.Consume(ctx)
	require.NoError(t, err)
	require.NotNil(t, message)
	require.NoError(t, message.Nack(errors.New("handler failed again")))

	// Retry budget exhausted: the message is parked in the DLQ and no
	// longer delivered.
	message, err = queue.Consume(ctx)
	require.NoError(t, err)
	assert.Nil(t, message)
}
