package notify

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rnative/rnative-client/sdk/common"
	"github.com/rnative/rnative-client/sdk/models"
)

func TestNewTaskEvent(t *testing.T) {
	observed := time.Date(2024, 5, 1, 10, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	status := &models.TaskStatus{
		TaskID:         "t1",
		Status:         models.StatusFailed,
		Message:        "Analysis failed",
		RemovalReasons: map[string][]string{"b.pdb": {"Clashscore is poor"}},
	}

	event := NewTaskEvent(status, []string{"a.pdb", "b.pdb"}, observed)
	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, common.EventSourceName, event.Source)
	assert.Equal(t, time.UTC, event.ObservedAt.Location())

	body, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, "t1", decoded["taskId"])
	assert.Equal(t, "FAILED", decoded["status"])
	assert.Equal(t, "Analysis failed", decoded["message"])
	assert.Equal(t, "2024-05-01T08:00:00Z", decoded["observedAt"])

	other := NewTaskEvent(status, nil, observed)
	assert.NotEqual(t, event.EventID, other.EventID)
}

func TestNewPublisher(t *testing.T) {
	assert.IsType(t, NopPublisher{}, NewPublisher("", ""))

	broker, ok := NewPublisher("amqp://localhost:5672", "").(*TaskBroker)
	require.True(t, ok)
	assert.Equal(t, common.DefaultBrokerQueue, broker.QueueName)
}

func TestPublishEventUnreachableBroker(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	broker := NewTaskBroker("amqp://guest:guest@"+addr+"/", "q")
	defer broker.Close()

	err = broker.PublishEvent(context.Background(), NewTaskEvent(&models.TaskStatus{TaskID: "t1", Status: models.StatusCompleted}, nil, time.Now()))
	assert.ErrorContains(t, err, "unable to connect to task broker")
}

func TestPublishEventCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	broker := NewTaskBroker("amqp://localhost:5672", "q")
	err := broker.PublishEvent(ctx, TaskEvent{TaskID: "t1"})
	assert.ErrorIs(t, err, context.Canceled)
}
