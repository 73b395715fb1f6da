package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"

	"github.com/rnative/rnative-client/sdk/common"
	"github.com/rnative/rnative-client/sdk/models"
)

// TaskEvent is published when a waited task reaches a terminal state
type TaskEvent struct {
	EventID        string              `json:"eventId"`
	Source         string              `json:"source"`
	TaskID         string              `json:"taskId"`
	Status         models.Status       `json:"status"`
	Message        string              `json:"message,omitempty"`
	FileNames      []string            `json:"fileNames,omitempty"`
	RemovalReasons map[string][]string `json:"removalReasons,omitempty"`
	ObservedAt     time.Time           `json:"observedAt"`
}

// NewTaskEvent builds the event of a terminal status.
func NewTaskEvent(status *models.TaskStatus, fileNames []string, observedAt time.Time) TaskEvent {
	return TaskEvent{
		EventID:        uuid.NewString(),
		Source:         common.EventSourceName,
		TaskID:         status.TaskID,
		Status:         status.Status,
		Message:        status.Message,
		FileNames:      fileNames,
		RemovalReasons: status.RemovalReasons,
		ObservedAt:     observedAt.UTC(),
	}
}

// Publisher delivers task events
type Publisher interface {
	PublishEvent(ctx context.Context, event TaskEvent) error
	Close()
}

// TaskBroker publishes task events to an AMQP queue
type TaskBroker struct {
	ConnectionName string
	QueueName      string
	channel        *amqp.Channel
	connection     *amqp.Connection
}

// NewTaskBroker returns a broker for the given AMQP URL. The connection is
// established on first use.
func NewTaskBroker(url string, queueName string) *TaskBroker {
	if queueName == "" {
		queueName = common.DefaultBrokerQueue
	}

	return &TaskBroker{ConnectionName: url, QueueName: queueName}
}

// GetChannel returns the channel to this task broker. If a channel hasn't been
// established, a new channel as well as a connection will be created.
func (broker *TaskBroker) GetChannel() (*amqp.Channel, error) {
	if broker.channel == nil {
		if broker.connection == nil {
			conn, err := amqp.Dial(broker.ConnectionName)
			if err != nil {
				return nil, fmt.Errorf("unable to connect to task broker: %w", err)
			}
			broker.connection = conn
		}

		ch, err := broker.connection.Channel()
		if err != nil {
			broker.Close()
			return nil, fmt.Errorf("unable to open broker channel: %w", err)
		}

		broker.channel = ch
	}

	return broker.channel, nil
}

// QueueDeclare declares the event queue and returns the channel it lives on.
func (broker *TaskBroker) QueueDeclare() (*amqp.Channel, error) {
	ch, err := broker.GetChannel()
	if err != nil {
		return nil, err
	}

	_, err = ch.QueueDeclare(
		broker.QueueName, // queue name
		true,             // durable
		false,            // delete when unused
		false,            // exclusive
		false,            // no-wait
		nil,              // argument
	)
	if err != nil {
		return nil, fmt.Errorf("unable to declare queue %s: %w", broker.QueueName, err)
	}

	return ch, nil
}

// PublishEvent publishes one event to the queue as persistent JSON.
func (broker *TaskBroker) PublishEvent(ctx context.Context, event TaskEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("unable to marshal event of task %s: %w", event.TaskID, err)
	}

	ch, err := broker.QueueDeclare()
	if err != nil {
		return err
	}

	err = ch.Publish(
		"",               // default exchange
		broker.QueueName, // routing key
		false,            // mandatory
		false,            // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			MessageId:    event.EventID,
			Timestamp:    event.ObservedAt,
			AppId:        common.AppName,
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("unable to publish event of task %s: %w", event.TaskID, err)
	}

	logrus.Infof("Published %s event of task %s to %s.", event.Status, event.TaskID, broker.QueueName)
	return nil
}

// Close the channel and connection
func (broker *TaskBroker) Close() {
	if broker.channel != nil {
		broker.channel.Close()
		broker.channel = nil
	}

	if broker.connection != nil {
		broker.connection.Close()
		broker.connection = nil
	}
}

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

// PublishEvent does nothing.
func (NopPublisher) PublishEvent(ctx context.Context, event TaskEvent) error { return nil }

// Close does nothing.
func (NopPublisher) Close() {}

// NewPublisher returns a TaskBroker when url is set and a NopPublisher
// otherwise.
func NewPublisher(url string, queueName string) Publisher {
	if url == "" {
		return NopPublisher{}
	}
	return NewTaskBroker(url, queueName)
}
