package domain

import (
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
)

// JobMessage represents a job message from RabbitMQ
type JobMessage struct {
	JobID        string
	JobType      string
	Payload      json.RawMessage
	DeliveryTag  uint64
	Acknowledger amqp.Acknowledger
}

// Ack acknowledges the delivery this message came from
func (m *JobMessage) Ack() error {
	return m.Acknowledger.Ack(m.DeliveryTag, false)
}

// Nack rejects the delivery, optionally returning it to the queue
func (m *JobMessage) Nack(requeue bool) error {
	return m.Acknowledger.Nack(m.DeliveryTag, false, requeue)
}
