package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"

	"bcryptcrack/internal/models"
)

// AMQPSink publishes each result as a persistent JSON message on a durable
// queue.
type AMQPSink struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
	runID string
}

func DialAMQP(url, queue, runID string) (*AMQPSink, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}
	return &AMQPSink{conn: conn, ch: ch, queue: queue, runID: runID}, nil
}

func (s *AMQPSink) Append(ctx context.Context, r models.CrackResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(NewDocument(s.runID, r))
	if err != nil {
		return err
	}
	return s.ch.Publish("", s.queue, false, false, amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     uuid.NewString(),
		CorrelationId: s.runID,
		Timestamp:     time.Now(),
		Body:          body,
	})
}

func (s *AMQPSink) Close() error {
	return errors.Join(s.ch.Close(), s.conn.Close())
}
