package queue

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/cellannotation/cas/internal/util"

	"github.com/rabbitmq/amqp091-go"
)

// TaxonomyQueue carries TaxonomyJobMsg messages from the API to workers.
const TaxonomyQueue = "taxonomy_queue"

const retryDelay = 10 * time.Second

// Declarer is the part of an AMQP channel needed to declare queues.
type Declarer interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp091.Table) (amqp091.Queue, error)
}

// Publisher is the part of an AMQP channel needed to publish messages.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// Init dials RabbitMQ using the RABBITMQ_* environment variables.
func Init() (*amqp091.Connection, error) {
	connURL := url.URL{
		Scheme: "amqp",
		User:   url.UserPassword(util.GetEnv("RABBITMQ_USER"), util.GetEnv("RABBITMQ_PASSWORD")),
		Host:   util.GetEnvString("RABBITMQ_HOST", "localhost") + ":" + util.GetEnvString("RABBITMQ_PORT", "5672"),
		Path:   "/",
	}

	conn, err := amqp091.Dial(connURL.String())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	return conn, nil
}

// SetupQueues declares every queue together with its _retry queue, which
// dead-letters back to the queue after retryDelay, and its _dlq queue.
func SetupQueues(ch Declarer, queueNames []string) error {
	for _, name := range queueNames {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare %s: %w", name, err)
		}

		if _, err := ch.QueueDeclare(DeadLetterQueue(name), true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare %s: %w", DeadLetterQueue(name), err)
		}

		_, err := ch.QueueDeclare(
			RetryQueue(name),
			true,
			false,
			false,
			false,
			amqp091.Table{
				"x-message-ttl":             int32(retryDelay.Milliseconds()),
				"x-dead-letter-exchange":    "",
				"x-dead-letter-routing-key": name,
			},
		)
		if err != nil {
			return fmt.Errorf("declare %s: %w", RetryQueue(name), err)
		}
	}

	return nil
}

func RetryQueue(name string) string {
	return name + "_retry"
}

func DeadLetterQueue(name string) string {
	return name + "_dlq"
}

// PublishFIFO publishes a persistent JSON message to the default exchange.
func PublishFIFO(ctx context.Context, ch Publisher, queueName string, data []byte, headers amqp091.Table) error {
	return ch.PublishWithContext(
		ctx,
		"",
		queueName,
		false,
		false,
		amqp091.Publishing{
			ContentType:  "application/json",
			Body:         data,
			Headers:      headers,
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
		},
	)
}
