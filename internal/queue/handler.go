package queue

import (
	"context"

	"github.com/cellannotation/cas/pkg/logger"

	"github.com/rabbitmq/amqp091-go"
)

const (
	retriesHeader = "x-retries"
	maxRetries    = 10
)

// HandleProcessingError routes a failed delivery. Fatal errors and messages
// that exhausted their retries go to the dead-letter queue; everything else
// is republished to the retry queue with an incremented retry count. The
// original delivery is acked once the copy is published and requeued if
// publishing fails.
func HandleProcessingError(ctx context.Context, ch Publisher, msg amqp091.Delivery, queueName string, cause error) {
	retries := Retries(msg.Headers)

	target := RetryQueue(queueName)
	headers := amqp091.Table{}
	for k, v := range msg.Headers {
		headers[k] = v
	}

	if IsFatal(cause) || retries >= maxRetries {
		target = DeadLetterQueue(queueName)
		headers["x-error"] = cause.Error()
		logger.Info("[Queue] Sending message to DLQ", "dlq", target, "retries", retries, "err", cause)
	} else {
		headers[retriesHeader] = int32(retries + 1)
	}

	if err := PublishFIFO(ctx, ch, target, msg.Body, headers); err != nil {
		logger.Error("[Queue] Failed to republish message", "queue", target, "err", err)
		if err := msg.Nack(false, true); err != nil {
			logger.Error("[Queue] Failed to nack message", "err", err)
		}
		return
	}
	if err := msg.Ack(false); err != nil {
		logger.Error("[Queue] Failed to ack message", "err", err)
	}
}

// Retries reads the retry count from message headers.
func Retries(headers amqp091.Table) int {
	switch v := headers[retriesHeader].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
