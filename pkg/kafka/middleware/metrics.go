package kafka_middleware

import (
	"context"
	"time"

	"seatbook/pkg/kafka"
	"seatbook/pkg/metrics"
)

// MetricsProducerMiddleware records publish counts and latency per topic.
func MetricsProducerMiddleware() kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) error {
		start := time.Now()
		err := next(ctx, msg)
		metrics.TrackKafkaPublish(msg.Topic, err, time.Since(start))
		return err
	}
}
