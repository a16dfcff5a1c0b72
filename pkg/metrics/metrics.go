package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Admission outcomes used as the "outcome" label.
const (
	OutcomeAdmitted      = "admitted"
	OutcomeRejected      = "rejected"
	OutcomeInvalid       = "invalid"
	OutcomeUnknownCaller = "unknown_caller"
	OutcomeFailed        = "failed"
)

var (
	admissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seatbook_admissions_total",
			Help: "Reservation admissions by outcome",
		},
		[]string{"outcome"},
	)

	admissionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "seatbook_admission_duration_seconds",
			Help:    "Time spent deciding an admission",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	admissionAttempts = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "seatbook_admission_attempts",
			Help:    "Seat unit attempts needed per admission",
			Buckets: prometheus.LinearBuckets(1, 1, 10),
		},
	)

	serializationRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "seatbook_serialization_retries_total",
			Help: "Seat units retried after losing a write race",
		},
	)

	seatLockAcquisitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seatbook_seat_lock_acquisitions_total",
			Help: "Advisory seat lock acquisitions by status",
		},
		[]string{"status"},
	)

	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seatbook_http_requests_total",
			Help: "HTTP requests by method and status code",
		},
		[]string{"method", "code"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "seatbook_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	kafkaMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seatbook_kafka_messages_total",
			Help: "Kafka publish attempts by topic and status",
		},
		[]string{"topic", "status"},
	)

	kafkaPublishDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "seatbook_kafka_publish_duration_seconds",
			Help:    "Kafka publish latency",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"topic"},
	)
)

func TrackAdmission(outcome string, attempts int, duration time.Duration) {
	admissionsTotal.WithLabelValues(outcome).Inc()
	admissionDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	if attempts > 0 {
		admissionAttempts.Observe(float64(attempts))
	}
}

func TrackSerializationRetry() {
	serializationRetries.Inc()
}

func TrackSeatLock(status string) {
	seatLockAcquisitions.WithLabelValues(status).Inc()
}

func TrackHTTPRequest(method string, code int, duration time.Duration) {
	httpRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpDuration.WithLabelValues(method).Observe(duration.Seconds())
}

func TrackKafkaPublish(topic string, err error, duration time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	kafkaMessages.WithLabelValues(topic, status).Inc()
	kafkaPublishDuration.WithLabelValues(topic).Observe(duration.Seconds())
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
