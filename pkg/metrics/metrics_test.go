package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler_ExposesTrackedSeries(t *testing.T) {
	TrackAdmission(OutcomeAdmitted, 1, 5*time.Millisecond)
	TrackAdmission(OutcomeRejected, 2, time.Millisecond)
	TrackSerializationRetry()
	TrackSeatLock("acquired")
	TrackHTTPRequest(http.MethodPost, http.StatusCreated, time.Millisecond)
	TrackKafkaPublish("bookings.admitted", errors.New("broker down"), time.Millisecond)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	for _, want := range []string{
		`seatbook_admissions_total{outcome="admitted"}`,
		`seatbook_admissions_total{outcome="rejected"}`,
		`seatbook_admission_attempts_bucket`,
		`seatbook_serialization_retries_total`,
		`seatbook_seat_lock_acquisitions_total{status="acquired"}`,
		`seatbook_http_requests_total{code="201",method="POST"}`,
		`seatbook_kafka_messages_total{status="error",topic="bookings.admitted"}`,
	} {
		assert.Contains(t, string(body), want)
	}
}
