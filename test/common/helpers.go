package common

import (
	"testing"
	"time"

	"seatbook/pkg/client"
	"seatbook/pkg/model"

	"github.com/google/uuid"
)

// UniqueSeat keeps runs against a shared store from colliding.
func UniqueSeat(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8]
}

// NewCaller builds a caller whose user id is unique to this run.
func NewCaller(alias, role string) model.CallerIdentity {
	return model.CallerIdentity{Subject: alias + "-" + uuid.NewString()[:8], UserID: uuid.NewString(), Role: role}
}

func AdmissionBody(seatID string, start, end time.Time) map[string]any {
	return map[string]any{
		"seat_id":    seatID,
		"start_time": start.UTC().Format(time.RFC3339),
		"end_time":   end.UTC().Format(time.RFC3339),
	}
}

func RequireStatus(t *testing.T, resp *client.Response, err error, want int) {
	t.Helper()
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != want {
		t.Fatalf("expected status %d, got %d: %s", want, resp.StatusCode, string(resp.Body))
	}
}

func DecodeBooking(t *testing.T, resp *client.Response) model.Booking {
	t.Helper()
	var result struct {
		Data model.Booking `json:"data"`
	}
	if err := resp.DecodeJSON(&result); err != nil {
		t.Fatalf("failed to decode booking: %v", err)
	}
	return result.Data
}

func DecodeBookings(t *testing.T, resp *client.Response) ([]model.Booking, int64) {
	t.Helper()
	var result struct {
		Data       []model.Booking `json:"data"`
		TotalCount int64           `json:"total_count"`
	}
	if err := resp.DecodeJSON(&result); err != nil {
		t.Fatalf("failed to decode bookings: %v", err)
	}
	return result.Data, result.TotalCount
}
