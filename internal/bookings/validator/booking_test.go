package validator

import (
	"errors"
	"strings"
	"testing"
	"time"

	"seatbook/pkg/logger"
	"seatbook/pkg/model"
)

func validRequest() *model.AdmissionRequest {
	start := time.Date(2030, 3, 1, 10, 0, 0, 0, time.UTC)
	return &model.AdmissionRequest{
		SeatID:    "A-12",
		SpaceID:   "hall.3:row4",
		StartTime: start,
		EndTime:   start.Add(time.Hour),
	}
}

func TestBookingValidator_Validate(t *testing.T) {
	v := NewBookingValidator(logger.Discard())

	tests := []struct {
		name      string
		mutate    func(r *model.AdmissionRequest)
		wantField string
	}{
		{name: "valid", mutate: func(r *model.AdmissionRequest) {}},
		{name: "space optional", mutate: func(r *model.AdmissionRequest) { r.SpaceID = "" }},
		{name: "missing seat", mutate: func(r *model.AdmissionRequest) { r.SeatID = "" }, wantField: "seat_id"},
		{name: "seat too long", mutate: func(r *model.AdmissionRequest) { r.SeatID = strings.Repeat("a", 65) }, wantField: "seat_id"},
		{name: "seat with spaces", mutate: func(r *model.AdmissionRequest) { r.SeatID = "A 12" }, wantField: "seat_id"},
		{name: "seat leading dash", mutate: func(r *model.AdmissionRequest) { r.SeatID = "-A12" }, wantField: "seat_id"},
		{name: "bad space", mutate: func(r *model.AdmissionRequest) { r.SpaceID = "hall#1" }, wantField: "space_id"},
		{name: "missing start", mutate: func(r *model.AdmissionRequest) { r.StartTime = time.Time{} }, wantField: "start_time"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(req)

			err := v.Validate(req)

			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}

			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("Validate() error = %v, want ValidationErrors", err)
			}
			if verrs[0].Field != tt.wantField {
				t.Errorf("field = %q, want %q", verrs[0].Field, tt.wantField)
			}
		})
	}
}

func TestValidationErrors_Error(t *testing.T) {
	errs := ValidationErrors{
		{Field: "seat_id", Message: "seat_id is required"},
		{Field: "end_time", Message: "end_time is required"},
	}

	got := errs.Error()
	if !strings.HasPrefix(got, "validation failed: 2 error(s)") {
		t.Errorf("Error() = %q", got)
	}
	if ValidationErrors(nil).Error() != "" {
		t.Error("empty ValidationErrors should render as empty string")
	}
}
