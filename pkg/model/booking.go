package model

import (
	"time"
)

// Booking is a committed seat reservation. Bookings are append-only.
type Booking struct {
	ID        string    `json:"id" bson:"_id"`
	SeatID    string    `json:"seat_id" bson:"seat_id"`
	SpaceID   string    `json:"space_id,omitempty" bson:"space_id,omitempty"`
	OwnerID   string    `json:"owner_id" bson:"owner_id"`
	StartTime time.Time `json:"start_time" bson:"start_time"`
	EndTime   time.Time `json:"end_time" bson:"end_time"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

func (b *Booking) Interval() Interval {
	return Interval{Start: b.StartTime, End: b.EndTime}
}

// AdmissionRequest is the inbound payload of a reservation attempt.
type AdmissionRequest struct {
	SeatID    string    `json:"seat_id" validate:"required,max=64,seat_id"`
	SpaceID   string    `json:"space_id,omitempty" validate:"omitempty,max=64,seat_id"`
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required"`
}

// BookingFilter narrows admin listings. Zero values mean "no constraint".
type BookingFilter struct {
	SeatID  string
	OwnerID string
	From    *time.Time
	To      *time.Time
}

// BookingAdmittedEvent is published after a booking is committed.
type BookingAdmittedEvent struct {
	BookingID  string    `json:"booking_id"`
	SeatID     string    `json:"seat_id"`
	SpaceID    string    `json:"space_id,omitempty"`
	OwnerID    string    `json:"owner_id"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	AdmittedAt time.Time `json:"admitted_at"`
}

func NewBookingAdmittedEvent(b *Booking) BookingAdmittedEvent {
	return BookingAdmittedEvent{
		BookingID:  b.ID,
		SeatID:     b.SeatID,
		SpaceID:    b.SpaceID,
		OwnerID:    b.OwnerID,
		StartTime:  b.StartTime,
		EndTime:    b.EndTime,
		AdmittedAt: b.CreatedAt,
	}
}
