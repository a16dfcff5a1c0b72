package kafka

import (
	"context"

	"seatbook/pkg/logger"
	"seatbook/pkg/model"
)

const (
	EventTypeBookingAdmitted  = "booking.admitted"
	bookingEventSchemaVersion = "1"
)

// BookingPublisher emits admission events keyed by seat id, so events of one
// seat share a partition. Publishing happens after commit, so two admissions
// on the same seat may still arrive out of commit order; consumers should
// order by admitted_at.
type BookingPublisher struct {
	producer *Producer
	source   string
}

func NewBookingPublisher(producer *Producer, source string) *BookingPublisher {
	return &BookingPublisher{producer: producer, source: source}
}

func (p *BookingPublisher) PublishBookingAdmitted(ctx context.Context, booking *model.Booking) error {
	msg, err := NewMessage().
		WithKey(booking.SeatID).
		WithValue(model.NewBookingAdmittedEvent(booking)).
		WithEventID("").
		WithEventType(EventTypeBookingAdmitted).
		WithSchemaVersion(bookingEventSchemaVersion).
		WithSource(p.source).
		WithCorrelationID(logger.RequestID(ctx)).
		Build()
	if err != nil {
		return err
	}
	return p.producer.Publish(ctx, msg)
}

func (p *BookingPublisher) Close() error {
	return p.producer.Close()
}
