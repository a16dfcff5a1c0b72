package service

import (
	"context"

	"seatbook/internal/bookings/repository"
	"seatbook/pkg/model"
)

// HasConflict reports whether iv overlaps any committed booking of seatID and
// returns the overlapping bookings. Inside a seat unit the read sees every
// booking committed before the unit started.
func HasConflict(ctx context.Context, store repository.BookingRepository, seatID string, iv model.Interval) (bool, []*model.Booking, error) {
	existing, err := store.FindOverlapping(ctx, seatID, iv)
	if err != nil {
		return false, nil, err
	}
	return len(existing) > 0, existing, nil
}
