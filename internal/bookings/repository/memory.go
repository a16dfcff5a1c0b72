package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	bookingserrors "seatbook/internal/bookings/errors"
	"seatbook/pkg/model"

	"github.com/google/uuid"
)

// memoryBookingRepository keeps bookings in process. Seat units are
// serialized by a mutex per seat; different seats never share a lock.
type memoryBookingRepository struct {
	mu        sync.RWMutex
	byID      map[string]*model.Booking
	bySeat    map[string][]*model.Booking
	seatLocks sync.Map
}

func NewMemoryBookingRepository() BookingRepository {
	return &memoryBookingRepository{
		byID:   make(map[string]*model.Booking),
		bySeat: make(map[string][]*model.Booking),
	}
}

func (r *memoryBookingRepository) seatLock(seatID string) *sync.Mutex {
	lock, _ := r.seatLocks.LoadOrStore(seatID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

func (r *memoryBookingRepository) RunInSeatUnit(ctx context.Context, seatID string, fn SeatUnitFunc) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", bookingserrors.ErrStorageUnavailable, err)
	}
	lock := r.seatLock(seatID)
	lock.Lock()
	defer lock.Unlock()
	return fn(ctx)
}

func (r *memoryBookingRepository) FindOverlapping(ctx context.Context, seatID string, iv model.Interval) ([]*model.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := []*model.Booking{}
	for _, b := range r.bySeat[seatID] {
		if b.Interval().Overlaps(iv) {
			cp := *b
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (r *memoryBookingRepository) Insert(ctx context.Context, booking *model.Booking) (*model.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", bookingserrors.ErrStorageUnavailable, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[booking.ID]; exists {
		return nil, fmt.Errorf("%w: duplicate id %s", bookingserrors.ErrConflict, booking.ID)
	}
	// Mirrors the unique (seat_id, start_time) index of the Mongo store.
	for _, b := range r.bySeat[booking.SeatID] {
		if b.StartTime.Equal(booking.StartTime) {
			return nil, fmt.Errorf("%w: seat %s already starts a booking at %s", bookingserrors.ErrConflict, booking.SeatID, booking.StartTime)
		}
	}

	stored := *booking
	r.byID[stored.ID] = &stored
	r.bySeat[stored.SeatID] = append(r.bySeat[stored.SeatID], &stored)
	return booking, nil
}

func (r *memoryBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.byID[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *memoryBookingRepository) FindAll(ctx context.Context, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, error) {
	matched := r.match(filter)

	if offset >= int64(len(matched)) {
		return []*model.Booking{}, nil
	}
	end := min(int(offset)+limit, len(matched))
	return matched[offset:end], nil
}

func (r *memoryBookingRepository) Count(ctx context.Context, filter model.BookingFilter) (int64, error) {
	return int64(len(r.match(filter))), nil
}

func (r *memoryBookingRepository) match(f model.BookingFilter) []*model.Booking {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := []*model.Booking{}
	for _, b := range r.byID {
		if f.SeatID != "" && b.SeatID != f.SeatID {
			continue
		}
		if f.OwnerID != "" && b.OwnerID != f.OwnerID {
			continue
		}
		if f.From != nil && !b.EndTime.After(*f.From) {
			continue
		}
		if f.To != nil && !b.StartTime.Before(*f.To) {
			continue
		}
		cp := *b
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].StartTime.Equal(result[j].StartTime) {
			return result[i].StartTime.Before(result[j].StartTime)
		}
		return result[i].ID < result[j].ID
	})
	return result
}
