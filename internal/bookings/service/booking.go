package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	bookingserrors "seatbook/internal/bookings/errors"
	"seatbook/internal/bookings/repository"
	"seatbook/pkg/config"
	apperrors "seatbook/pkg/errors"
	"seatbook/pkg/model"
)

// DefaultOccupancyWindow is used when an occupancy query gives no end bound.
const DefaultOccupancyWindow = 24 * time.Hour

// BookingService serves the read-only booking views. These reads run outside
// any seat unit and may trail concurrent admissions.
type BookingService interface {
	GetByID(ctx context.Context, id string, caller model.CallerIdentity) (*model.Booking, error)
	ListMine(ctx context.Context, caller model.CallerIdentity, limit int, offset int64) ([]*model.Booking, int64, error)
	ListAll(ctx context.Context, caller model.CallerIdentity, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, int64, error)
	SeatOccupancy(ctx context.Context, seatID string, from, to *time.Time) ([]*model.Booking, error)
}

type bookingService struct {
	repo    repository.BookingRepository
	callers CallerResolver
	cfg     *config.Config
	now     func() time.Time
}

func NewBookingService(
	repo repository.BookingRepository,
	callers CallerResolver,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:    repo,
		callers: callers,
		cfg:     cfg,
		now:     time.Now,
	}
}

func (s *bookingService) GetByID(ctx context.Context, id string, caller model.CallerIdentity) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	user, err := s.resolve(ctx, caller)
	if err != nil {
		return nil, err
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		if errors.Is(err, bookingserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid booking ID format")
		}
		s.cfg.Log.Error("Failed to retrieve booking", "id", id, "error", err)
		return nil, apperrors.StorageUnavailable(err)
	}

	if booking.OwnerID != user.ID && !user.IsAdmin() {
		s.cfg.Log.Info("Booking access denied", "id", id, "caller_id", user.ID)
		return nil, apperrors.Forbidden("You can only view your own bookings")
	}
	return booking, nil
}

func (s *bookingService) ListMine(ctx context.Context, caller model.CallerIdentity, limit int, offset int64) ([]*model.Booking, int64, error) {
	user, err := s.resolve(ctx, caller)
	if err != nil {
		return nil, 0, err
	}
	return s.list(ctx, model.BookingFilter{OwnerID: user.ID}, limit, offset)
}

func (s *bookingService) ListAll(ctx context.Context, caller model.CallerIdentity, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, int64, error) {
	user, err := s.resolve(ctx, caller)
	if err != nil {
		return nil, 0, err
	}
	if !user.IsAdmin() {
		s.cfg.Log.Info("Admin listing denied", "caller_id", user.ID)
		return nil, 0, apperrors.Forbidden("Listing all bookings requires the ADMIN role")
	}
	if filter.From != nil && filter.To != nil && !filter.From.Before(*filter.To) {
		return nil, 0, apperrors.InvalidInterval(*filter.From, *filter.To)
	}
	filter.SeatID = strings.TrimSpace(filter.SeatID)
	return s.list(ctx, filter, limit, offset)
}

func (s *bookingService) SeatOccupancy(ctx context.Context, seatID string, from, to *time.Time) ([]*model.Booking, error) {
	seatID = strings.TrimSpace(seatID)
	if seatID == "" {
		return nil, apperrors.InvalidInput("seat_id is required")
	}

	start := s.now()
	if from != nil {
		start = *from
	}
	end := start.Add(DefaultOccupancyWindow)
	if to != nil {
		end = *to
	}

	iv, err := model.NewInterval(start, end)
	if err != nil {
		return nil, apperrors.InvalidInterval(start, end)
	}

	bookings, err := s.repo.FindOverlapping(ctx, seatID, iv)
	if err != nil {
		s.cfg.Log.Error("Failed to load seat occupancy", "seat_id", seatID, "error", err)
		return nil, apperrors.StorageUnavailable(err)
	}

	s.cfg.Log.Debug("Seat occupancy loaded",
		"seat_id", seatID,
		"start_time", iv.Start,
		"end_time", iv.End,
		"count", len(bookings),
	)
	return bookings, nil
}

func (s *bookingService) list(ctx context.Context, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, int64, error) {
	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		var err error
		count, err = s.repo.Count(ctx, filter)
		if err != nil {
			s.cfg.Log.Error("Failed to count bookings",
				"seat_id", filter.SeatID,
				"owner_id", filter.OwnerID,
				"error", err,
			)
			errCount = apperrors.StorageUnavailable(err)
		}
	}()

	go func() {
		defer wg.Done()
		var err error
		bookings, err = s.repo.FindAll(ctx, filter, limit, offset)
		if err != nil {
			s.cfg.Log.Error("Failed to list bookings",
				"seat_id", filter.SeatID,
				"owner_id", filter.OwnerID,
				"limit", limit,
				"offset", offset,
				"error", err,
			)
			errFind = apperrors.StorageUnavailable(err)
		}
	}()

	wg.Wait()

	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	s.cfg.Log.Debug("Booking listing completed",
		"owner_id", filter.OwnerID,
		"seat_id", filter.SeatID,
		"count", len(bookings),
		"total_count", count,
	)
	return bookings, count, nil
}

func (s *bookingService) resolve(ctx context.Context, caller model.CallerIdentity) (*model.User, error) {
	user, err := s.callers.ResolveCaller(ctx, caller)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrUnknownCaller) {
			return nil, apperrors.UnknownCaller()
		}
		s.cfg.Log.Error("Failed to resolve caller", "subject", caller.Subject, "error", err)
		return nil, apperrors.StorageUnavailable(err)
	}
	if user == nil || user.ID == "" {
		return nil, apperrors.UnknownCaller()
	}
	return user, nil
}
