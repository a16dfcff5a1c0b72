package service

import (
	"context"
	"errors"
	"testing"
	"time"

	bookingserrors "seatbook/internal/bookings/errors"
	"seatbook/internal/bookings/repository"
	apperrors "seatbook/pkg/errors"
	"seatbook/pkg/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedBooking(t *testing.T, repo repository.BookingRepository, seatID, ownerID string, start, end time.Time) *model.Booking {
	t.Helper()
	b := &model.Booking{
		ID:        uuid.NewString(),
		SeatID:    seatID,
		OwnerID:   ownerID,
		StartTime: start,
		EndTime:   end,
		CreatedAt: day,
		UpdatedAt: day,
	}
	_, err := repo.Insert(context.Background(), b)
	require.NoError(t, err)
	return b
}

func TestGetByID_OwnerAndAdmin(t *testing.T) {
	repo := repository.NewMemoryBookingRepository()
	svc := NewBookingService(repo, &stubResolver{}, newTestConfig())
	mine := seedBooking(t, repo, "A-1", "user-alice", hm(10, 0), hm(11, 0))

	got, err := svc.GetByID(context.Background(), mine.ID, alice())
	require.NoError(t, err)
	assert.Equal(t, mine.ID, got.ID)

	_, err = svc.GetByID(context.Background(), mine.ID, admin())
	require.NoError(t, err)

	_, err = svc.GetByID(context.Background(), mine.ID, bob())
	requireCode(t, err, apperrors.CodeForbidden)
}

func TestGetByID_Errors(t *testing.T) {
	svc := NewBookingService(repository.NewMemoryBookingRepository(), &stubResolver{}, newTestConfig())

	_, err := svc.GetByID(context.Background(), "", alice())
	requireCode(t, err, apperrors.CodeInvalidInput)

	_, err = svc.GetByID(context.Background(), "not-a-uuid", alice())
	requireCode(t, err, apperrors.CodeInvalidInput)

	_, err = svc.GetByID(context.Background(), uuid.NewString(), alice())
	requireCode(t, err, apperrors.CodeNotFound)

	_, err = svc.GetByID(context.Background(), uuid.NewString(), model.CallerIdentity{Subject: "ghost"})
	requireCode(t, err, apperrors.CodeUnknownCaller)

	failing := &mockBookingRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			return nil, errors.New("socket closed")
		},
	}
	_, err = NewBookingService(failing, &stubResolver{}, newTestConfig()).GetByID(context.Background(), uuid.NewString(), alice())
	requireCode(t, err, apperrors.CodeStorageUnavailable)
}

func TestListMine_OnlyOwnBookings(t *testing.T) {
	repo := repository.NewMemoryBookingRepository()
	svc := NewBookingService(repo, &stubResolver{}, newTestConfig())
	seedBooking(t, repo, "A-1", "user-alice", hm(10, 0), hm(11, 0))
	seedBooking(t, repo, "A-2", "user-alice", hm(12, 0), hm(13, 0))
	seedBooking(t, repo, "A-1", "user-bob", hm(12, 0), hm(13, 0))

	bookings, total, err := svc.ListMine(context.Background(), alice(), 10, 0)

	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, bookings, 2)
	for _, b := range bookings {
		assert.Equal(t, "user-alice", b.OwnerID)
	}
}

func TestListAll_RequiresAdmin(t *testing.T) {
	repo := repository.NewMemoryBookingRepository()
	svc := NewBookingService(repo, &stubResolver{}, newTestConfig())
	seedBooking(t, repo, "A-1", "user-alice", hm(10, 0), hm(11, 0))
	seedBooking(t, repo, "A-1", "user-bob", hm(12, 0), hm(13, 0))
	seedBooking(t, repo, "B-1", "user-bob", hm(12, 0), hm(13, 0))

	_, _, err := svc.ListAll(context.Background(), alice(), model.BookingFilter{}, 10, 0)
	requireCode(t, err, apperrors.CodeForbidden)

	all, total, err := svc.ListAll(context.Background(), admin(), model.BookingFilter{}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, all, 3)

	from, to := hm(11, 30), hm(14, 0)
	filtered, total, err := svc.ListAll(context.Background(), admin(), model.BookingFilter{SeatID: " A-1 ", From: &from, To: &to}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, filtered, 1)
	assert.Equal(t, "user-bob", filtered[0].OwnerID)

	_, _, err = svc.ListAll(context.Background(), admin(), model.BookingFilter{From: &to, To: &from}, 10, 0)
	requireCode(t, err, apperrors.CodeInvalidInterval)
}

func TestListAll_StoredRoleWinsOverClaim(t *testing.T) {
	repo := repository.NewMemoryBookingRepository()
	storedRoles := map[string]string{"alice": model.RoleAdmin, "root": model.RoleUser}
	callers := &stubResolver{
		resolveFunc: func(ctx context.Context, caller model.CallerIdentity) (*model.User, error) {
			return &model.User{ID: caller.UserID, Alias: caller.Subject, Role: storedRoles[caller.Subject]}, nil
		},
	}
	svc := NewBookingService(repo, callers, newTestConfig())

	_, _, err := svc.ListAll(context.Background(), alice(), model.BookingFilter{}, 10, 0)
	assert.NoError(t, err, "a stored admin holding a user-claim token is an admin")

	_, _, err = svc.ListAll(context.Background(), admin(), model.BookingFilter{}, 10, 0)
	requireCode(t, err, apperrors.CodeForbidden)
}

func TestList_CountAndFindRunConcurrently(t *testing.T) {
	release := make(chan struct{})
	repo := &mockBookingRepository{
		countFunc: func(ctx context.Context, filter model.BookingFilter) (int64, error) {
			<-release
			return 7, nil
		},
		findAllFunc: func(ctx context.Context, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, error) {
			close(release)
			return []*model.Booking{{ID: "1"}}, nil
		},
	}
	svc := NewBookingService(repo, &stubResolver{}, newTestConfig())

	bookings, total, err := svc.ListMine(context.Background(), alice(), 10, 0)

	require.NoError(t, err)
	assert.Equal(t, int64(7), total)
	assert.Len(t, bookings, 1)
}

func TestList_StorageFailure(t *testing.T) {
	repo := &mockBookingRepository{
		countFunc: func(ctx context.Context, filter model.BookingFilter) (int64, error) {
			return 0, bookingserrors.ErrStorageUnavailable
		},
	}
	svc := NewBookingService(repo, &stubResolver{}, newTestConfig())

	_, _, err := svc.ListMine(context.Background(), alice(), 10, 0)

	requireCode(t, err, apperrors.CodeStorageUnavailable)
}

func TestSeatOccupancy(t *testing.T) {
	repo := repository.NewMemoryBookingRepository()
	svc := NewBookingService(repo, &stubResolver{}, newTestConfig())
	morning := seedBooking(t, repo, "A-1", "user-alice", hm(9, 0), hm(10, 0))
	seedBooking(t, repo, "A-1", "user-bob", hm(14, 0), hm(15, 0))

	from, to := hm(8, 0), hm(12, 0)
	bookings, err := svc.SeatOccupancy(context.Background(), "A-1", &from, &to)
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, morning.ID, bookings[0].ID)

	// Default window is a day from the given start.
	bookings, err = svc.SeatOccupancy(context.Background(), "A-1", &from, nil)
	require.NoError(t, err)
	assert.Len(t, bookings, 2)

	_, err = svc.SeatOccupancy(context.Background(), "A-1", &to, &from)
	requireCode(t, err, apperrors.CodeInvalidInterval)

	_, err = svc.SeatOccupancy(context.Background(), " ", nil, nil)
	requireCode(t, err, apperrors.CodeInvalidInput)
}
