package service

import (
	"context"
	"sync"
	"time"

	bookingserrors "seatbook/internal/bookings/errors"
	"seatbook/internal/bookings/repository"
	"seatbook/internal/bookings/validator"
	"seatbook/pkg/config"
	"seatbook/pkg/logger"
	"seatbook/pkg/model"
)

// ────────────────────────────────────────────────
// Mock repository for testing
// ────────────────────────────────────────────────

type mockBookingRepository struct {
	findOverlappingFunc func(ctx context.Context, seatID string, iv model.Interval) ([]*model.Booking, error)
	insertFunc          func(ctx context.Context, b *model.Booking) (*model.Booking, error)
	findByIDFunc        func(ctx context.Context, id string) (*model.Booking, error)
	findAllFunc         func(ctx context.Context, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, error)
	countFunc           func(ctx context.Context, filter model.BookingFilter) (int64, error)
	runInSeatUnitFunc   func(ctx context.Context, seatID string, fn repository.SeatUnitFunc) error

	mu    sync.Mutex
	calls int
}

func (m *mockBookingRepository) touch() {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
}

func (m *mockBookingRepository) storageCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockBookingRepository) FindOverlapping(ctx context.Context, seatID string, iv model.Interval) ([]*model.Booking, error) {
	m.touch()
	if m.findOverlappingFunc != nil {
		return m.findOverlappingFunc(ctx, seatID, iv)
	}
	return []*model.Booking{}, nil
}

func (m *mockBookingRepository) Insert(ctx context.Context, b *model.Booking) (*model.Booking, error) {
	m.touch()
	if m.insertFunc != nil {
		return m.insertFunc(ctx, b)
	}
	return b, nil
}

func (m *mockBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	m.touch()
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, bookingserrors.ErrNotFound
}

func (m *mockBookingRepository) FindAll(ctx context.Context, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, error) {
	m.touch()
	if m.findAllFunc != nil {
		return m.findAllFunc(ctx, filter, limit, offset)
	}
	return []*model.Booking{}, nil
}

func (m *mockBookingRepository) Count(ctx context.Context, filter model.BookingFilter) (int64, error) {
	m.touch()
	if m.countFunc != nil {
		return m.countFunc(ctx, filter)
	}
	return 0, nil
}

func (m *mockBookingRepository) RunInSeatUnit(ctx context.Context, seatID string, fn repository.SeatUnitFunc) error {
	m.touch()
	if m.runInSeatUnitFunc != nil {
		return m.runInSeatUnitFunc(ctx, seatID, fn)
	}
	return fn(ctx)
}

type stubResolver struct {
	resolveFunc func(ctx context.Context, caller model.CallerIdentity) (*model.User, error)
	calls       int
}

func (r *stubResolver) ResolveCaller(ctx context.Context, caller model.CallerIdentity) (*model.User, error) {
	r.calls++
	if r.resolveFunc != nil {
		return r.resolveFunc(ctx, caller)
	}
	if caller.UserID == "" {
		return nil, bookingserrors.ErrUnknownCaller
	}
	return &model.User{ID: caller.UserID, Alias: caller.Subject, Role: caller.Role}, nil
}

// ────────────────────────────────────────────────
// Fixtures
// ────────────────────────────────────────────────

var day = time.Date(2030, 3, 1, 0, 0, 0, 0, time.UTC)

func hm(h, m int) time.Time {
	return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func newTestConfig() *config.Config {
	return &config.Config{
		Log:                   logger.Discard(),
		AdmissionMaxAttempts:  5,
		AdmissionRetryBackoff: time.Millisecond,
	}
}

func newTestAdmission(repo repository.BookingRepository, callers CallerResolver, opts ...AdmissionOption) *admissionService {
	cfg := newTestConfig()
	return NewAdmissionService(repo, callers, validator.NewBookingValidator(cfg.Log), cfg, opts...).(*admissionService)
}

func alice() model.CallerIdentity {
	return model.CallerIdentity{Subject: "alice", Role: model.RoleUser, UserID: "user-alice"}
}

func bob() model.CallerIdentity {
	return model.CallerIdentity{Subject: "bob", Role: model.RoleUser, UserID: "user-bob"}
}

func admin() model.CallerIdentity {
	return model.CallerIdentity{Subject: "root", Role: model.RoleAdmin, UserID: "user-root"}
}

func request(seatID string, start, end time.Time) model.AdmissionRequest {
	return model.AdmissionRequest{SeatID: seatID, StartTime: start, EndTime: end}
}
