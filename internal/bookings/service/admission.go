package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	bookingserrors "seatbook/internal/bookings/errors"
	"seatbook/internal/bookings/repository"
	"seatbook/internal/bookings/validator"
	"seatbook/pkg/config"
	apperrors "seatbook/pkg/errors"
	"seatbook/pkg/logger"
	"seatbook/pkg/metrics"
	"seatbook/pkg/model"
	"seatbook/pkg/obs"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type AdmissionState string

const (
	StateValidating            AdmissionState = "Validating"
	StateResolvingCaller       AdmissionState = "ResolvingCaller"
	StateCheckingAndCommitting AdmissionState = "CheckingAndCommitting"
	StateAdmitted              AdmissionState = "Admitted"
	StateRejected              AdmissionState = "Rejected"
	StateFailed                AdmissionState = "Failed"
)

const publishTimeout = 5 * time.Second

// CallerResolver maps a verified token identity to a stored user.
// It returns bookingserrors.ErrUnknownCaller when no user matches.
type CallerResolver interface {
	ResolveCaller(ctx context.Context, caller model.CallerIdentity) (*model.User, error)
}

// SeatLocker is an advisory lock taken before the seat unit. Admission stays
// correct when it is absent or failing.
type SeatLocker interface {
	Acquire(ctx context.Context, seatID string) (func(context.Context) error, error)
}

type EventPublisher interface {
	PublishBookingAdmitted(ctx context.Context, booking *model.Booking) error
}

type AdmissionService interface {
	Admit(ctx context.Context, req model.AdmissionRequest, caller model.CallerIdentity) (*model.Booking, error)
	// DrainEvents waits for booking events still being published.
	DrainEvents(ctx context.Context) error
}

type AdmissionOption func(*admissionService)

func WithSeatLocker(locker SeatLocker) AdmissionOption {
	return func(s *admissionService) { s.locker = locker }
}

func WithEventPublisher(publisher EventPublisher) AdmissionOption {
	return func(s *admissionService) { s.publisher = publisher }
}

type admissionService struct {
	repo      repository.BookingRepository
	callers   CallerResolver
	validator *validator.BookingValidator
	locker    SeatLocker
	publisher EventPublisher
	events    sync.WaitGroup
	cfg       *config.Config
	now       func() time.Time
}

func NewAdmissionService(
	repo repository.BookingRepository,
	callers CallerResolver,
	validator *validator.BookingValidator,
	cfg *config.Config,
	opts ...AdmissionOption,
) AdmissionService {
	s := &admissionService{
		repo:      repo,
		callers:   callers,
		validator: validator,
		cfg:       cfg,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *admissionService) Admit(ctx context.Context, req model.AdmissionRequest, caller model.CallerIdentity) (*model.Booking, error) {
	ctx, span := obs.Tracer().Start(ctx, "booking.admit",
		trace.WithAttributes(attribute.String("seat.id", req.SeatID)),
	)
	defer span.End()

	started := time.Now()
	log := s.cfg.Log.With("request_id", logger.RequestID(ctx), "seat_id", req.SeatID)

	s.enter(log, StateValidating)
	iv, err := s.validate(&req)
	if err != nil {
		s.enter(log, StateFailed)
		log.Info("Admission rejected: invalid request", "error", err)
		s.observe(span, metrics.OutcomeInvalid, 0, started, nil)
		return nil, err
	}

	s.enter(log, StateResolvingCaller)
	owner, err := s.resolveCaller(ctx, caller)
	if err != nil {
		s.enter(log, StateFailed)
		if apperrors.HasCode(err, apperrors.CodeUnknownCaller) {
			log.Info("Admission rejected: unknown caller", "subject", caller.Subject)
			s.observe(span, metrics.OutcomeUnknownCaller, 0, started, nil)
		} else {
			log.Error("Failed to resolve caller", "subject", caller.Subject, "error", err)
			s.observe(span, metrics.OutcomeFailed, 0, started, err)
		}
		return nil, err
	}
	log = log.With("owner_id", owner.ID)

	s.enter(log, StateCheckingAndCommitting)
	release := s.acquireSeatLock(ctx, log, req.SeatID)
	booking, attempts, err := s.checkAndCommit(ctx, log, &req, iv, owner)
	release()

	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeSeatAlreadyBooked) {
			s.enter(log, StateRejected)
			log.Info("Admission rejected: seat already booked",
				"start_time", iv.Start,
				"end_time", iv.End,
				"attempts", attempts,
			)
			s.observe(span, metrics.OutcomeRejected, attempts, started, nil)
			return nil, err
		}
		s.enter(log, StateFailed)
		log.Error("Admission failed: storage unavailable", "attempts", attempts, "error", err)
		s.observe(span, metrics.OutcomeFailed, attempts, started, err)
		return nil, err
	}

	s.enter(log, StateAdmitted)
	log.Info("Booking admitted",
		"id", booking.ID,
		"start_time", booking.StartTime,
		"end_time", booking.EndTime,
		"attempts", attempts,
	)
	span.SetAttributes(attribute.String("booking.id", booking.ID))
	s.observe(span, metrics.OutcomeAdmitted, attempts, started, nil)
	s.publish(ctx, log, booking)

	return booking, nil
}

func (s *admissionService) enter(log *logger.Logger, state AdmissionState) {
	log.Debug("Admission state", "state", string(state))
}

// validate runs before any storage access.
func (s *admissionService) validate(req *model.AdmissionRequest) (model.Interval, error) {
	iv, err := model.NewInterval(req.StartTime, req.EndTime)
	if err != nil {
		return model.Interval{}, apperrors.InvalidInterval(req.StartTime, req.EndTime)
	}

	req.SeatID = strings.TrimSpace(req.SeatID)
	req.SpaceID = strings.TrimSpace(req.SpaceID)
	if req.SeatID == "" {
		return model.Interval{}, apperrors.InvalidInput("seat_id is required")
	}

	if err := s.validator.Validate(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return model.Interval{}, apperrors.Validation("Invalid booking request", map[string]any{"errors": []validator.ValidationError(verrs)})
		}
		return model.Interval{}, apperrors.Validation("Invalid booking request", map[string]any{"error": err.Error()})
	}
	return iv, nil
}

func (s *admissionService) resolveCaller(ctx context.Context, caller model.CallerIdentity) (*model.User, error) {
	user, err := s.callers.ResolveCaller(ctx, caller)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrUnknownCaller) {
			return nil, apperrors.UnknownCaller()
		}
		return nil, apperrors.StorageUnavailable(err)
	}
	if user == nil || user.ID == "" {
		return nil, apperrors.UnknownCaller()
	}
	return user, nil
}

func (s *admissionService) acquireSeatLock(ctx context.Context, log *logger.Logger, seatID string) func() {
	if s.locker == nil {
		return func() {}
	}

	unlock, err := s.locker.Acquire(ctx, seatID)
	if err != nil {
		metrics.TrackSeatLock("unavailable")
		log.Warn("Seat lock unavailable, relying on storage serialization", "error", err)
		return func() {}
	}
	metrics.TrackSeatLock("acquired")

	return func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			log.Warn("Failed to release seat lock", "error", err)
		}
	}
}

// checkAndCommit runs the conflict check and the insert as one seat unit and
// retries the whole unit when storage reports a lost write race.
func (s *admissionService) checkAndCommit(ctx context.Context, log *logger.Logger, req *model.AdmissionRequest, iv model.Interval, owner *model.User) (*model.Booking, int, error) {
	maxAttempts := max(s.cfg.AdmissionMaxAttempts, 1)
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		var admitted *model.Booking
		var conflicts []*model.Booking

		err := s.repo.RunInSeatUnit(ctx, req.SeatID, func(ctx context.Context) error {
			taken, existing, err := HasConflict(ctx, s.repo, req.SeatID, iv)
			if err != nil {
				return err
			}
			if taken {
				conflicts = existing
				return bookingserrors.ErrSeatAlreadyBooked
			}

			booking := s.newBooking(req, iv, owner)
			if _, err := s.repo.Insert(ctx, booking); err != nil {
				return err
			}
			admitted = booking
			return nil
		})

		switch {
		case err == nil:
			return admitted, attempt, nil
		case errors.Is(err, bookingserrors.ErrSeatAlreadyBooked):
			return nil, attempt, apperrors.SeatAlreadyBooked(req.SeatID, toSeatConflicts(conflicts))
		case errors.Is(err, bookingserrors.ErrConflict):
			return nil, attempt, apperrors.SeatAlreadyBooked(req.SeatID, []apperrors.SeatConflict{})
		case errors.Is(err, bookingserrors.ErrSerializationFailure):
			lastErr = err
			metrics.TrackSerializationRetry()
			log.Debug("Seat unit lost a write race", "attempt", attempt, "error", err)
			if attempt == maxAttempts {
				break
			}
			if err := s.backoff(ctx, attempt); err != nil {
				return nil, attempt, apperrors.StorageUnavailable(err)
			}
		default:
			return nil, attempt, apperrors.StorageUnavailable(err)
		}
	}

	return nil, maxAttempts, apperrors.StorageUnavailable(
		fmt.Errorf("seat %s: %d attempts exhausted: %w", req.SeatID, maxAttempts, lastErr),
	)
}

func (s *admissionService) newBooking(req *model.AdmissionRequest, iv model.Interval, owner *model.User) *model.Booking {
	now := s.now().UTC().Truncate(time.Millisecond)
	return &model.Booking{
		ID:        uuid.NewString(),
		SeatID:    req.SeatID,
		SpaceID:   req.SpaceID,
		OwnerID:   owner.ID,
		StartTime: iv.Start,
		EndTime:   iv.End,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// backoff waits attempt*step plus up to half a step of jitter.
func (s *admissionService) backoff(ctx context.Context, attempt int) error {
	step := s.cfg.AdmissionRetryBackoff
	if step <= 0 {
		return ctx.Err()
	}
	delay := time.Duration(attempt)*step + rand.N(step/2+1)

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// publish hands the event to a background goroutine so broker latency never
// reaches the caller. The request id is kept, its deadline is not.
func (s *admissionService) publish(ctx context.Context, log *logger.Logger, booking *model.Booking) {
	if s.publisher == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)

	s.events.Add(1)
	go func() {
		defer s.events.Done()

		ctx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()

		if err := s.publisher.PublishBookingAdmitted(ctx, booking); err != nil {
			log.Warn("Failed to publish booking admitted event", "id", booking.ID, "error", err)
		}
	}()
}

func (s *admissionService) DrainEvents(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.events.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("booking events still in flight: %w", ctx.Err())
	}
}

func (s *admissionService) observe(span trace.Span, outcome string, attempts int, started time.Time, cause error) {
	metrics.TrackAdmission(outcome, attempts, time.Since(started))
	span.SetAttributes(
		attribute.String("admission.outcome", outcome),
		attribute.Int("admission.attempts", attempts),
	)
	if cause != nil {
		span.RecordError(cause)
		span.SetStatus(codes.Error, outcome)
	}
}

func toSeatConflicts(bookings []*model.Booking) []apperrors.SeatConflict {
	conflicts := make([]apperrors.SeatConflict, 0, len(bookings))
	for _, b := range bookings {
		conflicts = append(conflicts, apperrors.SeatConflict{
			ID:        b.ID,
			StartTime: b.StartTime,
			EndTime:   b.EndTime,
		})
	}
	return conflicts
}
