package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"

	bookingserrors "seatbook/internal/bookings/errors"
	mongotx "seatbook/pkg/db/mongo"
	"seatbook/pkg/model"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/mongo"
)

type fakeTxManager struct {
	calls      int
	commitErr  error
	executeErr error
}

func (m *fakeTxManager) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	m.calls++
	if m.executeErr != nil {
		return m.executeErr
	}
	if err := fn(mongo.NewSessionContext(ctx, nil)); err != nil {
		return err
	}
	return m.commitErr
}

type fakeSeatGuards struct {
	err     error
	touched []string
}

func (g *fakeSeatGuards) Touch(ctx context.Context, seatID string) (*model.SeatGuard, error) {
	g.touched = append(g.touched, seatID)
	if g.err != nil {
		return nil, g.err
	}
	return &model.SeatGuard{ID: seatID, Version: int64(len(g.touched))}, nil
}

func TestMongo_RunInSeatUnit_ClassifiesErrors(t *testing.T) {
	errSeatTaken := errors.New("seat taken")
	writeConflict := mongo.CommandError{Code: 112, Name: "WriteConflict"}
	transient := mongo.CommandError{Code: 251, Labels: []string{"TransientTransactionError"}}
	commitUnknown := mongo.CommandError{Code: 50, Labels: []string{"UnknownTransactionCommitResult"}}

	tests := []struct {
		name       string
		guardErr   error
		fnErr      error
		commitErr  error
		executeErr error
		wantIs     error
		wantBody   bool
	}{
		{name: "committed", wantBody: true},
		{name: "write conflict on commit", commitErr: writeConflict, wantIs: bookingserrors.ErrSerializationFailure, wantBody: true},
		{name: "transient label on commit", commitErr: transient, wantIs: bookingserrors.ErrSerializationFailure, wantBody: true},
		{name: "write conflict inside body", fnErr: fmt.Errorf("insert: %w", writeConflict), wantIs: bookingserrors.ErrSerializationFailure, wantBody: true},
		{
			name:     "guard upsert lost the race",
			guardErr: fmt.Errorf("%w: E11000 duplicate key", bookingserrors.ErrSerializationFailure),
			wantIs:   bookingserrors.ErrSerializationFailure,
		},
		{name: "body error passes through", fnErr: errSeatTaken, wantIs: errSeatTaken, wantBody: true},
		{name: "guard failure", guardErr: errors.New("connection reset"), wantIs: bookingserrors.ErrStorageUnavailable},
		{name: "session start failure", executeErr: errors.New("server selection timeout"), wantIs: bookingserrors.ErrStorageUnavailable},
		{name: "commit outcome unknown", commitErr: commitUnknown, wantIs: bookingserrors.ErrStorageUnavailable, wantBody: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := &fakeTxManager{commitErr: tt.commitErr, executeErr: tt.executeErr}
			guards := &fakeSeatGuards{err: tt.guardErr}
			repo := &mongoBookingRepository{txManager: tx, guards: guards}

			ran := false
			err := repo.RunInSeatUnit(context.Background(), "A-1", func(ctx context.Context) error {
				ran = true
				_, inSession := ctx.(mongo.SessionContext)
				assert.True(t, inSession, "body must run in the session context")
				return tt.fnErr
			})

			if tt.wantIs == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantIs)
			}
			assert.Equal(t, tt.wantBody, ran)
			assert.Equal(t, 1, tx.calls, "the repository never retries a unit itself")
			if tt.executeErr == nil {
				assert.Equal(t, []string{"A-1"}, guards.touched)
			}
		})
	}
}

func TestMongo_RunInSeatUnit_CommitUnknownIsNotSerializationFailure(t *testing.T) {
	tx := &fakeTxManager{commitErr: mongo.CommandError{Labels: []string{"UnknownTransactionCommitResult"}}}
	repo := &mongoBookingRepository{txManager: tx, guards: &fakeSeatGuards{}}

	err := repo.RunInSeatUnit(context.Background(), "A-1", func(ctx context.Context) error { return nil })

	assert.False(t, errors.Is(err, bookingserrors.ErrSerializationFailure),
		"an unknown commit must not be retried as a lost race")
	assert.ErrorIs(t, err, bookingserrors.ErrStorageUnavailable)
}
