package repository

import (
	"context"
	"fmt"
	"time"

	bookingserrors "seatbook/internal/bookings/errors"
	"seatbook/pkg/config"
	"seatbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const SeatGuardsCollectionName = "Seat_guards"

// SeatGuardRepository fences admissions per seat. Touch must run inside the
// admission transaction so that a concurrent writer on the same guard
// document aborts with a write conflict.
type SeatGuardRepository interface {
	Touch(ctx context.Context, seatID string) (*model.SeatGuard, error)
}

type mongoSeatGuardRepository struct {
	collection *mongo.Collection
}

func NewSeatGuardRepository(cfg *config.Config) SeatGuardRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSeatGuardRepository{
		collection: db.Collection(SeatGuardsCollectionName),
	}
}

func (r *mongoSeatGuardRepository) Touch(ctx context.Context, seatID string) (*model.SeatGuard, error) {
	update := bson.M{
		"$inc": bson.M{"version": 1},
		"$set": bson.M{"updated_at": time.Now().UTC().Truncate(time.Millisecond)},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var guard model.SeatGuard
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": seatID}, update, opts).Decode(&guard)
	if err != nil {
		// Two first-ever admissions on a seat race on the upsert insert.
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: %v", bookingserrors.ErrSerializationFailure, err)
		}
		return nil, fmt.Errorf("failed to touch seat guard: %w", err)
	}
	return &guard, nil
}
