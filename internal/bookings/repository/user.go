package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	bookingserrors "seatbook/internal/bookings/errors"
	"seatbook/pkg/config"
	"seatbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const UsersCollectionName = "Users"

type MongoUserRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

// NewMongoUserRepository resolves callers by the alias carried in the token
// subject. The stored role wins over the role claim.
func NewMongoUserRepository(cfg *config.Config) *MongoUserRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &MongoUserRepository{
		cfg:        cfg,
		collection: db.Collection(UsersCollectionName),
	}
}

func (r *MongoUserRepository) ResolveCaller(ctx context.Context, caller model.CallerIdentity) (*model.User, error) {
	alias := strings.TrimSpace(caller.Subject)
	if alias == "" {
		return nil, bookingserrors.ErrUnknownCaller
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var user model.User
	err := r.collection.FindOne(ctx, bson.M{"alias": alias}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrUnknownCaller
		}
		return nil, fmt.Errorf("%w: failed to resolve caller: %v", bookingserrors.ErrStorageUnavailable, err)
	}
	if user.Role == "" {
		user.Role = model.RoleUser
	}
	return &user, nil
}

type ClaimsUserResolver struct{}

// NewClaimsUserResolver trusts the user id embedded in a verified token. It is
// used with the memory store where no Users collection exists.
func NewClaimsUserResolver() *ClaimsUserResolver {
	return &ClaimsUserResolver{}
}

func (ClaimsUserResolver) ResolveCaller(_ context.Context, caller model.CallerIdentity) (*model.User, error) {
	if caller.UserID == "" {
		return nil, bookingserrors.ErrUnknownCaller
	}
	role := caller.Role
	if role == "" {
		role = model.RoleUser
	}
	return &model.User{ID: caller.UserID, Alias: caller.Subject, Role: role}, nil
}
