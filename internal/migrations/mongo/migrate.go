package mongo

import (
	"context"
	"fmt"

	"seatbook/internal/bookings/repository"
	"seatbook/internal/migrations/mongo/validators"
	"seatbook/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UniqueSeatStartIndex backs the store's last line of defence: two bookings on
// one seat can never share a start instant, whatever the admission path did.
const UniqueSeatStartIndex = "uniq_seat_start"

type CollectionDef struct {
	Name      string
	Validator bson.M
	Indexes   []mongo.IndexModel
}

var (
	BookingsIndexes = []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "seat_id", Value: 1},
				{Key: "start_time", Value: 1},
				{Key: "end_time", Value: 1},
			},
			Options: options.Index().SetName("seat_interval"),
		},
		{
			Keys: bson.D{
				{Key: "owner_id", Value: 1},
				{Key: "start_time", Value: 1},
			},
			Options: options.Index().SetName("owner_start"),
		},
		{
			Keys: bson.D{
				{Key: "seat_id", Value: 1},
				{Key: "start_time", Value: 1},
			},
			Options: options.Index().SetName(UniqueSeatStartIndex).SetUnique(true),
		},
	}

	UsersIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "alias", Value: 1}},
			Options: options.Index().SetName("uniq_alias").SetUnique(true),
		},
	}
)

// Collections lists every collection the service needs, in creation order.
func Collections() []CollectionDef {
	return []CollectionDef{
		{Name: repository.CollectionName, Validator: validators.BookingValidator, Indexes: BookingsIndexes},
		{Name: repository.SeatGuardsCollectionName, Validator: validators.SeatGuardValidator},
		{Name: repository.UsersCollectionName, Validator: validators.UserValidator, Indexes: UsersIndexes},
	}
}

// RunMigration is idempotent: existing collections get their validator
// refreshed and missing indexes created.
func RunMigration(ctx context.Context, client *mongo.Client, dbName string, log *logger.Logger) error {
	db := client.Database(dbName)
	log.Info("Running seatbook Mongo migrations", "database", dbName)

	for _, def := range Collections() {
		if err := ensureCollection(ctx, db, def.Name, def.Validator, log); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", def.Name, err)
		}
		if len(def.Indexes) == 0 {
			continue
		}
		if err := ensureIndexes(ctx, db, def.Name, def.Indexes, log); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", def.Name, err)
		}
	}

	log.Info("All migrations applied successfully")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M, log *logger.Logger) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		log.Info("Creating collection", "collection", name)
		opts := options.CreateCollection().SetValidator(validator)
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
		return nil
	}

	log.Info("Collection already exists, updating validator", "collection", name)
	command := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
	}
	if err := db.RunCommand(ctx, command).Err(); err != nil {
		log.Warn("Failed updating validator", "collection", name, "error", err)
	}
	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel, log *logger.Logger) error {
	names, err := db.Collection(name).Indexes().CreateMany(ctx, models)
	if err != nil {
		return err
	}
	log.Info("Ensured indexes", "collection", name, "indexes", names)
	return nil
}
