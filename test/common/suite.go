package common

import (
	"context"
	"os"
	"testing"
	"time"

	"seatbook/internal/bookings/repository"
	"seatbook/pkg/auth"
	"seatbook/pkg/client"
	"seatbook/pkg/config"
	"seatbook/pkg/model"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	EnvIntegration   = "INTEGRATION"
	EnvTestServerURL = "TEST_SERVER_URL"
	EnvTestMongoURI  = "TEST_MONGO_URI"
	EnvTestDBName    = "TEST_DB_NAME"

	DefaultServerURL          = "http://localhost:8080"
	DefaultHealthCheckTimeout = 30 * time.Second
)

// IntegrationTestSuite drives a running bookings service over HTTP. When a
// Mongo URI is given, callers are seeded into the Users collection so the
// Mongo caller resolver recognises them.
type IntegrationTestSuite struct {
	ServerURL string
	secret    string
	issuer    string
	mongo     *mongo.Client
	dbName    string
}

func NewIntegrationTestSuite(t *testing.T) *IntegrationTestSuite {
	t.Helper()
	_ = godotenv.Load("../../../.env")

	if os.Getenv(EnvIntegration) != "1" {
		t.Skipf("set %s=1 to run integration tests against a live service", EnvIntegration)
	}

	s := &IntegrationTestSuite{
		ServerURL: getEnv(EnvTestServerURL, DefaultServerURL),
		secret:    os.Getenv(config.EnvJWTSecret),
		issuer:    getEnv(config.EnvJWTIssuer, config.DefaultJWTIssuer),
		dbName:    getEnv(EnvTestDBName, config.DefaultMongoDatabaseName),
	}
	if s.secret == "" {
		t.Fatalf("%s must be set to the service's signing secret", config.EnvJWTSecret)
	}

	if uri := os.Getenv(EnvTestMongoURI); uri != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mc, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
		if err != nil {
			t.Fatalf("failed to connect to test Mongo: %v", err)
		}
		s.mongo = mc
	}

	if err := client.NewHttpClient(s.ServerURL).WaitForHealthy(DefaultHealthCheckTimeout); err != nil {
		t.Fatalf("service not ready: %v", err)
	}
	return s
}

// As returns a client authenticated as caller, seeding the user first when
// the suite has Mongo access.
func (s *IntegrationTestSuite) As(t *testing.T, caller model.CallerIdentity) *client.BookingClient {
	t.Helper()
	s.seedUser(t, caller)

	token, err := auth.NewToken(s.secret, s.issuer, caller, time.Hour)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return client.NewBookingClient(s.ServerURL, token)
}

func (s *IntegrationTestSuite) Anonymous() *client.BookingClient {
	return client.NewBookingClient(s.ServerURL, "")
}

func (s *IntegrationTestSuite) seedUser(t *testing.T, caller model.CallerIdentity) {
	t.Helper()
	if s.mongo == nil || caller.UserID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	role := caller.Role
	if role == "" {
		role = model.RoleUser
	}
	user := model.User{ID: caller.UserID, Alias: caller.Subject, Role: role, CreatedAt: time.Now().UTC()}
	_, err := s.mongo.Database(s.dbName).Collection(repository.UsersCollectionName).ReplaceOne(ctx,
		bson.M{"_id": user.ID}, user, options.Replace().SetUpsert(true))
	if err != nil {
		t.Fatalf("failed to seed user %s: %v", caller.Subject, err)
	}
}

func (s *IntegrationTestSuite) Teardown(t *testing.T) {
	t.Helper()
	if s.mongo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.mongo.Disconnect(ctx); err != nil {
		t.Logf("failed to disconnect test Mongo: %v", err)
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
