package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

const (
	labelTransientTransaction = "TransientTransactionError"
	labelUnknownCommitResult  = "UnknownTransactionCommitResult"

	codeWriteConflict = 112

	maxCommitAttempts = 3
)

type TransactionFunc func(ctx mongo.SessionContext) error

type TransactionManager interface {
	// ExecuteTransaction runs fn in a single snapshot transaction. Unlike
	// session.WithTransaction it never retries the body; callers own the
	// retry policy and use IsTransient to decide.
	ExecuteTransaction(ctx context.Context, fn TransactionFunc) error
}

type mongoTransactionManager struct {
	client *mongo.Client
	opts   *options.TransactionOptions
}

func NewTransactionManager(client *mongo.Client) TransactionManager {
	return &mongoTransactionManager{
		client: client,
		opts: options.Transaction().
			SetReadConcern(readconcern.Snapshot()).
			SetWriteConcern(writeconcern.Majority()).
			SetReadPreference(readpref.Primary()),
	}
}

func (m *mongoTransactionManager) ExecuteTransaction(ctx context.Context, fn TransactionFunc) error {
	session, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(context.Background())

	return mongo.WithSession(ctx, session, func(sessCtx mongo.SessionContext) error {
		if err := session.StartTransaction(m.opts); err != nil {
			return fmt.Errorf("failed to start transaction: %w", err)
		}

		if err := fn(sessCtx); err != nil {
			_ = session.AbortTransaction(context.Background())
			return err
		}

		return commitWithRetry(sessCtx, session)
	})
}

// commitWithRetry retries only the commit when its outcome is unknown.
// Re-running the body would observe our own write as a conflict.
func commitWithRetry(ctx context.Context, session mongo.Session) error {
	var err error
	for attempt := 0; attempt < maxCommitAttempts; attempt++ {
		err = session.CommitTransaction(ctx)
		if err == nil || !IsCommitUnknown(err) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("transaction commit failed: %w", err)
	}
	return nil
}

// IsTransient reports whether err means the transaction lost a race with
// another writer and the whole unit can be retried.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if hasLabel(err, labelTransientTransaction) {
		return true
	}
	var se mongo.ServerError
	if errors.As(err, &se) && se.HasErrorCode(codeWriteConflict) {
		return true
	}
	return false
}

// IsCommitUnknown reports whether the commit outcome could not be determined.
func IsCommitUnknown(err error) bool {
	return hasLabel(err, labelUnknownCommitResult)
}

func hasLabel(err error, label string) bool {
	var le mongo.LabeledError
	return errors.As(err, &le) && le.HasErrorLabel(label)
}
