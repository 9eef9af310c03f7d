package db

import (
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.mongodb.org/mongo-driver/mongo"
)

// Operation is a function that performs an action and returns an error if it fails.
type Operation func() error

// IsDuplicateKeyError is a function that checks if an error is a duplicate key error.
type IsDuplicateKeyError func(err error) bool

const DefaultMaxRetries = 3

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// Try executes an operation with DefaultMaxRetries, retrying while isDuplicateKey reports a collision.
// The operation is expected to regenerate its key on every call.
func Try(op Operation, isDuplicateKey IsDuplicateKeyError) error {
	return WithRetries(op, DefaultMaxRetries, isDuplicateKey)
}

// WithRetries executes an operation with a retry mechanism for duplicate key errors.
// It attempts the operation up to maxRetries+1 times.
func WithRetries(op Operation, maxRetries int, isDuplicateKey IsDuplicateKeyError) error {
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err = op()
		if err == nil {
			return nil
		}
		if attempt == maxRetries {
			break
		}
		if !isDuplicateKey(err) {
			return err
		}
		time.Sleep(time.Duration(50*(attempt+1)) * time.Millisecond) // Simple incremental backoff
	}
	return err
}

func mongoDuplicateKeyMessages(err error) []string {
	var msgs []string
	var e mongo.WriteException
	if errors.As(err, &e) {
		for _, we := range e.WriteErrors {
			if we.Code == 11000 {
				msgs = append(msgs, we.Message)
			}
		}
	}
	// BulkWriteException can carry duplicate key errors too
	var bwe mongo.BulkWriteException
	if errors.As(err, &bwe) {
		for _, we := range bwe.WriteErrors {
			if we.Code == 11000 {
				msgs = append(msgs, we.Message)
			}
		}
	}
	return msgs
}

// IsMongoDuplicateKeyError checks if an error from MongoDB is a duplicate key error (code 11000).
func IsMongoDuplicateKeyError(err error) bool {
	return len(mongoDuplicateKeyMessages(err)) > 0
}

// IsMongoDuplicateIDError reports a duplicate key error on the _id index only.
func IsMongoDuplicateIDError(err error) bool {
	for _, msg := range mongoDuplicateKeyMessages(err) {
		if strings.Contains(msg, "index: _id_") {
			return true
		}
	}
	return false
}

// IsPostgresDuplicateKeyError reports a unique_violation on any constraint.
func IsPostgresDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// IsPostgresDuplicateIDError reports a unique_violation on a table's primary key.
func IsPostgresDuplicateIDError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation && strings.HasSuffix(pgErr.ConstraintName, "_pkey")
}
