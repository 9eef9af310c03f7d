package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/DFBlok/market-link-app/internal/utils"
	"github.com/jackc/pgx/v5/pgconn"
	"go.mongodb.org/mongo-driver/mongo"
)

// mockMongoDuplicateKeyError creates an error that IsMongoDuplicateKeyError will recognize.
func mockMongoDuplicateKeyError(index, key string) error {
	mongoErr := mongo.WriteError{
		Code:    11000,
		Message: fmt.Sprintf("E11000 duplicate key error collection: test.collection index: %s dup key: { : \"%s\" }", index, key),
	}
	return mongo.WriteException{WriteErrors: []mongo.WriteError{mongoErr}}
}

func mockPgUniqueViolation(constraint string) error {
	return fmt.Errorf("insert failed: %w", &pgconn.PgError{Code: "23505", ConstraintName: constraint})
}

func TestWithRetries_SuccessfulFirstAttempt(t *testing.T) {
	var opCalled int
	operation := func() error {
		opCalled++
		return nil
	}

	err := WithRetries(operation, 3, IsMongoDuplicateKeyError)
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if opCalled != 1 {
		t.Errorf("Expected operation to be called 1 time, got %d", opCalled)
	}
}

func TestWithRetries_FailureNonDuplicateKey(t *testing.T) {
	var opCalled int
	expectedErr := errors.New("some other error")
	operation := func() error {
		opCalled++
		return expectedErr
	}

	err := WithRetries(operation, 3, IsMongoDuplicateKeyError)
	if !errors.Is(err, expectedErr) {
		t.Errorf("Expected error %v, got %v", expectedErr, err)
	}
	if opCalled != 1 {
		t.Errorf("Expected operation to be called 1 time, got %d", opCalled)
	}
}

func TestWithRetries_ExhaustRetries(t *testing.T) {
	var opCalled int
	collidingID := utils.SixID{0, 0, 0, 0, 0, 1}

	operation := func() error {
		opCalled++
		return mockMongoDuplicateKeyError("_id_", collidingID.String())
	}

	maxRetries := 3
	err := WithRetries(operation, maxRetries, IsMongoDuplicateKeyError)

	if err == nil {
		t.Fatal("Expected a duplicate key error, got nil")
	}
	if !IsMongoDuplicateKeyError(err) {
		t.Errorf("Expected a Mongo duplicate key error, got %T: %v", err, err)
	}
	if opCalled != maxRetries+1 {
		t.Errorf("Expected operation to be called %d times, got %d", maxRetries+1, opCalled)
	}
}

func TestTry_CollisionResolves(t *testing.T) {
	originalHook := utils.NewSixIDHook
	defer func() { utils.NewSixIDHook = originalHook }()

	id1 := utils.SixID{1, 2, 3, 4, 5, 1}
	id2 := utils.SixID{1, 2, 3, 4, 5, 2}

	// id1 is already taken, so the first two attempts collide
	idsToReturn := []utils.SixID{id1, id1, id2}
	hookCallCount := 0
	utils.NewSixIDHook = func() (utils.SixID, bool) {
		if hookCallCount < len(idsToReturn) {
			id := idsToReturn[hookCallCount]
			hookCallCount++
			return id, true
		}
		return utils.SixID{}, false
	}

	insertedIDs := map[utils.SixID]bool{id1: true}
	var opCalled int

	operation := func() error {
		opCalled++
		newID := utils.NewSixID()
		if insertedIDs[newID] {
			return mockPgUniqueViolation("users_pkey")
		}
		insertedIDs[newID] = true
		return nil
	}

	if err := Try(operation, IsPostgresDuplicateIDError); err != nil {
		t.Fatalf("Expected no error as collision should resolve, got: %v", err)
	}
	if opCalled != 3 {
		t.Errorf("Expected operation to be called 3 times, got %d", opCalled)
	}
	if !insertedIDs[id2] {
		t.Errorf("Expected ID %s to be inserted after retry", id2.String())
	}
	if hookCallCount != 3 {
		t.Errorf("Expected NewSixIDHook to be called 3 times, got %d", hookCallCount)
	}
}

func TestTry_DoesNotRetryOtherUniqueConstraints(t *testing.T) {
	var opCalled int
	err := Try(func() error {
		opCalled++
		return mockPgUniqueViolation("idx_users_email")
	}, IsPostgresDuplicateIDError)

	if !IsPostgresDuplicateKeyError(err) {
		t.Errorf("Expected unique violation to be returned, got %v", err)
	}
	if opCalled != 1 {
		t.Errorf("Expected operation to be called once, got %d", opCalled)
	}
}

func TestDuplicateKeyClassifiers(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		anyDup  func(error) bool
		idDup   func(error) bool
		wantAny bool
		wantID  bool
	}{
		{"mongo id", mockMongoDuplicateKeyError("_id_", "X"), IsMongoDuplicateKeyError, IsMongoDuplicateIDError, true, true},
		{"mongo email", mockMongoDuplicateKeyError("email_1", "a@b.c"), IsMongoDuplicateKeyError, IsMongoDuplicateIDError, true, false},
		{"mongo other", errors.New("boom"), IsMongoDuplicateKeyError, IsMongoDuplicateIDError, false, false},
		{"pg pkey", mockPgUniqueViolation("inquiries_pkey"), IsPostgresDuplicateKeyError, IsPostgresDuplicateIDError, true, true},
		{"pg email", mockPgUniqueViolation("idx_users_email"), IsPostgresDuplicateKeyError, IsPostgresDuplicateIDError, true, false},
		{"pg fk", &pgconn.PgError{Code: "23503"}, IsPostgresDuplicateKeyError, IsPostgresDuplicateIDError, false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.anyDup(tc.err); got != tc.wantAny {
				t.Errorf("duplicate key: got %v, want %v", got, tc.wantAny)
			}
			if got := tc.idDup(tc.err); got != tc.wantID {
				t.Errorf("duplicate id: got %v, want %v", got, tc.wantID)
			}
		})
	}
}
