package utils

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var loadEnvOnce sync.Once

// loadTestEnv loads the project .env file once so integration settings are visible.
func loadTestEnv() {
	loadEnvOnce.Do(func() {
		_, filename, _, _ := runtime.Caller(0)
		// project root is 2 levels up from this file
		projectRoot := filepath.Join(filepath.Dir(filename), "..", "..")
		if err := godotenv.Load(filepath.Join(projectRoot, ".env")); err != nil {
			godotenv.Load()
		}
	})
}

// GetTestMongoURI returns MONGO_URI_TEST, or "" when mongo tests should be skipped.
func GetTestMongoURI() string {
	loadTestEnv()
	return os.Getenv("MONGO_URI_TEST")
}

// GetTestPostgresDSN returns POSTGRES_DSN_TEST, or "" when postgres tests should be skipped.
func GetTestPostgresDSN() string {
	loadTestEnv()
	return os.Getenv("POSTGRES_DSN_TEST")
}

// SetupTestDB creates a test MongoDB database connection and returns the database instance
// It also drops the named collections to ensure a clean state
func SetupTestDB(t *testing.T, dbName string, collections ...string) *mongo.Database {
	uri := GetTestMongoURI()
	if uri == "" {
		t.Skip("MONGO_URI_TEST not set")
	}
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(uri))
	require.NoError(t, err, "Failed to connect to MongoDB")
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })
	db := client.Database(dbName)

	for _, collection := range collections {
		_ = db.Collection(collection).Drop(context.Background())
	}

	return db
}
