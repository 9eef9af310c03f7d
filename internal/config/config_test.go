package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MemoryDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", StoreDriverMemory)
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load("api")
	require.NoError(t, err)
	assert.Equal(t, "api", cfg.RunMode)
	assert.Equal(t, "s3cret", cfg.JwtSecret)
	assert.Equal(t, time.Hour, cfg.JwtTTL)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, time.Minute, cfg.SupplierCacheTTL)
	assert.True(t, cfg.InquiryAllowReRespond)
	assert.Equal(t, 10, cfg.InquiryResponseMinLength)
	assert.Equal(t, "marketlink", cfg.MongoDbName)
	assert.Equal(t, 30*time.Minute, cfg.DbConnMaxLifetime)
	assert.Equal(t, 15*time.Minute, cfg.ImageUploadURLTTL)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", StoreDriverMongo)
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("INQUIRY_ALLOW_RERESPOND", "false")
	t.Setenv("JWT_TTL_SECONDS", "60")
	t.Setenv("MOCK_SERVICES", "true")

	cfg, err := Load("bg")
	require.NoError(t, err)
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoURI)
	assert.False(t, cfg.InquiryAllowReRespond)
	assert.Equal(t, time.Minute, cfg.JwtTTL)
	assert.True(t, cfg.MockServices)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"postgres needs a dsn", map[string]string{"STORE_DRIVER": StoreDriverPostgres, "JWT_SECRET": "x"}, "POSTGRES_DSN"},
		{"unknown driver", map[string]string{"STORE_DRIVER": "sqlite", "JWT_SECRET": "x"}, "STORE_DRIVER"},
		{"jwt secret required", map[string]string{"STORE_DRIVER": StoreDriverMemory}, "JWT_SECRET"},
		{"bad integer", map[string]string{"STORE_DRIVER": StoreDriverMemory, "JWT_SECRET": "x", "BCRYPT_COST": "twelve"}, "BCRYPT_COST"},
		{"bad bool", map[string]string{"STORE_DRIVER": StoreDriverMemory, "JWT_SECRET": "x", "REDIS_ENABLED": "maybe"}, "REDIS_ENABLED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, ok := tt.env["JWT_SECRET"]; !ok {
				unsetForTest(t, "JWT_SECRET")
			}
			if tt.env["STORE_DRIVER"] == StoreDriverPostgres {
				unsetForTest(t, "POSTGRES_DSN")
			}

			_, err := Load("api")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, StoreDriverMemory, cfg.StoreDriver)
	assert.Equal(t, 4, cfg.BcryptCost, "tests hash cheaply")
	assert.NotEmpty(t, cfg.JwtSecret)
}

// unsetForTest removes key for the duration of the test.
func unsetForTest(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}
