package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/DFBlok/market-link-app/internal/config"
	"github.com/DFBlok/market-link-app/internal/models"
	"github.com/DFBlok/market-link-app/internal/store/memstore"
	"github.com/DFBlok/market-link-app/internal/utils"
)

// mockTaskClient records enqueued tasks.
type mockTaskClient struct {
	mock.Mock
}

func (m *mockTaskClient) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	args := m.Called(ctx, task)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*asynq.TaskInfo), args.Error(1)
}

func taskOfType(typename string) interface{} {
	return mock.MatchedBy(func(t *asynq.Task) bool { return t.Type() == typename })
}

func enqueued(queue string) *asynq.TaskInfo {
	return &asynq.TaskInfo{ID: "task-1", Queue: queue}
}

// mapCache is an in-process cache.Cache that counts deletes.
type mapCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	deletes map[string]int
}

func newMapCache() *mapCache {
	return &mapCache{entries: map[string][]byte{}, deletes: map[string]int{}}
}

func (c *mapCache) Get(ctx context.Context, key string, dst interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, dst)
}

func (c *mapCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = data
	return nil
}

func (c *mapCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
		c.deletes[k]++
	}
	return nil
}

func (c *mapCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

func testConfig() *config.Config {
	return config.Defaults()
}

func createUser(t *testing.T, st *memstore.Store, name, email string, userType models.UserType) *models.User {
	t.Helper()
	u := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: "hash",
		UserType:     userType,
		Role:         models.RoleUser,
		CreatedAt:    models.Now(),
	}
	require.NoError(t, st.CreateUser(context.Background(), u))
	return u
}

func createProduct(t *testing.T, st *memstore.Store, supplierID utils.SixID, name string) *models.Product {
	t.Helper()
	now := models.Now()
	p := &models.Product{SupplierID: supplierID, CreatedAt: now, UpdatedAt: now}
	p.Apply(validProductFields(name))
	require.NoError(t, st.CreateProduct(context.Background(), p))
	return p
}

func validProductFields(name string) models.ProductFields {
	return models.ProductFields{
		Name:             name,
		Description:      "Cold rolled, 2mm",
		Category:         "Raw Materials",
		Price:            "R150/kg",
		LeadTime:         "2 weeks",
		MinOrderQuantity: "100kg",
	}
}

func requireKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, KindOf(err), "unexpected error: %v", err)
}
