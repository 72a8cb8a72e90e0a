package mongo

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/rasuu-adhi/bloodline-streetwear-shop/internal/app/config"
	"github.com/rasuu-adhi/bloodline-streetwear-shop/internal/domain/entity"
	"github.com/rasuu-adhi/bloodline-streetwear-shop/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
)

func startMongo(t *testing.T) (*mongo.Client, config.MongoDBConfig) {
	t.Helper()

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("docker unavailable: %v", err)
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "mongo",
		Tag:        "7",
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Purge(resource) })

	cfg := config.MongoDBConfig{
		URI:        fmt.Sprintf("mongodb://localhost:%s", resource.GetPort("27017/tcp")),
		Database:   "storefront_test",
		Collection: "products",
	}

	var client *mongo.Client
	pool.MaxWait = 60 * time.Second
	require.NoError(t, pool.Retry(func() error {
		var err error
		client, err = NewClient(context.Background(), cfg)
		return err
	}))
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })
	return client, cfg
}

func TestProductRepository_Mongo(t *testing.T) {
	client, cfg := startMongo(t)
	repo := NewProductRepository(client, cfg)
	ctx := context.Background()

	older := &entity.Product{
		ID: "older", Name: "Urban Shadow Hoodie", Price: decimal.RequireFromString("89.99"),
		Category: entity.CategoryMen, Rating: decimal.RequireFromString("4.8"),
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	newer := &entity.Product{
		ID: "newer", Name: "Street Logo Tee", Price: decimal.RequireFromString("34.99"),
		Category: entity.CategoryWomen, Featured: true,
		CreatedAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.Create(ctx, older))
	require.NoError(t, repo.Create(ctx, newer))
	assert.ErrorIs(t, repo.Create(ctx, newer), repository.ErrAlreadyExists)

	products, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "newer", products[0].ID)
	assert.Equal(t, "89.99", products[1].Price.String())

	got, err := repo.GetByID(ctx, "older")
	require.NoError(t, err)
	assert.True(t, got.Rating.Equal(decimal.RequireFromString("4.8")))

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, repo.Delete(ctx, "older"))
	assert.ErrorIs(t, repo.Delete(ctx, "older"), repository.ErrNotFound)
}
