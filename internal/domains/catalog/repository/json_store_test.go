package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopcms-backend/internal/domains/catalog/model"
	"shopcms-backend/internal/infrastructure/filestore"
)

func seedCatalog(t *testing.T) (*filestore.Store, []*model.Product) {
	t.Helper()

	store, err := filestore.New(t.TempDir())
	require.NoError(t, err)

	products := []*model.Product{
		{ID: uuid.New(), Name: "Mug", Slug: "mug", Price: decimal.NewFromInt(12), Status: model.ProductStatusActive},
		{ID: uuid.New(), Name: "Poster", Slug: "poster", Price: decimal.NewFromInt(30), Status: model.ProductStatusDraft},
	}
	categories := []*model.Category{
		{ID: uuid.New(), Name: "Prints", Slug: "prints", SortOrder: 2, IsActive: true},
		{ID: uuid.New(), Name: "Archive", Slug: "archive", SortOrder: 1, IsActive: false},
		{ID: uuid.New(), Name: "Kitchen", Slug: "kitchen", SortOrder: 1, IsActive: true},
	}

	require.NoError(t, store.Update(func(tx *filestore.Tx) error {
		if err := tx.Write(productsCollection, products); err != nil {
			return err
		}
		return tx.Write(categoriesCollection, categories)
	}))
	return store, products
}

func TestJSONRepository_Products(t *testing.T) {
	store, products := seedCatalog(t)
	repo := NewJSONRepository(store)
	ctx := context.Background()

	p, err := repo.GetProductByID(ctx, products[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Mug", p.Name)

	_, err = repo.GetProductByID(ctx, uuid.New())
	assert.ErrorIs(t, err, model.ErrProductNotFound)

	found, err := repo.GetProductsByIDs(ctx, []uuid.UUID{products[1].ID, uuid.New()})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, products[1].ID, found[0].ID)
}

func TestJSONRepository_ListCategories(t *testing.T) {
	store, _ := seedCatalog(t)
	repo := NewJSONRepository(store)

	all, err := repo.ListCategories(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Archive", all[0].Name)

	active, err := repo.ListCategories(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "Kitchen", active[0].Name)
	assert.Equal(t, "Prints", active[1].Name)
}
