package repository

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"shopcms-backend/internal/domains/catalog/model"
	"shopcms-backend/internal/infrastructure/filestore"
)

const (
	productsCollection   = "products"
	categoriesCollection = "categories"
)

type jsonRepository struct {
	store *filestore.Store
}

// NewJSONRepository reads products.json and categories.json from the data dir
func NewJSONRepository(store *filestore.Store) Repository {
	return &jsonRepository{store: store}
}

func (r *jsonRepository) loadProducts() ([]*model.Product, error) {
	var products []*model.Product
	err := r.store.View(func(tx *filestore.Tx) error {
		return tx.Read(productsCollection, &products)
	})
	return products, err
}

func (r *jsonRepository) GetProductByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	products, err := r.loadProducts()
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, model.ErrProductNotFound
}

func (r *jsonRepository) GetProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.Product, error) {
	products, err := r.loadProducts()
	if err != nil {
		return nil, err
	}

	wanted := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}

	found := make([]*model.Product, 0, len(ids))
	for _, p := range products {
		if _, ok := wanted[p.ID]; ok {
			found = append(found, p)
		}
	}
	return found, nil
}

func (r *jsonRepository) ListCategories(ctx context.Context, activeOnly bool) ([]*model.Category, error) {
	var categories []*model.Category
	err := r.store.View(func(tx *filestore.Tx) error {
		return tx.Read(categoriesCollection, &categories)
	})
	if err != nil {
		return nil, err
	}

	out := make([]*model.Category, 0, len(categories))
	for _, c := range categories {
		if activeOnly && !c.IsActive {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}
