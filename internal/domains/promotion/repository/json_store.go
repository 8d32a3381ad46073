package repository

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"shopcms-backend/internal/domains/promotion/model"
	"shopcms-backend/internal/infrastructure/filestore"
)

const promotionsCollection = "promotions"

// JSONRepository stores promotions in the flat-file store
type JSONRepository struct {
	store *filestore.Store
	now   func() time.Time
}

func NewJSONRepository(store *filestore.Store) *JSONRepository {
	return &JSONRepository{store: store, now: time.Now}
}

func loadPromotions(tx *filestore.Tx) ([]*model.Promotion, error) {
	var promotions []*model.Promotion
	if err := tx.Read(promotionsCollection, &promotions); err != nil {
		return nil, err
	}
	return promotions, nil
}

func findLive(promotions []*model.Promotion, id uuid.UUID) (int, *model.Promotion) {
	for i, p := range promotions {
		if p.ID == id && !p.IsDeleted() {
			return i, p
		}
	}
	return -1, nil
}

// sort_order desc, then id for a stable order
func sortPromotions(promotions []*model.Promotion) {
	sort.SliceStable(promotions, func(i, j int) bool {
		if promotions[i].SortOrder != promotions[j].SortOrder {
			return promotions[i].SortOrder > promotions[j].SortOrder
		}
		return promotions[i].ID.String() < promotions[j].ID.String()
	})
}

func (r *JSONRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Promotion, error) {
	var found *model.Promotion
	err := r.store.View(func(tx *filestore.Tx) error {
		promotions, err := loadPromotions(tx)
		if err != nil {
			return err
		}
		_, found = findLive(promotions, id)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, model.ErrPromotionNotFound
	}
	return found, nil
}

func (r *JSONRepository) List(ctx context.Context, filter *model.ListPromotionsFilter) ([]*model.Promotion, int, error) {
	var matched []*model.Promotion
	err := r.store.View(func(tx *filestore.Tx) error {
		promotions, err := loadPromotions(tx)
		if err != nil {
			return err
		}
		for _, p := range promotions {
			if !p.IsDeleted() && filter.Matches(p) {
				matched = append(matched, p)
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	sortPromotions(matched)
	total := len(matched)
	start := (filter.Page - 1) * filter.Limit
	if start >= total {
		return []*model.Promotion{}, total, nil
	}
	end := start + filter.Limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (r *JSONRepository) ListRunning(ctx context.Context, now time.Time) ([]*model.Promotion, error) {
	var running []*model.Promotion
	err := r.store.View(func(tx *filestore.Tx) error {
		promotions, err := loadPromotions(tx)
		if err != nil {
			return err
		}
		for _, p := range promotions {
			if p.IsRunning(now) {
				running = append(running, p)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortPromotions(running)
	return running, nil
}

func (r *JSONRepository) Create(ctx context.Context, p *model.Promotion) error {
	return r.store.Update(func(tx *filestore.Tx) error {
		promotions, err := loadPromotions(tx)
		if err != nil {
			return err
		}

		now := r.now().UTC()
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		p.Version = 1
		p.CreatedAt = now
		p.UpdatedAt = now
		return tx.Write(promotionsCollection, append(promotions, p))
	})
}

func (r *JSONRepository) Update(ctx context.Context, p *model.Promotion) error {
	return r.store.Update(func(tx *filestore.Tx) error {
		promotions, err := loadPromotions(tx)
		if err != nil {
			return err
		}
		i, current := findLive(promotions, p.ID)
		if current == nil || current.Version != p.Version {
			return model.ErrVersionConflict
		}

		p.CreatedAt = current.CreatedAt
		p.UpdatedAt = r.now().UTC()
		p.Version = current.Version + 1
		promotions[i] = p
		return tx.Write(promotionsCollection, promotions)
	})
}

func (r *JSONRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.store.Update(func(tx *filestore.Tx) error {
		promotions, err := loadPromotions(tx)
		if err != nil {
			return err
		}
		_, p := findLive(promotions, id)
		if p == nil {
			return model.ErrPromotionNotFound
		}

		now := r.now().UTC()
		p.DeletedAt = &now
		p.IsActive = false
		p.UpdatedAt = now
		return tx.Write(promotionsCollection, promotions)
	})
}

func (r *JSONRepository) DeactivateExpired(ctx context.Context, now time.Time) (int, error) {
	count := 0
	err := r.store.Update(func(tx *filestore.Tx) error {
		promotions, err := loadPromotions(tx)
		if err != nil {
			return err
		}
		for _, p := range promotions {
			if p.IsActive && !p.IsDeleted() && p.EndDate != nil && now.After(*p.EndDate) {
				p.IsActive = false
				p.Version++
				p.UpdatedAt = now.UTC()
				count++
			}
		}
		if count == 0 {
			return nil
		}
		return tx.Write(promotionsCollection, promotions)
	})
	return count, err
}
