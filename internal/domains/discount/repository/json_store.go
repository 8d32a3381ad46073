package repository

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"shopcms-backend/internal/domains/discount/model"
	"shopcms-backend/internal/infrastructure/filestore"
)

const (
	discountsCollection = "discounts"
	usageCollection     = "discount_usage"
)

// JSONRepository implements DiscountRepository and UsageRepository on flat JSON files.
// The ledger's compare-and-increment runs under the store's exclusive lock.
type JSONRepository struct {
	store *filestore.Store
	now   func() time.Time
}

func NewJSONRepository(store *filestore.Store) *JSONRepository {
	return &JSONRepository{store: store, now: time.Now}
}

func loadDiscounts(tx *filestore.Tx) ([]*model.Discount, error) {
	var discounts []*model.Discount
	if err := tx.Read(discountsCollection, &discounts); err != nil {
		return nil, err
	}
	return discounts, nil
}

func loadUsage(tx *filestore.Tx) ([]*model.DiscountUsage, error) {
	var usages []*model.DiscountUsage
	if err := tx.Read(usageCollection, &usages); err != nil {
		return nil, err
	}
	return usages, nil
}

func findLive(discounts []*model.Discount, id uuid.UUID) (int, *model.Discount) {
	for i, d := range discounts {
		if d.ID == id && !d.IsDeleted() {
			return i, d
		}
	}
	return -1, nil
}

// -------------------------------------------------------------------
// READ OPERATIONS
// -------------------------------------------------------------------

func (r *JSONRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Discount, error) {
	var found *model.Discount
	err := r.store.View(func(tx *filestore.Tx) error {
		discounts, err := loadDiscounts(tx)
		if err != nil {
			return err
		}
		_, found = findLive(discounts, id)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, model.ErrDiscountNotFound
	}
	return found, nil
}

func (r *JSONRepository) FindByCode(ctx context.Context, code string) (*model.Discount, error) {
	found, err := r.FindByCodes(ctx, []string{code})
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, model.ErrDiscountNotFound
	}
	return found[0], nil
}

func (r *JSONRepository) FindByCodes(ctx context.Context, codes []string) ([]*model.Discount, error) {
	var found []*model.Discount
	err := r.store.View(func(tx *filestore.Tx) error {
		discounts, err := loadDiscounts(tx)
		if err != nil {
			return err
		}
		for _, d := range discounts {
			if d.IsDeleted() {
				continue
			}
			for _, code := range codes {
				if d.MatchesCode(code) {
					found = append(found, d)
					break
				}
			}
		}
		return nil
	})
	return found, err
}

func (r *JSONRepository) ListAutoApply(ctx context.Context) ([]*model.Discount, error) {
	now := r.now()

	var found []*model.Discount
	err := r.store.View(func(tx *filestore.Tx) error {
		discounts, err := loadDiscounts(tx)
		if err != nil {
			return err
		}
		for _, d := range discounts {
			if d.AutoApply && d.Active && !d.IsDeleted() && !d.Schedule.Ended(now) {
				found = append(found, d)
			}
		}
		return nil
	})
	return found, err
}

func (r *JSONRepository) List(ctx context.Context, filter *model.ListDiscountsFilter) ([]*model.Discount, int, error) {
	now := r.now()

	var matched []*model.Discount
	err := r.store.View(func(tx *filestore.Tx) error {
		discounts, err := loadDiscounts(tx)
		if err != nil {
			return err
		}
		for _, d := range discounts {
			if filter.Matches(d, now) {
				matched = append(matched, d)
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	sortDiscounts(matched, filter.SortBy, strings.EqualFold(filter.SortOrder, "asc"))

	total := len(matched)
	start := filter.Offset()
	if start >= total {
		return []*model.Discount{}, total, nil
	}
	end := start + filter.Limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func sortDiscounts(discounts []*model.Discount, sortBy string, asc bool) {
	sort.SliceStable(discounts, func(i, j int) bool {
		a, b := discounts[i], discounts[j]

		var cmp int
		switch sortBy {
		case "priority":
			cmp = compareInts(a.Priority, b.Priority)
		case "code":
			cmp = strings.Compare(a.Code, b.Code)
		case "used_count":
			cmp = compareInts(a.Limits.UsedCount, b.Limits.UsedCount)
		case "end_date":
			cmp = compareTimes(a.Schedule.EndDate, b.Schedule.EndDate)
		default:
			cmp = compareTimes(&a.CreatedAt, &b.CreatedAt)
		}

		if cmp == 0 {
			return bytes.Compare(a.ID[:], b.ID[:]) < 0
		}
		if asc {
			return cmp < 0
		}
		return cmp > 0
	})
}

func compareInts(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// compareTimes orders nil (open ended) after any concrete time
func compareTimes(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case a.Before(*b):
		return -1
	case a.After(*b):
		return 1
	}
	return 0
}

// -------------------------------------------------------------------
// WRITE OPERATIONS
// -------------------------------------------------------------------

func (r *JSONRepository) Create(ctx context.Context, d *model.Discount) error {
	return r.store.Update(func(tx *filestore.Tx) error {
		discounts, err := loadDiscounts(tx)
		if err != nil {
			return err
		}
		if d.Code != "" && codeTaken(discounts, d.Code, nil) {
			return model.ErrDuplicateCode
		}

		now := r.now().UTC()
		if d.ID == uuid.Nil {
			d.ID = uuid.New()
		}
		d.Source = model.RuleSourceDiscount
		d.Limits.UsedCount = 0
		d.Version = 1
		d.CreatedAt = now
		d.UpdatedAt = now

		return tx.Write(discountsCollection, append(discounts, d))
	})
}

func (r *JSONRepository) Update(ctx context.Context, d *model.Discount) error {
	return r.store.Update(func(tx *filestore.Tx) error {
		discounts, err := loadDiscounts(tx)
		if err != nil {
			return err
		}

		i, current := findLive(discounts, d.ID)
		if current == nil || current.Version != d.Version {
			return model.ErrVersionConflict
		}
		if d.Limits.MaxUses > 0 && d.Limits.MaxUses < current.Limits.UsedCount {
			return model.ErrVersionConflict
		}
		if d.Code != "" && codeTaken(discounts, d.Code, &d.ID) {
			return model.ErrDuplicateCode
		}

		d.Limits.UsedCount = current.Limits.UsedCount
		d.CreatedAt = current.CreatedAt
		d.UpdatedAt = r.now().UTC()
		d.Version = current.Version + 1
		discounts[i] = d

		return tx.Write(discountsCollection, discounts)
	})
}

func (r *JSONRepository) UpdateStatus(ctx context.Context, id uuid.UUID, isActive bool) error {
	return r.store.Update(func(tx *filestore.Tx) error {
		discounts, err := loadDiscounts(tx)
		if err != nil {
			return err
		}
		_, d := findLive(discounts, id)
		if d == nil {
			return model.ErrDiscountNotFound
		}

		d.Active = isActive
		d.Version++
		d.UpdatedAt = r.now().UTC()
		return tx.Write(discountsCollection, discounts)
	})
}

func (r *JSONRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.store.Update(func(tx *filestore.Tx) error {
		discounts, err := loadDiscounts(tx)
		if err != nil {
			return err
		}
		_, d := findLive(discounts, id)
		if d == nil {
			return model.ErrDiscountNotFound
		}
		if !d.CanBeDeleted() {
			return model.ErrCannotDeleteUsed
		}

		now := r.now().UTC()
		d.DeletedAt = &now
		d.Active = false
		d.Code = ""
		d.UpdatedAt = now
		return tx.Write(discountsCollection, discounts)
	})
}

func (r *JSONRepository) DeactivateExpired(ctx context.Context, now time.Time) (int, error) {
	count := 0
	err := r.store.Update(func(tx *filestore.Tx) error {
		discounts, err := loadDiscounts(tx)
		if err != nil {
			return err
		}
		for _, d := range discounts {
			if d.Active && !d.IsDeleted() && d.Schedule.Ended(now) {
				d.Active = false
				d.Version++
				d.UpdatedAt = now.UTC()
				count++
			}
		}
		if count == 0 {
			return nil
		}
		return tx.Write(discountsCollection, discounts)
	})
	return count, err
}

func (r *JSONRepository) CheckCodeExists(ctx context.Context, code string, excludeID *uuid.UUID) (bool, error) {
	exists := false
	err := r.store.View(func(tx *filestore.Tx) error {
		discounts, err := loadDiscounts(tx)
		if err != nil {
			return err
		}
		exists = codeTaken(discounts, code, excludeID)
		return nil
	})
	return exists, err
}

func codeTaken(discounts []*model.Discount, code string, excludeID *uuid.UUID) bool {
	for _, d := range discounts {
		if d.IsDeleted() || (excludeID != nil && d.ID == *excludeID) {
			continue
		}
		if d.MatchesCode(code) {
			return true
		}
	}
	return false
}

// -------------------------------------------------------------------
// USAGE LEDGER
// -------------------------------------------------------------------

// CommitUsages applies every commit to an in-memory copy first. Both
// collections are staged in one store Update, which replaces them together
// or leaves both untouched.
func (r *JSONRepository) CommitUsages(ctx context.Context, commits []model.UsageCommit) ([]*model.DiscountUsage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var committed []*model.DiscountUsage
	err := r.store.Update(func(tx *filestore.Tx) error {
		discounts, err := loadDiscounts(tx)
		if err != nil {
			return err
		}
		usages, err := loadUsage(tx)
		if err != nil {
			return err
		}

		now := r.now().UTC()
		for _, c := range commits {
			_, d := findLive(discounts, c.RuleID)
			if d == nil || d.Limits.Exhausted() {
				return &model.UsageExceededError{RuleID: c.RuleID}
			}

			if c.CustomerID != nil && d.Limits.MaxUsesPerCustomer > 0 &&
				countCustomerUsage(usages, c.RuleID, *c.CustomerID) >= d.Limits.MaxUsesPerCustomer {
				return &model.UsageExceededError{RuleID: c.RuleID, PerCustomer: true}
			}

			for _, u := range usages {
				if u.DiscountID == c.RuleID && u.OrderID == c.OrderID {
					return model.ErrDuplicateUsage
				}
			}

			d.Limits.UsedCount++
			d.UpdatedAt = now

			usage := &model.DiscountUsage{
				ID:             uuid.New(),
				DiscountID:     c.RuleID,
				CustomerID:     c.CustomerID,
				OrderID:        c.OrderID,
				DiscountAmount: c.DiscountAmount,
				UsedAt:         now,
			}
			usages = append(usages, usage)
			committed = append(committed, usage)
		}

		if err := tx.Write(discountsCollection, discounts); err != nil {
			return err
		}
		return tx.Write(usageCollection, usages)
	})
	if err != nil {
		return nil, err
	}
	return committed, nil
}

func countCustomerUsage(usages []*model.DiscountUsage, discountID, customerID uuid.UUID) int {
	count := 0
	for _, u := range usages {
		if u.DiscountID == discountID && u.CustomerID != nil && *u.CustomerID == customerID {
			count++
		}
	}
	return count
}

func (r *JSONRepository) CountByCustomer(ctx context.Context, customerID uuid.UUID) (map[uuid.UUID]int, error) {
	counts := make(map[uuid.UUID]int)
	err := r.store.View(func(tx *filestore.Tx) error {
		usages, err := loadUsage(tx)
		if err != nil {
			return err
		}
		for _, u := range usages {
			if u.CustomerID != nil && *u.CustomerID == customerID {
				counts[u.DiscountID]++
			}
		}
		return nil
	})
	return counts, err
}

func (r *JSONRepository) GetUsageHistory(ctx context.Context, discountID uuid.UUID, filter *model.UsageHistoryFilter) ([]*model.DiscountUsage, int, error) {
	matched, err := r.usageOf(discountID, filter)
	if err != nil {
		return nil, 0, err
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].UsedAt.Equal(matched[j].UsedAt) {
			return matched[i].UsedAt.After(matched[j].UsedAt)
		}
		return bytes.Compare(matched[i].ID[:], matched[j].ID[:]) < 0
	})

	total := len(matched)
	start := filter.Offset()
	if start >= total {
		return []*model.DiscountUsage{}, total, nil
	}
	end := start + filter.Limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (r *JSONRepository) GetUsageStats(ctx context.Context, discountID uuid.UUID) (*model.UsageStats, error) {
	usages, err := r.usageOf(discountID, &model.UsageHistoryFilter{})
	if err != nil {
		return nil, err
	}
	return model.ComputeUsageStats(usages), nil
}

func (r *JSONRepository) usageOf(discountID uuid.UUID, filter *model.UsageHistoryFilter) ([]*model.DiscountUsage, error) {
	var matched []*model.DiscountUsage
	err := r.store.View(func(tx *filestore.Tx) error {
		usages, err := loadUsage(tx)
		if err != nil {
			return err
		}
		for _, u := range usages {
			if u.DiscountID != discountID {
				continue
			}
			if filter.From != nil && u.UsedAt.Before(*filter.From) {
				continue
			}
			if filter.To != nil && u.UsedAt.After(*filter.To) {
				continue
			}
			matched = append(matched, u)
		}
		return nil
	})
	return matched, err
}
