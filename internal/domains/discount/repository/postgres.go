package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"

	"shopcms-backend/internal/domains/discount/model"
)

const pgUniqueViolation = "23505"

const discountColumns = `
	id, code, name, description,
	type, value, max_discount,
	min_purchase, max_purchase, min_items,
	applies_to, target_ids, customer_eligibility,
	buy_quantity, get_quantity,
	start_date, end_date,
	max_uses, max_uses_per_customer, used_count,
	priority, is_active, combinable, auto_apply,
	first_purchase_only, exclude_sale_items,
	version, created_at, updated_at, deleted_at`

// PostgresRepository implements DiscountRepository and UsageRepository on PostgreSQL
type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// scanDiscount reads one row selected with discountColumns
func scanDiscount(row pgx.Row) (*model.Discount, error) {
	var (
		r         model.DiscountRecord
		code      *string
		targetIDs []uuid.UUID
	)

	err := row.Scan(
		&r.ID,                  // id
		&code,                  // code (nullable for auto-apply rules)
		&r.Name,                // name
		&r.Description,         // description (nullable)
		&r.Type,                // type
		&r.Value,               // value
		&r.MaxDiscount,         // max_discount
		&r.MinPurchase,         // min_purchase
		&r.MaxPurchase,         // max_purchase
		&r.MinItems,            // min_items
		&r.AppliesTo,           // applies_to
		&targetIDs,             // target_ids (uuid[])
		&r.CustomerEligibility, // customer_eligibility
		&r.BuyQuantity,         // buy_quantity
		&r.GetQuantity,         // get_quantity
		&r.StartDate,           // start_date (nullable)
		&r.EndDate,             // end_date (nullable)
		&r.MaxUses,             // max_uses
		&r.MaxUsesPerCustomer,  // max_uses_per_customer
		&r.UsedCount,           // used_count
		&r.Priority,            // priority
		&r.IsActive,            // is_active
		&r.Combinable,          // combinable
		&r.AutoApply,           // auto_apply
		&r.FirstPurchaseOnly,   // first_purchase_only
		&r.ExcludeSaleItems,    // exclude_sale_items
		&r.Version,             // version
		&r.CreatedAt,           // created_at
		&r.UpdatedAt,           // updated_at
		&r.DeletedAt,           // deleted_at (nullable)
	)
	if err != nil {
		return nil, err
	}

	if code != nil {
		r.Code = *code
	}
	r.TargetIDs = targetIDs

	return r.ToDiscount()
}

func collectDiscounts(rows pgx.Rows) ([]*model.Discount, error) {
	defer rows.Close()

	var discounts []*model.Discount
	for rows.Next() {
		d, err := scanDiscount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan discount: %w", err)
		}
		discounts = append(discounts, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate discounts: %w", err)
	}
	return discounts, nil
}

// -------------------------------------------------------------------
// READ OPERATIONS
// -------------------------------------------------------------------

func (r *PostgresRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Discount, error) {
	query := `SELECT ` + discountColumns + ` FROM discounts WHERE id = $1 AND deleted_at IS NULL`

	d, err := scanDiscount(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrDiscountNotFound
		}
		return nil, fmt.Errorf("find discount by id: %w", err)
	}
	return d, nil
}

// FindByCode looks a code up case-insensitively (no active/time filter)
func (r *PostgresRepository) FindByCode(ctx context.Context, code string) (*model.Discount, error) {
	query := `SELECT ` + discountColumns + ` FROM discounts WHERE LOWER(code) = LOWER($1) AND deleted_at IS NULL`

	d, err := scanDiscount(r.db.QueryRow(ctx, query, strings.TrimSpace(code)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrDiscountNotFound
		}
		return nil, fmt.Errorf("find discount by code: %w", err)
	}
	return d, nil
}

// FindByCodes loads the discounts matching any of the entered codes
func (r *PostgresRepository) FindByCodes(ctx context.Context, codes []string) ([]*model.Discount, error) {
	if len(codes) == 0 {
		return nil, nil
	}

	normalized := make([]string, len(codes))
	for i, c := range codes {
		normalized[i] = model.NormalizeCode(c)
	}

	query := `SELECT ` + discountColumns + `
		FROM discounts
		WHERE UPPER(code) = ANY($1) AND deleted_at IS NULL`

	rows, err := r.db.Query(ctx, query, normalized)
	if err != nil {
		return nil, fmt.Errorf("find discounts by codes: %w", err)
	}
	return collectDiscounts(rows)
}

// ListAutoApply returns the active auto-apply rules that have not ended yet.
// Start date and caps are left to the evaluator.
func (r *PostgresRepository) ListAutoApply(ctx context.Context) ([]*model.Discount, error) {
	query := `SELECT ` + discountColumns + `
		FROM discounts
		WHERE auto_apply = true
		  AND is_active = true
		  AND deleted_at IS NULL
		  AND (end_date IS NULL OR end_date >= NOW())
		ORDER BY priority DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list auto-apply discounts: %w", err)
	}
	return collectDiscounts(rows)
}

// List - admin listing with status/type/search filters
func (r *PostgresRepository) List(ctx context.Context, filter *model.ListDiscountsFilter) ([]*model.Discount, int, error) {
	whereClauses := []string{"deleted_at IS NULL"}
	args := []interface{}{}
	argIndex := 1

	switch filter.Status {
	case string(model.DiscountStatusActive):
		whereClauses = append(whereClauses, `is_active = true
			AND (start_date IS NULL OR start_date <= NOW())
			AND (end_date IS NULL OR end_date >= NOW())
			AND (max_uses = 0 OR used_count < max_uses)`)
	case string(model.DiscountStatusInactive):
		whereClauses = append(whereClauses, "is_active = false")
	case string(model.DiscountStatusExpired):
		whereClauses = append(whereClauses, "is_active = true AND end_date < NOW()")
	case string(model.DiscountStatusUpcoming):
		whereClauses = append(whereClauses, "is_active = true AND (end_date IS NULL OR end_date >= NOW()) AND start_date > NOW()")
	case string(model.DiscountStatusExhausted):
		whereClauses = append(whereClauses, `is_active = true
			AND (start_date IS NULL OR start_date <= NOW())
			AND (end_date IS NULL OR end_date >= NOW())
			AND max_uses > 0 AND used_count >= max_uses`)
	}

	if filter.Type != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("type = $%d", argIndex))
		args = append(args, filter.Type)
		argIndex++
	}

	if filter.AutoApply != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("auto_apply = $%d", argIndex))
		args = append(args, *filter.AutoApply)
		argIndex++
	}

	if filter.Search != "" {
		whereClauses = append(whereClauses, fmt.Sprintf(
			"(LOWER(COALESCE(code, '')) LIKE $%d OR LOWER(name) LIKE $%d)", argIndex, argIndex,
		))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		argIndex++
	}

	whereSQL := "WHERE " + strings.Join(whereClauses, " AND ")

	direction := "DESC"
	if strings.EqualFold(filter.SortOrder, "asc") {
		direction = "ASC"
	}
	// sort_by is whitelisted by ListDiscountsFilter.Validate
	orderBySQL := fmt.Sprintf("ORDER BY %s %s, id ASC", pq.QuoteIdentifier(filter.SortBy), direction)

	query := fmt.Sprintf(`SELECT %s FROM discounts %s %s LIMIT $%d OFFSET $%d`,
		discountColumns, whereSQL, orderBySQL, argIndex, argIndex+1)

	rows, err := r.db.Query(ctx, query, append(args, filter.Limit, filter.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("list discounts: %w", err)
	}
	discounts, err := collectDiscounts(rows)
	if err != nil {
		return nil, 0, err
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM discounts %s", whereSQL)
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count discounts: %w", err)
	}

	return discounts, total, nil
}

// -------------------------------------------------------------------
// WRITE OPERATIONS
// -------------------------------------------------------------------

// Create inserts a new discount. used_count always starts at 0.
func (r *PostgresRepository) Create(ctx context.Context, d *model.Discount) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	rec := d.ToRecord()

	query := `
		INSERT INTO discounts (
			id, code, name, description,
			type, value, max_discount,
			min_purchase, max_purchase, min_items,
			applies_to, target_ids, customer_eligibility,
			buy_quantity, get_quantity,
			start_date, end_date,
			max_uses, max_uses_per_customer, used_count,
			priority, is_active, combinable, auto_apply,
			first_purchase_only, exclude_sale_items,
			version, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, 0,
			$20, $21, $22, $23, $24, $25, 1, NOW(), NOW()
		)
		RETURNING version, created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		rec.ID,
		nullableCode(rec.Code),
		rec.Name,
		rec.Description,
		rec.Type,
		rec.Value,
		rec.MaxDiscount,
		rec.MinPurchase,
		rec.MaxPurchase,
		rec.MinItems,
		rec.AppliesTo,
		rec.TargetIDs,
		rec.CustomerEligibility,
		rec.BuyQuantity,
		rec.GetQuantity,
		rec.StartDate,
		rec.EndDate,
		rec.MaxUses,
		rec.MaxUsesPerCustomer,
		rec.Priority,
		rec.IsActive,
		rec.Combinable,
		rec.AutoApply,
		rec.FirstPurchaseOnly,
		rec.ExcludeSaleItems,
	).Scan(&d.Version, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrDuplicateCode
		}
		return fmt.Errorf("create discount: %w", err)
	}

	d.Limits.UsedCount = 0
	return nil
}

// Update writes every editable field with optimistic locking on version.
// used_count is never written here.
func (r *PostgresRepository) Update(ctx context.Context, d *model.Discount) error {
	rec := d.ToRecord()

	query := `
		UPDATE discounts
		SET
			code = $2,
			name = $3,
			description = $4,
			type = $5,
			value = $6,
			max_discount = $7,
			min_purchase = $8,
			max_purchase = $9,
			min_items = $10,
			applies_to = $11,
			target_ids = $12,
			customer_eligibility = $13,
			buy_quantity = $14,
			get_quantity = $15,
			start_date = $16,
			end_date = $17,
			max_uses = $18,
			max_uses_per_customer = $19,
			priority = $20,
			is_active = $21,
			combinable = $22,
			auto_apply = $23,
			first_purchase_only = $24,
			exclude_sale_items = $25,
			version = version + 1,
			updated_at = NOW()
		WHERE id = $1 AND version = $26 AND deleted_at IS NULL
		  AND ($18 = 0 OR $18 >= used_count)
		RETURNING version, used_count, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		rec.ID,
		nullableCode(rec.Code),
		rec.Name,
		rec.Description,
		rec.Type,
		rec.Value,
		rec.MaxDiscount,
		rec.MinPurchase,
		rec.MaxPurchase,
		rec.MinItems,
		rec.AppliesTo,
		rec.TargetIDs,
		rec.CustomerEligibility,
		rec.BuyQuantity,
		rec.GetQuantity,
		rec.StartDate,
		rec.EndDate,
		rec.MaxUses,
		rec.MaxUsesPerCustomer,
		rec.Priority,
		rec.IsActive,
		rec.Combinable,
		rec.AutoApply,
		rec.FirstPurchaseOnly,
		rec.ExcludeSaleItems,
		rec.Version, // optimistic lock
	).Scan(&d.Version, &d.Limits.UsedCount, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// version mismatch, missing row or a concurrent redemption pushed used_count past max_uses
			return model.ErrVersionConflict
		}
		if isUniqueViolation(err) {
			return model.ErrDuplicateCode
		}
		return fmt.Errorf("update discount: %w", err)
	}

	return nil
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, id uuid.UUID, isActive bool) error {
	query := `
		UPDATE discounts
		SET is_active = $2, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.Exec(ctx, query, id, isActive)
	if err != nil {
		return fmt.Errorf("update discount status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return model.ErrDiscountNotFound
	}
	return nil
}

// SoftDelete marks a never-used discount as deleted.
// The used_count check is part of the UPDATE so a concurrent redemption cannot slip in.
func (r *PostgresRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE discounts
		SET deleted_at = NOW(), is_active = false, code = NULL, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL AND used_count = 0
	`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("soft delete discount: %w", err)
	}
	if result.RowsAffected() == 1 {
		return nil
	}

	// Distinguish "missing" from "already used"
	if _, err := r.FindByID(ctx, id); err != nil {
		return err
	}
	return model.ErrCannotDeleteUsed
}

// DeactivateExpired switches off active discounts whose end_date has passed
func (r *PostgresRepository) DeactivateExpired(ctx context.Context, now time.Time) (int, error) {
	query := `
		UPDATE discounts
		SET is_active = false, version = version + 1, updated_at = NOW()
		WHERE is_active = true AND deleted_at IS NULL AND end_date IS NOT NULL AND end_date < $1
	`

	result, err := r.db.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("deactivate expired discounts: %w", err)
	}
	return int(result.RowsAffected()), nil
}

// -------------------------------------------------------------------
// UTILITY
// -------------------------------------------------------------------

func (r *PostgresRepository) CheckCodeExists(ctx context.Context, code string, excludeID *uuid.UUID) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM discounts WHERE LOWER(code) = LOWER($1) AND deleted_at IS NULL AND ($2::uuid IS NULL OR id <> $2))`

	var exists bool
	if err := r.db.QueryRow(ctx, query, code, excludeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check code exists: %w", err)
	}
	return exists, nil
}

func nullableCode(code string) *string {
	if code == "" {
		return nil
	}
	return &code
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
