package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	discountModel "shopcms-backend/internal/domains/discount/model"
	"shopcms-backend/internal/domains/promotion/model"
)

const promotionColumns = `
	id, title, description, type,
	image_url, link_url,
	discount_type, discount_value, min_purchase,
	product_ids, category_id, buy_quantity, get_quantity,
	start_date, end_date, sort_order, is_active,
	version, created_at, updated_at, deleted_at`

// PostgresRepository triển khai PromotionRepository với PostgreSQL
type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanPromotion(row pgx.Row) (*model.Promotion, error) {
	var (
		p            model.Promotion
		discountType *string
	)

	err := row.Scan(
		&p.ID,            // id
		&p.Title,         // title
		&p.Description,   // description (nullable)
		&p.Type,          // type
		&p.ImageURL,      // image_url (nullable)
		&p.LinkURL,       // link_url (nullable)
		&discountType,    // discount_type (nullable for visual types)
		&p.DiscountValue, // discount_value
		&p.MinPurchase,   // min_purchase
		&p.ProductIDs,    // product_ids (uuid[])
		&p.CategoryID,    // category_id (nullable)
		&p.BuyQuantity,   // buy_quantity
		&p.GetQuantity,   // get_quantity
		&p.StartDate,     // start_date (nullable)
		&p.EndDate,       // end_date (nullable)
		&p.SortOrder,     // sort_order
		&p.IsActive,      // is_active
		&p.Version,       // version
		&p.CreatedAt,     // created_at
		&p.UpdatedAt,     // updated_at
		&p.DeletedAt,     // deleted_at (nullable)
	)
	if err != nil {
		return nil, err
	}
	if discountType != nil {
		p.DiscountType = discountModel.DiscountType(*discountType)
	}
	return &p, nil
}

func collectPromotions(rows pgx.Rows) ([]*model.Promotion, error) {
	defer rows.Close()

	var promotions []*model.Promotion
	for rows.Next() {
		p, err := scanPromotion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan promotion: %w", err)
		}
		promotions = append(promotions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate promotions: %w", err)
	}
	return promotions, nil
}

// -------------------------------------------------------------------
// READ OPERATIONS
// -------------------------------------------------------------------

func (r *PostgresRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Promotion, error) {
	query := `SELECT ` + promotionColumns + ` FROM promotions WHERE id = $1 AND deleted_at IS NULL`

	p, err := scanPromotion(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrPromotionNotFound
		}
		return nil, fmt.Errorf("find promotion by id: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) List(ctx context.Context, filter *model.ListPromotionsFilter) ([]*model.Promotion, int, error) {
	where := []string{"deleted_at IS NULL"}
	args := []interface{}{}
	argPos := 1

	if filter.Type != "" {
		where = append(where, fmt.Sprintf("type = $%d", argPos))
		args = append(args, filter.Type)
		argPos++
	}
	switch filter.Status {
	case "active":
		where = append(where, "is_active = true")
	case "inactive":
		where = append(where, "is_active = false")
	}
	whereSQL := "WHERE " + strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM promotions `+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count promotions: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM promotions %s ORDER BY sort_order DESC, created_at DESC LIMIT $%d OFFSET $%d`,
		promotionColumns, whereSQL, argPos, argPos+1)
	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list promotions: %w", err)
	}
	promotions, err := collectPromotions(rows)
	if err != nil {
		return nil, 0, err
	}
	return promotions, total, nil
}

func (r *PostgresRepository) ListRunning(ctx context.Context, now time.Time) ([]*model.Promotion, error) {
	query := `
		SELECT ` + promotionColumns + `
		FROM promotions
		WHERE deleted_at IS NULL
		  AND is_active = true
		  AND (start_date IS NULL OR start_date <= $1)
		  AND (end_date IS NULL OR end_date >= $1)
		ORDER BY sort_order DESC, id ASC
	`

	rows, err := r.db.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("list running promotions: %w", err)
	}
	return collectPromotions(rows)
}

// -------------------------------------------------------------------
// WRITE OPERATIONS
// -------------------------------------------------------------------

func (r *PostgresRepository) Create(ctx context.Context, p *model.Promotion) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}

	query := `
		INSERT INTO promotions (
			id, title, description, type,
			image_url, link_url,
			discount_type, discount_value, min_purchase,
			product_ids, category_id, buy_quantity, get_quantity,
			start_date, end_date, sort_order, is_active,
			version, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, 1, NOW(), NOW()
		)
		RETURNING version, created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		p.ID,
		p.Title,
		p.Description,
		p.Type,
		p.ImageURL,
		p.LinkURL,
		nullableType(p),
		p.DiscountValue,
		p.MinPurchase,
		p.ProductIDs,
		p.CategoryID,
		p.BuyQuantity,
		p.GetQuantity,
		p.StartDate,
		p.EndDate,
		p.SortOrder,
		p.IsActive,
	).Scan(&p.Version, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create promotion: %w", err)
	}
	return nil
}

// Update ghi đè các field với optimistic locking trên version
func (r *PostgresRepository) Update(ctx context.Context, p *model.Promotion) error {
	query := `
		UPDATE promotions SET
			title = $3, description = $4, type = $5,
			image_url = $6, link_url = $7,
			discount_type = $8, discount_value = $9, min_purchase = $10,
			product_ids = $11, category_id = $12, buy_quantity = $13, get_quantity = $14,
			start_date = $15, end_date = $16, sort_order = $17, is_active = $18,
			version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2 AND deleted_at IS NULL
		RETURNING version, created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		p.ID,
		p.Version,
		p.Title,
		p.Description,
		p.Type,
		p.ImageURL,
		p.LinkURL,
		nullableType(p),
		p.DiscountValue,
		p.MinPurchase,
		p.ProductIDs,
		p.CategoryID,
		p.BuyQuantity,
		p.GetQuantity,
		p.StartDate,
		p.EndDate,
		p.SortOrder,
		p.IsActive,
	).Scan(&p.Version, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ErrVersionConflict
		}
		return fmt.Errorf("update promotion: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE promotions
		SET deleted_at = NOW(), is_active = false, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("soft delete promotion: %w", err)
	}
	if result.RowsAffected() == 0 {
		return model.ErrPromotionNotFound
	}
	return nil
}

func (r *PostgresRepository) DeactivateExpired(ctx context.Context, now time.Time) (int, error) {
	query := `
		UPDATE promotions
		SET is_active = false, version = version + 1, updated_at = NOW()
		WHERE is_active = true AND deleted_at IS NULL AND end_date IS NOT NULL AND end_date < $1
	`

	result, err := r.db.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("deactivate expired promotions: %w", err)
	}
	return int(result.RowsAffected()), nil
}

// -------------------------------------------------------------------
// HELPERS
// -------------------------------------------------------------------

func nullableType(p *model.Promotion) *string {
	if p.DiscountType == "" {
		return nil
	}
	s := string(p.DiscountType)
	return &s
}
