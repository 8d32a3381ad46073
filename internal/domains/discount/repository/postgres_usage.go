package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"shopcms-backend/internal/domains/discount/model"
	"shopcms-backend/pkg/database"
)

// -------------------------------------------------------------------
// USAGE LEDGER
// -------------------------------------------------------------------

// CommitUsages runs every commit of an order in one transaction.
//
// Per discount:
//  1. UPDATE ... SET used_count = used_count + 1 WHERE ... used_count < max_uses
//     (compare-and-increment; the row stays locked until commit)
//  2. re-check max_uses_per_customer while holding that lock
//  3. INSERT the usage row
//
// Any failure rolls the whole order back.
func (r *PostgresRepository) CommitUsages(ctx context.Context, commits []model.UsageCommit) ([]*model.DiscountUsage, error) {
	return database.WithTransactionResult(ctx, r.db, func(tx pgx.Tx) ([]*model.DiscountUsage, error) {
		usages := make([]*model.DiscountUsage, 0, len(commits))
		for _, c := range commits {
			usage, err := r.commitOne(ctx, tx, c)
			if err != nil {
				return nil, err
			}
			usages = append(usages, usage)
		}
		return usages, nil
	})
}

func (r *PostgresRepository) commitOne(ctx context.Context, tx pgx.Tx, c model.UsageCommit) (*model.DiscountUsage, error) {
	var perCustomerCap int
	err := tx.QueryRow(ctx, `
		UPDATE discounts
		SET used_count = used_count + 1, updated_at = NOW()
		WHERE id = $1
		  AND deleted_at IS NULL
		  AND (max_uses = 0 OR used_count < max_uses)
		RETURNING max_uses_per_customer
	`, c.RuleID).Scan(&perCustomerCap)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &model.UsageExceededError{RuleID: c.RuleID}
		}
		return nil, fmt.Errorf("increment used_count: %w", err)
	}

	if c.CustomerID != nil && perCustomerCap > 0 {
		var used int
		err := tx.QueryRow(ctx, `
			SELECT COUNT(*) FROM discount_usage
			WHERE discount_id = $1 AND customer_id = $2
		`, c.RuleID, *c.CustomerID).Scan(&used)
		if err != nil {
			return nil, fmt.Errorf("count customer usage: %w", err)
		}
		if used >= perCustomerCap {
			return nil, &model.UsageExceededError{RuleID: c.RuleID, PerCustomer: true}
		}
	}

	usage := &model.DiscountUsage{
		ID:             uuid.New(),
		DiscountID:     c.RuleID,
		CustomerID:     c.CustomerID,
		OrderID:        c.OrderID,
		DiscountAmount: c.DiscountAmount,
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO discount_usage (id, discount_id, customer_id, order_id, discount_amount, used_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING used_at
	`,
		usage.ID,
		usage.DiscountID,
		usage.CustomerID,
		usage.OrderID,
		usage.DiscountAmount,
	).Scan(&usage.UsedAt)
	if err != nil {
		if isUniqueViolation(err) { // (discount_id, order_id)
			return nil, model.ErrDuplicateUsage
		}
		return nil, fmt.Errorf("insert discount usage: %w", err)
	}

	return usage, nil
}

// CountByCustomer returns the number of committed redemptions per discount
func (r *PostgresRepository) CountByCustomer(ctx context.Context, customerID uuid.UUID) (map[uuid.UUID]int, error) {
	rows, err := r.db.Query(ctx, `
		SELECT discount_id, COUNT(*)
		FROM discount_usage
		WHERE customer_id = $1
		GROUP BY discount_id
	`, customerID)
	if err != nil {
		return nil, fmt.Errorf("count customer redemptions: %w", err)
	}
	defer rows.Close()

	counts := make(map[uuid.UUID]int)
	for rows.Next() {
		var (
			id    uuid.UUID
			count int
		)
		if err := rows.Scan(&id, &count); err != nil {
			return nil, fmt.Errorf("scan customer redemptions: %w", err)
		}
		counts[id] = count
	}
	return counts, rows.Err()
}

// GetUsageHistory - newest first, optionally bounded by [from, to]
func (r *PostgresRepository) GetUsageHistory(ctx context.Context, discountID uuid.UUID, filter *model.UsageHistoryFilter) ([]*model.DiscountUsage, int, error) {
	whereClauses := []string{"discount_id = $1"}
	args := []interface{}{discountID}
	argIndex := 2

	if filter.From != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("used_at >= $%d", argIndex))
		args = append(args, *filter.From)
		argIndex++
	}
	if filter.To != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("used_at <= $%d", argIndex))
		args = append(args, *filter.To)
		argIndex++
	}
	whereSQL := "WHERE " + strings.Join(whereClauses, " AND ")

	query := fmt.Sprintf(`
		SELECT id, discount_id, customer_id, order_id, discount_amount, used_at
		FROM discount_usage
		%s
		ORDER BY used_at DESC, id ASC
		LIMIT $%d OFFSET $%d
	`, whereSQL, argIndex, argIndex+1)

	rows, err := r.db.Query(ctx, query, append(args, filter.Limit, filter.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("get usage history: %w", err)
	}
	defer rows.Close()

	var usages []*model.DiscountUsage
	for rows.Next() {
		var u model.DiscountUsage
		err := rows.Scan(
			&u.ID,             // id
			&u.DiscountID,     // discount_id
			&u.CustomerID,     // customer_id (nullable, guest checkout)
			&u.OrderID,        // order_id
			&u.DiscountAmount, // discount_amount
			&u.UsedAt,         // used_at
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan usage: %w", err)
		}
		usages = append(usages, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate usage: %w", err)
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM discount_usage %s", whereSQL)
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count usage: %w", err)
	}

	return usages, total, nil
}

func (r *PostgresRepository) GetUsageStats(ctx context.Context, discountID uuid.UUID) (*model.UsageStats, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(discount_amount), 0),
			COUNT(DISTINCT customer_id),
			MIN(used_at),
			MAX(used_at)
		FROM discount_usage
		WHERE discount_id = $1
	`

	var stats model.UsageStats
	err := r.db.QueryRow(ctx, query, discountID).Scan(
		&stats.TotalUses,
		&stats.TotalDiscount,
		&stats.UniqueCustomers,
		&stats.FirstUsedAt,
		&stats.LastUsedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("get usage stats: %w", err)
	}
	return &stats, nil
}
