package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"shopcms-backend/internal/domains/currency/model"
	"shopcms-backend/internal/infrastructure/filestore"
)

// RateRepository stores rate overrides maintained outside the env config
type RateRepository interface {
	GetRate(ctx context.Context, code string) (*model.ExchangeRate, error)
}

// -------------------------------------------------------------------
// POSTGRES
// -------------------------------------------------------------------

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) RateRepository {
	return &postgresRepository{pool: pool}
}

func (r *postgresRepository) GetRate(ctx context.Context, code string) (*model.ExchangeRate, error) {
	query := `SELECT code, rate, updated_at FROM currency_rates WHERE code = $1`

	var rate model.ExchangeRate
	err := r.pool.QueryRow(ctx, query, strings.ToUpper(code)).Scan(
		&rate.Code,      // code
		&rate.Rate,      // rate
		&rate.UpdatedAt, // updated_at
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrRateNotFound
		}
		return nil, fmt.Errorf("get exchange rate: %w", err)
	}
	return &rate, nil
}

// -------------------------------------------------------------------
// JSON FILE
// -------------------------------------------------------------------

const ratesCollection = "currency_rates"

type jsonRepository struct {
	store *filestore.Store
}

func NewJSONRepository(store *filestore.Store) RateRepository {
	return &jsonRepository{store: store}
}

func (r *jsonRepository) GetRate(ctx context.Context, code string) (*model.ExchangeRate, error) {
	var rates []model.ExchangeRate
	if err := r.store.View(func(tx *filestore.Tx) error {
		return tx.Read(ratesCollection, &rates)
	}); err != nil {
		return nil, err
	}

	for _, rate := range rates {
		if strings.EqualFold(rate.Code, code) {
			return &rate, nil
		}
	}
	return nil, model.ErrRateNotFound
}
