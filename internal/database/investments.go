package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/market-notifier/internal/models"
)

// Investment is a catalogue entry for a projectable instrument
type Investment struct {
	ID    int
	Type  string
	Model models.PriceModel
}

// SaveInvestment inserts or updates an investment by symbol
func (db *DB) SaveInvestment(ctx context.Context, inv *Investment) error {
	query := `
		INSERT INTO investments (
			symbol, name, type, current_price, historic_volatility, annual_return, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (symbol) DO UPDATE SET
			name = EXCLUDED.name,
			type = EXCLUDED.type,
			current_price = EXCLUDED.current_price,
			historic_volatility = EXCLUDED.historic_volatility,
			annual_return = EXCLUDED.annual_return,
			updated_at = EXCLUDED.updated_at
		RETURNING id
	`
	m := inv.Model
	err := db.conn.QueryRowContext(ctx, query,
		m.Symbol, m.DisplayName(), inv.Type,
		decimal.NewFromFloat(m.CurrentPrice), decimal.NewFromFloat(m.Volatility), decimal.NewFromFloat(m.AnnualReturn),
		time.Now().UTC(),
	).Scan(&inv.ID)
	if err != nil {
		return fmt.Errorf("failed to save investment: %w", err)
	}
	return nil
}

// GetInvestment retrieves the price model for a symbol
func (db *DB) GetInvestment(ctx context.Context, symbol string) (*Investment, error) {
	query := `
		SELECT id, symbol, name, type, current_price, historic_volatility, annual_return, updated_at
		FROM investments
		WHERE symbol = $1
	`
	inv, err := scanInvestment(db.conn.QueryRowContext(ctx, query, symbol))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("investment %s: %w", symbol, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get investment: %w", err)
	}
	return inv, nil
}

// ListInvestments retrieves the whole catalogue ordered by symbol
func (db *DB) ListInvestments(ctx context.Context) ([]*Investment, error) {
	query := `
		SELECT id, symbol, name, type, current_price, historic_volatility, annual_return, updated_at
		FROM investments
		ORDER BY symbol
	`
	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query investments: %w", err)
	}
	defer rows.Close()

	var investments []*Investment
	for rows.Next() {
		inv, err := scanInvestment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan investment: %w", err)
		}
		investments = append(investments, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate investments: %w", err)
	}
	return investments, nil
}

// UpdateInvestmentPrice stores the latest observed price for a symbol
func (db *DB) UpdateInvestmentPrice(ctx context.Context, symbol string, price float64) error {
	query := `UPDATE investments SET current_price = $2, updated_at = $3 WHERE symbol = $1`
	result, err := db.conn.ExecContext(ctx, query, symbol, decimal.NewFromFloat(price), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update investment price: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("investment %s: %w", symbol, models.ErrNotFound)
	}
	return nil
}

// CurrentPrices returns the catalogue as price snapshots, making the
// database usable as a price source
func (db *DB) CurrentPrices(ctx context.Context) ([]models.PriceModel, error) {
	investments, err := db.ListInvestments(ctx)
	if err != nil {
		return nil, err
	}
	prices := make([]models.PriceModel, 0, len(investments))
	for _, inv := range investments {
		prices = append(prices, inv.Model)
	}
	return prices, nil
}

func scanInvestment(row rowScanner) (*Investment, error) {
	var inv Investment
	var price, volatility, annualReturn decimal.Decimal

	err := row.Scan(
		&inv.ID, &inv.Model.Symbol, &inv.Model.Name, &inv.Type,
		&price, &volatility, &annualReturn, &inv.Model.ObservedAt,
	)
	if err != nil {
		return nil, err
	}

	inv.Model.CurrentPrice = price.InexactFloat64()
	inv.Model.Volatility = volatility.InexactFloat64()
	inv.Model.AnnualReturn = annualReturn.InexactFloat64()
	return &inv, nil
}
