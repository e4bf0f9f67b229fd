package sqlitedb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
	"github.com/mmna-launch/crowdsale/internal/core/domain"
)

const (
	insertPurchase = `
INSERT INTO purchase (id, sale_id, round, buyer, quantity, amount, cost, timestamp)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO NOTHING`

	selectPurchases = `
SELECT id, sale_id, round, buyer, quantity, amount, cost, timestamp FROM purchase`
)

type purchaseRepository struct {
	db *sql.DB
}

func NewPurchaseRepository(config ...interface{}) (domain.PurchaseRepository, error) {
	dbPath, err := parseConfig(config)
	if err != nil {
		return nil, err
	}
	db, err := OpenDb(dbPath)
	if err != nil {
		return nil, err
	}
	return &purchaseRepository{db}, nil
}

func (r *purchaseRepository) AddPurchases(
	ctx context.Context, purchases []domain.Purchase,
) error {
	return execTx(ctx, r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, insertPurchase)
		if err != nil {
			return err
		}
		// nolint
		defer stmt.Close()

		for _, p := range purchases {
			if _, err := stmt.ExecContext(
				ctx, p.Id, p.SaleId, int(p.Round), p.Buyer, int64(p.Quantity),
				p.Amount.Dec(), p.Cost.Dec(), p.Timestamp,
			); err != nil {
				return fmt.Errorf("failed to add purchase %s: %w", p.Id, err)
			}
		}
		return nil
	})
}

func (r *purchaseRepository) GetPurchases(
	ctx context.Context, filter domain.PurchaseFilter,
) ([]domain.Purchase, error) {
	conditions := make([]string, 0)
	args := make([]interface{}, 0)
	if filter.SaleId != "" {
		conditions = append(conditions, "sale_id = ?")
		args = append(args, filter.SaleId)
	}
	if filter.Buyer != "" {
		conditions = append(conditions, "buyer = ?")
		args = append(args, filter.Buyer)
	}
	if filter.Round != domain.RoundNotStarted {
		conditions = append(conditions, "round = ?")
		args = append(args, int(filter.Round))
	}

	query := selectPurchases
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY timestamp, id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get purchases: %w", err)
	}
	// nolint
	defer rows.Close()

	purchases := make([]domain.Purchase, 0)
	for rows.Next() {
		var (
			p            domain.Purchase
			round        int
			quantity     int64
			amount, cost string
		)
		if err := rows.Scan(
			&p.Id, &p.SaleId, &round, &p.Buyer, &quantity, &amount, &cost, &p.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan purchase: %w", err)
		}
		if p.Amount, err = uint256.FromDecimal(amount); err != nil {
			return nil, fmt.Errorf("invalid amount for purchase %s: %s", p.Id, err)
		}
		if p.Cost, err = uint256.FromDecimal(cost); err != nil {
			return nil, fmt.Errorf("invalid cost for purchase %s: %s", p.Id, err)
		}
		p.Round = domain.Round(round)
		p.Quantity = uint64(quantity)
		purchases = append(purchases, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate purchases: %w", err)
	}
	return purchases, nil
}

func (r *purchaseRepository) Close() {
	// nolint
	r.db.Close()
}
