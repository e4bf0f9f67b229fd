package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"
	"github.com/holiman/uint256"
	"github.com/mmna-launch/crowdsale/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

const purchaseStoreDir = "purchases"

type purchaseDTO struct {
	Id        string
	SaleId    string
	Round     int
	Buyer     string
	Quantity  uint64
	Amount    string
	Cost      string
	Timestamp int64
}

type purchaseRepository struct {
	store *badgerhold.Store
}

func NewPurchaseRepository(config ...interface{}) (domain.PurchaseRepository, error) {
	baseDir, logger, err := parseConfig(config)
	if err != nil {
		return nil, err
	}

	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, purchaseStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open purchase store: %s", err)
	}
	return &purchaseRepository{store}, nil
}

func (r *purchaseRepository) AddPurchases(
	ctx context.Context, purchases []domain.Purchase,
) error {
	return r.store.Badger().Update(func(tx *badger.Txn) error {
		for _, purchase := range purchases {
			err := r.store.TxInsert(tx, purchase.Id, toPurchaseDTO(purchase))
			if err != nil && !errors.Is(err, badgerhold.ErrKeyExists) {
				return fmt.Errorf("failed to add purchase %s: %s", purchase.Id, err)
			}
		}
		return nil
	})
}

func (r *purchaseRepository) GetPurchases(
	ctx context.Context, filter domain.PurchaseFilter,
) ([]domain.Purchase, error) {
	var query *badgerhold.Query
	where := func(field string, value interface{}) {
		if query == nil {
			query = badgerhold.Where(field).Eq(value)
			return
		}
		query = query.And(field).Eq(value)
	}
	if filter.SaleId != "" {
		where("SaleId", filter.SaleId)
	}
	if filter.Buyer != "" {
		where("Buyer", filter.Buyer)
	}
	if filter.Round != domain.RoundNotStarted {
		where("Round", int(filter.Round))
	}

	dtos := make([]purchaseDTO, 0)
	if err := r.store.Find(&dtos, query); err != nil {
		return nil, fmt.Errorf("failed to get purchases: %s", err)
	}

	purchases := make([]domain.Purchase, 0, len(dtos))
	for _, dto := range dtos {
		purchase, err := dto.toDomain()
		if err != nil {
			return nil, err
		}
		purchases = append(purchases, *purchase)
	}
	domain.SortPurchases(purchases)
	return purchases, nil
}

func (r *purchaseRepository) Close() {
	// nolint
	r.store.Close()
}

func toPurchaseDTO(p domain.Purchase) purchaseDTO {
	return purchaseDTO{
		Id:        p.Id,
		SaleId:    p.SaleId,
		Round:     int(p.Round),
		Buyer:     p.Buyer,
		Quantity:  p.Quantity,
		Amount:    p.Amount.Dec(),
		Cost:      p.Cost.Dec(),
		Timestamp: p.Timestamp,
	}
}

func (d purchaseDTO) toDomain() (*domain.Purchase, error) {
	amount, err := uint256.FromDecimal(d.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount for purchase %s: %s", d.Id, err)
	}
	cost, err := uint256.FromDecimal(d.Cost)
	if err != nil {
		return nil, fmt.Errorf("invalid cost for purchase %s: %s", d.Id, err)
	}
	return &domain.Purchase{
		Id:        d.Id,
		SaleId:    d.SaleId,
		Round:     domain.Round(d.Round),
		Buyer:     d.Buyer,
		Quantity:  d.Quantity,
		Amount:    amount,
		Cost:      cost,
		Timestamp: d.Timestamp,
	}, nil
}
