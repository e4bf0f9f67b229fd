package domain

import (
	"context"
	"sort"

	"github.com/holiman/uint256"
)

// Purchase is the read model of a settled buy.
type Purchase struct {
	Id        string
	SaleId    string
	Round     Round
	Buyer     string
	Quantity  uint64
	Amount    *uint256.Int
	Cost      *uint256.Int
	Timestamp int64
}

func NewPurchaseFromEvent(e TokensPurchased) Purchase {
	return Purchase{
		Id:        e.PurchaseId,
		SaleId:    e.Id,
		Round:     e.Round,
		Buyer:     e.Buyer.Hex(),
		Quantity:  e.Quantity,
		Amount:    new(uint256.Int).Set(e.Amount),
		Cost:      new(uint256.Int).Set(e.Cost),
		Timestamp: e.Timestamp,
	}
}

// PurchaseFilter selects purchases; zero values match everything.
type PurchaseFilter struct {
	SaleId string
	Buyer  string
	Round  Round
}

func (f PurchaseFilter) Match(p Purchase) bool {
	if f.SaleId != "" && f.SaleId != p.SaleId {
		return false
	}
	if f.Buyer != "" && f.Buyer != p.Buyer {
		return false
	}
	if f.Round != RoundNotStarted && f.Round != p.Round {
		return false
	}
	return true
}

type RoundStats struct {
	Round     Round
	Purchases int
	Buyers    int
	Sold      uint64
	Raised    *uint256.Int
}

// ComputeRoundStats aggregates purchases by round, always returning one
// entry per round.
func ComputeRoundStats(purchases []Purchase) []RoundStats {
	stats := make([]RoundStats, NumOfRounds)
	buyers := make([]map[string]struct{}, NumOfRounds)
	for i := range stats {
		stats[i] = RoundStats{Round: Round(i + 1), Raised: new(uint256.Int)}
		buyers[i] = make(map[string]struct{})
	}

	for _, p := range purchases {
		if !p.Round.IsActive() {
			continue
		}
		i := p.Round.index()
		stats[i].Purchases++
		stats[i].Sold += p.Quantity
		if p.Cost != nil {
			stats[i].Raised.Add(stats[i].Raised, p.Cost)
		}
		buyers[i][p.Buyer] = struct{}{}
	}
	for i := range stats {
		stats[i].Buyers = len(buyers[i])
	}
	return stats
}

// SortPurchases orders purchases chronologically, ties broken by id.
func SortPurchases(purchases []Purchase) {
	sort.SliceStable(purchases, func(i, j int) bool {
		if purchases[i].Timestamp == purchases[j].Timestamp {
			return purchases[i].Id < purchases[j].Id
		}
		return purchases[i].Timestamp < purchases[j].Timestamp
	})
}

type PurchaseRepository interface {
	// AddPurchases stores the given purchases, skipping those already stored.
	AddPurchases(ctx context.Context, purchases []Purchase) error
	GetPurchases(ctx context.Context, filter PurchaseFilter) ([]Purchase, error)
	Close()
}
