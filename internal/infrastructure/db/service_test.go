package db_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/mmna-launch/crowdsale/internal/core/domain"
	"github.com/mmna-launch/crowdsale/internal/core/ports"
	"github.com/mmna-launch/crowdsale/internal/infrastructure/db"
	"github.com/mmna-launch/crowdsale/pkg/merkle"
	"github.com/stretchr/testify/require"
)

var (
	issuer = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	alice  = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	bob    = common.HexToAddress("0x00000000000000000000000000000000000000c2")

	wallets = domain.GenesisWallets{
		Team:        common.HexToAddress("0x00000000000000000000000000000000000000b1"),
		Airdrops:    common.HexToAddress("0x00000000000000000000000000000000000000b2"),
		Influencers: common.HexToAddress("0x00000000000000000000000000000000000000b3"),
		Marketing:   common.HexToAddress("0x00000000000000000000000000000000000000b4"),
	}
	prices = [domain.NumOfRounds]*uint256.Int{
		uint256.NewInt(10_000_000), uint256.NewInt(20_000_000), uint256.NewInt(30_000_000),
	}
	now = time.Unix(1_700_000_000, 0)
)

func TestService(t *testing.T) {
	tests := []struct {
		name   string
		config func(t *testing.T) db.ServiceConfig
	}{
		{
			name: "repo_manager_with_badger_stores",
			config: func(t *testing.T) db.ServiceConfig {
				return db.ServiceConfig{
					EventStoreType:   "badger",
					DataStoreType:    "badger",
					EventStoreConfig: []interface{}{"", nil},
					DataStoreConfig:  []interface{}{"", nil},
				}
			},
		},
		{
			name: "repo_manager_with_sqlite_stores",
			config: func(t *testing.T) db.ServiceConfig {
				dir := t.TempDir()
				return db.ServiceConfig{
					EventStoreType:   "badger",
					DataStoreType:    "sqlite",
					EventStoreConfig: []interface{}{dir, nil},
					DataStoreConfig:  []interface{}{dir},
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := db.NewService(tt.config(t))
			require.NoError(t, err)
			defer svc.Close()

			testEventRepository(t, svc)
			testPurchaseRepository(t, svc)
		})
	}

	t.Run("invalid store types", func(t *testing.T) {
		_, err := db.NewService(db.ServiceConfig{
			EventStoreType: "sqlite",
			DataStoreType:  "badger",
		})
		require.Error(t, err)

		_, err = db.NewService(db.ServiceConfig{
			EventStoreType: "badger",
			DataStoreType:  "postgres",
		})
		require.Error(t, err)
	})
}

func testEventRepository(t *testing.T, svc ports.RepoManager) {
	t.Run("test_event_repository", func(t *testing.T) {
		ctx := context.Background()
		repo := svc.Events()

		var (
			lock     sync.Mutex
			received [][]domain.Event
		)
		repo.RegisterEventsHandler(domain.SaleTopic, func(events []domain.Event) {
			lock.Lock()
			defer lock.Unlock()
			received = append(received, events)
		})
		defer repo.ClearRegisteredHandlers(domain.SaleTopic)

		sale := domain.NewSale(issuer)
		events, err := repo.Load(ctx, domain.SaleTopic, sale.Id)
		require.NoError(t, err)
		require.Empty(t, events)

		_, err = sale.Mint(wallets, now)
		require.NoError(t, err)
		_, err = sale.Initialize(issuer, prices, domain.DefaultSaleRules(), now)
		require.NoError(t, err)
		_, err = sale.AddToWhitelist(issuer, alice)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, domain.SaleTopic, sale.Id, sale.Events()))

		numOfEvents := len(sale.Events())
		tree, err := merkle.NewTree([]common.Address{alice, bob})
		require.NoError(t, err)
		_, err = sale.Buy(uuid.New().String(), alice, 3, nil, now)
		require.NoError(t, err)
		_, err = sale.PublishRoot(issuer, tree.Root(), now)
		require.NoError(t, err)
		_, err = sale.SwitchRound(now.Add(8 * time.Hour))
		require.NoError(t, err)
		newEvents := sale.Events()[numOfEvents:]
		require.NoError(t, repo.Save(ctx, domain.SaleTopic, sale.Id, newEvents))

		stored, err := repo.Load(ctx, domain.SaleTopic, sale.Id)
		require.NoError(t, err)
		require.Len(t, stored, len(sale.Events()))

		replayed := domain.NewSaleFromEvents(stored)
		require.Equal(t, sale.Id, replayed.Id)
		require.Equal(t, sale.CurrentRound, replayed.CurrentRound)
		require.Equal(t, sale.MerkleRoot, replayed.MerkleRoot)
		require.Equal(t, sale.Balances, replayed.Balances)
		require.Equal(t, sale.Rounds, replayed.Rounds)
		require.Equal(t, sale.Rules, replayed.Rules)
		require.True(t, replayed.IsWhitelisted(alice))
		require.NoError(t, replayed.CheckSupply())

		require.Eventually(t, func() bool {
			lock.Lock()
			defer lock.Unlock()
			return len(received) == 2
		}, 5*time.Second, 10*time.Millisecond)

		lock.Lock()
		defer lock.Unlock()
		require.Len(t, received[0], numOfEvents)
		require.Len(t, received[1], len(newEvents))
		require.Equal(t, domain.EventTypeTokensPurchased, received[1][0].GetType())
	})
}

func testPurchaseRepository(t *testing.T, svc ports.RepoManager) {
	t.Run("test_purchase_repository", func(t *testing.T) {
		ctx := context.Background()
		repo := svc.Purchases()
		saleId := domain.SaleId(issuer)

		purchases := []domain.Purchase{
			{
				Id: "p1", SaleId: saleId, Round: domain.Round1, Buyer: alice.Hex(),
				Quantity: 2, Amount: domain.Tokens(2), Cost: uint256.NewInt(20_000_000),
				Timestamp: now.Unix(),
			},
			{
				Id: "p2", SaleId: saleId, Round: domain.Round1, Buyer: bob.Hex(),
				Quantity: 1, Amount: domain.Tokens(1), Cost: uint256.NewInt(10_000_000),
				Timestamp: now.Unix() + 1,
			},
			{
				Id: "p3", SaleId: saleId, Round: domain.Round2, Buyer: alice.Hex(),
				Quantity: 5, Amount: domain.Tokens(5), Cost: uint256.NewInt(100_000_000),
				Timestamp: now.Unix() + 2,
			},
		}

		list, err := repo.GetPurchases(ctx, domain.PurchaseFilter{})
		require.NoError(t, err)
		require.Empty(t, list)

		require.NoError(t, repo.AddPurchases(ctx, purchases))
		// adding the same purchases again is a no-op
		require.NoError(t, repo.AddPurchases(ctx, purchases[:2]))

		list, err = repo.GetPurchases(ctx, domain.PurchaseFilter{})
		require.NoError(t, err)
		require.Equal(t, purchases, list)

		list, err = repo.GetPurchases(ctx, domain.PurchaseFilter{Buyer: alice.Hex()})
		require.NoError(t, err)
		require.Len(t, list, 2)
		require.Equal(t, "p1", list[0].Id)
		require.Equal(t, "p3", list[1].Id)

		list, err = repo.GetPurchases(ctx, domain.PurchaseFilter{
			SaleId: saleId, Buyer: alice.Hex(), Round: domain.Round2,
		})
		require.NoError(t, err)
		require.Len(t, list, 1)
		require.Equal(t, domain.Tokens(5), list[0].Amount)

		list, err = repo.GetPurchases(ctx, domain.PurchaseFilter{Round: domain.Round3})
		require.NoError(t, err)
		require.Empty(t, list)

		stats := domain.ComputeRoundStats(purchases)
		require.Equal(t, uint64(3), stats[0].Sold)
		require.Equal(t, 2, stats[0].Buyers)
	})
}
