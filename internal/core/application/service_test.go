package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/mmna-launch/crowdsale/internal/core/application"
	"github.com/mmna-launch/crowdsale/internal/core/domain"
	"github.com/mmna-launch/crowdsale/internal/core/ports"
	watermillbroker "github.com/mmna-launch/crowdsale/internal/infrastructure/broker/watermill"
	"github.com/mmna-launch/crowdsale/internal/infrastructure/db"
	badgerledger "github.com/mmna-launch/crowdsale/internal/infrastructure/quote-ledger/badger"
	inmemoryledger "github.com/mmna-launch/crowdsale/internal/infrastructure/quote-ledger/inmemory"
	manualscheduler "github.com/mmna-launch/crowdsale/internal/infrastructure/scheduler/manual"
	"github.com/mmna-launch/crowdsale/pkg/merkle"
	"github.com/stretchr/testify/require"
)

var (
	issuer  = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	custody = domain.CustodyAddress(issuer)
	alice   = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	bob     = common.HexToAddress("0x00000000000000000000000000000000000000c2")
	carol   = common.HexToAddress("0x00000000000000000000000000000000000000c3")

	wallets = domain.GenesisWallets{
		Team:        common.HexToAddress("0x00000000000000000000000000000000000000b1"),
		Airdrops:    common.HexToAddress("0x00000000000000000000000000000000000000b2"),
		Influencers: common.HexToAddress("0x00000000000000000000000000000000000000b3"),
		Marketing:   common.HexToAddress("0x00000000000000000000000000000000000000b4"),
	}
	prices = [domain.NumOfRounds]*uint256.Int{
		uint256.NewInt(10_000_000), uint256.NewInt(20_000_000), uint256.NewInt(30_000_000),
	}
	start = time.Unix(1_700_000_000, 0)

	errStoreUnavailable  = errors.New("store unavailable")
	errLedgerUnavailable = errors.New("ledger unavailable")
)

type fixture struct {
	svc       application.Service
	scheduler *manualscheduler.Scheduler
	ledger    *flakyQuoteLedger
	clock     *clock.TestClock
	repo      *flakyRepoManager
}

func newFixture(t *testing.T) *fixture {
	repoManager, err := db.NewService(db.ServiceConfig{
		EventStoreType:   "badger",
		DataStoreType:    "badger",
		EventStoreConfig: []interface{}{"", nil},
		DataStoreConfig:  []interface{}{"", nil},
	})
	require.NoError(t, err)

	repo := &flakyRepoManager{RepoManager: repoManager}
	scheduler := manualscheduler.New()
	ledger := &flakyQuoteLedger{QuoteLedger: inmemoryledger.NewQuoteLedger()}
	testClock := clock.NewTestClock(start)

	svc, err := application.NewService(
		application.Config{
			Issuer:     issuer,
			Wallets:    wallets,
			Rules:      domain.DefaultSaleRules(),
			AutoSwitch: true,
		},
		repo, scheduler, ledger, watermillbroker.NewEventBroker(64),
		domain.NewRoundClock(testClock),
	)
	require.NoError(t, err)
	require.NoError(t, svc.Start())
	t.Cleanup(svc.Stop)

	return &fixture{svc, scheduler, ledger, testClock, repo}
}

// fund mints quote currency to the buyer and approves it for the sale.
func (f *fixture) fund(t *testing.T, buyer common.Address, amount uint64) {
	ctx := context.Background()
	require.NoError(t, f.svc.Admin().MintQuote(ctx, buyer, uint256.NewInt(amount)))
	require.NoError(t, f.svc.ApproveQuote(ctx, buyer, uint256.NewInt(amount)))
}

func (f *fixture) advance(d time.Duration) {
	f.clock.SetTime(f.clock.Now().Add(d))
}

func TestNewService(t *testing.T) {
	_, err := application.NewService(
		application.Config{Rules: domain.DefaultSaleRules()}, nil, nil, nil, nil, nil,
	)
	require.Error(t, err)

	rules := domain.DefaultSaleRules()
	rules.Rounds[1].Duration = 0
	_, err = application.NewService(
		application.Config{Issuer: issuer, Rules: rules}, nil, nil, nil, nil, nil,
	)
	require.Error(t, err)
}

func TestService(t *testing.T) {
	ctx := context.Background()

	t.Run("start", func(t *testing.T) {
		f := newFixture(t)

		info, err := f.svc.GetInfo(ctx)
		require.NoError(t, err)
		require.Equal(t, domain.SaleId(issuer), info.SaleId)
		require.Equal(t, domain.RoundNotStarted, info.CurrentRound)
		require.Equal(t, domain.TotalSupply(), info.TotalSupply)
		require.Empty(t, info.Rounds)

		balance, err := f.svc.BalanceOf(ctx, wallets.Team)
		require.NoError(t, err)
		require.False(t, balance.IsZero())

		_, err = f.svc.Buy(ctx, alice, 1, nil)
		require.ErrorIs(t, err, domain.ErrSaleNotActive)
	})

	t.Run("initialize", func(t *testing.T) {
		f := newFixture(t)

		require.NoError(t, f.svc.Admin().Initialize(ctx, prices))
		require.ErrorIs(t, f.svc.Admin().Initialize(ctx, prices), domain.ErrAlreadyInitialized)

		info, err := f.svc.GetInfo(ctx)
		require.NoError(t, err)
		require.Equal(t, domain.Round1, info.CurrentRound)
		require.Equal(t, start.Unix(), info.RoundEntryTime)
		require.Equal(t, start.Add(8*time.Hour).Unix(), info.RoundDeadline)
		require.Len(t, info.Rounds, domain.NumOfRounds)

		round, err := f.svc.GetRoundData(ctx, domain.Round2)
		require.NoError(t, err)
		require.Equal(t, prices[1], round.Price)
		require.Equal(t, domain.MerkleProofEligibility, round.Eligibility)

		require.Equal(t, []int64{info.RoundDeadline}, f.scheduler.Pending())
	})

	t.Run("buy in whitelisted round", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.svc.Admin().Initialize(ctx, prices))

		count, err := f.svc.Admin().AddToWhitelist(ctx, alice, alice, bob)
		require.NoError(t, err)
		require.Equal(t, 2, count)
		count, err = f.svc.Admin().AddToWhitelist(ctx, alice)
		require.NoError(t, err)
		require.Zero(t, count)

		ok, err := f.svc.CanBuy(ctx, alice, nil)
		require.NoError(t, err)
		require.True(t, ok)
		ok, err = f.svc.CanBuy(ctx, carol, nil)
		require.NoError(t, err)
		require.False(t, ok)

		f.fund(t, alice, 100_000_000)
		receipt, err := f.svc.Buy(ctx, alice, 3, nil)
		require.NoError(t, err)
		require.NotEmpty(t, receipt.PurchaseId)
		require.Equal(t, domain.Round1, receipt.Round)
		require.Equal(t, domain.Tokens(3), receipt.Amount)
		require.Equal(t, uint256.NewInt(30_000_000), receipt.Cost)

		balance, err := f.svc.BalanceOf(ctx, alice)
		require.NoError(t, err)
		require.Equal(t, domain.Tokens(3), balance)

		quote, err := f.svc.GetQuoteBalance(ctx, alice)
		require.NoError(t, err)
		require.Equal(t, uint256.NewInt(70_000_000), quote.Balance)
		require.Equal(t, uint256.NewInt(70_000_000), quote.Allowance)

		custodyQuote, err := f.ledger.BalanceOf(ctx, custody)
		require.NoError(t, err)
		require.Equal(t, uint256.NewInt(30_000_000), custodyQuote)

		require.Eventually(t, func() bool {
			purchases, err := f.svc.GetPurchases(ctx, alice.Hex(), domain.Round1)
			return err == nil && len(purchases) == 1
		}, 5*time.Second, 10*time.Millisecond)

		stats, err := f.svc.Admin().GetStats(ctx)
		require.NoError(t, err)
		require.Equal(t, 2, stats.WhitelistSize)
		require.Equal(t, 1, stats.NumOfPurchases)
		require.Equal(t, 1, stats.NumOfUniqueBuyers)
		require.Equal(t, uint64(3), stats.RoundStats[0].Sold)
		require.Equal(t, uint256.NewInt(30_000_000), stats.CustodyQuote)
		require.Equal(t, uint256.NewInt(30_000_000), stats.Receivable)
	})

	t.Run("buy rejected", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.svc.Admin().Initialize(ctx, prices))
		_, err := f.svc.Admin().AddToWhitelist(ctx, alice)
		require.NoError(t, err)

		f.fund(t, carol, 100_000_000)
		_, err = f.svc.Buy(ctx, carol, 1, nil)
		require.ErrorIs(t, err, domain.ErrBuyNotAllowed)

		require.NoError(t, f.svc.Admin().MintQuote(ctx, alice, uint256.NewInt(100_000_000)))
		_, err = f.svc.Buy(ctx, alice, 1, nil)
		require.ErrorIs(t, err, domain.ErrInsufficientAllowance)

		require.NoError(t, f.svc.ApproveQuote(ctx, alice, uint256.NewInt(1_000_000_000)))
		_, err = f.svc.Buy(ctx, alice, 20, nil)
		require.ErrorIs(t, err, domain.ErrInsufficientFunds)

		_, err = f.svc.Buy(ctx, alice, 50_001, nil)
		require.ErrorIs(t, err, domain.ErrRoundCapExceeded)

		receipt, err := f.svc.Buy(ctx, alice, 0, nil)
		require.NoError(t, err)
		require.Empty(t, receipt.PurchaseId)
		require.True(t, receipt.Cost.IsZero())

		balance, err := f.svc.BalanceOf(ctx, alice)
		require.NoError(t, err)
		require.True(t, balance.IsZero())
		quote, err := f.svc.GetQuoteBalance(ctx, alice)
		require.NoError(t, err)
		require.Equal(t, uint256.NewInt(100_000_000), quote.Balance)
	})

	t.Run("refund if events cannot be stored", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.svc.Admin().Initialize(ctx, prices))
		_, err := f.svc.Admin().AddToWhitelist(ctx, alice)
		require.NoError(t, err)
		f.fund(t, alice, 100_000_000)

		f.repo.failSave = true
		_, err = f.svc.Buy(ctx, alice, 2, nil)
		require.ErrorIs(t, err, errStoreUnavailable)
		f.repo.failSave = false

		quote, err := f.svc.GetQuoteBalance(ctx, alice)
		require.NoError(t, err)
		require.Equal(t, uint256.NewInt(100_000_000), quote.Balance)
		require.Equal(t, uint256.NewInt(100_000_000), quote.Allowance)

		balance, err := f.svc.BalanceOf(ctx, alice)
		require.NoError(t, err)
		require.True(t, balance.IsZero())
		round, err := f.svc.GetRoundData(ctx, domain.Round1)
		require.NoError(t, err)
		require.Zero(t, round.Sold)

		_, err = f.svc.Buy(ctx, alice, 2, nil)
		require.NoError(t, err)
	})

	t.Run("refund failure is returned", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.svc.Admin().Initialize(ctx, prices))
		_, err := f.svc.Admin().AddToWhitelist(ctx, alice)
		require.NoError(t, err)
		f.fund(t, alice, 100_000_000)

		f.repo.failSave = true
		f.ledger.failTransfer = true
		_, err = f.svc.Buy(ctx, alice, 2, nil)
		require.ErrorIs(t, err, errStoreUnavailable)
		require.ErrorIs(t, err, errLedgerUnavailable)
		f.repo.failSave = false
		f.ledger.failTransfer = false

		custodyQuote, err := f.ledger.BalanceOf(ctx, custody)
		require.NoError(t, err)
		require.Equal(t, uint256.NewInt(20_000_000), custodyQuote)

		balance, err := f.svc.BalanceOf(ctx, alice)
		require.NoError(t, err)
		require.True(t, balance.IsZero())
		info, err := f.svc.GetInfo(ctx)
		require.NoError(t, err)
		require.True(t, info.Receivable.IsZero())
	})

	t.Run("switch rounds", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.svc.Admin().Initialize(ctx, prices))

		_, err := f.svc.SwitchRound(ctx)
		require.ErrorIs(t, err, domain.ErrRoundNotClosable)

		f.advance(8 * time.Hour)
		round, err := f.svc.SwitchRound(ctx)
		require.NoError(t, err)
		require.Equal(t, domain.Round2, round)

		// the task armed for round 1 is stale by now
		require.Equal(t, 1, f.scheduler.RunDue(f.clock.Now().Unix()))
		info, err := f.svc.GetInfo(ctx)
		require.NoError(t, err)
		require.Equal(t, domain.Round2, info.CurrentRound)

		f.advance(8 * time.Hour)
		require.Equal(t, 1, f.scheduler.RunDue(f.clock.Now().Unix()))
		info, err = f.svc.GetInfo(ctx)
		require.NoError(t, err)
		require.Equal(t, domain.Round3, info.CurrentRound)

		f.advance(14 * time.Hour)
		require.Equal(t, 1, f.scheduler.RunDue(f.clock.Now().Unix()))
		info, err = f.svc.GetInfo(ctx)
		require.NoError(t, err)
		require.True(t, info.IsFinished)
		require.Equal(t, f.clock.Now().Unix(), info.FinishedAt)
		require.Equal(t, info.FinishedAt+int64(6*time.Hour/time.Second), info.TransfersUnlockAt)
		require.Empty(t, f.scheduler.Pending())

		_, err = f.svc.SwitchRound(ctx)
		require.ErrorIs(t, err, domain.ErrSaleNotActive)
	})

	t.Run("switch round when sold out", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.svc.Admin().Initialize(ctx, prices))
		_, err := f.svc.Admin().AddToWhitelist(ctx, alice)
		require.NoError(t, err)
		f.fund(t, alice, 500_000_000_000)

		_, err = f.svc.Buy(ctx, alice, 50_000, nil)
		require.NoError(t, err)
		require.Len(t, f.scheduler.Pending(), 2)

		require.Equal(t, 1, f.scheduler.RunDue(f.clock.Now().Unix()))
		info, err := f.svc.GetInfo(ctx)
		require.NoError(t, err)
		require.Equal(t, domain.Round2, info.CurrentRound)
	})

	t.Run("buy with merkle proof", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.svc.Admin().Initialize(ctx, prices))

		tree, err := merkle.NewTree([]common.Address{alice, bob, carol})
		require.NoError(t, err)
		require.ErrorIs(t, f.svc.Admin().PublishRoot(ctx, common.Hash{}), domain.ErrInvalidRoot)
		require.NoError(t, f.svc.Admin().PublishRoot(ctx, tree.Root()))

		f.advance(8 * time.Hour)
		_, err = f.svc.SwitchRound(ctx)
		require.NoError(t, err)

		_, err = f.svc.Admin().AddToWhitelist(ctx, bob)
		require.ErrorIs(t, err, domain.ErrWhitelistClosed)

		proof, err := tree.Proof(bob)
		require.NoError(t, err)
		f.fund(t, bob, 100_000_000)

		_, err = f.svc.Buy(ctx, bob, 1, nil)
		require.ErrorIs(t, err, domain.ErrBuyNotAllowed)
		aliceProof, err := tree.Proof(alice)
		require.NoError(t, err)
		_, err = f.svc.Buy(ctx, bob, 1, aliceProof)
		require.ErrorIs(t, err, domain.ErrBuyNotAllowed)

		receipt, err := f.svc.Buy(ctx, bob, 2, proof)
		require.NoError(t, err)
		require.Equal(t, domain.Round2, receipt.Round)
		require.Equal(t, uint256.NewInt(40_000_000), receipt.Cost)
	})

	t.Run("transfer and sweep", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.svc.Admin().Initialize(ctx, prices))
		_, err := f.svc.Admin().AddToWhitelist(ctx, alice)
		require.NoError(t, err)
		f.fund(t, alice, 100_000_000)
		_, err = f.svc.Buy(ctx, alice, 5, nil)
		require.NoError(t, err)

		err = f.svc.Transfer(ctx, alice, bob, domain.Tokens(1))
		require.ErrorIs(t, err, domain.ErrTransferLocked)
		_, err = f.svc.Admin().CollectUnsoldAndWithdraw(ctx)
		require.ErrorIs(t, err, domain.ErrSaleNotEnded)

		// the issuer is never locked
		require.NoError(t, f.svc.Transfer(ctx, issuer, bob, new(uint256.Int)))

		for _, d := range []time.Duration{8 * time.Hour, 8 * time.Hour, 14 * time.Hour} {
			f.advance(d)
			_, err := f.svc.SwitchRound(ctx)
			require.NoError(t, err)
		}

		err = f.svc.Transfer(ctx, alice, bob, domain.Tokens(1))
		require.ErrorIs(t, err, domain.ErrTransferLocked)

		f.advance(6 * time.Hour)
		require.NoError(t, f.svc.Transfer(ctx, alice, bob, domain.Tokens(1)))
		err = f.svc.Transfer(ctx, alice, bob, domain.Tokens(5))
		require.ErrorIs(t, err, domain.ErrInsufficientBalance)

		balance, err := f.svc.BalanceOf(ctx, bob)
		require.NoError(t, err)
		require.Equal(t, domain.Tokens(1), balance)

		unsold, err := f.svc.BalanceOf(ctx, custody)
		require.NoError(t, err)

		receipt, err := f.svc.Admin().CollectUnsoldAndWithdraw(ctx)
		require.NoError(t, err)
		require.Equal(t, unsold, receipt.Unsold)
		require.Equal(t, uint256.NewInt(50_000_000), receipt.Proceeds)

		issuerQuote, err := f.ledger.BalanceOf(ctx, issuer)
		require.NoError(t, err)
		require.Equal(t, uint256.NewInt(50_000_000), issuerQuote)
		custodyQuote, err := f.ledger.BalanceOf(ctx, custody)
		require.NoError(t, err)
		require.True(t, custodyQuote.IsZero())

		custodyTokens, err := f.svc.BalanceOf(ctx, custody)
		require.NoError(t, err)
		require.True(t, custodyTokens.IsZero())

		_, err = f.svc.Admin().CollectUnsoldAndWithdraw(ctx)
		require.ErrorIs(t, err, domain.ErrAlreadySwept)

		info, err := f.svc.GetInfo(ctx)
		require.NoError(t, err)
		require.True(t, info.Swept)
		require.True(t, info.Receivable.IsZero())
	})

	t.Run("restart", func(t *testing.T) {
		dir := t.TempDir()
		newService := func() application.Service {
			repoManager, err := db.NewService(db.ServiceConfig{
				EventStoreType:   "badger",
				DataStoreType:    "sqlite",
				EventStoreConfig: []interface{}{dir, nil},
				DataStoreConfig:  []interface{}{dir},
			})
			require.NoError(t, err)
			svc, err := application.NewService(
				application.Config{Issuer: issuer, Wallets: wallets, Rules: domain.DefaultSaleRules()},
				repoManager, nil, inmemoryledger.NewQuoteLedger(), nil,
				domain.NewRoundClock(clock.NewTestClock(start)),
			)
			require.NoError(t, err)
			require.NoError(t, svc.Start())
			return svc
		}

		svc := newService()
		require.NoError(t, svc.Admin().Initialize(ctx, prices))
		_, err := svc.Admin().AddToWhitelist(ctx, alice)
		require.NoError(t, err)
		svc.Stop()

		svc = newService()
		defer svc.Stop()

		info, err := svc.GetInfo(ctx)
		require.NoError(t, err)
		require.Equal(t, domain.Round1, info.CurrentRound)
		ok, err := svc.CanBuy(ctx, alice, nil)
		require.NoError(t, err)
		require.True(t, ok)

		_, err = svc.GetEventsChannel(ctx)
		require.Error(t, err)
	})

	t.Run("sweep after restart", func(t *testing.T) {
		dir := t.TempDir()
		testClock := clock.NewTestClock(start)
		newService := func(ledger ports.QuoteLedger) (application.Service, error) {
			repoManager, err := db.NewService(db.ServiceConfig{
				EventStoreType:   "badger",
				DataStoreType:    "sqlite",
				EventStoreConfig: []interface{}{dir, nil},
				DataStoreConfig:  []interface{}{dir},
			})
			require.NoError(t, err)
			svc, err := application.NewService(
				application.Config{Issuer: issuer, Wallets: wallets, Rules: domain.DefaultSaleRules()},
				repoManager, nil, ledger, nil, domain.NewRoundClock(testClock),
			)
			require.NoError(t, err)
			if err := svc.Start(); err != nil {
				svc.Stop()
				return nil, err
			}
			return svc, nil
		}
		newLedger := func() ports.QuoteLedger {
			ledger, err := badgerledger.NewQuoteLedger(dir, nil)
			require.NoError(t, err)
			return ledger
		}

		svc, err := newService(newLedger())
		require.NoError(t, err)
		require.NoError(t, svc.Admin().Initialize(ctx, prices))
		_, err = svc.Admin().AddToWhitelist(ctx, alice)
		require.NoError(t, err)
		require.NoError(t, svc.Admin().MintQuote(ctx, alice, uint256.NewInt(100_000_000)))
		require.NoError(t, svc.ApproveQuote(ctx, alice, uint256.NewInt(100_000_000)))
		_, err = svc.Buy(ctx, alice, 1, nil)
		require.NoError(t, err)
		svc.Stop()

		// a ledger that lost the proceeds is refused
		_, err = newService(inmemoryledger.NewQuoteLedger())
		require.ErrorIs(t, err, domain.ErrProceedsNotBacked)

		svc, err = newService(newLedger())
		require.NoError(t, err)
		defer svc.Stop()

		for _, d := range []time.Duration{8 * time.Hour, 8 * time.Hour, 14 * time.Hour} {
			testClock.SetTime(testClock.Now().Add(d))
			_, err := svc.SwitchRound(ctx)
			require.NoError(t, err)
		}

		receipt, err := svc.Admin().CollectUnsoldAndWithdraw(ctx)
		require.NoError(t, err)
		require.Equal(t, uint256.NewInt(10_000_000), receipt.Proceeds)

		quote, err := svc.GetQuoteBalance(ctx, issuer)
		require.NoError(t, err)
		require.Equal(t, uint256.NewInt(10_000_000), quote.Balance)
		quote, err = svc.GetQuoteBalance(ctx, alice)
		require.NoError(t, err)
		require.Equal(t, uint256.NewInt(90_000_000), quote.Balance)
		require.Equal(t, uint256.NewInt(90_000_000), quote.Allowance)
	})

	t.Run("events stream", func(t *testing.T) {
		f := newFixture(t)

		streamCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		ch, err := f.svc.GetEventsChannel(streamCtx)
		require.NoError(t, err)

		require.NoError(t, f.svc.Admin().Initialize(ctx, prices))

		timeout := time.After(5 * time.Second)
		for {
			select {
			case notification := <-ch:
				if notification.Type != "SALE_INITIALIZED" {
					continue
				}
				require.Equal(t, domain.SaleId(issuer), notification.SaleId)
				require.Equal(t, domain.Round1.String(), notification.Round)
				require.NotEmpty(t, notification.Data)
				return
			case <-timeout:
				t.Fatal("no notification received")
			}
		}
	})
}

type flakyRepoManager struct {
	ports.RepoManager
	failSave bool
}

func (m *flakyRepoManager) Events() domain.EventRepository {
	return &flakyEventRepository{m.RepoManager.Events(), m}
}

type flakyEventRepository struct {
	domain.EventRepository
	manager *flakyRepoManager
}

func (r *flakyEventRepository) Save(
	ctx context.Context, topic, id string, events []domain.Event,
) error {
	if r.manager.failSave {
		return errStoreUnavailable
	}
	return r.EventRepository.Save(ctx, topic, id, events)
}

type flakyQuoteLedger struct {
	ports.QuoteLedger
	failTransfer bool
}

func (l *flakyQuoteLedger) Transfer(
	ctx context.Context, from, to common.Address, amount *uint256.Int,
) error {
	if l.failTransfer {
		return errLedgerUnavailable
	}
	return l.QuoteLedger.Transfer(ctx, from, to, amount)
}
