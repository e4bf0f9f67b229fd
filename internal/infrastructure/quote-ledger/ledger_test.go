package quoteledger_test

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/mmna-launch/crowdsale/internal/core/domain"
	"github.com/mmna-launch/crowdsale/internal/core/ports"
	badgerledger "github.com/mmna-launch/crowdsale/internal/infrastructure/quote-ledger/badger"
	inmemoryledger "github.com/mmna-launch/crowdsale/internal/infrastructure/quote-ledger/inmemory"
	redisledger "github.com/mmna-launch/crowdsale/internal/infrastructure/quote-ledger/redis"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

var (
	owner   = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	spender = common.HexToAddress("0x00000000000000000000000000000000000000d1")
	other   = common.HexToAddress("0x00000000000000000000000000000000000000c2")
)

func TestQuoteLedgerImplementations(t *testing.T) {
	ledgers := []struct {
		name   string
		ledger func(t *testing.T) ports.QuoteLedger
	}{
		{"inmemory", func(t *testing.T) ports.QuoteLedger {
			return inmemoryledger.NewQuoteLedger()
		}},
		{"badger", func(t *testing.T) ports.QuoteLedger {
			ledger, err := badgerledger.NewQuoteLedger("", nil)
			require.NoError(t, err)
			return ledger
		}},
		{"badger on disk", func(t *testing.T) ports.QuoteLedger {
			ledger, err := badgerledger.NewQuoteLedger(t.TempDir(), nil)
			require.NoError(t, err)
			return ledger
		}},
		{"redis", newRedisLedger},
	}

	for _, tt := range ledgers {
		t.Run(tt.name, func(t *testing.T) {
			ledger := tt.ledger(t)
			defer ledger.Close()
			runLedgerTests(t, ledger)
		})
	}
}

func TestBadgerLedgerSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	ledger, err := badgerledger.NewQuoteLedger(dir, nil)
	require.NoError(t, err)
	require.NoError(t, ledger.Mint(ctx, owner, uint256.NewInt(1_000)))
	require.NoError(t, ledger.Approve(ctx, owner, spender, uint256.NewInt(400)))
	require.NoError(t, ledger.TransferFrom(ctx, spender, owner, spender, uint256.NewInt(150)))
	ledger.Close()

	ledger, err = badgerledger.NewQuoteLedger(dir, nil)
	require.NoError(t, err)
	defer ledger.Close()

	balance, err := ledger.BalanceOf(ctx, owner)
	require.NoError(t, err)
	require.Equal(t, uint256.NewInt(850), balance)

	balance, err = ledger.BalanceOf(ctx, spender)
	require.NoError(t, err)
	require.Equal(t, uint256.NewInt(150), balance)

	allowance, err := ledger.Allowance(ctx, owner, spender)
	require.NoError(t, err)
	require.Equal(t, uint256.NewInt(250), allowance)

	supply, err := ledger.TotalSupply(ctx)
	require.NoError(t, err)
	require.Equal(t, uint256.NewInt(1_000), supply)
}

func runLedgerTests(t *testing.T, ledger ports.QuoteLedger) {
	ctx := context.Background()

	require.NoError(t, ledger.Mint(ctx, owner, uint256.NewInt(1_000)))
	supply, err := ledger.TotalSupply(ctx)
	require.NoError(t, err)
	require.Equal(t, uint256.NewInt(1_000), supply)

	t.Run("transfer from without allowance", func(t *testing.T) {
		err := ledger.TransferFrom(ctx, spender, owner, spender, uint256.NewInt(10))
		require.ErrorIs(t, err, domain.ErrInsufficientAllowance)
	})

	t.Run("transfer from", func(t *testing.T) {
		require.NoError(t, ledger.Approve(ctx, owner, spender, uint256.NewInt(300)))

		err := ledger.TransferFrom(ctx, spender, owner, spender, uint256.NewInt(100))
		require.NoError(t, err)

		allowance, err := ledger.Allowance(ctx, owner, spender)
		require.NoError(t, err)
		require.Equal(t, uint256.NewInt(200), allowance)

		balance, err := ledger.BalanceOf(ctx, owner)
		require.NoError(t, err)
		require.Equal(t, uint256.NewInt(900), balance)

		balance, err = ledger.BalanceOf(ctx, spender)
		require.NoError(t, err)
		require.Equal(t, uint256.NewInt(100), balance)
	})

	t.Run("insufficient funds leaves state untouched", func(t *testing.T) {
		require.NoError(t, ledger.Approve(ctx, owner, spender, uint256.NewInt(5_000)))

		err := ledger.TransferFrom(ctx, spender, owner, spender, uint256.NewInt(2_000))
		require.ErrorIs(t, err, domain.ErrInsufficientFunds)

		allowance, err := ledger.Allowance(ctx, owner, spender)
		require.NoError(t, err)
		require.Equal(t, uint256.NewInt(5_000), allowance)

		balance, err := ledger.BalanceOf(ctx, owner)
		require.NoError(t, err)
		require.Equal(t, uint256.NewInt(900), balance)
	})

	t.Run("transfer", func(t *testing.T) {
		require.NoError(t, ledger.Transfer(ctx, spender, other, uint256.NewInt(40)))
		err := ledger.Transfer(ctx, spender, other, uint256.NewInt(61))
		require.ErrorIs(t, err, domain.ErrInsufficientFunds)

		balance, err := ledger.BalanceOf(ctx, other)
		require.NoError(t, err)
		require.Equal(t, uint256.NewInt(40), balance)

		balance, err = ledger.BalanceOf(ctx, spender)
		require.NoError(t, err)
		require.Equal(t, uint256.NewInt(60), balance)
	})

	t.Run("conservation", func(t *testing.T) {
		total := new(uint256.Int)
		for _, account := range []common.Address{owner, spender, other} {
			balance, err := ledger.BalanceOf(ctx, account)
			require.NoError(t, err)
			total.Add(total, balance)
		}
		supply, err := ledger.TotalSupply(ctx)
		require.NoError(t, err)
		require.Equal(t, supply, total)
	})
}

func newRedisLedger(t *testing.T) ports.QuoteLedger {
	opts, err := redis.ParseURL("redis://localhost:6379/15")
	require.NoError(t, err)
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis not reachable: %s", err)
	}
	require.NoError(t, rdb.FlushDB(context.Background()).Err())
	return redisledger.NewQuoteLedger(rdb, 5)
}
