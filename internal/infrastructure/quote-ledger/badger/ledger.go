// Package badgerledger persists the quote currency ledger next to the sale
// event store so balances, allowances and collected proceeds survive a
// restart.
package badgerledger

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/mmna-launch/crowdsale/internal/core/domain"
	"github.com/mmna-launch/crowdsale/internal/core/ports"
	log "github.com/sirupsen/logrus"
	"github.com/timshannon/badgerhold/v4"
)

const (
	ledgerStoreDir  = "quote-ledger"
	balancePrefix   = "balance:"
	allowancePrefix = "allowance:"
	totalSupplyKey  = "totalSupply"
)

type amountDTO struct {
	Value string
}

type ledger struct {
	store *badgerhold.Store
	lock  *sync.Mutex
}

// NewQuoteLedger opens the ledger under baseDir. An empty baseDir keeps it in
// memory.
func NewQuoteLedger(baseDir string, logger badger.Logger) (ports.QuoteLedger, error) {
	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, ledgerStoreDir)
	}

	opts := badger.DefaultOptions(dir)
	opts.Logger = logger
	if len(dir) <= 0 {
		opts.InMemory = true
	} else {
		opts.Compression = options.ZSTD
	}

	store, err := badgerhold.Open(badgerhold.Options{
		Encoder:          badgerhold.DefaultEncode,
		Decoder:          badgerhold.DefaultDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open quote ledger store: %s", err)
	}
	return &ledger{store: store, lock: &sync.Mutex{}}, nil
}

func (l *ledger) BalanceOf(_ context.Context, owner common.Address) (*uint256.Int, error) {
	return l.get(balanceKey(owner))
}

func (l *ledger) Allowance(
	_ context.Context, owner, spender common.Address,
) (*uint256.Int, error) {
	return l.get(allowanceKey(owner, spender))
}

func (l *ledger) TotalSupply(_ context.Context) (*uint256.Int, error) {
	return l.get(totalSupplyKey)
}

func (l *ledger) Approve(
	_ context.Context, owner, spender common.Address, amount *uint256.Int,
) error {
	if amount == nil {
		return domain.ErrInvalidAmount
	}
	key := allowanceKey(owner, spender)
	return l.update([]string{key}, func(values map[string]*uint256.Int) error {
		values[key] = new(uint256.Int).Set(amount)
		return nil
	})
}

func (l *ledger) Mint(_ context.Context, to common.Address, amount *uint256.Int) error {
	if amount == nil {
		return domain.ErrInvalidAmount
	}
	keys := []string{totalSupplyKey, balanceKey(to)}
	return l.update(keys, func(values map[string]*uint256.Int) error {
		supply, overflow := new(uint256.Int).AddOverflow(values[totalSupplyKey], amount)
		if overflow {
			return fmt.Errorf("%w: supply overflows", domain.ErrInvalidAmount)
		}
		values[totalSupplyKey] = supply
		values[balanceKey(to)] = new(uint256.Int).Add(values[balanceKey(to)], amount)
		return nil
	})
}

func (l *ledger) Transfer(
	_ context.Context, from, to common.Address, amount *uint256.Int,
) error {
	if amount == nil {
		return domain.ErrInvalidAmount
	}
	keys := []string{balanceKey(from), balanceKey(to)}
	return l.update(keys, func(values map[string]*uint256.Int) error {
		return move(values, from, to, amount)
	})
}

func (l *ledger) TransferFrom(
	_ context.Context, spender, owner, recipient common.Address, amount *uint256.Int,
) error {
	if amount == nil {
		return domain.ErrInvalidAmount
	}
	allowance := allowanceKey(owner, spender)
	keys := []string{allowance, balanceKey(owner), balanceKey(recipient)}
	return l.update(keys, func(values map[string]*uint256.Int) error {
		if values[allowance].Lt(amount) {
			return domain.ErrInsufficientAllowance
		}
		if err := move(values, owner, recipient, amount); err != nil {
			return err
		}
		values[allowance] = new(uint256.Int).Sub(values[allowance], amount)
		return nil
	})
}

func (l *ledger) Close() {
	if err := l.store.Close(); err != nil {
		log.WithError(err).Warn("failed to close quote ledger store")
	}
}

func (l *ledger) get(key string) (*uint256.Int, error) {
	dto := amountDTO{}
	if err := l.store.Get(key, &dto); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return new(uint256.Int), nil
		}
		return nil, fmt.Errorf("failed to get %s: %s", key, err)
	}
	return parseAmount(key, dto.Value)
}

// update reads keys, applies fn to their values and writes them back in a
// single transaction. Nothing is written if fn fails.
func (l *ledger) update(keys []string, fn func(values map[string]*uint256.Int) error) error {
	l.lock.Lock()
	defer l.lock.Unlock()

	return l.store.Badger().Update(func(tx *badger.Txn) error {
		values := make(map[string]*uint256.Int, len(keys))
		for _, key := range keys {
			dto := amountDTO{}
			if err := l.store.TxGet(tx, key, &dto); err != nil {
				if !errors.Is(err, badgerhold.ErrNotFound) {
					return fmt.Errorf("failed to get %s: %s", key, err)
				}
				values[key] = new(uint256.Int)
				continue
			}
			value, err := parseAmount(key, dto.Value)
			if err != nil {
				return err
			}
			values[key] = value
		}

		if err := fn(values); err != nil {
			return err
		}

		for key, value := range values {
			if err := l.store.TxUpsert(tx, key, amountDTO{value.Dec()}); err != nil {
				return fmt.Errorf("failed to store %s: %s", key, err)
			}
		}
		return nil
	})
}

func move(values map[string]*uint256.Int, from, to common.Address, amount *uint256.Int) error {
	fromKey, toKey := balanceKey(from), balanceKey(to)
	if values[fromKey].Lt(amount) {
		return domain.ErrInsufficientFunds
	}
	values[fromKey] = new(uint256.Int).Sub(values[fromKey], amount)
	values[toKey] = new(uint256.Int).Add(values[toKey], amount)
	return nil
}

func parseAmount(key, value string) (*uint256.Int, error) {
	amount, err := uint256.FromDecimal(value)
	if err != nil {
		return nil, fmt.Errorf("invalid amount stored at %s: %s", key, err)
	}
	return amount, nil
}

func balanceKey(owner common.Address) string {
	return balancePrefix + owner.Hex()
}

func allowanceKey(owner, spender common.Address) string {
	return allowancePrefix + owner.Hex() + ":" + spender.Hex()
}
