package redisledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/mmna-launch/crowdsale/internal/core/domain"
	"github.com/mmna-launch/crowdsale/internal/core/ports"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const (
	balancePrefix   = "quoteLedger:balance:"
	allowancePrefix = "quoteLedger:allowance:"
	totalSupplyKey  = "quoteLedger:totalSupply"
)

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

type ledger struct {
	rdb          *redis.Client
	numOfRetries int
}

func NewQuoteLedger(rdb *redis.Client, numOfRetries int) ports.QuoteLedger {
	if numOfRetries <= 0 {
		numOfRetries = 1
	}
	return &ledger{rdb: rdb, numOfRetries: numOfRetries}
}

func (l *ledger) BalanceOf(ctx context.Context, owner common.Address) (*uint256.Int, error) {
	return getAmount(ctx, l.rdb, balanceKey(owner))
}

func (l *ledger) Allowance(
	ctx context.Context, owner, spender common.Address,
) (*uint256.Int, error) {
	return getAmount(ctx, l.rdb, allowanceKey(owner, spender))
}

func (l *ledger) TotalSupply(ctx context.Context) (*uint256.Int, error) {
	return getAmount(ctx, l.rdb, totalSupplyKey)
}

func (l *ledger) Approve(
	ctx context.Context, owner, spender common.Address, amount *uint256.Int,
) error {
	if amount == nil {
		return domain.ErrInvalidAmount
	}
	if err := l.rdb.Set(ctx, allowanceKey(owner, spender), amount.Dec(), 0).Err(); err != nil {
		return fmt.Errorf("failed to set allowance: %s", err)
	}
	return nil
}

func (l *ledger) Mint(ctx context.Context, to common.Address, amount *uint256.Int) error {
	if amount == nil {
		return domain.ErrInvalidAmount
	}
	keys := []string{totalSupplyKey, balanceKey(to)}
	return l.update(ctx, keys, func(values map[string]*uint256.Int) error {
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
	ctx context.Context, from, to common.Address, amount *uint256.Int,
) error {
	if amount == nil {
		return domain.ErrInvalidAmount
	}
	keys := []string{balanceKey(from), balanceKey(to)}
	return l.update(ctx, keys, func(values map[string]*uint256.Int) error {
		return move(values, from, to, amount)
	})
}

func (l *ledger) TransferFrom(
	ctx context.Context, spender, owner, recipient common.Address, amount *uint256.Int,
) error {
	if amount == nil {
		return domain.ErrInvalidAmount
	}
	allowance := allowanceKey(owner, spender)
	keys := []string{allowance, balanceKey(owner), balanceKey(recipient)}
	return l.update(ctx, keys, func(values map[string]*uint256.Int) error {
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
	if err := l.rdb.Close(); err != nil {
		log.WithError(err).Warn("failed to close quote ledger connection")
	}
}

// update reads keys in an optimistic transaction, applies fn to their values
// and writes them back, retrying when a watched key changed meanwhile.
func (l *ledger) update(
	ctx context.Context, keys []string,
	fn func(values map[string]*uint256.Int) error,
) error {
	var err error
	for attempt := 0; attempt < l.numOfRetries; attempt++ {
		err = l.rdb.Watch(ctx, func(tx *redis.Tx) error {
			values := make(map[string]*uint256.Int, len(keys))
			for _, key := range keys {
				value, err := getAmount(ctx, tx, key)
				if err != nil {
					return err
				}
				values[key] = value
			}

			if err := fn(values); err != nil {
				return err
			}

			_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				for key, value := range values {
					pipe.Set(ctx, key, value.Dec(), 0)
				}
				return nil
			})
			return err
		}, keys...)
		if err == nil {
			return nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("quote ledger update failed after %d attempts: %w", l.numOfRetries, err)
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

func getAmount(ctx context.Context, rdb getter, key string) (*uint256.Int, error) {
	val, err := rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return new(uint256.Int), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %s", key, err)
	}
	amount, err := uint256.FromDecimal(val)
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
