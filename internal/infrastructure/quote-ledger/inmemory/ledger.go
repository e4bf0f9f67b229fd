package inmemoryledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/mmna-launch/crowdsale/internal/core/domain"
	"github.com/mmna-launch/crowdsale/internal/core/ports"
)

type allowanceKey struct {
	owner, spender common.Address
}

type ledger struct {
	lock        *sync.RWMutex
	balances    map[common.Address]*uint256.Int
	allowances  map[allowanceKey]*uint256.Int
	totalSupply *uint256.Int
}

func NewQuoteLedger() ports.QuoteLedger {
	return &ledger{
		lock:        &sync.RWMutex{},
		balances:    make(map[common.Address]*uint256.Int),
		allowances:  make(map[allowanceKey]*uint256.Int),
		totalSupply: new(uint256.Int),
	}
}

func (l *ledger) BalanceOf(_ context.Context, owner common.Address) (*uint256.Int, error) {
	l.lock.RLock()
	defer l.lock.RUnlock()

	return clone(l.balances[owner]), nil
}

func (l *ledger) Allowance(
	_ context.Context, owner, spender common.Address,
) (*uint256.Int, error) {
	l.lock.RLock()
	defer l.lock.RUnlock()

	return clone(l.allowances[allowanceKey{owner, spender}]), nil
}

func (l *ledger) TotalSupply(_ context.Context) (*uint256.Int, error) {
	l.lock.RLock()
	defer l.lock.RUnlock()

	return clone(l.totalSupply), nil
}

func (l *ledger) Approve(
	_ context.Context, owner, spender common.Address, amount *uint256.Int,
) error {
	if amount == nil {
		return domain.ErrInvalidAmount
	}

	l.lock.Lock()
	defer l.lock.Unlock()

	l.allowances[allowanceKey{owner, spender}] = clone(amount)
	return nil
}

func (l *ledger) Mint(_ context.Context, to common.Address, amount *uint256.Int) error {
	if amount == nil {
		return domain.ErrInvalidAmount
	}

	l.lock.Lock()
	defer l.lock.Unlock()

	supply, overflow := new(uint256.Int).AddOverflow(l.totalSupply, amount)
	if overflow {
		return fmt.Errorf("%w: supply overflows", domain.ErrInvalidAmount)
	}
	l.totalSupply = supply
	l.balances[to] = new(uint256.Int).Add(clone(l.balances[to]), amount)
	return nil
}

func (l *ledger) Transfer(
	_ context.Context, from, to common.Address, amount *uint256.Int,
) error {
	if amount == nil {
		return domain.ErrInvalidAmount
	}

	l.lock.Lock()
	defer l.lock.Unlock()

	return l.move(from, to, amount)
}

func (l *ledger) TransferFrom(
	_ context.Context, spender, owner, recipient common.Address, amount *uint256.Int,
) error {
	if amount == nil {
		return domain.ErrInvalidAmount
	}

	l.lock.Lock()
	defer l.lock.Unlock()

	key := allowanceKey{owner, spender}
	allowance := clone(l.allowances[key])
	if allowance.Lt(amount) {
		return domain.ErrInsufficientAllowance
	}
	if err := l.move(owner, recipient, amount); err != nil {
		return err
	}
	l.allowances[key] = allowance.Sub(allowance, amount)
	return nil
}

func (l *ledger) Close() {}

func (l *ledger) move(from, to common.Address, amount *uint256.Int) error {
	balance := clone(l.balances[from])
	if balance.Lt(amount) {
		return domain.ErrInsufficientFunds
	}
	l.balances[from] = balance.Sub(balance, amount)
	l.balances[to] = new(uint256.Int).Add(clone(l.balances[to]), amount)
	return nil
}

func clone(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(v)
}
