package ports

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// QuoteLedger keeps the balances and allowances of the quote currency the
// sale is paid with. Amounts are in base units (6 decimals).
type QuoteLedger interface {
	BalanceOf(ctx context.Context, owner common.Address) (*uint256.Int, error)
	Allowance(ctx context.Context, owner, spender common.Address) (*uint256.Int, error)
	TotalSupply(ctx context.Context) (*uint256.Int, error)
	Approve(ctx context.Context, owner, spender common.Address, amount *uint256.Int) error
	Mint(ctx context.Context, to common.Address, amount *uint256.Int) error
	Transfer(ctx context.Context, from, to common.Address, amount *uint256.Int) error
	// TransferFrom moves amount from owner to recipient spending the allowance
	// owner granted to spender. Fails with domain.ErrInsufficientAllowance or
	// domain.ErrInsufficientFunds, in this order, leaving state untouched.
	TransferFrom(
		ctx context.Context, spender, owner, recipient common.Address, amount *uint256.Int,
	) error
	Close()
}
