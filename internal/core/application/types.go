package application

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/mmna-launch/crowdsale/internal/core/domain"
	"github.com/mmna-launch/crowdsale/internal/core/ports"
	"github.com/mmna-launch/crowdsale/pkg/merkle"
)

type Service interface {
	Start() error
	Stop()
	Admin() AdminService
	GetInfo(ctx context.Context) (*SaleInfo, error)
	GetRoundData(ctx context.Context, round domain.Round) (*domain.RoundData, error)
	BalanceOf(ctx context.Context, holder common.Address) (*uint256.Int, error)
	CanBuy(ctx context.Context, buyer common.Address, proof merkle.Proof) (bool, error)
	Buy(
		ctx context.Context, buyer common.Address, qty uint64, proof merkle.Proof,
	) (*Receipt, error)
	SwitchRound(ctx context.Context) (domain.Round, error)
	Transfer(ctx context.Context, from, to common.Address, amount *uint256.Int) error
	GetPurchases(ctx context.Context, buyer string, round domain.Round) ([]domain.Purchase, error)
	ApproveQuote(ctx context.Context, owner common.Address, amount *uint256.Int) error
	GetQuoteBalance(ctx context.Context, owner common.Address) (*QuoteBalance, error)
	GetEventsChannel(ctx context.Context) (<-chan ports.SaleNotification, error)
}

type AdminService interface {
	Initialize(ctx context.Context, prices [domain.NumOfRounds]*uint256.Int) error
	AddToWhitelist(ctx context.Context, participants ...common.Address) (int, error)
	PublishRoot(ctx context.Context, root common.Hash) error
	CollectUnsoldAndWithdraw(ctx context.Context) (*SweepReceipt, error)
	MintQuote(ctx context.Context, to common.Address, amount *uint256.Int) error
	GetStats(ctx context.Context) (*SaleStats, error)
}

type Config struct {
	Issuer  common.Address
	Wallets domain.GenesisWallets
	Rules   domain.SaleRules
	// AutoSwitch arms a task closing each round at its deadline.
	AutoSwitch bool
}

type SaleInfo struct {
	SaleId            string
	Issuer            string
	Custody           string
	CurrentRound      domain.Round
	RoundEntryTime    int64
	RoundDeadline     int64
	IsFinished        bool
	FinishedAt        int64
	TransfersUnlockAt int64
	Swept             bool
	MerkleRoot        string
	TotalSupply       *uint256.Int
	TotalSold         uint64
	Receivable        *uint256.Int
	TransferCooldown  time.Duration
	Rounds            []domain.RoundData
}

type SaleStats struct {
	SaleInfo
	WhitelistSize     int
	CustodyQuote      *uint256.Int
	CustodyTokens     *uint256.Int
	RoundStats        []domain.RoundStats
	NumOfPurchases    int
	NumOfUniqueBuyers int
}

type Receipt struct {
	PurchaseId string
	Round      domain.Round
	Quantity   uint64
	Amount     *uint256.Int
	Cost       *uint256.Int
	Timestamp  int64
}

type SweepReceipt struct {
	Unsold   *uint256.Int
	Proceeds *uint256.Int
}

type QuoteBalance struct {
	Balance   *uint256.Int
	Allowance *uint256.Int
}
