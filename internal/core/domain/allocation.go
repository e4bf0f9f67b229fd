package domain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

const (
	// MaxSupply is the fixed supply in whole tokens.
	MaxSupply     = 88_888_888_888
	TokenDecimals = 18
	QuoteDecimals = 6

	basisPoints = 10_000
)

const (
	TeamAllocation AllocationKind = iota
	AirdropsAllocation
	InfluencersAllocation
	MarketingAllocation
	CrowdsaleAllocation
)

type AllocationKind int

func (k AllocationKind) String() string {
	switch k {
	case TeamAllocation:
		return "TEAM"
	case AirdropsAllocation:
		return "AIRDROPS"
	case InfluencersAllocation:
		return "INFLUENCERS"
	case MarketingAllocation:
		return "MARKETING"
	case CrowdsaleAllocation:
		return "CROWDSALE"
	default:
		return "UNKNOWN"
	}
}

var allocationShares = []struct {
	kind AllocationKind
	bps  uint64
}{
	{TeamAllocation, 1100},
	{AirdropsAllocation, 110},
	{InfluencersAllocation, 300},
	{MarketingAllocation, 1000},
}

type Allocation struct {
	Kind   AllocationKind
	Holder common.Address
	Amount *uint256.Int
}

type GenesisWallets struct {
	Team        common.Address
	Airdrops    common.Address
	Influencers common.Address
	Marketing   common.Address
}

func (w GenesisWallets) holder(kind AllocationKind) common.Address {
	switch kind {
	case TeamAllocation:
		return w.Team
	case AirdropsAllocation:
		return w.Airdrops
	case InfluencersAllocation:
		return w.Influencers
	default:
		return w.Marketing
	}
}

// TokenUnit is 10^18, the base units of one whole token.
func TokenUnit() *uint256.Int {
	return new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(TokenDecimals))
}

// Tokens converts whole tokens to base units.
func Tokens(whole uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(whole), TokenUnit())
}

func TotalSupply() *uint256.Int {
	return Tokens(MaxSupply)
}

// GenesisAllocations splits the supply among the genesis wallets, each share
// rounded half up to whole tokens, and assigns the remainder to custody.
func GenesisAllocations(
	wallets GenesisWallets, custody common.Address,
) ([]Allocation, error) {
	if custody == (common.Address{}) {
		return nil, fmt.Errorf("%w: missing custody", ErrInvalidAddress)
	}

	allocations := make([]Allocation, 0, len(allocationShares)+1)
	remainder := uint64(MaxSupply)
	for _, share := range allocationShares {
		holder := wallets.holder(share.kind)
		if holder == (common.Address{}) {
			return nil, fmt.Errorf("%w: missing %s wallet", ErrInvalidAddress, share.kind)
		}
		whole := (MaxSupply*share.bps + basisPoints/2) / basisPoints
		remainder -= whole
		allocations = append(allocations, Allocation{
			Kind:   share.kind,
			Holder: holder,
			Amount: Tokens(whole),
		})
	}

	allocations = append(allocations, Allocation{
		Kind:   CrowdsaleAllocation,
		Holder: custody,
		Amount: Tokens(remainder),
	})
	return allocations, nil
}
