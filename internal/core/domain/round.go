package domain

import (
	"fmt"
	"time"

	"github.com/holiman/uint256"
)

const (
	RoundNotStarted Round = iota
	Round1
	Round2
	Round3
	RoundFinished
)

const NumOfRounds = 3

type Round int

func (r Round) String() string {
	switch r {
	case Round1:
		return "ROUND_1"
	case Round2:
		return "ROUND_2"
	case Round3:
		return "ROUND_3"
	case RoundFinished:
		return "FINISHED"
	default:
		return "NOT_STARTED"
	}
}

// IsActive returns whether purchases can happen in the round.
func (r Round) IsActive() bool {
	return r >= Round1 && r <= Round3
}

func (r Round) index() int {
	return int(r) - 1
}

func ParseRound(n int) (Round, error) {
	r := Round(n)
	if !r.IsActive() {
		return RoundNotStarted, fmt.Errorf("%w: %d", ErrUnknownRound, n)
	}
	return r, nil
}

const (
	WhitelistEligibility EligibilityKind = iota
	MerkleProofEligibility
	PublicEligibility
)

type EligibilityKind int

func (k EligibilityKind) String() string {
	switch k {
	case WhitelistEligibility:
		return "WHITELIST"
	case MerkleProofEligibility:
		return "MERKLE_PROOF"
	case PublicEligibility:
		return "PUBLIC"
	default:
		return "UNKNOWN"
	}
}

// RoundRules are fixed when the sale is initialized and never change.
type RoundRules struct {
	Duration    time.Duration
	Cap         uint64 // whole tokens, 0 means unlimited
	Eligibility EligibilityKind
}

type SaleRules struct {
	Rounds           [NumOfRounds]RoundRules
	TransferCooldown time.Duration
	// Purchases are rejected for this long after round 1 opens.
	SetupWindow time.Duration
}

func DefaultSaleRules() SaleRules {
	return SaleRules{
		Rounds: [NumOfRounds]RoundRules{
			{Duration: 8 * time.Hour, Cap: 50_000, Eligibility: WhitelistEligibility},
			{Duration: 8 * time.Hour, Cap: 18_000, Eligibility: MerkleProofEligibility},
			{Duration: 14 * time.Hour, Eligibility: MerkleProofEligibility},
		},
		TransferCooldown: 6 * time.Hour,
	}
}

func (r SaleRules) Validate() error {
	for i, round := range r.Rounds {
		if round.Duration <= 0 {
			return fmt.Errorf("invalid duration for round %d", i+1)
		}
		if round.Eligibility < WhitelistEligibility || round.Eligibility > PublicEligibility {
			return fmt.Errorf("invalid eligibility for round %d", i+1)
		}
	}
	if r.TransferCooldown < 0 {
		return fmt.Errorf("invalid transfer cooldown")
	}
	if r.SetupWindow < 0 || r.SetupWindow >= r.Rounds[0].Duration {
		return fmt.Errorf("setup window must be shorter than round 1")
	}
	return nil
}

// RoundData is the pricing ledger entry of a single round.
type RoundData struct {
	Round       Round
	Price       *uint256.Int // quote base units per whole token
	Duration    time.Duration
	Cap         uint64
	Eligibility EligibilityKind
	StartedAt   int64
	Sold        uint64 // whole tokens
	Raised      *uint256.Int
}

func (r RoundData) IsStarted() bool {
	return r.StartedAt > 0
}

func (r RoundData) Remaining() (uint64, bool) {
	if r.Cap == 0 {
		return 0, false
	}
	if r.Sold >= r.Cap {
		return 0, true
	}
	return r.Cap - r.Sold, true
}

func (r RoundData) IsCapExhausted() bool {
	remaining, capped := r.Remaining()
	return capped && remaining == 0
}

// Cost returns price * qty, in quote base units.
func (r RoundData) Cost(qty uint64) (*uint256.Int, error) {
	if r.Price == nil {
		return nil, fmt.Errorf("%w: round %d has no price", ErrUnknownRound, r.Round)
	}
	cost, overflow := new(uint256.Int).MulOverflow(r.Price, uint256.NewInt(qty))
	if overflow {
		return nil, fmt.Errorf("%w: cost overflows", ErrInvalidAmount)
	}
	return cost, nil
}

func (r RoundData) copy() RoundData {
	cp := r
	if r.Price != nil {
		cp.Price = new(uint256.Int).Set(r.Price)
	}
	if r.Raised != nil {
		cp.Raised = new(uint256.Int).Set(r.Raised)
	}
	return cp
}
