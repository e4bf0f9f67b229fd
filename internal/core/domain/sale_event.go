package domain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

const SaleTopic = "sale"

type SaleEvent struct {
	Id   string
	Type EventType
}

func (s SaleEvent) GetTopic() string   { return SaleTopic }
func (s SaleEvent) GetType() EventType { return s.Type }

type SaleCreated struct {
	SaleEvent
	Issuer      common.Address
	Custody     common.Address
	TotalSupply *uint256.Int
	Allocations []Allocation
	Timestamp   int64
}

type SaleInitialized struct {
	SaleEvent
	Prices    [NumOfRounds]*uint256.Int
	Rules     SaleRules
	Timestamp int64
}

type ParticipantsWhitelisted struct {
	SaleEvent
	Participants []common.Address
}

type MerkleRootPublished struct {
	SaleEvent
	Root      common.Hash
	Timestamp int64
}

type TokensPurchased struct {
	SaleEvent
	PurchaseId string
	Round      Round
	Buyer      common.Address
	Quantity   uint64
	Amount     *uint256.Int
	Cost       *uint256.Int
	Timestamp  int64
}

type RoundSwitched struct {
	SaleEvent
	From      Round
	To        Round
	Timestamp int64
}

type TokensTransferred struct {
	SaleEvent
	From      common.Address
	To        common.Address
	Amount    *uint256.Int
	Timestamp int64
}

type TreasurySwept struct {
	SaleEvent
	Issuer    common.Address
	Unsold    *uint256.Int
	Proceeds  *uint256.Int
	Timestamp int64
}
