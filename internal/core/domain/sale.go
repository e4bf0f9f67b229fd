package domain

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/mmna-launch/crowdsale/pkg/merkle"
)

type Sale struct {
	Id             string
	Issuer         common.Address
	Custody        common.Address
	Rules          SaleRules
	Rounds         [NumOfRounds]RoundData
	CurrentRound   Round
	RoundEntryTime int64
	Whitelist      map[common.Address]struct{}
	MerkleRoot     common.Hash
	Balances       map[common.Address]*uint256.Int
	TotalSupply    *uint256.Int
	Receivable     *uint256.Int
	FinishedAt     int64
	Swept          bool
	Version        uint
	changes        []Event
}

// CustodyAddress derives the account holding unsold tokens and collected
// quote currency on behalf of the issuer.
func CustodyAddress(issuer common.Address) common.Address {
	return crypto.CreateAddress(issuer, 0)
}

// SaleId is the id under which the sale of the given issuer is stored.
func SaleId(issuer common.Address) string {
	return CustodyAddress(issuer).Hex()
}

func NewSale(issuer common.Address) *Sale {
	custody := CustodyAddress(issuer)
	return &Sale{
		Id:          custody.Hex(),
		Issuer:      issuer,
		Custody:     custody,
		Whitelist:   make(map[common.Address]struct{}),
		Balances:    make(map[common.Address]*uint256.Int),
		TotalSupply: new(uint256.Int),
		Receivable:  new(uint256.Int),
		changes:     make([]Event, 0),
	}
}

func NewSaleFromEvents(events []Event) *Sale {
	s := &Sale{
		Whitelist:   make(map[common.Address]struct{}),
		Balances:    make(map[common.Address]*uint256.Int),
		TotalSupply: new(uint256.Int),
		Receivable:  new(uint256.Int),
	}

	for _, event := range events {
		s.on(event, true)
	}

	s.changes = append([]Event{}, events...)

	return s
}

// Mint creates the token supply and distributes it to the genesis wallets.
func (s *Sale) Mint(wallets GenesisWallets, now time.Time) (Event, error) {
	if s.IsCreated() {
		return nil, fmt.Errorf("supply already minted")
	}
	if s.Issuer == (common.Address{}) {
		return nil, fmt.Errorf("%w: missing issuer", ErrInvalidAddress)
	}
	allocations, err := GenesisAllocations(wallets, s.Custody)
	if err != nil {
		return nil, err
	}

	event := SaleCreated{
		SaleEvent:   SaleEvent{Id: s.Id, Type: EventTypeSaleCreated},
		Issuer:      s.Issuer,
		Custody:     s.Custody,
		TotalSupply: TotalSupply(),
		Allocations: allocations,
		Timestamp:   now.Unix(),
	}
	s.raise(event)
	return event, nil
}

// Initialize fixes the round prices and rules and opens round 1.
func (s *Sale) Initialize(
	caller common.Address, prices [NumOfRounds]*uint256.Int, rules SaleRules,
	now time.Time,
) (Event, error) {
	if caller != s.Issuer {
		return nil, ErrNotIssuer
	}
	if !s.IsCreated() {
		return nil, fmt.Errorf("supply not minted yet")
	}
	if s.CurrentRound != RoundNotStarted {
		return nil, ErrAlreadyInitialized
	}
	for i, price := range prices {
		if price == nil || price.IsZero() {
			return nil, fmt.Errorf("%w for round %d", ErrInvalidPrice, i+1)
		}
	}
	if err := rules.Validate(); err != nil {
		return nil, err
	}

	event := SaleInitialized{
		SaleEvent: SaleEvent{Id: s.Id, Type: EventTypeSaleInitialized},
		Rules:     rules,
		Timestamp: now.Unix(),
	}
	for i, price := range prices {
		event.Prices[i] = new(uint256.Int).Set(price)
	}
	s.raise(event)
	return event, nil
}

// AddToWhitelist admits the given participants to round 1. Participants
// already whitelisted are skipped, and no event is raised if none is new.
func (s *Sale) AddToWhitelist(
	caller common.Address, participants ...common.Address,
) (Event, error) {
	if caller != s.Issuer {
		return nil, ErrNotIssuer
	}
	if s.CurrentRound != Round1 {
		return nil, ErrWhitelistClosed
	}

	seen := make(map[common.Address]struct{})
	added := make([]common.Address, 0, len(participants))
	for _, p := range participants {
		if p == (common.Address{}) {
			return nil, fmt.Errorf("%w: zero address", ErrInvalidAddress)
		}
		if _, ok := s.Whitelist[p]; ok {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		added = append(added, p)
	}
	if len(added) <= 0 {
		return nil, nil
	}

	event := ParticipantsWhitelisted{
		SaleEvent:    SaleEvent{Id: s.Id, Type: EventTypeParticipantsWhitelisted},
		Participants: added,
	}
	s.raise(event)
	return event, nil
}

// PublishRoot sets the merkle root shared by every proof-gated round,
// replacing any previous one.
func (s *Sale) PublishRoot(
	caller common.Address, root common.Hash, now time.Time,
) (Event, error) {
	if caller != s.Issuer {
		return nil, ErrNotIssuer
	}
	if root == (common.Hash{}) {
		return nil, ErrInvalidRoot
	}

	event := MerkleRootPublished{
		SaleEvent: SaleEvent{Id: s.Id, Type: EventTypeMerkleRootPublished},
		Root:      root,
		Timestamp: now.Unix(),
	}
	s.raise(event)
	return event, nil
}

func (s *Sale) IsWhitelisted(participant common.Address) bool {
	_, ok := s.Whitelist[participant]
	return ok
}

// CanBuy reports whether the buyer is eligible in the current round.
func (s *Sale) CanBuy(buyer common.Address, proof merkle.Proof) bool {
	if !s.CurrentRound.IsActive() {
		return false
	}
	return s.isEligible(s.Rounds[s.CurrentRound.index()], buyer, proof)
}

// Quote validates a purchase of qty whole tokens in the current round and
// returns its cost in quote base units.
func (s *Sale) Quote(
	buyer common.Address, qty uint64, proof merkle.Proof, now time.Time,
) (*uint256.Int, error) {
	if !s.CurrentRound.IsActive() {
		return nil, ErrSaleNotActive
	}
	round := s.Rounds[s.CurrentRound.index()]

	if s.CurrentRound == Round1 && s.Rules.SetupWindow > 0 {
		opensAt := round.StartedAt + int64(s.Rules.SetupWindow/time.Second)
		if now.Unix() < opensAt {
			return nil, fmt.Errorf("%w: purchases open at %d", ErrSaleNotActive, opensAt)
		}
	}
	if !s.isEligible(round, buyer, proof) {
		return nil, ErrBuyNotAllowed
	}
	if remaining, capped := round.Remaining(); capped && qty > remaining {
		return nil, fmt.Errorf(
			"%w: %d tokens left in %s", ErrRoundCapExceeded, remaining, s.CurrentRound,
		)
	}
	tokens, overflow := new(uint256.Int).MulOverflow(uint256.NewInt(qty), TokenUnit())
	if overflow {
		return nil, fmt.Errorf("%w: quantity overflows", ErrInvalidAmount)
	}
	if s.BalanceOf(s.Custody).Lt(tokens) {
		return nil, fmt.Errorf("%w: not enough tokens left for sale", ErrInsufficientBalance)
	}

	return round.Cost(qty)
}

// Buy credits the buyer with qty whole tokens bought in the current round. A
// zero quantity passes every check but raises no event.
func (s *Sale) Buy(
	purchaseId string, buyer common.Address, qty uint64, proof merkle.Proof,
	now time.Time,
) (Event, error) {
	cost, err := s.Quote(buyer, qty, proof, now)
	if err != nil {
		return nil, err
	}
	if qty == 0 {
		return nil, nil
	}
	if purchaseId == "" {
		purchaseId = uuid.New().String()
	}

	event := TokensPurchased{
		SaleEvent:  SaleEvent{Id: s.Id, Type: EventTypeTokensPurchased},
		PurchaseId: purchaseId,
		Round:      s.CurrentRound,
		Buyer:      buyer,
		Quantity:   qty,
		Amount:     Tokens(qty),
		Cost:       cost,
		Timestamp:  now.Unix(),
	}
	s.raise(event)
	return event, nil
}

// CanSwitchRound reports whether the current round can be closed, either
// because its duration elapsed or because its cap is sold out.
func (s *Sale) CanSwitchRound(now time.Time) bool {
	if !s.CurrentRound.IsActive() {
		return false
	}
	round := s.Rounds[s.CurrentRound.index()]
	if round.IsCapExhausted() {
		return true
	}
	return now.Unix() >= s.RoundDeadline()
}

// RoundDeadline returns the unix time at which the current round becomes
// closable by elapsed duration, or 0 if no round is active.
func (s *Sale) RoundDeadline() int64 {
	if !s.CurrentRound.IsActive() {
		return 0
	}
	round := s.Rounds[s.CurrentRound.index()]
	return s.RoundEntryTime + int64(round.Duration/time.Second)
}

func (s *Sale) SwitchRound(now time.Time) (Event, error) {
	if !s.CurrentRound.IsActive() {
		return nil, ErrSaleNotActive
	}
	if !s.CanSwitchRound(now) {
		return nil, fmt.Errorf(
			"%w: %s closes at %d", ErrRoundNotClosable, s.CurrentRound, s.RoundDeadline(),
		)
	}

	event := RoundSwitched{
		SaleEvent: SaleEvent{Id: s.Id, Type: EventTypeRoundSwitched},
		From:      s.CurrentRound,
		To:        s.CurrentRound + 1,
		Timestamp: now.Unix(),
	}
	s.raise(event)
	return event, nil
}

// IsTransferAllowed returns whether caller may move its tokens. The issuer
// always can, anyone else once the cooldown after the sale end elapsed.
func (s *Sale) IsTransferAllowed(caller common.Address, now time.Time) bool {
	if caller == s.Issuer {
		return true
	}
	if !s.IsFinished() {
		return false
	}
	return now.Unix() >= s.FinishedAt+int64(s.Rules.TransferCooldown/time.Second)
}

func (s *Sale) Transfer(
	from, to common.Address, amount *uint256.Int, now time.Time,
) (Event, error) {
	if from == s.Custody || !s.IsTransferAllowed(from, now) {
		return nil, ErrTransferLocked
	}
	if to == (common.Address{}) {
		return nil, fmt.Errorf("%w: zero recipient", ErrInvalidAddress)
	}
	if amount == nil {
		return nil, ErrInvalidAmount
	}
	if s.BalanceOf(from).Lt(amount) {
		return nil, ErrInsufficientBalance
	}
	if amount.IsZero() {
		return nil, nil
	}

	event := TokensTransferred{
		SaleEvent: SaleEvent{Id: s.Id, Type: EventTypeTokensTransferred},
		From:      from,
		To:        to,
		Amount:    new(uint256.Int).Set(amount),
		Timestamp: now.Unix(),
	}
	s.raise(event)
	return event, nil
}

// CollectUnsold moves the unsold tokens and the collected quote currency from
// custody to the issuer. It can happen only once, after the last round.
func (s *Sale) CollectUnsold(caller common.Address, now time.Time) (Event, error) {
	if caller != s.Issuer {
		return nil, ErrNotIssuer
	}
	if !s.IsFinished() {
		return nil, ErrSaleNotEnded
	}
	if s.Swept {
		return nil, ErrAlreadySwept
	}

	event := TreasurySwept{
		SaleEvent: SaleEvent{Id: s.Id, Type: EventTypeTreasurySwept},
		Issuer:    s.Issuer,
		Unsold:    s.BalanceOf(s.Custody),
		Proceeds:  new(uint256.Int).Set(s.Receivable),
		Timestamp: now.Unix(),
	}
	s.raise(event)
	return event, nil
}

func (s *Sale) RoundData(round Round) (*RoundData, error) {
	if !round.IsActive() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRound, round)
	}
	data := s.Rounds[round.index()].copy()
	return &data, nil
}

func (s *Sale) PriceOf(round Round) (*uint256.Int, error) {
	data, err := s.RoundData(round)
	if err != nil {
		return nil, err
	}
	if data.Price == nil {
		return nil, fmt.Errorf("%w: prices not set", ErrUnknownRound)
	}
	return data.Price, nil
}

// BalanceOf returns a copy of the holder's token balance.
func (s *Sale) BalanceOf(holder common.Address) *uint256.Int {
	balance, ok := s.Balances[holder]
	if !ok {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(balance)
}

// Circulating sums every balance, custody included.
func (s *Sale) Circulating() *uint256.Int {
	sum := new(uint256.Int)
	for _, balance := range s.Balances {
		sum.Add(sum, balance)
	}
	return sum
}

// CheckSupply verifies that no token was created or destroyed.
func (s *Sale) CheckSupply() error {
	if circulating := s.Circulating(); !circulating.Eq(s.TotalSupply) {
		return fmt.Errorf(
			"supply mismatch: balances sum to %s, total supply is %s",
			circulating.Dec(), s.TotalSupply.Dec(),
		)
	}
	return nil
}

func (s *Sale) TotalSold() uint64 {
	var sold uint64
	for _, round := range s.Rounds {
		sold += round.Sold
	}
	return sold
}

func (s *Sale) Events() []Event {
	return s.changes
}

func (s *Sale) IsCreated() bool {
	return s.TotalSupply != nil && !s.TotalSupply.IsZero()
}

func (s *Sale) IsInitialized() bool {
	return s.CurrentRound != RoundNotStarted
}

func (s *Sale) IsActive() bool {
	return s.CurrentRound.IsActive()
}

func (s *Sale) IsFinished() bool {
	return s.CurrentRound == RoundFinished
}

func (s *Sale) isEligible(
	round RoundData, buyer common.Address, proof merkle.Proof,
) bool {
	switch round.Eligibility {
	case WhitelistEligibility:
		return s.IsWhitelisted(buyer)
	case MerkleProofEligibility:
		if s.MerkleRoot == (common.Hash{}) {
			return false
		}
		return merkle.VerifyAccount(proof, s.MerkleRoot, buyer)
	case PublicEligibility:
		return true
	default:
		return false
	}
}

func (s *Sale) credit(holder common.Address, amount *uint256.Int) {
	if amount == nil || amount.IsZero() {
		return
	}
	balance, ok := s.Balances[holder]
	if !ok {
		balance = new(uint256.Int)
		s.Balances[holder] = balance
	}
	balance.Add(balance, amount)
}

func (s *Sale) debit(holder common.Address, amount *uint256.Int) {
	if amount == nil {
		return
	}
	balance, ok := s.Balances[holder]
	if !ok {
		return
	}
	balance.Sub(balance, amount)
	if balance.IsZero() {
		delete(s.Balances, holder)
	}
}

func (s *Sale) on(event Event, replayed bool) {
	switch e := event.(type) {
	case SaleCreated:
		s.Id = e.Id
		s.Issuer = e.Issuer
		s.Custody = e.Custody
		s.TotalSupply = new(uint256.Int).Set(e.TotalSupply)
		for _, allocation := range e.Allocations {
			s.credit(allocation.Holder, allocation.Amount)
		}
	case SaleInitialized:
		s.Rules = e.Rules
		for i, rules := range e.Rules.Rounds {
			s.Rounds[i] = RoundData{
				Round:       Round(i + 1),
				Price:       new(uint256.Int).Set(e.Prices[i]),
				Duration:    rules.Duration,
				Cap:         rules.Cap,
				Eligibility: rules.Eligibility,
				Raised:      new(uint256.Int),
			}
		}
		s.CurrentRound = Round1
		s.RoundEntryTime = e.Timestamp
		s.Rounds[0].StartedAt = e.Timestamp
	case ParticipantsWhitelisted:
		for _, p := range e.Participants {
			s.Whitelist[p] = struct{}{}
		}
	case MerkleRootPublished:
		s.MerkleRoot = e.Root
	case TokensPurchased:
		round := &s.Rounds[e.Round.index()]
		round.Sold += e.Quantity
		round.Raised = new(uint256.Int).Add(round.Raised, e.Cost)
		s.Receivable = new(uint256.Int).Add(s.Receivable, e.Cost)
		s.debit(s.Custody, e.Amount)
		s.credit(e.Buyer, e.Amount)
	case RoundSwitched:
		s.CurrentRound = e.To
		s.RoundEntryTime = e.Timestamp
		if e.To.IsActive() {
			s.Rounds[e.To.index()].StartedAt = e.Timestamp
		}
		if e.To == RoundFinished {
			s.FinishedAt = e.Timestamp
		}
	case TokensTransferred:
		s.debit(e.From, e.Amount)
		s.credit(e.To, e.Amount)
	case TreasurySwept:
		s.debit(s.Custody, e.Unsold)
		s.credit(e.Issuer, e.Unsold)
		s.Receivable = new(uint256.Int)
		s.Swept = true
	}

	if replayed {
		s.Version++
	}
}

func (s *Sale) raise(event Event) {
	if s.changes == nil {
		s.changes = make([]Event, 0)
	}
	s.changes = append(s.changes, event)
	s.on(event, false)
}
