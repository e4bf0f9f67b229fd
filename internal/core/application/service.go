package application

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/mmna-launch/crowdsale/internal/core/domain"
	"github.com/mmna-launch/crowdsale/internal/core/ports"
	"github.com/mmna-launch/crowdsale/pkg/merkle"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/mmna-launch/crowdsale/internal/core/application")

type service struct {
	// services
	repoManager ports.RepoManager
	scheduler   ports.SchedulerService
	quoteLedger ports.QuoteLedger
	broker      ports.EventBroker
	clock       *domain.RoundClock

	// config
	issuer     common.Address
	wallets    domain.GenesisWallets
	rules      domain.SaleRules
	autoSwitch bool

	// state
	lock  *sync.RWMutex
	sale  *domain.Sale
	saved int
}

func NewService(
	cfg Config, repoManager ports.RepoManager, scheduler ports.SchedulerService,
	quoteLedger ports.QuoteLedger, broker ports.EventBroker, clock *domain.RoundClock,
) (Service, error) {
	if cfg.Issuer == (common.Address{}) {
		return nil, fmt.Errorf("missing issuer address")
	}
	if err := cfg.Rules.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sale rules: %w", err)
	}
	if clock == nil {
		clock = domain.NewRoundClock(nil)
	}

	return &service{
		repoManager: repoManager,
		scheduler:   scheduler,
		quoteLedger: quoteLedger,
		broker:      broker,
		clock:       clock,
		issuer:      cfg.Issuer,
		wallets:     cfg.Wallets,
		rules:       cfg.Rules,
		autoSwitch:  cfg.AutoSwitch,
		lock:        &sync.RWMutex{},
	}, nil
}

func (s *service) Start() error {
	s.repoManager.Events().RegisterEventsHandler(domain.SaleTopic, s.handleEvents)

	ctx := context.Background()
	saleId := domain.SaleId(s.issuer)
	events, err := s.repoManager.Events().Load(ctx, domain.SaleTopic, saleId)
	if err != nil {
		return fmt.Errorf("failed to load sale: %w", err)
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	if len(events) > 0 {
		s.sale = domain.NewSaleFromEvents(events)
		s.saved = len(events)
		if s.sale.Issuer != s.issuer {
			return fmt.Errorf("stored sale belongs to issuer %s", s.sale.Issuer.Hex())
		}
		if err := s.sale.CheckSupply(); err != nil {
			return err
		}
		if err := s.checkProceeds(ctx); err != nil {
			return err
		}
		log.Infof(
			"restored sale %s at %s (%d events)", s.sale.Id, s.sale.CurrentRound, len(events),
		)
	} else {
		s.sale = domain.NewSale(s.issuer)
		if _, err := s.sale.Mint(s.wallets, s.clock.Now()); err != nil {
			return fmt.Errorf("failed to mint supply: %w", err)
		}
		if err := s.save(ctx); err != nil {
			return err
		}
		log.Infof("minted supply of sale %s", s.sale.Id)
	}

	if s.scheduler != nil {
		s.scheduler.Start()
	}
	s.scheduleRoundSwitch()

	return nil
}

func (s *service) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
		log.Debug("stopped scheduler")
	}
	s.repoManager.Events().ClearRegisteredHandlers()
	s.repoManager.Close()
	log.Debug("closed connection to db")
	s.quoteLedger.Close()
	if s.broker != nil {
		if err := s.broker.Close(); err != nil {
			log.WithError(err).Warn("failed to close event broker")
		}
	}
}

func (s *service) Admin() AdminService {
	return &adminService{s}
}

func (s *service) GetInfo(ctx context.Context) (*SaleInfo, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.info(), nil
}

func (s *service) GetRoundData(
	ctx context.Context, round domain.Round,
) (*domain.RoundData, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.sale.RoundData(round)
}

func (s *service) BalanceOf(
	ctx context.Context, holder common.Address,
) (*uint256.Int, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.sale.BalanceOf(holder), nil
}

func (s *service) CanBuy(
	ctx context.Context, buyer common.Address, proof merkle.Proof,
) (bool, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if err := s.ready(); err != nil {
		return false, err
	}
	return s.sale.CanBuy(buyer, proof), nil
}

func (s *service) Buy(
	ctx context.Context, buyer common.Address, qty uint64, proof merkle.Proof,
) (receipt *Receipt, err error) {
	ctx, span := tracer.Start(ctx, "Buy", trace.WithAttributes(
		attribute.String("buyer", buyer.Hex()),
		attribute.Int64("quantity", int64(qty)),
	))
	defer endSpan(span, &err)

	s.lock.Lock()
	defer s.lock.Unlock()

	if err := s.ready(); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	cost, err := s.sale.Quote(buyer, qty, proof, now)
	if err != nil {
		return nil, err
	}
	if qty == 0 {
		return &Receipt{
			Round:     s.sale.CurrentRound,
			Amount:    new(uint256.Int),
			Cost:      new(uint256.Int),
			Timestamp: now.Unix(),
		}, nil
	}

	custody := s.sale.Custody
	if err := s.quoteLedger.TransferFrom(ctx, custody, buyer, custody, cost); err != nil {
		return nil, fmt.Errorf("failed to collect payment: %w", err)
	}

	event, err := s.sale.Buy(uuid.New().String(), buyer, qty, proof, now)
	if err == nil {
		err = s.save(ctx)
	}
	if err != nil {
		if refundErr := s.refund(ctx, buyer, cost); refundErr != nil {
			log.WithError(refundErr).WithFields(log.Fields{
				"buyer": buyer.Hex(),
				"cost":  cost.Dec(),
			}).Error("payment left in custody")
			err = errors.Join(err, refundErr)
		}
		s.rollback(ctx)
		return nil, err
	}

	purchase := event.(domain.TokensPurchased)
	log.WithFields(log.Fields{
		"buyer":    buyer.Hex(),
		"round":    purchase.Round.String(),
		"quantity": qty,
		"cost":     cost.Dec(),
	}).Info("tokens purchased")

	if round := s.sale.Rounds[purchase.Round-1]; round.IsCapExhausted() {
		log.Infof("%s sold out", purchase.Round)
		s.scheduleSwitchAt(now.Unix(), purchase.Round)
	}

	return &Receipt{
		PurchaseId: purchase.PurchaseId,
		Round:      purchase.Round,
		Quantity:   purchase.Quantity,
		Amount:     purchase.Amount,
		Cost:       purchase.Cost,
		Timestamp:  purchase.Timestamp,
	}, nil
}

func (s *service) SwitchRound(ctx context.Context) (round domain.Round, err error) {
	ctx, span := tracer.Start(ctx, "SwitchRound")
	defer endSpan(span, &err)

	s.lock.Lock()
	defer s.lock.Unlock()

	if err := s.ready(); err != nil {
		return domain.RoundNotStarted, err
	}
	if err := s.switchRound(ctx); err != nil {
		return s.sale.CurrentRound, err
	}
	return s.sale.CurrentRound, nil
}

func (s *service) Transfer(
	ctx context.Context, from, to common.Address, amount *uint256.Int,
) (err error) {
	ctx, span := tracer.Start(ctx, "Transfer", trace.WithAttributes(
		attribute.String("from", from.Hex()),
		attribute.String("to", to.Hex()),
	))
	defer endSpan(span, &err)

	s.lock.Lock()
	defer s.lock.Unlock()

	if err := s.ready(); err != nil {
		return err
	}

	event, err := s.sale.Transfer(from, to, amount, s.clock.Now())
	if err != nil {
		return err
	}
	if event == nil {
		return nil
	}
	if err := s.save(ctx); err != nil {
		s.rollback(ctx)
		return err
	}
	return nil
}

func (s *service) GetPurchases(
	ctx context.Context, buyer string, round domain.Round,
) ([]domain.Purchase, error) {
	filter := domain.PurchaseFilter{
		SaleId: domain.SaleId(s.issuer),
		Round:  round,
	}
	if buyer != "" {
		if !common.IsHexAddress(buyer) {
			return nil, fmt.Errorf("%w: %s", domain.ErrInvalidAddress, buyer)
		}
		filter.Buyer = common.HexToAddress(buyer).Hex()
	}
	return s.repoManager.Purchases().GetPurchases(ctx, filter)
}

func (s *service) ApproveQuote(
	ctx context.Context, owner common.Address, amount *uint256.Int,
) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if err := s.ready(); err != nil {
		return err
	}
	return s.quoteLedger.Approve(ctx, owner, s.sale.Custody, amount)
}

func (s *service) GetQuoteBalance(
	ctx context.Context, owner common.Address,
) (*QuoteBalance, error) {
	custody := domain.CustodyAddress(s.issuer)
	balance, err := s.quoteLedger.BalanceOf(ctx, owner)
	if err != nil {
		return nil, err
	}
	allowance, err := s.quoteLedger.Allowance(ctx, owner, custody)
	if err != nil {
		return nil, err
	}
	return &QuoteBalance{balance, allowance}, nil
}

func (s *service) GetEventsChannel(
	ctx context.Context,
) (<-chan ports.SaleNotification, error) {
	if s.broker == nil {
		return nil, fmt.Errorf("event stream not available")
	}
	return s.broker.Subscribe(ctx)
}

func (s *service) ready() error {
	if s.sale == nil {
		return domain.ErrSaleNotFound
	}
	return nil
}

func (s *service) info() *SaleInfo {
	sale := s.sale
	info := &SaleInfo{
		SaleId:           sale.Id,
		Issuer:           sale.Issuer.Hex(),
		Custody:          sale.Custody.Hex(),
		CurrentRound:     sale.CurrentRound,
		RoundEntryTime:   sale.RoundEntryTime,
		RoundDeadline:    sale.RoundDeadline(),
		IsFinished:       sale.IsFinished(),
		FinishedAt:       sale.FinishedAt,
		Swept:            sale.Swept,
		TotalSupply:      new(uint256.Int).Set(sale.TotalSupply),
		TotalSold:        sale.TotalSold(),
		Receivable:       new(uint256.Int).Set(sale.Receivable),
		TransferCooldown: sale.Rules.TransferCooldown,
		Rounds:           make([]domain.RoundData, 0, domain.NumOfRounds),
	}
	if sale.MerkleRoot != (common.Hash{}) {
		info.MerkleRoot = sale.MerkleRoot.Hex()
	}
	if sale.IsFinished() {
		info.TransfersUnlockAt = sale.FinishedAt + int64(sale.Rules.TransferCooldown.Seconds())
	}
	if sale.IsInitialized() {
		for round := domain.Round1; round <= domain.Round3; round++ {
			data, _ := sale.RoundData(round)
			info.Rounds = append(info.Rounds, *data)
		}
	}
	return info
}

func (s *service) switchRound(ctx context.Context) error {
	event, err := s.sale.SwitchRound(s.clock.Now())
	if err != nil {
		return err
	}
	if err := s.save(ctx); err != nil {
		s.rollback(ctx)
		return err
	}

	e := event.(domain.RoundSwitched)
	log.Infof("switched from %s to %s", e.From, e.To)
	s.scheduleRoundSwitch()
	return nil
}

// scheduleRoundSwitch arms the automatic close of the current round at its
// deadline.
func (s *service) scheduleRoundSwitch() {
	if !s.sale.IsActive() {
		return
	}
	s.scheduleSwitchAt(s.sale.RoundDeadline(), s.sale.CurrentRound)
}

func (s *service) scheduleSwitchAt(at int64, round domain.Round) {
	if !s.autoSwitch || s.scheduler == nil {
		return
	}

	task := func() {
		s.lock.Lock()
		defer s.lock.Unlock()

		if s.sale == nil || s.sale.CurrentRound != round {
			return
		}
		if !s.sale.CanSwitchRound(s.clock.Now()) {
			log.Debugf("%s not closable yet, rescheduling", round)
			s.scheduleSwitchAt(s.sale.RoundDeadline(), round)
			return
		}
		if err := s.switchRound(context.Background()); err != nil {
			log.WithError(err).Warnf("failed to close %s", round)
		}
	}
	if err := s.scheduler.ScheduleTaskOnce(at, task); err != nil {
		log.WithError(err).Warnf("failed to schedule close of %s", round)
		return
	}
	log.Debugf("scheduled close of %s at %d", round, at)
}

// save persists the events raised since the last save.
func (s *service) save(ctx context.Context) error {
	events := s.sale.Events()[s.saved:]
	if len(events) <= 0 {
		return nil
	}
	if err := s.repoManager.Events().Save(
		ctx, domain.SaleTopic, s.sale.Id, events,
	); err != nil {
		return fmt.Errorf("failed to persist sale events: %w", err)
	}
	s.saved = len(s.sale.Events())
	return nil
}

// rollback drops the events not persisted by reloading the sale from the
// event store, or from the in-memory persisted prefix if the store fails.
func (s *service) rollback(ctx context.Context) {
	events, err := s.repoManager.Events().Load(ctx, domain.SaleTopic, s.sale.Id)
	if err != nil || len(events) < s.saved {
		if err != nil {
			log.WithError(err).Warn("failed to reload sale, restoring from memory")
		}
		events = append([]domain.Event{}, s.sale.Events()[:s.saved]...)
	}
	s.sale = domain.NewSaleFromEvents(events)
	s.saved = len(events)
}

// refund returns a payment collected for a purchase that was not recorded.
func (s *service) refund(ctx context.Context, buyer common.Address, cost *uint256.Int) error {
	custody := s.sale.Custody
	if err := s.quoteLedger.Transfer(ctx, custody, buyer, cost); err != nil {
		return fmt.Errorf("failed to refund %s to %s: %w", cost.Dec(), buyer.Hex(), err)
	}
	allowance, err := s.quoteLedger.Allowance(ctx, buyer, custody)
	if err != nil {
		return fmt.Errorf("failed to restore allowance of %s: %w", buyer.Hex(), err)
	}
	if err := s.quoteLedger.Approve(
		ctx, buyer, custody, new(uint256.Int).Add(allowance, cost),
	); err != nil {
		return fmt.Errorf("failed to restore allowance of %s: %w", buyer.Hex(), err)
	}
	return nil
}

// checkProceeds makes sure the quote ledger still holds the proceeds the sale
// owes the issuer.
func (s *service) checkProceeds(ctx context.Context) error {
	balance, err := s.quoteLedger.BalanceOf(ctx, s.sale.Custody)
	if err != nil {
		return fmt.Errorf("failed to get custody quote balance: %w", err)
	}
	if balance.Lt(s.sale.Receivable) {
		return fmt.Errorf(
			"%w: custody holds %s, sale proceeds are %s",
			domain.ErrProceedsNotBacked, balance.Dec(), s.sale.Receivable.Dec(),
		)
	}
	return nil
}

// handleEvents keeps the purchase projection and the live stream up to date.
func (s *service) handleEvents(events []domain.Event) {
	ctx := context.Background()

	purchases := make([]domain.Purchase, 0)
	for _, event := range events {
		if e, ok := event.(domain.TokensPurchased); ok {
			purchases = append(purchases, domain.NewPurchaseFromEvent(e))
		}
	}
	if len(purchases) > 0 {
		if err := s.repoManager.Purchases().AddPurchases(ctx, purchases); err != nil {
			log.WithError(err).Warn("failed to update purchases projection")
		}
	}

	if s.broker == nil {
		return
	}
	notifications := make([]ports.SaleNotification, 0, len(events))
	for _, event := range events {
		notification, err := toNotification(event)
		if err != nil {
			log.WithError(err).Warn("failed to build notification")
			continue
		}
		notifications = append(notifications, notification)
	}
	if err := s.broker.Publish(ctx, notifications...); err != nil {
		log.WithError(err).Warn("failed to publish notifications")
	}
}

func endSpan(span trace.Span, err *error) {
	if err != nil && *err != nil {
		span.RecordError(*err)
		span.SetStatus(codes.Error, (*err).Error())
	}
	span.End()
}
