package application

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/mmna-launch/crowdsale/internal/core/domain"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// adminService runs the issuer-only operations on behalf of the configured
// issuer.
type adminService struct {
	*service
}

func (a *adminService) Initialize(
	ctx context.Context, prices [domain.NumOfRounds]*uint256.Int,
) (err error) {
	ctx, span := tracer.Start(ctx, "Initialize")
	defer endSpan(span, &err)

	a.lock.Lock()
	defer a.lock.Unlock()

	if err := a.ready(); err != nil {
		return err
	}
	if _, err := a.sale.Initialize(a.issuer, prices, a.rules, a.clock.Now()); err != nil {
		return err
	}
	if err := a.save(ctx); err != nil {
		a.rollback(ctx)
		return err
	}

	log.WithFields(log.Fields{
		"round1": prices[0].Dec(),
		"round2": prices[1].Dec(),
		"round3": prices[2].Dec(),
	}).Infof("sale %s initialized", a.sale.Id)
	a.scheduleRoundSwitch()
	return nil
}

func (a *adminService) AddToWhitelist(
	ctx context.Context, participants ...common.Address,
) (count int, err error) {
	ctx, span := tracer.Start(ctx, "AddToWhitelist", trace.WithAttributes(
		attribute.Int("participants", len(participants)),
	))
	defer endSpan(span, &err)

	a.lock.Lock()
	defer a.lock.Unlock()

	if err := a.ready(); err != nil {
		return 0, err
	}
	event, err := a.sale.AddToWhitelist(a.issuer, participants...)
	if err != nil {
		return 0, err
	}
	if event == nil {
		return 0, nil
	}
	if err := a.save(ctx); err != nil {
		a.rollback(ctx)
		return 0, err
	}

	count = len(event.(domain.ParticipantsWhitelisted).Participants)
	log.Infof("whitelisted %d participants", count)
	return count, nil
}

func (a *adminService) PublishRoot(ctx context.Context, root common.Hash) (err error) {
	ctx, span := tracer.Start(ctx, "PublishRoot", trace.WithAttributes(
		attribute.String("root", root.Hex()),
	))
	defer endSpan(span, &err)

	a.lock.Lock()
	defer a.lock.Unlock()

	if err := a.ready(); err != nil {
		return err
	}
	if _, err := a.sale.PublishRoot(a.issuer, root, a.clock.Now()); err != nil {
		return err
	}
	if err := a.save(ctx); err != nil {
		a.rollback(ctx)
		return err
	}

	log.Infof("published merkle root %s", root.Hex())
	return nil
}

func (a *adminService) CollectUnsoldAndWithdraw(
	ctx context.Context,
) (receipt *SweepReceipt, err error) {
	ctx, span := tracer.Start(ctx, "CollectUnsoldAndWithdraw")
	defer endSpan(span, &err)

	a.lock.Lock()
	defer a.lock.Unlock()

	if err := a.ready(); err != nil {
		return nil, err
	}
	event, err := a.sale.CollectUnsold(a.issuer, a.clock.Now())
	if err != nil {
		return nil, err
	}
	swept := event.(domain.TreasurySwept)

	custody := a.sale.Custody
	if !swept.Proceeds.IsZero() {
		if err := a.quoteLedger.Transfer(ctx, custody, a.issuer, swept.Proceeds); err != nil {
			a.rollback(ctx)
			return nil, fmt.Errorf("failed to withdraw proceeds: %w", err)
		}
	}
	if err := a.save(ctx); err != nil {
		if !swept.Proceeds.IsZero() {
			if err := a.quoteLedger.Transfer(
				ctx, a.issuer, custody, swept.Proceeds,
			); err != nil {
				log.WithError(err).Error("failed to revert proceeds withdrawal")
			}
		}
		a.rollback(ctx)
		return nil, err
	}

	log.WithFields(log.Fields{
		"unsold":   swept.Unsold.Dec(),
		"proceeds": swept.Proceeds.Dec(),
	}).Info("treasury swept to issuer")

	return &SweepReceipt{
		Unsold:   swept.Unsold,
		Proceeds: swept.Proceeds,
	}, nil
}

func (a *adminService) MintQuote(
	ctx context.Context, to common.Address, amount *uint256.Int,
) error {
	if to == (common.Address{}) {
		return fmt.Errorf("%w: zero recipient", domain.ErrInvalidAddress)
	}
	if amount == nil || amount.IsZero() {
		return domain.ErrInvalidAmount
	}
	return a.quoteLedger.Mint(ctx, to, amount)
}

func (a *adminService) GetStats(ctx context.Context) (*SaleStats, error) {
	a.lock.RLock()
	if err := a.ready(); err != nil {
		a.lock.RUnlock()
		return nil, err
	}
	info := a.info()
	whitelistSize := len(a.sale.Whitelist)
	custody := a.sale.Custody
	custodyTokens := a.sale.BalanceOf(custody)
	a.lock.RUnlock()

	custodyQuote, err := a.quoteLedger.BalanceOf(ctx, custody)
	if err != nil {
		return nil, err
	}
	purchases, err := a.repoManager.Purchases().GetPurchases(
		ctx, domain.PurchaseFilter{SaleId: info.SaleId},
	)
	if err != nil {
		return nil, err
	}

	return &SaleStats{
		SaleInfo:          *info,
		WhitelistSize:     whitelistSize,
		CustodyQuote:      custodyQuote,
		CustodyTokens:     custodyTokens,
		RoundStats:        domain.ComputeRoundStats(purchases),
		NumOfPurchases:    len(purchases),
		NumOfUniqueBuyers: uniqueBuyers(purchases),
	}, nil
}
