package application

import (
	"encoding/json"

	"github.com/mmna-launch/crowdsale/internal/core/domain"
	"github.com/mmna-launch/crowdsale/internal/core/ports"
)

func toNotification(event domain.Event) (ports.SaleNotification, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return ports.SaleNotification{}, err
	}

	notification := ports.SaleNotification{
		Type: event.GetType().String(),
		Data: data,
	}
	switch e := event.(type) {
	case domain.SaleCreated:
		notification.SaleId = e.Id
		notification.Timestamp = e.Timestamp
	case domain.SaleInitialized:
		notification.SaleId = e.Id
		notification.Round = domain.Round1.String()
		notification.Timestamp = e.Timestamp
	case domain.ParticipantsWhitelisted:
		notification.SaleId = e.Id
		notification.Round = domain.Round1.String()
	case domain.MerkleRootPublished:
		notification.SaleId = e.Id
		notification.Timestamp = e.Timestamp
	case domain.TokensPurchased:
		notification.SaleId = e.Id
		notification.Round = e.Round.String()
		notification.Timestamp = e.Timestamp
	case domain.RoundSwitched:
		notification.SaleId = e.Id
		notification.Round = e.To.String()
		notification.Timestamp = e.Timestamp
	case domain.TokensTransferred:
		notification.SaleId = e.Id
		notification.Timestamp = e.Timestamp
	case domain.TreasurySwept:
		notification.SaleId = e.Id
		notification.Round = domain.RoundFinished.String()
		notification.Timestamp = e.Timestamp
	}
	return notification, nil
}

func uniqueBuyers(purchases []domain.Purchase) int {
	buyers := make(map[string]struct{})
	for _, p := range purchases {
		buyers[p.Buyer] = struct{}{}
	}
	return len(buyers)
}
