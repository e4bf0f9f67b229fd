package ports

import "github.com/mmna-launch/crowdsale/internal/core/domain"

type RepoManager interface {
	Events() domain.EventRepository
	Purchases() domain.PurchaseRepository
	Close()
}
