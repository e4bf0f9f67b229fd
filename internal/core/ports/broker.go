package ports

import (
	"context"
	"encoding/json"
)

type SaleNotification struct {
	Type      string          `json:"type"`
	SaleId    string          `json:"saleId"`
	Round     string          `json:"round"`
	Timestamp int64           `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// EventBroker fans sale notifications out to live subscribers.
type EventBroker interface {
	Publish(ctx context.Context, notifications ...SaleNotification) error
	// Subscribe returns a channel closed once ctx is done or the broker closed.
	Subscribe(ctx context.Context) (<-chan SaleNotification, error)
	Close() error
}
