package domain

import "context"

type EventType int

const (
	EventTypeUndefined EventType = iota

	// Sale
	EventTypeSaleCreated
	EventTypeSaleInitialized
	EventTypeParticipantsWhitelisted
	EventTypeMerkleRootPublished
	EventTypeTokensPurchased
	EventTypeRoundSwitched
	EventTypeTokensTransferred
	EventTypeTreasurySwept
)

func (t EventType) String() string {
	switch t {
	case EventTypeSaleCreated:
		return "SALE_CREATED"
	case EventTypeSaleInitialized:
		return "SALE_INITIALIZED"
	case EventTypeParticipantsWhitelisted:
		return "PARTICIPANTS_WHITELISTED"
	case EventTypeMerkleRootPublished:
		return "MERKLE_ROOT_PUBLISHED"
	case EventTypeTokensPurchased:
		return "TOKENS_PURCHASED"
	case EventTypeRoundSwitched:
		return "ROUND_SWITCHED"
	case EventTypeTokensTransferred:
		return "TOKENS_TRANSFERRED"
	case EventTypeTreasurySwept:
		return "TREASURY_SWEPT"
	default:
		return "UNDEFINED"
	}
}

type Event interface {
	GetTopic() string
	GetType() EventType
}

type EventRepository interface {
	Save(ctx context.Context, topic, id string, events []Event) error
	Load(ctx context.Context, topic, id string) ([]Event, error)
	RegisterEventsHandler(topic string, handler func(events []Event))
	ClearRegisteredHandlers(topic ...string)
	Close()
}
