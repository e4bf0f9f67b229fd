package badgerdb

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/mmna-launch/crowdsale/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

func createDB(dbDir string, logger badger.Logger) (*badgerhold.Store, error) {
	isInMemory := len(dbDir) <= 0

	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger

	if isInMemory {
		opts.InMemory = true
	} else {
		opts.Compression = options.ZSTD
	}

	db, err := badgerhold.Open(badgerhold.Options{
		Encoder:          badgerhold.DefaultEncode,
		Decoder:          badgerhold.DefaultDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
	if err != nil {
		return nil, err
	}

	if !isInMemory {
		ticker := time.NewTicker(30 * time.Minute)

		go func() {
			for range ticker.C {
				if err := db.Badger().RunValueLogGC(0.5); err != nil && err != badger.ErrNoRewrite {
					if logger != nil {
						logger.Errorf("%s", err)
					}
				}
			}
		}()
	}

	return db, nil
}

func parseConfig(config []interface{}) (string, badger.Logger, error) {
	if len(config) != 2 {
		return "", nil, fmt.Errorf("invalid config")
	}
	baseDir, ok := config[0].(string)
	if !ok {
		return "", nil, fmt.Errorf("invalid base directory")
	}

	var logger badger.Logger
	if config[1] != nil {
		logger, ok = config[1].(badger.Logger)
		if !ok {
			return "", nil, fmt.Errorf("invalid logger")
		}
	}
	return baseDir, logger, nil
}

func serializeEvents(events []domain.Event) ([][]byte, error) {
	rawEvents := make([][]byte, 0, len(events))
	for _, event := range events {
		buf, err := json.Marshal(event)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize event: %s", err)
		}
		rawEvents = append(rawEvents, buf)
	}
	return rawEvents, nil
}

func deserializeEvents(rawEvents [][]byte) ([]domain.Event, error) {
	events := make([]domain.Event, 0, len(rawEvents))
	for _, buf := range rawEvents {
		event, err := deserializeEvent(buf)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

func deserializeEvent(buf []byte) (domain.Event, error) {
	var header domain.SaleEvent
	if err := json.Unmarshal(buf, &header); err != nil {
		return nil, fmt.Errorf("failed to deserialize event: %s", err)
	}

	switch header.Type {
	case domain.EventTypeSaleCreated:
		return decode[domain.SaleCreated](buf)
	case domain.EventTypeSaleInitialized:
		return decode[domain.SaleInitialized](buf)
	case domain.EventTypeParticipantsWhitelisted:
		return decode[domain.ParticipantsWhitelisted](buf)
	case domain.EventTypeMerkleRootPublished:
		return decode[domain.MerkleRootPublished](buf)
	case domain.EventTypeTokensPurchased:
		return decode[domain.TokensPurchased](buf)
	case domain.EventTypeRoundSwitched:
		return decode[domain.RoundSwitched](buf)
	case domain.EventTypeTokensTransferred:
		return decode[domain.TokensTransferred](buf)
	case domain.EventTypeTreasurySwept:
		return decode[domain.TreasurySwept](buf)
	default:
		return nil, fmt.Errorf("unknown event type %d", header.Type)
	}
}

func decode[T domain.Event](buf []byte) (domain.Event, error) {
	var event T
	if err := json.Unmarshal(buf, &event); err != nil {
		return nil, fmt.Errorf("failed to deserialize event: %s", err)
	}
	return event, nil
}
