package badgerdb

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/mmna-launch/crowdsale/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

const eventStoreDir = "events"

type eventsDTO struct {
	Events [][]byte
}

type topicEvents struct {
	topic  string
	events []domain.Event
}

type eventRepository struct {
	store     *badgerhold.Store
	lock      *sync.Mutex
	handlers  map[string][]func(events []domain.Event)
	chUpdates chan topicEvents
	done      chan struct{}
}

func NewEventRepository(config ...interface{}) (domain.EventRepository, error) {
	baseDir, logger, err := parseConfig(config)
	if err != nil {
		return nil, err
	}

	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, eventStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open events store: %s", err)
	}
	repo := &eventRepository{
		store:     store,
		lock:      &sync.Mutex{},
		handlers:  make(map[string][]func(events []domain.Event)),
		chUpdates: make(chan topicEvents, 64),
		done:      make(chan struct{}),
	}
	go repo.listen()
	return repo, nil
}

func (r *eventRepository) Save(
	ctx context.Context, topic, id string, events []domain.Event,
) error {
	if len(events) <= 0 {
		return nil
	}

	key := eventsKey(topic, id)
	err := r.store.Badger().Update(func(tx *badger.Txn) error {
		var stored [][]byte
		dto := eventsDTO{}
		if err := r.store.TxGet(tx, key, &dto); err != nil {
			if err != badgerhold.ErrNotFound {
				return err
			}
		} else {
			stored = dto.Events
		}

		rawEvents, err := serializeEvents(events)
		if err != nil {
			return err
		}
		return r.store.TxUpsert(tx, key, eventsDTO{append(stored, rawEvents...)})
	})
	if err != nil {
		return fmt.Errorf("failed to save events with id %s: %s", id, err)
	}

	r.publishEvents(topic, events)
	return nil
}

func (r *eventRepository) Load(
	ctx context.Context, topic, id string,
) ([]domain.Event, error) {
	dto := eventsDTO{}
	if err := r.store.Get(eventsKey(topic, id), &dto); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get events with id %s: %s", id, err)
	}
	return deserializeEvents(dto.Events)
}

func (r *eventRepository) RegisterEventsHandler(
	topic string, handler func(events []domain.Event),
) {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.handlers[topic] = append(r.handlers[topic], handler)
}

func (r *eventRepository) ClearRegisteredHandlers(topics ...string) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if len(topics) == 0 {
		r.handlers = make(map[string][]func(events []domain.Event))
		return
	}
	for _, topic := range topics {
		delete(r.handlers, topic)
	}
}

func (r *eventRepository) Close() {
	close(r.done)
	// nolint
	r.store.Close()
}

func (r *eventRepository) listen() {
	for {
		select {
		case <-r.done:
			return
		case update := <-r.chUpdates:
			r.runHandlers(update)
		}
	}
}

// publishEvents queues events for the handlers, preserving the save order.
func (r *eventRepository) publishEvents(topic string, events []domain.Event) {
	select {
	case <-r.done:
		return
	case r.chUpdates <- topicEvents{topic, events}:
	}
}

func (r *eventRepository) runHandlers(update topicEvents) {
	r.lock.Lock()
	handlers := append([]func(events []domain.Event){}, r.handlers[update.topic]...)
	r.lock.Unlock()

	for _, handler := range handlers {
		handler(update.events)
	}
}

func eventsKey(topic, id string) string {
	return topic + ":" + id
}
