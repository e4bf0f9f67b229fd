package db

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/mmna-launch/crowdsale/internal/core/domain"
	"github.com/mmna-launch/crowdsale/internal/core/ports"
	badgerdb "github.com/mmna-launch/crowdsale/internal/infrastructure/db/badger"
	sqlitedb "github.com/mmna-launch/crowdsale/internal/infrastructure/db/sqlite"
)

var (
	eventStoreTypes = map[string]func(...interface{}) (domain.EventRepository, error){
		"badger": badgerdb.NewEventRepository,
	}
	purchaseStoreTypes = map[string]func(...interface{}) (domain.PurchaseRepository, error){
		"badger": badgerdb.NewPurchaseRepository,
		"sqlite": sqlitedb.NewPurchaseRepository,
	}
)

type ServiceConfig struct {
	EventStoreType string
	DataStoreType  string

	EventStoreConfig []interface{}
	DataStoreConfig  []interface{}
}

type service struct {
	eventStore    domain.EventRepository
	purchaseStore domain.PurchaseRepository
}

func NewService(config ServiceConfig) (ports.RepoManager, error) {
	eventStoreFactory, ok := eventStoreTypes[config.EventStoreType]
	if !ok {
		return nil, fmt.Errorf("invalid event store type: %s", config.EventStoreType)
	}
	purchaseStoreFactory, ok := purchaseStoreTypes[config.DataStoreType]
	if !ok {
		return nil, fmt.Errorf("invalid data store type: %s", config.DataStoreType)
	}

	if config.DataStoreType == "sqlite" {
		if err := migrateSqlite(config.DataStoreConfig); err != nil {
			return nil, fmt.Errorf("failed to migrate sqlite: %w", err)
		}
	}

	eventStore, err := eventStoreFactory(config.EventStoreConfig...)
	if err != nil {
		return nil, fmt.Errorf("failed to create event store: %w", err)
	}

	purchaseStore, err := purchaseStoreFactory(config.DataStoreConfig...)
	if err != nil {
		eventStore.Close()
		return nil, fmt.Errorf("failed to create purchase store: %w", err)
	}

	return &service{
		eventStore:    eventStore,
		purchaseStore: purchaseStore,
	}, nil
}

func (s *service) Events() domain.EventRepository {
	return s.eventStore
}

func (s *service) Purchases() domain.PurchaseRepository {
	return s.purchaseStore
}

func (s *service) Close() {
	s.eventStore.Close()
	s.purchaseStore.Close()
}

func migrateSqlite(config []interface{}) error {
	if len(config) != 1 {
		return errors.New("invalid config")
	}

	baseDir, ok := config[0].(string)
	if !ok {
		return errors.New("invalid config")
	}

	db, err := sqlitedb.OpenDb(filepath.Join(baseDir, sqlitedb.DbFile))
	if err != nil {
		return err
	}

	driver, err := sqlitemigrate.WithInstance(db, &sqlitemigrate.Config{})
	if err != nil {
		// nolint
		db.Close()
		return fmt.Errorf("failed to create sqlite driver: %w", err)
	}

	source, err := iofs.New(sqlitedb.Migrations, "migration")
	if err != nil {
		// nolint
		db.Close()
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		// nolint
		db.Close()
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	// nolint
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to migrate up: %w", err)
	}

	return nil
}
