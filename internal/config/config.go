package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/ethereum/go-ethereum/common"
	"github.com/mmna-launch/crowdsale/internal/core/application"
	"github.com/mmna-launch/crowdsale/internal/core/domain"
	"github.com/mmna-launch/crowdsale/internal/core/ports"
	watermillbroker "github.com/mmna-launch/crowdsale/internal/infrastructure/broker/watermill"
	"github.com/mmna-launch/crowdsale/internal/infrastructure/db"
	badgerledger "github.com/mmna-launch/crowdsale/internal/infrastructure/quote-ledger/badger"
	inmemoryledger "github.com/mmna-launch/crowdsale/internal/infrastructure/quote-ledger/inmemory"
	redisledger "github.com/mmna-launch/crowdsale/internal/infrastructure/quote-ledger/redis"
	timescheduler "github.com/mmna-launch/crowdsale/internal/infrastructure/scheduler/gocron"
	manualscheduler "github.com/mmna-launch/crowdsale/internal/infrastructure/scheduler/manual"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

var (
	supportedEventDbs = supportedType{
		"badger": {},
	}
	supportedDbs = supportedType{
		"badger": {},
		"sqlite": {},
	}
	supportedSchedulers = supportedType{
		"gocron": {},
		"manual": {},
	}
	supportedQuoteLedgers = supportedType{
		"badger":   {},
		"inmemory": {},
		"redis":    {},
	}
)

type Config struct {
	Datadir  string
	Port     uint32
	LogLevel int

	AdminUser     string
	AdminPassword string

	DbType        string
	EventDbType   string
	DbDir         string
	EventDbDir    string
	SchedulerType string

	QuoteLedgerType   string
	QuoteLedgerDir    string
	RedisUrl          string
	RedisNumOfRetries int

	Issuer            string
	TeamWallet        string
	AirdropsWallet    string
	InfluencersWallet string
	MarketingWallet   string

	RoundDurations    [domain.NumOfRounds]time.Duration
	RoundCaps         [domain.NumOfRounds]uint64
	Round3Public      bool
	Round1SetupWindow time.Duration
	TransferCooldown  time.Duration
	AutoSwitch        bool

	EventsBufferSize      int
	OtelCollectorEndpoint string

	repo        ports.RepoManager
	svc         application.Service
	scheduler   ports.SchedulerService
	quoteLedger ports.QuoteLedger
	broker      ports.EventBroker
}

func (c *Config) String() string {
	clone := *c
	if clone.AdminPassword != "" {
		clone.AdminPassword = "***"
	}
	json, err := json.MarshalIndent(clone, "", "  ")
	if err != nil {
		return fmt.Sprintf("error while marshalling config JSON: %s", err)
	}
	return string(json)
}

var (
	Datadir               = "DATADIR"
	Port                  = "PORT"
	LogLevel              = "LOG_LEVEL"
	AdminUser             = "ADMIN_USER"
	AdminPassword         = "ADMIN_PASSWORD"
	EventDbType           = "EVENT_DB_TYPE"
	DbType                = "DB_TYPE"
	SchedulerType         = "SCHEDULER_TYPE"
	QuoteLedgerType       = "QUOTE_LEDGER_TYPE"
	RedisUrl              = "REDIS_URL"
	RedisNumOfRetries     = "REDIS_NUM_OF_RETRIES"
	Issuer                = "ISSUER"
	TeamWallet            = "TEAM_WALLET"
	AirdropsWallet        = "AIRDROPS_WALLET"
	InfluencersWallet     = "INFLUENCERS_WALLET"
	MarketingWallet       = "MARKETING_WALLET"
	Round1Duration        = "ROUND1_DURATION"
	Round2Duration        = "ROUND2_DURATION"
	Round3Duration        = "ROUND3_DURATION"
	Round1Cap             = "ROUND1_CAP"
	Round2Cap             = "ROUND2_CAP"
	Round3Cap             = "ROUND3_CAP"
	Round3Public          = "ROUND3_PUBLIC"
	Round1SetupWindow     = "ROUND1_SETUP_WINDOW"
	TransferCooldown      = "TRANSFER_COOLDOWN"
	AutoSwitch            = "AUTO_SWITCH"
	EventsBufferSize      = "EVENTS_BUFFER_SIZE"
	OtelCollectorEndpoint = "OTEL_COLLECTOR_ENDPOINT"

	defaultDatadir           = btcutil.AppDataDir("crowdsaled", false)
	DefaultPort              = 7070
	defaultLogLevel          = 4
	defaultAdminUser         = "admin"
	defaultDbType            = "sqlite"
	defaultEventDbType       = "badger"
	defaultSchedulerType     = "gocron"
	defaultQuoteLedgerType   = "badger"
	defaultRedisNumOfRetries = 10
	defaultRules             = domain.DefaultSaleRules()
	defaultAutoSwitch        = true
	defaultEventsBufferSize  = 64
)

func LoadConfig() (*Config, error) {
	viper.SetEnvPrefix("CROWDSALE")
	viper.AutomaticEnv()

	viper.SetDefault(Datadir, defaultDatadir)
	viper.SetDefault(Port, DefaultPort)
	viper.SetDefault(LogLevel, defaultLogLevel)
	viper.SetDefault(AdminUser, defaultAdminUser)
	viper.SetDefault(DbType, defaultDbType)
	viper.SetDefault(EventDbType, defaultEventDbType)
	viper.SetDefault(SchedulerType, defaultSchedulerType)
	viper.SetDefault(QuoteLedgerType, defaultQuoteLedgerType)
	viper.SetDefault(RedisNumOfRetries, defaultRedisNumOfRetries)
	viper.SetDefault(Round1Duration, defaultRules.Rounds[0].Duration)
	viper.SetDefault(Round2Duration, defaultRules.Rounds[1].Duration)
	viper.SetDefault(Round3Duration, defaultRules.Rounds[2].Duration)
	viper.SetDefault(Round1Cap, defaultRules.Rounds[0].Cap)
	viper.SetDefault(Round2Cap, defaultRules.Rounds[1].Cap)
	viper.SetDefault(Round3Cap, defaultRules.Rounds[2].Cap)
	viper.SetDefault(Round1SetupWindow, defaultRules.SetupWindow)
	viper.SetDefault(TransferCooldown, defaultRules.TransferCooldown)
	viper.SetDefault(AutoSwitch, defaultAutoSwitch)
	viper.SetDefault(EventsBufferSize, defaultEventsBufferSize)

	if err := initDatadir(); err != nil {
		return nil, fmt.Errorf("error while creating datadir: %s", err)
	}

	dbPath := filepath.Join(viper.GetString(Datadir), "db")

	return &Config{
		Datadir:           viper.GetString(Datadir),
		Port:              viper.GetUint32(Port),
		LogLevel:          viper.GetInt(LogLevel),
		AdminUser:         viper.GetString(AdminUser),
		AdminPassword:     viper.GetString(AdminPassword),
		DbType:            viper.GetString(DbType),
		EventDbType:       viper.GetString(EventDbType),
		DbDir:             dbPath,
		EventDbDir:        dbPath,
		SchedulerType:     viper.GetString(SchedulerType),
		QuoteLedgerType:   viper.GetString(QuoteLedgerType),
		QuoteLedgerDir:    dbPath,
		RedisUrl:          viper.GetString(RedisUrl),
		RedisNumOfRetries: viper.GetInt(RedisNumOfRetries),
		Issuer:            viper.GetString(Issuer),
		TeamWallet:        viper.GetString(TeamWallet),
		AirdropsWallet:    viper.GetString(AirdropsWallet),
		InfluencersWallet: viper.GetString(InfluencersWallet),
		MarketingWallet:   viper.GetString(MarketingWallet),
		RoundDurations: [domain.NumOfRounds]time.Duration{
			viper.GetDuration(Round1Duration),
			viper.GetDuration(Round2Duration),
			viper.GetDuration(Round3Duration),
		},
		RoundCaps: [domain.NumOfRounds]uint64{
			viper.GetUint64(Round1Cap),
			viper.GetUint64(Round2Cap),
			viper.GetUint64(Round3Cap),
		},
		Round3Public:          viper.GetBool(Round3Public),
		Round1SetupWindow:     viper.GetDuration(Round1SetupWindow),
		TransferCooldown:      viper.GetDuration(TransferCooldown),
		AutoSwitch:            viper.GetBool(AutoSwitch),
		EventsBufferSize:      viper.GetInt(EventsBufferSize),
		OtelCollectorEndpoint: viper.GetString(OtelCollectorEndpoint),
	}, nil
}

func initDatadir() error {
	datadir := viper.GetString(Datadir)
	return makeDirectoryIfNotExists(datadir)
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}

func (c *Config) Validate() error {
	if !supportedEventDbs.supports(c.EventDbType) {
		return fmt.Errorf("event db type not supported, please select one of: %s", supportedEventDbs)
	}
	if !supportedDbs.supports(c.DbType) {
		return fmt.Errorf("db type not supported, please select one of: %s", supportedDbs)
	}
	if !supportedSchedulers.supports(c.SchedulerType) {
		return fmt.Errorf("scheduler type not supported, please select one of: %s", supportedSchedulers)
	}
	if !supportedQuoteLedgers.supports(c.QuoteLedgerType) {
		return fmt.Errorf("quote ledger type not supported, please select one of: %s", supportedQuoteLedgers)
	}
	if c.QuoteLedgerType == "redis" && c.RedisUrl == "" {
		return fmt.Errorf("REDIS_URL not provided")
	}
	// Persisted sale events account for the proceeds held by the ledger.
	if c.QuoteLedgerType == "inmemory" && c.EventDbDir != "" {
		return fmt.Errorf(
			"inmemory quote ledger requires an inmemory event db, use badger or redis",
		)
	}
	if len(c.AdminPassword) <= 0 {
		return fmt.Errorf("ADMIN_PASSWORD not provided")
	}
	if _, err := c.appConfig(); err != nil {
		return err
	}
	if c.EventsBufferSize <= 0 {
		return fmt.Errorf("invalid events buffer size, must be positive")
	}

	if err := c.repoManager(); err != nil {
		return err
	}
	if err := c.schedulerService(); err != nil {
		return err
	}
	if err := c.quoteLedgerService(); err != nil {
		return err
	}
	if err := c.eventBroker(); err != nil {
		return err
	}
	return nil
}

func (c *Config) AppService() (application.Service, error) {
	if c.svc == nil {
		if err := c.appService(); err != nil {
			return nil, err
		}
	}
	return c.svc, nil
}

// Rules returns the sale rules assembled from the round settings.
func (c *Config) Rules() domain.SaleRules {
	rules := domain.SaleRules{
		TransferCooldown: c.TransferCooldown,
		SetupWindow:      c.Round1SetupWindow,
	}
	for i := range rules.Rounds {
		rules.Rounds[i] = domain.RoundRules{
			Duration:    c.RoundDurations[i],
			Cap:         c.RoundCaps[i],
			Eligibility: defaultRules.Rounds[i].Eligibility,
		}
	}
	if c.Round3Public {
		rules.Rounds[2].Eligibility = domain.PublicEligibility
	}
	return rules
}

func (c *Config) appConfig() (*application.Config, error) {
	issuer, err := parseAddress(Issuer, c.Issuer)
	if err != nil {
		return nil, err
	}
	wallets := domain.GenesisWallets{}
	for _, w := range []struct {
		key, value string
		dest       *common.Address
	}{
		{TeamWallet, c.TeamWallet, &wallets.Team},
		{AirdropsWallet, c.AirdropsWallet, &wallets.Airdrops},
		{InfluencersWallet, c.InfluencersWallet, &wallets.Influencers},
		{MarketingWallet, c.MarketingWallet, &wallets.Marketing},
	} {
		addr, err := parseAddress(w.key, w.value)
		if err != nil {
			return nil, err
		}
		*w.dest = addr
	}

	rules := c.Rules()
	if err := rules.Validate(); err != nil {
		return nil, err
	}

	return &application.Config{
		Issuer:     issuer,
		Wallets:    wallets,
		Rules:      rules,
		AutoSwitch: c.AutoSwitch,
	}, nil
}

func (c *Config) repoManager() error {
	var svc ports.RepoManager
	var err error
	var eventStoreConfig []interface{}
	var dataStoreConfig []interface{}
	logger := log.New()

	switch c.EventDbType {
	case "badger":
		eventStoreConfig = []interface{}{c.EventDbDir, logger}
	default:
		return fmt.Errorf("unknown event db type")
	}

	switch c.DbType {
	case "badger":
		dataStoreConfig = []interface{}{c.DbDir, logger}
	case "sqlite":
		dataStoreConfig = []interface{}{c.DbDir}
	default:
		return fmt.Errorf("unknown db type")
	}

	svc, err = db.NewService(db.ServiceConfig{
		EventStoreType:   c.EventDbType,
		DataStoreType:    c.DbType,
		EventStoreConfig: eventStoreConfig,
		DataStoreConfig:  dataStoreConfig,
	})
	if err != nil {
		return err
	}

	c.repo = svc
	return nil
}

func (c *Config) schedulerService() error {
	var svc ports.SchedulerService
	var err error
	switch c.SchedulerType {
	case "gocron":
		svc = timescheduler.NewScheduler()
	case "manual":
		if c.AutoSwitch {
			log.Warn("manual scheduler never runs tasks, rounds must be switched by hand")
		}
		svc = manualscheduler.NewScheduler()
	default:
		err = fmt.Errorf("unknown scheduler type")
	}
	if err != nil {
		return err
	}

	c.scheduler = svc
	return nil
}

func (c *Config) quoteLedgerService() error {
	var svc ports.QuoteLedger
	switch c.QuoteLedgerType {
	case "badger":
		ledger, err := badgerledger.NewQuoteLedger(c.QuoteLedgerDir, log.New())
		if err != nil {
			return err
		}
		svc = ledger
	case "inmemory":
		svc = inmemoryledger.NewQuoteLedger()
	case "redis":
		opts, err := redis.ParseURL(c.RedisUrl)
		if err != nil {
			return fmt.Errorf("invalid redis url: %s", err)
		}
		svc = redisledger.NewQuoteLedger(redis.NewClient(opts), c.RedisNumOfRetries)
	default:
		return fmt.Errorf("unknown quote ledger type")
	}

	c.quoteLedger = svc
	return nil
}

func (c *Config) eventBroker() error {
	c.broker = watermillbroker.NewEventBroker(c.EventsBufferSize)
	return nil
}

func (c *Config) appService() error {
	cfg, err := c.appConfig()
	if err != nil {
		return err
	}

	svc, err := application.NewService(
		*cfg, c.repo, c.scheduler, c.quoteLedger, c.broker, domain.NewRoundClock(nil),
	)
	if err != nil {
		return err
	}

	c.svc = svc
	return nil
}

func parseAddress(key, value string) (common.Address, error) {
	if value == "" {
		return common.Address{}, fmt.Errorf("%s not provided", key)
	}
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("invalid %s address %s", strings.ToLower(key), value)
	}
	addr := common.HexToAddress(value)
	if addr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("invalid %s address, must not be zero", strings.ToLower(key))
	}
	return addr, nil
}

type supportedType map[string]struct{}

func (t supportedType) String() string {
	types := make([]string, 0, len(t))
	for tt := range t {
		types = append(types, tt)
	}
	return strings.Join(types, " | ")
}

func (t supportedType) supports(typeStr string) bool {
	_, ok := t[typeStr]
	return ok
}
