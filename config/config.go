package config

import (
	"fmt"
	"strings"
	"time"

	"auction-marketplace/utils"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database drivers accepted in DB_DRIVER
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Notification brokers accepted in NOTIFY_BROKER
const (
	BrokerNone  = "none"
	BrokerAMQP  = "amqp"
	BrokerKafka = "kafka"
)

type Config struct {
	Port     string `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	DBDriver string `envconfig:"DB_DRIVER" default:"memory"`
	DBDSN    string `envconfig:"DB_DSN"`

	JWTSecret string        `envconfig:"JWT_SECRET" required:"true"`
	JWTTTL    time.Duration `envconfig:"JWT_TTL" default:"24h"`

	SweepInterval  time.Duration `envconfig:"SWEEP_INTERVAL" default:"30s"`
	NotifyTimeout  time.Duration `envconfig:"NOTIFY_TIMEOUT" default:"5s"`
	ShutdownPeriod time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	NotifyBroker string   `envconfig:"NOTIFY_BROKER" default:"none"`
	AMQPURL      string   `envconfig:"AMQP_URL"`
	AMQPExchange string   `envconfig:"AMQP_EXCHANGE" default:"auction.notifications"`
	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"auction.notifications"`

	RedisAddr    string `envconfig:"REDIS_ADDR"`
	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	AdminEmail          string `envconfig:"ADMIN_EMAIL"`
	AdminPassword       string `envconfig:"ADMIN_PASSWORD"`
	PaymentInstructions string `envconfig:"PAYMENT_INSTRUCTIONS" default:"Transfer the amount due and upload the receipt from your account page."`
}

// Load reads an optional .env file and then the process environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		utils.Debug("no .env file loaded", map[string]any{"error": err.Error()})
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	c.DBDriver = strings.ToLower(c.DBDriver)
	c.NotifyBroker = strings.ToLower(c.NotifyBroker)

	if c.JWTSecret == "" {
		return fmt.Errorf("config: JWT_SECRET must not be empty")
	}

	switch c.DBDriver {
	case DriverMemory:
	case DriverPostgres, DriverMySQL, DriverSQLite:
		if c.DBDSN == "" {
			return fmt.Errorf("config: DB_DSN is required for driver %s", c.DBDriver)
		}
	default:
		return fmt.Errorf("config: unknown DB_DRIVER %q", c.DBDriver)
	}

	switch c.NotifyBroker {
	case BrokerNone:
	case BrokerAMQP:
		if c.AMQPURL == "" {
			return fmt.Errorf("config: AMQP_URL is required when NOTIFY_BROKER=amqp")
		}
	case BrokerKafka:
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("config: KAFKA_BROKERS is required when NOTIFY_BROKER=kafka")
		}
	default:
		return fmt.Errorf("config: unknown NOTIFY_BROKER %q", c.NotifyBroker)
	}

	if c.SweepInterval <= 0 {
		return fmt.Errorf("config: SWEEP_INTERVAL must be positive")
	}
	if (c.AdminEmail == "") != (c.AdminPassword == "") {
		return fmt.Errorf("config: ADMIN_EMAIL and ADMIN_PASSWORD must be set together")
	}
	return nil
}

// Addr is the listen address for the HTTP server
func (c *Config) Addr() string {
	return ":" + strings.TrimPrefix(c.Port, ":")
}

// InitDatabase opens the configured relational store. MySQL DSNs must carry
// clientFoundRows=true so that conditional updates report matched rows.
func InitDatabase(cfg *Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case DriverPostgres:
		dialector = postgres.Open(cfg.DBDSN)
	case DriverMySQL:
		dialector = mysql.Open(cfg.DBDSN)
	case DriverSQLite:
		dialector = sqlite.Open(cfg.DBDSN)
	default:
		return nil, fmt.Errorf("config: driver %q has no database", cfg.DBDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", cfg.DBDriver, err)
	}

	if cfg.DBDriver == DriverSQLite {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// sqlite serializes writers; one connection avoids SQLITE_BUSY
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}
