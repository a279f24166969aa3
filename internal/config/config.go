package config // package config loads application configuration from environment variables

import (
	"log"
	"os"
	"strings"
	"time"
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable.  Database settings are only required when
// the MySQL store driver is selected; the memory driver runs without
// external services and exists for development and load-test runs.
type Config struct {
	Env             string        // application environment (e.g. "dev", "prod")
	Port            string        // HTTP port to listen on
	StoreDriver     string        // "mysql" (durable) or "memory" (in-process)
	DBUser          string        // database username
	DBPass          string        // database password (optional)
	DBHost          string        // database host address
	DBPort          string        // database port number
	DBName          string        // database name
	JWTSecret       string        // secret used to verify bearer tokens
	InFlightTimeout time.Duration // how long a ledger key may stay in flight before reclaim
	LedgerTTL       time.Duration // how long completed ledger records are kept
	EvictInterval   time.Duration // how often the ledger janitor runs
	SeedEventID     string        // event provisioned at startup for the memory driver
	SeedSeatCount   int           // number of seats provisioned for the seed event
	ConsumerEnabled bool          // start the booking.recorded audit consumer
}

// Load reads configuration values from environment variables and returns
// a Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	cfg := Config{
		Env:             must("APP_ENV"),
		Port:            must("APP_PORT"),
		StoreDriver:     strings.ToLower(envStr("STORE_DRIVER", "mysql")),
		JWTSecret:       must("JWT_SECRET"),
		InFlightTimeout: envDur("LEDGER_INFLIGHT_TIMEOUT", 30*time.Second),
		LedgerTTL:       envDur("LEDGER_TTL", 24*time.Hour),
		EvictInterval:   envDur("LEDGER_EVICT_INTERVAL", 5*time.Minute),
		SeedEventID:     envStr("SEED_EVENT_ID", ""),
		SeedSeatCount:   envInt("SEED_SEAT_COUNT", 100),
		ConsumerEnabled: envBool("QUEUE_CONSUMER_ENABLED", true),
	}
	switch cfg.StoreDriver {
	case "mysql":
		cfg.DBUser = must("DB_USER")
		cfg.DBPass = os.Getenv("DB_PASS") // empty allowed
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = must("DB_PORT")
		cfg.DBName = must("DB_NAME")
	case "memory":
		// no external dependencies
	default:
		log.Fatalf("unknown STORE_DRIVER: %q (want mysql or memory)", cfg.StoreDriver)
	}
	return cfg
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and
// exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}