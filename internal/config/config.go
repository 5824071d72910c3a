package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
)

// Store backend selectors.  The backend is chosen once at process start
// and injected into every handler; it never changes per request.
const (
	StoreMemory = "memory"
	StoreMySQL  = "mysql"
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable.  The types reflect how the values are used
// in the application: strings for identifiers and secrets, ints for
// durations and costs.
type Config struct {
	Env          string // application environment (e.g. "dev", "prod")
	Port         string // HTTP port to listen on
	StoreBackend string // "memory" or "mysql"
	DBUser       string // database username (mysql backend only)
	DBPass       string // database password (optional)
	DBHost       string // database host address
	DBPort       string // database port number
	DBName       string // database name
	JWTSecret    string // secret used to sign user and capability tokens
	TokenTTLDays int    // token time-to-live in days
	BcryptCost   int    // bcrypt cost for join-code and admin-key hashing
	BotKey       string // shared key for the bot endpoint (empty disables it)
	RabbitURL    string // broker URL (empty disables publishing/consuming)
}

// Load reads configuration values from environment variables and returns
// a Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  The database
// variables are required only when the mysql backend is selected.
func Load() Config {
	cfg := Config{
		Env:          getenv("APP_ENV", "dev"),          // environment (dev/test/prod)
		Port:         must("APP_PORT"),                  // port to bind the HTTP server
		StoreBackend: getenv("STORE_BACKEND", StoreMemory), // storage backend selection
		JWTSecret:    must("JWT_SECRET"),                // secret used for signing tokens
		TokenTTLDays: getint("TOKEN_TTL_DAYS", 30),      // TTL for issued tokens in days
		BcryptCost:   getint("BCRYPT_COST", 10),         // bcrypt cost factor
		BotKey:       os.Getenv("BOT_KEY"),              // bot key (optional)
		RabbitURL:    os.Getenv("RABBITMQ_URL"),         // broker URL (optional)
	}
	switch cfg.StoreBackend {
	case StoreMemory:
		// nothing else required
	case StoreMySQL:
		cfg.DBUser = must("DB_USER") // database user
		cfg.DBPass = os.Getenv("DB_PASS") // database password (empty allowed)
		cfg.DBHost = must("DB_HOST") // database host
		cfg.DBPort = must("DB_PORT") // database port
		cfg.DBName = must("DB_NAME") // database name
	default:
		log.Fatalf("unknown STORE_BACKEND: %q (want %q or %q)", cfg.StoreBackend, StoreMemory, StoreMySQL)
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

// getenv returns the value of an optional environment variable or the
// provided default when unset.
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getint is like getenv but converts the value into an integer.  An
// unparsable value is a fatal error; silently falling back could hide a
// typo in a security-relevant knob like BCRYPT_COST.
func getint(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, v)
	}
	return n
}
