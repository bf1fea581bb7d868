package config // package config loads application configuration from environment variables

import (
	"fmt"
	"log"     // log reports configuration errors and halts execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"strings"
)

// Config holds the core runtime values shared by the server and the admin
// CLI.  Optional concerns (cache, rate limit, checkout, mail, broker) have
// their own loaders in sibling files so that each can be disabled on its own.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port to listen on
	DBDriver       string // "mysql" or "sqlite3"
	DBUser         string // database username (mysql)
	DBPass         string // database password (optional)
	DBHost         string // database host address (mysql)
	DBPort         string // database port number (mysql)
	DBName         string // database name (mysql)
	SQLitePath     string // database file (sqlite3)
	JWTSecret      string // secret used to sign JWTs
	AccessTTLMin   int    // access token time-to-live in minutes
	RefreshTTLDays int    // refresh token time-to-live in days
	BcryptCost     int    // bcrypt cost for password hashing
	BaseURL        string // public origin used to build checkout callback URLs
	LoginURL       string // where unauthenticated browsers are sent
}

// Load reads configuration values from environment variables.  Required
// variables are enforced by must() and a missing value stops the program.
// MySQL connection settings are only required when DB_DRIVER is mysql.
func Load() Config {
	cfg := Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DBDriver:       strings.ToLower(getenv("DB_DRIVER", "mysql")),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     mustInt("BCRYPT_COST"),
		BaseURL:        strings.TrimRight(getenv("APP_BASE_URL", ""), "/"),
		LoginURL:       getenv("LOGIN_URL", "/login/"),
	}
	switch cfg.DBDriver {
	case "sqlite3", "sqlite":
		cfg.DBDriver = "sqlite3"
		cfg.SQLitePath = getenv("SQLITE_PATH", "bookmyseat.db")
	case "mysql":
		cfg.DBUser = must("DB_USER")
		cfg.DBPass = os.Getenv("DB_PASS") // empty allowed
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = must("DB_PORT")
		cfg.DBName = must("DB_NAME")
	default:
		log.Fatalf("unsupported DB_DRIVER: %q", cfg.DBDriver)
	}
	return cfg
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the value into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

// LoadDatabase reads only the DB_* settings and reports a missing key as an
// error instead of exiting.  The admin CLI uses it so that it runs without
// the server secrets.
func LoadDatabase() (Config, error) {
	cfg := Config{DBDriver: strings.ToLower(getenv("DB_DRIVER", "mysql"))}
	switch cfg.DBDriver {
	case "sqlite3", "sqlite":
		cfg.DBDriver = "sqlite3"
		cfg.SQLitePath = getenv("SQLITE_PATH", "bookmyseat.db")
		return cfg, nil
	case "mysql":
	default:
		return cfg, fmt.Errorf("unsupported DB_DRIVER: %q", cfg.DBDriver)
	}
	cfg.DBUser = os.Getenv("DB_USER")
	cfg.DBPass = os.Getenv("DB_PASS")
	cfg.DBHost = os.Getenv("DB_HOST")
	cfg.DBPort = os.Getenv("DB_PORT")
	cfg.DBName = os.Getenv("DB_NAME")
	for key, v := range map[string]string{"DB_USER": cfg.DBUser, "DB_HOST": cfg.DBHost, "DB_PORT": cfg.DBPort, "DB_NAME": cfg.DBName} {
		if v == "" {
			return cfg, fmt.Errorf("missing required env var: %s", key)
		}
	}
	return cfg, nil
}
