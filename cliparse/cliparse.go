package cliparse

import (
	"errors"
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultPositions is the position ladder assigned to ranked candidates
// when POSITION_TITLES is not set.
var DefaultPositions = []string{
	"President",
	"Vice President",
	"Secretary",
	"Treasurer",
	"Auditor",
	"Public Relations Officer",
}

type Config struct {
	Port            int
	DatabaseURL     string
	DatabaseType    string
	AdminToken      string
	CodeSalt        string
	CodeTTL         time.Duration
	DefaultDuration time.Duration
	Tolerance       time.Duration
	PositionTitles  []string
}

// ParseFlags validates flags, loading .env and environment fallbacks
func ParseFlags(args []string) (Config, error) {
	var cfg Config

	// Best-effort: a missing .env file is not an error.
	_ = godotenv.Load()

	fs := flag.NewFlagSet("clearballot", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.AdminToken, "admin-token", "", "Admin API token (prefer env)")
	fs.StringVar(&cfg.CodeSalt, "code-salt", "", "One-time code hash salt (prefer env)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = 3319 // default
		}
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = "sqlite"
		}
	}
	if cfg.DatabaseType != "sqlite" && cfg.DatabaseType != "postgres" {
		return Config{}, errors.New("DATABASE_TYPE must be sqlite or postgres")
	}

	// Secrets - MUST be provided
	if cfg.AdminToken == "" {
		cfg.AdminToken = os.Getenv("ADMIN_TOKEN")
	}
	if cfg.AdminToken == "" {
		return Config{}, errors.New("ADMIN_TOKEN required")
	}

	if cfg.CodeSalt == "" {
		cfg.CodeSalt = os.Getenv("CODE_SALT")
	}
	if cfg.CodeSalt == "" {
		return Config{}, errors.New("CODE_SALT required")
	}

	// Tunables with defaults
	var err error
	cfg.CodeTTL, err = durationEnv("CODE_TTL_MINUTES", time.Minute, 10*time.Minute)
	if err != nil {
		return Config{}, err
	}
	cfg.DefaultDuration, err = durationEnv("DEFAULT_DURATION_HOURS", time.Hour, 8*time.Hour)
	if err != nil {
		return Config{}, err
	}
	cfg.Tolerance, err = durationEnv("TOLERANCE_SECONDS", time.Second, 30*time.Second)
	if err != nil {
		return Config{}, err
	}

	cfg.PositionTitles = DefaultPositions
	if titles := os.Getenv("POSITION_TITLES"); titles != "" {
		cfg.PositionTitles = nil
		for _, title := range strings.Split(titles, ",") {
			title = strings.TrimSpace(title)
			if title != "" {
				cfg.PositionTitles = append(cfg.PositionTitles, title)
			}
		}
		if len(cfg.PositionTitles) == 0 {
			return Config{}, errors.New("POSITION_TITLES must contain at least one title")
		}
	}

	return cfg, nil
}

// durationEnv reads an integer env variable and scales it by unit,
// falling back to def when unset.
func durationEnv(key string, unit, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, errors.New("invalid " + key + " env variable")
	}
	return time.Duration(n) * unit, nil
}
