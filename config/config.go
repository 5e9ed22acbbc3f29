package config

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr        string
	DBUrl       string
	TokenSecret string
	TokenTTL    time.Duration
	Debug       bool
}

// ParseFlags reads the backend configuration from args. Flags default to the
// GEOSURVEY_* environment variables, which may come from a .env file.
func ParseFlags(args []string) (cfg Config, err error) {
	err = godotenv.Load()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("loading .env: %w", err)
	}

	defaultPort, err := envUint("PORT", 8000)
	if err != nil {
		return
	}
	defaultTTL, err := envUint("GEOSURVEY_TOKEN_TTL", 1800)
	if err != nil {
		return
	}

	fs := flag.NewFlagSet("geo-survey", flag.ContinueOnError)
	var host string
	fs.StringVar(&host, "host", envOr("GEOSURVEY_HOST", "0.0.0.0"), "listen host name")
	var port uint
	fs.UintVar(&port, "port", defaultPort, "listen port number")
	fs.StringVar(&cfg.DBUrl, "db-url", envOr("GEOSURVEY_DB_URL", "geosurvey.sqlite"), "path to SQLite3 DB file")
	fs.StringVar(&cfg.TokenSecret, "token-secret", os.Getenv("GEOSURVEY_TOKEN_SECRET"), "secret key for token encryption and decryption")
	var ttl uint
	fs.UintVar(&ttl, "token-ttl", defaultTTL, "access token TTL in seconds")
	fs.BoolVar(&cfg.Debug, "debug", os.Getenv("GEOSURVEY_DEBUG") != "", "log at DEBUG level")

	err = fs.Parse(args)
	if err != nil {
		return
	}

	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(int(port)))
	cfg.TokenTTL = time.Duration(ttl) * time.Second

	if cfg.TokenSecret == "" {
		err = errors.New("missing parameter -token-secret (or GEOSURVEY_TOKEN_SECRET)")
	}

	return
}

func (cfg Config) Url() (url string) {
	url = cfg.Addr
	url = regexp.MustCompile(`^0.0.0.0`).ReplaceAllString(url, "localhost")
	url = "http://" + url
	return
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envUint(key string, fallback uint) (uint, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s env variable: %w", key, err)
	}
	return uint(n), nil
}
