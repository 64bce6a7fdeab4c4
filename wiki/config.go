package wiki

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	// LibraryName and LibraryVersion form the fixed part of the User-Agent.
	LibraryName    = "mediawiki-gateway"
	LibraryVersion = "0.3.0"
)

// Config holds MediaWiki connection settings
type Config struct {
	// BaseURL is the wiki API endpoint (e.g., https://wiki.example.com/w/api.php)
	BaseURL string

	// Username, Password and Domain are used by callers that log in on startup.
	// Domain is for authentication plugins such as LDAP; empty means "local".
	Username string
	Password string
	Domain   string

	// Timeout for a single HTTP round trip
	Timeout time.Duration

	// UserAgent is prepended to the library identifier in the User-Agent header.
	UserAgent string

	// MaxLag is sent as the maxlag parameter on every request (seconds).
	MaxLag int

	// RetryCount is the total number of attempts made when the wiki answers
	// 503 or maxlag, including the first one.
	RetryCount int

	// RetryDelay is the minimum wait between attempts. A larger Retry-After
	// from the server wins.
	RetryDelay time.Duration

	// Limit is the per-request result limit used by list queries.
	Limit int

	// MaxResults caps the total number of search hits collected.
	MaxResults int

	// Bot marks edits with bot=1 and assert=bot.
	Bot bool

	// IgnoreWarnings logs API warnings and invalid titles instead of
	// returning an APIError with code "warning".
	IgnoreWarnings bool
}

// DefaultConfig returns the defaults for a wiki at baseURL.
func DefaultConfig(baseURL string) *Config {
	return &Config{
		BaseURL:    baseURL,
		Timeout:    30 * time.Second,
		MaxLag:     5,
		RetryCount: 3,
		RetryDelay: 10 * time.Second,
		Limit:      500,
		MaxResults: 500,
	}
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	baseURL := os.Getenv("MEDIAWIKI_URL")
	if baseURL == "" {
		return nil, errors.New("MEDIAWIKI_URL environment variable is required")
	}

	cfg := DefaultConfig(baseURL)
	cfg.Username = os.Getenv("MEDIAWIKI_USERNAME")
	cfg.Password = os.Getenv("MEDIAWIKI_PASSWORD")
	cfg.Domain = os.Getenv("MEDIAWIKI_DOMAIN")
	cfg.UserAgent = os.Getenv("MEDIAWIKI_USER_AGENT")

	if t := os.Getenv("MEDIAWIKI_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			cfg.Timeout = d
		}
	}
	if d := os.Getenv("MEDIAWIKI_RETRY_DELAY"); d != "" {
		if parsed, err := parseSecondsOrDuration(d); err == nil && parsed >= 0 {
			cfg.RetryDelay = parsed
		}
	}

	intVars := []struct {
		name string
		dst  *int
		min  int
	}{
		{"MEDIAWIKI_MAXLAG", &cfg.MaxLag, 0},
		{"MEDIAWIKI_RETRY_COUNT", &cfg.RetryCount, 1},
		{"MEDIAWIKI_LIMIT", &cfg.Limit, 1},
		{"MEDIAWIKI_MAX_RESULTS", &cfg.MaxResults, 1},
	}
	for _, v := range intVars {
		if s := os.Getenv(v.name); s != "" {
			if n, err := strconv.Atoi(s); err == nil && n >= v.min {
				*v.dst = n
			}
		}
	}

	cfg.Bot = envBool("MEDIAWIKI_BOT")
	cfg.IgnoreWarnings = envBool("MEDIAWIKI_IGNORE_WARNINGS")

	return cfg, nil
}

// HasCredentials returns true if authentication credentials are configured
func (c *Config) HasCredentials() bool {
	return c.Username != "" && c.Password != ""
}

// UserAgentHeader composes the caller prefix with the library identifier.
func (c *Config) UserAgentHeader() string {
	ua := LibraryName + "/" + LibraryVersion
	if c.UserAgent == "" {
		return ua
	}
	return c.UserAgent + " " + ua
}

// parseSecondsOrDuration accepts "10" (seconds) as well as "10s" or "1m".
func parseSecondsOrDuration(s string) (time.Duration, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(s)
}

func envBool(name string) bool {
	switch strings.ToLower(os.Getenv(name)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
