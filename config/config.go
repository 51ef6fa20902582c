package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rohanthewiz/logger"
	"github.com/spf13/pflag"

	"rnotes/diff"
)

const (
	// Default Anthropic API URL
	defaultAnthropicAPIURL = "https://api.anthropic.com/v1/messages"
	defaultModel           = "claude-3-5-sonnet-20241022"
	defaultAddress         = ":8000"
)

// Config holds application configuration
type Config struct {
	Address         string
	DataDir         string
	AnthropicAPIURL string
	AnthropicAPIKey string
	Model           string

	// Diff engine tuning
	DiffLookahead    int
	RewriteThreshold float64
	TriggerTerms     []string
}

// globalConfig holds the application configuration instance
var globalConfig *Config

// Initialize sets up the configuration from environment variables
func Initialize() {
	globalConfig = FromEnv()
}

// Get returns the global configuration instance
func Get() *Config {
	if globalConfig == nil {
		Initialize()
	}
	return globalConfig
}

// Set replaces the global configuration, e.g. after command-line overrides.
func Set(cfg *Config) {
	globalConfig = cfg
}

// FromEnv builds a Config from environment variables, falling back to defaults.
func FromEnv() *Config {
	return &Config{
		Address:          envOr("RNOTES_ADDR", defaultAddress),
		DataDir:          envOr("RNOTES_DATA_DIR", defaultDataDir()),
		AnthropicAPIURL:  getAnthropicAPIURL(),
		AnthropicAPIKey:  os.Getenv("ANTHROPIC_API_KEY"),
		Model:            envOr("RNOTES_MODEL", defaultModel),
		DiffLookahead:    envInt("RNOTES_DIFF_LOOKAHEAD", diff.DefaultLookahead, validLookahead),
		RewriteThreshold: envFloat("RNOTES_REWRITE_THRESHOLD", diff.DefaultRewriteThreshold, validRatio),
		TriggerTerms:     envList("RNOTES_TRIGGER_TERMS", diff.DefaultBlockRules().TriggerTerms),
	}
}

// BindFlags registers command-line overrides for c on fs. Call Normalize after parsing.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.Address, "addr", c.Address, "address to listen on")
	fs.StringVar(&c.DataDir, "data-dir", c.DataDir, "directory holding the notes database")
	fs.StringVar(&c.Model, "model", c.Model, "Claude model used for transforms")
	fs.IntVar(&c.DiffLookahead, "lookahead", c.DiffLookahead, "lines scanned ahead when realigning a diff")
	fs.Float64Var(&c.RewriteThreshold, "rewrite-threshold", c.RewriteThreshold, "share of new lines above which a note counts as rewritten")
	fs.StringSliceVar(&c.TriggerTerms, "trigger", c.TriggerTerms, "terms that mark a reference block")
}

// Normalize applies the same range checks to values set outside the environment,
// e.g. command-line flags. Out-of-range values fall back to the defaults.
func (c *Config) Normalize() {
	if !validLookahead(c.DiffLookahead) {
		logger.Warn("Ignoring invalid lookahead", "value", c.DiffLookahead)
		c.DiffLookahead = diff.DefaultLookahead
	}
	if !validRatio(c.RewriteThreshold) {
		logger.Warn("Ignoring invalid rewrite threshold", "value", c.RewriteThreshold)
		c.RewriteThreshold = diff.DefaultRewriteThreshold
	}

	terms := make([]string, 0, len(c.TriggerTerms))
	for _, term := range c.TriggerTerms {
		if term = strings.TrimSpace(term); term != "" {
			terms = append(terms, term)
		}
	}
	if len(terms) == 0 {
		terms = diff.DefaultBlockRules().TriggerTerms
	}
	c.TriggerTerms = terms
}

func validLookahead(v int) bool { return v >= 1 }

// validRatio accepts (0, 1]
func validRatio(v float64) bool { return v > 0 && v <= 1 }

// DiffOptions translates the engine settings into diff options.
func (c *Config) DiffOptions() diff.Options {
	opts := diff.DefaultOptions()
	if c.DiffLookahead > 0 {
		opts.Lookahead = c.DiffLookahead
	}
	if c.RewriteThreshold > 0 {
		opts.RewriteThreshold = c.RewriteThreshold
	}
	if len(c.TriggerTerms) > 0 {
		opts.Rules.TriggerTerms = c.TriggerTerms
	}
	return opts
}

// DBPath is where the notes database lives.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "rnotes.db")
}

// getAnthropicAPIURL returns the API URL from environment or default
func getAnthropicAPIURL() string {
	// Check for MSG_PROXY environment variable
	if proxyURL := os.Getenv("MSG_PROXY"); proxyURL != "" {
		// If MSG_PROXY is set, append the messages endpoint
		return strings.TrimSuffix(proxyURL, "/") + "/v1/messages"
	}
	return defaultAnthropicAPIURL
}

func defaultDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "rnotes")
	}
	return filepath.Join(homeDir, ".local", "share", "rnotes")
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int, valid func(int) bool) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || !valid(v) {
		logger.Warn("Ignoring invalid integer setting", "key", key, "value", raw)
		return fallback
	}
	return v
}

func envFloat(key string, fallback float64, valid func(float64) bool) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || !valid(v) {
		logger.Warn("Ignoring invalid ratio setting", "key", key, "value", raw)
		return fallback
	}
	return v
}

// envList reads a comma-separated list, dropping blank entries.
func envList(key string, fallback []string) []string {
	raw := os.Getenv(key)
	if strings.TrimSpace(raw) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
