package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/agentstation/pkgfeed/pkg/constants"
	pkgerrors "github.com/agentstation/pkgfeed/pkg/errors"
)

// Config holds the application configuration loaded from various sources
// including config files, environment variables, and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string `validate:"omitempty,oneof=table json yaml"`

	// Config file
	ConfigFile string

	// Monitored project and API
	Project     string        `validate:"required"`
	APIURL      string        `validate:"required,url"`
	UserAgent   string        `validate:"required"`
	HTTPTimeout time.Duration `validate:"gt=0"`
	Fields      []string      `validate:"min=1,dive,required"`

	// Package identity filter
	IncludePackages []string
	ExcludePackages []string

	// Files
	StateFile    string `validate:"required"`
	StateBackend string `validate:"oneof=file json sqlite sqlite3 db"`
	ChangesFile  string
	FeedFile     string `validate:"required"`
	MetricsFile  string

	// Feed
	MaxItems        int  `validate:"min=1"`
	ContentGUIDs    bool
	FeedTitle       string
	FeedLink        string `validate:"omitempty,url"`
	FeedDescription string
	FeedLanguage    string
	FeedCategory    string
	FeedTTL         int `validate:"min=0"`

	// Watch mode
	WatchInterval time.Duration `validate:"gt=0"`

	// Logging configuration
	LogLevel  string `validate:"omitempty,oneof=trace debug info warn error"`
	LogFormat string `validate:"omitempty,oneof=auto json console pretty"`
	LogOutput string
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (applied later by UpdateFromFlags)
// 2. Environment variables (PKGFEED_*)
// 3. .env files
// 4. Config file (--config, or .pkgfeed.yaml in the home or working directory)
// 5. Defaults
func LoadConfig(configFile string) (*Config, error) {
	// Load .env files first (before Viper env binding)
	loadEnvFiles()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(constants.EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".pkgfeed")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// An explicit config file must exist; the search locations are optional
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, pkgerrors.NewConfigError("config", "cannot read config file", err)
		}
	}

	config := &Config{
		Verbose: v.GetBool("verbose"),
		Quiet:   v.GetBool("quiet"),
		NoColor: v.GetBool("no_color"),
		Format:  v.GetString("format"),

		ConfigFile: v.ConfigFileUsed(),

		Project:     v.GetString("project"),
		APIURL:      v.GetString("api_url"),
		UserAgent:   v.GetString("user_agent"),
		HTTPTimeout: v.GetDuration("http_timeout"),
		Fields:      stringList(v.GetStringSlice("fields")),

		IncludePackages: stringList(v.GetStringSlice("include_packages")),
		ExcludePackages: stringList(v.GetStringSlice("exclude_packages")),

		StateFile:    v.GetString("state_file"),
		StateBackend: strings.ToLower(v.GetString("state_backend")),
		ChangesFile:  v.GetString("changes_file"),
		FeedFile:     v.GetString("feed_file"),
		MetricsFile:  v.GetString("metrics_file"),

		MaxItems:        v.GetInt("max_items"),
		ContentGUIDs:    v.GetBool("content_guids"),
		FeedTitle:       v.GetString("feed_title"),
		FeedLink:        v.GetString("feed_link"),
		FeedDescription: v.GetString("feed_description"),
		FeedLanguage:    v.GetString("feed_language"),
		FeedCategory:    v.GetString("feed_category"),
		FeedTTL:         v.GetInt("feed_ttl"),

		WatchInterval: v.GetDuration("watch_interval"),

		LogLevel:  v.GetString("log_level"),
		LogFormat: v.GetString("log_format"),
		LogOutput: v.GetString("log_output"),
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_url", constants.DefaultAPIURL)
	v.SetDefault("user_agent", constants.DefaultUserAgent)
	v.SetDefault("http_timeout", constants.DefaultHTTPTimeout)
	v.SetDefault("fields", constants.DefaultFields())
	v.SetDefault("state_file", constants.DefaultStateFile)
	v.SetDefault("state_backend", "file")
	v.SetDefault("changes_file", constants.DefaultChangesFile)
	v.SetDefault("feed_file", constants.DefaultFeedFile)
	v.SetDefault("max_items", constants.DefaultMaxItems)
	v.SetDefault("feed_language", constants.DefaultFeedLanguage)
	v.SetDefault("feed_category", constants.DefaultFeedCategory)
	v.SetDefault("feed_ttl", constants.DefaultFeedTTL)
	v.SetDefault("watch_interval", constants.DefaultWatchInterval)
	v.SetDefault("log_format", "auto")
	v.SetDefault("log_output", "stderr")
}

// Validate checks the configuration. Fields named in except are skipped,
// which lets commands that do not fetch run without a project.
func (c *Config) Validate(except ...string) error {
	validate := validator.New()

	var err error
	if len(except) > 0 {
		err = validate.StructExcept(c, except...)
	} else {
		err = validate.Struct(c)
	}
	if err == nil {
		return nil
	}

	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return pkgerrors.NewConfigError("config", "validation failed", err)
	}

	first := errs[0]
	msg := fmt.Sprintf("rule '%s'", first.Tag())
	if first.Param() != "" {
		msg += fmt.Sprintf(" (expected: %s)", first.Param())
	}
	return pkgerrors.NewValidationError(configKey(first.Field()), first.Value(), msg)
}

// UpdateFromFlags updates config values from parsed command flags.
// Only flags the user set take precedence over config file and env vars.
func (c *Config) UpdateFromFlags(flags *pflag.FlagSet) {
	str := func(name string, dst *string) {
		if f := flags.Lookup(name); f != nil && f.Changed {
			*dst = f.Value.String()
		}
	}
	boolean := func(name string, dst *bool) {
		if f := flags.Lookup(name); f != nil && f.Changed {
			if val, err := flags.GetBool(name); err == nil {
				*dst = val
			}
		}
	}

	boolean("verbose", &c.Verbose)
	boolean("quiet", &c.Quiet)
	boolean("no-color", &c.NoColor)
	boolean("content-guids", &c.ContentGUIDs)
	str("format", &c.Format)
	str("log-level", &c.LogLevel)
	str("project", &c.Project)
	str("state-file", &c.StateFile)
	str("state-backend", &c.StateBackend)
	str("feed-file", &c.FeedFile)
	str("metrics-file", &c.MetricsFile)

	if f := flags.Lookup("include"); f != nil && f.Changed {
		if vals, err := flags.GetStringSlice("include"); err == nil {
			c.IncludePackages = stringList(vals)
		}
	}
	if f := flags.Lookup("exclude"); f != nil && f.Changed {
		if vals, err := flags.GetStringSlice("exclude"); err == nil {
			c.ExcludePackages = stringList(vals)
		}
	}

	if f := flags.Lookup("max-items"); f != nil && f.Changed {
		if n, err := flags.GetInt("max-items"); err == nil {
			c.MaxItems = n
		}
	}
}

// loadEnvFiles loads environment variables from .env files.
// .env.local overrides .env
func loadEnvFiles() {
	for _, envFile := range []string{".env.local", ".env"} {
		// godotenv.Load never overrides variables already set, so the
		// more specific file goes first
		_ = godotenv.Load(envFile)
	}
}

// stringList flattens comma-separated entries, as env vars carry lists that way.
func stringList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// configKey maps a struct field name to its config key.
func configKey(field string) string {
	keys := map[string]string{
		"APIURL":        "api_url",
		"HTTPTimeout":   "http_timeout",
		"ContentGUIDs":  "content_guids",
		"FeedTTL":       "feed_ttl",
		"WatchInterval": "watch_interval",
	}
	if key, ok := keys[field]; ok {
		return key
	}

	var b strings.Builder
	for i, r := range field {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte('_')
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}
