package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// DefaultEnvPrefix prefixes every environment override (AGENCY_SERVER_PORT).
const DefaultEnvPrefix = "AGENCY"

// legacyEnv lists unprefixed variable names that keep working for
// deployments configured with plain provider variables.
var legacyEnv = map[string][]string{
	"llm.api_key":                {"GEMINI_API_KEY"},
	"search.api_key":             {"BRAVE_API_KEY"},
	"server.host":                {"APP_HOST"},
	"server.port":                {"APP_PORT"},
	"workflow.max_retries":       {"MAX_RETRIES"},
	"workflow.quality_threshold": {"QUALITY_THRESHOLD"},
}

// Loader handles configuration loading from multiple sources.
type Loader struct {
	v          *viper.Viper
	configFile string
	envPrefix  string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return NewLoaderWithViper(viper.New())
}

// NewLoaderWithViper creates a loader on an existing viper instance so CLI
// flags bound to it take precedence.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{v: v, envPrefix: DefaultEnvPrefix}
}

// WithConfigFile sets an explicit config file path.
func (l *Loader) WithConfigFile(path string) *Loader {
	l.configFile = path
	return l
}

// WithEnvPrefix sets the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// Viper returns the underlying viper instance.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// ConfigFile returns the file that was read, if any.
func (l *Loader) ConfigFile() string {
	return l.v.ConfigFileUsed()
}

// Load reads configuration. Precedence, highest first: flags, AGENCY_*
// environment, legacy environment names, agency.yaml in the working
// directory, ~/.config/agency/agency.yaml, defaults.
func (l *Loader) Load() (*Config, error) {
	setDefaults(l.v)

	l.v.SetEnvPrefix(l.envPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()
	for key, names := range legacyEnv {
		prefixed := l.envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		args := append([]string{key, prefixed}, names...)
		if err := l.v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("binding env for %s: %w", key, err)
		}
	}

	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	} else {
		l.v.SetConfigName("agency")
		l.v.SetConfigType("yaml")
		l.v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			l.v.AddConfigPath(filepath.Join(home, ".config", "agency"))
		}
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	return l.decode()
}

func (l *Loader) decode() (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// Default returns the configuration produced by defaults alone.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg, err := (&Loader{v: v}).decode()
	if err != nil {
		panic(fmt.Sprintf("default config does not decode: %v", err))
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "auto")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("state.backend", "sqlite")
	v.SetDefault("state.path", ".agency/state.db")

	v.SetDefault("search.api_key", "")
	v.SetDefault("search.base_url", "https://api.search.brave.com/res/v1/web/search")
	v.SetDefault("search.timeout", "30s")
	v.SetDefault("search.rate_limit_per_second", 1.0)
	v.SetDefault("search.rate_limit_burst", 1)

	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.model", "gemini-2.0-flash")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_tokens", 2048)
	v.SetDefault("llm.timeout", "30s")

	v.SetDefault("research.parallel", false)
	v.SetDefault("research.results_per_query", 5)
	v.SetDefault("research.stagger", "1s")

	v.SetDefault("workflow.max_retries", 2)
	v.SetDefault("workflow.quality_threshold", 60.0)
	v.SetDefault("workflow.timeout", "10m")
	v.SetDefault("workflow.auto_checkpoint", true)
	v.SetDefault("workflow.max_steps", 8)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", "agency")
}
