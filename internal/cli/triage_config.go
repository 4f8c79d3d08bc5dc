package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"triage_server/pkg/logger"
)

// Config is the client CLI configuration. Every key can come from the
// config file, a TRIAGE_ environment variable or a flag.
type Config struct {
	Server             string `mapstructure:"server"`
	GoogleClientID     string `mapstructure:"google-client-id"`
	GoogleClientSecret string `mapstructure:"google-client-secret"`
	StoreDir           string `mapstructure:"store-dir"`
	MaxResults         int64  `mapstructure:"max-results"`
	OpenAIKey          string `mapstructure:"openai-key"`
	EncryptionKey      string `mapstructure:"encryption-key"`
}

const envPrefix = "TRIAGE"

// defaultConfigDir is $XDG_CONFIG_HOME/triage or its platform equivalent.
func defaultConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".triage"
	}
	return filepath.Join(dir, "triage")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server", "http://localhost:8080")
	v.SetDefault("google-client-id", "")
	v.SetDefault("google-client-secret", "")
	v.SetDefault("store-dir", defaultConfigDir())
	v.SetDefault("max-results", 20)
	v.SetDefault("openai-key", "")
	v.SetDefault("encryption-key", "")
}

// LoadConfig reads cfgFile, or config.yaml from the default config dir when
// cfgFile is empty. A missing default file is not an error.
func LoadConfig(v *viper.Viper, cfgFile string) (*Config, error) {
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(defaultConfigDir())
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		logger.Debug("Config file not found, using environment variables and defaults")
	} else {
		logger.Debug("Using config file: %s", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if cfg.MaxResults <= 0 {
		return nil, fmt.Errorf("max-results must be positive, got %d", cfg.MaxResults)
	}
	cfg.Server = strings.TrimSuffix(cfg.Server, "/")

	return &cfg, nil
}
