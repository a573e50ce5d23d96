package bizextract

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ConfigName is the config file base name and the BIZEXTRACT_ environment
// prefix.
const ConfigName = "bizextract"

// ReadConfig registers every Config key of defaults on v, reads the config
// file and enables BIZEXTRACT_* environment overrides. An empty path
// searches for bizextract.yaml in the working directory and in
// $HOME/.bizextract; a missing search result is not an error. Decode the
// result with v.Unmarshal.
func ReadConfig(v *viper.Viper, path string, defaults Config) error {
	if err := setDefaults(v, defaults); err != nil {
		return err
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(ConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, "."+ConfigName))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("reading config file: %w", err)
		}
	} else {
		slog.Debug("bizextract: config loaded", "file", v.ConfigFileUsed())
	}

	v.SetEnvPrefix(strings.ToUpper(ConfigName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return nil
}

// LoadConfig returns DefaultConfig overlaid with the config file at path
// and BIZEXTRACT_* environment variables.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	if err := ReadConfig(v, path, DefaultConfig()); err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	cfg.ResolveAPIKey()
	return cfg, nil
}

// ResolveAPIKey falls back to OPENAI_API_KEY or GROQ_API_KEY when no LLM
// key is configured for those providers.
func (c *Config) ResolveAPIKey() {
	if c.LLM.APIKey != "" {
		return
	}
	switch c.LLM.Provider {
	case "openai":
		c.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	case "groq":
		c.LLM.APIKey = os.Getenv("GROQ_API_KEY")
	}
}

// setDefaults registers every key of cfg with its value, so that
// environment variables are seen for keys absent from the config file.
func setDefaults(v *viper.Viper, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return err
	}
	setTree(v, "", tree)
	return nil
}

func setTree(v *viper.Viper, prefix string, tree map[string]any) {
	for k, val := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := val.(map[string]any); ok {
			setTree(v, key, sub)
			continue
		}
		v.SetDefault(key, val)
	}
}
