// Package config resolves the settings the middb server needs to start:
// where to listen, where to persist data, and how the write pipeline and
// ANN indexes are tuned. Values come from (in increasing priority) built-in
// defaults, an optional config file, environment variables, and command
// line flags, following the same viper/pflag layering as the rest of the
// retrieved corpus.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds every setting the middb server binary needs.
type Config struct {
	ListenAddr      string        `mapstructure:"listenAddr"`
	StorageDir      string        `mapstructure:"storageDir"`
	BatchSize       int           `mapstructure:"batchSize"`
	IdleWait        time.Duration `mapstructure:"idleWait"`
	ANNCapacityHint int           `mapstructure:"annCapacityHint"`
}

// Defaults mirror the middb package's own DefaultBatchSize/DefaultIdleWait/
// DefaultCapacityHint so a config-free run behaves identically to an
// Open call with no options.
const (
	DefaultListenAddr = "0.0.0.0:8080"
	DefaultStorageDir = "data"
)

// Load resolves a Config from built-in defaults, an optional config file,
// and environment variables (prefixed MIDDB_). It reads no command line
// flags; LoadWithFlags adds those.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("listenAddr", DefaultListenAddr)
	v.SetDefault("storageDir", DefaultStorageDir)
	v.SetDefault("batchSize", 100)
	v.SetDefault("idleWait", 5*time.Second)
	v.SetDefault("annCapacityHint", 20000)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("middb")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/middb")
	}

	v.SetEnvPrefix("middb")
	v.AutomaticEnv()
	if err := bindEnvVars(v); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode into struct: %w", err)
	}
	return &cfg, nil
}

// bindEnvVars binds each mapstructure key to the snake_case, MIDDB_-prefixed
// environment variable name documented for it, since AutomaticEnv alone
// would only recognize MIDDB_LISTENADDR-style names derived by uppercasing
// the camelCase key.
func bindEnvVars(v *viper.Viper) error {
	binds := map[string]string{
		"listenAddr":      "MIDDB_LISTEN_ADDR",
		"storageDir":      "MIDDB_STORAGE_DIR",
		"batchSize":       "MIDDB_BATCH_SIZE",
		"idleWait":        "MIDDB_IDLE_WAIT",
		"annCapacityHint": "MIDDB_ANN_CAPACITY_HINT",
	}
	for key, env := range binds {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("config: bind env var %s: %w", env, err)
		}
	}
	return nil
}

// BindFlags registers the server's command line flags on fs. It does not
// bind them into viper; LoadWithFlags does that, so flag values set on
// the command line win over file/env/default values.
func BindFlags(fs *pflag.FlagSet) {
	fs.String("listen-addr", DefaultListenAddr, "address to listen on")
	fs.String("storage-dir", DefaultStorageDir, "directory to persist tables in")
	fs.Int("batch-size", 100, "write pipeline batch size before a flush")
	fs.Duration("idle-wait", 5*time.Second, "max time the write pipeline waits to fill a batch")
	fs.Int("ann-capacity-hint", 20000, "expected point count used to pre-size a table's ANN index")
}

// LoadWithFlags resolves a Config the same way Load does, then overlays
// any flags in fs that were explicitly set on the command line.
func LoadWithFlags(configPath string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetDefault("listenAddr", DefaultListenAddr)
	v.SetDefault("storageDir", DefaultStorageDir)
	v.SetDefault("batchSize", 100)
	v.SetDefault("idleWait", 5*time.Second)
	v.SetDefault("annCapacityHint", 20000)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("middb")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/middb")
	}

	v.SetEnvPrefix("middb")
	v.AutomaticEnv()
	if err := bindEnvVars(v); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read config file: %w", err)
		}
	}

	if fs != nil {
		if err := v.BindPFlag("listenAddr", fs.Lookup("listen-addr")); err != nil {
			return nil, err
		}
		if err := v.BindPFlag("storageDir", fs.Lookup("storage-dir")); err != nil {
			return nil, err
		}
		if err := v.BindPFlag("batchSize", fs.Lookup("batch-size")); err != nil {
			return nil, err
		}
		if err := v.BindPFlag("idleWait", fs.Lookup("idle-wait")); err != nil {
			return nil, err
		}
		if err := v.BindPFlag("annCapacityHint", fs.Lookup("ann-capacity-hint")); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode into struct: %w", err)
	}
	return &cfg, nil
}
