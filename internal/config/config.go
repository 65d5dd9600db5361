package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is a typed snapshot of the loaded configuration. Services receive it
// at construction time instead of reading viper directly.
type Config struct {
	Env             string
	DBPath          string
	APIPort         int
	AllowedOrigin   string
	LogFile         string
	LogLevel        string
	LogFormat       string
	JWTKeysDir      string
	JWTKeyName      string
	TokenTTL        time.Duration
	IPCSocket       string
	IndexerURL      string
	IndexerTimeout  time.Duration
	IndexedCacheTTL time.Duration
	InternalOrigin  string
	SiteCacheMax    int
	SiteCacheTTL    time.Duration
}

// LoadConfig loads the configuration and sets default values for development/production
func LoadConfig() error {
	// A missing .env is fine; it only carries overrides.
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return fmt.Errorf("error loading .env file: %w", err)
		}
	}

	viper.SetConfigName("config")
	viper.SetConfigType("json")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createDefaultConfig()
		}
		return fmt.Errorf("error reading config file: %w", err)
	}

	setDefaults()

	return nil
}

// setDefaults sets default configuration values based on the environment
func setDefaults() {
	env := viper.GetString("ENV")
	if env == "" {
		env = "development"
		viper.Set("ENV", env)
	}

	if env == "development" {
		viper.SetDefault("allowed_origin", "http://localhost:3000")
		viper.SetDefault("db_path", "./dev_wallet_state.db")
		viper.SetDefault("indexer_url", "http://localhost:9002")
		viper.SetDefault("log_level", "debug")
		viper.SetDefault("log_format", "console")
	} else if env == "production" {
		viper.SetDefault("allowed_origin", "chrome-extension://flow-wallet")
		viper.SetDefault("db_path", "/var/lib/flow-wallet/wallet_state.db")
		viper.SetDefault("indexer_url", "https://api.lilico.app")
		viper.SetDefault("log_level", "info")
		viper.SetDefault("log_format", "json")
	}

	viper.SetDefault("api_port", 9003)
	viper.SetDefault("log_file", "")
	viper.SetDefault("jwt_keys_dir", "./jwtkeys")
	viper.SetDefault("jwt_key_name", "wallet")
	viper.SetDefault("token_ttl", "15m")
	viper.SetDefault("ipc_socket", "/tmp/flow-wallet.sock")
	viper.SetDefault("indexer_timeout", "15s")
	viper.SetDefault("indexed_cache_ttl", "5m")
	viper.SetDefault("internal_origin", "https://core.flow.com")
	viper.SetDefault("site_cache_max", 1000)
	viper.SetDefault("site_cache_ttl", "720h")
}

// createDefaultConfig creates a new configuration file if it doesn't exist
func createDefaultConfig() error {
	setDefaults()

	err := viper.SafeWriteConfig()
	if err != nil {
		if os.IsExist(err) {
			err = viper.WriteConfig()
			if err != nil {
				return fmt.Errorf("error writing config file: %w", err)
			}
		} else {
			return fmt.Errorf("error creating config file: %w", err)
		}
	}

	fmt.Println("Created default configuration file")
	return nil
}

// Current returns the configuration as currently known to viper.
func Current() Config {
	return Config{
		Env:             viper.GetString("ENV"),
		DBPath:          viper.GetString("db_path"),
		APIPort:         viper.GetInt("api_port"),
		AllowedOrigin:   viper.GetString("allowed_origin"),
		LogFile:         viper.GetString("log_file"),
		LogLevel:        viper.GetString("log_level"),
		LogFormat:       viper.GetString("log_format"),
		JWTKeysDir:      viper.GetString("jwt_keys_dir"),
		JWTKeyName:      viper.GetString("jwt_key_name"),
		TokenTTL:        viper.GetDuration("token_ttl"),
		IPCSocket:       viper.GetString("ipc_socket"),
		IndexerURL:      viper.GetString("indexer_url"),
		IndexerTimeout:  viper.GetDuration("indexer_timeout"),
		IndexedCacheTTL: viper.GetDuration("indexed_cache_ttl"),
		InternalOrigin:  viper.GetString("internal_origin"),
		SiteCacheMax:    viper.GetInt("site_cache_max"),
		SiteCacheTTL:    viper.GetDuration("site_cache_ttl"),
	}
}
