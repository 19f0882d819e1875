package config

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"evmAdapter/internal/model"
)

const envPrefix = "ADAPTER"

// ErrStorageDepositUnset is returned when a command that prices transactions
// has no storage-deposit-per-byte.
var ErrStorageDepositUnset = errors.New("storage-deposit-per-byte is required")

// Config holds the serve command configuration loaded from flags, env, or
// config file.
type Config struct {
	HTTPAddr                 string
	WSAddr                   string
	ChainRPC                 string
	PGDSN                    string
	BlocksFile               string
	ChainID                  uint64
	NetworkVersion           string
	ClientVersion            string
	NativeDecimals           uint8
	StorageDepositPerByte    *big.Int
	MaxRetries               int
	RetryBackoff             time.Duration
	ExtensiveInstrumentation bool
	CORSOrigins              []string
	Metrics                  bool
	LogLevel                 string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	setChainDefaults(v)
	v.SetDefault("http-addr", ":8545")
	v.SetDefault("ws-addr", "")
	v.SetDefault("chain-id", uint64(1000))
	v.SetDefault("network-version", "1000")
	v.SetDefault("client-version", "Laguna/v1")
	v.SetDefault("extensive-instrumentation", false)
	v.SetDefault("metrics", true)

	// Deployments set the toggle without the prefix.
	if err := v.BindEnv("extensive-instrumentation", envPrefix+"_EXTENSIVE_INSTRUMENTATION", "EXTENSIVE_INSTRUMENTATION"); err != nil {
		return Config{}, fmt.Errorf("bind env: %w", err)
	}

	if err := read(v, cfgFile, flags); err != nil {
		return Config{}, err
	}

	chain, err := loadChain(v)
	if err != nil {
		return Config{}, err
	}
	if chain.StorageDepositPerByte == nil {
		return Config{}, ErrStorageDepositUnset
	}

	cfg := Config{
		HTTPAddr:                 v.GetString("http-addr"),
		WSAddr:                   v.GetString("ws-addr"),
		ChainRPC:                 chain.ChainRPC,
		PGDSN:                    chain.PGDSN,
		BlocksFile:               chain.BlocksFile,
		ChainID:                  v.GetUint64("chain-id"),
		NetworkVersion:           v.GetString("network-version"),
		ClientVersion:            v.GetString("client-version"),
		NativeDecimals:           chain.NativeDecimals,
		StorageDepositPerByte:    chain.StorageDepositPerByte,
		MaxRetries:               chain.MaxRetries,
		RetryBackoff:             chain.RetryBackoff,
		ExtensiveInstrumentation: v.GetBool("extensive-instrumentation"),
		CORSOrigins:              getStringSlice(v, "cors-origins"),
		Metrics:                  v.GetBool("metrics"),
		LogLevel:                 chain.LogLevel,
	}

	return cfg, nil
}

// ChainConfig holds the settings shared by every command that reads chain
// data. StorageDepositPerByte is nil when it was not configured.
type ChainConfig struct {
	ChainRPC              string
	PGDSN                 string
	BlocksFile            string
	NativeDecimals        uint8
	StorageDepositPerByte *big.Int
	MaxRetries            int
	RetryBackoff          time.Duration
	LogLevel              string
}

// LoadChain merges config file, environment variables, and flags into
// ChainConfig.
func LoadChain(cfgFile string, flags *pflag.FlagSet) (ChainConfig, error) {
	v := viper.New()
	setChainDefaults(v)
	if err := read(v, cfgFile, flags); err != nil {
		return ChainConfig{}, err
	}
	return loadChain(v)
}

func setChainDefaults(v *viper.Viper) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("native-decimals", 12)
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("log-level", "info")
}

func loadChain(v *viper.Viper) (ChainConfig, error) {
	decimals := v.GetInt("native-decimals")
	if decimals < 0 || decimals > 18 {
		return ChainConfig{}, fmt.Errorf("native-decimals must be between 0 and 18, got %d", decimals)
	}
	var deposit *big.Int
	if raw := strings.TrimSpace(v.GetString("storage-deposit-per-byte")); raw != "" {
		parsed, err := model.ParseQuantity(raw)
		if err != nil {
			return ChainConfig{}, fmt.Errorf("storage-deposit-per-byte: %w", err)
		}
		if parsed.Sign() < 0 {
			return ChainConfig{}, fmt.Errorf("storage-deposit-per-byte must not be negative")
		}
		deposit = parsed
	}

	return ChainConfig{
		ChainRPC:              v.GetString("chain-rpc"),
		PGDSN:                 v.GetString("pg-dsn"),
		BlocksFile:            v.GetString("blocks-file"),
		NativeDecimals:        uint8(decimals),
		StorageDepositPerByte: deposit,
		MaxRetries:            v.GetInt("max-retries"),
		RetryBackoff:          v.GetDuration("retry-backoff"),
		LogLevel:              v.GetString("log-level"),
	}, nil
}

func read(v *viper.Viper, cfgFile string, flags *pflag.FlagSet) error {
	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return fmt.Errorf("read config: %w", err)
			}
		}
	}
	return nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
