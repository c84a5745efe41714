package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

// Config is the agent configuration. Values resolve in order: defaults,
// then an optional propilot.yaml, then PROPILOT_* environment
// variables.
type Config struct {
	Env     string
	Server  Server
	Data    Data
	Sync    Sync
	PerDiem PerDiem
	Logger  Logger
}

type Server struct {
	ListenAddr string
}

type Data struct {
	// Dir holds the trip and airport databases plus the instance lock.
	Dir string
}

type Sync struct {
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	PairID         string
	DebounceDelay  time.Duration
	ReportInterval time.Duration
}

type PerDiem struct {
	HomeBase   string
	HourlyRate float64
}

type Logger struct {
	LogLevel string
}

func NewConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	v := viper.New()
	v.SetEnvPrefix("PROPILOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("app_env", EnvLocal)
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("data_dir", defaultDataDir())
	v.SetDefault("home_base", "KDTW")
	v.SetDefault("per_diem_rate", 2.40)
	v.SetDefault("sync_debounce", "500ms")
	v.SetDefault("sync_report_interval", "2s")
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("pair_id", "default")
	v.SetDefault("log_level", "info")

	v.SetConfigName("propilot")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath(defaultDataDir())
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		log.Printf("Loaded config file %s", v.ConfigFileUsed())
	}

	return &Config{
		Env:    v.GetString("app_env"),
		Server: Server{ListenAddr: v.GetString("listen_addr")},
		Data:   Data{Dir: v.GetString("data_dir")},
		Sync: Sync{
			RedisAddr:      v.GetString("redis_addr"),
			RedisPassword:  v.GetString("redis_password"),
			RedisDB:        v.GetInt("redis_db"),
			PairID:         v.GetString("pair_id"),
			DebounceDelay:  v.GetDuration("sync_debounce"),
			ReportInterval: v.GetDuration("sync_report_interval"),
		},
		PerDiem: PerDiem{
			HomeBase:   v.GetString("home_base"),
			HourlyRate: v.GetFloat64("per_diem_rate"),
		},
		Logger: Logger{LogLevel: v.GetString("log_level")},
	}, nil
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".propilot")
}
