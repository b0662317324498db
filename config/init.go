package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Конечная структура конфигурации приложения.
// Расширяем по мере роста проекта.
type Config struct {
	Server struct {
		Address  string `mapstructure:"address"`   // 0.0.0.0
		HTTPPort string `mapstructure:"http_port"` // 8765
	} `mapstructure:"server"`

	Logging struct {
		Level  string `mapstructure:"level"`  // trace|debug|info|warning|error|fatal
		Format string `mapstructure:"format"` // text|json
		File   string `mapstructure:"file"`   // путь/префикс файла, пусто — только stdout
	} `mapstructure:"logs"`

	Database struct {
		Driver string `mapstructure:"driver"` // "sqlite" | "postgres" | "mysql"
		DSN    string `mapstructure:"dsn"`    // пример: file:fabula.db или postgres://...
	} `mapstructure:"database"`

	Sync struct {
		BatchSize  int           `mapstructure:"batch_size"`  // максимум изменений за один pull
		PairingTTL time.Duration `mapstructure:"pairing_ttl"` // срок жизни pairing-токена
	} `mapstructure:"sync"`
}

// Load читает конфиг из env/файла с дефолтами.
func Load() (*Config, error) {
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Дефолты (минимальный рабочий набор)
	viper.SetDefault("server.address", "0.0.0.0")
	viper.SetDefault("server.http_port", "8765")

	// Логи — дефолты
	viper.SetDefault("logs.level", "info")
	viper.SetDefault("logs.format", "text")
	viper.SetDefault("logs.file", "")

	// DB: по умолчанию — локальный sqlite-файл (настольное хранилище)
	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.dsn", defaultDBPath())

	// Синхронизация
	viper.SetDefault("sync.batch_size", 1000)
	viper.SetDefault("sync.pairing_ttl", 5*time.Minute)

	// Источник файла
	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			viper.AddConfigPath(filepath.Join(xdg, "fabula"))
		}
		viper.AddConfigPath("/etc/fabula")
	}

	// Чтение файла (опционально)
	if err := viper.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return nil, fmt.Errorf("config read error: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal error: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func validate(c *Config) error {
	if strings.TrimSpace(c.Server.Address) == "" {
		return errors.New("server.address must not be empty")
	}
	if strings.TrimSpace(c.Server.HTTPPort) == "" {
		return errors.New("server.http_port must not be empty")
	}
	if strings.TrimSpace(c.Database.Driver) == "" {
		return errors.New("database.driver must be set (sqlite|postgres|mysql)")
	}
	if c.Sync.BatchSize <= 0 {
		return errors.New("sync.batch_size must be positive")
	}
	if c.Sync.PairingTTL <= 0 {
		return errors.New("sync.pairing_ttl must be positive")
	}
	return nil
}

// defaultDBPath — путь к БД настольного приложения (~/.local/share/fabula/fabula.db).
func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "fabula.db"
	}
	return filepath.Join(home, ".local", "share", "fabula", "fabula.db")
}
