package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del daemon de sincronización.
type Config struct {
	Sync    SyncConfig    `yaml:"sync"`
	Harvest HarvestConfig `yaml:"harvest"`
	Queue   QueueConfig   `yaml:"queue"`
	API     APIConfig     `yaml:"api"`
	Cache   CacheConfig   `yaml:"cache"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
}

// SyncConfig controla el tick de sincronización diferencial.
type SyncConfig struct {
	IntervalSeconds int     `yaml:"interval_seconds"`
	Epsilon         float64 `yaml:"epsilon"` // umbral del diff de precio
	Workers         int     `yaml:"workers"` // concurrencia por-mercado del tick
}

// HarvestConfig controla el muestreo del harvester.
type HarvestConfig struct {
	SampleSize       int    `yaml:"sample_size"`
	WideSampleSize   int    `yaml:"wide_sample_size"` // grupos de 15m y 60m
	MultiStrikeProbe int    `yaml:"multi_strike_probe"`
	AdvanceMinutes   int    `yaml:"advance_minutes"`
	CategoryTag      string `yaml:"category_tag"`
}

// QueueConfig dimensiona la cola de actualizaciones y sus workers.
type QueueConfig struct {
	Capacity int `yaml:"capacity"`
	Workers  int `yaml:"workers"`
}

// APIConfig contiene el base URL del feed remoto.
type APIConfig struct {
	GammaBase string `yaml:"gamma_base"`
}

// CacheConfig elige el backend de la caché de precios.
type CacheConfig struct {
	Backend    string `yaml:"backend"` // memory | redis
	RedisAddr  string `yaml:"redis_addr"`
	TTLMinutes int    `yaml:"ttl_minutes"`
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del entorno sobreescriben los del YAML para las keys que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// SyncInterval devuelve el intervalo del tick como time.Duration.
func (c *Config) SyncInterval() time.Duration {
	return time.Duration(c.Sync.IntervalSeconds) * time.Second
}

// CacheTTL devuelve la caducidad de la caché de precios.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLMinutes) * time.Minute
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
		cfg.Cache.Backend = "redis"
	}
	if v := os.Getenv("STORAGE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("SYNC_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Sync.IntervalSeconds = n
		}
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Sync.IntervalSeconds <= 0 {
		cfg.Sync.IntervalSeconds = 30
	}
	if cfg.Sync.Epsilon <= 0 {
		cfg.Sync.Epsilon = 0.001
	}
	if cfg.Sync.Workers <= 0 {
		cfg.Sync.Workers = 10
	}
	if cfg.Harvest.SampleSize <= 0 {
		cfg.Harvest.SampleSize = 10
	}
	if cfg.Harvest.WideSampleSize <= 0 {
		cfg.Harvest.WideSampleSize = 50
	}
	if cfg.Harvest.MultiStrikeProbe <= 0 {
		cfg.Harvest.MultiStrikeProbe = 10
	}
	if cfg.Harvest.AdvanceMinutes <= 0 {
		cfg.Harvest.AdvanceMinutes = 120
	}
	if cfg.Harvest.CategoryTag == "" {
		cfg.Harvest.CategoryTag = "crypto"
	}
	if cfg.Queue.Capacity <= 0 {
		cfg.Queue.Capacity = 1000
	}
	if cfg.Queue.Workers <= 0 {
		cfg.Queue.Workers = 10
	}
	if cfg.API.GammaBase == "" {
		cfg.API.GammaBase = "https://gamma-api.polymarket.com"
	}
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "memory"
	}
	if cfg.Cache.RedisAddr == "" {
		cfg.Cache.RedisAddr = "localhost:6379"
	}
	if cfg.Cache.TTLMinutes <= 0 {
		cfg.Cache.TTLMinutes = 60
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "syncd.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
