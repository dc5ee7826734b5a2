package persist

import (
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Store backends accepted by OpenStore.
const (
	BackendFile  = "file"
	BackendBolt  = "bolt"
	BackendRedis = "redis"
)

// StoreConfig selects and configures a Store backend.
type StoreConfig struct {
	// Backend is one of "file", "bolt" or "redis".
	Backend string `mapstructure:"backend" validate:"required,oneof=file bolt redis"`

	// Dir is the directory of a file store.
	Dir string `mapstructure:"dir" validate:"required_if=Backend file"`

	// Path is the database file of a bolt store.
	Path string `mapstructure:"path" validate:"required_if=Backend bolt"`

	// Addr, Password, DB and Prefix configure a redis store.
	Addr     string `mapstructure:"addr" validate:"required_if=Backend redis"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
	Prefix   string `mapstructure:"prefix"`
}

// OpenStore opens the backend described by cfg.
func OpenStore(cfg StoreConfig) (Store, error) {
	switch cfg.Backend {
	case BackendFile:
		return NewFileStore(cfg.Dir)
	case BackendBolt:
		return NewBoltStore(cfg.Path)
	case BackendRedis:
		prefix := cfg.Prefix
		if prefix == "" {
			prefix = "reflux"
		}
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
		return NewRedisStore(client, prefix), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
