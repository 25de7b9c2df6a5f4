package store

import (
	"fmt"

	"github.com/wcfdehao/gomoku/pkg/config"
)

// NewKV returns a concrete KV based on store configuration
func NewKV(cfg config.StoreConfig) (KV, error) {
	switch cfg.Type {
	case "redis", "":
		return NewRedisKV(cfg)
	case "sqlite":
		return NewSQLiteKV(cfg.Path)
	case "memory":
		return NewMemoryKV(), nil
	default:
		return nil, fmt.Errorf("unsupported store type: %s", cfg.Type)
	}
}
