package infra

import (
	"context"
	"fmt"

	"comanda/internal/config"
	"comanda/internal/repository"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Store bundles the selected KV backend with the Redis client when there is
// one; the worker queues only run on Redis.
type Store struct {
	KV     repository.KV
	Redis  *redis.Client
	cerrar []func() error
}

func (s *Store) Close() {
	for _, c := range s.cerrar {
		if err := c(); err != nil {
			log.Warn().Err(err).Msg("store: error al cerrar")
		}
	}
}

// AbrirStore connects the backend named by STORE_DRIVER.
func AbrirStore(ctx context.Context, cfg *config.Config) (*Store, error) {
	s := &Store{}
	switch cfg.StoreDriver {
	case "redis":
		rdb, err := NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		s.Redis = rdb
		s.KV = repository.NewRedisKV(rdb)
		s.cerrar = append(s.cerrar, rdb.Close)

	case "postgres", "sqlite":
		open := func() (kv repository.KV, cerrar func() error, err error) {
			var db *gorm.DB
			if cfg.StoreDriver == "sqlite" {
				db, err = NewSQLite(cfg.SQLitePath)
			} else {
				db, err = NewDatabase(cfg.DatabaseURL)
			}
			if err != nil {
				return nil, nil, err
			}
			sqlDB, err := db.DB()
			if err != nil {
				return nil, nil, err
			}
			kv, err = repository.NewSQLKV(db)
			return kv, sqlDB.Close, err
		}
		kv, cerrar, err := open()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", cfg.StoreDriver, err)
		}
		s.KV = kv
		s.cerrar = append(s.cerrar, cerrar)

		// Redis stays optional for the job queue on SQL backends
		if cfg.RedisURL != "" && cfg.StoreDriver == "postgres" {
			if rdb, err := NewRedis(ctx, cfg.RedisURL); err == nil {
				s.Redis = rdb
				s.cerrar = append(s.cerrar, rdb.Close)
			} else {
				log.Warn().Err(err).Msg("store: redis no disponible, los comprobantes se generan en línea")
			}
		}

	case "memory":
		s.KV = repository.NewMemoryKV(cfg.StoreMaxBytes)

	default:
		return nil, fmt.Errorf("STORE_DRIVER desconocido: %q", cfg.StoreDriver)
	}
	return s, nil
}
