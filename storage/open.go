package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"storefront-admin/config"
)

// Open builds the backend selected by cfg.Driver, wrapped with the
// configured namespace.
func Open(ctx context.Context, cfg config.StorageConfig) (Storage, error) {
	var (
		s   Storage
		err error
	)
	switch cfg.Driver {
	case config.DriverMemory:
		s = NewMemoryStorage()
	case config.DriverFile:
		s, err = NewFileStorage(cfg.Path)
	case config.DriverPostgres:
		s, err = NewPostgresStorage(ctx, cfg.DSN)
	case config.DriverRedis:
		opts, perr := redisOptions(cfg.DSN)
		if perr != nil {
			return nil, perr
		}
		rdb := redis.NewClient(opts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		s = NewRedisStorage(rdb)
	case config.DriverSQLite:
		db, oerr := gorm.Open(sqlite.Open(cfg.DSN), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
		if oerr != nil {
			return nil, oerr
		}
		s, err = NewGormStorage(db)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", cfg.Driver, err)
	}
	return Namespaced(s, cfg.Namespace), nil
}

// redisOptions accepts either a redis:// URL or a bare host:port address.
func redisOptions(dsn string) (*redis.Options, error) {
	if strings.HasPrefix(dsn, "redis://") || strings.HasPrefix(dsn, "rediss://") {
		return redis.ParseURL(dsn)
	}
	return &redis.Options{Addr: dsn}, nil
}
