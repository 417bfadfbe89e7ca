package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mbeoliero/kit/log"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mbeoliero/uq/internal/config"
	"github.com/mbeoliero/uq/internal/entity"
)

// Repositories bundles the stores of the server over one MySQL pool and one redis client
type Repositories struct {
	DB    *gorm.DB
	Redis *redis.Client

	User    *UserRepo
	Contact *ContactRepo
	Message *MessageRepo
	Uq      *UqRepo
}

// NewRepositories opens both backends; neither is contacted until Ping
func NewRepositories(cfg *config.Config) (*Repositories, error) {
	db, err := openMySQL(&cfg.MySQL, cfg.Server.Mode == "debug")
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	return &Repositories{
		DB:      db,
		Redis:   rdb,
		User:    NewUserRepo(db, rdb),
		Contact: NewContactRepo(db, rdb),
		Message: NewMessageRepo(db, rdb),
		Uq:      NewUqRepo(db, rdb),
	}, nil
}

func openMySQL(cfg *config.MySQLConfig, debug bool) (*gorm.DB, error) {
	level := logger.Warn
	if debug {
		level = logger.Info
	}

	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true, // duplicate keys surface as gorm.ErrDuplicatedKey
	})
	if err != nil {
		return nil, err
	}

	pool, err := db.DB()
	if err != nil {
		return nil, err
	}
	pool.SetMaxOpenConns(cfg.MaxOpenConns)
	pool.SetMaxIdleConns(cfg.MaxIdleConns)
	pool.SetConnMaxLifetime(time.Hour)
	pool.SetConnMaxIdleTime(10 * time.Minute)
	return db, nil
}

// Ping fails when either backend is unreachable
func (r *Repositories) Ping(ctx context.Context) error {
	pool, err := r.DB.DB()
	if err != nil {
		return err
	}
	if err := pool.PingContext(ctx); err != nil {
		return fmt.Errorf("mysql ping: %w", err)
	}
	if err := r.Redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Migrate creates or alters the tables of every entity
func (r *Repositories) Migrate(ctx context.Context) error {
	if err := r.DB.WithContext(ctx).AutoMigrate(entity.All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	log.CtxInfo(ctx, "schema migrated")
	return nil
}

func (r *Repositories) Close() error {
	var errs []error
	if pool, err := r.DB.DB(); err != nil {
		errs = append(errs, err)
	} else {
		errs = append(errs, pool.Close())
	}
	errs = append(errs, r.Redis.Close())
	return errors.Join(errs...)
}
