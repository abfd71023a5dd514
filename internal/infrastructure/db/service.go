package db

import (
	"embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ArkLabsHQ/lnwatch/internal/core/domain"
	"github.com/ArkLabsHQ/lnwatch/internal/core/ports"
	badgerdb "github.com/ArkLabsHQ/lnwatch/internal/infrastructure/db/badger"
	boltdb "github.com/ArkLabsHQ/lnwatch/internal/infrastructure/db/bolt"
	pgdb "github.com/ArkLabsHQ/lnwatch/internal/infrastructure/db/postgres"
	sqlitedb "github.com/ArkLabsHQ/lnwatch/internal/infrastructure/db/sqlite"
	"github.com/dgraph-io/badger/v4"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	pgmigrate "github.com/golang-migrate/migrate/v4/database/postgres"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

const (
	boltDbFile   = "lnwatch.bolt"
	sqliteDbFile = "lnwatch.db"
)

var (
	//go:embed sqlite/migration/*
	sqliteMigrations embed.FS
	//go:embed postgres/migration/*
	pgMigrations embed.FS

	allowedTypes = strings.Join([]string{"badger", "bolt", "sqlite", "postgres"}, ",")
)

type ServiceConfig struct {
	DbType   string
	DbConfig []any
}

type service struct {
	eventRepo   domain.EventRepository
	paymentRepo domain.PaymentRepository
	closeFn     func()
}

// NewService opens the journal repositories on the configured backend.
// DbConfig is [baseDir, badger.Logger] for badger, [baseDir] for bolt and
// sqlite, [dsn] for postgres.
func NewService(config ServiceConfig) (ports.RepoManager, error) {
	var (
		eventRepo   domain.EventRepository
		paymentRepo domain.PaymentRepository
		closeFn     func()
		err         error
	)

	switch config.DbType {
	case "badger":
		if len(config.DbConfig) != 2 {
			return nil, fmt.Errorf("badger db config must have 2 elements, got %d", len(config.DbConfig))
		}
		baseDir, ok := config.DbConfig[0].(string)
		if !ok {
			return nil, fmt.Errorf("invalid base directory")
		}
		var logger badger.Logger
		if config.DbConfig[1] != nil {
			logger, ok = config.DbConfig[1].(badger.Logger)
			if !ok {
				return nil, fmt.Errorf("invalid logger")
			}
		}
		eventRepo, err = badgerdb.NewEventRepository(baseDir, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open event db: %s", err)
		}
		paymentRepo, err = badgerdb.NewPaymentRepository(baseDir, logger)
		if err != nil {
			eventRepo.Close()
			return nil, fmt.Errorf("failed to open payment db: %s", err)
		}
		closeFn = func() {
			eventRepo.Close()
			paymentRepo.Close()
		}

	case "bolt":
		baseDir, err := singleDirConfig(config)
		if err != nil {
			return nil, err
		}
		db, err := boltdb.OpenDb(filepath.Join(baseDir, boltDbFile))
		if err != nil {
			return nil, fmt.Errorf("failed to open bolt db: %s", err)
		}
		// bolt repositories never fail on a non-nil db
		eventRepo, _ = boltdb.NewEventRepository(db)
		paymentRepo, _ = boltdb.NewPaymentRepository(db)
		closeFn = func() {
			// nolint:all
			db.Close()
		}

	case "sqlite":
		baseDir, err := singleDirConfig(config)
		if err != nil {
			return nil, err
		}
		db, err := sqlitedb.OpenDb(filepath.Join(baseDir, sqliteDbFile))
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite db: %s", err)
		}

		driver, err := sqlitemigrate.WithInstance(db, &sqlitemigrate.Config{})
		if err != nil {
			// nolint:all
			db.Close()
			return nil, fmt.Errorf("failed to init driver: %s", err)
		}
		if err := runMigrations(sqliteMigrations, "sqlite/migration", driver); err != nil {
			// nolint:all
			db.Close()
			return nil, err
		}

		eventRepo, _ = sqlitedb.NewEventRepository(db)
		paymentRepo, _ = sqlitedb.NewPaymentRepository(db)
		closeFn = func() {
			// nolint:all
			db.Close()
		}

	case "postgres":
		if len(config.DbConfig) != 1 {
			return nil, fmt.Errorf("postgres db config must have 1 element, got %d", len(config.DbConfig))
		}
		dsn, ok := config.DbConfig[0].(string)
		if !ok || dsn == "" {
			return nil, fmt.Errorf("invalid dsn")
		}
		db, err := pgdb.OpenDb(dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres db: %s", err)
		}

		driver, err := pgmigrate.WithInstance(db.DB, &pgmigrate.Config{})
		if err != nil {
			// nolint:all
			db.Close()
			return nil, fmt.Errorf("failed to init driver: %s", err)
		}
		if err := runMigrations(pgMigrations, "postgres/migration", driver); err != nil {
			// nolint:all
			db.Close()
			return nil, err
		}

		eventRepo, _ = pgdb.NewEventRepository(db)
		paymentRepo, _ = pgdb.NewPaymentRepository(db)
		closeFn = func() {
			// nolint:all
			db.Close()
		}

	default:
		return nil, fmt.Errorf("unsupported db type %s, please select one of %s", config.DbType, allowedTypes)
	}

	return &service{
		eventRepo:   eventRepo,
		paymentRepo: paymentRepo,
		closeFn:     closeFn,
	}, nil
}

func (s *service) Events() domain.EventRepository {
	return s.eventRepo
}

func (s *service) Payments() domain.PaymentRepository {
	return s.paymentRepo
}

func (s *service) Close() {
	s.closeFn()
}

func runMigrations(fsys embed.FS, dir string, driver database.Driver) error {
	source, err := iofs.New(fsys, dir)
	if err != nil {
		return fmt.Errorf("failed to embed migrations: %s", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "lnwatchdb", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %s", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %s", err)
	}
	return nil
}

func singleDirConfig(config ServiceConfig) (string, error) {
	if len(config.DbConfig) != 1 {
		return "", fmt.Errorf(
			"%s db config must have 1 element, got %d", config.DbType, len(config.DbConfig),
		)
	}
	baseDir, ok := config.DbConfig[0].(string)
	if !ok || baseDir == "" {
		return "", fmt.Errorf("invalid base directory")
	}
	return baseDir, nil
}
