// Package storage opens the relational store and bootstraps its schema.
package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"table-session-bot/config"
	"table-session-bot/models"
)

// RequiredTables are the tables the services cannot run without.
var RequiredTables = []string{"users", "tables", "registrations"}

// sqlite waits this long on a locked database before returning SQLITE_BUSY.
const sqliteBusyTimeout = 5 * time.Second

// Open connects to postgres when cfg.DatabaseURL is set, otherwise to the
// sqlite file cfg.DBFile with foreign keys enforced.
func Open(cfg *config.Config, log logrus.FieldLogger) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	}

	if cfg.UsesPostgres() {
		db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
		sqlDB.SetMaxIdleConns(max(cfg.DBMaxOpenConns/2, 1))
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
		log.WithField("backend", "postgres").Info("store connected")
		return db, nil
	}

	return OpenSQLite(cfg.DBFile, gormCfg, log)
}

// OpenSQLite opens an sqlite file. The pool is capped at a single connection:
// sqlite has no row locks, so transactions are serialized by the pool instead.
func OpenSQLite(path string, gormCfg *gorm.Config, log logrus.FieldLogger) (*gorm.DB, error) {
	if gormCfg == nil {
		gormCfg = &gorm.Config{TranslateError: true, Logger: logger.Default.LogMode(logger.Silent)}
	}
	db, err := gorm.Open(sqlite.Open(sqliteDSN(path)), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %s: %w", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	log.WithFields(logrus.Fields{"backend": "sqlite", "file": path}).Info("store connected")
	return db, nil
}

func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)", path, sep, sqliteBusyTimeout.Milliseconds())
}

// Migrate creates the schema if absent. It is safe to run on every start.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.User{}, &models.Table{}, &models.Registration{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// MissingTables returns the required tables that do not exist yet.
func MissingTables(db *gorm.DB) []string {
	var missing []string
	m := db.Migrator()
	for _, name := range RequiredTables {
		if !m.HasTable(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// Close releases the underlying pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
