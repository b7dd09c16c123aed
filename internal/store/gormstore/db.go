package gormstore

import (
	"fmt"
	"time"

	mysqldrv "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tweetarchive/internal/config"
	"tweetarchive/internal/logging"
	"tweetarchive/internal/tweet"
)

// Open connects to the configured Postgres or MySQL database.
func Open(cfg config.DatabaseConfig, ts tweet.TimeSettings, debug bool) (*gorm.DB, error) {
	dialect, err := cfg.Dialect()
	if err != nil {
		return nil, err
	}
	dialector, err := newDialector(dialect, cfg.DSN, ts)
	if err != nil {
		return nil, err
	}

	logging.Info("db_connect", map[string]any{"dialect": string(dialect)})
	db, err := gorm.Open(dialector, newConfig(debug))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to DB: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying *sql.DB: %w", err)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	return db, nil
}

func newConfig(debug bool) *gorm.Config {
	level, printLevel := logger.Error, "error"
	if debug {
		level, printLevel = logger.Info, "debug"
	}
	return &gorm.Config{
		Logger: logger.New(logging.Default().Printer(printLevel), logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		SkipDefaultTransaction: true,
	}
}

func newDialector(d config.Dialect, dsn string, ts tweet.TimeSettings) (gorm.Dialector, error) {
	switch d {
	case config.DialectPostgres:
		return postgres.Open(dsn), nil
	case config.DialectMySQL:
		dsn, err := mysqlDSN(dsn, ts)
		if err != nil {
			return nil, err
		}
		return mysql.Open(dsn), nil
	}
	return nil, fmt.Errorf("dialect %s is not served by the ORM store", d)
}

// mysqlDSN forces time.Time scanning and the zone naive stamps are read in.
func mysqlDSN(dsn string, ts tweet.TimeSettings) (string, error) {
	mc, err := mysqldrv.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	mc.ParseTime = true
	mc.Loc = time.UTC
	if ts.UseTZ && ts.Location != nil {
		mc.Loc = ts.Location
	}
	return mc.FormatDSN(), nil
}
