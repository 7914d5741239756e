package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	"social-im/internal/pkg/mtrace"

	gomysql "github.com/go-sql-driver/mysql"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type DriverType string

const (
	Postgres DriverType = "postgres"
	MySQL    DriverType = "mysql"
	// SQLite is only meant for local development and tests.
	SQLite DriverType = "sqlite"
)

type Config struct {
	Driver          DriverType `json:"driver" yaml:"driver"`
	Host            string     `json:"host" yaml:"host"`
	Port            string     `json:"port" yaml:"port"`
	User            string     `json:"user" yaml:"user"`
	Password        string     `json:"password" yaml:"password"`
	DbName          string     `json:"db_name" yaml:"db_name"`
	Timezone        string     `json:"timezone" yaml:"timezone"`
	MaxOpenConns    int        `json:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns    int        `json:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifeTime int        `json:"conn_max_life_time" yaml:"conn_max_life_time"`
}

type DB struct {
	*gorm.DB
	sqlDB *sql.DB
}

func NewDB(cfg Config) *DB {
	var (
		db  *gorm.DB
		err error
	)
	gormCfg := &gorm.Config{TranslateError: true}
	switch cfg.Driver {
	case Postgres:
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=%s",
			cfg.Host, cfg.User, cfg.Password, cfg.DbName, cfg.Port, cfg.Timezone)
		db, err = gorm.Open(postgres.Open(dsn), gormCfg)
	case MySQL:
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=%s",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DbName, url.QueryEscape(cfg.Timezone))
		db, err = gorm.Open(mysql.Open(dsn), gormCfg)
	case SQLite:
		db, err = gorm.Open(sqlite.Open(cfg.DbName), gormCfg)
	default:
		panic("unsupported driver")
	}
	if err != nil {
		panic(err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		panic(err)
	}
	maxOpenConns := cfg.MaxOpenConns
	if maxOpenConns == 0 {
		maxOpenConns = 10
	}
	maxIdleConns := cfg.MaxIdleConns
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	connMaxLifeTime := cfg.ConnMaxLifeTime
	if cfg.ConnMaxLifeTime == 0 {
		connMaxLifeTime = 60000
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(connMaxLifeTime) * time.Millisecond)
	return &DB{DB: db, sqlDB: sqlDB}
}

func (db *DB) Debug() *DB {
	db.DB = db.DB.Debug()
	return db
}

func (db *DB) Close() error {
	return db.sqlDB.Close()
}

func (db *DB) Wrap(ctx context.Context, name string, f func(tx *gorm.DB) *gorm.DB) error {
	_, span := mtrace.StartSpan(ctx, name, trace.WithSpanKind(trace.SpanKindInternal))
	defer mtrace.EndSpan(span)
	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		return f(tx)
	})
	stmt := f(db.WithContext(ctx))
	mtrace.SetAttr(span, mtrace.SQLKey, sql)
	if stmt.Error != nil {
		mtrace.SetAttr(span, mtrace.SQLError, stmt.Error.Error())
	}
	return stmt.Error
}

// Session resolves the handle repository methods should run on: the caller's
// transaction when one is threaded through, the pooled connection otherwise.
func (db *DB) Session(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}

const (
	txMaxAttempts = 3
	txBackoff     = 100 * time.Millisecond
)

// TransactionWithRetry runs fn in a transaction and retries it on transient
// transaction failures (deadlock, lock wait timeout) with a bounded backoff.
// All store mutations inside fn must use the given handle.
func (db *DB) TransactionWithRetry(ctx context.Context, fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 1; ; attempt++ {
		err = db.WithContext(ctx).Transaction(fn)
		if err == nil || !IsTransientTransactionError(err) || attempt >= txMaxAttempts {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * txBackoff):
		}
	}
}

// IsDuplicateKeyError reports whether err is a unique/primary key constraint
// violation. gorm translates driver errors when TranslateError is on.
func IsDuplicateKeyError(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func IsTransientTransactionError(err error) bool {
	var mysqlErr *gomysql.MySQLError
	if errors.As(err, &mysqlErr) {
		// 1205: lock wait timeout, 1213: deadlock victim
		return mysqlErr.Number == 1205 || mysqlErr.Number == 1213
	}
	return false
}
