// connection.go
//
// Macro AI chat service backend
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of macroai.
// macroai is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// macroai is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with macroai.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/localnerve/macroai/data"
	"github.com/localnerve/macroai/internal/logger"
	"github.com/localnerve/macroai/internal/models"
	"github.com/localnerve/macroai/internal/types"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Pool tuning and bootstrap policy
const (
	ConnectTimeout       = 5 * time.Second
	IdleTimeout          = 30 * time.Second
	MaxPoolSize          = 20
	MaxConnectAttempts   = 5
	InitialRetryDelay    = 1000 * time.Millisecond
	DefaultWatchInterval = 30 * time.Second
)

const opConnect = "database - connect"

// Opener opens an ORM handle for a connection string.
type Opener func(dsn string) (*gorm.DB, error)

// Options control the pool bootstrap. Zero fields take the defaults above.
type Options struct {
	Open          Opener
	Sleep         func(ctx context.Context, d time.Duration) error
	MaxAttempts   int
	InitialDelay  time.Duration
	WatchInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.Open == nil {
		o.Open = OpenPostgres
	}
	if o.Sleep == nil {
		o.Sleep = sleepContext
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = MaxConnectAttempts
	}
	if o.InitialDelay <= 0 {
		o.InitialDelay = InitialRetryDelay
	}
	if o.WatchInterval <= 0 {
		o.WatchInterval = DefaultWatchInterval
	}
	return o
}

// Pool is the validated, shared connection pool and the ORM handle bound to it.
type Pool struct {
	DB  *gorm.DB
	SQL *sql.DB

	stop context.CancelFunc
	wg   sync.WaitGroup
	once sync.Once
}

// OpenPostgres opens a GORM handle on the Postgres driver.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(withConnectTimeout(dsn, ConnectTimeout)), &gorm.Config{
		Logger:               gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError:       true,
		DisableAutomaticPing: true,
	})
}

// Connect establishes the pool with the default bootstrap policy.
func Connect(ctx context.Context, dsn string, log *logger.Logger) (*Pool, error) {
	return ConnectWithOptions(ctx, dsn, log, Options{})
}

// ConnectWithOptions opens and validates the pool, retrying with
// exponential backoff. After the final failed attempt it returns a
// Database error and does not wait again.
func ConnectWithOptions(ctx context.Context, dsn string, log *logger.Logger, opts Options) (*Pool, error) {
	opts = opts.withDefaults()
	delay := opts.InitialDelay

	var lastErr error
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		db, sqlDB, err := openAndValidate(ctx, dsn, opts.Open)
		if err == nil {
			log.Info("Connected to database", "attempt", attempt, "max_pool_size", MaxPoolSize)
			pool := &Pool{DB: db, SQL: sqlDB}
			pool.watch(opts.WatchInterval, log)
			return pool, nil
		}

		lastErr = err
		log.Debug("Database connection attempt failed", "attempt", attempt, "max_attempts", opts.MaxAttempts, "error", err)
		if attempt == opts.MaxAttempts {
			break
		}

		if err := opts.Sleep(ctx, delay); err != nil {
			return nil, types.NewDatabaseError(opConnect, "database connection cancelled", err)
		}
		delay *= 2
	}

	log.Error("Failed to connect to database", "attempts", opts.MaxAttempts, "error", lastErr)
	return nil, types.NewDatabaseError(opConnect,
		fmt.Sprintf("failed to connect to database after %d attempts", opts.MaxAttempts), lastErr)
}

// openAndValidate opens a pool, applies tuning, and checks out one
// connection to prove the database is reachable.
func openAndValidate(ctx context.Context, dsn string, open Opener) (*gorm.DB, *sql.DB, error) {
	db, err := open(dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get underlying SQL DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(MaxPoolSize)
	sqlDB.SetMaxIdleConns(MaxPoolSize / 2)
	sqlDB.SetConnMaxIdleTime(IdleTimeout)

	connectCtx, cancel := context.WithTimeout(ctx, ConnectTimeout)
	defer cancel()

	conn, err := sqlDB.Conn(connectCtx)
	if err != nil {
		_ = sqlDB.Close()
		return nil, nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	if err := conn.Close(); err != nil {
		_ = sqlDB.Close()
		return nil, nil, fmt.Errorf("failed to release connection: %w", err)
	}

	return db, sqlDB, nil
}

// watch logs asynchronous pool errors. It never reconnects and never exits
// the process.
func (p *Pool) watch(interval time.Duration, log *logger.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	p.stop = cancel

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				pingCtx, pingCancel := context.WithTimeout(ctx, ConnectTimeout)
				if err := p.SQL.PingContext(pingCtx); err != nil && ctx.Err() == nil {
					log.Error("Unexpected database pool error", "error", err)
				}
				pingCancel()
			}
		}
	}()
}

// AutoMigrate runs the init scripts and automatic migrations for all models
func AutoMigrate(db *gorm.DB) error {
	if db.Dialector.Name() == "postgres" {
		if err := db.Exec(data.InitdbPostgresExtensions).Error; err != nil {
			return fmt.Errorf("failed to run init script: %w", err)
		}
	}
	return db.AutoMigrate(
		&models.User{},
		&models.Chat{},
		&models.ChatMessage{},
		&models.ChatVector{},
	)
}

// Close stops the pool watcher and closes the pool
func Close(pool *Pool) error {
	if pool == nil {
		return nil
	}
	var err error
	pool.once.Do(func() {
		if pool.stop != nil {
			pool.stop()
		}
		pool.wg.Wait()
		err = pool.SQL.Close()
	})
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// withConnectTimeout adds connect_timeout to a URL or keyword/value DSN
// unless one is already present.
func withConnectTimeout(dsn string, timeout time.Duration) string {
	if strings.Contains(dsn, "connect_timeout") {
		return dsn
	}
	seconds := strconv.Itoa(int(timeout / time.Second))
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return dsn
		}
		q := u.Query()
		q.Set("connect_timeout", seconds)
		u.RawQuery = q.Encode()
		return u.String()
	}
	return strings.TrimSpace(dsn + " connect_timeout=" + seconds)
}
