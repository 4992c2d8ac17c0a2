package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"ecospectre-be/internal/pkg/logger"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var ErrNotConfigured = errors.New("durable store not configured")

const defaultPingTimeout = 2 * time.Second

// Monitor owns the durable connection and tracks whether it is currently usable.
// The server starts even when Postgres is down; the monitor keeps retrying in the background.
type Monitor struct {
	dsn      string
	interval time.Duration
	open     func(dsn string) (*gorm.DB, error)
	logger   logger.ILogger

	mu        sync.RWMutex
	db        *gorm.DB
	reachable atomic.Bool
}

func NewMonitor(dsn string, interval time.Duration, log logger.ILogger) *Monitor {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Monitor{
		dsn:      dsn,
		interval: interval,
		open:     NewGormDBFromDSN,
		logger:   log,
	}
}

// NewStaticMonitor wraps an already opened connection. Used by tools and integration tests.
func NewStaticMonitor(db *gorm.DB) *Monitor {
	m := &Monitor{db: db, logger: logger.NewNopLogger()}
	m.reachable.Store(db != nil)
	return m
}

func (m *Monitor) DB() *gorm.DB {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.db
}

// Reachable reports the result of the latest probe.
func (m *Monitor) Reachable() bool {
	return m.reachable.Load() && m.DB() != nil
}

// ReportError marks the store unreachable when err is a lost or refused connection,
// so later requests fall back before the next probe. Query errors are ignored.
func (m *Monitor) ReportError(err error) bool {
	if !IsConnectionError(err) {
		return false
	}
	m.setReachable(false, err)
	return true
}

func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) || pgconn.Timeout(err) {
		return true
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// Check opens the connection if needed, pings it and records the outcome.
func (m *Monitor) Check(ctx context.Context) bool {
	db := m.DB()
	if db == nil {
		if m.dsn == "" || m.open == nil {
			m.reachable.Store(false)
			return false
		}
		opened, err := m.open(m.dsn)
		if err != nil {
			m.setReachable(false, err)
			return false
		}
		m.mu.Lock()
		m.db = opened
		m.mu.Unlock()
		db = opened
	}

	sqlDB, err := db.DB()
	if err != nil {
		m.setReachable(false, err)
		return false
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()
	err = sqlDB.PingContext(pingCtx)
	m.setReachable(err == nil, err)
	return err == nil
}

func (m *Monitor) setReachable(ok bool, cause error) {
	was := m.reachable.Swap(ok)
	if was == ok {
		return
	}
	if ok {
		m.logger.Info("Database", "Durable store reachable", nil)
	} else {
		m.logger.Warn("Database", "Durable store unreachable, falling back to transient storage", map[string]interface{}{"error": cause})
	}
}

// Run probes on an interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

func (m *Monitor) Close() error {
	db := m.DB()
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
