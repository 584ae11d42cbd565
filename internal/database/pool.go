// Package database owns the Postgres connection pool shared by every request.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
)

// DefaultMaxConns is the number of connections checked out concurrently.
// Callers beyond it wait for a free connection instead of failing.
const DefaultMaxConns = 10

// Config holds connection settings for the performances database.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	// TLSSkipVerify accepts self-signed certificates from managed databases.
	// It is ignored for verify-ca and verify-full.
	TLSSkipVerify bool
	MaxConns      int
}

// DSN renders the config as a postgres URL.
func (c Config) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Name,
	}
	q := url.Values{}
	if c.SSLMode != "" {
		q.Set("sslmode", c.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// logFields writes the config without the password.
func (c Config) logFields(e *zerolog.Event) *zerolog.Event {
	return e.
		Str("host", c.Host).
		Int("port", c.Port).
		Str("user", c.User).
		Str("database", c.Name).
		Str("sslmode", c.SSLMode)
}

// Pool wraps a bounded *sql.DB with an explicit probe, watch and close lifecycle.
type Pool struct {
	db      *sql.DB
	cfg     Config
	logger  zerolog.Logger
	healthy atomic.Bool
}

// ConnConfig parses the DSN and relaxes certificate checks when asked to.
// Modes that request verification always keep it.
func (c Config) ConnConfig() (*pgx.ConnConfig, error) {
	connCfg, err := pgx.ParseConfig(c.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}

	if c.TLSSkipVerify && !VerifiesCertificate(c.SSLMode) {
		if connCfg.TLSConfig != nil {
			connCfg.TLSConfig.InsecureSkipVerify = true
		}
		for _, fb := range connCfg.Fallbacks {
			if fb.TLSConfig != nil {
				fb.TLSConfig.InsecureSkipVerify = true
			}
		}
	}
	return connCfg, nil
}

// VerifiesCertificate reports whether sslmode asks for a verified server certificate.
func VerifiesCertificate(sslMode string) bool {
	return sslMode == "verify-ca" || sslMode == "verify-full"
}

// Open builds a pgx-backed pool from cfg. No connection is made until Probe
// or the first query.
func Open(cfg Config, logger zerolog.Logger) (*Pool, error) {
	connCfg, err := cfg.ConnConfig()
	if err != nil {
		return nil, err
	}

	return New(stdlib.OpenDB(*connCfg), cfg, logger), nil
}

// New wraps an already opened handle and applies the pool limits.
func New(db *sql.DB, cfg Config, logger zerolog.Logger) *Pool {
	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = DefaultMaxConns
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)
	db.SetConnMaxLifetime(30 * time.Minute)

	cfg.MaxConns = maxConns
	return &Pool{db: db, cfg: cfg, logger: logger}
}

// DB exposes the underlying handle for the store.
func (p *Pool) DB() *sql.DB {
	return p.db
}

// Healthy reports the outcome of the latest probe or watch ping.
func (p *Pool) Healthy() bool {
	return p.healthy.Load()
}

// Stats returns the database/sql pool statistics.
func (p *Pool) Stats() sql.DBStats {
	return p.db.Stats()
}

// Probe checks out one connection, pings it and hands it back. The result is
// logged; a failure is returned but the pool stays usable.
func (p *Pool) Probe(ctx context.Context) error {
	conn, err := p.db.Conn(ctx)
	if err == nil {
		err = conn.PingContext(ctx)
		if closeErr := conn.Close(); err == nil {
			err = closeErr
		}
	}

	if err != nil {
		p.healthy.Store(false)
		p.cfg.logFields(p.logger.Error().Err(err)).Msg("database connection failed")
		return fmt.Errorf("probe database: %w", err)
	}

	p.healthy.Store(true)
	p.cfg.logFields(p.logger.Info()).Int("max_conns", p.cfg.MaxConns).Msg("database connection established")
	return nil
}

// Watch pings the database every interval until ctx is done. Connection loss
// and recovery are logged; nothing is restarted since database/sql redials on
// the next checkout.
func (p *Pool) Watch(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.check(ctx, interval)
		}
	}
}

func (p *Pool) check(ctx context.Context, timeout time.Duration) {
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := p.db.PingContext(pingCtx)
	if errors.Is(ctx.Err(), context.Canceled) {
		return
	}

	wasHealthy := p.healthy.Load()
	switch {
	case err != nil && wasHealthy:
		p.healthy.Store(false)
		p.logger.Error().Err(err).Msg("database connection lost")
	case err != nil:
		p.logger.Warn().Err(err).Msg("database still unreachable")
	case !wasHealthy:
		p.healthy.Store(true)
		p.logger.Info().Msg("database connection restored")
	}
}

// Close waits for checked-out connections to be returned and closes the pool.
func (p *Pool) Close() error {
	p.healthy.Store(false)
	if err := p.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
