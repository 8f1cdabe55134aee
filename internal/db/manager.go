// Package db manages a single SQL Server connection: ODBC driver selection,
// connect/retarget/disconnect, queries, statements and SQL script files.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultConnectTimeout bounds each connect attempt.
const DefaultConnectTimeout = 5 * time.Second

// Manager owns at most one live connection to SQL Server. All methods are
// safe for concurrent use; calls are serialized. Callers must Close it.
type Manager struct {
	mu       sync.Mutex
	settings Settings
	db       *sql.DB
	conn     *sql.Conn

	catalog        Catalog
	open           OpenFunc
	transport      string
	connectTimeout time.Duration
	sqlDir         string
	log            zerolog.Logger
	closed         bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithCatalog sets the ODBC driver catalog. Defaults to DefaultCatalog().
func WithCatalog(c Catalog) Option {
	return func(m *Manager) { m.catalog = c }
}

// WithOpener replaces the function that opens the database.
func WithOpener(open OpenFunc) Option {
	return func(m *Manager) { m.open = open }
}

// WithTransport selects TransportODBC (default) or TransportNative.
func WithTransport(name string) Option {
	return func(m *Manager) { m.transport = name }
}

// WithConnectTimeout bounds each connect attempt.
func WithConnectTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.connectTimeout = d
		}
	}
}

// WithSQLDir sets the directory relative SQL file paths resolve against.
func WithSQLDir(dir string) Option {
	return func(m *Manager) { m.sqlDir = dir }
}

// WithLogger sets the logger. Defaults to the global zerolog logger.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// New picks a driver, connects and returns the Manager. It fails with a
// *DriverNotFoundError when no supported ODBC driver is installed and with a
// *ConnectionError when the first connect attempt fails.
func New(ctx context.Context, s Settings, opts ...Option) (*Manager, error) {
	m := &Manager{
		settings:       s,
		transport:      TransportODBC,
		connectTimeout: DefaultConnectTimeout,
		log:            log.Logger,
	}
	for _, opt := range opts {
		opt(m)
	}

	switch m.transport {
	case TransportODBC:
		if m.catalog == nil {
			m.catalog = DefaultCatalog()
		}
		available, err := m.catalog.Drivers()
		if err != nil {
			return nil, fmt.Errorf("list odbc drivers: %w", err)
		}
		driver, err := PickDriver(available)
		if err != nil {
			return nil, err
		}
		m.settings.DriverName = driver
		if m.open == nil {
			m.open = OpenODBC
		}
	case TransportNative:
		m.settings.DriverName = NativeDriverName
		if m.open == nil {
			m.open = OpenNative
		}
	default:
		return nil, fmt.Errorf("unsupported transport %q", m.transport)
	}

	if m.connect(ctx) == nil {
		return nil, &ConnectionError{Op: "connect", Host: m.settings.Host, Database: m.settings.Database}
	}
	return m, nil
}

// Settings returns the current connection settings.
func (m *Manager) Settings() Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings
}

// DriverName returns the driver chosen at construction.
func (m *Manager) DriverName() string {
	return m.Settings().DriverName
}

// Connect opens a connection with the current settings, replacing the held
// one. It returns nil when the attempt fails or the Manager is closed; the
// cause is logged.
func (m *Manager) Connect(ctx context.Context) *sql.Conn {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connect(ctx)
}

func (m *Manager) connect(ctx context.Context) *sql.Conn {
	if m.closed {
		m.log.Warn().Msg("Manager is closed; not connecting")
		return nil
	}
	if m.conn != nil {
		m.disconnect()
	}
	m.log.Info().
		Str("host", m.settings.Host).
		Str("database", m.settings.Database).
		Str("driver", m.settings.DriverName).
		Bool("trusted", m.settings.Trusted).
		Bool("encrypt", m.settings.Encrypt).
		Bool("trust_server_cert", m.settings.TrustServerCert).
		Msg("Connecting to SQL Server")

	db, err := m.open(m.settings)
	if err != nil {
		m.log.Error().Err(err).Msg("Connection failed")
		return nil
	}
	// One logical connection; the pool must not grow behind our back.
	db.SetMaxOpenConns(1)

	conn, err := m.dial(ctx, db)
	if err != nil {
		m.log.Error().Err(err).Dur("timeout", m.connectTimeout).Msg("Connection failed")
		return nil
	}

	m.db, m.conn = db, conn
	m.log.Info().Msg("Connection established")
	return conn
}

type dialResult struct {
	conn *sql.Conn
	err  error
}

// dial takes one connection from db and pings it, giving up after the
// connect timeout even when the driver ignores the context (the ODBC driver
// opens synchronously). A connection that arrives after the deadline is
// closed together with db. On error db is always released.
func (m *Manager) dial(ctx context.Context, db *sql.DB) (*sql.Conn, error) {
	cctx, cancel := context.WithTimeout(ctx, m.connectTimeout)
	defer cancel()

	done := make(chan dialResult, 1)
	go func() {
		conn, err := db.Conn(cctx)
		if err == nil {
			if err = conn.PingContext(cctx); err != nil {
				conn.Close()
				conn = nil
			}
		}
		done <- dialResult{conn: conn, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			db.Close()
			return nil, r.err
		}
		return r.conn, nil
	case <-cctx.Done():
		go func() {
			r := <-done
			if r.conn != nil {
				r.conn.Close()
			}
			db.Close()
		}()
		return nil, fmt.Errorf("connect: %w", cctx.Err())
	}
}

// IsConnected reports whether a live connection is held.
func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn != nil
}

// Disconnect closes the held connection, if any. Close errors are logged and
// the handle is always released.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disconnect()
}

func (m *Manager) disconnect() {
	if m.conn == nil {
		return
	}
	conn, db := m.conn, m.db
	m.conn, m.db = nil, nil

	err := conn.Close()
	if dbErr := db.Close(); err == nil {
		err = dbErr
	}
	if err != nil {
		m.log.Warn().Err(err).Msg("Error while closing the connection")
		return
	}
	m.log.Info().Msg("Database connection closed")
}

// Target overrides the database and/or host of a Manager. Empty fields keep
// the current value.
type Target struct {
	Database string
	Host     string
}

// Retarget points the Manager at another database and/or host and
// reconnects. An empty target changes nothing and returns the current
// connection. A failed reconnect leaves the Manager disconnected and returns
// a *ConnectionError, as does any call after Close.
func (m *Manager) Retarget(ctx context.Context, t Target) (*sql.Conn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, &ConnectionError{Op: "retarget", Host: m.settings.Host, Database: m.settings.Database}
	}
	if t.Database == "" && t.Host == "" {
		m.log.Info().Msg("No changes provided")
		return m.conn, nil
	}
	ev := m.log.Info()
	if t.Database != "" {
		m.settings.Database = t.Database
		ev = ev.Str("database", t.Database)
	}
	if t.Host != "" {
		m.settings.Host = t.Host
		ev = ev.Str("host", t.Host)
	}
	ev.Msg("New target")

	m.disconnect()
	conn := m.connect(ctx)
	if conn == nil {
		return nil, &ConnectionError{Op: "retarget", Host: m.settings.Host, Database: m.settings.Database}
	}
	return conn, nil
}

// EnsureConnected makes one connect attempt when no connection is held.
// Failures are only logged; the next query reports them.
func (m *Manager) EnsureConnected(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureConnected(ctx)
}

func (m *Manager) ensureConnected(ctx context.Context) {
	if m.conn == nil {
		m.connect(ctx)
	}
}

// Query runs a statement that returns rows. On failure the error is logged
// and returned together with an empty, non-nil Table, so callers that only
// look at the Table see "no rows".
func (m *Manager) Query(ctx context.Context, query string, params ...any) (*Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.query(ctx, query, params)
	if err != nil {
		m.log.Error().Err(err).Str("sql", query).Msg("Error while executing SELECT query")
		return &Table{}, &ExecutionError{Op: "query", SQL: query, Err: err}
	}
	return t, nil
}

func (m *Manager) query(ctx context.Context, query string, params []any) (*Table, error) {
	m.ensureConnected(ctx)
	if m.conn == nil {
		return nil, ErrConnection
	}
	rows, err := m.conn.QueryContext(ctx, m.bind(query), params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTable(rows)
}

// Execute runs a statement in its own transaction and commits it. On
// failure the transaction is rolled back, the error logged and returned.
func (m *Manager) Execute(ctx context.Context, query string, params ...any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.execute(ctx, query, params); err != nil {
		m.log.Error().Err(err).Str("sql", query).Msg("Error while executing query")
		return &ExecutionError{Op: "execute", SQL: query, Err: err}
	}
	return nil
}

func (m *Manager) execute(ctx context.Context, query string, params []any) error {
	return m.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, m.bind(query), params...)
		return err
	})
}

// ExecuteSQLFile runs every statement of a SQL script in one transaction.
// Relative paths resolve against the SQL directory. Result rows of each
// statement are logged. The first failing statement rolls back the whole
// file.
func (m *Manager) ExecuteSQLFile(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	path = m.resolve(path)
	if err := m.executeFile(ctx, path); err != nil {
		m.log.Error().Err(err).Str("file", path).Msg("Error while executing SQL file")
		return &ExecutionError{Op: "execute file " + path, Err: err}
	}
	m.log.Info().Str("file", path).Msg("SQL file executed successfully")
	return nil
}

func (m *Manager) executeFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	statements := SplitStatements(string(data))
	return m.inTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range statements {
			m.log.Info().Str("sql", stmt).Msg("Executing")
			if err := m.runLogged(ctx, tx, stmt); err != nil {
				return err
			}
		}
		return nil
	})
}

// runLogged executes stmt and logs any rows it returns. Statements without a
// result set report no columns.
func (m *Manager) runLogged(ctx context.Context, tx *sql.Tx, stmt string) error {
	rows, err := tx.QueryContext(ctx, m.bind(stmt))
	if err != nil {
		return err
	}
	defer rows.Close()
	t, err := scanTable(rows)
	if err != nil {
		return err
	}
	for _, rec := range t.Records() {
		m.log.Info().Fields(rec).Msg("Row")
	}
	return nil
}

// inTx runs fn in a transaction on the held connection, committing on
// success and rolling back on error.
func (m *Manager) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	m.ensureConnected(ctx)
	if m.conn == nil {
		return ErrConnection
	}
	tx, err := m.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			m.log.Warn().Err(rbErr).Msg("Rollback failed")
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// CurrentConnectionInfo returns the server and database names the
// connection is using, rendered as a text table.
func (m *Manager) CurrentConnectionInfo(ctx context.Context) (string, error) {
	t, err := m.Query(ctx, "SELECT @@SERVERNAME AS ServerName, DB_NAME() AS CurrentDatabase")
	if err != nil {
		return "", err
	}
	return t.String(), nil
}

// Close disconnects. It is safe to call more than once.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	m.log.Debug().Msg("Closing database connection")
	m.disconnect()
	return nil
}

func (m *Manager) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(m.sqlDir, path)
}

// bind adapts ? placeholders to the transport.
func (m *Manager) bind(query string) string {
	if m.transport == TransportNative {
		return rebindOrdinal(query)
	}
	return query
}
