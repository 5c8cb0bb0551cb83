package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const (
	// dirPermissions is the permission mode for a created database directory.
	dirPermissions = 0750

	msPerSecond = 1000

	// connectionTimeout is the timeout for verifying database connectivity.
	connectionTimeout = 5 * time.Second

	connMaxIdleTime = 30 * time.Minute
)

// ErrNotFound is returned when a read-only database file does not exist.
var ErrNotFound = errors.New("database: file not found")

// DB wraps a sql.DB connection to one SQLite file.
type DB struct {
	*sql.DB
	path     string
	readOnly bool
}

// Config contains database options.
type Config struct {
	// Path is the filesystem path to the SQLite database file.
	Path string

	// ReadOnly opens the file with mode=ro. The file must already exist and
	// every write statement fails.
	ReadOnly bool

	// WALMode enables Write-Ahead Logging on writable databases.
	WALMode bool

	// BusyTimeout is the maximum time to wait for a database lock (seconds).
	BusyTimeout int
}

// Table is one entry of sqlite_master.
type Table struct {
	Name string
	SQL  string
}

// Cell is one column of a result row as returned by the driver.
//
// Value holds int64, float64, string, []byte, bool, time.Time or nil.
type Cell struct {
	Column string
	Value  any
}

// Open creates a new database connection with the specified configuration.
//
// Writable databases get their directory created. Read-only databases are
// never created.
//
// Parameters:
//   - cfg: Database configuration
//
// Returns:
//   - *DB: Connected database wrapper
//   - error: ErrNotFound for a missing read-only file, or an open/ping failure
func Open(cfg Config) (*DB, error) {
	connStr := fmt.Sprintf("file:%s?_busy_timeout=%d", cfg.Path, cfg.BusyTimeout*msPerSecond)

	if cfg.ReadOnly {
		if _, err := os.Stat(cfg.Path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s", ErrNotFound, cfg.Path)
			}
			return nil, fmt.Errorf("checking database file: %w", err)
		}
		connStr += "&mode=ro"
	} else {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), dirPermissions); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
		if cfg.WALMode {
			connStr += "&_journal_mode=WAL&_synchronous=NORMAL"
		}
	}

	sqlDB, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	db := &DB{
		DB:       sqlDB,
		path:     cfg.Path,
		readOnly: cfg.ReadOnly,
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		sqlDB.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("verifying database connection: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	if db.DB == nil {
		return nil
	}
	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// Path returns the filesystem path to the database file.
func (db *DB) Path() string {
	return db.path
}

// ReadOnly reports whether the database was opened with mode=ro.
func (db *DB) ReadOnly() bool {
	return db.readOnly
}

// HealthCheck runs SELECT 1.
func (db *DB) HealthCheck(ctx context.Context) error {
	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// Tables lists the tables of the database with their CREATE statements,
// in sqlite_master order.
func (db *DB) Tables(ctx context.Context) ([]Table, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT name, COALESCE(sql, '') FROM sqlite_master WHERE type = 'table' ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	defer rows.Close()

	var tables []Table
	for rows.Next() {
		var t Table
		if err := rows.Scan(&t.Name, &t.SQL); err != nil {
			return nil, fmt.Errorf("scanning table: %w", err)
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	return tables, nil
}

// QueryCells runs an arbitrary query and returns every row as cells in
// column order. Values are left as the driver produced them so callers can
// recover the storage class.
func (db *DB) QueryCells(ctx context.Context, query string) ([][]Cell, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}

	var result [][]Cell
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		row := make([]Cell, len(columns))
		for i, col := range columns {
			row[i] = Cell{Column: col, Value: values[i]}
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading rows: %w", err)
	}
	return result, nil
}
