package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Registers the pure Go "sqlite" database/sql driver (modernc.org/sqlite
	// underneath), so no cgo toolchain is needed.
	_ "github.com/glebarez/sqlite"
)

// DBClient abstracts the database so packages can be tested against any
// SQLite file.
type DBClient interface {
	// GetDB returns the raw *sql.DB instance.
	GetDB() *sql.DB
	// WithTx runs fn in a transaction, committing when fn returns nil.
	WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error
	// Close closes the database connection.
	Close() error
	// Ping checks the database connection.
	Ping(ctx context.Context) error
}

// SQLiteClient implements DBClient for a single SQLite file.
type SQLiteClient struct {
	db       *sql.DB
	filePath string
}

// NewSQLiteClient opens (creating if needed) dataDir/dbName.
func NewSQLiteClient(dataDir, dbName string) (*SQLiteClient, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data directory must be specified for SQLite database")
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dataDir, err)
	}

	dbPath := filepath.Join(dataDir, dbName)
	connStr := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", dbPath)
	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database %s: %w", dbPath, err)
	}

	// SQLite serialises writers anyway; a single connection avoids
	// SQLITE_BUSY between our own goroutines.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to SQLite database %s: %w", dbPath, err)
	}

	return &SQLiteClient{db: db, filePath: dbPath}, nil
}

// GetDB returns the raw *sql.DB instance.
func (s *SQLiteClient) GetDB() *sql.DB {
	return s.db
}

// Path returns the database file path.
func (s *SQLiteClient) Path() string {
	return s.filePath
}

// WithTx runs fn inside a transaction. The transaction is rolled back when fn
// returns an error or panics.
func (s *SQLiteClient) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
		if err != nil {
			tx.Rollback()
			return
		}
		if cerr := tx.Commit(); cerr != nil {
			err = fmt.Errorf("failed to commit transaction: %w", cerr)
		}
	}()
	return fn(tx)
}

// Close closes the database connection.
func (s *SQLiteClient) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteClient) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
