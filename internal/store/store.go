package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/teemow/plannr/internal/logging"
	"github.com/teemow/plannr/internal/store/migrations"
)

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

// Dialect selects placeholder style and goose dialect.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite3"
	DialectPostgres Dialect = "postgres"
)

// DialectForDriver maps a driver name to its dialect.
func DialectForDriver(driver string) (Dialect, error) {
	switch driver {
	case DriverSQLite:
		return DialectSQLite, nil
	case DriverPostgres, "postgres":
		return DialectPostgres, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q (use %s or %s)", driver, DriverSQLite, DriverPostgres)
	}
}

// Columns holding per-user blobs.
const (
	columnCredential = "google_credentials"
	columnCalendar   = "calendar"
	columnSyllabi    = "syllabi"
)

// UserRecord is one row of the users table. Nil blobs were never written.
type UserRecord struct {
	Email      string
	Credential *string
	Calendar   *string
	Syllabi    *string
}

// Store is the user store.
type Store struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
}

// New wraps an open database. logger may be nil.
func New(db *sql.DB, dialect Dialect, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		db:      db,
		dialect: dialect,
		logger:  logging.WithComponent(logger, "store"),
	}
}

// Open connects to the database and applies pending migrations.
func Open(ctx context.Context, driver, dsn string, logger *slog.Logger) (*Store, error) {
	dialect, err := DialectForDriver(driver)
	if err != nil {
		return nil, err
	}
	if driver == "postgres" {
		driver = DriverPostgres
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dialect == DialectSQLite {
		// SQLite allows one writer; a single connection also keeps
		// in-memory databases alive across queries.
		db.SetMaxOpenConns(1)
	}

	s := New(db, dialect, logger)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate applies all pending schema migrations.
func (s *Store) Migrate(ctx context.Context) error {
	migrator, err := s.migrator()
	if err != nil {
		return err
	}

	results, err := migrator.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	for _, r := range results {
		s.logger.Info("Applied migration", "version", r.Source.Version, "duration", r.Duration)
	}

	if version, err := migrator.GetDBVersion(ctx); err == nil {
		s.logger.Debug("Database schema up to date", "version", version)
	}
	return nil
}

// SchemaVersion returns the version of the last applied migration.
func (s *Store) SchemaVersion(ctx context.Context) (int64, error) {
	migrator, err := s.migrator()
	if err != nil {
		return 0, err
	}
	version, err := migrator.GetDBVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

// migrator returns a goose provider bound to this store's database and
// dialect, independent of goose's package-level settings.
func (s *Store) migrator() (*goose.Provider, error) {
	p, err := goose.NewProvider(goose.Dialect(s.dialect), s.db, migrations.Migrations)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration provider: %w", err)
	}
	return p, nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// FetchCredential returns the stored grant for email, or nil when none was
// saved yet. A missing user row is created on the way, so calling it twice
// never yields two rows.
func (s *Store) FetchCredential(ctx context.Context, email string) (*string, error) {
	if email == "" {
		return nil, ErrEmptyEmail
	}

	cred, err := s.fetchOrCreate(ctx, email)
	if errors.Is(err, ErrAlreadyExists) {
		// A concurrent caller inserted the row first.
		cred, err = s.fetchOrCreate(ctx, email)
	}
	if err != nil {
		return nil, err
	}
	return cred, nil
}

func (s *Store) fetchOrCreate(ctx context.Context, email string) (*string, error) {
	var cred *string
	err := WithTx(ctx, s.db, nil, func(ctx context.Context, tx DBTX) error {
		var err error
		cred, err = s.selectCredential(ctx, tx, email)
		if !errors.Is(err, ErrNotFound) {
			return err
		}

		if err := s.insertUser(ctx, tx, email); err != nil {
			return err
		}
		s.logger.Info("Created user record", logging.UserHash(email))

		cred, err = s.selectCredential(ctx, tx, email)
		return err
	})
	return cred, err
}

// CreateUser inserts an empty row for email.
func (s *Store) CreateUser(ctx context.Context, email string) error {
	if email == "" {
		return ErrEmptyEmail
	}
	if err := s.insertUser(ctx, s.db, email); err != nil {
		return err
	}
	s.logger.Info("Created user record", logging.UserHash(email))
	return nil
}

// RemoveUser deletes the row for email.
func (s *Store) RemoveUser(ctx context.Context, email string) error {
	if email == "" {
		return ErrEmptyEmail
	}

	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM users WHERE email = ?`), email)
	if err != nil {
		return fmt.Errorf("failed to remove user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to remove user: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	s.logger.Info("Removed user record", logging.UserHash(email))
	return nil
}

// UpdateCredential replaces the stored grant of an existing user.
func (s *Store) UpdateCredential(ctx context.Context, email, blob string) error {
	return s.updateColumn(ctx, email, columnCredential, blob)
}

// UpdateCalendar replaces the cached calendar of an existing user.
func (s *Store) UpdateCalendar(ctx context.Context, email, blob string) error {
	return s.updateColumn(ctx, email, columnCalendar, blob)
}

// UpdateSyllabi replaces the cached syllabi of an existing user.
func (s *Store) UpdateSyllabi(ctx context.Context, email, blob string) error {
	return s.updateColumn(ctx, email, columnSyllabi, blob)
}

// FetchUser returns the full record for email. Unlike FetchCredential it
// never creates a row.
func (s *Store) FetchUser(ctx context.Context, email string) (*UserRecord, error) {
	if email == "" {
		return nil, ErrEmptyEmail
	}

	var (
		rec                    UserRecord
		cred, calendar, syllab sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT email, google_credentials, calendar, syllabi FROM users WHERE email = ?`),
		email,
	).Scan(&rec.Email, &cred, &calendar, &syllab)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	rec.Credential = nullable(cred)
	rec.Calendar = nullable(calendar)
	rec.Syllabi = nullable(syllab)
	return &rec, nil
}

// updateColumn overwrites one blob column. column must be one of the
// column constants; it is never taken from input.
func (s *Store) updateColumn(ctx context.Context, email, column, blob string) error {
	if email == "" {
		return ErrEmptyEmail
	}

	err := WithTx(ctx, s.db, nil, func(ctx context.Context, tx DBTX) error {
		var one int
		err := tx.QueryRowContext(ctx, s.rebind(`SELECT 1 FROM users WHERE email = ?`), email).Scan(&one)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to look up user: %w", err)
		}

		query := s.rebind(fmt.Sprintf(`UPDATE users SET %s = ? WHERE email = ?`, column))
		if _, err := tx.ExecContext(ctx, query, blob, email); err != nil {
			return fmt.Errorf("failed to update %s: %w", column, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug("Updated user record", logging.UserHash(email), "column", column)
	return nil
}

func (s *Store) selectCredential(ctx context.Context, db DBTX, email string) (*string, error) {
	var cred sql.NullString
	err := db.QueryRowContext(ctx,
		s.rebind(`SELECT google_credentials FROM users WHERE email = ?`),
		email,
	).Scan(&cred)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}
	return nullable(cred), nil
}

func (s *Store) insertUser(ctx context.Context, db DBTX, email string) error {
	_, err := db.ExecContext(ctx, s.rebind(`INSERT INTO users (email) VALUES (?)`), email)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (s *Store) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func nullable(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
