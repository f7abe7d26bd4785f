// Package sqlstore keeps tables and profiles in a SQL database, either a
// local SQLite file or PostgreSQL. Each record kind has its own table holding
// the JSON document and an integer version.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"tcgtable/internal/domain"
	"tcgtable/internal/ports"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	tablesTable   = "card_tables"
	profilesTable = "player_profiles"
)

// Dialect is the SQL flavour of the underlying database.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

// rebind turns ? placeholders into $n for postgres.
func (d Dialect) rebind(query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Store implements ports.TableStore and ports.ProfileStore.
type Store struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

// OpenSQLite opens (creating if needed) a SQLite database file. ":memory:"
// gives a private in-memory database.
func OpenSQLite(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("empty sqlite database path")
	}
	if path != ":memory:" {
		parent := filepath.Dir(path)
		if parent != "" && parent != "." {
			if err := os.MkdirAll(parent, 0o755); err != nil {
				return nil, err
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, pragma := range []string{`PRAGMA busy_timeout = 5000;`, `PRAGMA journal_mode = WAL;`} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return open(ctx, db, SQLite)
}

// OpenPostgres connects to PostgreSQL.
func OpenPostgres(dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("empty postgres dsn")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return open(ctx, db, Postgres)
}

func open(ctx context.Context, db *sql.DB, dialect Dialect) (*Store, error) {
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	s := &Store{db: db, dialect: dialect, now: time.Now}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	for _, table := range []string{tablesTable, profilesTable} {
		_, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS `+table+` (
    id TEXT PRIMARY KEY,
    data TEXT NOT NULL,
    version BIGINT NOT NULL,
    updated_at_ms BIGINT NOT NULL
)`)
		if err != nil {
			return fmt.Errorf("create %s: %w", table, err)
		}
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) LoadTable(ctx context.Context, key ports.TableKey) (*domain.TableSession, error) {
	var session domain.TableSession
	version, err := s.load(ctx, tablesTable, key.StorageID(), &session, func() any {
		return domain.NewTableSession(key.TableID, s.now())
	})
	if err != nil {
		return nil, err
	}
	session.Version = version
	return &session, nil
}

func (s *Store) WriteTable(ctx context.Context, key ports.TableKey, session *domain.TableSession) error {
	version, err := s.write(ctx, tablesTable, key.StorageID(), session, session.Version)
	if err != nil {
		return err
	}
	session.Version = version
	return nil
}

func (s *Store) LoadProfile(ctx context.Context, playerID string) (*domain.PlayerProfile, error) {
	var profile domain.PlayerProfile
	version, err := s.load(ctx, profilesTable, playerID, &profile, func() any {
		return domain.NewPlayerProfile(playerID, s.now())
	})
	if err != nil {
		return nil, err
	}
	profile.Version = version
	return &profile, nil
}

func (s *Store) WriteProfile(ctx context.Context, profile *domain.PlayerProfile) error {
	version, err := s.write(ctx, profilesTable, profile.PlayerID, profile, profile.Version)
	if err != nil {
		return err
	}
	profile.Version = version
	return nil
}

// load decodes the row into dst. A missing row is inserted with the default
// value; a concurrent insert wins silently and its row is read back.
func (s *Store) load(ctx context.Context, table, id string, dst any, def func() any) (string, error) {
	data, version, err := s.selectRow(ctx, table, id)
	if errors.Is(err, sql.ErrNoRows) {
		raw, encErr := json.Marshal(def())
		if encErr != nil {
			return "", fmt.Errorf("encode %s/%s: %w", table, id, encErr)
		}
		_, err = s.db.ExecContext(ctx, s.dialect.rebind(`
INSERT INTO `+table+` (id, data, version, updated_at_ms)
VALUES (?, ?, 1, ?)
ON CONFLICT (id) DO NOTHING`), id, string(raw), s.now().UnixMilli())
		if err != nil {
			return "", fmt.Errorf("insert %s/%s: %w", table, id, err)
		}
		data, version, err = s.selectRow(ctx, table, id)
	}
	if err != nil {
		return "", fmt.Errorf("select %s/%s: %w", table, id, err)
	}

	if err := json.Unmarshal([]byte(data), dst); err != nil {
		return "", fmt.Errorf("decode %s/%s: %w", table, id, err)
	}
	return strconv.FormatInt(version, 10), nil
}

func (s *Store) selectRow(ctx context.Context, table, id string) (string, int64, error) {
	var (
		data    string
		version int64
	)
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(`SELECT data, version FROM `+table+` WHERE id = ?`), id).Scan(&data, &version)
	return data, version, err
}

// write upserts the row. A non-empty version turns it into a compare-and-set
// on the version column.
func (s *Store) write(ctx context.Context, table, id string, value any, version string) (string, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("encode %s/%s: %w", table, id, err)
	}
	nowMs := s.now().UnixMilli()

	var next int64
	if version == "" {
		err = s.db.QueryRowContext(ctx, s.dialect.rebind(`
INSERT INTO `+table+` (id, data, version, updated_at_ms)
VALUES (?, ?, 1, ?)
ON CONFLICT (id) DO UPDATE SET
    data = excluded.data,
    version = `+table+`.version + 1,
    updated_at_ms = excluded.updated_at_ms
RETURNING version`), id, string(raw), nowMs).Scan(&next)
		if err != nil {
			return "", fmt.Errorf("upsert %s/%s: %w", table, id, err)
		}
		return strconv.FormatInt(next, 10), nil
	}

	expected, err := strconv.ParseInt(version, 10, 64)
	if err != nil {
		return "", fmt.Errorf("update %s/%s: version %q: %w", table, id, version, ports.ErrVersionConflict)
	}
	err = s.db.QueryRowContext(ctx, s.dialect.rebind(`
UPDATE `+table+`
SET data = ?, version = version + 1, updated_at_ms = ?
WHERE id = ? AND version = ?
RETURNING version`), string(raw), nowMs, id, expected).Scan(&next)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("update %s/%s: %w", table, id, ports.ErrVersionConflict)
	}
	if err != nil {
		return "", fmt.Errorf("update %s/%s: %w", table, id, err)
	}
	return strconv.FormatInt(next, 10), nil
}

var (
	_ ports.TableStore   = (*Store)(nil)
	_ ports.ProfileStore = (*Store)(nil)
)
