package repomanager

import (
	"database/sql"
	"fmt"
	"strings"
)

// sqlitePragmas are appended to every sqlite:// DSN. Foreign keys keep the
// token ledger consistent with the users table, WAL and the busy timeout make
// the single file usable from the server's connection pool.
const sqlitePragmas = "_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

// sqliteDSN converts a sqlite://path URL into a modernc driver DSN.
// sqlite://name.db and sqlite:///name.db are relative paths,
// sqlite:////var/lib/authvault/name.db is absolute.
func sqliteDSN(dsn string) string {
	path := strings.TrimPrefix(dsn, "sqlite://")
	path = strings.TrimPrefix(path, "/")
	return "file:" + path + "?" + sqlitePragmas
}

// Open opens the database described by the DSN and returns the connection
// together with the RepositoryManager for its dialect. Supported schemes are
// postgres:// (and postgresql://), sqlite:// and raw file: DSNs, the latter
// passed to the sqlite driver unchanged.
func Open(dsn string) (*sql.DB, RepositoryManager, error) {
	var (
		db  *sql.DB
		m   RepositoryManager
		err error
	)

	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		if db, err = sql.Open("pgx", dsn); err == nil {
			m, err = NewPostgresRepositoryManager(db)
		}
	case strings.HasPrefix(dsn, "sqlite://"):
		if db, err = sql.Open("sqlite", sqliteDSN(dsn)); err == nil {
			m, err = NewSQLiteRepositoryManager(db)
		}
	case strings.HasPrefix(dsn, "file:"):
		if db, err = sql.Open("sqlite", dsn); err == nil {
			m, err = NewSQLiteRepositoryManager(db)
		}
	default:
		return nil, nil, fmt.Errorf("unsupported database dsn: %q", dsn)
	}

	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, nil, fmt.Errorf("db error: %w", err)
	}
	return db, m, nil
}
