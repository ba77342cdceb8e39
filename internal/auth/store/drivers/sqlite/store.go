package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/aussiebroadwan/mcpauth/internal/auth/store/drivers/sqldb"
	_ "modernc.org/sqlite"
)

type Store struct {
	*sqldb.Store
	dsn string
}

// FileDSN returns the DSN for a database file. Writers take the lock at
// BEGIN so concurrent redemptions queue on busy_timeout instead of failing
// on lock upgrade.
func FileDSN(path string) string {
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"
}

func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// Every connection to ":memory:" gets its own database.
	if strings.Contains(dsn, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	// Enforce FKs
	if _, err := db.ExecContext(context.Background(), `PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{
		Store: sqldb.New(db, sqldb.Question),
		dsn:   dsn,
	}, nil
}
