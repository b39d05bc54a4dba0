package sqlite

import (
	"context"
	"database/sql"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"quizrank-service/internal/app"
)

// Store is a SQLite-backed app.RecordStore for single-node deployments.
type Store struct {
	db *sql.DB
}

var (
	_ app.RecordStore     = (*Store)(nil)
	_ app.QuestionCatalog = (*Store)(nil)
	_ app.QuestionWriter  = (*Store)(nil)
)

func NewStore(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		path = "quizrank.db"
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	// one connection serializes writers; every read-modify-write below also
	// runs in a transaction so the upsert and the seal cannot interleave
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{`PRAGMA busy_timeout = 5000;`, `PRAGMA foreign_keys = ON;`} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	store := &Store{db: db}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
