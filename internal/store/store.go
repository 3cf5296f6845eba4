package store

import (
	"database/sql"
	"errors"

	_ "github.com/mattn/go-sqlite3"
)

var (
	ErrNotFound          = errors.New("store: not found")
	ErrAlreadyClaimed    = errors.New("store: job already claimed")
	ErrIllegalTransition = errors.New("store: illegal status transition")
	ErrEmailTaken        = errors.New("store: email already registered")
)

// Store is the durable record of accounts and jobs, and the single source of
// truth for job status. All mutations go through sqlite, which serializes
// writers, so concurrent readers never observe a job mid-transition.
type Store struct {
	db *sql.DB
}

func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	schema := `
	create table if not exists users (
		id            integer primary key autoincrement,
		email         text unique not null,
		password_hash text not null,
		created_at    datetime not null
	);
	create table if not exists jobs (
		id           text primary key,
		owner_id     integer not null references users(id),
		source_ref   text not null,
		max_comments integer not null,
		title        text not null default '',
		status       text not null default 'pending',
		error_detail text not null default '',
		artifact_ref text not null default '',
		created_at   datetime not null,
		updated_at   datetime not null
	);
	create index if not exists idx_jobs_owner on jobs(owner_id, created_at);
	create index if not exists idx_jobs_status on jobs(status, created_at);`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}
