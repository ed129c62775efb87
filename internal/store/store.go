// Package store is the Identity Store access layer: typed CRUD over users,
// identities, sessions, challenges and soft actions. It is the only package
// that talks to the database directly.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

type Store struct {
	db *sqlx.DB
}

func Open(path string) (*Store, error) {
	dsn := "file:" + path
	if strings.Contains(path, "?") {
		dsn += "&_fk=1"
	} else {
		dsn += "?_fk=1"
	}
	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	store := &Store{db}
	if err := store.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	return store, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) createTables() error {
	statements := []string{
		`create table if not exists users(
			id           text not null primary key,
			display_name text not null default '',
			handle       text not null default '',
			avatar_url   text not null default '',
			created_at   datetime not null
		)`,
		`create table if not exists identities(
			id          text not null primary key,
			user_id     text not null references users(id),
			type        text not null,
			identifier  text not null,
			verified_at datetime null,
			is_primary  tinyint not null default 0,
			metadata    text not null default '',
			created_at  datetime not null,
			unique(type, identifier)
		)`,
		`create table if not exists sessions(
			id                 text not null primary key,
			user_id            text not null references users(id),
			refresh_token_hash text not null unique,
			created_at         datetime not null,
			expires_at         datetime not null,
			revoked_at         datetime null
		)`,
		`create table if not exists auth_methods(
			id         text not null primary key,
			user_id    text not null references users(id),
			provider   text not null,
			created_at datetime not null
		)`,
		`create table if not exists identity_challenges(
			id          text not null primary key,
			user_id     text not null,
			type        text not null,
			identifier  text not null,
			nonce       text not null,
			message     text not null,
			created_at  datetime not null,
			expires_at  datetime not null,
			consumed_at datetime null
		)`,
		`create table if not exists soft_votes(
			id             text not null primary key,
			user_id        text not null,
			author         text not null,
			permlink       text not null,
			weight         integer not null,
			status         text not null default 'queued',
			error          text not null default '',
			created_at     datetime not null,
			updated_at     datetime not null,
			broadcasted_at datetime null,
			unique(user_id, author, permlink)
		)`,
		`create table if not exists soft_posts(
			id        text not null primary key,
			author    text not null,
			permlink  text not null,
			type      text not null,
			metadata  text not null default '',
			user_id   text not null,
			safe_user text not null default ''
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing ddl: %w", err)
		}
	}
	return nil
}
