package database

import (
	"context"
	"database/sql"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/trezcool/goose"

	"github.com/trezcool/campusdesk/core"
	"github.com/trezcool/campusdesk/fs"
)

const (
	maintenanceDB = "postgres"
	readyAttempts = 30
)

// DSN builds the connection URL of dbName. asAdmin selects the admin credentials when they are configured.
func DSN(conf *core.Config, dbName string, asAdmin bool) string {
	creds := url.UserPassword(conf.Database.User, conf.Database.Password)
	if asAdmin && conf.Database.AdminUser != "" {
		creds = url.UserPassword(conf.Database.AdminUser, conf.Database.AdminPassword)
	}

	q := url.Values{"timezone": {"utc"}, "sslmode": {"require"}}
	if conf.Database.DisableTLS {
		q.Set("sslmode", "disable")
	}
	u := url.URL{
		Scheme:   conf.Database.Engine,
		User:     creds,
		Host:     conf.Database.Address(),
		Path:     dbName,
		RawQuery: q.Encode(),
	}
	return u.String()
}

func connect(ctx context.Context, conf *core.Config, dbName string, asAdmin bool) (*sqlx.DB, error) {
	db, err := sqlx.Open(conf.Database.Engine, DSN(conf, dbName, asAdmin))
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", dbName)
	}
	if err = waitReady(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// waitReady pings db until it answers, backing off 100ms more after each failed attempt.
func waitReady(ctx context.Context, db *sqlx.DB) error {
	var err error
	for attempt := 1; attempt <= readyAttempts; attempt++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "waiting for database")
		case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
		}
	}
	return errors.Wrap(err, "DB ping timeout")
}

// Open connects to the app database and waits for it to be ready.
func Open(conf *core.Config) (*sqlx.DB, error) {
	return connect(context.Background(), conf, conf.Database.Name, false)
}

func exists(ctx context.Context, db *sqlx.DB, query, name string) (bool, error) {
	var found bool
	err := db.GetContext(ctx, &found, query, name)
	return found, err
}

// CreateIfNotExist creates the app role (as admin) and the app database (as the app role) when missing.
func CreateIfNotExist(conf *core.Config) error {
	ctx := context.Background()

	if conf.Database.User != "" {
		adminDB, err := connect(ctx, conf, maintenanceDB, true)
		if err != nil {
			return err
		}
		defer func() { _ = adminDB.Close() }()

		found, err := exists(ctx, adminDB, `SELECT EXISTS (SELECT 1 FROM pg_roles WHERE rolname = $1)`, conf.Database.User)
		if err != nil {
			return errors.Wrap(err, "checking app user")
		}
		if !found {
			q := "CREATE USER " + pq.QuoteIdentifier(conf.Database.User) +
				" CREATEDB ENCRYPTED PASSWORD " + pq.QuoteLiteral(conf.Database.Password)
			if _, err = adminDB.ExecContext(ctx, q); err != nil {
				return errors.Wrap(err, "creating app user")
			}
		}
	}

	appDB, err := connect(ctx, conf, maintenanceDB, false)
	if err != nil {
		return err
	}
	defer func() { _ = appDB.Close() }()

	found, err := exists(ctx, appDB, `SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)`, conf.Database.Name)
	if err != nil {
		return errors.Wrap(err, "checking database")
	}
	if !found {
		if _, err = appDB.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(conf.Database.Name)); err != nil {
			return errors.Wrap(err, "creating database")
		}
	}
	return nil
}

// Migrate runs a goose command ("up", "down", "status", "redo"...) against the embedded migrations.
func Migrate(db *sql.DB, cmd string, args ...string) error {
	if cmd == "" {
		cmd = "up"
	}
	if err := goose.RunFS(cmd, db, appfs.FS, "migrations", args...); err != nil {
		return errors.Wrapf(err, "running migrations: %s", cmd)
	}
	return nil
}
