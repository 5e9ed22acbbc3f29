package database

import (
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// Open connects to the SQLite file at url and brings its schema up to date.
func Open(url string) (db *sqlx.DB, err error) {
	db, err = sqlx.Open("sqlite3", withForeignKeys(url))
	if err != nil {
		return
	}

	// db tuning options
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(2 * time.Hour)

	err = migrateDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return
}

// the pragma must hold on every pooled connection, not just the first one
func withForeignKeys(url string) string {
	if strings.Contains(url, "_foreign_keys=") {
		return url
	}
	if strings.Contains(url, "?") {
		return url + "&_foreign_keys=on"
	}
	return url + "?_foreign_keys=on"
}
