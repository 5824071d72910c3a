package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Open connects to MySQL and verifies the connection.
func Open(user, pass, host, port, name string) (*sql.DB, error) {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, host, port, name)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates the events and reservations tables when they do not
// exist yet.
//
// MySQL has no partial indexes, so the one-active-reservation-per-user
// invariant is enforced through the generated column active_user_id: it
// mirrors user_id while the reservation is active and collapses to NULL
// once the row is canceled (or was anonymous to begin with).  Because
// MySQL unique indexes admit any number of NULLs, the unique key on
// (event_id, active_user_id) rejects exactly the second concurrent
// active reservation for the same user and nothing else.
func Migrate(ctx context.Context, db *sql.DB) error {
	const eventsDDL = `CREATE TABLE IF NOT EXISTS events (
        id CHAR(36) NOT NULL PRIMARY KEY,
        title VARCHAR(255) NOT NULL,
        description TEXT NULL,
        type VARCHAR(64) NULL,
        starts_at DATETIME NOT NULL,
        ends_at DATETIME NOT NULL,
        location_text VARCHAR(255) NULL,
        public TINYINT(1) NOT NULL,
        requires_join_code TINYINT(1) NOT NULL,
        join_code_hash VARCHAR(100) NULL,
        admin_key_hash VARCHAR(100) NOT NULL,
        capacity INT NOT NULL,
        waitlist_enabled TINYINT(1) NOT NULL,
        created_at DATETIME NOT NULL
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

	const reservationsDDL = `CREATE TABLE IF NOT EXISTS reservations (
        id CHAR(36) NOT NULL PRIMARY KEY,
        event_id CHAR(36) NOT NULL,
        user_id CHAR(36) NULL,
        display_name VARCHAR(255) NOT NULL,
        email VARCHAR(255) NULL,
        status VARCHAR(16) NOT NULL,
        promoted_at DATETIME NULL,
        created_at DATETIME NOT NULL,
        active_user_id CHAR(36) GENERATED ALWAYS AS (IF(status <> 'canceled', user_id, NULL)) STORED,
        UNIQUE KEY uniq_active_user_reservation (event_id, active_user_id),
        KEY idx_reservations_event_status (event_id, status),
        KEY idx_reservations_event_created (event_id, created_at)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

	if _, err := db.ExecContext(ctx, eventsDDL); err != nil {
		return fmt.Errorf("migrate events: %w", err)
	}
	if _, err := db.ExecContext(ctx, reservationsDDL); err != nil {
		return fmt.Errorf("migrate reservations: %w", err)
	}
	return nil
}
