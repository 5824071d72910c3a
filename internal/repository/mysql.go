package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/icsconnect/rsvp/internal/model"
)

// mysqlDuplicateEntry is the MySQL error number raised when an insert
// violates a unique index (ER_DUP_ENTRY).
const mysqlDuplicateEntry = 1062

// NewMySQLStore returns a Store backed by the given database handle.
// The reservations table carries a unique index on
// (event_id, active_user_id) where active_user_id is a generated column
// that is NULL for canceled or anonymous rows (see database.Migrate);
// that index, not application logic, is what makes concurrent reserve
// calls for the same user converge on a single row.
func NewMySQLStore(db *sql.DB) *Store {
	return &Store{
		Events:       &mysqlEventRepo{db: db},
		Reservations: &mysqlReservationRepo{db: db},
	}
}

type mysqlEventRepo struct{ db *sql.DB }

type mysqlReservationRepo struct{ db *sql.DB }

const eventColumns = `id, title, description, type, starts_at, ends_at, location_text,
        public, requires_join_code, join_code_hash, admin_key_hash, capacity, waitlist_enabled, created_at`

func (r *mysqlEventRepo) Get(ctx context.Context, eventID string) (*model.Event, error) {
	q := `SELECT ` + eventColumns + ` FROM events WHERE id = ?`
	ev, err := scanEvent(r.db.QueryRowContext(ctx, q, eventID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return ev, nil
}

func (r *mysqlEventRepo) Create(ctx context.Context, ev *model.Event) error {
	const q = `INSERT INTO events (id, title, description, type, starts_at, ends_at, location_text,
        public, requires_join_code, join_code_hash, admin_key_hash, capacity, waitlist_enabled, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q,
		ev.ID, ev.Title, ev.Description, ev.Type, ev.StartsAt.UTC(), ev.EndsAt.UTC(), ev.LocationText,
		ev.Public, ev.RequiresJoinCode, ev.JoinCodeHash, ev.AdminKeyHash, ev.Capacity, ev.WaitlistEnabled,
		ev.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (r *mysqlEventRepo) ListAll(ctx context.Context) ([]model.Event, error) {
	q := `SELECT ` + eventColumns + ` FROM events ORDER BY starts_at ASC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()
	events := make([]model.Event, 0)
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *ev)
	}
	return events, rows.Err()
}

// rowScanner lets scanEvent work with both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*model.Event, error) {
	var ev model.Event
	var description, typ, location, joinCodeHash sql.NullString
	err := row.Scan(
		&ev.ID, &ev.Title, &description, &typ, &ev.StartsAt, &ev.EndsAt, &location,
		&ev.Public, &ev.RequiresJoinCode, &joinCodeHash, &ev.AdminKeyHash, &ev.Capacity,
		&ev.WaitlistEnabled, &ev.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	ev.Description = nullableString(description)
	ev.Type = nullableString(typ)
	ev.LocationText = nullableString(location)
	ev.JoinCodeHash = nullableString(joinCodeHash)
	return &ev, nil
}

const reservationColumns = `id, event_id, user_id, display_name, email, status, promoted_at, created_at`

func (r *mysqlReservationRepo) Get(ctx context.Context, reservationID string) (*model.Reservation, error) {
	q := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
	res, err := scanReservation(r.db.QueryRowContext(ctx, q, reservationID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get reservation: %w", err)
	}
	return res, nil
}

func (r *mysqlReservationRepo) Create(ctx context.Context, res *model.Reservation) error {
	const q = `INSERT INTO reservations (id, event_id, user_id, display_name, email, status, promoted_at, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	var promotedAt any
	if res.PromotedAt != nil {
		promotedAt = res.PromotedAt.UTC()
	}
	_, err := r.db.ExecContext(ctx, q,
		res.ID, res.EventID, res.UserID, res.DisplayName, res.Email, res.Status, promotedAt, res.CreatedAt.UTC(),
	)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
			return fmt.Errorf("insert reservation: %w", ErrDuplicate)
		}
		return fmt.Errorf("insert reservation: %w", err)
	}
	return nil
}

func (r *mysqlReservationRepo) Update(ctx context.Context, res *model.Reservation) error {
	const q = `UPDATE reservations SET status = ?, promoted_at = ? WHERE id = ?`
	var promotedAt any
	if res.PromotedAt != nil {
		promotedAt = res.PromotedAt.UTC()
	}
	if _, err := r.db.ExecContext(ctx, q, res.Status, promotedAt, res.ID); err != nil {
		return fmt.Errorf("update reservation: %w", err)
	}
	return nil
}

func (r *mysqlReservationRepo) CountConfirmed(ctx context.Context, eventID string) (int, error) {
	return r.countByStatus(ctx, eventID, model.StatusConfirmed)
}

func (r *mysqlReservationRepo) CountWaitlisted(ctx context.Context, eventID string) (int, error) {
	return r.countByStatus(ctx, eventID, model.StatusWaitlisted)
}

func (r *mysqlReservationRepo) countByStatus(ctx context.Context, eventID, status string) (int, error) {
	const q = `SELECT COUNT(*) FROM reservations WHERE event_id = ? AND status = ?`
	var n int
	if err := r.db.QueryRowContext(ctx, q, eventID, status).Scan(&n); err != nil {
		return 0, fmt.Errorf("count reservations: %w", err)
	}
	return n, nil
}

func (r *mysqlReservationRepo) FindOldestWaitlisted(ctx context.Context, eventID string) (*model.Reservation, error) {
	q := `SELECT ` + reservationColumns + ` FROM reservations
        WHERE event_id = ? AND status = ?
        ORDER BY created_at ASC, id ASC
        LIMIT 1`
	res, err := scanReservation(r.db.QueryRowContext(ctx, q, eventID, model.StatusWaitlisted))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find oldest waitlisted: %w", err)
	}
	return res, nil
}

func (r *mysqlReservationRepo) FindActiveByEventAndUser(ctx context.Context, eventID, userID string) (*model.Reservation, error) {
	q := `SELECT ` + reservationColumns + ` FROM reservations
        WHERE event_id = ? AND user_id = ? AND status <> ?
        LIMIT 1`
	res, err := scanReservation(r.db.QueryRowContext(ctx, q, eventID, userID, model.StatusCanceled))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find active by user: %w", err)
	}
	return res, nil
}

func (r *mysqlReservationRepo) FindActiveByEventAndEmail(ctx context.Context, eventID, email string) (*model.Reservation, error) {
	q := `SELECT ` + reservationColumns + ` FROM reservations
        WHERE event_id = ? AND email IS NOT NULL AND LOWER(email) = ? AND status <> ?
        LIMIT 1`
	res, err := scanReservation(r.db.QueryRowContext(ctx, q, eventID, strings.ToLower(strings.TrimSpace(email)), model.StatusCanceled))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find active by email: %w", err)
	}
	return res, nil
}

func scanReservation(row rowScanner) (*model.Reservation, error) {
	var res model.Reservation
	var userID, email sql.NullString
	var promotedAt sql.NullTime
	err := row.Scan(&res.ID, &res.EventID, &userID, &res.DisplayName, &email, &res.Status, &promotedAt, &res.CreatedAt)
	if err != nil {
		return nil, err
	}
	res.UserID = nullableString(userID)
	res.Email = nullableString(email)
	if promotedAt.Valid {
		t := promotedAt.Time.UTC()
		res.PromotedAt = &t
	}
	return &res, nil
}

func nullableString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
