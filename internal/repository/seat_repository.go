// Package repository contains the MySQL-backed implementations of the
// engine's Inventory and Ledger contracts.  All timestamps are stored
// and compared in UTC.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"

	"github.com/iliyamo/event-seat-booking/internal/booking"
	"github.com/iliyamo/event-seat-booking/internal/model"
)

// SeatRepo provides the durable seat inventory.  Claims run inside a
// transaction that locks the requested rows with SELECT ... FOR UPDATE
// so that overlapping concurrent claims serialize on the database and
// at most one of them wins any given seat.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo returns a SeatRepo bound to the given database.
func NewSeatRepo(db *sql.DB) *SeatRepo { return &SeatRepo{db: db} }

// Claim implements booking.Inventory.  It books every requested seat
// for userID in one transaction or changes nothing.  Seats are locked
// in sorted id order so two claims with overlapping sets acquire row
// locks in the same order and cannot deadlock each other.
func (r *SeatRepo) Claim(ctx context.Context, eventID, userID string, seatIDs []string) (*booking.ClaimResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var one int
	if err := tx.QueryRowContext(ctx, `SELECT 1 FROM events WHERE id = ?`, eventID).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, booking.ErrEventNotFound
		}
		return nil, err
	}

	locked := append([]string(nil), seatIDs...)
	sort.Strings(locked)
	query := `SELECT id, state FROM seats WHERE event_id = ? AND id IN (` +
		placeholders(len(locked)) + `) ORDER BY id FOR UPDATE`
	args := make([]interface{}, 0, len(locked)+1)
	args = append(args, eventID)
	for _, id := range locked {
		args = append(args, id)
	}
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	states := make(map[string]model.SeatState, len(locked))
	for rows.Next() {
		var id string
		var state model.SeatState
		if scanErr := rows.Scan(&id, &state); scanErr != nil {
			rows.Close()
			return nil, scanErr
		}
		states[id] = state
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	var unknown, unavailable []string
	for _, id := range seatIDs {
		state, ok := states[id]
		if !ok {
			unknown = append(unknown, id)
			continue
		}
		if state != model.SeatAvailable {
			unavailable = append(unavailable, id)
		}
	}
	if len(unknown) > 0 {
		return &booking.ClaimResult{Unknown: unknown}, nil
	}
	if len(unavailable) > 0 {
		return &booking.ClaimResult{Unavailable: unavailable}, nil
	}

	update := `UPDATE seats SET state = 'BOOKED', holder = ?, version = version + 1,
	           updated_at = UTC_TIMESTAMP() WHERE event_id = ? AND id IN (` +
		placeholders(len(locked)) + `)`
	uargs := make([]interface{}, 0, len(locked)+2)
	uargs = append(uargs, userID, eventID)
	for _, id := range locked {
		uargs = append(uargs, id)
	}
	if _, err := tx.ExecContext(ctx, update, uargs...); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return &booking.ClaimResult{Claimed: true}, nil
}

// AvailableSeats implements booking.Inventory.
func (r *SeatRepo) AvailableSeats(ctx context.Context, eventID string) ([]string, error) {
	var one int
	if err := r.db.QueryRowContext(ctx, `SELECT 1 FROM events WHERE id = ?`, eventID).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, booking.ErrEventNotFound
		}
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM seats WHERE event_id = ? AND state = 'AVAILABLE' ORDER BY id`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// placeholders builds "?, ?, ..." for IN clauses.
func placeholders(n int) string {
	if n == 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
