package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/iliyamo/event-seat-booking/internal/booking"
)

// LedgerRepo is the MySQL-backed idempotency ledger.  Atomicity rests
// on the primary key of idempotency_keys: INSERT IGNORE either wins
// the key for this request or leaves the existing record untouched,
// and the state transitions use guarded UPDATEs so only one writer can
// move a record out of IN_FLIGHT.
type LedgerRepo struct {
	db              *sql.DB
	inFlightTimeout time.Duration
}

// NewLedgerRepo returns a LedgerRepo.  inFlightTimeout bounds how long
// a key may stay IN_FLIGHT before another request may reclaim it.
func NewLedgerRepo(db *sql.DB, inFlightTimeout time.Duration) *LedgerRepo {
	return &LedgerRepo{db: db, inFlightTimeout: inFlightTimeout}
}

// GetOrReserve implements booking.Ledger.
func (r *LedgerRepo) GetOrReserve(ctx context.Context, rec *booking.Record) (*booking.Lookup, error) {
	seatsJSON, err := json.Marshal(rec.Seats)
	if err != nil {
		return nil, err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT IGNORE INTO idempotency_keys
		 (idem_key, fingerprint, event_id, user_id, seats, state, updated_at)
		 VALUES (?, ?, ?, ?, ?, 'IN_FLIGHT', UTC_TIMESTAMP())`,
		rec.Key, rec.Fingerprint, rec.EventID, rec.UserID, seatsJSON)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return &booking.Lookup{State: booking.LookupFresh}, nil
	}

	var fingerprint, state string
	var outcomeJSON sql.NullString
	err = r.db.QueryRowContext(ctx,
		`SELECT fingerprint, state, outcome FROM idempotency_keys WHERE idem_key = ?`,
		rec.Key).Scan(&fingerprint, &state, &outcomeJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// The record was evicted between insert and select; rare
			// enough that a transient retry signal is fine.
			return &booking.Lookup{State: booking.LookupInFlight}, nil
		}
		return nil, err
	}
	if fingerprint != rec.Fingerprint {
		return nil, booking.ErrKeyConflict
	}
	if state == "COMPLETED" {
		var out booking.Outcome
		if !outcomeJSON.Valid {
			return nil, errors.New("completed ledger record without outcome")
		}
		if err := json.Unmarshal([]byte(outcomeJSON.String), &out); err != nil {
			return nil, err
		}
		return &booking.Lookup{State: booking.LookupReplay, Outcome: &out}, nil
	}

	// IN_FLIGHT: reclaim only when the record is stale.  The guarded
	// UPDATE makes the reclaim race-free; at most one caller sees an
	// affected row.
	upd, err := r.db.ExecContext(ctx,
		`UPDATE idempotency_keys SET updated_at = UTC_TIMESTAMP()
		 WHERE idem_key = ? AND state = 'IN_FLIGHT'
		   AND updated_at <= UTC_TIMESTAMP() - INTERVAL ? SECOND`,
		rec.Key, int64(r.inFlightTimeout/time.Second))
	if err != nil {
		return nil, err
	}
	if n, _ := upd.RowsAffected(); n == 1 {
		return &booking.Lookup{State: booking.LookupFresh}, nil
	}
	return &booking.Lookup{State: booking.LookupInFlight}, nil
}

// Complete implements booking.Ledger.  The WHERE clause guarantees the
// IN_FLIGHT → COMPLETED transition happens at most once; completed
// records are never overwritten.
func (r *LedgerRepo) Complete(ctx context.Context, key string, out *booking.Outcome) error {
	outcomeJSON, err := json.Marshal(out)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE idempotency_keys SET state = 'COMPLETED', outcome = ?, updated_at = UTC_TIMESTAMP()
		 WHERE idem_key = ? AND state = 'IN_FLIGHT'`,
		outcomeJSON, key)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return booking.ErrNotInFlight
	}
	return nil
}

// Get implements booking.Ledger.  In-flight records are reported as
// not found; only terminal outcomes are visible to lookups.
func (r *LedgerRepo) Get(ctx context.Context, key string) (*booking.Outcome, error) {
	var state string
	var outcomeJSON sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT state, outcome FROM idempotency_keys WHERE idem_key = ?`, key).
		Scan(&state, &outcomeJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, booking.ErrKeyNotFound
		}
		return nil, err
	}
	if state != "COMPLETED" || !outcomeJSON.Valid {
		return nil, booking.ErrKeyNotFound
	}
	var out booking.Outcome
	if err := json.Unmarshal([]byte(outcomeJSON.String), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListByUser implements booking.Ledger.
func (r *LedgerRepo) ListByUser(ctx context.Context, userID string) ([]booking.Record, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT idem_key, fingerprint, event_id, user_id, seats, outcome, updated_at
		 FROM idempotency_keys
		 WHERE user_id = ? AND state = 'COMPLETED'
		 ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []booking.Record
	for rows.Next() {
		var rec booking.Record
		var seatsJSON, outcomeJSON []byte
		if err := rows.Scan(&rec.Key, &rec.Fingerprint, &rec.EventID, &rec.UserID,
			&seatsJSON, &outcomeJSON, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		if len(seatsJSON) > 0 {
			if err := json.Unmarshal(seatsJSON, &rec.Seats); err != nil {
				return nil, err
			}
		}
		if len(outcomeJSON) > 0 {
			var o booking.Outcome
			if err := json.Unmarshal(outcomeJSON, &o); err != nil {
				return nil, err
			}
			rec.Outcome = &o
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DeleteExpired removes completed records older than ttl and returns
// the number of rows removed.  Run it periodically from a janitor.
func (r *LedgerRepo) DeleteExpired(ctx context.Context, ttl time.Duration) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM idempotency_keys
		 WHERE state = 'COMPLETED' AND updated_at < UTC_TIMESTAMP() - INTERVAL ? SECOND`,
		int64(ttl/time.Second))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
