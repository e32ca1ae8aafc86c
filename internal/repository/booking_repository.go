package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gymsched/easyfit_bot/internal/model"
)

// ErrStatusConflict is returned by Transition when the booking is no longer
// in the expected status. The caller must treat the booking as already
// finalized by someone else.
var ErrStatusConflict = errors.New("booking status conflict")

const bookingColumns = `id, user_id, class_name, class_date, class_time, booking_date,
		status, outcome, attempts, claimed_at, claim_token, created_at, updated_at`

type BookingRepository struct {
	pool *pgxpool.Pool
}

func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

// Create inserts a new pending booking and fills in the generated fields.
func (r *BookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	query := `
		INSERT INTO bookings (user_id, class_name, class_date, class_time, booking_date, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	err := r.pool.QueryRow(
		ctx, query,
		booking.UserID,
		booking.ClassName,
		booking.ClassDate,
		booking.ClassTime,
		booking.TriggerAt,
		booking.Status,
	).Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create booking: %w", err)
	}

	return nil
}

// GetByID returns the booking or nil when it does not exist.
func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking, err := scanBooking(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get booking by id: %w", err)
	}

	return booking, nil
}

// ListByUser returns all bookings owned by the given telegram user.
func (r *BookingRepository) ListByUser(ctx context.Context, userID int64) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE user_id = $1
		ORDER BY class_date, class_time
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list bookings by user: %w", err)
	}
	defer rows.Close()

	var bookings []*model.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}

	return bookings, rows.Err()
}

// ClaimDue atomically claims the due pending bookings with a fresh lease
// token and returns them ordered by trigger time, oldest first. A row is due
// when its trigger time has passed and it carries no live lease. SKIP LOCKED
// keeps two scheduler instances from claiming the same rows.
func (r *BookingRepository) ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]*model.Booking, error) {
	token := uuid.New()
	query := `
		UPDATE bookings
		SET claimed_at = $2, claim_token = $1, updated_at = $2
		WHERE id IN (
			SELECT id FROM bookings
			WHERE status = $5
			  AND booking_date <= $2
			  AND (claimed_at IS NULL OR claimed_at < $3)
			ORDER BY booking_date
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + bookingColumns

	rows, err := r.pool.Query(ctx, query, token, now, now.Add(-lease), limit, model.BookingStatusPending)
	if err != nil {
		return nil, fmt.Errorf("claim due bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*model.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan claimed booking: %w", err)
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("claim due bookings: %w", err)
	}

	// UPDATE ... RETURNING does not guarantee row order.
	sort.Slice(bookings, func(i, j int) bool {
		return bookings[i].TriggerAt.Before(bookings[j].TriggerAt)
	})

	return bookings, nil
}

// Release drops the claim after a transient failure so the booking shows up
// again on a later tick. The attempt counter is bumped for observability.
func (r *BookingRepository) Release(ctx context.Context, id int64, token uuid.UUID) error {
	query := `
		UPDATE bookings
		SET claimed_at = NULL, claim_token = NULL, attempts = attempts + 1, updated_at = now()
		WHERE id = $1 AND claim_token = $2
	`

	if _, err := r.pool.Exec(ctx, query, id, token); err != nil {
		return fmt.Errorf("release booking claim: %w", err)
	}

	return nil
}

// Transition performs the compare-and-swap status change. The status moves
// from `from` to `to` only if the row still holds `from`; otherwise
// ErrStatusConflict is returned and nothing is written. Any claim is cleared
// together with the transition.
func (r *BookingRepository) Transition(ctx context.Context, id int64, from, to model.BookingStatus, outcome model.BookingOutcome) error {
	query := `
		UPDATE bookings
		SET status = $3, outcome = $4, claimed_at = NULL, claim_token = NULL, updated_at = now()
		WHERE id = $1 AND status = $2
	`

	tag, err := r.pool.Exec(ctx, query, id, from, to, outcome)
	if err != nil {
		return fmt.Errorf("transition booking: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrStatusConflict
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*model.Booking, error) {
	var booking model.Booking
	err := row.Scan(
		&booking.ID,
		&booking.UserID,
		&booking.ClassName,
		&booking.ClassDate,
		&booking.ClassTime,
		&booking.TriggerAt,
		&booking.Status,
		&booking.Outcome,
		&booking.Attempts,
		&booking.ClaimedAt,
		&booking.ClaimToken,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &booking, nil
}
