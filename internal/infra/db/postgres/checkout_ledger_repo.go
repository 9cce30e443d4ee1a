package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"learnhub-checkout/internal/domain"
	"learnhub-checkout/internal/domain/model"
	"learnhub-checkout/internal/domain/ports/repository"
)

var _ repository.CheckoutLedgerRepository = (*checkoutLedgerRepo)(nil)

// checkoutLedgerRepo keeps the durable row per attempt plus one transition
// row per state it reached.
type checkoutLedgerRepo struct {
	pool *pgxpool.Pool
	txm  *TxManager
}

func NewCheckoutLedgerRepo(pool *pgxpool.Pool) *checkoutLedgerRepo {
	return &checkoutLedgerRepo{pool: pool, txm: NewTxManager(pool)}
}

const sessionColumns = `id, user_id, course_id, plan_type, installment_index, amount, currency, state, outcome,
  order_id, payment_id, message, failure_reason, cancelled, poll_attempts, receipt_id, created_at, updated_at, settled_at`

func (r *checkoutLedgerRepo) Record(ctx context.Context, tx repository.Tx, s *model.CheckoutSession) error {
	if tx == nil {
		return r.txm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
			return r.record(ctx, tx, s)
		})
	}
	return r.record(ctx, tx, s)
}

func (r *checkoutLedgerRepo) record(ctx context.Context, tx repository.Tx, s *model.CheckoutSession) error {
	const upsert = `
INSERT INTO checkout_sessions (` + sessionColumns + `) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19
) ON CONFLICT (id) DO UPDATE SET
  state=$8, outcome=$9, order_id=$10, payment_id=$11, message=$12, failure_reason=$13,
  cancelled=$14, poll_attempts=$15, receipt_id=$16, updated_at=$18, settled_at=$19;`

	_, err := execSQL(ctx, r.pool, tx, upsert,
		s.ID, s.UserID, s.CourseID, s.PlanType, s.InstallmentIndex, s.Amount, s.Currency, string(s.State), string(s.Outcome),
		s.OrderID, s.PaymentID, s.Message, s.FailureReason, s.Cancelled, s.PollAttempts, s.ReceiptID, s.CreatedAt, s.UpdatedAt, s.SettledAt)
	if err != nil {
		return mapExecErr(err)
	}

	const transition = `
INSERT INTO checkout_transitions (session_id, state, outcome, at)
SELECT $1, $2, $3, $4
WHERE NOT EXISTS (SELECT 1 FROM checkout_transitions WHERE session_id=$1 AND state=$2 AND outcome=$3);`
	if _, err := execSQL(ctx, r.pool, tx, transition, s.ID, string(s.State), string(s.Outcome), s.UpdatedAt); err != nil {
		return mapExecErr(err)
	}
	return nil
}

func (r *checkoutLedgerRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.CheckoutSession, error) {
	q := `SELECT ` + sessionColumns + ` FROM checkout_sessions WHERE id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q+";", id)
	if err != nil {
		return nil, err
	}
	s, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return s, nil
}

// ListStale returns attempts parked in one of states since before olderThan,
// oldest first. Inside a transaction the rows are claimed with SKIP LOCKED.
func (r *checkoutLedgerRepo) ListStale(ctx context.Context, tx repository.Tx, states []model.CheckoutState, olderThan time.Time, limit int) ([]*model.CheckoutSession, error) {
	names := make([]string, 0, len(states))
	for _, st := range states {
		names = append(names, string(st))
	}
	q := `SELECT ` + sessionColumns + ` FROM checkout_sessions
WHERE state = ANY($1) AND updated_at < $2
ORDER BY updated_at ASC
LIMIT $3`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE SKIP LOCKED"
	}
	rows, err := queryRows(ctx, r.pool, tx, q+";", names, olderThan, limit)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.CheckoutSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func scanSession(row pgx.Row) (*model.CheckoutSession, error) {
	var (
		s            model.CheckoutSession
		idx          *int32
		state, outco string
	)
	if err := row.Scan(&s.ID, &s.UserID, &s.CourseID, &s.PlanType, &idx, &s.Amount, &s.Currency, &state, &outco,
		&s.OrderID, &s.PaymentID, &s.Message, &s.FailureReason, &s.Cancelled, &s.PollAttempts, &s.ReceiptID,
		&s.CreatedAt, &s.UpdatedAt, &s.SettledAt); err != nil {
		return nil, err
	}
	if idx != nil {
		i := int(*idx)
		s.InstallmentIndex = &i
	}
	s.State = model.CheckoutState(state)
	s.Outcome = model.CheckoutOutcome(outco)
	return &s, nil
}

func mapExecErr(err error) error {
	if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
		return err
	}
	return domain.ErrOperationFailed
}
