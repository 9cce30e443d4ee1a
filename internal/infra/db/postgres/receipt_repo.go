package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"learnhub-checkout/internal/domain"
	"learnhub-checkout/internal/domain/model"
	"learnhub-checkout/internal/domain/ports/repository"
)

var _ repository.ReceiptRepository = (*receiptRepo)(nil)

type receiptRepo struct{ pool *pgxpool.Pool }

func NewReceiptRepo(pool *pgxpool.Pool) *receiptRepo {
	return &receiptRepo{pool: pool}
}

func (r *receiptRepo) Save(ctx context.Context, tx repository.Tx, rc *model.Receipt) error {
	facts, err := json.Marshal(rc.Facts)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO receipts (id, session_id, user_id, course_id, facts, content_type, document, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET facts=$5, content_type=$6, document=$7;`
	_, err = execSQL(ctx, r.pool, tx, q, rc.ID, rc.SessionID, rc.UserID, rc.Facts.CourseID, facts, rc.ContentType, rc.Document, rc.CreatedAt)
	if err != nil {
		return mapExecErr(err)
	}
	return nil
}

func (r *receiptRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Receipt, error) {
	const q = `SELECT id, session_id, user_id, facts, content_type, document, created_at FROM receipts WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	rc, err := scanReceipt(row, true)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return rc, nil
}

// ListByUser returns receipt metadata without documents, newest first.
// An empty courseID lists every course.
func (r *receiptRepo) ListByUser(ctx context.Context, tx repository.Tx, userID, courseID string) ([]*model.Receipt, error) {
	const q = `SELECT id, session_id, user_id, facts, content_type, created_at FROM receipts
WHERE user_id=$1 AND ($2::text = '' OR course_id=$2)
ORDER BY created_at DESC;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID, courseID)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.Receipt
	for rows.Next() {
		rc, err := scanReceipt(rows, false)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func scanReceipt(row pgx.Row, withDocument bool) (*model.Receipt, error) {
	var (
		rc    model.Receipt
		facts []byte
		err   error
	)
	if withDocument {
		err = row.Scan(&rc.ID, &rc.SessionID, &rc.UserID, &facts, &rc.ContentType, &rc.Document, &rc.CreatedAt)
	} else {
		err = row.Scan(&rc.ID, &rc.SessionID, &rc.UserID, &facts, &rc.ContentType, &rc.CreatedAt)
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(facts, &rc.Facts); err != nil {
		return nil, err
	}
	return &rc, nil
}
