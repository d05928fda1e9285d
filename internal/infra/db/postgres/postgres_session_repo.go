package postgres

import (
	"encoding/json"
	"errors"
	"time"

	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"marketplace-payments/internal/domain"
	"marketplace-payments/internal/domain/model"
	"marketplace-payments/internal/domain/ports/repository"
)

var _ repository.PaymentSessionRepository = (*sessionRepo)(nil)

type sessionRepo struct{ pool *pgxpool.Pool }

func NewSessionRepo(pool *pgxpool.Pool) *sessionRepo {
	return &sessionRepo{pool: pool}
}

const sessionColumns = `id, subject_id, purpose, phone, amount, tracking_id, status, snapshot, buyer_id, created_at, updated_at`

func (r *sessionRepo) Save(ctx context.Context, tx repository.Tx, s *model.PaymentSession) error {
	const q = `
INSERT INTO payment_sessions (
  id, subject_id, purpose, phone, amount, tracking_id, status, snapshot, buyer_id, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,NULLIF($6,''),$7,$8,$9,$10,$11
) ON CONFLICT (id) DO UPDATE SET
  status=$7, snapshot=$8, updated_at=$11;`

	snap, err := json.Marshal(s.Snapshot)
	if err != nil {
		return domain.ErrInvalidArgument
	}
	_, err = execSQL(ctx, r.pool, tx, q, s.ID, s.SubjectID, string(s.Purpose), s.Phone, s.Amount, s.TrackingID, string(s.Status), snap, s.BuyerID, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *sessionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PaymentSession, error) {
	const q = `SELECT ` + sessionColumns + ` FROM payment_sessions WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanSession(row)
}

func (r *sessionRepo) FindByTrackingID(ctx context.Context, tx repository.Tx, trackingID string) (*model.PaymentSession, error) {
	const q = `SELECT ` + sessionColumns + ` FROM payment_sessions WHERE tracking_id=$1 LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, trackingID)
	if err != nil {
		return nil, err
	}
	return scanSession(row)
}

func (r *sessionRepo) SetTrackingID(ctx context.Context, tx repository.Tx, id, trackingID string) error {
	const q = `UPDATE payment_sessions SET tracking_id=$2, updated_at=NOW() WHERE id=$1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, trackingID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateStatusIfPending atomically claims the PENDING->terminal transition.
// The row moves only when its status is still PENDING; a false return means
// another path (callback or poll) won the race and the caller must not
// materialize anything.
func (r *sessionRepo) UpdateStatusIfPending(ctx context.Context, tx repository.Tx, id string, status model.SessionStatus) (bool, error) {
	const q = `
UPDATE payment_sessions
   SET status = $2,
       updated_at = NOW()
 WHERE id = $1
   AND status = 'PENDING';`

	cmd, err := execSQL(ctx, r.pool, tx, q, id, string(status))
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *sessionRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.PaymentSession, error) {
	if limit <= 0 {
		limit = 100
	}
	// tracking_id IS NOT NULL: sessions that never reached the gateway are
	// abandoned and have nothing to reconcile against.
	const q = `SELECT ` + sessionColumns + ` FROM payment_sessions
 WHERE status='PENDING' AND tracking_id IS NOT NULL AND created_at < $1
 ORDER BY created_at ASC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, olderThan, limit)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.PaymentSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func scanSession(row pgx.Row) (*model.PaymentSession, error) {
	s := &model.PaymentSession{}
	var (
		trackingID *string
		snap       []byte
	)
	if err := row.Scan(&s.ID, &s.SubjectID, &s.Purpose, &s.Phone, &s.Amount, &trackingID, &s.Status, &snap, &s.BuyerID, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	if trackingID != nil {
		s.TrackingID = *trackingID
	}
	if len(snap) > 0 {
		if err := json.Unmarshal(snap, &s.Snapshot); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
	}
	return s, nil
}
