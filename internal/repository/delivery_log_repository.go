package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joaomjbraga/shipment-management/internal/domain"
)

// DeliveryLogRepository stores delivery journal entries.
type DeliveryLogRepository interface {
	// CreateIfStatus appends entry only while the delivery is in status. It
	// returns ErrStatusChanged when the delivery exists in another status and
	// pgx.ErrNoRows when it does not exist.
	CreateIfStatus(ctx context.Context, entry *domain.DeliveryLog, status domain.DeliveryStatus) error
	ListByDelivery(ctx context.Context, deliveryID string) ([]domain.DeliveryLog, error)
}

type deliveryLogRepository struct {
	pool *pgxpool.Pool
}

// NewDeliveryLogRepository builds repository.
func NewDeliveryLogRepository(pool *pgxpool.Pool) DeliveryLogRepository {
	return &deliveryLogRepository{pool: pool}
}

func (r *deliveryLogRepository) CreateIfStatus(ctx context.Context, entry *domain.DeliveryLog, status domain.DeliveryStatus) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// FOR SHARE waits out a concurrent status update and sees its result.
	var current domain.DeliveryStatus
	if err := tx.QueryRow(ctx, `SELECT status FROM deliveries WHERE id=$1 FOR SHARE`, entry.DeliveryID).Scan(&current); err != nil {
		return err
	}
	if current != status {
		return ErrStatusChanged
	}
	if err := insertLog(ctx, tx, entry); err != nil {
		return fmt.Errorf("delivery log: insert: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("delivery log: commit: %w", err)
	}
	return nil
}

func (r *deliveryLogRepository) ListByDelivery(ctx context.Context, deliveryID string) ([]domain.DeliveryLog, error) {
	const query = `
        SELECT id, delivery_id, description, created_at
        FROM delivery_logs WHERE delivery_id=$1 ORDER BY created_at ASC, seq ASC`
	rows, err := r.pool.Query(ctx, query, deliveryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.DeliveryLog{}
	for rows.Next() {
		var entry domain.DeliveryLog
		if err := rows.Scan(
			&entry.ID,
			&entry.DeliveryID,
			&entry.Description,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

// queryRower is satisfied by both *pgxpool.Pool and pgx.Tx.
type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insertLog(ctx context.Context, q queryRower, entry *domain.DeliveryLog) error {
	const query = `
        INSERT INTO delivery_logs (delivery_id, description)
        VALUES ($1,$2)
        RETURNING id, created_at`
	return q.QueryRow(ctx, query, entry.DeliveryID, entry.Description).Scan(&entry.ID, &entry.CreatedAt)
}
