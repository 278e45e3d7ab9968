package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joaomjbraga/shipment-management/internal/domain"
)

// DeliveryRepository encapsulates delivery persistence.
type DeliveryRepository interface {
	Create(ctx context.Context, delivery *domain.Delivery) error
	GetByID(ctx context.Context, id string) (*domain.Delivery, error)
	ListWithOwner(ctx context.Context) ([]domain.DeliveryWithOwner, error)
	// TransitionStatus moves the delivery from -> to and appends one log entry
	// in a single transaction. It returns ErrStatusChanged when the delivery is
	// no longer in status from, and pgx.ErrNoRows when it does not exist.
	TransitionStatus(ctx context.Context, id string, from, to domain.DeliveryStatus) (*domain.Delivery, *domain.DeliveryLog, error)
}

type deliveryRepository struct {
	pool *pgxpool.Pool
}

// NewDeliveryRepository instantiates repository.
func NewDeliveryRepository(pool *pgxpool.Pool) DeliveryRepository {
	return &deliveryRepository{pool: pool}
}

func (r *deliveryRepository) Create(ctx context.Context, delivery *domain.Delivery) error {
	const query = `
        INSERT INTO deliveries (user_id, description, status)
        VALUES ($1,$2,$3)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		delivery.UserID,
		delivery.Description,
		delivery.Status,
	).Scan(&delivery.ID, &delivery.CreatedAt, &delivery.UpdatedAt)
}

func (r *deliveryRepository) GetByID(ctx context.Context, id string) (*domain.Delivery, error) {
	const query = `
        SELECT id, user_id, description, status, created_at, updated_at
        FROM deliveries WHERE id=$1`
	return scanDelivery(r.pool.QueryRow(ctx, query, id))
}

func (r *deliveryRepository) ListWithOwner(ctx context.Context) ([]domain.DeliveryWithOwner, error) {
	const query = `
        SELECT d.id, d.user_id, d.description, d.status, d.created_at, d.updated_at, u.name, u.email
        FROM deliveries d
        JOIN users u ON u.id = d.user_id
        ORDER BY d.created_at DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.DeliveryWithOwner{}
	for rows.Next() {
		var item domain.DeliveryWithOwner
		if err := rows.Scan(
			&item.ID,
			&item.UserID,
			&item.Description,
			&item.Status,
			&item.CreatedAt,
			&item.UpdatedAt,
			&item.Owner.Name,
			&item.Owner.Email,
		); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, rows.Err()
}

func (r *deliveryRepository) TransitionStatus(ctx context.Context, id string, from, to domain.DeliveryStatus) (*domain.Delivery, *domain.DeliveryLog, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const updateSQL = `
        UPDATE deliveries SET status=$3, updated_at=NOW()
        WHERE id=$1 AND status=$2
        RETURNING id, user_id, description, status, created_at, updated_at`
	delivery, err := scanDelivery(tx.QueryRow(ctx, updateSQL, id, from, to))
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM deliveries WHERE id=$1)`, id).Scan(&exists); err != nil {
			return nil, nil, fmt.Errorf("delivery: check existence: %w", err)
		}
		if !exists {
			return nil, nil, pgx.ErrNoRows
		}
		return nil, nil, ErrStatusChanged
	}
	if err != nil {
		return nil, nil, fmt.Errorf("delivery: update status: %w", err)
	}

	entry := &domain.DeliveryLog{DeliveryID: id, Description: string(to)}
	if err := insertLog(ctx, tx, entry); err != nil {
		return nil, nil, fmt.Errorf("delivery: append log: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("delivery: commit transition: %w", err)
	}
	return delivery, entry, nil
}

func scanDelivery(row pgx.Row) (*domain.Delivery, error) {
	var delivery domain.Delivery
	if err := row.Scan(
		&delivery.ID,
		&delivery.UserID,
		&delivery.Description,
		&delivery.Status,
		&delivery.CreatedAt,
		&delivery.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &delivery, nil
}
