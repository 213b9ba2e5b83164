package subscription

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	pkgerrors "payrelay/pkg/errors"
)

type Repository interface {
	CreateSubscription(ctx context.Context, sub *Subscription) error
	ListSubscriptions(ctx context.Context) ([]Subscription, error)
	GetSubscription(ctx context.Context, id string) (*Subscription, error)
	UpdateSubscription(ctx context.Context, sub *Subscription) error
	DeleteSubscription(ctx context.Context, id string) error
}

type PostgresRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) CreateSubscription(ctx context.Context, sub *Subscription) error {
	now := time.Now()
	sub.CreatedAt = now
	sub.UpdatedAt = now

	query := `
		INSERT INTO subscriptions (id, name, url, title, text, event_type, filter_expression, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		sub.ID, sub.Name, sub.URL, sub.Title, sub.Text,
		sub.EventType, sub.Filter, sub.Enabled, sub.CreatedAt, sub.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" {
				return pkgerrors.ErrConflict.WithCause(err).WithDetail("message", fmt.Sprintf("subscription with name '%s' already exists", sub.Name))
			}
		}
		if strings.Contains(err.Error(), "duplicate key") || strings.Contains(err.Error(), "unique constraint") {
			return pkgerrors.ErrConflict.WithCause(err).WithDetail("message", fmt.Sprintf("subscription with name '%s' already exists", sub.Name))
		}
		return fmt.Errorf("failed to create subscription: %w", err)
	}

	return nil
}

func (r *PostgresRepository) GetSubscription(ctx context.Context, id string) (*Subscription, error) {
	query := `
		SELECT id, name, url, title, text, event_type, filter_expression, enabled, created_at, updated_at
		FROM subscriptions
		WHERE id = $1
	`

	row := r.db.QueryRowContext(ctx, query, id)

	var sub Subscription
	err := row.Scan(
		&sub.ID, &sub.Name, &sub.URL, &sub.Title, &sub.Text,
		&sub.EventType, &sub.Filter, &sub.Enabled, &sub.CreatedAt, &sub.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrNotFound.WithCause(err).WithDetail("message", fmt.Sprintf("subscription '%s' not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return &sub, nil
}

func (r *PostgresRepository) ListSubscriptions(ctx context.Context) ([]Subscription, error) {
	query := `
		SELECT id, name, url, title, text, event_type, filter_expression, enabled, created_at, updated_at
		FROM subscriptions
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []Subscription
	for rows.Next() {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		var sub Subscription
		if err := rows.Scan(
			&sub.ID, &sub.Name, &sub.URL, &sub.Title, &sub.Text,
			&sub.EventType, &sub.Filter, &sub.Enabled, &sub.CreatedAt, &sub.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}

	return subs, nil
}

func (r *PostgresRepository) UpdateSubscription(ctx context.Context, sub *Subscription) error {
	sub.UpdatedAt = time.Now()

	query := `
		UPDATE subscriptions
		SET name = $1, url = $2, title = $3, text = $4, event_type = $5,
		    filter_expression = $6, enabled = $7, updated_at = $8
		WHERE id = $9
	`

	res, err := r.db.ExecContext(ctx, query,
		sub.Name, sub.URL, sub.Title, sub.Text, sub.EventType,
		sub.Filter, sub.Enabled, sub.UpdatedAt, sub.ID,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" {
				return pkgerrors.ErrConflict.WithCause(err).WithDetail("message", fmt.Sprintf("subscription with name '%s' already exists", sub.Name))
			}
		}
		return fmt.Errorf("failed to update subscription: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return pkgerrors.ErrNotFound.WithDetail("message", fmt.Sprintf("subscription '%s' not found", sub.ID))
	}

	return nil
}

func (r *PostgresRepository) DeleteSubscription(ctx context.Context, id string) error {
	query := `DELETE FROM subscriptions WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return pkgerrors.ErrNotFound.WithDetail("message", fmt.Sprintf("subscription '%s' not found", id))
	}

	return nil
}
