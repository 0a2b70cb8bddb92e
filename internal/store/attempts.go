package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"basketbay/internal/models"
)

// CreateAttempt journals a new checkout attempt
func (s *Store) CreateAttempt(ctx context.Context, a *models.CheckoutAttempt) error {
	query := `
		INSERT INTO checkout_attempts
			(id, session_id, customer_id, amount, item_count, payment_method, state, order_id, reason)
		VALUES (:id, :session_id, :customer_id, :amount, :item_count, :payment_method, :state, :order_id, :reason)
		RETURNING created_at, updated_at`

	rows, err := s.db.NamedQueryContext(ctx, query, a)
	if err != nil {
		return fmt.Errorf("failed to create attempt: %w", err)
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&a.CreatedAt, &a.UpdatedAt); err != nil {
			return fmt.Errorf("failed to read attempt timestamps: %w", err)
		}
	}
	return rows.Err()
}

// UpdateAttempt records a state transition. Empty method, orderID and reason
// leave the stored values untouched.
func (s *Store) UpdateAttempt(ctx context.Context, id, state, method, orderID, reason string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE checkout_attempts SET
			state          = $1,
			payment_method = COALESCE(NULLIF($2, ''), payment_method),
			order_id       = COALESCE(NULLIF($3, ''), order_id),
			reason         = COALESCE(NULLIF($4, ''), reason),
			updated_at     = NOW()
		WHERE id = $5`,
		state, method, orderID, reason, id)
	if err != nil {
		return fmt.Errorf("failed to update attempt: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("attempt %s: %w", id, models.ErrNotFound)
	}
	return nil
}

// GetAttempt retrieves one attempt by id
func (s *Store) GetAttempt(ctx context.Context, id string) (*models.CheckoutAttempt, error) {
	var a models.CheckoutAttempt
	err := s.db.GetContext(ctx, &a, "SELECT * FROM checkout_attempts WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("attempt %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAttemptsByCustomer returns the customer's attempts, newest first
func (s *Store) ListAttemptsByCustomer(ctx context.Context, customerID string, limit int) ([]models.CheckoutAttempt, error) {
	if limit <= 0 {
		limit = 50
	}
	attempts := []models.CheckoutAttempt{}
	err := s.db.SelectContext(ctx, &attempts,
		"SELECT * FROM checkout_attempts WHERE customer_id = $1 ORDER BY created_at DESC LIMIT $2",
		customerID, limit)
	return attempts, err
}
